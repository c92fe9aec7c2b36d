package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Station holds the tunables of one check-in station. Scanner hardware
// differs in keystroke speed, so the gap threshold and minimum code length
// are configurable per device.
type Station struct {
	APIURL            string        `mapstructure:"api_url"`
	StationID         string        `mapstructure:"station_id"`
	EventID           string        `mapstructure:"event_id"`
	GapThreshold      time.Duration `mapstructure:"gap_threshold"`
	MinCodeLength     int           `mapstructure:"min_code_length"`
	Cooldown          time.Duration `mapstructure:"cooldown"`
	ValidationTimeout time.Duration `mapstructure:"validation_timeout"`
	TallyInterval     time.Duration `mapstructure:"tally_interval"`
	CameraCommand     string        `mapstructure:"camera_command"`
}

// LoadStation reads an optional YAML file, then STATION_* environment
// variables, then any flags in fs that were set on the command line. An
// empty path skips the file. Flags are looked up by the config key name
// with underscores turned into dashes.
func LoadStation(path string, fs *pflag.FlagSet) (*Station, error) {
	v := viper.New()
	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("station_id", "")
	v.SetDefault("event_id", "")
	v.SetDefault("gap_threshold", "100ms")
	v.SetDefault("min_code_length", 5)
	v.SetDefault("cooldown", "3s")
	v.SetDefault("validation_timeout", "5s")
	v.SetDefault("tally_interval", "30s")
	v.SetDefault("camera_command", "")

	v.SetEnvPrefix("STATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read station config %s", path)
		}
	}

	if fs != nil {
		for _, key := range []string{"api_url", "station_id", "event_id", "camera_command"} {
			if f := fs.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "bind flag %s", f.Name)
				}
			}
		}
	}

	var cfg Station
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode station config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Station) Validate() error {
	if s.APIURL == "" {
		return errors.New("config: api_url must be set")
	}
	if s.GapThreshold <= 0 {
		return errors.New("config: gap_threshold must be positive")
	}
	if s.MinCodeLength < 0 {
		return errors.New("config: min_code_length must not be negative")
	}
	if s.Cooldown < 0 || s.ValidationTimeout <= 0 || s.TallyInterval <= 0 {
		return errors.New("config: cooldown, validation_timeout and tally_interval must be positive")
	}
	return nil
}
