package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/ticket-checkin/internal/clock"
	"github.com/robertarktes/ticket-checkin/internal/config"
	"github.com/robertarktes/ticket-checkin/internal/domain"
	"github.com/robertarktes/ticket-checkin/internal/observability"
	"github.com/robertarktes/ticket-checkin/internal/station"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "checkin-station: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("checkin-station", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "path to station YAML config")
	logPath := flags.String("log-file", "checkin-station.log", "where to write JSON logs")
	flags.String("api-url", "", "check-in API base URL")
	flags.String("station-id", "", "identifier sent with every scan")
	flags.String("event-id", "", "event to check in for")
	flags.String("camera-command", "", "decoder command printing one code per line, e.g. \"zbarcam --raw\"")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.LoadStation(*configPath, flags)
	if err != nil {
		return err
	}

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open log file")
	}
	defer logFile.Close()
	logger := observability.NewLoggerTo(logFile, logrus.InfoLevel).WithField("station_id", cfg.StationID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.NewSystem()
	client := station.NewClient(cfg.APIURL, cfg.StationID, cfg.ValidationTimeout)
	display := station.NewDisplay(os.Stdout)

	var redraw func()
	var poller *station.TallyPoller

	debouncer := station.NewDebouncer(client, clk,
		station.WithCooldown(cfg.Cooldown),
		station.WithValidationTimeout(cfg.ValidationTimeout),
		station.WithDebouncerLogger(logger),
		station.WithOnResult(func(_ domain.ScanIntent, res domain.ScanResult) {
			if res.Success {
				poller.Refresh()
			}
			redraw()
		}),
		station.WithNotice(func(msg string) {
			display.Notice(msg)
			redraw()
		}),
	)

	events, err := client.ListEvents(ctx)
	if err != nil {
		logger.Warn("could not load events: ", err)
	}
	selector := station.NewEventSelector(debouncer, events, cfg.EventID)

	manual := &station.ManualEntry{}
	keys := station.NewKeystrokeBuffer(clk, cfg.GapThreshold, cfg.MinCodeLength)
	router := station.NewKeyRouter(keys, manual, debouncer, clk)
	poller = station.NewTallyPoller(client, debouncer.EventID, clk, cfg.TallyInterval, logger)

	redraw = func() {
		display.Draw(station.View{
			StationID: cfg.StationID,
			Event:     selector.Selected(),
			Tally:     poller.Current(),
			State:     debouncer.State(),
			Result:    debouncer.Shown(),
			Editing:   router.Editing(),
			Manual:    manual.Text(),
		})
	}
	router.OnChange(redraw)
	router.OnTab(func() {
		selector.Next()
		poller.Refresh()
	})
	poller.OnTally(func(domain.CheckInTally) { redraw() })

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return errors.Wrap(err, "raw terminal")
		}
		defer term.Restore(fd, oldState)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	camera := make(chan domain.ScanIntent)
	g, gctx := errgroup.WithContext(ctx)

	if cfg.CameraCommand != "" {
		out, wait, err := station.StartCamera(gctx, cfg.CameraCommand)
		if err != nil {
			return err
		}
		adapter := station.NewCameraAdapter(clk, logger)
		g.Go(func() error {
			err := adapter.Run(gctx, out, camera)
			_ = wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		return station.NewCoordinator(debouncer, logger).Run(gctx, router.Scanner(), router.Manual(), camera)
	})
	g.Go(func() error {
		return poller.Run(gctx)
	})

	// The key router blocks on stdin, so it is not part of the group; Ctrl-C
	// or EOF ends the session by cancelling it.
	go func() {
		if err := router.Run(ctx, os.Stdin); err != nil {
			logger.Error("terminal input failed: ", err)
		}
		cancel()
	}()

	redraw()
	logger.WithField("event_id", debouncer.EventID()).Info("station started")
	err = g.Wait()
	fmt.Print("\r\n")
	logger.Info("station stopped")
	return err
}
