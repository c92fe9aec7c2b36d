package station

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/ticket-checkin/internal/clock"
	"github.com/robertarktes/ticket-checkin/internal/domain"
	"github.com/robertarktes/ticket-checkin/internal/observability"
)

// Symbology prefixes zbarcam prints when --raw is not given.
var symbologyPrefixes = []string{"QR-Code:", "EAN-13:", "EAN-8:", "CODE-128:", "CODE-39:", "I2/5:", "PDF417:"}

// CameraAdapter reads decoded payloads, one per line, from an external
// decoder. Every successful frame decode is a line, so the same ticket held in
// front of the camera produces a stream of identical intents.
type CameraAdapter struct {
	clock  clock.Clock
	logger observability.Logger
}

func NewCameraAdapter(clk clock.Clock, logger observability.Logger) *CameraAdapter {
	return &CameraAdapter{clock: clk, logger: logger}
}

func (c *CameraAdapter) Run(ctx context.Context, r io.Reader, out chan<- domain.ScanIntent) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		code := strings.TrimSpace(scanner.Text())
		for _, p := range symbologyPrefixes {
			if strings.HasPrefix(code, p) {
				code = strings.TrimPrefix(code, p)
				break
			}
		}
		if code == "" {
			continue
		}
		intent := domain.ScanIntent{Code: code, Channel: domain.ChannelCamera, ObservedAt: c.clock.Now()}
		select {
		case out <- intent:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "read camera output")
	}
	return ctx.Err()
}

// StartCamera launches the decoder command and returns its stdout. The
// process is killed when ctx is cancelled.
func StartCamera(ctx context.Context, command string) (io.ReadCloser, func() error, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, nil, errors.New("empty camera command")
	}
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, errors.Wrap(err, "camera stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, errors.Wrapf(err, "start camera %q", fields[0])
	}
	return stdout, cmd.Wait, nil
}
