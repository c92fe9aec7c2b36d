package station

import (
	"context"
	"strings"
	"testing"

	"github.com/robertarktes/ticket-checkin/internal/clock"
	"github.com/robertarktes/ticket-checkin/internal/domain"
	"github.com/robertarktes/ticket-checkin/internal/observability"
)

func TestCameraAdapter_EmitsEveryDecode(t *testing.T) {
	c := NewCameraAdapter(clock.NewFake(t0), observability.NopLogger())
	out := make(chan domain.ScanIntent, 8)

	input := "QR-Code:TKT-0001\n\nTKT-0001\n  TKT-0002  \n"
	if err := c.Run(context.Background(), strings.NewReader(input), out); err != nil {
		t.Fatal(err)
	}
	close(out)

	got := drain(out)
	want := []string{"TKT-0001", "TKT-0001", "TKT-0002"}
	if !equal(codes(got), want) {
		t.Fatalf("codes = %v, want %v", codes(got), want)
	}
	for _, intent := range got {
		if intent.Channel != domain.ChannelCamera || !intent.ObservedAt.Equal(t0) {
			t.Fatalf("intent = %+v", intent)
		}
	}
}

func TestCameraAdapter_StopsOnCancel(t *testing.T) {
	c := NewCameraAdapter(clock.NewFake(t0), observability.NopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx, strings.NewReader("TKT-0001\n"), make(chan domain.ScanIntent))
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
