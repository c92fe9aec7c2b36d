package station

import (
	"testing"
	"time"

	"github.com/robertarktes/ticket-checkin/internal/clock"
)

func typeKeys(clk *clock.Fake, b *KeystrokeBuffer, s string, every time.Duration) {
	for _, r := range s {
		clk.Advance(every)
		b.Key(r)
	}
}

func TestKeystrokeBuffer(t *testing.T) {
	tests := []struct {
		name   string
		input  func(clk *clock.Fake, b *KeystrokeBuffer)
		want   string
		wantOK bool
	}{
		{
			name:   "scanner burst",
			input:  func(clk *clock.Fake, b *KeystrokeBuffer) { typeKeys(clk, b, "TKT-0001", 10*time.Millisecond) },
			want:   "TKT-0001",
			wantOK: true,
		},
		{
			name:  "exactly minimum length is too short",
			input: func(clk *clock.Fake, b *KeystrokeBuffer) { typeKeys(clk, b, "12345", 10*time.Millisecond) },
		},
		{
			name:   "one over minimum length",
			input:  func(clk *clock.Fake, b *KeystrokeBuffer) { typeKeys(clk, b, "123456", 10*time.Millisecond) },
			want:   "123456",
			wantOK: true,
		},
		{
			name: "slow typing resets the buffer",
			input: func(clk *clock.Fake, b *KeystrokeBuffer) {
				typeKeys(clk, b, "hello", 10*time.Millisecond)
				clk.Advance(150 * time.Millisecond)
				typeKeys(clk, b, "ABCDEFG", 10*time.Millisecond)
			},
			want:   "ABCDEFG",
			wantOK: true,
		},
		{
			name:  "human typing never accumulates",
			input: func(clk *clock.Fake, b *KeystrokeBuffer) { typeKeys(clk, b, "password", 200*time.Millisecond) },
		},
		{
			name: "Enter after gap emits nothing",
			input: func(clk *clock.Fake, b *KeystrokeBuffer) {
				typeKeys(clk, b, "TKT-0001", 10*time.Millisecond)
				clk.Advance(5 * time.Second)
			},
		},
		{
			name: "Enter exactly at gap threshold emits",
			input: func(clk *clock.Fake, b *KeystrokeBuffer) {
				typeKeys(clk, b, "TKT-0001", 10*time.Millisecond)
				clk.Advance(100 * time.Millisecond)
			},
			want:   "TKT-0001",
			wantOK: true,
		},
		{
			name: "gap equal to threshold keeps the buffer",
			input: func(clk *clock.Fake, b *KeystrokeBuffer) {
				typeKeys(clk, b, "ABCDEF", 100*time.Millisecond)
			},
			want:   "ABCDEF",
			wantOK: true,
		},
		{
			name: "editing suspends capture",
			input: func(clk *clock.Fake, b *KeystrokeBuffer) {
				typeKeys(clk, b, "ABC", 10*time.Millisecond)
				b.SetEditing(true)
				typeKeys(clk, b, "DEFGHIJ", 10*time.Millisecond)
				b.SetEditing(false)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewFake(t0)
			b := NewKeystrokeBuffer(clk, 100*time.Millisecond, 5)
			tt.input(clk, b)
			got, ok := b.Enter()
			if got != tt.want || ok != tt.wantOK {
				t.Fatalf("Enter() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
			if b.Len() != 0 {
				t.Fatalf("buffer not cleared after Enter")
			}
		})
	}
}

func TestManualEntry(t *testing.T) {
	var m ManualEntry
	for _, r := range "  AB9" {
		m.Insert(r)
	}
	m.Backspace()
	m.Insert('C')
	m.Insert(' ')

	code, ok := m.Submit()
	if !ok || code != "ABC" {
		t.Fatalf("Submit() = %q, %v", code, ok)
	}
	if m.Text() != "" {
		t.Fatalf("field not cleared")
	}
	if _, ok := m.Submit(); ok {
		t.Fatalf("empty field produced an intent")
	}
}
