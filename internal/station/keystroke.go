package station

import (
	"sync"
	"time"

	"github.com/robertarktes/ticket-checkin/internal/clock"
)

// KeystrokeBuffer turns a keyboard-wedge scanner's burst of keystrokes into
// one code. A pause longer than the gap threshold means a human is typing,
// so whatever was buffered is discarded.
type KeystrokeBuffer struct {
	mu      sync.Mutex
	clock   clock.Clock
	gap     time.Duration
	minLen  int
	buf     []rune
	last    time.Time
	editing bool
}

func NewKeystrokeBuffer(clk clock.Clock, gap time.Duration, minLen int) *KeystrokeBuffer {
	return &KeystrokeBuffer{clock: clk, gap: gap, minLen: minLen}
}

func (b *KeystrokeBuffer) Key(r rune) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.editing {
		return
	}
	now := b.clock.Now()
	if len(b.buf) > 0 && now.Sub(b.last) > b.gap {
		b.buf = b.buf[:0]
	}
	b.buf = append(b.buf, r)
	b.last = now
}

// Enter closes the current burst. It reports a code only when the burst is
// strictly longer than the minimum length and its last key arrived within the
// gap threshold; the buffer is cleared either way.
func (b *KeystrokeBuffer) Enter() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.editing {
		return "", false
	}
	stale := len(b.buf) > 0 && b.clock.Now().Sub(b.last) > b.gap
	code := string(b.buf)
	b.buf = b.buf[:0]
	if stale || len([]rune(code)) <= b.minLen {
		return "", false
	}
	return code, true
}

// SetEditing suspends capture while focus is in an editable field.
func (b *KeystrokeBuffer) SetEditing(editing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.editing = editing
	b.buf = b.buf[:0]
}

func (b *KeystrokeBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}
