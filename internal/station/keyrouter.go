package station

import (
	"bufio"
	"context"
	"io"
	"sync/atomic"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/ticket-checkin/internal/clock"
	"github.com/robertarktes/ticket-checkin/internal/domain"
)

const (
	keyCtrlC     = 0x03
	keyBackspace = 0x08
	keyTab       = 0x09
	keyLF        = 0x0a
	keyCR        = 0x0d
	keyEsc       = 0x1b
	keyDelete    = 0x7f
	keyFocus     = '/'
)

// KeyRouter decodes raw terminal input and routes it to the manual field
// or the keystroke buffer. Codes are pushed onto the scanner and manual
// channels without blocking; a full channel drops the code.
type KeyRouter struct {
	keys      *KeystrokeBuffer
	manual    *ManualEntry
	debouncer *Debouncer
	clock     clock.Clock

	scanner chan domain.ScanIntent
	typed   chan domain.ScanIntent

	editing atomic.Bool
	onTab   func()
	redraw  func()
}

func NewKeyRouter(keys *KeystrokeBuffer, manual *ManualEntry, d *Debouncer, clk clock.Clock) *KeyRouter {
	return &KeyRouter{
		keys:      keys,
		manual:    manual,
		debouncer: d,
		clock:     clk,
		scanner:   make(chan domain.ScanIntent, 1),
		typed:     make(chan domain.ScanIntent, 1),
		onTab:     func() {},
		redraw:    func() {},
	}
}

// OnTab sets the handler for Tab, used to cycle the selected event.
func (k *KeyRouter) OnTab(fn func()) { k.onTab = fn }

// OnChange sets the handler invoked after any key that changes what the
// operator sees.
func (k *KeyRouter) OnChange(fn func()) { k.redraw = fn }

func (k *KeyRouter) Scanner() <-chan domain.ScanIntent { return k.scanner }

func (k *KeyRouter) Manual() <-chan domain.ScanIntent { return k.typed }

func (k *KeyRouter) Editing() bool { return k.editing.Load() }

// Run consumes r until Ctrl-C, EOF or cancellation. Both channels are
// closed on return.
func (k *KeyRouter) Run(ctx context.Context, r io.Reader) error {
	defer close(k.scanner)
	defer close(k.typed)

	br := bufio.NewReader(r)
	for {
		if ctx.Err() != nil {
			return nil
		}
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "read terminal")
		}
		switch {
		case b == keyCtrlC:
			return nil
		case b == keyEsc:
			k.skipEscapeSequence(br)
			k.setEditing(false)
		case b == keyCR || b == keyLF:
			k.enter()
		case b == keyTab:
			k.onTab()
		case b == keyBackspace || b == keyDelete:
			if k.editing.Load() {
				k.manual.Backspace()
			}
		case b == keyFocus && !k.editing.Load():
			k.setEditing(true)
		case b < 0x20:
		default:
			k.printable(br, b)
		}
		k.redraw()
	}
}

func (k *KeyRouter) enter() {
	// A scanner's trailing Enter clears the previous result and submits.
	k.debouncer.Dismiss()
	if k.editing.Load() {
		if code, ok := k.manual.Submit(); ok {
			k.emit(k.typed, code, domain.ChannelManual)
		}
		return
	}
	if code, ok := k.keys.Enter(); ok {
		k.emit(k.scanner, code, domain.ChannelScanner)
	}
}

func (k *KeyRouter) printable(br *bufio.Reader, first byte) {
	r := rune(first)
	if first >= utf8.RuneSelf {
		buf := []byte{first}
		for !utf8.FullRune(buf) && len(buf) < utf8.UTFMax {
			next, err := br.ReadByte()
			if err != nil {
				break
			}
			buf = append(buf, next)
		}
		r, _ = utf8.DecodeRune(buf)
	}
	if k.editing.Load() {
		k.manual.Insert(r)
		return
	}
	k.keys.Key(r)
}

// skipEscapeSequence swallows CSI sequences such as arrow keys so their
// tail bytes never reach the keystroke buffer.
func (k *KeyRouter) skipEscapeSequence(br *bufio.Reader) {
	if br.Buffered() == 0 {
		return
	}
	next, err := br.Peek(1)
	if err != nil || next[0] != '[' {
		return
	}
	_, _ = br.ReadByte()
	for br.Buffered() > 0 {
		b, err := br.ReadByte()
		if err != nil || (b >= 0x40 && b <= 0x7e) {
			return
		}
	}
}

func (k *KeyRouter) setEditing(editing bool) {
	k.editing.Store(editing)
	k.keys.SetEditing(editing)
}

func (k *KeyRouter) emit(ch chan domain.ScanIntent, code string, channel domain.Channel) {
	intent := domain.ScanIntent{Code: code, Channel: channel, ObservedAt: k.clock.Now()}
	select {
	case ch <- intent:
	default:
	}
}
