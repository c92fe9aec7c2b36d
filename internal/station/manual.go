package station

import (
	"strings"
	"sync"
)

// ManualEntry is the operator's text field for codes that will not scan.
type ManualEntry struct {
	mu   sync.Mutex
	text []rune
}

func (m *ManualEntry) Insert(r rune) {
	m.mu.Lock()
	m.text = append(m.text, r)
	m.mu.Unlock()
}

func (m *ManualEntry) Backspace() {
	m.mu.Lock()
	if n := len(m.text); n > 0 {
		m.text = m.text[:n-1]
	}
	m.mu.Unlock()
}

func (m *ManualEntry) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.text)
}

// Submit returns the trimmed text and clears the field. Blank input yields
// nothing.
func (m *ManualEntry) Submit() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code := strings.TrimSpace(string(m.text))
	m.text = m.text[:0]
	return code, code != ""
}
