package station

import "sync"

// EventSelector holds the events the operator can pick from and applies the
// choice to the debouncer.
type EventSelector struct {
	mu        sync.Mutex
	events    []EventInfo
	idx       int
	debouncer *Debouncer
}

func NewEventSelector(d *Debouncer, events []EventInfo, preferred string) *EventSelector {
	s := &EventSelector{events: events, idx: -1, debouncer: d}
	for i, e := range events {
		if e.ID == preferred {
			s.idx = i
		}
	}
	switch {
	case s.idx >= 0:
		d.SelectEvent(events[s.idx].ID)
	case preferred != "":
		d.SelectEvent(preferred)
	case len(events) == 1:
		s.idx = 0
		d.SelectEvent(events[0].ID)
	}
	return s
}

// Next cycles to the following event and selects it.
func (s *EventSelector) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return
	}
	s.idx = (s.idx + 1) % len(s.events)
	s.debouncer.SelectEvent(s.events[s.idx].ID)
}

// Selected returns the current event's display name, falling back to its id.
func (s *EventSelector) Selected() string {
	id := s.debouncer.EventID()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.ID == id && e.Name != "" {
			return e.Name
		}
	}
	return id
}
