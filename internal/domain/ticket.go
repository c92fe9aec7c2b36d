package domain

import "time"

type TicketStatus string

const (
	TicketValid     TicketStatus = "valid"
	TicketCheckedIn TicketStatus = "checked_in"
	TicketRefunded  TicketStatus = "refunded"
	TicketCancelled TicketStatus = "cancelled"
)

// Void reports whether the ticket can never be admitted.
func (s TicketStatus) Void() bool {
	return s == TicketRefunded || s == TicketCancelled
}

type Ticket struct {
	Code        string
	EventID     string
	TierID      string
	TierName    string
	HolderName  string
	Status      TicketStatus
	CheckedInAt *time.Time
	CheckedInBy string
}

func (t Ticket) Summary() TicketSummary {
	return TicketSummary{HolderName: t.HolderName, TierName: t.TierName}
}

type CheckInTally struct {
	EventID   string `json:"event_id"`
	Total     int64  `json:"total"`
	CheckedIn int64  `json:"checked_in"`
}
