package domain

import (
	"fmt"
	"time"
)

type Channel string

const (
	ChannelCamera  Channel = "camera"
	ChannelScanner Channel = "scanner"
	ChannelManual  Channel = "manual"
)

// ScanIntent is a candidate code observed by one input channel. EventID is
// filled in by the debouncer from the operator's selection.
type ScanIntent struct {
	Code       string
	EventID    string
	Channel    Channel
	ObservedAt time.Time
}

type Reason string

const (
	ReasonNotFound    Reason = "NOT_FOUND"
	ReasonAlreadyUsed Reason = "ALREADY_USED"
	ReasonTicketVoid  Reason = "TICKET_VOID"
	ReasonWrongEvent  Reason = "WRONG_EVENT"
	ReasonTransient   Reason = "TRANSIENT"
)

// Definitive reports whether retrying the same scan can never change the outcome.
func (r Reason) Definitive() bool {
	return r != ReasonTransient
}

type TicketSummary struct {
	HolderName string `json:"holder_name"`
	TierName   string `json:"tier_name"`
}

type ScanResult struct {
	Success     bool           `json:"success"`
	Ticket      *TicketSummary `json:"ticket,omitempty"`
	Reason      Reason         `json:"reason,omitempty"`
	Detail      string         `json:"detail,omitempty"`
	CheckedInAt *time.Time     `json:"checked_in_at,omitempty"`
}

func Admitted(t Ticket) ScanResult {
	summary := t.Summary()
	return ScanResult{Success: true, Ticket: &summary, CheckedInAt: t.CheckedInAt}
}

func Rejected(reason Reason, detail string) ScanResult {
	return ScanResult{Reason: reason, Detail: detail}
}

func Transient(detail string) ScanResult {
	return Rejected(ReasonTransient, detail)
}

// AlreadyUsed carries when and where the earlier check-in happened, if known.
func AlreadyUsed(t Ticket) ScanResult {
	res := Rejected(ReasonAlreadyUsed, "ticket already checked in")
	if t.CheckedInAt != nil {
		res.CheckedInAt = t.CheckedInAt
		res.Detail = fmt.Sprintf("ticket already checked in at %s", t.CheckedInAt.Format(time.RFC3339))
		if t.CheckedInBy != "" {
			res.Detail += " by station " + t.CheckedInBy
		}
	}
	return res
}
