package station

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/robertarktes/ticket-checkin/internal/domain"
)

const clearScreen = "\x1b[H\x1b[2J"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	admitStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 3).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("34"))

	rejectStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 3).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("160"))

	// Duplicate entry attempts get their own loud alert.
	alreadyUsedStyle = lipgloss.NewStyle().
				Bold(true).
				Blink(true).
				Padding(1, 3).
				Border(lipgloss.ThickBorder()).
				BorderForeground(lipgloss.Color("226")).
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("208"))

	transientStyle = lipgloss.NewStyle().
			Padding(1, 3).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("220"))

	noticeStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("220"))
	fieldStyle  = lipgloss.NewStyle().Underline(true)
)

// View is everything the station screen shows.
type View struct {
	StationID string
	Event     string
	Tally     domain.CheckInTally
	State     State
	Result    domain.ScanResult
	Editing   bool
	Manual    string
	Notice    string
}

func RenderView(v View) string {
	var b strings.Builder

	event := v.Event
	if event == "" {
		event = "no event selected (Tab to choose)"
	}
	b.WriteString(headerStyle.Render("Check-in · "+event) + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("station %s · %d / %d checked in",
		v.StationID, v.Tally.CheckedIn, v.Tally.Total)) + "\n\n")

	switch v.State {
	case StateLocked:
		b.WriteString(mutedStyle.Render("validating…") + "\n")
	case StateResultShown:
		b.WriteString(renderResult(v.Result) + "\n")
		b.WriteString(mutedStyle.Render("Enter to dismiss") + "\n")
	default:
		b.WriteString(mutedStyle.Render("ready to scan") + "\n")
	}

	if v.Notice != "" {
		b.WriteString("\n" + noticeStyle.Render(v.Notice) + "\n")
	}

	b.WriteString("\n")
	if v.Editing {
		b.WriteString("code: " + fieldStyle.Render(v.Manual+" ") + mutedStyle.Render("  (Enter submit, Esc leave)") + "\n")
	} else {
		b.WriteString(mutedStyle.Render("/ type a code · Tab next event · Ctrl-C quit") + "\n")
	}
	return b.String()
}

func renderResult(res domain.ScanResult) string {
	switch {
	case res.Success:
		text := "ADMIT"
		if res.Ticket != nil {
			text += "\n" + res.Ticket.HolderName + " · " + res.Ticket.TierName
		}
		return admitStyle.Render(text)
	case res.Reason == domain.ReasonAlreadyUsed:
		return alreadyUsedStyle.Render("ALREADY USED\n" + res.Detail)
	case res.Reason == domain.ReasonTransient:
		return transientStyle.Render("TRY AGAIN\n" + res.Detail)
	default:
		return rejectStyle.Render(reasonTitle(res.Reason) + "\n" + res.Detail)
	}
}

func reasonTitle(r domain.Reason) string {
	switch r {
	case domain.ReasonNotFound:
		return "NOT FOUND"
	case domain.ReasonTicketVoid:
		return "TICKET VOID"
	case domain.ReasonWrongEvent:
		return "WRONG EVENT"
	default:
		return string(r)
	}
}

// Display redraws the whole screen on every change. Raw mode does not
// translate newlines, so each line ends in CRLF.
type Display struct {
	mu       sync.Mutex
	w        io.Writer
	notice   string
	noticeAt time.Time
}

func NewDisplay(w io.Writer) *Display {
	return &Display{w: w}
}

// Notice shows msg until it is five seconds old.
func (d *Display) Notice(msg string) {
	d.mu.Lock()
	d.notice = msg
	d.noticeAt = time.Now()
	d.mu.Unlock()
}

func (d *Display) Draw(v View) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.notice != "" && time.Since(d.noticeAt) < 5*time.Second {
		v.Notice = d.notice
	}
	out := strings.ReplaceAll(RenderView(v), "\n", "\r\n")
	_, _ = io.WriteString(d.w, clearScreen+out)
}
