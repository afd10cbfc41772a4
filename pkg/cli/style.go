package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/haivivi/audiofocus/pkg/audiomgr"
	"github.com/haivivi/audiofocus/pkg/focus"
)

// Theme defines the colors of terminal output.
type Theme struct {
	Primary lipgloss.Color
	Gain    lipgloss.Color
	Loss    lipgloss.Color
	Dim     lipgloss.Color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Gain:    lipgloss.Color("#3fb950"),
	Loss:    lipgloss.Color("#f85149"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds the styles derived from a theme.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Gain  lipgloss.Style
	Loss  lipgloss.Style
	Dim   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label: lipgloss.NewStyle().Bold(true).Width(12),
		Gain:  lipgloss.NewStyle().Foreground(t.Gain),
		Loss:  lipgloss.NewStyle().Foreground(t.Loss),
		Dim:   lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Call renders a session call such as "play" or "pause".
func (s Styles) Call(step int, app, call string) string {
	st := s.Gain
	if call == "pause" {
		st = s.Loss
	}
	return fmt.Sprintf("%s %s %s", s.Dim.Render(fmt.Sprintf("#%-3d", step)), s.Label.Render(app), st.Render(call))
}

// Event renders one manager event on a single line.
func (s Styles) Event(ev audiomgr.Event) string {
	ts := s.Dim.Render(ev.At().Format(time.TimeOnly + ".000"))
	kind := s.Title.Render(fmt.Sprintf("%-8s", ev.Kind))
	client := s.Label.Render(ev.Client)
	switch ev.Kind {
	case audiomgr.EventRequest:
		res := s.Gain
		if ev.Result != focus.Granted {
			res = s.Loss
		}
		return fmt.Sprintf("%s %s %s %s → %s", ts, kind, client, ev.Gain, res.Render(ev.Result.String()))
	case audiomgr.EventChange:
		st := s.Gain
		if ev.Change.IsLoss() {
			st = s.Loss
		}
		return fmt.Sprintf("%s %s %s %s", ts, kind, client, st.Render(ev.Change.String()))
	case audiomgr.EventAbandon:
		return fmt.Sprintf("%s %s %s", ts, kind, client)
	}
	return fmt.Sprintf("%s %s", ts, kind)
}
