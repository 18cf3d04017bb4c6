package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"Song-Rec-Go/pkg/music"
	"Song-Rec-Go/pkg/session"
)

// Styles used for terminal output.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Alert lipgloss.Style
	Dim   lipgloss.Style
}

var styles = Styles{
	Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f")),
	Label: lipgloss.NewStyle().Bold(true),
	Alert: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f5f")),
	Dim:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681")),
}

// jsonResult is the --json output.
type jsonResult struct {
	Track           *music.IdentifiedTrack   `json:"track,omitempty"`
	Recommendations []music.RecommendedTrack `json:"recommendations"`
	Alert           *session.Alert           `json:"alert,omitempty"`
}

// outputResult prints res, or the alert for err, and returns err so the
// process exits non-zero on failure.
func outputResult(w io.Writer, res music.Result, err error) error {
	if outputJSON {
		out := jsonResult{Recommendations: res.Recommendations}
		if out.Recommendations == nil {
			out.Recommendations = []music.RecommendedTrack{}
		}
		if res.Track.Valid() {
			out.Track = &res.Track
		}
		if err != nil {
			alert := session.AlertFor(err)
			out.Alert = &alert
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(out); encErr != nil {
			return encErr
		}
		return err
	}
	fmt.Fprint(w, renderResult(res, err))
	return err
}

// renderResult formats a run for the terminal.
func renderResult(res music.Result, err error) string {
	var b strings.Builder
	if res.Track.Valid() {
		fmt.Fprintf(&b, "%s %s\n", styles.Label.Render("Now playing:"), styles.Title.Render(res.Track.String()))
	}
	if err != nil {
		alert := session.AlertFor(err)
		fmt.Fprintf(&b, "%s\n%s\n", styles.Alert.Render(alert.Title), styles.Dim.Render(alert.Message))
		return b.String()
	}
	if len(res.Recommendations) == 0 {
		b.WriteString(styles.Dim.Render("No similar tracks found.") + "\n")
		return b.String()
	}
	b.WriteString(styles.Label.Render("Similar tracks:") + "\n")
	for i, r := range res.Recommendations {
		line := fmt.Sprintf("%2d. %s", i+1, r.Name)
		if r.Artist != "" {
			line += " " + styles.Dim.Render("by "+r.Artist)
		}
		b.WriteString(line + "\n")
		if r.URL != "" {
			b.WriteString("    " + styles.Dim.Render(r.URL) + "\n")
		}
	}
	return b.String()
}
