package output

import (
	"fmt"
	"io"

	"docprobe/report"

	"github.com/charmbracelet/glamour/v2"
	"github.com/charmbracelet/lipgloss/v2"
)

var (
	readyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("42")).
			Padding(0, 1)
	notReadyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("214")).
			Padding(0, 1)
)

// Banner is the one-line readiness verdict.
func Banner(r *report.RunReport) string {
	text := fmt.Sprintf("%s  %d/%d converted (%.1f%%)",
		r.Readiness.Recommendation, r.Summary.TotalSuccessful, r.TotalDocuments, r.Summary.SuccessRate)
	if r.Readiness.Ready {
		return readyStyle.Render(text)
	}
	return notReadyStyle.Render(text)
}

// RenderConsole writes the human-readable report. Styled output goes
// through glamour; otherwise the Markdown source is written as is.
func RenderConsole(w io.Writer, r *report.RunReport, styled bool, width int) error {
	md := report.Markdown(r)
	if !styled {
		_, err := io.WriteString(w, md)
		return err
	}

	if width <= 0 {
		width = 100
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if _, err := fmt.Fprintln(w, Banner(r)); err != nil {
		return err
	}
	_, err = io.WriteString(w, rendered)
	return err
}
