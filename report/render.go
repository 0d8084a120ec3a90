package report

import (
	"fmt"
	"strings"
)

// Markdown renders the human-readable console report.
func Markdown(r *RunReport) string {
	var b strings.Builder

	b.WriteString("# Document conversion report\n\n")
	fmt.Fprintf(&b, "- **Input directory:** `%s`\n", r.InputDir)
	fmt.Fprintf(&b, "- **Total documents:** %d\n", r.TotalDocuments)
	fmt.Fprintf(&b, "- **Successful:** %d\n", r.Summary.TotalSuccessful)
	fmt.Fprintf(&b, "- **Failed:** %d\n", r.Summary.TotalFailed)
	fmt.Fprintf(&b, "- **Success rate:** %.1f%%\n", r.Summary.SuccessRate)
	if r.ConverterVersion != nil {
		fmt.Fprintf(&b, "- **Converter version:** %s\n", *r.ConverterVersion)
	}

	b.WriteString("\n## Categories\n\n")
	if len(r.CategorySummaries) == 0 {
		b.WriteString("No documents found.\n")
	} else {
		b.WriteString("| Category | Successful | Total | Rate |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for _, cr := range r.CategorySummaries {
			fmt.Fprintf(&b, "| %s | %d | %d | %.1f%% |\n", cr.Category, cr.Successful, cr.Total, cr.SuccessRate)
		}
		for _, cr := range r.CategorySummaries {
			if len(cr.FailedFiles) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n**Failed in %s:**\n\n", cr.Category)
			for _, name := range cr.FailedFiles {
				fmt.Fprintf(&b, "- %s\n", name)
			}
		}
	}

	if len(r.CLIResults) > 0 {
		cli := r.CLISummary()
		b.WriteString("\n## Command-line converter\n\n")
		fmt.Fprintf(&b, "- **Successful:** %d/%d\n", cli.Successful, cli.Attempted)
		fmt.Fprintf(&b, "- **Success rate:** %.1f%%\n", cli.SuccessRate)
		if cli.TimedOut > 0 {
			fmt.Fprintf(&b, "- **Timed out:** %d\n", cli.TimedOut)
		}
	}

	rd := r.Readiness
	b.WriteString("\n## Readiness\n\n")
	for _, c := range rd.Critical {
		switch {
		case !c.Present:
			fmt.Fprintf(&b, "- %s: not tested\n", c.Category)
		case c.Ready:
			fmt.Fprintf(&b, "- %s: working\n", c.Category)
		default:
			fmt.Fprintf(&b, "- %s: failing\n", c.Category)
		}
	}
	fmt.Fprintf(&b, "- OCR: %s\n", rd.OCR.Message)
	fmt.Fprintf(&b, "- Engineering drawings: %s\n", rd.EngineeringDrawing.Message)
	fmt.Fprintf(&b, "\n**Recommendation:** %s\n\n", rd.Recommendation)
	for i, step := range rd.NextSteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	return b.String()
}
