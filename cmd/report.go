package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/review-impact/impact-sim/sim/impact"
)

var (
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	accent  = lipgloss.Color("#FF5F5F")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	okStyle      = lipgloss.NewStyle().Foreground(success).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(accent).Bold(true)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	numericStyle = cellStyle.Align(lipgloss.Right)
)

// writeReport renders r in the given format ("table" or "json").
func writeReport(w io.Writer, r impact.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "table", "":
		_, err := io.WriteString(w, renderReport(r))
		return err
	default:
		return fmt.Errorf("unknown output format %q (want table or json)", format)
	}
}

// renderReport formats a report for the terminal.
func renderReport(r impact.Report) string {
	var b strings.Builder

	title := "Impact report"
	if r.Request.IssueID != "" {
		title += " for " + r.Request.IssueID
	}
	b.WriteString(titleStyle.Render(title) + "\n")

	status := okStyle.Render(string(r.Status))
	if !r.OK() {
		status = failStyle.Render(string(r.Status))
	}
	fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render("Status:"), status)
	if r.Error != "" {
		fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render("Error: "), r.Error)
		return b.String()
	}
	fmt.Fprintf(&b, "%s %s, +%d/-%d rules, %d events simulated, %d videos skipped\n",
		mutedStyle.Render("Change:"), r.Change.Kind, r.Change.RulesAdded, r.Change.RulesRemoved,
		r.SimulatedEvents, r.SkippedVideos)
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "%s %s\n", failStyle.Render("!"), w)
	}

	if len(r.Queues) == 0 {
		b.WriteString(mutedStyle.Render("No queues in the baseline.") + "\n")
		return b.String()
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers("QUEUE", "NAME", "DESIRED", "PREVIOUS", "PROJECTED", "P90 AFTER", "DELTA", "VOL/H BEFORE", "VOL/H AFTER").
		StyleFunc(func(row, col int) lipgloss.Style {
			if col >= 2 {
				return numericStyle
			}
			return cellStyle
		})
	for _, q := range r.Queues {
		t.Row(
			q.QueueID,
			q.QueueName,
			fmt.Sprintf("%d", q.DesiredSLAMinutes),
			formatMinutes(q.PreviousSLAMinutes, q.PreviousVerdicts),
			formatMinutes(q.ProjectedSLAMinutes, q.ProjectedVerdicts),
			formatMinutes(q.ProjectedP90Minutes, q.ProjectedVerdicts),
			formatDelta(q),
			fmt.Sprintf("%.2f", q.PreviousVolumePerHour),
			fmt.Sprintf("%.2f", q.ProjectedVolumePerHour),
		)
	}
	b.WriteString(t.Render() + "\n")

	if r.Trace != nil {
		b.WriteString(renderTrace(r))
	}
	return b.String()
}

func formatMinutes(m float64, verdicts int) string {
	if verdicts == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", m)
}

func formatDelta(q impact.QueueImpact) string {
	if q.PreviousVerdicts == 0 && q.ProjectedVerdicts == 0 {
		return "-"
	}
	d := fmt.Sprintf("%+.1f", q.DeltaMinutes())
	if !q.MeetsDesired() {
		d += " !"
	}
	return d
}

func renderTrace(r impact.Report) string {
	s := r.Trace
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d decisions: %d verdicts, %d routings, %d reschedules (max %d per lifecycle), %d dropped\n",
		mutedStyle.Render("Trace:"), s.TotalDecisions, s.Verdicts, s.Routings, s.Reschedules, s.MaxRetries, s.Dropped)
	sources := make([]string, 0, len(s.RoutesBySource))
	for q := range s.RoutesBySource {
		sources = append(sources, q)
	}
	sort.Strings(sources)
	for _, q := range sources {
		fmt.Fprintf(&b, "  routed out of %s: %d\n", q, s.RoutesBySource[q])
	}
	return b.String()
}
