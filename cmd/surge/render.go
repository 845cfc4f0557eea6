package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"

	"github.com/ShayCichocki/surge/internal/orchestrator"
	"github.com/ShayCichocki/surge/pkg/models"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

// colorStatus colors a task or run status for terminal output.
func colorStatus(s string) string {
	switch s {
	case string(models.TaskStatusSucceeded), string(models.RunStatusCompleted):
		return color.GreenString(s)
	case string(models.TaskStatusFailed), string(models.RunStatusAborted):
		return color.RedString(s)
	case string(models.TaskStatusSkipped):
		return color.YellowString(s)
	case string(models.TaskStatusRunning):
		return color.CyanString(s)
	default:
		return s
	}
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderReport prints a final report as a summary line, a per-wave table
// and the failure list.
func renderReport(w io.Writer, r *models.FinalReport) {
	fmt.Fprintln(w, titleStyle.Render("Run "+r.RunID)+" "+colorStatus(string(r.Status)))
	if r.Reason != "" {
		fmt.Fprintf(w, "  reason: %s (wave %d)\n", r.Reason, r.StoppedAtWave)
	}

	speedup := ""
	if r.TotalElapsed > 0 && r.SequentialBaseline > 0 {
		speedup = fmt.Sprintf(" (%.1fx vs sequential estimate %s)",
			r.SequentialBaseline.Seconds()/r.TotalElapsed.Seconds(), formatDuration(r.SequentialBaseline))
	}
	fmt.Fprintf(w, "  elapsed: %s%s\n", formatDuration(r.TotalElapsed), speedup)

	s := r.FailureSummary
	fmt.Fprintf(w, "  tasks: %s succeeded, %s failed, %s skipped\n",
		color.GreenString(strconv.Itoa(s.Succeeded)),
		color.RedString(strconv.Itoa(s.Failed)),
		color.YellowString(strconv.Itoa(s.Skipped)))

	if len(r.Waves) > 0 {
		t := newTable("Wave", "Tasks", "Concurrency", "Mode", "Class", "Succeeded", "Failed", "Skipped")
		for _, wave := range r.Waves {
			var ok, failed, skipped int
			for _, res := range wave.Results {
				switch res.Status {
				case models.TaskStatusSucceeded:
					ok++
				case models.TaskStatusFailed:
					failed++
				case models.TaskStatusSkipped:
					skipped++
				}
			}
			concurrency, mode, class := "-", "restored", "-"
			if d := wave.Decision; d != nil {
				concurrency = strconv.Itoa(d.Concurrency)
				mode = string(d.Mode)
				class = string(d.ResourceClass)
			}
			t.Row(strconv.Itoa(wave.Index), strconv.Itoa(len(wave.TaskIDs)),
				concurrency, mode, class,
				strconv.Itoa(ok), strconv.Itoa(failed), strconv.Itoa(skipped))
		}
		fmt.Fprintln(w, t.String())
	}

	if len(s.Failures) > 0 {
		fmt.Fprintln(w, titleStyle.Render("Failures"))
		for _, f := range s.Failures {
			fmt.Fprintf(w, "  %s (wave %d, %d attempts): %s\n",
				color.RedString(f.TaskID), f.WaveIndex, f.Attempts, firstLine(f.Error))
		}
	}

	var warnings []string
	for _, wave := range r.Waves {
		if wave.Decision == nil {
			continue
		}
		for _, warn := range wave.Decision.Rationale.Warnings {
			warnings = append(warnings, fmt.Sprintf("wave %d: %s", wave.Index, warn))
		}
	}
	if len(warnings) > 0 {
		fmt.Fprintln(w, titleStyle.Render("Warnings"))
		for _, warn := range warnings {
			fmt.Fprintf(w, "  %s\n", color.YellowString(warn))
		}
	}
}

// renderPlan prints the waves and the concurrency each would get.
func renderPlan(w io.Writer, waves []models.Wave, decisions []models.ScalingDecision, verbose bool) {
	t := newTable("Wave", "Tasks", "Concurrency", "Mode", "Class", "Est. saved", "ROI")
	var tasks int
	for i, wave := range waves {
		d := decisions[i]
		tasks += len(wave.TaskIDs)
		t.Row(strconv.Itoa(wave.Index), strconv.Itoa(len(wave.TaskIDs)),
			strconv.Itoa(d.Concurrency), string(d.Mode), string(d.ResourceClass),
			formatDuration(time.Duration(d.Rationale.TimeSavedSeconds*float64(time.Second))),
			fmt.Sprintf("%.1f", d.Rationale.ROI))
	}
	fmt.Fprintf(w, "%s %d tasks in %d waves, max parallel depth %d\n",
		titleStyle.Render("Plan:"), tasks, len(waves), orchestrator.MaxParallelDepth(waves))
	fmt.Fprintln(w, t.String())

	for i, d := range decisions {
		for _, warn := range d.Rationale.Warnings {
			fmt.Fprintf(w, "  %s\n", color.YellowString("wave %d: %s", waves[i].Index, warn))
		}
		if verbose {
			fmt.Fprintf(w, "  wave %d: %s\n", waves[i].Index, strings.Join(waves[i].TaskIDs, ", "))
			for _, step := range d.Rationale.Steps {
				fmt.Fprintln(w, dimStyle.Render("    "+step))
			}
		}
	}
}

// formatEvent renders one progress line, or "" for events not worth a line.
func formatEvent(e orchestrator.Event) string {
	ts := e.Timestamp.Format("15:04:05")
	switch e.Type {
	case orchestrator.EventWaveStarted:
		return fmt.Sprintf("%s wave %d: %s", ts, e.WaveIndex, e.Message)
	case orchestrator.EventScalingDecided:
		return fmt.Sprintf("%s wave %d: concurrency %d", ts, e.WaveIndex, e.Concurrency)
	case orchestrator.EventTaskSucceeded:
		return fmt.Sprintf("%s %s %s", ts, color.GreenString("ok"), e.TaskID)
	case orchestrator.EventTaskFailed:
		msg := e.Message
		if e.Error != nil {
			msg = e.Error.Error()
		}
		return fmt.Sprintf("%s %s %s: %s", ts, color.RedString("fail"), e.TaskID, firstLine(msg))
	case orchestrator.EventTaskRetrying:
		return fmt.Sprintf("%s %s %s (after attempt %d)", ts, color.YellowString("retry"), e.TaskID, e.Attempt)
	case orchestrator.EventTaskSkipped:
		return fmt.Sprintf("%s %s %s: %s", ts, color.YellowString("skip"), e.TaskID, e.Message)
	case orchestrator.EventWaveThrottled:
		return fmt.Sprintf("%s wave %d: %s to %d", ts, e.WaveIndex, color.YellowString("throttled"), e.Concurrency)
	case orchestrator.EventWaveBarrier:
		return fmt.Sprintf("%s wave %d: barrier %s", ts, e.WaveIndex, e.Message)
	default:
		return ""
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "-" + formatDuration(-d)
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s > 0 {
			return fmt.Sprintf("%dm%ds", m, s)
		}
		return fmt.Sprintf("%dm", m)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if m > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dh", h)
}
