// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	dsim "github.com/taskfleet/dsim-go"
)

const chartBarWidth = 50

// runReport is the machine-readable shape of a finished run, printed by
// run --json.
type runReport struct {
	RunID          string       `json:"run_id"`
	Seed           uint64       `json:"seed"`
	HorizonMinutes float64      `json:"horizon_minutes"`
	Scenario       string       `json:"scenario"`
	Properties     int          `json:"properties"`
	Workers        int          `json:"workers"`
	TasksRaised    int          `json:"tasks_raised"`
	Abandoned      int          `json:"abandoned"`
	ElapsedMs      float64      `json:"elapsed_ms"`
	Summary        dsim.Summary `json:"summary"`
}

func writeReportJSON(w io.Writer, res *dsim.Result, sc *dsim.Scenario, source string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(runReport{
		RunID:          res.RunID,
		Seed:           res.Seed,
		HorizonMinutes: res.Horizon,
		Scenario:       source,
		Properties:     len(sc.Properties),
		Workers:        len(sc.Workers),
		TasksRaised:    res.Tasks,
		Abandoned:      res.Abandoned,
		ElapsedMs:      float64(res.Elapsed) / float64(time.Millisecond),
		Summary:        res.Summary(),
	})
}

// renderReport prints the human-readable run report: header, outcome
// counts, and optionally the activity chart and the head of the log.
func renderReport(w io.Writer, res *dsim.Result, sc *dsim.Scenario, source string, opts *RunOptions) {
	p := message.NewPrinter(language.English)
	sum := res.Summary()

	p.Fprintf(w, "Run %s (seed %d)\n", res.RunID, res.Seed)
	p.Fprintf(w, "Scenario: %s (%d properties, %d workers, %d task types)\n",
		source, len(sc.Properties), len(sc.Workers), len(sc.TaskTypes))
	p.Fprintf(w, "Simulated %.0f virtual minutes in %s\n\n",
		res.Horizon, res.Elapsed.Round(time.Millisecond))

	p.Fprintf(w, "Tasks: %d raised, %d resolved, %d cut off at the horizon\n",
		res.Tasks, sum.Total, res.Abandoned)
	p.Fprintf(w, "  completed:     %d (%.1f%%)\n", sum.Completed, sum.CompletionRate*100)
	p.Fprintf(w, "  failed:        %d\n", sum.Failed)
	p.Fprintf(w, "  unaccepted:    %d\n", sum.Unaccepted)
	p.Fprintf(w, "  no candidates: %d\n", sum.NoCandidates)
	p.Fprintf(w, "Within SLA: %.1f%% of completions\n", sum.WithinSLARate*100)
	p.Fprintf(w, "Total payout: $%.2f\n", sum.TotalPayout)
	p.Fprintf(w, "Mean wait: %.1f minutes\n", sum.MeanWaitMinutes)

	if opts.Chart {
		renderActivityChart(w, res)
	}
	if opts.Timeline {
		renderTimeline(w, res.Events, opts.TimelineLimit)
	}
}

// renderActivityChart draws one bar per virtual hour counting the tasks
// that reached a terminal state in that hour. The completed share of each
// bar is drawn solid.
func renderActivityChart(w io.Writer, res *dsim.Result) {
	hours := int(math.Ceil(res.Horizon / 60))
	if hours <= 0 || len(res.Events) == 0 {
		return
	}
	totals := make([]int, hours)
	completed := make([]int, hours)
	for i := range res.Events {
		rec := &res.Events[i]
		h := int(rec.Time / 60)
		if h >= hours {
			h = hours - 1
		}
		totals[h]++
		if rec.Kind == dsim.KindCompleted {
			completed[h]++
		}
	}
	peak := slices.Max(totals)
	if peak == 0 {
		return
	}
	scale := float64(chartBarWidth) / float64(peak)

	fmt.Fprintf(w, "\nActivity by hour\n")
	fmt.Fprintln(w, strings.Repeat("=", chartBarWidth+12))
	for h, total := range totals {
		barLen := int(float64(total) * scale)
		if total > 0 && barLen == 0 {
			barLen = 1
		}
		done := int(float64(completed[h]) * scale)
		fmt.Fprintf(w, "h%3d |%s%s%s| %d\n",
			h,
			strings.Repeat("█", done),
			strings.Repeat("░", barLen-done),
			strings.Repeat(" ", chartBarWidth-barLen),
			total)
	}
	fmt.Fprintln(w, "\nLegend:")
	fmt.Fprintln(w, "  █ - completed")
	fmt.Fprintln(w, "  ░ - other outcomes")
	fmt.Fprintf(w, "  each cell is about %.1f events\n", 1/scale)
}

// renderTimeline lists the first events of the log in emission order.
func renderTimeline(w io.Writer, events []dsim.EventRecord, limit int) {
	fmt.Fprintf(w, "\nFirst events")
	if limit > 0 && limit < len(events) {
		fmt.Fprintf(w, " (showing %d of %d)", limit, len(events))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", chartBarWidth+12))

	n := len(events)
	if limit > 0 && limit < n {
		n = limit
	}
	for i := 0; i < n; i++ {
		rec := &events[i]

		icon := " "
		switch rec.Kind {
		case dsim.KindCompleted:
			icon = "+"
		case dsim.KindFailed:
			icon = "x"
		case dsim.KindUnaccepted:
			icon = "W"
		case dsim.KindNoCandidates:
			icon = "!"
		}

		if rec.Kind.Matched() {
			fmt.Fprintf(w, "[%7.1f] %s %-14s %-12s %-14s worker %-3d $%.2f\n",
				rec.Time, icon, rec.TaskID, rec.TaskType, rec.Property, rec.WorkerID, rec.Payout)
		} else {
			fmt.Fprintf(w, "[%7.1f] %s %-14s %-12s %-14s\n",
				rec.Time, icon, rec.TaskID, rec.TaskType, rec.Property)
		}
	}
	if n < len(events) {
		fmt.Fprintf(w, "... and %d more events\n", len(events)-n)
	}
}

// WriteEvents writes the log as JSON lines, one record per line, the
// format eventplot and most log tooling consume.
func WriteEvents(w io.Writer, events []dsim.EventRecord) error {
	enc := json.NewEncoder(w)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeEventsFile(path string, events []dsim.EventRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create events file: %w", err)
	}
	if err := WriteEvents(f, events); err != nil {
		f.Close()
		return fmt.Errorf("write events file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close events file: %w", err)
	}
	return nil
}
