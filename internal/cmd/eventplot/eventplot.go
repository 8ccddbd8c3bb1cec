// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

// Command eventplot renders charts from an exported event log.
//
// It consumes the JSON-lines format written by "dsim run --events" and
// writes charts/outcomes.png (terminal outcomes per virtual hour) and
// charts/payout.png (cumulative payout over virtual time). Log files are
// given as arguments; with none, stdin is read.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// record is the subset of the event log schema the charts consume.
type record struct {
	Time   float64 `json:"time"`
	Event  string  `json:"event"`
	Payout float64 `json:"payout"`
}

var outcomeOrder = []string{
	"task_completed",
	"task_failed",
	"task_unaccepted",
	"task_failed_no_candidates",
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("eventplot: ")

	records, err := readRecords(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if len(records) == 0 {
		log.Fatal("no events to plot")
	}

	if err := plotOutcomes(records); err != nil {
		log.Fatalf("outcomes chart: %v", err)
	}
	if err := plotPayout(records); err != nil {
		log.Fatalf("payout chart: %v", err)
	}
}

func readRecords(paths []string) ([]record, error) {
	if len(paths) == 0 {
		return parseRecords(os.Stdin, "stdin")
	}
	var records []record
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		rs, err := parseRecords(f, path)
		f.Close()
		if err != nil {
			return nil, err
		}
		records = append(records, rs...)
	}
	return records, nil
}

func parseRecords(r io.Reader, name string) ([]record, error) {
	var records []record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %v", name, line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}
	return records, nil
}

func setupPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()

	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	p.Title.TextStyle.Color = color.Gray{128}
	p.X.Color = color.Gray{128}
	p.Y.Color = color.Gray{128}
	p.X.Label.TextStyle.Color = color.Gray{128}
	p.Y.Label.TextStyle.Color = color.Gray{128}
	p.X.Tick.Color = color.Gray{128}
	p.Y.Tick.Color = color.Gray{128}
	p.X.Tick.Label.Color = color.Gray{128}
	p.Y.Tick.Label.Color = color.Gray{128}
	p.Legend.TextStyle.Color = color.Gray{128}

	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.Padding = 1 * vg.Millimeter
	p.BackgroundColor = color.Transparent

	return p
}

func savePlot(p *plot.Plot, basename string) error {
	if err := os.MkdirAll("charts", 0755); err != nil {
		return err
	}
	return p.Save(9*vg.Inch, 6*vg.Inch, "charts/"+basename+".png")
}

func plotOutcomes(records []record) error {
	hours := 0
	for i := range records {
		if h := int(records[i].Time / 60); h >= hours {
			hours = h + 1
		}
	}
	counts := make(map[string]plotter.Values, len(outcomeOrder))
	for _, kind := range outcomeOrder {
		counts[kind] = make(plotter.Values, hours)
	}
	for i := range records {
		rec := &records[i]
		vs, ok := counts[rec.Event]
		if !ok {
			continue
		}
		vs[int(rec.Time/60)]++
	}

	p := setupPlot("Outcomes by hour", "virtual hour", "tasks")

	palette, err := brewer.GetPalette(brewer.TypeQualitative, "Paired", len(outcomeOrder))
	if err != nil {
		return err
	}
	colors := palette.Colors()

	// Size bars to the hour count so wide horizons stay readable.
	barSpacing := vg.Points(1)
	width := 540.0 / float64(hours*len(outcomeOrder))
	if width > 24 {
		width = 24
	}
	barWidth := vg.Points(width)

	groupWidth := (barWidth + barSpacing) * vg.Length(len(outcomeOrder)-1)
	for i, kind := range outcomeOrder {
		bc, err := plotter.NewBarChart(counts[kind], barWidth)
		if err != nil {
			return err
		}
		bc.Offset = (barWidth+barSpacing)*vg.Length(i) - groupWidth/2
		bc.Color = colors[i]
		bc.LineStyle.Width = 0
		p.Add(bc)
		p.Legend.Add(kind, bc)
	}

	p.X.Tick.Marker = plot.ConstantTicks(hourTicks(hours))

	return savePlot(p, "outcomes")
}

func hourTicks(hours int) []plot.Tick {
	step := 1
	for hours/step > 12 {
		step *= 2
	}
	var ticks []plot.Tick
	for h := 0; h < hours; h += step {
		ticks = append(ticks, plot.Tick{Value: float64(h), Label: fmt.Sprintf("h%d", h)})
	}
	return ticks
}

func plotPayout(records []record) error {
	pts := make(plotter.XYs, 0, len(records)+1)
	pts = append(pts, plotter.XY{})
	total := 0.0
	for i := range records {
		rec := &records[i]
		if rec.Payout == 0 {
			continue
		}
		total += rec.Payout
		pts = append(pts, plotter.XY{X: rec.Time, Y: total})
	}

	p := setupPlot(fmt.Sprintf("Cumulative payout ($%.2f total)", total), "virtual minute", "dollars")

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("payout", line)

	return savePlot(p, "payout")
}
