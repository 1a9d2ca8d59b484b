package main

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"f3/flow"
	"f3/screen"
)

// display renders a run: report text through Write, live progress through
// Report, and the outcome of every file through FileDone.
type display interface {
	io.Writer
	flow.Reporter
	// Plan announces the range of files the run covers.
	Plan(title string, first, last int64)
	FileDone(n int64, result string)
	Close() error
}

// lineDisplay prints to a terminal. Progress is kept on a single line that
// is erased before any report text.
type lineDisplay struct {
	w        io.Writer
	progress bool
	dirty    bool
}

func newLineDisplay(w io.Writer, progress bool) *lineDisplay {
	return &lineDisplay{w: w, progress: progress}
}

func (d *lineDisplay) clearLine() {
	if d.dirty {
		fmt.Fprint(d.w, "\r\033[K")
		d.dirty = false
	}
}

func (d *lineDisplay) Write(p []byte) (int, error) {
	d.clearLine()
	return d.w.Write(p)
}

func (d *lineDisplay) Report(p flow.Progress) {
	if !d.progress {
		return
	}
	fmt.Fprintf(d.w, "\r\033[K%s", p)
	d.dirty = true
}

func (d *lineDisplay) Plan(string, int64, int64) {}

func (d *lineDisplay) FileDone(int64, string) {
	d.clearLine()
}

func (d *lineDisplay) Close() error {
	d.clearLine()
	return nil
}

var glyphs = map[string]rune{
	resultOK:      '█',
	resultDamaged: '▒',
	resultMissing: '·',
	resultFailed:  'X',
	resultNoSpace: '▄',
}

const pendingGlyph = '░'

// screenDisplay drives the fullscreen UI. Report text is kept so it can be
// replayed on the terminal once the screen is gone.
type screenDisplay struct {
	ui       *screen.UI
	out      io.Writer
	first    int64
	cells    []rune
	cursor   int
	lines    []string
	partial  []byte
	linger   time.Duration
	progress bool
}

func newScreenDisplay(ui *screen.UI, out io.Writer, progress bool) *screenDisplay {
	ui.SetLegend([]string{
		"Legend:  █ ok   ▒ data lost   · missing   X error   ▄ out of space   ░ pending | Q to quit",
	})
	return &screenDisplay{ui: ui, out: out, linger: 2 * time.Second, progress: progress}
}

func (d *screenDisplay) Plan(title string, first, last int64) {
	d.ui.SetTitle(title)
	d.first = first
	d.cells = d.cells[:0]
	for n := first; n <= last; n++ {
		d.cells = append(d.cells, pendingGlyph)
	}
	d.ui.SetMap(d.cells, 0)
	d.ui.LayoutAndDraw()
}

func (d *screenDisplay) Write(p []byte) (int, error) {
	d.partial = append(d.partial, p...)
	for {
		i := bytes.IndexByte(d.partial, '\n')
		if i < 0 {
			break
		}
		d.lines = append(d.lines, string(d.partial[:i]))
		d.partial = d.partial[i+1:]
	}
	d.ui.SetLog(d.visibleLines())
	d.ui.LayoutAndDraw()
	return len(p), nil
}

func (d *screenDisplay) visibleLines() []string {
	if len(d.partial) == 0 {
		return d.lines
	}
	return append(d.lines[:len(d.lines):len(d.lines)], string(d.partial))
}

func (d *screenDisplay) Report(p flow.Progress) {
	if !d.progress {
		return
	}
	lines := []string{fmt.Sprintf("Progress: %.2f%%", p.Percent)}
	v, u := flow.AdjustUnit(p.Speed)
	eta := "—"
	if p.HasETA {
		eta = flow.FormatDuration(p.ETA)
	}
	lines = append(lines, fmt.Sprintf("Rate: %.2f %s/s   ETA: %s", v, u, eta))
	d.ui.SetStatusLines(lines)
	d.ui.LayoutAndDraw()
}

func (d *screenDisplay) FileDone(n int64, result string) {
	i := int(n - d.first)
	if i < 0 {
		return
	}
	for i >= len(d.cells) {
		d.cells = append(d.cells, pendingGlyph)
	}
	g, ok := glyphs[result]
	if !ok {
		g = '?'
	}
	d.cells[i] = g
	d.cursor = i
	d.ui.SetMap(d.cells, d.cursor)
	d.ui.LayoutAndDraw()
}

// Close leaves the final screen up briefly, then restores the terminal and
// prints the report.
func (d *screenDisplay) Close() error {
	_ = d.ui.Wait(d.linger)
	d.ui.Close()
	for _, line := range d.visibleLines() {
		if _, err := fmt.Fprintln(d.out, line); err != nil {
			return err
		}
	}
	return nil
}
