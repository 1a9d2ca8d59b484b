package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f3/flow"
	"f3/screen"
)

func TestLineDisplay(t *testing.T) {
	var buf bytes.Buffer
	d := newLineDisplay(&buf, true)

	d.Report(flow.Progress{Percent: 12, Speed: 3 << 20})
	fmt.Fprintln(d, "Creating file 1.h2w ... OK!")
	d.Report(flow.Progress{Percent: 50, Speed: 3 << 20, ETA: 65, HasETA: true})
	require.NoError(t, d.Close())

	assert.Equal(t,
		"\r\033[K12.00% -- 3.00 MB/s"+
			"\r\033[KCreating file 1.h2w ... OK!\n"+
			"\r\033[K50.00% -- 3.00 MB/s -- remaining time: 01m05s"+
			"\r\033[K",
		buf.String())
}

func TestLineDisplayQuiet(t *testing.T) {
	var buf bytes.Buffer
	d := newLineDisplay(&buf, false)
	d.Report(flow.Progress{Percent: 12})
	fmt.Fprintln(d, "Data OK")
	require.NoError(t, d.Close())
	assert.Equal(t, "Data OK\n", buf.String())
}

func TestScreenDisplay(t *testing.T) {
	s := tcell.NewSimulationScreen("UTF-8")
	ui, err := screen.NewUIWithScreen(s)
	require.NoError(t, err)
	s.SetSize(60, 16)

	var out bytes.Buffer
	d := newScreenDisplay(ui, &out, true)
	d.linger = 0

	d.Plan("F3 READ  /media/usb", 3, 6)
	d.FileDone(3, resultOK)
	d.FileDone(4, resultMissing)
	d.FileDone(5, resultDamaged)
	d.Report(flow.Progress{Percent: 75, Speed: 1024, ETA: 5, HasETA: true})
	fmt.Fprint(d, "Validating file 3.h2w ... ok\nData OK: 1.00 MB")

	cells, w, _ := s.GetContents()
	row := func(y int) string {
		var b strings.Builder
		for x := 0; x < w; x++ {
			if r := cells[y*w+x].Runes; len(r) > 0 {
				b.WriteRune(r[0])
			}
		}
		return strings.TrimRight(b.String(), " ")
	}
	assert.Contains(t, row(0), "F3 READ  /media/usb")
	assert.Equal(t, "█·▒░", row(2))
	assert.Equal(t, "Progress: 75.00%", row(4))
	assert.Equal(t, "Rate: 1.00 KB/s   ETA: 05s", row(5))

	require.NoError(t, d.Close())
	assert.True(t, ui.IsStopped())
	assert.Equal(t, "Validating file 3.h2w ... ok\nData OK: 1.00 MB\n", out.String())
}

func TestScreenDisplayQuiet(t *testing.T) {
	s := tcell.NewSimulationScreen("UTF-8")
	ui, err := screen.NewUIWithScreen(s)
	require.NoError(t, err)
	s.SetSize(60, 16)

	var out bytes.Buffer
	d := newScreenDisplay(ui, &out, false)
	d.linger = 0

	d.Plan("F3 WRITE  /media/usb", 1, 2)
	d.Report(flow.Progress{Percent: 75, Speed: 1024, ETA: 5, HasETA: true})
	fmt.Fprintln(d, "Creating file 1.h2w ... OK!")

	cells, _, _ := s.GetContents()
	var all strings.Builder
	for _, c := range cells {
		if len(c.Runes) > 0 {
			all.WriteRune(c.Runes[0])
		}
	}
	assert.NotContains(t, all.String(), "Progress:")
	assert.NotContains(t, all.String(), "ETA:")
	assert.Contains(t, all.String(), "Creating file 1.h2w ... OK!")

	require.NoError(t, d.Close())
}
