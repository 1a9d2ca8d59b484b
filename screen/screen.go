// Package screen provides a fullscreen terminal view of a long running
// fill or verify pass: a title, a map with one glyph per file, status lines
// and the tail of the textual report.
package screen

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
)

// ErrInterrupted is returned when the user requests to stop the operation.
var ErrInterrupted = errors.New("interrupted")

// UI is the terminal screen. Setters only record state; LayoutAndDraw
// renders it. Only the key handling runs on its own goroutine.
type UI struct {
	s       tcell.Screen
	stop    chan struct{}
	once    sync.Once
	restore bool
	closed  bool

	title  string
	legend []string
	cells  []rune
	cursor int
	status []string
	log    []string
}

// NewUI initializes the terminal and starts handling keys.
func NewUI() (*UI, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	u, err := NewUIWithScreen(s)
	if err != nil {
		return nil, err
	}
	u.restore = true
	return u, nil
}

// NewUIWithScreen runs the UI on an existing, not yet initialized screen,
// e.g. a tcell simulation screen.
func NewUIWithScreen(s tcell.Screen) (*UI, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.DisableMouse()
	u := &UI{
		s:    s,
		stop: make(chan struct{}),
	}
	go u.eventLoop()
	return u, nil
}

// Close restores the terminal. It is safe to call more than once.
func (u *UI) Close() {
	if u.closed {
		return
	}
	u.closed = true
	u.RequestStop()
	u.s.Fini()
	if u.restore {
		fmt.Print("\033[?1049l\033[?25h")
	}
}

// RequestStop signals that the user wants the operation to stop.
// It can be called multiple times safely.
func (u *UI) RequestStop() {
	u.once.Do(func() {
		close(u.stop)
		_ = u.s.PostEvent(tcell.NewEventInterrupt(nil))
	})
}

// Done is closed once a stop was requested.
func (u *UI) Done() <-chan struct{} {
	return u.stop
}

// IsStopped reports whether a stop was requested.
func (u *UI) IsStopped() bool {
	select {
	case <-u.stop:
		return true
	default:
		return false
	}
}

// Size returns the current screen width and height.
func (u *UI) Size() (width, height int) {
	if u.closed {
		return 0, 0
	}
	return u.s.Size()
}

// Wait blocks for d, or until a stop is requested.
func (u *UI) Wait(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-u.stop:
		return ErrInterrupted
	case <-timer.C:
		return nil
	}
}

// SetTitle sets the text centred in the top bar.
func (u *UI) SetTitle(t string) {
	u.title = t
}

// SetLegend sets the lines drawn under the title bar.
func (u *UI) SetLegend(lines []string) {
	u.legend = append([]string(nil), lines...)
}

// SetStatusLines sets the lines of the Status section. With none, the
// section is not drawn.
func (u *UI) SetStatusLines(lines []string) {
	u.status = append([]string(nil), lines...)
}

// SetMap sets one glyph per item. The map scrolls to keep cursor visible.
func (u *UI) SetMap(cells []rune, cursor int) {
	u.cells = append(u.cells[:0], cells...)
	u.cursor = cursor
}

// SetLog sets the report lines. Only the tail that fits is shown.
func (u *UI) SetLog(lines []string) {
	u.log = append([]string(nil), lines...)
}

func putStr(s tcell.Screen, x, y int, str string) {
	w, _ := s.Size()
	for i, r := range []rune(str) {
		if x+i >= w {
			break
		}
		s.SetContent(x+i, y, r, nil, tcell.StyleDefault)
	}
}

func rule(s tcell.Screen, y int, label string) {
	w, _ := s.Size()
	putStr(s, 0, y, strings.Repeat("─", w))
	putStr(s, 2, y, " "+label+" ")
}

// LayoutAndDraw redraws the whole screen.
func (u *UI) LayoutAndDraw() {
	if u.closed {
		return
	}
	u.s.Clear()
	w, h := u.s.Size()
	y := 0

	if u.title != "" {
		putStr(u.s, 0, y, strings.Repeat("═", w))
		putStr(u.s, max((w-len([]rune(u.title)))/2, 0), y, u.title)
		y++
	}
	for _, line := range u.legend {
		if y >= h {
			break
		}
		putStr(u.s, 0, y, line)
		y++
	}

	// the map may take half of what is left once status has its rows
	reserved := 1 + len(u.status) + 2
	if len(u.cells) > 0 && w > 0 {
		rows := max((h-y-reserved)/2, 1)
		for _, line := range Grid(u.cells, u.cursor, w, rows) {
			if y >= h {
				break
			}
			putStr(u.s, 0, y, line)
			y++
		}
	}

	if len(u.status) > 0 && y < h {
		rule(u.s, y, "Status")
		y++
		for _, line := range u.status {
			if y >= h {
				break
			}
			putStr(u.s, 0, y, line)
			y++
		}
	}

	if len(u.log) > 0 && y+1 < h {
		rule(u.s, y, "Report")
		y++
		tail := u.log[max(len(u.log)-(h-y), 0):]
		for _, line := range tail {
			putStr(u.s, 0, y, line)
			y++
		}
	}

	u.s.Show()
}

// Grid lays cells out in rows of width glyphs. When there are more cells
// than fit in rows, the window scrolls so that cursor stays on screen.
func Grid(cells []rune, cursor, width, rows int) []string {
	if width <= 0 || rows <= 0 || len(cells) == 0 {
		return nil
	}
	total := width * rows
	start := 0
	if len(cells) > total {
		if cursor >= total-1 {
			start = cursor - (total - 1)
		}
		start = min(start, len(cells)-total)
		start = max(start, 0)
	}
	var lines []string
	for row := 0; row < rows; row++ {
		from := start + row*width
		if from >= len(cells) {
			break
		}
		to := min(from+width, len(cells))
		lines = append(lines, string(cells[from:to]))
	}
	return lines
}

func (u *UI) eventLoop() {
	for {
		switch ev := u.s.PollEvent().(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyCtrlC, ev.Key() == tcell.KeyEscape:
				u.RequestStop()
			case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
				u.RequestStop()
			}
		case *tcell.EventResize:
			u.s.Sync()
		case *tcell.EventInterrupt, nil:
			return
		}
	}
}
