// Package flow paces chunked I/O against a storage device.
//
// A Flow decides how many blocks the caller processes between two
// measurements. It calibrates that number so a measurement window lasts
// about one delay (1s by default), sleeps when a rate cap is exceeded, and
// reports progress and ETA at most once per report interval.
package flow

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBlockSize = 512
	defaultDelay     = time.Second
	reportInterval   = time.Second
)

type state int

const (
	stateInc state = iota
	stateDec
	stateSearch
	stateSteady
)

func (s state) String() string {
	switch s {
	case stateInc:
		return "inc"
	case stateDec:
		return "dec"
	case stateSearch:
		return "search"
	case stateSteady:
		return "steady"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Syncer is the durability barrier issued at the end of every window.
type Syncer interface {
	Sync() error
}

// Clock abstracts wall time and sleeping.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Reporter renders progress.
type Reporter interface {
	Report(p Progress)
}

// Progress is a snapshot of a run.
type Progress struct {
	Percent float64
	// Speed is the run average once enough was measured, the last window's
	// speed before that. Bytes per second.
	Speed float64
	// ETA in seconds, valid when HasETA.
	ETA    float64
	HasETA bool
}

func (p Progress) String() string {
	v, u := AdjustUnit(p.Speed)
	s := fmt.Sprintf("%.2f%% -- %.2f %s/s", p.Percent, v, u)
	if p.HasETA {
		s += " -- remaining time: " + FormatDuration(p.ETA)
	}
	return s
}

// Option configures a Flow.
type Option func(*Flow)

// WithReporter enables progress reports.
func WithReporter(r Reporter) Option {
	return func(f *Flow) { f.reporter = r }
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(f *Flow) { f.clock = c }
}

// WithLogger sets the logger used for calibration traces.
func WithLogger(l *zap.Logger) Option {
	return func(f *Flow) { f.log = l }
}

// WithBlockSize sets the size of one block in bytes.
func WithBlockSize(n int) Option {
	return func(f *Flow) { f.blockSize = int64(n) }
}

// WithDelay sets the target duration of a measurement window.
func WithDelay(d time.Duration) Option {
	return func(f *Flow) { f.delayMs = uint64(d.Milliseconds()) }
}

// Flow is the adaptive flow controller. It is not safe for concurrent use.
type Flow struct {
	totalSize      uint64
	totalProcessed uint64
	blockSize      int64
	delayMs        uint64

	// blocksPerDelay is the calibrated chunk, step the exponential
	// increment applied to it.
	blocksPerDelay int64
	step           int64
	maxRate        float64

	// run-wide totals of completed windows
	measuredBlocks uint64
	measuredTimeMs uint64

	state           state
	bpdLow, bpdHigh int64
	processedBlocks int64
	accDelay        time.Duration
	measureStart    time.Time
	lastReport      time.Time
	lastInstSpeed   float64

	reporter Reporter
	clock    Clock
	log      *zap.Logger
}

// New returns a Flow for a run of totalSize bytes. maxRateKiB caps the
// throughput in KiB/s; zero or negative means unlimited.
func New(totalSize uint64, maxRateKiB int64, opts ...Option) *Flow {
	f := &Flow{
		totalSize:      totalSize,
		blockSize:      defaultBlockSize,
		delayMs:        uint64(defaultDelay.Milliseconds()),
		blocksPerDelay: 1,
		step:           1,
		maxRate:        math.MaxFloat64,
		state:          stateInc,
		clock:          realClock{},
		log:            zap.NewNop(),
	}
	if maxRateKiB > 0 {
		f.maxRate = float64(maxRateKiB * 1024)
	}
	for _, o := range opts {
		o(f)
	}
	if f.blockSize <= 0 || f.delayMs == 0 {
		panic("flow: block size and delay must be positive")
	}
	now := f.clock.Now()
	f.measureStart = now
	f.lastReport = now
	return f
}

// BlocksPerDelay is the current calibrated chunk in blocks.
func (f *Flow) BlocksPerDelay() int64 { return f.blocksPerDelay }

// TotalProcessed is the number of bytes handed to Measure so far.
func (f *Flow) TotalProcessed() uint64 { return f.totalProcessed }

// RateLimited reports whether a rate cap is active.
func (f *Flow) RateLimited() bool { return f.maxRate != math.MaxFloat64 }

// HasEnoughMeasurements reports whether AvgSpeed is meaningful.
func (f *Flow) HasEnoughMeasurements() bool {
	return f.measuredTimeMs > f.delayMs
}

// AvgSpeed is the run average in bytes per second. Only call it when
// HasEnoughMeasurements is true.
func (f *Flow) AvgSpeed() float64 {
	return float64(f.measuredBlocks * uint64(f.blockSize) * 1000 / f.measuredTimeMs)
}

// AvgSpeedGivenTime is a coarse speed for runs too short to measure.
func (f *Flow) AvgSpeedGivenTime(elapsed time.Duration) float64 {
	ms := elapsed.Milliseconds()
	if ms <= 0 {
		return 0
	}
	return float64(f.totalProcessed * 1000 / uint64(ms))
}

// RemainingChunkSize is the number of bytes the caller must process before
// the next call to Measure.
func (f *Flow) RemainingChunkSize() uint64 {
	if f.blocksPerDelay <= f.processedBlocks {
		panic(fmt.Sprintf("flow: %d blocks processed in a window of %d", f.processedBlocks, f.blocksPerDelay))
	}
	return uint64(f.blocksPerDelay-f.processedBlocks) * uint64(f.blockSize)
}

// StartMeasurement opens a window, typically at the start of a file.
func (f *Flow) StartMeasurement() {
	if f.HasEnoughMeasurements() {
		f.maybeReport()
	}
	f.measureStart = f.clock.Now()
}

// Measure accounts for processed bytes. Once a full window was processed it
// syncs s, sleeps if the rate cap was exceeded, and recalibrates.
func (f *Flow) Measure(s Syncer, processed uint64) error {
	if processed%uint64(f.blockSize) != 0 {
		panic(fmt.Sprintf("flow: %d bytes is not a multiple of block size %d", processed, f.blockSize))
	}
	f.processedBlocks += int64(processed) / f.blockSize
	f.totalProcessed += processed

	if f.processedBlocks < f.blocksPerDelay {
		return nil
	}
	if f.processedBlocks > f.blocksPerDelay {
		panic(fmt.Sprintf("flow: %d blocks processed in a window of %d", f.processedBlocks, f.blocksPerDelay))
	}

	if err := s.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	delay := uint64((f.clock.Now().Sub(f.measureStart) + f.accDelay).Milliseconds())
	if delay == 0 {
		delay = 1
	}

	bytesK := float64(f.blocksPerDelay*f.blockSize) * 1000
	inst := bytesK / float64(delay)

	if delay < f.delayMs && inst > f.maxRate {
		wait := math.Round((bytesK - float64(delay)*f.maxRate) / f.maxRate)
		if wait < 0 {
			wait = float64(f.delayMs - delay)
		} else if float64(delay)+wait < float64(f.delayMs) {
			// Keep pushing blocksPerDelay up, otherwise windows stay too
			// short to report progress.
			wait++
		}
		if wait > 0 && f.RateLimited() {
			f.clock.Sleep(time.Duration(wait) * time.Millisecond)
			delay += uint64(wait)
			inst = bytesK / float64(delay)
		}
	}

	f.measuredBlocks += uint64(f.processedBlocks)
	f.measuredTimeMs += delay
	f.lastInstSpeed = inst

	f.adjustState(inst, delay)
	f.maybeReport()

	f.processedBlocks = 0
	f.accDelay = 0
	f.measureStart = f.clock.Now()
	return nil
}

// EndMeasurement closes a file. A partial window is synced and its elapsed
// time carried into the next window.
func (f *Flow) EndMeasurement(s Syncer) error {
	if f.processedBlocks <= 0 {
		return nil
	}
	if err := s.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	f.accDelay += f.clock.Now().Sub(f.measureStart)
	return nil
}

// Progress returns a snapshot of the run.
func (f *Flow) Progress() Progress {
	if f.totalSize < f.totalProcessed {
		f.totalSize = f.totalProcessed
	}
	p := Progress{Speed: f.lastInstSpeed}
	if math.IsInf(p.Speed, 0) || math.IsNaN(p.Speed) {
		p.Speed = 0
	}
	if f.totalSize > 0 {
		p.Percent = float64(f.totalProcessed) * 100 / float64(f.totalSize)
	}
	if f.HasEnoughMeasurements() {
		p.Speed = f.AvgSpeed()
		if p.Speed > 0 {
			p.ETA = float64(f.totalSize-f.totalProcessed) / p.Speed
			p.HasETA = true
		}
	}
	return p
}

func (f *Flow) maybeReport() {
	if f.reporter == nil {
		return
	}
	now := f.clock.Now()
	if now.Sub(f.lastReport) < reportInterval {
		return
	}
	f.lastReport = now
	f.reporter.Report(f.Progress())
}

func (f *Flow) isRateAbove(delay uint64, inst float64) bool {
	return delay > f.delayMs || inst > f.maxRate
}

func (f *Flow) isRateBelow(delay uint64, inst float64) bool {
	return delay <= f.delayMs && inst < f.maxRate
}

func (f *Flow) incStep() {
	f.blocksPerDelay += f.step
	f.step *= 2
}

func (f *Flow) decStep() {
	if f.blocksPerDelay-f.step > 0 {
		f.blocksPerDelay -= f.step
		f.step *= 2
		return
	}
	f.bpdHigh = max(f.blocksPerDelay, 1)
	f.bpdLow = max(f.blocksPerDelay-f.step/2, 1)
	f.blocksPerDelay = 1
	f.state = stateSearch
}

func (f *Flow) moveToSearch(low, high int64) {
	if low <= 0 || high < low {
		panic(fmt.Sprintf("flow: invalid search interval [%d, %d]", low, high))
	}
	f.blocksPerDelay = (low + high) / 2
	if high-low <= 3 {
		f.state = stateSteady
		return
	}
	f.bpdLow = low
	f.bpdHigh = high
	f.state = stateSearch
}

func (f *Flow) adjustState(inst float64, delay uint64) {
	above := f.isRateAbove(delay, inst)
	below := f.isRateBelow(delay, inst)
	prev := f.state

	switch f.state {
	case stateInc:
		switch {
		case above:
			f.moveToSearch(f.blocksPerDelay-f.step/2, f.blocksPerDelay)
		case below:
			f.incStep()
		default:
			f.state = stateSteady
		}

	case stateDec:
		switch {
		case above:
			f.decStep()
		case below:
			f.moveToSearch(f.blocksPerDelay, f.blocksPerDelay+f.step/2)
		default:
			f.state = stateSteady
		}

	case stateSearch:
		if f.bpdHigh-f.bpdLow <= 3 {
			f.state = stateSteady
			break
		}
		switch {
		case above:
			f.bpdHigh = f.blocksPerDelay
			f.blocksPerDelay = (f.bpdLow + f.bpdHigh) / 2
		case below:
			f.bpdLow = f.blocksPerDelay
			f.blocksPerDelay = (f.bpdLow + f.bpdHigh) / 2
		default:
			f.state = stateSteady
		}

	case stateSteady:
		f.step = 1
		if delay <= f.delayMs {
			if inst < f.maxRate {
				f.state = stateInc
				f.incStep()
			} else if f.blocksPerDelay > 1 {
				f.state = stateDec
				f.decStep()
			}
		} else if f.blocksPerDelay > 1 {
			f.state = stateDec
			f.decStep()
		}
	}

	if f.state != prev {
		f.log.Debug("flow state changed",
			zap.Stringer("from", prev),
			zap.Stringer("to", f.state),
			zap.Int64("blocksPerDelay", f.blocksPerDelay),
			zap.Uint64("delayMs", delay),
			zap.Float64("speed", inst))
	}
}
