package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"f3/flow"
	"f3/screen"
	"f3/sector"
)

// runner carries what a write or read pass needs.
type runner struct {
	cfg     *config
	log     *zap.Logger
	out     display
	metrics *runMetrics

	// fileSize is the size of a full h2w file. Offsets inside file NUM
	// start at NUM GiB whatever the file size.
	fileSize uint64
	flowOpts []flow.Option
}

func newRunner(c *config, log *zap.Logger, out display) *runner {
	return &runner{
		cfg:      c,
		log:      log,
		out:      out,
		metrics:  newRunMetrics(c.RunID),
		fileSize: sector.GiB,
	}
}

func (r *runner) newFlow(total uint64) *flow.Flow {
	opts := []flow.Option{flow.WithLogger(r.log), flow.WithReporter(r.out)}
	return flow.New(total, r.cfg.MaxRate, append(opts, r.flowOpts...)...)
}

func (r *runner) printVolume(dir string) {
	v, err := describeVolume(dir)
	if err != nil {
		r.log.Debug("cannot describe volume", zap.String("dir", dir), zap.Error(err))
		return
	}
	fmt.Fprintf(r.out, "Device: %s\n", v)
}

// printAvgSpeed prints the measured average speed, or a coarse one from
// the elapsed time when the run was too short to measure.
func (r *runner) printAvgSpeed(f *flow.Flow, elapsed time.Duration) {
	verb := "writing"
	if r.cfg.Mode == modeRead {
		verb = "reading"
	}
	var speed float64
	switch {
	case f.HasEnoughMeasurements():
		speed = f.AvgSpeed()
	case elapsed.Milliseconds() > 0:
		speed = f.AvgSpeedGivenTime(elapsed)
	default:
		fmt.Fprintf(r.out, "The %s speed is not available\n", verb)
		return
	}
	r.metrics.setSpeed(r.cfg.Mode, speed)
	fmt.Fprintf(r.out, "Average %s speed: %s/s\n", verb, flow.HumanBytes(speed))
}

// run sets up logging and display for c, runs op and writes the metrics.
func run(ctx context.Context, c *config, op func(context.Context, *runner) error) (err error) {
	log, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out display
	if c.UI == uiScreen {
		ui, err := screen.NewUI()
		if err != nil {
			return fmt.Errorf("ui init: %w", err)
		}
		go func() {
			select {
			case <-ui.Done():
				cancel()
			case <-ctx.Done():
			}
		}()
		out = newScreenDisplay(ui, os.Stdout, c.ShowProgress)
	} else {
		out = newLineDisplay(os.Stdout, c.ShowProgress)
	}

	r := newRunner(c, log, out)
	log.Info("run started", zap.String("dir", c.Dir), zap.Int64("startAt", c.StartAt), zap.Int64("endAt", c.EndAt))
	err = op(ctx, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if c.MetricsFile != "" {
		if merr := r.metrics.writeTextfile(c.MetricsFile); merr != nil {
			log.Error("write metrics", zap.String("file", c.MetricsFile), zap.Error(merr))
			if err == nil {
				err = fmt.Errorf("write metrics: %w", merr)
			}
		}
	}
	if err != nil {
		log.Error("run failed", zap.Error(err))
	}
	return err
}
