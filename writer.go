package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"f3/flow"
	"f3/sector"
)

var errNoSpace = errors.New("no space left on device")

// dataSyncer is the durability barrier closing every measurement window of
// a file being written.
type dataSyncer struct{ f *os.File }

func (s dataSyncer) Sync() error { return fdatasync(s.f) }

func (r *runner) write(ctx context.Context) error {
	c := r.cfg
	r.printVolume(c.Dir)
	if err := unlinkOldFiles(r.out, r.log, c.Dir, c.StartAt, c.EndAt); err != nil {
		return err
	}
	return r.fillFS(ctx, c.Dir, c.StartAt, c.EndAt)
}

// fillFS writes files startAt..endAt into dir. The range is clamped to the
// free space; endAt 0 means until the filesystem is full. Running out of
// space ends the run normally.
func (r *runner) fillFS(ctx context.Context, dir string, startAt, endAt int64) error {
	free, err := freeSpace(dir)
	if err != nil {
		return fmt.Errorf("free space of %s: %w", dir, err)
	}
	if free == 0 {
		return fmt.Errorf("no free space available on %s", dir)
	}

	perFile := r.fileSize
	free, endAt = planRange(free, perFile, startAt, endAt)

	r.out.Plan(fmt.Sprintf("F3 WRITE  %s", dir), startAt, endAt)
	fmt.Fprintf(r.out, "Free space: %s\n", flow.HumanBytes(float64(free)))
	r.log.Info("filling",
		zap.String("dir", dir),
		zap.Int64("first", startAt),
		zap.Int64("last", endAt),
		zap.Uint64("bytes", free))

	fw := r.newFlow(free)
	buf := flow.NewBuffer()
	start := time.Now()

	var runErr error
	for n := startAt; n <= endAt; n++ {
		err := r.createAndFillFile(ctx, dir, n, perFile, fw, buf)
		result := resultOK
		msg := "OK!"
		switch {
		case err == nil:
		case errors.Is(err, errNoSpace):
			result, msg = resultNoSpace, "No space left."
			r.log.Info("no space left", zap.String("file", h2wName(n)))
		case errors.Is(err, context.Canceled):
			result, msg = resultFailed, "Interrupted."
			runErr = err
		default:
			result, msg = resultFailed, err.Error()
			r.log.Error("cannot fill file", zap.String("file", h2wName(n)), zap.Error(err))
			runErr = err
		}
		r.out.FileDone(n, result)
		r.metrics.addFile(modeWrite, result)
		fmt.Fprintf(r.out, "Creating file %s ... %s\n", h2wName(n), msg)
		if err != nil {
			break
		}
	}

	fmt.Fprintln(r.out, "--------------------REPORT--------------------")
	if left, err := freeSpace(dir); err == nil {
		fmt.Fprintf(r.out, "Free space available: %s\n", flow.HumanBytes(float64(left)))
	} else {
		r.log.Warn("cannot get free space", zap.String("dir", dir), zap.Error(err))
	}
	elapsed := time.Since(start)
	r.printAvgSpeed(fw, elapsed)
	fmt.Fprintf(r.out, "Total elapsed: %s\n", flow.FormatDuration(elapsed.Seconds()))
	return runErr
}

// planRange clamps startAt..endAt to free bytes in files of perFile bytes.
// It returns the bytes the run is expected to write and the last file.
func planRange(free, perFile uint64, startAt, endAt int64) (uint64, int64) {
	count := endAt - startAt + 1
	if count > 0 && uint64(count) <= free/perFile {
		return uint64(count) * perFile, endAt
	}
	// one more file takes the remainder until the drive is full
	return free, startAt + int64(free/perFile)
}

// createAndFillFile creates, or truncates, file n in dir and fills it with
// size bytes of sectors, paced by fw.
func (r *runner) createAndFillFile(ctx context.Context, dir string, n int64, size uint64, fw *flow.Flow, buf *flow.Buffer) (err error) {
	if size == 0 {
		panic("createAndFillFile: size must be greater than zero")
	}
	name := h2wPath(dir, n)
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		if isNoSpace(err) {
			return errNoSpace
		}
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", name, cerr)
			if isNoSpace(cerr) {
				err = errNoSpace
			}
		}
	}()
	adviseSequential(f)

	s := dataSyncer{f}
	offset := uint64(n) * sector.GiB
	fw.StartMeasurement()
	for left := size; left > 0; {
		if err := ctx.Err(); err != nil {
			return err
		}
		written, err := sector.WriteChunk(buf, f, min(fw.RemainingChunkSize(), left), &offset)
		r.metrics.addBytes(modeWrite, written)
		if err != nil {
			_ = fw.EndMeasurement(s)
			if isNoSpace(err) {
				return errNoSpace
			}
			return fmt.Errorf("write %s: %w", name, err)
		}
		left -= written
		if err := fw.Measure(s, written); err != nil {
			if isNoSpace(err) {
				return errNoSpace
			}
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := fw.EndMeasurement(s); err != nil {
		if isNoSpace(err) {
			return errNoSpace
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	adviseDontNeed(f)
	return nil
}
