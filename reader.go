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

func (r *runner) read(ctx context.Context) error {
	c := r.cfg
	r.printVolume(c.Dir)
	files, err := listFiles(c.Dir, c.StartAt, c.EndAt)
	if err != nil {
		return err
	}
	_, err = r.iterateFiles(ctx, c.Dir, files, c.StartAt)
	return err
}

func (r *runner) totalSize(dir string, files []int64) uint64 {
	var total uint64
	for _, n := range files {
		fi, err := os.Stat(h2wPath(dir, n))
		if err != nil {
			r.log.Warn("cannot stat file", zap.String("file", h2wName(n)), zap.Error(err))
			continue
		}
		total += uint64(fi.Size())
	}
	return total
}

// iterateFiles validates the sorted files of dir and prints the totals.
// Gaps between startAt and the last file are reported as missing. Errors
// on one file do not stop the others; only cancellation does.
func (r *runner) iterateFiles(ctx context.Context, dir string, files []int64, startAt int64) (*sector.FileStats, error) {
	last := startAt - 1
	if len(files) > 0 {
		last = files[len(files)-1]
	}
	r.out.Plan(fmt.Sprintf("F3 READ  %s", dir), startAt, last)

	fr := r.newFlow(r.totalSize(dir, files))
	buf := flow.NewBuffer()
	var total sector.FileStats
	readAll, missing := true, false
	number := startAt
	start := time.Now()

	fmt.Fprintln(r.out, "                  SECTORS      ok/corrupted/changed/overwritten")

	var runErr error
	for _, n := range files {
		missing = missing || n != number
		for ; number < n; number++ {
			fmt.Fprintf(r.out, "Missing file: %s\n", h2wName(number))
			r.out.FileDone(number, resultMissing)
			r.metrics.addFile(modeRead, resultMissing)
		}
		number++

		var stats sector.FileStats
		err := r.validateFile(ctx, dir, n, fr, buf, &stats)
		total.Merge(&stats)
		r.metrics.addStats(&stats)
		readAll = readAll && stats.ReadAll

		result := resultOK
		switch {
		case err != nil:
			result = resultFailed
		case stats.Lost() > 0:
			result = resultDamaged
		}
		r.out.FileDone(n, result)
		r.metrics.addFile(modeRead, result)

		line := fmt.Sprintf("Validating file %s ... %s", h2wName(n), &stats)
		if err != nil {
			line += " - " + err.Error()
			r.log.Error("cannot validate file", zap.String("file", h2wName(n)), zap.Error(err))
		}
		fmt.Fprintln(r.out, line)

		if errors.Is(err, context.Canceled) {
			runErr = err
			break
		}
	}
	if total.BytesRead != sector.Size*total.Sectors() {
		panic(fmt.Sprintf("iterateFiles: %d bytes read for %d sectors", total.BytesRead, total.Sectors()))
	}

	// Files after the last one found are not reported missing since endAt
	// may be very large.
	fmt.Fprintln(r.out)
	r.reportBytes("  Data OK", total.OK)
	r.reportBytes("Data LOST", total.Lost())
	r.reportBytes("\t       Corrupted", total.Corrupted)
	r.reportBytes("\tSlightly changed", total.Changed)
	r.reportBytes("\t     Overwritten", total.Overwritten)
	if missing {
		fmt.Fprintf(r.out, "WARNING: Not all F3 files in the range %d to %d are available\n", startAt, number-1)
	}
	if !readAll {
		fmt.Fprintln(r.out, "WARNING: Not all data was read due to I/O error(s)")
	}
	r.printAvgSpeed(fr, time.Since(start))
	total.ReadAll = readAll
	return &total, runErr
}

func (r *runner) reportBytes(prefix string, sectors uint64) {
	fmt.Fprintf(r.out, "%s: %s (%d sectors)\n", prefix, flow.HumanBytes(float64(sectors*sector.Size)), sectors)
}

// validateFile reads file n of dir to its end, classifying every sector.
func (r *runner) validateFile(ctx context.Context, dir string, n int64, fr *flow.Flow, buf *flow.Buffer, stats *sector.FileStats) error {
	name := h2wPath(dir, n)
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	// the data must come from the drive, not from the page cache
	adviseDontNeed(f)
	adviseSequential(f)

	s := readSyncer(f)
	offset := uint64(n) * sector.GiB
	fr.StartMeasurement()
	for !stats.ReadAll {
		if err := ctx.Err(); err != nil {
			return err
		}
		got, err := sector.ReadChunk(buf, f, &offset, fr.RemainingChunkSize(), stats)
		r.metrics.addBytes(modeRead, got)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if got == 0 {
			break
		}
		if err := fr.Measure(s, got); err != nil {
			return err
		}
	}
	return fr.EndMeasurement(s)
}
