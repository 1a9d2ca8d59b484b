package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const h2wExt = ".h2w"

func h2wName(n int64) string {
	return strconv.FormatInt(n, 10) + h2wExt
}

func h2wPath(dir string, n int64) string {
	return filepath.Join(dir, h2wName(n))
}

// listFiles returns the sorted numbers of the NUM.h2w files in dir with
// start <= NUM and, unless end is 0, NUM <= end.
func listFiles(dir string, start, end int64) ([]int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var nums []int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		s, ok := strings.CutSuffix(e.Name(), h2wExt)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < start || (end != 0 && n > end) {
			continue
		}
		nums = append(nums, n)
	}
	slices.Sort(nums)
	return nums, nil
}

// unlinkOldFiles removes the h2w files a new write run would produce.
// Read-only files are kept.
func unlinkOldFiles(out io.Writer, log *zap.Logger, dir string, start, end int64) error {
	nums, err := listFiles(dir, start, end)
	if err != nil {
		return err
	}
	for _, n := range nums {
		name := h2wPath(dir, n)
		fmt.Fprintf(out, "Deleting old file: %s\n", h2wName(n))
		fi, err := os.Stat(name)
		if err != nil {
			log.Warn("cannot stat old file", zap.String("file", name), zap.Error(err))
			continue
		}
		if fi.Mode().Perm()&0o222 == 0 {
			log.Warn("no permission to delete old file", zap.String("file", name))
			continue
		}
		if err := os.Remove(name); err != nil {
			log.Warn("failed to delete old file", zap.String("file", name), zap.Error(err))
		}
	}
	return nil
}

// parseDevAndNum splits ".../dir/NUM.h2w" into its directory and NUM.
func parseDevAndNum(path string) (string, int64, error) {
	dir, base := filepath.Split(path)
	s, ok := strings.CutSuffix(base, h2wExt)
	if !ok {
		return "", 0, fmt.Errorf("%s is not an h2w file", path)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return "", 0, fmt.Errorf("%s: file name has no number", path)
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Clean(dir), n, nil
}
