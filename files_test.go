package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "1.h2w", "2.h2w", "10.h2w", "foo.h2w", "3.txt", "-4.h2w")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "5.h2w"), 0o755))

	got, err := listFiles(dir, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 10}, got)

	got, err = listFiles(dir, 2, 9)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, got)

	got, err = listFiles(dir, 11, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = listFiles(filepath.Join(dir, "nope"), 1, 0)
	assert.Error(t, err)
}

func TestUnlinkOldFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "1.h2w", "2.h2w", "3.h2w", "4.h2w", "keep.txt")
	require.NoError(t, os.Chmod(filepath.Join(dir, "3.h2w"), 0o444))

	var out bytes.Buffer
	require.NoError(t, unlinkOldFiles(&out, zaptest.NewLogger(t), dir, 2, 3))
	assert.Contains(t, out.String(), "Deleting old file: 2.h2w\n")

	left, err := listFiles(dir, 1, 0)
	require.NoError(t, err)
	// read-only files survive
	assert.Equal(t, []int64{1, 3, 4}, left)

	require.NoError(t, unlinkOldFiles(&out, zaptest.NewLogger(t), dir, 1, 0))
	left, err = listFiles(dir, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, left)
	assert.FileExists(t, filepath.Join(dir, "keep.txt"))
}

func TestParseDevAndNum(t *testing.T) {
	tests := []struct {
		path    string
		dir     string
		num     int64
		wantErr bool
	}{
		{path: "/media/usb/7.h2w", dir: "/media/usb", num: 7},
		{path: "12.h2w", dir: ".", num: 12},
		{path: "/media/usb/", wantErr: true},
		{path: "/media/usb/x.h2w", wantErr: true},
		{path: "/media/usb/7.txt", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			dir, num, err := parseDevAndNum(filepath.FromSlash(tt.path))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.dir), dir)
			assert.Equal(t, tt.num, num)
		})
	}
}

func TestH2wPath(t *testing.T) {
	assert.Equal(t, "42.h2w", h2wName(42))
	assert.Equal(t, filepath.Join("dir", "1.h2w"), h2wPath("dir", 1))
}
