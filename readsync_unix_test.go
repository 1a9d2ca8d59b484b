//go:build !windows

package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSyncerFlushesReadOnlyFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, 1, 1)

	f, err := os.Open(h2wPath(dir, 1))
	require.NoError(t, err)
	defer f.Close()

	s := readSyncer(f)
	assert.IsType(t, dataSyncer{}, s)
	assert.NoError(t, s.Sync())
}
