//go:build !windows

package main

import (
	"os"

	"f3/flow"
)

// readSyncer closes the measurement windows of a file being read with the
// same barrier as writes.
func readSyncer(f *os.File) flow.Syncer { return dataSyncer{f} }
