//go:build windows

package main

import (
	"os"

	"f3/flow"
)

// nopSyncer stands in for FlushFileBuffers, which fails on handles opened
// for reading.
type nopSyncer struct{}

func (nopSyncer) Sync() error { return nil }

func readSyncer(*os.File) flow.Syncer { return nopSyncer{} }
