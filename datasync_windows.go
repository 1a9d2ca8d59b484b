//go:build windows

package main

import (
	"os"

	"golang.org/x/sys/windows"
)

func fdatasync(f *os.File) error {
	return windows.FlushFileBuffers(windows.Handle(f.Fd()))
}
