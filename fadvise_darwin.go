//go:build darwin

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// Access hints are advisory; errors are ignored.

func adviseSequential(f *os.File) {
	_, _ = unix.FcntlInt(f.Fd(), unix.F_RDAHEAD, 1)
}

// adviseDontNeed turns off the unified buffer cache for f, so reads hit the
// drive instead of memory.
func adviseDontNeed(f *os.File) {
	_, _ = unix.FcntlInt(f.Fd(), unix.F_NOCACHE, 1)
}
