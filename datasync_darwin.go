//go:build darwin

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// fdatasync asks the drive itself to flush its buffers. Filesystems that
// refuse F_FULLFSYNC get a plain fsync.
func fdatasync(f *os.File) error {
	if _, err := unix.FcntlInt(f.Fd(), unix.F_FULLFSYNC, 0); err != nil {
		if err == unix.ENOTSUP || err == unix.ENOTTY || err == unix.EINVAL {
			return f.Sync()
		}
		return err
	}
	return nil
}
