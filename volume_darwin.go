//go:build darwin

package main

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

func describeVolume(path string) (volume, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return volume{}, err
	}
	return volume{
		Device:     unix.ByteSliceToString(st.Mntfromname[:]),
		MountPoint: filepath.Clean(unix.ByteSliceToString(st.Mntonname[:])),
		FSType:     unix.ByteSliceToString(st.Fstypename[:]),
	}, nil
}
