//go:build windows

package main

import (
	"fmt"
	"strings"

	"golang.org/x/sys/windows"
)

func driveTypeString(t uint32) string {
	switch t {
	case windows.DRIVE_REMOVABLE:
		return "removable"
	case windows.DRIVE_FIXED:
		return "fixed"
	case windows.DRIVE_REMOTE:
		return "network"
	case windows.DRIVE_CDROM:
		return "cdrom"
	case windows.DRIVE_RAMDISK:
		return "ramdisk"
	default:
		return "unknown"
	}
}

// describeVolume resolves the volume root of path, e.g. E:\, and reports
// its filesystem and drive type.
func describeVolume(path string) (volume, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return volume{}, err
	}
	root := make([]uint16, windows.MAX_PATH+1)
	if err := windows.GetVolumePathName(p, &root[0], uint32(len(root))); err != nil {
		return volume{}, fmt.Errorf("cannot resolve volume for %s: %w", path, err)
	}
	fsName := make([]uint16, windows.MAX_PATH+1)
	if err := windows.GetVolumeInformation(&root[0], nil, 0, nil, nil, nil, &fsName[0], uint32(len(fsName))); err != nil {
		return volume{}, fmt.Errorf("volume information for %s: %w", path, err)
	}
	mnt := windows.UTF16ToString(root)
	return volume{
		Device:     strings.TrimSuffix(mnt, `\`) + " " + driveTypeString(windows.GetDriveType(&root[0])),
		MountPoint: mnt,
		FSType:     windows.UTF16ToString(fsName),
	}, nil
}
