package main

import "fmt"

// volume is the filesystem an h2w directory lives on.
type volume struct {
	Device     string
	MountPoint string
	FSType     string
}

func (v volume) String() string {
	return fmt.Sprintf("%s (%s) mounted on %s", v.Device, v.FSType, v.MountPoint)
}
