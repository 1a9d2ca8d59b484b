//go:build linux

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var mountUnescaper = strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)

// describeVolume finds the mount holding path in /proc/self/mounts. The
// longest mount point that prefixes path wins.
func describeVolume(path string) (volume, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return volume{}, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return volume{}, err
	}
	f, err := os.Open("/proc/self/mounts")
	if err != nil {
		return volume{}, err
	}
	defer f.Close()

	var best volume
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		// format: <src> <target> <fstype> <opts> ...
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		tgt := filepath.Clean(mountUnescaper.Replace(fields[1]))
		if !within(abs, tgt) || len(tgt) < len(best.MountPoint) {
			continue
		}
		best = volume{
			Device:     mountUnescaper.Replace(fields[0]),
			MountPoint: tgt,
			FSType:     fields[2],
		}
	}
	if err := sc.Err(); err != nil {
		return volume{}, err
	}
	if best.MountPoint == "" {
		return volume{}, fmt.Errorf("cannot resolve device for %s", path)
	}
	return best, nil
}

func within(path, dir string) bool {
	if dir == "/" || path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+"/")
}
