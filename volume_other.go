//go:build !linux && !darwin && !windows

package main

import "errors"

func describeVolume(string) (volume, error) {
	return volume{}, errors.ErrUnsupported
}
