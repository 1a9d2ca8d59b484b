//go:build !linux && !darwin

package main

import "os"

func adviseSequential(*os.File) {}

func adviseDontNeed(*os.File) {}
