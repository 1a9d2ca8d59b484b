// Package sector implements the self-describing content of h2w files.
//
// Every sector starts with its absolute offset in the test address space
// (file number * GiB + offset inside the file). The remaining 8-byte words
// are a chain produced by Next, seeded by that header word. A sector can
// therefore be checked without any information but its own bytes and the
// place it was read from.
package sector

import (
	"encoding/binary"
	"fmt"
)

const (
	// Size is the classification granularity in bytes.
	Size = 512

	// GiB is the nominal size of one h2w file.
	GiB = 1 << 30

	// Tolerance is the largest number of mismatching words a sector may
	// carry and still be considered changed or overwritten rather than
	// corrupted.
	Tolerance = 2

	wordSize = 8
)

// Next returns the value following seed in the content chain.
func Next(seed uint64) uint64 {
	return seed*4294967311 + 17
}

// Fill writes consecutive sectors into buf, the first one belonging to
// offset. len(buf) must be a multiple of Size. It returns the offset of the
// sector following the last one written.
func Fill(buf []byte, offset uint64) uint64 {
	if len(buf)%Size != 0 {
		panic(fmt.Sprintf("sector: fill length %d is not a multiple of %d", len(buf), Size))
	}
	for i := 0; i < len(buf); i += Size {
		rn := offset
		binary.NativeEndian.PutUint64(buf[i:], rn)
		for w := i + wordSize; w < i+Size; w += wordSize {
			rn = Next(rn)
			binary.NativeEndian.PutUint64(buf[w:], rn)
		}
		offset += Size
	}
	return offset
}

// Class is the outcome of checking one sector.
type Class int

const (
	OK Class = iota
	Changed
	Corrupted
	Overwritten
)

func (c Class) String() string {
	switch c {
	case OK:
		return "ok"
	case Changed:
		return "changed"
	case Corrupted:
		return "corrupted"
	case Overwritten:
		return "overwritten"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Classify checks one sector read from expected. The chain is rebuilt from
// the sector's own header, so a sector that is internally consistent but
// sits at the wrong place comes out as Overwritten.
func Classify(sec []byte, expected uint64) Class {
	if len(sec) != Size {
		panic(fmt.Sprintf("sector: classify length %d, want %d", len(sec), Size))
	}
	first := binary.NativeEndian.Uint64(sec)
	rn := first
	errs := 0
	for w := 0; w < Size; w += wordSize {
		if binary.NativeEndian.Uint64(sec[w:]) != rn {
			errs++
			if errs > Tolerance {
				break
			}
		}
		rn = Next(rn)
	}

	if first == expected {
		switch {
		case errs == 0:
			return OK
		case errs <= Tolerance:
			return Changed
		default:
			return Corrupted
		}
	}
	if errs <= Tolerance {
		return Overwritten
	}
	return Corrupted
}
