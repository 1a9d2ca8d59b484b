package sector

import (
	"errors"
	"io"
	"syscall"
)

// Buffer hands out scratch memory for chunked I/O. The returned slice may
// be shorter than size; callers work through it in turns.
type Buffer interface {
	Get(size int) []byte
}

// maxInterrupts bounds how many interrupted or empty reads are retried in a
// row before giving up.
const maxInterrupts = 64

// ReadChunk reads up to size bytes from r, classifies every whole sector
// into stats and advances *offset accordingly. It returns the number of
// classified bytes; 0 with a nil error means r is exhausted.
func ReadChunk(buf Buffer, r io.Reader, offset *uint64, size uint64, stats *FileStats) (uint64, error) {
	b := buf.Get(int(size))
	var total uint64
	left := size
	for left > 0 {
		turn := min(left, uint64(len(b)))
		turn -= turn % Size
		if turn == 0 {
			panic("sector: read buffer smaller than one sector")
		}
		filled, err := readFull(r, b[:turn])
		if err != nil {
			stats.BytesRead += total
			return total, err
		}
		whole := uint64(filled) - uint64(filled)%Size
		if whole > 0 {
			*offset = stats.CheckBuffer(b[:whole], *offset)
			total += whole
			left -= whole
		}
		if uint64(filled) < turn {
			break
		}
	}
	stats.BytesRead += total
	if total == 0 {
		stats.ReadAll = true
	}
	return total, nil
}

// readFull fills b from r, retrying interrupted reads. A short count with a
// nil error means end of data.
func readFull(r io.Reader, b []byte) (int, error) {
	filled, retries := 0, 0
	for filled < len(b) {
		n, err := r.Read(b[filled:])
		filled += n
		switch {
		case errors.Is(err, io.EOF):
			return filled, nil
		case err != nil && !errors.Is(err, syscall.EINTR):
			return filled, err
		case n > 0:
			retries = 0
		default:
			retries++
			if retries > maxInterrupts {
				if err == nil {
					err = io.ErrNoProgress
				}
				return filled, err
			}
		}
	}
	return filled, nil
}

// WriteChunk fills size bytes of sectors starting at *offset and writes them
// to w. size must be a multiple of Size. On success *offset is advanced past
// the data written. The returned count may be short, and not sector
// aligned, when err is not nil.
func WriteChunk(buf Buffer, w io.Writer, size uint64, offset *uint64) (uint64, error) {
	b := buf.Get(int(size))
	var total uint64
	for total < size {
		turn := min(size-total, uint64(len(b)))
		turn -= turn % Size
		if turn == 0 {
			panic("sector: write buffer smaller than one sector")
		}
		next := Fill(b[:turn], *offset)
		n, err := w.Write(b[:turn])
		total += uint64(n)
		if err != nil {
			*offset += uint64(n) - uint64(n)%Size
			return total, err
		}
		*offset = next
	}
	return total, nil
}
