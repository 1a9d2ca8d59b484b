package sector

import "fmt"

// FileStats accumulates the classification of one h2w file.
type FileStats struct {
	OK          uint64
	Corrupted   uint64
	Changed     uint64
	Overwritten uint64

	// BytesRead counts bytes of whole sectors that were classified.
	BytesRead uint64
	// ReadAll is set once a read reached the end of the file.
	ReadAll bool
}

// Add folds one classification into s.
func (s *FileStats) Add(c Class) {
	switch c {
	case OK:
		s.OK++
	case Changed:
		s.Changed++
	case Corrupted:
		s.Corrupted++
	case Overwritten:
		s.Overwritten++
	default:
		panic(fmt.Sprintf("sector: unknown class %d", int(c)))
	}
}

// Sectors is the number of sectors classified so far.
func (s *FileStats) Sectors() uint64 {
	return s.OK + s.Corrupted + s.Changed + s.Overwritten
}

// Lost is the number of sectors that did not come back intact.
func (s *FileStats) Lost() uint64 {
	return s.Corrupted + s.Changed + s.Overwritten
}

// Merge adds the counters of o into s.
func (s *FileStats) Merge(o *FileStats) {
	s.OK += o.OK
	s.Corrupted += o.Corrupted
	s.Changed += o.Changed
	s.Overwritten += o.Overwritten
	s.BytesRead += o.BytesRead
}

func (s *FileStats) String() string {
	return fmt.Sprintf("%7d/%9d/%7d/%7d", s.OK, s.Corrupted, s.Changed, s.Overwritten)
}

// CheckBuffer classifies the consecutive sectors of buf, the first of which
// is expected at offset, and returns the offset expected after buf.
func (s *FileStats) CheckBuffer(buf []byte, offset uint64) uint64 {
	if len(buf)%Size != 0 {
		panic(fmt.Sprintf("sector: check length %d is not a multiple of %d", len(buf), Size))
	}
	for i := 0; i < len(buf); i += Size {
		s.Add(Classify(buf[i:i+Size], offset))
		offset += Size
	}
	return offset
}
