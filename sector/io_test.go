package sector

import (
	"bytes"
	"errors"
	"io"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedBuffer always returns the same slice, whatever the request.
type fixedBuffer []byte

func (b fixedBuffer) Get(int) []byte { return b }

// choppyReader returns at most step bytes per call and injects an EINTR
// before every successful read.
type choppyReader struct {
	r      io.Reader
	step   int
	interr bool
}

func (c *choppyReader) Read(p []byte) (int, error) {
	if !c.interr {
		c.interr = true
		return 0, syscall.EINTR
	}
	c.interr = false
	if len(p) > c.step {
		p = p[:c.step]
	}
	return c.r.Read(p)
}

type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func filled(offset uint64, sectors int) []byte {
	b := make([]byte, sectors*Size)
	Fill(b, offset)
	return b
}

func TestReadChunk(t *testing.T) {
	t.Run("whole file in turns", func(t *testing.T) {
		data := filled(GiB, 10)
		r := bytes.NewReader(data)
		buf := make(fixedBuffer, 3*Size)
		off := uint64(GiB)
		var stats FileStats

		n, err := ReadChunk(buf, r, &off, 8*Size, &stats)
		require.NoError(t, err)
		assert.Equal(t, uint64(8*Size), n)
		assert.Equal(t, uint64(GiB+8*Size), off)

		n, err = ReadChunk(buf, r, &off, 8*Size, &stats)
		require.NoError(t, err)
		assert.Equal(t, uint64(2*Size), n)
		assert.False(t, stats.ReadAll)

		n, err = ReadChunk(buf, r, &off, 8*Size, &stats)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.True(t, stats.ReadAll)

		assertCounts(t, &stats, 10, 0, 0, 0)
		assert.Equal(t, uint64(10*Size), stats.BytesRead)
	})

	t.Run("short and interrupted reads", func(t *testing.T) {
		data := filled(0, 6)
		r := &choppyReader{r: bytes.NewReader(data), step: 100}
		off := uint64(0)
		var stats FileStats

		n, err := ReadChunk(make(fixedBuffer, 4*Size), r, &off, 6*Size, &stats)
		require.NoError(t, err)
		assert.Equal(t, uint64(6*Size), n)
		assertCounts(t, &stats, 6, 0, 0, 0)
	})

	t.Run("trailing partial sector is skipped", func(t *testing.T) {
		data := append(filled(0, 2), make([]byte, 100)...)
		off := uint64(0)
		var stats FileStats

		n, err := ReadChunk(make(fixedBuffer, 4*Size), bytes.NewReader(data), &off, 4*Size, &stats)
		require.NoError(t, err)
		assert.Equal(t, uint64(2*Size), n)
		assert.Equal(t, uint64(2*Size), off)
		assertCounts(t, &stats, 2, 0, 0, 0)
	})

	t.Run("io error", func(t *testing.T) {
		boom := errors.New("device gone")
		r := &failingReader{data: filled(0, 2), err: boom}
		off := uint64(0)
		var stats FileStats

		buf := make(fixedBuffer, 2*Size)
		n, err := ReadChunk(buf, r, &off, 8*Size, &stats)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, uint64(2*Size), n)
		assert.Equal(t, uint64(2*Size), stats.BytesRead)
		assert.False(t, stats.ReadAll)
	})

	t.Run("aliased device", func(t *testing.T) {
		// a device that wraps every 2 sectors back to the start
		data := append(filled(0, 2), filled(0, 2)...)
		off := uint64(0)
		var stats FileStats

		_, err := ReadChunk(make(fixedBuffer, 4*Size), bytes.NewReader(data), &off, 4*Size, &stats)
		require.NoError(t, err)
		assertCounts(t, &stats, 2, 0, 0, 2)
	})
}

func TestReadFullGivesUp(t *testing.T) {
	r := readerFunc(func([]byte) (int, error) { return 0, syscall.EINTR })
	_, err := readFull(r, make([]byte, Size))
	assert.ErrorIs(t, err, syscall.EINTR)

	r = readerFunc(func([]byte) (int, error) { return 0, nil })
	_, err = readFull(r, make([]byte, Size))
	assert.ErrorIs(t, err, io.ErrNoProgress)
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

type shortWriter struct {
	bytes.Buffer
	limit int
}

func (w *shortWriter) Write(p []byte) (int, error) {
	room := w.limit - w.Len()
	if len(p) > room {
		w.Buffer.Write(p[:room])
		return room, syscall.ENOSPC
	}
	return w.Buffer.Write(p)
}

func TestWriteChunk(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		var out bytes.Buffer
		off := uint64(2 * GiB)
		buf := make(fixedBuffer, 3*Size)

		n, err := WriteChunk(buf, &out, 7*Size, &off)
		require.NoError(t, err)
		assert.Equal(t, uint64(7*Size), n)
		assert.Equal(t, uint64(2*GiB+7*Size), off)
		assert.Equal(t, filled(2*GiB, 7), out.Bytes())

		var stats FileStats
		readOff := uint64(2 * GiB)
		_, err = ReadChunk(buf, &out, &readOff, 7*Size, &stats)
		require.NoError(t, err)
		assertCounts(t, &stats, 7, 0, 0, 0)
	})

	t.Run("no space", func(t *testing.T) {
		w := &shortWriter{limit: 2*Size + 10}
		off := uint64(0)

		n, err := WriteChunk(make(fixedBuffer, 4*Size), w, 4*Size, &off)
		assert.ErrorIs(t, err, syscall.ENOSPC)
		assert.Equal(t, uint64(2*Size+10), n)
		assert.Equal(t, uint64(2*Size), off)
	})
}
