package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferGrowsOnce(t *testing.T) {
	b := NewBufferSize(64)
	assert.Len(t, b.Get(32), 64)

	assert.Len(t, b.Get(100), 100)
	assert.Equal(t, 100, b.Len())

	// never shrinks
	assert.GreaterOrEqual(t, len(b.Get(50)), 100)

	// already grew, so the caller works in turns
	assert.Len(t, b.Get(1000), 100)
	assert.Equal(t, 100, b.Len())
}

func TestNewBufferDefault(t *testing.T) {
	assert.Equal(t, DefaultBufferSize, NewBuffer().Len())
}

func TestAdjustUnit(t *testing.T) {
	tests := []struct {
		in   float64
		val  float64
		unit string
	}{
		{in: 0, val: 0, unit: "Bytes"},
		{in: 512, val: 512, unit: "Bytes"},
		{in: 1536, val: 1.5, unit: "KB"},
		{in: 3 << 20, val: 3, unit: "MB"},
		{in: 1 << 40, val: 1, unit: "TB"},
		{in: 1 << 60, val: 1024, unit: "PB"},
	}
	for _, tt := range tests {
		v, u := AdjustUnit(tt.in)
		assert.InDelta(t, tt.val, v, 1e-9, "%v", tt.in)
		assert.Equal(t, tt.unit, u, "%v", tt.in)
	}
	assert.Equal(t, "1.50 GB", HumanBytes(1.5*(1<<30)))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1h02m05s", FormatDuration(3725))
	assert.Equal(t, "01m05s", FormatDuration(65))
	assert.Equal(t, "05s", FormatDuration(5))
	assert.Equal(t, "2h00m00s", FormatDuration(7200))

	// rounding carries into minutes and hours
	assert.Equal(t, "01m00s", FormatDuration(59.6))
	assert.Equal(t, "02m00s", FormatDuration(119.7))
	assert.Equal(t, "1h00m00s", FormatDuration(3599.6))
	assert.Equal(t, "59m59s", FormatDuration(3599.4))
	assert.Equal(t, "00s", FormatDuration(0.4))
}
