package predict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dorm-electricity/internal/model"
)

var t0 = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func series(values ...float64) []model.Reading {
	readings := make([]model.Reading, len(values))
	for i, v := range values {
		readings[i] = model.Reading{Time: t0.Add(time.Duration(i) * time.Hour), Value: v}
	}
	return readings
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		wantLens []int
	}{
		{"single reading", []float64{80}, []int{1}},
		{"steady discharge", []float64{80, 70, 60}, []int{3}},
		{"flat values stay in segment", []float64{80, 80, 70, 70}, []int{4}},
		{"recharge splits", []float64{80, 70, 90, 85}, []int{2, 2}},
		{"two recharges", []float64{50, 40, 90, 80, 70, 95}, []int{2, 3, 1}},
		{"recharge on first step", []float64{10, 60, 50}, []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := Split(series(tt.values...))
			require.Len(t, segments, len(tt.wantLens))
			for i, seg := range segments {
				assert.Equal(t, tt.wantLens[i], seg.Len(), "segment %d", i)
			}
		})
	}
}

func TestSplitEmptySeries(t *testing.T) {
	assert.Nil(t, Split(nil))
}

// Concatenating the segments must reproduce the series exactly, and within a
// segment values never increase.
func TestSplitPreservesReadings(t *testing.T) {
	in := series(80, 75, 75, 90, 85, 60, 95, 95, 10)
	segments := Split(in)

	var out []model.Reading
	for _, seg := range segments {
		for i, r := range seg.Readings {
			if i > 0 {
				assert.LessOrEqual(t, r.Value, seg.Readings[i-1].Value)
			}
		}
		out = append(out, seg.Readings...)
	}
	require.Equal(t, in, out)
}

// The reading that opens a new segment must strictly exceed the previous
// segment's last value.
func TestSplitBoundariesAreRecharges(t *testing.T) {
	segments := Split(series(80, 70, 90, 85, 85, 100))
	require.Len(t, segments, 3)
	for i := 1; i < len(segments); i++ {
		prev := segments[i-1].Last().Value
		assert.Greater(t, segments[i].First().Value, prev)
	}
}
