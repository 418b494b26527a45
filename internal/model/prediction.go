package model

import "time"

// Segment is a maximal run of readings with no intervening recharge: every
// reading's value is less than or equal to the one before it. Segments are
// derived from a series on demand and never persisted.
type Segment struct {
	Readings []Reading `json:"readings"`
}

func (s Segment) Len() int { return len(s.Readings) }

func (s Segment) First() Reading { return s.Readings[0] }

func (s Segment) Last() Reading { return s.Readings[len(s.Readings)-1] }

// Duration is the time spanned by the segment.
func (s Segment) Duration() time.Duration {
	if len(s.Readings) < 2 {
		return 0
	}
	return s.Last().Time.Sub(s.First().Time)
}

// PredictionResult is a fitted discharge trend for one segment. The slope is
// always negative: a flat or rising fit yields no result at all rather than a
// result without an exhaustion time.
type PredictionResult struct {
	SlopePerSecond float64   `json:"slope_per_second"` // kWh per second, < 0
	Intercept      float64   `json:"intercept"`        // kWh at Unix epoch
	ExhaustionTime time.Time `json:"exhaustion_time"`
}
