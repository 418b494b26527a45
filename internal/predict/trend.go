package predict

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"dorm-electricity/internal/model"
)

// Fit runs an ordinary least-squares regression of balance against time over
// one segment and projects the zero crossing.
//
// It returns nil when no depletion is predictable: fewer than two readings,
// or a fitted slope that is flat or rising. A segment of equal values fits
// slope zero, so the slope guard does fire in practice.
func Fit(seg model.Segment) *model.PredictionResult {
	if seg.Len() < 2 {
		return nil
	}

	xs := make([]float64, seg.Len())
	ys := make([]float64, seg.Len())
	for i, r := range seg.Readings {
		xs[i] = float64(r.Time.UnixNano()) / float64(time.Second)
		ys[i] = r.Value
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	if slope >= 0 {
		return nil
	}

	// slope*t + intercept == 0  =>  t = -intercept/slope (Unix seconds).
	emptyAt := -intercept / slope
	sec := math.Floor(emptyAt)

	return &model.PredictionResult{
		SlopePerSecond: slope,
		Intercept:      intercept,
		ExhaustionTime: time.Unix(int64(sec), int64((emptyAt-sec)*float64(time.Second))),
	}
}

// Depletion is the full prediction flow for one room's history: segment the
// series and fit the most recent discharge segment only. Earlier segments are
// irrelevant even if they were still falling, because a recharge reset the
// baseline.
func Depletion(series []model.Reading) *model.PredictionResult {
	if len(series) < 2 {
		return nil
	}
	segments := Split(series)
	return Fit(segments[len(segments)-1])
}
