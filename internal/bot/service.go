// Package bot holds the core query/predict flow and the chat command surface
// on top of it.
package bot

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"dorm-electricity/internal/campus"
	"dorm-electricity/internal/metrics"
	"dorm-electricity/internal/model"
	"dorm-electricity/internal/predict"
)

// HistoryStore is the per-room reading log.
type HistoryStore interface {
	AppendReading(ctx context.Context, key model.RoomKey, r model.Reading) (bool, error)
	Series(ctx context.Context, key model.RoomKey) ([]model.Reading, error)
	ClearHistory(ctx context.Context, key model.RoomKey) error
}

// BindingStore persists identity-to-room bindings.
type BindingStore interface {
	BindingByIdentity(ctx context.Context, id model.Identity) (*model.Binding, error)
	BindingByID(ctx context.Context, bindingID string) (*model.Binding, error)
	SaveBinding(ctx context.Context, b *model.Binding) error
	DeleteBinding(ctx context.Context, bindingID string) error
}

// ScheduleStore persists daily notification times.
type ScheduleStore interface {
	ScheduleForBinding(ctx context.Context, bindingID string) (*model.ScheduleEntry, error)
	SaveSchedule(ctx context.Context, e *model.ScheduleEntry) error
	DeleteSchedule(ctx context.Context, bindingID string) error
	Schedules(ctx context.Context) ([]model.ScheduleEntry, error)
}

// Fetcher reaches the campus balance API.
type Fetcher interface {
	CampusNames() []string
	Buildings(ctx context.Context, campusName string) ([]campus.Building, error)
	FetchReading(ctx context.Context, key model.RoomKey) (model.Reading, error)
}

// Service is the top-level balance flow: fetch a fresh reading, append it to
// history, and predict depletion from the updated series.
type Service struct {
	History HistoryStore
	Fetcher Fetcher

	log *logrus.Entry
}

func NewService(history HistoryStore, fetcher Fetcher, log *logrus.Logger) *Service {
	return &Service{
		History: history,
		Fetcher: fetcher,
		log:     log.WithField("component", "service"),
	}
}

// QueryRoom fetches the current balance for a room, records it, and returns
// the reading together with the depletion prediction (nil when none is
// possible). trigger labels the metrics: "manual" or "scheduled".
func (s *Service) QueryRoom(ctx context.Context, key model.RoomKey, trigger string) (model.Reading, *model.PredictionResult, error) {
	start := time.Now()
	reading, err := s.Fetcher.FetchReading(ctx, key)
	metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamFailures.Inc()
		return model.Reading{}, nil, err
	}
	metrics.QueriesTotal.WithLabelValues(trigger).Inc()

	stored, err := s.History.AppendReading(ctx, key, reading)
	if err != nil {
		return model.Reading{}, nil, err
	}
	if stored {
		metrics.ReadingsStored.Inc()
	}

	res, err := s.PredictDepletion(ctx, key)
	if err != nil {
		return model.Reading{}, nil, err
	}

	s.log.WithFields(logrus.Fields{
		"room":      key.String(),
		"value":     reading.Value,
		"stored":    stored,
		"predicted": res != nil,
	}).Info("balance queried")
	return reading, res, nil
}

// PredictDepletion runs the prediction flow over stored history. A nil result
// with a nil error means no depletion is predictable, which is an expected
// outcome, not a failure.
func (s *Service) PredictDepletion(ctx context.Context, key model.RoomKey) (*model.PredictionResult, error) {
	series, err := s.History.Series(ctx, key)
	if err != nil {
		return nil, err
	}
	res := predict.Depletion(series)
	if res != nil {
		metrics.PredictionsComputed.Inc()
	}
	return res, nil
}

// SegmentReport summarizes one discharge segment for the trend command.
type SegmentReport struct {
	Start    time.Time
	End      time.Time
	Readings int

	// Fit values are only set for segments with a falling fitted trend.
	Fitted          bool
	KWhPerHour      float64 // consumption rate, positive
	AvgPowerWatts   float64
	ExhaustionTime  time.Time
	ExhaustionKnown bool
}

// TrendReport summarizes every discharge segment in the room's history, most
// recent last. Only the final segment's projection is a live prediction; the
// rest describe past discharge periods.
func (s *Service) TrendReport(ctx context.Context, key model.RoomKey) ([]SegmentReport, error) {
	series, err := s.History.Series(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, nil
	}

	segments := predict.Split(series)
	reports := make([]SegmentReport, 0, len(segments))
	for i, seg := range segments {
		report := SegmentReport{
			Start:    seg.First().Time,
			End:      seg.Last().Time,
			Readings: seg.Len(),
		}
		if res := predict.Fit(seg); res != nil {
			kwhPerHour := -res.SlopePerSecond * 3600
			report.Fitted = true
			report.KWhPerHour = kwhPerHour
			report.AvgPowerWatts = kwhPerHour * 1000
			if i == len(segments)-1 {
				report.ExhaustionTime = res.ExhaustionTime
				report.ExhaustionKnown = true
			}
		}
		reports = append(reports, report)
	}
	return reports, nil
}
