package predict

import "dorm-electricity/internal/model"

// Split partitions a chronologically ordered series into discharge segments.
// A reading whose value is strictly greater than the previous reading's value
// starts a new segment: the balance went up, which is read as a recharge that
// resets the trend baseline. Equal consecutive values stay in the current
// segment, so flat stretches count as part of the discharge.
//
// A meter correction would also look like an increase and be treated as a
// recharge. That matches how the data behaves in practice and is intentional.
func Split(series []model.Reading) []model.Segment {
	if len(series) == 0 {
		return nil
	}

	var segments []model.Segment
	current := []model.Reading{series[0]}

	for _, r := range series[1:] {
		if r.Value > current[len(current)-1].Value {
			segments = append(segments, model.Segment{Readings: current})
			current = []model.Reading{r}
			continue
		}
		current = append(current, r)
	}

	return append(segments, model.Segment{Readings: current})
}
