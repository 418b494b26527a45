package bot

import (
	"fmt"
	"strings"
	"time"

	"dorm-electricity/internal/model"
)

const helpText = `Commands:
query - balance of your bound room
query <campus> - list buildings in a campus
query <campus> <building> <room> - balance of a specific room
bind <campus> <building> <room> - bind this chat to a room
unbind - remove the binding
schedule HH:MM - daily balance notification at HH:MM
unschedule - cancel the daily notification
trend - discharge trend of your bound room
clear - delete the bound room's reading history
help - this text`

func formatBalance(key model.RoomKey, reading model.Reading, res *model.PredictionResult, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Electricity balance for %s %s %s\n", key.Campus, key.Building, key.Room)
	fmt.Fprintf(&b, "Remaining: %.2f kWh", reading.Value)
	if res != nil {
		fmt.Fprintf(&b, "\nEstimated depletion: %s", res.ExhaustionTime.In(loc).Format("2006-01-02 15:04"))
	}
	return b.String()
}

func formatBuildings(campusName string, names []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Buildings in %s:\n", campusName)
	b.WriteString(strings.Join(names, "\n"))
	return b.String()
}

func formatTrend(key model.RoomKey, reports []SegmentReport, loc *time.Location) string {
	if len(reports) == 0 {
		return "No readings recorded yet for " + key.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Discharge trend for %s %s %s\n", key.Campus, key.Building, key.Room)
	for i, r := range reports {
		fmt.Fprintf(&b, "Segment %d: %s to %s, %d readings",
			i+1, r.Start.In(loc).Format("01-02 15:04"), r.End.In(loc).Format("01-02 15:04"), r.Readings)
		if r.Fitted {
			fmt.Fprintf(&b, ", %.2f kWh/h (%.0f W)", r.KWhPerHour, r.AvgPowerWatts)
		}
		if r.ExhaustionKnown {
			fmt.Fprintf(&b, "\nEstimated depletion: %s", r.ExhaustionTime.In(loc).Format("2006-01-02 15:04"))
		}
		if i < len(reports)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
