package model

import (
	"errors"
	"fmt"
	"time"
)

// RoomKey identifies one dormitory room. Matching is case-sensitive and
// exact; the campus and building names are the display names used by the
// campus card-services API.
type RoomKey struct {
	Campus   string `json:"campus"`
	Building string `json:"building"`
	Room     string `json:"room"`
}

func (k RoomKey) Validate() error {
	if k.Campus == "" {
		return errors.New("campus is required")
	}
	if k.Building == "" {
		return errors.New("building is required")
	}
	if k.Room == "" {
		return errors.New("room is required")
	}
	return nil
}

func (k RoomKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Campus, k.Building, k.Room)
}

// Reading is one observed balance value for a room. Immutable once recorded.
type Reading struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"` // remaining balance in kWh
}
