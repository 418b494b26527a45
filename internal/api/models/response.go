package models

import "time"

// ErrorResponse is the error envelope for every non-2xx reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EventResponse acknowledges an accepted webhook event. The command itself is
// handled asynchronously and the reply goes out through the chat gateway.
type EventResponse struct {
	Status string `json:"status"`
}

// ReadingRow is one stored balance reading.
type ReadingRow struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// HistoryResponse is a room's full reading log, oldest first.
type HistoryResponse struct {
	Campus   string       `json:"campus"`
	Building string       `json:"building"`
	Room     string       `json:"room"`
	Readings []ReadingRow `json:"readings"`
}

// PredictionResponse is the current depletion outlook for a room. Predicted
// is false when history is too short or the balance is not falling, in which
// case the remaining fields are omitted.
type PredictionResponse struct {
	Campus        string     `json:"campus"`
	Building      string     `json:"building"`
	Room          string     `json:"room"`
	Predicted     bool       `json:"predicted"`
	KWhPerHour    float64    `json:"kwh_per_hour,omitempty"`
	ExhaustionUTC *time.Time `json:"exhaustion_utc,omitempty"`
}

// CampusesResponse lists the configured campuses.
type CampusesResponse struct {
	Campuses []string `json:"campuses"`
}

// BuildingsResponse lists a campus's buildings as served by the campus API.
type BuildingsResponse struct {
	Campus    string   `json:"campus"`
	Buildings []string `json:"buildings"`
}
