package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dorm-electricity/internal/model"
)

// ScheduleForBinding returns the binding's daily schedule, or nil when none
// is set.
func (s *Store) ScheduleForBinding(ctx context.Context, bindingID string) (*model.ScheduleEntry, error) {
	e := &model.ScheduleEntry{BindingID: bindingID}
	err := s.pool.QueryRow(ctx, `
		SELECT id, hour, minute FROM schedules WHERE binding_id = $1
	`, bindingID).Scan(&e.ID, &e.Hour, &e.Minute)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query schedule for binding %s: %w", bindingID, err)
	}
	return e, nil
}

// SaveSchedule stores the daily schedule for a binding.
func (s *Store) SaveSchedule(ctx context.Context, e *model.ScheduleEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := e.Validate(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO schedules (id, binding_id, hour, minute)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (binding_id) DO UPDATE SET hour = EXCLUDED.hour, minute = EXCLUDED.minute
	`, e.ID, e.BindingID, e.Hour, e.Minute)
	if err != nil {
		return fmt.Errorf("save schedule for binding %s: %w", e.BindingID, err)
	}
	return nil
}

// DeleteSchedule removes the binding's schedule if present.
func (s *Store) DeleteSchedule(ctx context.Context, bindingID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM schedules WHERE binding_id = $1`, bindingID)
	if err != nil {
		return fmt.Errorf("delete schedule for binding %s: %w", bindingID, err)
	}
	return nil
}

// Schedules returns every stored schedule. Used at startup to re-register
// jobs.
func (s *Store) Schedules(ctx context.Context) ([]model.ScheduleEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, binding_id, hour, minute FROM schedules`)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	var entries []model.ScheduleEntry
	for rows.Next() {
		var e model.ScheduleEntry
		if err := rows.Scan(&e.ID, &e.BindingID, &e.Hour, &e.Minute); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate schedules: %w", rows.Err())
	}
	return entries, nil
}
