package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dorm-electricity/internal/model"
)

// AppendReading records a reading unless its value equals the last stored
// value for the room, so a poll that observed no change stores nothing. It
// reports whether a row was written. Appends for the same room are serialized
// so the read-then-insert cannot race with itself.
func (s *Store) AppendReading(ctx context.Context, key model.RoomKey, r model.Reading) (bool, error) {
	lock := s.roomLock(key)
	lock.Lock()
	defer lock.Unlock()

	var last float64
	err := s.pool.QueryRow(ctx, `
		SELECT value FROM readings
		WHERE campus = $1 AND building = $2 AND room = $3
		ORDER BY recorded_at DESC
		LIMIT 1
	`, key.Campus, key.Building, key.Room).Scan(&last)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// first reading for the room
	case err != nil:
		return false, fmt.Errorf("read last value for %s: %w", key, err)
	case last == r.Value:
		return false, nil
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO readings (id, campus, building, room, value, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), key.Campus, key.Building, key.Room, r.Value, r.Time)
	if err != nil {
		return false, fmt.Errorf("append reading for %s: %w", key, err)
	}
	return true, nil
}

// Series returns all readings for a room in chronological order.
func (s *Store) Series(ctx context.Context, key model.RoomKey) ([]model.Reading, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT value, recorded_at FROM readings
		WHERE campus = $1 AND building = $2 AND room = $3
		ORDER BY recorded_at ASC
	`, key.Campus, key.Building, key.Room)
	if err != nil {
		return nil, fmt.Errorf("query series for %s: %w", key, err)
	}
	defer rows.Close()

	var series []model.Reading
	for rows.Next() {
		var r model.Reading
		if err := rows.Scan(&r.Value, &r.Time); err != nil {
			return nil, fmt.Errorf("scan reading for %s: %w", key, err)
		}
		series = append(series, r)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate readings for %s: %w", key, rows.Err())
	}
	return series, nil
}

// ClearHistory deletes every reading for a room.
func (s *Store) ClearHistory(ctx context.Context, key model.RoomKey) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM readings
		WHERE campus = $1 AND building = $2 AND room = $3
	`, key.Campus, key.Building, key.Room)
	if err != nil {
		return fmt.Errorf("clear history for %s: %w", key, err)
	}
	return nil
}
