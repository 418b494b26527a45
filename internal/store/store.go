// Package store persists readings, bindings and schedules in PostgreSQL.
// Queries are plain SQL over a pgx pool; the unbind cascade is an explicit
// application-level transaction rather than a database cascade.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"dorm-electricity/internal/model"
)

// Store wraps the connection pool plus the per-room append locks.
type Store struct {
	pool *pgxpool.Pool

	mu        sync.Mutex
	roomLocks map[string]*sync.Mutex
}

// Open connects and pings the database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db pool init: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return &Store{
		pool:      pool,
		roomLocks: make(map[string]*sync.Mutex),
	}, nil
}

// Migrate creates the schema when missing.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS readings (
			id          TEXT PRIMARY KEY,
			campus      TEXT NOT NULL,
			building    TEXT NOT NULL,
			room        TEXT NOT NULL,
			value       DOUBLE PRECISION NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS readings_room_time
			ON readings (campus, building, room, recorded_at)`,
		`CREATE TABLE IF NOT EXISTS bindings (
			id       TEXT PRIMARY KEY,
			kind     TEXT NOT NULL CHECK (kind IN ('user', 'group')),
			chat_id  TEXT NOT NULL,
			campus   TEXT NOT NULL,
			building TEXT NOT NULL,
			room     TEXT NOT NULL,
			UNIQUE (kind, chat_id)
		)`,
		`CREATE TABLE IF NOT EXISTS schedules (
			id         TEXT PRIMARY KEY,
			binding_id TEXT NOT NULL UNIQUE REFERENCES bindings (id),
			hour       INT NOT NULL CHECK (hour BETWEEN 0 AND 23),
			minute     INT NOT NULL CHECK (minute BETWEEN 0 AND 59)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// roomLock returns the mutex serializing appends for one room.
func (s *Store) roomLock(key model.RoomKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key.String()
	if l, ok := s.roomLocks[k]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.roomLocks[k] = l
	return l
}
