package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dorm-electricity/internal/model"
)

// BindingByIdentity returns the binding for a chat identity, or nil when none
// exists.
func (s *Store) BindingByIdentity(ctx context.Context, id model.Identity) (*model.Binding, error) {
	b := &model.Binding{Identity: id}
	err := s.pool.QueryRow(ctx, `
		SELECT id, campus, building, room FROM bindings
		WHERE kind = $1 AND chat_id = $2
	`, string(id.Kind), id.ID).Scan(&b.ID, &b.Room.Campus, &b.Room.Building, &b.Room.Room)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query binding for %s: %w", id.Key(), err)
	}
	return b, nil
}

// BindingByID returns a binding by its surrogate id, or nil when it no longer
// exists (scheduled jobs tolerate bindings deleted underneath them).
func (s *Store) BindingByID(ctx context.Context, bindingID string) (*model.Binding, error) {
	b := &model.Binding{ID: bindingID}
	var kind string
	err := s.pool.QueryRow(ctx, `
		SELECT kind, chat_id, campus, building, room FROM bindings
		WHERE id = $1
	`, bindingID).Scan(&kind, &b.Identity.ID, &b.Room.Campus, &b.Room.Building, &b.Room.Room)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query binding %s: %w", bindingID, err)
	}
	b.Identity.Kind = model.IdentityKind(kind)
	return b, nil
}

// SaveBinding binds an identity to a room, replacing any previous binding for
// that identity. Replacement removes the old binding's schedule in the same
// transaction so no schedule row can outlive its binding.
func (s *Store) SaveBinding(ctx context.Context, b *model.Binding) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := b.Validate(); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save binding: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM schedules WHERE binding_id IN (
			SELECT id FROM bindings WHERE kind = $1 AND chat_id = $2
		)
	`, string(b.Identity.Kind), b.Identity.ID)
	if err != nil {
		return fmt.Errorf("drop schedule of replaced binding: %w", err)
	}
	_, err = tx.Exec(ctx, `
		DELETE FROM bindings WHERE kind = $1 AND chat_id = $2
	`, string(b.Identity.Kind), b.Identity.ID)
	if err != nil {
		return fmt.Errorf("drop replaced binding: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO bindings (id, kind, chat_id, campus, building, room)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.ID, string(b.Identity.Kind), b.Identity.ID, b.Room.Campus, b.Room.Building, b.Room.Room)
	if err != nil {
		return fmt.Errorf("insert binding: %w", err)
	}

	return tx.Commit(ctx)
}

// DeleteBinding removes a binding and its schedule as one atomic unit.
func (s *Store) DeleteBinding(ctx context.Context, bindingID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete binding: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM schedules WHERE binding_id = $1`, bindingID); err != nil {
		return fmt.Errorf("delete schedule of binding %s: %w", bindingID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM bindings WHERE id = $1`, bindingID); err != nil {
		return fmt.Errorf("delete binding %s: %w", bindingID, err)
	}

	return tx.Commit(ctx)
}
