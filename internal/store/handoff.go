package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Handoff is one pending host-handoff authentication attempt. ID is a random
// correlation id that also travels as the OAuth state parameter, so two
// concurrent attempts never share a record.
type Handoff struct {
	ID        string
	Origin    string
	Provider  string
	Mode      string
	AuthURL   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the record is no longer usable at now.
func (h *Handoff) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

// SaveHandoff inserts a new record. Reusing an ID is an error.
func (s *Store) SaveHandoff(ctx context.Context, h *Handoff) error {
	if h.ID == "" {
		return errors.New("store: handoff id is empty")
	}

	_, err := s.db.ExecContext(ctx, sqlInsertHandoff,
		h.ID, h.Origin, h.Provider, h.Mode, h.AuthURL,
		h.CreatedAt.UnixNano(), h.ExpiresAt.UnixNano())
	if err != nil {
		return fmt.Errorf("store: saving handoff %s: %w", h.ID, err)
	}

	s.logger.Debug("handoff saved",
		slog.String("handoff_id", h.ID),
		slog.String("provider", h.Provider),
		slog.Time("expires_at", h.ExpiresAt),
	)

	return nil
}

// LoadHandoff reads a record without consuming it. Missing records return
// ErrNotFound; expired ones return ErrExpired.
func (s *Store) LoadHandoff(ctx context.Context, id string) (*Handoff, error) {
	h, err := scanHandoff(s.db.QueryRowContext(ctx, sqlGetHandoff, id))
	if err != nil {
		return nil, err
	}

	if h.Expired(s.nowFunc()) {
		return nil, ErrExpired
	}

	return h, nil
}

// TakeHandoff reads and deletes a record in one transaction, so a result can
// be delivered for an attempt at most once. An expired record is deleted and
// reported as ErrExpired.
func (s *Store) TakeHandoff(ctx context.Context, id string) (*Handoff, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	h, err := scanHandoff(tx.QueryRowContext(ctx, sqlGetHandoff, id))
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, sqlDeleteHandoff, id); err != nil {
		return nil, fmt.Errorf("store: deleting handoff %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: committing handoff take: %w", err)
	}

	if h.Expired(s.nowFunc()) {
		return nil, ErrExpired
	}

	return h, nil
}

// PurgeExpired deletes every record whose expiry has passed and returns the
// number removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, sqlPurgeHandoffs, s.nowFunc().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("store: purging handoffs: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: purging handoffs: %w", err)
	}

	if n > 0 {
		s.logger.Info("purged expired handoffs", slog.Int64("count", n))
	}

	return n, nil
}

func scanHandoff(row *sql.Row) (*Handoff, error) {
	var (
		h                  Handoff
		created, expiresAt int64
	)

	err := row.Scan(&h.ID, &h.Origin, &h.Provider, &h.Mode, &h.AuthURL, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("store: reading handoff: %w", err)
	}

	h.CreatedAt = time.Unix(0, created)
	h.ExpiresAt = time.Unix(0, expiresAt)

	return &h, nil
}
