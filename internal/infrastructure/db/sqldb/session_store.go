package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

// SessionStore implements ports.SessionStore on the sessions table.
// Timestamps are stored as unix milliseconds.
type SessionStore struct {
	db  *DB
	now func() time.Time
}

func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, username, role, clinic_name, expires, last_access
		FROM sessions WHERE session_id = ? AND expires > ?`,
		id, s.now().UnixMilli())

	var (
		rec                 domain.SessionRecord
		role                string
		expires, lastAccess int64
	)
	err := row.Scan(&rec.ID, &rec.Attributes.UserID, &rec.Attributes.Username, &role,
		&rec.Attributes.ClinicName, &expires, &lastAccess)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	rec.Attributes.Role = domain.Role(role)
	rec.ExpiresAt = time.UnixMilli(expires)
	rec.LastAccess = time.UnixMilli(lastAccess)
	return &rec, nil
}

func (s *SessionStore) Set(ctx context.Context, id string, attrs domain.SessionAttributes, expiresAt time.Time) error {
	if err := attrs.Validate(); err != nil {
		return err
	}
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (session_id, user_id, username, role, clinic_name, expires, last_access)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, attrs.UserID, attrs.Username, string(attrs.Role), attrs.ClinicName,
			expiresAt.UnixMilli(), s.now().UnixMilli(),
		)
		return err
	})
	if err != nil {
		return unavailable("set", err)
	}
	return nil
}

func (s *SessionStore) Touch(ctx context.Context, id string, lastAccess, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET last_access = ?, expires = ?
		WHERE session_id = ? AND expires > ?`,
		lastAccess.UnixMilli(), expiresAt.UnixMilli(), id, lastAccess.UnixMilli())
	if err != nil {
		return unavailable("touch", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("touch", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, unavailable("delete by user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("delete by user", err)
	}
	return n, nil
}

func (s *SessionStore) SweepExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, unavailable("sweep", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("sweep", err)
	}
	return n, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("sql session %s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
