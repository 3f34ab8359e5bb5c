package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/store"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/xid"
)

type Store struct {
	db *sqlx.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewFromDB wraps an already opened handle.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "pgx")}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const sessionColumns = `id, user_id, name, email, role, upstream_token, created_at, expires_at`

func (s *Store) CreateSession(ctx context.Context, session domain.Session) (*domain.Session, error) {
	if session.ID == "" {
		session.ID = xid.New("ses")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO gateway_sessions (`+sessionColumns+`)
		VALUES (:id, :user_id, :name, :email, :role, :upstream_token, :created_at, :expires_at)
	`, session)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	saved := session
	return &saved, nil
}

func (s *Store) GetSession(ctx context.Context, id string, now time.Time) (*domain.Session, error) {
	var session domain.Session
	err := s.db.GetContext(ctx, &session, `
		SELECT `+sessionColumns+`
		FROM gateway_sessions
		WHERE id = $1 AND expires_at > $2
	`, id, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	session.CreatedAt = session.CreatedAt.UTC()
	session.ExpiresAt = session.ExpiresAt.UTC()
	return &session, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM gateway_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) PurgeExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM gateway_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

const draftColumns = `id, session_id, kind, payload, created_at, updated_at`

func (s *Store) CreateDraft(ctx context.Context, draft domain.DraftRecord) (*domain.DraftRecord, error) {
	if draft.ID == "" {
		draft.ID = xid.New("drf")
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now().UTC()
	}
	draft.UpdatedAt = draft.CreatedAt
	if len(draft.Payload) == 0 {
		draft.Payload = []byte(`{}`)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gateway_drafts (`+draftColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, draft.ID, draft.SessionID, draft.Kind, []byte(draft.Payload), draft.CreatedAt, draft.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	saved := draft
	return &saved, nil
}

func (s *Store) GetDraft(ctx context.Context, id string) (*domain.DraftRecord, error) {
	var draft domain.DraftRecord
	err := s.db.GetContext(ctx, &draft, `SELECT `+draftColumns+` FROM gateway_drafts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &draft, nil
}

func (s *Store) ListDrafts(ctx context.Context, sessionID string, kind string) ([]domain.DraftRecord, error) {
	drafts := make([]domain.DraftRecord, 0)
	err := s.db.SelectContext(ctx, &drafts, `
		SELECT `+draftColumns+`
		FROM gateway_drafts
		WHERE session_id = $1 AND ($2 = '' OR kind = $2)
		ORDER BY updated_at DESC, id
	`, sessionID, kind)
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

func (s *Store) UpdateDraft(ctx context.Context, id string, fn func(*domain.DraftRecord) error) (*domain.DraftRecord, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var current domain.DraftRecord
	err = tx.GetContext(ctx, &current, `SELECT `+draftColumns+` FROM gateway_drafts WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	working := current
	if err := fn(&working); err != nil {
		return nil, err
	}
	working.ID = current.ID
	working.SessionID = current.SessionID
	working.Kind = current.Kind
	working.CreatedAt = current.CreatedAt
	working.UpdatedAt = time.Now().UTC()

	if _, err := tx.ExecContext(ctx, `
		UPDATE gateway_drafts SET payload = $2, updated_at = $3 WHERE id = $1
	`, working.ID, []byte(working.Payload), working.UpdatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit draft %s: %w", id, err)
	}
	return &working, nil
}

func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM gateway_drafts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
