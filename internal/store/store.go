package store

import (
	"context"
	"errors"
	"time"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Repository keeps gateway sessions and the drafts opened under them.
// UpdateDraft runs fn while holding the draft exclusively, so two requests
// against the same draft never interleave their read-modify-write.
type Repository interface {
	Ping(ctx context.Context) error

	CreateSession(ctx context.Context, session domain.Session) (*domain.Session, error)
	GetSession(ctx context.Context, id string, now time.Time) (*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int, error)

	CreateDraft(ctx context.Context, draft domain.DraftRecord) (*domain.DraftRecord, error)
	GetDraft(ctx context.Context, id string) (*domain.DraftRecord, error)
	ListDrafts(ctx context.Context, sessionID string, kind string) ([]domain.DraftRecord, error)
	UpdateDraft(ctx context.Context, id string, fn func(*domain.DraftRecord) error) (*domain.DraftRecord, error)
	DeleteDraft(ctx context.Context, id string) error
}
