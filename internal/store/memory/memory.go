package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/store"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/xid"
)

type Store struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	drafts   map[string]domain.DraftRecord
}

func New() *Store {
	return &Store{
		sessions: make(map[string]domain.Session),
		drafts:   make(map[string]domain.DraftRecord),
	}
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) CreateSession(_ context.Context, session domain.Session) (*domain.Session, error) {
	if session.ID == "" {
		session.ID = xid.New("ses")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return nil, store.ErrConflict
	}
	s.sessions[session.ID] = session
	saved := session
	return &saved, nil
}

func (s *Store) GetSession(_ context.Context, id string, now time.Time) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok || !session.ExpiresAt.After(now) {
		return nil, store.ErrNotFound
	}
	return &session, nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return store.ErrNotFound
	}
	s.dropSessionLocked(id)
	return nil
}

func (s *Store) PurgeExpiredSessions(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for id, session := range s.sessions {
		if session.ExpiresAt.After(now) {
			continue
		}
		s.dropSessionLocked(id)
		purged++
	}
	return purged, nil
}

func (s *Store) dropSessionLocked(id string) {
	delete(s.sessions, id)
	for draftID, d := range s.drafts {
		if d.SessionID == id {
			delete(s.drafts, draftID)
		}
	}
}

func (s *Store) CreateDraft(_ context.Context, draft domain.DraftRecord) (*domain.DraftRecord, error) {
	if draft.ID == "" {
		draft.ID = xid.New("drf")
	}
	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = draft.CreatedAt

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[draft.SessionID]; !ok {
		return nil, store.ErrNotFound
	}
	if _, exists := s.drafts[draft.ID]; exists {
		return nil, store.ErrConflict
	}
	draft.Payload = slices.Clone(draft.Payload)
	s.drafts[draft.ID] = draft
	return cloneDraft(draft), nil
}

func (s *Store) GetDraft(_ context.Context, id string) (*domain.DraftRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneDraft(d), nil
}

func (s *Store) ListDrafts(_ context.Context, sessionID string, kind string) ([]domain.DraftRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DraftRecord, 0)
	for _, d := range s.drafts {
		if d.SessionID != sessionID {
			continue
		}
		if kind != "" && d.Kind != kind {
			continue
		}
		out = append(out, *cloneDraft(d))
	}
	slices.SortFunc(out, func(a, b domain.DraftRecord) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) UpdateDraft(_ context.Context, id string, fn func(*domain.DraftRecord) error) (*domain.DraftRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.drafts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	working := cloneDraft(current)
	if err := fn(working); err != nil {
		return nil, err
	}
	working.ID = current.ID
	working.SessionID = current.SessionID
	working.Kind = current.Kind
	working.CreatedAt = current.CreatedAt
	working.UpdatedAt = time.Now().UTC()
	s.drafts[id] = *cloneDraft(*working)
	return working, nil
}

func (s *Store) DeleteDraft(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.drafts, id)
	return nil
}

func cloneDraft(d domain.DraftRecord) *domain.DraftRecord {
	d.Payload = slices.Clone(d.Payload)
	return &d
}
