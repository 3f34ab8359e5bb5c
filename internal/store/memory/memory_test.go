package memory

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/store"
)

func seedSession(t *testing.T, s *Store, ttl time.Duration) *domain.Session {
	t.Helper()
	session, err := s.CreateSession(t.Context(), domain.Session{
		UserID:        "u-1",
		Role:          domain.RoleManager,
		UpstreamToken: "tok",
		ExpiresAt:     time.Now().Add(ttl),
	})
	require.NoError(t, err)
	return session
}

func TestSessionExpiry(t *testing.T) {
	s := New()
	live := seedSession(t, s, time.Hour)
	dead := seedSession(t, s, -time.Minute)

	got, err := s.GetSession(t.Context(), live.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "tok", got.UpstreamToken)

	_, err = s.GetSession(t.Context(), dead.ID, time.Now())
	assert.ErrorIs(t, err, store.ErrNotFound)

	purged, err := s.PurgeExpiredSessions(t.Context(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
}

func TestDeleteSessionDropsItsDrafts(t *testing.T) {
	s := New()
	session := seedSession(t, s, time.Hour)
	other := seedSession(t, s, time.Hour)

	mine, err := s.CreateDraft(t.Context(), domain.DraftRecord{SessionID: session.ID, Kind: domain.DraftSale, Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	theirs, err := s.CreateDraft(t.Context(), domain.DraftRecord{SessionID: other.ID, Kind: domain.DraftSale, Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(t.Context(), session.ID))
	_, err = s.GetDraft(t.Context(), mine.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetDraft(t.Context(), theirs.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, s.DeleteSession(t.Context(), session.ID), store.ErrNotFound)
}

func TestCreateDraftRequiresSession(t *testing.T) {
	s := New()
	_, err := s.CreateDraft(t.Context(), domain.DraftRecord{SessionID: "missing", Kind: domain.DraftSale})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListDraftsFiltersByKind(t *testing.T) {
	s := New()
	session := seedSession(t, s, time.Hour)
	for _, kind := range []string{domain.DraftSale, domain.DraftReturn, domain.DraftSale} {
		_, err := s.CreateDraft(t.Context(), domain.DraftRecord{SessionID: session.ID, Kind: kind, Payload: json.RawMessage(`{}`)})
		require.NoError(t, err)
	}

	all, err := s.ListDrafts(t.Context(), session.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	sales, err := s.ListDrafts(t.Context(), session.ID, domain.DraftSale)
	require.NoError(t, err)
	assert.Len(t, sales, 2)
}

func TestUpdateDraftKeepsIdentityAndRollsBackOnError(t *testing.T) {
	s := New()
	session := seedSession(t, s, time.Hour)
	d, err := s.CreateDraft(t.Context(), domain.DraftRecord{SessionID: session.ID, Kind: domain.DraftSale, Payload: json.RawMessage(`{"n":0}`)})
	require.NoError(t, err)

	updated, err := s.UpdateDraft(t.Context(), d.ID, func(rec *domain.DraftRecord) error {
		rec.Kind = domain.DraftCategory
		rec.Payload = json.RawMessage(`{"n":1}`)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DraftSale, updated.Kind)
	assert.JSONEq(t, `{"n":1}`, string(updated.Payload))

	boom := errors.New("boom")
	_, err = s.UpdateDraft(t.Context(), d.ID, func(rec *domain.DraftRecord) error {
		rec.Payload = json.RawMessage(`{"n":2}`)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetDraft(t.Context(), d.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(got.Payload))
}

func TestUpdateDraftSerializesWriters(t *testing.T) {
	s := New()
	session := seedSession(t, s, time.Hour)
	d, err := s.CreateDraft(t.Context(), domain.DraftRecord{SessionID: session.ID, Kind: domain.DraftSale, Payload: json.RawMessage(`{"n":0}`)})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateDraft(t.Context(), d.ID, func(rec *domain.DraftRecord) error {
				var body struct{ N int }
				if err := json.Unmarshal(rec.Payload, &body); err != nil {
					return err
				}
				body.N++
				raw, err := json.Marshal(map[string]int{"n": body.N})
				rec.Payload = raw
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetDraft(t.Context(), d.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":50}`, string(got.Payload))
}
