package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/draft"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/metrics"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/store"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/upstream"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/xid"
)

// lifecycled is a pointer to one of the draft kinds.
type lifecycled[D any] interface {
	*D
	Current() *draft.Lifecycle
	Submittable() bool
}

// DraftSummary is one row of the caller's open drafts.
type DraftSummary struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Lifecycle draft.Lifecycle `json:"lifecycle"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (s *Service) ListDrafts(ctx context.Context, kind string) ([]DraftSummary, error) {
	session, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListDrafts(ctx, session.ID, kind)
	if err != nil {
		return nil, err
	}
	out := make([]DraftSummary, 0, len(records))
	for _, rec := range records {
		var lc draft.Lifecycle
		if err := json.Unmarshal(rec.Payload, &lc); err != nil {
			return nil, fmt.Errorf("decode draft %s: %w", rec.ID, err)
		}
		out = append(out, DraftSummary{
			ID:        rec.ID,
			Kind:      rec.Kind,
			Lifecycle: lc,
			UpdatedAt: rec.UpdatedAt.UTC(),
		})
	}
	return out, nil
}

// DiscardDraft deletes one of the caller's drafts. A submission still in
// flight for it completes upstream but its result is not recorded.
func (s *Service) DiscardDraft(ctx context.Context, kind string, id string) error {
	session, err := s.authorize(ctx)
	if err != nil {
		return err
	}
	rec, err := s.repo.GetDraft(ctx, id)
	if err != nil {
		return err
	}
	if rec.SessionID != session.ID || rec.Kind != kind {
		return store.ErrNotFound
	}
	if err := s.repo.DeleteDraft(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "draft discarded", "draft_id", id, "kind", kind)
	return nil
}

func openDraft[D any, P lifecycled[D]](ctx context.Context, s *Service, session domain.Session, kind string, d P) (string, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	rec, err := s.repo.CreateDraft(ctx, domain.DraftRecord{
		ID:        xid.New(kind),
		SessionID: session.ID,
		Kind:      kind,
		Payload:   payload,
	})
	if err != nil {
		return "", err
	}
	s.logger.DebugContext(ctx, "draft opened", "draft_id", rec.ID, "kind", kind)
	return rec.ID, nil
}

func decodeDraft[D any, P lifecycled[D]](rec *domain.DraftRecord) (P, error) {
	d := P(new(D))
	if err := json.Unmarshal(rec.Payload, d); err != nil {
		return nil, fmt.Errorf("decode %s draft %s: %w", rec.Kind, rec.ID, err)
	}
	return d, nil
}

func loadDraft[D any, P lifecycled[D]](ctx context.Context, s *Service, session domain.Session, kind string, id string) (P, error) {
	rec, err := s.repo.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.SessionID != session.ID || rec.Kind != kind {
		return nil, store.ErrNotFound
	}
	return decodeDraft[D, P](rec)
}

// mutateDraft applies fn to the stored draft under the store's lock. A
// rejection is returned to the caller but whatever fn left on the draft is
// still saved, so operations that record an error on the draft keep it.
func mutateDraft[D any, P lifecycled[D]](ctx context.Context, s *Service, session domain.Session, kind string, id string, fn func(P) error) (P, error) {
	var out P
	var rejection error
	_, err := s.repo.UpdateDraft(ctx, id, func(rec *domain.DraftRecord) error {
		if rec.SessionID != session.ID || rec.Kind != kind {
			return store.ErrNotFound
		}
		d, err := decodeDraft[D, P](rec)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			if _, ok := draft.AsRejection(err); !ok {
				return err
			}
			rejection = err
		}
		payload, err := json.Marshal(d)
		if err != nil {
			return err
		}
		rec.Payload = payload
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		s.recordRejection(ctx, kind, id, rejection)
		return out, rejection
	}
	return out, nil
}

func (s *Service) recordRejection(ctx context.Context, kind string, id string, err error) {
	if r, ok := draft.AsRejection(err); ok {
		metrics.RecordRejection(r.Code)
		s.logger.DebugContext(ctx, "draft change rejected", "draft_id", id, "kind", kind, "code", r.Code, "reason", r.Message)
	}
}

// submission is what a draft hands over once it is frozen: the backend call to
// make and how to read the created record's id.
type submission[R any] struct {
	send     func(ctx context.Context, token string) (R, error)
	resultID func(R) string
}

// submitDraft runs the Building -> Submitting -> Submitted|Failed transition.
// Freezing and recording the outcome each happen under the store's lock, the
// backend call happens outside it. A second submit while the first is in
// flight fails with draft.ErrSubmitInFlight.
func submitDraft[D any, P lifecycled[D], R any](ctx context.Context, s *Service, session domain.Session, kind string, id string, prepare func(P) (submission[R], error)) (P, R, error) {
	var zero R
	var sub submission[R]
	_, err := s.repo.UpdateDraft(ctx, id, func(rec *domain.DraftRecord) error {
		if rec.SessionID != session.ID || rec.Kind != kind {
			return store.ErrNotFound
		}
		d, err := decodeDraft[D, P](rec)
		if err != nil {
			return err
		}
		if d.Current().InFlight {
			return draft.ErrSubmitInFlight
		}
		if !d.Submittable() {
			return &draft.Rejection{Code: draft.CodeNotSubmittable, Message: "draft is not ready to submit"}
		}
		sub, err = prepare(d)
		if err != nil {
			return err
		}
		if err := d.Current().BeginSubmit(); err != nil {
			return err
		}
		payload, err := json.Marshal(d)
		if err != nil {
			return err
		}
		rec.Payload = payload
		return nil
	})
	if err != nil {
		s.recordRejection(ctx, kind, id, err)
		return nil, zero, err
	}

	result, sendErr := sub.send(ctx, session.UpstreamToken)
	sendErr = s.upstreamErr(ctx, session, sendErr)

	// The outcome is recorded even when the caller went away.
	recordCtx := context.WithoutCancel(ctx)
	var out P
	_, err = s.repo.UpdateDraft(recordCtx, id, func(rec *domain.DraftRecord) error {
		d, err := decodeDraft[D, P](rec)
		if err != nil {
			return err
		}
		if sendErr != nil {
			d.Current().Fail(upstream.Message(sendErr))
		} else {
			d.Current().Complete(sub.resultID(result))
		}
		payload, err := json.Marshal(d)
		if err != nil {
			return err
		}
		rec.Payload = payload
		out = d
		return nil
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.logger.InfoContext(ctx, "draft discarded before submission finished", "draft_id", id, "kind", kind)
	case err != nil:
		s.logger.ErrorContext(ctx, "failed to record submission outcome", "draft_id", id, "kind", kind, "error", err)
	}

	if sendErr != nil {
		metrics.RecordSubmission(kind, "failed")
		s.logger.WarnContext(ctx, "draft submission failed", "draft_id", id, "kind", kind, "error", sendErr)
		return out, zero, sendErr
	}
	metrics.RecordSubmission(kind, "submitted")
	s.logAudit(ctx, kind+"_submit", kind, sub.resultID(result), "draft_id", id)
	return out, result, nil
}
