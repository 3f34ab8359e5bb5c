package service

import (
	"context"
	"errors"
	"strings"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/store"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/upstream"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/xid"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Login signs in against the backend and opens a gateway session holding the
// backend token.
func (s *Service) Login(ctx context.Context, email string, password string) (domain.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := s.backend.Login(ctx, email, password)
	if err != nil {
		var apiErr *upstream.Error
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return domain.Session{}, ErrInvalidCredentials
		}
		return domain.Session{}, err
	}
	switch res.User.Role {
	case domain.RoleAdmin, domain.RoleManager, domain.RoleSales:
	default:
		return domain.Session{}, ErrForbidden
	}

	now := s.now()
	session, err := s.repo.CreateSession(ctx, domain.Session{
		ID:            xid.New("ses"),
		UserID:        res.User.ID,
		Name:          res.User.Name,
		Email:         res.User.Email,
		Role:          res.User.Role,
		UpstreamToken: res.Token,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.sessionTTL),
	})
	if err != nil {
		return domain.Session{}, err
	}
	s.logger.InfoContext(ctx, "session opened", "session_id", session.ID, "user_id", session.UserID, "role", session.Role)
	return *session, nil
}

// ResolveSession returns a live session or ErrUnauthenticated.
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (domain.Session, error) {
	session, err := s.repo.GetSession(ctx, sessionID, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrUnauthenticated
		}
		return domain.Session{}, err
	}
	return *session, nil
}

// Logout ends the caller's session together with every draft opened in it.
func (s *Service) Logout(ctx context.Context) error {
	session, err := s.authorize(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSession(ctx, session.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	s.logger.InfoContext(ctx, "session closed", "session_id", session.ID)
	return nil
}

// PurgeExpiredSessions drops sessions past their expiry.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int, error) {
	return s.repo.PurgeExpiredSessions(ctx, s.now())
}

func (s *Service) Me(ctx context.Context) (domain.Actor, error) {
	if _, err := s.authorize(ctx); err != nil {
		return domain.Actor{}, err
	}
	actor, _ := ActorFromContext(ctx)
	return actor, nil
}
