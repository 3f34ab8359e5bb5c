package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/cache"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/store"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/upstream"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient role")
	ErrInvalidPIN      = errors.New("manager pin is invalid")
)

// Backend is the remote POS API as the service uses it.
type Backend interface {
	Login(ctx context.Context, email, password string) (upstream.LoginResult, error)
	Dashboard(ctx context.Context, token string) (json.RawMessage, error)

	ListProducts(ctx context.Context, token string, query url.Values) (domain.Page[domain.Product], error)
	LowStockProducts(ctx context.Context, token string) ([]domain.Product, error)
	GetProduct(ctx context.Context, token, id string) (domain.Product, error)
	CreateProduct(ctx context.Context, token string, req domain.ProductRequest) (domain.Product, error)
	UpdateProduct(ctx context.Context, token, id string, req domain.ProductRequest) (domain.Product, error)
	DeleteProduct(ctx context.Context, token, id string) error

	ListCustomers(ctx context.Context, token string, query url.Values) (domain.Page[domain.Customer], error)
	GetCustomer(ctx context.Context, token, id string) (domain.Customer, error)
	CreateCustomer(ctx context.Context, token string, req domain.CustomerRequest) (domain.Customer, error)
	UpdateCustomer(ctx context.Context, token, id string, req domain.CustomerRequest) (domain.Customer, error)

	ListSuppliers(ctx context.Context, token string, query url.Values) (domain.Page[domain.Supplier], error)
	GetSupplier(ctx context.Context, token, id string) (domain.Supplier, error)
	CreateSupplier(ctx context.Context, token string, req domain.SupplierRequest) (domain.Supplier, error)
	UpdateSupplier(ctx context.Context, token, id string, req domain.SupplierRequest) (domain.Supplier, error)
	DeleteSupplier(ctx context.Context, token, id string) error

	ListCategories(ctx context.Context, token string, query url.Values) ([]domain.Category, error)
	CategoryTree(ctx context.Context, token string) ([]domain.Category, error)
	GetCategory(ctx context.Context, token, id string) (domain.Category, error)
	CategoryAttributes(ctx context.Context, token, id string) ([]domain.CategoryAttribute, error)
	CreateCategory(ctx context.Context, token string, req domain.CreateCategoryRequest) (domain.Category, error)
	UpdateCategory(ctx context.Context, token, id string, req domain.CreateCategoryRequest) (domain.Category, error)
	DeactivateCategory(ctx context.Context, token, id string) error

	ListPurchases(ctx context.Context, token string, query url.Values) (domain.Page[domain.Purchase], error)
	GetPurchase(ctx context.Context, token, id string) (domain.Purchase, error)
	CreatePurchase(ctx context.Context, token string, req domain.CreatePurchaseRequest) (domain.Purchase, error)
	UpdatePurchase(ctx context.Context, token, id string, req domain.CreatePurchaseRequest) (domain.Purchase, error)
	UpdatePurchaseStatus(ctx context.Context, token, id, status string) (domain.Purchase, error)
	DeletePurchase(ctx context.Context, token, id string) error

	ListSales(ctx context.Context, token string, query url.Values) (domain.Page[domain.Sale], error)
	GetSale(ctx context.Context, token, id string) (domain.Sale, error)
	CreateSale(ctx context.Context, token string, req domain.CreateSaleRequest) (domain.Sale, error)
	ReturnSale(ctx context.Context, token, id string, req domain.ReturnSaleRequest) (domain.ReturnSaleResult, error)
	CancelSale(ctx context.Context, token, id string, req domain.CancelSaleRequest) (domain.Sale, error)
	SalesAnalytics(ctx context.Context, token string, days int) (json.RawMessage, error)
}

// RoleChecker answers whether the caller in ctx holds one of roles.
type RoleChecker func(ctx context.Context, roles ...string) bool

type Options struct {
	Logger      *slog.Logger
	Cache       cache.SnapshotCache
	SnapshotTTL time.Duration
	SessionTTL  time.Duration
	HasAnyRole  RoleChecker
	// VerifyPIN is nil when cancelling a sale needs no manager PIN.
	VerifyPIN func(pin string) bool
	Now       func() time.Time
}

type Service struct {
	repo        store.Repository
	backend     Backend
	cache       cache.SnapshotCache
	snapshotTTL time.Duration
	sessionTTL  time.Duration
	hasAnyRole  RoleChecker
	verifyPIN   func(pin string) bool
	logger      *slog.Logger
	now         func() time.Time
}

func New(repo store.Repository, backend Backend, opts Options) *Service {
	s := &Service{
		repo:        repo,
		backend:     backend,
		cache:       opts.Cache,
		snapshotTTL: opts.SnapshotTTL,
		sessionTTL:  opts.SessionTTL,
		hasAnyRole:  opts.HasAnyRole,
		verifyPIN:   opts.VerifyPIN,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	if s.cache == nil {
		s.cache = cache.NoopSnapshotCache{}
	}
	if s.snapshotTTL <= 0 {
		s.snapshotTTL = 20 * time.Second
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = 8 * time.Hour
	}
	if s.hasAnyRole == nil {
		s.hasAnyRole = actorHasAnyRole
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

type sessionContextKey struct{}

// WithSession attaches an authenticated gateway session to ctx.
func WithSession(ctx context.Context, session domain.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

func sessionFromContext(ctx context.Context) (domain.Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(domain.Session)
	return session, ok
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	session, ok := sessionFromContext(ctx)
	if !ok {
		return domain.Actor{}, false
	}
	return domain.Actor{
		UserID:    session.UserID,
		Name:      session.Name,
		Role:      session.Role,
		SessionID: session.ID,
	}, true
}

func actorHasAnyRole(ctx context.Context, roles ...string) bool {
	actor, ok := ActorFromContext(ctx)
	return ok && actor.HasAnyRole(roles...)
}

// authorize returns the caller's session after checking roles. An empty roles
// list admits any signed-in user.
func (s *Service) authorize(ctx context.Context, roles ...string) (domain.Session, error) {
	session, ok := sessionFromContext(ctx)
	if !ok {
		return domain.Session{}, ErrUnauthenticated
	}
	if len(roles) > 0 && !s.hasAnyRole(ctx, roles...) {
		return domain.Session{}, ErrForbidden
	}
	return session, nil
}

var (
	backOffice = []string{domain.RoleAdmin, domain.RoleManager}
	adminOnly  = []string{domain.RoleAdmin}
)

// upstreamErr ends the gateway session when the backend no longer accepts its
// token.
func (s *Service) upstreamErr(ctx context.Context, session domain.Session, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, upstream.ErrUnauthorized) {
		if delErr := s.repo.DeleteSession(ctx, session.ID); delErr != nil && !errors.Is(delErr, store.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to end session after upstream 401", "session_id", session.ID, "error", delErr)
		} else {
			s.logger.InfoContext(ctx, "session ended by upstream", "session_id", session.ID)
		}
	}
	return err
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, attrs ...any) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{UserID: "system", Role: "system"}
	}
	args := append([]any{
		"action", action,
		"entity_type", entityType,
		"entity_id", entityID,
		"actor_id", actor.UserID,
		"actor_role", actor.Role,
	}, attrs...)
	s.logger.InfoContext(ctx, "audit", args...)
}
