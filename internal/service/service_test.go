package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/draft"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/logging"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/store"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/store/memory"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/upstream"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeBackend answers the calls a test sets up. Anything else hits the nil
// embedded interface and panics.
type fakeBackend struct {
	Backend

	mu           sync.Mutex
	productLists int
	products     []domain.Product
	customers    []domain.Customer
	suppliers    []domain.Supplier
	categories   []domain.Category
	schema       []domain.CategoryAttribute
	sales        map[string]domain.Sale
	purchases    map[string]domain.Purchase

	login          func(email, password string) (upstream.LoginResult, error)
	createSale     func(ctx context.Context, req domain.CreateSaleRequest) (domain.Sale, error)
	returnSale     func(id string, req domain.ReturnSaleRequest) (domain.ReturnSaleResult, error)
	cancelSale     func(id string, req domain.CancelSaleRequest) (domain.Sale, error)
	createPurchase func(req domain.CreatePurchaseRequest) (domain.Purchase, error)
	updatePurchase func(id string, req domain.CreatePurchaseRequest) (domain.Purchase, error)
	createCategory func(req domain.CreateCategoryRequest) (domain.Category, error)
	createProduct  func(req domain.ProductRequest) (domain.Product, error)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		products: []domain.Product{
			{ID: "p-rice", Name: "Rice 5kg", SKU: "RICE5", CostPrice: dec("40"), MRP: dec("60"), MinSalePrice: dec("50"), Stock: 10, IsActive: true},
			{ID: "p-oil", Name: "Cooking Oil", SKU: "OIL1", CostPrice: dec("100"), MRP: dec("130"), MinSalePrice: dec("110"), Stock: 3, IsActive: true},
		},
		customers: []domain.Customer{{ID: "cu-1", Name: "Ali", Phone: "0300"}},
		suppliers: []domain.Supplier{{ID: "su-1", Name: "Metro", Phone: "0311"}},
		categories: []domain.Category{
			{ID: "c-food", Name: "Food", Level: 1, Children: []domain.Category{
				{ID: "c-grain", Name: "Grains", Level: 2, Children: []domain.Category{
					{ID: "c-rice", Name: "Rice", Level: 3},
				}},
			}},
		},
		sales:     map[string]domain.Sale{},
		purchases: map[string]domain.Purchase{},
	}
}

func (f *fakeBackend) Login(_ context.Context, email, password string) (upstream.LoginResult, error) {
	return f.login(email, password)
}

func (f *fakeBackend) ListProducts(context.Context, string, url.Values) (domain.Page[domain.Product], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productLists++
	return domain.Page[domain.Product]{Items: f.products}, nil
}

func (f *fakeBackend) ListCustomers(context.Context, string, url.Values) (domain.Page[domain.Customer], error) {
	return domain.Page[domain.Customer]{Items: f.customers}, nil
}

func (f *fakeBackend) ListSuppliers(context.Context, string, url.Values) (domain.Page[domain.Supplier], error) {
	return domain.Page[domain.Supplier]{Items: f.suppliers}, nil
}

func (f *fakeBackend) ListCategories(context.Context, string, url.Values) ([]domain.Category, error) {
	return f.categories, nil
}

func (f *fakeBackend) CategoryAttributes(context.Context, string, string) ([]domain.CategoryAttribute, error) {
	return f.schema, nil
}

func (f *fakeBackend) GetSale(_ context.Context, _ string, id string) (domain.Sale, error) {
	sale, ok := f.sales[id]
	if !ok {
		return domain.Sale{}, &upstream.Error{Status: 404, Message: "Sale not found"}
	}
	return sale, nil
}

func (f *fakeBackend) CreateSale(ctx context.Context, _ string, req domain.CreateSaleRequest) (domain.Sale, error) {
	return f.createSale(ctx, req)
}

func (f *fakeBackend) ReturnSale(_ context.Context, _ string, id string, req domain.ReturnSaleRequest) (domain.ReturnSaleResult, error) {
	return f.returnSale(id, req)
}

func (f *fakeBackend) CancelSale(_ context.Context, _ string, id string, req domain.CancelSaleRequest) (domain.Sale, error) {
	return f.cancelSale(id, req)
}

func (f *fakeBackend) GetPurchase(_ context.Context, _ string, id string) (domain.Purchase, error) {
	p, ok := f.purchases[id]
	if !ok {
		return domain.Purchase{}, &upstream.Error{Status: 404, Message: "Purchase not found"}
	}
	return p, nil
}

func (f *fakeBackend) CreatePurchase(_ context.Context, _ string, req domain.CreatePurchaseRequest) (domain.Purchase, error) {
	return f.createPurchase(req)
}

func (f *fakeBackend) UpdatePurchase(_ context.Context, _ string, id string, req domain.CreatePurchaseRequest) (domain.Purchase, error) {
	return f.updatePurchase(id, req)
}

func (f *fakeBackend) CreateCategory(_ context.Context, _ string, req domain.CreateCategoryRequest) (domain.Category, error) {
	return f.createCategory(req)
}

func (f *fakeBackend) CreateProduct(_ context.Context, _ string, req domain.ProductRequest) (domain.Product, error) {
	return f.createProduct(req)
}

// mapCache is an in-process snapshot cache that ignores expiry.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string][]byte{}
	}
	c.entries[key] = raw
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func newTestService(t *testing.T, backend *fakeBackend, opts Options) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	opts.Logger = logging.Discard()
	return New(repo, backend, opts), repo
}

func signIn(t *testing.T, repo *memory.Store, role string) context.Context {
	t.Helper()
	now := time.Now().UTC()
	session, err := repo.CreateSession(context.Background(), domain.Session{
		ID:            "ses-" + role,
		UserID:        "u-" + role,
		Name:          role,
		Role:          role,
		UpstreamToken: "token-" + role,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Hour),
	})
	require.NoError(t, err)
	return WithSession(context.Background(), *session)
}

func requireRejection(t *testing.T, err error, code string) {
	t.Helper()
	r, ok := draft.AsRejection(err)
	require.Truef(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, code, r.Code)
}

func TestLoginOpensSession(t *testing.T) {
	backend := newFakeBackend()
	backend.login = func(email, password string) (upstream.LoginResult, error) {
		assert.Equal(t, "sara@shop.pk", email)
		if password != "secret" {
			return upstream.LoginResult{}, &upstream.Error{Status: 401, Message: "Invalid credentials"}
		}
		return upstream.LoginResult{Token: "backend-jwt", User: domain.User{ID: "u1", Name: "Sara", Email: email, Role: domain.RoleSales}}, nil
	}
	svc, _ := newTestService(t, backend, Options{})

	_, err := svc.Login(context.Background(), "sara@shop.pk", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := svc.Login(context.Background(), "  Sara@Shop.pk ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "backend-jwt", session.UpstreamToken)
	assert.Equal(t, domain.RoleSales, session.Role)

	resolved, err := svc.ResolveSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", resolved.UserID)

	ctx := WithSession(context.Background(), resolved)
	require.NoError(t, svc.Logout(ctx))
	_, err = svc.ResolveSession(context.Background(), session.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLoginRefusesUnknownRole(t *testing.T) {
	backend := newFakeBackend()
	backend.login = func(email, _ string) (upstream.LoginResult, error) {
		return upstream.LoginResult{Token: "t", User: domain.User{ID: "u2", Email: email, Role: "auditor"}}, nil
	}
	svc, _ := newTestService(t, backend, Options{})

	_, err := svc.Login(context.Background(), "x@shop.pk", "pw")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRoleGates(t *testing.T) {
	svc, repo := newTestService(t, newFakeBackend(), Options{})

	_, err := svc.OpenSaleDraft(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	sales := signIn(t, repo, domain.RoleSales)
	_, err = svc.OpenSaleDraft(sales)
	assert.NoError(t, err)
	_, err = svc.OpenPurchaseDraft(sales)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.OpenCategoryDraft(sales)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.OpenReturnDraft(sales, "s-1")
	assert.ErrorIs(t, err, ErrForbidden)

	manager := signIn(t, repo, domain.RoleManager)
	assert.ErrorIs(t, svc.DeleteProduct(manager, "p-rice"), ErrForbidden)
}

func TestSaleDraftSubmit(t *testing.T) {
	backend := newFakeBackend()
	var sent domain.CreateSaleRequest
	backend.createSale = func(_ context.Context, req domain.CreateSaleRequest) (domain.Sale, error) {
		sent = req
		return domain.Sale{ID: "s-100", GrandTotal: dec("120")}, nil
	}
	svc, repo := newTestService(t, backend, Options{})
	ctx := signIn(t, repo, domain.RoleSales)

	view, err := svc.OpenSaleDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, draft.StateEmpty, view.State)
	assert.False(t, view.Submittable)

	view, err = svc.AddSaleItem(ctx, view.ID, domain.SaleItemInput{ProductID: "p-rice", Quantity: 2})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.True(t, dec("60").Equal(view.Items[0].UnitPrice), "defaults to MRP")
	assert.True(t, dec("120").Equal(view.Total))

	method := domain.PaymentCard
	customer := "cu-1"
	_, err = svc.UpdateSaleDetails(ctx, view.ID, domain.SaleDetailsInput{PaymentMethod: &method, Customer: &customer})
	require.NoError(t, err)

	res, err := svc.SubmitSaleDraft(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "s-100", res.Sale.ID)
	assert.Equal(t, draft.StateSubmitted, res.Draft.State)
	assert.Equal(t, "s-100", res.Draft.ResultID)
	assert.False(t, res.Draft.InFlight)

	assert.Equal(t, domain.PaymentCard, sent.PaymentMethod)
	assert.Equal(t, "cu-1", sent.Customer)
	require.Len(t, sent.Items, 1)
	assert.Equal(t, "p-rice", sent.Items[0].Product)
	assert.Equal(t, 2, sent.Items[0].Quantity)

	_, err = svc.AddSaleItem(ctx, view.ID, domain.SaleItemInput{ProductID: "p-oil", Quantity: 1})
	assert.ErrorIs(t, err, draft.ErrAlreadySubmitted)
}

func TestSaleDraftRejectionLeavesDraftUnchanged(t *testing.T) {
	svc, repo := newTestService(t, newFakeBackend(), Options{})
	ctx := signIn(t, repo, domain.RoleSales)

	view, err := svc.OpenSaleDraft(ctx)
	require.NoError(t, err)
	_, err = svc.AddSaleItem(ctx, view.ID, domain.SaleItemInput{ProductID: "p-oil", Quantity: 2})
	require.NoError(t, err)

	_, err = svc.AddSaleItem(ctx, view.ID, domain.SaleItemInput{ProductID: "p-oil", Quantity: 2})
	requireRejection(t, err, draft.CodeInsufficientStock)

	qty := 1
	low := dec("1")
	_, err = svc.UpdateSaleItem(ctx, view.ID, 0, domain.SaleItemPatch{Quantity: &qty, UnitPrice: &low})
	requireRejection(t, err, draft.CodeBelowMinPrice)

	got, err := svc.GetSaleDraft(ctx, view.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity, "partial patch is not applied")

	unknown := "cu-404"
	_, err = svc.UpdateSaleDetails(ctx, view.ID, domain.SaleDetailsInput{Customer: &unknown})
	requireRejection(t, err, draft.CodeInvalidField)
}

func TestDraftsAreScopedToTheirSession(t *testing.T) {
	svc, repo := newTestService(t, newFakeBackend(), Options{})
	owner := signIn(t, repo, domain.RoleSales)
	other := signIn(t, repo, domain.RoleAdmin)

	view, err := svc.OpenSaleDraft(owner)
	require.NoError(t, err)

	_, err = svc.GetSaleDraft(other, view.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	own, err := svc.OpenSaleDraft(other)
	require.NoError(t, err)
	_, err = svc.GetPurchaseDraft(other, own.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	drafts, err := svc.ListDrafts(owner, "")
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, domain.DraftSale, drafts[0].Kind)
}

func TestSecondSubmitWhileInFlightIsRejected(t *testing.T) {
	backend := newFakeBackend()
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	backend.createSale = func(context.Context, domain.CreateSaleRequest) (domain.Sale, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(started)
		<-release
		return domain.Sale{ID: "s-1"}, nil
	}
	svc, repo := newTestService(t, backend, Options{})
	ctx := signIn(t, repo, domain.RoleSales)

	view, err := svc.OpenSaleDraft(ctx)
	require.NoError(t, err)
	_, err = svc.AddSaleItem(ctx, view.ID, domain.SaleItemInput{ProductID: "p-rice", Quantity: 1})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.SubmitSaleDraft(ctx, view.ID)
		done <- err
	}()
	<-started

	_, err = svc.SubmitSaleDraft(ctx, view.ID)
	assert.ErrorIs(t, err, draft.ErrSubmitInFlight)
	_, err = svc.AddSaleItem(ctx, view.ID, domain.SaleItemInput{ProductID: "p-oil", Quantity: 1})
	assert.ErrorIs(t, err, draft.ErrSubmitInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, calls)
}

func TestFailedSubmitKeepsDraftEditable(t *testing.T) {
	backend := newFakeBackend()
	backend.createSale = func(context.Context, domain.CreateSaleRequest) (domain.Sale, error) {
		return domain.Sale{}, &upstream.Error{Status: 400, Message: "Insufficient stock for Rice 5kg"}
	}
	svc, repo := newTestService(t, backend, Options{})
	ctx := signIn(t, repo, domain.RoleSales)

	view, err := svc.OpenSaleDraft(ctx)
	require.NoError(t, err)
	_, err = svc.AddSaleItem(ctx, view.ID, domain.SaleItemInput{ProductID: "p-rice", Quantity: 3})
	require.NoError(t, err)

	res, err := svc.SubmitSaleDraft(ctx, view.ID)
	require.Error(t, err)
	var apiErr *upstream.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, draft.StateFailed, res.Draft.State)
	assert.Equal(t, "Insufficient stock for Rice 5kg", res.Draft.LastError)
	require.Len(t, res.Draft.Items, 1)
	assert.Equal(t, 3, res.Draft.Items[0].Quantity)

	view, err = svc.AddSaleItem(ctx, view.ID, domain.SaleItemInput{ProductID: "p-oil", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, draft.StateBuilding, view.State)
	assert.Empty(t, view.LastError)
}

func TestUpstreamUnauthorizedEndsSession(t *testing.T) {
	backend := newFakeBackend()
	backend.createSale = func(context.Context, domain.CreateSaleRequest) (domain.Sale, error) {
		return domain.Sale{}, &upstream.Error{Status: 401, Message: "Token expired"}
	}
	svc, repo := newTestService(t, backend, Options{})
	ctx := signIn(t, repo, domain.RoleSales)

	view, err := svc.OpenSaleDraft(ctx)
	require.NoError(t, err)
	_, err = svc.AddSaleItem(ctx, view.ID, domain.SaleItemInput{ProductID: "p-rice", Quantity: 1})
	require.NoError(t, err)

	_, err = svc.SubmitSaleDraft(ctx, view.ID)
	assert.ErrorIs(t, err, upstream.ErrUnauthorized)

	_, err = svc.ResolveSession(context.Background(), "ses-"+domain.RoleSales)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestDiscardDuringSubmitDropsResult(t *testing.T) {
	backend := newFakeBackend()
	started := make(chan struct{})
	release := make(chan struct{})
	backend.createSale = func(context.Context, domain.CreateSaleRequest) (domain.Sale, error) {
		close(started)
		<-release
		return domain.Sale{ID: "s-late"}, nil
	}
	svc, repo := newTestService(t, backend, Options{})
	ctx := signIn(t, repo, domain.RoleSales)

	view, err := svc.OpenSaleDraft(ctx)
	require.NoError(t, err)
	_, err = svc.AddSaleItem(ctx, view.ID, domain.SaleItemInput{ProductID: "p-rice", Quantity: 1})
	require.NoError(t, err)

	type outcome struct {
		res SaleSubmitResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := svc.SubmitSaleDraft(ctx, view.ID)
		done <- outcome{res, err}
	}()
	<-started
	require.NoError(t, svc.DiscardDraft(ctx, domain.DraftSale, view.ID))
	close(release)

	out := <-done
	require.NoError(t, out.err)
	assert.Nil(t, out.res.Draft)
	assert.Equal(t, "s-late", out.res.Sale.ID)

	_, err = repo.GetDraft(context.Background(), view.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStrandedInFlightDraftCanOnlyBeDiscarded(t *testing.T) {
	svc, repo := newTestService(t, newFakeBackend(), Options{})
	ctx := signIn(t, repo, domain.RoleSales)

	view, err := svc.OpenSaleDraft(ctx)
	require.NoError(t, err)
	_, err = svc.AddSaleItem(ctx, view.ID, domain.SaleItemInput{ProductID: "p-rice", Quantity: 1})
	require.NoError(t, err)

	// the submission started but its outcome was never recorded
	_, err = repo.UpdateDraft(context.Background(), view.ID, func(rec *domain.DraftRecord) error {
		var d draft.SaleDraft
		if err := json.Unmarshal(rec.Payload, &d); err != nil {
			return err
		}
		if err := d.BeginSubmit(); err != nil {
			return err
		}
		payload, err := json.Marshal(&d)
		rec.Payload = payload
		return err
	})
	require.NoError(t, err)

	_, err = svc.AddSaleItem(ctx, view.ID, domain.SaleItemInput{ProductID: "p-oil", Quantity: 1})
	assert.ErrorIs(t, err, draft.ErrSubmitInFlight)
	_, err = svc.SubmitSaleDraft(ctx, view.ID)
	assert.ErrorIs(t, err, draft.ErrSubmitInFlight)

	require.NoError(t, svc.DiscardDraft(ctx, domain.DraftSale, view.ID))
	_, err = repo.GetDraft(context.Background(), view.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProductSnapshotIsCachedUntilStockChanges(t *testing.T) {
	backend := newFakeBackend()
	backend.createSale = func(context.Context, domain.CreateSaleRequest) (domain.Sale, error) {
		return domain.Sale{ID: "s-1"}, nil
	}
	svc, repo := newTestService(t, backend, Options{Cache: &mapCache{}})
	ctx := signIn(t, repo, domain.RoleSales)

	first, err := svc.OpenSaleDraft(ctx)
	require.NoError(t, err)
	_, err = svc.OpenSaleDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.productLists)

	_, err = svc.AddSaleItem(ctx, first.ID, domain.SaleItemInput{ProductID: "p-rice", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.SubmitSaleDraft(ctx, first.ID)
	require.NoError(t, err)

	_, err = svc.OpenSaleDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.productLists)
}

func settledSale() domain.Sale {
	return domain.Sale{
		ID:     "s-7",
		Status: domain.SalePartiallyReturned,
		Items: []domain.SaleItem{
			{ID: "it-1", Product: domain.Ref{ID: "p-rice", Name: "Rice 5kg"}, Quantity: 3, ReturnedQuantity: 1, UnitSalePrice: dec("55")},
			{ID: "it-2", Product: domain.Ref{ID: "p-oil", Name: "Cooking Oil"}, Quantity: 1, UnitSalePrice: dec("120")},
		},
	}
}

func TestReturnDraftClampsAndSubmits(t *testing.T) {
	backend := newFakeBackend()
	backend.sales["s-7"] = settledSale()
	var sent domain.ReturnSaleRequest
	backend.returnSale = func(id string, req domain.ReturnSaleRequest) (domain.ReturnSaleResult, error) {
		assert.Equal(t, "s-7", id)
		sent = req
		return domain.ReturnSaleResult{Sale: domain.Sale{ID: id, Status: domain.SaleReturned}, RefundAmount: dec("110")}, nil
	}
	svc, repo := newTestService(t, backend, Options{})
	ctx := signIn(t, repo, domain.RoleManager)

	view, err := svc.OpenReturnDraft(ctx, "s-7")
	require.NoError(t, err)
	require.Len(t, view.Lines, 2)
	assert.Equal(t, 2, view.Lines[0].MaxReturnable)

	view, err = svc.SetReturnQuantity(ctx, view.ID, domain.ReturnQuantityInput{ItemID: "it-1", Quantity: "9"})
	require.NoError(t, err)
	assert.Equal(t, 2, view.Lines[0].ReturnQuantity)

	view, err = svc.SetReturnQuantity(ctx, view.ID, domain.ReturnQuantityInput{ItemID: "it-2", Quantity: "abc"})
	require.NoError(t, err)
	assert.Equal(t, 0, view.Lines[1].ReturnQuantity)
	assert.True(t, dec("110").Equal(view.TotalRefund))
	assert.False(t, view.Submittable, "reason missing")

	_, err = svc.SubmitReturnDraft(ctx, view.ID)
	requireRejection(t, err, draft.CodeNotSubmittable)

	_, err = svc.SetReturnReason(ctx, view.ID, domain.ReturnReasonInput{Reason: "damaged bag"})
	require.NoError(t, err)
	res, err := svc.SubmitReturnDraft(ctx, view.ID)
	require.NoError(t, err)
	assert.True(t, dec("110").Equal(res.Result.RefundAmount))
	assert.Equal(t, "damaged bag", sent.Reason)
	assert.Equal(t, []domain.ReturnItemRequest{{ItemID: "it-1", Quantity: 2}}, sent.ReturnItems)
}

func TestReturnDraftRefusedForCancelledSale(t *testing.T) {
	backend := newFakeBackend()
	sale := settledSale()
	sale.Status = domain.SaleCancelled
	backend.sales[sale.ID] = sale
	svc, repo := newTestService(t, backend, Options{})
	ctx := signIn(t, repo, domain.RoleAdmin)

	_, err := svc.OpenReturnDraft(ctx, sale.ID)
	requireRejection(t, err, draft.CodeSaleNotReturnable)

	_, err = svc.OpenReturnDraft(ctx, "s-missing")
	var apiErr *upstream.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
}

func TestCancelSaleChecksPinAndStatus(t *testing.T) {
	backend := newFakeBackend()
	backend.sales["s-7"] = settledSale()
	returned := settledSale()
	returned.ID = "s-8"
	returned.Status = domain.SaleReturned
	backend.sales["s-8"] = returned
	var reason string
	backend.cancelSale = func(id string, req domain.CancelSaleRequest) (domain.Sale, error) {
		reason = req.Reason
		return domain.Sale{ID: id, Status: domain.SaleCancelled}, nil
	}
	svc, repo := newTestService(t, backend, Options{VerifyPIN: func(pin string) bool { return pin == "4827" }})
	ctx := signIn(t, repo, domain.RoleManager)

	_, err := svc.CancelSale(ctx, "s-7", domain.CancelSaleInput{ManagerPIN: "0000"})
	assert.ErrorIs(t, err, ErrInvalidPIN)

	_, err = svc.CancelSale(ctx, "s-8", domain.CancelSaleInput{ManagerPIN: "4827"})
	requireRejection(t, err, draft.CodeSaleNotCancellable)

	sale, err := svc.CancelSale(ctx, "s-7", domain.CancelSaleInput{ManagerPIN: "4827"})
	require.NoError(t, err)
	assert.Equal(t, domain.SaleCancelled, sale.Status)
	assert.Equal(t, "Cancelled by user", reason)

	_, err = svc.CancelSale(signIn(t, repo, domain.RoleSales), "s-7", domain.CancelSaleInput{ManagerPIN: "4827"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPurchaseDraftCreatesAndEdits(t *testing.T) {
	backend := newFakeBackend()
	backend.purchases["pu-1"] = domain.Purchase{
		ID:           "pu-1",
		Supplier:     domain.Ref{ID: "su-1"},
		Status:       domain.PurchasePending,
		PurchaseDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Items:        []domain.PurchaseItem{{Product: domain.Ref{ID: "p-oil", Name: "Cooking Oil"}, Quantity: 4, UnitCost: dec("95")}},
	}
	var created, updated domain.CreatePurchaseRequest
	var updatedID string
	backend.createPurchase = func(req domain.CreatePurchaseRequest) (domain.Purchase, error) {
		created = req
		return domain.Purchase{ID: "pu-2"}, nil
	}
	backend.updatePurchase = func(id string, req domain.CreatePurchaseRequest) (domain.Purchase, error) {
		updatedID, updated = id, req
		return domain.Purchase{ID: id}, nil
	}
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	svc, repo := newTestService(t, backend, Options{Now: func() time.Time { return now }})
	ctx := signIn(t, repo, domain.RoleManager)

	view, err := svc.OpenPurchaseDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", view.PurchaseDate)

	view, err = svc.AddPurchaseItem(ctx, view.ID, domain.PurchaseItemInput{ProductID: "p-rice", Quantity: 5})
	require.NoError(t, err)
	assert.True(t, dec("200").Equal(view.TotalAmount), "defaults to cost price")
	assert.False(t, view.Submittable)

	ghost := "su-404"
	_, err = svc.UpdatePurchaseDetails(ctx, view.ID, domain.PurchaseDetailsInput{Supplier: &ghost})
	requireRejection(t, err, draft.CodeInvalidField)

	supplier := "su-1"
	view, err = svc.UpdatePurchaseDetails(ctx, view.ID, domain.PurchaseDetailsInput{Supplier: &supplier})
	require.NoError(t, err)
	assert.True(t, view.Submittable)

	_, err = svc.SubmitPurchaseDraft(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "su-1", created.Supplier)
	assert.Equal(t, domain.PurchasePending, created.Status)

	edit, err := svc.OpenPurchaseEditDraft(ctx, "pu-1")
	require.NoError(t, err)
	assert.Equal(t, "pu-1", edit.PurchaseID)
	assert.Equal(t, "2026-03-02", edit.PurchaseDate)
	qty := 6
	_, err = svc.UpdatePurchaseItem(ctx, edit.ID, 0, domain.PurchaseItemPatch{Quantity: &qty})
	require.NoError(t, err)

	res, err := svc.SubmitPurchaseDraft(ctx, edit.ID)
	require.NoError(t, err)
	assert.Equal(t, "pu-1", res.Purchase.ID)
	assert.Equal(t, "pu-1", updatedID)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, 6, updated.Items[0].Quantity)
}

func TestCategoryDepthRejectionIsKeptOnDraft(t *testing.T) {
	svc, repo := newTestService(t, newFakeBackend(), Options{})
	ctx := signIn(t, repo, domain.RoleAdmin)

	view, err := svc.OpenCategoryDraft(ctx)
	require.NoError(t, err)
	require.Len(t, view.Attributes, 1)
	assert.NotEmpty(t, view.Problem)

	view, err = svc.SetCategoryParent(ctx, view.ID, domain.CategoryParentInput{ParentID: "c-grain"})
	require.NoError(t, err)
	assert.Equal(t, 3, view.Level)

	view, err = svc.SetCategoryParent(ctx, view.ID, domain.CategoryParentInput{ParentID: "c-rice"})
	requireRejection(t, err, draft.CodeDepthExceeded)
	require.NotNil(t, view)
	assert.Empty(t, view.Parent)
	assert.Equal(t, 1, view.Level)
	assert.NotEmpty(t, view.Error)

	stored, err := svc.GetCategoryDraft(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.Error, stored.Error)
}

func TestCategoryDraftSubmitsSchema(t *testing.T) {
	backend := newFakeBackend()
	var sent domain.CreateCategoryRequest
	backend.createCategory = func(req domain.CreateCategoryRequest) (domain.Category, error) {
		sent = req
		return domain.Category{ID: "c-new"}, nil
	}
	svc, repo := newTestService(t, backend, Options{})
	ctx := signIn(t, repo, domain.RoleManager)

	view, err := svc.OpenCategoryDraft(ctx)
	require.NoError(t, err)
	name := "Cooking Oil"
	_, err = svc.UpdateCategoryDetails(ctx, view.ID, domain.CategoryDetailsInput{Name: &name})
	require.NoError(t, err)

	attrName, label, kind, minV := "volume", "Volume (L)", domain.AttributeNumber, "0.5"
	_, err = svc.UpdateCategoryAttribute(ctx, view.ID, 0, domain.AttributePatchInput{Name: &attrName, Label: &label, Type: &kind, Min: &minV})
	require.NoError(t, err)

	_, err = svc.AddCategoryAttribute(ctx, view.ID, &domain.AttributeInput{Name: "brand", Label: "Brand", Type: domain.AttributeSelect})
	require.NoError(t, err)
	view, err = svc.GetCategoryDraft(ctx, view.ID)
	require.NoError(t, err)
	assert.False(t, view.Submittable, "select without options")

	_, err = svc.AddAttributeOption(ctx, view.ID, 1, domain.AttributeOptionInput{Option: " Dalda "})
	require.NoError(t, err)
	_, err = svc.SetCategoryParent(ctx, view.ID, domain.CategoryParentInput{ParentID: "c-food"})
	require.NoError(t, err)

	res, err := svc.SubmitCategoryDraft(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "c-new", res.Category.ID)
	assert.Equal(t, "Cooking Oil", sent.Name)
	assert.Equal(t, "c-food", sent.Parent)
	assert.Equal(t, 2, sent.Level)
	require.Len(t, sent.Attributes, 2)
	require.NotNil(t, sent.Attributes[0].Validation)
	assert.Equal(t, 0.5, *sent.Attributes[0].Validation.Min)
	assert.Nil(t, sent.Attributes[0].Validation.Max)
	assert.Equal(t, []string{"Dalda"}, sent.Attributes[1].Options)
}

func TestCreateProductTypesAttributes(t *testing.T) {
	backend := newFakeBackend()
	minWeight := 1.0
	backend.schema = []domain.CategoryAttribute{
		{Name: "weight", Label: "Weight", Type: domain.AttributeNumber, Required: true, Validation: &domain.AttributeValidation{Min: &minWeight}},
		{Name: "organic", Label: "Organic", Type: domain.AttributeBoolean, Required: true},
	}
	var sent domain.ProductRequest
	backend.createProduct = func(req domain.ProductRequest) (domain.Product, error) {
		sent = req
		return domain.Product{ID: "p-new", SKU: req.SKU}, nil
	}
	svc, repo := newTestService(t, backend, Options{})
	ctx := signIn(t, repo, domain.RoleAdmin)

	req := domain.ProductRequest{Name: "Basmati", SKU: "BAS5", Category: "c-rice", Attributes: map[string]any{"weight": "0.5", "organic": false}}
	_, err := svc.CreateProduct(ctx, req)
	requireRejection(t, err, draft.CodeInvalidAttribute)

	req.Attributes = map[string]any{"weight": "5", "organic": false}
	product, err := svc.CreateProduct(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "p-new", product.ID)
	assert.Equal(t, map[string]any{"weight": 5.0, "organic": false}, sent.Attributes)

	form, err := svc.ProductAttributeForm(ctx, "c-rice")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"weight": 0.0, "organic": false}, form.Defaults)
}

func TestPurgeExpiredSessions(t *testing.T) {
	now := time.Now().UTC()
	svc, repo := newTestService(t, newFakeBackend(), Options{Now: func() time.Time { return now.Add(2 * time.Hour) }})
	signIn(t, repo, domain.RoleSales)

	n, err := svc.PurgeExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = svc.ResolveSession(context.Background(), "ses-"+domain.RoleSales)
	assert.True(t, errors.Is(err, ErrUnauthenticated))
}
