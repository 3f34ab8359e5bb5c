package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
)

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}
	var req domain.LoginRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	session, err := a.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	token, expiresAt, err := a.auth.Issue(session)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.LoginResponse{
		AccessToken: token,
		Role:        session.Role,
		Name:        session.Name,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.service.Logout(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, err := a.service.Me(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": actor, "manager_pin_required": a.auth.PINRequired()})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := a.service.Dashboard(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dashboard": stats})
}

// catalogRoutes mirror the backend's record endpoints. Role checks live in
// the service.
func (a *API) catalogRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", a.handleListProducts)
		r.Post("/", a.handleCreateProduct)
		r.Get("/low-stock", a.handleLowStock)
		r.Get("/{id}", a.handleGetProduct)
		r.Put("/{id}", a.handleUpdateProduct)
		r.Delete("/{id}", a.handleDeleteProduct)
	})
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", a.handleListCustomers)
		r.Post("/", a.handleCreateCustomer)
		r.Get("/{id}", a.handleGetCustomer)
		r.Put("/{id}", a.handleUpdateCustomer)
	})
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", a.handleListSuppliers)
		r.Post("/", a.handleCreateSupplier)
		r.Get("/{id}", a.handleGetSupplier)
		r.Put("/{id}", a.handleUpdateSupplier)
		r.Delete("/{id}", a.handleDeleteSupplier)
	})
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", a.handleListCategories)
		r.Get("/tree", a.handleCategoryTree)
		r.Get("/{id}", a.handleGetCategory)
		r.Get("/{id}/attributes", a.handleCategoryAttributes)
		r.Get("/{id}/product-form", a.handleProductAttributeForm)
		r.Delete("/{id}", a.handleDeactivateCategory)
	})
	r.Route("/purchases", func(r chi.Router) {
		r.Get("/", a.handleListPurchases)
		r.Get("/{id}", a.handleGetPurchase)
		r.Patch("/{id}/status", a.handlePurchaseStatus)
		r.Delete("/{id}", a.handleDeletePurchase)
	})
	r.Route("/sales", func(r chi.Router) {
		r.Get("/", a.handleListSales)
		r.Get("/analytics", a.handleSalesAnalytics)
		r.Get("/{id}", a.handleGetSale)
		r.Post("/{id}/cancel", a.handleCancelSale)
	})
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := a.service.ListProducts(r.Context(), r.URL.Query())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": page.Items, "pagination": page.Pagination})
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.LowStockProducts(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	product, err := a.service.CreateProduct(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": product})
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	product, err := a.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	page, err := a.service.ListCustomers(r.Context(), r.URL.Query())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": page.Items, "pagination": page.Pagination})
}

func (a *API) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := a.service.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customer": customer})
}

func (a *API) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	customer, err := a.service.CreateCustomer(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"customer": customer})
}

func (a *API) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	customer, err := a.service.UpdateCustomer(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customer": customer})
}

func (a *API) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	page, err := a.service.ListSuppliers(r.Context(), r.URL.Query())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suppliers": page.Items, "pagination": page.Pagination})
}

func (a *API) handleGetSupplier(w http.ResponseWriter, r *http.Request) {
	supplier, err := a.service.GetSupplier(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"supplier": supplier})
}

func (a *API) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req domain.SupplierRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	supplier, err := a.service.CreateSupplier(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"supplier": supplier})
}

func (a *API) handleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var req domain.SupplierRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	supplier, err := a.service.UpdateSupplier(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"supplier": supplier})
}

func (a *API) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteSupplier(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.service.ListCategories(r.Context(), r.URL.Query())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (a *API) handleCategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := a.service.CategoryTree(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": tree})
}

func (a *API) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := a.service.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": category})
}

func (a *API) handleCategoryAttributes(w http.ResponseWriter, r *http.Request) {
	attrs, err := a.service.CategoryAttributes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attributes": attrs})
}

func (a *API) handleProductAttributeForm(w http.ResponseWriter, r *http.Request) {
	form, err := a.service.ProductAttributeForm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (a *API) handleDeactivateCategory(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeactivateCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	page, err := a.service.ListPurchases(r.Context(), r.URL.Query())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchases": page.Items, "pagination": page.Pagination})
}

func (a *API) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	purchase, err := a.service.GetPurchase(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchase": purchase})
}

func (a *API) handlePurchaseStatus(w http.ResponseWriter, r *http.Request) {
	var in domain.PurchaseStatusInput
	if err := a.decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	purchase, err := a.service.UpdatePurchaseStatus(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchase": purchase})
}

func (a *API) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeletePurchase(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	page, err := a.service.ListSales(r.Context(), r.URL.Query())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": page.Items, "pagination": page.Pagination})
}

func (a *API) handleSalesAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.SalesAnalytics(r.Context(), queryInt(r, "days", 30))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analytics": report})
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

func (a *API) handleCancelSale(w http.ResponseWriter, r *http.Request) {
	if a.auth.PINRequired() && !a.pinLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "too many pin attempts")
		return
	}
	var in domain.CancelSaleInput
	if _, err := a.decodeOptionalJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	in.ManagerPIN = strings.TrimSpace(in.ManagerPIN)
	sale, err := a.service.CancelSale(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}
