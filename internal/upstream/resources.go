package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
)

func one(id string) []string { return []string{id} }

// Products

func (c *Client) ListProducts(ctx context.Context, token string, query url.Values) (domain.Page[domain.Product], error) {
	return fetchPage[domain.Product](c, ctx, "/products", query, token)
}

func (c *Client) LowStockProducts(ctx context.Context, token string) ([]domain.Product, error) {
	return fetch[[]domain.Product](c, ctx, http.MethodGet, "/products/low-stock", nil, nil, token, nil)
}

func (c *Client) GetProduct(ctx context.Context, token, id string) (domain.Product, error) {
	return fetch[domain.Product](c, ctx, http.MethodGet, "/products/{id}", one(id), nil, token, nil)
}

func (c *Client) CreateProduct(ctx context.Context, token string, req domain.ProductRequest) (domain.Product, error) {
	return fetch[domain.Product](c, ctx, http.MethodPost, "/products", nil, nil, token, req)
}

func (c *Client) UpdateProduct(ctx context.Context, token, id string, req domain.ProductRequest) (domain.Product, error) {
	return fetch[domain.Product](c, ctx, http.MethodPut, "/products/{id}", one(id), nil, token, req)
}

func (c *Client) DeleteProduct(ctx context.Context, token, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/products/{id}", one(id), nil, token, nil)
	return err
}

// Customers

func (c *Client) ListCustomers(ctx context.Context, token string, query url.Values) (domain.Page[domain.Customer], error) {
	return fetchPage[domain.Customer](c, ctx, "/customers", query, token)
}

func (c *Client) GetCustomer(ctx context.Context, token, id string) (domain.Customer, error) {
	return fetch[domain.Customer](c, ctx, http.MethodGet, "/customers/{id}", one(id), nil, token, nil)
}

func (c *Client) CreateCustomer(ctx context.Context, token string, req domain.CustomerRequest) (domain.Customer, error) {
	return fetch[domain.Customer](c, ctx, http.MethodPost, "/customers", nil, nil, token, req)
}

func (c *Client) UpdateCustomer(ctx context.Context, token, id string, req domain.CustomerRequest) (domain.Customer, error) {
	return fetch[domain.Customer](c, ctx, http.MethodPut, "/customers/{id}", one(id), nil, token, req)
}

// Suppliers

func (c *Client) ListSuppliers(ctx context.Context, token string, query url.Values) (domain.Page[domain.Supplier], error) {
	return fetchPage[domain.Supplier](c, ctx, "/suppliers", query, token)
}

func (c *Client) GetSupplier(ctx context.Context, token, id string) (domain.Supplier, error) {
	return fetch[domain.Supplier](c, ctx, http.MethodGet, "/suppliers/{id}", one(id), nil, token, nil)
}

func (c *Client) CreateSupplier(ctx context.Context, token string, req domain.SupplierRequest) (domain.Supplier, error) {
	return fetch[domain.Supplier](c, ctx, http.MethodPost, "/suppliers", nil, nil, token, req)
}

func (c *Client) UpdateSupplier(ctx context.Context, token, id string, req domain.SupplierRequest) (domain.Supplier, error) {
	return fetch[domain.Supplier](c, ctx, http.MethodPut, "/suppliers/{id}", one(id), nil, token, req)
}

func (c *Client) DeleteSupplier(ctx context.Context, token, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/suppliers/{id}", one(id), nil, token, nil)
	return err
}

// Categories

func (c *Client) ListCategories(ctx context.Context, token string, query url.Values) ([]domain.Category, error) {
	return fetch[[]domain.Category](c, ctx, http.MethodGet, "/categories", nil, query, token, nil)
}

func (c *Client) CategoryTree(ctx context.Context, token string) ([]domain.Category, error) {
	return fetch[[]domain.Category](c, ctx, http.MethodGet, "/categories/tree", nil, nil, token, nil)
}

func (c *Client) GetCategory(ctx context.Context, token, id string) (domain.Category, error) {
	return fetch[domain.Category](c, ctx, http.MethodGet, "/categories/{id}", one(id), nil, token, nil)
}

func (c *Client) CategoryAttributes(ctx context.Context, token, id string) ([]domain.CategoryAttribute, error) {
	return fetch[[]domain.CategoryAttribute](c, ctx, http.MethodGet, "/categories/{id}/attributes", one(id), nil, token, nil)
}

func (c *Client) CreateCategory(ctx context.Context, token string, req domain.CreateCategoryRequest) (domain.Category, error) {
	return fetch[domain.Category](c, ctx, http.MethodPost, "/categories", nil, nil, token, req)
}

func (c *Client) UpdateCategory(ctx context.Context, token, id string, req domain.CreateCategoryRequest) (domain.Category, error) {
	return fetch[domain.Category](c, ctx, http.MethodPut, "/categories/{id}", one(id), nil, token, req)
}

// DeactivateCategory is the backend's soft delete.
func (c *Client) DeactivateCategory(ctx context.Context, token, id string) error {
	_, err := c.call(ctx, http.MethodPut, "/categories/{id}", one(id), nil, token, map[string]bool{"isActive": false})
	return err
}

// Purchases

func (c *Client) ListPurchases(ctx context.Context, token string, query url.Values) (domain.Page[domain.Purchase], error) {
	return fetchPage[domain.Purchase](c, ctx, "/purchases", query, token)
}

func (c *Client) GetPurchase(ctx context.Context, token, id string) (domain.Purchase, error) {
	return fetch[domain.Purchase](c, ctx, http.MethodGet, "/purchases/{id}", one(id), nil, token, nil)
}

func (c *Client) CreatePurchase(ctx context.Context, token string, req domain.CreatePurchaseRequest) (domain.Purchase, error) {
	return fetch[domain.Purchase](c, ctx, http.MethodPost, "/purchases", nil, nil, token, req)
}

func (c *Client) UpdatePurchase(ctx context.Context, token, id string, req domain.CreatePurchaseRequest) (domain.Purchase, error) {
	return fetch[domain.Purchase](c, ctx, http.MethodPut, "/purchases/{id}", one(id), nil, token, req)
}

func (c *Client) UpdatePurchaseStatus(ctx context.Context, token, id, status string) (domain.Purchase, error) {
	return fetch[domain.Purchase](c, ctx, http.MethodPatch, "/purchases/{id}/status", one(id), nil, token, map[string]string{"status": status})
}

func (c *Client) DeletePurchase(ctx context.Context, token, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/purchases/{id}", one(id), nil, token, nil)
	return err
}

// Sales

func (c *Client) ListSales(ctx context.Context, token string, query url.Values) (domain.Page[domain.Sale], error) {
	return fetchPage[domain.Sale](c, ctx, "/sales", query, token)
}

func (c *Client) GetSale(ctx context.Context, token, id string) (domain.Sale, error) {
	return fetch[domain.Sale](c, ctx, http.MethodGet, "/sales/{id}", one(id), nil, token, nil)
}

func (c *Client) CreateSale(ctx context.Context, token string, req domain.CreateSaleRequest) (domain.Sale, error) {
	return fetch[domain.Sale](c, ctx, http.MethodPost, "/sales", nil, nil, token, req)
}

func (c *Client) ReturnSale(ctx context.Context, token, id string, req domain.ReturnSaleRequest) (domain.ReturnSaleResult, error) {
	env, err := c.call(ctx, http.MethodPost, "/sales/{id}/return", one(id), nil, token, req)
	if err != nil {
		return domain.ReturnSaleResult{}, err
	}
	sale, err := decodeData[domain.Sale](env)
	if err != nil {
		return domain.ReturnSaleResult{}, err
	}
	return domain.ReturnSaleResult{Sale: sale, RefundAmount: env.RefundAmount, Message: env.Message}, nil
}

func (c *Client) CancelSale(ctx context.Context, token, id string, req domain.CancelSaleRequest) (domain.Sale, error) {
	return fetch[domain.Sale](c, ctx, http.MethodPost, "/sales/{id}/cancel", one(id), nil, token, req)
}

func (c *Client) SalesAnalytics(ctx context.Context, token string, days int) (json.RawMessage, error) {
	query := url.Values{"days": []string{strconv.Itoa(days)}}
	return fetch[json.RawMessage](c, ctx, http.MethodGet, "/sales/analytics", nil, query, token, nil)
}
