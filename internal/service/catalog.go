package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/cache"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/draft"
)

// forward runs one backend call for a caller holding one of roles.
func forward[T any](ctx context.Context, s *Service, roles []string, call func(token string) (T, error)) (T, error) {
	var zero T
	session, err := s.authorize(ctx, roles...)
	if err != nil {
		return zero, err
	}
	out, err := call(session.UpstreamToken)
	if err != nil {
		return zero, s.upstreamErr(ctx, session, err)
	}
	return out, nil
}

// forwardWrite is forward for calls that change records; snapshots listed in
// stale are dropped and the change is audited.
func forwardWrite[T any](ctx context.Context, s *Service, roles []string, action, entityType, entityID string, stale []string, call func(token string) (T, error)) (T, error) {
	out, err := forward(ctx, s, roles, call)
	if err != nil {
		return out, err
	}
	if len(stale) > 0 {
		s.invalidate(ctx, stale...)
	}
	s.logAudit(ctx, action, entityType, entityID)
	return out, nil
}

type none struct{}

func (s *Service) Dashboard(ctx context.Context) (json.RawMessage, error) {
	return forward(ctx, s, nil, func(token string) (json.RawMessage, error) {
		return s.backend.Dashboard(ctx, token)
	})
}

func (s *Service) ListProducts(ctx context.Context, query url.Values) (domain.Page[domain.Product], error) {
	return forward(ctx, s, nil, func(token string) (domain.Page[domain.Product], error) {
		return s.backend.ListProducts(ctx, token, query)
	})
}

func (s *Service) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	return forward(ctx, s, nil, func(token string) ([]domain.Product, error) {
		return s.backend.LowStockProducts(ctx, token)
	})
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return forward(ctx, s, nil, func(token string) (domain.Product, error) {
		return s.backend.GetProduct(ctx, token, id)
	})
}

// ProductAttributeForm is the attribute schema of a category together with
// the values a new product starts with.
type ProductAttributeForm struct {
	Schema   []domain.CategoryAttribute `json:"schema"`
	Defaults map[string]any             `json:"defaults"`
}

func (s *Service) ProductAttributeForm(ctx context.Context, categoryID string) (ProductAttributeForm, error) {
	schema, err := forward(ctx, s, backOffice, func(token string) ([]domain.CategoryAttribute, error) {
		return s.backend.CategoryAttributes(ctx, token, categoryID)
	})
	if err != nil {
		return ProductAttributeForm{}, err
	}
	if schema == nil {
		schema = []domain.CategoryAttribute{}
	}
	return ProductAttributeForm{Schema: schema, Defaults: draft.DefaultAttributeValues(schema).Raw()}, nil
}

// checkProductAttributes types the request's attribute bag against its
// category's schema and rewrites it with the typed values.
func (s *Service) checkProductAttributes(ctx context.Context, req *domain.ProductRequest) error {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return err
	}
	categoryID := strings.TrimSpace(req.Category)
	if categoryID == "" {
		return nil
	}
	schema, err := s.backend.CategoryAttributes(ctx, session.UpstreamToken, categoryID)
	if err != nil {
		return s.upstreamErr(ctx, session, err)
	}
	values, err := draft.ParseAttributeValues(schema, req.Attributes)
	if err == nil {
		err = draft.ValidateAttributeValues(schema, values)
	}
	if err != nil {
		s.recordRejection(ctx, "product", categoryID, err)
		return err
	}
	req.Attributes = values.Raw()
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductRequest) (domain.Product, error) {
	if err := s.checkProductAttributes(ctx, &req); err != nil {
		return domain.Product{}, err
	}
	product, err := forward(ctx, s, backOffice, func(token string) (domain.Product, error) {
		return s.backend.CreateProduct(ctx, token, req)
	})
	if err != nil {
		return product, err
	}
	s.invalidate(ctx, cache.KeyProducts)
	s.logAudit(ctx, "product_create", "product", product.ID, "sku", product.SKU)
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductRequest) (domain.Product, error) {
	if err := s.checkProductAttributes(ctx, &req); err != nil {
		return domain.Product{}, err
	}
	return forwardWrite(ctx, s, backOffice, "product_update", "product", id, []string{cache.KeyProducts}, func(token string) (domain.Product, error) {
		return s.backend.UpdateProduct(ctx, token, id, req)
	})
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	_, err := forwardWrite(ctx, s, adminOnly, "product_delete", "product", id, []string{cache.KeyProducts}, func(token string) (none, error) {
		return none{}, s.backend.DeleteProduct(ctx, token, id)
	})
	return err
}

func (s *Service) ListCustomers(ctx context.Context, query url.Values) (domain.Page[domain.Customer], error) {
	return forward(ctx, s, nil, func(token string) (domain.Page[domain.Customer], error) {
		return s.backend.ListCustomers(ctx, token, query)
	})
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	return forward(ctx, s, nil, func(token string) (domain.Customer, error) {
		return s.backend.GetCustomer(ctx, token, id)
	})
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerRequest) (domain.Customer, error) {
	customer, err := forward(ctx, s, nil, func(token string) (domain.Customer, error) {
		return s.backend.CreateCustomer(ctx, token, req)
	})
	if err != nil {
		return customer, err
	}
	s.invalidate(ctx, cache.KeyCustomers)
	s.logAudit(ctx, "customer_create", "customer", customer.ID)
	return customer, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerRequest) (domain.Customer, error) {
	return forwardWrite(ctx, s, nil, "customer_update", "customer", id, []string{cache.KeyCustomers}, func(token string) (domain.Customer, error) {
		return s.backend.UpdateCustomer(ctx, token, id, req)
	})
}

func (s *Service) ListSuppliers(ctx context.Context, query url.Values) (domain.Page[domain.Supplier], error) {
	return forward(ctx, s, backOffice, func(token string) (domain.Page[domain.Supplier], error) {
		return s.backend.ListSuppliers(ctx, token, query)
	})
}

func (s *Service) GetSupplier(ctx context.Context, id string) (domain.Supplier, error) {
	return forward(ctx, s, backOffice, func(token string) (domain.Supplier, error) {
		return s.backend.GetSupplier(ctx, token, id)
	})
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierRequest) (domain.Supplier, error) {
	supplier, err := forward(ctx, s, backOffice, func(token string) (domain.Supplier, error) {
		return s.backend.CreateSupplier(ctx, token, req)
	})
	if err != nil {
		return supplier, err
	}
	s.invalidate(ctx, cache.KeySuppliers)
	s.logAudit(ctx, "supplier_create", "supplier", supplier.ID)
	return supplier, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id string, req domain.SupplierRequest) (domain.Supplier, error) {
	return forwardWrite(ctx, s, backOffice, "supplier_update", "supplier", id, []string{cache.KeySuppliers}, func(token string) (domain.Supplier, error) {
		return s.backend.UpdateSupplier(ctx, token, id, req)
	})
}

func (s *Service) DeleteSupplier(ctx context.Context, id string) error {
	_, err := forwardWrite(ctx, s, adminOnly, "supplier_delete", "supplier", id, []string{cache.KeySuppliers}, func(token string) (none, error) {
		return none{}, s.backend.DeleteSupplier(ctx, token, id)
	})
	return err
}

func (s *Service) ListCategories(ctx context.Context, query url.Values) ([]domain.Category, error) {
	return forward(ctx, s, nil, func(token string) ([]domain.Category, error) {
		return s.backend.ListCategories(ctx, token, query)
	})
}

func (s *Service) CategoryTree(ctx context.Context) ([]domain.Category, error) {
	return forward(ctx, s, nil, func(token string) ([]domain.Category, error) {
		return s.backend.CategoryTree(ctx, token)
	})
}

func (s *Service) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	return forward(ctx, s, nil, func(token string) (domain.Category, error) {
		return s.backend.GetCategory(ctx, token, id)
	})
}

func (s *Service) CategoryAttributes(ctx context.Context, id string) ([]domain.CategoryAttribute, error) {
	return forward(ctx, s, nil, func(token string) ([]domain.CategoryAttribute, error) {
		return s.backend.CategoryAttributes(ctx, token, id)
	})
}

func (s *Service) DeactivateCategory(ctx context.Context, id string) error {
	_, err := forwardWrite(ctx, s, adminOnly, "category_deactivate", "category", id, []string{cache.KeyCategories}, func(token string) (none, error) {
		return none{}, s.backend.DeactivateCategory(ctx, token, id)
	})
	return err
}

func (s *Service) ListPurchases(ctx context.Context, query url.Values) (domain.Page[domain.Purchase], error) {
	return forward(ctx, s, backOffice, func(token string) (domain.Page[domain.Purchase], error) {
		return s.backend.ListPurchases(ctx, token, query)
	})
}

func (s *Service) GetPurchase(ctx context.Context, id string) (domain.Purchase, error) {
	return forward(ctx, s, backOffice, func(token string) (domain.Purchase, error) {
		return s.backend.GetPurchase(ctx, token, id)
	})
}

// UpdatePurchaseStatus moves stock when a purchase completes, so the product
// snapshot is dropped.
func (s *Service) UpdatePurchaseStatus(ctx context.Context, id string, in domain.PurchaseStatusInput) (domain.Purchase, error) {
	if !domain.IsPurchaseStatus(in.Status) {
		return domain.Purchase{}, &draft.Rejection{Code: draft.CodeInvalidField, Message: "unknown purchase status " + in.Status}
	}
	return forwardWrite(ctx, s, backOffice, "purchase_status", "purchase", id, []string{cache.KeyProducts}, func(token string) (domain.Purchase, error) {
		return s.backend.UpdatePurchaseStatus(ctx, token, id, in.Status)
	})
}

func (s *Service) DeletePurchase(ctx context.Context, id string) error {
	_, err := forwardWrite(ctx, s, adminOnly, "purchase_delete", "purchase", id, []string{cache.KeyProducts}, func(token string) (none, error) {
		return none{}, s.backend.DeletePurchase(ctx, token, id)
	})
	return err
}

func (s *Service) ListSales(ctx context.Context, query url.Values) (domain.Page[domain.Sale], error) {
	return forward(ctx, s, nil, func(token string) (domain.Page[domain.Sale], error) {
		return s.backend.ListSales(ctx, token, query)
	})
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	return forward(ctx, s, nil, func(token string) (domain.Sale, error) {
		return s.backend.GetSale(ctx, token, id)
	})
}

// SalesAnalytics covers the last days days; out-of-range values fall back to
// 30.
func (s *Service) SalesAnalytics(ctx context.Context, days int) (json.RawMessage, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	return forward(ctx, s, backOffice, func(token string) (json.RawMessage, error) {
		return s.backend.SalesAnalytics(ctx, token, days)
	})
}
