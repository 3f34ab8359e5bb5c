package service

import (
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/cache"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/draft"
)

type SaleLineView struct {
	draft.SaleLine
	LineTotal decimal.Decimal `json:"line_total"`
	Profit    decimal.Decimal `json:"profit"`
}

type SaleDraftView struct {
	ID string `json:"id"`
	draft.Lifecycle
	Customer       string          `json:"customer,omitempty"`
	PaymentMethod  string          `json:"payment_method"`
	Discount       decimal.Decimal `json:"discount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Notes          string          `json:"notes,omitempty"`
	Items          []SaleLineView  `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Total          decimal.Decimal `json:"total"`
	TotalItemCount int             `json:"total_item_count"`
	TotalProfit    decimal.Decimal `json:"total_profit"`
	Savings        decimal.Decimal `json:"savings"`
	Submittable    bool            `json:"submittable"`
}

func newSaleDraftView(id string, d *draft.SaleDraft) *SaleDraftView {
	if d == nil {
		return nil
	}
	lines := make([]SaleLineView, 0, len(d.Items))
	for i, line := range d.Items {
		lines = append(lines, SaleLineView{
			SaleLine:  line,
			LineTotal: line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
			Profit:    d.LineProfit(i),
		})
	}
	return &SaleDraftView{
		ID:             id,
		Lifecycle:      d.Lifecycle,
		Customer:       d.Customer,
		PaymentMethod:  d.PaymentMethod,
		Discount:       d.Discount,
		TaxAmount:      d.TaxAmount,
		Notes:          d.Notes,
		Items:          lines,
		Subtotal:       d.Subtotal(),
		Total:          d.Total(),
		TotalItemCount: d.TotalItemCount(),
		TotalProfit:    d.TotalProfit(),
		Savings:        d.Savings(),
		Submittable:    d.Submittable(),
	}
}

type SaleSubmitResult struct {
	Draft *SaleDraftView `json:"draft,omitempty"`
	Sale  domain.Sale    `json:"sale"`
}

// OpenSaleDraft starts a sale screen on a fresh product snapshot.
func (s *Service) OpenSaleDraft(ctx context.Context) (*SaleDraftView, error) {
	session, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.productSnapshot(ctx, session)
	if err != nil {
		return nil, err
	}
	d := draft.NewSaleDraft(products)
	id, err := openDraft(ctx, s, session, domain.DraftSale, d)
	if err != nil {
		return nil, err
	}
	return newSaleDraftView(id, d), nil
}

func (s *Service) GetSaleDraft(ctx context.Context, id string) (*SaleDraftView, error) {
	session, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	d, err := loadDraft[draft.SaleDraft](ctx, s, session, domain.DraftSale, id)
	if err != nil {
		return nil, err
	}
	return newSaleDraftView(id, d), nil
}

// SaleDraftCatalog lists the products the draft can sell, by name.
func (s *Service) SaleDraftCatalog(ctx context.Context, id string) ([]domain.Product, error) {
	session, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	d, err := loadDraft[draft.SaleDraft](ctx, s, session, domain.DraftSale, id)
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(d.Catalog))
	for _, p := range d.Catalog {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return products, nil
}

func (s *Service) mutateSale(ctx context.Context, id string, fn func(*draft.SaleDraft) error) (*SaleDraftView, error) {
	session, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	d, err := mutateDraft(ctx, s, session, domain.DraftSale, id, fn)
	return newSaleDraftView(id, d), err
}

// AddSaleItem adds a line; without a price the product's MRP is used.
func (s *Service) AddSaleItem(ctx context.Context, id string, in domain.SaleItemInput) (*SaleDraftView, error) {
	return s.mutateSale(ctx, id, func(d *draft.SaleDraft) error {
		price := decimal.Zero
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		} else if mrp, ok := d.DefaultUnitPrice(in.ProductID); ok {
			price = mrp
		}
		return d.AddItem(draft.LineCandidate{
			ProductID: strings.TrimSpace(in.ProductID),
			Quantity:  in.Quantity,
			UnitPrice: price,
		})
	})
}

// UpdateSaleItem changes quantity and/or price of one line. Both changes
// apply or neither does.
func (s *Service) UpdateSaleItem(ctx context.Context, id string, index int, in domain.SaleItemPatch) (*SaleDraftView, error) {
	return s.mutateSale(ctx, id, func(d *draft.SaleDraft) error {
		before := slices.Clone(d.Items)
		lifecycle := d.Lifecycle
		if in.Quantity != nil {
			if err := d.UpdateItemQuantity(index, *in.Quantity); err != nil {
				return err
			}
		}
		if in.UnitPrice != nil {
			if err := d.UpdateItemPrice(index, *in.UnitPrice); err != nil {
				d.Items = before
				d.Lifecycle = lifecycle
				return err
			}
		}
		return nil
	})
}

func (s *Service) RemoveSaleItem(ctx context.Context, id string, index int) (*SaleDraftView, error) {
	return s.mutateSale(ctx, id, func(d *draft.SaleDraft) error {
		return d.RemoveItem(index)
	})
}

func (s *Service) ClearSaleItems(ctx context.Context, id string) (*SaleDraftView, error) {
	return s.mutateSale(ctx, id, func(d *draft.SaleDraft) error {
		return d.ClearItems()
	})
}

// UpdateSaleDetails sets the header fields. A customer, when given, must be
// one the backend lists.
func (s *Service) UpdateSaleDetails(ctx context.Context, id string, in domain.SaleDetailsInput) (*SaleDraftView, error) {
	session, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	if in.Customer != nil && strings.TrimSpace(*in.Customer) != "" {
		if err := s.checkCustomer(ctx, session, strings.TrimSpace(*in.Customer)); err != nil {
			return nil, err
		}
	}
	return s.mutateSale(ctx, id, func(d *draft.SaleDraft) error {
		return d.UpdateDetails(draft.SaleDetails{
			Customer:      in.Customer,
			PaymentMethod: in.PaymentMethod,
			Discount:      in.Discount,
			TaxAmount:     in.TaxAmount,
			Notes:         in.Notes,
		})
	})
}

// SaleCustomers lists the customers a sale can be assigned to.
func (s *Service) SaleCustomers(ctx context.Context) ([]domain.Customer, error) {
	session, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.customerSnapshot(ctx, session)
}

func (s *Service) checkCustomer(ctx context.Context, session domain.Session, customerID string) error {
	customers, err := s.customerSnapshot(ctx, session)
	if err != nil {
		return err
	}
	if slices.ContainsFunc(customers, func(c domain.Customer) bool { return c.ID == customerID }) {
		return nil
	}
	err = &draft.Rejection{Code: draft.CodeInvalidField, Message: "customer " + customerID + " not found"}
	s.recordRejection(ctx, domain.DraftSale, "", err)
	return err
}

func (s *Service) ApplySaleDiscountPercent(ctx context.Context, id string, in domain.DiscountPercentInput) (*SaleDraftView, error) {
	return s.mutateSale(ctx, id, func(d *draft.SaleDraft) error {
		return d.ApplyDiscountPercent(in.Percent)
	})
}

// SubmitSaleDraft posts the sale. Stock changes, so the product snapshot is
// dropped on success.
func (s *Service) SubmitSaleDraft(ctx context.Context, id string) (SaleSubmitResult, error) {
	session, err := s.authorize(ctx)
	if err != nil {
		return SaleSubmitResult{}, err
	}
	d, sale, err := submitDraft(ctx, s, session, domain.DraftSale, id, func(d *draft.SaleDraft) (submission[domain.Sale], error) {
		req, err := d.Request()
		if err != nil {
			return submission[domain.Sale]{}, err
		}
		return submission[domain.Sale]{
			send: func(ctx context.Context, token string) (domain.Sale, error) {
				return s.backend.CreateSale(ctx, token, req)
			},
			resultID: func(sale domain.Sale) string { return sale.ID },
		}, nil
	})
	result := SaleSubmitResult{Draft: newSaleDraftView(id, d), Sale: sale}
	if err != nil {
		return result, err
	}
	s.invalidate(ctx, cache.KeyProducts)
	return result, nil
}
