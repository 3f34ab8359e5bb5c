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

type PurchaseLineView struct {
	draft.PurchaseLine
	LineTotal decimal.Decimal `json:"line_total"`
}

type PurchaseDraftView struct {
	ID string `json:"id"`
	draft.Lifecycle
	PurchaseID   string             `json:"purchase_id,omitempty"`
	Supplier     string             `json:"supplier"`
	PurchaseDate string             `json:"purchase_date"`
	Status       string             `json:"status"`
	Items        []PurchaseLineView `json:"items"`
	TotalAmount  decimal.Decimal    `json:"total_amount"`
	TotalItems   int                `json:"total_items"`
	Submittable  bool               `json:"submittable"`
}

func newPurchaseDraftView(id string, d *draft.PurchaseDraft) *PurchaseDraftView {
	if d == nil {
		return nil
	}
	lines := make([]PurchaseLineView, 0, len(d.Items))
	for _, line := range d.Items {
		lines = append(lines, PurchaseLineView{
			PurchaseLine: line,
			LineTotal:    line.UnitCost.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	return &PurchaseDraftView{
		ID:           id,
		Lifecycle:    d.Lifecycle,
		PurchaseID:   d.PurchaseID,
		Supplier:     d.Supplier,
		PurchaseDate: d.PurchaseDate,
		Status:       d.Status,
		Items:        lines,
		TotalAmount:  d.TotalAmount(),
		TotalItems:   d.TotalItems(),
		Submittable:  d.Submittable(),
	}
}

type PurchaseSubmitResult struct {
	Draft    *PurchaseDraftView `json:"draft,omitempty"`
	Purchase domain.Purchase    `json:"purchase"`
}

// OpenPurchaseDraft starts a new stock-in order dated today.
func (s *Service) OpenPurchaseDraft(ctx context.Context) (*PurchaseDraftView, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return nil, err
	}
	products, err := s.productSnapshot(ctx, session)
	if err != nil {
		return nil, err
	}
	d := draft.NewPurchaseDraft(products, s.now())
	id, err := openDraft(ctx, s, session, domain.DraftPurchase, d)
	if err != nil {
		return nil, err
	}
	return newPurchaseDraftView(id, d), nil
}

// OpenPurchaseEditDraft loads an existing purchase; submitting the draft
// updates that purchase instead of creating one.
func (s *Service) OpenPurchaseEditDraft(ctx context.Context, purchaseID string) (*PurchaseDraftView, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return nil, err
	}
	purchase, err := s.backend.GetPurchase(ctx, session.UpstreamToken, strings.TrimSpace(purchaseID))
	if err != nil {
		return nil, s.upstreamErr(ctx, session, err)
	}
	products, err := s.productSnapshot(ctx, session)
	if err != nil {
		return nil, err
	}
	d := draft.LoadPurchaseDraft(purchase, products)
	id, err := openDraft(ctx, s, session, domain.DraftPurchase, d)
	if err != nil {
		return nil, err
	}
	return newPurchaseDraftView(id, d), nil
}

func (s *Service) GetPurchaseDraft(ctx context.Context, id string) (*PurchaseDraftView, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return nil, err
	}
	d, err := loadDraft[draft.PurchaseDraft](ctx, s, session, domain.DraftPurchase, id)
	if err != nil {
		return nil, err
	}
	return newPurchaseDraftView(id, d), nil
}

func (s *Service) mutatePurchase(ctx context.Context, id string, fn func(*draft.PurchaseDraft) error) (*PurchaseDraftView, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return nil, err
	}
	d, err := mutateDraft(ctx, s, session, domain.DraftPurchase, id, fn)
	return newPurchaseDraftView(id, d), err
}

// AddPurchaseItem adds a line; without a unit cost the product's cost price
// is used.
func (s *Service) AddPurchaseItem(ctx context.Context, id string, in domain.PurchaseItemInput) (*PurchaseDraftView, error) {
	return s.mutatePurchase(ctx, id, func(d *draft.PurchaseDraft) error {
		productID := strings.TrimSpace(in.ProductID)
		cost := decimal.Zero
		if in.UnitCost != nil {
			cost = *in.UnitCost
		} else if c, ok := d.DefaultUnitCost(productID); ok {
			cost = c
		}
		return d.AddItem(productID, in.Quantity, cost)
	})
}

func (s *Service) UpdatePurchaseItem(ctx context.Context, id string, index int, in domain.PurchaseItemPatch) (*PurchaseDraftView, error) {
	return s.mutatePurchase(ctx, id, func(d *draft.PurchaseDraft) error {
		before := slices.Clone(d.Items)
		lifecycle := d.Lifecycle
		if in.Quantity != nil {
			if err := d.UpdateItemQuantity(index, *in.Quantity); err != nil {
				return err
			}
		}
		if in.UnitCost != nil {
			if err := d.UpdateItemUnitCost(index, *in.UnitCost); err != nil {
				d.Items = before
				d.Lifecycle = lifecycle
				return err
			}
		}
		return nil
	})
}

func (s *Service) RemovePurchaseItem(ctx context.Context, id string, index int) (*PurchaseDraftView, error) {
	return s.mutatePurchase(ctx, id, func(d *draft.PurchaseDraft) error {
		return d.RemoveItem(index)
	})
}

func (s *Service) ClearPurchaseItems(ctx context.Context, id string) (*PurchaseDraftView, error) {
	return s.mutatePurchase(ctx, id, func(d *draft.PurchaseDraft) error {
		return d.ClearItems()
	})
}

// UpdatePurchaseDetails sets supplier, date and status. A supplier must be one
// the backend lists.
func (s *Service) UpdatePurchaseDetails(ctx context.Context, id string, in domain.PurchaseDetailsInput) (*PurchaseDraftView, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return nil, err
	}
	if in.Supplier != nil && strings.TrimSpace(*in.Supplier) != "" {
		if err := s.checkSupplier(ctx, session, strings.TrimSpace(*in.Supplier)); err != nil {
			return nil, err
		}
	}
	return s.mutatePurchase(ctx, id, func(d *draft.PurchaseDraft) error {
		return d.UpdateDetails(draft.PurchaseDetails{
			Supplier:     in.Supplier,
			PurchaseDate: in.PurchaseDate,
			Status:       in.Status,
		})
	})
}

func (s *Service) checkSupplier(ctx context.Context, session domain.Session, supplierID string) error {
	suppliers, err := s.supplierSnapshot(ctx, session)
	if err != nil {
		return err
	}
	if slices.ContainsFunc(suppliers, func(sup domain.Supplier) bool { return sup.ID == supplierID }) {
		return nil
	}
	err = &draft.Rejection{Code: draft.CodeInvalidField, Message: "supplier " + supplierID + " not found"}
	s.recordRejection(ctx, domain.DraftPurchase, "", err)
	return err
}

// SubmitPurchaseDraft creates the purchase, or updates it for a draft opened
// from an existing one. Stock changes, so the product snapshot is dropped.
func (s *Service) SubmitPurchaseDraft(ctx context.Context, id string) (PurchaseSubmitResult, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return PurchaseSubmitResult{}, err
	}
	d, purchase, err := submitDraft(ctx, s, session, domain.DraftPurchase, id, func(d *draft.PurchaseDraft) (submission[domain.Purchase], error) {
		req, err := d.Request()
		if err != nil {
			return submission[domain.Purchase]{}, err
		}
		purchaseID := d.PurchaseID
		return submission[domain.Purchase]{
			send: func(ctx context.Context, token string) (domain.Purchase, error) {
				if purchaseID != "" {
					return s.backend.UpdatePurchase(ctx, token, purchaseID, req)
				}
				return s.backend.CreatePurchase(ctx, token, req)
			},
			resultID: func(p domain.Purchase) string { return p.ID },
		}, nil
	})
	result := PurchaseSubmitResult{Draft: newPurchaseDraftView(id, d), Purchase: purchase}
	if err != nil {
		return result, err
	}
	s.invalidate(ctx, cache.KeyProducts)
	return result, nil
}
