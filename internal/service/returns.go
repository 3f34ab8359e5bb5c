package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/cache"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/draft"
)

type ReturnLineView struct {
	draft.ReturnLine
	MaxReturnable int             `json:"max_returnable"`
	Refund        decimal.Decimal `json:"refund"`
}

type ReturnDraftView struct {
	ID string `json:"id"`
	draft.Lifecycle
	SaleID           string           `json:"sale_id"`
	Lines            []ReturnLineView `json:"lines"`
	Reason           string           `json:"reason"`
	TotalRefund      decimal.Decimal  `json:"total_refund"`
	TotalReturnUnits int              `json:"total_return_units"`
	Submittable      bool             `json:"submittable"`
}

func newReturnDraftView(id string, d *draft.ReturnDraft) *ReturnDraftView {
	if d == nil {
		return nil
	}
	lines := make([]ReturnLineView, 0, len(d.Lines))
	for _, line := range d.Lines {
		lines = append(lines, ReturnLineView{
			ReturnLine:    line,
			MaxReturnable: line.MaxReturnable(),
			Refund:        line.UnitSalePrice.Mul(decimal.NewFromInt(int64(line.ReturnQuantity))),
		})
	}
	return &ReturnDraftView{
		ID:               id,
		Lifecycle:        d.Lifecycle,
		SaleID:           d.SaleID,
		Lines:            lines,
		Reason:           d.Reason,
		TotalRefund:      d.TotalRefund(),
		TotalReturnUnits: d.TotalReturnUnits(),
		Submittable:      d.Submittable(),
	}
}

type ReturnSubmitResult struct {
	Draft  *ReturnDraftView        `json:"draft,omitempty"`
	Result domain.ReturnSaleResult `json:"result"`
}

// OpenReturnDraft loads the sale and starts a return against it.
func (s *Service) OpenReturnDraft(ctx context.Context, saleID string) (*ReturnDraftView, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return nil, err
	}
	sale, err := s.backend.GetSale(ctx, session.UpstreamToken, strings.TrimSpace(saleID))
	if err != nil {
		return nil, s.upstreamErr(ctx, session, err)
	}
	d, err := draft.NewReturnDraft(sale)
	if err != nil {
		s.recordRejection(ctx, domain.DraftReturn, sale.ID, err)
		return nil, err
	}
	id, err := openDraft(ctx, s, session, domain.DraftReturn, d)
	if err != nil {
		return nil, err
	}
	return newReturnDraftView(id, d), nil
}

func (s *Service) GetReturnDraft(ctx context.Context, id string) (*ReturnDraftView, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return nil, err
	}
	d, err := loadDraft[draft.ReturnDraft](ctx, s, session, domain.DraftReturn, id)
	if err != nil {
		return nil, err
	}
	return newReturnDraftView(id, d), nil
}

func (s *Service) mutateReturn(ctx context.Context, id string, fn func(*draft.ReturnDraft) error) (*ReturnDraftView, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return nil, err
	}
	d, err := mutateDraft(ctx, s, session, domain.DraftReturn, id, fn)
	return newReturnDraftView(id, d), err
}

// SetReturnQuantity never rejects an out-of-range quantity; it clamps it.
func (s *Service) SetReturnQuantity(ctx context.Context, id string, in domain.ReturnQuantityInput) (*ReturnDraftView, error) {
	return s.mutateReturn(ctx, id, func(d *draft.ReturnDraft) error {
		return d.SetReturnQuantityInput(in.ItemID, string(in.Quantity))
	})
}

func (s *Service) ReturnAllItems(ctx context.Context, id string) (*ReturnDraftView, error) {
	return s.mutateReturn(ctx, id, func(d *draft.ReturnDraft) error {
		return d.ReturnAll()
	})
}

func (s *Service) ClearReturnItems(ctx context.Context, id string) (*ReturnDraftView, error) {
	return s.mutateReturn(ctx, id, func(d *draft.ReturnDraft) error {
		return d.ClearAll()
	})
}

func (s *Service) SetReturnReason(ctx context.Context, id string, in domain.ReturnReasonInput) (*ReturnDraftView, error) {
	return s.mutateReturn(ctx, id, func(d *draft.ReturnDraft) error {
		return d.SetReason(in.Reason)
	})
}

func (s *Service) SubmitReturnDraft(ctx context.Context, id string) (ReturnSubmitResult, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return ReturnSubmitResult{}, err
	}
	d, res, err := submitDraft(ctx, s, session, domain.DraftReturn, id, func(d *draft.ReturnDraft) (submission[domain.ReturnSaleResult], error) {
		req, err := d.Request()
		if err != nil {
			return submission[domain.ReturnSaleResult]{}, err
		}
		saleID := d.SaleID
		return submission[domain.ReturnSaleResult]{
			send: func(ctx context.Context, token string) (domain.ReturnSaleResult, error) {
				return s.backend.ReturnSale(ctx, token, saleID, req)
			},
			resultID: func(r domain.ReturnSaleResult) string { return r.Sale.ID },
		}, nil
	})
	result := ReturnSubmitResult{Draft: newReturnDraftView(id, d), Result: res}
	if err != nil {
		return result, err
	}
	s.invalidate(ctx, cache.KeyProducts)
	return result, nil
}

var errNotCancellable = &draft.Rejection{Code: draft.CodeSaleNotCancellable, Message: "only completed or partially returned sales can be cancelled"}

// CancelSale voids a settled sale. When a manager PIN is configured it must
// be supplied.
func (s *Service) CancelSale(ctx context.Context, saleID string, in domain.CancelSaleInput) (domain.Sale, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return domain.Sale{}, err
	}
	if s.verifyPIN != nil && !s.verifyPIN(in.ManagerPIN) {
		s.logger.WarnContext(ctx, "sale cancel refused: bad manager pin", "sale_id", saleID, "session_id", session.ID)
		return domain.Sale{}, ErrInvalidPIN
	}

	sale, err := s.backend.GetSale(ctx, session.UpstreamToken, saleID)
	if err != nil {
		return domain.Sale{}, s.upstreamErr(ctx, session, err)
	}
	if sale.Status != domain.SaleCompleted && sale.Status != domain.SalePartiallyReturned {
		return domain.Sale{}, errNotCancellable
	}

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = "Cancelled by user"
	}
	cancelled, err := s.backend.CancelSale(ctx, session.UpstreamToken, saleID, domain.CancelSaleRequest{Reason: reason})
	if err != nil {
		return domain.Sale{}, s.upstreamErr(ctx, session, err)
	}
	s.invalidate(ctx, cache.KeyProducts)
	s.logAudit(ctx, "sale_cancel", "sale", saleID, "reason", reason)
	return cancelled, nil
}
