package draft

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
)

type ReturnLine struct {
	ItemID           string          `json:"item_id"`
	ProductID        string          `json:"product_id"`
	Name             string          `json:"name"`
	Quantity         int             `json:"quantity"`
	ReturnedQuantity int             `json:"returned_quantity"`
	UnitSalePrice    decimal.Decimal `json:"unit_sale_price"`
	ReturnQuantity   int             `json:"return_quantity"`
}

// MaxReturnable is the quantity still eligible for return.
func (l ReturnLine) MaxReturnable() int {
	if n := l.Quantity - l.ReturnedQuantity; n > 0 {
		return n
	}
	return 0
}

// ReturnDraft selects quantities to send back from one settled sale.
// Requested quantities are clamped into range instead of being refused.
type ReturnDraft struct {
	Lifecycle
	SaleID string       `json:"sale_id"`
	Lines  []ReturnLine `json:"lines"`
	Reason string       `json:"reason"`
}

// NewReturnDraft lists every item of sale with nothing selected yet.
func NewReturnDraft(sale domain.Sale) (*ReturnDraft, error) {
	if sale.Status == domain.SaleCancelled {
		return nil, reject(CodeSaleNotReturnable, "cancelled sales cannot be returned")
	}
	lines := make([]ReturnLine, 0, len(sale.Items))
	for _, item := range sale.Items {
		lines = append(lines, ReturnLine{
			ItemID:           item.ID,
			ProductID:        item.Product.ID,
			Name:             item.Product.Name,
			Quantity:         item.Quantity,
			ReturnedQuantity: item.ReturnedQuantity,
			UnitSalePrice:    item.UnitSalePrice,
		})
	}
	return &ReturnDraft{
		Lifecycle: newLifecycle(),
		SaleID:    sale.ID,
		Lines:     lines,
	}, nil
}

func (d *ReturnDraft) find(itemID string) (*ReturnLine, error) {
	for i := range d.Lines {
		if d.Lines[i].ItemID == itemID {
			return &d.Lines[i], nil
		}
	}
	return nil, reject(CodeItemNotFound, "sale has no item %q", itemID)
}

// SetReturnQuantity stores requested clamped to [0, MaxReturnable].
func (d *ReturnDraft) SetReturnQuantity(itemID string, requested int) error {
	if err := d.guard(); err != nil {
		return err
	}
	line, err := d.find(itemID)
	if err != nil {
		return err
	}
	line.ReturnQuantity = min(max(requested, 0), line.MaxReturnable())
	d.touch()
	return nil
}

// SetReturnQuantityInput accepts raw form input. Anything that is not a
// non-negative number counts as zero; fractions are truncated.
func (d *ReturnDraft) SetReturnQuantityInput(itemID string, raw string) error {
	return d.SetReturnQuantity(itemID, parseQuantity(raw))
}

func parseQuantity(raw string) int {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

// ReturnAll selects the full returnable quantity of every line.
func (d *ReturnDraft) ReturnAll() error {
	if err := d.guard(); err != nil {
		return err
	}
	for i := range d.Lines {
		d.Lines[i].ReturnQuantity = d.Lines[i].MaxReturnable()
	}
	d.touch()
	return nil
}

// ClearAll resets every line to zero.
func (d *ReturnDraft) ClearAll() error {
	if err := d.guard(); err != nil {
		return err
	}
	for i := range d.Lines {
		d.Lines[i].ReturnQuantity = 0
	}
	d.touch()
	return nil
}

// SetReason stores the reason given for the return.
func (d *ReturnDraft) SetReason(reason string) error {
	if err := d.guard(); err != nil {
		return err
	}
	d.Reason = reason
	d.touch()
	return nil
}

// TotalRefund prices returned units at the price they were sold for.
func (d *ReturnDraft) TotalRefund() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Lines {
		total = total.Add(line.UnitSalePrice.Mul(decimal.NewFromInt(int64(line.ReturnQuantity))))
	}
	return total
}

func (d *ReturnDraft) TotalReturnUnits() int {
	units := 0
	for _, line := range d.Lines {
		units += line.ReturnQuantity
	}
	return units
}

// Submittable reports whether any unit is selected and a reason is given.
func (d *ReturnDraft) Submittable() bool {
	return d.TotalReturnUnits() > 0 && strings.TrimSpace(d.Reason) != ""
}

// Request builds the return payload from the selected lines.
func (d *ReturnDraft) Request() (domain.ReturnSaleRequest, error) {
	if d.TotalReturnUnits() == 0 {
		return domain.ReturnSaleRequest{}, reject(CodeNotSubmittable, "select at least one item to return")
	}
	if strings.TrimSpace(d.Reason) == "" {
		return domain.ReturnSaleRequest{}, reject(CodeNotSubmittable, "a return reason is required")
	}
	items := make([]domain.ReturnItemRequest, 0, len(d.Lines))
	for _, line := range d.Lines {
		if line.ReturnQuantity == 0 {
			continue
		}
		items = append(items, domain.ReturnItemRequest{ItemID: line.ItemID, Quantity: line.ReturnQuantity})
	}
	return domain.ReturnSaleRequest{
		ReturnItems: items,
		Reason:      strings.TrimSpace(d.Reason),
	}, nil
}
