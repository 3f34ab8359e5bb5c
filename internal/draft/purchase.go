package draft

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
)

const dateLayout = "2006-01-02"

type PurchaseLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// PurchaseDraft is a stock-in order being prepared. PurchaseID is set when the
// draft edits an existing purchase.
type PurchaseDraft struct {
	Lifecycle
	PurchaseID   string                    `json:"purchase_id,omitempty"`
	Supplier     string                    `json:"supplier"`
	PurchaseDate string                    `json:"purchase_date"`
	Status       string                    `json:"status"`
	Items        []PurchaseLine            `json:"items"`
	Catalog      map[string]domain.Product `json:"catalog"`
}

// NewPurchaseDraft starts a pending purchase dated today.
func NewPurchaseDraft(products []domain.Product, today time.Time) *PurchaseDraft {
	return &PurchaseDraft{
		Lifecycle:    newLifecycle(),
		PurchaseDate: today.Format(dateLayout),
		Status:       domain.PurchasePending,
		Items:        []PurchaseLine{},
		Catalog:      indexProducts(products),
	}
}

// LoadPurchaseDraft opens an existing purchase for editing.
func LoadPurchaseDraft(p domain.Purchase, products []domain.Product) *PurchaseDraft {
	date := p.PurchaseDate
	if date.IsZero() {
		date = time.Now()
	}
	d := NewPurchaseDraft(products, date)
	d.PurchaseID = p.ID
	d.Supplier = p.Supplier.ID
	if p.Status != "" {
		d.Status = p.Status
	}
	for _, item := range p.Items {
		d.Items = append(d.Items, PurchaseLine{
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			SKU:       item.Product.SKU,
			Quantity:  item.Quantity,
			UnitCost:  item.UnitCost,
		})
	}
	if len(d.Items) > 0 {
		d.State = StateBuilding
	}
	return d
}

func indexProducts(products []domain.Product) map[string]domain.Product {
	out := make(map[string]domain.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out
}

// DefaultUnitCost is the cost a new line starts with.
func (d *PurchaseDraft) DefaultUnitCost(productID string) (decimal.Decimal, bool) {
	p, ok := d.Catalog[productID]
	if !ok {
		return decimal.Zero, false
	}
	return p.CostPrice, true
}

// AddItem appends a line or merges into the line for the same product.
// Purchases restock, so quantity is never checked against stock.
func (d *PurchaseDraft) AddItem(productID string, quantity int, unitCost decimal.Decimal) error {
	if err := d.guard(); err != nil {
		return err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return reject(CodeProductNotFound, "select a product")
	}
	if quantity <= 0 {
		return reject(CodeInvalidQuantity, "quantity must be greater than zero")
	}
	if unitCost.IsNegative() {
		return reject(CodeInvalidPrice, "unit cost cannot be negative")
	}
	product, known := d.Catalog[productID]
	if len(d.Catalog) > 0 && !known {
		return reject(CodeProductNotFound, "product %q is not available", productID)
	}

	for i := range d.Items {
		if d.Items[i].ProductID == productID {
			d.Items[i].Quantity += quantity
			d.Items[i].UnitCost = unitCost
			d.touch()
			return nil
		}
	}
	d.Items = append(d.Items, PurchaseLine{
		ProductID: productID,
		Name:      product.Name,
		SKU:       product.SKU,
		Quantity:  quantity,
		UnitCost:  unitCost,
	})
	d.touch()
	return nil
}

func (d *PurchaseDraft) checkIndex(index int) error {
	if index < 0 || index >= len(d.Items) {
		return reject(CodeItemNotFound, "no line at position %d", index)
	}
	return nil
}

// RemoveItem deletes the line at index.
func (d *PurchaseDraft) RemoveItem(index int) error {
	if err := d.guard(); err != nil {
		return err
	}
	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.Items = append(d.Items[:index], d.Items[index+1:]...)
	d.touch()
	return nil
}

// UpdateItemQuantity sets the quantity of the line at index.
func (d *PurchaseDraft) UpdateItemQuantity(index int, quantity int) error {
	if err := d.guard(); err != nil {
		return err
	}
	if err := d.checkIndex(index); err != nil {
		return err
	}
	if quantity <= 0 {
		return reject(CodeInvalidQuantity, "quantity must be greater than zero")
	}
	d.Items[index].Quantity = quantity
	d.touch()
	return nil
}

// UpdateItemUnitCost sets the unit cost of the line at index.
func (d *PurchaseDraft) UpdateItemUnitCost(index int, unitCost decimal.Decimal) error {
	if err := d.guard(); err != nil {
		return err
	}
	if err := d.checkIndex(index); err != nil {
		return err
	}
	if unitCost.IsNegative() {
		return reject(CodeInvalidPrice, "unit cost cannot be negative")
	}
	d.Items[index].UnitCost = unitCost
	d.touch()
	return nil
}

// ClearItems empties the draft.
func (d *PurchaseDraft) ClearItems() error {
	if err := d.guard(); err != nil {
		return err
	}
	d.Items = []PurchaseLine{}
	d.touch()
	return nil
}

type PurchaseDetails struct {
	Supplier     *string
	PurchaseDate *string
	Status       *string
}

// UpdateDetails applies the non-nil fields of in.
func (d *PurchaseDraft) UpdateDetails(in PurchaseDetails) error {
	if err := d.guard(); err != nil {
		return err
	}
	if in.PurchaseDate != nil {
		if _, err := time.Parse(dateLayout, strings.TrimSpace(*in.PurchaseDate)); err != nil {
			return reject(CodeInvalidField, "purchase date must be YYYY-MM-DD")
		}
	}
	if in.Status != nil && !domain.IsPurchaseStatus(*in.Status) {
		return reject(CodeInvalidField, "unknown purchase status %q", *in.Status)
	}

	if in.Supplier != nil {
		d.Supplier = strings.TrimSpace(*in.Supplier)
	}
	if in.PurchaseDate != nil {
		d.PurchaseDate = strings.TrimSpace(*in.PurchaseDate)
	}
	if in.Status != nil {
		d.Status = *in.Status
	}
	d.touch()
	return nil
}

func (d *PurchaseDraft) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Items {
		total = total.Add(line.UnitCost.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

func (d *PurchaseDraft) TotalItems() int {
	n := 0
	for _, line := range d.Items {
		n += line.Quantity
	}
	return n
}

// Submittable reports whether a supplier is set and there is at least one line.
func (d *PurchaseDraft) Submittable() bool {
	return d.Supplier != "" && len(d.Items) > 0
}

// Request builds the create payload for the backend.
func (d *PurchaseDraft) Request() (domain.CreatePurchaseRequest, error) {
	if d.Supplier == "" {
		return domain.CreatePurchaseRequest{}, reject(CodeNotSubmittable, "select a supplier")
	}
	if len(d.Items) == 0 {
		return domain.CreatePurchaseRequest{}, reject(CodeNotSubmittable, "add at least one item")
	}
	items := make([]domain.PurchaseItemRequest, 0, len(d.Items))
	for _, line := range d.Items {
		items = append(items, domain.PurchaseItemRequest{
			Product:  line.ProductID,
			Quantity: line.Quantity,
			UnitCost: line.UnitCost,
		})
	}
	return domain.CreatePurchaseRequest{
		Supplier:     d.Supplier,
		Items:        items,
		PurchaseDate: d.PurchaseDate,
		Status:       d.Status,
	}, nil
}
