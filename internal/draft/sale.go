package draft

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
)

var hundred = decimal.NewFromInt(100)

type SaleLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineCandidate is a line the cashier wants to add.
type LineCandidate struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// SaleDraft is the cart of one sale screen. Catalog is the product snapshot
// taken when the screen was opened.
type SaleDraft struct {
	Lifecycle
	Customer      string                    `json:"customer,omitempty"`
	PaymentMethod string                    `json:"payment_method"`
	Discount      decimal.Decimal           `json:"discount"`
	TaxAmount     decimal.Decimal           `json:"tax_amount"`
	Notes         string                    `json:"notes,omitempty"`
	Items         []SaleLine                `json:"items"`
	Catalog       map[string]domain.Product `json:"catalog"`
}

// NewSaleDraft keeps only products that can be sold right now.
func NewSaleDraft(products []domain.Product) *SaleDraft {
	catalog := make(map[string]domain.Product, len(products))
	for _, p := range products {
		if !p.IsActive || p.Stock <= 0 {
			continue
		}
		catalog[p.ID] = p
	}
	return &SaleDraft{
		Lifecycle:     newLifecycle(),
		PaymentMethod: domain.PaymentCash,
		Items:         []SaleLine{},
		Catalog:       catalog,
	}
}

// DefaultUnitPrice is the price a new line starts with.
func (d *SaleDraft) DefaultUnitPrice(productID string) (decimal.Decimal, bool) {
	p, ok := d.Catalog[productID]
	if !ok {
		return decimal.Zero, false
	}
	return p.MRP, true
}

func (d *SaleDraft) indexOf(productID string) int {
	for i, line := range d.Items {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem appends a line or merges into the line for the same product,
// rejecting quantities above stock and prices below the minimum.
func (d *SaleDraft) AddItem(c LineCandidate) error {
	if err := d.guard(); err != nil {
		return err
	}
	if c.Quantity <= 0 {
		return reject(CodeInvalidQuantity, "quantity must be greater than zero")
	}
	if c.UnitPrice.IsNegative() {
		return reject(CodeInvalidPrice, "unit price cannot be negative")
	}
	product, ok := d.Catalog[c.ProductID]
	if !ok {
		return reject(CodeProductNotFound, "product %q is not available", c.ProductID)
	}

	idx := d.indexOf(c.ProductID)
	wanted := c.Quantity
	if idx >= 0 {
		wanted += d.Items[idx].Quantity
	}
	if wanted > product.Stock {
		return reject(CodeInsufficientStock, "only %d of %s in stock", product.Stock, product.Name)
	}
	if c.UnitPrice.LessThan(product.MinSalePrice) {
		return reject(CodeBelowMinPrice, "price for %s cannot be below %s", product.Name, product.MinSalePrice.StringFixed(2))
	}

	if idx >= 0 {
		d.Items[idx].Quantity = wanted
		d.Items[idx].UnitPrice = c.UnitPrice
	} else {
		d.Items = append(d.Items, SaleLine{
			ProductID: product.ID,
			Name:      product.Name,
			SKU:       product.SKU,
			Quantity:  c.Quantity,
			UnitPrice: c.UnitPrice,
		})
	}
	d.touch()
	return nil
}

func (d *SaleDraft) line(index int) (*SaleLine, domain.Product, error) {
	if index < 0 || index >= len(d.Items) {
		return nil, domain.Product{}, reject(CodeItemNotFound, "no line at position %d", index)
	}
	line := &d.Items[index]
	return line, d.Catalog[line.ProductID], nil
}

// RemoveItem deletes the line at index.
func (d *SaleDraft) RemoveItem(index int) error {
	if err := d.guard(); err != nil {
		return err
	}
	if index < 0 || index >= len(d.Items) {
		return reject(CodeItemNotFound, "no line at position %d", index)
	}
	d.Items = append(d.Items[:index], d.Items[index+1:]...)
	d.touch()
	return nil
}

// UpdateItemQuantity sets the quantity of the line at index within stock.
func (d *SaleDraft) UpdateItemQuantity(index int, quantity int) error {
	if err := d.guard(); err != nil {
		return err
	}
	line, product, err := d.line(index)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		return reject(CodeInvalidQuantity, "quantity must be greater than zero")
	}
	if quantity > product.Stock {
		return reject(CodeInsufficientStock, "only %d of %s in stock", product.Stock, line.Name)
	}
	line.Quantity = quantity
	d.touch()
	return nil
}

// UpdateItemPrice sets the unit price of the line at index.
func (d *SaleDraft) UpdateItemPrice(index int, price decimal.Decimal) error {
	if err := d.guard(); err != nil {
		return err
	}
	line, product, err := d.line(index)
	if err != nil {
		return err
	}
	if price.IsNegative() {
		return reject(CodeInvalidPrice, "unit price cannot be negative")
	}
	if price.LessThan(product.MinSalePrice) {
		return reject(CodeBelowMinPrice, "price for %s cannot be below %s", line.Name, product.MinSalePrice.StringFixed(2))
	}
	line.UnitPrice = price
	d.touch()
	return nil
}

// ClearItems empties the cart.
func (d *SaleDraft) ClearItems() error {
	if err := d.guard(); err != nil {
		return err
	}
	d.Items = []SaleLine{}
	d.touch()
	return nil
}

// ApplyDiscountPercent sets the discount to pct percent of the current subtotal.
func (d *SaleDraft) ApplyDiscountPercent(pct decimal.Decimal) error {
	if err := d.guard(); err != nil {
		return err
	}
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return reject(CodeInvalidField, "discount percent must be between 0 and 100")
	}
	d.Discount = d.Subtotal().Mul(pct).Div(hundred)
	d.touch()
	return nil
}

// SaleDetails carries the optional header fields of a sale. Nil fields are
// left untouched.
type SaleDetails struct {
	Customer      *string
	PaymentMethod *string
	Discount      *decimal.Decimal
	TaxAmount     *decimal.Decimal
	Notes         *string
}

// UpdateDetails applies the non-nil fields of in.
func (d *SaleDraft) UpdateDetails(in SaleDetails) error {
	if err := d.guard(); err != nil {
		return err
	}
	if in.PaymentMethod != nil && !domain.IsPaymentMethod(*in.PaymentMethod) {
		return reject(CodeInvalidField, "unknown payment method %q", *in.PaymentMethod)
	}
	if in.Discount != nil && in.Discount.IsNegative() {
		return reject(CodeInvalidField, "discount cannot be negative")
	}
	if in.TaxAmount != nil && in.TaxAmount.IsNegative() {
		return reject(CodeInvalidField, "tax amount cannot be negative")
	}

	if in.Customer != nil {
		d.Customer = strings.TrimSpace(*in.Customer)
	}
	if in.PaymentMethod != nil {
		d.PaymentMethod = *in.PaymentMethod
	}
	if in.Discount != nil {
		d.Discount = *in.Discount
	}
	if in.TaxAmount != nil {
		d.TaxAmount = *in.TaxAmount
	}
	if in.Notes != nil {
		d.Notes = strings.TrimSpace(*in.Notes)
	}
	d.touch()
	return nil
}

func (d *SaleDraft) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Items {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// Total is the subtotal less discount plus tax.
func (d *SaleDraft) Total() decimal.Decimal {
	return d.Subtotal().Sub(d.Discount).Add(d.TaxAmount)
}

func (d *SaleDraft) TotalItemCount() int {
	count := 0
	for _, line := range d.Items {
		count += line.Quantity
	}
	return count
}

// LineProfit is (unit price - cost) times quantity, or zero for a bad index.
func (d *SaleDraft) LineProfit(index int) decimal.Decimal {
	if index < 0 || index >= len(d.Items) {
		return decimal.Zero
	}
	line := d.Items[index]
	cost := d.Catalog[line.ProductID].CostPrice
	return line.UnitPrice.Sub(cost).Mul(decimal.NewFromInt(int64(line.Quantity)))
}

func (d *SaleDraft) TotalProfit() decimal.Decimal {
	total := decimal.Zero
	for i := range d.Items {
		total = total.Add(d.LineProfit(i))
	}
	return total
}

// Savings is how far below MRP the cart is priced.
func (d *SaleDraft) Savings() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Items {
		mrp := d.Catalog[line.ProductID].MRP
		total = total.Add(mrp.Sub(line.UnitPrice).Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// Submittable reports whether the cart has at least one line.
func (d *SaleDraft) Submittable() bool {
	return len(d.Items) > 0
}

// Request builds the create payload for the backend.
func (d *SaleDraft) Request() (domain.CreateSaleRequest, error) {
	if !d.Submittable() {
		return domain.CreateSaleRequest{}, reject(CodeNotSubmittable, "add at least one item")
	}
	items := make([]domain.SaleItemRequest, 0, len(d.Items))
	for _, line := range d.Items {
		items = append(items, domain.SaleItemRequest{
			Product:       line.ProductID,
			Quantity:      line.Quantity,
			UnitSalePrice: line.UnitPrice,
		})
	}
	return domain.CreateSaleRequest{
		Customer:      d.Customer,
		Items:         items,
		PaymentMethod: d.PaymentMethod,
		Discount:      d.Discount,
		TaxAmount:     d.TaxAmount,
		Notes:         d.Notes,
	}, nil
}
