package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Records mirrored from the remote backend keep its camelCase wire names.

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSales   = "sales"
)

const (
	PaymentCash    = "Cash"
	PaymentCard    = "Card"
	PaymentDigital = "Digital"
	PaymentCredit  = "Credit"
)

const (
	SaleCompleted         = "Completed"
	SaleReturned          = "Returned"
	SalePartiallyReturned = "Partially Returned"
	SaleCancelled         = "Cancelled"
)

const (
	PurchasePending   = "Pending"
	PurchaseCompleted = "Completed"
	PurchaseCancelled = "Cancelled"
)

const (
	AttributeText    = "text"
	AttributeNumber  = "number"
	AttributeSelect  = "select"
	AttributeBoolean = "boolean"
)

const MaxCategoryLevel = 3

func IsPaymentMethod(v string) bool {
	switch v {
	case PaymentCash, PaymentCard, PaymentDigital, PaymentCredit:
		return true
	}
	return false
}

func IsPurchaseStatus(v string) bool {
	switch v {
	case PurchasePending, PurchaseCompleted, PurchaseCancelled:
		return true
	}
	return false
}

func IsAttributeType(v string) bool {
	switch v {
	case AttributeText, AttributeNumber, AttributeSelect, AttributeBoolean:
		return true
	}
	return false
}

// Ref is a reference the backend sends either as a bare id or as a populated
// object.
type Ref struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	SKU   string `json:"sku,omitempty"`
	Level int    `json:"level,omitempty"`
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	type plain Ref
	var out plain
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*r = Ref(out)
	return nil
}

type Product struct {
	ID            string          `json:"_id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Barcode       string          `json:"barcode,omitempty"`
	Category      Ref             `json:"category"`
	Brand         string          `json:"brand,omitempty"`
	CostPrice     decimal.Decimal `json:"costPrice"`
	MRP           decimal.Decimal `json:"mrp"`
	MinSalePrice  decimal.Decimal `json:"minSalePrice"`
	Stock         int             `json:"stock"`
	MinStockLevel int             `json:"minStockLevel"`
	IsActive      bool            `json:"isActive"`
	Attributes    map[string]any  `json:"attributes,omitempty"`
}

type ProductRequest struct {
	Name          string          `json:"name" validate:"required,min=2"`
	SKU           string          `json:"sku" validate:"required"`
	Barcode       string          `json:"barcode,omitempty"`
	Category      string          `json:"category" validate:"required"`
	Brand         string          `json:"brand,omitempty"`
	CostPrice     decimal.Decimal `json:"costPrice"`
	MRP           decimal.Decimal `json:"mrp"`
	MinSalePrice  decimal.Decimal `json:"minSalePrice"`
	Stock         int             `json:"stock" validate:"gte=0"`
	MinStockLevel int             `json:"minStockLevel" validate:"gte=0"`
	IsActive      bool            `json:"isActive"`
	Attributes    map[string]any  `json:"attributes,omitempty"`
}

type Customer struct {
	ID             string          `json:"_id"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email,omitempty"`
	Address        string          `json:"address,omitempty"`
	CustomerType   string          `json:"customerType,omitempty"`
	CreditLimit    decimal.Decimal `json:"creditLimit"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	IsActive       bool            `json:"isActive"`
}

type CustomerRequest struct {
	Name         string          `json:"name" validate:"required,min=2"`
	Phone        string          `json:"phone" validate:"required"`
	Email        string          `json:"email,omitempty" validate:"omitempty,email"`
	Address      string          `json:"address,omitempty"`
	CustomerType string          `json:"customerType,omitempty"`
	CreditLimit  decimal.Decimal `json:"creditLimit"`
	IsActive     bool            `json:"isActive"`
}

type Supplier struct {
	ID            string `json:"_id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contactPerson,omitempty"`
	Phone         string `json:"phone"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address,omitempty"`
	IsActive      bool   `json:"isActive"`
}

type SupplierRequest struct {
	Name          string `json:"name" validate:"required,min=2"`
	ContactPerson string `json:"contactPerson,omitempty"`
	Phone         string `json:"phone" validate:"required"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Address       string `json:"address,omitempty"`
	IsActive      bool   `json:"isActive"`
}

type AttributeValidation struct {
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
}

type CategoryAttribute struct {
	Name       string               `json:"name"`
	Label      string               `json:"label"`
	Type       string               `json:"type"`
	Required   bool                 `json:"required"`
	Options    []string             `json:"options,omitempty"`
	Validation *AttributeValidation `json:"validation,omitempty"`
}

type Category struct {
	ID          string              `json:"_id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Parent      *Ref                `json:"parent,omitempty"`
	Level       int                 `json:"level"`
	Attributes  []CategoryAttribute `json:"attributes"`
	IsActive    bool                `json:"isActive"`
	Children    []Category          `json:"children,omitempty"`
}

type CreateCategoryRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Parent      string              `json:"parent,omitempty"`
	Level       int                 `json:"level"`
	Attributes  []CategoryAttribute `json:"attributes"`
	IsActive    bool                `json:"isActive"`
}

type SaleItem struct {
	ID               string          `json:"_id"`
	Product          Ref             `json:"product"`
	Quantity         int             `json:"quantity"`
	UnitMRP          decimal.Decimal `json:"unitMrp"`
	UnitSalePrice    decimal.Decimal `json:"unitSalePrice"`
	Total            decimal.Decimal `json:"total"`
	ReturnedQuantity int             `json:"returnedQuantity"`
}

type Sale struct {
	ID            string          `json:"_id"`
	InvoiceNumber string          `json:"invoiceNumber,omitempty"`
	Customer      *Ref            `json:"customer,omitempty"`
	Items         []SaleItem      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	TaxAmount     decimal.Decimal `json:"taxAmount"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	PaymentMethod string          `json:"paymentMethod"`
	Status        string          `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	ReturnReason  string          `json:"returnReason,omitempty"`
	CancelReason  string          `json:"cancelReason,omitempty"`
	SoldBy        *Ref            `json:"soldBy,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type SaleItemRequest struct {
	Product       string          `json:"product"`
	Quantity      int             `json:"quantity"`
	UnitSalePrice decimal.Decimal `json:"unitSalePrice"`
}

type CreateSaleRequest struct {
	Customer      string            `json:"customer,omitempty"`
	Items         []SaleItemRequest `json:"items"`
	PaymentMethod string            `json:"paymentMethod"`
	Discount      decimal.Decimal   `json:"discount"`
	TaxAmount     decimal.Decimal   `json:"taxAmount"`
	Notes         string            `json:"notes,omitempty"`
}

type ReturnItemRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

type ReturnSaleRequest struct {
	ReturnItems []ReturnItemRequest `json:"returnItems"`
	Reason      string              `json:"reason"`
}

type ReturnSaleResult struct {
	Sale         Sale            `json:"sale"`
	RefundAmount decimal.Decimal `json:"refundAmount"`
	Message      string          `json:"message,omitempty"`
}

type CancelSaleRequest struct {
	Reason string `json:"reason"`
}

type PurchaseItem struct {
	Product   Ref             `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

type Purchase struct {
	ID             string          `json:"_id"`
	PurchaseNumber string          `json:"purchaseNumber,omitempty"`
	Supplier       Ref             `json:"supplier"`
	Items          []PurchaseItem  `json:"items"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PurchaseDate   time.Time       `json:"purchaseDate"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type PurchaseItemRequest struct {
	Product  string          `json:"product"`
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unitCost"`
}

type CreatePurchaseRequest struct {
	Supplier     string                `json:"supplier"`
	Items        []PurchaseItemRequest `json:"items"`
	PurchaseDate string                `json:"purchaseDate,omitempty"`
	Status       string                `json:"status,omitempty"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type Page[T any] struct {
	Items      []T         `json:"items"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Gateway-owned types below use snake_case.

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	Name        string `json:"name"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
}

// HasAnyRole reports whether the actor holds one of roles.
func (a Actor) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}

type Session struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	Email         string    `json:"email" db:"email"`
	Role          string    `json:"role" db:"role"`
	UpstreamToken string    `json:"-" db:"upstream_token"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	ExpiresAt     time.Time `json:"expires_at" db:"expires_at"`
}

const (
	DraftSale     = "sale"
	DraftReturn   = "return"
	DraftPurchase = "purchase"
	DraftCategory = "category"
)

// DraftRecord is the persisted envelope of one screen's working draft.
type DraftRecord struct {
	ID        string          `json:"id" db:"id"`
	SessionID string          `json:"session_id" db:"session_id"`
	Kind      string          `json:"kind" db:"kind"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Draft inputs. Pointer fields are optional and left untouched when nil.

type SaleItemInput struct {
	ProductID string           `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type SaleItemPatch struct {
	Quantity  *int             `json:"quantity,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type SaleDetailsInput struct {
	Customer      *string          `json:"customer,omitempty"`
	PaymentMethod *string          `json:"payment_method,omitempty"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	TaxAmount     *decimal.Decimal `json:"tax_amount,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
}

type DiscountPercentInput struct {
	Percent decimal.Decimal `json:"percent"`
}

// FormValue is raw form input sent either as a JSON string or as a bare
// scalar such as a number.
type FormValue string

func (v *FormValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FormValue(s)
		return nil
	}
	*v = FormValue(data)
	return nil
}

type ReturnQuantityInput struct {
	ItemID   string    `json:"item_id" validate:"required"`
	Quantity FormValue `json:"quantity"`
}

type ReturnReasonInput struct {
	Reason string `json:"reason"`
}

type CancelSaleInput struct {
	Reason     string `json:"reason"`
	ManagerPIN string `json:"manager_pin,omitempty"`
}

type PurchaseItemInput struct {
	ProductID string           `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
}

type PurchaseItemPatch struct {
	Quantity *int             `json:"quantity,omitempty"`
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
}

type PurchaseDetailsInput struct {
	Supplier     *string `json:"supplier,omitempty"`
	PurchaseDate *string `json:"purchase_date,omitempty"`
	Status       *string `json:"status,omitempty"`
}

type PurchaseStatusInput struct {
	Status string `json:"status" validate:"required,oneof=Pending Completed Cancelled"`
}

type CategoryDetailsInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type CategoryParentInput struct {
	ParentID string `json:"parent_id"`
}

type AttributeInput struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type" validate:"omitempty,oneof=text number select boolean"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
	Min      string   `json:"min,omitempty"`
	Max      string   `json:"max,omitempty"`
	Pattern  string   `json:"pattern,omitempty"`
}

type AttributePatchInput struct {
	Name     *string `json:"name,omitempty"`
	Label    *string `json:"label,omitempty"`
	Type     *string `json:"type,omitempty" validate:"omitempty,oneof=text number select boolean"`
	Required *bool   `json:"required,omitempty"`
	Min      *string `json:"min,omitempty"`
	Max      *string `json:"max,omitempty"`
	Pattern  *string `json:"pattern,omitempty"`
}

type AttributeOptionInput struct {
	Option string `json:"option"`
}

type OpenReturnDraftInput struct {
	SaleID string `json:"sale_id" validate:"required"`
}

// OpenPurchaseDraftInput opens an edit draft when PurchaseID is set.
type OpenPurchaseDraftInput struct {
	PurchaseID string `json:"purchase_id,omitempty"`
}

// OpenCategoryDraftInput opens an edit draft when CategoryID is set.
type OpenCategoryDraftInput struct {
	CategoryID string `json:"category_id,omitempty"`
}
