package draft

import (
	"errors"
	"fmt"
)

var (
	ErrSubmitInFlight   = errors.New("submission already in progress")
	ErrAlreadySubmitted = errors.New("draft already submitted")
)

const (
	CodeInvalidQuantity    = "invalid_quantity"
	CodeInvalidPrice       = "invalid_price"
	CodeBelowMinPrice      = "below_min_price"
	CodeInsufficientStock  = "insufficient_stock"
	CodeProductNotFound    = "product_not_found"
	CodeItemNotFound       = "item_not_found"
	CodeInvalidField       = "invalid_field"
	CodeNotSubmittable     = "not_submittable"
	CodeSaleNotReturnable  = "sale_not_returnable"
	CodeSaleNotCancellable = "sale_not_cancellable"
	CodeLastAttribute      = "last_attribute"
	CodeDepthExceeded      = "depth_exceeded"
	CodeParentNotFound     = "parent_not_found"
	CodeInvalidAttribute   = "invalid_attribute"
)

// Rejection is a local validation failure. The draft it came from is left
// unchanged unless the operation documents otherwise.
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r *Rejection) Error() string {
	return r.Message
}

func reject(code string, format string, args ...any) error {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err into a *Rejection when it is one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
