package liquidation

import (
	"errors"
	"strings"

	apperrors "github.com/frahmantamala/liquidation-portal/internal"
	"github.com/frahmantamala/liquidation-portal/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrNotFound        = errors.New("liquidation request not found")
	ErrItemNotFound    = errors.New("liquidation item not found")
	ErrInvalidStatus   = errors.New("invalid liquidation status")
	ErrInvalidField    = errors.New("field is not editable")
	ErrLastItem        = errors.New("a request needs at least one item")
	ErrEmptySelection  = errors.New("no requests selected")
	ErrNoEditSession   = errors.New("no field is being edited")
	ErrInvalidSortKey  = errors.New("invalid sort key")
	ErrInvalidDateSpan = errors.New("invalid date filter")
)

// Form validation messages shown to the submitter.
const (
	MsgTitleRequired = "Title is required"
	MsgItemRequired  = "At least one item is required"
)

// ItemDTO is one line item of a create or edit payload. A missing quantity
// means 1. When both unit_price and amount are present, unit_price wins and
// amount is recomputed.
type ItemDTO struct {
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Quantity    int              `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	ReceiptURL  *string          `json:"receipt_url,omitempty"`
}

// FormDTO is the request payload for creating or editing a liquidation.
type FormDTO struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Currency    string    `json:"currency"`
	Notes       string    `json:"notes"`
	Items       []ItemDTO `json:"items"`
}

// ToForm replays the payload through the form so the amount invariant holds
// for every item exactly as it does for interactive edits.
func (d FormDTO) ToForm() *Form {
	f := NewForm()
	f.Title = d.Title
	f.Description = d.Description
	f.Category = d.Category
	if c := strings.TrimSpace(d.Currency); c != "" {
		f.Currency = strings.ToUpper(c)
	}
	f.Notes = d.Notes

	f.Items = f.Items[:0]
	for _, in := range d.Items {
		it := &FormItem{Quantity: 1}
		it.Description = in.Description
		it.Category = in.Category
		it.ReceiptURL = in.ReceiptURL
		q := in.Quantity
		if q == 0 {
			q = 1
		}
		it.SetQuantity(q)
		switch {
		case in.UnitPrice != nil:
			it.SetUnitPrice(*in.UnitPrice)
		case in.Amount != nil:
			it.SetAmount(*in.Amount)
		}
		f.appendItem(it)
	}
	if len(f.Items) == 0 {
		f.AddItem()
	}
	return f
}

type BulkStatusDTO struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

func (d BulkStatusDTO) Validate() *apperrors.AppError {
	v := validation.NewValidator()
	v.Field("ids", len(d.IDs)).MinInt(1, apperrors.ErrCodeEmptySelection)
	v.Field("status", d.Status).Required().OneOf(statusNames()...)
	return v.Validate()
}

type BulkDeleteDTO struct {
	IDs []string `json:"ids"`
}

func (d BulkDeleteDTO) Validate() *apperrors.AppError {
	v := validation.NewValidator()
	v.Field("ids", len(d.IDs)).MinInt(1, apperrors.ErrCodeEmptySelection)
	return v.Validate()
}

// FieldUpdateDTO carries one inline edit.
type FieldUpdateDTO struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (d FieldUpdateDTO) Validate() *apperrors.AppError {
	v := validation.NewValidator()
	v.Field("field", d.Field).Required().OneOf(EditableFields...)
	return v.Validate()
}

// BulkResult reports how many rows a bulk action touched and the refreshed
// visible rows.
type BulkResult struct {
	Affected int64      `json:"affected"`
	Rows     []*Request `json:"rows"`
}

// ListResult is the visible subset of the caller's rows plus the category
// choices of the whole row set.
type ListResult struct {
	Rows       []*Request `json:"rows"`
	Total      int        `json:"total"`
	Categories []string   `json:"categories"`
}

func statusNames() []string {
	names := make([]string, len(Statuses))
	for i, s := range Statuses {
		names[i] = string(s)
	}
	return names
}
