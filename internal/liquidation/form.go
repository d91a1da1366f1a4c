package liquidation

import (
	"fmt"
	"strings"

	apperrors "github.com/frahmantamala/liquidation-portal/internal"
	"github.com/frahmantamala/liquidation-portal/internal/core/common/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// unitPricePlaces is the precision of a unit price back-derived from an
// amount edit.
const unitPricePlaces = 4

// FormItem is one editable line item. Key identifies the row inside the form
// (and for receipt uploads) before it has a persisted id.
type FormItem struct {
	Key         string          `json:"key"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	ReceiptURL  *string         `json:"receipt_url,omitempty"`
}

// SetQuantity recomputes the amount from the current unit price.
func (it *FormItem) SetQuantity(q int) {
	it.Quantity = q
	it.Amount = it.UnitPrice.Mul(decimal.NewFromInt(int64(q)))
}

// SetUnitPrice recomputes the amount from the current quantity.
func (it *FormItem) SetUnitPrice(p decimal.Decimal) {
	it.UnitPrice = p
	it.Amount = p.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// SetAmount keeps the amount as entered and back-derives the unit price when
// the quantity is positive.
func (it *FormItem) SetAmount(a decimal.Decimal) {
	it.Amount = a
	if it.Quantity > 0 {
		it.UnitPrice = a.DivRound(decimal.NewFromInt(int64(it.Quantity)), unitPricePlaces)
	}
}

func (it *FormItem) blank() bool {
	return strings.TrimSpace(it.Description) == ""
}

// Form is the in-progress state of a create or edit. It always holds at
// least one item.
type Form struct {
	RequestID   string      `json:"request_id,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Currency    string      `json:"currency"`
	Notes       string      `json:"notes"`
	Items       []*FormItem `json:"items"`
}

func NewForm() *Form {
	f := &Form{Currency: DefaultCurrency}
	f.AddItem()
	return f
}

// FormFromRequest loads a persisted request for editing.
func FormFromRequest(r *Request) *Form {
	f := &Form{
		RequestID:   r.ID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Currency:    r.Currency,
		Notes:       r.Notes,
	}
	for _, it := range r.Items {
		f.appendItem(&FormItem{
			Key:         it.ID,
			Description: it.Description,
			Category:    it.Category,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount,
			ReceiptURL:  it.ReceiptURL,
		})
	}
	if len(f.Items) == 0 {
		f.AddItem()
	}
	if f.Currency == "" {
		f.Currency = DefaultCurrency
	}
	return f
}

// AddItem appends a blank row with quantity 1 and returns it.
func (f *Form) AddItem() *FormItem {
	it := &FormItem{Quantity: 1}
	f.appendItem(it)
	return it
}

func (f *Form) appendItem(it *FormItem) {
	if it.Key == "" {
		it.Key = uuid.NewString()
	}
	f.Items = append(f.Items, it)
}

func (f *Form) Item(key string) (*FormItem, bool) {
	for _, it := range f.Items {
		if it.Key == key {
			return it, true
		}
	}
	return nil, false
}

// RemoveItem drops a row. The last remaining row cannot be removed.
func (f *Form) RemoveItem(key string) error {
	if len(f.Items) <= 1 {
		return ErrLastItem
	}
	for i, it := range f.Items {
		if it.Key == key {
			f.Items = append(f.Items[:i], f.Items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

// Total is the live header total over every row, blank ones included.
func (f *Form) Total() decimal.Decimal {
	return sumAmounts(f.Items)
}

// SubmittedItems returns the rows that will be saved: blank descriptions are
// dropped.
func (f *Form) SubmittedItems() []*FormItem {
	kept := make([]*FormItem, 0, len(f.Items))
	for _, it := range f.Items {
		if !it.blank() {
			kept = append(kept, it)
		}
	}
	return kept
}

// SubmittedTotal is the total persisted on save.
func (f *Form) SubmittedTotal() decimal.Decimal {
	return sumAmounts(f.SubmittedItems())
}

func sumAmounts(items []*FormItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}

func (f *Form) Validate() *apperrors.AppError {
	v := validation.NewValidator()
	v.Field("title", f.Title).RequiredWithMessage(MsgTitleRequired, apperrors.ErrCodeTitleRequired)

	kept := f.SubmittedItems()
	v.Field("items", len(kept)).Custom(func(value interface{}) *apperrors.AppError {
		if value.(int) == 0 {
			return apperrors.NewValidationFieldError("items", MsgItemRequired, apperrors.ErrCodeItemRequired)
		}
		return nil
	})
	for i, it := range kept {
		prefix := fmt.Sprintf("items[%d]", i)
		v.Field(prefix+".quantity", it.Quantity).MinInt(1, apperrors.ErrCodeInvalidQuantity)
		v.Field(prefix+".unit_price", it.UnitPrice).NonNegative(apperrors.ErrCodeInvalidAmount)
		v.Field(prefix+".amount", it.Amount).NonNegative(apperrors.ErrCodeInvalidAmount)
	}
	return v.Validate()
}
