package liquidation

import (
	"time"

	liquidationDatamodel "github.com/frahmantamala/liquidation-portal/internal/core/datamodel/liquidation"
	profileDatamodel "github.com/frahmantamala/liquidation-portal/internal/core/datamodel/profile"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusProcessing Status = "processing"
)

// Statuses lists every status in reporting order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusProcessing}

func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

const (
	DefaultCurrency    = "USD"
	UnknownRequester   = "Unknown"
	UncategorizedLabel = "Uncategorized"
)

type Requester struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type Item struct {
	ID            string          `json:"id"`
	LiquidationID string          `json:"liquidation_id"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Amount        decimal.Decimal `json:"amount"`
	ReceiptURL    *string         `json:"receipt_url,omitempty"`
}

type Request struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Currency      string          `json:"currency"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        Status          `json:"status"`
	SubmittedDate time.Time       `json:"submitted_date"`
	ApprovedDate  *time.Time      `json:"approved_date,omitempty"`
	Notes         string          `json:"notes"`
	UserID        string          `json:"user_id"`
	Requester     Requester       `json:"requester"`
	Items         []Item          `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RequesterName is the display name used for search, sorting and exports.
func (r *Request) RequesterName() string {
	if r.Requester.FullName == "" {
		return UnknownRequester
	}
	return r.Requester.FullName
}

func (r *Request) CategoryOrDefault() string {
	if r.Category == "" {
		return UncategorizedLabel
	}
	return r.Category
}

func FromDataModel(r *liquidationDatamodel.Request) *Request {
	items := make([]Item, len(r.Items))
	for i, it := range r.Items {
		items[i] = Item{
			ID:            it.ID,
			LiquidationID: it.LiquidationID,
			Description:   it.Description,
			Category:      it.Category,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			Amount:        it.Amount,
			ReceiptURL:    it.ReceiptURL,
		}
	}
	return &Request{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Category:      r.Category,
		Currency:      r.Currency,
		TotalAmount:   r.TotalAmount,
		Status:        Status(r.Status),
		SubmittedDate: r.SubmittedDate,
		ApprovedDate:  r.ApprovedDate,
		Notes:         r.Notes,
		UserID:        r.UserID,
		Requester:     requesterFromProfile(r.UserID, r.Requester),
		Items:         items,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func requesterFromProfile(userID string, p *profileDatamodel.Profile) Requester {
	if p == nil {
		return Requester{ID: userID}
	}
	return Requester{ID: userID, FullName: p.FullName, Email: p.Email}
}

func FromDataModelSlice(rows []*liquidationDatamodel.Request) []*Request {
	result := make([]*Request, len(rows))
	for i, r := range rows {
		result[i] = FromDataModel(r)
	}
	return result
}
