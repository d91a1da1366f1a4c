package liquidation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/frahmantamala/liquidation-portal/internal"
	"github.com/frahmantamala/liquidation-portal/internal/auth"
	liquidationDatamodel "github.com/frahmantamala/liquidation-portal/internal/core/datamodel/liquidation"
	"github.com/frahmantamala/liquidation-portal/internal/core/events"
	"github.com/shopspring/decimal"
)

// Scope narrows a row fetch. Empty fields do not filter.
type Scope struct {
	OwnerID  string
	Since    *time.Time
	Category string
	Status   Status
}

// RepositoryAPI is the row store for requests and their items.
type RepositoryAPI interface {
	List(ctx context.Context, scope Scope) ([]*liquidationDatamodel.Request, error)
	GetByID(ctx context.Context, id string) (*liquidationDatamodel.Request, error)
	// Create inserts the header and its items in one transaction.
	Create(ctx context.Context, req *liquidationDatamodel.Request) error
	// Replace updates the header and swaps the whole item set in one
	// transaction.
	Replace(ctx context.Context, req *liquidationDatamodel.Request) error
	CreateMany(ctx context.Context, reqs []*liquidationDatamodel.Request) error
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	UpdateStatus(ctx context.Context, ids []string, status string, approvedDate *time.Time) (int64, error)
	// DeleteMany removes requests and their items. A non-empty ownerID
	// restricts the delete to that owner's rows.
	DeleteMany(ctx context.Context, ids []string, ownerID string) (int64, error)
	SetItemReceipt(ctx context.Context, itemID, url string) error
	// ItemOwner returns the user id owning the request that holds the item.
	ItemOwner(ctx context.Context, itemID string) (string, error)
}

// StatsRepositoryAPI is the read path for dashboard counters.
type StatsRepositoryAPI interface {
	CountByStatus(ctx context.Context, status, ownerID string) (int64, error)
}

type Service struct {
	repo   RepositoryAPI
	stats  StatsRepositoryAPI
	policy *auth.AccessPolicy
	bus    *events.EventBus
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, stats StatsRepositoryAPI, policy *auth.AccessPolicy, bus *events.EventBus, logger *slog.Logger) *Service {
	if policy == nil {
		policy = auth.NewAccessPolicy(nil)
	}
	return &Service{
		repo:   repo,
		stats:  stats,
		policy: policy,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for submission and approval
// stamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NewTable opens a list view over the caller's rows.
func (s *Service) NewTable(actor *auth.User) *Table {
	return NewTable(s, actor).WithClock(s.now).WithLogger(s.logger)
}

// Fetch returns every row the caller may see: all rows for reviewers, their
// own otherwise.
func (s *Service) Fetch(ctx context.Context, actor *auth.User) ([]*Request, error) {
	return s.fetch(ctx, actor, Scope{})
}

// Window returns the caller's rows submitted since the given time,
// optionally restricted to one category ("all" or empty means any).
func (s *Service) Window(ctx context.Context, actor *auth.User, since time.Time, category string) ([]*Request, error) {
	if category == filterAll {
		category = ""
	}
	return s.fetch(ctx, actor, Scope{Since: &since, Category: category})
}

func (s *Service) fetch(ctx context.Context, actor *auth.User, scope Scope) ([]*Request, error) {
	if actor == nil {
		return nil, auth.ErrForbidden
	}
	scope.OwnerID = s.policy.OwnerScope(actor)
	rows, err := s.repo.List(ctx, scope)
	if err != nil {
		s.logger.Error("failed to list liquidation requests", "error", err, "user_id", actor.ID)
		return nil, err
	}
	return FromDataModelSlice(rows), nil
}

func (s *Service) Get(ctx context.Context, actor *auth.User, id string) (*Request, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanView(actor, row.UserID); err != nil {
		s.logger.Warn("unauthorized access to liquidation request", "liquidation_id", id, "user_id", actorID(actor))
		return nil, err
	}
	return FromDataModel(row), nil
}

// Create validates the form and stores the header with its non-blank items.
func (s *Service) Create(ctx context.Context, actor *auth.User, form *Form) (*Request, error) {
	if actor == nil {
		return nil, auth.ErrForbidden
	}
	if appErr := form.Validate(); appErr != nil {
		return nil, appErr
	}

	row := &liquidationDatamodel.Request{
		Title:         strings.TrimSpace(form.Title),
		Description:   form.Description,
		Category:      strings.TrimSpace(form.Category),
		Currency:      currencyOrDefault(form.Currency),
		TotalAmount:   form.SubmittedTotal(),
		Status:        string(StatusPending),
		SubmittedDate: s.now(),
		Notes:         form.Notes,
		UserID:        actor.ID,
		Items:         formItems(form),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create liquidation request", "error", err, "user_id", actor.ID)
		return nil, err
	}

	s.logger.Info("liquidation request created",
		"liquidation_id", row.ID,
		"user_id", actor.ID,
		"items", len(row.Items),
		"total", row.TotalAmount.String())
	s.publish(ctx, events.NewLiquidationSavedEvent(row.ID, actor.ID, true))

	return s.reload(ctx, row.ID)
}

// Update rewrites the header and replaces the item set. Status, owner and
// submission date are kept.
func (s *Service) Update(ctx context.Context, actor *auth.User, id string, form *Form) (*Request, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanEdit(actor, row.UserID); err != nil {
		s.logger.Warn("unauthorized edit of liquidation request", "liquidation_id", id, "user_id", actorID(actor))
		return nil, err
	}
	if appErr := form.Validate(); appErr != nil {
		return nil, appErr
	}

	row.Title = strings.TrimSpace(form.Title)
	row.Description = form.Description
	row.Category = strings.TrimSpace(form.Category)
	row.Currency = currencyOrDefault(form.Currency)
	row.Notes = form.Notes
	row.TotalAmount = form.SubmittedTotal()
	row.Items = formItems(form)
	row.Requester = nil

	if err := s.repo.Replace(ctx, row); err != nil {
		s.logger.Error("failed to update liquidation request", "error", err, "liquidation_id", id)
		return nil, err
	}

	s.logger.Info("liquidation request updated", "liquidation_id", id, "items", len(row.Items))
	s.publish(ctx, events.NewLiquidationSavedEvent(id, row.UserID, false))

	return s.reload(ctx, id)
}

// UpdateField applies one inline edit.
func (s *Service) UpdateField(ctx context.Context, actor *auth.User, id, field, value string) (*Request, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanEdit(actor, row.UserID); err != nil {
		return nil, err
	}

	fields, err := s.fieldUpdate(actor, field, value)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		s.logger.Error("failed to update liquidation field", "error", err, "liquidation_id", id, "field", field)
		return nil, err
	}

	s.logger.Info("liquidation field updated", "liquidation_id", id, "field", field, "user_id", actor.ID)
	if field == "status" {
		s.publish(ctx, events.NewLiquidationStatusChangedEvent([]string{id}, fields["status"].(string), actor.ID))
	}
	return s.reload(ctx, id)
}

func (s *Service) fieldUpdate(actor *auth.User, field, value string) (map[string]interface{}, error) {
	switch field {
	case "title":
		title := strings.TrimSpace(value)
		if title == "" {
			return nil, apperrors.NewValidationFieldError("title", MsgTitleRequired, apperrors.ErrCodeTitleRequired)
		}
		return map[string]interface{}{"title": title}, nil
	case "description", "notes":
		return map[string]interface{}{field: value}, nil
	case "category":
		return map[string]interface{}{"category": strings.TrimSpace(value)}, nil
	case "currency":
		c := strings.ToUpper(strings.TrimSpace(value))
		if len(c) != 3 {
			return nil, apperrors.NewValidationFieldError("currency", "Currency must be a 3-letter code", apperrors.ErrCodeInvalidField)
		}
		return map[string]interface{}{"currency": c}, nil
	case "total_amount":
		amount, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || amount.IsNegative() {
			return nil, apperrors.NewValidationFieldError("total_amount", "Amount must be a non-negative number", apperrors.ErrCodeInvalidAmount)
		}
		return map[string]interface{}{"total_amount": amount.Round(2)}, nil
	case "status":
		if err := s.policy.CanChangeStatus(actor); err != nil {
			return nil, err
		}
		status, err := ParseStatus(value)
		if err != nil {
			return nil, err
		}
		fields := map[string]interface{}{"status": string(status)}
		if status == StatusApproved {
			fields["approved_date"] = s.now()
		}
		return fields, nil
	}
	return nil, ErrInvalidField
}

// BulkUpdateStatus assigns one status to every id in a single store call.
// Approving stamps the approval date.
func (s *Service) BulkUpdateStatus(ctx context.Context, actor *auth.User, ids []string, status Status) (int64, error) {
	if err := s.policy.CanChangeStatus(actor); err != nil {
		s.logger.Warn("bulk status change denied", "user_id", actorID(actor))
		return 0, err
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, ErrEmptySelection
	}

	var approvedDate *time.Time
	if status == StatusApproved {
		now := s.now()
		approvedDate = &now
	}
	n, err := s.repo.UpdateStatus(ctx, ids, string(status), approvedDate)
	if err != nil {
		s.logger.Error("failed to bulk update status", "error", err, "count", len(ids), "status", status)
		return 0, err
	}

	s.logger.Info("liquidation statuses updated", "count", n, "status", status, "user_id", actor.ID)
	s.publish(ctx, events.NewLiquidationStatusChangedEvent(ids, string(status), actor.ID))
	return n, nil
}

// BulkDelete removes the requests and their items. Plain users can only
// delete their own rows; foreign ids are skipped.
func (s *Service) BulkDelete(ctx context.Context, actor *auth.User, ids []string) (int64, error) {
	if actor == nil {
		return 0, auth.ErrForbidden
	}
	if len(ids) == 0 {
		return 0, ErrEmptySelection
	}

	n, err := s.repo.DeleteMany(ctx, ids, s.policy.OwnerScope(actor))
	if err != nil {
		s.logger.Error("failed to bulk delete", "error", err, "count", len(ids))
		return 0, err
	}

	s.logger.Info("liquidation requests deleted", "count", n, "user_id", actor.ID)
	s.publish(ctx, events.NewLiquidationsDeletedEvent(ids, actor.ID))
	return n, nil
}

// PendingCount counts pending requests visible to the caller.
func (s *Service) PendingCount(ctx context.Context, actor *auth.User) (int64, error) {
	if actor == nil {
		return 0, auth.ErrForbidden
	}
	n, err := s.stats.CountByStatus(ctx, string(StatusPending), s.policy.OwnerScope(actor))
	if err != nil {
		s.logger.Error("failed to count pending requests", "error", err)
		return 0, err
	}
	return n, nil
}

// Import stores one request per spreadsheet record, owned by the caller.
// Rows imported by callers who cannot change statuses start pending.
func (s *Service) Import(ctx context.Context, actor *auth.User, records []map[string]string) (int, error) {
	if actor == nil {
		return 0, auth.ErrForbidden
	}
	keepStatus := s.policy.CanChangeStatus(actor) == nil
	rows := RequestsFromRecords(records, actor.ID, s.now(), keepStatus)
	if len(rows) == 0 {
		return 0, nil
	}
	if err := s.repo.CreateMany(ctx, rows); err != nil {
		s.logger.Error("failed to import liquidation requests", "error", err, "count", len(rows))
		return 0, err
	}
	s.logger.Info("liquidation requests imported", "count", len(rows), "user_id", actor.ID)
	return len(rows), nil
}

// AuthorizeReceipt checks that actor may attach a receipt to the item. Keys
// that match no saved item belong to an unsaved form and are allowed.
func (s *Service) AuthorizeReceipt(ctx context.Context, actor *auth.User, itemID string) error {
	if actor == nil {
		return auth.ErrForbidden
	}
	owner, err := s.repo.ItemOwner(ctx, itemID)
	if errors.Is(err, ErrItemNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Error("failed to resolve item owner", "error", err, "item_id", itemID)
		return err
	}
	return s.policy.CanEdit(actor, owner)
}

// AttachReceipt records the uploaded receipt URL on a persisted item the
// actor may edit.
func (s *Service) AttachReceipt(ctx context.Context, actor *auth.User, itemID, url string) error {
	owner, err := s.repo.ItemOwner(ctx, itemID)
	if err != nil {
		return err
	}
	if err := s.policy.CanEdit(actor, owner); err != nil {
		s.logger.Warn("receipt attach denied", "item_id", itemID, "user_id", actorID(actor))
		return err
	}
	if err := s.repo.SetItemReceipt(ctx, itemID, url); err != nil {
		if !errors.Is(err, ErrItemNotFound) {
			s.logger.Error("failed to attach receipt", "error", err, "item_id", itemID)
		}
		return err
	}
	s.logger.Info("receipt attached", "item_id", itemID)
	return nil
}

func (s *Service) reload(ctx context.Context, id string) (*Request, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(row), nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "error", err, "event_type", event.EventType())
	}
}

func formItems(form *Form) []liquidationDatamodel.Item {
	kept := form.SubmittedItems()
	items := make([]liquidationDatamodel.Item, len(kept))
	for i, it := range kept {
		items[i] = liquidationDatamodel.Item{
			Description: strings.TrimSpace(it.Description),
			Category:    strings.TrimSpace(it.Category),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount,
			ReceiptURL:  it.ReceiptURL,
			Position:    i,
		}
	}
	return items
}

func currencyOrDefault(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

func actorID(u *auth.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
