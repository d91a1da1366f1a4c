package liquidation

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/liquidation-portal/internal/auth"
)

// Store is the row source and mutation target behind a Table.
type Store interface {
	Fetch(ctx context.Context, actor *auth.User) ([]*Request, error)
	BulkUpdateStatus(ctx context.Context, actor *auth.User, ids []string, status Status) (int64, error)
	BulkDelete(ctx context.Context, actor *auth.User, ids []string) (int64, error)
	UpdateField(ctx context.Context, actor *auth.User, id, field, value string) (*Request, error)
}

// Table is the list view of one caller: the fetched rows, the active
// predicates and sort, the selection and at most one open inline edit.
// Every mutation goes through the store and is followed by a refetch.
type Table struct {
	store  Store
	actor  *auth.User
	now    func() time.Time
	logger *slog.Logger

	rows      []*Request
	visible   []*Request
	filter    Filter
	sort      Sort
	selection *Selection
	edit      *EditSession
}

func NewTable(store Store, actor *auth.User) *Table {
	return &Table{
		store:     store,
		actor:     actor,
		now:       time.Now,
		logger:    slog.Default(),
		sort:      DefaultSort,
		selection: NewSelection(),
	}
}

func (t *Table) WithClock(now func() time.Time) *Table {
	t.now = now
	return t
}

func (t *Table) WithLogger(logger *slog.Logger) *Table {
	if logger != nil {
		t.logger = logger
	}
	return t
}

// Refresh refetches the rows. On failure the previous rows are kept.
func (t *Table) Refresh(ctx context.Context) error {
	rows, err := t.store.Fetch(ctx, t.actor)
	if err != nil {
		return err
	}
	t.rows = rows

	stale := t.selection.IDs()
	t.selection.Clear()
	for _, id := range stale {
		if t.row(id) != nil {
			t.selection.Add(id)
		}
	}
	t.recompute()
	return nil
}

func (t *Table) recompute() {
	t.visible = Apply(t.rows, t.filter, t.sort, t.now())
}

func (t *Table) SetFilter(f Filter) {
	t.filter = f
	t.recompute()
}

func (t *Table) SetSort(s Sort) {
	t.sort = s
	t.recompute()
}

func (t *Table) Filter() Filter { return t.filter }
func (t *Table) Sort() Sort     { return t.sort }

func (t *Table) Rows() []*Request    { return t.rows }
func (t *Table) Visible() []*Request { return t.visible }

func (t *Table) Categories() []string {
	return Categories(t.rows)
}

func (t *Table) row(id string) *Request {
	for _, r := range t.rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Toggle flips the selection of a loaded row. Unknown ids are ignored.
func (t *Table) Toggle(id string) bool {
	if t.row(id) == nil {
		return false
	}
	return t.selection.Toggle(id)
}

// Select adds the given ids that belong to loaded rows and returns how many
// are selected afterwards.
func (t *Table) Select(ids ...string) int {
	for _, id := range ids {
		if t.row(id) != nil {
			t.selection.Add(id)
		}
	}
	return t.selection.Len()
}

// SelectAll selects every visible row.
func (t *Table) SelectAll() {
	for _, r := range t.visible {
		t.selection.Add(r.ID)
	}
}

func (t *Table) ClearSelection() {
	t.selection.Clear()
}

func (t *Table) Selected() []string {
	return t.selection.IDs()
}

// BulkSetStatus assigns status to the whole selection in one store call.
func (t *Table) BulkSetStatus(ctx context.Context, status Status) (int64, error) {
	if t.selection.Len() == 0 {
		return 0, ErrEmptySelection
	}
	ids := t.selection.IDs()
	n, err := t.store.BulkUpdateStatus(ctx, t.actor, ids, status)
	if err != nil {
		return 0, err
	}
	t.selection.Clear()
	if err := t.Refresh(ctx); err != nil {
		t.logger.Warn("refetch after bulk status failed, updating rows in place", "error", err, "count", n)
		for _, id := range ids {
			if r := t.row(id); r != nil {
				r.Status = status
			}
		}
		t.recompute()
	}
	return n, nil
}

// BulkDelete removes the whole selection in one store call.
func (t *Table) BulkDelete(ctx context.Context) (int64, error) {
	if t.selection.Len() == 0 {
		return 0, ErrEmptySelection
	}
	ids := t.selection.IDs()
	n, err := t.store.BulkDelete(ctx, t.actor, ids)
	if err != nil {
		return 0, err
	}
	t.selection.Clear()
	if err := t.Refresh(ctx); err != nil {
		t.logger.Warn("refetch after bulk delete failed, dropping rows in place", "error", err, "count", n)
		t.drop(ids)
	}
	return n, nil
}

func (t *Table) drop(ids []string) {
	gone := make(map[string]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}
	kept := make([]*Request, 0, len(t.rows))
	for _, r := range t.rows {
		if !gone[r.ID] {
			kept = append(kept, r)
		}
	}
	t.rows = kept
	t.recompute()
}

// BeginEdit opens an inline edit on one cell, replacing any open edit.
func (t *Table) BeginEdit(id, field string) error {
	r := t.row(id)
	if r == nil {
		return ErrNotFound
	}
	if !isEditable(field) {
		return ErrInvalidField
	}
	if field == "status" && (t.actor == nil || !t.actor.IsReviewer()) {
		return auth.ErrForbidden
	}
	t.edit = &EditSession{RowID: id, Field: field, Value: fieldValue(r, field)}
	return nil
}

func (t *Table) SetEditValue(v string) error {
	if t.edit == nil {
		return ErrNoEditSession
	}
	t.edit.Value = v
	return nil
}

func (t *Table) Editing() (EditSession, bool) {
	if t.edit == nil {
		return EditSession{}, false
	}
	return *t.edit, true
}

// CommitEdit writes the open edit as a single-field update and refetches.
// A failed write keeps the edit open and the rows unchanged.
func (t *Table) CommitEdit(ctx context.Context) (*Request, error) {
	if t.edit == nil {
		return nil, ErrNoEditSession
	}
	updated, err := t.store.UpdateField(ctx, t.actor, t.edit.RowID, t.edit.Field, t.edit.Value)
	if err != nil {
		return nil, err
	}
	t.edit = nil
	if err := t.Refresh(ctx); err != nil {
		t.logger.Warn("refetch after edit failed, replacing row in place", "error", err, "liquidation_id", updated.ID)
		for i, r := range t.rows {
			if r.ID == updated.ID {
				t.rows[i] = updated
			}
		}
		t.recompute()
	}
	return updated, nil
}

// CancelEdit discards the open edit without touching the store.
func (t *Table) CancelEdit() {
	t.edit = nil
}

func fieldValue(r *Request, field string) string {
	switch field {
	case "title":
		return r.Title
	case "description":
		return r.Description
	case "category":
		return r.Category
	case "notes":
		return r.Notes
	case "currency":
		return r.Currency
	case "total_amount":
		return r.TotalAmount.StringFixed(2)
	case "status":
		return string(r.Status)
	}
	return ""
}
