package liquidation_test

import (
	"context"
	"time"

	"github.com/frahmantamala/liquidation-portal/internal/auth"
	"github.com/frahmantamala/liquidation-portal/internal/liquidation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeStore counts store calls and can be told to fail.
type fakeStore struct {
	rows        []*liquidation.Request
	fetches     int
	bulkStatus  [][]string
	bulkDeletes [][]string
	fieldEdits  []liquidation.EditSession
	err         error
	fetchErr    error
}

func (s *fakeStore) Fetch(ctx context.Context, actor *auth.User) ([]*liquidation.Request, error) {
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := make([]*liquidation.Request, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *fakeStore) BulkUpdateStatus(ctx context.Context, actor *auth.User, ids []string, status liquidation.Status) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.bulkStatus = append(s.bulkStatus, ids)
	for _, r := range s.rows {
		for _, id := range ids {
			if r.ID == id {
				r.Status = status
			}
		}
	}
	return int64(len(ids)), nil
}

func (s *fakeStore) BulkDelete(ctx context.Context, actor *auth.User, ids []string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.bulkDeletes = append(s.bulkDeletes, ids)
	kept := s.rows[:0]
	for _, r := range s.rows {
		drop := false
		for _, id := range ids {
			drop = drop || r.ID == id
		}
		if !drop {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	return int64(len(ids)), nil
}

func (s *fakeStore) UpdateField(ctx context.Context, actor *auth.User, id, field, value string) (*liquidation.Request, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.fieldEdits = append(s.fieldEdits, liquidation.EditSession{RowID: id, Field: field, Value: value})
	for _, r := range s.rows {
		if r.ID == id && field == "title" {
			r.Title = value
			return r, nil
		}
	}
	return &liquidation.Request{ID: id}, nil
}

var _ = Describe("Table", func() {
	var (
		store    *fakeStore
		table    *liquidation.Table
		ctx      context.Context
		reviewer = &auth.User{ID: "rev", Role: auth.RoleApprover}
		member   = &auth.User{ID: "mem", Role: auth.RoleUser}
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = &fakeStore{rows: []*liquidation.Request{
			{ID: "a", Title: "Alpha", Category: "Travel", Status: liquidation.StatusPending, SubmittedDate: fixedNow},
			{ID: "b", Title: "Beta", Category: "Office", Status: liquidation.StatusPending, SubmittedDate: fixedNow.Add(-1)},
			{ID: "c", Title: "Gamma", Category: "Travel", Status: liquidation.StatusApproved, SubmittedDate: fixedNow.Add(-2)},
		}}
		table = liquidation.NewTable(store, reviewer).WithClock(func() time.Time { return fixedNow })
		Expect(table.Refresh(ctx)).To(Succeed())
	})

	It("recomputes the visible rows when predicates change", func() {
		Expect(table.Visible()).To(HaveLen(3))
		table.SetFilter(liquidation.Filter{Category: "Travel"})
		Expect(titles(table.Visible())).To(Equal([]string{"Alpha", "Gamma"}))
		table.SetSort(liquidation.Sort{Key: liquidation.SortTitle, Desc: true})
		Expect(titles(table.Visible())).To(Equal([]string{"Gamma", "Alpha"}))
		Expect(table.Categories()).To(Equal([]string{"Office", "Travel"}))
	})

	It("keeps rows when a refresh fails", func() {
		store.err = errStoreDown
		Expect(table.Refresh(ctx)).To(MatchError(errStoreDown))
		Expect(table.Rows()).To(HaveLen(3))
	})

	Describe("bulk actions", func() {
		It("selects all visible rows and updates them in one call", func() {
			table.SetFilter(liquidation.Filter{Status: "pending"})
			table.SelectAll()
			Expect(table.Selected()).To(Equal([]string{"a", "b"}))

			n, err := table.BulkSetStatus(ctx, liquidation.StatusApproved)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))
			Expect(store.bulkStatus).To(HaveLen(1))
			Expect(store.fetches).To(Equal(2))
			Expect(table.Selected()).To(BeEmpty())
			Expect(table.Visible()).To(BeEmpty())
		})

		It("ignores ids that are not loaded", func() {
			Expect(table.Select("a", "zzz")).To(Equal(1))
			Expect(table.Toggle("zzz")).To(BeFalse())
		})

		It("refuses an empty selection without a store call", func() {
			_, err := table.BulkDelete(ctx)
			Expect(err).To(MatchError(liquidation.ErrEmptySelection))
			Expect(store.bulkDeletes).To(BeEmpty())
		})

		It("leaves rows and selection unchanged when the store fails", func() {
			table.Toggle("a")
			store.err = errStoreDown
			_, err := table.BulkDelete(ctx)
			Expect(err).To(MatchError(errStoreDown))
			Expect(table.Rows()).To(HaveLen(3))
			Expect(table.Selected()).To(Equal([]string{"a"}))
		})

		It("reports an applied status change even when the refetch fails", func() {
			table.Select("a", "b")
			store.fetchErr = errStoreDown

			n, err := table.BulkSetStatus(ctx, liquidation.StatusRejected)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))
			Expect(table.Selected()).To(BeEmpty())
			for _, r := range table.Rows() {
				if r.ID == "a" || r.ID == "b" {
					Expect(r.Status).To(Equal(liquidation.StatusRejected))
				}
			}
		})

		It("reports an applied delete even when the refetch fails", func() {
			table.Toggle("c")
			store.fetchErr = errStoreDown

			n, err := table.BulkDelete(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
			Expect(titles(table.Rows())).To(Equal([]string{"Alpha", "Beta"}))
			Expect(titles(table.Visible())).To(Equal([]string{"Alpha", "Beta"}))
		})

		It("deletes the selection and drops it from the view", func() {
			table.Toggle("b")
			n, err := table.BulkDelete(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
			Expect(titles(table.Rows())).To(Equal([]string{"Alpha", "Gamma"}))
		})
	})

	Describe("inline editing", func() {
		It("commits one field and refetches", func() {
			Expect(table.BeginEdit("a", "title")).To(Succeed())
			session, ok := table.Editing()
			Expect(ok).To(BeTrue())
			Expect(session.Value).To(Equal("Alpha"))

			Expect(table.SetEditValue("Alpha 2")).To(Succeed())
			updated, err := table.CommitEdit(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Title).To(Equal("Alpha 2"))
			Expect(store.fieldEdits).To(HaveLen(1))
			Expect(store.fetches).To(Equal(2))

			_, ok = table.Editing()
			Expect(ok).To(BeFalse())
		})

		It("reports a committed edit even when the refetch fails", func() {
			Expect(table.BeginEdit("a", "title")).To(Succeed())
			Expect(table.SetEditValue("Alpha 3")).To(Succeed())
			store.fetchErr = errStoreDown

			updated, err := table.CommitEdit(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Title).To(Equal("Alpha 3"))
			Expect(titles(table.Rows())).To(ContainElement("Alpha 3"))
			_, open := table.Editing()
			Expect(open).To(BeFalse())
		})

		It("cancels without a store call", func() {
			Expect(table.BeginEdit("a", "notes")).To(Succeed())
			table.CancelEdit()
			_, err := table.CommitEdit(ctx)
			Expect(err).To(MatchError(liquidation.ErrNoEditSession))
			Expect(store.fieldEdits).To(BeEmpty())
		})

		It("keeps one session at a time", func() {
			Expect(table.BeginEdit("a", "title")).To(Succeed())
			Expect(table.BeginEdit("b", "category")).To(Succeed())
			session, _ := table.Editing()
			Expect(session.RowID).To(Equal("b"))
			Expect(session.Value).To(Equal("Office"))
		})

		It("rejects unknown rows and fields", func() {
			Expect(table.BeginEdit("zzz", "title")).To(MatchError(liquidation.ErrNotFound))
			Expect(table.BeginEdit("a", "user_id")).To(MatchError(liquidation.ErrInvalidField))
		})

		It("allows status edits for reviewers only", func() {
			Expect(table.BeginEdit("a", "status")).To(Succeed())

			memberTable := liquidation.NewTable(store, member)
			Expect(memberTable.Refresh(ctx)).To(Succeed())
			Expect(memberTable.BeginEdit("a", "status")).To(MatchError(auth.ErrForbidden))
		})

		It("keeps the session open when the commit fails", func() {
			Expect(table.BeginEdit("a", "title")).To(Succeed())
			store.err = errStoreDown
			_, err := table.CommitEdit(ctx)
			Expect(err).To(MatchError(errStoreDown))
			_, ok := table.Editing()
			Expect(ok).To(BeTrue())
			Expect(table.Rows()[0].Title).To(Equal("Alpha"))
		})
	})
})
