package liquidation_test

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/frahmantamala/liquidation-portal/internal"
	"github.com/frahmantamala/liquidation-portal/internal/auth"
	"github.com/frahmantamala/liquidation-portal/internal/core/events"
	"github.com/frahmantamala/liquidation-portal/internal/liquidation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Service", func() {
	var (
		repo     *mockRepository
		bus      *events.EventBus
		service  *liquidation.Service
		ctx      context.Context
		owner    = &auth.User{ID: "owner", Email: "owner@example.com", Role: auth.RoleUser}
		other    = &auth.User{ID: "other", Email: "other@example.com", Role: auth.RoleUser}
		approver = &auth.User{ID: "approver", Email: "approver@example.com", Role: auth.RoleApprover}
		admin    = &auth.User{ID: "admin", Email: "admin@example.com", Role: auth.RoleAdmin}
	)

	validForm := func() *liquidation.Form {
		f := liquidation.NewForm()
		f.Title = "  Team offsite  "
		f.Category = "Travel"
		f.Items[0].Description = "Train"
		f.Items[0].SetQuantity(2)
		f.Items[0].SetUnitPrice(dec("30"))
		blank := f.AddItem()
		blank.SetUnitPrice(dec("99"))
		return f
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockRepository()
		repo.addProfile("owner", "Olive Owner", "owner@example.com")
		bus = events.NewEventBus(testLogger())
		service = liquidation.NewService(repo, repo, auth.NewAccessPolicy(nil), bus, testLogger()).
			WithClock(func() time.Time { return fixedNow })
	})

	AfterEach(func() {
		bus.Wait()
	})

	Describe("Create", func() {
		It("stores only described items and their total", func() {
			req, err := service.Create(ctx, owner, validForm())
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Title).To(Equal("Team offsite"))
			Expect(req.Status).To(Equal(liquidation.StatusPending))
			Expect(req.Currency).To(Equal("USD"))
			Expect(req.UserID).To(Equal("owner"))
			Expect(req.SubmittedDate).To(Equal(fixedNow))
			Expect(req.Items).To(HaveLen(1))
			Expect(req.TotalAmount.Equal(dec("60"))).To(BeTrue())
			Expect(req.Requester.FullName).To(Equal("Olive Owner"))
			Expect(repo.calls["Create"]).To(Equal(1))
		})

		It("returns a validation error without touching the store", func() {
			_, err := service.Create(ctx, owner, liquidation.NewForm())
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
			Expect(repo.calls["Create"]).To(BeZero())
		})

		It("publishes a saved event", func() {
			var mu sync.Mutex
			var saved []events.LiquidationSavedEvent
			bus.Subscribe(events.EventTypeLiquidationSaved, func(ctx context.Context, e events.Event) error {
				mu.Lock()
				defer mu.Unlock()
				saved = append(saved, e.(events.LiquidationSavedEvent))
				return nil
			})

			req, err := service.Create(ctx, owner, validForm())
			Expect(err).NotTo(HaveOccurred())
			bus.Wait()

			mu.Lock()
			defer mu.Unlock()
			Expect(saved).To(HaveLen(1))
			Expect(saved[0].RequestID).To(Equal(req.ID))
			Expect(saved[0].Created).To(BeTrue())
		})
	})

	Describe("Update", func() {
		var existing *liquidation.Request

		BeforeEach(func() {
			var err error
			existing, err = service.Create(ctx, owner, validForm())
			Expect(err).NotTo(HaveOccurred())
			Expect(service.BulkUpdateStatus(ctx, approver, []string{existing.ID}, liquidation.StatusProcessing)).To(Equal(int64(1)))
		})

		It("replaces items and keeps status and owner", func() {
			f := liquidation.FormFromRequest(existing)
			f.Title = "Offsite v2"
			f.Items[0].SetQuantity(1)
			extra := f.AddItem()
			extra.Description = "Lunch"
			extra.SetUnitPrice(dec("15.25"))

			updated, err := service.Update(ctx, owner, existing.ID, f)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Title).To(Equal("Offsite v2"))
			Expect(updated.Items).To(HaveLen(2))
			Expect(updated.TotalAmount.Equal(dec("45.25"))).To(BeTrue())
			Expect(updated.Status).To(Equal(liquidation.StatusProcessing))
			Expect(updated.UserID).To(Equal("owner"))
			Expect(repo.calls["Replace"]).To(Equal(1))
		})

		It("forbids editing someone else's request", func() {
			_, err := service.Update(ctx, other, existing.ID, validForm())
			Expect(err).To(MatchError(auth.ErrForbidden))
			Expect(repo.calls["Replace"]).To(BeZero())
		})

		It("lets reviewers edit any request", func() {
			_, err := service.Update(ctx, admin, existing.ID, validForm())
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports unknown requests", func() {
			_, err := service.Update(ctx, owner, "missing", validForm())
			Expect(err).To(MatchError(liquidation.ErrNotFound))
		})
	})

	Describe("Fetch and Get", func() {
		BeforeEach(func() {
			repo.seed("owner", "Mine", "Travel", "pending", 10, fixedNow)
			repo.seed("other", "Theirs", "Office", "pending", 20, fixedNow)
		})

		It("scopes plain users to their own rows", func() {
			rows, err := service.Fetch(ctx, owner)
			Expect(err).NotTo(HaveOccurred())
			Expect(titles(rows)).To(Equal([]string{"Mine"}))
		})

		It("shows reviewers every row", func() {
			rows, err := service.Fetch(ctx, approver)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
		})

		It("limits windows by time and category", func() {
			repo.seed("owner", "Old", "Travel", "pending", 5, fixedNow.AddDate(0, -3, 0))
			rows, err := service.Window(ctx, admin, fixedNow.AddDate(0, 0, -30), "all")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))

			rows, err = service.Window(ctx, admin, fixedNow.AddDate(0, 0, -30), "Office")
			Expect(err).NotTo(HaveOccurred())
			Expect(titles(rows)).To(Equal([]string{"Theirs"}))
		})

		It("hides other users' requests from Get", func() {
			rows, _ := service.Fetch(ctx, approver)
			var theirs string
			for _, r := range rows {
				if r.UserID == "other" {
					theirs = r.ID
				}
			}
			_, err := service.Get(ctx, owner, theirs)
			Expect(err).To(MatchError(auth.ErrForbidden))

			got, err := service.Get(ctx, other, theirs)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Requester.FullName).To(BeEmpty())
			Expect(got.RequesterName()).To(Equal("Unknown"))
		})
	})

	Describe("UpdateField", func() {
		var id string

		BeforeEach(func() {
			id = repo.seed("owner", "Trip", "Travel", "pending", 10, fixedNow).ID
		})

		It("updates free-text and amount fields", func() {
			req, err := service.UpdateField(ctx, owner, id, "notes", "see receipt")
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Notes).To(Equal("see receipt"))

			req, err = service.UpdateField(ctx, owner, id, "total_amount", "12.345")
			Expect(err).NotTo(HaveOccurred())
			Expect(req.TotalAmount.Equal(dec("12.35"))).To(BeTrue())

			req, err = service.UpdateField(ctx, owner, id, "currency", "php")
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Currency).To(Equal("PHP"))
		})

		DescribeTable("rejects invalid values",
			func(field, value string) {
				_, err := service.UpdateField(ctx, owner, id, field, value)
				_, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(repo.calls["UpdateFields"]).To(BeZero())
			},
			Entry("blank title", "title", "   "),
			Entry("negative amount", "total_amount", "-3"),
			Entry("non-numeric amount", "total_amount", "abc"),
			Entry("bad currency", "currency", "DOLLARS"),
		)

		It("rejects non-editable fields", func() {
			_, err := service.UpdateField(ctx, owner, id, "user_id", "someone")
			Expect(err).To(MatchError(liquidation.ErrInvalidField))
		})

		It("lets only reviewers change the status and stamps approval", func() {
			_, err := service.UpdateField(ctx, owner, id, "status", "approved")
			Expect(err).To(MatchError(auth.ErrForbidden))

			req, err := service.UpdateField(ctx, approver, id, "status", "approved")
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Status).To(Equal(liquidation.StatusApproved))
			Expect(req.ApprovedDate).NotTo(BeNil())
			Expect(*req.ApprovedDate).To(Equal(fixedNow))

			_, err = service.UpdateField(ctx, approver, id, "status", "archived")
			Expect(err).To(MatchError(liquidation.ErrInvalidStatus))
		})
	})

	Describe("bulk actions", func() {
		var mine, theirs string

		BeforeEach(func() {
			mine = repo.seed("owner", "Mine", "", "pending", 10, fixedNow).ID
			theirs = repo.seed("other", "Theirs", "", "pending", 10, fixedNow).ID
		})

		It("refuses bulk status changes from plain users", func() {
			_, err := service.BulkUpdateStatus(ctx, owner, []string{mine}, liquidation.StatusApproved)
			Expect(err).To(MatchError(auth.ErrForbidden))
			Expect(repo.calls["UpdateStatus"]).To(BeZero())
		})

		It("applies one status to the whole selection in one call", func() {
			n, err := service.BulkUpdateStatus(ctx, approver, []string{mine, theirs}, liquidation.StatusApproved)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))
			Expect(repo.calls["UpdateStatus"]).To(Equal(1))
			Expect(repo.rows[mine].ApprovedDate).NotTo(BeNil())
		})

		It("does not stamp approval for other statuses", func() {
			_, err := service.BulkUpdateStatus(ctx, approver, []string{mine}, liquidation.StatusRejected)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.rows[mine].ApprovedDate).To(BeNil())
		})

		It("validates status and selection", func() {
			_, err := service.BulkUpdateStatus(ctx, approver, []string{mine}, liquidation.Status("archived"))
			Expect(err).To(MatchError(liquidation.ErrInvalidStatus))
			_, err = service.BulkUpdateStatus(ctx, approver, nil, liquidation.StatusApproved)
			Expect(err).To(MatchError(liquidation.ErrEmptySelection))
		})

		It("scopes deletes of plain users to their own rows", func() {
			n, err := service.BulkDelete(ctx, owner, []string{mine, theirs})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
			Expect(repo.rows).To(HaveKey(theirs))
		})

		It("lets reviewers delete any row", func() {
			n, err := service.BulkDelete(ctx, admin, []string{mine, theirs})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))
		})

		It("surfaces store failures", func() {
			repo.err = errStoreDown
			_, err := service.BulkDelete(ctx, admin, []string{mine})
			Expect(err).To(MatchError(errStoreDown))
		})
	})

	Describe("PendingCount", func() {
		It("counts pending rows within the caller's scope", func() {
			repo.seed("owner", "A", "", "pending", 1, fixedNow)
			repo.seed("other", "B", "", "pending", 1, fixedNow)
			repo.seed("other", "C", "", "approved", 1, fixedNow)

			n, err := service.PendingCount(ctx, approver)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))

			n, err = service.PendingCount(ctx, owner)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
		})
	})

	Describe("Import", func() {
		records := func() []map[string]string {
			return []map[string]string{
				{"Title": "Taxi", "Amount": "12.5", "Currency": "eur", "Status": "Approved", "Category": "Travel"},
				{"Amount": "not a number", "Status": "archived"},
				{"Title": "Hotel", "Amount": "80", "Status": "rejected"},
			}
		}

		byTitle := func(actor *auth.User) map[string]*liquidation.Request {
			rows, err := service.Fetch(ctx, actor)
			Expect(err).NotTo(HaveOccurred())
			out := map[string]*liquidation.Request{}
			for _, r := range rows {
				if r.UserID == actor.ID {
					out[r.Title] = r
				}
			}
			return out
		}

		It("applies defaults for missing and invalid values", func() {
			n, err := service.Import(ctx, owner, records())
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(3))

			rows := byTitle(owner)
			Expect(rows).To(HaveLen(3))
			Expect(rows["Taxi"].Currency).To(Equal("EUR"))
			Expect(rows["Taxi"].TotalAmount.Equal(dec("12.5"))).To(BeTrue())

			imported := rows[liquidation.ImportTitle]
			Expect(imported).NotTo(BeNil())
			Expect(imported.TotalAmount.IsZero()).To(BeTrue())
			Expect(imported.Currency).To(Equal("USD"))
			Expect(imported.Status).To(Equal(liquidation.StatusPending))
			Expect(imported.UserID).To(Equal("owner"))
		})

		It("imports every row as pending for plain users", func() {
			_, err := service.Import(ctx, owner, records())
			Expect(err).NotTo(HaveOccurred())

			for title, r := range byTitle(owner) {
				Expect(r.Status).To(Equal(liquidation.StatusPending), title)
				Expect(r.ApprovedDate).To(BeNil(), title)
			}
		})

		It("keeps imported statuses for reviewers and stamps approvals", func() {
			_, err := service.Import(ctx, approver, records())
			Expect(err).NotTo(HaveOccurred())

			rows := byTitle(approver)
			Expect(rows["Taxi"].Status).To(Equal(liquidation.StatusApproved))
			Expect(rows["Taxi"].ApprovedDate).NotTo(BeNil())
			Expect(*rows["Taxi"].ApprovedDate).To(Equal(fixedNow))
			Expect(rows["Hotel"].Status).To(Equal(liquidation.StatusRejected))
			Expect(rows["Hotel"].ApprovedDate).To(BeNil())
			Expect(rows[liquidation.ImportTitle].Status).To(Equal(liquidation.StatusPending))
		})

		It("does nothing for an empty sheet", func() {
			n, err := service.Import(ctx, owner, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
			Expect(repo.calls["CreateMany"]).To(BeZero())
		})
	})

	Describe("AttachReceipt", func() {
		It("sets the receipt url of a persisted item", func() {
			row := repo.seed("owner", "Trip", "", "pending", 10, fixedNow)
			Expect(service.AttachReceipt(ctx, owner, row.Items[0].ID, "/receipts/files/receipts/1-x.pdf")).To(Succeed())
			Expect(*repo.rows[row.ID].Items[0].ReceiptURL).To(Equal("/receipts/files/receipts/1-x.pdf"))

			Expect(service.AttachReceipt(ctx, owner, "missing", "x")).To(MatchError(liquidation.ErrItemNotFound))
		})

		It("refuses items on someone else's request", func() {
			row := repo.seed("owner", "Trip", "", "pending", 10, fixedNow)
			Expect(service.AttachReceipt(ctx, other, row.Items[0].ID, "x")).To(MatchError(auth.ErrForbidden))
			Expect(repo.rows[row.ID].Items[0].ReceiptURL).To(BeNil())

			Expect(service.AttachReceipt(ctx, admin, row.Items[0].ID, "y")).To(Succeed())
		})
	})

	Describe("AuthorizeReceipt", func() {
		It("allows owners and reviewers on saved items", func() {
			row := repo.seed("owner", "Trip", "", "pending", 10, fixedNow)
			Expect(service.AuthorizeReceipt(ctx, owner, row.Items[0].ID)).To(Succeed())
			Expect(service.AuthorizeReceipt(ctx, approver, row.Items[0].ID)).To(Succeed())
			Expect(service.AuthorizeReceipt(ctx, other, row.Items[0].ID)).To(MatchError(auth.ErrForbidden))
		})

		It("allows keys of unsaved items", func() {
			Expect(service.AuthorizeReceipt(ctx, other, "draft-row-1")).To(Succeed())
			Expect(service.AuthorizeReceipt(ctx, nil, "draft-row-1")).To(MatchError(auth.ErrForbidden))
		})
	})
})
