package analytics_test

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/liquidation-portal/internal/analytics"
	"github.com/frahmantamala/liquidation-portal/internal/auth"
	"github.com/frahmantamala/liquidation-portal/internal/liquidation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

var _ = Describe("Service", func() {
	var (
		source   *fakeSource
		service  *analytics.Service
		user     *auth.User
		approver *auth.User
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		source = &fakeSource{rows: []*liquidation.Request{
			request("u1", "Travel", liquidation.StatusPending, "100", fixedNow.Add(-time.Hour)),
			request("u2", "Meals", liquidation.StatusApproved, "50", fixedNow.Add(-48*time.Hour)),
			request("u2", "Meals", liquidation.StatusApproved, "999", fixedNow.Add(time.Hour)),
		}}
		service = analytics.NewService(source, nil, testLogger()).WithClock(func() time.Time { return fixedNow })
		user = &auth.User{ID: "u1", Role: auth.RoleUser}
		approver = &auth.User{ID: "boss", Role: auth.RoleApprover}
	})

	It("asks for the trailing window and the category", func() {
		_, err := service.Report(ctx, user, 7, "Travel")
		Expect(err).NotTo(HaveOccurred())
		Expect(source.since).To(Equal(fixedNow.AddDate(0, 0, -7)))
		Expect(source.category).To(Equal("Travel"))
		Expect(source.actor).To(Equal(user))
	})

	It("drops rows submitted after now", func() {
		report, err := service.Report(ctx, approver, 30, "all")
		Expect(err).NotTo(HaveOccurred())
		Expect(report.TotalRequests).To(Equal(2))
		Expect(report.TotalAmount.String()).To(Equal("150"))
	})

	It("only fills the requester rollup for reviewers", func() {
		report, err := service.Report(ctx, user, 30, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(report.TopRequesters).To(BeEmpty())

		report, err = service.Report(ctx, approver, 30, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(report.TopRequesters).To(HaveLen(2))
	})

	It("passes source errors through", func() {
		source.err = errors.New("db down")
		_, err := service.Report(ctx, user, 30, "")
		Expect(err).To(MatchError("db down"))
	})

	Describe("Export", func() {
		sheetsOf := func(data []byte) []string {
			f, err := excelize.OpenReader(bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()
			return f.GetSheetList()
		}

		It("writes the summary sections for plain users", func() {
			data, name, err := service.Export(ctx, user, 30, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("liquidation_analytics_2025-06-15.xlsx"))
			Expect(sheetsOf(data)).To(Equal([]string{
				analytics.SummarySheet, analytics.CategoriesSheet, analytics.TrendsSheet, analytics.StatusSheet,
			}))
		})

		It("adds the requester sheet for reviewers", func() {
			data, _, err := service.Export(ctx, approver, 30, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(sheetsOf(data)).To(ContainElement(analytics.RequestersSheet))
		})

		It("labels the summary metrics", func() {
			data, _, err := service.Export(ctx, user, 30, "")
			Expect(err).NotTo(HaveOccurred())
			f, err := excelize.OpenReader(bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()

			rows, err := f.GetRows(analytics.SummarySheet)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows[0]).To(Equal([]string{"Metric", "Value"}))
			Expect(rows[1]).To(Equal([]string{"Total Requests", "2"}))
			Expect(rows[3]).To(Equal([]string{"Average Amount", "75.00"}))
		})
	})
})
