package analytics_test

import (
	"time"

	apperrors "github.com/frahmantamala/liquidation-portal/internal"
	"github.com/frahmantamala/liquidation-portal/internal/analytics"
	"github.com/frahmantamala/liquidation-portal/internal/liquidation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Compute", func() {
	day := 24 * time.Hour

	It("sums totals and averages over the window", func() {
		rows := []*liquidation.Request{
			request("a", "Travel", liquidation.StatusPending, "100", fixedNow.Add(-day)),
			request("b", "Travel", liquidation.StatusApproved, "200", fixedNow.Add(-2*day)),
			request("c", "Meals", liquidation.StatusRejected, "300", fixedNow.Add(-3*day)),
		}

		report := analytics.Compute(rows, fixedNow, false)
		Expect(report.TotalRequests).To(Equal(3))
		Expect(report.TotalAmount.Equal(decimal.NewFromInt(600))).To(BeTrue())
		Expect(report.AverageAmount.Equal(decimal.NewFromInt(200))).To(BeTrue())
		Expect(report.PendingRequests).To(Equal(1))
		Expect(report.ApprovedRequests).To(Equal(1))
		Expect(report.RejectedRequests).To(Equal(1))
		Expect(report.ProcessingRequests).To(Equal(0))
	})

	It("rounds the average to cents", func() {
		rows := []*liquidation.Request{
			request("a", "Travel", liquidation.StatusPending, "10", fixedNow),
			request("b", "Travel", liquidation.StatusPending, "10", fixedNow),
			request("c", "Travel", liquidation.StatusPending, "0.01", fixedNow),
		}
		report := analytics.Compute(rows, fixedNow, false)
		Expect(report.AverageAmount.String()).To(Equal("6.67"))
	})

	It("returns zeroed sections for an empty window", func() {
		report := analytics.Compute(nil, fixedNow, true)
		Expect(report.TotalRequests).To(Equal(0))
		Expect(report.AverageAmount.IsZero()).To(BeTrue())
		Expect(report.TopCategories).To(BeEmpty())
		Expect(report.TopRequesters).To(BeEmpty())
		Expect(report.MonthlyTrends).To(HaveLen(analytics.TrendMonths))
		Expect(report.StatusBreakdown).To(HaveLen(len(liquidation.Statuses)))
		for _, s := range report.StatusBreakdown {
			Expect(s.Percentage).To(BeZero())
		}
	})

	Describe("category rollup", func() {
		It("orders categories by amount and labels blanks", func() {
			rows := []*liquidation.Request{
				request("a", "Travel", liquidation.StatusPending, "150", fixedNow),
				request("a", "Meals", liquidation.StatusPending, "30", fixedNow),
				request("b", "Travel", liquidation.StatusPending, "50", fixedNow),
				request("b", "", liquidation.StatusPending, "5", fixedNow),
			}

			cats := analytics.Compute(rows, fixedNow, false).TopCategories
			Expect(cats).To(HaveLen(3))
			Expect(cats[0].Category).To(Equal("Travel"))
			Expect(cats[0].Count).To(Equal(2))
			Expect(cats[0].Amount.Equal(decimal.NewFromInt(200))).To(BeTrue())
			Expect(cats[1].Category).To(Equal("Meals"))
			Expect(cats[1].Amount.Equal(decimal.NewFromInt(30))).To(BeTrue())
			Expect(cats[2].Category).To(Equal(liquidation.UncategorizedLabel))
		})

		It("breaks ties by name and keeps the top five", func() {
			var rows []*liquidation.Request
			for _, c := range []string{"F", "E", "D", "C", "B", "A"} {
				rows = append(rows, request("a", c, liquidation.StatusPending, "10", fixedNow))
			}

			cats := analytics.Compute(rows, fixedNow, false).TopCategories
			names := make([]string, len(cats))
			for i, c := range cats {
				names[i] = c.Category
			}
			Expect(names).To(Equal([]string{"A", "B", "C", "D", "E"}))
		})
	})

	Describe("monthly trends", func() {
		It("buckets the last six months oldest first", func() {
			rows := []*liquidation.Request{
				request("a", "Travel", liquidation.StatusPending, "10", fixedNow),
				request("a", "Travel", liquidation.StatusPending, "20", time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)),
				request("a", "Travel", liquidation.StatusPending, "99", time.Date(2024, 12, 31, 9, 0, 0, 0, time.UTC)),
			}

			trends := analytics.Compute(rows, fixedNow, false).MonthlyTrends
			Expect(trends).To(HaveLen(6))
			Expect(trends[0].Key).To(Equal("2025-01"))
			Expect(trends[0].Month).To(Equal("Jan 2025"))
			Expect(trends[0].Requests).To(Equal(1))
			Expect(trends[0].Amount.Equal(decimal.NewFromInt(20))).To(BeTrue())
			Expect(trends[5].Key).To(Equal("2025-06"))
			Expect(trends[5].Requests).To(Equal(1))
		})

		It("does not skip short months at month end", func() {
			endOfAugust := time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC)
			trends := analytics.Compute(nil, endOfAugust, false).MonthlyTrends
			keys := make([]string, len(trends))
			for i, t := range trends {
				keys[i] = t.Key
			}
			Expect(keys).To(Equal([]string{"2025-03", "2025-04", "2025-05", "2025-06", "2025-07", "2025-08"}))
		})
	})

	It("reports every status with its share", func() {
		rows := []*liquidation.Request{
			request("a", "Travel", liquidation.StatusPending, "10", fixedNow),
			request("a", "Travel", liquidation.StatusPending, "10", fixedNow),
			request("a", "Travel", liquidation.StatusApproved, "10", fixedNow),
			request("a", "Travel", liquidation.StatusProcessing, "10", fixedNow),
		}

		shares := analytics.Compute(rows, fixedNow, false).StatusBreakdown
		Expect(shares).To(HaveLen(4))
		total := 0.0
		for i, st := range liquidation.Statuses {
			Expect(shares[i].Status).To(Equal(st))
			total += shares[i].Percentage
		}
		Expect(shares[0].Percentage).To(BeNumerically("~", 50, 0.001))
		Expect(total).To(BeNumerically("~", 100, 0.001))
	})

	Describe("requester rollup", func() {
		rows := func() []*liquidation.Request {
			nameless := request("u3", "Travel", liquidation.StatusPending, "40", fixedNow)
			nameless.Requester.FullName = ""
			return []*liquidation.Request{
				request("u2", "Travel", liquidation.StatusPending, "40", fixedNow),
				request("u1", "Travel", liquidation.StatusPending, "40", fixedNow),
				request("u1", "Meals", liquidation.StatusApproved, "10", fixedNow),
				nameless,
			}
		}

		It("is left empty for unprivileged callers", func() {
			Expect(analytics.Compute(rows(), fixedNow, false).TopRequesters).To(BeEmpty())
		})

		It("orders requesters by amount then id", func() {
			top := analytics.Compute(rows(), fixedNow, true).TopRequesters
			Expect(top).To(HaveLen(3))
			Expect(top[0].UserID).To(Equal("u1"))
			Expect(top[0].Requests).To(Equal(2))
			Expect(top[0].Amount.Equal(decimal.NewFromInt(50))).To(BeTrue())
			Expect(top[1].UserID).To(Equal("u2"))
			Expect(top[2].UserID).To(Equal("u3"))
			Expect(top[2].Name).To(Equal(liquidation.UnknownRequester))
			Expect(top[2].Email).To(Equal("u3@example.com"))
		})
	})
})

var _ = Describe("ParseRange", func() {
	It("defaults to thirty days", func() {
		Expect(analytics.ParseRange("")).To(Equal(analytics.DefaultRangeDays))
	})

	It("accepts the supported windows", func() {
		for _, s := range []string{"7", "30", "90", "365"} {
			_, err := analytics.ParseRange(s)
			Expect(err).NotTo(HaveOccurred())
		}
	})

	It("rejects anything else as a validation error", func() {
		for _, s := range []string{"14", "abc", "-7"} {
			_, err := analytics.ParseRange(s)
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
		}
	})
})
