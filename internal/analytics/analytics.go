// Package analytics aggregates a window of liquidation requests into the
// dashboard report and its workbook export.
package analytics

import (
	"sort"
	"strconv"
	"time"

	apperrors "github.com/frahmantamala/liquidation-portal/internal"
	"github.com/frahmantamala/liquidation-portal/internal/liquidation"
	"github.com/shopspring/decimal"
)

const (
	DefaultRangeDays = 30
	TopN             = 5
	TrendMonths      = 6

	monthKeyLayout   = "2006-01"
	monthLabelLayout = "Jan 2006"
)

var AllowedRanges = []int{7, 30, 90, 365}

const MsgInvalidRange = "Range must be one of 7, 30, 90 or 365 days"

// ParseRange reads the trailing window in days. Empty means the default.
func ParseRange(s string) (int, error) {
	if s == "" {
		return DefaultRangeDays, nil
	}
	days, err := strconv.Atoi(s)
	if err == nil {
		for _, allowed := range AllowedRanges {
			if days == allowed {
				return days, nil
			}
		}
	}
	return 0, apperrors.NewValidationFieldError("range", MsgInvalidRange, apperrors.ErrCodeInvalidRange)
}

type CategoryRollup struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Amount   decimal.Decimal `json:"amount"`
}

type MonthlyTrend struct {
	Key      string          `json:"key"`
	Month    string          `json:"month"`
	Requests int             `json:"requests"`
	Amount   decimal.Decimal `json:"amount"`
}

type StatusShare struct {
	Status     liquidation.Status `json:"status"`
	Count      int                `json:"count"`
	Percentage float64            `json:"percentage"`
}

type RequesterRollup struct {
	UserID   string          `json:"user_id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Requests int             `json:"requests"`
	Amount   decimal.Decimal `json:"amount"`
}

type Report struct {
	TotalRequests      int               `json:"total_requests"`
	TotalAmount        decimal.Decimal   `json:"total_amount"`
	AverageAmount      decimal.Decimal   `json:"average_amount"`
	PendingRequests    int               `json:"pending_requests"`
	ApprovedRequests   int               `json:"approved_requests"`
	RejectedRequests   int               `json:"rejected_requests"`
	ProcessingRequests int               `json:"processing_requests"`
	TopCategories      []CategoryRollup  `json:"top_categories"`
	MonthlyTrends      []MonthlyTrend    `json:"monthly_trends"`
	StatusBreakdown    []StatusShare     `json:"status_breakdown"`
	TopRequesters      []RequesterRollup `json:"top_requesters"`
}

// Compute builds the report. Category ties are ordered by category name and
// requester ties by user id, both ascending. The requester rollup is only
// filled for privileged callers.
func Compute(rows []*liquidation.Request, now time.Time, privileged bool) Report {
	report := Report{
		TotalAmount:   decimal.Zero,
		AverageAmount: decimal.Zero,
		TopCategories: []CategoryRollup{},
		TopRequesters: []RequesterRollup{},
	}

	statusCounts := make(map[liquidation.Status]int, len(liquidation.Statuses))
	categories := make(map[string]*CategoryRollup)
	requesters := make(map[string]*RequesterRollup)
	trends, trendIndex := monthBuckets(now)

	for _, r := range rows {
		report.TotalRequests++
		report.TotalAmount = report.TotalAmount.Add(r.TotalAmount)
		statusCounts[r.Status]++

		key := r.CategoryOrDefault()
		cat, ok := categories[key]
		if !ok {
			cat = &CategoryRollup{Category: key, Amount: decimal.Zero}
			categories[key] = cat
		}
		cat.Count++
		cat.Amount = cat.Amount.Add(r.TotalAmount)

		if i, ok := trendIndex[r.SubmittedDate.In(now.Location()).Format(monthKeyLayout)]; ok {
			trends[i].Requests++
			trends[i].Amount = trends[i].Amount.Add(r.TotalAmount)
		}

		if privileged {
			req, ok := requesters[r.UserID]
			if !ok {
				req = &RequesterRollup{
					UserID: r.UserID,
					Name:   r.RequesterName(),
					Email:  r.Requester.Email,
					Amount: decimal.Zero,
				}
				requesters[r.UserID] = req
			}
			req.Requests++
			req.Amount = req.Amount.Add(r.TotalAmount)
		}
	}

	if report.TotalRequests > 0 {
		report.AverageAmount = report.TotalAmount.Div(decimal.NewFromInt(int64(report.TotalRequests))).Round(2)
	}
	report.PendingRequests = statusCounts[liquidation.StatusPending]
	report.ApprovedRequests = statusCounts[liquidation.StatusApproved]
	report.RejectedRequests = statusCounts[liquidation.StatusRejected]
	report.ProcessingRequests = statusCounts[liquidation.StatusProcessing]

	report.StatusBreakdown = make([]StatusShare, len(liquidation.Statuses))
	for i, st := range liquidation.Statuses {
		share := StatusShare{Status: st, Count: statusCounts[st]}
		if report.TotalRequests > 0 {
			share.Percentage = float64(share.Count) / float64(report.TotalRequests) * 100
		}
		report.StatusBreakdown[i] = share
	}

	report.TopCategories = topCategories(categories)
	report.MonthlyTrends = trends
	if privileged {
		report.TopRequesters = topRequesters(requesters)
	}
	return report
}

// monthBuckets seeds the current month and the five before it, oldest first.
func monthBuckets(now time.Time) ([]MonthlyTrend, map[string]int) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	trends := make([]MonthlyTrend, TrendMonths)
	index := make(map[string]int, TrendMonths)
	for i := 0; i < TrendMonths; i++ {
		month := first.AddDate(0, i-(TrendMonths-1), 0)
		key := month.Format(monthKeyLayout)
		trends[i] = MonthlyTrend{Key: key, Month: month.Format(monthLabelLayout), Amount: decimal.Zero}
		index[key] = i
	}
	return trends, index
}

func topCategories(m map[string]*CategoryRollup) []CategoryRollup {
	out := make([]CategoryRollup, 0, len(m))
	for _, c := range m {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > TopN {
		out = out[:TopN]
	}
	return out
}

func topRequesters(m map[string]*RequesterRollup) []RequesterRollup {
	out := make([]RequesterRollup, 0, len(m))
	for _, r := range m {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > TopN {
		out = out[:TopN]
	}
	return out
}
