package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/frahmantamala/liquidation-portal/internal/spreadsheet"
)

const (
	SummarySheet    = "Summary"
	CategoriesSheet = "Top Categories"
	TrendsSheet     = "Monthly Trends"
	StatusSheet     = "Status Breakdown"
	RequestersSheet = "Top Requesters"
)

func ExportFilename(now time.Time) string {
	return fmt.Sprintf("liquidation_analytics_%s.xlsx", now.Format("2006-01-02"))
}

// Sheets lays the report out one sheet per section. The requester sheet is
// only added for privileged callers.
func Sheets(r *Report, privileged bool) []spreadsheet.Sheet {
	summary := spreadsheet.Sheet{
		Name:    SummarySheet,
		Headers: []string{"Metric", "Value"},
		Rows: [][]interface{}{
			{"Total Requests", r.TotalRequests},
			{"Total Amount", r.TotalAmount.InexactFloat64()},
			{"Average Amount", r.AverageAmount.StringFixed(2)},
			{"Pending Requests", r.PendingRequests},
			{"Approved Requests", r.ApprovedRequests},
			{"Rejected Requests", r.RejectedRequests},
			{"Processing Requests", r.ProcessingRequests},
		},
	}

	categories := spreadsheet.Sheet{Name: CategoriesSheet, Headers: []string{"Category", "Count", "Amount"}}
	for _, c := range r.TopCategories {
		categories.Rows = append(categories.Rows, []interface{}{c.Category, c.Count, c.Amount.InexactFloat64()})
	}

	trends := spreadsheet.Sheet{Name: TrendsSheet, Headers: []string{"Month", "Requests", "Amount"}}
	for _, m := range r.MonthlyTrends {
		trends.Rows = append(trends.Rows, []interface{}{m.Month, m.Requests, m.Amount.InexactFloat64()})
	}

	status := spreadsheet.Sheet{Name: StatusSheet, Headers: []string{"Status", "Count", "Percentage"}}
	for _, s := range r.StatusBreakdown {
		status.Rows = append(status.Rows, []interface{}{string(s.Status), s.Count, math.Round(s.Percentage*10) / 10})
	}

	sheets := []spreadsheet.Sheet{summary, categories, trends, status}
	if privileged {
		requesters := spreadsheet.Sheet{Name: RequestersSheet, Headers: []string{"Name", "Email", "Requests", "Amount"}}
		for _, q := range r.TopRequesters {
			requesters.Rows = append(requesters.Rows, []interface{}{q.Name, q.Email, q.Requests, q.Amount.InexactFloat64()})
		}
		sheets = append(sheets, requesters)
	}
	return sheets
}
