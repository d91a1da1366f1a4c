package liquidation

import (
	"fmt"
	"strings"
	"time"

	liquidationDatamodel "github.com/frahmantamala/liquidation-portal/internal/core/datamodel/liquidation"
	"github.com/frahmantamala/liquidation-portal/internal/spreadsheet"
	"github.com/shopspring/decimal"
)

const (
	ExportSheetName = "Liquidations"
	ImportTitle     = "Imported Request"

	exportDateLayout = "2006-01-02"
)

var exportHeaders = []string{
	"Request ID", "Title", "Description", "Amount", "Currency", "Status", "Category",
	"Submitted Date", "Approved Date", "Requester", "Email", "Notes", "Items Count",
}

func ExportFilename(now time.Time) string {
	return fmt.Sprintf("liquidations_%s.xlsx", now.Format(exportDateLayout))
}

// RequestsSheet renders rows in the order given.
func RequestsSheet(rows []*Request) spreadsheet.Sheet {
	sheet := spreadsheet.Sheet{
		Name:    ExportSheetName,
		Headers: exportHeaders,
		Rows:    make([][]interface{}, 0, len(rows)),
	}
	for _, r := range rows {
		approved := ""
		if r.ApprovedDate != nil {
			approved = r.ApprovedDate.Format(exportDateLayout)
		}
		sheet.Rows = append(sheet.Rows, []interface{}{
			r.ID,
			r.Title,
			r.Description,
			r.TotalAmount.InexactFloat64(),
			r.Currency,
			string(r.Status),
			r.Category,
			r.SubmittedDate.Format(exportDateLayout),
			approved,
			r.Requester.FullName,
			r.Requester.Email,
			r.Notes,
			len(r.Items),
		})
	}
	return sheet
}

// ExportWorkbook encodes rows as a single-sheet workbook.
func ExportWorkbook(rows []*Request) ([]byte, error) {
	return spreadsheet.Write([]spreadsheet.Sheet{RequestsSheet(rows)})
}

// RequestsFromRecords maps imported spreadsheet records to pending-by-default
// requests owned by ownerID. Missing or unparseable values fall back to
// defaults instead of failing the import. The Status column is only honoured
// when keepStatus is set; imported approvals are stamped with now.
func RequestsFromRecords(records []map[string]string, ownerID string, now time.Time, keepStatus bool) []*liquidationDatamodel.Request {
	rows := make([]*liquidationDatamodel.Request, 0, len(records))
	for _, rec := range records {
		title := strings.TrimSpace(rec["Title"])
		if title == "" {
			title = ImportTitle
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(rec["Amount"]))
		if err != nil || amount.IsNegative() {
			amount = decimal.Zero
		}

		status, err := ParseStatus(strings.ToLower(strings.TrimSpace(rec["Status"])))
		if err != nil || !keepStatus {
			status = StatusPending
		}
		var approvedDate *time.Time
		if status == StatusApproved {
			stamp := now
			approvedDate = &stamp
		}

		rows = append(rows, &liquidationDatamodel.Request{
			Title:         title,
			Description:   rec["Description"],
			Category:      strings.TrimSpace(rec["Category"]),
			Currency:      currencyOrDefault(rec["Currency"]),
			TotalAmount:   amount.Round(2),
			Status:        string(status),
			SubmittedDate: now,
			ApprovedDate:  approvedDate,
			UserID:        ownerID,
		})
	}
	return rows
}
