package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/liquidation-portal/internal/auth"
	"github.com/frahmantamala/liquidation-portal/internal/liquidation"
	"github.com/frahmantamala/liquidation-portal/internal/spreadsheet"
)

// RowSource returns the caller's rows submitted since a point in time.
type RowSource interface {
	Window(ctx context.Context, actor *auth.User, since time.Time, category string) ([]*liquidation.Request, error)
}

type Service struct {
	rows    RowSource
	checker auth.PermissionChecker
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(rows RowSource, checker auth.PermissionChecker, logger *slog.Logger) *Service {
	if checker == nil {
		checker = auth.NewPermissionChecker()
	}
	return &Service{
		rows:    rows,
		checker: checker,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Report(ctx context.Context, actor *auth.User, days int, category string) (*Report, error) {
	now := s.now()
	rows, err := s.rows.Window(ctx, actor, now.AddDate(0, 0, -days), category)
	if err != nil {
		s.logger.Error("failed to load analytics window", "error", err, "user_id", actor.ID, "days", days)
		return nil, err
	}

	// rows stamped after now fall outside the window
	inWindow := rows[:0:0]
	for _, r := range rows {
		if !r.SubmittedDate.After(now) {
			inWindow = append(inWindow, r)
		}
	}

	report := Compute(inWindow, now, s.privileged(actor))
	return &report, nil
}

// Export renders the report as a workbook and returns it with its file name.
func (s *Service) Export(ctx context.Context, actor *auth.User, days int, category string) ([]byte, string, error) {
	report, err := s.Report(ctx, actor, days, category)
	if err != nil {
		return nil, "", err
	}
	data, err := spreadsheet.Write(Sheets(report, s.privileged(actor)))
	if err != nil {
		s.logger.Error("failed to write analytics workbook", "error", err)
		return nil, "", err
	}
	return data, ExportFilename(s.now()), nil
}

func (s *Service) privileged(actor *auth.User) bool {
	return actor != nil && s.checker.CanViewRequesterRollup(actor.Role)
}
