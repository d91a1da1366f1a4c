package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/frahmantamala/liquidation-portal/internal/analytics"
	"github.com/frahmantamala/liquidation-portal/internal/auth"
	authPostgres "github.com/frahmantamala/liquidation-portal/internal/auth/postgres"
	"github.com/frahmantamala/liquidation-portal/internal/backend"
	"github.com/frahmantamala/liquidation-portal/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	reportRange    string
	reportCategory string
	reportOut      string
	reportAs       string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export the analytics workbook",
	Long:  `Build the analytics report for a date range and write it as an xlsx workbook. Without --as the report covers every requester.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := setup()
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		days, err := analytics.ParseRange(reportRange)
		if err != nil {
			log.Fatalf("invalid --range: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		app, err := backend.Open(ctx, cfg, logger.LoggerWrapper())
		if err != nil {
			log.Fatalf("failed to open backend: %v", err)
		}
		defer func() {
			if err := app.Stop(context.Background()); err != nil {
				log.Printf("shutdown: %v", err)
			}
		}()

		actor, err := reportActor(ctx, authPostgres.NewRepository(app.DB), reportAs)
		if err != nil {
			log.Fatalf("failed to resolve --as: %v", err)
		}

		data, filename, err := app.Analytics.Export(ctx, actor, days, reportCategory)
		if err != nil {
			log.Fatalf("export failed: %v", err)
		}

		path := reportPath(reportOut, filename)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			log.Fatalf("failed to write %s: %v", path, err)
		}
		fmt.Printf("Wrote %s (%d bytes, last %d days)\n", path, len(data), days)
	},
}

type userLookup interface {
	GetCredentialsByEmail(ctx context.Context, email string) (*auth.Credentials, error)
	GetUserByID(ctx context.Context, userID string) (*auth.User, error)
}

// reportActor returns the caller the report is scoped to. An empty email
// yields an admin that sees every requester.
func reportActor(ctx context.Context, users userLookup, email string) (*auth.User, error) {
	if email == "" {
		return &auth.User{ID: "cli", Email: "cli@localhost", Role: auth.RoleAdmin}, nil
	}
	creds, err := users.GetCredentialsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return users.GetUserByID(ctx, creds.UserID)
}

// reportPath treats an existing directory or an empty value as the place to
// drop the default-named file.
func reportPath(out, filename string) string {
	if out == "" {
		return filename
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, filename)
	}
	return out
}

func init() {
	reportCmd.Flags().StringVar(&reportRange, "range", "30", "window in days: 7, 30, 90 or 365")
	reportCmd.Flags().StringVar(&reportCategory, "category", "all", "only include this category")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "output file or directory")
	reportCmd.Flags().StringVar(&reportAs, "as", "", "scope the report to this user's email")
}
