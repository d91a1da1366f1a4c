package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/liquidation-portal/internal/auth"
	"github.com/frahmantamala/liquidation-portal/internal/backend"
	liquidationDatamodel "github.com/frahmantamala/liquidation-portal/internal/core/datamodel/liquidation"
	profileDatamodel "github.com/frahmantamala/liquidation-portal/internal/core/datamodel/profile"
	userDatamodel "github.com/frahmantamala/liquidation-portal/internal/core/datamodel/user"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const seedPassword = "password"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample users and liquidation requests for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := setup()
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, db, err := backend.OpenDatabase(context.Background(), cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		summary, err := seedData(context.Background(), db, cfg.Security.BCryptCost, time.Now(), clearData)
		if err != nil {
			log.Fatalf("seed failed: %v", err)
		}
		fmt.Printf("Seeded %d users and %d liquidation requests (password: %s)\n", summary.Users, summary.Requests, seedPassword)
	},
}

type seedUser struct {
	Email    string
	FullName string
	Role     auth.Role
}

var seedUsers = []seedUser{
	{"uma@liquidation.test", "Uma User", auth.RoleUser},
	{"ulf@liquidation.test", "Ulf User", auth.RoleUser},
	{"abe@liquidation.test", "Abe Approver", auth.RoleApprover},
	{"ada@liquidation.test", "Ada Admin", auth.RoleAdmin},
}

type seedItem struct {
	Description string
	Quantity    int
	UnitPrice   string
}

type seedRequest struct {
	Title    string
	Category string
	Status   string
	DaysAgo  int
	Items    []seedItem
}

var seedRequests = []seedRequest{
	{"Client visit Jakarta", "Travel", "approved", 3, []seedItem{{"Flight", 1, "420.00"}, {"Taxi", 4, "12.50"}}},
	{"Team lunch", "Meals", "pending", 1, []seedItem{{"Lunch", 6, "18.75"}}},
	{"Office chairs", "Office Supplies", "processing", 12, []seedItem{{"Chair", 2, "149.99"}}},
	{"Conference pass", "Training", "rejected", 40, []seedItem{{"Ticket", 1, "650.00"}}},
	{"Printer toner", "Office Supplies", "approved", 75, []seedItem{{"Toner", 3, "39.90"}}},
	{"Hotel Surabaya", "Accommodation", "pending", 150, []seedItem{{"Hotel night", 2, "95.00"}, {"Breakfast", 2, "8.00"}}},
}

type seedSummary struct {
	Users    int
	Requests int
}

// seedData inserts the sample users with profiles and gives every plain user
// the sample requests. Existing users are kept; clear wipes everything first.
func seedData(ctx context.Context, db *gorm.DB, cost int, now time.Time, clear bool) (seedSummary, error) {
	var summary seedSummary
	db = db.WithContext(ctx)

	if clear {
		for _, table := range []string{"liquidation_items", "liquidation_requests", "user_profiles", "users"} {
			if err := db.Exec("DELETE FROM " + table).Error; err != nil {
				return summary, fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		fmt.Println("Cleared existing data")
	}

	hash, err := auth.HashPassword(seedPassword, cost)
	if err != nil {
		return summary, err
	}

	for _, su := range seedUsers {
		var existing userDatamodel.User
		err := db.Where("email = ?", su.Email).First(&existing).Error
		switch {
		case err == nil:
			fmt.Println("user already exists:", su.Email)
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return summary, fmt.Errorf("failed to look up %s: %w", su.Email, err)
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			u := userDatamodel.User{Email: su.Email, FullName: su.FullName, PasswordHash: hash}
			if err := tx.Create(&u).Error; err != nil {
				return err
			}
			p := profileDatamodel.Profile{ID: u.ID, FullName: su.FullName, Email: su.Email, Role: string(su.Role)}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			if su.Role != auth.RoleUser {
				return nil
			}
			for _, sr := range seedRequests {
				row := seedRow(u.ID, sr, now)
				if err := tx.Omit("Items", "Requester").Create(row).Error; err != nil {
					return err
				}
				for j := range row.Items {
					row.Items[j].LiquidationID = row.ID
					row.Items[j].Position = j
				}
				if err := tx.Create(&row.Items).Error; err != nil {
					return err
				}
				summary.Requests++
			}
			return nil
		})
		if err != nil {
			return summary, fmt.Errorf("failed to seed %s: %w", su.Email, err)
		}
		summary.Users++
		fmt.Printf("Seeded %s user: %s\n", su.Role, su.Email)
	}

	return summary, nil
}

func seedRow(userID string, sr seedRequest, now time.Time) *liquidationDatamodel.Request {
	submitted := now.AddDate(0, 0, -sr.DaysAgo)
	row := &liquidationDatamodel.Request{
		Title:         sr.Title,
		Category:      sr.Category,
		Currency:      "USD",
		Status:        sr.Status,
		SubmittedDate: submitted,
		UserID:        userID,
		TotalAmount:   decimal.Zero,
	}
	if sr.Status == "approved" {
		approved := submitted.Add(24 * time.Hour)
		row.ApprovedDate = &approved
	}
	for _, si := range sr.Items {
		price := decimal.RequireFromString(si.UnitPrice)
		amount := price.Mul(decimal.NewFromInt(int64(si.Quantity))).Round(2)
		row.TotalAmount = row.TotalAmount.Add(amount)
		row.Items = append(row.Items, liquidationDatamodel.Item{
			Description: si.Description,
			Category:    sr.Category,
			Quantity:    si.Quantity,
			UnitPrice:   price,
			Amount:      amount,
		})
	}
	return row
}
