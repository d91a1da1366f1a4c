package liquidation

import (
	"time"

	profileDatamodel "github.com/frahmantamala/liquidation-portal/internal/core/datamodel/profile"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Request struct {
	ID            string                    `gorm:"primaryKey;type:uuid"`
	Title         string                    `gorm:"column:title;not null"`
	Description   string                    `gorm:"column:description"`
	Category      string                    `gorm:"column:category"`
	Currency      string                    `gorm:"column:currency;not null;default:USD"`
	TotalAmount   decimal.Decimal           `gorm:"column:total_amount;type:numeric(14,2);not null;default:0"`
	Status        string                    `gorm:"column:status;not null;default:pending;index"`
	SubmittedDate time.Time                 `gorm:"column:submitted_date;not null;index"`
	ApprovedDate  *time.Time                `gorm:"column:approved_date"`
	Notes         string                    `gorm:"column:notes"`
	UserID        string                    `gorm:"column:user_id;type:uuid;not null;index"`
	Items         []Item                    `gorm:"foreignKey:LiquidationID"`
	Requester     *profileDatamodel.Profile `gorm:"foreignKey:UserID"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (Request) TableName() string {
	return "liquidation_requests"
}

func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

type Item struct {
	ID            string          `gorm:"primaryKey;type:uuid"`
	LiquidationID string          `gorm:"column:liquidation_id;type:uuid;not null;index"`
	Description   string          `gorm:"column:description;not null"`
	Category      string          `gorm:"column:category"`
	Quantity      int             `gorm:"column:quantity;not null;default:1"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(14,4);not null;default:0"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null;default:0"`
	ReceiptURL    *string         `gorm:"column:receipt_url"`
	Position      int             `gorm:"column:position;not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Item) TableName() string {
	return "liquidation_items"
}

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
