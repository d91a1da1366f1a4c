package postgres

import (
	"context"
	"errors"
	"time"

	liquidationDatamodel "github.com/frahmantamala/liquidation-portal/internal/core/datamodel/liquidation"
	"github.com/frahmantamala/liquidation-portal/internal/liquidation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LiquidationRepository implements liquidation.RepositoryAPI using GORM.
type LiquidationRepository struct {
	db *gorm.DB
}

func NewLiquidationRepository(db *gorm.DB) liquidation.RepositoryAPI {
	return &LiquidationRepository{db: db}
}

func (r *LiquidationRepository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("created_at ASC")
		}).
		Preload("Requester")
}

func (r *LiquidationRepository) List(ctx context.Context, scope liquidation.Scope) ([]*liquidationDatamodel.Request, error) {
	q := r.withRelations(ctx).Model(&liquidationDatamodel.Request{})
	if scope.OwnerID != "" {
		q = q.Where("user_id = ?", scope.OwnerID)
	}
	if scope.Since != nil {
		q = q.Where("submitted_date >= ?", *scope.Since)
	}
	if scope.Category != "" {
		q = q.Where("category = ?", scope.Category)
	}
	if scope.Status != "" {
		q = q.Where("status = ?", string(scope.Status))
	}

	var rows []*liquidationDatamodel.Request
	if err := q.Order("submitted_date DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LiquidationRepository) GetByID(ctx context.Context, id string) (*liquidationDatamodel.Request, error) {
	var row liquidationDatamodel.Request
	err := r.withRelations(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, liquidation.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *LiquidationRepository) Create(ctx context.Context, req *liquidationDatamodel.Request) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(req).Error; err != nil {
			return err
		}
		return insertItems(tx, req)
	})
}

func (r *LiquidationRepository) Replace(ctx context.Context, req *liquidationDatamodel.Request) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&liquidationDatamodel.Request{}).
			Where("id = ?", req.ID).
			Updates(map[string]interface{}{
				"title":        req.Title,
				"description":  req.Description,
				"category":     req.Category,
				"currency":     req.Currency,
				"total_amount": req.TotalAmount,
				"notes":        req.Notes,
				"updated_at":   time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return liquidation.ErrNotFound
		}

		if err := tx.Where("liquidation_id = ?", req.ID).Delete(&liquidationDatamodel.Item{}).Error; err != nil {
			return err
		}
		return insertItems(tx, req)
	})
}

func insertItems(tx *gorm.DB, req *liquidationDatamodel.Request) error {
	if len(req.Items) == 0 {
		return nil
	}
	for i := range req.Items {
		req.Items[i].ID = ""
		req.Items[i].LiquidationID = req.ID
	}
	return tx.Create(&req.Items).Error
}

func (r *LiquidationRepository) CreateMany(ctx context.Context, reqs []*liquidationDatamodel.Request) error {
	if len(reqs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).CreateInBatches(reqs, 100).Error
}

func (r *LiquidationRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).Model(&liquidationDatamodel.Request{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return liquidation.ErrNotFound
	}
	return nil
}

func (r *LiquidationRepository) UpdateStatus(ctx context.Context, ids []string, status string, approvedDate *time.Time) (int64, error) {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if approvedDate != nil {
		updates["approved_date"] = *approvedDate
	}

	res := r.db.WithContext(ctx).Model(&liquidationDatamodel.Request{}).Where("id IN ?", ids).Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *LiquidationRepository) DeleteMany(ctx context.Context, ids []string, ownerID string) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&liquidationDatamodel.Request{}).Where("id IN ?", ids)
		if ownerID != "" {
			q = q.Where("user_id = ?", ownerID)
		}
		var owned []string
		if err := q.Pluck("id", &owned).Error; err != nil {
			return err
		}
		if len(owned) == 0 {
			return nil
		}

		if err := tx.Where("liquidation_id IN ?", owned).Delete(&liquidationDatamodel.Item{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", owned).Delete(&liquidationDatamodel.Request{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

func (r *LiquidationRepository) SetItemReceipt(ctx context.Context, itemID, url string) error {
	res := r.db.WithContext(ctx).Model(&liquidationDatamodel.Item{}).Where("id = ?", itemID).Update("receipt_url", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return liquidation.ErrItemNotFound
	}
	return nil
}

func (r *LiquidationRepository) ItemOwner(ctx context.Context, itemID string) (string, error) {
	var owners []string
	err := r.db.WithContext(ctx).
		Table("liquidation_items AS i").
		Joins("JOIN liquidation_requests AS r ON r.id = i.liquidation_id").
		Where("i.id = ?", itemID).
		Limit(1).
		Pluck("r.user_id", &owners).Error
	if err != nil {
		return "", err
	}
	if len(owners) == 0 {
		return "", liquidation.ErrItemNotFound
	}
	return owners[0], nil
}
