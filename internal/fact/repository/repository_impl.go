package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/smallbiznis/promolens/internal/fact/domain"
	"github.com/smallbiznis/promolens/internal/pricing"
	"github.com/smallbiznis/promolens/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	// provisioned caches a positive probe result; the schema is never
	// dropped once created, so true is sticky.
	provisioned atomic.Bool
}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Provision(ctx context.Context, conn *gorm.DB) error {
	migrator := conn.WithContext(ctx).Migrator()

	if !migrator.HasTable(&domain.SchemaSetting{}) {
		if err := migrator.CreateTable(&domain.SchemaSetting{}); err != nil {
			return err
		}
	}
	if !migrator.HasTable(&domain.DiscountFact{}) {
		if err := migrator.CreateTable(&domain.DiscountFact{}); err != nil {
			return err
		}
	}

	err := conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value", "updated_at"}),
	}).Create(&domain.SchemaSetting{
		Key:       domain.SchemaVersionKey,
		Value:     domain.SchemaVersion,
		UpdatedAt: time.Now().UTC(),
	}).Error
	if err != nil {
		return err
	}

	r.provisioned.Store(true)
	return nil
}

func (r *repo) IsProvisioned(ctx context.Context, conn *gorm.DB) bool {
	if r.provisioned.Load() {
		return true
	}
	if conn.WithContext(ctx).Migrator().HasTable(&domain.DiscountFact{}) {
		r.provisioned.Store(true)
		return true
	}
	return false
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, fact *domain.DiscountFact) error {
	err := conn.WithContext(ctx).Create(fact).Error
	if err != nil && db.IsMissingTableErr(err) {
		return domain.ErrNotProvisioned
	}
	return err
}

func (r *repo) FindByItem(ctx context.Context, conn *gorm.DB, orderItemID int64) (*domain.DiscountFact, error) {
	var facts []domain.DiscountFact
	err := conn.WithContext(ctx).
		Where("order_item_id = ? AND refund_id = 0", orderItemID).
		Order("created_at desc, id desc").
		Limit(1).
		Find(&facts).Error
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return nil, nil
	}
	return &facts[0], nil
}

func (r *repo) FindByOrder(ctx context.Context, conn *gorm.DB, orderID int64) ([]domain.DiscountFact, error) {
	var facts []domain.DiscountFact
	err := conn.WithContext(ctx).
		Where("order_id = ? AND refund_id = 0", orderID).
		Where("id IN (SELECT MAX(id) FROM discount_facts WHERE refund_id = 0 GROUP BY order_item_id)").
		Order("id asc").
		Find(&facts).Error
	if err != nil {
		return nil, err
	}
	return facts, nil
}

func (r *repo) MarkRefunded(ctx context.Context, conn *gorm.DB, orderItemID, refundID int64, refundedAt time.Time) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE discount_facts
		 SET refund_id = ?, refunded_at = ?
		 WHERE order_item_id = ? AND refund_id = 0`,
		refundID,
		refundedAt,
		orderItemID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) ListActive(ctx context.Context, conn *gorm.DB, filter domain.Filter) ([]domain.DiscountFact, error) {
	// Capture is at-least-once, so an item may carry duplicate active
	// rows after a retried run. Readers see only the newest one; ids are
	// snowflakes, so max(id) is the latest insert.
	stmt := conn.WithContext(ctx).
		Model(&domain.DiscountFact{}).
		Where("refund_id = 0").
		Where("id IN (SELECT MAX(id) FROM discount_facts WHERE refund_id = 0 GROUP BY order_item_id)")
	if filter.From != nil {
		stmt = stmt.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("created_at <= ?", *filter.To)
	}
	if filter.ProductID != 0 {
		stmt = stmt.Where("product_id = ?", filter.ProductID)
	}
	if filter.CategoryID != 0 {
		stmt = stmt.Where("product_id IN (SELECT product_id FROM product_categories WHERE category_id = ?)", filter.CategoryID)
	}
	if filter.OnSaleOnly {
		stmt = stmt.Where("was_on_sale = ?", pricing.SaleYes)
	}

	var facts []domain.DiscountFact
	err := stmt.Order("created_at desc, id desc").Find(&facts).Error
	if err != nil {
		return nil, err
	}
	return facts, nil
}
