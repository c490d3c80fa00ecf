package repository

import (
	"context"

	"github.com/smallbiznis/promolens/internal/orders/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindOrder(ctx context.Context, db *gorm.DB, id int64) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, status, currency, created_at FROM orders WHERE id = ?`,
		id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}

	err = db.WithContext(ctx).Raw(
		`SELECT id, order_id, product_id, variation_id, name, quantity, subtotal, total
		 FROM order_items WHERE order_id = ? ORDER BY id ASC`,
		id,
	).Scan(&order.Items).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) GetOrderMeta(ctx context.Context, db *gorm.DB, orderID int64, key string) (string, error) {
	var value string
	err := db.WithContext(ctx).Raw(
		`SELECT meta_value FROM order_meta WHERE order_id = ? AND meta_key = ?`,
		orderID, key,
	).Scan(&value).Error
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *repo) SetOrderMeta(ctx context.Context, db *gorm.DB, orderID int64, key, value string) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "meta_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"meta_value"}),
	}).Create(&domain.OrderMeta{
		OrderID:   orderID,
		MetaKey:   key,
		MetaValue: value,
	}).Error
}

func (r *repo) GetItemMeta(ctx context.Context, db *gorm.DB, itemID int64, keys []string) (map[string]string, error) {
	var rows []domain.OrderItemMeta
	err := db.WithContext(ctx).
		Where("order_item_id = ? AND meta_key IN ?", itemID, keys).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.MetaKey] = row.MetaValue
	}
	return out, nil
}

func (r *repo) SetItemMeta(ctx context.Context, db *gorm.DB, itemID int64, values map[string]string) error {
	for key, value := range values {
		err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_item_id"}, {Name: "meta_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"meta_value"}),
		}).Create(&domain.OrderItemMeta{
			OrderItemID: itemID,
			MetaKey:     key,
			MetaValue:   value,
		}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) ItemsWithMetaKey(ctx context.Context, db *gorm.DB, key, value string) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Raw(
		`SELECT m.order_item_id
		 FROM order_item_meta m
		 JOIN order_items i ON i.id = m.order_item_id
		 JOIN orders o ON o.id = i.order_id
		 WHERE m.meta_key = ? AND m.meta_value = ?
		 ORDER BY o.created_at ASC, m.order_item_id ASC`,
		key, value,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) FindItem(ctx context.Context, db *gorm.DB, itemID int64) (*domain.OrderItem, error) {
	var item domain.OrderItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, product_id, variation_id, name, quantity, subtotal, total
		 FROM order_items WHERE id = ?`,
		itemID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
