package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// FindOrder returns the order with its items, or nil when it does
	// not exist. A missing order is never an error to callers.
	FindOrder(ctx context.Context, db *gorm.DB, id int64) (*Order, error)

	GetOrderMeta(ctx context.Context, db *gorm.DB, orderID int64, key string) (string, error)
	SetOrderMeta(ctx context.Context, db *gorm.DB, orderID int64, key, value string) error

	GetItemMeta(ctx context.Context, db *gorm.DB, itemID int64, keys []string) (map[string]string, error)
	SetItemMeta(ctx context.Context, db *gorm.DB, itemID int64, values map[string]string) error

	// ItemsWithMetaKey returns the item IDs carrying the given meta key
	// with the given value, oldest order first. Used by the backfill.
	ItemsWithMetaKey(ctx context.Context, db *gorm.DB, key, value string) ([]int64, error)

	FindItem(ctx context.Context, db *gorm.DB, itemID int64) (*OrderItem, error)
}
