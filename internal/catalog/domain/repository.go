package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindProduct(ctx context.Context, db *gorm.DB, id int64) (*Product, error)
	ListProducts(ctx context.Context, db *gorm.DB, filter ProductFilter) ([]Product, error)
	CategoriesOf(ctx context.Context, db *gorm.DB, productID int64) ([]Category, error)
	CategoryNames(ctx context.Context, db *gorm.DB, productIDs []int64) (map[int64][]Category, error)
	ProductIDsInCategory(ctx context.Context, db *gorm.DB, categoryID int64) ([]int64, error)
}

type ProductFilter struct {
	CategoryID  int64
	ProductType string
}
