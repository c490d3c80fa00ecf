package repository

import (
	"context"

	"github.com/smallbiznis/promolens/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindProduct(ctx context.Context, db *gorm.DB, id int64) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, sku, product_type, regular_price, sale_price, sale_from, sale_to, in_stock, created_at, updated_at
		 FROM products WHERE id = ?`,
		id,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) ListProducts(ctx context.Context, db *gorm.DB, filter domain.ProductFilter) ([]domain.Product, error) {
	var products []domain.Product
	stmt := db.WithContext(ctx).Model(&domain.Product{})
	if filter.CategoryID != 0 {
		ids, err := r.ProductIDsInCategory(ctx, db, filter.CategoryID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, nil
		}
		stmt = stmt.Where("id IN ?", ids)
	}
	if filter.ProductType != "" {
		stmt = stmt.Where("product_type = ?", filter.ProductType)
	}
	err := stmt.Order("id asc").Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) CategoriesOf(ctx context.Context, db *gorm.DB, productID int64) ([]domain.Category, error) {
	var categories []domain.Category
	err := db.WithContext(ctx).Raw(
		`SELECT c.id, c.name, c.slug
		 FROM categories c
		 JOIN product_categories pc ON pc.category_id = c.id
		 WHERE pc.product_id = ?
		 ORDER BY c.id ASC`,
		productID,
	).Scan(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repo) CategoryNames(ctx context.Context, db *gorm.DB, productIDs []int64) (map[int64][]domain.Category, error) {
	out := make(map[int64][]domain.Category, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ProductID int64
		ID        int64
		Name      string
		Slug      string
	}
	err := db.WithContext(ctx).Raw(
		`SELECT pc.product_id AS product_id, c.id, c.name, c.slug
		 FROM categories c
		 JOIN product_categories pc ON pc.category_id = c.id
		 WHERE pc.product_id IN ?
		 ORDER BY pc.product_id ASC, c.id ASC`,
		productIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.ProductID] = append(out[row.ProductID], domain.Category{
			ID:   row.ID,
			Name: row.Name,
			Slug: row.Slug,
		})
	}
	return out, nil
}

func (r *repo) ProductIDsInCategory(ctx context.Context, db *gorm.DB, categoryID int64) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Raw(
		`SELECT product_id FROM product_categories WHERE category_id = ? ORDER BY product_id ASC`,
		categoryID,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
