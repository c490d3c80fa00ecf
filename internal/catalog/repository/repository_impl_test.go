package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/promolens/internal/catalog/domain"
	"github.com/smallbiznis/promolens/pkg/db"
	"gorm.io/gorm"
)

func setupCatalogDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	if err := conn.AutoMigrate(&domain.Product{}, &domain.Category{}, &domain.ProductCategory{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func seedCatalog(t *testing.T, conn *gorm.DB) {
	t.Helper()

	products := []domain.Product{
		{ID: 1, Name: "Widget", SKU: "W-1", ProductType: "simple",
			RegularPrice: decimal.NewNullDecimal(decimal.NewFromInt(100)),
			SalePrice:    decimal.NewNullDecimal(decimal.NewFromInt(80)),
			InStock:      true},
		{ID: 2, Name: "Gadget", SKU: "G-1", ProductType: "variable",
			RegularPrice: decimal.NewNullDecimal(decimal.NewFromInt(50)),
			InStock:      true},
		{ID: 3, Name: "Gizmo", SKU: "Z-1", ProductType: "simple", InStock: false},
	}
	for i := range products {
		if err := conn.Create(&products[i]).Error; err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}

	categories := []domain.Category{
		{ID: 7, Name: "Hardware", Slug: "hardware"},
		{ID: 8, Name: "Clearance", Slug: "clearance"},
	}
	for i := range categories {
		if err := conn.Create(&categories[i]).Error; err != nil {
			t.Fatalf("seed category: %v", err)
		}
	}

	mappings := []domain.ProductCategory{
		{ProductID: 1, CategoryID: 7},
		{ProductID: 1, CategoryID: 8},
		{ProductID: 2, CategoryID: 7},
	}
	for i := range mappings {
		if err := conn.Create(&mappings[i]).Error; err != nil {
			t.Fatalf("seed mapping: %v", err)
		}
	}
}

func TestFindProduct(t *testing.T) {
	conn := setupCatalogDB(t)
	seedCatalog(t, conn)
	repo := Provide()
	ctx := context.Background()

	product, err := repo.FindProduct(ctx, conn, 1)
	if err != nil {
		t.Fatalf("find product: %v", err)
	}
	if product == nil || product.Name != "Widget" {
		t.Fatalf("expected Widget, got %+v", product)
	}
	if !product.RegularPrice.Valid || !product.RegularPrice.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected regular price: %+v", product.RegularPrice)
	}

	missing, err := repo.FindProduct(ctx, conn, 999)
	if err != nil {
		t.Fatalf("find missing product: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing product, got %+v", missing)
	}
}

func TestListProductsFilters(t *testing.T) {
	conn := setupCatalogDB(t)
	seedCatalog(t, conn)
	repo := Provide()
	ctx := context.Background()

	all, err := repo.ListProducts(ctx, conn, domain.ProductFilter{})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 products, got %d", len(all))
	}

	clearance, err := repo.ListProducts(ctx, conn, domain.ProductFilter{CategoryID: 8})
	if err != nil {
		t.Fatalf("list products in category: %v", err)
	}
	if len(clearance) != 1 || clearance[0].ID != 1 {
		t.Fatalf("expected only product 1 in clearance, got %+v", clearance)
	}

	none, err := repo.ListProducts(ctx, conn, domain.ProductFilter{CategoryID: 99})
	if err != nil {
		t.Fatalf("list products in empty category: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no products in category 99, got %+v", none)
	}

	variable, err := repo.ListProducts(ctx, conn, domain.ProductFilter{ProductType: "variable"})
	if err != nil {
		t.Fatalf("list products by type: %v", err)
	}
	if len(variable) != 1 || variable[0].ID != 2 {
		t.Fatalf("expected only product 2 for type variable, got %+v", variable)
	}
}

func TestCategoryLookups(t *testing.T) {
	conn := setupCatalogDB(t)
	seedCatalog(t, conn)
	repo := Provide()
	ctx := context.Background()

	categories, err := repo.CategoriesOf(ctx, conn, 1)
	if err != nil {
		t.Fatalf("categories of: %v", err)
	}
	if len(categories) != 2 || categories[0].Slug != "hardware" || categories[1].Slug != "clearance" {
		t.Fatalf("unexpected categories: %+v", categories)
	}

	names, err := repo.CategoryNames(ctx, conn, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("category names: %v", err)
	}
	if len(names[1]) != 2 || len(names[2]) != 1 || len(names[3]) != 0 {
		t.Fatalf("unexpected category map: %+v", names)
	}
	if names[2][0].Name != "Hardware" {
		t.Fatalf("expected Hardware for product 2, got %+v", names[2])
	}

	empty, err := repo.CategoryNames(ctx, conn, nil)
	if err != nil {
		t.Fatalf("category names empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty map, got %+v", empty)
	}

	ids, err := repo.ProductIDsInCategory(ctx, conn, 7)
	if err != nil {
		t.Fatalf("product ids in category: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("unexpected product ids: %v", ids)
	}
}

func TestSnapshotAtSaleWindow(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	from := now.Add(-24 * time.Hour)
	to := now.Add(24 * time.Hour)

	product := domain.Product{
		ID:           1,
		RegularPrice: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		SalePrice:    decimal.NewNullDecimal(decimal.NewFromInt(75)),
		SaleFrom:     &from,
		SaleTo:       &to,
	}

	snap, ok := product.SnapshotAt(now)
	if !ok {
		t.Fatal("expected a discount snapshot")
	}
	if snap.Status != domain.SaleStatusActive {
		t.Fatalf("expected active status, got %s", snap.Status)
	}
	if snap.DiscountAmount.String() != "25" || snap.DiscountPct.String() != "25" {
		t.Fatalf("unexpected decomposition: amount=%s pct=%s", snap.DiscountAmount, snap.DiscountPct)
	}

	snap, ok = product.SnapshotAt(now.Add(48 * time.Hour))
	if !ok {
		t.Fatal("expected a snapshot past the window")
	}
	if snap.Status != domain.SaleStatusExpired {
		t.Fatalf("expected expired status, got %s", snap.Status)
	}

	product.SalePrice = decimal.NewNullDecimal(decimal.NewFromInt(100))
	if _, ok := product.SnapshotAt(now); ok {
		t.Fatal("sale price equal to regular must not count as a discount")
	}
}
