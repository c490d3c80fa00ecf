// Package domain contains the catalog read models the analytics engine
// consumes. The catalog itself belongs to the host commerce platform;
// this is the thin snapshot of it the reports need.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item snapshot.
type Product struct {
	ID           int64               `gorm:"primaryKey" json:"id"`
	Name         string              `gorm:"type:text;not null" json:"name"`
	SKU          string              `gorm:"type:text" json:"sku"`
	ProductType  string              `gorm:"type:text;not null;default:simple" json:"product_type"`
	RegularPrice decimal.NullDecimal `gorm:"type:numeric(18,6)" json:"regular_price"`
	SalePrice    decimal.NullDecimal `gorm:"type:numeric(18,6)" json:"sale_price"`
	SaleFrom     *time.Time          `json:"sale_from,omitempty"`
	SaleTo       *time.Time          `json:"sale_to,omitempty"`
	InStock      bool                `gorm:"not null;default:true" json:"in_stock"`
	CreatedAt    time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }

// Category is a catalog category.
type Category struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:text;not null" json:"name"`
	Slug string `gorm:"type:text;not null" json:"slug"`
}

// TableName sets the database table name.
func (Category) TableName() string { return "categories" }

// ProductCategory maps products to categories. A product may belong to
// several categories; grouped reports fan facts out to each of them.
type ProductCategory struct {
	ProductID  int64 `gorm:"primaryKey"`
	CategoryID int64 `gorm:"primaryKey"`
}

// TableName sets the database table name.
func (ProductCategory) TableName() string { return "product_categories" }

// SaleStatus classifies a sale window relative to now.
type SaleStatus string

const (
	SaleStatusActive    SaleStatus = "active"
	SaleStatusScheduled SaleStatus = "scheduled"
	SaleStatusExpired   SaleStatus = "expired"
	SaleStatusNone      SaleStatus = "none"
)

// SaleSnapshot is the ephemeral per-product sale view computed fresh on
// every request. Nothing about it is persisted or cached.
type SaleSnapshot struct {
	Product        Product
	RegularPrice   decimal.Decimal
	SalePrice      decimal.Decimal
	DiscountAmount decimal.Decimal
	DiscountPct    decimal.Decimal
	Status         SaleStatus
}

// SnapshotAt derives the sale snapshot for the product at the given
// instant. The second return is false when the product carries no
// effective discount (missing prices, or sale >= regular).
func (p Product) SnapshotAt(now time.Time) (SaleSnapshot, bool) {
	if !p.RegularPrice.Valid || !p.SalePrice.Valid {
		return SaleSnapshot{}, false
	}
	regular := p.RegularPrice.Decimal
	sale := p.SalePrice.Decimal
	if regular.Sign() <= 0 || !sale.LessThan(regular) {
		return SaleSnapshot{}, false
	}

	status := SaleStatusActive
	switch {
	case p.SaleFrom != nil && now.Before(*p.SaleFrom):
		status = SaleStatusScheduled
	case p.SaleTo != nil && now.After(*p.SaleTo):
		status = SaleStatusExpired
	}

	amount := regular.Sub(sale).Round(4)
	return SaleSnapshot{
		Product:        p,
		RegularPrice:   regular,
		SalePrice:      sale,
		DiscountAmount: amount,
		DiscountPct:    amount.Div(regular).Mul(decimal.NewFromInt(100)).Round(2),
		Status:         status,
	}, true
}
