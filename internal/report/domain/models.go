// Package domain contains the read models produced by the reporting
// services.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/promolens/internal/catalog/domain"
	"github.com/smallbiznis/promolens/internal/pricing"
	"github.com/smallbiznis/promolens/pkg/db/pagination"
)

// GroupBy selects the dimension historical facts are aggregated on.
type GroupBy string

const (
	GroupByNone     GroupBy = "none"
	GroupByProduct  GroupBy = "product"
	GroupByCategory GroupBy = "category"
	GroupByDate     GroupBy = "date"
)

// ParseGroupBy validates a group_by query value.
func ParseGroupBy(raw string) (GroupBy, bool) {
	switch GroupBy(raw) {
	case "", GroupByNone:
		return GroupByNone, true
	case GroupByProduct, GroupByCategory, GroupByDate:
		return GroupBy(raw), true
	default:
		return GroupByNone, false
	}
}

// HistoryRow is one ungrouped per-line-item history entry.
type HistoryRow struct {
	Date              time.Time           `json:"date"`
	OrderID           int64               `json:"order_id"`
	OrderItemID       int64               `json:"order_item_id"`
	ProductID         int64               `json:"product_id"`
	VariationID       int64               `json:"variation_id,omitempty"`
	ProductName       string              `json:"product_name"`
	Quantity          decimal.Decimal     `json:"quantity"`
	RegularPrice      decimal.NullDecimal `json:"regular_price"`
	RealizedUnitPrice decimal.Decimal     `json:"realized_unit_price"`
	DiscountAmount    decimal.Decimal     `json:"discount_amount"`
	DiscountPct       decimal.Decimal     `json:"discount_percentage"`
	WasOnSale         pricing.SaleFlag    `json:"was_on_sale"`
	LineTotal         decimal.Decimal     `json:"line_total"`
	Currency          string              `json:"currency"`
}

// GroupedRow is one aggregated history entry. Only the key fields of the
// active grouping dimension are populated.
type GroupedRow struct {
	ProductID    int64  `json:"product_id,omitempty"`
	ProductName  string `json:"product_name,omitempty"`
	CategoryID   int64  `json:"category_id,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
	Date         string `json:"date,omitempty"`

	UnitsSold     decimal.Decimal `json:"units_sold"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	// AvgDiscountPct is the arithmetic mean of the per-line discount
	// percentages, not total_discount/total_revenue.
	AvgDiscountPct decimal.Decimal `json:"avg_discount_pct"`
	LineCount      int             `json:"line_count"`
}

// Summary is the date-range aggregate over all active facts.
type Summary struct {
	UnitsSold            decimal.Decimal `json:"units_sold"`
	TotalDiscount        decimal.Decimal `json:"total_discount"`
	TotalRevenue         decimal.Decimal `json:"total_revenue"`
	AvgDiscountPct       decimal.Decimal `json:"avg_discount_pct"`
	DiscountPctOfRevenue decimal.Decimal `json:"discount_pct_of_revenue"`
	LineCount            int             `json:"line_count"`
	TopProducts          []GroupedRow    `json:"top_products"`
}

// CurrentDiscountRow is one currently-discounted catalog item.
type CurrentDiscountRow struct {
	ProductID      int64                    `json:"product_id"`
	Name           string                   `json:"name"`
	SKU            string                   `json:"sku,omitempty"`
	ProductType    string                   `json:"product_type"`
	RegularPrice   decimal.Decimal          `json:"regular_price"`
	SalePrice      decimal.Decimal          `json:"sale_price"`
	DiscountAmount decimal.Decimal          `json:"discount_amount"`
	DiscountPct    decimal.Decimal          `json:"discount_pct"`
	SaleStatus     catalogdomain.SaleStatus `json:"sale_status"`
	InStock        bool                     `json:"in_stock"`
}

// HistoryRequest parameterizes the discount-history report.
type HistoryRequest struct {
	From       *time.Time
	To         *time.Time
	ProductID  int64
	CategoryID int64
	GroupBy    GroupBy
	Page       pagination.Pagination
}

// HistoryResponse carries either ungrouped rows or grouped rows,
// depending on the requested grouping.
type HistoryResponse struct {
	GroupBy  GroupBy             `json:"group_by"`
	Rows     []HistoryRow        `json:"rows,omitempty"`
	Groups   []GroupedRow        `json:"groups,omitempty"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

// CurrentDiscountsRequest parameterizes the current-discounts view.
type CurrentDiscountsRequest struct {
	CategoryID  int64
	ProductType string
	MinPct      *decimal.Decimal
	MaxPct      *decimal.Decimal
	// Status filters by sale window state; "all" (or empty) keeps every
	// discounted product regardless of window.
	Status  string
	SortBy  string
	SortAsc bool
	Page    pagination.Pagination
}

// CurrentDiscountsResponse is the paged current-discounts view.
type CurrentDiscountsResponse struct {
	Rows     []CurrentDiscountRow `json:"rows"`
	PageInfo pagination.PageInfo  `json:"page_info"`
}
