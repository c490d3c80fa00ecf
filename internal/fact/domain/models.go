// Package domain defines the canonical discount fact schema. One fact is
// persisted per (order, line item); a refund flips the fact from active
// to superseded exactly once.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/promolens/internal/pricing"
	"gorm.io/datatypes"
)

// DiscountFact is one persisted discount computation for an order line
// item. Rows are immutable after insert except for the refund fields.
type DiscountFact struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID     int64        `gorm:"not null;index" json:"order_id"`
	OrderItemID int64        `gorm:"not null;index" json:"order_item_id"`
	ProductID   int64        `gorm:"not null;index" json:"product_id"`
	VariationID int64        `gorm:"not null;default:0" json:"variation_id"`

	// RegularPrice is the catalog regular price snapshot at capture
	// time. Absent only when the source product no longer existed.
	RegularPrice      decimal.NullDecimal `gorm:"type:numeric(18,6)" json:"regular_price"`
	RealizedUnitPrice decimal.Decimal     `gorm:"type:numeric(18,6);not null" json:"realized_unit_price"`
	DiscountAmount    decimal.Decimal     `gorm:"type:numeric(18,6);not null" json:"discount_amount"`
	DiscountPct       decimal.Decimal     `gorm:"type:numeric(8,2);not null" json:"discount_percentage"`
	Quantity          decimal.Decimal     `gorm:"type:numeric(18,6);not null" json:"quantity"`
	// LineTotal is the amount actually paid for the whole line, used by
	// revenue aggregation.
	LineTotal decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"line_total"`

	Currency  string           `gorm:"type:varchar(3);not null" json:"currency"`
	WasOnSale pricing.SaleFlag `gorm:"type:text;not null" json:"was_on_sale"`

	// CreatedAt carries the originating order event time, not the row
	// insertion time.
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`

	RefundID   int64      `gorm:"not null;default:0" json:"refund_id"`
	RefundedAt *time.Time `json:"refunded_at,omitempty"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
}

// TableName sets the database table name.
func (DiscountFact) TableName() string { return "discount_facts" }

// Active reports whether the fact still counts toward reporting.
func (f DiscountFact) Active() bool { return f.RefundID == 0 }

// SchemaSetting records provisioning markers such as the fact schema
// version. Creation is additive and re-runnable.
type SchemaSetting struct {
	Key       string    `gorm:"primaryKey;column:setting_key;type:text"`
	Value     string    `gorm:"column:setting_value;type:text;not null"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SchemaSetting) TableName() string { return "schema_settings" }

// SchemaVersionKey marks the provisioned fact schema version.
const SchemaVersionKey = "discount_facts_schema_version"

// SchemaVersion is bumped only for additive changes.
const SchemaVersion = "1"
