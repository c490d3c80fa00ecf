// Package domain contains the narrow order read models the capture and
// reporting paths consume, plus the order/item key-value metadata that
// carries the capture marker and the denormalized per-item discount
// keys.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses mirrored from the host commerce platform.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
)

// Order is a completed or in-flight order snapshot.
type Order struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Status    string    `gorm:"type:text;not null" json:"status"`
	Currency  string    `gorm:"type:varchar(3);not null" json:"currency"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Items []OrderItem `gorm:"-" json:"items,omitempty"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }

// IsFulfilling reports whether the status qualifies the order for
// discount capture. Processing and completed are equivalent triggers.
func (o Order) IsFulfilling() bool {
	return o.Status == StatusProcessing || o.Status == StatusCompleted
}

// OrderItem is one line item of an order.
type OrderItem struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	OrderID     int64           `gorm:"not null;index" json:"order_id"`
	ProductID   int64           `gorm:"not null" json:"product_id"`
	VariationID int64           `gorm:"not null;default:0" json:"variation_id"`
	Name        string          `gorm:"type:text;not null" json:"name"`
	Quantity    decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"quantity"`
	// Subtotal is the pre-coupon line amount; Total is what was paid
	// after coupon adjustments.
	Subtotal decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"subtotal"`
	Total    decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"total"`
}

// TableName sets the database table name.
func (OrderItem) TableName() string { return "order_items" }

// OrderMeta is one order-level key-value entry.
type OrderMeta struct {
	OrderID   int64  `gorm:"primaryKey"`
	MetaKey   string `gorm:"primaryKey;type:text"`
	MetaValue string `gorm:"type:text;not null"`
}

// TableName sets the database table name.
func (OrderMeta) TableName() string { return "order_meta" }

// OrderItemMeta is one item-level key-value entry.
type OrderItemMeta struct {
	OrderItemID int64  `gorm:"primaryKey"`
	MetaKey     string `gorm:"primaryKey;type:text"`
	MetaValue   string `gorm:"type:text;not null"`
}

// TableName sets the database table name.
func (OrderItemMeta) TableName() string { return "order_item_meta" }
