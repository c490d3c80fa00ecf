package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrNotProvisioned is the sentinel returned by writes against a store
// whose schema has not been created. Read paths use IsProvisioned to
// fall back to the legacy representation instead.
var ErrNotProvisioned = errors.New("fact: store not provisioned")

type Repository interface {
	// Provision creates the fact schema if it does not exist and records
	// the schema version marker. Safe to run repeatedly; upgrades are
	// additive, never destructive.
	Provision(ctx context.Context, db *gorm.DB) error

	// IsProvisioned is a cheap cached probe, callable on every read.
	IsProvisioned(ctx context.Context, db *gorm.DB) bool

	Insert(ctx context.Context, db *gorm.DB, fact *DiscountFact) error

	// FindByItem returns the most recent active fact for the item, or
	// nil. Readers always take the newest row so at-least-once capture
	// duplicates are harmless.
	FindByItem(ctx context.Context, db *gorm.DB, orderItemID int64) (*DiscountFact, error)

	// FindByOrder returns the active facts of an order in insertion
	// order, one per line item.
	FindByOrder(ctx context.Context, db *gorm.DB, orderID int64) ([]DiscountFact, error)

	// MarkRefunded transitions currently-active rows for the item to
	// refunded and reports how many rows changed. Repeat refunds affect
	// zero rows.
	MarkRefunded(ctx context.Context, db *gorm.DB, orderItemID, refundID int64, refundedAt time.Time) (int64, error)

	// ListActive returns active facts matching the filter, newest order
	// first, for the reporting layer. At most one row per line item:
	// duplicate rows left by a retried capture collapse to the newest.
	ListActive(ctx context.Context, db *gorm.DB, filter Filter) ([]DiscountFact, error)
}

type Filter struct {
	From       *time.Time
	To         *time.Time
	ProductID  int64
	CategoryID int64
	// OnSaleOnly keeps only facts flagged was_on_sale = yes.
	OnSaleOnly bool
}
