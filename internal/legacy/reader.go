// Package legacy reconstructs discount facts from the denormalized
// per-item key-value representation older installs wrote, for reads that
// arrive before the primary fact store has been provisioned. Output rows
// are structurally identical to the primary store's.
package legacy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	factdomain "github.com/smallbiznis/promolens/internal/fact/domain"
	ordersdomain "github.com/smallbiznis/promolens/internal/orders/domain"
	"github.com/smallbiznis/promolens/internal/pricing"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module provides the reader.
var Module = fx.Module("legacy",
	fx.Provide(NewReader),
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Reader struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewReader(p Params) *Reader {
	return &Reader{
		db:  p.DB,
		log: p.Log.Named("legacy"),
	}
}

// row is the flattened join of item meta, item and order used to
// reassemble one fact.
type row struct {
	OrderID        int64
	OrderItemID    int64
	ProductID      int64
	VariationID    int64
	ProductName    string
	Quantity       decimal.Decimal
	LineTotal      decimal.Decimal
	Currency       string
	OrderCreatedAt time.Time
	RegularPrice   string
	SalePrice      string
	DiscountAmt    string
	DiscountPct    string
	WasOnSale      string
}

// ListActive reassembles facts matching the filter. The legacy
// representation carries no timestamp of its own, so date filtering uses
// the order's event timestamp. Refund supersession does not exist in the
// legacy representation; every row is active.
func (r *Reader) ListActive(ctx context.Context, filter factdomain.Filter) ([]factdomain.DiscountFact, error) {
	query := `
		SELECT i.order_id      AS order_id,
		       i.id            AS order_item_id,
		       i.product_id    AS product_id,
		       i.variation_id  AS variation_id,
		       i.name          AS product_name,
		       i.quantity      AS quantity,
		       i.total         AS line_total,
		       o.currency      AS currency,
		       o.created_at    AS order_created_at,
		       MAX(CASE WHEN m.meta_key = ? THEN m.meta_value END) AS regular_price,
		       MAX(CASE WHEN m.meta_key = ? THEN m.meta_value END) AS sale_price,
		       MAX(CASE WHEN m.meta_key = ? THEN m.meta_value END) AS discount_amt,
		       MAX(CASE WHEN m.meta_key = ? THEN m.meta_value END) AS discount_pct,
		       MAX(CASE WHEN m.meta_key = ? THEN m.meta_value END) AS was_on_sale
		FROM order_item_meta m
		JOIN order_items i ON i.id = m.order_item_id
		JOIN orders o ON o.id = i.order_id
		WHERE m.meta_key IN (?, ?, ?, ?, ?)`
	args := []any{
		ordersdomain.MetaRegularPrice,
		ordersdomain.MetaSalePrice,
		ordersdomain.MetaDiscountAmt,
		ordersdomain.MetaDiscountPct,
		ordersdomain.MetaWasOnSale,
		ordersdomain.MetaRegularPrice,
		ordersdomain.MetaSalePrice,
		ordersdomain.MetaDiscountAmt,
		ordersdomain.MetaDiscountPct,
		ordersdomain.MetaWasOnSale,
	}

	if filter.From != nil {
		query += ` AND o.created_at >= ?`
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += ` AND o.created_at <= ?`
		args = append(args, *filter.To)
	}
	if filter.ProductID != 0 {
		query += ` AND i.product_id = ?`
		args = append(args, filter.ProductID)
	}
	if filter.CategoryID != 0 {
		query += ` AND i.product_id IN (SELECT product_id FROM product_categories WHERE category_id = ?)`
		args = append(args, filter.CategoryID)
	}

	query += `
		GROUP BY i.order_id, i.id, i.product_id, i.variation_id, i.name, i.quantity, i.total, o.currency, o.created_at
		ORDER BY o.created_at DESC, i.id DESC`

	var rows []row
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	facts := make([]factdomain.DiscountFact, 0, len(rows))
	for _, rw := range rows {
		fact := rw.toFact()
		if filter.OnSaleOnly && fact.WasOnSale != pricing.SaleYes {
			continue
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

func (rw row) toFact() factdomain.DiscountFact {
	fact := factdomain.DiscountFact{
		OrderID:           rw.OrderID,
		OrderItemID:       rw.OrderItemID,
		ProductID:         rw.ProductID,
		VariationID:       rw.VariationID,
		RealizedUnitPrice: parseDecimal(rw.SalePrice),
		DiscountAmount:    parseDecimal(rw.DiscountAmt),
		DiscountPct:       parseDecimal(rw.DiscountPct),
		Quantity:          rw.Quantity,
		LineTotal:         rw.LineTotal,
		Currency:          rw.Currency,
		CreatedAt:         rw.OrderCreatedAt,
	}

	switch pricing.SaleFlag(rw.WasOnSale) {
	case pricing.SaleYes:
		fact.WasOnSale = pricing.SaleYes
	case pricing.SaleNo:
		fact.WasOnSale = pricing.SaleNo
	default:
		fact.WasOnSale = pricing.SaleUnknown
	}

	if rw.RegularPrice != "" {
		if regular, err := decimal.NewFromString(rw.RegularPrice); err == nil {
			fact.RegularPrice = decimal.NullDecimal{Decimal: regular, Valid: true}
		}
	}
	return fact
}

func parseDecimal(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return value
}
