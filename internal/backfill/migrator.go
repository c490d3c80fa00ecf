// Package backfill performs the one-time transfer of legacy denormalized
// discount entries into the primary fact store. The pass is idempotent:
// items that already have a primary fact are skipped, so an external
// scheduler may re-invoke the whole run safely.
package backfill

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/promolens/internal/events"
	factdomain "github.com/smallbiznis/promolens/internal/fact/domain"
	"github.com/smallbiznis/promolens/internal/observability/metrics"
	ordersdomain "github.com/smallbiznis/promolens/internal/orders/domain"
	"github.com/smallbiznis/promolens/internal/pricing"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Module provides the migrator.
var Module = fx.Module("backfill",
	fx.Provide(NewMigrator),
)

// Summary is the per-record accounting of one pass.
type Summary struct {
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
	Errored  int `json:"errored"`
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Calc    *pricing.Calculator
	Facts   factdomain.Repository
	Orders  ordersdomain.Repository
	Bus     *events.Bus
	Metrics *metrics.Metrics `optional:"true"`
}

type Migrator struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	calc    *pricing.Calculator
	facts   factdomain.Repository
	orders  ordersdomain.Repository
	bus     *events.Bus
	metrics *metrics.Metrics
}

func NewMigrator(p Params) *Migrator {
	return &Migrator{
		db:      p.DB,
		log:     p.Log.Named("backfill"),
		genID:   p.GenID,
		calc:    p.Calc,
		facts:   p.Facts,
		orders:  p.Orders,
		bus:     p.Bus,
		metrics: p.Metrics,
	}
}

// Run executes a single pass over every legacy row flagged on-sale. A
// failing record is counted and skipped, never aborts the run. The fact
// store must be provisioned first.
func (m *Migrator) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	if err := m.facts.Provision(ctx, m.db); err != nil {
		return summary, err
	}

	itemIDs, err := m.orders.ItemsWithMetaKey(ctx, m.db, ordersdomain.MetaWasOnSale, string(pricing.SaleYes))
	if err != nil {
		return summary, err
	}

	for _, itemID := range itemIDs {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		migrated, err := m.migrateItem(ctx, itemID)
		switch {
		case err != nil:
			summary.Errored++
			m.metrics.RecordBackfillRecord(ctx, "errored")
			m.log.Warn("failed to migrate legacy item",
				zap.Int64("order_item_id", itemID),
				zap.Error(err),
			)
		case migrated:
			summary.Migrated++
			m.metrics.RecordBackfillRecord(ctx, "migrated")
		default:
			summary.Skipped++
			m.metrics.RecordBackfillRecord(ctx, "skipped")
		}
	}

	m.log.Info("backfill finished",
		zap.Int("migrated", summary.Migrated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errored", summary.Errored),
	)
	m.bus.PublishBackfillFinished(ctx, events.BackfillFinished{
		Migrated: summary.Migrated,
		Skipped:  summary.Skipped,
		Errored:  summary.Errored,
	})
	return summary, nil
}

func (m *Migrator) migrateItem(ctx context.Context, itemID int64) (bool, error) {
	existing, err := m.facts.FindByItem(ctx, m.db, itemID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	item, err := m.orders.FindItem(ctx, m.db, itemID)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, errOrphanedMeta
	}

	order, err := m.orders.FindOrder(ctx, m.db, item.OrderID)
	if err != nil {
		return false, err
	}
	if order == nil {
		return false, errOrphanedMeta
	}

	meta, err := m.orders.GetItemMeta(ctx, m.db, itemID, []string{ordersdomain.MetaRegularPrice})
	if err != nil {
		return false, err
	}

	var regular decimal.NullDecimal
	if raw := meta[ordersdomain.MetaRegularPrice]; raw != "" {
		if value, perr := decimal.NewFromString(raw); perr == nil {
			regular = decimal.NullDecimal{Decimal: value, Valid: true}
		}
	}

	// Same decomposition as live capture so the migrated fact can never
	// diverge from what capture would have written.
	decomp, err := m.calc.Decompose(regular, item.Subtotal, item.Quantity)
	if err != nil {
		return false, err
	}

	fact := &factdomain.DiscountFact{
		ID:                m.genID.Generate(),
		OrderID:           order.ID,
		OrderItemID:       item.ID,
		ProductID:         item.ProductID,
		VariationID:       item.VariationID,
		RegularPrice:      decomp.RegularPrice,
		RealizedUnitPrice: decomp.RealizedUnitPrice,
		DiscountAmount:    decomp.DiscountAmount,
		DiscountPct:       decomp.DiscountPct,
		Quantity:          decomp.Quantity,
		LineTotal:         item.Total,
		Currency:          order.Currency,
		WasOnSale:         decomp.WasOnSale,
		CreatedAt:         order.CreatedAt,
		Metadata: datatypes.JSONMap{
			"product_name": item.Name,
			"backfilled":   true,
		},
	}

	if err := m.facts.Insert(ctx, m.db, fact); err != nil {
		return false, err
	}
	return true, nil
}

type backfillError string

func (e backfillError) Error() string { return string(e) }

const errOrphanedMeta = backfillError("backfill: legacy meta without order or item")
