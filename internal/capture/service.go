// Package capture turns qualifying order lifecycle events into persisted
// discount facts, exactly once per order.
package capture

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/promolens/internal/catalog/domain"
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

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Calc    *pricing.Calculator
	Facts   factdomain.Repository
	Orders  ordersdomain.Repository
	Catalog catalogdomain.Repository
	Bus     *events.Bus
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	calc    *pricing.Calculator
	facts   factdomain.Repository
	orders  ordersdomain.Repository
	catalog catalogdomain.Repository
	bus     *events.Bus
	metrics *metrics.Metrics
}

func New(p Params) *Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("capture"),
		genID:   p.GenID,
		calc:    p.Calc,
		facts:   p.Facts,
		orders:  p.Orders,
		catalog: p.Catalog,
		bus:     p.Bus,
		metrics: p.Metrics,
	}
}

// OnOrderReachedFulfillingState computes and persists one fact per
// qualifying line item, then writes the order-level captured marker.
// Repeat deliveries for an already-marked order are no-ops. The marker
// is written last, so a partial failure leaves the order re-capturable;
// readers tolerate the resulting at-least-once rows by always taking the
// newest fact per item.
func (s *Service) OnOrderReachedFulfillingState(ctx context.Context, orderID int64) error {
	order, err := s.orders.FindOrder(ctx, s.db, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		// Nothing to capture.
		s.log.Debug("order not found, skipping capture", zap.Int64("order_id", orderID))
		return nil
	}
	if !order.IsFulfilling() {
		return nil
	}

	marker, err := s.orders.GetOrderMeta(ctx, s.db, orderID, ordersdomain.MetaCaptured)
	if err != nil {
		return err
	}
	if marker == ordersdomain.MetaCapturedValue {
		s.log.Debug("order already captured", zap.Int64("order_id", orderID))
		return nil
	}

	captured := make([]factdomain.DiscountFact, 0, len(order.Items))
	for _, item := range order.Items {
		fact, err := s.captureItem(ctx, order, item)
		if err != nil {
			if err == pricing.ErrInvalidQuantity {
				// Skip the item, keep the rest of the order.
				s.log.Warn("skipping line item with non-positive quantity",
					zap.Int64("order_id", orderID),
					zap.Int64("order_item_id", item.ID),
				)
				continue
			}
			return err
		}
		captured = append(captured, *fact)
	}

	if err := s.orders.SetOrderMeta(ctx, s.db, orderID, ordersdomain.MetaCaptured, ordersdomain.MetaCapturedValue); err != nil {
		return err
	}

	s.log.Info("order captured",
		zap.Int64("order_id", orderID),
		zap.Int("items", len(captured)),
	)

	s.bus.PublishOrderCaptured(ctx, events.OrderCaptured{OrderID: orderID, Facts: captured})
	for _, fact := range captured {
		s.metrics.RecordFactCaptured(ctx, string(fact.WasOnSale))
		s.bus.PublishItemCaptured(ctx, events.ItemCaptured{OrderID: orderID, Fact: fact})
	}
	return nil
}

func (s *Service) captureItem(ctx context.Context, order *ordersdomain.Order, item ordersdomain.OrderItem) (*factdomain.DiscountFact, error) {
	product, err := s.catalog.FindProduct(ctx, s.db, item.ProductID)
	if err != nil {
		return nil, err
	}

	// An unresolvable product yields an unknown-sale fact built from
	// line data alone.
	var regularPrice decimal.NullDecimal
	if product != nil {
		regularPrice = product.RegularPrice
	}

	decomp, err := s.calc.Decompose(regularPrice, item.Subtotal, item.Quantity)
	if err != nil {
		return nil, err
	}

	fact := &factdomain.DiscountFact{
		ID:                s.genID.Generate(),
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
		},
	}

	if err := s.facts.Insert(ctx, s.db, fact); err != nil {
		return nil, err
	}

	// Mirror the public per-item keys so the denormalized representation
	// stays populated for hosts still reading it.
	meta := map[string]string{
		ordersdomain.MetaRegularPrice: "",
		ordersdomain.MetaSalePrice:    decomp.RealizedUnitPrice.String(),
		ordersdomain.MetaDiscountAmt:  decomp.DiscountAmount.String(),
		ordersdomain.MetaDiscountPct:  decomp.DiscountPct.String(),
		ordersdomain.MetaWasOnSale:    string(decomp.WasOnSale),
	}
	if decomp.RegularPrice.Valid {
		meta[ordersdomain.MetaRegularPrice] = decomp.RegularPrice.Decimal.String()
	}
	if err := s.orders.SetItemMeta(ctx, s.db, item.ID, meta); err != nil {
		return nil, err
	}

	return fact, nil
}

// OnOrderItemRefunded supersedes the active fact for the item. Repeat
// refunds are no-ops filtered by the store's precondition update.
func (s *Service) OnOrderItemRefunded(ctx context.Context, orderItemID, refundID int64, refundedAt time.Time) (bool, error) {
	affected, err := s.facts.MarkRefunded(ctx, s.db, orderItemID, refundID, refundedAt)
	if err != nil {
		return false, err
	}
	if affected == 0 {
		s.log.Debug("refund had no active fact to supersede",
			zap.Int64("order_item_id", orderItemID),
			zap.Int64("refund_id", refundID),
		)
		return false, nil
	}
	s.metrics.RecordFactRefunded(ctx)
	s.log.Info("fact superseded by refund",
		zap.Int64("order_item_id", orderItemID),
		zap.Int64("refund_id", refundID),
	)
	return true, nil
}
