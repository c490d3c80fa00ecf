// Package events is the in-process notification point raised after a
// successful capture. Observers are an extension surface, not a
// correctness dependency: a failing observer never fails capture.
package events

import (
	"context"
	"sync"

	factdomain "github.com/smallbiznis/promolens/internal/fact/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the shared bus.
var Module = fx.Module("events",
	fx.Provide(NewBus),
)

// OrderCaptured is published once per captured order, before the
// per-item notifications.
type OrderCaptured struct {
	OrderID int64
	Facts   []factdomain.DiscountFact
}

// ItemCaptured is published once per captured line item.
type ItemCaptured struct {
	OrderID int64
	Fact    factdomain.DiscountFact
}

// BackfillFinished is published once after a backfill pass completes.
type BackfillFinished struct {
	Migrated int
	Skipped  int
	Errored  int
}

type OrderHandler func(ctx context.Context, ev OrderCaptured)
type ItemHandler func(ctx context.Context, ev ItemCaptured)
type BackfillHandler func(ctx context.Context, ev BackfillFinished)

type Bus struct {
	mu       sync.RWMutex
	log      *zap.Logger
	order    []OrderHandler
	item     []ItemHandler
	backfill []BackfillHandler
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{log: log.Named("events")}
}

func (b *Bus) SubscribeOrder(h OrderHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.order = append(b.order, h)
}

func (b *Bus) SubscribeItem(h ItemHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.item = append(b.item, h)
}

func (b *Bus) SubscribeBackfill(h BackfillHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backfill = append(b.backfill, h)
}

func (b *Bus) PublishOrderCaptured(ctx context.Context, ev OrderCaptured) {
	b.mu.RLock()
	handlers := b.order
	b.mu.RUnlock()
	for _, h := range handlers {
		b.safeCall(func() { h(ctx, ev) })
	}
}

func (b *Bus) PublishItemCaptured(ctx context.Context, ev ItemCaptured) {
	b.mu.RLock()
	handlers := b.item
	b.mu.RUnlock()
	for _, h := range handlers {
		b.safeCall(func() { h(ctx, ev) })
	}
}

func (b *Bus) PublishBackfillFinished(ctx context.Context, ev BackfillFinished) {
	b.mu.RLock()
	handlers := b.backfill
	b.mu.RUnlock()
	for _, h := range handlers {
		b.safeCall(func() { h(ctx, ev) })
	}
}

func (b *Bus) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Warn("observer panicked", zap.Any("panic", r))
		}
	}()
	fn()
}
