package events

import (
	"context"
	"testing"

	factdomain "github.com/smallbiznis/promolens/internal/fact/domain"
	"go.uber.org/zap"
)

func TestPublishFansOutToAllObservers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	ctx := context.Background()

	var first, second []int64
	bus.SubscribeOrder(func(_ context.Context, ev OrderCaptured) {
		first = append(first, ev.OrderID)
	})
	bus.SubscribeOrder(func(_ context.Context, ev OrderCaptured) {
		second = append(second, ev.OrderID)
	})

	bus.PublishOrderCaptured(ctx, OrderCaptured{OrderID: 42})
	bus.PublishOrderCaptured(ctx, OrderCaptured{OrderID: 43})

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected both observers to see both events, got %v and %v", first, second)
	}
}

func TestPanickingObserverDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(zap.NewNop())
	ctx := context.Background()

	var delivered []int64
	bus.SubscribeItem(func(_ context.Context, _ ItemCaptured) {
		panic("observer bug")
	})
	bus.SubscribeItem(func(_ context.Context, ev ItemCaptured) {
		delivered = append(delivered, ev.Fact.OrderItemID)
	})

	bus.PublishItemCaptured(ctx, ItemCaptured{
		OrderID: 1,
		Fact:    factdomain.DiscountFact{OrderItemID: 7},
	})

	if len(delivered) != 1 || delivered[0] != 7 {
		t.Fatalf("expected delivery past the panicking observer, got %v", delivered)
	}
}

func TestPublishWithoutObserversIsNoop(t *testing.T) {
	bus := NewBus(zap.NewNop())

	bus.PublishBackfillFinished(context.Background(), BackfillFinished{Migrated: 3})
}
