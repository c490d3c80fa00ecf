package backfill

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/promolens/internal/events"
	factdomain "github.com/smallbiznis/promolens/internal/fact/domain"
	factrepo "github.com/smallbiznis/promolens/internal/fact/repository"
	"github.com/smallbiznis/promolens/internal/legacy"
	ordersdomain "github.com/smallbiznis/promolens/internal/orders/domain"
	ordersrepo "github.com/smallbiznis/promolens/internal/orders/repository"
	"github.com/smallbiznis/promolens/internal/pricing"
	"github.com/smallbiznis/promolens/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func setupBackfill(t *testing.T) (*Migrator, *gorm.DB, factdomain.Repository) {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	if err := conn.AutoMigrate(
		&ordersdomain.Order{},
		&ordersdomain.OrderItem{},
		&ordersdomain.OrderMeta{},
		&ordersdomain.OrderItemMeta{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}

	facts := factrepo.Provide()
	migrator := NewMigrator(Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Calc:   pricing.NewCalculator(),
		Facts:  facts,
		Orders: ordersrepo.Provide(),
		Bus:    events.NewBus(zap.NewNop()),
	})
	return migrator, conn, facts
}

// seedLegacyItem writes an order, item and the denormalized meta keys the
// way an old install would have.
func seedLegacyItem(t *testing.T, conn *gorm.DB, orderID, itemID int64, regular, subtotal, qty string, createdAt time.Time) {
	t.Helper()

	if err := conn.Where("id = ?", orderID).FirstOrCreate(&ordersdomain.Order{
		ID:        orderID,
		Status:    ordersdomain.StatusCompleted,
		Currency:  "USD",
		CreatedAt: createdAt,
	}).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	if err := conn.Create(&ordersdomain.OrderItem{
		ID:        itemID,
		OrderID:   orderID,
		ProductID: itemID * 10,
		Name:      "Legacy item",
		Quantity:  dec(qty),
		Subtotal:  dec(subtotal),
		Total:     dec(subtotal),
	}).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}

	unit := dec(subtotal).DivRound(dec(qty), 8)
	amount := dec(regular).Sub(unit).Round(4)
	pct := amount.Div(dec(regular)).Mul(decimal.NewFromInt(100)).Round(2)

	meta := []ordersdomain.OrderItemMeta{
		{OrderItemID: itemID, MetaKey: ordersdomain.MetaRegularPrice, MetaValue: regular},
		{OrderItemID: itemID, MetaKey: ordersdomain.MetaSalePrice, MetaValue: unit.String()},
		{OrderItemID: itemID, MetaKey: ordersdomain.MetaDiscountAmt, MetaValue: amount.String()},
		{OrderItemID: itemID, MetaKey: ordersdomain.MetaDiscountPct, MetaValue: pct.String()},
		{OrderItemID: itemID, MetaKey: ordersdomain.MetaWasOnSale, MetaValue: string(pricing.SaleYes)},
	}
	for _, m := range meta {
		if err := conn.Create(&m).Error; err != nil {
			t.Fatalf("seed meta: %v", err)
		}
	}
}

func TestRunMigratesLegacyRows(t *testing.T) {
	migrator, conn, facts := setupBackfill(t)
	ctx := context.Background()

	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	seedLegacyItem(t, conn, 1, 11, "100", "160", "2", created)
	seedLegacyItem(t, conn, 2, 21, "9.99", "26.00", "3", created.AddDate(0, 0, 1))

	summary, err := migrator.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Migrated != 2 || summary.Skipped != 0 || summary.Errored != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	fact, err := facts.FindByItem(ctx, conn, 11)
	if err != nil {
		t.Fatalf("find migrated fact: %v", err)
	}
	if fact == nil {
		t.Fatal("expected migrated fact")
	}
	if !fact.DiscountAmount.Equal(dec("20")) {
		t.Fatalf("expected amount 20, got %s", fact.DiscountAmount)
	}
	if fact.WasOnSale != pricing.SaleYes {
		t.Fatalf("expected on-sale flag, got %s", fact.WasOnSale)
	}
	if !fact.CreatedAt.Equal(created) {
		t.Fatalf("expected order event time, got %s", fact.CreatedAt)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	migrator, conn, _ := setupBackfill(t)
	ctx := context.Background()

	seedLegacyItem(t, conn, 1, 11, "100", "160", "2", time.Now().UTC())

	first, err := migrator.Run(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Migrated != 1 {
		t.Fatalf("expected 1 migrated, got %+v", first)
	}

	second, err := migrator.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Migrated != 0 || second.Skipped != 1 {
		t.Fatalf("expected re-run to skip, got %+v", second)
	}

	var count int64
	if err := conn.Table("discount_facts").Count(&count).Error; err != nil {
		t.Fatalf("count facts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single fact after re-run, got %d", count)
	}
}

func TestRunCountsErroredRecordsAndContinues(t *testing.T) {
	migrator, conn, facts := setupBackfill(t)
	ctx := context.Background()

	created := time.Now().UTC()
	seedLegacyItem(t, conn, 1, 11, "100", "160", "2", created)

	// A flagged item with a zero quantity cannot be decomposed and must
	// be counted as errored without aborting the pass.
	if err := conn.Create(&ordersdomain.OrderItem{
		ID:        99,
		OrderID:   1,
		ProductID: 5,
		Name:      "Broken",
		Quantity:  dec("0"),
		Subtotal:  dec("10"),
		Total:     dec("10"),
	}).Error; err != nil {
		t.Fatalf("seed broken item: %v", err)
	}
	if err := conn.Create(&ordersdomain.OrderItemMeta{
		OrderItemID: 99,
		MetaKey:     ordersdomain.MetaWasOnSale,
		MetaValue:   string(pricing.SaleYes),
	}).Error; err != nil {
		t.Fatalf("seed broken meta: %v", err)
	}

	summary, err := migrator.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Migrated != 1 || summary.Errored != 1 {
		t.Fatalf("expected 1 migrated and 1 errored, got %+v", summary)
	}

	fact, err := facts.FindByItem(ctx, conn, 11)
	if err != nil {
		t.Fatalf("find fact: %v", err)
	}
	if fact == nil {
		t.Fatal("expected healthy record to be migrated despite the broken one")
	}
}

// The fallback path and a migrated primary store must agree
// field-for-field on the same underlying legacy dataset.
func TestFallbackConsistencyAfterMigration(t *testing.T) {
	migrator, conn, facts := setupBackfill(t)
	ctx := context.Background()

	created := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	seedLegacyItem(t, conn, 1, 11, "100", "160", "2", created)
	seedLegacyItem(t, conn, 2, 21, "9.99", "26.00", "3", created.AddDate(0, 0, 3))

	reader := legacy.NewReader(legacy.Params{DB: conn, Log: zap.NewNop()})
	legacyFacts, err := reader.ListActive(ctx, factdomain.Filter{OnSaleOnly: true})
	if err != nil {
		t.Fatalf("legacy list: %v", err)
	}
	if len(legacyFacts) != 2 {
		t.Fatalf("expected 2 legacy facts, got %d", len(legacyFacts))
	}

	if _, err := migrator.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, lf := range legacyFacts {
		pf, err := facts.FindByItem(ctx, conn, lf.OrderItemID)
		if err != nil {
			t.Fatalf("find primary fact: %v", err)
		}
		if pf == nil {
			t.Fatalf("missing primary fact for item %d", lf.OrderItemID)
		}
		if !pf.DiscountAmount.Equal(lf.DiscountAmount) {
			t.Fatalf("item %d: amount diverged, legacy %s primary %s", lf.OrderItemID, lf.DiscountAmount, pf.DiscountAmount)
		}
		if !pf.DiscountPct.Equal(lf.DiscountPct) {
			t.Fatalf("item %d: pct diverged, legacy %s primary %s", lf.OrderItemID, lf.DiscountPct, pf.DiscountPct)
		}
		if pf.WasOnSale != lf.WasOnSale {
			t.Fatalf("item %d: sale flag diverged, legacy %s primary %s", lf.OrderItemID, lf.WasOnSale, pf.WasOnSale)
		}
	}
}
