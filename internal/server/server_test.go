package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	apikeydomain "github.com/smallbiznis/promolens/internal/apikey/domain"
	apikeyrepo "github.com/smallbiznis/promolens/internal/apikey/repository"
	apikeyservice "github.com/smallbiznis/promolens/internal/apikey/service"
	"github.com/smallbiznis/promolens/internal/backfill"
	"github.com/smallbiznis/promolens/internal/capture"
	catalogdomain "github.com/smallbiznis/promolens/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/promolens/internal/catalog/repository"
	"github.com/smallbiznis/promolens/internal/clock"
	"github.com/smallbiznis/promolens/internal/config"
	"github.com/smallbiznis/promolens/internal/events"
	factdomain "github.com/smallbiznis/promolens/internal/fact/domain"
	factrepo "github.com/smallbiznis/promolens/internal/fact/repository"
	"github.com/smallbiznis/promolens/internal/legacy"
	ordersdomain "github.com/smallbiznis/promolens/internal/orders/domain"
	ordersrepo "github.com/smallbiznis/promolens/internal/orders/repository"
	"github.com/smallbiznis/promolens/internal/pricing"
	"github.com/smallbiznis/promolens/internal/report"
	"github.com/smallbiznis/promolens/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type serverFixture struct {
	server    *Server
	db        *gorm.DB
	facts     factdomain.Repository
	manageKey string
	hooksKey  string
	readKey   string
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&catalogdomain.Product{},
		&catalogdomain.Category{},
		&catalogdomain.ProductCategory{},
		&ordersdomain.Order{},
		&ordersdomain.OrderItem{},
		&ordersdomain.OrderMeta{},
		&ordersdomain.OrderItemMeta{},
		&apikeydomain.APIKey{},
	))

	log := zap.NewNop()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	facts := factrepo.Provide()
	require.NoError(t, facts.Provision(context.Background(), conn))

	ordersRepo := ordersrepo.Provide()
	catalogRepo := catalogrepo.Provide()
	calc := pricing.NewCalculator()
	bus := events.NewBus(log)

	captureSvc := capture.New(capture.Params{
		DB:      conn,
		Log:     log,
		GenID:   node,
		Calc:    calc,
		Facts:   facts,
		Orders:  ordersRepo,
		Catalog: catalogRepo,
		Bus:     bus,
	})
	reportSvc := report.New(report.Params{
		DB:      conn,
		Log:     log,
		Facts:   facts,
		Legacy:  legacy.NewReader(legacy.Params{DB: conn, Log: log}),
		Catalog: catalogRepo,
		Clock:   clock.NewSystemClock(),
	})
	migrator := backfill.NewMigrator(backfill.Params{
		DB:     conn,
		Log:    log,
		GenID:  node,
		Calc:   calc,
		Facts:  facts,
		Orders: ordersRepo,
		Bus:    bus,
	})
	apiKeySvc := apikeyservice.New(apikeyservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Repo:  apikeyrepo.Provide(),
	})

	srv := NewServer(ServerParams{
		Gin:        NewEngine(),
		Cfg:        config.Config{Environment: "test"},
		DB:         conn,
		APIKeySvc:  apiKeySvc,
		CaptureSvc: captureSvc,
		ReportSvc:  reportSvc,
		Migrator:   migrator,
	})

	f := &serverFixture{server: srv, db: conn, facts: facts}

	ctx := context.Background()
	manage, err := apiKeySvc.Create(ctx, apikeydomain.CreateRequest{
		Name:   "reports",
		Scopes: []string{apikeydomain.ScopeReportsManage},
	})
	require.NoError(t, err)
	f.manageKey = manage.APIKey

	hooks, err := apiKeySvc.Create(ctx, apikeydomain.CreateRequest{
		Name:   "hooks",
		Scopes: []string{apikeydomain.ScopeHooksWrite},
	})
	require.NoError(t, err)
	f.hooksKey = hooks.APIKey

	read, err := apiKeySvc.Create(ctx, apikeydomain.CreateRequest{
		Name:   "unscoped",
		Scopes: []string{"other:scope"},
	})
	require.NoError(t, err)
	f.readKey = read.APIKey

	return f
}

func (f *serverFixture) request(t *testing.T, method, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	f.server.Engine().ServeHTTP(rec, req)
	return rec
}

func TestReportsRequireManageScope(t *testing.T) {
	f := newServerFixture(t)

	rec := f.request(t, http.MethodGet, "/v1/reports/discount-summary", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.request(t, http.MethodGet, "/v1/reports/discount-summary", f.readKey, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.request(t, http.MethodGet, "/v1/reports/discount-summary", f.manageKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMalformedDateFilterIsRejected(t *testing.T) {
	f := newServerFixture(t)

	rec := f.request(t, http.MethodGet, "/v1/reports/discount-history?from=not-a-date", f.manageKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestCurrentDiscountsEndpoint(t *testing.T) {
	f := newServerFixture(t)

	regular := decimal.NewFromInt(100)
	sale := decimal.NewFromInt(80)
	require.NoError(t, f.db.Create(&catalogdomain.Product{
		ID: 1, Name: "Hoodie", ProductType: "simple", InStock: true,
		RegularPrice: decimal.NullDecimal{Decimal: regular, Valid: true},
		SalePrice:    decimal.NullDecimal{Decimal: sale, Valid: true},
	}).Error)

	rec := f.request(t, http.MethodGet, "/v1/reports/current-discounts", f.manageKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rows []struct {
			ProductID   int64  `json:"product_id"`
			DiscountPct string `json:"discount_pct"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, int64(1), resp.Rows[0].ProductID)
	assert.Equal(t, "20", resp.Rows[0].DiscountPct)
}

func TestOrderStatusHookCapturesFacts(t *testing.T) {
	f := newServerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&catalogdomain.Product{
		ID: 7, Name: "Boots", ProductType: "simple",
		RegularPrice: decimal.NullDecimal{Decimal: decimal.NewFromInt(100), Valid: true},
	}).Error)
	require.NoError(t, f.db.Create(&ordersdomain.Order{
		ID: 42, Status: ordersdomain.StatusCompleted, Currency: "USD",
		CreatedAt: time.Now().UTC(),
	}).Error)
	require.NoError(t, f.db.Create(&ordersdomain.OrderItem{
		ID: 420, OrderID: 42, ProductID: 7, Name: "Boots",
		Quantity: decimal.NewFromInt(2),
		Subtotal: decimal.NewFromInt(160),
		Total:    decimal.NewFromInt(160),
	}).Error)

	rec := f.request(t, http.MethodPost, "/v1/hooks/order-status", f.hooksKey, orderStatusHookRequest{OrderID: 42})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	facts, err := f.facts.FindByOrder(ctx, f.db, 42)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.True(t, facts[0].DiscountAmount.Equal(decimal.NewFromInt(20)))

	// A reports-scoped key may not drive hooks.
	rec = f.request(t, http.MethodPost, "/v1/hooks/order-status", f.manageKey, orderStatusHookRequest{OrderID: 42})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrderRefundHook(t *testing.T) {
	f := newServerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.facts.Insert(ctx, f.db, &factdomain.DiscountFact{
		ID: 1, OrderID: 42, OrderItemID: 420, ProductID: 7,
		Quantity:       decimal.NewFromInt(1),
		DiscountAmount: decimal.NewFromInt(5),
		DiscountPct:    decimal.NewFromInt(5),
		LineTotal:      decimal.NewFromInt(95),
		Currency:       "USD",
		WasOnSale:      pricing.SaleYes,
		CreatedAt:      time.Now().UTC(),
	}))

	rec := f.request(t, http.MethodPost, "/v1/hooks/order-refund", f.hooksKey, orderRefundHookRequest{OrderItemID: 420, RefundID: 9})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"superseded":true`)

	rec = f.request(t, http.MethodPost, "/v1/hooks/order-refund", f.hooksKey, orderRefundHookRequest{OrderItemID: 420, RefundID: 10})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"superseded":false`)
}

func TestBackfillEndpointReturnsSummary(t *testing.T) {
	f := newServerFixture(t)

	rec := f.request(t, http.MethodPost, "/v1/admin/backfill", f.manageKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary backfill.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 0, summary.Migrated)
}

func TestExportStreamsCSV(t *testing.T) {
	f := newServerFixture(t)

	require.NoError(t, f.db.Create(&catalogdomain.Product{
		ID: 1, Name: "Hoodie", ProductType: "simple", InStock: true,
		RegularPrice: decimal.NullDecimal{Decimal: decimal.NewFromInt(100), Valid: true},
		SalePrice:    decimal.NullDecimal{Decimal: decimal.NewFromInt(80), Valid: true},
	}).Error)

	rec := f.request(t, http.MethodGet, "/v1/reports/export?report=current-discounts", f.manageKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "product_id,name,sku"))

	rec = f.request(t, http.MethodGet, "/v1/reports/export?report=bogus", f.manageKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthzAndMetricsAreOpen(t *testing.T) {
	f := newServerFixture(t)

	rec := f.request(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAdminLifecycle(t *testing.T) {
	f := newServerFixture(t)

	rec := f.request(t, http.MethodPost, "/v1/admin/api-keys", f.manageKey, map[string]any{
		"name":   "ci-export",
		"scopes": []string{apikeydomain.ScopeReportsManage},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created apikeydomain.SecretResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.KeyID)
	require.NotEmpty(t, created.APIKey)

	rec = f.request(t, http.MethodGet, "/v1/reports/discount-summary", created.APIKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodGet, "/v1/admin/api-keys", f.manageKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Keys []apikeydomain.Response `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	found := false
	for _, key := range listed.Keys {
		if key.KeyID == created.KeyID {
			found = true
			assert.True(t, key.IsActive)
			assert.Contains(t, key.Scopes, apikeydomain.ScopeReportsManage)
		}
	}
	assert.True(t, found, "created key missing from listing")

	rec = f.request(t, http.MethodDelete, "/v1/admin/api-keys/"+created.KeyID, f.manageKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A revoked key no longer authenticates.
	rec = f.request(t, http.MethodGet, "/v1/reports/discount-summary", created.APIKey, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.request(t, http.MethodDelete, "/v1/admin/api-keys/key_missing", f.manageKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.request(t, http.MethodPost, "/v1/admin/api-keys", f.manageKey, map[string]any{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Key management needs the manage scope like the rest of admin.
	rec = f.request(t, http.MethodGet, "/v1/admin/api-keys", f.hooksKey, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
