// Package report turns fact sets into the summary, grouped and
// current-discounts reports.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/promolens/internal/catalog/domain"
	"github.com/smallbiznis/promolens/internal/clock"
	factdomain "github.com/smallbiznis/promolens/internal/fact/domain"
	"github.com/smallbiznis/promolens/internal/legacy"
	"github.com/smallbiznis/promolens/internal/report/domain"
	"github.com/smallbiznis/promolens/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Facts   factdomain.Repository
	Legacy  *legacy.Reader
	Catalog catalogdomain.Repository
	Clock   clock.Clock
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	facts   factdomain.Repository
	legacy  *legacy.Reader
	catalog catalogdomain.Repository
	clock   clock.Clock
}

func New(p Params) *Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("report"),
		facts:   p.Facts,
		legacy:  p.Legacy,
		catalog: p.Catalog,
		clock:   p.Clock,
	}
}

// listFacts picks the primary store when its schema exists and falls
// back to the legacy representation otherwise. The probe is resolved
// once per read; callers never see the storage difference.
func (s *Service) listFacts(ctx context.Context, filter factdomain.Filter) ([]factdomain.DiscountFact, error) {
	if s.facts.IsProvisioned(ctx, s.db) {
		return s.facts.ListActive(ctx, s.db, filter)
	}
	s.log.Debug("fact store not provisioned, using legacy fallback")
	return s.legacy.ListActive(ctx, filter)
}

// History returns the discount-history report, grouped or not.
func (s *Service) History(ctx context.Context, req domain.HistoryRequest) (domain.HistoryResponse, error) {
	facts, err := s.listFacts(ctx, factdomain.Filter{
		From:       req.From,
		To:         req.To,
		ProductID:  req.ProductID,
		CategoryID: req.CategoryID,
		OnSaleOnly: true,
	})
	if err != nil {
		return domain.HistoryResponse{}, err
	}

	names, categories, err := s.productContext(ctx, facts, req.GroupBy)
	if err != nil {
		return domain.HistoryResponse{}, err
	}

	resp := domain.HistoryResponse{GroupBy: req.GroupBy}

	if req.GroupBy == domain.GroupByNone {
		rows := make([]domain.HistoryRow, 0, len(facts))
		for _, fact := range facts {
			rows = append(rows, historyRow(fact, names[fact.ProductID]))
		}
		resp.Rows, resp.PageInfo = pagination.Slice(rows, req.Page)
		return resp, nil
	}

	groups := aggregate(facts, names, categories, req.GroupBy)
	resp.Groups, resp.PageInfo = pagination.Slice(groups, req.Page)
	return resp, nil
}

// Summary returns the date-range aggregate totals plus the top-10
// product ranking.
func (s *Service) Summary(ctx context.Context, from, to *time.Time) (domain.Summary, error) {
	facts, err := s.listFacts(ctx, factdomain.Filter{
		From:       from,
		To:         to,
		OnSaleOnly: true,
	})
	if err != nil {
		return domain.Summary{}, err
	}

	names, _, err := s.productContext(ctx, facts, domain.GroupByProduct)
	if err != nil {
		return domain.Summary{}, err
	}
	return summarize(facts, names), nil
}

// CurrentDiscounts scans the catalog and returns the discounted items.
// Snapshots are derived fresh against the injected clock on every call;
// pagination applies after the full scan, filter and sort.
func (s *Service) CurrentDiscounts(ctx context.Context, req domain.CurrentDiscountsRequest) (domain.CurrentDiscountsResponse, error) {
	products, err := s.catalog.ListProducts(ctx, s.db, catalogdomain.ProductFilter{
		CategoryID:  req.CategoryID,
		ProductType: req.ProductType,
	})
	if err != nil {
		return domain.CurrentDiscountsResponse{}, err
	}

	now := s.clock.Now()
	rows := make([]domain.CurrentDiscountRow, 0, len(products))
	for _, product := range products {
		snapshot, ok := product.SnapshotAt(now)
		if !ok {
			continue
		}
		if !matchesCurrentFilter(snapshot, req) {
			continue
		}
		rows = append(rows, domain.CurrentDiscountRow{
			ProductID:      product.ID,
			Name:           product.Name,
			SKU:            product.SKU,
			ProductType:    product.ProductType,
			RegularPrice:   snapshot.RegularPrice,
			SalePrice:      snapshot.SalePrice,
			DiscountAmount: snapshot.DiscountAmount,
			DiscountPct:    snapshot.DiscountPct,
			SaleStatus:     snapshot.Status,
			InStock:        product.InStock,
		})
	}

	sortCurrentRows(rows, req.SortBy, req.SortAsc)

	var resp domain.CurrentDiscountsResponse
	resp.Rows, resp.PageInfo = pagination.Slice(rows, req.Page)
	return resp, nil
}

func matchesCurrentFilter(snapshot catalogdomain.SaleSnapshot, req domain.CurrentDiscountsRequest) bool {
	switch req.Status {
	case "", "all":
	default:
		if string(snapshot.Status) != req.Status {
			return false
		}
	}
	if req.MinPct != nil && snapshot.DiscountPct.LessThan(*req.MinPct) {
		return false
	}
	if req.MaxPct != nil && snapshot.DiscountPct.GreaterThan(*req.MaxPct) {
		return false
	}
	return true
}

func sortCurrentRows(rows []domain.CurrentDiscountRow, sortBy string, asc bool) {
	key := func(row domain.CurrentDiscountRow) decimal.Decimal {
		switch sortBy {
		case "regular_price":
			return row.RegularPrice
		case "sale_price":
			return row.SalePrice
		case "discount_amount":
			return row.DiscountAmount
		case "product_id":
			return decimal.NewFromInt(row.ProductID)
		default:
			// Default sort is discount_pct.
			return row.DiscountPct
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if asc {
			return key(rows[i]).LessThan(key(rows[j]))
		}
		return key(rows[i]).GreaterThan(key(rows[j]))
	})
}

// productContext resolves display names and, for category grouping, the
// category fan-out of every product referenced by the fact set.
func (s *Service) productContext(ctx context.Context, facts []factdomain.DiscountFact, groupBy domain.GroupBy) (map[int64]string, map[int64][]catalogdomain.Category, error) {
	ids := make([]int64, 0, len(facts))
	seen := make(map[int64]struct{}, len(facts))
	for _, fact := range facts {
		if _, ok := seen[fact.ProductID]; ok {
			continue
		}
		seen[fact.ProductID] = struct{}{}
		ids = append(ids, fact.ProductID)
	}

	names := make(map[int64]string, len(ids))
	for _, fact := range facts {
		if _, ok := names[fact.ProductID]; ok {
			continue
		}
		if name, ok := fact.Metadata["product_name"].(string); ok && name != "" {
			names[fact.ProductID] = name
		}
	}
	for _, id := range ids {
		if _, ok := names[id]; ok {
			continue
		}
		product, err := s.catalog.FindProduct(ctx, s.db, id)
		if err != nil {
			return nil, nil, err
		}
		if product != nil {
			names[id] = product.Name
		}
	}

	if groupBy != domain.GroupByCategory {
		return names, nil, nil
	}

	categories, err := s.catalog.CategoryNames(ctx, s.db, ids)
	if err != nil {
		return nil, nil, err
	}
	return names, categories, nil
}

func historyRow(fact factdomain.DiscountFact, name string) domain.HistoryRow {
	return domain.HistoryRow{
		Date:              fact.CreatedAt,
		OrderID:           fact.OrderID,
		OrderItemID:       fact.OrderItemID,
		ProductID:         fact.ProductID,
		VariationID:       fact.VariationID,
		ProductName:       name,
		Quantity:          fact.Quantity,
		RegularPrice:      fact.RegularPrice,
		RealizedUnitPrice: fact.RealizedUnitPrice,
		DiscountAmount:    fact.DiscountAmount,
		DiscountPct:       fact.DiscountPct,
		WasOnSale:         fact.WasOnSale,
		LineTotal:         fact.LineTotal,
		Currency:          fact.Currency,
	}
}
