package report

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/promolens/internal/catalog/domain"
	factdomain "github.com/smallbiznis/promolens/internal/fact/domain"
	"github.com/smallbiznis/promolens/internal/report/domain"
)

const dateLayout = "2006-01-02"

type accumulator struct {
	row    domain.GroupedRow
	sumPct decimal.Decimal
}

// aggregate folds facts into grouped rows. Groups keep first-encounter
// order, which is the only tie-break order downstream consumers get.
// Category grouping fans a fact out to every category of its product at
// full weight.
func aggregate(facts []factdomain.DiscountFact, names map[int64]string, categories map[int64][]catalogdomain.Category, groupBy domain.GroupBy) []domain.GroupedRow {
	var order []string
	groups := make(map[string]*accumulator)

	add := func(key string, seed domain.GroupedRow, fact factdomain.DiscountFact) {
		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{row: seed, sumPct: decimal.Zero}
			acc.row.UnitsSold = decimal.Zero
			acc.row.TotalDiscount = decimal.Zero
			acc.row.TotalRevenue = decimal.Zero
			groups[key] = acc
			order = append(order, key)
		}
		acc.row.UnitsSold = acc.row.UnitsSold.Add(fact.Quantity)
		acc.row.TotalDiscount = acc.row.TotalDiscount.Add(fact.DiscountAmount.Mul(fact.Quantity))
		acc.row.TotalRevenue = acc.row.TotalRevenue.Add(fact.LineTotal)
		acc.row.LineCount++
		acc.sumPct = acc.sumPct.Add(fact.DiscountPct)
	}

	for _, fact := range facts {
		switch groupBy {
		case domain.GroupByProduct:
			add(productKey(fact.ProductID), domain.GroupedRow{
				ProductID:   fact.ProductID,
				ProductName: names[fact.ProductID],
			}, fact)
		case domain.GroupByCategory:
			cats := categories[fact.ProductID]
			if len(cats) == 0 {
				add("category:0", domain.GroupedRow{CategoryName: "Uncategorized"}, fact)
				continue
			}
			for _, cat := range cats {
				add(categoryKey(cat.ID), domain.GroupedRow{
					CategoryID:   cat.ID,
					CategoryName: cat.Name,
				}, fact)
			}
		case domain.GroupByDate:
			day := fact.CreatedAt.UTC().Format(dateLayout)
			add("date:"+day, domain.GroupedRow{Date: day}, fact)
		default:
			add("all", domain.GroupedRow{}, fact)
		}
	}

	out := make([]domain.GroupedRow, 0, len(order))
	for _, key := range order {
		acc := groups[key]
		if acc.row.LineCount > 0 {
			acc.row.AvgDiscountPct = acc.sumPct.
				Div(decimal.NewFromInt(int64(acc.row.LineCount))).
				Round(2)
		}
		out = append(out, acc.row)
	}
	return out
}

func productKey(id int64) string {
	return "product:" + strconv.FormatInt(id, 10)
}

func categoryKey(id int64) string {
	return "category:" + strconv.FormatInt(id, 10)
}

// summarize computes the ungrouped totals plus the top-10 product
// ranking. Ties keep the stable order the product grouping produced.
func summarize(facts []factdomain.DiscountFact, names map[int64]string) domain.Summary {
	totals := aggregate(facts, names, nil, domain.GroupByNone)

	summary := domain.Summary{
		UnitsSold:      decimal.Zero,
		TotalDiscount:  decimal.Zero,
		TotalRevenue:   decimal.Zero,
		AvgDiscountPct: decimal.Zero,
	}
	if len(totals) > 0 {
		total := totals[0]
		summary.UnitsSold = total.UnitsSold
		summary.TotalDiscount = total.TotalDiscount
		summary.TotalRevenue = total.TotalRevenue
		summary.AvgDiscountPct = total.AvgDiscountPct
		summary.LineCount = total.LineCount
	}

	if summary.TotalRevenue.Sign() > 0 {
		summary.DiscountPctOfRevenue = summary.TotalDiscount.
			Div(summary.TotalRevenue).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	} else {
		summary.DiscountPctOfRevenue = decimal.Zero
	}

	summary.TopProducts = topProducts(aggregate(facts, names, nil, domain.GroupByProduct), 10)
	return summary
}

// topProducts selects the n groups with the highest total discount using
// a stable sort so equal totals keep their grouping order.
func topProducts(groups []domain.GroupedRow, n int) []domain.GroupedRow {
	ranked := make([]domain.GroupedRow, len(groups))
	copy(ranked, groups)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalDiscount.GreaterThan(ranked[j].TotalDiscount)
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
