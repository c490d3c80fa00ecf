package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/smallbiznis/promolens/internal/report/domain"
)

// CSV column headers are fixed per report type; consumers key on them.
var (
	currentDiscountsHeader = []string{
		"product_id", "name", "sku", "product_type",
		"regular_price", "sale_price", "discount_amount", "discount_pct", "sale_status",
	}
	historyHeader = []string{
		"date", "order_id", "order_item_id", "product_id", "product_name",
		"quantity", "regular_price", "realized_unit_price",
		"discount_amount", "discount_pct", "was_on_sale", "line_total", "currency",
	}
	groupedHeader = []string{
		"group", "units_sold", "total_discount", "total_revenue", "avg_discount_pct", "line_count",
	}
	summaryHeader     = []string{"metric", "value"}
	topProductsHeader = []string{"product_id", "product_name", "units_sold", "total_discount", "avg_discount_pct"}
)

// WriteCurrentDiscountsCSV streams the current-discounts rows.
func WriteCurrentDiscountsCSV(w io.Writer, rows []domain.CurrentDiscountRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(currentDiscountsHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			strconv.FormatInt(row.ProductID, 10),
			row.Name,
			row.SKU,
			row.ProductType,
			row.RegularPrice.String(),
			row.SalePrice.String(),
			row.DiscountAmount.String(),
			row.DiscountPct.String(),
			string(row.SaleStatus),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistoryCSV streams either the ungrouped or the grouped history.
func WriteHistoryCSV(w io.Writer, resp domain.HistoryResponse) error {
	cw := csv.NewWriter(w)

	if resp.GroupBy == domain.GroupByNone {
		if err := cw.Write(historyHeader); err != nil {
			return err
		}
		for _, row := range resp.Rows {
			regular := ""
			if row.RegularPrice.Valid {
				regular = row.RegularPrice.Decimal.String()
			}
			record := []string{
				row.Date.UTC().Format("2006-01-02 15:04:05"),
				strconv.FormatInt(row.OrderID, 10),
				strconv.FormatInt(row.OrderItemID, 10),
				strconv.FormatInt(row.ProductID, 10),
				row.ProductName,
				row.Quantity.String(),
				regular,
				row.RealizedUnitPrice.String(),
				row.DiscountAmount.String(),
				row.DiscountPct.String(),
				string(row.WasOnSale),
				row.LineTotal.String(),
				row.Currency,
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}

	if err := cw.Write(groupedHeader); err != nil {
		return err
	}
	for _, group := range resp.Groups {
		record := []string{
			groupLabel(resp.GroupBy, group),
			group.UnitsSold.String(),
			group.TotalDiscount.String(),
			group.TotalRevenue.String(),
			group.AvgDiscountPct.String(),
			strconv.Itoa(group.LineCount),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV streams the summary metrics followed by a blank
// separator row and a "Top Discounted Products" section.
func WriteSummaryCSV(w io.Writer, summary domain.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}

	metrics := [][2]string{
		{"units_sold", summary.UnitsSold.String()},
		{"total_discount", summary.TotalDiscount.String()},
		{"total_revenue", summary.TotalRevenue.String()},
		{"avg_discount_pct", summary.AvgDiscountPct.String()},
		{"discount_pct_of_revenue", summary.DiscountPctOfRevenue.String()},
		{"line_count", strconv.Itoa(summary.LineCount)},
	}
	for _, metric := range metrics {
		if err := cw.Write([]string{metric[0], metric[1]}); err != nil {
			return err
		}
	}

	if err := cw.Write([]string{"", ""}); err != nil {
		return err
	}
	if err := cw.Write([]string{"Top Discounted Products", ""}); err != nil {
		return err
	}
	if err := cw.Write(topProductsHeader); err != nil {
		return err
	}
	for _, product := range summary.TopProducts {
		record := []string{
			strconv.FormatInt(product.ProductID, 10),
			product.ProductName,
			product.UnitsSold.String(),
			product.TotalDiscount.String(),
			product.AvgDiscountPct.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func groupLabel(groupBy domain.GroupBy, group domain.GroupedRow) string {
	switch groupBy {
	case domain.GroupByProduct:
		if group.ProductName != "" {
			return group.ProductName
		}
		return strconv.FormatInt(group.ProductID, 10)
	case domain.GroupByCategory:
		return group.CategoryName
	case domain.GroupByDate:
		return group.Date
	default:
		return "all"
	}
}
