package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/promolens/internal/report"
	reportdomain "github.com/smallbiznis/promolens/internal/report/domain"
	"github.com/smallbiznis/promolens/pkg/db/pagination"
)

// GetCurrentDiscounts returns the live catalog discount view.
func (s *Server) GetCurrentDiscounts(c *gin.Context) {
	req, err := s.currentDiscountsRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.CurrentDiscounts(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordReportRequest(c.Request.Context(), "current_discounts", "")
	c.JSON(http.StatusOK, resp)
}

// GetDiscountHistory returns captured facts, grouped or ungrouped.
func (s *Server) GetDiscountHistory(c *gin.Context) {
	req, err := s.historyRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.History(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordReportRequest(c.Request.Context(), "discount_history", string(req.GroupBy))
	c.JSON(http.StatusOK, resp)
}

// GetDiscountSummary returns date-range totals plus the top-10 ranking.
func (s *Server) GetDiscountSummary(c *gin.Context) {
	from, to, err := dateRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	summary, err := s.reportSvc.Summary(c.Request.Context(), from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordReportRequest(c.Request.Context(), "discount_summary", "")
	c.JSON(http.StatusOK, summary)
}

// ExportReport streams one of the reports as CSV. Exports ignore the
// page cap and always carry every matching row.
func (s *Server) ExportReport(c *gin.Context) {
	kind := strings.TrimSpace(c.Query("report"))

	switch kind {
	case "current-discounts":
		req, err := s.currentDiscountsRequest(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.Page = pagination.Pagination{Unbounded: true}

		resp, err := s.reportSvc.CurrentDiscounts(c.Request.Context(), req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		writeCSVHeader(c, "current-discounts")
		if err := report.WriteCurrentDiscountsCSV(c.Writer, resp.Rows); err != nil {
			AbortWithError(c, err)
		}
	case "discount-history":
		req, err := s.historyRequest(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.Page = pagination.Pagination{Unbounded: true}

		resp, err := s.reportSvc.History(c.Request.Context(), req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		writeCSVHeader(c, "discount-history")
		if err := report.WriteHistoryCSV(c.Writer, resp); err != nil {
			AbortWithError(c, err)
		}
	case "discount-summary":
		from, to, err := dateRange(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		summary, err := s.reportSvc.Summary(c.Request.Context(), from, to)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		writeCSVHeader(c, "discount-summary")
		if err := report.WriteSummaryCSV(c.Writer, summary); err != nil {
			AbortWithError(c, err)
		}
	default:
		AbortWithError(c, newValidationError("report", "invalid_report", "unknown report type"))
		return
	}

	s.obsMetrics.RecordReportRequest(c.Request.Context(), "export", kind)
}

func writeCSVHeader(c *gin.Context, name string) {
	filename := fmt.Sprintf("%s-%s.csv", name, time.Now().UTC().Format(dateOnlyLayout))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
}

func (s *Server) currentDiscountsRequest(c *gin.Context) (reportdomain.CurrentDiscountsRequest, error) {
	var req reportdomain.CurrentDiscountsRequest

	categoryID, err := parseOptionalInt64(c.Query("category_id"))
	if err != nil {
		return req, newValidationError("category_id", "invalid_category_id", "must be an integer")
	}
	minPct, err := parseOptionalDecimal(c.Query("min_pct"))
	if err != nil {
		return req, newValidationError("min_pct", "invalid_min_pct", "must be a decimal")
	}
	maxPct, err := parseOptionalDecimal(c.Query("max_pct"))
	if err != nil {
		return req, newValidationError("max_pct", "invalid_max_pct", "must be a decimal")
	}
	sortAsc, err := parseOptionalBool(c.Query("sort_asc"))
	if err != nil {
		return req, newValidationError("sort_asc", "invalid_sort_asc", "must be a boolean")
	}

	req.CategoryID = categoryID
	req.ProductType = strings.TrimSpace(c.Query("product_type"))
	req.MinPct = minPct
	req.MaxPct = maxPct
	req.Status = strings.TrimSpace(c.Query("status"))
	req.SortBy = strings.TrimSpace(c.Query("sort_by"))
	req.SortAsc = sortAsc
	req.Page = pageFromQuery(c)
	return req, nil
}

func (s *Server) historyRequest(c *gin.Context) (reportdomain.HistoryRequest, error) {
	var req reportdomain.HistoryRequest

	from, to, err := dateRange(c)
	if err != nil {
		return req, err
	}
	productID, err := parseOptionalInt64(c.Query("product_id"))
	if err != nil {
		return req, newValidationError("product_id", "invalid_product_id", "must be an integer")
	}
	categoryID, err := parseOptionalInt64(c.Query("category_id"))
	if err != nil {
		return req, newValidationError("category_id", "invalid_category_id", "must be an integer")
	}
	groupBy, ok := reportdomain.ParseGroupBy(strings.TrimSpace(c.Query("group_by")))
	if !ok {
		return req, newValidationError("group_by", "invalid_group_by", "must be none, product, category or date")
	}

	req.From = from
	req.To = to
	req.ProductID = productID
	req.CategoryID = categoryID
	req.GroupBy = groupBy
	req.Page = pageFromQuery(c)
	return req, nil
}

func dateRange(c *gin.Context) (*time.Time, *time.Time, error) {
	from, err := parseOptionalTime(c.Query("from"), false)
	if err != nil {
		return nil, nil, newValidationError("from", "invalid_from", "must be RFC3339 or YYYY-MM-DD")
	}
	to, err := parseOptionalTime(c.Query("to"), true)
	if err != nil {
		return nil, nil, newValidationError("to", "invalid_to", "must be RFC3339 or YYYY-MM-DD")
	}
	return from, to, nil
}

func pageFromQuery(c *gin.Context) pagination.Pagination {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		return pagination.Pagination{}
	}
	return page
}
