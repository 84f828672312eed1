package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"io.winapps.healthjournal/internal/aggregator"
	"io.winapps.healthjournal/internal/dashboard"
	searchmodels "io.winapps.healthjournal/internal/models/search_history"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// SearchHistory returns the filtered history table newest first, one page at
// a time.
func (h *EntryHandler) SearchHistory(c *gin.Context) {
	var req searchmodels.SearchHistoryRequest

	// Pagination may also come from the query string
	if pageStr := c.Query("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			req.Page = page
		}
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			req.Limit = limit
		}
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
	}

	uid, ok := currentUID(c)
	if !ok {
		return
	}

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = defaultHistoryLimit
	}
	if req.Limit > maxHistoryLimit {
		req.Limit = maxHistoryLimit
	}

	cal, err := calendarFor(c, h.location, req.Timezone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.dashboard.History(c.Request.Context(), uid, cal, aggregator.HistoryQuery{Type: req.Type, Start: req.Start, End: req.End})
	if err != nil {
		h.respondHistoryError(c, err)
		return
	}

	total := len(rows)
	from, to := pageBounds(req.Page, req.Limit, total)

	out := make([]searchmodels.HistoryRow, 0, to-from)
	for _, r := range rows[from:to] {
		out = append(out, searchmodels.HistoryRow{
			Category: r.Category,
			Date:     r.DateKey,
			SortKey:  cal.LocalDateTime(r.SortKey),
			Preview:  r.Preview,
			Entry:    r.Entry,
		})
	}

	c.JSON(http.StatusOK, searchmodels.SearchHistoryResponse{
		Rows:       out,
		Pagination: searchmodels.NewPagination(req.Page, req.Limit, total),
	})
}

// pageBounds returns the slice of total rows shown on page. Pages past the
// end are empty; page and limit must be positive.
func pageBounds(page, limit, total int) (int, int) {
	if page-1 >= (total+limit-1)/limit {
		return total, total
	}
	from := (page - 1) * limit
	to := from + limit
	if to > total {
		to = total
	}
	return from, to
}

func (h *EntryHandler) respondHistoryError(c *gin.Context, err error) {
	if errors.Is(err, dashboard.ErrHistoryQuery) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logError(c, err, "failed to build history")
	respondStoreError(c, err, "Failed to load history")
}
