package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"io.winapps.healthjournal/internal/aggregator"
	"io.winapps.healthjournal/internal/export"
	exportmodels "io.winapps.healthjournal/internal/models/export_history"
)

// ExportHistory returns the filtered history as an .xlsx or .csv attachment.
func (h *EntryHandler) ExportHistory(c *gin.Context) {
	var req exportmodels.ExportHistoryRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
	}
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = export.FormatXLSX
	}
	if format != export.FormatXLSX && format != export.FormatCSV {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be xlsx or csv"})
		return
	}

	uid, ok := currentUID(c)
	if !ok {
		return
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

	var buf bytes.Buffer
	if err := export.Write(&buf, format, cal, rows); err != nil {
		h.logError(c, err, "failed to render export", "format", format)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export history"})
		return
	}

	filename := fmt.Sprintf("health-history-%s.%s", cal.Today(), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}
