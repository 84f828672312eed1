package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	createmodels "io.winapps.healthjournal/internal/models/create_entry"
)

// CreateEntry validates and appends one entry. An entry without a datetime
// is stamped with the viewer's current local time. A failed append is
// reported to the caller and not retried.
func (h *EntryHandler) CreateEntry(c *gin.Context) {
	var req createmodels.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
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

	entry := req.Entry()
	if err := entry.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry = cal.Stamp(entry)

	saved, err := h.store.Append(c.Request.Context(), uid, entry)
	if err != nil {
		h.logError(c, err, "failed to append entry", "category", entry.Category)
		respondStoreError(c, err, "Failed to save entry")
		return
	}

	c.JSON(http.StatusCreated, createmodels.CreateEntryResponse{Entry: saved})
}
