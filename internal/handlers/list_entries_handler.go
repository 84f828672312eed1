package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	models "io.winapps.healthjournal/internal/models/entry"
	listmodels "io.winapps.healthjournal/internal/models/list_entries"
)

// ListEntries returns every entry of one category in store order.
func (h *EntryHandler) ListEntries(c *gin.Context) {
	var req listmodels.ListEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	category, err := models.ParseCategory(string(req.Category))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uid, ok := currentUID(c)
	if !ok {
		return
	}

	entries, err := h.store.List(c.Request.Context(), uid, category)
	if err != nil {
		h.logError(c, err, "failed to list entries", "category", category)
		respondStoreError(c, err, "Failed to load entries")
		return
	}
	if entries == nil {
		entries = []models.Entry{}
	}

	c.JSON(http.StatusOK, listmodels.ListEntriesResponse{
		Category: category,
		Entries:  entries,
		Count:    len(entries),
	})
}
