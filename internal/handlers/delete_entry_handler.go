package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	deleteentrymodels "io.winapps.healthjournal/internal/models/delete_entry"
	models "io.winapps.healthjournal/internal/models/entry"
)

// DeleteEntry removes exactly one entry by id.
func (h *EntryHandler) DeleteEntry(c *gin.Context) {
	var req deleteentrymodels.DeleteEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	category, err := models.ParseCategory(string(req.Category))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Entry ID is required"})
		return
	}

	uid, ok := currentUID(c)
	if !ok {
		return
	}

	if err := h.store.Delete(c.Request.Context(), uid, category, id); err != nil {
		h.logError(c, err, "failed to delete entry", "category", category, "entry_id", id)
		respondStoreError(c, err, "Failed to delete entry")
		return
	}

	c.JSON(http.StatusOK, gin.H{"isDeleted": true, "message": "Entry deleted successfully"})
}
