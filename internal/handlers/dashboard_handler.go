package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"io.winapps.healthjournal/internal/aggregator"
	"io.winapps.healthjournal/internal/dashboard"
	models "io.winapps.healthjournal/internal/models/entry"
	"io.winapps.healthjournal/internal/store"
)

const maxSeriesDays = 90

type DashboardHandler struct {
	store    store.Store
	service  *dashboard.Service
	location *time.Location
	logger   *zap.SugaredLogger
}

func NewDashboardHandler(s store.Store, loc *time.Location, logger *zap.SugaredLogger) *DashboardHandler {
	return &DashboardHandler{
		store:    s,
		service:  dashboard.NewService(s, logger),
		location: loc,
		logger:   logger,
	}
}

// Summary returns today's dashboard. Categories that could not be read are
// listed under errors; the rest are still summarized.
func (h *DashboardHandler) Summary(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	cal, err := calendarFor(c, h.location, "")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.service.Build(c.Request.Context(), uid, cal))
}

// Series returns the chart series of one category over the last days.
func (h *DashboardHandler) Series(c *gin.Context) {
	category, err := models.ParseCategory(c.Query("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	days := aggregator.DefaultSeriesDays
	if daysStr := c.Query("days"); daysStr != "" {
		days, err = strconv.Atoi(daysStr)
		if err != nil || days < 1 || days > maxSeriesDays {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 90"})
			return
		}
	}

	uid, ok := currentUID(c)
	if !ok {
		return
	}
	cal, err := calendarFor(c, h.location, "")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := h.store.List(c.Request.Context(), uid, category)
	if err != nil {
		h.logError(c, err, "failed to list entries for series", "category", category)
		respondStoreError(c, err, "Failed to load entries")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"days":     days,
		"series":   dashboard.BuildSeries(cal, category, entries, cal.LastNDays(days)),
	})
}
