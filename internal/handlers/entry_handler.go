package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"io.winapps.healthjournal/internal/dashboard"
	"io.winapps.healthjournal/internal/dates"
	models "io.winapps.healthjournal/internal/models/entry"
	"io.winapps.healthjournal/internal/store"
)

type EntryHandler struct {
	store     store.Store
	dashboard *dashboard.Service
	location  *time.Location
	logger    *zap.SugaredLogger
}

// NewEntryHandler creates a new entry handler. loc is the timezone used when
// a request does not name one.
func NewEntryHandler(s store.Store, loc *time.Location, logger *zap.SugaredLogger) *EntryHandler {
	return &EntryHandler{
		store:     s,
		dashboard: dashboard.NewService(s, logger),
		location:  loc,
		logger:    logger,
	}
}

// currentUID returns the uid set by the user scope middleware, writing a 401
// when it is missing.
func currentUID(c *gin.Context) (string, bool) {
	uid := c.GetString("uid")
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return "", false
	}
	return uid, true
}

// calendarFor resolves the viewer's timezone from the body field, the tz
// query parameter or the X-Timezone header, in that order.
func calendarFor(c *gin.Context, fallback *time.Location, bodyTZ string) (dates.Calendar, error) {
	name := strings.TrimSpace(bodyTZ)
	if name == "" {
		name = c.Query("tz")
	}
	if name == "" {
		name = c.GetHeader("X-Timezone")
	}
	loc, err := dates.LoadLocation(name, fallback)
	if err != nil {
		return dates.Calendar{}, err
	}
	return dates.NewCalendar(loc), nil
}

// respondStoreError maps store errors onto status codes.
func respondStoreError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
	case errors.Is(err, models.ErrInvalidEntry):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msg})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
