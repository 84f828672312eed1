package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	notificationsmodels "io.winapps.healthjournal/internal/models/notifications"
	"io.winapps.healthjournal/internal/reminders"
)

type NotificationsHandler struct {
	registry *reminders.Registry
	logger   *zap.SugaredLogger
}

func NewNotificationsHandler(registry *reminders.Registry, logger *zap.SugaredLogger) *NotificationsHandler {
	return &NotificationsHandler{registry: registry, logger: logger}
}

// RegisterPushToken registers the caller's device for the evening diary
// reminder.
func (ns *NotificationsHandler) RegisterPushToken(c *gin.Context) {
	var req notificationsmodels.RegisterPushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uid, ok := currentUID(c)
	if !ok {
		return
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid timezone"})
		return
	}

	token := notificationsmodels.PushToken{
		UserID:   uid,
		FCMToken: req.FCMToken,
		Platform: req.Platform,
		Timezone: timezone,
	}
	if err := ns.registry.Register(c.Request.Context(), token); err != nil {
		ns.logError(c, err, "failed to save push token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save token"})
		return
	}

	c.JSON(http.StatusOK, notificationsmodels.RegisterPushTokenResponse{
		Success: true,
		Message: "Token registered successfully",
	})
}
