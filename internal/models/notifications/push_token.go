package models

import "time"

// PushToken is a device registered for the evening diary reminder.
type PushToken struct {
	UserID    string    `json:"user_id"`
	FCMToken  string    `json:"fcm_token"`
	Platform  string    `json:"platform"`
	Timezone  string    `json:"timezone"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterPushTokenRequest struct {
	FCMToken string `json:"fcmToken" binding:"required"`
	Platform string `json:"platform" binding:"required"`
	Timezone string `json:"timezone,omitempty"`
}

type RegisterPushTokenResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
