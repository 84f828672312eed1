package models

import (
	entrymodels "io.winapps.healthjournal/internal/models/entry"
)

type DeleteEntryRequest struct {
	Category entrymodels.Category `json:"category" binding:"required"`
	ID       string               `json:"id" binding:"required"`
}
