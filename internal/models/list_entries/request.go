package models

import (
	entrymodels "io.winapps.healthjournal/internal/models/entry"
)

type ListEntriesRequest struct {
	Category entrymodels.Category `json:"category" binding:"required"`
}
