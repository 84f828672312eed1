package models

import (
	entrymodels "io.winapps.healthjournal/internal/models/entry"
)

// CreateEntryRequest carries one entry. Exactly the payload matching
// Category must be present.
type CreateEntryRequest struct {
	Category  entrymodels.Category   `json:"category" binding:"required"`
	Datetime  string                 `json:"datetime,omitempty"`
	Date      string                 `json:"date,omitempty"`
	Nutrition *entrymodels.Nutrition `json:"nutrition,omitempty"`
	Health    *entrymodels.Health    `json:"health,omitempty"`
	Exercise  *entrymodels.Exercise  `json:"exercise,omitempty"`
	Diary     *entrymodels.Diary     `json:"diary,omitempty"`
	Timezone  string                 `json:"tz,omitempty"`
}

func (r CreateEntryRequest) Entry() entrymodels.Entry {
	return entrymodels.Entry{
		Category:  r.Category,
		Datetime:  r.Datetime,
		Date:      r.Date,
		Nutrition: r.Nutrition,
		Health:    r.Health,
		Exercise:  r.Exercise,
		Diary:     r.Diary,
	}
}
