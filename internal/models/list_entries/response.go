package models

import (
	entrymodels "io.winapps.healthjournal/internal/models/entry"
)

type ListEntriesResponse struct {
	Category entrymodels.Category `json:"category"`
	Entries  []entrymodels.Entry  `json:"entries"`
	Count    int                  `json:"count"`
}
