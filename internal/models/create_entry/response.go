package models

import (
	entrymodels "io.winapps.healthjournal/internal/models/entry"
)

type CreateEntryResponse struct {
	Entry entrymodels.Entry `json:"entry"`
}
