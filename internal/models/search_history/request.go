package models

type SearchHistoryRequest struct {
	Type     string `json:"type,omitempty"`  // "all" (default) or a category
	Start    string `json:"start,omitempty"` // YYYY-MM-DD, inclusive
	End      string `json:"end,omitempty"`   // YYYY-MM-DD, inclusive
	Timezone string `json:"tz,omitempty"`
	Page     int    `json:"page,omitempty"`  // Default: 1
	Limit    int    `json:"limit,omitempty"` // Default: 20
}
