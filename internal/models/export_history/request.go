package models

type ExportHistoryRequest struct {
	Type     string `json:"type,omitempty"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Timezone string `json:"tz,omitempty"`
	Format   string `json:"format,omitempty"` // "xlsx" (default) or "csv"
}
