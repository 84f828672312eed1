package models

import (
	entrymodels "io.winapps.healthjournal/internal/models/entry"
)

type SearchHistoryResponse struct {
	Rows       []HistoryRow `json:"rows"`
	Pagination Pagination   `json:"pagination"`
}

type HistoryRow struct {
	Category entrymodels.Category `json:"category"`
	Date     string               `json:"date"`
	SortKey  string               `json:"sortKey"`
	Preview  string               `json:"preview"`
	Entry    entrymodels.Entry    `json:"entry"`
}

type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}

// NewPagination computes paging metadata for total rows.
func NewPagination(page, limit, total int) Pagination {
	totalPages := (total + limit - 1) / limit
	return Pagination{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}
