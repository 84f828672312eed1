package aggregator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"io.winapps.healthjournal/internal/dates"
	models "io.winapps.healthjournal/internal/models/entry"
	"io.winapps.healthjournal/internal/richtext"
)

// FilterAll selects every category in a history query.
const FilterAll = "all"

const previewLength = 80

// HistoryQuery selects rows for the history table. Empty Start or End leaves
// that side of the range open.
type HistoryQuery struct {
	Type  string
	Start string
	End   string
}

// HistoryRow is one entry in the history table.
type HistoryRow struct {
	Category models.Category `json:"category"`
	SortKey  time.Time       `json:"sortKey"`
	DateKey  string          `json:"dateKey"`
	Preview  string          `json:"preview"`
	Entry    models.Entry    `json:"entry"`
}

// Categories resolves the query type into the categories to read.
func (q HistoryQuery) Categories() ([]models.Category, error) {
	t := strings.TrimSpace(strings.ToLower(q.Type))
	if t == "" || t == FilterAll {
		return models.Categories, nil
	}
	c, err := models.ParseCategory(t)
	if err != nil {
		return nil, err
	}
	return []models.Category{c}, nil
}

// History unions the given per-category entries, keeps those inside the
// query's inclusive date range and returns them newest first. Rows with equal
// keys keep their input order: categories in the order given, entries in
// store order.
func History(cal dates.Calendar, byCategory map[models.Category][]models.Entry, q HistoryQuery) ([]HistoryRow, error) {
	cats, err := q.Categories()
	if err != nil {
		return nil, err
	}

	var (
		from, to       time.Time
		hasFrom, hasTo bool
	)
	if q.Start != "" {
		if from, _, err = cal.DayBounds(q.Start); err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		hasFrom = true
	}
	if q.End != "" {
		if _, to, err = cal.DayBounds(q.End); err != nil {
			return nil, fmt.Errorf("end: %w", err)
		}
		hasTo = true
	}

	rows := []HistoryRow{}
	for _, c := range cats {
		for _, e := range byCategory[c] {
			key, ok := cal.SortTime(e)
			if !ok && (hasFrom || hasTo) {
				continue
			}
			if hasFrom && key.Before(from) {
				continue
			}
			if hasTo && key.After(to) {
				continue
			}
			e.Category = c
			rows = append(rows, HistoryRow{
				Category: c,
				SortKey:  key,
				DateKey:  cal.DateKeyOf(e),
				Preview:  Describe(e),
				Entry:    e,
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].SortKey.After(rows[j].SortKey)
	})
	return rows, nil
}

// Describe renders a one-line summary of an entry for tables and exports.
func Describe(e models.Entry) string {
	switch {
	case e.Nutrition != nil:
		n := e.Nutrition
		s := fmt.Sprintf("%d kcal, P %dg, C %dg, F %dg", n.Calories.Int(), n.Protein.Int(), n.Carbs.Int(), n.Fats.Int())
		if n.Alcohol > 0 {
			s += fmt.Sprintf(", alcohol %d", n.Alcohol.Int())
		}
		return s
	case e.Health != nil:
		h := e.Health
		s := fmt.Sprintf("%d/%d, pulse %d", h.Systolic.Int(), h.Diastolic.Int(), h.Pulse.Int())
		if h.Notes != "" {
			s += " - " + richtext.Truncate(h.Notes, previewLength)
		}
		return s
	case e.Exercise != nil:
		x := e.Exercise
		s := fmt.Sprintf("%s, %d min", x.Type, x.Duration.Int())
		if x.Intensity != "" {
			s += " (" + x.Intensity + ")"
		}
		return s
	case e.Diary != nil:
		text := richtext.Preview(e.Diary.Entry, previewLength)
		if e.Diary.Mood == "" {
			return text
		}
		return strings.TrimSpace(e.Diary.Mood + " " + text)
	}
	return ""
}
