package aggregator

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"io.winapps.healthjournal/internal/dates"
	models "io.winapps.healthjournal/internal/models/entry"
	"io.winapps.healthjournal/internal/richtext"
)

// Labels used when a summary falls back to an earlier day.
const (
	LabelToday       = "Today"
	LabelLastReading = "Last reading"
	LabelLastEntry   = "Last entry"
)

// NutritionSummary is the macro total for one day.
type NutritionSummary struct {
	Date     string   `json:"date"`
	Entries  int      `json:"entries"`
	Calories int      `json:"calories"`
	Protein  int      `json:"protein"`
	Carbs    int      `json:"carbs"`
	Fats     int      `json:"fats"`
	Lines    []string `json:"lines"`
}

// HealthSummary shows one blood-pressure reading. Reading is nil when there
// are no readings at all.
type HealthSummary struct {
	Date    string        `json:"date"`
	Label   string        `json:"label,omitempty"`
	IsToday bool          `json:"isToday"`
	Reading *models.Entry `json:"reading,omitempty"`
	Lines   []string      `json:"lines"`
}

type ExerciseSummary struct {
	Date  string   `json:"date"`
	Count int      `json:"count"`
	Lines []string `json:"lines"`
}

// MoodSummary shows today's diary entry or, failing that, the most recent one.
type MoodSummary struct {
	Date       string        `json:"date"`
	Label      string        `json:"label,omitempty"`
	IsToday    bool          `json:"isToday"`
	Mood       string        `json:"mood,omitempty"`
	HasContent bool          `json:"hasContent"`
	EntryDate  string        `json:"entryDate,omitempty"`
	Relative   string        `json:"relative,omitempty"`
	Entry      *models.Entry `json:"entry,omitempty"`
	Lines      []string      `json:"lines"`
}

// Nutrition sums the macros of every entry attributed to day. Missing
// payloads count as zero.
func Nutrition(cal dates.Calendar, entries []models.Entry, day string) NutritionSummary {
	out := NutritionSummary{Date: day}
	for _, e := range entries {
		if e.Nutrition == nil || cal.DateKeyOf(e) != day {
			continue
		}
		out.Entries++
		out.Calories += e.Nutrition.Calories.Int()
		out.Protein += e.Nutrition.Protein.Int()
		out.Carbs += e.Nutrition.Carbs.Int()
		out.Fats += e.Nutrition.Fats.Int()
	}
	out.Lines = []string{
		fmt.Sprintf("Calories: %d", out.Calories),
		fmt.Sprintf("Protein: %dg", out.Protein),
		fmt.Sprintf("Carbs: %dg", out.Carbs),
		fmt.Sprintf("Fats: %dg", out.Fats),
	}
	return out
}

// LatestReading returns the reading with the greatest sort time among
// entries. Ties go to the later element.
func LatestReading(cal dates.Calendar, entries []models.Entry) (models.Entry, bool) {
	var (
		best     models.Entry
		bestTime time.Time
		found    bool
	)
	for _, e := range entries {
		if e.Health == nil {
			continue
		}
		t, ok := cal.SortTime(e)
		if !ok {
			continue
		}
		if !found || !t.Before(bestTime) {
			best, bestTime, found = e, t, true
		}
	}
	return best, found
}

// Health picks the latest reading of day. With none that day it falls back to
// the latest reading overall, labelled as the last reading.
func Health(cal dates.Calendar, entries []models.Entry, day string) HealthSummary {
	out := HealthSummary{Date: day}

	var today []models.Entry
	for _, e := range entries {
		if e.Health != nil && cal.DateKeyOf(e) == day {
			today = append(today, e)
		}
	}

	if r, ok := LatestReading(cal, today); ok {
		out.Label = LabelToday
		out.IsToday = true
		out.Reading = &r
	} else if r, ok := LatestReading(cal, entries); ok {
		out.Label = LabelLastReading
		out.Reading = &r
	}

	if out.Reading == nil {
		out.Lines = []string{"No readings yet"}
		return out
	}
	h := out.Reading.Health
	out.Lines = []string{
		fmt.Sprintf("%d/%d", h.Systolic.Int(), h.Diastolic.Int()),
		fmt.Sprintf("Pulse: %d", h.Pulse.Int()),
	}
	if !out.IsToday {
		out.Lines = append(out.Lines, fmt.Sprintf("%s: %s", LabelLastReading, cal.DateKeyOf(*out.Reading)))
	}
	return out
}

// Exercise counts the activities logged on day.
func Exercise(cal dates.Calendar, entries []models.Entry, day string) ExerciseSummary {
	out := ExerciseSummary{Date: day}
	for _, e := range entries {
		if e.Exercise != nil && cal.DateKeyOf(e) == day {
			out.Count++
		}
	}
	switch out.Count {
	case 0:
		out.Lines = []string{"No exercises today"}
	case 1:
		out.Lines = []string{"1 activity logged"}
	default:
		out.Lines = []string{fmt.Sprintf("%d activities logged", out.Count)}
	}
	return out
}

// SortByTimestampDesc orders entries newest-created first. Equal timestamps
// keep their input order.
func SortByTimestampDesc(entries []models.Entry) []models.Entry {
	sorted := make([]models.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	return sorted
}

// Mood reports the diary entry attributed to day, choosing the most recently
// created one among several. Without one it falls back to the most recent
// entry overall.
func Mood(cal dates.Calendar, entries []models.Entry, day string) MoodSummary {
	out := MoodSummary{Date: day}

	var diary []models.Entry
	for _, e := range entries {
		if e.Diary != nil {
			diary = append(diary, e)
		}
	}
	sorted := SortByTimestampDesc(diary)

	for i := range sorted {
		if cal.DateKeyOf(sorted[i]) == day {
			e := sorted[i]
			out.Label = LabelToday
			out.IsToday = true
			out.Entry = &e
			break
		}
	}
	if out.Entry == nil && len(sorted) > 0 {
		e := sorted[0]
		out.Label = LabelLastEntry
		out.Entry = &e
	}

	if out.Entry == nil {
		out.Lines = []string{"No entries yet"}
		return out
	}

	out.Mood = out.Entry.Diary.Mood
	out.HasContent = !richtext.IsBlank(out.Entry.Diary.Entry)
	mood := out.Mood
	if mood == "" {
		mood = "N/A"
	}

	if out.IsToday {
		content := "No entry content"
		if out.HasContent {
			content = "Entry saved"
		}
		out.Lines = []string{"Mood: " + mood, content}
		return out
	}

	out.EntryDate = cal.DateKeyOf(*out.Entry)
	if out.EntryDate == "" {
		out.EntryDate = cal.LocalDate(out.Entry.Timestamp)
	}
	if dayStart, _, err := cal.DayBounds(day); err == nil {
		if entryStart, _, err := cal.DayBounds(out.EntryDate); err == nil {
			out.Relative = humanize.RelTime(entryStart, dayStart, "ago", "from now")
		}
	}
	out.Lines = []string{"Last mood: " + mood, fmt.Sprintf("%s: %s", LabelLastEntry, out.EntryDate)}
	return out
}
