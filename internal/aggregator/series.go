package aggregator

import (
	"time"

	"io.winapps.healthjournal/internal/dates"
	models "io.winapps.healthjournal/internal/models/entry"
)

// DefaultSeriesDays is the width of the dashboard trend charts.
const DefaultSeriesDays = 7

// Point is one day on a chart axis. A nil Value is a gap, not a zero.
type Point struct {
	Date  string   `json:"date"`
	Label string   `json:"label"`
	Value *float64 `json:"value"`
}

// Series is an oldest-first run of points.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

func axis(days []string, name string, value func(day string) *float64) Series {
	s := Series{Name: name, Points: make([]Point, len(days))}
	for i, day := range days {
		s.Points[i] = Point{Date: day, Label: shortLabel(day), Value: value(day)}
	}
	return s
}

// shortLabel renders a day key as "Mon 02".
func shortLabel(day string) string {
	t, err := time.Parse(dates.DateLayout, day)
	if err != nil {
		return day
	}
	return t.Format("Mon 02")
}

func num(v int) *float64 {
	f := float64(v)
	return &f
}

// CaloriesSeries sums calories per day over days; empty days are 0.
func CaloriesSeries(cal dates.Calendar, entries []models.Entry, days []string) Series {
	totals := make(map[string]int, len(days))
	for _, e := range entries {
		if e.Nutrition == nil {
			continue
		}
		if key := cal.DateKeyOf(e); key != "" {
			totals[key] += e.Nutrition.Calories.Int()
		}
	}
	return axis(days, "calories", func(day string) *float64 { return num(totals[day]) })
}

// BloodPressureSeries returns systolic and diastolic series using the last
// reading of each day in input order. Days without a reading are gaps in both.
func BloodPressureSeries(cal dates.Calendar, entries []models.Entry, days []string) (Series, Series) {
	last := make(map[string]*models.Health, len(days))
	for _, e := range entries {
		if e.Health == nil {
			continue
		}
		if key := cal.DateKeyOf(e); key != "" {
			last[key] = e.Health
		}
	}
	systolic := axis(days, "systolic", func(day string) *float64 {
		if h, ok := last[day]; ok {
			return num(h.Systolic.Int())
		}
		return nil
	})
	diastolic := axis(days, "diastolic", func(day string) *float64 {
		if h, ok := last[day]; ok {
			return num(h.Diastolic.Int())
		}
		return nil
	})
	return systolic, diastolic
}

// ExerciseMinutesSeries sums exercise duration per day; empty days are 0.
func ExerciseMinutesSeries(cal dates.Calendar, entries []models.Entry, days []string) Series {
	totals := make(map[string]int, len(days))
	for _, e := range entries {
		if e.Exercise == nil {
			continue
		}
		if key := cal.DateKeyOf(e); key != "" {
			totals[key] += e.Exercise.Duration.Int()
		}
	}
	return axis(days, "duration", func(day string) *float64 { return num(totals[day]) })
}

// MoodSeries plots the last diary mood of each day in input order on the
// 1..5 scale. Missing days and unknown symbols are gaps.
func MoodSeries(cal dates.Calendar, entries []models.Entry, days []string) Series {
	moods := make(map[string]string, len(days))
	for _, e := range entries {
		if e.Diary == nil {
			continue
		}
		if key := cal.DateKeyOf(e); key != "" {
			moods[key] = e.Diary.Mood
		}
	}
	return axis(days, "mood", func(day string) *float64 {
		if v, ok := MoodOrdinal(moods[day]); ok {
			return num(v)
		}
		return nil
	})
}
