package models

import (
	"errors"
	"fmt"
	"time"
)

// Category is the kind of an entry. It is fixed at creation.
type Category string

const (
	CategoryNutrition Category = "nutrition"
	CategoryHealth    Category = "health"
	CategoryExercise  Category = "exercise"
	CategoryDiary     Category = "diary"
)

// Categories lists every category in dashboard order.
var Categories = []Category{CategoryNutrition, CategoryHealth, CategoryExercise, CategoryDiary}

// ParseCategory returns the category named s.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	switch c {
	case CategoryNutrition, CategoryHealth, CategoryExercise, CategoryDiary:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }

// Entry is a single logged record. Exactly one of the payload pointers is set,
// and it must match Category.
type Entry struct {
	ID        string    `json:"id" firestore:"-"`
	Category  Category  `json:"category" firestore:"category"`
	Datetime  string    `json:"datetime,omitempty" firestore:"datetime,omitempty"`
	Date      string    `json:"date,omitempty" firestore:"date,omitempty"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`

	Nutrition *Nutrition `json:"nutrition,omitempty" firestore:"nutrition,omitempty"`
	Health    *Health    `json:"health,omitempty" firestore:"health,omitempty"`
	Exercise  *Exercise  `json:"exercise,omitempty" firestore:"exercise,omitempty"`
	Diary     *Diary     `json:"diary,omitempty" firestore:"diary,omitempty"`
}

type Nutrition struct {
	Calories Amount `json:"calories" firestore:"calories"`
	Protein  Amount `json:"protein" firestore:"protein"`
	Carbs    Amount `json:"carbs" firestore:"carbs"`
	Fats     Amount `json:"fats" firestore:"fats"`
	Alcohol  Amount `json:"alcohol" firestore:"alcohol"`
}

// Health is a blood-pressure reading.
type Health struct {
	Systolic  Amount `json:"systolic" firestore:"systolic"`
	Diastolic Amount `json:"diastolic" firestore:"diastolic"`
	Pulse     Amount `json:"pulse" firestore:"pulse"`
	Notes     string `json:"notes,omitempty" firestore:"notes,omitempty"`
}

type Exercise struct {
	Type      string `json:"type" firestore:"type"`
	Duration  Amount `json:"duration" firestore:"duration"` // minutes
	Intensity string `json:"intensity,omitempty" firestore:"intensity,omitempty"`
	Notes     string `json:"notes,omitempty" firestore:"notes,omitempty"`
}

type Diary struct {
	Mood  string `json:"mood" firestore:"mood"`
	Entry string `json:"entry" firestore:"entry"` // HTML from the rich-text editor
}

// MoodScale lists the diary mood symbols from lowest to highest.
var MoodScale = []string{"😞", "🙁", "😐", "🙂", "😊"}

// ValidMood reports whether mood is on the scale.
func ValidMood(mood string) bool {
	for _, m := range MoodScale {
		if m == mood {
			return true
		}
	}
	return false
}

var ErrInvalidEntry = errors.New("invalid entry")

// Validate checks the tagged-union shape of e.
func (e Entry) Validate() error {
	if !e.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidEntry, e.Category)
	}

	present := map[Category]bool{
		CategoryNutrition: e.Nutrition != nil,
		CategoryHealth:    e.Health != nil,
		CategoryExercise:  e.Exercise != nil,
		CategoryDiary:     e.Diary != nil,
	}
	for c, ok := range present {
		if c == e.Category && !ok {
			return fmt.Errorf("%w: %s payload is required", ErrInvalidEntry, c)
		}
		if c != e.Category && ok {
			return fmt.Errorf("%w: %s payload not allowed on a %s entry", ErrInvalidEntry, c, e.Category)
		}
	}

	if e.Diary != nil && e.Diary.Mood != "" && !ValidMood(e.Diary.Mood) {
		return fmt.Errorf("%w: mood must be one of %v", ErrInvalidEntry, MoodScale)
	}

	if e.Date != "" {
		if e.Category != CategoryDiary {
			return fmt.Errorf("%w: date override is only allowed on diary entries", ErrInvalidEntry)
		}
		if _, err := time.Parse(time.DateOnly, e.Date); err != nil {
			return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidEntry)
		}
	}
	return nil
}
