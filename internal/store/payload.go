package store

import (
	"encoding/json"
	"fmt"

	models "io.winapps.healthjournal/internal/models/entry"
)

// encodePayload returns the JSON of the variant matching e.Category.
func encodePayload(e models.Entry) ([]byte, error) {
	var v any
	switch e.Category {
	case models.CategoryNutrition:
		v = e.Nutrition
	case models.CategoryHealth:
		v = e.Health
	case models.CategoryExercise:
		v = e.Exercise
	case models.CategoryDiary:
		v = e.Diary
	default:
		return nil, fmt.Errorf("%w: unknown category %q", models.ErrInvalidEntry, e.Category)
	}
	return json.Marshal(v)
}

// decodePayload fills the variant of e named by e.Category from raw.
func decodePayload(e *models.Entry, raw []byte) error {
	switch e.Category {
	case models.CategoryNutrition:
		e.Nutrition = &models.Nutrition{}
		return json.Unmarshal(raw, e.Nutrition)
	case models.CategoryHealth:
		e.Health = &models.Health{}
		return json.Unmarshal(raw, e.Health)
	case models.CategoryExercise:
		e.Exercise = &models.Exercise{}
		return json.Unmarshal(raw, e.Exercise)
	case models.CategoryDiary:
		e.Diary = &models.Diary{}
		return json.Unmarshal(raw, e.Diary)
	}
	return fmt.Errorf("unknown category %q", e.Category)
}
