package aggregator

import (
	models "io.winapps.healthjournal/internal/models/entry"
)

// MoodOrdinal maps a mood symbol to 1..5 for plotting. Unknown symbols
// report false.
func MoodOrdinal(mood string) (int, bool) {
	for i, m := range models.MoodScale {
		if m == mood {
			return i + 1, true
		}
	}
	return 0, false
}
