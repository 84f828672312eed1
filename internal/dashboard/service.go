package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"io.winapps.healthjournal/internal/aggregator"
	"io.winapps.healthjournal/internal/dates"
	models "io.winapps.healthjournal/internal/models/entry"
	"io.winapps.healthjournal/internal/store"
)

// Dashboard is today's view of every category plus the trend series.
type Dashboard struct {
	Date      string                                  `json:"date"`
	Timezone  string                                  `json:"timezone"`
	Nutrition aggregator.NutritionSummary             `json:"nutrition"`
	Health    aggregator.HealthSummary                `json:"health"`
	Exercise  aggregator.ExerciseSummary              `json:"exercise"`
	Mood      aggregator.MoodSummary                  `json:"mood"`
	Series    map[models.Category][]aggregator.Series `json:"series"`
	Errors    map[models.Category]string              `json:"errors,omitempty"`
}

// Service builds dashboards from an entry store.
type Service struct {
	store  store.Store
	logger *zap.SugaredLogger
}

func NewService(s store.Store, logger *zap.SugaredLogger) *Service {
	return &Service{store: s, logger: logger}
}

// Fetched holds one category's entries or the error that prevented reading
// them.
type Fetched struct {
	Entries []models.Entry
	Err     error
}

// FetchAll lists the given categories concurrently. A failing category does
// not affect the others.
func (s *Service) FetchAll(ctx context.Context, uid string, cats []models.Category) map[models.Category]Fetched {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[models.Category]Fetched, len(cats))
	)
	for _, c := range cats {
		wg.Add(1)
		go func(c models.Category) {
			defer wg.Done()
			entries, err := s.store.List(ctx, uid, c)
			if err != nil && s.logger != nil {
				s.logger.Warnw("failed to list entries", "user_uid", uid, "category", c, "error", err)
			}
			mu.Lock()
			out[c] = Fetched{Entries: entries, Err: err}
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return out
}

// Build computes the dashboard for cal's today.
func (s *Service) Build(ctx context.Context, uid string, cal dates.Calendar) Dashboard {
	return Compose(cal, s.FetchAll(ctx, uid, models.Categories), aggregator.DefaultSeriesDays)
}

// Compose turns fetched entries into a dashboard. Failed categories are
// reported in Errors and otherwise summarized as empty.
func Compose(cal dates.Calendar, fetched map[models.Category]Fetched, seriesDays int) Dashboard {
	today := cal.Today()
	days := cal.LastNDays(seriesDays)

	d := Dashboard{
		Date:     today,
		Timezone: cal.Location.String(),
		Series:   make(map[models.Category][]aggregator.Series, len(models.Categories)),
	}
	entries := make(map[models.Category][]models.Entry, len(fetched))
	for c, f := range fetched {
		if f.Err != nil {
			if d.Errors == nil {
				d.Errors = make(map[models.Category]string)
			}
			d.Errors[c] = f.Err.Error()
			continue
		}
		entries[c] = f.Entries
	}

	d.Nutrition = aggregator.Nutrition(cal, entries[models.CategoryNutrition], today)
	d.Health = aggregator.Health(cal, entries[models.CategoryHealth], today)
	d.Exercise = aggregator.Exercise(cal, entries[models.CategoryExercise], today)
	d.Mood = aggregator.Mood(cal, entries[models.CategoryDiary], today)

	for _, c := range models.Categories {
		d.Series[c] = BuildSeries(cal, c, entries[c], days)
	}
	return d
}

// BuildSeries returns the chart series of one category over days.
func BuildSeries(cal dates.Calendar, c models.Category, entries []models.Entry, days []string) []aggregator.Series {
	switch c {
	case models.CategoryNutrition:
		return []aggregator.Series{aggregator.CaloriesSeries(cal, entries, days)}
	case models.CategoryHealth:
		sys, dia := aggregator.BloodPressureSeries(cal, entries, days)
		return []aggregator.Series{sys, dia}
	case models.CategoryExercise:
		return []aggregator.Series{aggregator.ExerciseMinutesSeries(cal, entries, days)}
	case models.CategoryDiary:
		return []aggregator.Series{aggregator.MoodSeries(cal, entries, days)}
	}
	return nil
}

// ErrHistoryQuery marks a history request with an invalid filter.
var ErrHistoryQuery = errors.New("invalid history query")

// History reads the categories selected by q and builds the history rows.
// A category that cannot be read fails the whole call, since a partial
// table would be misleading.
func (s *Service) History(ctx context.Context, uid string, cal dates.Calendar, q aggregator.HistoryQuery) ([]aggregator.HistoryRow, error) {
	cats, err := q.Categories()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryQuery, err)
	}

	fetched := s.FetchAll(ctx, uid, cats)
	byCategory := make(map[models.Category][]models.Entry, len(cats))
	for _, cat := range cats {
		f := fetched[cat]
		if f.Err != nil {
			return nil, f.Err
		}
		byCategory[cat] = f.Entries
	}

	rows, err := aggregator.History(cal, byCategory, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryQuery, err)
	}
	return rows, nil
}
