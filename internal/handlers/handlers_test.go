package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"

	"io.winapps.healthjournal/internal/dashboard"
	"io.winapps.healthjournal/internal/export"
	"io.winapps.healthjournal/internal/middleware"
	createmodels "io.winapps.healthjournal/internal/models/create_entry"
	models "io.winapps.healthjournal/internal/models/entry"
	searchmodels "io.winapps.healthjournal/internal/models/search_history"
	"io.winapps.healthjournal/internal/reminders"
	"io.winapps.healthjournal/internal/store"
)

const testUser = "device-1"

// downStore fails every operation like an unreachable backend.
type downStore struct{}

func (downStore) Append(context.Context, string, models.Entry) (models.Entry, error) {
	return models.Entry{}, fmt.Errorf("%w: connection refused", store.ErrStoreUnavailable)
}

func (downStore) List(context.Context, string, models.Category) ([]models.Entry, error) {
	return nil, fmt.Errorf("%w: connection refused", store.ErrStoreUnavailable)
}

func (downStore) Delete(context.Context, string, models.Category, string) error {
	return fmt.Errorf("%w: connection refused", store.ErrStoreUnavailable)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	local, err := store.NewLocalStore(filepath.Join(t.TempDir(), "entries.json"))
	if err != nil {
		t.Fatal(err)
	}
	return store.NewNotifyingStore(local, store.NewMemoryBroker(), nil)
}

func setupRouter(s store.Store, registry *reminders.Registry) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	entryHandler := NewEntryHandler(s, time.UTC, nil)
	dashboardHandler := NewDashboardHandler(s, time.UTC, nil)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.UserScopeMiddleware(nil, nil))
	entries := v1.Group("/entries")
	{
		entries.POST("/create-entry", entryHandler.CreateEntry)
		entries.POST("/list-entries", entryHandler.ListEntries)
		entries.POST("/delete-entry", entryHandler.DeleteEntry)
		entries.POST("/search-history", entryHandler.SearchHistory)
		entries.POST("/export-history", entryHandler.ExportHistory)
	}
	dash := v1.Group("/dashboard")
	{
		dash.GET("/summary", dashboardHandler.Summary)
		dash.GET("/series", dashboardHandler.Series)
		dash.GET("/ws", dashboardHandler.LiveDashboard)
	}
	if registry != nil {
		v1.POST("/notifications/register-push-token", NewNotificationsHandler(registry, nil).RegisterPushToken)
	}
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", testUser)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createEntry(t *testing.T, r http.Handler, body interface{}) models.Entry {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/v1/entries/create-entry", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create-entry status = %d: %s", w.Code, w.Body.String())
	}
	var resp createmodels.CreateEntryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Entry
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

func TestCreateEntry(t *testing.T) {
	r := setupRouter(newTestStore(t), nil)

	e := createEntry(t, r, map[string]interface{}{
		"category":  "nutrition",
		"datetime":  today() + "T08:00",
		"nutrition": map[string]interface{}{"calories": "450", "protein": 20, "carbs": "abc"},
	})
	if e.ID == "" || e.Timestamp.IsZero() {
		t.Errorf("entry identity not assigned: %+v", e)
	}
	if e.Nutrition.Calories != 450 || e.Nutrition.Carbs != 0 {
		t.Errorf("nutrition = %+v, want calories 450 and carbs degraded to 0", e.Nutrition)
	}

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"malformed json", `{"category":`, http.StatusBadRequest},
		{"missing category", map[string]interface{}{"nutrition": map[string]int{"calories": 1}}, http.StatusBadRequest},
		{"payload mismatch", map[string]interface{}{"category": "health", "diary": map[string]string{"mood": "🙂"}}, http.StatusBadRequest},
		{"unknown category", map[string]interface{}{"category": "sleep"}, http.StatusBadRequest},
		{"date override on meal", map[string]interface{}{"category": "nutrition", "date": "2024-01-01", "nutrition": map[string]int{"calories": 1}}, http.StatusBadRequest},
		{"mood off the scale", map[string]interface{}{"category": "diary", "diary": map[string]string{"mood": "meh"}}, http.StatusBadRequest},
		{"unknown timezone", map[string]interface{}{"category": "exercise", "tz": "Mars/Olympus", "exercise": map[string]int{"duration": 5}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, r, http.MethodPost, "/api/v1/entries/create-entry", tt.body); w.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestCreateEntryWithoutDatetimeCountsToday(t *testing.T) {
	r := setupRouter(newTestStore(t), nil)

	e := createEntry(t, r, map[string]interface{}{
		"category":  "nutrition",
		"nutrition": map[string]int{"calories": 500},
	})
	if !strings.HasPrefix(e.Datetime, today()+"T") {
		t.Fatalf("datetime = %q, want a time on %s", e.Datetime, today())
	}

	w := do(t, r, http.MethodGet, "/api/v1/dashboard/summary", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary status = %d", w.Code)
	}
	var d dashboard.Dashboard
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatal(err)
	}
	if d.Nutrition.Entries != 1 || d.Nutrition.Calories != 500 {
		t.Errorf("nutrition = %+v, want the new meal counted today", d.Nutrition)
	}
}

func TestCreateEntryStoreUnavailable(t *testing.T) {
	r := setupRouter(downStore{}, nil)
	w := do(t, r, http.MethodPost, "/api/v1/entries/create-entry", map[string]interface{}{
		"category": "exercise",
		"exercise": map[string]interface{}{"type": "run", "duration": 30},
	})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestUnauthenticated(t *testing.T) {
	r := setupRouter(newTestStore(t), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries/list-entries", strings.NewReader(`{"category":"diary"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestListAndDeleteEntries(t *testing.T) {
	r := setupRouter(newTestStore(t), nil)
	walk := map[string]interface{}{"category": "exercise", "exercise": map[string]interface{}{"type": "walk", "duration": 20}}
	first := createEntry(t, r, walk)
	second := createEntry(t, r, walk)

	list := func() []models.Entry {
		w := do(t, r, http.MethodPost, "/api/v1/entries/list-entries", map[string]string{"category": "exercise"})
		if w.Code != http.StatusOK {
			t.Fatalf("list status = %d", w.Code)
		}
		var resp struct {
			Entries []models.Entry `json:"entries"`
			Count   int            `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Count != len(resp.Entries) {
			t.Errorf("count = %d, entries = %d", resp.Count, len(resp.Entries))
		}
		return resp.Entries
	}

	if got := list(); len(got) != 2 || got[0].ID != first.ID {
		t.Fatalf("list = %+v", got)
	}

	w := do(t, r, http.MethodPost, "/api/v1/entries/delete-entry", map[string]string{"category": "exercise", "id": first.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodPost, "/api/v1/entries/delete-entry", map[string]string{"category": "exercise", "id": first.ID})
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
	w = do(t, r, http.MethodPost, "/api/v1/entries/delete-entry", map[string]string{"category": "diary", "id": second.ID})
	if w.Code != http.StatusNotFound {
		t.Errorf("delete in wrong category status = %d, want 404", w.Code)
	}

	if got := list(); len(got) != 1 || got[0].ID != second.ID {
		t.Errorf("after delete list = %+v", got)
	}

	if w := do(t, r, http.MethodPost, "/api/v1/entries/list-entries", map[string]string{"category": "sleep"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown category status = %d", w.Code)
	}
}

func seedHistory(t *testing.T, r http.Handler) {
	t.Helper()
	createEntry(t, r, map[string]interface{}{"category": "nutrition", "datetime": "2024-01-10T08:00", "nutrition": map[string]int{"calories": 300}})
	createEntry(t, r, map[string]interface{}{"category": "health", "datetime": "2024-01-12T07:30", "health": map[string]int{"systolic": 118, "diastolic": 76, "pulse": 60}})
	createEntry(t, r, map[string]interface{}{"category": "exercise", "datetime": "2024-01-11T18:00", "exercise": map[string]interface{}{"type": "swim", "duration": 45}})
	createEntry(t, r, map[string]interface{}{"category": "diary", "datetime": "2024-01-12T21:00", "diary": map[string]string{"mood": "😊", "entry": "<p>Long <b>day</b></p>"}})
}

func TestSearchHistory(t *testing.T) {
	r := setupRouter(newTestStore(t), nil)
	seedHistory(t, r)

	search := func(body interface{}, query string) searchmodels.SearchHistoryResponse {
		w := do(t, r, http.MethodPost, "/api/v1/entries/search-history"+query, body)
		if w.Code != http.StatusOK {
			t.Fatalf("search status = %d: %s", w.Code, w.Body.String())
		}
		var resp searchmodels.SearchHistoryResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		return resp
	}

	all := search(map[string]string{"type": "all"}, "")
	var order []models.Category
	for _, row := range all.Rows {
		order = append(order, row.Category)
	}
	want := []models.Category{models.CategoryDiary, models.CategoryHealth, models.CategoryExercise, models.CategoryNutrition}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	if all.Rows[0].Preview != "😊 Long day" {
		t.Errorf("diary preview = %q", all.Rows[0].Preview)
	}
	if all.Pagination.Total != 4 || all.Pagination.HasNext {
		t.Errorf("pagination = %+v", all.Pagination)
	}

	page := search(map[string]interface{}{"limit": 3, "page": 2}, "")
	if len(page.Rows) != 1 || !page.Pagination.HasPrevious || page.Pagination.TotalPages != 2 {
		t.Errorf("page 2 = %+v", page)
	}

	for _, p := range []int{3, 4611686018427387904, math.MaxInt} {
		past := search(map[string]interface{}{"limit": 100, "page": p}, "")
		if len(past.Rows) != 0 || past.Pagination.HasNext || past.Pagination.Total != 4 {
			t.Errorf("page %d = %+v, want an empty page", p, past)
		}
	}

	ranged := search(map[string]string{"start": "2024-01-11", "end": "2024-01-11"}, "")
	if len(ranged.Rows) != 1 || ranged.Rows[0].Category != models.CategoryExercise {
		t.Errorf("ranged rows = %+v", ranged.Rows)
	}

	health := search(map[string]string{"type": "health"}, "?limit=500")
	if len(health.Rows) != 1 || health.Pagination.Limit != maxHistoryLimit {
		t.Errorf("health rows = %d, limit = %d", len(health.Rows), health.Pagination.Limit)
	}

	for _, body := range []map[string]string{{"type": "sleep"}, {"start": "yesterday"}, {"tz": "Mars/Olympus"}} {
		if w := do(t, r, http.MethodPost, "/api/v1/entries/search-history", body); w.Code != http.StatusBadRequest {
			t.Errorf("%v status = %d, want 400", body, w.Code)
		}
	}

	down := setupRouter(downStore{}, nil)
	if w := do(t, down, http.MethodPost, "/api/v1/entries/search-history", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("store down status = %d, want 503", w.Code)
	}
}

func TestExportHistory(t *testing.T) {
	r := setupRouter(newTestStore(t), nil)
	seedHistory(t, r)

	t.Run("csv", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/api/v1/entries/export-history", map[string]string{"format": "csv"})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Header().Get("Content-Disposition"), ".csv") {
			t.Errorf("Content-Disposition = %q", w.Header().Get("Content-Disposition"))
		}
		records, err := csv.NewReader(w.Body).ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 5 || records[0][0] != "Date" {
			t.Fatalf("records = %v", records)
		}
		diary := records[1]
		if diary[0] != "2024-01-12" || diary[1] != "21:00" || diary[2] != "diary" || diary[15] != "😊" || diary[16] != "Long day" {
			t.Errorf("diary record = %v", diary)
		}
	})

	t.Run("xlsx", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/api/v1/entries/export-history", map[string]string{"type": "nutrition"})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		f, err := excelize.OpenReader(w.Body)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		rows, err := f.GetRows(export.SheetName)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 2 || rows[1][4] != "300" {
			t.Errorf("rows = %v", rows)
		}
	})

	t.Run("bad format", func(t *testing.T) {
		if w := do(t, r, http.MethodPost, "/api/v1/entries/export-history", map[string]string{"format": "pdf"}); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestDashboardSummaryAndSeries(t *testing.T) {
	r := setupRouter(newTestStore(t), nil)
	createEntry(t, r, map[string]interface{}{"category": "nutrition", "datetime": today() + "T07:00", "nutrition": map[string]int{"calories": 400, "fats": 12}})
	createEntry(t, r, map[string]interface{}{"category": "nutrition", "datetime": today() + "T12:00", "nutrition": map[string]int{"calories": 250}})

	w := do(t, r, http.MethodGet, "/api/v1/dashboard/summary?tz=UTC", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary status = %d", w.Code)
	}
	var d dashboard.Dashboard
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatal(err)
	}
	if d.Date != today() || d.Nutrition.Calories != 650 || d.Nutrition.Fats != 12 {
		t.Errorf("dashboard = %+v", d.Nutrition)
	}
	if d.Exercise.Count != 0 || d.Health.Reading != nil || d.Mood.Entry != nil {
		t.Errorf("empty categories not empty: %+v %+v %+v", d.Exercise, d.Health, d.Mood)
	}

	w = do(t, r, http.MethodGet, "/api/v1/dashboard/series?category=nutrition&days=3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("series status = %d", w.Code)
	}
	var series struct {
		Series []struct {
			Points []struct {
				Date  string   `json:"date"`
				Value *float64 `json:"value"`
			} `json:"points"`
		} `json:"series"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &series); err != nil {
		t.Fatal(err)
	}
	points := series.Series[0].Points
	if len(points) != 3 || points[2].Date != today() || points[2].Value == nil || *points[2].Value != 650 {
		t.Errorf("points = %+v", points)
	}
	if points[0].Value == nil || *points[0].Value != 0 {
		t.Errorf("calories on a day without meals = %v, want 0", points[0].Value)
	}

	for _, q := range []string{"?category=sleep", "?category=health&days=0", "?category=health&days=91"} {
		if w := do(t, r, http.MethodGet, "/api/v1/dashboard/series"+q, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", q, w.Code)
		}
	}
}

func TestLiveDashboard(t *testing.T) {
	s := newTestStore(t)
	srv := httptest.NewServer(setupRouter(s, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/dashboard/ws?uid=" + testUser + "&tz=UTC"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first liveMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.Type != "dashboard" || !first.Live || len(first.Versions) != len(models.Categories) {
		t.Fatalf("first message = %+v", first)
	}

	_, err = s.Append(context.Background(), testUser, models.Entry{
		Category: models.CategoryExercise,
		Datetime: today() + "T06:00",
		Exercise: &models.Exercise{Type: "row", Duration: 15},
	})
	if err != nil {
		t.Fatal(err)
	}

	var update liveMessage
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatal(err)
	}
	if update.Type != "update" || len(update.Changed) != 1 || update.Changed[0] != models.CategoryExercise {
		t.Fatalf("update = %+v", update)
	}
	if update.Versions[models.CategoryExercise] <= first.Versions[models.CategoryExercise] {
		t.Errorf("chart version did not advance: %d -> %d", first.Versions[models.CategoryExercise], update.Versions[models.CategoryExercise])
	}
	if update.Dashboard.Exercise.Count != 1 {
		t.Errorf("exercise count = %d, want 1", update.Dashboard.Exercise.Count)
	}
	if len(first.Retired) != 0 {
		t.Errorf("first message retired = %v, want none", first.Retired)
	}
	want := map[models.Category]int{models.CategoryExercise: first.Versions[models.CategoryExercise]}
	if !reflect.DeepEqual(update.Retired, want) {
		t.Errorf("update retired = %v, want %v", update.Retired, want)
	}
}

func TestRegisterPushToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	registry := reminders.NewRegistry(client)
	r := setupRouter(newTestStore(t), registry)

	w := do(t, r, http.MethodPost, "/api/v1/notifications/register-push-token", map[string]string{"fcmToken": "tok", "platform": "android"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	got, err := registry.Get(context.Background(), testUser)
	if err != nil {
		t.Fatal(err)
	}
	if got.FCMToken != "tok" || got.Timezone != "UTC" {
		t.Errorf("registered token = %+v", got)
	}

	for _, body := range []map[string]string{{"platform": "ios"}, {"fcmToken": "x", "platform": "ios", "timezone": "Nowhere/City"}} {
		if w := do(t, r, http.MethodPost, "/api/v1/notifications/register-push-token", body); w.Code != http.StatusBadRequest {
			t.Errorf("%v status = %d, want 400", body, w.Code)
		}
	}
}
