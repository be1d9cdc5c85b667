package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/strongsync/internal/ingest/strong"
	"github.com/claude/strongsync/internal/intervals"
	"github.com/claude/strongsync/internal/models"
	"github.com/claude/strongsync/internal/storage"
	"github.com/google/uuid"
)

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale middleware is active.
func TestHandleMeDefault(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "local", DisplayName: "Local Dev User"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
	if info.DisplayName != "Local Dev User" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Local Dev User")
	}
}

// TestHandleMeTailscaleUser verifies the /api/v1/me endpoint returns the
// Tailscale user identity when set in context.
func TestHandleMeTailscaleUser(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "alice@example.com", DisplayName: "Alice"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "alice@example.com" {
		t.Errorf("login = %q, want %q", info.Login, "alice@example.com")
	}
	if info.DisplayName != "Alice" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Alice")
	}
}

const legDay = "Leg Day\nTuesday\nSquat\nSet 1: 60 kg × 8 reps\nSet 2: 60 kg × 8 reps"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeStore struct {
	workouts []models.WorkoutRow
	linked   map[uuid.UUID]string
}

func (f *fakeStore) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	return 3, nil
}

func (f *fakeStore) QueryWorkouts(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutRow, error) {
	return f.workouts, nil
}

func (f *fakeStore) GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*storage.WorkoutDetail, error) {
	for _, w := range f.workouts {
		if w.ID == workoutID && w.UserID == userID {
			return &storage.WorkoutDetail{WorkoutRow: w}, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.WorkoutSetRow, error) {
	return []models.WorkoutSetRow{{ExerciseName: exerciseFilter, UserID: userID}}, nil
}

func (f *fakeStore) QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error) {
	return []storage.ImportLog{{UserID: userID, Source: "strong", Status: "success"}}, nil
}

func (f *fakeStore) SetActivityID(ctx context.Context, workoutID uuid.UUID, activityID string) error {
	f.linked[workoutID] = activityID
	return nil
}

type fakeSubmitter struct {
	calls int
}

func (f *fakeSubmitter) CreateWorkoutActivity(ctx context.Context, w *models.Workout, description string) (*intervals.Activity, error) {
	f.calls++
	return &intervals.Activity{ID: "i900"}, nil
}

func newTestServer(store Store, sub Submitter) *Server {
	clock := func() time.Time { return time.Date(2024, 1, 18, 12, 0, 0, 0, time.UTC) }
	parser := strong.NewParser(discard, clock)
	return New(Deps{
		Store:     store,
		Ingester:  strong.NewProvider(nil, parser, discard),
		Parser:    parser,
		Intervals: sub,
		APIKey:    "secret",
		Log:       discard,
	})
}

func do(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-API-Key", "secret")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// TestParseEndpoint verifies the parse endpoint returns the workout and the
// derived totals for a plain-text body.
func TestParseEndpoint(t *testing.T) {
	rec := do(t, newTestServer(nil, nil), http.MethodPost, "/api/v1/parse", "text/plain", legDay)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp parseResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Workout.Name != "Leg Day" {
		t.Errorf("name = %q, want %q", resp.Workout.Name, "Leg Day")
	}
	if resp.TotalSets != 2 || resp.TotalVolumeKg != 960 || resp.EstDurationSec != 300 {
		t.Errorf("totals = (%d, %v, %d), want (2, 960, 300)", resp.TotalSets, resp.TotalVolumeKg, resp.EstDurationSec)
	}
	if !strings.Contains(resp.Description, "**Squat**") {
		t.Errorf("description missing exercise heading: %q", resp.Description)
	}
}

// TestParseEndpointJSON verifies the JSON {"text": ...} body form.
func TestParseEndpointJSON(t *testing.T) {
	body, _ := json.Marshal(map[string]string{"text": legDay})
	rec := do(t, newTestServer(nil, nil), http.MethodPost, "/api/v1/parse", "application/json", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
}

// TestParseEndpointErrors verifies empty and unparseable bodies.
func TestParseEndpointErrors(t *testing.T) {
	srv := newTestServer(nil, nil)
	if rec := do(t, srv, http.MethodPost, "/api/v1/parse", "text/plain", "  "); rec.Code != http.StatusBadRequest {
		t.Errorf("empty body status = %d, want 400", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/api/v1/parse", "text/plain", "just a note"); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("no exercises status = %d, want 422", rec.Code)
	}
}

// TestIngestEndpointSubmit verifies that ?submit=true creates an activity
// and returns its link.
func TestIngestEndpointSubmit(t *testing.T) {
	sub := &fakeSubmitter{}
	rec := do(t, newTestServer(nil, sub), http.MethodPost, "/api/v1/ingest/strong?submit=true", "text/plain", legDay)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp struct {
		SetsReceived int    `json:"sets_received"`
		ActivityID   string `json:"activity_id"`
		ActivityURL  string `json:"activity_url"`
		Stored       bool   `json:"stored"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.SetsReceived != 2 {
		t.Errorf("sets_received = %d, want 2", resp.SetsReceived)
	}
	if resp.ActivityID != "i900" || resp.ActivityURL != "https://intervals.icu/activities/i900" {
		t.Errorf("activity = (%q, %q)", resp.ActivityID, resp.ActivityURL)
	}
	if resp.Stored {
		t.Error("stored = true without storage")
	}
	if sub.calls != 1 {
		t.Errorf("submit calls = %d, want 1", sub.calls)
	}
}

// TestIngestEndpointRejects verifies the gate, missing submitter and API key paths.
func TestIngestEndpointRejects(t *testing.T) {
	srv := newTestServer(nil, nil)
	if rec := do(t, srv, http.MethodPost, "/api/v1/ingest/strong", "text/plain", "hello"); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("not strong status = %d, want 422", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/api/v1/ingest/strong?submit=1", "text/plain", legDay); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("submit without intervals status = %d, want 503", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/strong", strings.NewReader(legDay))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}
}

// TestQueryEndpoints verifies the storage-backed routes and that they are
// only mounted when a store is configured.
func TestQueryEndpoints(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{
		workouts: []models.WorkoutRow{{ID: id, UserID: 3, Name: "Leg Day"}},
		linked:   map[uuid.UUID]string{},
	}
	srv := newTestServer(store, nil)

	if rec := do(t, srv, http.MethodGet, "/api/v1/workouts", "", ""); rec.Code != http.StatusOK {
		t.Errorf("workouts status = %d, want 200", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/workouts/"+id.String(), "", ""); rec.Code != http.StatusOK {
		t.Errorf("workout status = %d, want 200", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/workouts/"+uuid.NewString(), "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing workout status = %d, want 404", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/workouts/not-a-uuid", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/sets?exercise=squat", "", ""); rec.Code != http.StatusOK {
		t.Errorf("sets status = %d, want 200", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/imports?limit=5", "", ""); rec.Code != http.StatusOK {
		t.Errorf("imports status = %d, want 200", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/sets?start=garbage", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad range status = %d, want 400", rec.Code)
	}

	bare := newTestServer(nil, nil)
	if rec := do(t, bare, http.MethodGet, "/api/v1/workouts", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("workouts without store status = %d, want 404", rec.Code)
	}
}

// TestHealth verifies the health endpoint reports configured collaborators.
func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(nil, &fakeSubmitter{}), http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got["storage"] != false || got["intervals"] != true {
		t.Errorf("health = %v", got)
	}
}
