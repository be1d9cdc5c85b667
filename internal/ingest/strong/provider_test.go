package strong

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/claude/strongsync/internal/models"
	"github.com/claude/strongsync/internal/state"
	"github.com/claude/strongsync/internal/storage"
	"github.com/google/uuid"
)

type fakeStore struct {
	mu        sync.Mutex
	workouts  []models.WorkoutRow
	sets      []models.WorkoutSetRow
	logs      []storage.ImportLog
	existing  *models.WorkoutRow
	insertErr error
}

func (f *fakeStore) InsertWorkout(_ context.Context, row models.WorkoutRow, sets []models.WorkoutSetRow) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.workouts = append(f.workouts, row)
	f.sets = append(f.sets, sets...)
	return int64(len(sets)), nil
}

func (f *fakeStore) InsertImportLog(_ context.Context, log storage.ImportLog) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return int64(len(f.logs)), nil
}

func (f *fakeStore) FindWorkoutByHash(_ context.Context, hash string, _ int) (*models.WorkoutRow, error) {
	if f.existing != nil && f.existing.SourceHash == hash {
		return f.existing, nil
	}
	return nil, storage.ErrNotFound
}

var legDay = lines("Leg Day", "Tuesday", "Squat", "Set 1: 60 kg × 8 reps", "Set 2: 60 kg × 8 reps")

// TestIngestStores verifies a parsed workout is stored with its sets, metrics
// and a success import log.
func TestIngestStores(t *testing.T) {
	store := &fakeStore{}
	p := NewProvider(store, newTestParser(), discard)

	result, w, err := p.Ingest(context.Background(), legDay, 7)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !result.Stored || result.Duplicate {
		t.Errorf("Stored = %v, Duplicate = %v", result.Stored, result.Duplicate)
	}
	if result.SetsInserted != 2 || result.SetsReceived != 2 || result.ExercisesReceived != 1 {
		t.Errorf("counts = %+v", result)
	}
	if result.TotalVolumeKg != 960 || result.EstDurationSec != 300 || result.TrainingLoad != 10 {
		t.Errorf("metrics = volume %v, duration %d, load %d", result.TotalVolumeKg, result.EstDurationSec, result.TrainingLoad)
	}
	if result.SourceHash != state.HashText(legDay) {
		t.Errorf("SourceHash = %q", result.SourceHash)
	}
	if w.Name != "Leg Day" {
		t.Errorf("workout name = %q", w.Name)
	}

	if len(store.workouts) != 1 {
		t.Fatalf("stored %d workouts, want 1", len(store.workouts))
	}
	row := store.workouts[0]
	if row.UserID != 7 || *result.WorkoutID != row.ID {
		t.Errorf("row = %+v, result id = %v", row, result.WorkoutID)
	}
	if row.Description != FormatWorkoutDescription(w) {
		t.Errorf("description = %q", row.Description)
	}
	if len(store.logs) != 1 || store.logs[0].Status != "success" || store.logs[0].Source != "strong" {
		t.Errorf("import logs = %+v", store.logs)
	}
}

// TestIngestDuplicate verifies an export already stored for the user is not
// stored again and reports the existing workout and activity.
func TestIngestDuplicate(t *testing.T) {
	id := uuid.New()
	activity := "i12345"
	store := &fakeStore{existing: &models.WorkoutRow{
		ID:         id,
		SourceHash: state.HashText(legDay),
		ActivityID: &activity,
	}}
	p := NewProvider(store, newTestParser(), discard)

	// Reformatted whitespace still counts as the same export.
	result, _, err := p.Ingest(context.Background(), "  "+legDay+"\n\n", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Duplicate || result.Stored {
		t.Errorf("Duplicate = %v, Stored = %v", result.Duplicate, result.Stored)
	}
	if *result.WorkoutID != id || result.ActivityID != activity {
		t.Errorf("result = %+v", result)
	}
	if len(store.workouts) != 0 {
		t.Errorf("duplicate was inserted")
	}
}

// TestIngestNotStrong verifies gate rejections are neither stored nor logged.
func TestIngestNotStrong(t *testing.T) {
	store := &fakeStore{}
	p := NewProvider(store, newTestParser(), discard)
	_, _, err := p.Ingest(context.Background(), "dear diary, lifted today", 1)
	if !errors.Is(err, ErrNotStrongWorkout) {
		t.Errorf("err = %v, want ErrNotStrongWorkout", err)
	}
	if len(store.logs) != 0 {
		t.Errorf("gate rejection should not be logged as an import")
	}
}

// TestIngestParseFailureLogged verifies a parse failure is recorded as an error
// import log.
func TestIngestParseFailureLogged(t *testing.T) {
	store := &fakeStore{}
	p := NewProvider(store, newTestParser(), discard)
	_, _, err := p.Ingest(context.Background(), lines("Day", "Tuesday", "Set 1: 20 kg × 10 reps"), 1)
	if !errors.Is(err, ErrNoExercises) {
		t.Fatalf("err = %v, want ErrNoExercises", err)
	}
	if len(store.logs) != 1 || store.logs[0].Status != "error" || store.logs[0].ErrorMessage == nil {
		t.Errorf("import logs = %+v", store.logs)
	}
}

// TestIngestStoreFailure verifies a storage failure returns an error and is
// logged as an error import.
func TestIngestStoreFailure(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("db down")}
	p := NewProvider(store, newTestParser(), discard)
	if _, _, err := p.Ingest(context.Background(), legDay, 1); err == nil {
		t.Fatal("expected error")
	}
	if len(store.logs) != 1 || store.logs[0].Status != "error" {
		t.Errorf("import logs = %+v", store.logs)
	}
}

// TestIngestWithoutStore verifies ingest parses without persisting when no
// store is configured.
func TestIngestWithoutStore(t *testing.T) {
	p := NewProvider(nil, newTestParser(), discard)
	if p.Stores() {
		t.Error("Stores() = true without a store")
	}
	result, w, err := p.Ingest(context.Background(), legDay, 1)
	if err != nil {
		t.Fatal(err)
	}
	if result.Stored || result.WorkoutID != nil || w == nil {
		t.Errorf("result = %+v", result)
	}
}
