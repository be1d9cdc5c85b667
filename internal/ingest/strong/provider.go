package strong

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/strongsync/internal/ingest"
	"github.com/claude/strongsync/internal/models"
	"github.com/claude/strongsync/internal/state"
	"github.com/claude/strongsync/internal/storage"
)

// ErrNotStrongWorkout means the text failed the Strong export gate.
var ErrNotStrongWorkout = errors.New("text does not look like a Strong workout")

// Store persists parsed workouts. *storage.DB satisfies it.
type Store interface {
	InsertWorkout(ctx context.Context, row models.WorkoutRow, sets []models.WorkoutSetRow) (int64, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	FindWorkoutByHash(ctx context.Context, hash string, userID int) (*models.WorkoutRow, error)
}

// Provider gates, parses and stores Strong text exports.
type Provider struct {
	store  Store
	parser *Parser
	log    *slog.Logger
}

// NewProvider creates a Strong ingest provider. A nil store disables persistence.
func NewProvider(store Store, parser *Parser, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}
	if parser == nil {
		parser = NewParser(log, nil)
	}
	return &Provider{store: store, parser: parser, log: log}
}

// Stores reports whether ingested workouts are persisted.
func (p *Provider) Stores() bool { return p.store != nil }

// Ingest parses a Strong export and, when a store is configured, saves the
// workout and its sets for userID.
func (p *Provider) Ingest(ctx context.Context, text string, userID int) (*ingest.Result, *models.Workout, error) {
	if !IsStrongWorkout(text) {
		return nil, nil, ErrNotStrongWorkout
	}

	start := time.Now()
	w, err := p.parser.Parse(text)
	if err != nil {
		p.logImport(userID, nil, err, start)
		return nil, nil, fmt.Errorf("parsing workout: %w", err)
	}

	result := &ingest.Result{
		WorkoutName:       w.Name,
		ExercisesReceived: len(w.Exercises),
		SetsReceived:      w.TotalSets(),
		TotalVolumeKg:     w.TotalVolume(),
		EstDurationSec:    w.EstimateDuration(),
		TrainingLoad:      w.EstimateTrainingLoad(),
		SourceHash:        state.HashText(text),
	}

	if p.store == nil {
		result.Message = "parsed; storage disabled"
		return result, w, nil
	}

	existing, err := p.store.FindWorkoutByHash(ctx, result.SourceHash, userID)
	switch {
	case err == nil:
		result.WorkoutID = &existing.ID
		result.Duplicate = true
		if existing.ActivityID != nil {
			result.ActivityID = *existing.ActivityID
		}
		result.Message = "workout already stored"
		p.log.Info("strong workout already stored", "workout_id", existing.ID, "user_id", userID)
		return result, w, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, nil, fmt.Errorf("checking for duplicate workout: %w", err)
	}

	row, sets := models.NewWorkoutRows(w, userID, FormatWorkoutDescription(w), result.SourceHash)
	inserted, err := p.store.InsertWorkout(ctx, row, sets)
	if err != nil {
		p.logImport(userID, result, err, start)
		return nil, nil, fmt.Errorf("storing workout: %w", err)
	}
	result.WorkoutID = &row.ID
	result.SetsInserted = inserted
	result.Stored = true

	p.log.Info("strong workout stored",
		"workout_id", row.ID,
		"user_id", userID,
		"sets", inserted,
	)
	p.logImport(userID, result, nil, start)
	return result, w, nil
}

// logImport records the outcome in import_logs. Failures are only logged.
func (p *Provider) logImport(userID int, result *ingest.Result, importErr error, start time.Time) {
	if p.store == nil {
		return
	}
	entry := storage.ImportLog{
		UserID: userID,
		Source: "strong",
		Status: "success",
	}
	if importErr != nil {
		entry.Status = "error"
		msg := importErr.Error()
		entry.ErrorMessage = &msg
	}
	if result != nil {
		entry.ExercisesReceived = result.ExercisesReceived
		entry.SetsReceived = result.SetsReceived
		entry.SetsInserted = result.SetsInserted
		entry.WorkoutID = result.WorkoutID
	}
	ms := int(time.Since(start).Milliseconds())
	entry.DurationMs = &ms

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
	defer cancel()
	if _, err := p.store.InsertImportLog(ctx, entry); err != nil {
		p.log.Error("failed to log import", "source", entry.Source, "error", err)
	}
}
