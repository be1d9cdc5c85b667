package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/strongsync/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a workout does not exist for the user.
var ErrNotFound = errors.New("not found")

const workoutColumns = `id, user_id, name, started_at, description, exercise_count, total_sets,
	 total_volume_kg, est_duration_sec, training_load, source_hash, activity_id, created_at`

// InsertWorkout stores a workout and its sets in one transaction.
// Returns the number of set rows inserted.
func (db *DB) InsertWorkout(ctx context.Context, row models.WorkoutRow, sets []models.WorkoutSetRow) (int64, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO workouts (id, user_id, name, started_at, description, exercise_count, total_sets,
		 total_volume_kg, est_duration_sec, training_load, source_hash, activity_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		row.ID, row.UserID, row.Name, row.StartedAt, row.Description, row.ExerciseCount, row.TotalSets,
		row.TotalVolumeKg, row.EstDurationSec, row.TrainingLoad, row.SourceHash, row.ActivityID)
	if err != nil {
		return 0, fmt.Errorf("inserting workout: %w", err)
	}

	inserted, err := insertWorkoutSets(ctx, tx, sets)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing workout: %w", err)
	}
	return inserted, nil
}

// SetActivityID records the Intervals.icu activity created for a workout.
func (db *DB) SetActivityID(ctx context.Context, workoutID uuid.UUID, activityID string) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workouts SET activity_id = $2 WHERE id = $1`, workoutID, activityID)
	if err != nil {
		return fmt.Errorf("updating activity id for workout %s: %w", workoutID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workout %s: %w", workoutID, ErrNotFound)
	}
	return nil
}

// WorkoutDetail is a workout with its sets.
type WorkoutDetail struct {
	models.WorkoutRow
	Sets []models.WorkoutSetRow `json:"sets"`
}

// QueryWorkouts retrieves workouts in a time range, newest first.
func (db *DB) QueryWorkouts(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+workoutColumns+`
		 FROM workouts
		 WHERE started_at >= $1 AND started_at < $2 AND user_id = $3
		 ORDER BY started_at DESC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutRow
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// GetWorkout retrieves a single workout by ID with its sets.
func (db *DB) GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*WorkoutDetail, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+workoutColumns+`
		 FROM workouts
		 WHERE id = $1 AND user_id = $2`,
		workoutID, userID)

	w, err := scanWorkout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("workout %s: %w", workoutID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	sets, err := db.workoutSetsFor(ctx, workoutID, userID)
	if err != nil {
		return nil, err
	}
	return &WorkoutDetail{WorkoutRow: w, Sets: sets}, nil
}

// FindWorkoutByHash returns the most recent workout stored from the same export text.
func (db *DB) FindWorkoutByHash(ctx context.Context, hash string, userID int) (*models.WorkoutRow, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+workoutColumns+`
		 FROM workouts
		 WHERE source_hash = $1 AND user_id = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		hash, userID)
	w, err := scanWorkout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func scanWorkout(row pgx.Row) (models.WorkoutRow, error) {
	var w models.WorkoutRow
	err := row.Scan(&w.ID, &w.UserID, &w.Name, &w.StartedAt, &w.Description, &w.ExerciseCount,
		&w.TotalSets, &w.TotalVolumeKg, &w.EstDurationSec, &w.TrainingLoad, &w.SourceHash,
		&w.ActivityID, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return w, err
		}
		return w, fmt.Errorf("scanning workout: %w", err)
	}
	return w, nil
}
