package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/strongsync/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const setColumns = 12

// insertWorkoutSets batch-inserts set rows inside tx. Returns count inserted.
func insertWorkoutSets(ctx context.Context, tx pgx.Tx, rows []models.WorkoutSetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO workout_sets (workout_id, user_id, session_name, session_date,
		exercise_number, exercise_name, set_number, is_warmup, weight_kg, is_bodyweight_plus,
		reps, duration) VALUES `
	args := make([]any, 0, len(rows)*setColumns)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * setColumns
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
			base+7, base+8, base+9, base+10, base+11, base+12,
		))
		args = append(args, r.WorkoutID, r.UserID, r.SessionName, r.SessionDate,
			r.ExerciseNumber, r.ExerciseName, r.SetNumber, r.IsWarmup, r.WeightKg,
			r.IsBodyweightPlus, r.Reps, r.Duration)
	}

	query += strings.Join(valueStrings, ",")

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting workout sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

const selectSets = `SELECT workout_id, user_id, session_name, session_date,
	 exercise_number, exercise_name, set_number, is_warmup, weight_kg, is_bodyweight_plus,
	 reps, duration
	 FROM workout_sets`

// QueryWorkoutSets retrieves sets in a date range, optionally filtered by
// exercise name (case-insensitive substring).
func (db *DB) QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.WorkoutSetRow, error) {
	query := selectSets + `
		 WHERE session_date >= $1 AND session_date < $2 AND user_id = $3`
	args := []any{start, end, userID}
	if exerciseFilter != "" {
		query += ` AND exercise_name ILIKE $4`
		args = append(args, "%"+exerciseFilter+"%")
	}
	query += ` ORDER BY session_date DESC, exercise_number ASC, is_warmup DESC, set_number ASC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer rows.Close()
	return scanSetRows(rows)
}

func (db *DB) workoutSetsFor(ctx context.Context, workoutID uuid.UUID, userID int) ([]models.WorkoutSetRow, error) {
	rows, err := db.Pool.Query(ctx, selectSets+`
		 WHERE workout_id = $1 AND user_id = $2
		 ORDER BY exercise_number ASC, set_number ASC`,
		workoutID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sets for workout %s: %w", workoutID, err)
	}
	defer rows.Close()
	return scanSetRows(rows)
}

func scanSetRows(rows pgx.Rows) ([]models.WorkoutSetRow, error) {
	var result []models.WorkoutSetRow
	for rows.Next() {
		var r models.WorkoutSetRow
		if err := rows.Scan(&r.WorkoutID, &r.UserID, &r.SessionName, &r.SessionDate,
			&r.ExerciseNumber, &r.ExerciseName, &r.SetNumber, &r.IsWarmup, &r.WeightKg,
			&r.IsBodyweightPlus, &r.Reps, &r.Duration); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
