package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkoutRow is a row for the workouts table.
type WorkoutRow struct {
	ID             uuid.UUID `json:"id"`
	UserID         int       `json:"user_id"`
	Name           string    `json:"name"`
	StartedAt      time.Time `json:"started_at"`
	Description    string    `json:"description"`
	ExerciseCount  int       `json:"exercise_count"`
	TotalSets      int       `json:"total_sets"`
	TotalVolumeKg  float64   `json:"total_volume_kg"`
	EstDurationSec int       `json:"est_duration_sec"`
	TrainingLoad   int       `json:"training_load"`
	SourceHash     string    `json:"source_hash"`
	ActivityID     *string   `json:"activity_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// WorkoutSetRow is a row for the workout_sets table.
type WorkoutSetRow struct {
	WorkoutID        uuid.UUID `json:"workout_id"`
	UserID           int       `json:"user_id"`
	SessionName      string    `json:"session_name"`
	SessionDate      time.Time `json:"session_date"`
	ExerciseNumber   int       `json:"exercise_number"`
	ExerciseName     string    `json:"exercise_name"`
	SetNumber        int       `json:"set_number"`
	IsWarmup         bool      `json:"is_warmup"`
	WeightKg         *float64  `json:"weight_kg,omitempty"`
	IsBodyweightPlus bool      `json:"is_bodyweight_plus"`
	Reps             *int      `json:"reps,omitempty"`
	Duration         string    `json:"duration,omitempty"`
}

// NewWorkoutRows flattens a parsed workout into table rows under a fresh ID.
func NewWorkoutRows(w *Workout, userID int, description, sourceHash string) (WorkoutRow, []WorkoutSetRow) {
	id := uuid.New()
	row := WorkoutRow{
		ID:             id,
		UserID:         userID,
		Name:           w.Name,
		StartedAt:      w.Date,
		Description:    description,
		ExerciseCount:  len(w.Exercises),
		TotalSets:      w.TotalSets(),
		TotalVolumeKg:  w.TotalVolume(),
		EstDurationSec: w.EstimateDuration(),
		TrainingLoad:   w.EstimateTrainingLoad(),
		SourceHash:     sourceHash,
	}

	sets := make([]WorkoutSetRow, 0, row.TotalSets)
	for i, ex := range w.Exercises {
		for _, s := range ex.Sets {
			sets = append(sets, WorkoutSetRow{
				WorkoutID:        id,
				UserID:           userID,
				SessionName:      w.Name,
				SessionDate:      w.Date,
				ExerciseNumber:   i + 1,
				ExerciseName:     ex.Name,
				SetNumber:        s.SetNumber,
				IsWarmup:         s.IsWarmup,
				WeightKg:         s.WeightKg,
				IsBodyweightPlus: s.IsBodyweightPlus,
				Reps:             s.Reps,
				Duration:         s.Duration,
			})
		}
	}
	return row, sets
}
