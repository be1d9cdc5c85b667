package ingest

import "github.com/google/uuid"

// Result holds the outcome of an ingest operation.
type Result struct {
	WorkoutName       string     `json:"workout_name"`
	ExercisesReceived int        `json:"exercises_received"`
	SetsReceived      int        `json:"sets_received"`
	TotalVolumeKg     float64    `json:"total_volume_kg"`
	EstDurationSec    int        `json:"est_duration_sec"`
	TrainingLoad      int        `json:"training_load"`
	SourceHash        string     `json:"source_hash"`
	WorkoutID         *uuid.UUID `json:"workout_id,omitempty"`
	SetsInserted      int64      `json:"sets_inserted"`
	Stored            bool       `json:"stored"`
	Duplicate         bool       `json:"duplicate,omitempty"`
	ActivityID        string     `json:"activity_id,omitempty"`

	Message string `json:"message,omitempty"`
}
