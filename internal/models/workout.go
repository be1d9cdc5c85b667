package models

import "time"

// Workout is a parsed Strong workout export.
type Workout struct {
	Name      string     `json:"name"`
	Date      time.Time  `json:"date"`
	Exercises []Exercise `json:"exercises"`
}

// Exercise is a named group of sets, in the order they appeared in the export.
type Exercise struct {
	Name string       `json:"name"`
	Sets []WorkoutSet `json:"sets"`
}

// WorkoutSet is a single performed set.
// WeightKg is nil for bodyweight and timed sets, Reps is nil for timed sets,
// Duration is the raw time token ("7:00") and empty when absent.
type WorkoutSet struct {
	SetNumber        int      `json:"set_number"`
	WeightKg         *float64 `json:"weight_kg,omitempty"`
	Reps             *int     `json:"reps,omitempty"`
	Duration         string   `json:"duration,omitempty"`
	IsWarmup         bool     `json:"is_warmup"`
	IsBodyweightPlus bool     `json:"is_bodyweight_plus,omitempty"`
}

// Volume returns weight × reps, or 0 when either is missing.
func (s WorkoutSet) Volume() float64 {
	if s.WeightKg == nil || s.Reps == nil {
		return 0
	}
	return *s.WeightKg * float64(*s.Reps)
}

// AddSet appends a set to the exercise.
func (e *Exercise) AddSet(s WorkoutSet) {
	e.Sets = append(e.Sets, s)
}

// TotalVolume sums weight × reps over all sets.
func (e Exercise) TotalVolume() float64 {
	var total float64
	for _, s := range e.Sets {
		total += s.Volume()
	}
	return total
}

// AddExercise appends an exercise to the workout.
func (w *Workout) AddExercise(e Exercise) {
	w.Exercises = append(w.Exercises, e)
}

// TotalVolume sums exercise volumes.
func (w Workout) TotalVolume() float64 {
	var total float64
	for _, e := range w.Exercises {
		total += e.TotalVolume()
	}
	return total
}

// TotalSets counts sets across all exercises.
func (w Workout) TotalSets() int {
	n := 0
	for _, e := range w.Exercises {
		n += len(e.Sets)
	}
	return n
}

// EstimateDuration returns the heuristic session length in seconds.
func (w Workout) EstimateDuration() int {
	return EstimateDuration(w.TotalSets(), len(w.Exercises))
}

// EstimateTrainingLoad returns the heuristic training load for the session.
func (w Workout) EstimateTrainingLoad() int {
	return EstimateTrainingLoad(w.TotalVolume())
}
