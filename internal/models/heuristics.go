package models

// Strong exports carry no timing or effort data, so both values below are
// fixed-formula estimates, not measurements.
const (
	SecondsPerSet      = 120
	SecondsPerExercise = 60

	// VolumePerLoadPoint converts kg of volume into one training-load point.
	VolumePerLoadPoint = 1000
	MinTrainingLoad    = 10
	// DefaultTrainingLoad is used for sessions with no measurable volume
	// (bodyweight or timed work only).
	DefaultTrainingLoad = 50
)

// EstimateDuration returns 2 minutes per set plus 1 minute per exercise transition.
func EstimateDuration(totalSets, exerciseCount int) int {
	return totalSets*SecondsPerSet + exerciseCount*SecondsPerExercise
}

// EstimateTrainingLoad maps total volume (kg) to a training-load score:
// volume/1000 floored at 10, or 50 when there is no volume at all.
func EstimateTrainingLoad(volumeKg float64) int {
	if volumeKg <= 0 {
		return DefaultTrainingLoad
	}
	return max(int(volumeKg/VolumePerLoadPoint), MinTrainingLoad)
}
