package strong

import (
	"strings"
	"testing"

	"github.com/claude/strongsync/internal/models"
	"github.com/google/go-cmp/cmp"
)

// TestFormatWorkoutDescription verifies the exercise blocks and summary layout.
func TestFormatWorkoutDescription(t *testing.T) {
	w := &models.Workout{
		Name: "Leg Day",
		Exercises: []models.Exercise{{
			Name: "Squat",
			Sets: []models.WorkoutSet{
				{SetNumber: 1, WeightKg: ptr(60.0), Reps: ptr(8)},
				{SetNumber: 2, WeightKg: ptr(60.0), Reps: ptr(8)},
			},
		}},
	}
	want := "**Squat**\n" +
		"  Set 1: 60 kg × 8 reps\n" +
		"  Set 2: 60 kg × 8 reps\n" +
		"\n" +
		"**Summary**\n" +
		"Total exercises: 1\n" +
		"Total sets: 2\n" +
		"Total volume: 960 kg"
	if got := FormatWorkoutDescription(w); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

// TestDescribeSet verifies the rendering of each kind of set.
func TestDescribeSet(t *testing.T) {
	tests := []struct {
		name string
		set  models.WorkoutSet
		want string
	}{
		{"weighted", models.WorkoutSet{WeightKg: ptr(62.5), Reps: ptr(5)}, "62.5 kg × 5 reps"},
		{"bodyweight plus", models.WorkoutSet{WeightKg: ptr(10.0), Reps: ptr(8), IsBodyweightPlus: true}, "+10 kg × 8 reps"},
		{"warmup", models.WorkoutSet{WeightKg: ptr(40.0), Reps: ptr(10), IsWarmup: true}, "Warmup × 40 kg × 10 reps"},
		{"reps only", models.WorkoutSet{Reps: ptr(15)}, "15 reps"},
		{"duration", models.WorkoutSet{Duration: "7:00"}, "7:00"},
		{"nothing", models.WorkoutSet{}, "Bodyweight"},
		{"zero weight", models.WorkoutSet{WeightKg: ptr(0.0), Reps: ptr(0)}, "Bodyweight"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeSet(tt.set); got != tt.want {
				t.Errorf("describeSet = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestFormatOmitsZeroVolume verifies the volume line is left out when there
// is no volume.
func TestFormatOmitsZeroVolume(t *testing.T) {
	w := &models.Workout{Exercises: []models.Exercise{{
		Name: "Plank",
		Sets: []models.WorkoutSet{{SetNumber: 1, Duration: "1:00"}},
	}}}
	got := FormatWorkoutDescription(w)
	if strings.Contains(got, "Total volume") {
		t.Errorf("volume line present for zero volume:\n%s", got)
	}
	if !strings.HasSuffix(got, "Total sets: 1") {
		t.Errorf("unexpected ending:\n%s", got)
	}
}

// TestFormatGroupsThousands verifies volume is rounded and grouped ("1,234").
func TestFormatGroupsThousands(t *testing.T) {
	w := &models.Workout{Exercises: []models.Exercise{{
		Name: "Deadlift",
		Sets: []models.WorkoutSet{{SetNumber: 1, WeightKg: ptr(617.2), Reps: ptr(2)}},
	}}}
	if got := FormatWorkoutDescription(w); !strings.HasSuffix(got, "Total volume: 1,234 kg") {
		t.Errorf("unexpected volume line:\n%s", got)
	}
}

// TestFormatIsIdempotent verifies formatting the same workout twice gives the
// same text and leaves the workout unchanged.
func TestFormatIsIdempotent(t *testing.T) {
	w, err := newTestParser().Parse(lines(
		"Push",
		"Tuesday",
		"Bench",
		"W: 40 kg × 10 reps",
		"Set 1: 80 kg × 5 reps",
		"Dips",
		"Set 1: +10 kg × 8 reps",
		"Set 2: 12 reps",
		"Plank",
		"Set 1: 1:00",
	))
	if err != nil {
		t.Fatal(err)
	}
	before := *w
	before.Exercises = make([]models.Exercise, len(w.Exercises))
	for i, ex := range w.Exercises {
		before.Exercises[i] = models.Exercise{Name: ex.Name, Sets: append([]models.WorkoutSet(nil), ex.Sets...)}
	}

	first := FormatWorkoutDescription(w)
	second := FormatWorkoutDescription(w)
	if first != second {
		t.Errorf("second call differs:\n%s\n---\n%s", first, second)
	}
	if diff := cmp.Diff(&before, w); diff != "" {
		t.Errorf("workout changed by formatting (-before +after):\n%s", diff)
	}
}
