package strong

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/claude/strongsync/internal/models"
	"github.com/dustin/go-humanize"
)

const setPartSeparator = " × "

// FormatWorkoutDescription renders a workout as the activity description:
// one block per exercise, then a summary. Volume is left out when zero.
func FormatWorkoutDescription(w *models.Workout) string {
	var sb strings.Builder

	for i, ex := range w.Exercises {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "**%s**\n", ex.Name)
		for _, s := range ex.Sets {
			fmt.Fprintf(&sb, "  Set %d: %s\n", s.SetNumber, describeSet(s))
		}
	}

	if len(w.Exercises) > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString("**Summary**\n")
	fmt.Fprintf(&sb, "Total exercises: %d\n", len(w.Exercises))
	fmt.Fprintf(&sb, "Total sets: %d", w.TotalSets())
	if vol := w.TotalVolume(); vol > 0 {
		fmt.Fprintf(&sb, "\nTotal volume: %s kg", humanize.Comma(int64(math.Round(vol))))
	}
	return sb.String()
}

func describeSet(s models.WorkoutSet) string {
	if s.Duration != "" {
		return s.Duration
	}
	var parts []string
	if s.IsWarmup {
		parts = append(parts, "Warmup")
	}
	if s.WeightKg != nil && *s.WeightKg != 0 {
		w := strconv.FormatFloat(*s.WeightKg, 'f', -1, 64)
		if s.IsBodyweightPlus {
			w = "+" + w
		}
		parts = append(parts, w+" kg")
	}
	if s.Reps != nil && *s.Reps != 0 {
		parts = append(parts, strconv.Itoa(*s.Reps)+" reps")
	}
	if len(parts) == 0 {
		return "Bodyweight"
	}
	return strings.Join(parts, setPartSeparator)
}
