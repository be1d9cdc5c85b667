package strong

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claude/strongsync/internal/models"
)

// DefaultWorkoutName is used when the export has no title line.
const DefaultWorkoutName = "Workout"

// ErrNoExercises means the text held no exercise with at least one set.
var ErrNoExercises = errors.New("no exercises found")

// ParseError wraps an internal fault hit while walking the lines.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parsing workout at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parsing workout: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parser turns Strong text exports into workouts. It holds no per-call
// state and is safe for concurrent use.
type Parser struct {
	dates *DateResolver
	now   func() time.Time
	log   *slog.Logger
}

// NewParser creates a parser. A nil clock means time.Now.
func NewParser(log *slog.Logger, now func() time.Time) *Parser {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Parser{dates: NewDateResolver(now), now: now, log: log}
}

// ParseWorkout parses text with the default logger and the wall clock.
func ParseWorkout(text string) (*models.Workout, error) {
	return NewParser(nil, nil).Parse(text)
}

// Parse reads a Strong export: title line, date line, then exercise names
// each followed by their set lines. It never panics; internal faults come
// back as *ParseError.
func (p *Parser) Parse(text string) (w *models.Workout, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("unexpected fault parsing workout", "panic", r)
			w, err = nil, &ParseError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	lines := strings.Split(strings.TrimSpace(text), "\n")
	b := newBuilder(p)
	for i, line := range lines {
		if err := b.consume(line); err != nil {
			p.log.Error("error parsing workout", "line", i+1, "error", err)
			return nil, &ParseError{Line: i + 1, Err: err}
		}
	}
	workout := b.finish()

	if len(workout.Exercises) == 0 {
		p.log.Warn("no exercises found in workout text", "name", workout.Name)
		return nil, ErrNoExercises
	}
	p.log.Info("parsed workout",
		"name", workout.Name,
		"date", workout.Date.Format("2006-01-02 15:04"),
		"exercises", len(workout.Exercises),
		"sets", workout.TotalSets(),
	)
	return workout, nil
}

// builderState is where the builder is in the export layout.
type builderState int

const (
	awaitingName builderState = iota
	awaitingDate
	accumulating
	done
)

// builder accumulates one workout. Each line moves it through
// awaitingName → awaitingDate → accumulating; finish moves it to done.
type builder struct {
	p       *Parser
	state   builderState
	workout *models.Workout
	current *models.Exercise
}

func newBuilder(p *Parser) *builder {
	return &builder{p: p, state: awaitingName}
}

func (b *builder) consume(raw string) error {
	switch b.state {
	case awaitingName:
		name := strings.TrimSpace(raw)
		if name == "" {
			name = DefaultWorkoutName
		}
		b.workout = &models.Workout{Name: name, Date: b.p.now()}
		b.state = awaitingDate
		return nil

	case awaitingDate:
		b.resolveDate(raw)
		b.state = accumulating
		return nil

	case accumulating:
		line, err := Classify(raw)
		if err != nil {
			return err
		}
		b.accumulate(line)
		return nil
	}
	return fmt.Errorf("line after workout finished: %q", raw)
}

func (b *builder) resolveDate(raw string) {
	line := strings.TrimSpace(raw)
	t, strategy, err := b.p.dates.resolve(line)
	if err != nil {
		b.p.log.Warn("could not parse workout date, using current time", "line", line, "error", err)
		return
	}
	b.p.log.Debug("parsed workout date", "line", line, "strategy", strategy, "date", t.Format("2006-01-02 15:04"))
	b.workout.Date = t
}

func (b *builder) accumulate(line Line) {
	switch {
	case line.Kind == Blank, line.Kind == Link:
		return

	case line.Kind == ExerciseName:
		b.flush()
		b.current = &models.Exercise{Name: line.Text}

	case line.Kind.IsSet():
		if b.current == nil {
			b.p.log.Debug("dropping set without exercise", "line", line.Text)
			return
		}
		b.current.AddSet(newSet(line.Set, len(b.current.Sets)+1))
	}
}

// flush commits the current exercise if it has any sets.
func (b *builder) flush() {
	if b.current != nil && len(b.current.Sets) > 0 {
		b.workout.AddExercise(*b.current)
	}
	b.current = nil
}

func (b *builder) finish() *models.Workout {
	if b.workout == nil {
		b.workout = &models.Workout{Name: DefaultWorkoutName, Date: b.p.now()}
	}
	b.flush()
	b.state = done
	return b.workout
}

func newSet(f SetFields, next int) models.WorkoutSet {
	n := f.Index
	if n <= 0 {
		n = next
	}
	return models.WorkoutSet{
		SetNumber:        n,
		WeightKg:         f.WeightKg,
		Reps:             f.Reps,
		Duration:         f.Duration,
		IsWarmup:         f.Warmup,
		IsBodyweightPlus: f.BodyweightPlus,
	}
}
