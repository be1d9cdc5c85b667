package strong

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// LineKind is the classification of a single export line.
type LineKind int

const (
	Blank LineKind = iota
	Link
	SetWeightedReps
	SetBodyweightReps
	SetDuration
	ExerciseName
)

func (k LineKind) String() string {
	switch k {
	case Blank:
		return "blank"
	case Link:
		return "link"
	case SetWeightedReps:
		return "set_weighted_reps"
	case SetBodyweightReps:
		return "set_bodyweight_reps"
	case SetDuration:
		return "set_duration"
	case ExerciseName:
		return "exercise_name"
	}
	return fmt.Sprintf("LineKind(%d)", int(k))
}

// IsSet reports whether the kind carries set fields.
func (k LineKind) IsSet() bool {
	return k == SetWeightedReps || k == SetBodyweightReps || k == SetDuration
}

// SetFields holds what a set grammar extracted from a line.
// Index is 0 when the line carried no explicit set number.
type SetFields struct {
	Index          int
	WeightKg       *float64
	BodyweightPlus bool
	Reps           *int
	Duration       string
	Warmup         bool
}

// Line is a classified, trimmed input line.
type Line struct {
	Kind LineKind
	Text string
	Set  SetFields
}

var (
	// weightedRepsRe matches: "Série 1: +10 kg × 20 reps", "Set 1: 20 kg × 12 reps", "W: 40 kg × 10 reps".
	// The index must be followed by a colon or whitespace so "W: 40 kg" is never read as set 4 of 0 kg.
	weightedRepsRe = regexp.MustCompile(`(?i)(Série|Set|W:)\s*(?:(\d+)(?::\s*|\s+))?(\+)?(\d+(?:[.,]\d+)?)\s*kg\s*[×x]\s*(\d+)\s*reps?`)

	// bodyweightRepsRe matches: "Série 1: 15 reps"
	bodyweightRepsRe = regexp.MustCompile(`(?i)(?:Série|Set)\s*(\d+)(?::\s*|\s+)(\d+)\s*reps?`)

	// durationRe matches: "Série 1: 7:00"
	durationRe = regexp.MustCompile(`(?i)(?:Série|Set)\s*(\d+)(?::\s*|\s+)(\d[\d:]*)`)

	// schemeRe matches a leading URL scheme such as "https://".
	schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*://`)

	// Detection gate patterns.
	setMarkerRe  = regexp.MustCompile(`(?i)(?:Série|Set)\s*\d+:`)
	weightRepsRe = regexp.MustCompile(`(?i)\d+\s*kg\s*[×x]\s*\d+\s*reps?`)
)

const appLinkDomain = "strong.app"

// setRule is one set grammar. match reports whether the line matched; a
// non-nil error means the grammar matched but a numeric field could not be read.
type setRule struct {
	kind  LineKind
	match func(line string) (SetFields, bool, error)
}

// setRules is evaluated in order; the first match wins and lower rules are not tried.
var setRules = []setRule{
	{kind: SetWeightedReps, match: matchWeightedReps},
	{kind: SetBodyweightReps, match: matchBodyweightReps},
	{kind: SetDuration, match: matchDuration},
}

// IsStrongWorkout is a cheap check that text plausibly is a Strong export:
// a "Set N:" marker, a "N kg × N reps" pair, or a link to the app.
func IsStrongWorkout(text string) bool {
	text = norm.NFC.String(text)
	return setMarkerRe.MatchString(text) ||
		weightRepsRe.MatchString(text) ||
		strings.Contains(strings.ToLower(text), appLinkDomain)
}

// Classify decides what a single line encodes.
func Classify(raw string) (Line, error) {
	line := strings.TrimSpace(norm.NFC.String(raw))
	if line == "" {
		return Line{Kind: Blank}, nil
	}
	if schemeRe.MatchString(line) {
		return Line{Kind: Link, Text: line}, nil
	}
	for _, rule := range setRules {
		fields, ok, err := rule.match(line)
		if err != nil {
			return Line{}, fmt.Errorf("%s line %q: %w", rule.kind, line, err)
		}
		if ok {
			return Line{Kind: rule.kind, Text: line, Set: fields}, nil
		}
	}
	return Line{Kind: ExerciseName, Text: line}, nil
}

func matchWeightedReps(line string) (SetFields, bool, error) {
	m := weightedRepsRe.FindStringSubmatch(line)
	if m == nil {
		return SetFields{}, false, nil
	}
	var f SetFields
	var err error
	if m[2] != "" {
		if f.Index, err = strconv.Atoi(m[2]); err != nil {
			return SetFields{}, false, fmt.Errorf("set index: %w", err)
		}
	}
	weight, err := parseEuropeanFloat(m[4])
	if err != nil {
		return SetFields{}, false, fmt.Errorf("weight: %w", err)
	}
	reps, err := strconv.Atoi(m[5])
	if err != nil {
		return SetFields{}, false, fmt.Errorf("reps: %w", err)
	}
	f.WeightKg = &weight
	f.Reps = &reps
	f.BodyweightPlus = m[3] == "+"
	f.Warmup = strings.EqualFold(m[1], "W:")
	return f, true, nil
}

func matchBodyweightReps(line string) (SetFields, bool, error) {
	m := bodyweightRepsRe.FindStringSubmatch(line)
	if m == nil {
		return SetFields{}, false, nil
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return SetFields{}, false, fmt.Errorf("set index: %w", err)
	}
	reps, err := strconv.Atoi(m[2])
	if err != nil {
		return SetFields{}, false, fmt.Errorf("reps: %w", err)
	}
	return SetFields{Index: idx, Reps: &reps}, true, nil
}

func matchDuration(line string) (SetFields, bool, error) {
	m := durationRe.FindStringSubmatch(line)
	if m == nil {
		return SetFields{}, false, nil
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return SetFields{}, false, fmt.Errorf("set index: %w", err)
	}
	return SetFields{Index: idx, Duration: m[2]}, true, nil
}

// parseEuropeanFloat accepts both "62.5" and "62,5".
func parseEuropeanFloat(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	return strconv.ParseFloat(s, 64)
}
