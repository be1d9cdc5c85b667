package strong

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
	dps "github.com/markusmobius/go-dateparser"
	"golang.org/x/text/unicode/norm"
)

// ErrDateResolution means no strategy could read a date from the line.
// Callers substitute the current instant; it never aborts a parse.
var ErrDateResolution = errors.New("date resolution failed")

var (
	// weekdayRe matches a decorative weekday name: "terça-feira, ", "sábado ", "Tuesday, ".
	// Go's \b is ASCII-only, so word edges are spelled out for names like "terça".
	weekdayRe = regexp.MustCompile(`(?i)(?:^|\s)(?:(?:segunda|terça|quarta|quinta|sexta)(?:-feira)?|sábado|domingo|monday|tuesday|wednesday|thursday|friday|saturday|sunday)(?:,\s*|\s+|$)`)

	// connectorRe matches the date/time joiners Strong puts between the two: "... at 17:35", "... às 17:35".
	connectorRe = regexp.MustCompile(`(?i)\s+(?:at|às)\s+`)
)

// dateLanguages is the order vocabularies are tried in.
var dateLanguages = []string{"pt", "en"}

// dateStrategy turns cleaned date text into an absolute time relative to now.
type dateStrategy struct {
	name    string
	resolve func(text string, now time.Time) (time.Time, bool)
}

// dateStrategies is the fallback chain, tried in order.
var dateStrategies = []dateStrategy{
	{name: "locale", resolve: localeDate},
	{name: "fuzzy", resolve: fuzzyDate},
}

// DateResolver converts a free-text date line into a timestamp.
type DateResolver struct {
	now func() time.Time
}

// NewDateResolver creates a resolver. A nil clock means time.Now.
func NewDateResolver(now func() time.Time) *DateResolver {
	if now == nil {
		now = time.Now
	}
	return &DateResolver{now: now}
}

// Resolve reads the date in line. Relative expressions ("Tuesday") resolve
// against the resolver's clock, preferring the most recent past match.
func (r *DateResolver) Resolve(line string) (time.Time, error) {
	t, _, err := r.resolve(line)
	return t, err
}

// resolve also reports which strategy succeeded.
func (r *DateResolver) resolve(line string) (time.Time, string, error) {
	cleaned := cleanDateLine(line)
	if cleaned == "" {
		return time.Time{}, "", fmt.Errorf("%w: empty line", ErrDateResolution)
	}
	now := r.now()
	for _, s := range dateStrategies {
		if t, ok := runStrategy(s, cleaned, now); ok {
			return t, s.name, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("%w: %q", ErrDateResolution, line)
}

// runStrategy treats a panicking strategy as a miss.
func runStrategy(s dateStrategy, text string, now time.Time) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	return s.resolve(text, now)
}

// cleanDateLine drops the weekday name and time connectors. A line that is
// only a weekday keeps it, since the weekday is then the whole date.
func cleanDateLine(line string) string {
	line = strings.TrimSpace(norm.NFC.String(line))
	cleaned := strings.Join(strings.Fields(weekdayRe.ReplaceAllString(line, " ")), " ")
	if cleaned == "" {
		cleaned = strings.TrimRight(line, ", ")
	}
	return connectorRe.ReplaceAllString(cleaned, " ")
}

func localeDate(text string, now time.Time) (time.Time, bool) {
	// Numeric dates are day-first as in the pt locale: 12/03 is 12 March.
	cfg := &dps.Configuration{
		Languages:           dateLanguages,
		CurrentTime:         now,
		PreferredDateSource: dps.Past,
		DateOrder:           dps.DMY,
	}
	dt, err := dps.Parse(cfg, text)
	if err != nil || dt.Time.IsZero() {
		return time.Time{}, false
	}
	return dt.Time, true
}

// fuzzyDate scans every contiguous run of tokens, longest first, and returns
// the first one dateparse accepts. Year-less results land in the past year.
func fuzzyDate(text string, now time.Time) (time.Time, bool) {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	for size := len(tokens); size > 0; size-- {
		for start := 0; start+size <= len(tokens); start++ {
			window := strings.Join(tokens[start:start+size], " ")
			if !plausibleDateToken(window) {
				continue
			}
			t, err := dateparse.ParseIn(window, now.Location())
			if err != nil {
				continue
			}
			return anchorYear(t, now), true
		}
	}
	return time.Time{}, false
}

// plausibleDateToken rejects windows dateparse would read as bare numbers
// (a set count, a lone day) rather than dates. "20240312" is kept.
func plausibleDateToken(s string) bool {
	hasDigit, allDigits := false, true
	for _, r := range s {
		if unicode.IsDigit(r) {
			hasDigit = true
		} else {
			allDigits = false
		}
	}
	if !hasDigit {
		return false
	}
	return !allDigits || len(s) == 8
}

func anchorYear(t, now time.Time) time.Time {
	if t.Year() != 0 {
		return t
	}
	t = t.AddDate(now.Year(), 0, 0)
	if t.After(now) {
		t = t.AddDate(-1, 0, 0)
	}
	return t
}
