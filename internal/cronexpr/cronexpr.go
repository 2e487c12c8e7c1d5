// Package cronexpr parses five-field cron expressions (minute hour
// day-of-month month day-of-week) and computes the next firing instant
// after a given time, entirely in UTC.
package cronexpr

import (
	"strconv"
	"strings"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/domain"
)

const (
	fieldMinute = iota
	fieldHour
	fieldDOM
	fieldMonth
	fieldDOW
	fieldCount
)

var fieldBounds = [fieldCount][2]int{
	fieldMinute: {0, 59},
	fieldHour:   {0, 23},
	fieldDOM:    {1, 31},
	fieldMonth:  {1, 12},
	fieldDOW:    {0, 7}, // 0 and 7 both mean Sunday
}

// field holds the set of accepted values for one cron field, plus whether
// the raw text was the unrestricted "*" — needed for the day-of-month /
// day-of-week OR rule.
type field struct {
	set  []bool
	min  int
	star bool
}

func (f *field) has(v int) bool {
	if v < f.min || v-f.min >= len(f.set) {
		return false
	}
	return f.set[v-f.min]
}

// Expr is a parsed five-field cron expression.
type Expr struct {
	raw    string
	fields [fieldCount]field
}

// Parse parses a five-field cron expression. Extra whitespace between
// fields collapses; a leading/trailing space is ignored.
func Parse(expr string) (*Expr, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, &domain.InvalidCronError{Field: 0, Expr: expr, Msg: "expected 5 fields, got " + strconv.Itoa(len(parts))}
	}

	e := &Expr{raw: expr}
	for i := 0; i < fieldCount; i++ {
		lo, hi := fieldBounds[i][0], fieldBounds[i][1]
		f, err := parseField(parts[i], lo, hi)
		if err != nil {
			return nil, &domain.InvalidCronError{Field: i, Expr: expr, Msg: err.Error()}
		}
		if i == fieldDOW && f.set[7] {
			// Fold 7 into 0 — both mean Sunday.
			f.set[0] = true
		}
		e.fields[i] = f
	}
	return e, nil
}

func parseField(raw string, lo, hi int) (field, error) {
	f := field{min: lo, set: make([]bool, hi-lo+1)}
	if raw == "*" {
		f.star = true
		for i := range f.set {
			f.set[i] = true
		}
		return f, nil
	}

	for _, term := range strings.Split(raw, ",") {
		if err := applyTerm(&f, term, lo, hi); err != nil {
			return field{}, err
		}
	}
	return f, nil
}

func applyTerm(f *field, term string, lo, hi int) error {
	rangePart, step, err := splitStep(term)
	if err != nil {
		return err
	}

	var start, end int
	switch {
	case rangePart == "*":
		start, end = lo, hi
	case strings.Contains(rangePart, "-"):
		bounds := strings.SplitN(rangePart, "-", 2)
		start, err = strconv.Atoi(bounds[0])
		if err != nil {
			return errBadValue(bounds[0])
		}
		end, err = strconv.Atoi(bounds[1])
		if err != nil {
			return errBadValue(bounds[1])
		}
		if start > end {
			return errRange(start, end)
		}
	default:
		start, err = strconv.Atoi(rangePart)
		if err != nil {
			return errBadValue(rangePart)
		}
		end = start
	}

	if start < lo || start > hi || end < lo || end > hi {
		return errOutOfRange(start, end, lo, hi)
	}

	for v := start; v <= end; v += step {
		f.set[v-f.min] = true
	}
	return nil
}

// splitStep separates "a-b/n" or "*/n" into the range part and the step
// (default 1 when absent).
func splitStep(term string) (string, int, error) {
	idx := strings.IndexByte(term, '/')
	if idx < 0 {
		return term, 1, nil
	}
	rangePart := term[:idx]
	stepStr := term[idx+1:]
	step, err := strconv.Atoi(stepStr)
	if err != nil || step <= 0 {
		return "", 0, errBadStep(stepStr)
	}
	return rangePart, step, nil
}

// Next returns the smallest instant strictly greater than after, truncated
// to the minute, that matches the expression — always in UTC. ok is false
// when no such instant exists within the search horizon, meaning "never,
// until the expression or clock changes" per spec.
func (e *Expr) Next(after time.Time) (next time.Time, ok bool) {
	t := after.UTC().Truncate(time.Minute).Add(time.Minute)
	horizon := after.UTC().AddDate(5, 0, 0)

	domUnrestricted := e.fields[fieldDOM].star
	dowUnrestricted := e.fields[fieldDOW].star

	for !t.After(horizon) {
		if !e.fields[fieldMonth].has(int(t.Month())) {
			t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
			continue
		}
		if !dayMatches(e, t, domUnrestricted, dowUnrestricted) {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
			continue
		}
		if !e.fields[fieldHour].has(t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC).Add(time.Hour)
			continue
		}
		if !e.fields[fieldMinute].has(t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// dayMatches applies the "OR" rule: when both day-of-month and
// day-of-week are restricted, the day matches if either matches; when one
// is unrestricted ("*"), only the other constrains.
func dayMatches(e *Expr, t time.Time, domUnrestricted, dowUnrestricted bool) bool {
	domMatch := e.fields[fieldDOM].has(t.Day())
	dowMatch := e.fields[fieldDOW].has(int(t.Weekday()))

	switch {
	case domUnrestricted && dowUnrestricted:
		return true
	case domUnrestricted:
		return dowMatch
	case dowUnrestricted:
		return domMatch
	default:
		return domMatch || dowMatch
	}
}

func errBadValue(s string) error    { return cronErr("not a number: " + s) }
func errBadStep(s string) error     { return cronErr("invalid step: " + s) }
func errRange(a, b int) error       { return cronErr("range start exceeds end: " + strconv.Itoa(a) + "-" + strconv.Itoa(b)) }
func errOutOfRange(a, b, lo, hi int) error {
	return cronErr("value out of range [" + strconv.Itoa(lo) + "," + strconv.Itoa(hi) + "]: " +
		strconv.Itoa(a) + "-" + strconv.Itoa(b))
}

type cronErr string

func (e cronErr) Error() string { return string(e) }
