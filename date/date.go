// seehuhn.de/go/handouts - add headers and footers to PDF handouts
// Copyright (C) 2025  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package date resolves the date expressions used on handouts.
//
// An expression is one of
//
//   - the empty string, meaning "no date",
//   - "today",
//   - an explicit date like "2024-11-20" or "11/20/2024",
//   - a weekday name like "Tuesday" or "tue", optionally followed by "+N".
//
// A weekday refers to its next occurrence, where today counts if it falls
// on the given weekday.  The suffix "+N" moves the date N weeks further.
package date

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidExpression is returned by [Parse] for malformed expressions.
var ErrInvalidExpression = errors.New("invalid date expression")

// Kind describes the type of a date expression.
type Kind int

// These are the supported kinds of date expressions.
const (
	None Kind = iota
	Today
	Explicit
	NextWeekday
)

// Expression is a parsed date expression.
type Expression struct {
	Kind Kind

	// Date is the date for expressions of kind Explicit.
	Date time.Time

	// Weekday and Weeks describe expressions of kind NextWeekday.
	Weekday time.Weekday
	Weeks   int
}

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
}

// Parse parses a date expression.  Leading and trailing white space is
// ignored, as is the case of letters.
func Parse(expr string) (*Expression, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return &Expression{Kind: None}, nil
	}
	if strings.EqualFold(s, "today") {
		return &Expression{Kind: Today}, nil
	}

	for _, layout := range []string{"2006-1-2", "1/2/2006"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return &Expression{Kind: Explicit, Date: t}, nil
		}
	}

	name, offset, hasOffset := strings.Cut(s, "+")
	day, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrInvalidExpression, expr)
	}
	weeks := 0
	if hasOffset {
		n, err := strconv.Atoi(strings.TrimSpace(offset))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w %q: bad week offset", ErrInvalidExpression, expr)
		}
		weeks = n
	}
	return &Expression{Kind: NextWeekday, Weekday: day, Weeks: weeks}, nil
}

// Resolve returns the date described by the expression, relative to the
// day containing now.  For expressions of kind None, ok is false.
func (e *Expression) Resolve(now time.Time) (day time.Time, ok bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch e.Kind {
	case Today:
		return today, true
	case Explicit:
		return e.Date, true
	case NextWeekday:
		delta := (int(e.Weekday) - int(today.Weekday()) + 7) % 7
		return today.AddDate(0, 0, delta+7*e.Weeks), true
	default:
		return time.Time{}, false
	}
}

// Format formats a date in the form used on handouts, for example
// "November 20, 2024".
func Format(day time.Time) string {
	return day.Format("January 2, 2006")
}

// Expand parses and resolves a date expression and returns the formatted
// date.  Expressions which describe no date give the empty string.
func Expand(expr string, now time.Time) (string, error) {
	e, err := Parse(expr)
	if err != nil {
		return "", err
	}
	day, ok := e.Resolve(now)
	if !ok {
		return "", nil
	}
	return Format(day), nil
}
