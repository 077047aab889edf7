// Package models holds the report domain types and the optional run history
// store.
package models

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used in queries, filenames and forms.
const DateLayout = "2006-01-02"

// ErrEmptyName is returned when a search is requested without a person name.
var ErrEmptyName = errors.New("models: person name is required")

// SearchWindow is the one-day window searched for a person.
type SearchWindow struct {
	PersonName string    `json:"person_name"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
}

// NewSearchWindow builds the window [day, day+1) for personName. The time of
// day is discarded.
func NewSearchWindow(personName string, day time.Time) (SearchWindow, error) {
	name := strings.Join(strings.Fields(personName), " ")
	if name == "" {
		return SearchWindow{}, ErrEmptyName
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return SearchWindow{
		PersonName: name,
		From:       from,
		To:         from.AddDate(0, 0, 1),
	}, nil
}

// ParseSearchWindow builds a window from form input. An empty date falls back
// to DefaultDate(now, daysAgo).
func ParseSearchWindow(personName, date string, now time.Time, daysAgo int) (SearchWindow, error) {
	day := DefaultDate(now, daysAgo)
	if d := strings.TrimSpace(date); d != "" {
		parsed, err := time.Parse(DateLayout, d)
		if err != nil {
			return SearchWindow{}, err
		}
		day = parsed
	}
	return NewSearchWindow(personName, day)
}

// DefaultDate returns the calendar day daysAgo days before now.
func DefaultDate(now time.Time, daysAgo int) time.Time {
	return now.AddDate(0, 0, -daysAgo)
}

// Day returns the From date formatted as YYYY-MM-DD.
func (w SearchWindow) Day() string {
	return w.From.Format(DateLayout)
}
