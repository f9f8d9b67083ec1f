// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package habit holds the calendar rules of the yearly study grid.
package habit

import (
	"errors"
	"time"
)

var (
	ErrFutureDay    = errors.New("cannot mark a future day")
	ErrPastDay      = errors.New("only today can be studied")
	ErrDayPermanent = errors.New("a past studied day cannot be removed")
	ErrDayOutOfYear = errors.New("day index outside the year")
)

// DayOfYear returns the 1-based day index of t in its own location.
func DayOfYear(t time.Time) int {
	return t.YearDay()
}

// DaysIn returns the number of days in year.
func DaysIn(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}

// ValidDay checks that day lies in year.
func ValidDay(year, day int) error {
	if day < 1 || day > DaysIn(year) {
		return ErrDayOutOfYear
	}
	return nil
}

// Toggle decides what clicking day means on a grid whose current day is today.
// It returns the studied flag the day should end up with.
func Toggle(day, today int, studied bool) (bool, error) {
	switch {
	case day > today:
		return studied, ErrFutureDay
	case day < today && studied:
		return studied, ErrDayPermanent
	case day < today:
		return studied, ErrPastDay
	default:
		return !studied, nil
	}
}
