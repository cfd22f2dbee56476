package district

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lox/headcount/internal/models"
)

var (
	// ErrUnknownData is returned when an argument falls outside its closed
	// domain. It is a caller bug, not a data condition.
	ErrUnknownData = errors.New("unknown data")
	ErrUnknownRace = fmt.Errorf("%w: race", ErrUnknownData)

	// ErrMissingData is returned when a valid key has no value in the record.
	ErrMissingData = errors.New("missing data")
)

func ValidateRace(race models.Category) error {
	if !race.IsRace() {
		return fmt.Errorf("%w: %q is not one of %v", ErrUnknownRace, race, models.Races)
	}
	return nil
}

func ValidateSubject(subject models.Subject) error {
	if !subject.Valid() {
		return fmt.Errorf("%w: subject %q is not one of %v", ErrUnknownData, subject, models.Subjects)
	}
	return nil
}

func ValidateGrade(grade int) error {
	if !models.ValidGrade(grade) {
		return fmt.Errorf("%w: grade %d is not one of %v", ErrUnknownData, grade, models.Grades)
	}
	return nil
}

func validateYear(year int, years []int) error {
	if !slices.Contains(years, year) {
		return fmt.Errorf("%w: year %d is not one of %v", ErrUnknownData, year, years)
	}
	return nil
}

func inYear[V any](metric string, byYear map[int]V, year int) (V, error) {
	v, ok := byYear[year]
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %s in %d", ErrMissingData, metric, year)
	}
	return v, nil
}
