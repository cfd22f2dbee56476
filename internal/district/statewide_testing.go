package district

import (
	"fmt"
	"slices"

	"github.com/lox/headcount/internal/models"
)

// StatewideTesting answers proficiency queries. Year arguments are validated
// against the years present in the list being queried, not a fixed range.
type StatewideTesting struct {
	rec models.TestingRecord
}

func (t *StatewideTesting) ProficientForSubjectByGradeInYear(subject models.Subject, grade, year int) (float64, error) {
	if err := ValidateGrade(grade); err != nil {
		return 0, err
	}
	if err := ValidateSubject(subject); err != nil {
		return 0, err
	}
	if err := validateYear(year, gradeYears(t.rec.ByGrade)); err != nil {
		return 0, err
	}
	for _, p := range t.rec.ByGrade {
		if p.Subject == subject && p.Grade == grade && p.Year == year {
			return p.Proficiency, nil
		}
	}
	return 0, fmt.Errorf("%w: grade %d %s proficiency in %d", ErrMissingData, grade, subject, year)
}

func (t *StatewideTesting) ProficientForSubjectByRaceInYear(subject models.Subject, race models.Category, year int) (float64, error) {
	if err := ValidateSubject(subject); err != nil {
		return 0, err
	}
	if err := ValidateRace(race); err != nil {
		return 0, err
	}
	return t.raceProficiency(subject, race, year)
}

// ProficientForSubjectInYear is the all-students proficiency from the
// race-partitioned list.
func (t *StatewideTesting) ProficientForSubjectInYear(subject models.Subject, year int) (float64, error) {
	if err := ValidateSubject(subject); err != nil {
		return 0, err
	}
	return t.raceProficiency(subject, models.All, year)
}

func (t *StatewideTesting) raceProficiency(subject models.Subject, race models.Category, year int) (float64, error) {
	if err := validateYear(year, raceYears(t.rec.ByRace)); err != nil {
		return 0, err
	}
	for _, p := range t.rec.ByRace {
		if p.Subject == subject && p.Race == race && p.Year == year {
			return p.Proficiency, nil
		}
	}
	return 0, fmt.Errorf("%w: %s %s proficiency in %d", ErrMissingData, race, subject, year)
}

// ProficientByGrade returns year -> subject -> proficiency for grade.
func (t *StatewideTesting) ProficientByGrade(grade int) (map[int]map[models.Subject]float64, error) {
	if err := ValidateGrade(grade); err != nil {
		return nil, err
	}
	out := make(map[int]map[models.Subject]float64)
	for _, p := range t.rec.ByGrade {
		if p.Grade == grade {
			bySubject(out, p.Year)[p.Subject] = p.Proficiency
		}
	}
	return out, nil
}

// ProficientByRaceOrEthnicity returns year -> subject -> proficiency for race.
func (t *StatewideTesting) ProficientByRaceOrEthnicity(race models.Category) (map[int]map[models.Subject]float64, error) {
	if err := ValidateRace(race); err != nil {
		return nil, err
	}
	out := make(map[int]map[models.Subject]float64)
	for _, p := range t.rec.ByRace {
		if p.Race == race {
			bySubject(out, p.Year)[p.Subject] = p.Proficiency
		}
	}
	return out, nil
}

// AverageGrowth is the slope of proficiency between the earliest and latest
// observed year for grade and subject. It reports false when there are fewer
// than two distinct years. The result may be negative.
func (t *StatewideTesting) AverageGrowth(grade int, subject models.Subject) (float64, bool) {
	var first, last *models.GradeProficiency
	for i := range t.rec.ByGrade {
		p := &t.rec.ByGrade[i]
		if p.Grade != grade || p.Subject != subject {
			continue
		}
		if first == nil || p.Year < first.Year {
			first = p
		}
		if last == nil || p.Year > last.Year {
			last = p
		}
	}
	if first == nil || first.Year == last.Year {
		return 0, false
	}
	return (last.Proficiency - first.Proficiency) / float64(last.Year-first.Year), true
}

func bySubject(m map[int]map[models.Subject]float64, year int) map[models.Subject]float64 {
	s, ok := m[year]
	if !ok {
		s = make(map[models.Subject]float64)
		m[year] = s
	}
	return s
}

func gradeYears(rows []models.GradeProficiency) []int {
	years := make([]int, 0, len(rows))
	for _, p := range rows {
		years = append(years, p.Year)
	}
	slices.Sort(years)
	return slices.Compact(years)
}

func raceYears(rows []models.RaceProficiency) []int {
	years := make([]int, 0, len(rows))
	for _, p := range rows {
		years = append(years, p.Year)
	}
	slices.Sort(years)
	return slices.Compact(years)
}
