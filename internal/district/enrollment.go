package district

import (
	"maps"

	"github.com/lox/headcount/internal/models"
)

type Enrollment struct {
	rec models.EnrollmentRecord
}

func (e *Enrollment) ParticipationInYear(year int) (int, error) {
	return inYear("participation", e.rec.ParticipationByYear, year)
}

func (e *Enrollment) OnlineParticipationInYear(year int) (int, error) {
	return inYear("online participation", e.rec.OnlineParticipationByYear, year)
}

func (e *Enrollment) KindergartenParticipationInYear(year int) (float64, error) {
	return inYear("kindergarten participation", e.rec.KindergartenParticipationByYear, year)
}

func (e *Enrollment) GraduationRateInYear(year int) (float64, error) {
	return inYear("graduation rate", e.rec.GraduationRateByYear, year)
}

func (e *Enrollment) SpecialEducationInYear(year int) (float64, error) {
	return inYear("special education", e.rec.SpecialEducationByYear, year)
}

func (e *Enrollment) RemediationInYear(year int) (float64, error) {
	return inYear("remediation", e.rec.RemediationByYear, year)
}

func (e *Enrollment) ParticipationByYear() map[int]int {
	return maps.Clone(e.rec.ParticipationByYear)
}

func (e *Enrollment) GraduationRateByYear() map[int]float64 {
	return maps.Clone(e.rec.GraduationRateByYear)
}

func (e *Enrollment) KindergartenParticipationByYear() map[int]float64 {
	return maps.Clone(e.rec.KindergartenParticipationByYear)
}

// ParticipationByRaceOrEthnicity returns year -> share of enrollment for race.
func (e *Enrollment) ParticipationByRaceOrEthnicity(race models.Category) (map[int]float64, error) {
	if err := ValidateRace(race); err != nil {
		return nil, err
	}
	out := make(map[int]float64)
	for _, r := range e.rec.ParticipationByRace {
		if r.Race == race {
			out[r.Year] = r.Rate
		}
	}
	return out, nil
}

// ParticipationByRaceOrEthnicityInYear returns race -> share for every race
// observed in year, or false when there are none.
func (e *Enrollment) ParticipationByRaceOrEthnicityInYear(year int) (map[models.Category]float64, bool) {
	out := make(map[models.Category]float64)
	for _, r := range e.rec.ParticipationByRace {
		if r.Year == year {
			out[r.Race] = r.Rate
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// DropoutRateInYear is the all-students dropout rate.
func (e *Enrollment) DropoutRateInYear(year int) (float64, bool) {
	for _, r := range e.rec.DropoutRates {
		if r.Category == models.All && r.Year == year {
			return r.Rate, true
		}
	}
	return 0, false
}

func (e *Enrollment) DropoutRateForRaceOrEthnicity(race models.Category) (map[int]float64, error) {
	if err := ValidateRace(race); err != nil {
		return nil, err
	}
	out := make(map[int]float64)
	for _, r := range e.rec.DropoutRates {
		if r.Category == race {
			out[r.Year] = r.Rate
		}
	}
	return out, nil
}

// DropoutRateForRaceOrEthnicityInYear reports false when no row matches.
// An invalid race is always an error.
func (e *Enrollment) DropoutRateForRaceOrEthnicityInYear(race models.Category, year int) (float64, bool, error) {
	if err := ValidateRace(race); err != nil {
		return 0, false, err
	}
	for _, r := range e.rec.DropoutRates {
		if r.Category == race && r.Year == year {
			return r.Rate, true, nil
		}
	}
	return 0, false, nil
}

func (e *Enrollment) DropoutRateByGenderInYear(year int) (map[models.Category]float64, bool) {
	return e.dropoutRatesInYear(year, models.Category.IsGender)
}

func (e *Enrollment) DropoutRateByRaceInYear(year int) (map[models.Category]float64, bool) {
	return e.dropoutRatesInYear(year, models.Category.IsRace)
}

func (e *Enrollment) dropoutRatesInYear(year int, keep func(models.Category) bool) (map[models.Category]float64, bool) {
	out := make(map[models.Category]float64)
	for _, r := range e.rec.DropoutRates {
		if r.Year == year && keep(r.Category) {
			out[r.Category] = r.Rate
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
