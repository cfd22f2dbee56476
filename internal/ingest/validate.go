package ingest

import (
	"github.com/lox/headcount/internal/models"
)

const (
	FlagRateOutOfRange = "rate_out_of_range"
	FlagCountNegative  = "count_negative"
	FlagYearUnlikely   = "year_unlikely"
	FlagIncomeNegative = "income_negative"
)

const (
	minYear = 1900
	maxYear = 2100
)

// ValidateRecord flags values that parsed but are implausible, such as a
// year of 0 from a coerced cell. Flags are reported, never fatal.
func ValidateRecord(rec models.Record) []string {
	seen := make(map[string]bool)
	var flags []string
	flag := func(f string) {
		if !seen[f] {
			seen[f] = true
			flags = append(flags, f)
		}
	}
	year := func(y int) {
		if y < minYear || y > maxYear {
			flag(FlagYearUnlikely)
		}
	}
	rate := func(r float64) {
		if r < 0 || r > 1 {
			flag(FlagRateOutOfRange)
		}
	}

	e, p := rec.Enrollment, rec.EconomicProfile
	for _, m := range []map[int]int{e.ParticipationByYear, e.OnlineParticipationByYear} {
		for y, n := range m {
			year(y)
			if n < 0 {
				flag(FlagCountNegative)
			}
		}
	}
	for _, m := range []map[int]float64{
		e.KindergartenParticipationByYear,
		e.GraduationRateByYear,
		e.SpecialEducationByYear,
		e.RemediationByYear,
		p.Title1StudentsByYear,
		p.FreeOrReducedLunchByYear,
		p.SchoolAgedChildrenInPovertyByYear,
	} {
		for y, r := range m {
			year(y)
			rate(r)
		}
	}
	for r, income := range p.MedianHouseholdIncome {
		year(r.From)
		year(r.To)
		if income < 0 {
			flag(FlagIncomeNegative)
		}
	}
	for _, o := range e.ParticipationByRace {
		year(o.Year)
		rate(o.Rate)
	}
	for _, o := range e.DropoutRates {
		year(o.Year)
		rate(o.Rate)
	}
	for _, o := range rec.Testing.ByGrade {
		year(o.Year)
		rate(o.Proficiency)
	}
	for _, o := range rec.Testing.ByRace {
		year(o.Year)
		rate(o.Proficiency)
	}
	return flags
}
