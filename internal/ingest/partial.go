package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lox/headcount/internal/models"
)

var ErrMetricCollision = errors.New("metric written twice")

// Partial is a set of district records keyed by upper-case name, kept in
// first-touch order.
type Partial struct {
	order   []string
	records map[string]*models.Record
}

func NewPartial() *Partial {
	return &Partial{records: make(map[string]*models.Record)}
}

// District returns the record for name, creating it with the default shape
// on first touch.
func (p *Partial) District(name string) *models.Record {
	key := strings.ToUpper(strings.TrimSpace(name))
	if rec, ok := p.records[key]; ok {
		return rec
	}
	rec := models.NewRecord(key)
	p.records[key] = rec
	p.order = append(p.order, key)
	return rec
}

func (p *Partial) Len() int {
	return len(p.order)
}

// Records returns the records in first-touch order.
func (p *Partial) Records() []models.Record {
	out := make([]models.Record, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, *p.records[name])
	}
	return out
}

// Merge folds other into p. List metrics are concatenated; a map metric set
// on both sides for the same district is a collision.
func (p *Partial) Merge(other *Partial) error {
	for _, name := range other.order {
		if err := mergeRecord(p.District(name), other.records[name]); err != nil {
			return err
		}
	}
	return nil
}

func mergeRecord(dst, src *models.Record) error {
	de, se := &dst.Enrollment, &src.Enrollment
	dp, sp := &dst.EconomicProfile, &src.EconomicProfile
	name := dst.Name

	for _, err := range []error{
		mergeMap(name, "participation_by_year", &de.ParticipationByYear, se.ParticipationByYear),
		mergeMap(name, "online_participation_by_year", &de.OnlineParticipationByYear, se.OnlineParticipationByYear),
		mergeMap(name, "kindergarten_participation_by_year", &de.KindergartenParticipationByYear, se.KindergartenParticipationByYear),
		mergeMap(name, "graduation_rate_by_year", &de.GraduationRateByYear, se.GraduationRateByYear),
		mergeMap(name, "special_education_by_year", &de.SpecialEducationByYear, se.SpecialEducationByYear),
		mergeMap(name, "remediation_by_year", &de.RemediationByYear, se.RemediationByYear),
		mergeMap(name, "title_1_students_by_year", &dp.Title1StudentsByYear, sp.Title1StudentsByYear),
		mergeMap(name, "free_or_reduced_lunch_by_year", &dp.FreeOrReducedLunchByYear, sp.FreeOrReducedLunchByYear),
		mergeMap(name, "school_aged_children_in_poverty_by_year", &dp.SchoolAgedChildrenInPovertyByYear, sp.SchoolAgedChildrenInPovertyByYear),
		mergeMap(name, "median_household_income", &dp.MedianHouseholdIncome, sp.MedianHouseholdIncome),
	} {
		if err != nil {
			return err
		}
	}

	de.ParticipationByRace = append(de.ParticipationByRace, se.ParticipationByRace...)
	de.DropoutRates = append(de.DropoutRates, se.DropoutRates...)
	dst.Testing.ByGrade = append(dst.Testing.ByGrade, src.Testing.ByGrade...)
	dst.Testing.ByRace = append(dst.Testing.ByRace, src.Testing.ByRace...)
	return nil
}

func mergeMap[K comparable, V any](district, metric string, dst *map[K]V, src map[K]V) error {
	if src == nil {
		return nil
	}
	if *dst != nil {
		return fmt.Errorf("%w: %s for %s", ErrMetricCollision, metric, district)
	}
	*dst = src
	return nil
}
