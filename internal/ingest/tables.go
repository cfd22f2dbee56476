package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lox/headcount/internal/models"
	"github.com/lox/headcount/internal/normalize"
	"github.com/lox/headcount/internal/source"
)

// Source table names.
const (
	PupilEnrollment             = "Pupil enrollment"
	OnlinePupilEnrollment       = "Online pupil enrollment"
	GraduationRates             = "High school graduation rates"
	ThirdGradeProficiency       = "3rd grade students scoring proficient or above on the CSAP_TCAP"
	EighthGradeProficiency      = "8th grade students scoring proficient or above on the CSAP_TCAP"
	MathProficiencyByRace       = "Average proficiency on the CSAP_TCAP by race_ethnicity_ Math"
	ReadingProficiencyByRace    = "Average proficiency on the CSAP_TCAP by race_ethnicity_ Reading"
	WritingProficiencyByRace    = "Average proficiency on the CSAP_TCAP by race_ethnicity_ Writing"
	DropoutRates                = "Dropout rates by race and ethnicity"
	KindergartenFullDay         = "Kindergartners in full-day program"
	PupilEnrollmentByRace       = "Pupil enrollment by race_ethnicity"
	SpecialEducation            = "Special education"
	Remediation                 = "Remediation in higher education"
	FreeOrReducedLunch          = "Students qualifying for free or reduced price lunch"
	MedianHouseholdIncome       = "Median household income"
	SchoolAgedChildrenInPoverty = "School-aged children in poverty"
	TitleIStudents              = "Title I students"
)

const (
	colLocation      = "location"
	colTimeFrame     = "timeframe"
	colDataFormat    = "dataformat"
	colData          = "data"
	colScore         = "score"
	colRace          = "race"
	colRaceEthnicity = "race_ethnicity"
	colCategory      = "category"
)

var ErrMissingColumn = errors.New("missing column")

// table is one row ingestor: a named source and the pure transform that
// turns its rows into partial district records.
type table struct {
	name    string
	columns []string
	ingest  func(r *run, rows []source.Row) (*Partial, error)
}

// tables is the fixed ingestion sequence.
var tables = []table{
	{PupilEnrollment, cols(colData), yearlyCounts(func(e *models.Record, m map[int]int) { e.Enrollment.ParticipationByYear = m })},
	{OnlinePupilEnrollment, cols(colData), yearlyCounts(func(e *models.Record, m map[int]int) { e.Enrollment.OnlineParticipationByYear = m })},
	{GraduationRates, cols(colData), yearlyRates(false, func(e *models.Record, m map[int]float64) { e.Enrollment.GraduationRateByYear = m })},
	{ThirdGradeProficiency, cols(colData, colScore), proficiencyByGrade(ThirdGradeProficiency)},
	{EighthGradeProficiency, cols(colData, colScore), proficiencyByGrade(EighthGradeProficiency)},
	{MathProficiencyByRace, cols(colData, colRaceEthnicity), proficiencyByRace(models.Math)},
	{ReadingProficiencyByRace, cols(colData, colRaceEthnicity), proficiencyByRace(models.Reading)},
	{WritingProficiencyByRace, cols(colData, colRaceEthnicity), proficiencyByRace(models.Writing)},
	{DropoutRates, cols(colData, colCategory), dropoutRates},
	{KindergartenFullDay, cols(colData), yearlyRates(false, func(e *models.Record, m map[int]float64) { e.Enrollment.KindergartenParticipationByYear = m })},
	{PupilEnrollmentByRace, cols(colData, colDataFormat, colRace), participationByRace},
	{SpecialEducation, cols(colData), yearlyRates(false, func(e *models.Record, m map[int]float64) { e.Enrollment.SpecialEducationByYear = m })},
	{Remediation, cols(colData), yearlyRates(false, func(e *models.Record, m map[int]float64) { e.Enrollment.RemediationByYear = m })},
	{FreeOrReducedLunch, cols(colData, colDataFormat), yearlyRates(true, func(e *models.Record, m map[int]float64) { e.EconomicProfile.FreeOrReducedLunchByYear = m })},
	{MedianHouseholdIncome, cols(colData), medianHouseholdIncome},
	{SchoolAgedChildrenInPoverty, cols(colData, colDataFormat), yearlyRates(true, func(e *models.Record, m map[int]float64) { e.EconomicProfile.SchoolAgedChildrenInPovertyByYear = m })},
	{TitleIStudents, cols(colData), yearlyRates(false, func(e *models.Record, m map[int]float64) { e.EconomicProfile.Title1StudentsByYear = m })},
}

// TableNames lists every source table in ingestion order.
func TableNames() []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.name
	}
	return names
}

func cols(extra ...string) []string {
	return append([]string{colLocation, colTimeFrame}, extra...)
}

// run carries per-table counters through an ingest.
type run struct {
	table   string
	kept    int
	skipped int
	coerced int
}

func (r *run) year(row source.Row) int {
	y, ok := normalize.Int(row[colTimeFrame])
	if !ok {
		r.coerced++
	}
	return y
}

func (r *run) count(row source.Row) int {
	n, ok := normalize.Int(row[colData])
	if !ok {
		r.coerced++
	}
	return n
}

func (r *run) rate(row source.Row) float64 {
	f, ok := normalize.Float(row[colData])
	if !ok {
		r.coerced++
	}
	return normalize.Truncate(f)
}

func (r *run) errorf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", r.table, fmt.Errorf(format, args...))
}

func requireColumns(tableName string, rows []source.Row, columns []string) error {
	for i, row := range rows {
		for _, col := range columns {
			if _, ok := row[col]; !ok {
				return fmt.Errorf("%s: row %d: %w %q", tableName, i+1, ErrMissingColumn, col)
			}
		}
	}
	return nil
}

type group struct {
	district string
	rows     []source.Row
}

// groupByLocation groups rows by upper-cased district in first-seen order.
func groupByLocation(rows []source.Row) []group {
	var groups []group
	index := make(map[string]int)
	for _, row := range rows {
		key := strings.ToUpper(strings.TrimSpace(row[colLocation]))
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, group{district: key})
		}
		groups[i].rows = append(groups[i].rows, row)
	}
	return groups
}

func isPercent(row source.Row) bool {
	return row[colDataFormat] == "Percent"
}

func yearlyCounts(set func(*models.Record, map[int]int)) func(*run, []source.Row) (*Partial, error) {
	return func(r *run, rows []source.Row) (*Partial, error) {
		p := NewPartial()
		for _, g := range groupByLocation(rows) {
			byYear := make(map[int]int, len(g.rows))
			for _, row := range g.rows {
				byYear[r.year(row)] = r.count(row)
				r.kept++
			}
			set(p.District(g.district), byYear)
		}
		return p, nil
	}
}

func yearlyRates(percentOnly bool, set func(*models.Record, map[int]float64)) func(*run, []source.Row) (*Partial, error) {
	return func(r *run, rows []source.Row) (*Partial, error) {
		p := NewPartial()
		for _, g := range groupByLocation(rows) {
			byYear := make(map[int]float64, len(g.rows))
			for _, row := range g.rows {
				if percentOnly && !isPercent(row) {
					r.skipped++
					continue
				}
				byYear[r.year(row)] = r.rate(row)
				r.kept++
			}
			set(p.District(g.district), byYear)
		}
		return p, nil
	}
}

// proficiencyByGrade reads a per-grade table; the grade is the leading
// number of the table name. Placeholder cells are skipped, not failed.
func proficiencyByGrade(name string) func(*run, []source.Row) (*Partial, error) {
	grade, ok := normalize.Grade(name)
	return func(r *run, rows []source.Row) (*Partial, error) {
		if !ok {
			return nil, r.errorf("no tested grade in table name")
		}
		p := NewPartial()
		for _, g := range groupByLocation(rows) {
			rec := p.District(g.district)
			for _, row := range g.rows {
				if !normalize.Percentageable(row[colData]) {
					r.skipped++
					continue
				}
				subject, err := normalize.Subject(row[colScore])
				if err != nil {
					return nil, r.errorf("%s: %w", g.district, err)
				}
				rec.Testing.ByGrade = append(rec.Testing.ByGrade, models.GradeProficiency{
					Year:        r.year(row),
					Subject:     subject,
					Grade:       grade,
					Proficiency: normalize.Percentage(row[colData]),
				})
				r.kept++
			}
		}
		return p, nil
	}
}

func proficiencyByRace(subject models.Subject) func(*run, []source.Row) (*Partial, error) {
	return func(r *run, rows []source.Row) (*Partial, error) {
		p := NewPartial()
		for _, g := range groupByLocation(rows) {
			rec := p.District(g.district)
			for _, row := range g.rows {
				race, err := normalize.Category(row[colRaceEthnicity])
				if err != nil {
					return nil, r.errorf("%s: %w", g.district, err)
				}
				rec.Testing.ByRace = append(rec.Testing.ByRace, models.RaceProficiency{
					Year:        r.year(row),
					Subject:     subject,
					Race:        race,
					Proficiency: r.rate(row),
				})
				r.kept++
			}
		}
		return p, nil
	}
}

func dropoutRates(r *run, rows []source.Row) (*Partial, error) {
	p := NewPartial()
	for _, g := range groupByLocation(rows) {
		rec := p.District(g.district)
		for _, row := range g.rows {
			category, err := normalize.Category(row[colCategory])
			if err != nil {
				return nil, r.errorf("%s: %w", g.district, err)
			}
			rec.Enrollment.DropoutRates = append(rec.Enrollment.DropoutRates, models.DropoutRate{
				Year:     r.year(row),
				Category: category,
				Rate:     r.rate(row),
			})
			r.kept++
		}
	}
	return p, nil
}

func participationByRace(r *run, rows []source.Row) (*Partial, error) {
	p := NewPartial()
	for _, g := range groupByLocation(rows) {
		rec := p.District(g.district)
		for _, row := range g.rows {
			if !isPercent(row) || row[colRace] == "Total" {
				r.skipped++
				continue
			}
			race, err := normalize.Category(row[colRace])
			if err != nil {
				return nil, r.errorf("%s: %w", g.district, err)
			}
			rec.Enrollment.ParticipationByRace = append(rec.Enrollment.ParticipationByRace, models.RaceRate{
				Year: r.year(row),
				Race: race,
				Rate: r.rate(row),
			})
			r.kept++
		}
	}
	return p, nil
}

func medianHouseholdIncome(r *run, rows []source.Row) (*Partial, error) {
	p := NewPartial()
	for _, g := range groupByLocation(rows) {
		byRange := make(map[models.YearRange]int, len(g.rows))
		for _, row := range g.rows {
			byRange[normalize.YearRange(row[colTimeFrame])] = r.count(row)
			r.kept++
		}
		p.District(g.district).EconomicProfile.MedianHouseholdIncome = byRange
	}
	return p, nil
}
