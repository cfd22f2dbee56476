package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lox/headcount/internal/models"
	"github.com/lox/headcount/internal/normalize"
)

// ErrInvalidValue marks a document value the tabular sources could never
// produce: a non-numeric year or an untested grade.
var ErrInvalidValue = errors.New("invalid value")

// flexInt accepts a JSON number or a numeric string such as "2010".
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		if i, ok := normalize.Int(n.String()); ok {
			*f = flexInt(i)
			return nil
		}
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected number or string, got %s", data)
	}
	i, ok := normalize.Int(s)
	if !ok {
		return fmt.Errorf("%w: %q is not a number", ErrInvalidValue, s)
	}
	*f = flexInt(i)
	return nil
}

type docRow struct {
	Year        flexInt `json:"year"`
	Grade       flexInt `json:"grade"`
	Subject     string  `json:"subject"`
	Race        string  `json:"race"`
	Category    string  `json:"category"`
	Rate        float64 `json:"rate"`
	Proficiency float64 `json:"proficiency"`
}

type docDistrict struct {
	Name       string `json:"name"`
	Enrollment struct {
		ParticipationByYear             map[string]float64 `json:"participation_by_year"`
		OnlineParticipationByYear       map[string]float64 `json:"online_participation_by_year"`
		KindergartenParticipationByYear map[string]float64 `json:"kindergarten_participation_by_year"`
		GraduationRateByYear            map[string]float64 `json:"graduation_rate_by_year"`
		SpecialEducationByYear          map[string]float64 `json:"special_education_by_year"`
		RemediationByYear               map[string]float64 `json:"remediation_by_year"`
		ParticipationByRace             []docRow           `json:"participation_by_race_and_year"`
		DropoutRates                    []docRow           `json:"dropout_rates"`
	} `json:"enrollment"`
	Testing struct {
		ByGrade []docRow `json:"by_subject_year_and_grade"`
		ByRace  []docRow `json:"by_subject_year_and_race"`
	} `json:"testing"`
	EconomicProfile struct {
		Title1StudentsByYear              map[string]float64 `json:"title_1_students_by_year"`
		FreeOrReducedLunchByYear          map[string]float64 `json:"free_or_reduced_lunch_by_year"`
		SchoolAgedChildrenInPovertyByYear map[string]float64 `json:"school_aged_children_in_poverty_by_year"`
		MedianHouseholdIncome             map[string]float64 `json:"median_household_income"`
	} `json:"economic_profile"`
}

type document struct {
	Districts []json.RawMessage `json:"districts"`
}

// DecodeDocument reads the structured district document and runs it through
// the same normalization as the tabular sources: integer years, category
// symbols and three-decimal rates.
func DecodeDocument(r io.Reader) ([]models.Record, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	acc := NewPartial()
	for i, raw := range doc.Districts {
		var d docDistrict
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode district %d: %w", i, err)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("decode district %d: missing name", i)
		}
		part, err := normalizeDistrict(d)
		if err != nil {
			return nil, fmt.Errorf("district %q: %w", d.Name, err)
		}
		if err := acc.Merge(part); err != nil {
			return nil, err
		}
	}
	return acc.Records(), nil
}

// EncodeDocument writes records in the structured document form.
func EncodeDocument(w io.Writer, records []models.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Districts []models.Record `json:"districts"`
	}{records})
}

func normalizeDistrict(d docDistrict) (*Partial, error) {
	p := NewPartial()
	rec := p.District(d.Name)
	e, ep := &rec.Enrollment, &rec.EconomicProfile

	var err error
	counts := []struct {
		key string
		in  map[string]float64
		out *map[int]int
	}{
		{"participation_by_year", d.Enrollment.ParticipationByYear, &e.ParticipationByYear},
		{"online_participation_by_year", d.Enrollment.OnlineParticipationByYear, &e.OnlineParticipationByYear},
	}
	for _, c := range counts {
		if *c.out, err = countsByYear(c.in); err != nil {
			return nil, fmt.Errorf("%s: %w", c.key, err)
		}
	}
	rates := []struct {
		key string
		in  map[string]float64
		out *map[int]float64
	}{
		{"kindergarten_participation_by_year", d.Enrollment.KindergartenParticipationByYear, &e.KindergartenParticipationByYear},
		{"graduation_rate_by_year", d.Enrollment.GraduationRateByYear, &e.GraduationRateByYear},
		{"special_education_by_year", d.Enrollment.SpecialEducationByYear, &e.SpecialEducationByYear},
		{"remediation_by_year", d.Enrollment.RemediationByYear, &e.RemediationByYear},
		{"title_1_students_by_year", d.EconomicProfile.Title1StudentsByYear, &ep.Title1StudentsByYear},
		{"free_or_reduced_lunch_by_year", d.EconomicProfile.FreeOrReducedLunchByYear, &ep.FreeOrReducedLunchByYear},
		{"school_aged_children_in_poverty_by_year", d.EconomicProfile.SchoolAgedChildrenInPovertyByYear, &ep.SchoolAgedChildrenInPovertyByYear},
	}
	for _, r := range rates {
		if *r.out, err = ratesByYear(r.in); err != nil {
			return nil, fmt.Errorf("%s: %w", r.key, err)
		}
	}

	if m := d.EconomicProfile.MedianHouseholdIncome; m != nil {
		ep.MedianHouseholdIncome = make(map[models.YearRange]int, len(m))
		for k, v := range m {
			from, to, _ := strings.Cut(k, "-")
			if _, ok := normalize.Int(from); !ok {
				return nil, fmt.Errorf("median_household_income: %w: year range %q", ErrInvalidValue, k)
			}
			if _, ok := normalize.Int(to); !ok {
				return nil, fmt.Errorf("median_household_income: %w: year range %q", ErrInvalidValue, k)
			}
			ep.MedianHouseholdIncome[normalize.YearRange(k)] = int(v)
		}
	}

	for _, row := range d.Enrollment.ParticipationByRace {
		race, err := normalize.Category(row.Race)
		if err != nil {
			return nil, fmt.Errorf("participation by race: %w", err)
		}
		e.ParticipationByRace = append(e.ParticipationByRace, models.RaceRate{Year: int(row.Year), Race: race, Rate: normalize.Rate(row.Rate)})
	}
	for _, row := range d.Enrollment.DropoutRates {
		category, err := normalize.Category(row.Category)
		if err != nil {
			return nil, fmt.Errorf("dropout rates: %w", err)
		}
		e.DropoutRates = append(e.DropoutRates, models.DropoutRate{Year: int(row.Year), Category: category, Rate: normalize.Rate(row.Rate)})
	}
	for _, row := range d.Testing.ByGrade {
		subject, err := normalize.Subject(row.Subject)
		if err != nil {
			return nil, fmt.Errorf("testing by grade: %w", err)
		}
		if !models.ValidGrade(int(row.Grade)) {
			return nil, fmt.Errorf("testing by grade: %w: grade %d", ErrInvalidValue, row.Grade)
		}
		rec.Testing.ByGrade = append(rec.Testing.ByGrade, models.GradeProficiency{
			Year:        int(row.Year),
			Subject:     subject,
			Grade:       int(row.Grade),
			Proficiency: normalize.Rate(row.Proficiency),
		})
	}
	for _, row := range d.Testing.ByRace {
		subject, err := normalize.Subject(row.Subject)
		if err != nil {
			return nil, fmt.Errorf("testing by race: %w", err)
		}
		race, err := normalize.Category(row.Race)
		if err != nil {
			return nil, fmt.Errorf("testing by race: %w", err)
		}
		rec.Testing.ByRace = append(rec.Testing.ByRace, models.RaceProficiency{
			Year:        int(row.Year),
			Subject:     subject,
			Race:        race,
			Proficiency: normalize.Rate(row.Proficiency),
		})
	}
	return p, nil
}

func countsByYear(m map[string]float64) (map[int]int, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[int]int, len(m))
	for k, v := range m {
		year, err := yearKey(k)
		if err != nil {
			return nil, err
		}
		out[year] = int(v)
	}
	return out, nil
}

func ratesByYear(m map[string]float64) (map[int]float64, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[int]float64, len(m))
	for k, v := range m {
		year, err := yearKey(k)
		if err != nil {
			return nil, err
		}
		out[year] = normalize.Rate(v)
	}
	return out, nil
}

func yearKey(k string) (int, error) {
	year, ok := normalize.Int(k)
	if !ok {
		return 0, fmt.Errorf("%w: year %q", ErrInvalidValue, k)
	}
	return year, nil
}
