package models

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Category is a closed-set demographic tag.
type Category string

const (
	Asian           Category = "asian"
	Black           Category = "black"
	PacificIslander Category = "pacific_islander"
	Hispanic        Category = "hispanic"
	NativeAmerican  Category = "native_american"
	TwoOrMore       Category = "two_or_more"
	White           Category = "white"

	All    Category = "all"
	Male   Category = "male"
	Female Category = "female"
)

// Races is the race/ethnicity subset of Category, in display order.
var Races = []Category{Asian, Black, PacificIslander, Hispanic, NativeAmerican, TwoOrMore, White}

// Genders are the dropout categories split by gender.
var Genders = []Category{Female, Male}

func (c Category) IsRace() bool {
	for _, r := range Races {
		if c == r {
			return true
		}
	}
	return false
}

func (c Category) IsGender() bool {
	return c == Male || c == Female
}

// Label returns the human form used in the source tables, e.g. "Pacific Islander".
func (c Category) Label() string {
	switch c {
	case TwoOrMore:
		return "Two or more"
	case All:
		return "All Students"
	}
	words := strings.Split(string(c), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

type Subject string

const (
	Math    Subject = "math"
	Reading Subject = "reading"
	Writing Subject = "writing"
)

var Subjects = []Subject{Math, Reading, Writing}

func (s Subject) Valid() bool {
	return s == Math || s == Reading || s == Writing
}

// Grades are the tested grades present in the proficiency tables.
var Grades = []int{3, 8}

func ValidGrade(g int) bool {
	return g == 3 || g == 8
}

// YearRange is a two-year span such as the 2005-2009 census estimate window.
type YearRange struct {
	From int
	To   int
}

func (r YearRange) Contains(year int) bool {
	return year >= r.From && year <= r.To
}

func (r YearRange) String() string {
	return fmt.Sprintf("%d-%d", r.From, r.To)
}

func (r YearRange) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *YearRange) UnmarshalText(b []byte) error {
	from, to, ok := strings.Cut(string(b), "-")
	if !ok {
		return fmt.Errorf("year range %q: missing '-'", b)
	}
	f, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return fmt.Errorf("year range %q: %w", b, err)
	}
	t, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return fmt.Errorf("year range %q: %w", b, err)
	}
	r.From, r.To = f, t
	return nil
}

type RaceRate struct {
	Year int      `json:"year"`
	Race Category `json:"race"`
	Rate float64  `json:"rate"`
}

type DropoutRate struct {
	Year     int      `json:"year"`
	Category Category `json:"category"`
	Rate     float64  `json:"rate"`
}

type GradeProficiency struct {
	Year        int     `json:"year"`
	Subject     Subject `json:"subject"`
	Grade       int     `json:"grade"`
	Proficiency float64 `json:"proficiency"`
}

type RaceProficiency struct {
	Year        int      `json:"year"`
	Subject     Subject  `json:"subject"`
	Race        Category `json:"race"`
	Proficiency float64  `json:"proficiency"`
}

// EnrollmentRecord holds enrollment metrics. A nil map means the source
// table had no rows for the district.
type EnrollmentRecord struct {
	ParticipationByYear             map[int]int     `json:"participation_by_year,omitempty"`
	OnlineParticipationByYear       map[int]int     `json:"online_participation_by_year,omitempty"`
	KindergartenParticipationByYear map[int]float64 `json:"kindergarten_participation_by_year,omitempty"`
	GraduationRateByYear            map[int]float64 `json:"graduation_rate_by_year,omitempty"`
	SpecialEducationByYear          map[int]float64 `json:"special_education_by_year,omitempty"`
	RemediationByYear               map[int]float64 `json:"remediation_by_year,omitempty"`
	ParticipationByRace             []RaceRate      `json:"participation_by_race_and_year"`
	DropoutRates                    []DropoutRate   `json:"dropout_rates"`
}

type EconomicRecord struct {
	Title1StudentsByYear              map[int]float64   `json:"title_1_students_by_year,omitempty"`
	FreeOrReducedLunchByYear          map[int]float64   `json:"free_or_reduced_lunch_by_year,omitempty"`
	SchoolAgedChildrenInPovertyByYear map[int]float64   `json:"school_aged_children_in_poverty_by_year,omitempty"`
	MedianHouseholdIncome             map[YearRange]int `json:"median_household_income,omitempty"`
}

type TestingRecord struct {
	ByGrade []GradeProficiency `json:"by_subject_year_and_grade"`
	ByRace  []RaceProficiency  `json:"by_subject_year_and_race"`
}

// Record is everything ingested for one district. Name is upper case.
type Record struct {
	Name            string           `json:"name"`
	Enrollment      EnrollmentRecord `json:"enrollment"`
	Testing         TestingRecord    `json:"testing"`
	EconomicProfile EconomicRecord   `json:"economic_profile"`
}

// NewRecord returns a record with the default shape: empty lists for
// table-shaped metrics and absent maps.
func NewRecord(name string) *Record {
	return &Record{
		Name: strings.ToUpper(name),
		Enrollment: EnrollmentRecord{
			ParticipationByRace: []RaceRate{},
			DropoutRates:        []DropoutRate{},
		},
		Testing: TestingRecord{
			ByGrade: []GradeProficiency{},
			ByRace:  []RaceProficiency{},
		},
	}
}

// Clone returns a deep copy of r. Absent maps stay nil and empty lists stay
// empty.
func (r Record) Clone() Record {
	e, ep := r.Enrollment, r.EconomicProfile
	return Record{
		Name: r.Name,
		Enrollment: EnrollmentRecord{
			ParticipationByYear:             maps.Clone(e.ParticipationByYear),
			OnlineParticipationByYear:       maps.Clone(e.OnlineParticipationByYear),
			KindergartenParticipationByYear: maps.Clone(e.KindergartenParticipationByYear),
			GraduationRateByYear:            maps.Clone(e.GraduationRateByYear),
			SpecialEducationByYear:          maps.Clone(e.SpecialEducationByYear),
			RemediationByYear:               maps.Clone(e.RemediationByYear),
			ParticipationByRace:             slices.Clone(e.ParticipationByRace),
			DropoutRates:                    slices.Clone(e.DropoutRates),
		},
		Testing: TestingRecord{
			ByGrade: slices.Clone(r.Testing.ByGrade),
			ByRace:  slices.Clone(r.Testing.ByRace),
		},
		EconomicProfile: EconomicRecord{
			Title1StudentsByYear:              maps.Clone(ep.Title1StudentsByYear),
			FreeOrReducedLunchByYear:          maps.Clone(ep.FreeOrReducedLunchByYear),
			SchoolAgedChildrenInPovertyByYear: maps.Clone(ep.SchoolAgedChildrenInPovertyByYear),
			MedianHouseholdIncome:             maps.Clone(ep.MedianHouseholdIncome),
		},
	}
}
