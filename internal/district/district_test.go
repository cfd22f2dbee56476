package district

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lox/headcount/internal/models"
)

func academy() models.Record {
	rec := *models.NewRecord("Academy 20")
	rec.Enrollment.ParticipationByYear = map[int]int{2009: 22620, 2010: 23119}
	rec.Enrollment.OnlineParticipationByYear = map[int]int{2011: 33}
	rec.Enrollment.KindergartenParticipationByYear = map[int]float64{2007: 0.391}
	rec.Enrollment.GraduationRateByYear = map[int]float64{2010: 0.895, 2011: 0.895}
	rec.Enrollment.SpecialEducationByYear = map[int]float64{2012: 0.079}
	rec.Enrollment.RemediationByYear = map[int]float64{2010: 0.294}
	rec.Enrollment.ParticipationByRace = []models.RaceRate{
		{Year: 2007, Race: models.Asian, Rate: 0.05},
		{Year: 2007, Race: models.White, Rate: 0.8},
		{Year: 2008, Race: models.Asian, Rate: 0.054},
	}
	rec.Enrollment.DropoutRates = []models.DropoutRate{
		{Year: 2011, Category: models.All, Rate: 0.002},
		{Year: 2011, Category: models.Female, Rate: 0.002},
		{Year: 2011, Category: models.Male, Rate: 0.003},
		{Year: 2011, Category: models.Asian, Rate: 0},
		{Year: 2012, Category: models.Hispanic, Rate: 0.004},
	}
	rec.EconomicProfile.Title1StudentsByYear = map[int]float64{2009: 0.014}
	rec.EconomicProfile.FreeOrReducedLunchByYear = map[int]float64{2014: 0.127}
	rec.EconomicProfile.SchoolAgedChildrenInPovertyByYear = map[int]float64{1995: 0.032}
	rec.EconomicProfile.MedianHouseholdIncome = map[models.YearRange]int{
		{From: 2005, To: 2009}: 85000,
		{From: 2006, To: 2010}: 90000,
		{From: 2009, To: 2013}: 95001,
	}
	rec.Testing.ByGrade = []models.GradeProficiency{
		{Year: 2010, Subject: models.Math, Grade: 3, Proficiency: 0.4},
		{Year: 2013, Subject: models.Math, Grade: 3, Proficiency: 0.46},
		{Year: 2010, Subject: models.Reading, Grade: 3, Proficiency: 0.8},
		{Year: 2011, Subject: models.Math, Grade: 8, Proficiency: 0.5},
	}
	rec.Testing.ByRace = []models.RaceProficiency{
		{Year: 2011, Subject: models.Math, Race: models.Asian, Proficiency: 0.816},
		{Year: 2011, Subject: models.Reading, Race: models.Asian, Proficiency: 0.897},
		{Year: 2011, Subject: models.Math, Race: models.All, Proficiency: 0.68},
		{Year: 2012, Subject: models.Math, Race: models.Asian, Proficiency: 0.818},
	}
	return rec
}

func TestNew_UpperCasesName(t *testing.T) {
	d := New(models.Record{Name: "Academy 20"})
	if d.Name() != "ACADEMY 20" {
		t.Errorf("Name() = %q, want ACADEMY 20", d.Name())
	}
}

func TestEnrollment_InYear(t *testing.T) {
	e := New(academy()).Enrollment()

	if got, err := e.ParticipationInYear(2010); err != nil || got != 23119 {
		t.Errorf("ParticipationInYear(2010) = %v, %v, want 23119", got, err)
	}
	if got, err := e.OnlineParticipationInYear(2011); err != nil || got != 33 {
		t.Errorf("OnlineParticipationInYear(2011) = %v, %v, want 33", got, err)
	}
	if got, err := e.KindergartenParticipationInYear(2007); err != nil || got != 0.391 {
		t.Errorf("KindergartenParticipationInYear(2007) = %v, %v, want 0.391", got, err)
	}
	if got, err := e.GraduationRateInYear(2010); err != nil || got != 0.895 {
		t.Errorf("GraduationRateInYear(2010) = %v, %v, want 0.895", got, err)
	}
	if got, err := e.SpecialEducationInYear(2012); err != nil || got != 0.079 {
		t.Errorf("SpecialEducationInYear(2012) = %v, %v, want 0.079", got, err)
	}
	if got, err := e.RemediationInYear(2010); err != nil || got != 0.294 {
		t.Errorf("RemediationInYear(2010) = %v, %v, want 0.294", got, err)
	}

	if _, err := e.RemediationInYear(2099); !errors.Is(err, ErrMissingData) {
		t.Errorf("RemediationInYear(2099) err = %v, want ErrMissingData", err)
	}
}

func TestEnrollment_AbsentMetric(t *testing.T) {
	e := New(*models.NewRecord("Empty")).Enrollment()

	if _, err := e.GraduationRateInYear(2010); !errors.Is(err, ErrMissingData) {
		t.Errorf("err = %v, want ErrMissingData", err)
	}
	if got := e.ParticipationByYear(); got != nil {
		t.Errorf("ParticipationByYear() = %v, want nil", got)
	}
}

func TestEnrollment_SeriesAreCopies(t *testing.T) {
	e := New(academy()).Enrollment()
	series := e.GraduationRateByYear()
	series[2010] = 1

	if got, _ := e.GraduationRateInYear(2010); got != 0.895 {
		t.Errorf("GraduationRateInYear(2010) = %v after mutating copy, want 0.895", got)
	}
}

func TestNew_CopiesRecord(t *testing.T) {
	rec := academy()
	repo, err := NewRepository([]models.Record{rec})
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	d, _ := repo.FindByName("ACADEMY 20")

	rec.Enrollment.GraduationRateByYear[2010] = 0.9
	rec.Testing.ByGrade[0].Proficiency = 0.99
	rec.EconomicProfile.MedianHouseholdIncome[models.YearRange{From: 2005, To: 2009}] = 1

	out := d.Record()
	out.Enrollment.GraduationRateByYear[2011] = 0.1
	out.Enrollment.DropoutRates[0].Rate = 0.5

	if got, _ := d.Enrollment().GraduationRateInYear(2010); got != 0.895 {
		t.Errorf("GraduationRateInYear(2010) = %v, want 0.895", got)
	}
	if got, _ := d.Enrollment().GraduationRateInYear(2011); got != 0.895 {
		t.Errorf("GraduationRateInYear(2011) = %v, want 0.895", got)
	}
	if got, _ := d.StatewideTesting().ProficientForSubjectByGradeInYear(models.Math, 3, 2010); got != 0.4 {
		t.Errorf("ProficientForSubjectByGradeInYear = %v, want 0.4", got)
	}
	if got, _ := d.EconomicProfile().MedianHouseholdIncomeInRange(models.YearRange{From: 2005, To: 2009}); got != 85000 {
		t.Errorf("MedianHouseholdIncomeInRange = %v, want 85000", got)
	}
	if got, _ := d.Enrollment().DropoutRateInYear(2011); got != 0.002 {
		t.Errorf("DropoutRateInYear(2011) = %v, want 0.002", got)
	}
	if diff := cmp.Diff(academy(), d.Record()); diff != "" {
		t.Errorf("Record() changed (-want +got):\n%s", diff)
	}
}

func TestEnrollment_ParticipationByRace(t *testing.T) {
	e := New(academy()).Enrollment()

	got, err := e.ParticipationByRaceOrEthnicity(models.Asian)
	if err != nil {
		t.Fatalf("ParticipationByRaceOrEthnicity: %v", err)
	}
	if diff := cmp.Diff(map[int]float64{2007: 0.05, 2008: 0.054}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := e.ParticipationByRaceOrEthnicity("martian"); !errors.Is(err, ErrUnknownRace) {
		t.Errorf("err = %v, want ErrUnknownRace", err)
	}
	if _, err := e.ParticipationByRaceOrEthnicity(models.All); !errors.Is(err, ErrUnknownRace) {
		t.Errorf("err = %v, want ErrUnknownRace for aggregate category", err)
	}

	inYear, ok := e.ParticipationByRaceOrEthnicityInYear(2007)
	if !ok {
		t.Fatal("expected rows for 2007")
	}
	if diff := cmp.Diff(map[models.Category]float64{models.Asian: 0.05, models.White: 0.8}, inYear); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if got, ok := e.ParticipationByRaceOrEthnicityInYear(1999); ok || got != nil {
		t.Errorf("ParticipationByRaceOrEthnicityInYear(1999) = %v, %v, want nil, false", got, ok)
	}
}

func TestEnrollment_Dropout(t *testing.T) {
	e := New(academy()).Enrollment()

	if got, ok := e.DropoutRateInYear(2011); !ok || got != 0.002 {
		t.Errorf("DropoutRateInYear(2011) = %v, %v, want 0.002", got, ok)
	}
	if _, ok := e.DropoutRateInYear(2012); ok {
		t.Error("DropoutRateInYear(2012) should have no all-students row")
	}

	byRace, err := e.DropoutRateForRaceOrEthnicity(models.Hispanic)
	if err != nil || byRace[2012] != 0.004 || len(byRace) != 1 {
		t.Errorf("DropoutRateForRaceOrEthnicity(hispanic) = %v, %v", byRace, err)
	}

	if got, ok, err := e.DropoutRateForRaceOrEthnicityInYear(models.Asian, 2011); err != nil || !ok || got != 0 {
		t.Errorf("DropoutRateForRaceOrEthnicityInYear(asian, 2011) = %v, %v, %v, want 0, true", got, ok, err)
	}
	if _, ok, err := e.DropoutRateForRaceOrEthnicityInYear(models.Black, 2011); err != nil || ok {
		t.Errorf("DropoutRateForRaceOrEthnicityInYear(black, 2011) = %v, %v, want not found", ok, err)
	}

	gender, ok := e.DropoutRateByGenderInYear(2011)
	if !ok {
		t.Fatal("expected gender rows for 2011")
	}
	if diff := cmp.Diff(map[models.Category]float64{models.Female: 0.002, models.Male: 0.003}, gender); diff != "" {
		t.Errorf("gender mismatch (-want +got):\n%s", diff)
	}
	if _, ok := e.DropoutRateByGenderInYear(2012); ok {
		t.Error("expected no gender rows for 2012")
	}

	race, ok := e.DropoutRateByRaceInYear(2011)
	if !ok {
		t.Fatal("expected race rows for 2011")
	}
	if diff := cmp.Diff(map[models.Category]float64{models.Asian: 0}, race); diff != "" {
		t.Errorf("race mismatch (-want +got):\n%s", diff)
	}
}

func TestEnrollment_UnknownRaceAlwaysErrors(t *testing.T) {
	e := New(academy()).Enrollment()

	_, err := e.DropoutRateForRaceOrEthnicity("martian")
	if !errors.Is(err, ErrUnknownRace) {
		t.Errorf("err = %v, want ErrUnknownRace", err)
	}
	if !errors.Is(err, ErrUnknownData) {
		t.Errorf("err = %v, want it to also match ErrUnknownData", err)
	}

	_, ok, err := e.DropoutRateForRaceOrEthnicityInYear("martian", 2011)
	if !errors.Is(err, ErrUnknownRace) || ok {
		t.Errorf("DropoutRateForRaceOrEthnicityInYear(martian) = %v, %v, want ErrUnknownRace", ok, err)
	}
}

func TestEconomicProfile(t *testing.T) {
	p := New(academy()).EconomicProfile()

	if got, err := p.Title1StudentsInYear(2009); err != nil || got != 0.014 {
		t.Errorf("Title1StudentsInYear(2009) = %v, %v", got, err)
	}
	if got, err := p.FreeOrReducedLunchInYear(2014); err != nil || got != 0.127 {
		t.Errorf("FreeOrReducedLunchInYear(2014) = %v, %v", got, err)
	}
	if got, err := p.SchoolAgedChildrenInPovertyInYear(1995); err != nil || got != 0.032 {
		t.Errorf("SchoolAgedChildrenInPovertyInYear(1995) = %v, %v", got, err)
	}
	if got, err := p.FreeOrReducedLunchInYear(2099); !errors.Is(err, ErrMissingData) || got != 0 {
		t.Errorf("FreeOrReducedLunchInYear(2099) = %v, %v, want ErrMissingData", got, err)
	}

	if got, err := p.MedianHouseholdIncomeInRange(models.YearRange{From: 2005, To: 2009}); err != nil || got != 85000 {
		t.Errorf("MedianHouseholdIncomeInRange(2005-2009) = %v, %v", got, err)
	}
	if _, err := p.MedianHouseholdIncomeInRange(models.YearRange{From: 2005, To: 2010}); !errors.Is(err, ErrMissingData) {
		t.Errorf("err = %v, want ErrMissingData", err)
	}
}

func TestEconomicProfile_MedianIncomeEstimates(t *testing.T) {
	p := New(academy()).EconomicProfile()

	tests := []struct {
		year int
		want int
	}{
		{2005, 85000},
		{2009, 90000},
		{2010, 92500},
		{2013, 95001},
	}
	for _, tt := range tests {
		got, err := p.EstimatedMedianHouseholdIncomeInYear(tt.year)
		if err != nil {
			t.Errorf("EstimatedMedianHouseholdIncomeInYear(%d): %v", tt.year, err)
			continue
		}
		if got != tt.want {
			t.Errorf("EstimatedMedianHouseholdIncomeInYear(%d) = %d, want %d", tt.year, got, tt.want)
		}
	}

	if _, err := p.EstimatedMedianHouseholdIncomeInYear(2020); !errors.Is(err, ErrMissingData) {
		t.Errorf("err = %v, want ErrMissingData", err)
	}
	if got, err := p.MedianHouseholdIncomeAverage(); err != nil || got != 90000 {
		t.Errorf("MedianHouseholdIncomeAverage() = %v, %v, want 90000", got, err)
	}

	empty := New(*models.NewRecord("Empty")).EconomicProfile()
	if _, err := empty.MedianHouseholdIncomeAverage(); !errors.Is(err, ErrMissingData) {
		t.Errorf("err = %v, want ErrMissingData", err)
	}
}

func TestStatewideTesting_Lookups(t *testing.T) {
	st := New(academy()).StatewideTesting()

	if got, err := st.ProficientForSubjectByGradeInYear(models.Math, 3, 2010); err != nil || got != 0.4 {
		t.Errorf("ProficientForSubjectByGradeInYear(math, 3, 2010) = %v, %v", got, err)
	}
	if got, err := st.ProficientForSubjectByRaceInYear(models.Reading, models.Asian, 2011); err != nil || got != 0.897 {
		t.Errorf("ProficientForSubjectByRaceInYear(reading, asian, 2011) = %v, %v", got, err)
	}
	if got, err := st.ProficientForSubjectInYear(models.Math, 2011); err != nil || got != 0.68 {
		t.Errorf("ProficientForSubjectInYear(math, 2011) = %v, %v", got, err)
	}
	// 2011 is a valid year for the grade list but grade 3 has no 2011 row.
	if _, err := st.ProficientForSubjectByGradeInYear(models.Math, 3, 2011); !errors.Is(err, ErrMissingData) {
		t.Errorf("err = %v, want ErrMissingData", err)
	}
}

func TestStatewideTesting_Validation(t *testing.T) {
	st := New(academy()).StatewideTesting()

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"grade", func() error { _, err := st.ProficientForSubjectByGradeInYear(models.Math, 4, 2010); return err }, ErrUnknownData},
		{"subject", func() error { _, err := st.ProficientForSubjectByGradeInYear("science", 3, 2010); return err }, ErrUnknownData},
		{"grade year", func() error { _, err := st.ProficientForSubjectByGradeInYear(models.Math, 3, 1999); return err }, ErrUnknownData},
		{"race", func() error { _, err := st.ProficientForSubjectByRaceInYear(models.Math, "martian", 2011); return err }, ErrUnknownRace},
		{"race year", func() error { _, err := st.ProficientForSubjectByRaceInYear(models.Math, models.Asian, 2010); return err }, ErrUnknownData},
		{"all students year", func() error { _, err := st.ProficientForSubjectInYear(models.Math, 2013); return err }, ErrUnknownData},
		{"by grade", func() error { _, err := st.ProficientByGrade(5); return err }, ErrUnknownData},
		{"by race", func() error { _, err := st.ProficientByRaceOrEthnicity(models.Female); return err }, ErrUnknownRace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStatewideTesting_Groupings(t *testing.T) {
	st := New(academy()).StatewideTesting()

	byGrade, err := st.ProficientByGrade(3)
	if err != nil {
		t.Fatalf("ProficientByGrade: %v", err)
	}
	wantGrade := map[int]map[models.Subject]float64{
		2010: {models.Math: 0.4, models.Reading: 0.8},
		2013: {models.Math: 0.46},
	}
	if diff := cmp.Diff(wantGrade, byGrade); diff != "" {
		t.Errorf("ProficientByGrade(3) mismatch (-want +got):\n%s", diff)
	}

	byRace, err := st.ProficientByRaceOrEthnicity(models.Asian)
	if err != nil {
		t.Fatalf("ProficientByRaceOrEthnicity: %v", err)
	}
	wantRace := map[int]map[models.Subject]float64{
		2011: {models.Math: 0.816, models.Reading: 0.897},
		2012: {models.Math: 0.818},
	}
	if diff := cmp.Diff(wantRace, byRace); diff != "" {
		t.Errorf("ProficientByRaceOrEthnicity(asian) mismatch (-want +got):\n%s", diff)
	}
}

func TestStatewideTesting_AverageGrowth(t *testing.T) {
	st := New(academy()).StatewideTesting()

	got, ok := st.AverageGrowth(3, models.Math)
	if !ok {
		t.Fatal("expected growth for grade 3 math")
	}
	if math.Abs(got-0.02) > 1e-9 {
		t.Errorf("AverageGrowth(3, math) = %v, want 0.020", got)
	}

	if _, ok := st.AverageGrowth(3, models.Reading); ok {
		t.Error("single year of reading data should have no growth")
	}
	if _, ok := st.AverageGrowth(8, models.Writing); ok {
		t.Error("no writing data should have no growth")
	}

	rec := *models.NewRecord("Falling")
	rec.Testing.ByGrade = []models.GradeProficiency{
		{Year: 2012, Subject: models.Math, Grade: 8, Proficiency: 0.5},
		{Year: 2008, Subject: models.Math, Grade: 8, Proficiency: 0.7},
	}
	got, ok = New(rec).StatewideTesting().AverageGrowth(8, models.Math)
	if !ok || math.Abs(got-(-0.05)) > 1e-9 {
		t.Errorf("AverageGrowth(8, math) = %v, %v, want -0.05", got, ok)
	}
}
