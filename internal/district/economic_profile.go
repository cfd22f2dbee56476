package district

import (
	"fmt"

	"github.com/lox/headcount/internal/models"
)

type EconomicProfile struct {
	rec models.EconomicRecord
}

func (p *EconomicProfile) Title1StudentsInYear(year int) (float64, error) {
	return inYear("title I students", p.rec.Title1StudentsByYear, year)
}

func (p *EconomicProfile) FreeOrReducedLunchInYear(year int) (float64, error) {
	return inYear("free or reduced lunch", p.rec.FreeOrReducedLunchByYear, year)
}

func (p *EconomicProfile) SchoolAgedChildrenInPovertyInYear(year int) (float64, error) {
	return inYear("school-aged children in poverty", p.rec.SchoolAgedChildrenInPovertyByYear, year)
}

// MedianHouseholdIncomeInRange looks up an exact census estimate window.
func (p *EconomicProfile) MedianHouseholdIncomeInRange(r models.YearRange) (int, error) {
	income, ok := p.rec.MedianHouseholdIncome[r]
	if !ok {
		return 0, fmt.Errorf("%w: median household income for %s", ErrMissingData, r)
	}
	return income, nil
}

// EstimatedMedianHouseholdIncomeInYear averages every estimate window that
// covers year.
func (p *EconomicProfile) EstimatedMedianHouseholdIncomeInYear(year int) (int, error) {
	sum, n := 0, 0
	for r, income := range p.rec.MedianHouseholdIncome {
		if r.Contains(year) {
			sum += income
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: median household income in %d", ErrMissingData, year)
	}
	return sum / n, nil
}

func (p *EconomicProfile) MedianHouseholdIncomeAverage() (int, error) {
	if len(p.rec.MedianHouseholdIncome) == 0 {
		return 0, fmt.Errorf("%w: median household income", ErrMissingData)
	}
	sum := 0
	for _, income := range p.rec.MedianHouseholdIncome {
		sum += income
	}
	return sum / len(p.rec.MedianHouseholdIncome), nil
}
