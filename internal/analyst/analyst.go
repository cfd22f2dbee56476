// Package analyst answers cross-district aggregate questions over a
// repository.
package analyst

import (
	"fmt"
	"sort"

	"github.com/lox/headcount/internal/district"
	"github.com/lox/headcount/internal/models"
	"github.com/lox/headcount/internal/normalize"
)

// Growth is a district's average yearly proficiency growth, truncated to
// three decimals.
type Growth struct {
	District string  `json:"district"`
	Growth   float64 `json:"growth"`
}

type Analyst struct {
	repo *district.Repository
}

func New(repo *district.Repository) *Analyst {
	return &Analyst{repo: repo}
}

// TopGrowthInGrade returns the district with the highest average growth for
// grade and subject. Districts without growth data are not considered. Ties
// go to the district that comes first in the repository.
func (a *Analyst) TopGrowthInGrade(grade int, subject models.Subject) (Growth, error) {
	leaders, err := a.TopGrowth(grade, subject, 1)
	if err != nil {
		return Growth{}, err
	}
	return leaders[0], nil
}

// TopGrowth returns up to n districts in descending order of growth.
func (a *Analyst) TopGrowth(grade int, subject models.Subject, n int) ([]Growth, error) {
	if err := district.ValidateGrade(grade); err != nil {
		return nil, err
	}
	if err := district.ValidateSubject(subject); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: top %d", district.ErrUnknownData, n)
	}

	type candidate struct {
		name   string
		growth float64
	}
	var candidates []candidate
	for _, d := range a.repo.Districts() {
		if g, ok := d.StatewideTesting().AverageGrowth(grade, subject); ok {
			candidates = append(candidates, candidate{d.Name(), g})
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no district has grade %d %s growth", district.ErrMissingData, grade, subject)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].growth > candidates[j].growth
	})

	n = min(n, len(candidates))
	out := make([]Growth, n)
	for i, c := range candidates[:n] {
		out[i] = Growth{District: c.name, Growth: normalize.Truncate(c.growth)}
	}
	return out, nil
}
