// Package district wraps ingested records in typed, validated accessors and
// indexes them by name.
package district

import (
	"strings"

	"github.com/lox/headcount/internal/models"
)

// District is immutable once constructed.
type District struct {
	record           models.Record
	enrollment       *Enrollment
	economicProfile  *EconomicProfile
	statewideTesting *StatewideTesting
}

// New copies rec, so later changes to the caller's maps and slices are not
// seen by the district.
func New(rec models.Record) *District {
	rec = rec.Clone()
	rec.Name = strings.ToUpper(rec.Name)
	return &District{
		record:           rec,
		enrollment:       &Enrollment{rec: rec.Enrollment},
		economicProfile:  &EconomicProfile{rec: rec.EconomicProfile},
		statewideTesting: &StatewideTesting{rec: rec.Testing},
	}
}

func (d *District) Name() string {
	return d.record.Name
}

func (d *District) Enrollment() *Enrollment {
	return d.enrollment
}

func (d *District) EconomicProfile() *EconomicProfile {
	return d.economicProfile
}

func (d *District) StatewideTesting() *StatewideTesting {
	return d.statewideTesting
}

// Record returns a copy of the underlying record for serialization.
func (d *District) Record() models.Record {
	return d.record.Clone()
}
