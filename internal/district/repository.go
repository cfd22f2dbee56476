package district

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lox/headcount/internal/models"
)

// Repository indexes districts by lower-cased name. It is read-only after
// construction and safe for concurrent readers.
type Repository struct {
	byName    map[string]*District
	districts []*District
}

func NewRepository(records []models.Record) (*Repository, error) {
	r := &Repository{
		byName:    make(map[string]*District, len(records)),
		districts: make([]*District, 0, len(records)),
	}
	for _, rec := range records {
		d := New(rec)
		key := strings.ToLower(d.Name())
		if _, ok := r.byName[key]; ok {
			return nil, fmt.Errorf("duplicate district %q", d.Name())
		}
		r.byName[key] = d
		r.districts = append(r.districts, d)
	}
	return r, nil
}

// FindByName is a case-insensitive exact match.
func (r *Repository) FindByName(name string) (*District, bool) {
	d, ok := r.byName[strings.ToLower(name)]
	return d, ok
}

// FindAllMatching returns every district whose name contains fragment,
// ignoring case, in insertion order. An empty fragment matches all.
func (r *Repository) FindAllMatching(fragment string) []*District {
	fragment = strings.ToLower(fragment)
	var out []*District
	for _, d := range r.districts {
		if strings.Contains(strings.ToLower(d.Name()), fragment) {
			out = append(out, d)
		}
	}
	return out
}

func (r *Repository) Districts() []*District {
	return slices.Clone(r.districts)
}

func (r *Repository) Len() int {
	return len(r.districts)
}
