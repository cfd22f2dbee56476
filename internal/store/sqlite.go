// Package store writes built district records to SQLite as export
// snapshots. Snapshots are never loaded back into a running repository.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lox/headcount/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Snapshot is one saved build.
type Snapshot struct {
	ID        int64
	CreatedAt time.Time
	Districts int
}

// Metric names used in yearly_values and observations.
const (
	MetricParticipation             = "participation"
	MetricOnlineParticipation       = "online_participation"
	MetricKindergartenParticipation = "kindergarten_participation"
	MetricGraduationRate            = "graduation_rate"
	MetricSpecialEducation          = "special_education"
	MetricRemediation               = "remediation"
	MetricTitle1Students            = "title_1_students"
	MetricFreeOrReducedLunch        = "free_or_reduced_lunch"
	MetricChildrenInPoverty         = "school_aged_children_in_poverty"
	MetricParticipationByRace       = "participation_by_race"
	MetricDropoutRate               = "dropout_rate"
	MetricProficiencyByGrade        = "proficiency_by_grade"
	MetricProficiencyByRace         = "proficiency_by_race"
)

// SaveSnapshot writes records in one transaction and returns the snapshot ID.
func (s *Store) SaveSnapshot(records []models.Record) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`INSERT INTO snapshots (created_at, districts) VALUES (?, ?)`, time.Now().UTC(), len(records))
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, rec := range records {
		if err := saveRecord(tx, id, i, rec); err != nil {
			return 0, fmt.Errorf("save %s: %w", rec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}
	return id, nil
}

func saveRecord(tx *sql.Tx, snapshotID int64, position int, rec models.Record) error {
	if _, err := tx.Exec(`INSERT INTO districts (snapshot_id, name, position) VALUES (?, ?, ?)`, snapshotID, rec.Name, position); err != nil {
		return err
	}

	e, p := rec.Enrollment, rec.EconomicProfile
	yearly := []struct {
		metric string
		values map[int]float64
	}{
		{MetricParticipation, toFloats(e.ParticipationByYear)},
		{MetricOnlineParticipation, toFloats(e.OnlineParticipationByYear)},
		{MetricKindergartenParticipation, e.KindergartenParticipationByYear},
		{MetricGraduationRate, e.GraduationRateByYear},
		{MetricSpecialEducation, e.SpecialEducationByYear},
		{MetricRemediation, e.RemediationByYear},
		{MetricTitle1Students, p.Title1StudentsByYear},
		{MetricFreeOrReducedLunch, p.FreeOrReducedLunchByYear},
		{MetricChildrenInPoverty, p.SchoolAgedChildrenInPovertyByYear},
	}
	for _, y := range yearly {
		for year, v := range y.values {
			if _, err := tx.Exec(`
				INSERT INTO yearly_values (snapshot_id, district, metric, year, value)
				VALUES (?, ?, ?, ?, ?)
			`, snapshotID, rec.Name, y.metric, year, v); err != nil {
				return fmt.Errorf("insert %s: %w", y.metric, err)
			}
		}
	}

	for r, income := range p.MedianHouseholdIncome {
		if _, err := tx.Exec(`
			INSERT INTO income_ranges (snapshot_id, district, year_from, year_to, income)
			VALUES (?, ?, ?, ?, ?)
		`, snapshotID, rec.Name, r.From, r.To, income); err != nil {
			return fmt.Errorf("insert income range: %w", err)
		}
	}

	insert := func(metric string, year int, subject, grade, category any, value float64) error {
		_, err := tx.Exec(`
			INSERT INTO observations (snapshot_id, district, metric, year, subject, grade, category, value)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, snapshotID, rec.Name, metric, year, subject, grade, category, value)
		if err != nil {
			return fmt.Errorf("insert %s: %w", metric, err)
		}
		return nil
	}
	for _, o := range e.ParticipationByRace {
		if err := insert(MetricParticipationByRace, o.Year, nil, nil, string(o.Race), o.Rate); err != nil {
			return err
		}
	}
	for _, o := range e.DropoutRates {
		if err := insert(MetricDropoutRate, o.Year, nil, nil, string(o.Category), o.Rate); err != nil {
			return err
		}
	}
	for _, o := range rec.Testing.ByGrade {
		if err := insert(MetricProficiencyByGrade, o.Year, string(o.Subject), o.Grade, nil, o.Proficiency); err != nil {
			return err
		}
	}
	for _, o := range rec.Testing.ByRace {
		if err := insert(MetricProficiencyByRace, o.Year, string(o.Subject), nil, string(o.Race), o.Proficiency); err != nil {
			return err
		}
	}
	return nil
}

func toFloats(m map[int]int) map[int]float64 {
	out := make(map[int]float64, len(m))
	for k, v := range m {
		out[k] = float64(v)
	}
	return out
}

// GetLatestSnapshot returns nil if nothing has been saved.
func (s *Store) GetLatestSnapshot() (*Snapshot, error) {
	var snap Snapshot
	err := s.db.QueryRow(`SELECT id, created_at, districts FROM snapshots ORDER BY id DESC LIMIT 1`).
		Scan(&snap.ID, &snap.CreatedAt, &snap.Districts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetDistrictNames returns a snapshot's district names in build order.
func (s *Store) GetDistrictNames(snapshotID int64) ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM districts WHERE snapshot_id = ? ORDER BY position`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetObservationCounts returns the number of observation rows per metric.
func (s *Store) GetObservationCounts(snapshotID int64) (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT metric, COUNT(*) FROM observations
		WHERE snapshot_id = ?
		GROUP BY metric
	`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var metric string
		var n int
		if err := rows.Scan(&metric, &n); err != nil {
			return nil, err
		}
		counts[metric] = n
	}
	return counts, rows.Err()
}

// CheckSnapshot reads a saved snapshot back and fails when it does not hold
// want districts. It returns the observation row count per metric.
func (s *Store) CheckSnapshot(snapshotID int64, want int) (map[string]int, error) {
	names, err := s.GetDistrictNames(snapshotID)
	if err != nil {
		return nil, fmt.Errorf("read districts: %w", err)
	}
	if len(names) != want {
		return nil, fmt.Errorf("snapshot %d has %d districts, want %d", snapshotID, len(names), want)
	}
	return s.GetObservationCounts(snapshotID)
}
