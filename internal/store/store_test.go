package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"

	"github.com/lox/headcount/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func testRecords() []models.Record {
	academy := *models.NewRecord("Academy 20")
	academy.Enrollment.ParticipationByYear = map[int]int{2009: 22620, 2010: 23119}
	academy.Enrollment.GraduationRateByYear = map[int]float64{2010: 0.895}
	academy.Enrollment.DropoutRates = []models.DropoutRate{
		{Year: 2011, Category: models.All, Rate: 0.002},
		{Year: 2011, Category: models.Female, Rate: 0.002},
	}
	academy.Testing.ByGrade = []models.GradeProficiency{
		{Year: 2008, Subject: models.Math, Grade: 3, Proficiency: 0.857},
	}
	academy.Testing.ByRace = []models.RaceProficiency{
		{Year: 2011, Subject: models.Math, Race: models.Asian, Proficiency: 0.816},
	}
	academy.EconomicProfile.MedianHouseholdIncome = map[models.YearRange]int{
		{From: 2005, To: 2009}: 85060,
	}

	colorado := *models.NewRecord("Colorado")
	colorado.Enrollment.ParticipationByRace = []models.RaceRate{{Year: 2007, Race: models.White, Rate: 0.6}}

	return []models.Record{colorado, academy}
}

func TestMigrate_Idempotent(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("MigrationVersion() = %d, want %d", version, len(migrations))
	}
}

func TestSaveSnapshot(t *testing.T) {
	store := setupTestStore(t)

	latest, err := store.GetLatestSnapshot()
	if err != nil {
		t.Fatalf("GetLatestSnapshot: %v", err)
	}
	if latest != nil {
		t.Fatalf("GetLatestSnapshot() = %+v before any save, want nil", latest)
	}

	id, err := store.SaveSnapshot(testRecords())
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	latest, err = store.GetLatestSnapshot()
	if err != nil {
		t.Fatalf("GetLatestSnapshot: %v", err)
	}
	if latest == nil || latest.ID != id || latest.Districts != 2 {
		t.Fatalf("GetLatestSnapshot() = %+v, want id %d with 2 districts", latest, id)
	}

	names, err := store.GetDistrictNames(id)
	if err != nil {
		t.Fatalf("GetDistrictNames: %v", err)
	}
	if diff := cmp.Diff([]string{"COLORADO", "ACADEMY 20"}, names); diff != "" {
		t.Errorf("district names mismatch (-want +got):\n%s", diff)
	}

	counts, err := store.GetObservationCounts(id)
	if err != nil {
		t.Fatalf("GetObservationCounts: %v", err)
	}
	wantCounts := map[string]int{
		MetricParticipationByRace: 1,
		MetricDropoutRate:         2,
		MetricProficiencyByGrade:  1,
		MetricProficiencyByRace:   1,
	}
	if diff := cmp.Diff(wantCounts, counts); diff != "" {
		t.Errorf("observation counts mismatch (-want +got):\n%s", diff)
	}

	v, ok, err := store.yearlyValue(id, "ACADEMY 20", MetricParticipation, 2010)
	if err != nil || !ok || v != 23119 {
		t.Errorf("yearlyValue(participation, 2010) = %v, %v, %v, want 23119", v, ok, err)
	}
	v, ok, err = store.yearlyValue(id, "ACADEMY 20", MetricGraduationRate, 2010)
	if err != nil || !ok || v != 0.895 {
		t.Errorf("yearlyValue(graduation_rate, 2010) = %v, %v, %v, want 0.895", v, ok, err)
	}
	if _, ok, err := store.yearlyValue(id, "COLORADO", MetricGraduationRate, 2010); err != nil || ok {
		t.Errorf("yearlyValue for absent metric = %v, %v, want not found", ok, err)
	}

	incomes, err := store.incomeRanges(id, "ACADEMY 20")
	if err != nil {
		t.Fatalf("incomeRanges: %v", err)
	}
	if diff := cmp.Diff(map[models.YearRange]int{{From: 2005, To: 2009}: 85060}, incomes); diff != "" {
		t.Errorf("income ranges mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveSnapshot_DuplicateDistrictRollsBack(t *testing.T) {
	store := setupTestStore(t)

	records := []models.Record{*models.NewRecord("Denver"), *models.NewRecord("Denver")}
	if _, err := store.SaveSnapshot(records); err == nil {
		t.Fatal("expected error for duplicate district")
	}

	latest, err := store.GetLatestSnapshot()
	if err != nil {
		t.Fatalf("GetLatestSnapshot: %v", err)
	}
	if latest != nil {
		t.Errorf("GetLatestSnapshot() = %+v, want nil after rollback", latest)
	}
}

func TestIngestRuns(t *testing.T) {
	store := setupTestStore(t)

	id, err := store.SaveSnapshot(testRecords())
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	started := time.Now().UTC().Truncate(time.Second)
	succeeded := IngestRun{
		SnapshotID:  sql.NullInt64{Int64: id, Valid: true},
		Source:      "Pupil enrollment",
		StartedAt:   started,
		FinishedAt:  sql.NullTime{Time: started.Add(time.Second), Valid: true},
		RowsRead:    sql.NullInt64{Int64: 10, Valid: true},
		RowsKept:    sql.NullInt64{Int64: 8, Valid: true},
		RowsSkipped: sql.NullInt64{Int64: 2, Valid: true},
		Districts:   sql.NullInt64{Int64: 2, Valid: true},
		Success:     true,
	}
	if _, err := store.InsertIngestRun(succeeded); err != nil {
		t.Fatalf("InsertIngestRun: %v", err)
	}
	failed := IngestRun{
		Source:       "build",
		StartedAt:    started,
		ErrorMessage: sql.NullString{String: "unrecognized category label", Valid: true},
	}
	if _, err := store.InsertIngestRun(failed); err != nil {
		t.Fatalf("InsertIngestRun: %v", err)
	}

	runs, err := store.GetIngestRuns(id)
	if err != nil {
		t.Fatalf("GetIngestRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	if runs[0].Source != "Pupil enrollment" || runs[0].RowsSkipped.Int64 != 2 || !runs[0].Success {
		t.Errorf("run = %+v", runs[0])
	}

	errs, err := store.GetRecentIngestErrors(10)
	if err != nil {
		t.Fatalf("GetRecentIngestErrors: %v", err)
	}
	if len(errs) != 1 || errs[0].Source != "build" || errs[0].SnapshotID.Valid {
		t.Errorf("GetRecentIngestErrors = %+v", errs)
	}
}

func TestDocuments(t *testing.T) {
	store := setupTestStore(t)

	payload := []byte(`{"districts": []}`)
	id, err := store.StoreDocument(1, payload)
	if err != nil {
		t.Fatalf("StoreDocument: %v", err)
	}
	if id == 0 {
		t.Fatal("StoreDocument returned 0 for a new document")
	}

	dup, err := store.StoreDocument(2, payload)
	if err != nil {
		t.Fatalf("StoreDocument duplicate: %v", err)
	}
	if dup != 0 {
		t.Errorf("StoreDocument duplicate = %d, want 0", dup)
	}

	got, err := store.GetDocument(id)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("GetDocument = %q, want %q", got, payload)
	}

	hash := sha256.Sum256(payload)
	doc, err := store.GetDocumentByHash(hex.EncodeToString(hash[:]))
	if err != nil {
		t.Fatalf("GetDocumentByHash: %v", err)
	}
	if doc == nil || doc.ID != id || doc.SizeBytes != int64(len(payload)) {
		t.Errorf("GetDocumentByHash = %+v", doc)
	}

	missing, err := store.GetDocumentByHash("nope")
	if err != nil || missing != nil {
		t.Errorf("GetDocumentByHash(nope) = %+v, %v, want nil", missing, err)
	}
}

func TestCheckSnapshot(t *testing.T) {
	store := setupTestStore(t)

	id, err := store.SaveSnapshot(testRecords())
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	counts, err := store.CheckSnapshot(id, 2)
	if err != nil {
		t.Fatalf("CheckSnapshot: %v", err)
	}
	if counts[MetricDropoutRate] != 2 {
		t.Errorf("dropout observations = %d, want 2", counts[MetricDropoutRate])
	}

	if _, err := store.CheckSnapshot(id, 3); err == nil {
		t.Error("expected error for district count mismatch")
	}
}

func TestArchiveDocument(t *testing.T) {
	store := setupTestStore(t)

	payload := []byte(`{"districts": []}`)
	id, stored, err := store.ArchiveDocument(1, payload)
	if err != nil {
		t.Fatalf("ArchiveDocument: %v", err)
	}
	if id == 0 || !stored {
		t.Fatalf("ArchiveDocument = %d, %v, want new id", id, stored)
	}

	again, stored, err := store.ArchiveDocument(2, payload)
	if err != nil {
		t.Fatalf("ArchiveDocument duplicate: %v", err)
	}
	if again != id || stored {
		t.Errorf("ArchiveDocument duplicate = %d, %v, want %d, false", again, stored, id)
	}
}

// yearlyValue returns false when the district has no value for metric in year.
func (s *Store) yearlyValue(snapshotID int64, district, metric string, year int) (float64, bool, error) {
	var v float64
	err := s.db.QueryRow(`
		SELECT value FROM yearly_values
		WHERE snapshot_id = ? AND district = ? AND metric = ? AND year = ?
	`, snapshotID, district, metric, year).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// incomeRanges reads back a district's median household income rows.
func (s *Store) incomeRanges(snapshotID int64, district string) (map[models.YearRange]int, error) {
	rows, err := s.db.Query(`
		SELECT year_from, year_to, income FROM income_ranges
		WHERE snapshot_id = ? AND district = ?
	`, snapshotID, district)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[models.YearRange]int)
	for rows.Next() {
		var r models.YearRange
		var income int
		if err := rows.Scan(&r.From, &r.To, &income); err != nil {
			return nil, err
		}
		out[r] = income
	}
	return out, rows.Err()
}
