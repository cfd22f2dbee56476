// Package ingest runs the row ingestors over every source table and merges
// their output into one record per district.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lox/headcount/internal/metrics"
	"github.com/lox/headcount/internal/models"
	"github.com/lox/headcount/internal/source"
)

// SourceReport describes what one table contributed to a build.
type SourceReport struct {
	Table     string
	RowsRead  int
	RowsKept  int
	Skipped   int
	Coerced   int
	Districts int
	StartedAt time.Time
	Duration  time.Duration
}

// Report summarizes a build.
type Report struct {
	Sources   []SourceReport
	Districts int
	StartedAt time.Time
	Duration  time.Duration

	// QualityFlags counts districts carrying each ValidateRecord flag.
	QualityFlags map[string]int
}

type Builder struct {
	src    source.Source
	tables []table
}

func NewBuilder(src source.Source) *Builder {
	return &Builder{src: src, tables: tables}
}

// Build reads every table in the fixed sequence and merges the results.
// Any failure aborts the whole build and no records are returned.
func (b *Builder) Build(ctx context.Context) ([]models.Record, *Report, error) {
	report := &Report{StartedAt: time.Now().UTC(), QualityFlags: make(map[string]int)}
	acc := NewPartial()

	for _, t := range b.tables {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		sr, part, err := b.ingestTable(ctx, t)
		if err != nil {
			log.Printf("ingest: %s: %v", t.name, err)
			return nil, nil, err
		}
		if err := acc.Merge(part); err != nil {
			return nil, nil, fmt.Errorf("merge %s: %w", t.name, err)
		}
		report.Sources = append(report.Sources, sr)
		log.Printf("ingest: %s: %d rows, %d kept, %d skipped, %d districts", t.name, sr.RowsRead, sr.RowsKept, sr.Skipped, sr.Districts)
	}

	records := acc.Records()
	report.Districts = len(records)
	for _, rec := range records {
		flags := ValidateRecord(rec)
		if len(flags) == 0 {
			continue
		}
		log.Printf("ingest: %s: quality flags %v", rec.Name, flags)
		for _, f := range flags {
			report.QualityFlags[f]++
			metrics.QualityFlags.WithLabelValues(f).Inc()
		}
	}
	report.Duration = time.Since(report.StartedAt)

	metrics.BuildDuration.Observe(report.Duration.Seconds())
	metrics.DistrictsBuilt.Set(float64(len(records)))
	log.Printf("ingest: built %d districts from %d tables in %s", len(records), len(report.Sources), report.Duration.Round(time.Millisecond))
	return records, report, nil
}

func (b *Builder) ingestTable(ctx context.Context, t table) (SourceReport, *Partial, error) {
	sr := SourceReport{Table: t.name, StartedAt: time.Now().UTC()}

	rows, err := b.src.Rows(ctx, t.name)
	if err != nil {
		return sr, nil, fmt.Errorf("read %s: %w", t.name, err)
	}
	if err := requireColumns(t.name, rows, t.columns); err != nil {
		return sr, nil, err
	}

	r := &run{table: t.name}
	part, err := t.ingest(r, rows)
	if err != nil {
		return sr, nil, err
	}

	sr.RowsRead = len(rows)
	sr.RowsKept = r.kept
	sr.Skipped = r.skipped
	sr.Coerced = r.coerced
	sr.Districts = part.Len()
	sr.Duration = time.Since(sr.StartedAt)

	metrics.RowsRead.WithLabelValues(t.name).Add(float64(sr.RowsRead))
	metrics.RowsSkipped.WithLabelValues(t.name).Add(float64(sr.Skipped))
	if r.coerced > 0 {
		metrics.CellsCoerced.WithLabelValues(t.name).Add(float64(r.coerced))
		log.Printf("ingest: %s: coerced %d non-numeric cells to 0", t.name, r.coerced)
	}
	return sr, part, nil
}
