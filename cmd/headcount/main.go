package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/headcount/internal/analyst"
	"github.com/lox/headcount/internal/api"
	"github.com/lox/headcount/internal/district"
	"github.com/lox/headcount/internal/httputil"
	"github.com/lox/headcount/internal/ingest"
	"github.com/lox/headcount/internal/models"
	"github.com/lox/headcount/internal/source"
	"github.com/lox/headcount/internal/store"
)

type CLI struct {
	EnvFile kongdotenv.ENVFileConfig `embed:""`

	DataDir     string `help:"Directory holding the source tables as CSV or XLSX." env:"HEADCOUNT_DATA_DIR" default:"data" type:"path"`
	FTPAddr     string `name:"ftp-addr" help:"Read source tables from this FTP server (host:port) instead of data-dir." env:"HEADCOUNT_FTP_ADDR"`
	FTPDir      string `name:"ftp-dir" help:"Remote directory holding the tables." env:"HEADCOUNT_FTP_DIR" default:"/"`
	FTPUser     string `name:"ftp-user" env:"HEADCOUNT_FTP_USER"`
	FTPPassword string `name:"ftp-password" env:"HEADCOUNT_FTP_PASSWORD"`
	DocumentURL string `name:"document-url" help:"Fetch the structured JSON document from this URL instead of reading tables." env:"HEADCOUNT_DOCUMENT_URL"`

	Build  BuildCmd  `cmd:"" help:"Build every district and print a per-table report."`
	Find   FindCmd   `cmd:"" help:"Find districts by name."`
	Growth GrowthCmd `cmd:"" help:"Show the districts with the highest proficiency growth."`
	Export ExportCmd `cmd:"" help:"Write the built districts as a JSON document and optional SQLite snapshot."`
	Serve  ServeCmd  `cmd:"" help:"Serve the built districts over HTTP."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("headcount"),
		kong.Description("School district statistics: ingest, query and serve."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}

// load builds records from whichever source is configured. The report is
// nil for the document path.
func (c *CLI) load(ctx context.Context) ([]models.Record, *ingest.Report, error) {
	if c.DocumentURL != "" {
		log.Printf("source: fetching document from %s", c.DocumentURL)
		body, err := source.FetchDocument(ctx, httputil.NewClient(), c.DocumentURL)
		if err != nil {
			return nil, nil, err
		}
		records, err := ingest.DecodeDocument(bytes.NewReader(body))
		if err != nil {
			return nil, nil, err
		}
		return records, nil, nil
	}

	var src source.Source
	if c.FTPAddr != "" {
		log.Printf("source: reading tables from ftp://%s%s", c.FTPAddr, c.FTPDir)
		src = source.NewFTP(c.FTPAddr, c.FTPDir, c.FTPUser, c.FTPPassword)
	} else {
		log.Printf("source: reading tables from %s", c.DataDir)
		src = source.NewDir(c.DataDir)
	}
	return ingest.NewBuilder(src).Build(ctx)
}

func (c *CLI) repository(ctx context.Context) (*district.Repository, error) {
	records, _, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return district.NewRepository(records)
}

type BuildCmd struct{}

func (cmd *BuildCmd) Run(cli *CLI) error {
	records, report, err := cli.load(context.Background())
	if err != nil {
		return err
	}
	if report == nil {
		fmt.Printf("%d districts from document\n", len(records))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tREAD\tKEPT\tSKIPPED\tCOERCED\tDISTRICTS")
	for _, sr := range report.Sources {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n", sr.Table, sr.RowsRead, sr.RowsKept, sr.Skipped, sr.Coerced, sr.Districts)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d districts in %s\n", report.Districts, report.Duration.Round(time.Millisecond))
	return nil
}

type FindCmd struct {
	Fragment string `arg:"" optional:"" help:"Case-insensitive name fragment. Empty lists every district."`
	Exact    bool   `help:"Treat the argument as a full name and print the district record."`
}

func (cmd *FindCmd) Run(cli *CLI) error {
	repo, err := cli.repository(context.Background())
	if err != nil {
		return err
	}

	if cmd.Exact {
		d, ok := repo.FindByName(cmd.Fragment)
		if !ok {
			return fmt.Errorf("district %q not found", cmd.Fragment)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d.Record())
	}

	for _, d := range repo.FindAllMatching(cmd.Fragment) {
		fmt.Println(d.Name())
	}
	return nil
}

type GrowthCmd struct {
	Grade   int    `help:"Tested grade (3 or 8)." default:"3"`
	Subject string `help:"math, reading or writing." required:""`
	Top     int    `help:"Number of districts to list." default:"1"`
}

func (cmd *GrowthCmd) Run(cli *CLI) error {
	repo, err := cli.repository(context.Background())
	if err != nil {
		return err
	}

	leaders, err := analyst.New(repo).TopGrowth(cmd.Grade, models.Subject(cmd.Subject), cmd.Top)
	if err != nil {
		return err
	}
	for _, g := range leaders {
		fmt.Printf("%s\t%.3f\n", g.District, g.Growth)
	}
	return nil
}

type ExportCmd struct {
	Output string `short:"o" help:"Where to write the JSON document. - for stdout." default:"-"`
	DB     string `help:"Also save a snapshot to this SQLite database." env:"HEADCOUNT_DB"`
}

func (cmd *ExportCmd) Run(cli *CLI) error {
	var st *store.Store
	if cmd.DB != "" {
		db, err := openDB(cmd.DB)
		if err != nil {
			return err
		}
		defer db.Close()
		st = store.New(db)
		if err := st.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	started := time.Now().UTC()
	records, report, err := cli.load(context.Background())
	if err != nil {
		if st != nil {
			recordFailure(st, started, err)
		}
		return err
	}

	var buf bytes.Buffer
	if err := ingest.EncodeDocument(&buf, records); err != nil {
		return err
	}
	if err := writeOutput(cmd.Output, buf.Bytes()); err != nil {
		return err
	}

	if st == nil {
		return nil
	}
	previous, err := st.GetLatestSnapshot()
	if err != nil {
		return fmt.Errorf("latest snapshot: %w", err)
	}
	snapshotID, err := st.SaveSnapshot(records)
	if err != nil {
		return err
	}
	counts, err := st.CheckSnapshot(snapshotID, len(records))
	if err != nil {
		return fmt.Errorf("check snapshot: %w", err)
	}
	for _, metric := range slices.Sorted(maps.Keys(counts)) {
		log.Printf("export: snapshot %d: %s: %d observations", snapshotID, metric, counts[metric])
	}
	if report != nil {
		for _, sr := range report.Sources {
			if _, err := st.InsertIngestRun(ingestRun(snapshotID, sr)); err != nil {
				return fmt.Errorf("record ingest run: %w", err)
			}
		}
	}
	docID, stored, err := st.ArchiveDocument(snapshotID, buf.Bytes())
	if err != nil {
		return fmt.Errorf("archive document: %w", err)
	}
	if !stored {
		log.Printf("export: document unchanged, already archived as %d", docID)
	}
	if previous != nil {
		log.Printf("export: previous snapshot %d had %d districts", previous.ID, previous.Districts)
	}
	log.Printf("export: saved snapshot %d with %d districts to %s", snapshotID, len(records), cmd.DB)
	return nil
}

type ServeCmd struct {
	Port string `help:"HTTP server port." env:"HEADCOUNT_PORT" default:"8080"`
}

func (cmd *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	records, _, err := cli.load(ctx)
	if err != nil {
		return err
	}
	repo, err := district.NewRepository(records)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := ingest.EncodeDocument(&buf, records); err != nil {
		return err
	}

	server := api.NewServer(repo, buf.Bytes(), time.Now().UTC(), cmd.Port)
	log.Printf("starting server on :%s with %d districts", cmd.Port, repo.Len())
	return server.Run(ctx)
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	return db, nil
}

func ingestRun(snapshotID int64, sr ingest.SourceReport) store.IngestRun {
	return store.IngestRun{
		SnapshotID:   sql.NullInt64{Int64: snapshotID, Valid: true},
		Source:       sr.Table,
		StartedAt:    sr.StartedAt,
		FinishedAt:   sql.NullTime{Time: sr.StartedAt.Add(sr.Duration), Valid: true},
		RowsRead:     sql.NullInt64{Int64: int64(sr.RowsRead), Valid: true},
		RowsKept:     sql.NullInt64{Int64: int64(sr.RowsKept), Valid: true},
		RowsSkipped:  sql.NullInt64{Int64: int64(sr.Skipped), Valid: true},
		CellsCoerced: sql.NullInt64{Int64: int64(sr.Coerced), Valid: true},
		Districts:    sql.NullInt64{Int64: int64(sr.Districts), Valid: true},
		Success:      true,
	}
}

func recordFailure(st *store.Store, started time.Time, buildErr error) {
	_, err := st.InsertIngestRun(store.IngestRun{
		Source:       "build",
		StartedAt:    started,
		FinishedAt:   sql.NullTime{Time: time.Now().UTC(), Valid: true},
		ErrorMessage: sql.NullString{String: buildErr.Error(), Valid: true},
	})
	if err != nil {
		log.Printf("export: record failed build: %v", err)
	}
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.Printf("export: wrote %s", path)
	return nil
}
