// Package archive keeps a summary of every parsed Wannier90 run in SQLite.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/Hanaasagi/w90parse/internal/wannier"
)

// ErrNotFound is returned when a requested run doesn't exist
var ErrNotFound = errors.New("not found")

// Run is the archived summary of one parse result
type Run struct {
	ID             int64
	Wout           string
	Seedname       string
	ProgramVersion string
	NAtoms         int
	NWannier       int
	NBands         int
	NSegments      int
	FermiLevel     float64
	FermiSource    string
	Sections       []string
	Issues         []wannier.Issue
	CreatedAt      time.Time
}

// Summarize reduces a parse result to the fields the archive keeps
func Summarize(res *wannier.Result) Run {
	run := Run{
		Wout:           res.Files.Wout,
		Seedname:       res.Files.Seedname(),
		ProgramVersion: res.Program.Version,
		FermiLevel:     res.FermiLevel,
		FermiSource:    string(res.FermiSource),
	}
	if res.System != nil {
		run.NAtoms = res.System.NAtoms()
		run.Sections = append(run.Sections, wannier.SectionSystem)
	}
	if res.Method != nil {
		run.NWannier = res.Method.NOrbitals
		run.Sections = append(run.Sections, wannier.SectionMethod)
	}
	if res.Projections != nil {
		run.Sections = append(run.Sections, wannier.SectionProjections)
	}
	if res.Hoppings != nil && res.Hoppings.Value != nil {
		run.Sections = append(run.Sections, wannier.SectionHoppings)
	}
	if res.Bands != nil {
		run.NBands = res.Bands.NBands
		run.NSegments = len(res.Bands.Segments)
		run.Sections = append(run.Sections, wannier.SectionBands)
	}
	if res.DOS != nil {
		run.Sections = append(run.Sections, wannier.SectionDOS)
	}
	if res.Report != nil {
		run.Issues = append(run.Issues, res.Report.Issues...)
	}
	return run
}

// Store is an archive backed by SQLite
type Store struct {
	db *sql.DB
}

func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Open opens (or creates) the archive at path and migrates it
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Save archives the summary of res and returns the new run id
func (s *Store) Save(ctx context.Context, res *wannier.Result) (int64, error) {
	run := Summarize(res)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	id, err := insertRun(ctx, tx, &run)
	if err != nil {
		return 0, err
	}
	if err := insertIssues(ctx, tx, id, run.Issues); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

func insertRun(ctx context.Context, q querier, run *Run) (int64, error) {
	query := `
		INSERT INTO runs (wout, seedname, program_version, n_atoms, n_wannier, n_bands, n_segments,
		                  fermi_level, fermi_source, sections, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := q.ExecContext(ctx, query,
		run.Wout, run.Seedname, run.ProgramVersion, run.NAtoms, run.NWannier, run.NBands, run.NSegments,
		run.FermiLevel, run.FermiSource, strings.Join(run.Sections, ","), time.Now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return result.LastInsertId()
}

func insertIssues(ctx context.Context, q querier, runID int64, issues []wannier.Issue) error {
	query := `INSERT INTO issues (run_id, severity, kind, section, message) VALUES (?, ?, ?, ?, ?)`
	for _, i := range issues {
		if _, err := q.ExecContext(ctx, query, runID, i.Severity.String(), string(i.Kind), i.Section, i.Message); err != nil {
			return fmt.Errorf("failed to insert issue: %w", err)
		}
	}
	return nil
}

const runColumns = `id, wout, seedname, program_version, n_atoms, n_wannier, n_bands, n_segments,
		       fermi_level, fermi_source, sections, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run      Run
		sections string
		created  int64
	)
	err := row.Scan(&run.ID, &run.Wout, &run.Seedname, &run.ProgramVersion, &run.NAtoms, &run.NWannier,
		&run.NBands, &run.NSegments, &run.FermiLevel, &run.FermiSource, &sections, &created)
	if err != nil {
		return nil, err
	}
	if sections != "" {
		run.Sections = strings.Split(sections, ",")
	}
	run.CreatedAt = time.Unix(0, created)
	return &run, nil
}

// Get loads one run with its issues
func (s *Store) Get(ctx context.Context, id int64) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Issues, err = s.issues(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) issues(ctx context.Context, q querier, runID int64) ([]wannier.Issue, error) {
	rows, err := q.QueryContext(ctx, `SELECT severity, kind, section, message FROM issues WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	var out []wannier.Issue
	for rows.Next() {
		var (
			issue    wannier.Issue
			severity string
			kind     string
		)
		if err := rows.Scan(&severity, &kind, &issue.Section, &issue.Message); err != nil {
			return nil, err
		}
		issue.Kind = wannier.IssueKind(kind)
		if severity == wannier.SeverityError.String() {
			issue.Severity = wannier.SeverityError
		}
		out = append(out, issue)
	}
	return out, rows.Err()
}

// List returns every run, newest first. Issues are not loaded.
func (s *Store) List(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// Delete removes a run and its issues
func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SchemaVersion returns the version the archive is migrated to
func (s *Store) SchemaVersion(ctx context.Context) (*semver.Version, error) {
	return SchemaVersion(ctx, s.db)
}

// Rollback undoes the newest migration and returns the version left behind.
// The next Open migrates the archive forward again.
func (s *Store) Rollback(ctx context.Context) (*semver.Version, error) {
	if err := RollbackMigration(ctx, s.db); err != nil {
		return nil, err
	}
	return SchemaVersion(ctx, s.db)
}
