package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/sitebook/sitebook/internal/model"
)

// Archive provides SQLite-based storage of compile runs and their
// crawled pages. It manages connection pooling and provides methods
// for saving and reloading runs.
//
// Design decision: We use a single database file for all volumes
// rather than one file per volume. This keeps run history queries in
// one place and simplifies backup.
type Archive struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Archive behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default archive options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an Archive in the specified directory.
// If CreateIfNotExists is false and the database doesn't exist, an
// error is returned instead of silently creating an empty archive.
func Open(dbDir string, opts Options) (*Archive, error) {
	dbPath := filepath.Join(dbDir, "sitebook.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("archive not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check archive path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	a := &Archive{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := a.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// createTables creates the archive schema if it doesn't exist.
func (a *Archive) createTables() error {
	schema := `
	-- Runs record one volume compilation each
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		volume TEXT NOT NULL,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME,
		page_count INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_volume ON runs(volume);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Pages store fetched content keyed by run and canonical URL
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		section TEXT NOT NULL,
		title TEXT,
		status_code INTEGER,
		content_type TEXT,
		depth INTEGER,
		parent_url TEXT,
		ord INTEGER,
		seq INTEGER,
		boundary INTEGER DEFAULT 0,
		hash TEXT,
		raw BLOB,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := a.db.ExecContext(context.Background(), schema)
	return err
}

// BeginRun records the start of a compilation and returns the run ID.
func (a *Archive) BeginRun(ctx context.Context, volume string) (int64, error) {
	result, err := a.db.ExecContext(ctx,
		`INSERT INTO runs (volume) VALUES (?)`, volume)
	if err != nil {
		return 0, fmt.Errorf("failed to begin run: %w", err)
	}
	return result.LastInsertId()
}

// FinishRun stamps a run as completed with its final page count.
func (a *Archive) FinishRun(ctx context.Context, runID int64, pageCount int) error {
	_, err := a.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = CURRENT_TIMESTAMP, page_count = ? WHERE id = ?`,
		pageCount, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// SavePage stores one crawled page under a run.
// Uses UPSERT to handle duplicates (same run + canonical URL).
func (a *Archive) SavePage(ctx context.Context, runID int64, page *model.Page) error {
	query := `
	INSERT INTO pages (run_id, url, section, title, status_code, content_type, depth, parent_url, ord, seq, boundary, hash, raw)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		section = excluded.section,
		title = excluded.title,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		depth = excluded.depth,
		parent_url = excluded.parent_url,
		ord = excluded.ord,
		seq = excluded.seq,
		boundary = excluded.boundary,
		hash = excluded.hash,
		raw = excluded.raw
	`

	boundary := 0
	if page.Boundary {
		boundary = 1
	}

	_, err := a.db.ExecContext(ctx, query,
		runID,
		page.URL,
		page.Section,
		page.Title,
		page.StatusCode,
		page.ContentType,
		page.Depth,
		page.ParentURL,
		page.Order,
		page.Seq,
		boundary,
		page.Hash,
		page.Raw,
	)
	if err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}
	return nil
}

// SaveSections stores every page of the sections under a run.
func (a *Archive) SaveSections(ctx context.Context, runID int64, sections []*model.Section) error {
	for _, section := range sections {
		for _, page := range section.Pages {
			if err := a.SavePage(ctx, runID, page); err != nil {
				return err
			}
		}
	}
	return nil
}

// RunInfo summarizes one archived run.
type RunInfo struct {
	// ID is the run's database identifier.
	ID int64

	// Volume is the compiled volume name.
	Volume string

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when the run completed; zero for unfinished runs.
	FinishedAt time.Time

	// PageCount is the number of pages the run fetched.
	PageCount int
}

// LatestRun returns the most recent finished run for a volume, or nil
// when the volume was never archived.
func (a *Archive) LatestRun(ctx context.Context, volume string) (*RunInfo, error) {
	query := `
	SELECT id, volume, started_at, finished_at, page_count
	FROM runs
	WHERE volume = ? AND finished_at IS NOT NULL
	ORDER BY started_at DESC, id DESC
	LIMIT 1
	`

	var info RunInfo
	var started string
	var finished sql.NullString

	err := a.db.QueryRowContext(ctx, query, volume).Scan(
		&info.ID, &info.Volume, &started, &finished, &info.PageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	info.StartedAt = parseTimestamp(started)
	if finished.Valid {
		info.FinishedAt = parseTimestamp(finished.String)
	}
	return &info, nil
}

// LoadPages reloads all pages of a run grouped into sections, in the
// order they were crawled.
func (a *Archive) LoadPages(ctx context.Context, runID int64) ([]*model.Section, error) {
	query := `
	SELECT url, section, title, status_code, content_type, depth, parent_url, ord, seq, boundary, hash, raw
	FROM pages
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := a.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}
	defer rows.Close()

	var sections []*model.Section
	byName := make(map[string]*model.Section)

	for rows.Next() {
		var page model.Page
		var boundary int
		err := rows.Scan(
			&page.URL,
			&page.Section,
			&page.Title,
			&page.StatusCode,
			&page.ContentType,
			&page.Depth,
			&page.ParentURL,
			&page.Order,
			&page.Seq,
			&boundary,
			&page.Hash,
			&page.Raw,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		page.Boundary = boundary != 0

		section, ok := byName[page.Section]
		if !ok {
			section = &model.Section{Name: page.Section}
			byName[page.Section] = section
			sections = append(sections, section)
		}
		section.Pages = append(section.Pages, &page)
	}

	return sections, rows.Err()
}

// ListRuns returns all archived runs, newest first.
func (a *Archive) ListRuns(ctx context.Context) ([]RunInfo, error) {
	query := `
	SELECT id, volume, started_at, finished_at, page_count
	FROM runs
	ORDER BY started_at DESC, id DESC
	`

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		var started string
		var finished sql.NullString

		if err := rows.Scan(&info.ID, &info.Volume, &started, &finished, &info.PageCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		info.StartedAt = parseTimestamp(started)
		if finished.Valid {
			info.FinishedAt = parseTimestamp(finished.String)
		}
		runs = append(runs, info)
	}

	return runs, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may
// return. The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. SQLite may return timestamps in different formats depending
// on configuration. Returns zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
