// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index maintains a SQLite full-text index over stored document
// records, for searching the accumulating corpus of generated documents.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/sop-engine/internal/store"
	"github.com/pdiddy/sop-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "records.db"
)

// Index manages the record index SQLite database.
type Index struct {
	db         *sql.DB
	maxResults int
}

// Open opens or creates the index database at dataDir/index/records.db and
// creates the schema if it does not exist.
func Open(cfg types.IndexConfig) (*Index, error) {
	dbDir := filepath.Join(cfg.DataDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	idx := &Index{db: db, maxResults: maxResults}
	if err := idx.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return idx, nil
}

// Close releases the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

func (x *Index) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			content TEXT NOT NULL,
			steps TEXT,
			roles TEXT,
			notes TEXT,
			template_type TEXT,
			feedback_score REAL,
			feedback_text TEXT,
			created TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_type ON records(type)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			key TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := x.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := x.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='records_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE records_fts USING fts5(content, content=records, content_rowid=rowid)`,
			`CREATE TRIGGER records_ai AFTER INSERT ON records BEGIN
				INSERT INTO records_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
			`CREATE TRIGGER records_ad AFTER DELETE ON records BEGIN
				INSERT INTO records_fts(records_fts, rowid, content) VALUES('delete', old.rowid, old.content);
			END`,
			`CREATE TRIGGER records_au AFTER UPDATE ON records BEGIN
				INSERT INTO records_fts(records_fts, rowid, content) VALUES('delete', old.rowid, old.content);
				INSERT INTO records_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := x.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from an index ingestion run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of records processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest populates the index from a store scan. It detects new, changed,
// and unchanged records by file modification time for incremental updates.
func (x *Index) Ingest(ctx context.Context, records []store.ScannedRecord, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	for _, sr := range records {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		rec := sr.Record
		modTime := sr.ModTime.UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err := x.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE key = ?`, rec.Key,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", rec.Key)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		if err := x.ingestRecord(ctx, rec, modTime); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", rec.Key, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s\n", rec.Key)
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexed %s\n", rec.Key)
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	return summary, nil
}

func (x *Index) ingestRecord(ctx context.Context, rec *types.DocumentRecord, modTime string) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var score, text any
	if rec.Feedback != nil {
		score = rec.Feedback.Score
		text = rec.Feedback.Text
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (key, type, content, steps, roles, notes, template_type, feedback_score, feedback_text, created)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			content=excluded.content, steps=excluded.steps, roles=excluded.roles,
			notes=excluded.notes, template_type=excluded.template_type,
			feedback_score=excluded.feedback_score, feedback_text=excluded.feedback_text,
			created=excluded.created`,
		rec.Key, string(rec.Input.Type), rec.GeneratedContent,
		rec.Input.Steps, rec.Input.Roles, rec.Input.Notes,
		rec.Metadata[types.MetaTemplateType], score, text, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("upserting record: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (key, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		rec.Key, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}
