package loader

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/medivault/recall/metadata"
)

// RecordDB reads patient health records from a SQLite database.
type RecordDB struct {
	db *sql.DB
}

// PatientRecord is one row of the health_records table.
type PatientRecord struct {
	RecordID string
	UserID   string
	Type     string
	Title    string
	Date     string
	Content  string
}

// OpenRecordDB opens or creates the SQLite database at path and initializes
// the schema. Parent directories are created if they do not exist.
func OpenRecordDB(path string) (*RecordDB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("loader: create records db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("loader: open records db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("loader: enable WAL: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS health_records (
		record_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		record_type TEXT,
		title TEXT,
		record_date TEXT,
		content TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_health_records_user ON health_records(user_id);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("loader: initialize records schema: %w", err)
	}

	return &RecordDB{db: db}, nil
}

// Close closes the underlying database.
func (r *RecordDB) Close() error {
	return r.db.Close()
}

// InsertRecord stores one patient record. Inserting an existing record_id
// replaces it.
func (r *RecordDB) InsertRecord(ctx context.Context, rec PatientRecord) error {
	if rec.RecordID == "" {
		return fmt.Errorf("loader: record_id is required")
	}
	if rec.UserID == "" {
		return fmt.Errorf("loader: user_id is required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO health_records (record_id, user_id, record_type, title, record_date, content)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RecordID, rec.UserID, rec.Type, rec.Title, rec.Date, rec.Content,
	)
	return err
}

// LoadChunks returns one chunk per record that has content. Records without
// content carry nothing to embed and are skipped.
func (r *RecordDB) LoadChunks(ctx context.Context) ([]Chunk, error) {
	// COALESCE because only record_id and user_id are NOT NULL; databases
	// written by other tools may carry NULLs in the remaining columns.
	rows, err := r.db.QueryContext(ctx,
		`SELECT record_id, user_id, COALESCE(record_type, ''), COALESCE(title, ''),
		        COALESCE(record_date, ''), COALESCE(content, '')
		 FROM health_records ORDER BY record_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("loader: query health records: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var rec PatientRecord
		if err := rows.Scan(&rec.RecordID, &rec.UserID, &rec.Type, &rec.Title, &rec.Date, &rec.Content); err != nil {
			return nil, fmt.Errorf("loader: scan health record: %w", err)
		}

		if rec.Content == "" {
			continue
		}

		chunks = append(chunks, Chunk{
			Text: fmt.Sprintf("Record type: %s. Title: %s. Date: %s. Content: %s.",
				rec.Type, rec.Title, rec.Date, rec.Content),
			Record: metadata.Record{
				"record_id":             rec.RecordID,
				metadata.FieldOwner:     rec.UserID,
				"type":                  rec.Type,
				"title":                 rec.Title,
				"date":                  rec.Date,
				metadata.FieldChunkType: "patient_record",
				metadata.FieldSource:    "sqlite",
			},
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loader: iterate health records: %w", err)
	}

	return chunks, nil
}

// CountRecords returns the number of stored records.
func (r *RecordDB) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM health_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("loader: count health records: %w", err)
	}
	return n, nil
}
