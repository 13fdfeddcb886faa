package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/raphaelgruber/contextuse-go/internal/models"
	"github.com/raphaelgruber/contextuse-go/internal/payload"
)

// sqliteSchema creates the three pipeline tables. The UNIQUE constraint on
// threads.unique_key is what makes re-ingestion idempotent: the loader
// inserts with ON CONFLICT DO NOTHING and duplicate keys land zero rows.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS archives (
	id TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS etl_tasks (
	id TEXT PRIMARY KEY,
	archive_id TEXT NOT NULL REFERENCES archives(id),
	provider TEXT NOT NULL,
	interaction_type TEXT NOT NULL,
	source_uri TEXT NOT NULL,
	status TEXT NOT NULL,
	extracted_count INTEGER NOT NULL DEFAULT 0,
	transformed_count INTEGER NOT NULL DEFAULT 0,
	uploaded_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS etl_tasks_archive ON etl_tasks(archive_id);

CREATE TABLE IF NOT EXISTS threads (
	id TEXT PRIMARY KEY,
	unique_key TEXT NOT NULL UNIQUE,
	etl_task_id TEXT NOT NULL REFERENCES etl_tasks(id),
	provider TEXT NOT NULL,
	interaction_type TEXT NOT NULL,
	preview TEXT NOT NULL,
	payload TEXT NOT NULL,
	asset_uri TEXT,
	source TEXT,
	version TEXT NOT NULL,
	asat TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS threads_task ON threads(etl_task_id);
`

// SQLite is a Store backed by a local SQLite database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the SQLite database at path.
// Use ":memory:" for an ephemeral database.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite handles one writer at a time; serialize access through a
	// single connection to avoid SQLITE_BUSY under concurrent tasks.
	db.SetMaxOpenConns(1)
	return &SQLite{db: db}, nil
}

func (s *SQLite) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) CreateArchive(ctx context.Context, a *models.Archive) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO archives (id, provider, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Provider, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	return nil
}

func (s *SQLite) GetArchive(ctx context.Context, id string) (*models.Archive, error) {
	var a models.Archive
	err := s.db.QueryRowContext(ctx,
		`SELECT id, provider, status, created_at, updated_at FROM archives WHERE id = ?`, id).
		Scan(&a.ID, &a.Provider, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get archive: %w", err)
	}
	return &a, nil
}

func (s *SQLite) UpdateArchive(ctx context.Context, a *models.Archive) error {
	a.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE archives SET status = ?, updated_at = ? WHERE id = ?`,
		a.Status, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update archive: %w", err)
	}
	return nil
}

func (s *SQLite) ListArchives(ctx context.Context, status models.ArchiveStatus) ([]models.Archive, error) {
	query := `SELECT id, provider, status, created_at, updated_at FROM archives`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var archives []models.Archive
	for rows.Next() {
		var a models.Archive
		if err := rows.Scan(&a.ID, &a.Provider, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		archives = append(archives, a)
	}
	return archives, rows.Err()
}

func (s *SQLite) CreateTask(ctx context.Context, t *models.EtlTask) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO etl_tasks
			(id, archive_id, provider, interaction_type, source_uri, status,
			 extracted_count, transformed_count, uploaded_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ArchiveID, t.Provider, t.InteractionType, t.SourceURI, t.Status,
		t.ExtractedCount, t.TransformedCount, t.UploadedCount, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *SQLite) UpdateTask(ctx context.Context, t *models.EtlTask) error {
	t.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE etl_tasks
		 SET status = ?, extracted_count = ?, transformed_count = ?, uploaded_count = ?, updated_at = ?
		 WHERE id = ?`,
		t.Status, t.ExtractedCount, t.TransformedCount, t.UploadedCount, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (s *SQLite) ListTasks(ctx context.Context, archiveID string) ([]models.EtlTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, archive_id, provider, interaction_type, source_uri, status,
			extracted_count, transformed_count, uploaded_count, created_at, updated_at
		 FROM etl_tasks WHERE archive_id = ? ORDER BY created_at`, archiveID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.EtlTask
	for rows.Next() {
		var t models.EtlTask
		if err := rows.Scan(&t.ID, &t.ArchiveID, &t.Provider, &t.InteractionType,
			&t.SourceURI, &t.Status, &t.ExtractedCount, &t.TransformedCount,
			&t.UploadedCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLite) InsertThreads(ctx context.Context, taskID string, rows []models.ThreadRow) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO threads
			(id, unique_key, etl_task_id, provider, interaction_type, preview,
			 payload, asset_uri, source, version, asat, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(unique_key) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	total := 0
	for _, row := range rows {
		payloadJSON, err := json.Marshal(row.Payload)
		if err != nil {
			return 0, fmt.Errorf("marshal payload %s: %w", row.UniqueKey, err)
		}
		res, err := stmt.ExecContext(ctx,
			uuid.NewString(), row.UniqueKey, taskID, row.Provider, row.InteractionType,
			row.Preview, string(payloadJSON), row.AssetURI, row.Source, row.Version,
			row.Asat, now, now)
		if err != nil {
			return 0, fmt.Errorf("insert thread %s: %w", row.UniqueKey, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

func (s *SQLite) CountThreads(ctx context.Context, archiveID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM threads t
		 JOIN etl_tasks e ON e.id = t.etl_task_id
		 WHERE e.archive_id = ?`, archiveID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count threads: %w", err)
	}
	return count, nil
}

// ThreadByKey loads one thread row and decodes its payload. Used by tests
// and auditing tools.
func (s *SQLite) ThreadByKey(ctx context.Context, uniqueKey string) (*models.ThreadRow, error) {
	var row models.ThreadRow
	var payloadJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT unique_key, provider, interaction_type, preview, payload,
			asset_uri, source, version, asat
		 FROM threads WHERE unique_key = ?`, uniqueKey).
		Scan(&row.UniqueKey, &row.Provider, &row.InteractionType, &row.Preview,
			&payloadJSON, &row.AssetURI, &row.Source, &row.Version, &row.Asat)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("thread by key: %w", err)
	}

	fibre, err := payload.Decode([]byte(payloadJSON))
	if err != nil {
		return nil, err
	}
	row.Payload = fibre
	return &row, nil
}
