package runstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hochfrequenz/gamecraft-orchestrator/internal/domain"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence of run outcomes, indexing the
// per-run manifests for listing and inspection.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts or replaces a run record
func (s *Store) SaveRun(rec *domain.RunRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, image, prompt, action_list, action_tag, tier, precision,
			seed, infer_steps, save_path, video_path, overlay_path, status,
			started_at, finished_at, wait_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			video_path = excluded.video_path,
			overlay_path = excluded.overlay_path,
			status = excluded.status,
			finished_at = excluded.finished_at,
			wait_seconds = excluded.wait_seconds
	`,
		rec.ID,
		rec.Request.SourceImage,
		rec.Request.Prompt,
		rec.Request.Actions.Wire(),
		rec.Request.Actions.Tag(),
		string(rec.Request.Tier),
		string(rec.Request.Precision),
		rec.Request.Seed,
		rec.Request.InferSteps,
		rec.SavePath,
		rec.VideoPath,
		rec.OverlayOutput,
		string(rec.Status),
		rec.StartedAt,
		rec.FinishedAt,
		rec.WaitSeconds,
	)
	return err
}

// Run is a stored run row
type Run struct {
	ID          string
	Image       string
	Prompt      string
	ActionList  string
	ActionTag   string
	Tier        string
	Precision   string
	Seed        int
	InferSteps  int
	SavePath    string
	VideoPath   string
	OverlayPath string
	Status      string
	StartedAt   time.Time
	FinishedAt  time.Time
	WaitSeconds int
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, image, prompt, action_list, action_tag, tier, precision,
			seed, infer_steps, save_path, video_path, overlay_path, status,
			started_at, finished_at, wait_seconds
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

// ListOptions specifies filters for listing runs
type ListOptions struct {
	Status string
	Image  string
	Limit  int
}

// ListRuns returns runs matching the options, newest first
func (s *Store) ListRuns(opts ListOptions) ([]*Run, error) {
	query := `
		SELECT id, image, prompt, action_list, action_tag, tier, precision,
			seed, infer_steps, save_path, video_path, overlay_path, status,
			started_at, finished_at, wait_seconds
		FROM runs WHERE 1=1`
	var args []any

	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, opts.Status)
	}
	if opts.Image != "" {
		query += " AND image LIKE ?"
		args = append(args, "%"+opts.Image+"%")
	}
	query += " ORDER BY started_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	err := row.Scan(
		&r.ID, &r.Image, &r.Prompt, &r.ActionList, &r.ActionTag,
		&r.Tier, &r.Precision, &r.Seed, &r.InferSteps,
		&r.SavePath, &r.VideoPath, &r.OverlayPath, &r.Status,
		&r.StartedAt, &r.FinishedAt, &r.WaitSeconds,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
