package project

import (
	"context"
	"database/sql"
	"time"

	"github.com/clipforge/clipforge-agent/internal/db"
	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/timeline"
)

type Repository interface {
	SaveProject(ctx context.Context, p *Project, st timeline.State) error
	GetProject(ctx context.Context, id string) (*Project, error)
	LoadState(ctx context.Context, id string) (*timeline.State, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	RenameProject(ctx context.Context, id, name string) error
	DeleteProject(ctx context.Context, id string) error

	export.JobStore

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveProject upserts the project row and replaces its clips with the
// snapshot's sequence in one transaction.
func (r *SQLiteRepository) SaveProject(ctx context.Context, p *Project, st timeline.State) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projects (id, name, playhead, zoom_level, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				playhead = excluded.playhead,
				zoom_level = excluded.zoom_level,
				updated_at = excluded.updated_at
		`, p.ID, p.Name, st.CurrentTime, st.ZoomLevel, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM clips WHERE project_id = ?", p.ID); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO clips (project_id, position, id, name, playable_path, source_duration,
				source_start, source_end, duration, start_time, end_time, trim_start, trim_end)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, c := range st.Clips {
			if _, err := stmt.ExecContext(ctx, p.ID, i, c.ID, c.Name, c.PlayablePath, c.SourceDuration,
				c.SourceStart, c.SourceEnd, c.Duration, c.StartTime, c.EndTime, c.TrimStart, c.TrimEnd); err != nil {
				return err
			}
		}
		return nil
	})
}

const projectColumns = `
	p.id, p.name, p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM clips c WHERE c.project_id = p.id),
	COALESCE((SELECT MAX(c.end_time) FROM clips c WHERE c.project_id = p.id), 0)
`

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects p WHERE p.id = ?", id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*Project, error) {
	var p Project
	var createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.Name, &createdAt, &updatedAt, &p.ClipCount, &p.Duration); err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects p ORDER BY p.updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// LoadState rebuilds the persisted part of a timeline snapshot: the clip
// sequence, playhead and zoom. Returns nil, nil for an unknown project.
func (r *SQLiteRepository) LoadState(ctx context.Context, id string) (*timeline.State, error) {
	var st timeline.State
	err := r.db.QueryRowContext(ctx, "SELECT playhead, zoom_level FROM projects WHERE id = ?", id).
		Scan(&st.CurrentTime, &st.ZoomLevel)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, playable_path, source_duration, source_start, source_end,
			duration, start_time, end_time, trim_start, trim_end
		FROM clips WHERE project_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c timeline.Clip
		if err := rows.Scan(&c.ID, &c.Name, &c.PlayablePath, &c.SourceDuration, &c.SourceStart, &c.SourceEnd,
			&c.Duration, &c.StartTime, &c.EndTime, &c.TrimStart, &c.TrimEnd); err != nil {
			return nil, err
		}
		st.Clips = append(st.Clips, c)
	}
	return &st, rows.Err()
}

func (r *SQLiteRepository) RenameProject(ctx context.Context, id, name string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE projects SET name = ?, updated_at = ? WHERE id = ?",
		name, formatTime(time.Now()), id)
	return err
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CreateExportJob(ctx context.Context, j *export.Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO export_jobs (id, project_id, status, quality, format, output_path, progress, error, size_bytes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, nullString(j.ProjectID), j.Status, string(j.Quality), string(j.Format), j.OutputPath,
		j.Progress, nullString(j.Error), j.SizeBytes, formatTime(j.CreatedAt), formatTime(j.UpdatedAt))
	return err
}

const exportJobColumns = `id, project_id, status, quality, format, output_path, progress, error, size_bytes, created_at, updated_at`

func (r *SQLiteRepository) GetExportJob(ctx context.Context, id string) (*export.Job, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+exportJobColumns+" FROM export_jobs WHERE id = ?", id)
	j, err := scanExportJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

func scanExportJob(row scanner) (*export.Job, error) {
	var j export.Job
	var projectID, errMsg sql.NullString
	var quality, format, createdAt, updatedAt string
	if err := row.Scan(&j.ID, &projectID, &j.Status, &quality, &format, &j.OutputPath,
		&j.Progress, &errMsg, &j.SizeBytes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	j.ProjectID = projectID.String
	j.Error = errMsg.String
	j.Quality = export.Quality(quality)
	j.Format = export.Format(format)
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListExportJobs(ctx context.Context, limit int) ([]*export.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+exportJobColumns+" FROM export_jobs ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*export.Job
	for rows.Next() {
		j, err := scanExportJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateExportJobProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs SET progress = ?, status = CASE WHEN status = 'pending' THEN 'running' ELSE status END,
			updated_at = ? WHERE id = ?
	`, progress, formatTime(time.Now()), id)
	return err
}

func (r *SQLiteRepository) FinishExportJob(ctx context.Context, id, status, errMsg string, sizeBytes int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs SET status = ?, error = ?, size_bytes = ?, updated_at = ? WHERE id = ?
	`, status, nullString(errMsg), sizeBytes, formatTime(time.Now()), id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
