package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/joseph-ayodele/drive-renamer/constants"
	"github.com/joseph-ayodele/drive-renamer/internal/common"
	"github.com/joseph-ayodele/drive-renamer/internal/entity"
)

const jobsTable = "jobs"

var jobColumns = []string{
	"id", "name", "description", "active", "trigger_type", "source_folder_id",
	"target_folder_names", "agent_config", "created_at", "updated_at",
}

// JobRepository defines the interface for job configuration operations
type JobRepository interface {
	Get(ctx context.Context, id string) (entity.Job, error)
	List(ctx context.Context) ([]entity.Job, error)
	ListActive(ctx context.Context, trigger constants.TriggerType) ([]entity.Job, error)
	Insert(ctx context.Context, job entity.Job) error
	Update(ctx context.Context, job entity.Job) error
}

type jobRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *DB, logger *slog.Logger) JobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &jobRepository{db: db, logger: logger, now: time.Now}
}

// Get retrieves a job by ID
func (r *jobRepository) Get(ctx context.Context, id string) (entity.Job, error) {
	b := r.db.Builder()
	query, args := b.Select(jobColumns...).
		From(b.Table(jobsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	jobs, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to get job", "job_id", id, "error", err)
		return entity.Job{}, err
	}
	if len(jobs) == 0 {
		return entity.Job{}, common.NewAppError("NOT_FOUND", fmt.Sprintf("job %q not found", id), common.ErrNotFound)
	}
	return jobs[0], nil
}

// List returns every job ordered by ID
func (r *jobRepository) List(ctx context.Context) ([]entity.Job, error) {
	b := r.db.Builder()
	query, args := b.Select(jobColumns...).
		From(b.Table(jobsTable)).
		OrderBy("id").
		Query()

	jobs, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to list jobs", "error", err)
		return nil, err
	}
	return jobs, nil
}

// ListActive returns the active jobs configured for the given trigger
func (r *jobRepository) ListActive(ctx context.Context, trigger constants.TriggerType) ([]entity.Job, error) {
	b := r.db.Builder()
	query, args := b.Select(jobColumns...).
		From(b.Table(jobsTable)).
		Where(entsql.And(
			entsql.EQ("active", true),
			entsql.EQ("trigger_type", string(trigger)),
		)).
		OrderBy("id").
		Query()

	jobs, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to list active jobs", "trigger", trigger, "error", err)
		return nil, err
	}
	return jobs, nil
}

// Insert stores a new job; zero timestamps are stamped with the current time
func (r *jobRepository) Insert(ctx context.Context, job entity.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	now := r.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = now
	}
	targets, agent, err := encodeJob(job)
	if err != nil {
		return err
	}

	query, args := r.db.Builder().Insert(jobsTable).
		Columns(jobColumns...).
		Values(job.ID, job.Name, job.Description, job.Active, string(job.TriggerType), job.SourceFolderID,
			targets, agent, formatTime(job.CreatedAt), formatTime(job.UpdatedAt)).
		Query()
	if _, err := r.db.sql.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to insert job", "job_id", job.ID, "error", err)
		return common.NewAppError("DATABASE_ERROR", "insert job", errors.Join(common.ErrDatabase, err))
	}

	r.logger.Info("job stored", "job_id", job.ID, "trigger", job.TriggerType)
	return nil
}

// Update overwrites the mutable fields of an existing job
func (r *jobRepository) Update(ctx context.Context, job entity.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	targets, agent, err := encodeJob(job)
	if err != nil {
		return err
	}

	query, args := r.db.Builder().Update(jobsTable).
		Set("name", job.Name).
		Set("description", job.Description).
		Set("active", job.Active).
		Set("trigger_type", string(job.TriggerType)).
		Set("source_folder_id", job.SourceFolderID).
		Set("target_folder_names", targets).
		Set("agent_config", agent).
		Set("updated_at", formatTime(r.now())).
		Where(entsql.EQ("id", job.ID)).
		Query()
	res, err := r.db.sql.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to update job", "job_id", job.ID, "error", err)
		return common.NewAppError("DATABASE_ERROR", "update job", errors.Join(common.ErrDatabase, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("NOT_FOUND", fmt.Sprintf("job %q not found", job.ID), common.ErrNotFound)
	}
	return nil
}

func (r *jobRepository) query(ctx context.Context, query string, args []any) ([]entity.Job, error) {
	rows, err := r.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewAppError("DATABASE_ERROR", "query jobs", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var jobs []entity.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DATABASE_ERROR", "iterate jobs", errors.Join(common.ErrDatabase, err))
	}
	return jobs, nil
}

func scanJob(rows *sql.Rows) (entity.Job, error) {
	var (
		job              entity.Job
		trigger          string
		targets, agent   string
		created, updated string
	)
	if err := rows.Scan(&job.ID, &job.Name, &job.Description, &job.Active, &trigger, &job.SourceFolderID,
		&targets, &agent, &created, &updated); err != nil {
		return entity.Job{}, common.NewAppError("DATABASE_ERROR", "scan job", errors.Join(common.ErrDatabase, err))
	}
	job.TriggerType = constants.TriggerType(trigger)

	if err := json.Unmarshal([]byte(targets), &job.TargetFolderNames); err != nil {
		return entity.Job{}, fmt.Errorf("job %s: decode target_folder_names: %w", job.ID, err)
	}
	if err := json.Unmarshal([]byte(agent), &job.Agent); err != nil {
		return entity.Job{}, fmt.Errorf("job %s: decode agent_config: %w", job.ID, err)
	}

	var err error
	if job.CreatedAt, err = parseTime(created); err != nil {
		return entity.Job{}, fmt.Errorf("job %s: created_at: %w", job.ID, err)
	}
	if job.UpdatedAt, err = parseTime(updated); err != nil {
		return entity.Job{}, fmt.Errorf("job %s: updated_at: %w", job.ID, err)
	}
	return job, nil
}

func encodeJob(job entity.Job) (targets, agent string, err error) {
	names := job.TargetFolderNames
	if names == nil {
		names = []string{}
	}
	t, err := json.Marshal(names)
	if err != nil {
		return "", "", fmt.Errorf("encode target_folder_names: %w", err)
	}
	a, err := json.Marshal(job.Agent)
	if err != nil {
		return "", "", fmt.Errorf("encode agent_config: %w", err)
	}
	return string(t), string(a), nil
}
