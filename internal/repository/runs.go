package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/joseph-ayodele/drive-renamer/constants"
	"github.com/joseph-ayodele/drive-renamer/internal/common"
	"github.com/joseph-ayodele/drive-renamer/internal/entity"
)

const runsTable = "job_runs"

var runColumns = []string{
	"id", "job_id", "trigger_type", "folder_id", "status", "files_processed",
	"files_renamed", "errors", "error_message", "started_at", "finished_at",
}

// RunRepository records job runs
type RunRepository interface {
	Start(ctx context.Context, jobID string, trigger constants.TriggerType, folderID string) (entity.Run, error)
	Finish(ctx context.Context, run entity.Run) error
	ListByJob(ctx context.Context, jobID string, limit int) ([]entity.Run, error)
	ListRecent(ctx context.Context, limit int) ([]entity.Run, error)
}

type runRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB, logger *slog.Logger) RunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &runRepository{db: db, logger: logger, now: time.Now}
}

// Start inserts a RUNNING row for the job and returns it
func (r *runRepository) Start(ctx context.Context, jobID string, trigger constants.TriggerType, folderID string) (entity.Run, error) {
	run := entity.Run{
		ID:        uuid.New(),
		JobID:     jobID,
		Trigger:   trigger,
		FolderID:  folderID,
		Status:    constants.RunStatusRunning,
		StartedAt: r.now().UTC(),
	}

	query, args := r.db.Builder().Insert(runsTable).
		Columns(runColumns...).
		Values(run.ID.String(), run.JobID, string(run.Trigger), run.FolderID, string(run.Status),
			0, 0, 0, "", formatTime(run.StartedAt), nil).
		Query()
	if _, err := r.db.sql.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to start run", "job_id", jobID, "error", err)
		return entity.Run{}, common.NewAppError("DATABASE_ERROR", "insert run", errors.Join(common.ErrDatabase, err))
	}
	return run, nil
}

// Finish stores the final status and counters of a run
func (r *runRepository) Finish(ctx context.Context, run entity.Run) error {
	finished := r.now().UTC()
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}

	query, args := r.db.Builder().Update(runsTable).
		Set("status", string(run.Status)).
		Set("files_processed", run.FilesProcessed).
		Set("files_renamed", run.FilesRenamed).
		Set("errors", run.Errors).
		Set("error_message", run.ErrorMessage).
		Set("finished_at", formatTime(finished)).
		Where(entsql.EQ("id", run.ID.String())).
		Query()
	res, err := r.db.sql.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to finish run", "run_id", run.ID, "error", err)
		return common.NewAppError("DATABASE_ERROR", "update run", errors.Join(common.ErrDatabase, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("NOT_FOUND", fmt.Sprintf("run %s not found", run.ID), common.ErrNotFound)
	}
	return nil
}

// ListByJob returns the latest runs of one job, newest first
func (r *runRepository) ListByJob(ctx context.Context, jobID string, limit int) ([]entity.Run, error) {
	b := r.db.Builder()
	sel := b.Select(runColumns...).
		From(b.Table(runsTable)).
		Where(entsql.EQ("job_id", jobID)).
		OrderBy(entsql.Desc("started_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	return r.query(ctx, query, args)
}

// ListRecent returns the latest runs across all jobs, newest first
func (r *runRepository) ListRecent(ctx context.Context, limit int) ([]entity.Run, error) {
	b := r.db.Builder()
	sel := b.Select(runColumns...).
		From(b.Table(runsTable)).
		OrderBy(entsql.Desc("started_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	return r.query(ctx, query, args)
}

func (r *runRepository) query(ctx context.Context, query string, args []any) ([]entity.Run, error) {
	rows, err := r.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list runs", "error", err)
		return nil, common.NewAppError("DATABASE_ERROR", "query runs", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var runs []entity.Run
	for rows.Next() {
		var (
			run             entity.Run
			id, trigger     string
			status, started string
			finished        sql.NullString
		)
		if err := rows.Scan(&id, &run.JobID, &trigger, &run.FolderID, &status, &run.FilesProcessed,
			&run.FilesRenamed, &run.Errors, &run.ErrorMessage, &started, &finished); err != nil {
			return nil, common.NewAppError("DATABASE_ERROR", "scan run", errors.Join(common.ErrDatabase, err))
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		run.Trigger = constants.TriggerType(trigger)
		run.Status = constants.RunStatus(status)
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("run %s: started_at: %w", id, err)
		}
		if finished.Valid {
			t, err := parseTime(finished.String)
			if err != nil {
				return nil, fmt.Errorf("run %s: finished_at: %w", id, err)
			}
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DATABASE_ERROR", "iterate runs", errors.Join(common.ErrDatabase, err))
	}
	return runs, nil
}
