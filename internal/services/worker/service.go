package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/drive-renamer/constants"
	"github.com/joseph-ayodele/drive-renamer/internal/async"
	"github.com/joseph-ayodele/drive-renamer/internal/common"
	"github.com/joseph-ayodele/drive-renamer/internal/entity"
	"github.com/joseph-ayodele/drive-renamer/internal/pipeline"
	"github.com/joseph-ayodele/drive-renamer/internal/repository"
)

// Runner executes one pass of a job.
type Runner interface {
	Run(ctx context.Context, job entity.Job, folderOverride string) pipeline.Result
}

// Service handles task business logic: job lookup, run recording and fan-out.
type Service struct {
	jobs   repository.JobRepository
	runs   repository.RunRepository
	runner Runner
	queue  async.Queue
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new worker service. runs and queue may be nil.
func NewService(jobs repository.JobRepository, runs repository.RunRepository, runner Runner, queue async.Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, runs: runs, runner: runner, queue: queue, logger: logger, now: time.Now}
}

// SetQueue attaches the async pool once it exists; the pool's handler is this service.
func (s *Service) SetQueue(q async.Queue) { s.queue = q }

// HandleTask runs the task synchronously and returns one result per job it touched.
func (s *Service) HandleTask(ctx context.Context, task Task) ([]pipeline.Result, error) {
	task, err := task.normalize()
	if err != nil {
		return nil, err
	}
	logger := common.LoggerFromContext(ctx, s.logger).With("trigger", task.TriggerType)

	if task.JobID != "" {
		logger.Info("task.start", "job_id", task.JobID, "folder_id", task.FolderID)
		return []pipeline.Result{s.RunJob(ctx, task.JobID, task.TriggerType, task.FolderID)}, nil
	}

	jobs, err := s.jobs.ListActive(ctx, constants.TriggerScheduled)
	if err != nil {
		return nil, fmt.Errorf("list scheduled jobs: %w", err)
	}
	logger.Info("task.start_all", "jobs", len(jobs))

	results := make([]pipeline.Result, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			results = append(results, pipeline.Result{Status: constants.ResultError, JobID: job.ID, JobName: job.Name, Error: err.Error()})
			continue
		}
		results = append(results, s.run(ctx, job, task.TriggerType, ""))
	}
	return results, nil
}

// RunJob loads (or, for ad-hoc manual requests, seeds) a job and runs it. Failures come back in the result.
func (s *Service) RunJob(ctx context.Context, jobID string, trigger constants.TriggerType, folderID string) pipeline.Result {
	job, err := s.resolveJob(ctx, jobID, trigger)
	if err != nil {
		s.logger.Error("task.job_unavailable", "job_id", jobID, "error", err)
		return pipeline.Result{Status: constants.ResultError, JobID: jobID, Error: err.Error()}
	}
	return s.run(ctx, job, trigger, folderID)
}

func (s *Service) resolveJob(ctx context.Context, jobID string, trigger constants.TriggerType) (entity.Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	switch {
	case err == nil:
		if !job.Active {
			return entity.Job{}, common.NewAppError("JOB_ERROR", fmt.Sprintf("job %q is inactive", jobID), common.ErrConfig)
		}
		return job, nil
	case !errors.Is(err, common.ErrNotFound):
		return entity.Job{}, err
	case trigger != constants.TriggerManual || !strings.HasPrefix(jobID, entity.ManualJobPrefix):
		return entity.Job{}, common.NewAppError("JOB_ERROR", fmt.Sprintf("job %q not found", jobID), err)
	}

	job = entity.DefaultManualJob(trigger, s.now())
	job.ID = jobID
	if err := s.jobs.Insert(ctx, job); err != nil {
		s.logger.Warn("task.manual_job.seed_failed", "job_id", jobID, "error", err)
	} else {
		s.logger.Info("task.manual_job.seeded", "job_id", jobID)
	}
	return job, nil
}

func (s *Service) run(ctx context.Context, job entity.Job, trigger constants.TriggerType, folderID string) pipeline.Result {
	ctx = common.WithJobID(ctx, job.ID)

	var (
		rec      entity.Run
		recorded bool
	)
	if s.runs != nil {
		var err error
		if rec, err = s.runs.Start(ctx, job.ID, trigger, folderID); err != nil {
			s.logger.Warn("task.run_record.start_failed", "job_id", job.ID, "error", err)
		} else {
			recorded = true
			ctx = common.WithRunID(ctx, rec.ID.String())
		}
	}

	res := s.runner.Run(ctx, job, folderID)

	if recorded {
		rec.Status = constants.RunStatusSuccess
		if res.Failed() {
			rec.Status = constants.RunStatusError
		}
		rec.FilesProcessed = res.Stats.FilesProcessed
		rec.FilesRenamed = res.Stats.FilesRenamed
		rec.Errors = res.Stats.Errors
		rec.ErrorMessage = res.Error
		// record even when the run deadline has passed
		if err := s.runs.Finish(context.WithoutCancel(ctx), rec); err != nil {
			s.logger.Warn("task.run_record.finish_failed", "job_id", job.ID, "run_id", rec.ID, "error", err)
		}
	}
	return res
}

// Submit validates a single-job task and hands it to the async pool.
func (s *Service) Submit(ctx context.Context, task Task) error {
	task, err := task.normalize()
	if err != nil {
		return err
	}
	if task.JobID == "" {
		return common.NewAppError("VALIDATION_ERROR", "job_id is required", common.ErrInvalidInput)
	}
	if s.queue == nil {
		return common.NewAppError("CONFIG_ERROR", "async queue is not configured", common.ErrConfig)
	}
	return s.queue.Enqueue(ctx, async.Job{
		JobID:     task.JobID,
		FolderID:  task.FolderID,
		Trigger:   task.TriggerType,
		RequestID: common.RequestIDFromContext(ctx),
	})
}

// HandleQueued is the async pool handler.
func (s *Service) HandleQueued(ctx context.Context, job async.Job) error {
	res := s.RunJob(ctx, job.JobID, job.Trigger, job.FolderID)
	if res.Failed() {
		return errors.New(res.Error)
	}
	return nil
}
