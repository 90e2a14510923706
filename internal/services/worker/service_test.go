package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/drive-renamer/constants"
	"github.com/joseph-ayodele/drive-renamer/internal/async"
	"github.com/joseph-ayodele/drive-renamer/internal/common"
	"github.com/joseph-ayodele/drive-renamer/internal/entity"
	"github.com/joseph-ayodele/drive-renamer/internal/pipeline"
	"github.com/joseph-ayodele/drive-renamer/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	JobID    string
	FolderID string
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]bool
}

func (f *fakeRunner) Run(_ context.Context, job entity.Job, folderOverride string) pipeline.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{JobID: job.ID, FolderID: folderOverride})
	if f.fail[job.ID] {
		return pipeline.Result{Status: constants.ResultError, JobID: job.ID, Error: "no folder"}
	}
	return pipeline.Result{
		Status: constants.ResultSuccess,
		JobID:  job.ID,
		Stats:  pipeline.Stats{FilesProcessed: 2, FilesRenamed: 2},
	}
}

type fakeQueue struct{ jobs []async.Job }

func (q *fakeQueue) Enqueue(_ context.Context, job async.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}
func (q *fakeQueue) Shutdown(context.Context) {}

type fixture struct {
	svc    *Service
	jobs   repository.JobRepository
	runs   repository.RunRepository
	runner *fakeRunner
	queue  *fakeQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.Migrate(ctx))

	jobs := repository.NewJobRepository(db, nil)
	runs := repository.NewRunRepository(db, nil)
	runner := &fakeRunner{fail: map[string]bool{}}
	queue := &fakeQueue{}
	return &fixture{
		svc:    NewService(jobs, runs, runner, queue, nil),
		jobs:   jobs,
		runs:   runs,
		runner: runner,
		queue:  queue,
	}
}

func job(id string, trigger constants.TriggerType, active bool) entity.Job {
	return entity.Job{
		ID:                id,
		Name:              id,
		Active:            active,
		TriggerType:       trigger,
		SourceFolderID:    "root-" + id,
		TargetFolderNames: []string{constants.WildcardFolder},
	}
}

func TestParseTask(t *testing.T) {
	task, err := ParseTask(nil)
	require.NoError(t, err)
	assert.Equal(t, Task{TriggerType: constants.TriggerScheduled}, task)

	task, err = ParseTask([]byte(`{"job_id":" j1 ","folder_id":"f","trigger_type":"manual"}`))
	require.NoError(t, err)
	assert.Equal(t, Task{JobID: "j1", FolderID: "f", TriggerType: constants.TriggerManual}, task)

	_, err = ParseTask([]byte(`{"job_id":`))
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = ParseTask([]byte(`{"trigger_type":"hourly"}`))
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = ParseTask([]byte(`{"folder_id":"f"}`))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestHandleTaskRunsAllActiveScheduledJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.jobs.Insert(ctx, job("a", constants.TriggerScheduled, true)))
	require.NoError(t, f.jobs.Insert(ctx, job("b", constants.TriggerScheduled, true)))
	require.NoError(t, f.jobs.Insert(ctx, job("off", constants.TriggerScheduled, false)))
	require.NoError(t, f.jobs.Insert(ctx, job("m", constants.TriggerManual, true)))
	f.runner.fail["b"] = true

	results, err := f.svc.HandleTask(ctx, Task{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, constants.ResultSuccess, results[0].Status)
	assert.Equal(t, constants.ResultError, results[1].Status)
	assert.Equal(t, []call{{JobID: "a"}, {JobID: "b"}}, f.runner.calls)

	recent, err := f.runs.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	byJob := map[string]entity.Run{}
	for _, r := range recent {
		byJob[r.JobID] = r
	}
	assert.Equal(t, constants.RunStatusSuccess, byJob["a"].Status)
	assert.Equal(t, 2, byJob["a"].FilesRenamed)
	assert.Equal(t, constants.RunStatusError, byJob["b"].Status)
	assert.Equal(t, "no folder", byJob["b"].ErrorMessage)
}

func TestHandleTaskSingleJobWithOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.jobs.Insert(ctx, job("a", constants.TriggerManual, true)))

	results, err := f.svc.HandleTask(ctx, Task{JobID: "a", FolderID: "folder-x", TriggerType: constants.TriggerManual})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Failed())
	assert.Equal(t, []call{{JobID: "a", FolderID: "folder-x"}}, f.runner.calls)
}

func TestHandleTaskUnknownJobFails(t *testing.T) {
	f := newFixture(t)

	results, err := f.svc.HandleTask(context.Background(), Task{JobID: "ghost"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Failed())
	assert.Contains(t, results[0].Error, "ghost")
	assert.Empty(t, f.runner.calls)
}

func TestHandleTaskInactiveJobFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.jobs.Insert(ctx, job("off", constants.TriggerScheduled, false)))

	results, err := f.svc.HandleTask(ctx, Task{JobID: "off"})
	require.NoError(t, err)
	assert.True(t, results[0].Failed())
	assert.Empty(t, f.runner.calls)
}

func TestHandleTaskSeedsManualJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.now = func() time.Time { return time.Date(2024, 5, 27, 0, 0, 0, 0, time.UTC) }
	id := entity.ManualJobPrefix + "manual"

	results, err := f.svc.HandleTask(ctx, Task{JobID: id, FolderID: "adhoc", TriggerType: constants.TriggerManual})
	require.NoError(t, err)
	assert.False(t, results[0].Failed())

	seeded, err := f.jobs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.DynamicFolder, seeded.SourceFolderID)
	assert.Equal(t, []string{constants.WildcardFolder}, seeded.TargetFolderNames)

	// a second request reuses the stored job
	_, err = f.svc.HandleTask(ctx, Task{JobID: id, FolderID: "adhoc", TriggerType: constants.TriggerManual})
	require.NoError(t, err)
	assert.Len(t, f.runner.calls, 2)

	runs, err := f.runs.ListByJob(ctx, id, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSubmitEnqueues(t *testing.T) {
	f := newFixture(t)
	ctx := common.WithRequestID(context.Background(), "req-1")

	require.NoError(t, f.svc.Submit(ctx, Task{JobID: "a", FolderID: "f"}))
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, async.Job{JobID: "a", FolderID: "f", Trigger: constants.TriggerScheduled, RequestID: "req-1"}, f.queue.jobs[0])

	assert.ErrorIs(t, f.svc.Submit(ctx, Task{}), common.ErrInvalidInput)
}

func TestHandleQueuedReportsFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.jobs.Insert(ctx, job("a", constants.TriggerScheduled, true)))

	assert.NoError(t, f.svc.HandleQueued(ctx, async.Job{JobID: "a", Trigger: constants.TriggerScheduled}))
	assert.Error(t, f.svc.HandleQueued(ctx, async.Job{JobID: "missing", Trigger: constants.TriggerScheduled}))
}
