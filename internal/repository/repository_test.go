package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joseph-ayodele/drive-renamer/constants"
	"github.com/joseph-ayodele/drive-renamer/internal/common"
	"github.com/joseph-ayodele/drive-renamer/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.HealthCheck(ctx, time.Second))
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx))
	return db
}

func sampleJob(id string, trigger constants.TriggerType, active bool) entity.Job {
	return entity.Job{
		ID:                id,
		Name:              "Facturas " + id,
		Active:            active,
		TriggerType:       trigger,
		SourceFolderID:    "root-" + id,
		TargetFolderNames: []string{"Facturas", "Recibos"},
		Agent: entity.AgentConfig{
			PromptTemplate: "Analiza {original_filename}",
			OutputSchema:   map[string]entity.FieldKind{"date": entity.FieldString, "keywords": entity.FieldList},
			KeywordCount:   3,
			FilenameFormat: "{date}_{keywords}{ext}",
		},
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), common.DatabaseConfig{Driver: "mysql"}, nil)
	require.Error(t, err)
	assert.True(t, common.IsConfigError(err))
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, NewJobRepository(db, nil).Insert(ctx, sampleJob("keep", constants.TriggerManual, true)))

	require.NoError(t, db.Migrate(ctx))

	var tables int
	require.NoError(t, db.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('jobs', 'job_runs')`).Scan(&tables))
	assert.Equal(t, 2, tables)
	_, err := NewJobRepository(db, nil).Get(ctx, "keep")
	assert.NoError(t, err, "a second migration keeps existing rows")
}

func TestJobRepositoryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewJobRepository(db, nil)
	ctx := context.Background()

	job := sampleJob("j1", constants.TriggerScheduled, true)
	require.NoError(t, repo.Insert(ctx, job))

	got, err := repo.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, job.Name, got.Name)
	assert.True(t, got.Active)
	assert.Equal(t, constants.TriggerScheduled, got.TriggerType)
	assert.Equal(t, []string{"Facturas", "Recibos"}, got.TargetFolderNames)
	assert.Equal(t, job.Agent, got.Agent)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestJobRepositoryGetMissing(t *testing.T) {
	repo := NewJobRepository(openTestDB(t), nil)

	_, err := repo.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestJobRepositoryInsertValidates(t *testing.T) {
	repo := NewJobRepository(openTestDB(t), nil)

	err := repo.Insert(context.Background(), entity.Job{Name: "x"})
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "id")
}

func TestJobRepositoryDuplicateInsertFails(t *testing.T) {
	repo := NewJobRepository(openTestDB(t), nil)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, sampleJob("j1", constants.TriggerManual, true)))
	err := repo.Insert(ctx, sampleJob("j1", constants.TriggerManual, true))
	assert.ErrorIs(t, err, common.ErrDatabase)
}

func TestJobRepositoryListActive(t *testing.T) {
	repo := NewJobRepository(openTestDB(t), nil)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, sampleJob("b", constants.TriggerScheduled, true)))
	require.NoError(t, repo.Insert(ctx, sampleJob("a", constants.TriggerScheduled, true)))
	require.NoError(t, repo.Insert(ctx, sampleJob("c", constants.TriggerScheduled, false)))
	require.NoError(t, repo.Insert(ctx, sampleJob("d", constants.TriggerManual, true)))

	jobs, err := repo.ListActive(ctx, constants.TriggerScheduled)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].ID)
	assert.Equal(t, "b", jobs[1].ID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestJobRepositoryUpdate(t *testing.T) {
	repo := NewJobRepository(openTestDB(t), nil)
	ctx := context.Background()

	job := sampleJob("j1", constants.TriggerScheduled, true)
	require.NoError(t, repo.Insert(ctx, job))

	job.Active = false
	job.TargetFolderNames = nil
	require.NoError(t, repo.Update(ctx, job))

	got, err := repo.Get(ctx, "j1")
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Empty(t, got.TargetFolderNames)

	err = repo.Update(ctx, sampleJob("missing", constants.TriggerManual, true))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRunRepositoryLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewRunRepository(db, nil).(*runRepository)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := repo.Start(ctx, "j1", constants.TriggerScheduled, "")
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusRunning, first.Status)

	second, err := repo.Start(ctx, "j1", constants.TriggerManual, "folder-9")
	require.NoError(t, err)
	_, err = repo.Start(ctx, "j2", constants.TriggerScheduled, "")
	require.NoError(t, err)

	first.Status = constants.RunStatusSuccess
	first.FilesProcessed = 4
	first.FilesRenamed = 3
	first.Errors = 1
	require.NoError(t, repo.Finish(ctx, first))

	runs, err := repo.ListByJob(ctx, "j1", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, "folder-9", runs[0].FolderID)
	assert.Nil(t, runs[0].FinishedAt)

	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, constants.RunStatusSuccess, runs[1].Status)
	assert.Equal(t, 3, runs[1].FilesRenamed)
	require.NotNil(t, runs[1].FinishedAt)
	assert.True(t, runs[1].FinishedAt.After(runs[1].StartedAt))

	recent, err := repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "j2", recent[0].JobID)
}
