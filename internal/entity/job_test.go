package entity

import (
	"testing"
	"time"

	"github.com/joseph-ayodele/drive-renamer/constants"
	"github.com/joseph-ayodele/drive-renamer/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldKind(t *testing.T) {
	for in, want := range map[string]FieldKind{
		"str": FieldString, "String": FieldString, "int": FieldInteger, "number": FieldFloat,
		"bool": FieldBoolean, "array": FieldList, "dict": FieldMap, " object ": FieldMap,
	} {
		got, err := ParseFieldKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFieldKind("date")
	assert.Error(t, err)
}

func TestScansRoot(t *testing.T) {
	assert.True(t, Job{}.ScansRoot())
	assert.True(t, Job{TargetFolderNames: []string{"Facturas", "*"}}.ScansRoot())
	assert.False(t, Job{TargetFolderNames: []string{"Facturas"}}.ScansRoot())
}

func TestDefaultManualJob(t *testing.T) {
	now := time.Date(2024, 5, 27, 0, 0, 0, 0, time.UTC)
	job := DefaultManualJob(constants.TriggerManual, now)

	assert.Equal(t, "job-manual-manual", job.ID)
	assert.Equal(t, constants.DynamicFolder, job.SourceFolderID)
	assert.True(t, job.ScansRoot())
	assert.Equal(t, "{date}_{keywords}_{ext}", job.Agent.FilenameFormat)
	assert.Equal(t, FieldList, job.Agent.OutputSchema["keywords"])
	assert.NoError(t, job.Validate())
}

func TestJobValidate(t *testing.T) {
	err := Job{ID: "j", Name: "n", TriggerType: "hourly"}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "trigger_type")
	assert.Contains(t, err.Error(), "source_folder_id")

	bad := DefaultManualJob(constants.TriggerScheduled, time.Now())
	bad.Agent.OutputSchema["when"] = "date"
	err = bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent_config.output_schema.when")
}

func TestJobValidateFilenameFormatKeepsExtension(t *testing.T) {
	job := DefaultManualJob(constants.TriggerManual, time.Now())
	job.Agent.FilenameFormat = "{date}_{keywords}"
	err := job.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent_config.filename_format")

	job.Agent.FilenameFormat = "{DATE}_{keywords}{Ext}"
	assert.NoError(t, job.Validate())
	job.Agent.FilenameFormat = ""
	assert.NoError(t, job.Validate(), "an empty format uses the fallback")
}
