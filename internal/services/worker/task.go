package worker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/drive-renamer/constants"
	"github.com/joseph-ayodele/drive-renamer/internal/common"
)

// Task is the queue payload. An empty JobID means every active scheduled job.
type Task struct {
	JobID       string                `json:"job_id,omitempty"`
	FolderID    string                `json:"folder_id,omitempty"`
	TriggerType constants.TriggerType `json:"trigger_type,omitempty"`
}

// ParseTask decodes a task payload; an empty body is a scheduled run of all jobs.
func ParseTask(data []byte) (Task, error) {
	var t Task
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &t); err != nil {
			return Task{}, common.NewAppError("VALIDATION_ERROR", "malformed task payload", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		}
	}
	return t.normalize()
}

func (t Task) normalize() (Task, error) {
	t.JobID = strings.TrimSpace(t.JobID)
	t.FolderID = strings.TrimSpace(t.FolderID)
	if t.TriggerType == "" {
		t.TriggerType = constants.TriggerScheduled
	}
	if !t.TriggerType.Valid() {
		return Task{}, common.NewAppError("VALIDATION_ERROR",
			fmt.Sprintf("trigger_type must be %q or %q", constants.TriggerManual, constants.TriggerScheduled),
			common.ErrInvalidInput)
	}
	if t.JobID == "" && t.FolderID != "" {
		return Task{}, common.NewAppError("VALIDATION_ERROR", "folder_id requires job_id", common.ErrInvalidInput)
	}
	return t, nil
}
