package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/drive-renamer/constants"
)

// Run records one orchestrator pass over a job.
type Run struct {
	ID             uuid.UUID             `json:"id"`
	JobID          string                `json:"job_id"`
	Trigger        constants.TriggerType `json:"trigger"`
	FolderID       string                `json:"folder_id,omitempty"`
	Status         constants.RunStatus   `json:"status"`
	FilesProcessed int                   `json:"files_processed"`
	FilesRenamed   int                   `json:"files_renamed"`
	Errors         int                   `json:"errors"`
	ErrorMessage   string                `json:"error_message,omitempty"`
	StartedAt      time.Time             `json:"started_at"`
	FinishedAt     *time.Time            `json:"finished_at,omitempty"`
}
