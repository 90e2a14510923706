package constants

// RowStatus is the state column of an index row.
type RowStatus string

const (
	RowActive  RowStatus = "Activo"
	RowDeleted RowStatus = "Eliminado"
)

// TriggerType says how a job run was requested.
type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerScheduled TriggerType = "scheduled"
)

// Valid reports whether t is a known trigger.
func (t TriggerType) Valid() bool {
	return t == TriggerManual || t == TriggerScheduled
}

// RunStatus is the canonical status for rows in job_runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusError   RunStatus = "ERROR"
)

// Result statuses returned to task callers.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)
