package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/drive-renamer/constants"
	"github.com/joseph-ayodele/drive-renamer/internal/common"
)

// FieldKind is the declared type of one field in a job's output schema.
type FieldKind string

const (
	FieldString  FieldKind = "str"
	FieldInteger FieldKind = "int"
	FieldFloat   FieldKind = "float"
	FieldBoolean FieldKind = "bool"
	FieldList    FieldKind = "list"
	FieldMap     FieldKind = "dict"
)

// ParseFieldKind accepts the short names plus common long forms.
func ParseFieldKind(s string) (FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "str", "string", "text":
		return FieldString, nil
	case "int", "integer":
		return FieldInteger, nil
	case "float", "number", "double":
		return FieldFloat, nil
	case "bool", "boolean":
		return FieldBoolean, nil
	case "list", "array":
		return FieldList, nil
	case "dict", "map", "object":
		return FieldMap, nil
	}
	return "", fmt.Errorf("unknown field kind %q", s)
}

// AgentConfig tells the analyzer what to ask for and the namer how to build the result.
type AgentConfig struct {
	Model          string               `json:"model,omitempty"`
	Instructions   string               `json:"instructions,omitempty"`
	PromptTemplate string               `json:"prompt_template,omitempty"`
	OutputSchema   map[string]FieldKind `json:"output_schema,omitempty"`
	Categories     []string             `json:"categories,omitempty"`
	KeywordCount   int                  `json:"keyword_count,omitempty"`
	FilenameFormat string               `json:"filename_format,omitempty"`
}

// Job is one configured watch: a root folder, the subfolders to scan and the agent to apply.
type Job struct {
	ID                string                `json:"id"`
	Name              string                `json:"name"`
	Description       string                `json:"description,omitempty"`
	Active            bool                  `json:"active"`
	TriggerType       constants.TriggerType `json:"trigger_type"`
	SourceFolderID    string                `json:"source_folder_id"`
	TargetFolderNames []string              `json:"target_folder_names"`
	Agent             AgentConfig           `json:"agent_config"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// ScansRoot reports whether the job processes its root folder directly rather than named subfolders.
func (j Job) ScansRoot() bool {
	if len(j.TargetFolderNames) == 0 {
		return true
	}
	for _, n := range j.TargetFolderNames {
		if n == constants.WildcardFolder {
			return true
		}
	}
	return false
}

// Validate checks the fields the store and the orchestrator rely on.
func (j Job) Validate() error {
	v := common.NewValidator().
		Field("id", j.ID, common.Required, common.MaxLength(128)).
		Field("name", j.Name, common.Required, common.MaxLength(200)).
		Field("trigger_type", string(j.TriggerType), common.OneOf(string(constants.TriggerManual), string(constants.TriggerScheduled))).
		Field("source_folder_id", j.SourceFolderID, common.Required)
	if j.Agent.FilenameFormat != "" {
		v.Field("agent_config.filename_format", j.Agent.FilenameFormat, common.Contains("{ext}"))
	}
	for name, kind := range j.Agent.OutputSchema {
		if _, err := ParseFieldKind(string(kind)); err != nil {
			v.Field("agent_config.output_schema."+name, string(kind), common.OneOf("str", "int", "float", "bool", "list", "dict"))
		}
	}
	return v.Err()
}

const (
	ManualJobPrefix       = "job-manual-"
	defaultPromptTemplate = "Analiza el documento '{original_filename}'. Contenido: {file_content}. " +
		"Extrae la fecha (YYYY-MM-DD) y 3 keywords descriptivos. JSON output keys: date, keywords."
	defaultFilenameFormat = "{date}_{keywords}_{ext}"
)

// DefaultManualJob is seeded when an ad-hoc manual request names a job that does not exist.
func DefaultManualJob(trigger constants.TriggerType, now time.Time) Job {
	return Job{
		ID:                ManualJobPrefix + string(trigger),
		Name:              "Manual Job (auto-created)",
		Active:            true,
		TriggerType:       trigger,
		SourceFolderID:    constants.DynamicFolder,
		TargetFolderNames: []string{constants.WildcardFolder},
		Agent: AgentConfig{
			PromptTemplate: defaultPromptTemplate,
			OutputSchema:   map[string]FieldKind{"date": FieldString, "keywords": FieldList},
			KeywordCount:   3,
			FilenameFormat: defaultFilenameFormat,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
