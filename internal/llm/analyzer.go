package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/drive-renamer/internal/entity"
)

const fallbackKeyword = "documento"

type Config struct {
	Model        string
	ContentLimit int
	SchemaMode   SchemaMode
	Categories   []string
	Guardrails   []Guardrail
}

// Analyzer asks the model to classify a document and always yields an Analysis.
type Analyzer struct {
	gen    Generator
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewAnalyzer(gen Generator, cfg Config, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ContentLimit <= 0 {
		cfg.ContentLimit = DefaultContentLimit
	}
	if cfg.SchemaMode == "" {
		cfg.SchemaMode = SchemaLenient
	}
	return &Analyzer{gen: gen, cfg: cfg, logger: logger, now: time.Now}
}

// Fallback is the record used whenever the model cannot produce a usable answer.
func (a *Analyzer) Fallback() Analysis {
	return Analysis{
		"date":     a.now().Format("2006-01-02"),
		"keywords": []any{fallbackKeyword},
	}
}

// Analyze classifies one document for job. Model, parse and validation failures return Fallback.
func (a *Analyzer) Analyze(ctx context.Context, job entity.Job, fileName, content string) Analysis {
	rid := uuid.New().String()
	start := time.Now()
	logger := a.logger.With("req_id", rid, "job_id", job.ID, "file", fileName)

	content = a.guard(ctx, logger, content)

	model := job.Agent.Model
	if model == "" {
		model = a.cfg.Model
	}
	schema := SchemaFor(job.Agent, a.cfg.Categories)
	req := Request{
		Model:        model,
		Instructions: BuildInstructions(job.Agent, a.cfg.Categories),
		Prompt:       BuildPrompt(job.Agent.PromptTemplate, fileName, content, a.cfg.ContentLimit),
		SchemaName:   "DocumentAnalysis",
		Schema:       schema,
	}
	logger.Info("llm.analyze.start", "model", model, "content_len", len(content), "schema_mode", a.cfg.SchemaMode)

	resp, err := a.generate(ctx, req)
	if err != nil {
		logger.Error("llm.analyze.fallback", "reason", "model_error", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return a.Fallback()
	}
	m, err := ParseResponse(resp)
	if err != nil {
		logger.Warn("llm.analyze.fallback", "reason", "unparsable", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return a.Fallback()
	}
	m, err = Conform(m, schema, a.cfg.SchemaMode, logger)
	if err != nil {
		logger.Warn("llm.analyze.fallback", "reason", "schema_mismatch", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return a.Fallback()
	}

	out := Analysis(m)
	logger.Info("llm.analyze.ok",
		"date", out.Date(),
		"category", out.String("category"),
		"keywords", out.Keywords(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// generate converts a provider panic into an error.
func (a *Analyzer) generate(ctx context.Context, req Request) (resp Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()
	return a.gen.Generate(ctx, req)
}

func (a *Analyzer) guard(ctx context.Context, logger *slog.Logger, content string) string {
	for _, g := range a.cfg.Guardrails {
		out, err := g.Apply(ctx, content)
		if err != nil {
			logger.Warn("llm.guardrail.failed", "guardrail", fmt.Sprintf("%T", g), "error", err)
			continue
		}
		content = out
	}
	return content
}
