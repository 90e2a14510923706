// Package app assembles the renamer from configuration. Both binaries build on it.
package app

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/api/option"

	"github.com/joseph-ayodele/drive-renamer/internal/async"
	"github.com/joseph-ayodele/drive-renamer/internal/blob"
	"github.com/joseph-ayodele/drive-renamer/internal/common"
	"github.com/joseph-ayodele/drive-renamer/internal/drive"
	"github.com/joseph-ayodele/drive-renamer/internal/export"
	"github.com/joseph-ayodele/drive-renamer/internal/extract"
	"github.com/joseph-ayodele/drive-renamer/internal/index"
	"github.com/joseph-ayodele/drive-renamer/internal/llm"
	"github.com/joseph-ayodele/drive-renamer/internal/llm/openai"
	"github.com/joseph-ayodele/drive-renamer/internal/ocr"
	"github.com/joseph-ayodele/drive-renamer/internal/pipeline"
	"github.com/joseph-ayodele/drive-renamer/internal/repository"
	"github.com/joseph-ayodele/drive-renamer/internal/services/worker"
	"github.com/joseph-ayodele/drive-renamer/internal/tracker"
)

// App holds every wired component. Close releases them in reverse order.
type App struct {
	Config       *common.Config
	Logger       *slog.Logger
	DB           *repository.DB
	Jobs         repository.JobRepository
	Runs         repository.RunRepository
	Files        drive.Store
	Extractor    *extract.Extractor
	Analyzer     *llm.Analyzer
	Orchestrator *pipeline.Orchestrator
	Worker       *worker.Service
	Export       *export.Service
	Queue        *async.JobQueue

	closers []func()
}

// OpenStore connects the job store, checks it and creates missing tables.
func OpenStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*repository.DB, error) {
	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		db.Close(logger)
		return nil, common.WrapError(err, "database ping")
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close(logger)
		return nil, err
	}
	return db, nil
}

// NewExtractor builds the content extractor with the configured OCR engine. The returned
// cleanup must be called when done.
func NewExtractor(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*extract.Extractor, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	cleanup := func() {}
	var recognizer ocr.Recognizer
	if cfg.OCR.Enabled {
		switch cfg.OCR.Provider {
		case "tesseract":
			recognizer = ocr.NewTesseract(ocr.TesseractConfig{
				Lang:        cfg.OCR.TesseractLang,
				TessdataDir: cfg.OCR.TessdataDir,
			}, nil, logger)
		default:
			var opts []option.ClientOption
			if cfg.Drive.CredentialsFile != "" {
				opts = append(opts, option.WithCredentialsFile(cfg.Drive.CredentialsFile))
			}
			v, err := ocr.NewVision(ctx, logger, opts...)
			if err != nil {
				// images and scanned PDFs then extract as the OCR-disabled sentinel
				logger.Warn("ocr.vision.unavailable", "error", err)
				break
			}
			recognizer = v
			cleanup = func() {
				if err := v.Close(); err != nil {
					logger.Warn("failed to close vision client", "error", err)
				}
			}
		}
	}

	pdf := ocr.NewPDFTools(ocr.PDFConfig{DPI: cfg.OCR.DPI, MaxPages: cfg.OCR.MaxPages}, nil, logger)
	ex := extract.NewExtractor(extract.Config{MinTextLength: cfg.OCR.MinTextLength}, pdf, recognizer, logger)
	return ex, cleanup, nil
}

// NewAnalyzer builds the analyzer over the OpenAI responses API.
func NewAnalyzer(cfg *common.Config, logger *slog.Logger) *llm.Analyzer {
	client := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	var guards []llm.Guardrail
	if cfg.LLM.GuardrailsEnabled {
		guards = llm.DefaultGuardrails()
	}
	return llm.NewAnalyzer(client, llm.Config{
		Model:        cfg.LLM.Model,
		ContentLimit: cfg.LLM.ContentLimit,
		SchemaMode:   llm.SchemaMode(cfg.LLM.SchemaMode),
		Categories:   cfg.LLM.Categories,
		Guardrails:   guards,
	}, logger)
}

// New wires the full worker: job store, file store, cursor store, extractor, analyzer and orchestrator.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	db, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, func() { db.Close(logger) })
	a.Jobs = repository.NewJobRepository(db, logger)
	a.Runs = repository.NewRunRepository(db, logger)
	a.Export = export.NewService(a.Runs, logger)

	files, err := drive.NewClient(ctx, drive.Config{
		CredentialsFile: cfg.Drive.CredentialsFile,
		RateLimit:       cfg.Drive.RateLimit,
		RateBurst:       cfg.Drive.RateBurst,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Files = files

	blobs, err := blob.New(cfg.Blob)
	if err != nil {
		a.Close()
		return nil, err
	}

	ex, cleanup, err := NewExtractor(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, cleanup)
	a.Extractor = ex
	a.Analyzer = NewAnalyzer(cfg, logger)

	a.Orchestrator = pipeline.NewOrchestrator(
		files,
		ex,
		a.Analyzer,
		index.New(files, logger),
		tracker.New(files, blobs, tracker.Config{CursorObject: cfg.Blob.CursorObject}, logger),
		pipeline.Config{ProcessedMarker: cfg.Naming.ProcessedMarker, AppendMarker: cfg.Naming.AppendMarker},
		logger,
	)
	a.Worker = worker.NewService(a.Jobs, a.Runs, a.Orchestrator, nil, logger)
	return a, nil
}

// StartQueue starts the async pool that serves /run-job.
func (a *App) StartQueue() *async.JobQueue {
	if a.Queue != nil {
		return a.Queue
	}
	a.Queue = async.NewJobQueue(a.Worker.HandleQueued, a.Logger,
		async.WithWorkers(a.Config.Server.QueueWorkers),
		async.WithQueueSize(a.Config.Server.QueueSize),
		async.WithRunTimeout(a.Config.Server.RunTimeout),
	)
	a.Worker.SetQueue(a.Queue)
	return a.Queue
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
