package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/drive-renamer/internal/entity"
	"github.com/joseph-ayodele/drive-renamer/internal/repository"
)

const sheet = "Runs"

// Service produces XLSX bytes for run-history exports.
type Service struct {
	runsRepo repository.RunRepository
	logger   *slog.Logger
}

func NewService(runs repository.RunRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runsRepo: runs, logger: logger}
}

// RunsXLSX returns a workbook with the latest runs of jobID, or of every job when jobID is empty.
// limit <= 0 exports everything.
func (s *Service) RunsXLSX(ctx context.Context, jobID string, limit int) ([]byte, error) {
	start := time.Now()

	var (
		runs []entity.Run
		err  error
	)
	if jobID != "" {
		runs, err = s.runsRepo.ListByJob(ctx, jobID, limit)
	} else {
		runs, err = s.runsRepo.ListRecent(ctx, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	headers := []string{
		"Run ID",
		"Job",
		"Trigger",
		"Folder",
		"Status",
		"Processed",
		"Renamed",
		"Errors",
		"Started (UTC)",
		"Duration (s)",
		"Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range runs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.ID.String())
		write(2, r.JobID)
		write(3, string(r.Trigger))
		write(4, r.FolderID)
		write(5, string(r.Status))
		write(6, r.FilesProcessed)
		write(7, r.FilesRenamed)
		write(8, r.Errors)
		write(9, r.StartedAt.UTC().Format("2006-01-02 15:04:05"))
		if r.FinishedAt != nil {
			write(10, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).Seconds())
		} else {
			write(10, "")
		}
		write(11, truncate(r.ErrorMessage, 200))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 38) // id
	_ = f.SetColWidth(sheet, "B", "B", 24) // job
	_ = f.SetColWidth(sheet, "C", "E", 14)
	_ = f.SetColWidth(sheet, "F", "H", 11) // counters
	_ = f.SetColWidth(sheet, "I", "J", 20)
	_ = f.SetColWidth(sheet, "K", "K", 60) // error

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"job_id", jobID,
		"rows", len(runs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
