package index

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/drive-renamer/constants"
	"github.com/joseph-ayodele/drive-renamer/internal/drive"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	contentType     = "text/html"

	deletedNewName = "N/A"
	deletedSummary = "Archivo eliminado del registro."
)

// Maintainer keeps one index.html per folder with a row per original file name.
type Maintainer struct {
	files  drive.Store
	logger *slog.Logger
	now    func() time.Time
}

func New(files drive.Store, logger *slog.Logger) *Maintainer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Maintainer{files: files, logger: logger, now: time.Now}
}

// Load returns the folder's table and the index file id ("" when none exists yet).
// A missing or unparsable index yields an empty table.
func (m *Maintainer) Load(ctx context.Context, folderID string) (*Table, string, error) {
	f, ok, err := drive.FindByName(ctx, m.files, folderID, constants.IndexFileName)
	if err != nil {
		return nil, "", fmt.Errorf("find index: %w", err)
	}
	if !ok {
		return &Table{}, "", nil
	}
	data, err := m.files.Download(ctx, f.ID)
	if err != nil {
		return nil, "", fmt.Errorf("download index: %w", err)
	}
	table, err := Parse(bytes.NewReader(data))
	if err != nil {
		m.logger.Warn("index.parse_failed", "folder_id", folderID, "file_id", f.ID, "error", err)
		return &Table{}, f.ID, nil
	}
	return table, f.ID, nil
}

// Upsert records a rename (or a deletion) for originalName in folderID's index.
func (m *Maintainer) Upsert(ctx context.Context, folderID, originalName, newName, summary string, deleted bool) error {
	start := time.Now()
	table, fileID, err := m.Load(ctx, folderID)
	if err != nil {
		return err
	}

	id := RowID(originalName)
	now := m.now().Format(timestampLayout)
	i := table.find(id)

	switch {
	case i >= 0 && len(table.Rows[i].Cells) >= columnCount:
		cells := table.Rows[i].Cells
		if deleted {
			cells[3] = string(constants.RowDeleted)
		} else {
			cells[1] = newName
			cells[2] = summary
			cells[3] = string(constants.RowActive)
		}
		cells[4] = now
	default:
		row := Row{ID: id, Cells: []string{originalName, newName, summary, string(constants.RowActive), now}}
		if deleted {
			row.Cells = []string{originalName, deletedNewName, deletedSummary, string(constants.RowDeleted), now}
		}
		if i >= 0 {
			table.Rows[i] = row
		} else {
			table.Rows = append(table.Rows, row)
		}
	}

	data, err := table.Render()
	if err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	if fileID != "" {
		err = m.files.UpdateContent(ctx, fileID, data, contentType)
	} else {
		_, err = m.files.CreateFile(ctx, folderID, constants.IndexFileName, data, contentType)
	}
	if err != nil {
		return fmt.Errorf("upload index: %w", err)
	}

	m.logger.Info("index.upsert",
		"folder_id", folderID,
		"row_id", id,
		"deleted", deleted,
		"created_file", fileID == "",
		"rows", len(table.Rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
