package pipeline

import (
	"context"

	"github.com/joseph-ayodele/drive-renamer/internal/entity"
	"github.com/joseph-ayodele/drive-renamer/internal/extract"
	"github.com/joseph-ayodele/drive-renamer/internal/index"
	"github.com/joseph-ayodele/drive-renamer/internal/llm"
	"github.com/joseph-ayodele/drive-renamer/internal/tracker"
)

// ContentExtractor turns file bytes into text. It never fails; problems come back as sentinel text.
type ContentExtractor interface {
	Extract(ctx context.Context, fileName string, data []byte) string
}

// Analyzer derives naming fields from extracted text. It never fails; it falls back instead.
type Analyzer interface {
	Analyze(ctx context.Context, job entity.Job, fileName, content string) llm.Analysis
}

type IndexWriter interface {
	Upsert(ctx context.Context, folderID, originalName, newName, summary string, deleted bool) error
}

// ChangeFeed resolves folders and replays the file-store change feed for one root.
type ChangeFeed interface {
	ResolveTargetFolders(ctx context.Context, rootID string, names []string) ([]string, error)
	Begin(ctx context.Context, rootID string) (token string, initial bool, err error)
	Drain(ctx context.Context, rootID, token string, handle tracker.ChangeHandler) (tracker.DrainStats, error)
}

var (
	_ ContentExtractor = (*extract.Extractor)(nil)
	_ Analyzer         = (*llm.Analyzer)(nil)
	_ IndexWriter      = (*index.Maintainer)(nil)
	_ ChangeFeed       = (*tracker.Tracker)(nil)
)
