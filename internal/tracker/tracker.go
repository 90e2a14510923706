package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/joseph-ayodele/drive-renamer/internal/blob"
	"github.com/joseph-ayodele/drive-renamer/internal/drive"
)

const defaultCursorObject = "drive_changes_token.json"

type Config struct {
	CursorObject string
}

// cursorDoc is the persisted cursor blob.
type cursorDoc struct {
	PageToken string `json:"pageToken"`
}

// Tracker persists the change-feed cursor for each watched root and drains the feed.
type Tracker struct {
	files  drive.Store
	blobs  blob.Store
	cfg    Config
	logger *slog.Logger
}

func New(files drive.Store, blobs blob.Store, cfg Config, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CursorObject == "" {
		cfg.CursorObject = defaultCursorObject
	}
	return &Tracker{files: files, blobs: blobs, cfg: cfg, logger: logger}
}

func (t *Tracker) cursorKey(rootID string) string {
	return path.Join(rootID, t.cfg.CursorObject)
}

// GetCursor returns the persisted token for rootID. A missing or unreadable blob means no prior sync.
func (t *Tracker) GetCursor(ctx context.Context, rootID string) (string, bool) {
	token, ok, err := t.loadCursor(ctx, rootID)
	if err != nil {
		t.logger.Warn("tracker.cursor.read_failed", "key", t.cursorKey(rootID), "error", err)
		return "", false
	}
	return token, ok
}

// loadCursor reports ok=false for an absent or unparsable cursor. Any other read failure is an error.
func (t *Tracker) loadCursor(ctx context.Context, rootID string) (string, bool, error) {
	key := t.cursorKey(rootID)
	data, err := t.blobs.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cursor: %w", err)
	}
	var doc cursorDoc
	if err := json.Unmarshal(data, &doc); err != nil || doc.PageToken == "" {
		t.logger.Warn("tracker.cursor.unparsable", "key", key, "error", err)
		return "", false, nil
	}
	return doc.PageToken, true, nil
}

func (t *Tracker) SaveCursor(ctx context.Context, rootID, token string) error {
	data, err := json.Marshal(cursorDoc{PageToken: token})
	if err != nil {
		return err
	}
	key := t.cursorKey(rootID)
	if err := t.blobs.Put(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	t.logger.Debug("tracker.cursor.saved", "key", key, "token", token)
	return nil
}

// Begin returns the token to drain from. Without a persisted cursor it fetches and saves a
// fresh start token and reports initial=true: the caller should do a full listing instead.
// A failed cursor read is returned as is and the stored cursor is left untouched.
func (t *Tracker) Begin(ctx context.Context, rootID string) (token string, initial bool, err error) {
	token, ok, err := t.loadCursor(ctx, rootID)
	if err != nil {
		return "", false, err
	}
	if ok {
		return token, false, nil
	}
	token, err = t.files.StartPageToken(ctx)
	if err != nil {
		return "", false, fmt.Errorf("start page token: %w", err)
	}
	if err := t.SaveCursor(ctx, rootID, token); err != nil {
		return "", false, err
	}
	t.logger.Info("tracker.initial_sync", "root_id", rootID, "token", token)
	return token, true, nil
}

// ChangeHandler processes one change. A returned error stops the drain without advancing the cursor past its page.
type ChangeHandler func(ctx context.Context, change drive.Change) error

type DrainStats struct {
	Pages   int
	Changes int
	Reset   bool // the cursor was re-fetched after an authorization failure
}

// Drain walks the change feed from token, handing every change to handle and checkpointing the
// cursor after each page.
func (t *Tracker) Drain(ctx context.Context, rootID, token string, handle ChangeHandler) (DrainStats, error) {
	var stats DrainStats
	start := time.Now()
	pageToken := token
	for pageToken != "" {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		page, err := t.files.ListChanges(ctx, pageToken)
		if err != nil {
			if drive.IsAuthError(err) {
				return t.reset(ctx, rootID, stats, err)
			}
			return stats, fmt.Errorf("list changes: %w", err)
		}
		stats.Pages++

		for _, ch := range page.Changes {
			stats.Changes++
			if err := handle(ctx, ch); err != nil {
				return stats, err
			}
		}

		switch {
		case page.NewStartPageToken != "":
			if err := t.SaveCursor(ctx, rootID, page.NewStartPageToken); err != nil {
				return stats, err
			}
		case page.NextPageToken != "":
			if err := t.SaveCursor(ctx, rootID, page.NextPageToken); err != nil {
				return stats, err
			}
		}
		t.logger.Debug("tracker.drain.page", "root_id", rootID, "changes", len(page.Changes),
			"has_next", page.NextPageToken != "")
		pageToken = page.NextPageToken
	}
	t.logger.Info("tracker.drain.done",
		"root_id", rootID,
		"pages", stats.Pages,
		"changes", stats.Changes,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return stats, nil
}

func (t *Tracker) reset(ctx context.Context, rootID string, stats DrainStats, cause error) (DrainStats, error) {
	t.logger.Warn("tracker.drain.auth_reset", "root_id", rootID, "error", cause)
	fresh, err := t.files.StartPageToken(ctx)
	if err != nil {
		return stats, fmt.Errorf("reset cursor: %w", err)
	}
	if err := t.SaveCursor(ctx, rootID, fresh); err != nil {
		return stats, err
	}
	stats.Reset = true
	return stats, nil
}
