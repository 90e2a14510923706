package tracker

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/drive-renamer/internal/drive"
)

type frame struct {
	folderID  string
	pageToken string
}

// ResolveTargetFolders searches depth-first below rootID for folders named in names. Matched
// folders are collected and not descended into. Each folder keeps its own pagination state.
func (t *Tracker) ResolveTargetFolders(ctx context.Context, rootID string, names []string) ([]string, error) {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	var (
		found   []string
		seen    = map[string]struct{}{rootID: {}}
		matched = map[string]struct{}{}
		stack   = []frame{{folderID: rootID}}
	)
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		page, err := t.files.List(ctx, drive.Query{ParentID: top.folderID, Kind: drive.FoldersOnly, PageToken: top.pageToken})
		if err != nil {
			if top.folderID == rootID {
				return nil, fmt.Errorf("list folders under %s: %w", rootID, err)
			}
			t.logger.Warn("tracker.resolve.list_failed", "folder_id", top.folderID, "error", err)
			continue
		}
		if page.NextPageToken != "" {
			stack = append(stack, frame{folderID: top.folderID, pageToken: page.NextPageToken})
		}

		var descend []string
		for _, f := range page.Files {
			if _, ok := wanted[f.Name]; ok {
				if _, dup := matched[f.ID]; !dup {
					matched[f.ID] = struct{}{}
					found = append(found, f.ID)
				}
				continue
			}
			if _, ok := seen[f.ID]; ok {
				continue
			}
			seen[f.ID] = struct{}{}
			descend = append(descend, f.ID)
		}
		// reverse so the first child is visited first
		for i := len(descend) - 1; i >= 0; i-- {
			stack = append(stack, frame{folderID: descend[i]})
		}
	}
	t.logger.Info("tracker.resolve.done", "root_id", rootID, "names", names, "found", len(found))
	return found, nil
}
