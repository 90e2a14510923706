package drive

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/joseph-ayodele/drive-renamer/constants"
	"github.com/joseph-ayodele/drive-renamer/internal/common"
	"google.golang.org/api/googleapi"
)

// File is the subset of file-store metadata the renamer works with.
type File struct {
	ID       string
	Name     string
	MimeType string
	Parents  []string
	Trashed  bool
}

func (f File) IsFolder() bool { return f.MimeType == constants.FolderMimeType }

// HasParent reports whether any of the file's parents is in set.
func (f File) HasParent(set map[string]struct{}) bool {
	for _, p := range f.Parents {
		if _, ok := set[p]; ok {
			return true
		}
	}
	return false
}

// Change is one entry of the change feed.
type Change struct {
	FileID  string
	Removed bool
	File    *File
}

type ChangePage struct {
	Changes           []Change
	NextPageToken     string
	NewStartPageToken string
}

type Kind int

const (
	AnyKind Kind = iota
	FoldersOnly
	FilesOnly
)

// Query selects non-trashed children of one folder.
type Query struct {
	ParentID  string
	Kind      Kind
	Name      string // exact match when set
	PageToken string
}

type FilePage struct {
	Files         []File
	NextPageToken string
}

// Store is the file-store surface used by the tracker, the index and the orchestrator.
type Store interface {
	List(ctx context.Context, q Query) (FilePage, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
	Rename(ctx context.Context, fileID, name string) error
	UpdateContent(ctx context.Context, fileID string, data []byte, mimeType string) error
	CreateFile(ctx context.Context, parentID, name string, data []byte, mimeType string) (string, error)
	StartPageToken(ctx context.Context) (string, error)
	ListChanges(ctx context.Context, pageToken string) (ChangePage, error)
}

// ListAll follows page tokens until the listing is exhausted.
func ListAll(ctx context.Context, s Store, q Query) ([]File, error) {
	var out []File
	for {
		page, err := s.List(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Files...)
		if page.NextPageToken == "" {
			return out, nil
		}
		q.PageToken = page.NextPageToken
	}
}

// FindByName returns the first non-trashed child of parentID named name.
func FindByName(ctx context.Context, s Store, parentID, name string) (File, bool, error) {
	page, err := s.List(ctx, Query{ParentID: parentID, Kind: FilesOnly, Name: name})
	if err != nil {
		return File{}, false, err
	}
	if len(page.Files) == 0 {
		return File{}, false, nil
	}
	return page.Files[0], true, nil
}

// BuildQuery renders q in the file-store query language.
func BuildQuery(q Query) string {
	parts := []string{"'" + escape(q.ParentID) + "' in parents", "trashed=false"}
	switch q.Kind {
	case FoldersOnly:
		parts = append(parts, "mimeType='"+constants.FolderMimeType+"'")
	case FilesOnly:
		parts = append(parts, "mimeType!='"+constants.FolderMimeType+"'")
	}
	if q.Name != "" {
		parts = append(parts, "name='"+escape(q.Name)+"'")
	}
	return strings.Join(parts, " and ")
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// IsAuthError reports whether err is a 401/403 from the file store.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, common.ErrUnauthorized) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden
	}
	return false
}
