// Package drivetest provides an in-memory drive.Store for tests.
package drivetest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/joseph-ayodele/drive-renamer/constants"
	"github.com/joseph-ayodele/drive-renamer/internal/drive"
)

type Rename struct {
	FileID string
	From   string
	To     string
}

// Fake is an in-memory file store with a scripted change feed.
type Fake struct {
	mu       sync.Mutex
	order    []string
	files    map[string]*drive.File
	content  map[string][]byte
	changes  map[string]drive.ChangePage
	nextID   int
	PageSize int

	StartToken  string
	StartCalls  int
	ChangesErr  func(token string) error
	ListErr     func(q drive.Query) error
	DownloadErr func(fileID string) error
	RenameErr   func(fileID string) error
	Renames     []Rename
	Uploads     int
}

func New() *Fake {
	return &Fake{
		files:      map[string]*drive.File{},
		content:    map[string][]byte{},
		changes:    map[string]drive.ChangePage{},
		StartToken: "start-1",
	}
}

func (f *Fake) add(parentID, name, mime string, data []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("id-%d", f.nextID)
	file := &drive.File{ID: id, Name: name, MimeType: mime}
	if parentID != "" {
		file.Parents = []string{parentID}
	}
	f.files[id] = file
	f.content[id] = data
	f.order = append(f.order, id)
	return id
}

func (f *Fake) AddFolder(parentID, name string) string {
	return f.add(parentID, name, constants.FolderMimeType, nil)
}

func (f *Fake) AddFile(parentID, name string, data []byte) string {
	return f.add(parentID, name, "application/octet-stream", data)
}

// Trash marks a file trashed so listings skip it.
func (f *Fake) Trash(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if file, ok := f.files[id]; ok {
		file.Trashed = true
	}
}

// SetChanges scripts the page returned for token.
func (f *Fake) SetChanges(token string, page drive.ChangePage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes[token] = page
}

func (f *Fake) File(id string) (drive.File, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return drive.File{}, false
	}
	return *file, true
}

func (f *Fake) Content(id string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content[id]
}

func (f *Fake) List(_ context.Context, q drive.Query) (drive.FilePage, error) {
	if f.ListErr != nil {
		if err := f.ListErr(q); err != nil {
			return drive.FilePage{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []drive.File
	for _, id := range f.order {
		file := f.files[id]
		if file.Trashed || !file.HasParent(map[string]struct{}{q.ParentID: {}}) {
			continue
		}
		if q.Kind == drive.FoldersOnly && !file.IsFolder() || q.Kind == drive.FilesOnly && file.IsFolder() {
			continue
		}
		if q.Name != "" && file.Name != q.Name {
			continue
		}
		matched = append(matched, *file)
	}

	offset := 0
	if q.PageToken != "" {
		n, err := strconv.Atoi(q.PageToken)
		if err != nil {
			return drive.FilePage{}, fmt.Errorf("bad page token %q", q.PageToken)
		}
		offset = n
	}
	if f.PageSize <= 0 || offset+f.PageSize >= len(matched) {
		if offset > len(matched) {
			offset = len(matched)
		}
		return drive.FilePage{Files: matched[offset:]}, nil
	}
	end := offset + f.PageSize
	return drive.FilePage{Files: matched[offset:end], NextPageToken: strconv.Itoa(end)}, nil
}

func (f *Fake) Download(_ context.Context, fileID string) ([]byte, error) {
	if f.DownloadErr != nil {
		if err := f.DownloadErr(fileID); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.content[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", fileID)
	}
	return data, nil
}

func (f *Fake) Rename(_ context.Context, fileID, name string) error {
	if f.RenameErr != nil {
		if err := f.RenameErr(fileID); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[fileID]
	if !ok {
		return fmt.Errorf("file %s not found", fileID)
	}
	f.Renames = append(f.Renames, Rename{FileID: fileID, From: file.Name, To: name})
	file.Name = name
	return nil
}

func (f *Fake) UpdateContent(_ context.Context, fileID string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[fileID]; !ok {
		return fmt.Errorf("file %s not found", fileID)
	}
	f.content[fileID] = data
	f.Uploads++
	return nil
}

func (f *Fake) CreateFile(_ context.Context, parentID, name string, data []byte, mimeType string) (string, error) {
	id := f.add(parentID, name, mimeType, data)
	f.mu.Lock()
	f.Uploads++
	f.mu.Unlock()
	return id, nil
}

func (f *Fake) StartPageToken(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StartCalls++
	return f.StartToken, nil
}

func (f *Fake) ListChanges(_ context.Context, pageToken string) (drive.ChangePage, error) {
	if f.ChangesErr != nil {
		if err := f.ChangesErr(pageToken); err != nil {
			return drive.ChangePage{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	page, ok := f.changes[pageToken]
	if !ok {
		return drive.ChangePage{NewStartPageToken: pageToken}, nil
	}
	return page, nil
}

var _ drive.Store = (*Fake)(nil)
