package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	listFields    = "nextPageToken, files(id, name, mimeType, parents, trashed)"
	changesFields = "nextPageToken, newStartPageToken, changes(fileId, removed, file(id, name, mimeType, parents, trashed))"
	pageSize      = 100
)

type Config struct {
	CredentialsFile string
	RateLimit       float64 // requests per second, 0 = unlimited
	RateBurst       int
}

// Client implements Store over the Drive v3 API.
type Client struct {
	svc     *gdrive.Service
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]option.ClientOption{option.WithScopes(gdrive.DriveScope)}, opts...)
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive: create service: %w", err)
	}
	return &Client{svc: svc, limiter: newLimiter(cfg), logger: logger}, nil
}

func newLimiter(cfg Config) *rate.Limiter {
	if cfg.RateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
}

func (c *Client) wait(ctx context.Context, op string) error {
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("drive: %s: %w", op, err)
	}
	if waited := time.Since(start); waited > time.Second {
		c.logger.Debug("drive.throttled", "op", op, "elapsed_ms", waited.Milliseconds())
	}
	return nil
}

func (c *Client) List(ctx context.Context, q Query) (FilePage, error) {
	if err := c.wait(ctx, "list"); err != nil {
		return FilePage{}, err
	}
	call := c.svc.Files.List().
		Q(BuildQuery(q)).
		Fields(listFields).
		PageSize(pageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx)
	if q.PageToken != "" {
		call = call.PageToken(q.PageToken)
	}
	res, err := call.Do()
	if err != nil {
		return FilePage{}, fmt.Errorf("drive: list %s: %w", q.ParentID, err)
	}
	page := FilePage{NextPageToken: res.NextPageToken, Files: make([]File, 0, len(res.Files))}
	for _, f := range res.Files {
		page.Files = append(page.Files, fromAPI(f))
	}
	return page, nil
}

func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	if err := c.wait(ctx, "download"); err != nil {
		return nil, err
	}
	resp, err := c.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("drive: download %s: %w", fileID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("drive: read %s: %w", fileID, err)
	}
	return data, nil
}

func (c *Client) Rename(ctx context.Context, fileID, name string) error {
	if err := c.wait(ctx, "rename"); err != nil {
		return err
	}
	_, err := c.svc.Files.Update(fileID, &gdrive.File{Name: name}).
		Fields("id, name").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("drive: rename %s: %w", fileID, err)
	}
	return nil
}

func (c *Client) UpdateContent(ctx context.Context, fileID string, data []byte, mimeType string) error {
	if err := c.wait(ctx, "update"); err != nil {
		return err
	}
	_, err := c.svc.Files.Update(fileID, &gdrive.File{}).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("drive: update %s: %w", fileID, err)
	}
	return nil
}

func (c *Client) CreateFile(ctx context.Context, parentID, name string, data []byte, mimeType string) (string, error) {
	if err := c.wait(ctx, "create"); err != nil {
		return "", err
	}
	f, err := c.svc.Files.Create(&gdrive.File{Name: name, Parents: []string{parentID}, MimeType: mimeType}).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive: create %s in %s: %w", name, parentID, err)
	}
	return f.Id, nil
}

func (c *Client) StartPageToken(ctx context.Context) (string, error) {
	if err := c.wait(ctx, "start_token"); err != nil {
		return "", err
	}
	res, err := c.svc.Changes.GetStartPageToken().SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive: start page token: %w", err)
	}
	return res.StartPageToken, nil
}

func (c *Client) ListChanges(ctx context.Context, pageToken string) (ChangePage, error) {
	if err := c.wait(ctx, "changes"); err != nil {
		return ChangePage{}, err
	}
	res, err := c.svc.Changes.List(pageToken).
		Fields(changesFields).
		PageSize(pageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return ChangePage{}, fmt.Errorf("drive: list changes: %w", err)
	}
	page := ChangePage{
		NextPageToken:     res.NextPageToken,
		NewStartPageToken: res.NewStartPageToken,
		Changes:           make([]Change, 0, len(res.Changes)),
	}
	for _, ch := range res.Changes {
		change := Change{FileID: ch.FileId, Removed: ch.Removed}
		if ch.File != nil {
			f := fromAPI(ch.File)
			change.File = &f
		}
		page.Changes = append(page.Changes, change)
	}
	return page, nil
}

func fromAPI(f *gdrive.File) File {
	return File{ID: f.Id, Name: f.Name, MimeType: f.MimeType, Parents: f.Parents, Trashed: f.Trashed}
}
