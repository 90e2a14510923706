package blob

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/drive-renamer/internal/common"
)

// ErrNotFound is returned by Get when the object does not exist.
var ErrNotFound = fmt.Errorf("blob: %w", common.ErrNotFound)

// Store persists small named objects such as the change-feed cursor.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// New builds the store selected by cfg.Backend.
func New(cfg common.BlobConfig) (Store, error) {
	switch cfg.Backend {
	case "minio":
		return NewMinioStore(MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
	case "fs":
		return NewFSStore(cfg.Dir)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", "unknown blob backend "+cfg.Backend, common.ErrConfig)
	}
}
