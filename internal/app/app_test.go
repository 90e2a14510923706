package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/drive-renamer/internal/common"
	"github.com/joseph-ayodele/drive-renamer/internal/extract"
)

func TestNewExtractorWithoutVisionDisablesOCR(t *testing.T) {
	cfg := &common.Config{
		OCR:   common.OCRConfig{Enabled: true, Provider: "vision", MinTextLength: 100},
		Drive: common.DriveConfig{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")},
	}

	ex, cleanup, err := NewExtractor(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, extract.OCRDisabledSentinel, ex.Extract(context.Background(), "scan.png", []byte{0x89, 'P', 'N', 'G'}))
	assert.Equal(t, "hola", ex.Extract(context.Background(), "nota.txt", []byte("hola")))
}
