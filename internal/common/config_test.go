package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := LoadConfig()
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "file::memory:"
	cfg.LLM.APIKey = "sk-test"
	cfg.Blob.Backend = "fs"
	cfg.Blob.Dir = "/tmp/state"
	return cfg
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, 200, cfg.OCR.DPI)
	assert.Equal(t, 100, cfg.OCR.MinTextLength)
	assert.Equal(t, 8000, cfg.LLM.ContentLimit)
	assert.Equal(t, "lenient", cfg.LLM.SchemaMode)
	assert.Equal(t, "DOCPROCESADO", cfg.Naming.ProcessedMarker)
	assert.True(t, cfg.Naming.AppendMarker)
	assert.Equal(t, "drive_changes_token.json", cfg.Blob.CursorObject)
	assert.Equal(t, 15*time.Minute, cfg.Server.RunTimeout)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("OCR_DPI", "300")
	t.Setenv("OCR_ENABLED", "false")
	t.Setenv("RUN_TIMEOUT", "2m")
	t.Setenv("DRIVE_RATE_LIMIT", "2.5")
	t.Setenv("LLM_CATEGORIES", "FACTURA, LEGAL ,,")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.False(t, cfg.OCR.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Server.RunTimeout)
	assert.InDelta(t, 2.5, cfg.Drive.RateLimit, 0.0001)
	assert.Equal(t, []string{"FACTURA", "LEGAL"}, cfg.LLM.Categories)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "missing dsn", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: true},
		{name: "missing api key", mutate: func(c *Config) { c.LLM.APIKey = "" }, wantErr: true},
		{name: "bad schema mode", mutate: func(c *Config) { c.LLM.SchemaMode = "loose" }, wantErr: true},
		{name: "minio without bucket", mutate: func(c *Config) { c.Blob.Backend = "minio"; c.Blob.Endpoint = "localhost:9000" }, wantErr: true},
		{name: "bad ocr provider", mutate: func(c *Config) { c.OCR.Provider = "abbyy" }, wantErr: true},
		{name: "ocr disabled ignores provider", mutate: func(c *Config) { c.OCR.Enabled = false; c.OCR.Provider = "abbyy" }},
		{name: "empty marker", mutate: func(c *Config) { c.Naming.ProcessedMarker = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))
			assert.True(t, IsConfigError(err))
		})
	}
}
