package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// TesseractConfig configures the local OCR engine.
type TesseractConfig struct {
	Binary      string // if empty -> "tesseract"
	Lang        string // default "spa+eng"
	TessdataDir string
	PSM         int // e.g., 6 is good for uniform block of text
}

// Tesseract recognizes text with a local tesseract install.
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseract(cfg TesseractConfig, runner Runner, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "spa+eng"
	}
	return &Tesseract{cfg: cfg, runner: runner, logger: logger}
}

func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	tmpDir, path, err := writeTemp(image, "image")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	// tesseract <file> stdout -l <lang>
	args := []string{path, "stdout", "-l", t.cfg.Lang}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", t.cfg.PSM))
	}
	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(string(errb)))
	}

	txt := Normalize(string(out))
	if txt == "" {
		return "", ErrNoText
	}
	return txt, nil
}
