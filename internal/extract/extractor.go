package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/drive-renamer/constants"
	"github.com/joseph-ayodele/drive-renamer/internal/ocr"
)

type Config struct {
	// MinTextLength is the trimmed text-layer length below which a PDF is treated as scanned.
	MinTextLength int
}

// Extractor turns file bytes into text by dispatching on the file extension.
type Extractor struct {
	cfg        Config
	pdf        PDFSource
	recognizer ocr.Recognizer // nil when OCR is disabled
	logger     *slog.Logger
}

func NewExtractor(cfg Config, pdf PDFSource, recognizer ocr.Recognizer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = 100
	}
	return &Extractor{cfg: cfg, pdf: pdf, recognizer: recognizer, logger: logger}
}

// Extract returns the text content of a file. Failures come back as sentinel strings.
func (e *Extractor) Extract(ctx context.Context, fileName string, data []byte) (text string) {
	start := time.Now()
	format := constants.MapExtToFormat(filepath.Ext(fileName))
	method := strings.ToLower(string(format))

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extract.panic", "file", fileName, "panic", r)
			text = ErrorSentinel(fmt.Errorf("panic: %v", r))
		}
	}()

	var err error
	switch format {
	case constants.TEXT:
		text = decodeText(data)
	case constants.SPREADSHEET:
		text, err = spreadsheetText(data)
	case constants.DOCUMENT:
		text, err = documentText(data)
	case constants.PDF:
		text, method, err = e.pdfText(ctx, data)
	case constants.IMAGE:
		text, err = e.imageText(ctx, data)
		method = "image-ocr"
	default:
		text = decodeText(data)
		if text == "" {
			text = UnsupportedSentinel
		}
		method = "fallback-utf8"
	}

	if err != nil {
		e.logger.Error("extract.failed", "file", fileName, "format", format, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return ErrorSentinel(err)
	}

	e.logger.Info("extract.ok",
		"file", fileName,
		"format", format,
		"method", method,
		"chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text
}

func (e *Extractor) pdfText(ctx context.Context, data []byte) (string, string, error) {
	if e.pdf == nil {
		return "", "pdf-text", errors.New("pdf tools not configured")
	}
	pages, err := e.pdf.TextPages(ctx, data)
	if err != nil {
		return "", "pdf-text", err
	}
	combined := strings.Join(pages, "\n")
	if len(strings.TrimSpace(combined)) >= e.cfg.MinTextLength {
		return combined, "pdf-text", nil
	}

	if e.recognizer == nil {
		e.logger.Warn("extract.pdf.insufficient_text_ocr_disabled", "chars", len(strings.TrimSpace(combined)))
		if strings.TrimSpace(combined) == "" {
			return OCRDisabledSentinel, "pdf-text", nil
		}
		return combined, "pdf-text", nil
	}

	e.logger.Info("extract.pdf.ocr_fallback", "chars", len(strings.TrimSpace(combined)), "threshold", e.cfg.MinTextLength)
	images, err := e.pdf.RenderPages(ctx, data)
	if err != nil {
		return "", "pdf-ocr", fmt.Errorf("render pdf: %w", err)
	}
	texts := make([]string, 0, len(images))
	for i, img := range images {
		txt, err := e.recognize(ctx, img)
		if err != nil {
			return "", "pdf-ocr", fmt.Errorf("ocr page %d: %w", i+1, err)
		}
		texts = append(texts, txt)
	}
	return strings.Join(texts, "\n"), "pdf-ocr", nil
}

func (e *Extractor) imageText(ctx context.Context, data []byte) (string, error) {
	if e.recognizer == nil {
		e.logger.Warn("extract.image.ocr_disabled")
		return OCRDisabledSentinel, nil
	}
	return e.recognize(ctx, data)
}

func (e *Extractor) recognize(ctx context.Context, img []byte) (string, error) {
	txt, err := e.recognizer.Recognize(ctx, img)
	if errors.Is(err, ocr.ErrNoText) {
		return NoTextSentinel, nil
	}
	return txt, err
}

// decodeText decodes UTF-8, dropping invalid byte sequences.
func decodeText(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}
