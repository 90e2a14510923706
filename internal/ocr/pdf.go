package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PDFConfig configures the poppler tools.
type PDFConfig struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	DPI       int    // rasterization DPI for scanned PDFs, default 200
	MaxPages  int    // 0 = no limit
}

// PDFTools extracts the text layer of a PDF and renders its pages to PNG.
type PDFTools struct {
	cfg    PDFConfig
	runner Runner
	logger *slog.Logger
}

func NewPDFTools(cfg PDFConfig, runner Runner, logger *slog.Logger) *PDFTools {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	return &PDFTools{cfg: cfg, runner: runner, logger: logger}
}

// TextPages returns the embedded text of each page, in page order.
func (p *PDFTools) TextPages(ctx context.Context, data []byte) ([]string, error) {
	tmpDir, path, err := writeTemp(data, "document.pdf")
	if err != nil {
		return nil, err
	}
	defer p.cleanup(tmpDir)

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	// A form-feed \f is used as page separator; the last page is followed by one too.
	pages := strings.Split(string(out), "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages, nil
}

// RenderPages rasterizes every page to PNG at the configured DPI and returns the images in page order.
func (p *PDFTools) RenderPages(ctx context.Context, data []byte) ([][]byte, error) {
	tmpDir, path, err := writeTemp(data, "document.pdf")
	if err != nil {
		return nil, err
	}
	defer p.cleanup(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 200 -png <in.pdf> <tmp/page>
	_, errb, err := p.runner.Run(ctx, p.cfg.Pdftoppm, "-r", strconv.Itoa(p.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(errb)))
	}

	// collect generated pngs (page-1.png, page-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sortByPageNumber(matches)
	if p.cfg.MaxPages > 0 && len(matches) > p.cfg.MaxPages {
		matches = matches[:p.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}

	images := make([][]byte, 0, len(matches))
	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("read page image: %w", err)
		}
		images = append(images, b)
	}
	p.logger.Debug("ocr.pdf.rendered", "pages", len(images), "dpi", p.cfg.DPI)
	return images, nil
}

func (p *PDFTools) cleanup(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		p.logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
	}
}

func writeTemp(data []byte, name string) (dir, path string, err error) {
	dir, err = os.MkdirTemp("", "renamer-*")
	if err != nil {
		return "", "", err
	}
	path = filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return "", "", err
	}
	return dir, path, nil
}

func sortByPageNumber(paths []string) {
	num := func(p string) int {
		base := strings.TrimSuffix(filepath.Base(p), ".png")
		i := strings.LastIndex(base, "-")
		n, err := strconv.Atoi(base[i+1:])
		if err != nil {
			return 0
		}
		return n
	}
	sort.SliceStable(paths, func(i, j int) bool { return num(paths[i]) < num(paths[j]) })
}
