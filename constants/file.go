package constants

import "strings"

// Format is the extraction strategy chosen for a file extension.
type Format string

const (
	TEXT        Format = "TEXT"
	SPREADSHEET Format = "SPREADSHEET"
	DOCUMENT    Format = "DOCUMENT"
	PDF         Format = "PDF"
	IMAGE       Format = "IMAGE"
	UNKNOWN     Format = "UNKNOWN"
)

const (
	// IndexFileName is the reserved per-folder index document.
	IndexFileName = "index.html"
	// DefaultProcessedMarker is embedded in renamed files.
	DefaultProcessedMarker = "DOCPROCESADO"
	// FolderMimeType identifies folders in the file store.
	FolderMimeType = "application/vnd.google-apps.folder"
	// DynamicFolder is the placeholder source for jobs that need a folder override.
	DynamicFolder = "DYNAMIC"
	// WildcardFolder means "scan the root folder itself".
	WildcardFolder = "*"
)

var extFormats = map[string]Format{
	"txt":  TEXT,
	"csv":  TEXT,
	"md":   TEXT,
	"json": TEXT,
	"log":  TEXT,
	"xlsx": SPREADSHEET,
	"xlsm": SPREADSHEET,
	"docx": DOCUMENT,
	"pdf":  PDF,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"png":  IMAGE,
	"gif":  IMAGE,
	"bmp":  IMAGE,
	"tiff": IMAGE,
	"tif":  IMAGE,
	"webp": IMAGE,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the extraction format for an extension (with or without the dot).
func MapExtToFormat(ext string) Format {
	if f, ok := extFormats[NormalizeExt(ext)]; ok {
		return f
	}
	return UNKNOWN
}
