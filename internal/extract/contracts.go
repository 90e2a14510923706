package extract

import "context"

// Sentinel strings returned in place of content. Extraction never fails the caller.
const (
	UnsupportedSentinel = "[Unsupported file type]"
	OCRDisabledSentinel = "[OCR disabled - image content not extracted]"
	NoTextSentinel      = "[No text detected]"
	errorSentinelPrefix = "[Error extracting content: "
)

// ErrorSentinel formats an extraction failure as content.
func ErrorSentinel(err error) string {
	return errorSentinelPrefix + err.Error() + "]"
}

// IsSentinel reports whether text is one of the placeholder strings rather than document content.
func IsSentinel(text string) bool {
	switch text {
	case UnsupportedSentinel, OCRDisabledSentinel, NoTextSentinel:
		return true
	}
	return len(text) > len(errorSentinelPrefix) && text[:len(errorSentinelPrefix)] == errorSentinelPrefix
}

// PDFSource reads the text layer of a PDF and rasterizes its pages.
type PDFSource interface {
	TextPages(ctx context.Context, data []byte) ([]string, error)
	RenderPages(ctx context.Context, data []byte) ([][]byte, error)
}
