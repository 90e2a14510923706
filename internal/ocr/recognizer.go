package ocr

import (
	"context"
	"errors"
)

// ErrNoText is returned when a recognizer ran but found nothing.
var ErrNoText = errors.New("no text detected")

// Recognizer turns one image into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, image []byte) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}
