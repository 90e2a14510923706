package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

type imageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

// Vision recognizes text with Cloud Vision document text detection.
type Vision struct {
	client imageAnnotator
	closer func() error
	logger *slog.Logger
}

// NewVision dials the Cloud Vision API with application default credentials unless opts say otherwise.
func NewVision(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*Vision, error) {
	c, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	v := newVision(c, logger)
	v.closer = c.Close
	return v, nil
}

func newVision(client imageAnnotator, logger *slog.Logger) *Vision {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vision{client: client, logger: logger}
}

func (v *Vision) Recognize(ctx context.Context, image []byte) (string, error) {
	start := time.Now()
	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: image},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		v.logger.Error("ocr.vision.error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return "", ErrNoText
	}
	r := resp.GetResponses()[0]
	if e := r.GetError(); e != nil && e.GetMessage() != "" {
		return "", errors.New("vision: " + e.GetMessage())
	}

	txt := strings.TrimSpace(r.GetFullTextAnnotation().GetText())
	v.logger.Debug("ocr.vision.ok", "chars", len(txt), "elapsed_ms", time.Since(start).Milliseconds())
	if txt == "" {
		return "", ErrNoText
	}
	return txt, nil
}

// Close releases the underlying gRPC connection.
func (v *Vision) Close() error {
	if v.closer == nil {
		return nil
	}
	return v.closer()
}
