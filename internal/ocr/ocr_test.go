package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	statuspb "google.golang.org/genproto/googleapis/rpc/status"
)

type call struct {
	name string
	args []string
}

// fakeRunner emulates the poppler and tesseract binaries.
type fakeRunner struct {
	calls     []call
	pdftotext string
	pages     int
	ocr       func(path string) (string, error)
	fail      map[string]error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if err := f.fail[name]; err != nil {
		return nil, []byte("boom"), err
	}
	switch name {
	case "pdftotext":
		return []byte(f.pdftotext), nil, nil
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= f.pages; i++ {
			p := fmt.Sprintf("%s-%d.png", prefix, i)
			if err := os.WriteFile(p, []byte(fmt.Sprintf("png-%d", i)), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		txt, err := f.ocr(args[0])
		return []byte(txt), nil, err
	}
	return nil, nil, errors.New("unexpected command " + name)
}

func TestPDFTextPagesSplitsOnFormFeed(t *testing.T) {
	r := &fakeRunner{pdftotext: "page one\fpage two\f"}
	tools := NewPDFTools(PDFConfig{}, r, nil)

	pages, err := tools.TextPages(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, []string{"page one", "page two"}, pages)
	require.Len(t, r.calls, 1)
	assert.Equal(t, "pdftotext", r.calls[0].name)
}

func TestPDFRenderPagesInPageOrder(t *testing.T) {
	r := &fakeRunner{pages: 11}
	tools := NewPDFTools(PDFConfig{DPI: 200}, r, nil)

	images, err := tools.RenderPages(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	require.Len(t, images, 11)
	for i, img := range images {
		assert.Equal(t, fmt.Sprintf("png-%d", i+1), string(img))
	}
	assert.Contains(t, r.calls[0].args, "200")
}

func TestPDFRenderPagesHonoursMaxPages(t *testing.T) {
	r := &fakeRunner{pages: 5}
	tools := NewPDFTools(PDFConfig{MaxPages: 2}, r, nil)

	images, err := tools.RenderPages(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	assert.Len(t, images, 2)
}

func TestPDFRenderPagesNoOutput(t *testing.T) {
	tools := NewPDFTools(PDFConfig{}, &fakeRunner{}, nil)

	_, err := tools.RenderPages(context.Background(), []byte("%PDF"))
	require.Error(t, err)
}

func TestTesseractRecognize(t *testing.T) {
	r := &fakeRunner{ocr: func(path string) (string, error) {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return "  FACTURA\t\tA\r\n\n\n\n" + string(b) + "  ", nil
	}}
	tess := NewTesseract(TesseractConfig{TessdataDir: "/data"}, r, nil)

	txt, err := tess.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "FACTURA A\n\nimg", txt)
	assert.Contains(t, strings.Join(r.calls[0].args, " "), "--tessdata-dir /data")
	assert.Contains(t, strings.Join(r.calls[0].args, " "), "-l spa+eng")
}

func TestTesseractNoText(t *testing.T) {
	r := &fakeRunner{ocr: func(string) (string, error) { return " \n ", nil }}
	_, err := NewTesseract(TesseractConfig{}, r, nil).Recognize(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, ErrNoText)
}

func TestTesseractFailure(t *testing.T) {
	r := &fakeRunner{fail: map[string]error{"tesseract": errors.New("exit 1")}}
	_, err := NewTesseract(TesseractConfig{}, r, nil).Recognize(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

type fakeAnnotator struct {
	resp *visionpb.BatchAnnotateImagesResponse
	err  error
	req  *visionpb.BatchAnnotateImagesRequest
}

func (f *fakeAnnotator) BatchAnnotateImages(_ context.Context, req *visionpb.BatchAnnotateImagesRequest, _ ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestVisionRecognize(t *testing.T) {
	fa := &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{
			FullTextAnnotation: &visionpb.TextAnnotation{Text: "BANCO GALICIA\n"},
		}},
	}}
	v := newVision(fa, nil)

	txt, err := v.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "BANCO GALICIA", txt)
	require.Len(t, fa.req.GetRequests(), 1)
	assert.Equal(t, visionpb.Feature_DOCUMENT_TEXT_DETECTION, fa.req.GetRequests()[0].GetFeatures()[0].GetType())
	assert.Equal(t, []byte("img"), fa.req.GetRequests()[0].GetImage().GetContent())
	assert.NoError(t, v.Close())
}

func TestVisionErrors(t *testing.T) {
	_, err := newVision(&fakeAnnotator{err: errors.New("unavailable")}, nil).Recognize(context.Background(), nil)
	require.Error(t, err)

	perImage := &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{Error: &statuspb.Status{Message: "bad image"}}},
	}}
	_, err = newVision(perImage, nil).Recognize(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad image")

	empty := &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{}},
	}}
	_, err = newVision(empty, nil).Recognize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoText)
}

func TestSortByPageNumber(t *testing.T) {
	paths := []string{"/t/page-10.png", "/t/page-2.png", "/t/page-1.png"}
	sortByPageNumber(paths)
	assert.Equal(t, []string{"/t/page-1.png", "/t/page-2.png", "/t/page-10.png"}, paths)
	assert.Equal(t, "page-1.png", filepath.Base(paths[0]))
}
