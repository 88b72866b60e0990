package ocr

import (
	"context"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/common"
	"github.com/sumanths012/SymptoSense/internal/logging"
)

// fakeRunner answers by binary name and records every call.
type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	handler func(name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	return f.handler(name, args)
}

func (f *fakeRunner) called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c[0] == name {
			n++
		}
	}
	return n
}

func newTestExtractor(t *testing.T, cfg Config, r Runner) *Extractor {
	t.Helper()
	e, err := NewExtractor(cfg, logging.Discard(), WithRunner(r))
	require.NoError(t, err)
	return e
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

const labText = "CITY LAB\r\n|-----------|\r\nTest\t\tResult   Units\r\nGlucose   95   mg/dL  70 - 99\r\n\r\n\r\nInsulin 8.1 uIU/mL\r\n"

func TestExtract_ImageWithTesseract(t *testing.T) {
	r := &fakeRunner{handler: func(name string, args []string) ([]byte, []byte, error) {
		require.Equal(t, "tesseract", name)
		if args[len(args)-1] == "tsv" {
			return []byte("level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
				"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t90\tGlucose\n" +
				"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t-1\t\n" +
				"5\t1\t1\t1\t1\t3\t0\t0\t10\t10\t70\t95\n"), nil, nil
		}
		return []byte(labText), nil, nil
	}}
	img := writeFile(t, t.TempDir(), "report.PNG", "not really a png")
	e := newTestExtractor(t, Config{EnableTSVConfidence: true, PSM: 6}, r)

	res, err := e.Extract(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "CITY LAB\nTest Result Units\nGlucose 95 mg/dL 70 - 99\n\nInsulin 8.1 uIU/mL", res.Text)
	assert.Equal(t, constants.IMAGE, res.SourceType)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, BackendTesseract, res.Engine)
	assert.Equal(t, "eng", res.Language)
	assert.Equal(t, 2, r.called("tesseract"))
	// engine 0.8 blended with the lab-report heuristic (units, range, keywords)
	assert.InDelta(t, 0.7*0.8+0.3*0.7, res.Confidence, 0.001)
	assert.Contains(t, r.calls[0], "--psm")
}

func TestExtract_TesseractFailureIsOCRError(t *testing.T) {
	r := &fakeRunner{handler: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("Error opening data file eng.traineddata"), errors.New("exit status 1")
	}}
	img := writeFile(t, t.TempDir(), "scan.jpg", "x")
	e := newTestExtractor(t, Config{}, r)

	res, err := e.Extract(context.Background(), img)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrOCR))
	assert.Equal(t, []string{"Error opening data file eng.traineddata"}, res.Warnings)
}

func TestExtract_PDFTextLayer(t *testing.T) {
	r := &fakeRunner{handler: func(name string, args []string) ([]byte, []byte, error) {
		require.Equal(t, "pdftotext", name)
		return []byte("Glucose Fasting 101 mg/dL\fPage two\nBlood Pressure 120/80\f"), nil, nil
	}}
	pdf := writeFile(t, t.TempDir(), "report.pdf", "%PDF")
	e := newTestExtractor(t, Config{}, r)

	res, err := e.Extract(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "Glucose Fasting 101 mg/dL\nPage two\nBlood Pressure 120/80", res.Text)
	assert.Equal(t, 0, r.called("pdftoppm"))
}

func TestExtract_ScannedPDFFallsBackToOCR(t *testing.T) {
	r := &fakeRunner{}
	r.handler = func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftotext":
			return []byte("\f\f"), nil, nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, p := range []string{"-1.png", "-2.png", "-3.png"} {
				if err := os.WriteFile(prefix+p, []byte("png"), 0o600); err != nil {
					return nil, nil, err
				}
			}
			return nil, nil, nil
		case "tesseract":
			return []byte("page of " + filepath.Base(args[0])), nil, nil
		}
		return nil, nil, errors.New("unexpected " + name)
	}
	pdf := writeFile(t, t.TempDir(), "scan.pdf", "%PDF")
	e := newTestExtractor(t, Config{MaxPages: 2}, r)

	res, err := e.Extract(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "page of page-1.png\n\npage of page-2.png", res.Text)
	assert.Contains(t, res.Warnings, "pdf has no usable text layer, rasterizing")
	assert.Equal(t, 2, r.called("tesseract"))
}

func TestExtract_PlainText(t *testing.T) {
	txt := writeFile(t, t.TempDir(), "ocr.txt", "eAG 126\r\nSome other line\r\n")
	e := newTestExtractor(t, Config{}, &fakeRunner{handler: func(string, []string) ([]byte, []byte, error) {
		return nil, nil, errors.New("no subprocess expected")
	}})
	res, err := e.Extract(context.Background(), txt)
	require.NoError(t, err)
	assert.Equal(t, "eAG 126\nSome other line", res.Text)
	assert.Equal(t, "plain-text", res.Method)
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	e := newTestExtractor(t, Config{}, &fakeRunner{})
	_, err := e.Extract(context.Background(), "report.docx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestExtract_HEICConvertsAndCaches(t *testing.T) {
	cacheDir := t.TempDir()
	r := &fakeRunner{}
	r.handler = func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "heif-convert":
			return nil, nil, os.WriteFile(args[1], []byte("png"), 0o600)
		case "tesseract":
			return []byte("Weight 72 kg"), nil, nil
		}
		return nil, nil, errors.New("unexpected " + name)
	}
	photo := writeFile(t, t.TempDir(), "IMG_0001.HEIC", "heic")
	e := newTestExtractor(t, Config{HeicConverter: "heif-convert", ArtifactCacheDir: cacheDir}, r)

	ctx := WithContentHash(context.Background(), "abc123")
	for i := 0; i < 2; i++ {
		res, err := e.Extract(ctx, photo)
		require.NoError(t, err)
		assert.Equal(t, "Weight 72 kg", res.Text)
	}
	assert.Equal(t, 1, r.called("heif-convert"))
	assert.FileExists(t, filepath.Join(cacheDir, "abc123.png"))
}

func TestExtract_HEICWithoutConverter(t *testing.T) {
	photo := writeFile(t, t.TempDir(), "IMG.heic", "heic")
	e := newTestExtractor(t, Config{}, &fakeRunner{})
	_, err := e.Extract(context.Background(), photo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HEIC not supported")
}

func TestNewExtractor_Backends(t *testing.T) {
	_, err := NewExtractor(Config{Backend: BackendRemote}, logging.Discard())
	assert.Error(t, err)

	_, err = NewExtractor(Config{Backend: "abbyy"}, logging.Discard())
	assert.Error(t, err)

	e, err := NewExtractor(Config{Backend: BackendRemote, RemoteURL: "http://ocr.local/v1"}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, BackendRemote, e.engine.Name())
}

func TestExtract_RemoteBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		_ = f.Close()
		assert.Equal(t, "report.jpg", hdr.Filename)
		assert.Equal(t, "eng", r.FormValue("language"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"text":"Glucose 88 mg/dL","confidence":91}}`))
	}))
	defer srv.Close()

	img := writeFile(t, t.TempDir(), "report.jpg", "jpeg")
	e, err := NewExtractor(Config{Backend: BackendRemote, RemoteURL: srv.URL}, logging.Discard(), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	res, err := e.Extract(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "Glucose 88 mg/dL", res.Text)
	assert.Equal(t, BackendRemote, res.Engine)
	assert.Greater(t, res.Confidence, float32(0.6))
}

func TestExtract_RemoteBackendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	img := writeFile(t, t.TempDir(), "report.jpg", "jpeg")
	e, err := NewExtractor(Config{Backend: BackendRemote, RemoteURL: srv.URL}, logging.Discard())
	require.NoError(t, err)
	res, err := e.Extract(context.Background(), img)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrOCR))
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "model offline")
}

func TestParseRemoteResponse_Pages(t *testing.T) {
	rec, err := parseRemoteResponse([]byte(`{"pages":[{"text":"a","confidence":0.5},{"text":"b","confidence":1}],"warnings":["rotated"]}`))
	require.NoError(t, err)
	assert.Equal(t, "a\n\nb", rec.Text)
	assert.InDelta(t, 0.75, rec.Confidence, 0.0001)
	assert.Equal(t, []string{"rotated"}, rec.Warnings)

	_, err = parseRemoteResponse([]byte(`{"status":"ok"}`))
	assert.Error(t, err)
}

func TestPreprocessImage_GrayscaleAndUpscale(t *testing.T) {
	src := filepath.Join(t.TempDir(), "small.png")
	require.NoError(t, imaging.Save(imaging.New(200, 100, color.NRGBA{R: 200, G: 10, B: 10, A: 255}), src))

	out, cleanup, err := preprocessImage(src)
	require.NoError(t, err)
	defer cleanup()

	img, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, targetOCRHeight, img.Bounds().Dy())
	assert.Equal(t, 3200, img.Bounds().Dx())
	r, g, b, _ := img.At(10, 10).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)

	cleanup()
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtract_PreprocessFailureIsOnlyAWarning(t *testing.T) {
	r := &fakeRunner{handler: func(string, []string) ([]byte, []byte, error) { return []byte("Age 41"), nil, nil }}
	img := writeFile(t, t.TempDir(), "broken.png", "not an image")
	e := newTestExtractor(t, Config{Preprocess: true}, r)

	res, err := e.Extract(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "Age 41", res.Text)
	require.NotEmpty(t, res.Warnings)
	assert.True(t, strings.HasPrefix(res.Warnings[0], "preprocess skipped"))
}
