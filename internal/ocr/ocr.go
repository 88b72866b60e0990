package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/common"
)

const (
	BackendTesseract = "tesseract"
	BackendGosseract = "gosseract"
	BackendRemote    = "remote"
)

// minTextLayerChars is how much a PDF text layer must carry before rasterizing is skipped.
const minTextLayerChars = 16

type Config struct {
	Backend string // tesseract | gosseract | remote

	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit

	TessdataDir         string
	HeicConverter       string
	EnableTSVConfidence bool
	Preprocess          bool // grayscale + upscale small images before recognition

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	ArtifactCacheDir string

	RemoteURL string
	Timeout   time.Duration // per document; 0 = none
}

type ExtractionResult struct {
	Text       string        `json:"text"`
	Pages      int           `json:"pages"`
	SourceType string        `json:"source_type"` // constants.PDF | constants.IMAGE | constants.TXT
	Method     string        `json:"method"`      // "pdf-text" | "pdf-ocr" | "image-ocr" | "plain-text"
	Engine     string        `json:"engine,omitempty"`
	Language   string        `json:"language"`
	Duration   time.Duration `json:"duration_ns"`
	Warnings   []string      `json:"warnings,omitempty"`
	Confidence float32       `json:"confidence"`
}

// recognition is what an engine returns for one image.
type recognition struct {
	Text       string
	Confidence float32 // 0 when the engine has no opinion
	Warnings   []string
}

// engine recognizes text on a single raster image.
type engine interface {
	Name() string
	Recognize(ctx context.Context, path string) (recognition, error)
}

// newGosseractEngine is set by the gosseract build.
var newGosseractEngine func(cfg Config, logger *slog.Logger) engine

type Option func(*Extractor)

// WithRunner replaces the subprocess runner; tests use it to stub binaries.
func WithRunner(r Runner) Option { return func(e *Extractor) { e.runner = r } }

// WithHTTPClient sets the client used by the remote backend.
func WithHTTPClient(c *http.Client) Option { return func(e *Extractor) { e.httpClient = c } }

type Extractor struct {
	cfg        Config
	runner     Runner
	httpClient *http.Client
	engine     engine
	logger     *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendTesseract
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.ArtifactCacheDir == "" {
		cfg.ArtifactCacheDir = filepath.Join(os.TempDir(), "symptosense")
	}

	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	if e.httpClient == nil {
		e.httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	switch cfg.Backend {
	case BackendTesseract:
		e.engine = &tesseractEngine{cfg: cfg, runner: e.runner}
	case BackendRemote:
		if cfg.RemoteURL == "" {
			return nil, common.InvalidInputf("ocr remote backend requires remote_url")
		}
		e.engine = &remoteEngine{url: cfg.RemoteURL, lang: cfg.TesseractLang, client: e.httpClient}
	case BackendGosseract:
		if newGosseractEngine == nil {
			return nil, common.InvalidInputf("ocr backend gosseract needs a build with -tags gosseract")
		}
		e.engine = newGosseractEngine(cfg, logger)
	default:
		return nil, common.InvalidInputf("unknown ocr backend %q", cfg.Backend)
	}
	logger.Info("ocr extractor ready", "backend", e.engine.Name(), "lang", cfg.TesseractLang, "preprocess", cfg.Preprocess)
	return e, nil
}

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ctx, cancel := common.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting ocr extraction", "path", path, "backend", e.engine.Name(), "ext", ext)

	var (
		res ExtractionResult
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		var warns []string
		if constants.IsHEICExt(ext) {
			hashHex, _ := contentHashFromCtx(ctx)
			out, w, cleanup, cerr := convertHEICtoPNG(ctx, e.runner, e.cfg.HeicConverter, path, e.cfg.ArtifactCacheDir, hashHex)
			warns = append(warns, w...)
			if cleanup != nil {
				defer cleanup()
			}
			if cerr != nil {
				e.logger.Error("heic conversion failed", "path", path, "error", cerr)
				return ExtractionResult{SourceType: constants.IMAGE, Warnings: warns}, wrapOCR(cerr)
			}
			path = out
		}
		res, err = e.extractImage(ctx, path)
		res.Warnings = append(res.Warnings, warns...)
	case constants.TXT:
		res, err = extractPlainText(path)
	default:
		e.logger.Error("unsupported ocr extension", "extension", ext)
		return ExtractionResult{}, common.InvalidInputf("unsupported extension: %q", ext)
	}
	res.Duration = time.Since(start)
	if err != nil {
		return res, wrapOCR(err)
	}
	e.logger.Info("ocr.extract.ok",
		"method", res.Method,
		"engine", res.Engine,
		"pages", res.Pages,
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func extractPlainText(path string) (ExtractionResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ExtractionResult{SourceType: constants.TXT}, err
	}
	txt := Normalize(string(b))
	return ExtractionResult{
		Text:       txt,
		Pages:      1,
		SourceType: constants.TXT,
		Method:     "plain-text",
		Confidence: 1,
	}, nil
}

func wrapOCR(err error) error {
	if _, ok := err.(*common.AppError); ok {
		return err
	}
	return common.NewAppError("OCR_FAILED", "text recognition failed", fmt.Errorf("%w: %v", common.ErrOCR, err))
}

func nonSpaceLen(s string) int {
	return len(strings.Join(strings.Fields(s), ""))
}
