package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sumanths012/SymptoSense/internal/cache"
	"github.com/sumanths012/SymptoSense/internal/classifier"
	"github.com/sumanths012/SymptoSense/internal/common"
	"github.com/sumanths012/SymptoSense/internal/core"
	"github.com/sumanths012/SymptoSense/internal/extract"
	"github.com/sumanths012/SymptoSense/internal/fields"
	"github.com/sumanths012/SymptoSense/internal/ocr"
	"github.com/sumanths012/SymptoSense/internal/repository"
	"github.com/sumanths012/SymptoSense/internal/synonyms"
)

// App holds the wired dependencies shared by the binaries.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	DB        *repository.DB // nil when no database is configured
	Store     *synonyms.Store
	Cache     cache.TextCache
	Processor *core.Processor
}

// OpenDatabase connects to the catalog database, returning nil when none is configured.
func OpenDatabase(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*repository.DB, error) {
	if cfg.Database.Driver == "" {
		return nil, nil
	}
	db, err := repository.Open(ctx, repository.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := repository.NewSynonymRepository(db, logger).Migrate(ctx); err != nil {
		repository.Close(db, logger)
		return nil, err
	}
	return db, nil
}

// OCRConfig translates the loaded settings into the extractor's config.
func OCRConfig(c common.OCRConfig) ocr.Config {
	return ocr.Config{
		Backend:             c.Backend,
		Pdftotext:           c.Pdftotext,
		Pdftoppm:            c.Pdftoppm,
		Tesseract:           c.Tesseract,
		TesseractLang:       c.Language,
		DPI:                 c.DPI,
		MaxPages:            c.MaxPages,
		TessdataDir:         c.TessdataDir,
		HeicConverter:       c.HeicConverter,
		EnableTSVConfidence: c.EnableTSVConfidence,
		Preprocess:          c.Preprocess,
		PSM:                 c.PSM,
		OEM:                 c.OEM,
		ArtifactCacheDir:    c.ArtifactCacheDir,
		RemoteURL:           c.RemoteURL,
		Timeout:             c.Timeout,
	}
}

// SynonymSource picks where the catalog is loaded from.
func SynonymSource(cfg *common.Config, db *repository.DB, logger *slog.Logger) (synonyms.Source, error) {
	switch cfg.Extract.SynonymsSource {
	case "", "builtin":
		return synonyms.BuiltinSource(), nil
	case "file":
		return synonyms.FileSource{Path: cfg.Extract.SynonymsPath}, nil
	case "database":
		if db == nil {
			return nil, common.InvalidInputf("synonyms source database needs a configured database")
		}
		return synonyms.RepositorySource{Repo: repository.NewSynonymRepository(db, logger)}, nil
	default:
		return nil, common.InvalidInputf("unsupported synonyms source %q", cfg.Extract.SynonymsSource)
	}
}

// LoadClassifier loads the model artifact. No configured path means prediction is disabled.
func LoadClassifier(cfg *common.Config, logger *slog.Logger) (classifier.Classifier, error) {
	if cfg.Classifier.ModelPath == "" {
		logger.Warn("classifier model path not configured, prediction disabled")
		return nil, nil
	}
	m, err := classifier.LoadFile(cfg.Classifier.ModelPath, logger)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Build wires the processor and its collaborators from cfg.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger, Cache: cache.NopCache{}}

	policy, err := fields.ParseMatchPolicy(cfg.Extract.MatchPolicy)
	if err != nil {
		return nil, err
	}

	db, err := OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, common.WrapError(err, "open catalog database")
	}
	a.DB = db

	source, err := SynonymSource(cfg, db, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store, err = synonyms.NewStore(ctx, source, policy, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.Redis.URL, cfg.Redis.TTL, logger)
		if err != nil {
			// the cache is an optimisation; run without it
			logger.Warn("redis unavailable, OCR cache disabled", "error", err)
		} else {
			a.Cache = rc
		}
	}

	extractor, err := ocr.NewExtractor(OCRConfig(cfg.OCR), logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	model, err := LoadClassifier(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []core.Option{
		core.WithCache(a.Cache),
		core.WithMinConfidence(float32(cfg.OCR.MinConfidence)),
	}
	if model != nil {
		opts = append(opts, core.WithClassifier(model))
	}
	a.Processor = core.NewProcessor(logger,
		extract.NewOCRAdapter(extractor, logger),
		extract.NewSynonymFieldExtractor(a.Store),
		opts...,
	)
	return a, nil
}

// WatchSynonyms follows the catalog file when the file source and watching are configured.
// It blocks until ctx is done.
func (a *App) WatchSynonyms(ctx context.Context) error {
	if a.Config.Extract.SynonymsSource != "file" || !a.Config.Extract.WatchSynonyms {
		return nil
	}
	errs, err := a.Store.Watch(ctx, synonyms.WatchConfig{Path: a.Config.Extract.SynonymsPath, Debounce: 250 * time.Millisecond})
	if err != nil {
		return err
	}
	for err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Error("synonym catalog reload failed", "error", err)
		}
	}
	return nil
}

func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn("closing cache", "error", err)
		}
	}
	if a.DB != nil {
		repository.Close(a.DB, a.Logger)
	}
}
