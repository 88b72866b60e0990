package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	OCR        OCRConfig        `mapstructure:"ocr"`
	Extract    ExtractConfig    `mapstructure:"extract"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig holds the synonym catalog database settings. Driver is "postgres", "sqlite" or empty.
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"`
	DSN              string        `mapstructure:"dsn"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// RedisConfig configures the OCR text cache; an empty URL disables it.
type RedisConfig struct {
	URL string        `mapstructure:"url"`
	TTL time.Duration `mapstructure:"ttl"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Backend             string        `mapstructure:"backend"` // tesseract | remote | gosseract
	Tesseract           string        `mapstructure:"tesseract"`
	Pdftotext           string        `mapstructure:"pdftotext"`
	Pdftoppm            string        `mapstructure:"pdftoppm"`
	Language            string        `mapstructure:"language"`
	TessdataDir         string        `mapstructure:"tessdata_dir"`
	DPI                 int           `mapstructure:"dpi"`
	MaxPages            int           `mapstructure:"max_pages"`
	PSM                 int           `mapstructure:"psm"`
	OEM                 int           `mapstructure:"oem"`
	HeicConverter       string        `mapstructure:"heic_converter"`
	ArtifactCacheDir    string        `mapstructure:"artifact_cache_dir"`
	EnableTSVConfidence bool          `mapstructure:"enable_tsv_confidence"`
	Preprocess          bool          `mapstructure:"preprocess"`
	RemoteURL           string        `mapstructure:"remote_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	// MinConfidence below which image OCR output is flagged for review.
	MinConfidence float64 `mapstructure:"min_confidence"`
}

// ExtractConfig selects the label matching policy and where synonyms come from.
type ExtractConfig struct {
	MatchPolicy    string `mapstructure:"match_policy"`    // substring | word
	SynonymsSource string `mapstructure:"synonyms_source"` // builtin | file | database
	SynonymsPath   string `mapstructure:"synonyms_path"`
	WatchSynonyms  bool   `mapstructure:"watch_synonyms"`
	// ProcessTimeout bounds one file of a batch run.
	ProcessTimeout time.Duration `mapstructure:"process_timeout"`
}

// ClassifierConfig points at the exported model artifact.
type ClassifierConfig struct {
	ModelPath string `mapstructure:"model_path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | text
}

var envBindings = map[string]string{
	"server.http_addr":            "HTTP_ADDR",
	"server.grpc_addr":            "GRPC_ADDR",
	"server.request_timeout":      "REQUEST_TIMEOUT",
	"server.max_upload_bytes":     "MAX_UPLOAD_BYTES",
	"database.driver":             "DB_DRIVER",
	"database.dsn":                "DB_URL",
	"database.max_conns":          "DB_MAX_CONNS",
	"database.min_conns":          "DB_MIN_CONNS",
	"database.max_conn_lifetime":  "DB_MAX_CONN_LIFETIME",
	"database.max_conn_idle_time": "DB_MAX_CONN_IDLE_TIME",
	"database.dial_timeout":       "DB_DIAL_TIMEOUT",
	"database.statement_timeout":  "DB_STATEMENT_TIMEOUT",
	"redis.url":                   "REDIS_URL",
	"redis.ttl":                   "REDIS_TTL",
	"ocr.backend":                 "OCR_BACKEND",
	"ocr.tessdata_dir":            "TESSDATA_PREFIX",
	"ocr.language":                "OCR_LANGUAGE",
	"ocr.heic_converter":          "HEIC_CONVERTER",
	"ocr.artifact_cache_dir":      "ARTIFACT_CACHE_DIR",
	"ocr.remote_url":              "OCR_REMOTE_URL",
	"ocr.timeout":                 "OCR_TIMEOUT",
	"ocr.min_confidence":          "OCR_MIN_CONFIDENCE",
	"extract.match_policy":        "MATCH_POLICY",
	"extract.synonyms_source":     "SYNONYMS_SOURCE",
	"extract.synonyms_path":       "SYNONYMS_PATH",
	"extract.watch_synonyms":      "WATCH_SYNONYMS",
	"extract.process_timeout":     "PROCESS_TIMEOUT",
	"classifier.model_path":       "CLASSIFIER_MODEL_PATH",
	"log.level":                   "LOG_LEVEL",
	"log.format":                  "LOG_FORMAT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.grpc_addr", ":9090")
	v.SetDefault("server.request_timeout", 90*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(20<<20))

	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("database.dial_timeout", 3*time.Second)
	v.SetDefault("database.statement_timeout", time.Duration(0))

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("ocr.backend", "tesseract")
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.pdftotext", "pdftotext")
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.max_pages", 5)
	v.SetDefault("ocr.psm", 6)
	v.SetDefault("ocr.oem", 0)
	v.SetDefault("ocr.heic_converter", "magick")
	v.SetDefault("ocr.artifact_cache_dir", "./tmp")
	v.SetDefault("ocr.enable_tsv_confidence", true)
	v.SetDefault("ocr.preprocess", true)
	v.SetDefault("ocr.remote_url", "")
	v.SetDefault("ocr.timeout", 2*time.Minute)
	v.SetDefault("ocr.min_confidence", 0.6)

	v.SetDefault("extract.match_policy", "substring")
	v.SetDefault("extract.synonyms_source", "builtin")
	v.SetDefault("extract.synonyms_path", "")
	v.SetDefault("extract.watch_synonyms", false)
	v.SetDefault("extract.process_timeout", 3*time.Minute)

	v.SetDefault("classifier.model_path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig reads defaults, then the optional YAML file at path, then environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.OCR.Backend = strings.ToLower(strings.TrimSpace(c.OCR.Backend))
	c.Extract.MatchPolicy = strings.ToLower(strings.TrimSpace(c.Extract.MatchPolicy))
	c.Extract.SynonymsSource = strings.ToLower(strings.TrimSpace(c.Extract.SynonymsSource))
	if c.Database.Driver == "pgx" || c.Database.Driver == "postgresql" {
		c.Database.Driver = "postgres"
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "", "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported DB_DRIVER %q (postgres|sqlite)", c.Database.Driver), ErrInvalidInput)
	}
	if c.Database.Driver != "" && c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required when DB_DRIVER is set", ErrInvalidInput)
	}
	switch c.OCR.Backend {
	case "tesseract", "gosseract":
	case "remote":
		if c.OCR.RemoteURL == "" {
			return NewAppError("CONFIG_ERROR", "OCR_REMOTE_URL is required for the remote OCR backend", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported OCR_BACKEND %q", c.OCR.Backend), ErrInvalidInput)
	}
	if c.OCR.MinConfidence < 0 || c.OCR.MinConfidence > 1 {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("OCR_MIN_CONFIDENCE must be within [0, 1], got %v", c.OCR.MinConfidence), ErrInvalidInput)
	}
	switch c.Extract.MatchPolicy {
	case "", "substring", "word":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported MATCH_POLICY %q (substring|word)", c.Extract.MatchPolicy), ErrInvalidInput)
	}
	switch c.Extract.SynonymsSource {
	case "", "builtin":
	case "file":
		if c.Extract.SynonymsPath == "" {
			return NewAppError("CONFIG_ERROR", "SYNONYMS_PATH is required when SYNONYMS_SOURCE=file", ErrInvalidInput)
		}
	case "database":
		if c.Database.Driver == "" {
			return NewAppError("CONFIG_ERROR", "DB_DRIVER and DB_URL are required when SYNONYMS_SOURCE=database", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported SYNONYMS_SOURCE %q", c.Extract.SynonymsSource), ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" && c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "at least one of HTTP_ADDR or GRPC_ADDR is required", ErrInvalidInput)
	}
	return nil
}
