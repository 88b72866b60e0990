package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, ":9090", cfg.Server.GRPCAddr)
	assert.Equal(t, "tesseract", cfg.OCR.Backend)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, "substring", cfg.Extract.MatchPolicy)
	assert.Equal(t, "builtin", cfg.Extract.SynonymsSource)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.InDelta(t, 0.6, cfg.OCR.MinConfidence, 1e-9)
	assert.Equal(t, 3*time.Minute, cfg.Extract.ProcessTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  http_addr: ":7000"
  request_timeout: 15s
database:
  driver: pgx
  dsn: postgres://localhost/symptosense
  max_conns: 4
extract:
  match_policy: WORD
  synonyms_source: database
classifier:
  model_path: /models/diabetes.json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("HTTP_ADDR", ":7100")
	t.Setenv("OCR_TIMEOUT", "45s")
	t.Setenv("OCR_MIN_CONFIDENCE", "0.8")
	t.Setenv("PROCESS_TIMEOUT", "30s")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":7100", cfg.Server.HTTPAddr)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, int32(4), cfg.Database.MaxConns)
	assert.Equal(t, "word", cfg.Extract.MatchPolicy)
	assert.Equal(t, 45*time.Second, cfg.OCR.Timeout)
	assert.InDelta(t, 0.8, cfg.OCR.MinConfidence, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.Extract.ProcessTimeout)
	assert.Equal(t, "/models/diabetes.json", cfg.Classifier.ModelPath)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"driver without dsn", func(c *Config) { c.Database.Driver = "sqlite" }},
		{"remote ocr without url", func(c *Config) { c.OCR.Backend = "remote" }},
		{"confidence above one", func(c *Config) { c.OCR.MinConfidence = 1.5 }},
		{"bad policy", func(c *Config) { c.Extract.MatchPolicy = "fuzzy" }},
		{"file source without path", func(c *Config) { c.Extract.SynonymsSource = "file" }},
		{"database source without db", func(c *Config) { c.Extract.SynonymsSource = "database" }},
		{"no listeners", func(c *Config) { c.Server.HTTPAddr, c.Server.GRPCAddr = "", "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}
