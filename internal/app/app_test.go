package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/common"
	"github.com/sumanths012/SymptoSense/internal/logging"
	"github.com/sumanths012/SymptoSense/internal/repository"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	cfg, err := common.LoadConfig("")
	require.NoError(t, err)
	cfg.OCR.ArtifactCacheDir = t.TempDir()
	return cfg
}

func TestBuild_Builtin(t *testing.T) {
	cfg := testConfig(t)
	a, err := Build(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Equal(t, "builtin", a.Store.Snapshot().Source)

	out, err := a.Processor.ExtractText(context.Background(), "Glucose: 95 mg/dL", []constants.Category{constants.Glucose})
	require.NoError(t, err)
	assert.Equal(t, "95", out.Fields[constants.Glucose].Value)
}

func TestBuild_FileSourceAndModel(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "synonyms.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte("categories:\n  glucose: [\"FBS\"]\n"), 0o600))
	model := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(model, []byte(`{"name":"m","kind":"logistic_regression",
"features":["Pregnancies","Glucose","BloodPressure","SkinThickness","Insulin","BMI","DiabetesPedigreeFunction","Age"],
"weights":[0,0.05,0,0,0,0,0,0],"intercept":-7}`), 0o600))

	cfg := testConfig(t)
	cfg.Extract.SynonymsSource = "file"
	cfg.Extract.SynonymsPath = catalog
	cfg.Classifier.ModelPath = model

	a, err := Build(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer a.Close()

	out, err := a.Processor.ExtractText(context.Background(), "Glucose 90\nFBS 101", nil)
	require.NoError(t, err)
	assert.Equal(t, "101", out.Fields[constants.Glucose].Value)
}

func TestBuild_MissingModelFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Classifier.ModelPath = filepath.Join(t.TempDir(), "absent.json")
	_, err := Build(context.Background(), cfg, logging.Discard())
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

func TestBuild_DatabaseSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = repository.DriverSQLite
	cfg.Database.DSN = "file:" + filepath.Join(t.TempDir(), "catalog.db")
	cfg.Extract.SynonymsSource = "database"

	a, err := Build(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.DB)
	// empty table serves the defaults
	assert.Equal(t, "database", a.Store.Snapshot().Source)
	assert.Contains(t, a.Store.Categories(), constants.Insulin)
}

func TestSynonymSource_DatabaseRequiresDB(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extract.SynonymsSource = "database"
	_, err := SynonymSource(cfg, nil, logging.Discard())
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
