package classifier

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumanths012/SymptoSense/internal/common"
	"github.com/sumanths012/SymptoSense/internal/logging"
)

const glucoseOnly = `{
  "name": "glucose-threshold",
  "kind": "logistic_regression",
  "features": ["Pregnancies","Glucose","BloodPressure","SkinThickness","Insulin","BMI","DiabetesPedigreeFunction","Age"],
  "weights": [0, 1, 0, 0, 0, 0, 0, 0],
  "intercept": -140
}`

func TestParse_ThresholdModel(t *testing.T) {
	m, err := Parse([]byte(glucoseOnly))
	require.NoError(t, err)
	assert.Equal(t, "glucose-threshold", m.Name())

	ctx := context.Background()
	label, err := m.Predict(ctx, Vector{1, 95, 70, 20, 80, 25, 0.5, 33})
	require.NoError(t, err)
	assert.Equal(t, NotDiabetic, label)

	label, err = m.Predict(ctx, Vector{1, 180, 70, 20, 80, 25, 0.5, 33})
	require.NoError(t, err)
	assert.Equal(t, Diabetic, label)

	assert.InDelta(t, 0.5, m.Probability(Vector{0, 140}), 1e-9)
}

func TestParse_StandardizedInputs(t *testing.T) {
	m, err := NewLinearModel(Artifact{
		Kind:      KindLinearSVM,
		Features:  FeatureNames(),
		Weights:   []float64{0, 2, 0, 0, 0, 0, 0, 0},
		Intercept: 0,
		Mean:      []float64{0, 120, 0, 0, 0, 0, 0, 0},
		Scale:     []float64{1, 30, 1, 1, 1, 1, 1, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, KindLinearSVM, m.Name())
	assert.InDelta(t, 2.0, m.Decision(Vector{0, 150}), 1e-9)
	assert.InDelta(t, -2.0, m.Decision(Vector{0, 90}), 1e-9)
}

func TestParse_RejectsBadArtifacts(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"unknown kind":   `{"kind":"random_forest","features":["Pregnancies","Glucose","BloodPressure","SkinThickness","Insulin","BMI","DiabetesPedigreeFunction","Age"],"weights":[0,0,0,0,0,0,0,0],"intercept":0}`,
		"short weights":  `{"kind":"linear_svm","features":["Pregnancies","Glucose","BloodPressure","SkinThickness","Insulin","BMI","DiabetesPedigreeFunction","Age"],"weights":[0,0],"intercept":0}`,
		"feature order":  `{"kind":"linear_svm","features":["Glucose","Pregnancies","BloodPressure","SkinThickness","Insulin","BMI","DiabetesPedigreeFunction","Age"],"weights":[0,0,0,0,0,0,0,0],"intercept":0}`,
		"zero scale":     `{"kind":"linear_svm","features":["Pregnancies","Glucose","BloodPressure","SkinThickness","Insulin","BMI","DiabetesPedigreeFunction","Age"],"weights":[0,0,0,0,0,0,0,0],"intercept":0,"scale":[1,0,1,1,1,1,1,1]}`,
		"missing weight": `{"kind":"linear_svm","features":["Pregnancies","Glucose","BloodPressure","SkinThickness","Insulin","BMI","DiabetesPedigreeFunction","Age"],"intercept":0}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(glucoseOnly), 0o600))
	m, err := LoadFile(path, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "glucose-threshold", m.Name())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"), logging.Discard())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnavailable))
}

func TestPredict_Packaging(t *testing.T) {
	m, err := Parse([]byte(glucoseOnly))
	require.NoError(t, err)

	p, err := Predict(context.Background(), m, Vector{2, 200, 80, 30, 100, 31.2, 0.6, 50})
	require.NoError(t, err)
	assert.Equal(t, Diabetic, p.Label)
	assert.Equal(t, "The person is diabetic", p.Diagnosis)
	assert.Equal(t, 31.2, p.Features[BMI])
	assert.Equal(t, "glucose-threshold", p.Model)

	_, err = m.Predict(context.Background(), Vector{math.NaN()})
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestFeatures(t *testing.T) {
	assert.Equal(t, []string{"Pregnancies", "Glucose", "BloodPressure", "SkinThickness", "Insulin", "BMI", "DiabetesPedigreeFunction", "Age"}, FeatureNames())
	i, ok := FeatureIndex(BMI)
	assert.True(t, ok)
	assert.Equal(t, 5, i)
	assert.Equal(t, "Glucose Level", FeatureLabel(Glucose))
	assert.Equal(t, "The person is not diabetic", NotDiabetic.Diagnosis())
}

func TestShippedExampleModelLoads(t *testing.T) {
	m, err := LoadFile(filepath.Join("..", "..", "configs", "model.example.json"), logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "example-logistic", m.Name())

	high, err := m.Predict(context.Background(), Vector{6, 190, 72, 35, 0, 36.5, 0.9, 52})
	require.NoError(t, err)
	assert.Equal(t, Diabetic, high)

	low, err := m.Predict(context.Background(), Vector{1, 85, 66, 29, 0, 24.6, 0.35, 25})
	require.NoError(t, err)
	assert.Equal(t, NotDiabetic, low)
}
