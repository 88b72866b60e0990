package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/sumanths012/SymptoSense/internal/common"
)

// Classifier maps a feature vector to a binary label.
type Classifier interface {
	Name() string
	Predict(ctx context.Context, v Vector) (Label, error)
}

// Prediction is what callers show to the user.
type Prediction struct {
	Label     Label              `json:"label"`
	Diagnosis string             `json:"diagnosis"`
	Features  map[string]float64 `json:"features"`
	Model     string             `json:"model"`
}

// Predict runs c and packages the answer.
func Predict(ctx context.Context, c Classifier, v Vector) (Prediction, error) {
	label, err := c.Predict(ctx, v)
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{Label: label, Diagnosis: label.Diagnosis(), Features: v.Map(), Model: c.Name()}, nil
}

const (
	KindLogisticRegression = "logistic_regression"
	KindLinearSVM          = "linear_svm"
)

// ArtifactSchema describes the exported model file.
var ArtifactSchema = map[string]any{
	"$schema":  "https://json-schema.org/draft/2020-12/schema",
	"type":     "object",
	"required": []any{"kind", "features", "weights", "intercept"},
	"properties": map[string]any{
		"name": map[string]any{"type": "string"},
		"kind": map[string]any{"enum": []any{KindLogisticRegression, KindLinearSVM}},
		"features": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string"},
			"minItems": NumFeatures,
			"maxItems": NumFeatures,
		},
		"weights":   numberArray(),
		"intercept": map[string]any{"type": "number"},
		"mean":      numberArray(),
		"scale":     numberArray(),
	},
}

func numberArray() map[string]any {
	return map[string]any{
		"type":     "array",
		"items":    map[string]any{"type": "number"},
		"minItems": NumFeatures,
		"maxItems": NumFeatures,
	}
}

// Artifact is the JSON export of a fitted linear model, optionally with the standard scaler
// it was trained behind.
type Artifact struct {
	Name      string    `json:"name,omitempty"`
	Kind      string    `json:"kind"`
	Features  []string  `json:"features"`
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
	Mean      []float64 `json:"mean,omitempty"`
	Scale     []float64 `json:"scale,omitempty"`
}

// LinearModel predicts Diabetic when the decision function is positive.
type LinearModel struct {
	name      string
	kind      string
	weights   Vector
	intercept float64
	mean      Vector
	scale     Vector
}

// LoadFile reads and validates a model artifact.
func LoadFile(path string, logger *slog.Logger) (*LinearModel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError("MODEL_LOAD", "read classifier artifact", fmt.Errorf("%w: %v", common.ErrUnavailable, err))
	}
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	logger.Info("classifier loaded", "path", path, "model", m.Name(), "kind", m.kind)
	return m, nil
}

// Parse validates data against ArtifactSchema and the fixed feature order.
func Parse(data []byte) (*LinearModel, error) {
	if err := common.ValidateJSONAgainstSchema(ArtifactSchema, data); err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return NewLinearModel(a)
}

// NewLinearModel checks a and freezes it into a model.
func NewLinearModel(a Artifact) (*LinearModel, error) {
	if !slices.Equal(a.Features, featureNames[:]) {
		return nil, common.NewAppError("MODEL_SCHEMA", fmt.Sprintf("artifact features %v do not match %v", a.Features, featureNames), common.ErrValidation)
	}
	m := &LinearModel{name: a.Name, kind: a.Kind, intercept: a.Intercept}
	if m.name == "" {
		m.name = a.Kind
	}
	if len(a.Weights) != NumFeatures {
		return nil, common.NewAppError("MODEL_SCHEMA", "weights must have one entry per feature", common.ErrValidation)
	}
	copy(m.weights[:], a.Weights)
	for i := range m.scale {
		m.scale[i] = 1
	}
	if a.Mean != nil {
		copy(m.mean[:], a.Mean)
	}
	if a.Scale != nil {
		for i, s := range a.Scale {
			if s == 0 {
				return nil, common.NewAppError("MODEL_SCHEMA", fmt.Sprintf("scale for %s is zero", featureNames[i]), common.ErrValidation)
			}
		}
		copy(m.scale[:], a.Scale)
	}
	return m, nil
}

func (m *LinearModel) Name() string { return m.name }

// Decision returns the signed distance from the separating hyperplane.
func (m *LinearModel) Decision(v Vector) float64 {
	z := m.intercept
	for i := range v {
		z += m.weights[i] * (v[i] - m.mean[i]) / m.scale[i]
	}
	return z
}

// Probability is the logistic of the decision function; meaningful for logistic regression only.
func (m *LinearModel) Probability(v Vector) float64 {
	return 1 / (1 + math.Exp(-m.Decision(v)))
}

func (m *LinearModel) Predict(ctx context.Context, v Vector) (Label, error) {
	if err := ctx.Err(); err != nil {
		return NotDiabetic, err
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return NotDiabetic, common.NewAppError("MODEL_INPUT", fmt.Sprintf("%s is not finite", featureNames[i]), common.ErrInvalidInput)
		}
	}
	if m.Decision(v) > 0 {
		return Diabetic, nil
	}
	return NotDiabetic, nil
}
