package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sumanths012/SymptoSense/internal/classifier"
	"github.com/sumanths012/SymptoSense/internal/common"
	"github.com/sumanths012/SymptoSense/internal/core"
	"github.com/sumanths012/SymptoSense/internal/extract"
	"github.com/sumanths012/SymptoSense/internal/fields"
	"github.com/sumanths012/SymptoSense/internal/logging"
	"github.com/sumanths012/SymptoSense/internal/synonyms"
)

type fakeOCR struct {
	res extract.TextExtractionResult
	err error
}

func (f fakeOCR) Extract(context.Context, string) (extract.TextExtractionResult, error) {
	return f.res, f.err
}

// glucoseModel flags a glucose reading above 140.
func glucoseModel(t *testing.T) classifier.Classifier {
	t.Helper()
	m, err := classifier.NewLinearModel(classifier.Artifact{
		Name:      "glucose-threshold",
		Kind:      classifier.KindLinearSVM,
		Features:  classifier.FeatureNames(),
		Weights:   []float64{0, 1, 0, 0, 0, 0, 0, 0},
		Intercept: -140,
	})
	require.NoError(t, err)
	return m
}

func newTestService(t *testing.T, text extract.TextExtractor, withModel bool) *ExtractionService {
	t.Helper()
	store := synonyms.NewStaticStore(fields.DefaultSynonyms(), fields.MatchSubstring)
	opts := []core.Option{}
	if withModel {
		opts = append(opts, core.WithClassifier(glucoseModel(t)))
	}
	proc := core.NewProcessor(logging.Discard(), text, extract.NewSynonymFieldExtractor(store), opts...)
	return NewExtractionService(proc, store, logging.Discard())
}

func okOCR(text string) fakeOCR {
	return fakeOCR{res: extract.TextExtractionResult{
		Text:       text,
		SourceType: "IMAGE",
		Method:     "image-ocr",
		Pages:      1,
		Confidence: 0.9,
		Language:   "eng",
	}}
}

func failingOCR() fakeOCR {
	return fakeOCR{
		res: extract.TextExtractionResult{Warnings: []string{"tesseract: empty page"}},
		err: common.NewAppError("OCR_FAILED", "tesseract failed", common.ErrOCR),
	}
}

func completeValues() map[string]any {
	return map[string]any{
		classifier.Pregnancies:              "2",
		classifier.Glucose:                  "150",
		classifier.BloodPressure:            "70",
		classifier.SkinThickness:            "20",
		classifier.Insulin:                  "80",
		classifier.BMI:                      "25.1",
		classifier.DiabetesPedigreeFunction: 0.5,
		classifier.Age:                      33,
	}
}
