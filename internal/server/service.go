package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/classifier"
	"github.com/sumanths012/SymptoSense/internal/common"
	"github.com/sumanths012/SymptoSense/internal/core"
	"github.com/sumanths012/SymptoSense/internal/form"
	"github.com/sumanths012/SymptoSense/internal/synonyms"
)

// ExtractionService is the transport-independent API shared by the HTTP and gRPC servers.
type ExtractionService struct {
	proc   *core.Processor
	store  *synonyms.Store
	logger *slog.Logger
}

func NewExtractionService(proc *core.Processor, store *synonyms.Store, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{proc: proc, store: store, logger: logger}
}

// TextRequest is the body of an OCR-less extraction.
type TextRequest struct {
	Text       string   `json:"text"`
	Categories []string `json:"categories"`
}

// PredictRequest carries the form as the user last edited it. Values may be JSON strings or numbers.
type PredictRequest struct {
	Values   map[string]any `json:"values"`
	HeightCM any            `json:"height_cm,omitempty"`
	WeightKG any            `json:"weight_kg,omitempty"`
}

// CatalogResponse lists the synonym catalog in force.
type CatalogResponse struct {
	Categories map[constants.Category][]string `json:"categories"`
	Order      []constants.Category            `json:"order"`
	Version    uint64                          `json:"version"`
	Source     string                          `json:"source"`
}

func (s *ExtractionService) ExtractFile(ctx context.Context, path string, categories []string) (core.Prefill, error) {
	cats, err := categoriesFrom(categories...)
	if err != nil {
		return core.Prefill{}, err
	}
	return s.proc.ExtractFile(ctx, path, cats)
}

func (s *ExtractionService) ExtractText(ctx context.Context, req TextRequest) (core.Prefill, error) {
	cats, err := categoriesFrom(req.Categories...)
	if err != nil {
		return core.Prefill{}, err
	}
	return s.proc.ExtractText(ctx, req.Text, cats)
}

func (s *ExtractionService) Predict(ctx context.Context, req PredictRequest) (classifier.Prediction, error) {
	f, err := req.Form()
	if err != nil {
		return classifier.Prediction{}, err
	}
	return s.proc.Predict(ctx, f)
}

func (s *ExtractionService) Catalog() CatalogResponse {
	snap := s.store.Snapshot()
	set := snap.Extractor.Synonyms()
	return CatalogResponse{
		Categories: set.Map(),
		Order:      set.Categories(),
		Version:    snap.Version,
		Source:     snap.Source,
	}
}

// Form converts the request into form strings. Unknown feature names are rejected so a typo
// cannot silently leave a feature empty.
func (r PredictRequest) Form() (form.Form, error) {
	v := common.NewValidator()
	values := make(map[string]string, len(r.Values)+2)
	for k, raw := range r.Values {
		name := strings.TrimSpace(k)
		if _, ok := classifier.FeatureIndex(name); !ok && name != form.HeightCM && name != form.WeightKG {
			v.Field(name, raw, unknownFeature)
			continue
		}
		str, err := stringify(raw)
		if err != nil {
			v.Field(name, raw, func(field string, value interface{}) *common.ValidationError {
				return &common.ValidationError{Field: field, Value: value, Message: err.Error()}
			})
			continue
		}
		values[name] = str
	}
	for name, raw := range map[string]any{form.HeightCM: r.HeightCM, form.WeightKG: r.WeightKG} {
		if raw == nil {
			continue
		}
		str, err := stringify(raw)
		if err != nil {
			v.Field(name, raw, func(field string, value interface{}) *common.ValidationError {
				return &common.ValidationError{Field: field, Value: value, Message: err.Error()}
			})
			continue
		}
		values[name] = str
	}
	if err := v.Error(); err != nil {
		return form.Form{}, err
	}
	return form.Form{Values: values}, nil
}

func unknownFeature(field string, value interface{}) *common.ValidationError {
	return &common.ValidationError{Field: field, Value: value, Message: "is not a form field"}
}

func stringify(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case json.Number:
		return x.String(), nil
	case int:
		return strconv.Itoa(x), nil
	default:
		return "", fmt.Errorf("must be a string or a number")
	}
}

func categoriesFrom(in ...string) ([]constants.Category, error) {
	cats, err := constants.ParseCategories(in...)
	if err != nil {
		return nil, common.InvalidInputf("%v", err)
	}
	return cats, nil
}
