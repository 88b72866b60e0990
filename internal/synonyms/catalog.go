package synonyms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/common"
	"github.com/sumanths012/SymptoSense/internal/fields"
)

// SheetName is the worksheet read on import and written on export.
const SheetName = "Synonyms"

// CatalogSchema is the JSON-Schema every catalog document must satisfy, whatever its file format.
var CatalogSchema = map[string]any{
	"$schema":              "https://json-schema.org/draft/2020-12/schema",
	"type":                 "object",
	"additionalProperties": false,
	"required":             []any{"categories"},
	"properties": map[string]any{
		"version": map[string]any{"type": "integer", "minimum": 1},
		"categories": map[string]any{
			"type":          "object",
			"minProperties": 1,
			"propertyNames": map[string]any{"pattern": "^[A-Za-z][A-Za-z0-9 _-]*$"},
			"additionalProperties": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string", "minLength": 1},
			},
		},
	},
}

// Document is the on-disk catalog shape shared by the YAML and JSON formats.
type Document struct {
	Version    int                 `json:"version,omitempty" yaml:"version,omitempty"`
	Categories map[string][]string `json:"categories" yaml:"categories"`
}

// LoadFile reads a catalog from a .yaml, .yml, .json or .xlsx file.
func LoadFile(path string) (fields.SynonymSet, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "xlsx" {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return fields.SynonymSet{}, fmt.Errorf("open workbook: %w", err)
		}
		defer func() { _ = f.Close() }()
		return fromWorkbook(f)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fields.SynonymSet{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, ext)
}

// Parse decodes a YAML or JSON catalog and validates it against CatalogSchema.
func Parse(data []byte, format string) (fields.SynonymSet, error) {
	var raw any
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fields.SynonymSet{}, common.NewAppError("CATALOG_PARSE", "decode yaml catalog", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		}
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return fields.SynonymSet{}, common.NewAppError("CATALOG_PARSE", "decode json catalog", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		}
	default:
		return fields.SynonymSet{}, common.InvalidInputf("unsupported catalog format %q", format)
	}

	// Round-trip through JSON so YAML and JSON share one schema check.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return fields.SynonymSet{}, fmt.Errorf("normalize catalog: %w", err)
	}
	if err := common.ValidateJSONAgainstSchema(CatalogSchema, normalized); err != nil {
		return fields.SynonymSet{}, err
	}
	var doc Document
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return fields.SynonymSet{}, fmt.Errorf("decode catalog: %w", err)
	}
	return doc.SynonymSet(), nil
}

// SynonymSet canonicalizes category names; labels of aliases of one category are merged in file order.
func (d Document) SynonymSet() fields.SynonymSet {
	names := make([]string, 0, len(d.Categories))
	for name := range d.Categories {
		names = append(names, name)
	}
	// Stable merge order for aliases that canonicalize to the same category.
	sort.Strings(names)
	m := make(map[constants.Category][]string, len(names))
	for _, name := range names {
		cat, _ := constants.Canonicalize(name)
		m[cat] = append(m[cat], d.Categories[name]...)
	}
	return fields.NewSynonymSet(m)
}

// NewDocument is the inverse of Document.SynonymSet.
func NewDocument(set fields.SynonymSet) Document {
	doc := Document{Version: 1, Categories: make(map[string][]string, set.Len())}
	for cat, labels := range set.Map() {
		doc.Categories[string(cat)] = labels
	}
	return doc
}

// MarshalYAML renders a set in the YAML catalog format.
func MarshalYAML(set fields.SynonymSet) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(set)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fromWorkbook(f *excelize.File) (fields.SynonymSet, error) {
	sheet := SheetName
	if idx, _ := f.GetSheetIndex(sheet); idx == -1 {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fields.SynonymSet{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	doc := Document{Version: 1, Categories: map[string][]string{}}
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		cat, label := strings.TrimSpace(row[0]), row[1]
		if i == 0 && strings.EqualFold(cat, "category") {
			continue
		}
		if cat == "" || label == "" {
			continue
		}
		doc.Categories[cat] = append(doc.Categories[cat], label)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fields.SynonymSet{}, err
	}
	return Parse(data, "json")
}
