package fields

import (
	"fmt"

	"github.com/sumanths012/SymptoSense/constants"
)

// Outcome is the extraction result for one category. Value is set only when Status is FOUND.
type Outcome struct {
	Category    constants.Category    `json:"category"`
	Value       string                `json:"value,omitempty"`
	Status      constants.FieldStatus `json:"status"`
	MatchedLine string                `json:"matched_line,omitempty"`
}

// Found reports whether a numeric value was recovered.
func (o Outcome) Found() bool { return o.Status == constants.FieldStatusFound }

// Warning is the user-facing message for an absent value, "" when the value was found.
func (o Outcome) Warning() string {
	switch o.Status {
	case constants.FieldStatusLabelNotFound:
		return fmt.Sprintf("%s: no matching label in the report, please enter it manually", o.Category)
	case constants.FieldStatusValueNotParsable:
		return fmt.Sprintf("%s: label found but no readable number next to it, please enter it manually", o.Category)
	default:
		return ""
	}
}

// Result collects one Outcome per requested category, in request order.
type Result struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Get returns the outcome for cat.
func (r Result) Get(cat constants.Category) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Category == cat {
			return o, true
		}
	}
	return Outcome{}, false
}

// Values maps each found category to its numeric string. Absent categories are omitted.
func (r Result) Values() map[constants.Category]string {
	out := make(map[constants.Category]string, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Found() {
			out[o.Category] = o.Value
		}
	}
	return out
}

// Warnings lists the messages of every absent category.
func (r Result) Warnings() []string {
	var out []string
	for _, o := range r.Outcomes {
		if w := o.Warning(); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Extractor runs the locator and the value extractor for each requested category.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	locator  *Locator
	synonyms SynonymSet
}

func NewExtractor(synonyms SynonymSet, policy MatchPolicy) *Extractor {
	return &Extractor{locator: NewLocator(synonyms, policy), synonyms: synonyms}
}

// Synonyms returns the label set this extractor was built with.
func (e *Extractor) Synonyms() SynonymSet { return e.synonyms }

// Extract resolves a single category. Absence is reported through Status, never as an error.
func (e *Extractor) Extract(text ReportText, cat constants.Category) Outcome {
	line, ok := e.locator.Locate(text, cat)
	if !ok {
		return Outcome{Category: cat, Status: constants.FieldStatusLabelNotFound}
	}
	val, ok := FirstNumber(line)
	if !ok {
		return Outcome{Category: cat, Status: constants.FieldStatusValueNotParsable, MatchedLine: line}
	}
	return Outcome{Category: cat, Value: val, Status: constants.FieldStatusFound, MatchedLine: line}
}

// ExtractAll resolves every category in cats independently. Repeated categories are
// resolved once, at their first position. An empty cats means every category in the synonym set.
func (e *Extractor) ExtractAll(text ReportText, cats []constants.Category) Result {
	if len(cats) == 0 {
		cats = e.synonyms.Categories()
	}
	seen := make(map[constants.Category]struct{}, len(cats))
	res := Result{Outcomes: make([]Outcome, 0, len(cats))}
	for _, cat := range cats {
		if _, dup := seen[cat]; dup {
			continue
		}
		seen[cat] = struct{}{}
		res.Outcomes = append(res.Outcomes, e.Extract(text, cat))
	}
	return res
}
