package fields

import (
	"sort"

	"github.com/sumanths012/SymptoSense/constants"
)

// SynonymSet maps each field category to the label strings that may denote it in a report.
// All labels of a category are tried against every line; none is preferred over another.
type SynonymSet struct {
	labels map[constants.Category][]string
	order  []constants.Category
}

// NewSynonymSet copies m. Empty labels are dropped because they would match every line;
// categories left without labels are dropped too.
func NewSynonymSet(m map[constants.Category][]string) SynonymSet {
	labels := make(map[constants.Category][]string, len(m))
	for cat, ls := range m {
		var kept []string
		seen := make(map[string]struct{}, len(ls))
		for _, l := range ls {
			if l == "" {
				continue
			}
			if _, dup := seen[l]; dup {
				continue
			}
			seen[l] = struct{}{}
			kept = append(kept, l)
		}
		if len(kept) > 0 {
			labels[cat] = kept
		}
	}
	return SynonymSet{labels: labels, order: categoryOrder(labels)}
}

// DefaultSynonyms is the label set found on the sample lab reports.
func DefaultSynonyms() SynonymSet {
	return NewSynonymSet(map[constants.Category][]string{
		constants.Glucose:       {"Glucose", "eAG"},
		constants.Insulin:       {"Insulin", "C-PEPTIDE FASTING, SERUM"},
		constants.BloodPressure: {"Blood Pressure", "BP"},
		constants.Height:        {"Height"},
		constants.Weight:        {"Weight"},
		constants.SkinThickness: {"Skin Thickness", "Triceps Skinfold"},
		constants.Age:           {"Age"},
	})
}

// Labels returns a copy of the synonyms for cat.
func (s SynonymSet) Labels(cat constants.Category) ([]string, bool) {
	ls, ok := s.labels[cat]
	if !ok {
		return nil, false
	}
	cp := make([]string, len(ls))
	copy(cp, ls)
	return cp, true
}

// Categories lists the categories in the set: built-ins first in their usual order, then the rest sorted.
func (s SynonymSet) Categories() []constants.Category {
	cp := make([]constants.Category, len(s.order))
	copy(cp, s.order)
	return cp
}

// Map returns a deep copy of the set, e.g. for serialization.
func (s SynonymSet) Map() map[constants.Category][]string {
	out := make(map[constants.Category][]string, len(s.labels))
	for cat, ls := range s.labels {
		cp := make([]string, len(ls))
		copy(cp, ls)
		out[cat] = cp
	}
	return out
}

// Len is the number of categories.
func (s SynonymSet) Len() int { return len(s.labels) }

func categoryOrder(labels map[constants.Category][]string) []constants.Category {
	order := make([]constants.Category, 0, len(labels))
	builtin := make(map[constants.Category]struct{})
	for _, cat := range constants.BuiltinCategories() {
		builtin[cat] = struct{}{}
		if _, ok := labels[cat]; ok {
			order = append(order, cat)
		}
	}
	var extra []constants.Category
	for cat := range labels {
		if _, ok := builtin[cat]; !ok {
			extra = append(extra, cat)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(order, extra...)
}
