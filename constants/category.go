package constants

import (
	"fmt"
	"strings"
)

// Category selects which label synonyms apply when locating a field in report text.
type Category string

const (
	Glucose       Category = "glucose"
	Insulin       Category = "insulin"
	BloodPressure Category = "blood_pressure"
	Height        Category = "height"
	Weight        Category = "weight"
	SkinThickness Category = "skin_thickness"
	Age           Category = "age"
)

var builtinCategories = []Category{
	Glucose,
	Insulin,
	BloodPressure,
	Height,
	Weight,
	SkinThickness,
	Age,
}

// BuiltinCategories returns the categories known without a synonym catalog, in display order.
func BuiltinCategories() []Category {
	out := make([]Category, len(builtinCategories))
	copy(out, builtinCategories)
	return out
}

// AsStringSlice returns the builtin category tags as plain strings.
func AsStringSlice() []string {
	result := make([]string, len(builtinCategories))
	for i, cat := range builtinCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps user input such as "Blood Pressure" or "bp" onto a category tag.
// Unknown but well-formed names are returned as-is with ok=false so catalogs can extend the set.
func Canonicalize(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	aliases := map[string]Category{
		"bp":            BloodPressure,
		"bloodpressure": BloodPressure,
		"sugar":         Glucose,
		"blood_sugar":   Glucose,
		"skinthickness": SkinThickness,
		"skin":          SkinThickness,
		"c_peptide":     Insulin,
		"body_weight":   Weight,
		"stature":       Height,
	}
	if cat, ok := aliases[normalized]; ok {
		return cat, true
	}

	for _, cat := range builtinCategories {
		if normalized == string(cat) {
			return cat, true
		}
	}

	return Category(normalized), false
}

// ParseCategories canonicalizes a comma-separated category selection. Each input may hold
// several names ("glucose, bp"); blanks are skipped. Names must be letters, digits, spaces,
// dashes or underscores.
func ParseCategories(in ...string) ([]Category, error) {
	out := make([]Category, 0, len(in))
	for _, raw := range in {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			cat, _ := Canonicalize(part)
			if !wellFormed(cat) {
				return nil, fmt.Errorf("invalid category %q", part)
			}
			out = append(out, cat)
		}
	}
	return out, nil
}

func wellFormed(cat Category) bool {
	if cat == "" {
		return false
	}
	for _, r := range cat {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}
