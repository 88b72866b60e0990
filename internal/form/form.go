package form

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/classifier"
	"github.com/sumanths012/SymptoSense/internal/common"
	"github.com/sumanths012/SymptoSense/internal/fields"
)

// Extra form inputs that are not model features.
const (
	HeightCM = "height_cm"
	WeightKG = "weight_kg"
)

// categoryFeature maps extracted categories onto model inputs. Height and weight only feed BMI.
var categoryFeature = map[constants.Category]string{
	constants.Glucose:       classifier.Glucose,
	constants.Insulin:       classifier.Insulin,
	constants.BloodPressure: classifier.BloodPressure,
	constants.SkinThickness: classifier.SkinThickness,
	constants.Age:           classifier.Age,
	constants.Height:        HeightCM,
	constants.Weight:        WeightKG,
}

// Form is the editable set of string inputs, keyed by feature name plus HeightCM and WeightKG.
// Values stay strings until Assemble so the user sees exactly what OCR produced.
type Form struct {
	Values map[string]string `json:"values"`
}

// Prefill copies found values into a new form. Absent fields stay empty for the user to fill.
func Prefill(res fields.Result) Form {
	f := Form{Values: map[string]string{}}
	for cat, v := range res.Values() {
		if name, ok := categoryFeature[cat]; ok {
			f.Values[name] = v
		}
	}
	return f
}

// WithOverrides returns a copy with user-entered values applied. Empty overrides clear a field.
func (f Form) WithOverrides(overrides map[string]string) Form {
	out := Form{Values: make(map[string]string, len(f.Values)+len(overrides))}
	for k, v := range f.Values {
		out.Values[k] = v
	}
	for k, v := range overrides {
		v = strings.TrimSpace(v)
		if v == "" {
			delete(out.Values, k)
			continue
		}
		out.Values[k] = v
	}
	return out
}

// Get returns the trimmed value of name.
func (f Form) Get(name string) string { return strings.TrimSpace(f.Values[name]) }

// Assemble converts every feature to a float. Each unconvertible feature yields one
// ValidationError and no vector is produced. BMI is derived from height and weight when it
// is left empty and both are present.
func (f Form) Assemble() (classifier.Vector, error) {
	var vec classifier.Vector
	names := classifier.FeatureNames()
	values := make(map[string]string, len(names))
	for _, name := range names {
		values[name] = f.Get(name)
	}

	var bmiErr error
	if values[classifier.BMI] == "" && (f.Get(HeightCM) != "" || f.Get(WeightKG) != "") {
		bmi, err := ComputeBMI(f.Get(HeightCM), f.Get(WeightKG))
		if err != nil {
			bmiErr = err
		} else {
			values[classifier.BMI] = bmi.String()
		}
	}

	v := common.NewValidator()
	for _, name := range names {
		if name == classifier.BMI && bmiErr != nil {
			v.Field(name, values[name], failWith(bmiErr))
			continue
		}
		v.Field(name, values[name], common.Required, common.Numeric, common.NonNegative)
	}
	if err := v.Error(); err != nil {
		return vec, err
	}
	for i, name := range names {
		x, _ := strconv.ParseFloat(values[name], 64)
		vec[i] = x
	}
	return vec, nil
}

func failWith(err error) common.ValidationRule {
	return func(field string, value interface{}) *common.ValidationError {
		return &common.ValidationError{Field: field, Value: value, Message: err.Error()}
	}
}

var (
	hundred = decimal.NewFromInt(100)
	minBMIH = decimal.NewFromInt(3)
)

// ComputeBMI returns weight / height² rounded to one decimal. Height is in centimetres;
// values of 3 or less are taken as metres.
func ComputeBMI(heightCM, weightKG string) (decimal.Decimal, error) {
	if heightCM == "" || weightKG == "" {
		return decimal.Zero, fmt.Errorf("needs both height and weight")
	}
	h, err := decimal.NewFromString(heightCM)
	if err != nil {
		return decimal.Zero, fmt.Errorf("height %q is not a number", heightCM)
	}
	w, err := decimal.NewFromString(weightKG)
	if err != nil {
		return decimal.Zero, fmt.Errorf("weight %q is not a number", weightKG)
	}
	if !h.IsPositive() || !w.IsPositive() {
		return decimal.Zero, fmt.Errorf("height and weight must be positive")
	}
	if h.GreaterThan(minBMIH) {
		h = h.Div(hundred)
	}
	return w.DivRound(h.Mul(h), 4).Round(1), nil
}
