package classifier

// Feature names in the order the model consumes them.
const (
	Pregnancies              = "Pregnancies"
	Glucose                  = "Glucose"
	BloodPressure            = "BloodPressure"
	SkinThickness            = "SkinThickness"
	Insulin                  = "Insulin"
	BMI                      = "BMI"
	DiabetesPedigreeFunction = "DiabetesPedigreeFunction"
	Age                      = "Age"
)

// NumFeatures is the width of a feature vector.
const NumFeatures = 8

var featureNames = [NumFeatures]string{
	Pregnancies, Glucose, BloodPressure, SkinThickness, Insulin, BMI, DiabetesPedigreeFunction, Age,
}

var featureLabels = map[string]string{
	Pregnancies:              "Number of Pregnancies",
	Glucose:                  "Glucose Level",
	BloodPressure:            "Blood Pressure value",
	SkinThickness:            "Skin Thickness value",
	Insulin:                  "Insulin Level",
	BMI:                      "BMI value",
	DiabetesPedigreeFunction: "Diabetes Pedigree Function value",
	Age:                      "Age of the Person",
}

// FeatureNames returns the fixed feature order.
func FeatureNames() []string {
	out := make([]string, NumFeatures)
	copy(out, featureNames[:])
	return out
}

// FeatureLabel is the human form label for a feature, or the name itself when unknown.
func FeatureLabel(name string) string {
	if l, ok := featureLabels[name]; ok {
		return l
	}
	return name
}

// FeatureIndex returns the position of name in the vector.
func FeatureIndex(name string) (int, bool) {
	for i, n := range featureNames {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// Vector is one fully converted submission.
type Vector [NumFeatures]float64

// Map keys the vector by feature name.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, NumFeatures)
	for i, n := range featureNames {
		m[n] = v[i]
	}
	return m
}

type Label int

const (
	NotDiabetic Label = 0
	Diabetic    Label = 1
)

// Diagnosis is the message shown for a label.
func (l Label) Diagnosis() string {
	if l == Diabetic {
		return "The person is diabetic"
	}
	return "The person is not diabetic"
}
