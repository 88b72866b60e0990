package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumanths012/SymptoSense/constants"
)

func TestExtract_ReportScenarios(t *testing.T) {
	ex := NewExtractor(DefaultSynonyms(), MatchSubstring)

	tests := []struct {
		name   string
		text   string
		cat    constants.Category
		want   string
		status constants.FieldStatus
	}{
		{"label with colon and unit", "Glucose: 95 mg/dL", constants.Glucose, "95", constants.FieldStatusFound},
		{"second synonym", "eAG 126\nSome other line", constants.Glucose, "126", constants.FieldStatusFound},
		{"no label", "Result pending", constants.Insulin, "", constants.FieldStatusLabelNotFound},
		{"label without number", "Insulin Level mg/mL unavailable", constants.Insulin, "", constants.FieldStatusValueNotParsable},
		{"multi word synonym", "C-PEPTIDE FASTING, SERUM 3.2 ng/mL", constants.Insulin, "3.2", constants.FieldStatusFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ex.Extract(NewReportText(tt.text), tt.cat)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.want, out.Value)
			assert.Equal(t, tt.cat, out.Category)
		})
	}
}

func TestExtract_FirstMatchingLineWins(t *testing.T) {
	ex := NewExtractor(DefaultSynonyms(), MatchSubstring)
	text := NewReportText("Patient: J. Doe\nGlucose fasting pending\nGlucose 110 mg/dL\neAG 140")

	out := ex.Extract(text, constants.Glucose)

	// The first labelled line has no number; later lines are not consulted.
	assert.Equal(t, constants.FieldStatusValueNotParsable, out.Status)
	assert.Equal(t, "Glucose fasting pending", out.MatchedLine)
	assert.Empty(t, out.Value)
}

func TestExtract_FirstNumericTokenWins(t *testing.T) {
	ex := NewExtractor(DefaultSynonyms(), MatchSubstring)
	out := ex.Extract(NewReportText("Glucose 95.4 (70 - 100) 88"), constants.Glucose)
	require.True(t, out.Found())
	assert.Equal(t, "95.4", out.Value)
}

func TestExtract_SubstringMatchesInsideWords(t *testing.T) {
	ex := NewExtractor(DefaultSynonyms(), MatchSubstring)
	out := ex.Extract(NewReportText("Proinsulin Insulinoma screen 12"), constants.Insulin)
	require.True(t, out.Found())
	assert.Equal(t, "12", out.Value)
}

func TestExtract_WordPolicySkipsEmbeddedLabels(t *testing.T) {
	ex := NewExtractor(DefaultSynonyms(), MatchWord)
	text := NewReportText("BPH screening 4\nInsulinoma 7\nFasting Insulin: 8.1 uIU/mL\nBP 120/80 mmHg 72")

	ins := ex.Extract(text, constants.Insulin)
	require.True(t, ins.Found())
	assert.Equal(t, "8.1", ins.Value)

	bp := ex.Extract(text, constants.BloodPressure)
	require.True(t, bp.Found())
	assert.Equal(t, "BP 120/80 mmHg 72", bp.MatchedLine)
	assert.Equal(t, "72", bp.Value)
}

func TestExtract_CaseSensitive(t *testing.T) {
	ex := NewExtractor(DefaultSynonyms(), MatchSubstring)
	out := ex.Extract(NewReportText("GLUCOSE 99"), constants.Glucose)
	assert.Equal(t, constants.FieldStatusLabelNotFound, out.Status)
}

func TestExtract_BlankTextResolvesEverythingAbsent(t *testing.T) {
	ex := NewExtractor(DefaultSynonyms(), MatchSubstring)
	text := NewReportText("  \n\t\n")
	assert.True(t, text.IsBlank())

	res := ex.ExtractAll(text, nil)
	require.Len(t, res.Outcomes, DefaultSynonyms().Len())
	for _, o := range res.Outcomes {
		assert.Equal(t, constants.FieldStatusLabelNotFound, o.Status, o.Category)
	}
	assert.Empty(t, res.Values())
	assert.Len(t, res.Warnings(), len(res.Outcomes))
}

func TestExtractAll_IndependentCategories(t *testing.T) {
	ex := NewExtractor(DefaultSynonyms(), MatchSubstring)
	text := NewReportText("Glucose 101\nInsulin pending\nWeight 72.5 kg\nHeight 170 cm")

	res := ex.ExtractAll(text, []constants.Category{
		constants.Insulin, constants.Glucose, constants.Glucose, constants.Weight, "cholesterol",
	})

	require.Len(t, res.Outcomes, 4)
	assert.Equal(t, constants.Insulin, res.Outcomes[0].Category)
	assert.Equal(t, map[constants.Category]string{
		constants.Glucose: "101",
		constants.Weight:  "72.5",
	}, res.Values())

	unknown, ok := res.Get("cholesterol")
	require.True(t, ok)
	assert.Equal(t, constants.FieldStatusLabelNotFound, unknown.Status)
	assert.Len(t, res.Warnings(), 2)
}

func TestExtract_Idempotent(t *testing.T) {
	ex := NewExtractor(DefaultSynonyms(), MatchSubstring)
	text := NewReportText("eAG 126\nInsulin 3.0")
	first := ex.ExtractAll(text, nil)
	second := ex.ExtractAll(text, nil)
	assert.Equal(t, first, second)
}

func TestExtract_DoesNotMutateReport(t *testing.T) {
	lines := []string{"Glucose 95", "Insulin 4"}
	text := ReportTextFromLines(lines)
	lines[0] = "changed"

	ex := NewExtractor(DefaultSynonyms(), MatchSubstring)
	_ = ex.ExtractAll(text, nil)
	assert.Equal(t, []string{"Glucose 95", "Insulin 4"}, text.Lines())
}

func TestNewReportText_CRLF(t *testing.T) {
	text := NewReportText("Glucose 95\r\nInsulin 4\r\n")
	assert.Equal(t, []string{"Glucose 95", "Insulin 4", ""}, text.Lines())
}
