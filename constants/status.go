package constants

// FieldStatus is the outcome of extracting one field category from a report.
type FieldStatus string

// Stable values (returned verbatim in API responses).
const (
	FieldStatusFound            FieldStatus = "FOUND"              // label line and numeric value located
	FieldStatusLabelNotFound    FieldStatus = "LABEL_NOT_FOUND"    // no line carries any synonym
	FieldStatusValueNotParsable FieldStatus = "VALUE_NOT_PARSABLE" // label line has no numeric token
)

// ImageConfidenceThreshold flags image OCR output below this score for manual review.
const ImageConfidenceThreshold = 0.6
