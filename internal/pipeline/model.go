package pipeline

// Severity is the coarse urgency classification attached to a report.
type Severity string

const (
	SeverityLow        Severity = "low"
	SeverityMedium     Severity = "medium"
	SeverityHigh       Severity = "high"
	SeverityUnknown    Severity = "unknown"
	SeverityIrrelevant Severity = "irrelevant"
)

// NormalizeSeverity coerces arbitrary model output into the fixed enum.
// Anything outside it, including the empty string, becomes "unknown".
func NormalizeSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityUnknown, SeverityIrrelevant:
		return Severity(s)
	default:
		return SeverityUnknown
	}
}

// Classification is the relevance verdict for a report.
type Classification struct {
	Relevant bool   `json:"is_relevant"`
	Reason   string `json:"reason"`
}

// Evaluation is the normalized outcome of the summarize/evaluate stages.
type Evaluation struct {
	IncludeInContext bool     `json:"include_in_context"`
	Severity         Severity `json:"severity"`
	Summary          string   `json:"summary"`
	Reason           string   `json:"reason"`
}

// Location is a resolved coordinate pair. Values are kept as the exact
// decimal strings they were reported with; rounding through float64 would
// lose precision the downstream map consumers rely on.
type Location struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}
