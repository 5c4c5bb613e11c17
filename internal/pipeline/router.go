package pipeline

// Target names the stream a report lands in beyond the unconditional audit
// entry.
type Target int

const (
	// TargetAuditOnly routes nowhere beyond audit: relevant but excluded
	// from downstream context.
	TargetAuditOnly Target = iota

	// TargetMemory routes to the memory stream: relevant and included.
	TargetMemory

	// TargetRejected routes to the rejected stream: not relevant.
	TargetRejected
)

func (t Target) String() string {
	switch t {
	case TargetMemory:
		return "memory"
	case TargetRejected:
		return "rejected"
	default:
		return "audit_only"
	}
}

// Route maps the relevance verdict and include flag to a target. Relevance
// dominates: an irrelevant report is rejected no matter what the evaluator
// said about inclusion.
func Route(isRelevant, includeInContext bool) Target {
	if !isRelevant {
		return TargetRejected
	}
	if includeInContext {
		return TargetMemory
	}
	return TargetAuditOnly
}
