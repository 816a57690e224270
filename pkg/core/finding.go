package core

// Finding is one entry of the QC report: a record id and a message.
// ID is empty for table-level findings.
type Finding struct {
	ID       string   `json:"id"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule,omitempty"`
}

// NewFinding builds an error finding.
func NewFinding(id, message string) Finding {
	return Finding{ID: id, Message: message, Severity: SeverityError}
}

// CountBySeverity tallies findings per severity.
func CountBySeverity(findings []Finding) map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

// FilterBySeverity keeps findings at or above the threshold.
func FilterBySeverity(findings []Finding, threshold Severity) []Finding {
	out := findings[:0:0]
	for _, f := range findings {
		if f.Severity.AtLeast(threshold) {
			out = append(out, f)
		}
	}
	return out
}
