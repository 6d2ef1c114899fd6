package data

//Severity labels how urgently an analyst should look at an alert
type Severity int

//Severity levels ordered by rank. Higher rank sorts earlier in the
//alert queue when confidences tie.
const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	default:
		return "low"
	}
}

//Rank returns the numeric ordering of the severity, higher is more severe
func (s Severity) Rank() int {
	return int(s)
}

//SeverityFromMethodCount maps the number of Tier 1 rule methods which
//fired for a session onto a severity label
func SeverityFromMethodCount(count int) Severity {
	switch {
	case count >= 3:
		return SeverityCritical
	case count == 2:
		return SeverityHigh
	case count == 1:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

//SeverityFromConfidence maps an ML confidence onto a severity label for
//sessions which were flagged by the anomaly scorer alone
func SeverityFromConfidence(confidence float64) Severity {
	switch {
	case confidence >= 0.9:
		return SeverityCritical
	case confidence >= 0.7:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}
