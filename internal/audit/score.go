package audit

// Severity deduction weights. These are fixed constants: changing them
// would break the invariant that every stored score is reproducible from
// its stored findings.
const (
	baseScore        = 100
	deductCritical   = 20
	deductWarning    = 10
	deductInfo       = 2
	deductionDefault = deductWarning
)

// Score reduces a finding list to a single integer in [0, 100] by
// severity-weighted deduction from the baseline. It is a pure function of
// the finding list.
func Score(findings []Finding) int {
	score := baseScore
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			score -= deductCritical
		case SeverityWarning:
			score -= deductWarning
		case SeverityInfo:
			score -= deductInfo
		default:
			score -= deductionDefault
		}
	}

	if score < 0 {
		return 0
	}
	if score > baseScore {
		return baseScore
	}
	return score
}
