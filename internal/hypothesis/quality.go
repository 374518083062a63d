package hypothesis

// EvidenceQuality grades how directly a piece of evidence bears on a claim.
type EvidenceQuality string

const (
	// QualityDirect is a first-hand observation of the claimed behavior.
	QualityDirect EvidenceQuality = "DIRECT"
	// QualityCorroborated is an observation confirmed by an independent source.
	QualityCorroborated EvidenceQuality = "CORROBORATED"
	// QualityIndirect is an observation that implies the claim without showing it.
	QualityIndirect EvidenceQuality = "INDIRECT"
	// QualityCircumstantial is consistent with the claim but explainable otherwise.
	QualityCircumstantial EvidenceQuality = "CIRCUMSTANTIAL"
	// QualityWeak is an observation with little evidentiary value on its own.
	QualityWeak EvidenceQuality = "WEAK"
)

// Weight returns the aggregation weight for the quality tier.
// Keeping the weight on the type itself means a new tier cannot be added
// without the compiler forcing a decision here.
func (q EvidenceQuality) Weight() float64 {
	switch q {
	case QualityDirect:
		return 1.0
	case QualityCorroborated:
		return 0.9
	case QualityIndirect:
		return 0.6
	case QualityCircumstantial:
		return 0.3
	case QualityWeak:
		return 0.1
	}
	return 0.0
}

// Valid reports whether q is one of the defined quality tiers.
func (q EvidenceQuality) Valid() bool {
	switch q {
	case QualityDirect, QualityCorroborated, QualityIndirect, QualityCircumstantial, QualityWeak:
		return true
	}
	return false
}

// String returns the tier name.
func (q EvidenceQuality) String() string {
	return string(q)
}
