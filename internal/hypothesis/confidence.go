package hypothesis

import (
	"fmt"
	"math"
	"strings"
)

// recalculate recomputes the confidence score and reasoning string from the
// full evidence and attempt history. Always computed fresh, never
// incrementally, so the result is identical for any path to the same state.
// Caller must hold h.mu.
func (h *Hypothesis) recalculate() {
	raw := h.initialConfidence*InitialWeight + h.evidenceScore()*EvidenceWeight + h.survivalBonus()
	h.currentConfidence = clamp(raw, 0.0, 1.0)
	h.confidenceReasoning = h.buildReasoning()
}

// evidenceScore aggregates weighted evidence into [-1, 1]. Zero when there is
// no evidence. The weighted sum is clamped to ±count BEFORE normalizing:
// a single strong contradicting observation must not swing the score below
// -1 and collapse the 30/70 weighting contract.
func (h *Hypothesis) evidenceScore() float64 {
	total := len(h.supporting) + len(h.contradicting)
	if total == 0 {
		return 0
	}

	sum := 0.0
	for _, ev := range h.supporting {
		sum += ev.WeightedConfidence()
	}
	for _, ev := range h.contradicting {
		sum -= ev.WeightedConfidence()
	}

	sum = clamp(sum, -float64(total), float64(total))
	return sum / float64(total)
}

// survivalBonus credits surviving disproof attempts, capped at
// MaxSurvivalBonus. The cap is a fixed constant: a headroom-derived cap would
// make the bonus depend on evidence ordering.
func (h *Hypothesis) survivalBonus() float64 {
	return math.Min(MaxSurvivalBonus, float64(h.survivedCount())*BonusPerSurvival)
}

func (h *Hypothesis) survivedCount() int {
	n := 0
	for _, a := range h.disproofAttempts {
		if a.Outcome == OutcomeSurvived {
			n++
		}
	}
	return n
}

// qualityOrder fixes the iteration order for deterministic reasoning output.
var qualityOrder = []EvidenceQuality{
	QualityDirect,
	QualityCorroborated,
	QualityIndirect,
	QualityCircumstantial,
	QualityWeak,
}

// buildReasoning renders a human-readable projection of the numeric state.
// It is derived output only, never a source of truth. Caller must hold h.mu.
func (h *Hypothesis) buildReasoning() string {
	if h.status == StatusDisproven {
		return fmt.Sprintf("Confidence: 0%%. Hypothesis disproven after %d falsification attempt(s).", len(h.disproofAttempts))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Confidence: %.0f%%.", h.currentConfidence*100)

	byQuality := make(map[EvidenceQuality]int)
	for _, ev := range h.supporting {
		byQuality[ev.Quality]++
	}

	var parts []string
	for _, q := range qualityOrder {
		if n := byQuality[q]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s supporting observation(s)", n, strings.ToLower(string(q))))
		}
	}
	if n := len(h.contradicting); n > 0 {
		parts = append(parts, fmt.Sprintf("%d contradicting observation(s)", n))
	}
	if n := h.survivedCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("survived %d falsification attempt(s)", n))
	}

	if len(parts) == 0 {
		sb.WriteString(" No evidence gathered yet; score reflects the initial estimate only.")
		return sb.String()
	}

	sb.WriteString(" Based on: ")
	sb.WriteString(strings.Join(parts, ", "))
	sb.WriteString(".")
	return sb.String()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
