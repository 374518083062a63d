package disproof

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/refutehq/refute/internal/hypothesis"
	"github.com/refutehq/refute/internal/telemetry"
)

// Claim metadata keys. The generating agent records its claims under these
// keys on the hypothesis; the strategies read them to decide what to test.
// A strategy whose keys are absent reports INCONCLUSIVE rather than guessing.
const (
	// MetaClaimedCauseTime is the RFC3339 time of the claimed causal event.
	MetaClaimedCauseTime = "claimed_cause_time"
	// MetaSymptomOnsetTime is the RFC3339 time symptoms were first observed.
	MetaSymptomOnsetTime = "symptom_onset_time"
	// MetaCausalMetric is the metric selector expected to show the anomaly.
	MetaCausalMetric = "causal_metric"

	// MetaIncidentStart and MetaIncidentEnd bound the incident window (RFC3339).
	MetaIncidentStart = "incident_start"
	MetaIncidentEnd   = "incident_end"

	// MetaClaimedScope is one of ALL, MOST, SOME, a plain count, or a
	// comma-separated list of entity names.
	MetaClaimedScope = "claimed_scope"
	// MetaScopeSelector selects the affected entity population to count.
	MetaScopeSelector = "scope_selector"
	// MetaScopePopulation is the total population size the scope refers to.
	MetaScopePopulation = "scope_population"

	// MetaClaimedMetric, MetaClaimedOperator and MetaClaimedThreshold form
	// the claimed (metric, operator, threshold) triple.
	MetaClaimedMetric    = "claimed_metric"
	MetaClaimedOperator  = "claimed_operator"
	MetaClaimedThreshold = "claimed_threshold"
)

// metaTime reads an RFC3339 timestamp from the claim metadata.
func metaTime(h *hypothesis.Hypothesis, key string) (time.Time, error) {
	raw, ok := h.MetadataValue(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return time.Time{}, fmt.Errorf("metadata key %q not present", key)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("metadata key %q is not RFC3339: %w", key, err)
	}
	return t.UTC(), nil
}

// metaString reads a non-empty string from the claim metadata.
func metaString(h *hypothesis.Hypothesis, key string) (string, error) {
	raw, ok := h.MetadataValue(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("metadata key %q not present", key)
	}
	return strings.TrimSpace(raw), nil
}

// metaInt reads a positive integer from the claim metadata.
func metaInt(h *hypothesis.Hypothesis, key string) (int, error) {
	raw, err := metaString(h, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("metadata key %q is not an integer: %w", key, err)
	}
	return n, nil
}

// incidentWindow reads the incident time range from the claim metadata.
func incidentWindow(h *hypothesis.Hypothesis) (telemetry.TimeRange, error) {
	start, err := metaTime(h, MetaIncidentStart)
	if err != nil {
		return telemetry.TimeRange{}, err
	}
	end, err := metaTime(h, MetaIncidentEnd)
	if err != nil {
		return telemetry.TimeRange{}, err
	}
	tr := telemetry.TimeRange{Start: start, End: end}
	if err := tr.Validate(); err != nil {
		return telemetry.TimeRange{}, err
	}
	return tr, nil
}
