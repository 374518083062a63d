package hypothesis

import "fmt"

// ValidationError reports malformed Evidence or Hypothesis construction input.
// Construction fails fast; values are never silently coerced into range.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// StateError reports an attempt to mutate a hypothesis in a terminal status.
// A disproven or rejected hypothesis must not be revived by further evidence,
// otherwise the audit trail loses its meaning.
type StateError struct {
	HypothesisID string
	Status       Status
	Operation    string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state error: cannot %s on hypothesis %s in terminal status %s", e.Operation, e.HypothesisID, e.Status)
}
