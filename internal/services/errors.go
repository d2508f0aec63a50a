package services

import (
  "errors"
  "fmt"
  "time"
)

// ErrEmptyCandidateSet means the user has read everything we could have
// recommended. Terminal: there is nothing to recommend, the fallback cannot
// help and callers must not treat it as a generation failure.
var ErrEmptyCandidateSet = errors.New("no candidates left after excluding reading list")

// TimeoutError is raised when the inference call exceeds its deadline. The
// in-flight request is cancelled; no retry happens inside a generation cycle.
type TimeoutError struct {
  Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
  return fmt.Sprintf("inference call timed out after %s", e.Elapsed)
}

// ExternalServiceError carries a non-success reply from the inference
// service. Message is the upstream error message when the body parsed,
// otherwise the raw body.
type ExternalServiceError struct {
  StatusCode int
  Message    string
}

func (e *ExternalServiceError) Error() string {
  return fmt.Sprintf("inference service returned %d: %s", e.StatusCode, e.Message)
}

// MalformedResponseError means no extraction strategy produced parseable
// JSON from the model's reply.
type MalformedResponseError struct {
  Raw string
}

func (e *MalformedResponseError) Error() string {
  preview := e.Raw
  if len(preview) > 120 {
    preview = preview[:120] + "..."
  }
  return fmt.Sprintf("no recommendation array could be extracted from model response: %q", preview)
}

// NoValidRecommendationsError means the model reply parsed but every entry
// was invalid or referenced an id outside the candidate set.
type NoValidRecommendationsError struct {
  Parsed int
}

func (e *NoValidRecommendationsError) Error() string {
  return fmt.Sprintf("model returned %d entries, none usable", e.Parsed)
}

// PersistenceError wraps a store read/write failure. It propagates to the
// caller instead of degrading to the fallback list.
type PersistenceError struct {
  Op  string
  Err error
}

func (e *PersistenceError) Error() string {
  return fmt.Sprintf("recommendation store %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
  return e.Err
}

// isDegradable reports whether a pipeline error should be converted into a
// fallback run rather than surfaced.
func isDegradable(err error) bool {
  if err == nil {
    return false
  }
  if errors.Is(err, ErrEmptyCandidateSet) {
    return false
  }
  var persistErr *PersistenceError
  return !errors.As(err, &persistErr)
}
