package engine

import "errors"

// ErrEmptySnapshot is returned when a snapshot holds zero valid
// records. Diffing against it would spuriously end every campaign, so
// the whole invocation fails instead.
var ErrEmptySnapshot = errors.New("snapshot contains no valid records")
