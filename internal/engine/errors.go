package engine

import "fmt"

// NotFoundError reports a name that resolved to no record. The lookup is
// local; no mutating network call was attempted.
type NotFoundError struct {
	Kind string // "library" or "node"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// AmbiguousError reports a name that resolved to more than one record.
type AmbiguousError struct {
	Kind  string
	Name  string
	Count int
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%d %ss match name %q", e.Count, e.Kind, e.Name)
}

// ValidationError reports a command argument rejected before any network
// activity.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// PartialError reports a multi-step worker-limit adjustment that failed
// after at least one step applied. The remote limit may be left between the
// old and requested values; callers must not treat it as a clean failure.
type PartialError struct {
	Applied   int
	Requested int
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("worker limit partially adjusted (%d of %d steps applied): %v",
		e.Applied, e.Requested, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }
