package model

import "fmt"

// ValidationError reports a malformed employee hierarchy (duplicate ID or
// cycle). Fatal: the run aborts before anything is fetched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "hierarchy validation: " + e.Reason
}

// UnsupportedLocationError reports a location with no holiday rule entry.
// Non-fatal: affected employees get no table-derived holidays.
type UnsupportedLocationError struct {
	Location string
}

func (e *UnsupportedLocationError) Error() string {
	return "no holiday rules for location " + e.Location
}

// OracleResponseError reports a classification response that could not be
// parsed as the expected structured mapping. Non-fatal per title after the
// narrowed retry: affected titles degrade to unmapped.
type OracleResponseError struct {
	Reason string
	Err    error
}

func (e *OracleResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oracle response: %s: %v", e.Reason, e.Err)
	}
	return "oracle response: " + e.Reason
}

func (e *OracleResponseError) Unwrap() error { return e.Err }

// NetworkError reports a feed or oracle endpoint that stayed unreachable
// after retries. Fatal: the report would be materially incomplete.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// InternalConsistencyError reports a broken invariant between pipeline
// stages. Fatal: it indicates a defect, not bad input.
type InternalConsistencyError struct {
	Reason string
}

func (e *InternalConsistencyError) Error() string {
	return "internal consistency: " + e.Reason
}
