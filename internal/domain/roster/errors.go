package roster

import "fmt"

// BlockedError is a hard availability block. Never bypassable.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("placement blocked: %s", e.Reason)
}

// NeedsConfirmationError is a soft availability warning. The placement is
// permitted once the caller repeats the request with confirm set.
type NeedsConfirmationError struct {
	Reason string
}

func (e *NeedsConfirmationError) Error() string {
	return fmt.Sprintf("placement requires confirmation: %s", e.Reason)
}

// PTOConflictError reports existing unavailability overlapping the
// requested slot. Overridable is true when the caller may repeat the
// request with the override flag (work over PTO); placing PTO over
// existing work is never overridable, the work must be removed first.
type PTOConflictError struct {
	Conflicts   []Assignment `json:"conflicts"`
	Overridable bool         `json:"overridable"`
	Reason      string       `json:"reason"`
}

func (e *PTOConflictError) Error() string {
	return e.Reason
}

// DuplicateError reports an existing assignment of the same kind for the
// provider at an overlapping block.
type DuplicateError struct {
	Existing Assignment
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("provider already has an assignment on %s %s", e.Existing.Date, e.Existing.Block)
}
