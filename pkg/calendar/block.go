package calendar

import "fmt"

// TimeBlock is the unit of schedulable time within a day.
type TimeBlock string

const (
	AM   TimeBlock = "AM"
	PM   TimeBlock = "PM"
	Both TimeBlock = "BOTH"
)

// ParseBlock validates a time block string.
func ParseBlock(s string) (TimeBlock, error) {
	switch TimeBlock(s) {
	case AM, PM, Both:
		return TimeBlock(s), nil
	}
	return "", fmt.Errorf("invalid time block %q: expected AM, PM, or BOTH", s)
}

// Valid reports whether b is one of AM, PM, or BOTH.
func (b TimeBlock) Valid() bool {
	return b == AM || b == PM || b == Both
}

// Overlaps reports whether two blocks intersect. BOTH intersects everything.
func (b TimeBlock) Overlaps(other TimeBlock) bool {
	if b == Both || other == Both {
		return true
	}
	return b == other
}

// Halves returns the AM/PM halves a block covers.
func (b TimeBlock) Halves() []TimeBlock {
	if b == Both {
		return []TimeBlock{AM, PM}
	}
	return []TimeBlock{b}
}
