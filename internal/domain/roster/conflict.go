package roster

import (
	"github.com/rota/rota/internal/domain/provider"
	"github.com/rota/rota/pkg/calendar"
)

// PTOBlocks returns the time blocks covered by PTO assignments in the
// given set. The input is expected to be one provider's assignments for a
// single date.
func PTOBlocks(assignments []Assignment) []calendar.TimeBlock {
	var blocks []calendar.TimeBlock
	for _, a := range assignments {
		if a.IsPTO {
			blocks = append(blocks, a.Block)
		}
	}
	return blocks
}

// OnLeave reports whether any of the provider's leave ranges covers the
// date.
func OnLeave(leaves []provider.Leave, date calendar.Date) bool {
	for _, l := range leaves {
		if l.Covers(date) {
			return true
		}
	}
	return false
}

// FindConflicts returns the non-PTO assignments whose time block intersects
// any of the given PTO blocks. A BOTH block on either side intersects
// everything that day.
func FindConflicts(assignments []Assignment, ptoBlocks []calendar.TimeBlock) []Assignment {
	var conflicts []Assignment
	for _, a := range assignments {
		if a.IsPTO {
			continue
		}
		for _, b := range ptoBlocks {
			if a.Block.Overlaps(b) {
				conflicts = append(conflicts, a)
				break
			}
		}
	}
	return conflicts
}

// overlapsAny reports whether block intersects any of the given blocks.
func overlapsAny(block calendar.TimeBlock, blocks []calendar.TimeBlock) bool {
	for _, b := range blocks {
		if block.Overlaps(b) {
			return true
		}
	}
	return false
}
