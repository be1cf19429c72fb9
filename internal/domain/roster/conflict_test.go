package roster

import (
	"testing"

	"github.com/google/uuid"

	"github.com/rota/rota/internal/domain/provider"
	"github.com/rota/rota/pkg/calendar"
)

func TestPTOBlocks(t *testing.T) {
	assignments := []Assignment{
		{Block: calendar.AM, IsPTO: true},
		{Block: calendar.PM, IsPTO: false},
		{Block: calendar.Both, IsPTO: true},
	}
	blocks := PTOBlocks(assignments)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 PTO blocks, got %v", blocks)
	}
	if blocks[0] != calendar.AM || blocks[1] != calendar.Both {
		t.Errorf("unexpected blocks: %v", blocks)
	}
}

func TestFindConflicts_BothIntersectsEverything(t *testing.T) {
	work := []Assignment{
		{ID: uuid.New(), Block: calendar.AM},
		{ID: uuid.New(), Block: calendar.PM},
		{ID: uuid.New(), Block: calendar.Both},
		{ID: uuid.New(), Block: calendar.AM, IsPTO: true},
	}
	conflicts := FindConflicts(work, []calendar.TimeBlock{calendar.Both})
	if len(conflicts) != 3 {
		t.Errorf("expected all 3 non-PTO assignments to conflict, got %d", len(conflicts))
	}
}

func TestFindConflicts_ExactBlockOnly(t *testing.T) {
	work := []Assignment{
		{ID: uuid.New(), Block: calendar.AM},
		{ID: uuid.New(), Block: calendar.PM},
		{ID: uuid.New(), Block: calendar.Both},
	}
	conflicts := FindConflicts(work, []calendar.TimeBlock{calendar.AM})
	if len(conflicts) != 2 {
		t.Fatalf("expected AM and BOTH to conflict with AM PTO, got %d", len(conflicts))
	}
	for _, c := range conflicts {
		if c.Block == calendar.PM {
			t.Error("PM assignment must not conflict with AM PTO")
		}
	}
}

func TestFindConflicts_NoPTO(t *testing.T) {
	work := []Assignment{{ID: uuid.New(), Block: calendar.AM}}
	if got := FindConflicts(work, nil); len(got) != 0 {
		t.Errorf("expected no conflicts without PTO blocks, got %d", len(got))
	}
}

func TestOnLeave(t *testing.T) {
	leaves := []provider.Leave{
		{StartDate: calendar.MustDate("2026-03-10"), EndDate: calendar.MustDate("2026-03-12")},
	}
	if !OnLeave(leaves, calendar.MustDate("2026-03-11")) {
		t.Error("expected on leave inside range")
	}
	if OnLeave(leaves, calendar.MustDate("2026-03-13")) {
		t.Error("expected not on leave outside range")
	}
	if OnLeave(nil, calendar.MustDate("2026-03-11")) {
		t.Error("expected not on leave with no leaves")
	}
}
