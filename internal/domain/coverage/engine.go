package coverage

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rota/rota/internal/domain/catalog"
	"github.com/rota/rota/internal/domain/provider"
	"github.com/rota/rota/internal/domain/roster"
	"github.com/rota/rota/pkg/calendar"
)

// Room capacity targets. The PM block on Wednesdays and Thursdays runs
// extended hours, which raises the optimal ceiling by one.
const (
	BaseTarget       = 14
	ExtendedCeiling  = 15
	UnderstaffedLine = 12
)

// Capacity zones for caller display. Never persisted.
const (
	ZoneEmpty   = "empty"
	ZoneUnder   = "under"
	ZoneOptimal = "optimal"
	ZoneOver    = "over"
)

// Target returns the room target for a date and block, accounting for the
// extended-hours ceiling.
func Target(date calendar.Date, block calendar.TimeBlock) int {
	wd := date.Weekday()
	if block == calendar.PM && (wd == time.Wednesday || wd == time.Thursday) {
		return ExtendedCeiling
	}
	return BaseTarget
}

// Zone classifies the current room count against the day's ceiling.
// Weekends have no zones and return the empty string.
func Zone(current int, date calendar.Date, block calendar.TimeBlock) string {
	if date.IsWeekend() {
		return ""
	}
	ceiling := Target(date, block)
	switch {
	case current == 0:
		return ZoneEmpty
	case current < UnderstaffedLine:
		return ZoneUnder
	case current <= ceiling:
		return ZoneOptimal
	default:
		return ZoneOver
	}
}

// Services whose occupants are unavailable for room coverage. Occupying
// any other service does not disqualify a provider from the rooms
// suggestion list.
var roomExclusionServices = map[string]bool{
	catalog.NameConsults:        true,
	catalog.NameBurgundy:        true,
	catalog.NameFourthFloorEcho: true,
	catalog.NameOffsites:        true,
}

// Suggestion is one ranked candidate for filling a coverage gap.
type Suggestion struct {
	ProviderID       uuid.UUID `json:"provider_id"`
	Name             string    `json:"name"`
	Initials         string    `json:"initials"`
	DefaultRoomCount int       `json:"default_room_count"`
	Warned           bool      `json:"warned"`
	WarnReason       string    `json:"warn_reason,omitempty"`
	// Precepting marks the preceptor freed up by the absence of fellows
	// in rooms. Always listed first when present.
	Precepting bool `json:"precepting,omitempty"`
}

// Input carries one day's worth of schedule context for the suggestion
// engines. All lookups are in-memory; the engine itself is pure.
type Input struct {
	Date        calendar.Date
	Block       calendar.TimeBlock
	Providers   []*provider.Provider
	Assignments []roster.Assignment
	Services    map[uuid.UUID]*catalog.Service
	Rules       []provider.AvailabilityRule
	Leaves      []provider.Leave
}

// RoomReport is the room-gap computation plus the ranked candidates to
// close it.
type RoomReport struct {
	Date           calendar.Date `json:"date"`
	Block          calendar.TimeBlock `json:"time_block"`
	CurrentRooms   int          `json:"current_rooms"`
	Target         int          `json:"target"`
	Needed         int          `json:"needed"`
	Zone           string       `json:"zone"`
	FellowsInRooms bool         `json:"fellows_in_rooms"`
	Suggestions    []Suggestion `json:"suggestions"`
}

func (in *Input) serviceOf(a roster.Assignment) *catalog.Service {
	return in.Services[a.ServiceID]
}

// slotAssignments returns the non-PTO assignments overlapping the block,
// keyed by provider.
func (in *Input) slotAssignments() map[uuid.UUID][]roster.Assignment {
	byProvider := make(map[uuid.UUID][]roster.Assignment)
	for _, a := range in.Assignments {
		if a.IsPTO || !a.Block.Overlaps(in.Block) {
			continue
		}
		byProvider[a.ProviderID] = append(byProvider[a.ProviderID], a)
	}
	return byProvider
}

// ptoProviders returns the providers with PTO overlapping the block.
func (in *Input) ptoProviders() map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool)
	for _, a := range in.Assignments {
		if a.IsPTO && a.Block.Overlaps(in.Block) {
			out[a.ProviderID] = true
		}
	}
	return out
}

func (in *Input) onLeave(providerID uuid.UUID) bool {
	for _, l := range in.Leaves {
		if l.ProviderID == providerID && l.Covers(in.Date) {
			return true
		}
	}
	return false
}

// SuggestRooms computes the room gap for the slot and ranks candidates to
// fill it. Weekend dates yield a zero report with no suggestions.
func SuggestRooms(in Input) RoomReport {
	rep := RoomReport{Date: in.Date, Block: in.Block}
	if in.Date.IsWeekend() {
		return rep
	}

	slot := in.slotAssignments()
	pto := in.ptoProviders()
	dow := int(in.Date.Weekday())

	inRooms := make(map[uuid.UUID]bool)
	var roomsServiceID uuid.UUID
	for pid, assignments := range slot {
		for _, a := range assignments {
			svc := in.serviceOf(a)
			if svc == nil || !svc.RequiresRooms {
				continue
			}
			rep.CurrentRooms += a.RoomCount
			inRooms[pid] = true
			roomsServiceID = a.ServiceID
		}
	}
	if roomsServiceID == uuid.Nil {
		for id, svc := range in.Services {
			if svc.RequiresRooms && svc.Block.Overlaps(in.Block) {
				roomsServiceID = id
				break
			}
		}
	}

	rep.Target = Target(in.Date, in.Block)
	rep.Zone = Zone(rep.CurrentRooms, in.Date, in.Block)
	if rep.CurrentRooms < rep.Target {
		rep.Needed = rep.Target - rep.CurrentRooms
	}

	byID := make(map[uuid.UUID]*provider.Provider, len(in.Providers))
	for _, p := range in.Providers {
		byID[p.ID] = p
		if inRooms[p.ID] && p.Role == provider.RoleFellow {
			rep.FellowsInRooms = true
		}
	}

	var candidates []Suggestion
	for _, p := range in.Providers {
		if !p.HasCapability("Rooms") || inRooms[p.ID] {
			continue
		}
		if pto[p.ID] || in.onLeave(p.ID) {
			continue
		}
		if in.hasBlockingAssignment(slot[p.ID]) {
			continue
		}
		if provider.HasHardBlockAnyService(in.Rules, p.ID, dow, in.Block) {
			continue
		}
		s := Suggestion{
			ProviderID:       p.ID,
			Name:             p.Name,
			Initials:         p.Initials,
			DefaultRoomCount: p.DefaultRoomCount,
		}
		eval := provider.Evaluate(in.Rules, p.ID, roomsServiceID, dow, in.Block)
		if eval.Enforcement == provider.EnforceWarn {
			s.Warned = true
			s.WarnReason = eval.Reason
		}
		candidates = append(candidates, s)
	}

	// Non-warned first, then maximize rooms contributed per pick.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Warned != candidates[j].Warned {
			return !candidates[i].Warned
		}
		return candidates[i].DefaultRoomCount > candidates[j].DefaultRoomCount
	})

	// With no fellow in rooms the preceptor has nobody to supervise and
	// leads the list. A preceptor with the Rooms capability already ranks
	// in the pool, so drop that entry before prepending.
	if !rep.FellowsInRooms {
		if preceptor := in.preceptorSuggestion(slot, inRooms, byID); preceptor != nil {
			kept := candidates[:0]
			for _, s := range candidates {
				if s.ProviderID != preceptor.ProviderID {
					kept = append(kept, s)
				}
			}
			candidates = append([]Suggestion{*preceptor}, kept...)
		}
	}
	rep.Suggestions = candidates
	return rep
}

// hasBlockingAssignment reports whether any of the provider's slot
// assignments occupies an exclusion-set service.
func (in *Input) hasBlockingAssignment(assignments []roster.Assignment) bool {
	for _, a := range assignments {
		svc := in.serviceOf(a)
		if svc != nil && roomExclusionServices[svc.Name] {
			return true
		}
	}
	return false
}

func (in *Input) preceptorSuggestion(slot map[uuid.UUID][]roster.Assignment, inRooms map[uuid.UUID]bool, byID map[uuid.UUID]*provider.Provider) *Suggestion {
	for pid, assignments := range slot {
		if inRooms[pid] {
			continue
		}
		for _, a := range assignments {
			svc := in.serviceOf(a)
			if svc == nil || svc.Name != catalog.NamePrecepting {
				continue
			}
			p := byID[pid]
			if p == nil {
				return nil
			}
			return &Suggestion{
				ProviderID:       p.ID,
				Name:             p.Name,
				Initials:         p.Initials,
				DefaultRoomCount: p.DefaultRoomCount,
				Precepting:       true,
			}
		}
	}
	return nil
}

// SuggestService ranks candidates for a coverage-required service. Unlike
// the rooms path, any existing assignment at the slot disqualifies a
// candidate.
func SuggestService(in Input, svc *catalog.Service) []Suggestion {
	if in.Date.IsWeekend() {
		return nil
	}
	slot := in.slotAssignments()
	pto := in.ptoProviders()
	dow := int(in.Date.Weekday())

	var candidates []Suggestion
	for _, p := range in.Providers {
		if !svc.SatisfiedBy(p.Capabilities) {
			continue
		}
		if len(slot[p.ID]) > 0 {
			continue
		}
		if pto[p.ID] || in.onLeave(p.ID) {
			continue
		}
		if provider.HasHardBlockAnyService(in.Rules, p.ID, dow, in.Block) {
			continue
		}
		s := Suggestion{
			ProviderID:       p.ID,
			Name:             p.Name,
			Initials:         p.Initials,
			DefaultRoomCount: p.DefaultRoomCount,
		}
		eval := provider.Evaluate(in.Rules, p.ID, svc.ID, dow, in.Block)
		if eval.Enforcement == provider.EnforceWarn {
			s.Warned = true
			s.WarnReason = eval.Reason
		}
		candidates = append(candidates, s)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Warned != candidates[j].Warned {
			return !candidates[i].Warned
		}
		return candidates[i].Name < candidates[j].Name
	})
	return candidates
}
