package provider

import (
	"github.com/google/uuid"

	"github.com/rota/rota/pkg/calendar"
)

// Evaluation is the outcome of checking a provider/service/day/block
// combination against the provider's availability rules.
type Evaluation struct {
	Allowed bool `json:"allowed"`
	// Enforcement is "hard" when the placement is blocked outright, "warn"
	// when it is permitted but needs explicit confirmation, empty otherwise.
	Enforcement string `json:"enforcement,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Evaluate reduces the rule set for one placement. It considers rules whose
// provider matches, whose service matches or is unset (all services), whose
// day of week matches, and whose block overlaps the requested block. Among
// matching block rules, hard enforcement wins over warn. With no blocking
// rule the placement is allowed unflagged.
//
// Pure function over its inputs; safe to call repeatedly and concurrently.
func Evaluate(rules []AvailabilityRule, providerID, serviceID uuid.UUID, dayOfWeek int, block calendar.TimeBlock) Evaluation {
	result := Evaluation{Allowed: true}

	for _, r := range rules {
		if r.ProviderID != providerID || r.DayOfWeek != dayOfWeek {
			continue
		}
		if r.ServiceID != nil && *r.ServiceID != serviceID {
			continue
		}
		if !r.Block.Overlaps(block) {
			continue
		}
		if r.RuleType != RuleBlock {
			continue
		}

		switch r.Enforcement {
		case EnforceHard:
			// Hard always wins; stop scanning.
			return Evaluation{Allowed: false, Enforcement: EnforceHard, Reason: r.Reason}
		case EnforceWarn:
			if result.Enforcement == "" {
				result.Enforcement = EnforceWarn
				result.Reason = r.Reason
			}
		}
	}
	return result
}

// HasHardBlockAnyService reports whether any hard block rule hits the
// provider at this day/block, regardless of target service. Used by the
// suggestion engine, which disqualifies providers who are hard-blocked for
// anything at that time.
func HasHardBlockAnyService(rules []AvailabilityRule, providerID uuid.UUID, dayOfWeek int, block calendar.TimeBlock) bool {
	for _, r := range rules {
		if r.ProviderID != providerID || r.DayOfWeek != dayOfWeek {
			continue
		}
		if !r.Block.Overlaps(block) {
			continue
		}
		if r.RuleType == RuleBlock && r.Enforcement == EnforceHard {
			return true
		}
	}
	return false
}
