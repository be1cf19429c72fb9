package provider

import (
	"time"

	"github.com/google/uuid"

	"github.com/rota/rota/pkg/calendar"
)

// Provider roles.
const (
	RoleAttending = "attending"
	RoleFellow    = "fellow"
	RolePA        = "pa"
	RoleNP        = "np"
)

var validRoles = map[string]bool{
	RoleAttending: true, RoleFellow: true, RolePA: true, RoleNP: true,
}

// Provider maps to the provider table.
type Provider struct {
	ID       uuid.UUID `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	Initials string    `db:"initials" json:"initials"`
	Role     string    `db:"role" json:"role"`
	// Capabilities are named skills (e.g. Rooms, Echo) gating which
	// services the provider may cover.
	Capabilities     []string  `db:"capabilities" json:"capabilities"`
	DefaultRoomCount int       `db:"default_room_count" json:"default_room_count"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// HasCapability reports whether the provider holds the named skill.
func (p *Provider) HasCapability(name string) bool {
	for _, c := range p.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// Rule types and enforcement levels for availability rules.
const (
	RuleAllow = "allow"
	RuleBlock = "block"

	EnforceHard = "hard"
	EnforceWarn = "warn"
)

// AvailabilityRule maps to the availability_rule table. A nil ServiceID
// means the rule applies to all services.
type AvailabilityRule struct {
	ID         uuid.UUID          `db:"id" json:"id"`
	ProviderID uuid.UUID          `db:"provider_id" json:"provider_id"`
	ServiceID  *uuid.UUID         `db:"service_id" json:"service_id,omitempty"`
	DayOfWeek  int                `db:"day_of_week" json:"day_of_week"` // 0=Sunday .. 6=Saturday
	Block      calendar.TimeBlock `db:"time_block" json:"time_block"`
	RuleType   string             `db:"rule_type" json:"rule_type"`
	Enforcement string            `db:"enforcement" json:"enforcement"`
	Reason     string             `db:"reason" json:"reason"`
	CreatedAt  time.Time          `db:"created_at" json:"created_at"`
}

// Leave maps to the provider_leave table. Start and end dates are inclusive
// and cover full days regardless of time block.
type Leave struct {
	ID         uuid.UUID     `db:"id" json:"id"`
	ProviderID uuid.UUID     `db:"provider_id" json:"provider_id"`
	StartDate  calendar.Date `db:"start_date" json:"start_date"`
	EndDate    calendar.Date `db:"end_date" json:"end_date"`
	LeaveType  string        `db:"leave_type" json:"leave_type"`
	Reason     string        `db:"reason" json:"reason"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// Covers reports whether the leave spans the given date, inclusive.
func (l *Leave) Covers(d calendar.Date) bool {
	return !d.Before(l.StartDate) && !d.After(l.EndDate)
}
