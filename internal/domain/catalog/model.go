package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/rota/rota/pkg/calendar"
)

// Service maps to the service table. A service is a schedulable duty
// (a room pool, an imaging study, a clinic) referenced by assignments.
type Service struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
	// Block is the service's time-block mode: AM, PM, or BOTH.
	Block calendar.TimeBlock `db:"time_block" json:"time_block"`
	// Capabilities a provider must hold (any one of) to cover this service.
	// Empty means no capability requirement.
	Capabilities []string `db:"capabilities" json:"capabilities"`
	// RequiresRooms marks the capacity-tracked room services.
	RequiresRooms bool `db:"requires_rooms" json:"requires_rooms"`
	// Inpatient services are exempt from holiday closure.
	Inpatient bool `db:"inpatient" json:"inpatient"`
	// CoverageRequired services are flagged when empty on a weekday.
	CoverageRequired bool      `db:"coverage_required" json:"coverage_required"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Well-known service names referenced by the suggestion engine. Services are
// data, but these names carry special casing in coverage logic.
const (
	NameRoomsAM         = "Rooms AM"
	NameRoomsPM         = "Rooms PM"
	NameConsults        = "Consults"
	NameBurgundy        = "Burgundy"
	NameFourthFloorEcho = "Fourth Floor Echo"
	NameOffsites        = "Offsites"
	NameEchoLab         = "Echo Lab"
	NameStressNuclear   = "Stress/Nuclear"
	NamePrecepting      = "Precepting"
	NamePTO             = "PTO"
)

// SatisfiedBy reports whether a provider's capability set meets the
// service's requirement (any one of the listed capabilities).
func (s *Service) SatisfiedBy(capabilities []string) bool {
	if len(s.Capabilities) == 0 {
		return true
	}
	for _, want := range s.Capabilities {
		for _, have := range capabilities {
			if have == want {
				return true
			}
		}
	}
	return false
}
