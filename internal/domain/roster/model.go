package roster

import (
	"time"

	"github.com/google/uuid"

	"github.com/rota/rota/internal/domain/history"
	"github.com/rota/rota/pkg/calendar"
)

// Assignment maps to the schedule_assignment table. It is the atomic
// schedulable fact: one provider on one service for one date and time
// block. A provider holds at most one non-PTO and at most one PTO
// assignment per date and overlapping block.
type Assignment struct {
	ID         uuid.UUID          `db:"id" json:"id"`
	ProviderID uuid.UUID          `db:"provider_id" json:"provider_id"`
	ServiceID  uuid.UUID          `db:"service_id" json:"service_id"`
	Date       calendar.Date      `db:"schedule_date" json:"date"`
	Block      calendar.TimeBlock `db:"time_block" json:"time_block"`
	RoomCount  int                `db:"room_count" json:"room_count"`
	IsPTO      bool               `db:"is_pto" json:"is_pto"`
	IsCovering bool               `db:"is_covering" json:"is_covering"`
	Notes      string             `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `db:"updated_at" json:"updated_at"`
}

// Snapshot converts the assignment to its history representation.
func (a *Assignment) Snapshot() history.Snapshot {
	return history.Snapshot{
		ID:         a.ID,
		ProviderID: a.ProviderID,
		ServiceID:  a.ServiceID,
		Date:       a.Date,
		Block:      a.Block,
		RoomCount:  a.RoomCount,
		IsPTO:      a.IsPTO,
		IsCovering: a.IsCovering,
		Notes:      a.Notes,
	}
}

func fromSnapshot(s history.Snapshot) Assignment {
	return Assignment{
		ID:         s.ID,
		ProviderID: s.ProviderID,
		ServiceID:  s.ServiceID,
		Date:       s.Date,
		Block:      s.Block,
		RoomCount:  s.RoomCount,
		IsPTO:      s.IsPTO,
		IsCovering: s.IsCovering,
		Notes:      s.Notes,
	}
}

// Day metadata blocks. DAY covers flags that are not half-day scoped, such
// as the free-text day note.
const (
	DayBlockAM  = "AM"
	DayBlockPM  = "PM"
	DayBlockDay = "DAY"
)

var validDayBlocks = map[string]bool{
	DayBlockAM:  true,
	DayBlockPM:  true,
	DayBlockDay: true,
}

// DayMetadata maps to the day_metadata table. Informational flags attached
// to a date and block; never consulted by placement or capacity logic.
type DayMetadata struct {
	ID                 uuid.UUID     `db:"id" json:"id"`
	Date               calendar.Date `db:"metadata_date" json:"date"`
	Block              string        `db:"time_block" json:"time_block"`
	CHPRoomInUse       bool          `db:"chp_room_in_use" json:"chp_room_in_use"`
	ExtraRoomAvailable bool          `db:"extra_room_available" json:"extra_room_available"`
	Note               string        `db:"note" json:"note,omitempty"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}
