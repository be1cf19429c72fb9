package template

import (
	"time"

	"github.com/google/uuid"

	"github.com/rota/rota/pkg/calendar"
)

// Template types.
const (
	TypeWeekly = "weekly"
	TypeCustom = "custom"
)

var validTypes = map[string]bool{
	TypeWeekly: true,
	TypeCustom: true,
}

// Template maps to the schedule_template table: a named snapshot of one
// week's assignments, relative to a week start.
type Template struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Type        string    `db:"template_type" json:"template_type"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
	Entries     []Entry   `db:"-" json:"entries"`
}

// Entry maps to the schedule_template_entry table: one slot of the weekly
// pattern. DayOfWeek runs 0 (Sunday) through 6.
type Entry struct {
	ID         uuid.UUID          `db:"id" json:"id"`
	TemplateID uuid.UUID          `db:"template_id" json:"template_id"`
	DayOfWeek  int                `db:"day_of_week" json:"day_of_week"`
	Block      calendar.TimeBlock `db:"time_block" json:"time_block"`
	ServiceID  uuid.UUID          `db:"service_id" json:"service_id"`
	ProviderID uuid.UUID          `db:"provider_id" json:"provider_id"`
	RoomCount  int                `db:"room_count" json:"room_count"`
}

// entriesFor returns the template entries for one day of the week.
func (t *Template) entriesFor(dayOfWeek int) []Entry {
	var out []Entry
	for _, e := range t.Entries {
		if e.DayOfWeek == dayOfWeek {
			out = append(out, e)
		}
	}
	return out
}
