package template

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rota/rota/internal/domain/catalog"
	"github.com/rota/rota/internal/domain/history"
	"github.com/rota/rota/internal/domain/roster"
	"github.com/rota/rota/internal/platform/holiday"
	"github.com/rota/rota/internal/platform/metrics"
	"github.com/rota/rota/pkg/calendar"
)

// AssignmentStore is the slice of the roster persistence the apply engine
// needs. Satisfied by roster.AssignmentRepository.
type AssignmentStore interface {
	Create(ctx context.Context, a *roster.Assignment) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProviderDate(ctx context.Context, providerID uuid.UUID, date calendar.Date) ([]roster.Assignment, error)
	ListByServiceDate(ctx context.Context, serviceID uuid.UUID, date calendar.Date) ([]roster.Assignment, error)
	ListRange(ctx context.Context, start, end calendar.Date) ([]roster.Assignment, error)
}

// ServiceSource is satisfied by catalog.ServiceRepository.
type ServiceSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Service, error)
}

// Service expands templates over date ranges.
type Service struct {
	templates   Repository
	assignments AssignmentStore
	services    ServiceSource
	holidays    *holiday.Calendar
	hist        *history.Manager
}

func NewService(templates Repository, assignments AssignmentStore, services ServiceSource, holidays *holiday.Calendar, hist *history.Manager) *Service {
	return &Service{
		templates:   templates,
		assignments: assignments,
		services:    services,
		holidays:    holidays,
		hist:        hist,
	}
}

// -- Template CRUD --

func (s *Service) Create(ctx context.Context, t *Template) error {
	if err := s.validate(t); err != nil {
		return err
	}
	return s.templates.Create(ctx, t)
}

func (s *Service) validate(t *Template) error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.Type == "" {
		t.Type = TypeWeekly
	}
	if !validTypes[t.Type] {
		return fmt.Errorf("invalid template type: %s", t.Type)
	}
	for i, e := range t.Entries {
		if e.DayOfWeek < 0 || e.DayOfWeek > 6 {
			return fmt.Errorf("entry %d: day_of_week must be 0 through 6", i)
		}
		if !e.Block.Valid() {
			return fmt.Errorf("entry %d: invalid time block %s", i, e.Block)
		}
		if e.ServiceID == uuid.Nil || e.ProviderID == uuid.Nil {
			return fmt.Errorf("entry %d: service_id and provider_id are required", i)
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Template, error) {
	return s.templates.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, t *Template) error {
	if err := s.validate(t); err != nil {
		return err
	}
	return s.templates.Update(ctx, t)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.templates.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Template, int, error) {
	return s.templates.List(ctx, limit, offset)
}

// Capture builds a new template from an existing week of assignments. PTO
// rows are not captured; templates describe work patterns.
func (s *Service) Capture(ctx context.Context, name, description string, weekOf calendar.Date) (*Template, error) {
	start := weekOf.WeekStart()
	assignments, err := s.assignments.ListRange(ctx, start, start.AddDays(6))
	if err != nil {
		return nil, err
	}
	t := &Template{Name: name, Type: TypeWeekly, Description: description}
	for _, a := range assignments {
		if a.IsPTO {
			continue
		}
		t.Entries = append(t.Entries, Entry{
			DayOfWeek:  int(a.Date.Weekday()),
			Block:      a.Block,
			ServiceID:  a.ServiceID,
			ProviderID: a.ProviderID,
			RoomCount:  a.RoomCount,
		})
	}
	if err := s.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// -- Apply --

// Options is the caller-chosen conflict policy. ClearExisting removes
// whatever occupies a generated slot before inserting; SkipConflicts
// asserts that pre-existing assignments are never deleted (which is also
// the default behavior). The two are contradictory and rejected together.
type Options struct {
	ClearExisting bool `json:"clear_existing"`
	SkipConflicts bool `json:"skip_conflicts"`
}

func (o Options) validate() error {
	if o.ClearExisting && o.SkipConflicts {
		return fmt.Errorf("clear_existing and skip_conflicts are mutually exclusive")
	}
	return nil
}

// SlotConflict itemizes one slot the engine declined to fill.
type SlotConflict struct {
	ProviderID  uuid.UUID          `json:"provider_id"`
	ServiceID   uuid.UUID          `json:"service_id"`
	ServiceName string             `json:"service_name,omitempty"`
	Date        calendar.Date      `json:"date"`
	Block       calendar.TimeBlock `json:"time_block"`
	Reason      string             `json:"reason"`
}

// Result accounts for every slot the expansion attempted: each lands in
// created, skipped, ptoConflicts, holidayConflicts, or failures.
type Result struct {
	Created          int            `json:"created"`
	Skipped          int            `json:"skipped"`
	Failed           int            `json:"failed"`
	PTOConflicts     []SlotConflict `json:"pto_conflicts"`
	HolidayConflicts []SlotConflict `json:"holiday_conflicts"`
	Failures         []SlotConflict `json:"failures,omitempty"`
	HistoryID        uuid.UUID      `json:"history_id"`
}

// applyState accumulates one bulk run's result and the snapshots needed
// for its history record.
type applyState struct {
	result  Result
	created []history.Snapshot
	removed []history.Snapshot
	// serviceCache avoids refetching per slot.
	serviceCache map[uuid.UUID]*catalog.Service
}

func newApplyState() *applyState {
	return &applyState{serviceCache: make(map[uuid.UUID]*catalog.Service)}
}

func (s *Service) serviceFor(ctx context.Context, st *applyState, id uuid.UUID) (*catalog.Service, error) {
	if svc, ok := st.serviceCache[id]; ok {
		return svc, nil
	}
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	st.serviceCache[id] = svc
	return svc, nil
}

// Apply expands one template over [start, end].
func (s *Service) Apply(ctx context.Context, templateID uuid.UUID, start, end calendar.Date, opts Options) (*Result, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end date precedes start date")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	tmpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}

	st := newApplyState()
	if err := s.applyDates(ctx, tmpl, calendar.Range(start, end), opts, st); err != nil {
		metrics.TemplateApplications.WithLabelValues("single", "error").Inc()
		s.recordPartial(ctx, st, history.OpTemplateApply, tmpl.Name, start, end)
		return &st.result, err
	}

	desc := fmt.Sprintf("Applied template %q %s to %s", tmpl.Name, start, end)
	if err := s.record(ctx, st, history.OpTemplateApply, desc, start, end); err != nil {
		return &st.result, err
	}
	metrics.TemplateApplications.WithLabelValues("single", "success").Inc()
	return &st.result, nil
}

// ApplyAlternating expands a rotation of templates week by week. The
// pattern indexes into templateIDs; week k uses pattern[k mod len]. Bad
// pattern entries fail before any mutation.
func (s *Service) ApplyAlternating(ctx context.Context, templateIDs []uuid.UUID, pattern []int, start, end calendar.Date, opts Options) (*Result, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end date precedes start date")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(templateIDs) < 2 {
		return nil, fmt.Errorf("alternating application requires at least 2 templates")
	}
	if len(pattern) == 0 {
		return nil, fmt.Errorf("pattern is required")
	}
	for i, idx := range pattern {
		if idx < 0 || idx >= len(templateIDs) {
			return nil, fmt.Errorf("pattern entry %d is out of range: %d (templates: %d)", i, idx, len(templateIDs))
		}
	}

	templates := make([]*Template, len(templateIDs))
	for i, id := range templateIDs {
		t, err := s.templates.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading template %s: %w", id, err)
		}
		templates[i] = t
	}

	st := newApplyState()
	for k, week := range calendar.Weeks(start, end) {
		tmpl := templates[pattern[k%len(pattern)]]
		var dates []calendar.Date
		for _, d := range calendar.Range(week, week.AddDays(6)) {
			if !d.Before(start) && !end.Before(d) {
				dates = append(dates, d)
			}
		}
		if err := s.applyDates(ctx, tmpl, dates, opts, st); err != nil {
			metrics.TemplateApplications.WithLabelValues("alternating", "error").Inc()
			s.recordPartial(ctx, st, history.OpAlternatingApply, tmpl.Name, start, end)
			return &st.result, err
		}
	}

	desc := fmt.Sprintf("Applied %d-template rotation %s to %s", len(templates), start, end)
	if err := s.record(ctx, st, history.OpAlternatingApply, desc, start, end); err != nil {
		return &st.result, err
	}
	metrics.TemplateApplications.WithLabelValues("alternating", "success").Inc()
	return &st.result, nil
}

// applyDates runs the single-template algorithm over the given dates.
// Cancellation is honored between dates, never mid-slot.
func (s *Service) applyDates(ctx context.Context, tmpl *Template, dates []calendar.Date, opts Options, st *applyState) error {
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, entry := range tmpl.entriesFor(int(date.Weekday())) {
			if err := s.applySlot(ctx, entry, date, opts, st); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) applySlot(ctx context.Context, entry Entry, date calendar.Date, opts Options, st *applyState) error {
	svc, err := s.serviceFor(ctx, st, entry.ServiceID)
	if err != nil {
		return err
	}

	// Only inpatient services run on holidays.
	if s.holidays != nil && s.holidays.IsHoliday(date) && !svc.Inpatient {
		st.result.HolidayConflicts = append(st.result.HolidayConflicts, SlotConflict{
			ProviderID:  entry.ProviderID,
			ServiceID:   entry.ServiceID,
			ServiceName: svc.Name,
			Date:        date,
			Block:       entry.Block,
			Reason:      "holiday closure",
		})
		return nil
	}

	providerDay, err := s.assignments.ListByProviderDate(ctx, entry.ProviderID, date)
	if err != nil {
		return err
	}
	for _, pto := range roster.PTOBlocks(providerDay) {
		if entry.Block.Overlaps(pto) {
			st.result.PTOConflicts = append(st.result.PTOConflicts, SlotConflict{
				ProviderID:  entry.ProviderID,
				ServiceID:   entry.ServiceID,
				ServiceName: svc.Name,
				Date:        date,
				Block:       entry.Block,
				Reason:      "provider has PTO",
			})
			return nil
		}
	}

	serviceDay, err := s.assignments.ListByServiceDate(ctx, entry.ServiceID, date)
	if err != nil {
		return err
	}
	var occupied []roster.Assignment
	for _, a := range serviceDay {
		if a.Block == entry.Block {
			occupied = append(occupied, a)
		}
	}
	if len(occupied) > 0 {
		if !opts.ClearExisting {
			st.result.Skipped++
			return nil
		}
		for _, a := range occupied {
			if err := s.assignments.Delete(ctx, a.ID); err != nil {
				st.result.Failed++
				st.result.Failures = append(st.result.Failures, SlotConflict{
					ProviderID: a.ProviderID, ServiceID: a.ServiceID,
					Date: date, Block: a.Block, Reason: err.Error(),
				})
				return nil
			}
			st.removed = append(st.removed, a.Snapshot())
		}
	}

	a := roster.Assignment{
		ProviderID: entry.ProviderID,
		ServiceID:  entry.ServiceID,
		Date:       date,
		Block:      entry.Block,
		RoomCount:  entry.RoomCount,
	}
	if err := s.assignments.Create(ctx, &a); err != nil {
		st.result.Failed++
		st.result.Failures = append(st.result.Failures, SlotConflict{
			ProviderID: entry.ProviderID, ServiceID: entry.ServiceID,
			ServiceName: svc.Name, Date: date, Block: entry.Block, Reason: err.Error(),
		})
		return nil
	}
	st.result.Created++
	st.created = append(st.created, a.Snapshot())
	metrics.AssignmentsCreated.WithLabelValues("template").Inc()
	return nil
}

// recordPartial writes a history record for an interrupted apply so the
// rows it did create remain undoable. Best effort; the original error is
// what the caller reports.
func (s *Service) recordPartial(ctx context.Context, st *applyState, op, name string, start, end calendar.Date) {
	if len(st.created) == 0 && len(st.removed) == 0 {
		return
	}
	desc := fmt.Sprintf("Partially applied template %q %s to %s", name, start, end)
	_ = s.record(context.WithoutCancel(ctx), st, op, desc, start, end)
}

func (s *Service) record(ctx context.Context, st *applyState, op, desc string, start, end calendar.Date) error {
	after, err := s.assignments.ListRange(ctx, start, end)
	if err != nil {
		return err
	}
	afterSnaps := make([]history.Snapshot, 0, len(after))
	for i := range after {
		afterSnaps = append(afterSnaps, after[i].Snapshot())
	}
	rec := &history.Record{
		OperationType: op,
		Description:   desc,
		StartDate:     start,
		EndDate:       end,
		Metadata: history.Metadata{
			Created: st.created,
			Removed: st.removed,
			After:   afterSnaps,
		},
	}
	if err := s.hist.Record(ctx, rec); err != nil {
		return fmt.Errorf("recording history: %w", err)
	}
	st.result.HistoryID = rec.ID
	return nil
}
