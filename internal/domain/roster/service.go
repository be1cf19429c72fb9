package roster

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rota/rota/internal/domain/catalog"
	"github.com/rota/rota/internal/domain/history"
	"github.com/rota/rota/internal/domain/provider"
	"github.com/rota/rota/internal/platform/metrics"
	"github.com/rota/rota/internal/platform/override"
	"github.com/rota/rota/pkg/calendar"
)

// RuleSource is the slice of the availability rule store the placement
// guard needs. Satisfied by provider.RuleRepository.
type RuleSource interface {
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]provider.AvailabilityRule, error)
}

// LeaveSource is satisfied by provider.LeaveRepository.
type LeaveSource interface {
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]provider.Leave, error)
}

// ServiceSource is satisfied by catalog.ServiceRepository.
type ServiceSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Service, error)
}

// Roster validates and persists schedule assignments.
type Roster struct {
	assignments AssignmentRepository
	days        DayMetadataRepository
	rules       RuleSource
	leaves      LeaveSource
	services    ServiceSource
	overrides   override.Store
	hist        *history.Manager
}

func NewRoster(
	assignments AssignmentRepository,
	days DayMetadataRepository,
	rules RuleSource,
	leaves LeaveSource,
	services ServiceSource,
	overrides override.Store,
	hist *history.Manager,
) *Roster {
	return &Roster{
		assignments: assignments,
		days:        days,
		rules:       rules,
		leaves:      leaves,
		services:    services,
		overrides:   overrides,
		hist:        hist,
	}
}

// PlaceOptions carry the caller's explicit escalations past soft guards.
type PlaceOptions struct {
	// Confirm acknowledges a soft availability warning.
	Confirm bool
	// Override places work over existing PTO or leave. The grant is
	// remembered in the override store for the session TTL.
	Override bool
	// Actor is recorded with the override grant.
	Actor string
}

// PlaceResult is the outcome of a successful placement. Overridden lists
// the PTO assignments the caller chose to place over; Warning carries a
// confirmed soft-warning reason.
type PlaceResult struct {
	Assignment *Assignment  `json:"assignment"`
	Overridden []Assignment `json:"overridden,omitempty"`
	Warning    string       `json:"warning,omitempty"`
}

// Place validates and creates one assignment. Validation order: field
// checks, duplicate check, PTO/leave reconciliation, availability rules.
// All checks run before the write; the database uniqueness constraint is
// the backstop for concurrent placements into the same slot.
func (r *Roster) Place(ctx context.Context, a *Assignment, opts PlaceOptions) (*PlaceResult, error) {
	if a.ProviderID == uuid.Nil {
		return nil, fmt.Errorf("provider_id is required")
	}
	if a.ServiceID == uuid.Nil {
		return nil, fmt.Errorf("service_id is required")
	}
	if a.Date.IsZero() {
		return nil, fmt.Errorf("date is required")
	}
	if !a.Block.Valid() {
		return nil, fmt.Errorf("invalid time block: %s", a.Block)
	}
	if a.RoomCount < 0 {
		return nil, fmt.Errorf("room count cannot be negative")
	}

	svc, err := r.services.GetByID(ctx, a.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("loading service: %w", err)
	}
	if svc.Name == catalog.NamePTO {
		a.IsPTO = true
	}

	existing, err := r.assignments.ListByProviderDate(ctx, a.ProviderID, a.Date)
	if err != nil {
		return nil, err
	}

	// One non-PTO and one PTO assignment per overlapping block.
	for _, e := range existing {
		if e.IsPTO == a.IsPTO && e.Block.Overlaps(a.Block) {
			dup := e
			return nil, &DuplicateError{Existing: dup}
		}
	}

	res := &PlaceResult{}
	if a.IsPTO {
		// PTO over existing work is rejected outright.
		if conflicts := FindConflicts(existing, []calendar.TimeBlock{a.Block}); len(conflicts) > 0 {
			return nil, &PTOConflictError{
				Conflicts:   conflicts,
				Overridable: false,
				Reason:      "provider has scheduled work in this block; remove it before adding PTO",
			}
		}
	} else {
		overridden, err := r.checkUnavailability(ctx, a, existing, opts)
		if err != nil {
			return nil, err
		}
		res.Overridden = overridden
	}

	rules, err := r.rules.ListByProvider(ctx, a.ProviderID)
	if err != nil {
		return nil, err
	}
	eval := provider.Evaluate(rules, a.ProviderID, a.ServiceID, int(a.Date.Weekday()), a.Block)
	if !eval.Allowed {
		return nil, &BlockedError{Reason: eval.Reason}
	}
	if eval.Enforcement == provider.EnforceWarn {
		if !opts.Confirm {
			return nil, &NeedsConfirmationError{Reason: eval.Reason}
		}
		res.Warning = eval.Reason
	}

	if err := r.assignments.Create(ctx, a); err != nil {
		return nil, err
	}
	metrics.AssignmentsCreated.WithLabelValues("direct").Inc()
	res.Assignment = a
	return res, nil
}

// checkUnavailability guards work placements against existing PTO and
// leave. Returns the PTO assignments overridden, if any.
func (r *Roster) checkUnavailability(ctx context.Context, a *Assignment, existing []Assignment, opts PlaceOptions) ([]Assignment, error) {
	ptoBlocks := PTOBlocks(existing)
	ptoOverlap := overlapsAny(a.Block, ptoBlocks)

	var onLeave bool
	if !ptoOverlap {
		leaves, err := r.leaves.ListByProvider(ctx, a.ProviderID)
		if err != nil {
			return nil, err
		}
		onLeave = OnLeave(leaves, a.Date)
	}
	if !ptoOverlap && !onLeave {
		return nil, nil
	}

	granted, err := r.overrides.Allowed(ctx, a.ProviderID, a.Date, a.Block)
	if err != nil {
		return nil, err
	}
	if !granted && !opts.Override {
		reason := "provider has PTO in this block"
		if onLeave {
			reason = "provider is on leave this date"
		}
		var conflicts []Assignment
		for _, e := range existing {
			if e.IsPTO && e.Block.Overlaps(a.Block) {
				conflicts = append(conflicts, e)
			}
		}
		return nil, &PTOConflictError{Conflicts: conflicts, Overridable: true, Reason: reason}
	}
	if !granted {
		if err := r.overrides.Grant(ctx, a.ProviderID, a.Date, a.Block, opts.Actor); err != nil {
			return nil, err
		}
	}

	var overridden []Assignment
	for _, e := range existing {
		if e.IsPTO && e.Block.Overlaps(a.Block) {
			overridden = append(overridden, e)
		}
	}
	return overridden, nil
}

func (r *Roster) Get(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	return r.assignments.GetByID(ctx, id)
}

func (r *Roster) ListByDate(ctx context.Context, date calendar.Date) ([]Assignment, error) {
	return r.assignments.ListByDate(ctx, date)
}

func (r *Roster) ListRange(ctx context.Context, start, end calendar.Date) ([]Assignment, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end date precedes start date")
	}
	return r.assignments.ListRange(ctx, start, end)
}

// Patch updates the mutable fields of an assignment. Provider, service,
// date, and PTO identity never change in place; those are delete and
// re-create operations.
type Patch struct {
	Block      *calendar.TimeBlock `json:"time_block,omitempty"`
	RoomCount  *int                `json:"room_count,omitempty"`
	IsCovering *bool               `json:"is_covering,omitempty"`
	Notes      *string             `json:"notes,omitempty"`
}

func (r *Roster) Update(ctx context.Context, id uuid.UUID, patch Patch) (*Assignment, error) {
	a, err := r.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Block != nil {
		if !patch.Block.Valid() {
			return nil, fmt.Errorf("invalid time block: %s", *patch.Block)
		}
		a.Block = *patch.Block
	}
	if patch.RoomCount != nil {
		if *patch.RoomCount < 0 {
			return nil, fmt.Errorf("room count cannot be negative")
		}
		a.RoomCount = *patch.RoomCount
	}
	if patch.IsCovering != nil {
		a.IsCovering = *patch.IsCovering
	}
	if patch.Notes != nil {
		a.Notes = *patch.Notes
	}
	if err := r.assignments.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *Roster) Remove(ctx context.Context, id uuid.UUID) error {
	return r.assignments.Delete(ctx, id)
}

// BulkResult reports a bulk mutation slot by slot. Every requested entry
// lands in exactly one bucket.
type BulkResult struct {
	Created      int               `json:"created"`
	Removed      int               `json:"removed,omitempty"`
	Rejected     int               `json:"rejected"`
	Failures     []BulkFailure     `json:"failures,omitempty"`
	HistoryID    uuid.UUID         `json:"history_id"`
	PTOConflicts []history.Snapshot `json:"pto_conflicts,omitempty"`
}

// BulkFailure itemizes one rejected entry.
type BulkFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BulkAdd places each entry through the full placement guard, collecting
// per-entry failures instead of stopping. One history record covers the
// whole batch.
func (r *Roster) BulkAdd(ctx context.Context, entries []Assignment, description string, opts PlaceOptions) (*BulkResult, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries to add")
	}
	if description == "" {
		description = fmt.Sprintf("Bulk add of %d assignments", len(entries))
	}

	res := &BulkResult{}
	var created []history.Snapshot
	start, end := entries[0].Date, entries[0].Date
	for i := range entries {
		a := entries[i]
		if a.Date.Before(start) {
			start = a.Date
		}
		if end.Before(a.Date) {
			end = a.Date
		}
		placed, err := r.Place(ctx, &a, opts)
		if err != nil {
			res.Rejected++
			res.Failures = append(res.Failures, BulkFailure{Index: i, Reason: err.Error()})
			if ptoErr, ok := err.(*PTOConflictError); ok {
				for _, c := range ptoErr.Conflicts {
					res.PTOConflicts = append(res.PTOConflicts, c.Snapshot())
				}
			}
			continue
		}
		res.Created++
		created = append(created, placed.Assignment.Snapshot())
	}

	if res.Created > 0 {
		rec, err := r.recordBulk(ctx, history.OpBulkAdd, description, start, end, created, nil)
		if err != nil {
			return res, err
		}
		res.HistoryID = rec.ID
	}
	return res, nil
}

// BulkRemove deletes the assignments in a date range, optionally filtered
// by provider or service. The removed rows are captured so the operation
// can be undone.
func (r *Roster) BulkRemove(ctx context.Context, start, end calendar.Date, providerID, serviceID *uuid.UUID, description string) (*BulkResult, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end date precedes start date")
	}
	all, err := r.assignments.ListRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	res := &BulkResult{}
	var removed []history.Snapshot
	for i, a := range all {
		if providerID != nil && a.ProviderID != *providerID {
			continue
		}
		if serviceID != nil && a.ServiceID != *serviceID {
			continue
		}
		if err := r.assignments.Delete(ctx, a.ID); err != nil {
			res.Rejected++
			res.Failures = append(res.Failures, BulkFailure{Index: i, Reason: err.Error()})
			continue
		}
		res.Removed++
		removed = append(removed, a.Snapshot())
	}

	if res.Removed > 0 {
		if description == "" {
			description = fmt.Sprintf("Bulk removal of %d assignments %s to %s", res.Removed, start, end)
		}
		rec, err := r.recordBulk(ctx, history.OpBulkRemove, description, start, end, nil, removed)
		if err != nil {
			return res, err
		}
		res.HistoryID = rec.ID
	}
	return res, nil
}

func (r *Roster) recordBulk(ctx context.Context, op, description string, start, end calendar.Date, created, removed []history.Snapshot) (*history.Record, error) {
	after, err := r.assignments.ListRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	afterSnaps := make([]history.Snapshot, 0, len(after))
	for i := range after {
		afterSnaps = append(afterSnaps, after[i].Snapshot())
	}
	rec := &history.Record{
		OperationType: op,
		Description:   description,
		StartDate:     start,
		EndDate:       end,
		Metadata: history.Metadata{
			Created: created,
			Removed: removed,
			After:   afterSnaps,
		},
	}
	if err := r.hist.Record(ctx, rec); err != nil {
		return nil, fmt.Errorf("recording history: %w", err)
	}
	return rec, nil
}

// -- Day metadata --

func (r *Roster) SetDayMetadata(ctx context.Context, m *DayMetadata) error {
	if m.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if !validDayBlocks[m.Block] {
		return fmt.Errorf("invalid day metadata block: %s", m.Block)
	}
	return r.days.Upsert(ctx, m)
}

func (r *Roster) DayMetadataFor(ctx context.Context, date calendar.Date) ([]DayMetadata, error) {
	return r.days.ListByDate(ctx, date)
}

func (r *Roster) ClearDayMetadata(ctx context.Context, date calendar.Date, block string) error {
	if !validDayBlocks[block] {
		return fmt.Errorf("invalid day metadata block: %s", block)
	}
	return r.days.Delete(ctx, date, block)
}
