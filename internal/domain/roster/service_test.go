package roster

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rota/rota/internal/domain/catalog"
	"github.com/rota/rota/internal/domain/history"
	"github.com/rota/rota/internal/domain/provider"
	"github.com/rota/rota/internal/platform/override"
	"github.com/rota/rota/pkg/calendar"
)

type mockAssignmentRepo struct {
	rows map[uuid.UUID]*Assignment
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{rows: make(map[uuid.UUID]*Assignment)}
}

func (m *mockAssignmentRepo) Create(_ context.Context, a *Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Assignment, error) {
	a, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("assignment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockAssignmentRepo) Update(_ context.Context, a *Assignment) error {
	if _, ok := m.rows[a.ID]; !ok {
		return fmt.Errorf("assignment not found")
	}
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *mockAssignmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return fmt.Errorf("assignment not found")
	}
	delete(m.rows, id)
	return nil
}

func (m *mockAssignmentRepo) ListByDate(_ context.Context, date calendar.Date) ([]Assignment, error) {
	var out []Assignment
	for _, a := range m.rows {
		if a.Date == date {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) ListByProviderDate(_ context.Context, providerID uuid.UUID, date calendar.Date) ([]Assignment, error) {
	var out []Assignment
	for _, a := range m.rows {
		if a.ProviderID == providerID && a.Date == date {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) ListByServiceDate(_ context.Context, serviceID uuid.UUID, date calendar.Date) ([]Assignment, error) {
	var out []Assignment
	for _, a := range m.rows {
		if a.ServiceID == serviceID && a.Date == date {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) ListRange(_ context.Context, start, end calendar.Date) ([]Assignment, error) {
	var out []Assignment
	for _, a := range m.rows {
		if !a.Date.Before(start) && !end.Before(a.Date) {
			out = append(out, *a)
		}
	}
	return out, nil
}

type mockDayRepo struct {
	rows map[string]*DayMetadata
}

func newMockDayRepo() *mockDayRepo {
	return &mockDayRepo{rows: make(map[string]*DayMetadata)}
}

func (m *mockDayRepo) Upsert(_ context.Context, d *DayMetadata) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	cp := *d
	m.rows[d.Date.String()+d.Block] = &cp
	return nil
}

func (m *mockDayRepo) ListByDate(_ context.Context, date calendar.Date) ([]DayMetadata, error) {
	var out []DayMetadata
	for _, d := range m.rows {
		if d.Date == date {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDayRepo) Delete(_ context.Context, date calendar.Date, block string) error {
	delete(m.rows, date.String()+block)
	return nil
}

type mockRuleSource struct {
	rules []provider.AvailabilityRule
}

func (m *mockRuleSource) ListByProvider(_ context.Context, providerID uuid.UUID) ([]provider.AvailabilityRule, error) {
	var out []provider.AvailabilityRule
	for _, r := range m.rules {
		if r.ProviderID == providerID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockLeaveSource struct {
	leaves []provider.Leave
}

func (m *mockLeaveSource) ListByProvider(_ context.Context, providerID uuid.UUID) ([]provider.Leave, error) {
	var out []provider.Leave
	for _, l := range m.leaves {
		if l.ProviderID == providerID {
			out = append(out, l)
		}
	}
	return out, nil
}

type mockServiceSource struct {
	services map[uuid.UUID]*catalog.Service
}

func (m *mockServiceSource) GetByID(_ context.Context, id uuid.UUID) (*catalog.Service, error) {
	s, ok := m.services[id]
	if !ok {
		return nil, fmt.Errorf("service not found")
	}
	return s, nil
}

type mockHistoryRepo struct {
	records map[uuid.UUID]*history.Record
}

func (m *mockHistoryRepo) Create(_ context.Context, r *history.Record) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.records[r.ID] = r
	return nil
}

func (m *mockHistoryRepo) GetByID(_ context.Context, id uuid.UUID) (*history.Record, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("record not found")
	}
	return r, nil
}

func (m *mockHistoryRepo) UpdateStatus(_ context.Context, r *history.Record) error {
	m.records[r.ID] = r
	return nil
}

func (m *mockHistoryRepo) ListRecent(_ context.Context, _ time.Time, _ int) ([]*history.Record, error) {
	var out []*history.Record
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

type fixture struct {
	roster   *Roster
	repo     *mockAssignmentRepo
	rules    *mockRuleSource
	leaves   *mockLeaveSource
	services *mockServiceSource
	history  *mockHistoryRepo

	clinicID uuid.UUID
	ptoID    uuid.UUID
}

func newFixture() *fixture {
	repo := newMockAssignmentRepo()
	rules := &mockRuleSource{}
	leaves := &mockLeaveSource{}
	clinicID := uuid.New()
	ptoID := uuid.New()
	services := &mockServiceSource{services: map[uuid.UUID]*catalog.Service{
		clinicID: {ID: clinicID, Name: "Consults", Block: calendar.Both},
		ptoID:    {ID: ptoID, Name: catalog.NamePTO, Block: calendar.Both},
	}}
	histRepo := &mockHistoryRepo{records: make(map[uuid.UUID]*history.Record)}
	mgr := history.NewManager(histRepo, NewHistoryStore(repo))
	r := NewRoster(repo, newMockDayRepo(), rules, leaves, services,
		override.NewMemoryStore(0), mgr)
	return &fixture{
		roster:   r,
		repo:     repo,
		rules:    rules,
		leaves:   leaves,
		services: services,
		history:  histRepo,
		clinicID: clinicID,
		ptoID:    ptoID,
	}
}

func (f *fixture) assignment(providerID uuid.UUID, date string, block calendar.TimeBlock) Assignment {
	return Assignment{
		ProviderID: providerID,
		ServiceID:  f.clinicID,
		Date:       calendar.MustDate(date),
		Block:      block,
	}
}

func TestRoster_PlaceCreatesAssignment(t *testing.T) {
	f := newFixture()
	a := f.assignment(uuid.New(), "2026-03-09", calendar.AM)

	res, err := f.roster.Place(context.Background(), &a, PlaceOptions{})
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if res.Assignment.ID == uuid.Nil {
		t.Error("expected assignment id set")
	}
	if len(f.repo.rows) != 1 {
		t.Errorf("expected 1 stored row, got %d", len(f.repo.rows))
	}
}

func TestRoster_PlaceValidation(t *testing.T) {
	f := newFixture()
	pid := uuid.New()
	cases := []struct {
		name string
		a    Assignment
	}{
		{"missing provider", Assignment{ServiceID: f.clinicID, Date: calendar.MustDate("2026-03-09"), Block: calendar.AM}},
		{"missing service", Assignment{ProviderID: pid, Date: calendar.MustDate("2026-03-09"), Block: calendar.AM}},
		{"missing date", Assignment{ProviderID: pid, ServiceID: f.clinicID, Block: calendar.AM}},
		{"bad block", f.assignmentWithBlock(pid, "afternoon")},
		{"negative rooms", func() Assignment {
			a := f.assignment(pid, "2026-03-09", calendar.AM)
			a.RoomCount = -1
			return a
		}()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := tc.a
			if _, err := f.roster.Place(context.Background(), &a, PlaceOptions{}); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func (f *fixture) assignmentWithBlock(pid uuid.UUID, block string) Assignment {
	a := f.assignment(pid, "2026-03-09", calendar.AM)
	a.Block = calendar.TimeBlock(block)
	return a
}

func TestRoster_PlaceHardBlockRejected(t *testing.T) {
	f := newFixture()
	pid := uuid.New()
	// 2026-03-09 is a Monday.
	f.rules.rules = []provider.AvailabilityRule{{
		ProviderID:  pid,
		DayOfWeek:   1,
		Block:       calendar.AM,
		RuleType:    provider.RuleBlock,
		Enforcement: provider.EnforceHard,
		Reason:      "clinic elsewhere on Mondays",
	}}
	a := f.assignment(pid, "2026-03-09", calendar.AM)

	_, err := f.roster.Place(context.Background(), &a, PlaceOptions{})
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected BlockedError, got %v", err)
	}
	if blocked.Reason != "clinic elsewhere on Mondays" {
		t.Errorf("unexpected reason: %s", blocked.Reason)
	}
	if len(f.repo.rows) != 0 {
		t.Error("blocked placement must not persist")
	}
}

func TestRoster_PlaceWarnRequiresConfirmation(t *testing.T) {
	f := newFixture()
	pid := uuid.New()
	f.rules.rules = []provider.AvailabilityRule{{
		ProviderID:  pid,
		DayOfWeek:   1,
		Block:       calendar.AM,
		RuleType:    provider.RuleBlock,
		Enforcement: provider.EnforceWarn,
		Reason:      "prefers not to work Monday mornings",
	}}
	a := f.assignment(pid, "2026-03-09", calendar.AM)

	_, err := f.roster.Place(context.Background(), &a, PlaceOptions{})
	var confirm *NeedsConfirmationError
	if !errors.As(err, &confirm) {
		t.Fatalf("expected NeedsConfirmationError, got %v", err)
	}

	res, err := f.roster.Place(context.Background(), &a, PlaceOptions{Confirm: true})
	if err != nil {
		t.Fatalf("confirmed placement failed: %v", err)
	}
	if res.Warning == "" {
		t.Error("expected warning reason carried in result")
	}
}

func TestRoster_PlacePTOOverWorkRejected(t *testing.T) {
	f := newFixture()
	pid := uuid.New()
	work := f.assignment(pid, "2026-03-10", calendar.AM)
	if _, err := f.roster.Place(context.Background(), &work, PlaceOptions{}); err != nil {
		t.Fatalf("seeding work failed: %v", err)
	}

	pto := f.assignment(pid, "2026-03-10", calendar.Both)
	pto.ServiceID = f.ptoID

	_, err := f.roster.Place(context.Background(), &pto, PlaceOptions{})
	var ptoErr *PTOConflictError
	if !errors.As(err, &ptoErr) {
		t.Fatalf("expected PTOConflictError, got %v", err)
	}
	if ptoErr.Overridable {
		t.Error("PTO over work must not be overridable")
	}
	if len(ptoErr.Conflicts) != 1 {
		t.Errorf("expected the work assignment surfaced, got %d", len(ptoErr.Conflicts))
	}

	// Override must not help either.
	if _, err := f.roster.Place(context.Background(), &pto, PlaceOptions{Override: true}); err == nil {
		t.Error("override must not allow PTO over work")
	}
}

func TestRoster_PlaceWorkOverPTO(t *testing.T) {
	f := newFixture()
	pid := uuid.New()
	pto := f.assignment(pid, "2026-03-10", calendar.Both)
	pto.ServiceID = f.ptoID
	if _, err := f.roster.Place(context.Background(), &pto, PlaceOptions{}); err != nil {
		t.Fatalf("seeding PTO failed: %v", err)
	}

	work := f.assignment(pid, "2026-03-10", calendar.AM)
	_, err := f.roster.Place(context.Background(), &work, PlaceOptions{})
	var ptoErr *PTOConflictError
	if !errors.As(err, &ptoErr) {
		t.Fatalf("expected PTOConflictError, got %v", err)
	}
	if !ptoErr.Overridable {
		t.Error("work over PTO must be overridable")
	}
	if len(f.repo.rows) != 1 {
		t.Error("rejected placement must not persist")
	}

	res, err := f.roster.Place(context.Background(), &work, PlaceOptions{Override: true, Actor: "scheduler"})
	if err != nil {
		t.Fatalf("overridden placement failed: %v", err)
	}
	if len(res.Overridden) != 1 {
		t.Errorf("expected the PTO row surfaced as overridden, got %d", len(res.Overridden))
	}

	// The created assignment now shows up as a PTO conflict for the day.
	all, _ := f.repo.ListByProviderDate(context.Background(), pid, calendar.MustDate("2026-03-10"))
	conflicts := FindConflicts(all, PTOBlocks(all))
	if len(conflicts) != 1 || conflicts[0].ID != res.Assignment.ID {
		t.Errorf("expected the overridden work in findConflicts, got %+v", conflicts)
	}
}

func TestRoster_OverrideGrantPersistsForSession(t *testing.T) {
	f := newFixture()
	pid := uuid.New()
	pto := f.assignment(pid, "2026-03-10", calendar.AM)
	pto.ServiceID = f.ptoID
	if _, err := f.roster.Place(context.Background(), &pto, PlaceOptions{}); err != nil {
		t.Fatalf("seeding PTO failed: %v", err)
	}

	work := f.assignment(pid, "2026-03-10", calendar.AM)
	if _, err := f.roster.Place(context.Background(), &work, PlaceOptions{Override: true}); err != nil {
		t.Fatalf("overridden placement failed: %v", err)
	}
	if err := f.roster.Remove(context.Background(), work.ID); err != nil {
		t.Fatalf("removing work failed: %v", err)
	}

	// The grant survives, so the retry needs no override flag.
	again := f.assignment(pid, "2026-03-10", calendar.AM)
	if _, err := f.roster.Place(context.Background(), &again, PlaceOptions{}); err != nil {
		t.Errorf("expected granted override to carry over, got %v", err)
	}
}

func TestRoster_PlaceOnLeaveRejected(t *testing.T) {
	f := newFixture()
	pid := uuid.New()
	f.leaves.leaves = []provider.Leave{{
		ProviderID: pid,
		StartDate:  calendar.MustDate("2026-03-09"),
		EndDate:    calendar.MustDate("2026-03-13"),
		LeaveType:  "vacation",
	}}

	a := f.assignment(pid, "2026-03-11", calendar.AM)
	_, err := f.roster.Place(context.Background(), &a, PlaceOptions{})
	var ptoErr *PTOConflictError
	if !errors.As(err, &ptoErr) {
		t.Fatalf("expected PTOConflictError for leave, got %v", err)
	}
	if !ptoErr.Overridable {
		t.Error("leave conflicts must be overridable")
	}

	if _, err := f.roster.Place(context.Background(), &a, PlaceOptions{Override: true}); err != nil {
		t.Errorf("overridden leave placement failed: %v", err)
	}
}

func TestRoster_PlaceDuplicateRejected(t *testing.T) {
	f := newFixture()
	pid := uuid.New()
	first := f.assignment(pid, "2026-03-09", calendar.AM)
	if _, err := f.roster.Place(context.Background(), &first, PlaceOptions{}); err != nil {
		t.Fatalf("first placement failed: %v", err)
	}

	second := f.assignment(pid, "2026-03-09", calendar.Both)
	_, err := f.roster.Place(context.Background(), &second, PlaceOptions{})
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}

	// A PM placement does not overlap the AM one.
	pm := f.assignment(pid, "2026-03-09", calendar.PM)
	if _, err := f.roster.Place(context.Background(), &pm, PlaceOptions{}); err != nil {
		t.Errorf("non-overlapping placement failed: %v", err)
	}
}

func TestRoster_UpdatePatchesMutableFieldsOnly(t *testing.T) {
	f := newFixture()
	pid := uuid.New()
	a := f.assignment(pid, "2026-03-09", calendar.AM)
	a.RoomCount = 5
	if _, err := f.roster.Place(context.Background(), &a, PlaceOptions{}); err != nil {
		t.Fatalf("Place failed: %v", err)
	}

	rooms := 8
	notes := "late start"
	covering := true
	got, err := f.roster.Update(context.Background(), a.ID, Patch{
		RoomCount:  &rooms,
		Notes:      &notes,
		IsCovering: &covering,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.RoomCount != 8 || got.Notes != "late start" || !got.IsCovering {
		t.Errorf("patch not applied: %+v", got)
	}
	if got.ProviderID != pid || got.Date != a.Date {
		t.Error("identity fields must not change")
	}

	bad := calendar.TimeBlock("noon")
	if _, err := f.roster.Update(context.Background(), a.ID, Patch{Block: &bad}); err == nil {
		t.Error("expected invalid block rejected")
	}
}

func TestRoster_BulkAddAccountsForEveryEntry(t *testing.T) {
	f := newFixture()
	pid := uuid.New()
	blockedPid := uuid.New()
	f.rules.rules = []provider.AvailabilityRule{{
		ProviderID:  blockedPid,
		DayOfWeek:   1,
		Block:       calendar.Both,
		RuleType:    provider.RuleBlock,
		Enforcement: provider.EnforceHard,
		Reason:      "not available Mondays",
	}}

	entries := []Assignment{
		f.assignment(pid, "2026-03-09", calendar.AM),
		f.assignment(pid, "2026-03-10", calendar.AM),
		f.assignment(blockedPid, "2026-03-09", calendar.AM),
	}
	res, err := f.roster.BulkAdd(context.Background(), entries, "week seed", PlaceOptions{})
	if err != nil {
		t.Fatalf("BulkAdd failed: %v", err)
	}
	if res.Created != 2 || res.Rejected != 1 {
		t.Errorf("expected 2 created and 1 rejected, got %d/%d", res.Created, res.Rejected)
	}
	if res.Created+res.Rejected != len(entries) {
		t.Error("every entry must land in exactly one bucket")
	}
	if len(res.Failures) != 1 || res.Failures[0].Index != 2 {
		t.Errorf("expected failure itemized at index 2, got %+v", res.Failures)
	}

	rec, err := f.history.GetByID(context.Background(), res.HistoryID)
	if err != nil {
		t.Fatalf("expected history record: %v", err)
	}
	if rec.OperationType != history.OpBulkAdd || len(rec.Metadata.Created) != 2 {
		t.Errorf("history record incomplete: %+v", rec)
	}
}

func TestRoster_BulkRemoveFiltersAndRecords(t *testing.T) {
	f := newFixture()
	keep := uuid.New()
	target := uuid.New()
	for _, a := range []Assignment{
		f.assignment(target, "2026-03-09", calendar.AM),
		f.assignment(target, "2026-03-10", calendar.PM),
		f.assignment(keep, "2026-03-09", calendar.AM),
	} {
		row := a
		if _, err := f.roster.Place(context.Background(), &row, PlaceOptions{}); err != nil {
			t.Fatalf("seeding failed: %v", err)
		}
	}

	res, err := f.roster.BulkRemove(context.Background(),
		calendar.MustDate("2026-03-09"), calendar.MustDate("2026-03-13"), &target, nil, "")
	if err != nil {
		t.Fatalf("BulkRemove failed: %v", err)
	}
	if res.Removed != 2 {
		t.Errorf("expected 2 removed, got %d", res.Removed)
	}
	if len(f.repo.rows) != 1 {
		t.Errorf("expected the other provider's row kept, %d remain", len(f.repo.rows))
	}

	rec, err := f.history.GetByID(context.Background(), res.HistoryID)
	if err != nil {
		t.Fatalf("expected history record: %v", err)
	}
	if rec.OperationType != history.OpBulkRemove || len(rec.Metadata.Removed) != 2 {
		t.Errorf("history record incomplete: %+v", rec)
	}
}

func TestRoster_BulkRemoveUndoRestores(t *testing.T) {
	f := newFixture()
	pid := uuid.New()
	a := f.assignment(pid, "2026-03-09", calendar.AM)
	if _, err := f.roster.Place(context.Background(), &a, PlaceOptions{}); err != nil {
		t.Fatalf("Place failed: %v", err)
	}

	res, err := f.roster.BulkRemove(context.Background(),
		calendar.MustDate("2026-03-09"), calendar.MustDate("2026-03-09"), nil, nil, "")
	if err != nil {
		t.Fatalf("BulkRemove failed: %v", err)
	}
	if len(f.repo.rows) != 0 {
		t.Fatal("expected row removed")
	}

	mgr := history.NewManager(f.history, NewHistoryStore(f.repo))
	undo, err := mgr.Undo(context.Background(), res.HistoryID, false)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if !undo.Success {
		t.Fatalf("expected undo success, got %+v", undo)
	}
	if len(f.repo.rows) != 1 {
		t.Fatalf("expected row restored, got %d", len(f.repo.rows))
	}
	for _, row := range f.repo.rows {
		if row.ProviderID != pid || row.Block != calendar.AM {
			t.Errorf("restored row differs: %+v", row)
		}
	}
}

func TestRoster_DayMetadata(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	date := calendar.MustDate("2026-03-09")

	m := &DayMetadata{Date: date, Block: DayBlockAM, CHPRoomInUse: true}
	if err := f.roster.SetDayMetadata(ctx, m); err != nil {
		t.Fatalf("SetDayMetadata failed: %v", err)
	}
	if err := f.roster.SetDayMetadata(ctx, &DayMetadata{Date: date, Block: "EVENING"}); err == nil {
		t.Error("expected invalid block rejected")
	}

	items, err := f.roster.DayMetadataFor(ctx, date)
	if err != nil {
		t.Fatalf("DayMetadataFor failed: %v", err)
	}
	if len(items) != 1 || !items[0].CHPRoomInUse {
		t.Errorf("unexpected metadata: %+v", items)
	}

	if err := f.roster.ClearDayMetadata(ctx, date, DayBlockAM); err != nil {
		t.Fatalf("ClearDayMetadata failed: %v", err)
	}
	items, _ = f.roster.DayMetadataFor(ctx, date)
	if len(items) != 0 {
		t.Error("expected metadata cleared")
	}
}
