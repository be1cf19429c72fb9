package provider

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rota/rota/pkg/calendar"
)

// -- Mock repositories --

type mockProviderRepo struct {
	providers map[uuid.UUID]*Provider
}

func newMockProviderRepo() *mockProviderRepo {
	return &mockProviderRepo{providers: make(map[uuid.UUID]*Provider)}
}

func (m *mockProviderRepo) Create(_ context.Context, p *Provider) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.providers[p.ID] = p
	return nil
}

func (m *mockProviderRepo) GetByID(_ context.Context, id uuid.UUID) (*Provider, error) {
	p, ok := m.providers[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockProviderRepo) Update(_ context.Context, p *Provider) error {
	m.providers[p.ID] = p
	return nil
}

func (m *mockProviderRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.providers, id)
	return nil
}

func (m *mockProviderRepo) List(_ context.Context, limit, offset int) ([]*Provider, int, error) {
	var result []*Provider
	for _, p := range m.providers {
		result = append(result, p)
	}
	return result, len(result), nil
}

func (m *mockProviderRepo) ListActive(_ context.Context) ([]*Provider, error) {
	var result []*Provider
	for _, p := range m.providers {
		if p.Active {
			result = append(result, p)
		}
	}
	return result, nil
}

type mockRuleRepo struct {
	rules map[uuid.UUID]*AvailabilityRule
}

func newMockRuleRepo() *mockRuleRepo {
	return &mockRuleRepo{rules: make(map[uuid.UUID]*AvailabilityRule)}
}

func (m *mockRuleRepo) Create(_ context.Context, r *AvailabilityRule) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.rules[r.ID] = r
	return nil
}

func (m *mockRuleRepo) GetByID(_ context.Context, id uuid.UUID) (*AvailabilityRule, error) {
	r, ok := m.rules[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return r, nil
}

func (m *mockRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.rules, id)
	return nil
}

func (m *mockRuleRepo) ListByProvider(_ context.Context, providerID uuid.UUID) ([]AvailabilityRule, error) {
	var result []AvailabilityRule
	for _, r := range m.rules {
		if r.ProviderID == providerID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRuleRepo) ListAll(_ context.Context) ([]AvailabilityRule, error) {
	var result []AvailabilityRule
	for _, r := range m.rules {
		result = append(result, *r)
	}
	return result, nil
}

type mockLeaveRepo struct {
	leaves map[uuid.UUID]*Leave
}

func newMockLeaveRepo() *mockLeaveRepo {
	return &mockLeaveRepo{leaves: make(map[uuid.UUID]*Leave)}
}

func (m *mockLeaveRepo) Create(_ context.Context, l *Leave) error {
	l.ID = uuid.New()
	l.CreatedAt = time.Now()
	m.leaves[l.ID] = l
	return nil
}

func (m *mockLeaveRepo) GetByID(_ context.Context, id uuid.UUID) (*Leave, error) {
	l, ok := m.leaves[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return l, nil
}

func (m *mockLeaveRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.leaves, id)
	return nil
}

func (m *mockLeaveRepo) ListByProvider(_ context.Context, providerID uuid.UUID) ([]Leave, error) {
	var result []Leave
	for _, l := range m.leaves {
		if l.ProviderID == providerID {
			result = append(result, *l)
		}
	}
	return result, nil
}

func (m *mockLeaveRepo) ListCovering(_ context.Context, date calendar.Date) ([]Leave, error) {
	var result []Leave
	for _, l := range m.leaves {
		if l.Covers(date) {
			result = append(result, *l)
		}
	}
	return result, nil
}

func newTestService() *Service {
	return NewService(newMockProviderRepo(), newMockRuleRepo(), newMockLeaveRepo())
}

// -- Tests --

func TestCreateProvider(t *testing.T) {
	svc := newTestService()

	p := &Provider{Name: "Dr. Alvarez", Initials: "RA", Role: RoleAttending,
		Capabilities: []string{"Rooms", "Echo"}, DefaultRoomCount: 3}
	if err := svc.CreateProvider(context.Background(), p); err != nil {
		t.Fatalf("CreateProvider() error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
	if !p.Active {
		t.Error("expected new provider to be active")
	}
}

func TestCreateProvider_Validation(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name string
		p    Provider
	}{
		{"missing name", Provider{Role: RoleAttending}},
		{"missing role", Provider{Name: "Dr. A"}},
		{"bad role", Provider{Name: "Dr. A", Role: "resident"}},
		{"negative rooms", Provider{Name: "Dr. A", Role: RolePA, DefaultRoomCount: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.CreateProvider(context.Background(), &tt.p); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreateRule_Validation(t *testing.T) {
	svc := newTestService()
	pid := uuid.New()

	tests := []struct {
		name string
		r    AvailabilityRule
	}{
		{"missing provider", AvailabilityRule{DayOfWeek: 1, Block: calendar.AM, RuleType: RuleBlock, Enforcement: EnforceHard}},
		{"bad day", AvailabilityRule{ProviderID: pid, DayOfWeek: 7, Block: calendar.AM, RuleType: RuleBlock, Enforcement: EnforceHard}},
		{"bad block", AvailabilityRule{ProviderID: pid, DayOfWeek: 1, Block: "DAY", RuleType: RuleBlock, Enforcement: EnforceHard}},
		{"bad rule type", AvailabilityRule{ProviderID: pid, DayOfWeek: 1, Block: calendar.AM, RuleType: "deny", Enforcement: EnforceHard}},
		{"bad enforcement", AvailabilityRule{ProviderID: pid, DayOfWeek: 1, Block: calendar.AM, RuleType: RuleBlock, Enforcement: "strict"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.CreateRule(context.Background(), &tt.r); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCheckAvailability(t *testing.T) {
	svc := newTestService()
	pid := uuid.New()
	sid := uuid.New()

	// 2026-03-09 is a Monday.
	rule := &AvailabilityRule{ProviderID: pid, ServiceID: &sid, DayOfWeek: 1,
		Block: calendar.AM, RuleType: RuleBlock, Enforcement: EnforceHard, Reason: "clinic"}
	if err := svc.CreateRule(context.Background(), rule); err != nil {
		t.Fatalf("CreateRule() error: %v", err)
	}

	eval, err := svc.CheckAvailability(context.Background(), pid, sid, calendar.MustDate("2026-03-09"), calendar.AM)
	if err != nil {
		t.Fatalf("CheckAvailability() error: %v", err)
	}
	if eval.Allowed {
		t.Error("expected Monday AM to be blocked")
	}

	eval, err = svc.CheckAvailability(context.Background(), pid, sid, calendar.MustDate("2026-03-10"), calendar.AM)
	if err != nil {
		t.Fatalf("CheckAvailability() error: %v", err)
	}
	if !eval.Allowed {
		t.Error("expected Tuesday AM to be allowed")
	}
}

func TestCreateLeave_Validation(t *testing.T) {
	svc := newTestService()
	pid := uuid.New()

	err := svc.CreateLeave(context.Background(), &Leave{
		ProviderID: pid,
		StartDate:  calendar.MustDate("2026-03-15"),
		EndDate:    calendar.MustDate("2026-03-10"),
	})
	if err == nil {
		t.Fatal("expected error for end before start")
	}

	l := &Leave{ProviderID: pid,
		StartDate: calendar.MustDate("2026-03-10"),
		EndDate:   calendar.MustDate("2026-03-15")}
	if err := svc.CreateLeave(context.Background(), l); err != nil {
		t.Fatalf("CreateLeave() error: %v", err)
	}
	if l.LeaveType != "vacation" {
		t.Errorf("expected default leave type vacation, got %q", l.LeaveType)
	}
}

func TestLeaveCovers(t *testing.T) {
	l := Leave{StartDate: calendar.MustDate("2026-03-10"), EndDate: calendar.MustDate("2026-03-12")}

	if !l.Covers(calendar.MustDate("2026-03-10")) {
		t.Error("expected start date inclusive")
	}
	if !l.Covers(calendar.MustDate("2026-03-12")) {
		t.Error("expected end date inclusive")
	}
	if l.Covers(calendar.MustDate("2026-03-13")) {
		t.Error("expected day after end to be uncovered")
	}
	if l.Covers(calendar.MustDate("2026-03-09")) {
		t.Error("expected day before start to be uncovered")
	}
}
