package coverage

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/rota/rota/internal/domain/catalog"
	"github.com/rota/rota/internal/domain/provider"
	"github.com/rota/rota/internal/domain/roster"
	"github.com/rota/rota/pkg/calendar"
)

// Data sources, satisfied by the provider, catalog, and roster
// repositories.
type ProviderSource interface {
	ListActive(ctx context.Context) ([]*provider.Provider, error)
}

type ServiceSource interface {
	ListAll(ctx context.Context) ([]*catalog.Service, error)
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Service, error)
}

type AssignmentSource interface {
	ListByDate(ctx context.Context, date calendar.Date) ([]roster.Assignment, error)
}

type RuleSource interface {
	ListAll(ctx context.Context) ([]provider.AvailabilityRule, error)
}

type LeaveSource interface {
	ListCovering(ctx context.Context, date calendar.Date) ([]provider.Leave, error)
}

// Service loads one day's schedule context and runs the suggestion
// engines over it.
type Service struct {
	providers   ProviderSource
	services    ServiceSource
	assignments AssignmentSource
	rules       RuleSource
	leaves      LeaveSource
}

func NewService(providers ProviderSource, services ServiceSource, assignments AssignmentSource, rules RuleSource, leaves LeaveSource) *Service {
	return &Service{
		providers:   providers,
		services:    services,
		assignments: assignments,
		rules:       rules,
		leaves:      leaves,
	}
}

func (s *Service) load(ctx context.Context, date calendar.Date, block calendar.TimeBlock) (Input, error) {
	in := Input{Date: date, Block: block}
	if !block.Valid() {
		return in, fmt.Errorf("invalid time block: %s", block)
	}

	providers, err := s.providers.ListActive(ctx)
	if err != nil {
		return in, err
	}
	services, err := s.services.ListAll(ctx)
	if err != nil {
		return in, err
	}
	assignments, err := s.assignments.ListByDate(ctx, date)
	if err != nil {
		return in, err
	}
	rules, err := s.rules.ListAll(ctx)
	if err != nil {
		return in, err
	}
	leaves, err := s.leaves.ListCovering(ctx, date)
	if err != nil {
		return in, err
	}

	in.Providers = providers
	in.Assignments = assignments
	in.Rules = rules
	in.Leaves = leaves
	in.Services = make(map[uuid.UUID]*catalog.Service, len(services))
	for _, svc := range services {
		in.Services[svc.ID] = svc
	}
	return in, nil
}

// RoomSuggestions computes the room gap and ranked fill candidates for a
// slot.
func (s *Service) RoomSuggestions(ctx context.Context, date calendar.Date, block calendar.TimeBlock) (*RoomReport, error) {
	in, err := s.load(ctx, date, block)
	if err != nil {
		return nil, err
	}
	rep := SuggestRooms(in)
	return &rep, nil
}

// ServiceSuggestions ranks candidates for covering one service at a slot.
func (s *Service) ServiceSuggestions(ctx context.Context, serviceID uuid.UUID, date calendar.Date, block calendar.TimeBlock) ([]Suggestion, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("loading service: %w", err)
	}
	in, err := s.load(ctx, date, block)
	if err != nil {
		return nil, err
	}
	return SuggestService(in, svc), nil
}

// ServiceGap is one coverage-required service with nobody on it at a
// slot, plus its ranked fill candidates.
type ServiceGap struct {
	ServiceID   uuid.UUID    `json:"service_id"`
	ServiceName string       `json:"service_name"`
	Suggestions []Suggestion `json:"suggestions"`
}

// UncoveredServices lists every coverage-required service with no
// assignment overlapping the slot, each with ranked candidates.
func (s *Service) UncoveredServices(ctx context.Context, date calendar.Date, block calendar.TimeBlock) ([]ServiceGap, error) {
	in, err := s.load(ctx, date, block)
	if err != nil {
		return nil, err
	}

	covered := make(map[uuid.UUID]bool)
	for _, a := range in.Assignments {
		if !a.IsPTO && a.Block.Overlaps(block) {
			covered[a.ServiceID] = true
		}
	}

	var gaps []ServiceGap
	for _, svc := range in.Services {
		if !svc.CoverageRequired || covered[svc.ID] {
			continue
		}
		if !svc.Block.Overlaps(block) {
			continue
		}
		gaps = append(gaps, ServiceGap{
			ServiceID:   svc.ID,
			ServiceName: svc.Name,
			Suggestions: SuggestService(in, svc),
		})
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i].ServiceName < gaps[j].ServiceName })
	return gaps, nil
}

// SlotStatus is one slot's room zone for dashboard display.
type SlotStatus struct {
	Block        calendar.TimeBlock `json:"time_block"`
	CurrentRooms int                `json:"current_rooms"`
	Target       int                `json:"target"`
	Zone         string             `json:"zone"`
}

// DayStatus reports the AM and PM room zones for a date.
func (s *Service) DayStatus(ctx context.Context, date calendar.Date) ([]SlotStatus, error) {
	var out []SlotStatus
	for _, block := range []calendar.TimeBlock{calendar.AM, calendar.PM} {
		in, err := s.load(ctx, date, block)
		if err != nil {
			return nil, err
		}
		rep := SuggestRooms(in)
		out = append(out, SlotStatus{
			Block:        block,
			CurrentRooms: rep.CurrentRooms,
			Target:       rep.Target,
			Zone:         rep.Zone,
		})
	}
	return out, nil
}
