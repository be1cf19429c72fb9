package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rota/rota/pkg/calendar"
)

type Service struct {
	providers ProviderRepository
	rules     RuleRepository
	leaves    LeaveRepository
}

func NewService(providers ProviderRepository, rules RuleRepository, leaves LeaveRepository) *Service {
	return &Service{providers: providers, rules: rules, leaves: leaves}
}

// -- Provider --

func (s *Service) CreateProvider(ctx context.Context, p *Provider) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Role == "" {
		return fmt.Errorf("role is required")
	}
	if !validRoles[p.Role] {
		return fmt.Errorf("invalid role: %s", p.Role)
	}
	if p.DefaultRoomCount < 0 {
		return fmt.Errorf("default_room_count must be non-negative")
	}
	p.Active = true
	return s.providers.Create(ctx, p)
}

func (s *Service) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return s.providers.GetByID(ctx, id)
}

func (s *Service) UpdateProvider(ctx context.Context, p *Provider) error {
	if p.Role != "" && !validRoles[p.Role] {
		return fmt.Errorf("invalid role: %s", p.Role)
	}
	return s.providers.Update(ctx, p)
}

func (s *Service) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	return s.providers.Delete(ctx, id)
}

func (s *Service) ListProviders(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	return s.providers.List(ctx, limit, offset)
}

// -- Availability rules --

func (s *Service) CreateRule(ctx context.Context, r *AvailabilityRule) error {
	if r.ProviderID == uuid.Nil {
		return fmt.Errorf("provider_id is required")
	}
	if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week must be 0-6")
	}
	if !r.Block.Valid() {
		return fmt.Errorf("invalid time block: %s", r.Block)
	}
	if r.RuleType != RuleAllow && r.RuleType != RuleBlock {
		return fmt.Errorf("invalid rule_type: %s", r.RuleType)
	}
	if r.Enforcement != EnforceHard && r.Enforcement != EnforceWarn {
		return fmt.Errorf("invalid enforcement: %s", r.Enforcement)
	}
	return s.rules.Create(ctx, r)
}

func (s *Service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return s.rules.Delete(ctx, id)
}

func (s *Service) ListRules(ctx context.Context, providerID uuid.UUID) ([]AvailabilityRule, error) {
	return s.rules.ListByProvider(ctx, providerID)
}

// CheckAvailability loads the provider's rules and evaluates the placement.
func (s *Service) CheckAvailability(ctx context.Context, providerID, serviceID uuid.UUID, date calendar.Date, block calendar.TimeBlock) (Evaluation, error) {
	if !block.Valid() {
		return Evaluation{}, fmt.Errorf("invalid time block: %s", block)
	}
	rules, err := s.rules.ListByProvider(ctx, providerID)
	if err != nil {
		return Evaluation{}, fmt.Errorf("loading rules: %w", err)
	}
	return Evaluate(rules, providerID, serviceID, int(date.Weekday()), block), nil
}

// -- Leaves --

func (s *Service) CreateLeave(ctx context.Context, l *Leave) error {
	if l.ProviderID == uuid.Nil {
		return fmt.Errorf("provider_id is required")
	}
	if l.StartDate.IsZero() || l.EndDate.IsZero() {
		return fmt.Errorf("start_date and end_date are required")
	}
	if l.EndDate.Before(l.StartDate) {
		return fmt.Errorf("end_date precedes start_date")
	}
	if l.LeaveType == "" {
		l.LeaveType = "vacation"
	}
	return s.leaves.Create(ctx, l)
}

func (s *Service) DeleteLeave(ctx context.Context, id uuid.UUID) error {
	return s.leaves.Delete(ctx, id)
}

func (s *Service) ListLeaves(ctx context.Context, providerID uuid.UUID) ([]Leave, error) {
	return s.leaves.ListByProvider(ctx, providerID)
}
