package engine

import (
	"github.com/shopspring/decimal"

	"staffline/internal/config"
	"staffline/internal/domain"
)

// CapacityPolicy yields the most hours a project may hold across all allocations.
type CapacityPolicy interface {
	Name() string
	Ceiling(p domain.Project) decimal.Decimal
}

// FixedCapacity gives every project the same ceiling.
type FixedCapacity struct {
	Hours decimal.Decimal
}

func (FixedCapacity) Name() string { return config.PolicyFixed }

func (c FixedCapacity) Ceiling(domain.Project) decimal.Decimal { return c.Hours }

// DerivedCapacity multiplies the project's day span by HoursPerDay.
type DerivedCapacity struct {
	HoursPerDay decimal.Decimal
}

func (DerivedCapacity) Name() string { return config.PolicyDerived }

func (c DerivedCapacity) Ceiling(p domain.Project) decimal.Decimal {
	return p.DerivedCapacity(c.HoursPerDay)
}

func PolicyFromConfig(cfg *config.Config) CapacityPolicy {
	capCfg := cfg.Allocation.Capacity
	if capCfg.Policy == config.PolicyFixed {
		return FixedCapacity{Hours: decimal.NewFromFloat(capCfg.FixedHours)}
	}
	return DerivedCapacity{HoursPerDay: decimal.NewFromFloat(capCfg.HoursPerDay)}
}
