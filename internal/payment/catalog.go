package payment

import (
	"strings"

	"github.com/heic2pdf/backend/internal/model"
)

const (
	monthlyAmountCents = 700
	monthlyCredits     = 1000
	yearlyAmountCents  = 6900
	yearlyCredits      = 12000
)

// Catalog maps provider product, plan and price ids onto what they grant.
type Catalog struct {
	plans map[string]model.Plan
}

func NewCatalog(plans ...model.Plan) *Catalog {
	c := &Catalog{plans: make(map[string]model.Plan, len(plans))}
	for _, p := range plans {
		c.plans[p.ID] = p
	}
	return c
}

// DefaultCatalog registers the monthly and yearly Creem products.
func DefaultCatalog(monthlyID, yearlyID string) *Catalog {
	return NewCatalog(
		model.Plan{ID: monthlyID, PlanType: model.PlanMonthly, AmountCents: monthlyAmountCents, Credits: monthlyCredits},
		model.Plan{ID: yearlyID, PlanType: model.PlanYearly, AmountCents: yearlyAmountCents, Credits: yearlyCredits},
	)
}

// Lookup never fails: unknown ids are priced as monthly unless the id names a yearly plan.
func (c *Catalog) Lookup(_ model.Provider, planID string) model.Plan {
	if p, ok := c.plans[planID]; ok && planID != "" {
		return p
	}
	id := strings.ToLower(planID)
	if strings.Contains(id, "year") || strings.Contains(id, "annual") {
		return model.Plan{ID: planID, PlanType: model.PlanYearly, AmountCents: yearlyAmountCents, Credits: yearlyCredits}
	}
	return model.Plan{ID: planID, PlanType: model.PlanMonthly, AmountCents: monthlyAmountCents, Credits: monthlyCredits}
}
