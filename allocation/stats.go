/*
stats.go - Grouped reports derived from allocation records

PURPOSE:
  Folds flat allocation lists into per-group summaries for reporting:

    UtilizationByRole    WorkforceAllocation -> RoleUtilization
    CostByMaterial       MaterialAllocation  -> MaterialCost
    ProductivityByBatch  Record              -> BatchProductivity

ORDERING:
  Each report is a fold into a keyed accumulator, flattened in the order
  keys were first seen. The accumulated values depend only on the multiset
  of input records; only the output order follows input order.

DEFAULTS:
  Aggregation is total over partially populated records:
  - missing role          -> group "unassigned"
  - missing batch number  -> group "unknown"
  - missing duration      -> 1 day
  - missing quantity/cost -> 0

KNOWN LIMITATIONS:
  No planned-vs-actual distinction exists in the data, so TotalPlanned
  equals TotalAllocated and UtilizationRate is always 100.

  AvgCostPerUnit is the mean of unit prices, not a cost-weighted average.

  Efficiency is cost per labour hour, a raw ratio for display and sorting.
*/
package allocation

import (
	"github.com/shopspring/decimal"
)

const (
	UnassignedRole = "unassigned"
	UnknownBatch   = "unknown"

	// HoursPerDay converts allocated days to labour hours.
	HoursPerDay = 8
)

var (
	hoursPerDay     = decimal.NewFromInt(HoursPerDay)
	fullUtilization = decimal.NewFromInt(100)
)

// =============================================================================
// ORDERED FOLD
// =============================================================================

// fold groups items by key, calling add on the group's accumulator. Keys are
// returned in first-encounter order.
func fold[T, A any](items []T, key func(T) string, add func(*A, T)) ([]string, map[string]*A) {
	var order []string
	groups := make(map[string]*A)
	for _, item := range items {
		k := key(item)
		acc, ok := groups[k]
		if !ok {
			acc = new(A)
			groups[k] = acc
			order = append(order, k)
		}
		add(acc, item)
	}
	return order, groups
}

func ratio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}

// =============================================================================
// UTILIZATION BY ROLE
// =============================================================================

type RoleUtilization struct {
	Role                  string          `json:"role"`
	TotalAllocated        int             `json:"total_allocated"` // days
	TotalPlanned          int             `json:"total_planned"`   // days
	UtilizationRate       decimal.Decimal `json:"utilization_rate"`
	AvgHoursPerAllocation decimal.Decimal `json:"avg_hours_per_allocation"`
	Count                 int             `json:"count"`
}

func UtilizationByRole(allocs []WorkforceAllocation) []RoleUtilization {
	type acc struct{ days, count int }

	order, groups := fold(allocs,
		func(w WorkforceAllocation) string {
			if w.RoleAssigned == "" {
				return UnassignedRole
			}
			return string(w.RoleAssigned)
		},
		func(a *acc, w WorkforceAllocation) {
			a.days += w.Days()
			a.count++
		})

	out := make([]RoleUtilization, 0, len(order))
	for _, k := range order {
		g := groups[k]
		out = append(out, RoleUtilization{
			Role:                  k,
			TotalAllocated:        g.days,
			TotalPlanned:          g.days,
			UtilizationRate:       fullUtilization,
			AvgHoursPerAllocation: ratio(decimal.NewFromInt(int64(g.days)).Mul(hoursPerDay), decimal.NewFromInt(int64(g.count))),
			Count:                 g.count,
		})
	}
	return out
}

// =============================================================================
// COST BY MATERIAL
// =============================================================================

type MaterialCost struct {
	Material       string          `json:"material"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	TotalQuantity  decimal.Decimal `json:"total_quantity"`
	AvgCostPerUnit decimal.Decimal `json:"avg_cost_per_unit"`
	Count          int             `json:"count"`
}

// CostByMaterial groups by exact, case-sensitive material name.
func CostByMaterial(allocs []MaterialAllocation) []MaterialCost {
	type acc struct {
		cost, quantity, unitCostSum decimal.Decimal
		count                       int
	}

	order, groups := fold(allocs,
		func(m MaterialAllocation) string { return m.MaterialName },
		func(a *acc, m MaterialAllocation) {
			a.cost = a.cost.Add(m.TotalCost())
			a.quantity = a.quantity.Add(orZero(m.Quantity))
			a.unitCostSum = a.unitCostSum.Add(orZero(m.CostPerUnit))
			a.count++
		})

	out := make([]MaterialCost, 0, len(order))
	for _, k := range order {
		g := groups[k]
		out = append(out, MaterialCost{
			Material:       k,
			TotalCost:      g.cost,
			TotalQuantity:  g.quantity,
			AvgCostPerUnit: ratio(g.unitCostSum, decimal.NewFromInt(int64(g.count))),
			Count:          g.count,
		})
	}
	return out
}

// =============================================================================
// PRODUCTIVITY BY BATCH
// =============================================================================

type BatchProductivity struct {
	Batch         string          `json:"batch"`
	StaffCount    int             `json:"staff_count"`
	MaterialCount int             `json:"material_count"`
	TotalDays     int             `json:"total_days"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	Efficiency    decimal.Decimal `json:"efficiency"` // cost per labour hour
}

func ProductivityByBatch(records []Record) []BatchProductivity {
	type acc struct {
		staff, materials, days int
		cost                   decimal.Decimal
	}

	order, groups := fold(records,
		func(r Record) string {
			if b := r.Batch(); b != "" {
				return b
			}
			return UnknownBatch
		},
		func(a *acc, r Record) {
			switch rec := r.(type) {
			case WorkforceRecord:
				a.staff++
				a.days += rec.Days()
			case MaterialRecord:
				a.materials++
				a.cost = a.cost.Add(rec.TotalCost())
			}
		})

	out := make([]BatchProductivity, 0, len(order))
	for _, k := range order {
		g := groups[k]
		efficiency := decimal.Zero
		if g.days > 0 {
			efficiency = g.cost.Div(decimal.NewFromInt(int64(g.days)).Mul(hoursPerDay))
		}
		out = append(out, BatchProductivity{
			Batch:         k,
			StaffCount:    g.staff,
			MaterialCount: g.materials,
			TotalDays:     g.days,
			TotalCost:     g.cost,
			Efficiency:    efficiency,
		})
	}
	return out
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary holds headline totals across all groups.
type Summary struct {
	WorkforceAllocations int             `json:"workforce_allocations"`
	MaterialAllocations  int             `json:"material_allocations"`
	TotalDays            int             `json:"total_days"`
	TotalLabourHours     int             `json:"total_labour_hours"`
	TotalCost            decimal.Decimal `json:"total_cost"`
	Batches              int             `json:"batches"`
}

func Summarize(workforce []WorkforceAllocation, material []MaterialAllocation) Summary {
	s := Summary{
		WorkforceAllocations: len(workforce),
		MaterialAllocations:  len(material),
		TotalCost:            decimal.Zero,
	}
	for _, w := range workforce {
		s.TotalDays += w.Days()
	}
	for _, m := range material {
		s.TotalCost = s.TotalCost.Add(m.TotalCost())
	}
	s.TotalLabourHours = s.TotalDays * HoursPerDay
	s.Batches = len(ProductivityByBatch(Records(workforce, material)))
	return s
}
