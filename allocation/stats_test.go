package allocation_test

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/textile-ops/allocation"
)

// =============================================================================
// HELPERS
// =============================================================================

func intp(n int) *int { return &n }

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func worker(batch string, role allocation.Role, days *int) allocation.WorkforceAllocation {
	return allocation.WorkforceAllocation{BatchNumber: batch, RoleAssigned: role, DurationDays: days}
}

func material(batch, name, qty, cost string) allocation.MaterialAllocation {
	m := allocation.MaterialAllocation{BatchNumber: batch, MaterialName: name}
	if qty != "" {
		m.Quantity = dec(qty)
	}
	if cost != "" {
		m.CostPerUnit = dec(cost)
	}
	return m
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got),
		append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

// =============================================================================
// UTILIZATION BY ROLE
// =============================================================================

func TestUtilizationByRole_Example(t *testing.T) {
	// GIVEN: two operator allocations (3 and 5 days) and a qc one with no duration
	allocs := []allocation.WorkforceAllocation{
		worker("", allocation.RoleOperator, intp(3)),
		worker("", allocation.RoleOperator, intp(5)),
		worker("", allocation.RoleQC, nil),
	}

	// WHEN
	got := allocation.UtilizationByRole(allocs)

	// THEN: operator 8 days / 32h avg, qc defaults to 1 day / 8h
	require.Len(t, got, 2)

	op := got[0]
	assert.Equal(t, "operator", op.Role)
	assert.Equal(t, 8, op.TotalAllocated)
	assert.Equal(t, 8, op.TotalPlanned)
	assert.Equal(t, 2, op.Count)
	assertDecimal(t, "32", op.AvgHoursPerAllocation)
	assertDecimal(t, "100", op.UtilizationRate)

	qc := got[1]
	assert.Equal(t, "qc", qc.Role)
	assert.Equal(t, 1, qc.TotalAllocated)
	assertDecimal(t, "8", qc.AvgHoursPerAllocation)
}

func TestUtilizationByRole_MissingRole_Unassigned(t *testing.T) {
	got := allocation.UtilizationByRole([]allocation.WorkforceAllocation{worker("", "", intp(2))})

	require.Len(t, got, 1)
	assert.Equal(t, allocation.UnassignedRole, got[0].Role)
	assert.Equal(t, 2, got[0].TotalAllocated)
}

func TestUtilizationByRole_Empty(t *testing.T) {
	assert.Empty(t, allocation.UtilizationByRole(nil))
}

func TestUtilizationByRole_CountConservation(t *testing.T) {
	allocs := []allocation.WorkforceAllocation{
		worker("B1", allocation.RoleOperator, intp(1)),
		worker("B1", allocation.RoleSupervisor, nil),
		worker("B2", "", intp(4)),
		worker("B2", allocation.RoleOperator, intp(0)),
		worker("B3", allocation.RoleAssistant, intp(7)),
	}

	total := 0
	for _, g := range allocation.UtilizationByRole(allocs) {
		total += g.Count
	}
	assert.Equal(t, len(allocs), total)
}

func TestUtilizationByRole_FirstEncounterOrder(t *testing.T) {
	allocs := []allocation.WorkforceAllocation{
		worker("", allocation.RoleQC, nil),
		worker("", allocation.RoleOperator, nil),
		worker("", allocation.RoleQC, nil),
		worker("", allocation.RoleSupervisor, nil),
	}

	got := allocation.UtilizationByRole(allocs)

	var roles []string
	for _, g := range got {
		roles = append(roles, g.Role)
	}
	assert.Equal(t, []string{"qc", "operator", "supervisor"}, roles)
}

// =============================================================================
// COST BY MATERIAL
// =============================================================================

func TestCostByMaterial_Example(t *testing.T) {
	allocs := []allocation.MaterialAllocation{
		material("", "Yarn", "10", "2"),
		material("", "Yarn", "5", "3"),
	}

	got := allocation.CostByMaterial(allocs)

	require.Len(t, got, 1)
	assert.Equal(t, "Yarn", got[0].Material)
	assertDecimal(t, "35", got[0].TotalCost)
	assertDecimal(t, "15", got[0].TotalQuantity)
	assertDecimal(t, "2.5", got[0].AvgCostPerUnit)
	assert.Equal(t, 2, got[0].Count)
}

func TestCostByMaterial_MeanOfUnitPrices_NotWeighted(t *testing.T) {
	// 1 unit at 10 and 99 units at 1: weighted would be 1.09, mean of prices is 5.5
	got := allocation.CostByMaterial([]allocation.MaterialAllocation{
		material("", "Dye", "1", "10"),
		material("", "Dye", "99", "1"),
	})

	require.Len(t, got, 1)
	assertDecimal(t, "5.5", got[0].AvgCostPerUnit)
	assertDecimal(t, "109", got[0].TotalCost)
}

func TestCostByMaterial_MissingValuesCountAsZero(t *testing.T) {
	got := allocation.CostByMaterial([]allocation.MaterialAllocation{
		material("", "Cotton", "4", ""),
		material("", "Cotton", "", "6"),
	})

	require.Len(t, got, 1)
	assertDecimal(t, "0", got[0].TotalCost)
	assertDecimal(t, "4", got[0].TotalQuantity)
	assertDecimal(t, "3", got[0].AvgCostPerUnit)
}

func TestCostByMaterial_CaseSensitiveKeys(t *testing.T) {
	got := allocation.CostByMaterial([]allocation.MaterialAllocation{
		material("", "Yarn", "1", "1"),
		material("", "yarn", "1", "1"),
	})

	require.Len(t, got, 2)
	assert.Equal(t, "Yarn", got[0].Material)
	assert.Equal(t, "yarn", got[1].Material)
}

func TestCostByMaterial_QuantityConservation(t *testing.T) {
	allocs := []allocation.MaterialAllocation{
		material("", "Yarn", "10.5", "2"),
		material("", "Dye", "3.25", "11"),
		material("", "Yarn", "0", "2"),
		material("", "Thread", "7", ""),
	}

	sum := decimal.Zero
	for _, g := range allocation.CostByMaterial(allocs) {
		sum = sum.Add(g.TotalQuantity)
	}
	assertDecimal(t, "20.75", sum)
}

// =============================================================================
// PRODUCTIVITY BY BATCH
// =============================================================================

func TestProductivityByBatch_MixedRecords(t *testing.T) {
	// GIVEN: batch B1 with 2 staff (2 + default 1 days) and 1 material costing 48
	records := []allocation.Record{
		allocation.Workforce(worker("B1", allocation.RoleOperator, intp(2))),
		allocation.Material(material("B1", "Yarn", "12", "4")),
		allocation.Workforce(worker("B1", allocation.RoleQC, nil)),
		allocation.Material(material("", "Dye", "1", "1")),
	}

	got := allocation.ProductivityByBatch(records)

	require.Len(t, got, 2)
	b1 := got[0]
	assert.Equal(t, "B1", b1.Batch)
	assert.Equal(t, 2, b1.StaffCount)
	assert.Equal(t, 1, b1.MaterialCount)
	assert.Equal(t, 3, b1.TotalDays)
	assertDecimal(t, "48", b1.TotalCost)
	assertDecimal(t, "2", b1.Efficiency) // 48 / (3 * 8)

	unknown := got[1]
	assert.Equal(t, allocation.UnknownBatch, unknown.Batch)
	assert.Equal(t, 0, unknown.StaffCount)
	assertDecimal(t, "0", unknown.Efficiency) // no labour days
}

func TestProductivityByBatch_ZeroDays_ZeroEfficiency(t *testing.T) {
	records := []allocation.Record{
		allocation.Workforce(worker("B9", allocation.RoleOperator, intp(0))),
		allocation.Material(material("B9", "Yarn", "3", "3")),
	}

	got := allocation.ProductivityByBatch(records)

	require.Len(t, got, 1)
	assertDecimal(t, "0", got[0].Efficiency)
	assertDecimal(t, "9", got[0].TotalCost)
}

func TestProductivityByBatch_NegativeDays_ZeroEfficiency(t *testing.T) {
	// GIVEN: A stored allocation whose duration went negative
	// WHEN: Productivity is computed
	// THEN: Efficiency stays 0 rather than turning negative

	records := []allocation.Record{
		allocation.Workforce(worker("B1", allocation.RoleOperator, intp(-2))),
		allocation.Material(material("B1", "Yarn", "10", "2")),
	}

	got := allocation.ProductivityByBatch(records)

	require.Len(t, got, 1)
	assert.Equal(t, -2, got[0].TotalDays)
	assertDecimal(t, "20", got[0].TotalCost)
	assert.True(t, got[0].Efficiency.IsZero(), got[0].Efficiency.String())
}

// =============================================================================
// PURITY
// =============================================================================

func TestAggregations_OrderIndependentValues(t *testing.T) {
	workforce := []allocation.WorkforceAllocation{
		worker("B1", allocation.RoleOperator, intp(3)),
		worker("B2", allocation.RoleOperator, intp(5)),
		worker("B1", allocation.RoleQC, nil),
		worker("", "", intp(2)),
		worker("B3", allocation.RoleSupervisor, intp(1)),
	}
	materials := []allocation.MaterialAllocation{
		material("B1", "Yarn", "10", "2"),
		material("B2", "Yarn", "5", "3"),
		material("B3", "Dye", "2.5", "8"),
		material("", "Thread", "", "1"),
	}

	baseRoles := byKey(allocation.UtilizationByRole(workforce), func(g allocation.RoleUtilization) string { return g.Role })
	baseCosts := byKey(allocation.CostByMaterial(materials), func(g allocation.MaterialCost) string { return g.Material })
	baseBatches := byKey(allocation.ProductivityByBatch(allocation.Records(workforce, materials)),
		func(g allocation.BatchProductivity) string { return g.Batch })

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		w := append([]allocation.WorkforceAllocation(nil), workforce...)
		m := append([]allocation.MaterialAllocation(nil), materials...)
		rng.Shuffle(len(w), func(a, b int) { w[a], w[b] = w[b], w[a] })
		rng.Shuffle(len(m), func(a, b int) { m[a], m[b] = m[b], m[a] })
		recs := allocation.Records(w, m)
		rng.Shuffle(len(recs), func(a, b int) { recs[a], recs[b] = recs[b], recs[a] })

		roles := byKey(allocation.UtilizationByRole(w), func(g allocation.RoleUtilization) string { return g.Role })
		require.Len(t, roles, len(baseRoles))
		for k, g := range baseRoles {
			assert.Equal(t, g.TotalAllocated, roles[k].TotalAllocated)
			assert.Equal(t, g.Count, roles[k].Count)
			assert.True(t, g.AvgHoursPerAllocation.Equal(roles[k].AvgHoursPerAllocation))
		}

		costs := byKey(allocation.CostByMaterial(m), func(g allocation.MaterialCost) string { return g.Material })
		require.Len(t, costs, len(baseCosts))
		for k, g := range baseCosts {
			assert.True(t, g.TotalCost.Equal(costs[k].TotalCost))
			assert.True(t, g.TotalQuantity.Equal(costs[k].TotalQuantity))
			assert.True(t, g.AvgCostPerUnit.Equal(costs[k].AvgCostPerUnit))
		}

		batches := byKey(allocation.ProductivityByBatch(recs), func(g allocation.BatchProductivity) string { return g.Batch })
		require.Len(t, batches, len(baseBatches))
		for k, g := range baseBatches {
			assert.Equal(t, g.StaffCount, batches[k].StaffCount)
			assert.Equal(t, g.MaterialCount, batches[k].MaterialCount)
			assert.Equal(t, g.TotalDays, batches[k].TotalDays)
			assert.True(t, g.Efficiency.Equal(batches[k].Efficiency))
		}
	}
}

func byKey[T any](groups []T, key func(T) string) map[string]T {
	out := make(map[string]T, len(groups))
	for _, g := range groups {
		out[key(g)] = g
	}
	return out
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestSummarize(t *testing.T) {
	workforce := []allocation.WorkforceAllocation{
		worker("B1", allocation.RoleOperator, intp(3)),
		worker("B2", allocation.RoleQC, nil),
	}
	materials := []allocation.MaterialAllocation{
		material("B1", "Yarn", "10", "2"),
		material("B3", "Dye", "1", "5"),
	}

	s := allocation.Summarize(workforce, materials)

	assert.Equal(t, 2, s.WorkforceAllocations)
	assert.Equal(t, 2, s.MaterialAllocations)
	assert.Equal(t, 4, s.TotalDays)
	assert.Equal(t, 32, s.TotalLabourHours)
	assertDecimal(t, "25", s.TotalCost)
	assert.Equal(t, 3, s.Batches)
}
