package allocation_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/textile-ops/allocation"
)

var (
	testBatch = &allocation.Batch{ID: "batch-1", BatchCode: "WV-2025-001", Status: "in_progress"}
	testTech  = &allocation.User{ID: "user-1", Username: "asha", Role: "technician"}
	testAdmin = &allocation.User{ID: "user-2", Username: "root", Role: "admin"}
)

// =============================================================================
// WORKFORCE
// =============================================================================

func TestPrepareWorkforce_Valid(t *testing.T) {
	v := newTestValidator()

	alloc, errs := v.PrepareWorkforce(allocation.WorkforceRequest{
		BatchID:      "batch-1",
		UserID:       "user-1",
		RoleAssigned: "operator",
		StartDate:    strp("2025-01-05"),
		EndDate:      strp("Jan 12, 2025"),
		AllocatedBy:  "planner",
	}, testBatch, testTech)

	require.Nil(t, errs)
	assert.NotEmpty(t, alloc.ID)
	assert.Equal(t, "WV-2025-001", alloc.BatchNumber)
	assert.Equal(t, allocation.RoleOperator, alloc.RoleAssigned)
	assert.Equal(t, "2025-01-05", alloc.StartDate)
	assert.Equal(t, "2025-01-12", alloc.EndDate)
	require.NotNil(t, alloc.DurationDays)
	assert.Equal(t, 7, *alloc.DurationDays)
}

func TestPrepareWorkforce_OpenEnded_DefaultsToOneDay(t *testing.T) {
	v := newTestValidator()

	alloc, errs := v.PrepareWorkforce(allocation.WorkforceRequest{
		BatchID: "batch-1", UserID: "user-1", RoleAssigned: "assistant",
		StartDate: strp("2025-02-01"),
	}, testBatch, testTech)

	require.Nil(t, errs)
	assert.Equal(t, 1, alloc.Days())
	assert.Empty(t, alloc.EndDate)
}

func TestPrepareWorkforce_IncompatibleRole_Rejected(t *testing.T) {
	v := newTestValidator()

	_, errs := v.PrepareWorkforce(allocation.WorkforceRequest{
		BatchID: "batch-1", UserID: "user-1", RoleAssigned: "supervisor",
	}, testBatch, testTech)

	require.NotNil(t, errs)
	assert.Contains(t, errs["role_assigned"][0], "not compatible")
}

func TestPrepareWorkforce_AdminTakesAnyRole(t *testing.T) {
	v := newTestValidator()

	for _, role := range allocation.Roles {
		_, errs := v.PrepareWorkforce(allocation.WorkforceRequest{
			BatchID: "batch-1", UserID: "user-2", RoleAssigned: string(role),
		}, testBatch, testAdmin)
		assert.Nil(t, errs, role)
	}
}

func TestPrepareWorkforce_CollectsAllFieldErrors(t *testing.T) {
	v := newTestValidator()

	_, errs := v.PrepareWorkforce(allocation.WorkforceRequest{
		BatchID:      "missing",
		RoleAssigned: "weaver",
		StartDate:    strp("2025-03-10"),
		EndDate:      strp("2025-03-01"),
	}, nil, nil)

	require.NotNil(t, errs)
	assert.Equal(t, []string{"Batch not found."}, errs["batch"])
	assert.Equal(t, []string{"This field is required."}, errs["user"])
	assert.Equal(t, []string{`"weaver" is not a valid choice.`}, errs["role_assigned"])
	assert.Equal(t, []string{allocation.ErrMsgStartAfterEnd}, errs["start_date"])
	assert.Equal(t, []string{allocation.ErrMsgEndBeforeStart}, errs["end_date"])
	assert.True(t, errors.Is(errs, allocation.ErrInvalidAllocation))
}

// =============================================================================
// MATERIAL
// =============================================================================

func TestPrepareMaterial_Valid(t *testing.T) {
	v := newTestValidator()

	alloc, errs := v.PrepareMaterial(allocation.MaterialRequest{
		BatchID:      "batch-1",
		MaterialName: "  Cotton Yarn ",
		Quantity:     dec("120.5"),
		Unit:         "kg",
		CostPerUnit:  dec("3.2"),
		Supplier:     "North Mills",
	}, testBatch)

	require.Nil(t, errs)
	assert.Equal(t, "Cotton Yarn", alloc.MaterialName)
	assert.Equal(t, allocation.UnitKg, alloc.Unit)
	assertDecimal(t, "385.6", alloc.TotalCost())
}

func TestPrepareMaterial_CostOptional(t *testing.T) {
	v := newTestValidator()

	alloc, errs := v.PrepareMaterial(allocation.MaterialRequest{
		BatchID: "batch-1", MaterialName: "Dye", Quantity: dec("2"), Unit: "liters",
	}, testBatch)

	require.Nil(t, errs)
	assertDecimal(t, "0", alloc.TotalCost())
}

func TestPrepareMaterial_Invalid(t *testing.T) {
	v := newTestValidator()

	_, errs := v.PrepareMaterial(allocation.MaterialRequest{
		BatchID:     "batch-1",
		Quantity:    decimal.NewNullDecimal(decimal.NewFromInt(-1)),
		Unit:        "bales",
		CostPerUnit: decimal.NewNullDecimal(decimal.NewFromFloat(-0.5)),
	}, testBatch)

	require.NotNil(t, errs)
	assert.Contains(t, errs, "material_name")
	assert.Contains(t, errs, "unit")
	assert.Contains(t, errs, "quantity")
	assert.Contains(t, errs, "cost_per_unit")
	assert.NotContains(t, errs, "batch")
}

func TestPrepareMaterial_QuantityRequired(t *testing.T) {
	v := newTestValidator()

	_, errs := v.PrepareMaterial(allocation.MaterialRequest{
		BatchID: "batch-1", MaterialName: "Dye", Unit: "liters",
	}, testBatch)

	assert.Equal(t, []string{"This field is required."}, errs["quantity"])
}
