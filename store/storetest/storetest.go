// Package storetest holds behaviour tests shared by every allocation.Store
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/textile-ops/allocation"
)

// Backend is what the shared tests need from an implementation.
type Backend interface {
	allocation.Store
	allocation.ReportArchive
}

var base = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

func intp(v int) *int { return &v }

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// Run exercises newStore against the Store and ReportArchive contracts.
// newStore must return an empty store on every call.
func Run(t *testing.T, newStore func(t *testing.T) Backend) {
	t.Run("batches", func(t *testing.T) { testBatches(t, newStore(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("workforce", func(t *testing.T) { testWorkforce(t, newStore(t)) })
	t.Run("material", func(t *testing.T) { testMaterial(t, newStore(t)) })
	t.Run("reports", func(t *testing.T) { testReports(t, newStore(t)) })
	t.Run("reset", func(t *testing.T) { testReset(t, newStore(t)) })
}

func testBatches(t *testing.T, s Backend) {
	ctx := context.Background()

	require.NoError(t, s.SaveBatch(ctx, allocation.Batch{ID: "b1", BatchCode: "WV-001", Status: "planned", CreatedAt: base}))
	require.NoError(t, s.SaveBatch(ctx, allocation.Batch{ID: "b2", BatchCode: "DY-002", CreatedAt: base.Add(time.Hour)}))

	// Upsert replaces
	require.NoError(t, s.SaveBatch(ctx, allocation.Batch{ID: "b1", BatchCode: "WV-001", Status: "in_progress", CreatedAt: base}))

	got, err := s.GetBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", got.Status)

	_, err = s.GetBatch(ctx, "missing")
	assert.ErrorIs(t, err, allocation.ErrBatchNotFound)

	list, err := s.ListBatches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b2", list[0].ID, "newest first")

	list, err = s.ListBatches(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testUsers(t *testing.T, s Backend) {
	ctx := context.Background()

	require.NoError(t, s.SaveUser(ctx, allocation.User{ID: "u1", Username: "zara", FirstName: "Zara", Role: "operator"}))
	require.NoError(t, s.SaveUser(ctx, allocation.User{ID: "u2", Username: "amir", Role: "technician"}))

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Zara", got.FirstName)
	assert.Equal(t, "operator", got.Role)

	_, err = s.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, allocation.ErrUserNotFound)

	list, err := s.ListUsers(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "amir", list[0].Username)
}

func testWorkforce(t *testing.T, s Backend) {
	ctx := context.Background()

	w1 := allocation.WorkforceAllocation{
		ID: "w1", BatchID: "b1", BatchNumber: "WV-001", UserID: "u1",
		RoleAssigned: allocation.RoleOperator, StartDate: "2025-04-10", EndDate: "2025-04-12",
		DurationDays: intp(2), CreatedAt: base,
	}
	// No start date: placed by creation day
	w2 := allocation.WorkforceAllocation{
		ID: "w2", BatchID: "b1", UserID: "u2", RoleAssigned: allocation.RoleQC, CreatedAt: base,
	}
	w3 := allocation.WorkforceAllocation{
		ID: "w3", BatchID: "b2", UserID: "u1", RoleAssigned: allocation.RoleAssistant,
		StartDate: "2025-05-02", CreatedAt: base,
	}

	require.NoError(t, s.AppendWorkforce(ctx, w3))
	require.NoError(t, s.AppendWorkforce(ctx, w1))
	require.NoError(t, s.AppendWorkforce(ctx, w2))
	assert.ErrorIs(t, s.AppendWorkforce(ctx, w1), allocation.ErrDuplicateID)

	all, err := s.ListWorkforce(ctx, allocation.Period{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"w2", "w1", "w3"}, []string{all[0].ID, all[1].ID, all[2].ID}, "ordered by effective day")

	april, err := s.ListWorkforce(ctx, allocation.Period{Start: "2025-04-01", End: "2025-04-30"})
	require.NoError(t, err)
	require.Len(t, april, 2)
	assert.Equal(t, "2025-04-10", april[1].StartDate)
	assert.Equal(t, "2025-04-12", april[1].EndDate)
	assert.Equal(t, 2, april[1].Days())
	assert.Nil(t, april[0].DurationDays)
	assert.Equal(t, 1, april[0].Days())

	none, err := s.ListWorkforce(ctx, allocation.Period{Start: "2026-01-01"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testMaterial(t *testing.T, s Backend) {
	ctx := context.Background()

	m1 := allocation.MaterialAllocation{
		ID: "m1", BatchID: "b1", BatchNumber: "WV-001", MaterialName: "Cotton Yarn",
		Quantity: dec("120.125"), Unit: allocation.UnitKg, CostPerUnit: dec("3.10"),
		Supplier: "North Mills", CreatedAt: base,
	}
	m2 := allocation.MaterialAllocation{
		ID: "m2", BatchID: "b1", MaterialName: "Indigo Dye", Quantity: dec("4"),
		Unit: allocation.UnitLiters, CreatedAt: base.AddDate(0, 1, 0),
	}

	require.NoError(t, s.AppendMaterial(ctx, m1))
	require.NoError(t, s.AppendMaterial(ctx, m2))
	assert.ErrorIs(t, s.AppendMaterial(ctx, m2), allocation.ErrDuplicateID)

	april, err := s.ListMaterial(ctx, allocation.Period{Start: "2025-04-01", End: "2025-04-30"})
	require.NoError(t, err)
	require.Len(t, april, 1)

	got := april[0]
	assert.Equal(t, "Cotton Yarn", got.MaterialName)
	assert.Equal(t, allocation.UnitKg, got.Unit)
	assert.True(t, got.Quantity.Decimal.Equal(decimal.RequireFromString("120.125")))
	assert.True(t, got.TotalCost().Equal(decimal.RequireFromString("372.3875")))
	assert.Equal(t, "North Mills", got.Supplier)

	all, err := s.ListMaterial(ctx, allocation.Period{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.False(t, all[1].CostPerUnit.Valid, "missing cost stays missing")
}

func testReports(t *testing.T, s Backend) {
	ctx := context.Background()

	older := allocation.ArchivedReport{
		ID: "r1", GeneratedAt: base, Period: allocation.Period{Start: "2025-03-01", End: "2025-03-31"},
		Trigger: "schedule", Payload: []byte(`{"summary":{}}`),
	}
	newer := allocation.ArchivedReport{
		ID: "r2", GeneratedAt: base.Add(24 * time.Hour), Trigger: "api", Payload: []byte(`{}`),
	}

	require.NoError(t, s.SaveReport(ctx, older))
	require.NoError(t, s.SaveReport(ctx, newer))
	assert.ErrorIs(t, s.SaveReport(ctx, older), allocation.ErrDuplicateID)

	list, err := s.ListReports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r2", list[0].ID)
	assert.Equal(t, "2025-03-01", list[1].Period.Start)
	assert.JSONEq(t, `{"summary":{}}`, string(list[1].Payload))

	list, err = s.ListReports(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testReset(t *testing.T, s Backend) {
	ctx := context.Background()

	require.NoError(t, s.SaveBatch(ctx, allocation.Batch{ID: "b1", BatchCode: "WV-001", CreatedAt: base}))
	require.NoError(t, s.AppendWorkforce(ctx, allocation.WorkforceAllocation{
		ID: "w1", BatchID: "b1", UserID: "u1", RoleAssigned: allocation.RoleOperator, CreatedAt: base,
	}))

	require.NoError(t, s.Reset(ctx))

	batches, err := s.ListBatches(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, batches)

	workforce, err := s.ListWorkforce(ctx, allocation.Period{})
	require.NoError(t, err)
	assert.Empty(t, workforce)

	// ids are free again after a reset
	assert.NoError(t, s.AppendWorkforce(ctx, allocation.WorkforceAllocation{
		ID: "w1", BatchID: "b1", UserID: "u1", RoleAssigned: allocation.RoleOperator, CreatedAt: base,
	}))
}
