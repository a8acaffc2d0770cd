/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built mill scenarios that populate the store with batches,
	users and allocations so the allocation forms and the report screens
	have something to show.

AVAILABLE SCENARIOS:

	weaving-floor:  One weaving batch, a full crew and its yarn
	dye-house:      Two dyeing batches, materials with and without costs
	new-mill:       Batches and users only, no allocations yet

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Create batches and users
 3. Backfill allocations relative to today, so the default
    30-day report window always covers them

Backfilled allocations are written straight to the store since the
submission validator rejects past dates.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "weaving-floor"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Allocation handlers
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/textile-ops/allocation"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "weaving-floor",
		Name:        "Weaving Floor",
		Description: "One weaving batch with supervisor, operators, QC and yarn",
	},
	{
		ID:          "dye-house",
		Name:        "Dye House",
		Description: "Two dyeing batches; some materials have no cost yet",
	},
	{
		ID:          "new-mill",
		Name:        "New Mill",
		Description: "Batches and staff only, nothing allocated",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, Response{Success: true})
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeData(w, http.StatusOK, s)
			return
		}
	}
	writeData(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		if allocation.IsClientError(err) {
			writeFieldErrors(w, allocation.FieldErrors{"scenario_id": {err.Error()}})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]string{"status": "loaded", "scenario": req.ScenarioID},
	})
}

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	var load func(context.Context, *seeder) error
	switch id {
	case "weaving-floor":
		load = loadWeavingFloor
	case "dye-house":
		load = loadDyeHouse
	case "new-mill":
		load = loadNewMill
	default:
		return fmt.Errorf("%w: unknown scenario %q", allocation.ErrInvalidAllocation, id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	h.currentScenario = ""

	s := &seeder{store: h.Store, now: h.Reports.Now().UTC()}
	if err := load(ctx, s); err != nil {
		return fmt.Errorf("load %s: %w", id, err)
	}

	h.currentScenario = id
	h.logger.Info("scenario loaded", zap.String("scenario", id))
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadWeavingFloor(ctx context.Context, s *seeder) error {
	wv := s.batch(ctx, "b-wv-101", "WV-101", "Plain weave denim, 3/1 twill", "in_progress")
	staff := []allocation.User{
		s.user(ctx, "u-meera", "meera", "Meera", "Iyer", "supervisor"),
		s.user(ctx, "u-ravi", "ravi", "Ravi", "Kumar", "technician"),
		s.user(ctx, "u-sana", "sana", "Sana", "Shaikh", "operator"),
		s.user(ctx, "u-joel", "joel", "Joel", "Das", "inspector"),
	}

	s.workforce(ctx, wv, staff[0], allocation.RoleSupervisor, 20, 11)
	s.workforce(ctx, wv, staff[1], allocation.RoleOperator, 20, 16)
	s.workforce(ctx, wv, staff[2], allocation.RoleOperator, 18, 16)
	s.workforce(ctx, wv, staff[1], allocation.RoleMaintenance, 9, 9)
	s.workforce(ctx, wv, staff[3], allocation.RoleQC, 8, 6)

	s.material(ctx, wv, "Cotton yarn 20s", "1250.5", allocation.UnitKg, "3.40", "Sree Spinners", 20)
	s.material(ctx, wv, "Indigo warp beam", "12", allocation.UnitRolls, "180", "Arvind Beams", 19)
	s.material(ctx, wv, "Sizing starch", "85.25", allocation.UnitKg, "1.15", "", 18)
	return s.err
}

func loadDyeHouse(ctx context.Context, s *seeder) error {
	dy1 := s.batch(ctx, "b-dy-201", "DY-201", "Reactive dyeing, navy", "in_progress")
	dy2 := s.batch(ctx, "b-dy-202", "DY-202", "Vat dyeing, khaki", "planned")
	staff := []allocation.User{
		s.user(ctx, "u-anil", "anil", "Anil", "Menon", "supervisor"),
		s.user(ctx, "u-farah", "farah", "Farah", "Ali", "technician"),
		s.user(ctx, "u-kiran", "kiran", "Kiran", "", "maintenance"),
	}

	s.workforce(ctx, dy1, staff[0], allocation.RoleSupervisor, 14, 7)
	s.workforce(ctx, dy1, staff[1], allocation.RoleOperator, 14, 10)
	s.workforce(ctx, dy2, staff[1], allocation.RoleAssistant, 5, 3)
	s.workforce(ctx, dy2, staff[2], allocation.RoleMaintenance, 4, 4)

	s.material(ctx, dy1, "Reactive navy dye", "42.5", allocation.UnitKg, "18.20", "Colourtex", 14)
	s.material(ctx, dy1, "Soda ash", "300", allocation.UnitKg, "0.45", "Colourtex", 14)
	s.material(ctx, dy1, "Process water", "18.75", allocation.UnitTons, "", "", 12)
	s.material(ctx, dy2, "Vat khaki dye", "25", allocation.UnitKg, "26.00", "Atul Ltd", 5)
	s.material(ctx, dy2, "Sodium hydrosulphite", "60", allocation.UnitLiters, "", "Atul Ltd", 5)
	return s.err
}

func loadNewMill(ctx context.Context, s *seeder) error {
	s.batch(ctx, "b-sp-301", "SP-301", "Ring spinning, 30s combed", "planned")
	s.batch(ctx, "b-kn-302", "KN-302", "Single jersey knitting", "planned")
	s.user(ctx, "u-admin", "admin", "Mill", "Admin", allocation.BaseRoleAdmin)
	s.user(ctx, "u-tara", "tara", "Tara", "Singh", "technician")
	s.user(ctx, "u-omar", "omar", "Omar", "Khan", "qc")
	return s.err
}

// =============================================================================
// SEEDER
// =============================================================================

// seeder writes scenario data and keeps the first error. Day offsets count
// back from now.
type seeder struct {
	store allocation.Store
	now   time.Time
	err   error
}

func (s *seeder) day(daysAgo int) string {
	return s.now.AddDate(0, 0, -daysAgo).Format(allocation.DateLayout)
}

func (s *seeder) batch(ctx context.Context, id, code, desc, status string) allocation.Batch {
	b := allocation.Batch{ID: id, BatchCode: code, Description: desc, Status: status, CreatedAt: s.now.AddDate(0, 0, -21)}
	if s.err == nil {
		s.err = s.store.SaveBatch(ctx, b)
	}
	return b
}

func (s *seeder) user(ctx context.Context, id, username, first, last, role string) allocation.User {
	u := allocation.User{ID: id, Username: username, FirstName: first, LastName: last, Role: role}
	if s.err == nil {
		s.err = s.store.SaveUser(ctx, u)
	}
	return u
}

func (s *seeder) workforce(ctx context.Context, b allocation.Batch, u allocation.User, role allocation.Role, fromDaysAgo, toDaysAgo int) {
	if s.err != nil {
		return
	}
	start, end := s.day(fromDaysAgo), s.day(toDaysAgo)
	days := allocation.Duration(start, end)
	created, _ := allocation.ParseDay(start)
	s.err = s.store.AppendWorkforce(ctx, allocation.WorkforceAllocation{
		ID:           uuid.NewString(),
		BatchID:      b.ID,
		BatchNumber:  b.BatchCode,
		UserID:       u.ID,
		RoleAssigned: role,
		StartDate:    start,
		EndDate:      end,
		DurationDays: &days,
		AllocatedBy:  "scenario",
		CreatedAt:    created,
	})
}

func (s *seeder) material(ctx context.Context, b allocation.Batch, name, qty string, unit allocation.Unit, cost, supplier string, daysAgo int) {
	if s.err != nil {
		return
	}
	created, _ := allocation.ParseDay(s.day(daysAgo))
	m := allocation.MaterialAllocation{
		ID:           uuid.NewString(),
		BatchID:      b.ID,
		BatchNumber:  b.BatchCode,
		MaterialName: name,
		Quantity:     decimal.NewNullDecimal(decimal.RequireFromString(qty)),
		Unit:         unit,
		Supplier:     supplier,
		AllocatedBy:  "scenario",
		CreatedAt:    created.Add(9 * time.Hour),
	}
	if cost != "" {
		m.CostPerUnit = decimal.NewNullDecimal(decimal.RequireFromString(cost))
	}
	s.err = s.store.AppendMaterial(ctx, m)
}
