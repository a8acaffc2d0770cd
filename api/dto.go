/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Reference data and
  allocation payloads reuse the wire types in package backend, so this
  service speaks exactly the contract its upstream speaks.

ENVELOPE:
  Every response is {success, data?, errors?, message?}:
  - success: false with errors for field validation failures (400)
  - success: false with message for everything else

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
  - backend/types.go: Shared wire types
*/
package api

import (
	"time"

	"github.com/warp/textile-ops/allocation"
	"github.com/warp/textile-ops/filter"
)

// =============================================================================
// ENVELOPE
// =============================================================================

// Response is the envelope written by every handler.
type Response struct {
	Success bool                   `json:"success"`
	Data    any                    `json:"data,omitempty"`
	Errors  allocation.FieldErrors `json:"errors,omitempty"`
	Message string                 `json:"message,omitempty"`
	Details string                 `json:"details,omitempty"`
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

// WorkforceAllocationDTO represents a workforce allocation in API responses.
type WorkforceAllocationDTO struct {
	ID           string `json:"id"`
	Batch        string `json:"batch"`
	BatchNumber  string `json:"batch_number,omitempty"`
	User         string `json:"user"`
	RoleAssigned string `json:"role_assigned"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	DurationDays *int   `json:"duration_days"`
	AllocatedBy  string `json:"allocated_by,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func toWorkforceDTO(w allocation.WorkforceAllocation) WorkforceAllocationDTO {
	return WorkforceAllocationDTO{
		ID:           w.ID,
		Batch:        w.BatchID,
		BatchNumber:  w.BatchNumber,
		User:         w.UserID,
		RoleAssigned: string(w.RoleAssigned),
		StartDate:    w.StartDate,
		EndDate:      w.EndDate,
		DurationDays: w.DurationDays,
		AllocatedBy:  w.AllocatedBy,
		CreatedAt:    w.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// MaterialAllocationDTO represents a material allocation in API responses.
type MaterialAllocationDTO struct {
	ID           string `json:"id"`
	Batch        string `json:"batch"`
	BatchNumber  string `json:"batch_number,omitempty"`
	MaterialName string `json:"material_name"`
	Quantity     string `json:"quantity"`
	Unit         string `json:"unit"`
	CostPerUnit  string `json:"cost_per_unit,omitempty"`
	TotalCost    string `json:"total_cost"`
	Supplier     string `json:"supplier,omitempty"`
	AllocatedBy  string `json:"allocated_by,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func toMaterialDTO(m allocation.MaterialAllocation) MaterialAllocationDTO {
	dto := MaterialAllocationDTO{
		ID:           m.ID,
		Batch:        m.BatchID,
		BatchNumber:  m.BatchNumber,
		MaterialName: m.MaterialName,
		Unit:         string(m.Unit),
		TotalCost:    m.TotalCost().String(),
		Supplier:     m.Supplier,
		AllocatedBy:  m.AllocatedBy,
		CreatedAt:    m.CreatedAt.UTC().Format(time.RFC3339),
	}
	if m.Quantity.Valid {
		dto.Quantity = m.Quantity.Decimal.String()
	}
	if m.CostPerUnit.Valid {
		dto.CostPerUnit = m.CostPerUnit.Decimal.String()
	}
	return dto
}

// ValidateDatesRequest is the body of POST /api/allocations/validate-dates.
type ValidateDatesRequest struct {
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

// =============================================================================
// ROLES
// =============================================================================

// RolesDTO is the role selector content for one user.
type RolesDTO struct {
	BaseRole string                  `json:"base_role"`
	Roles    []allocation.RoleChoice `json:"roles"`
}

// =============================================================================
// FILTERS
// =============================================================================

// FilterDTO is a canonical filter with its derived forms.
type FilterDTO struct {
	Filter        filter.State   `json:"filter"`
	Query         string         `json:"query"`
	ActiveFilters []filter.Badge `json:"active_filters"`
}

func toFilterDTO(s filter.State) FilterDTO {
	return FilterDTO{Filter: s, Query: s.Query().Encode(), ActiveFilters: s.ActiveFilters()}
}

// PresetRequest is the body of POST /api/filters/preset.
type PresetRequest struct {
	Filter filter.Raw    `json:"filter"`
	Preset filter.Preset `json:"preset"`
}

// ToggleRequest is the body of POST /api/filters/toggle.
type ToggleRequest struct {
	Filter    filter.Raw       `json:"filter"`
	Dimension filter.Dimension `json:"dimension"`
	Value     string           `json:"value"`
}

// =============================================================================
// REPORTS
// =============================================================================

// ArchivedReportDTO is an archive entry without its payload.
type ArchivedReportDTO struct {
	ID          string            `json:"id"`
	GeneratedAt string            `json:"generated_at"`
	Period      allocation.Period `json:"period"`
	Trigger     string            `json:"trigger"`
}

func toArchivedReportDTO(r allocation.ArchivedReport) ArchivedReportDTO {
	return ArchivedReportDTO{
		ID:          r.ID,
		GeneratedAt: r.GeneratedAt.UTC().Format(time.RFC3339),
		Period:      r.Period,
		Trigger:     r.Trigger,
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}
