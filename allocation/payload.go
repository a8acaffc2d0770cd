package allocation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field-level messages, worded like the upstream's own validation errors.
const (
	msgRequired      = "This field is required."
	msgBatchNotFound = "Batch not found."
	msgUserNotFound  = "User not found."
	msgNegative      = "Ensure this value is greater than or equal to 0."
)

// WorkforceRequest is the submission for a new workforce allocation.
type WorkforceRequest struct {
	BatchID      string
	UserID       string
	RoleAssigned string
	StartDate    *string
	EndDate      *string
	AllocatedBy  string
}

// MaterialRequest is the submission for a new material allocation.
type MaterialRequest struct {
	BatchID      string
	MaterialName string
	Quantity     decimal.NullDecimal
	Unit         string
	CostPerUnit  decimal.NullDecimal
	Supplier     string
	AllocatedBy  string
}

// PrepareWorkforce validates req and builds the allocation to submit. batch
// and user are the resolved references, nil when the lookup failed.
//
// Unlike the role selector, an incompatible role here is an error: the
// upstream rejects it, so there is nothing to fall back to.
func (v *Validator) PrepareWorkforce(req WorkforceRequest, batch *Batch, user *User) (WorkforceAllocation, FieldErrors) {
	errs := FieldErrors{}

	switch {
	case strings.TrimSpace(req.BatchID) == "":
		errs.Add("batch", msgRequired)
	case batch == nil:
		errs.Add("batch", msgBatchNotFound)
	}
	switch {
	case strings.TrimSpace(req.UserID) == "":
		errs.Add("user", msgRequired)
	case user == nil:
		errs.Add("user", msgUserNotFound)
	}

	role := Role(strings.TrimSpace(req.RoleAssigned))
	switch {
	case role == "":
		errs.Add("role_assigned", msgRequired)
	case !role.Valid():
		errs.Add("role_assigned", fmt.Sprintf("%q is not a valid choice.", role))
	case user != nil && !IsCompatible(role, user.Role):
		errs.Add("role_assigned", fmt.Sprintf("Role %q is not compatible with user role %q.", role, user.Role))
	}

	dates := v.ValidateDates(req.StartDate, req.EndDate)
	if dates.Errors.Start != "" {
		errs.Add("start_date", dates.Errors.Start)
	}
	if dates.Errors.End != "" {
		errs.Add("end_date", dates.Errors.End)
	}

	if !errs.Empty() {
		return WorkforceAllocation{}, errs
	}

	days := Duration(dates.Normalized.Start, dates.Normalized.End)
	alloc := WorkforceAllocation{
		ID:           uuid.NewString(),
		BatchID:      batch.ID,
		BatchNumber:  batch.BatchCode,
		UserID:       user.ID,
		RoleAssigned: role,
		StartDate:    dates.Normalized.Start,
		EndDate:      dates.Normalized.End,
		DurationDays: &days,
		AllocatedBy:  req.AllocatedBy,
		CreatedAt:    v.now().UTC(),
	}
	return alloc, nil
}

// PrepareMaterial validates req and builds the allocation to submit.
func (v *Validator) PrepareMaterial(req MaterialRequest, batch *Batch) (MaterialAllocation, FieldErrors) {
	errs := FieldErrors{}

	switch {
	case strings.TrimSpace(req.BatchID) == "":
		errs.Add("batch", msgRequired)
	case batch == nil:
		errs.Add("batch", msgBatchNotFound)
	}

	name := strings.TrimSpace(req.MaterialName)
	if name == "" {
		errs.Add("material_name", msgRequired)
	}

	unit := Unit(strings.TrimSpace(req.Unit))
	switch {
	case unit == "":
		errs.Add("unit", msgRequired)
	case !unit.Valid():
		errs.Add("unit", fmt.Sprintf("%q is not a valid choice.", unit))
	}

	switch {
	case !req.Quantity.Valid:
		errs.Add("quantity", msgRequired)
	case req.Quantity.Decimal.IsNegative():
		errs.Add("quantity", msgNegative)
	}
	if req.CostPerUnit.Valid && req.CostPerUnit.Decimal.IsNegative() {
		errs.Add("cost_per_unit", msgNegative)
	}

	if !errs.Empty() {
		return MaterialAllocation{}, errs
	}

	return MaterialAllocation{
		ID:           uuid.NewString(),
		BatchID:      batch.ID,
		BatchNumber:  batch.BatchCode,
		MaterialName: name,
		Quantity:     req.Quantity,
		Unit:         unit,
		CostPerUnit:  req.CostPerUnit,
		Supplier:     strings.TrimSpace(req.Supplier),
		AllocatedBy:  req.AllocatedBy,
		CreatedAt:    v.now().UTC(),
	}, nil
}
