/*
Package allocation provides the validation and derived-metrics core for
production batch allocations.

PURPOSE:
  Staff and raw material are allocated to production batches. Before an
  allocation is submitted it must be validated (dates, role compatibility,
  quantities); after allocations are stored they are folded into grouped
  reports (utilization by role, cost by material, productivity by batch).

KEY CONCEPTS IN THIS FILE (types.go):
  - Role: The role a worker holds on a batch (supervisor, operator, ...)
  - Unit: Unit of measure for a material quantity
  - WorkforceAllocation: A staff member assigned to a batch
  - MaterialAllocation: A quantity of material assigned to a batch
  - Record: Tagged union over the two allocation kinds

DESIGN PRINCIPLES:
  1. Purity: Validation and aggregation never do I/O and never panic
  2. Precision: Quantities and costs use decimal.Decimal
  3. Totality: Missing numeric fields have documented defaults

SEE ALSO:
  - dates.go: Date range validation
  - roles.go: Role compatibility filtering
  - stats.go: Grouped reports
  - payload.go: Submission payload preparation
*/
package allocation

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

// Role is the role a worker is assigned on a batch.
type Role string

const (
	RoleSupervisor  Role = "supervisor"
	RoleOperator    Role = "operator"
	RoleMaintenance Role = "maintenance"
	RoleQC          Role = "qc"
	RoleAssistant   Role = "assistant"
)

// Roles lists the assignable roles in display order.
var Roles = []Role{RoleSupervisor, RoleOperator, RoleMaintenance, RoleQC, RoleAssistant}

func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// BaseRoleAdmin may be assigned any role.
const BaseRoleAdmin = "admin"

// Unit is the unit of measure of a material quantity.
type Unit string

const (
	UnitKg     Unit = "kg"
	UnitMeters Unit = "meters"
	UnitLiters Unit = "liters"
	UnitPieces Unit = "pieces"
	UnitRolls  Unit = "rolls"
	UnitTons   Unit = "tons"
)

var Units = []Unit{UnitKg, UnitMeters, UnitLiters, UnitPieces, UnitRolls, UnitTons}

func (u Unit) Valid() bool {
	for _, known := range Units {
		if u == known {
			return true
		}
	}
	return false
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// Batch is a production run that allocations point at.
type Batch struct {
	ID          string
	BatchCode   string
	Description string
	Status      string
	CreatedAt   time.Time
}

// User is a person that can be allocated to a batch. Role is the base role
// of the account, not the role held on a batch.
type User struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Role      string
}

// FullName returns "First Last", falling back to the username.
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

// WorkforceAllocation assigns a user to a batch for a period. Dates are
// canonical YYYY-MM-DD strings; an empty string means the date is absent.
type WorkforceAllocation struct {
	ID           string
	BatchID      string
	BatchNumber  string
	UserID       string
	RoleAssigned Role
	StartDate    string
	EndDate      string
	DurationDays *int
	AllocatedBy  string
	CreatedAt    time.Time
}

// Days returns DurationDays, or 1 when it is absent.
func (w WorkforceAllocation) Days() int {
	if w.DurationDays == nil {
		return 1
	}
	return *w.DurationDays
}

// MaterialAllocation assigns a quantity of material to a batch.
type MaterialAllocation struct {
	ID           string
	BatchID      string
	BatchNumber  string
	MaterialName string
	Quantity     decimal.NullDecimal
	Unit         Unit
	CostPerUnit  decimal.NullDecimal
	Supplier     string
	AllocatedBy  string
	CreatedAt    time.Time
}

// TotalCost is quantity × cost per unit; a missing operand counts as zero.
func (m MaterialAllocation) TotalCost() decimal.Decimal {
	return orZero(m.Quantity).Mul(orZero(m.CostPerUnit))
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// =============================================================================
// RECORD - Tagged union over allocation kinds
// =============================================================================

type RecordKind string

const (
	KindWorkforce RecordKind = "workforce"
	KindMaterial  RecordKind = "material"
)

// Record is either a WorkforceRecord or a MaterialRecord. The interface is
// sealed; switch on the concrete type or on Kind().
type Record interface {
	Kind() RecordKind
	Batch() string
	isRecord()
}

type WorkforceRecord struct{ WorkforceAllocation }

type MaterialRecord struct{ MaterialAllocation }

func (WorkforceRecord) Kind() RecordKind { return KindWorkforce }
func (MaterialRecord) Kind() RecordKind { return KindMaterial }
func (r WorkforceRecord) Batch() string { return r.BatchNumber }
func (r MaterialRecord) Batch() string { return r.BatchNumber }
func (WorkforceRecord) isRecord() {}
func (MaterialRecord) isRecord() {}

func Workforce(w WorkforceAllocation) Record { return WorkforceRecord{w} }
func Material(m MaterialAllocation) Record { return MaterialRecord{m} }

// Records merges both allocation kinds, workforce first.
func Records(workforce []WorkforceAllocation, material []MaterialAllocation) []Record {
	out := make([]Record, 0, len(workforce)+len(material))
	for _, w := range workforce {
		out = append(out, Workforce(w))
	}
	for _, m := range material {
		out = append(out, Material(m))
	}
	return out
}
