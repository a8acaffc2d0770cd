package allocation

import (
	"go.uber.org/zap"
)

// RoleChoice is a selectable role option.
type RoleChoice struct {
	Value Role   `json:"value"`
	Label string `json:"label"`
}

// DefaultRoleChoices returns the fixed role enumeration in display order.
func DefaultRoleChoices() []RoleChoice {
	return []RoleChoice{
		{Value: RoleSupervisor, Label: "Supervisor"},
		{Value: RoleOperator, Label: "Operator"},
		{Value: RoleMaintenance, Label: "Maintenance"},
		{Value: RoleQC, Label: "Quality Control"},
		{Value: RoleAssistant, Label: "Assistant"},
	}
}

// Compatibility maps each assignable role to the base user roles allowed to
// hold it. It mirrors the table the upstream enforces on submission.
var Compatibility = map[Role][]string{
	RoleOperator:    {"technician", "operator"},
	RoleMaintenance: {"technician", "maintenance", "inspector"},
	RoleQC:          {"inspector", "qc"},
	RoleSupervisor:  {"supervisor"},
	RoleAssistant:   {"technician", "assistant"},
}

// IsCompatible reports whether a user with baseRole may be assigned role.
// Admins may hold any role.
func IsCompatible(role Role, baseRole string) bool {
	if baseRole == BaseRoleAdmin {
		return true
	}
	for _, allowed := range Compatibility[role] {
		if allowed == baseRole {
			return true
		}
	}
	return false
}

// CompatibleRoles narrows choices to the roles baseRole may hold.
//
// An empty baseRole (no user selected) and "admin" return choices unchanged.
// When narrowing leaves nothing, for instance an unknown base role, the full
// list is returned and fellBack is true: the selector must never be left
// without options.
func CompatibleRoles(choices []RoleChoice, baseRole string) (result []RoleChoice, fellBack bool) {
	if baseRole == "" || baseRole == BaseRoleAdmin {
		return choices, false
	}

	for _, c := range choices {
		if IsCompatible(c.Value, baseRole) {
			result = append(result, c)
		}
	}
	if len(result) == 0 && len(choices) > 0 {
		return choices, true
	}
	if result == nil {
		result = []RoleChoice{}
	}
	return result, false
}

// RoleFilter is CompatibleRoles with a diagnostic on fallback.
type RoleFilter struct {
	logger *zap.Logger
}

func NewRoleFilter(logger *zap.Logger) *RoleFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleFilter{logger: logger}
}

// Filter returns the choices assignable to a user with baseRole.
func (f *RoleFilter) Filter(choices []RoleChoice, baseRole string) []RoleChoice {
	result, fellBack := CompatibleRoles(choices, baseRole)
	if fellBack {
		f.logger.Warn("no compatible roles for base role, showing all roles",
			zap.String("base_role", baseRole),
			zap.Int("choices", len(choices)))
	}
	return result
}
