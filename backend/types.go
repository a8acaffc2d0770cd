package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/textile-ops/allocation"
)

// =============================================================================
// ENVELOPE
// =============================================================================

// Envelope is the response wrapper used by every endpoint:
// {success, data?, errors?, message?}.
type Envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data,omitempty"`
	Errors  map[string]Messages `json:"errors,omitempty"`
	Message string              `json:"message,omitempty"`
}

// Messages is a field error value. The wire form is either one string or a
// list of strings.
type Messages []string

func (m *Messages) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = Messages{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("field errors must be a string or a list of strings: %w", err)
	}
	*m = list
	return nil
}

// FieldErrors converts the envelope's errors.
func (e Envelope) FieldErrors() allocation.FieldErrors {
	if len(e.Errors) == 0 {
		return nil
	}
	fe := allocation.FieldErrors{}
	for field, msgs := range e.Errors {
		for _, msg := range msgs {
			fe.Add(field, msg)
		}
	}
	return fe
}

// ErrorMessage is a single display string for a failed envelope: the field
// errors joined as "field: message" pairs, else the message.
func (e Envelope) ErrorMessage() string {
	if fe := e.FieldErrors(); !fe.Empty() {
		return fe.Flatten("; ")
	}
	if e.Message != "" {
		return e.Message
	}
	return "request failed"
}

// Page is the paginated list shape inside Envelope.Data.
type Page[T any] struct {
	Count   int    `json:"count,omitempty"`
	Next    string `json:"next,omitempty"`
	Results []T    `json:"results"`
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// ID accepts both numeric and string identifiers.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Batch is the wire form of allocation.Batch.
type Batch struct {
	ID          ID     `json:"id"`
	BatchCode   string `json:"batch_code"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func BatchFrom(b allocation.Batch) Batch {
	dto := Batch{ID: ID(b.ID), BatchCode: b.BatchCode, Description: b.Description, Status: b.Status}
	if !b.CreatedAt.IsZero() {
		dto.CreatedAt = b.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func (b Batch) Domain() allocation.Batch {
	created, _ := time.Parse(time.RFC3339, b.CreatedAt)
	return allocation.Batch{
		ID:          string(b.ID),
		BatchCode:   b.BatchCode,
		Description: b.Description,
		Status:      b.Status,
		CreatedAt:   created,
	}
}

// User is the wire form of allocation.User.
type User struct {
	ID        ID     `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func UserFrom(u allocation.User) User {
	return User{ID: ID(u.ID), Username: u.Username, FirstName: u.FirstName, LastName: u.LastName, Role: u.Role}
}

func (u User) Domain() allocation.User {
	return allocation.User{
		ID:        string(u.ID),
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

// =============================================================================
// ALLOCATION PAYLOADS
// =============================================================================

// WorkforcePayload is the body for creating a workforce allocation.
type WorkforcePayload struct {
	Batch        string  `json:"batch"`
	User         string  `json:"user"`
	RoleAssigned string  `json:"role_assigned"`
	StartDate    *string `json:"start_date,omitempty"`
	EndDate      *string `json:"end_date,omitempty"`
	AllocatedBy  string  `json:"allocated_by,omitempty"`
}

func (p WorkforcePayload) Request() allocation.WorkforceRequest {
	return allocation.WorkforceRequest{
		BatchID:      p.Batch,
		UserID:       p.User,
		RoleAssigned: p.RoleAssigned,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		AllocatedBy:  p.AllocatedBy,
	}
}

// WorkforcePayloadFrom builds the body for an already prepared allocation.
func WorkforcePayloadFrom(w allocation.WorkforceAllocation) WorkforcePayload {
	return WorkforcePayload{
		Batch:        w.BatchID,
		User:         w.UserID,
		RoleAssigned: string(w.RoleAssigned),
		StartDate:    optional(w.StartDate),
		EndDate:      optional(w.EndDate),
		AllocatedBy:  w.AllocatedBy,
	}
}

// MaterialPayload is the body for creating a material allocation.
type MaterialPayload struct {
	Batch        string              `json:"batch"`
	MaterialName string              `json:"material_name"`
	Quantity     decimal.NullDecimal `json:"quantity"`
	Unit         string              `json:"unit"`
	CostPerUnit  decimal.NullDecimal `json:"cost_per_unit"`
	Supplier     string              `json:"supplier,omitempty"`
	AllocatedBy  string              `json:"allocated_by,omitempty"`
}

func (p MaterialPayload) Request() allocation.MaterialRequest {
	return allocation.MaterialRequest{
		BatchID:      p.Batch,
		MaterialName: p.MaterialName,
		Quantity:     p.Quantity,
		Unit:         p.Unit,
		CostPerUnit:  p.CostPerUnit,
		Supplier:     p.Supplier,
		AllocatedBy:  p.AllocatedBy,
	}
}

func MaterialPayloadFrom(m allocation.MaterialAllocation) MaterialPayload {
	return MaterialPayload{
		Batch:        m.BatchID,
		MaterialName: m.MaterialName,
		Quantity:     m.Quantity,
		Unit:         string(m.Unit),
		CostPerUnit:  m.CostPerUnit,
		Supplier:     m.Supplier,
		AllocatedBy:  m.AllocatedBy,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
