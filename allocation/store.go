/*
store.go - Persistence interfaces for batches, users, allocations and reports

PURPOSE:
  Defines the boundary between the allocation core and storage. The core
  itself never calls a store; the report service and the HTTP API do.

KEY INTERFACES:
  Store:         Batches, users and both allocation kinds
  ReportArchive: Generated reports kept for later retrieval

APPEND-ONLY ALLOCATIONS:
  Allocations are appended and listed, never updated. A correction is a
  new allocation.

IMPLEMENTATIONS:
  - store/sqlite: SQLite (Store and ReportArchive)
  - store/memory: In-memory for tests and dev (Store and ReportArchive)
  - store/mongodb: MongoDB (ReportArchive)
*/
package allocation

import (
	"context"
	"time"
)

// Store persists reference data and allocations.
type Store interface {
	SaveBatch(ctx context.Context, b Batch) error
	// GetBatch returns ErrBatchNotFound when id is unknown.
	GetBatch(ctx context.Context, id string) (*Batch, error)
	// ListBatches returns at most limit batches, newest first. limit <= 0 means no limit.
	ListBatches(ctx context.Context, limit int) ([]Batch, error)

	SaveUser(ctx context.Context, u User) error
	// GetUser returns ErrUserNotFound when id is unknown.
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context, limit int) ([]User, error)

	// AppendWorkforce returns ErrDuplicateID if the id exists.
	AppendWorkforce(ctx context.Context, w WorkforceAllocation) error
	AppendMaterial(ctx context.Context, m MaterialAllocation) error

	// ListWorkforce returns allocations whose EffectiveDay is in p, oldest first.
	ListWorkforce(ctx context.Context, p Period) ([]WorkforceAllocation, error)
	// ListMaterial returns allocations whose EffectiveDay is in p, oldest first.
	ListMaterial(ctx context.Context, p Period) ([]MaterialAllocation, error)

	// Reset removes everything. Used by demo scenarios.
	Reset(ctx context.Context) error
}

// ArchivedReport is a generated report serialized for storage.
type ArchivedReport struct {
	ID          string
	GeneratedAt time.Time
	Period      Period
	Trigger     string // "api", "schedule"
	Payload     []byte // JSON
}

// ReportArchive stores generated reports.
type ReportArchive interface {
	SaveReport(ctx context.Context, r ArchivedReport) error
	ListReports(ctx context.Context, limit int) ([]ArchivedReport, error)
}
