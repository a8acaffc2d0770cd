/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements allocation.Store and allocation.ReportArchive using SQLite.
  The service runs happily on a single file next to the binary; the same
  schema ports to PostgreSQL with minor dialect changes.

INTERFACES IMPLEMENTED:
  allocation.Store:         Batches, users, workforce and material allocations
  allocation.ReportArchive: Generated report snapshots

APPEND-ONLY ENFORCEMENT:
  Allocation tables are append-only:
  - No UPDATE statements on allocation tables
  - No DELETE statements outside Reset
  - Corrections are new allocations

KEY TABLES:
  batches:               Production batches (reference data)
  users:                 Staff that can be allocated (reference data)
  workforce_allocations: Staff assigned to batches
  material_allocations:  Material assigned to batches
  reports:               Archived report payloads

DECIMALS:
  Quantities and unit costs are stored as TEXT and read back through
  decimal.NullDecimal, so no precision is lost to REAL.

INDEXES:
  - idx_workforce_effective_day: Report window scans (hot path)
  - idx_material_effective_day:  Report window scans (hot path)
  - idx_workforce_batch / idx_material_batch: Per-batch lookups

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. With PostgreSQL, database-level
  concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/textile.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - allocation/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/textile-ops/allocation"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		batch_code TEXT NOT NULL,
		description TEXT,
		status TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		first_name TEXT,
		last_name TEXT,
		role TEXT
	);

	-- Workforce allocations (append-only)
	CREATE TABLE IF NOT EXISTS workforce_allocations (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL,
		batch_number TEXT,
		user_id TEXT NOT NULL,
		role_assigned TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		duration_days INTEGER,
		effective_day TEXT NOT NULL,
		allocated_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_workforce_effective_day
		ON workforce_allocations(effective_day);
	CREATE INDEX IF NOT EXISTS idx_workforce_batch
		ON workforce_allocations(batch_id);

	-- Material allocations (append-only)
	CREATE TABLE IF NOT EXISTS material_allocations (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL,
		batch_number TEXT,
		material_name TEXT NOT NULL,
		quantity TEXT,
		unit TEXT NOT NULL,
		cost_per_unit TEXT,
		supplier TEXT,
		effective_day TEXT NOT NULL,
		allocated_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_material_effective_day
		ON material_allocations(effective_day);
	CREATE INDEX IF NOT EXISTS idx_material_batch
		ON material_allocations(batch_id);

	-- Archived reports
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		generated_at TEXT NOT NULL,
		period_start TEXT,
		period_end TEXT,
		source TEXT NOT NULL,
		payload_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_generated_at
		ON reports(generated_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// SaveBatch inserts or replaces a batch.
func (s *Store) SaveBatch(ctx context.Context, b allocation.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO batches (id, batch_code, description, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			batch_code = excluded.batch_code,
			description = excluded.description,
			status = excluded.status
	`

	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query,
		b.ID, b.BatchCode, nullString(b.Description), nullString(b.Status),
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch by ID.
func (s *Store) GetBatch(ctx context.Context, id string) (*allocation.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, batch_code, description, status, created_at FROM batches WHERE id = ?", id)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, allocation.ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBatches returns batches newest first.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]allocation.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, batch_code, description, status, created_at FROM batches ORDER BY created_at DESC, id LIMIT ?",
		sqlLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	batches := []allocation.Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// SaveUser inserts or replaces a user.
func (s *Store) SaveUser(ctx context.Context, u allocation.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (id, username, first_name, last_name, role)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			role = excluded.role
	`

	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Username, nullString(u.FirstName), nullString(u.LastName), nullString(u.Role))
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*allocation.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, first_name, last_name, role FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, allocation.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns users ordered by username.
func (s *Store) ListUsers(ctx context.Context, limit int) ([]allocation.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, username, first_name, last_name, role FROM users ORDER BY username LIMIT ?",
		sqlLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []allocation.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

// AppendWorkforce adds a workforce allocation.
func (s *Store) AppendWorkforce(ctx context.Context, w allocation.WorkforceAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO workforce_allocations
		(id, batch_id, batch_number, user_id, role_assigned, start_date, end_date,
		 duration_days, effective_day, allocated_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var duration sql.NullInt64
	if w.DurationDays != nil {
		duration = sql.NullInt64{Int64: int64(*w.DurationDays), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		w.ID, w.BatchID, nullString(w.BatchNumber), w.UserID, string(w.RoleAssigned),
		nullString(w.StartDate), nullString(w.EndDate), duration, w.EffectiveDay(),
		nullString(w.AllocatedBy), w.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return allocation.ErrDuplicateID
		}
		return fmt.Errorf("failed to append workforce allocation: %w", err)
	}
	return nil
}

// AppendMaterial adds a material allocation.
func (s *Store) AppendMaterial(ctx context.Context, m allocation.MaterialAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO material_allocations
		(id, batch_id, batch_number, material_name, quantity, unit, cost_per_unit,
		 supplier, effective_day, allocated_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.BatchID, nullString(m.BatchNumber), m.MaterialName, m.Quantity, string(m.Unit),
		m.CostPerUnit, nullString(m.Supplier), m.EffectiveDay(),
		nullString(m.AllocatedBy), m.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return allocation.ErrDuplicateID
		}
		return fmt.Errorf("failed to append material allocation: %w", err)
	}
	return nil
}

// ListWorkforce returns workforce allocations whose effective day is in p.
func (s *Store) ListWorkforce(ctx context.Context, p allocation.Period) ([]allocation.WorkforceAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := periodClause(p)
	query := `
		SELECT id, batch_id, batch_number, user_id, role_assigned, start_date, end_date,
		       duration_days, allocated_by, created_at
		FROM workforce_allocations` + where + `
		ORDER BY effective_day ASC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workforce allocations: %w", err)
	}
	defer rows.Close()

	result := []allocation.WorkforceAllocation{}
	for rows.Next() {
		var (
			w                                    allocation.WorkforceAllocation
			role, createdAt                      string
			batchNumber, start, end, allocatedBy sql.NullString
			duration                             sql.NullInt64
		)
		if err := rows.Scan(&w.ID, &w.BatchID, &batchNumber, &w.UserID, &role,
			&start, &end, &duration, &allocatedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan workforce allocation: %w", err)
		}
		w.BatchNumber = batchNumber.String
		w.RoleAssigned = allocation.Role(role)
		w.StartDate = start.String
		w.EndDate = end.String
		if duration.Valid {
			d := int(duration.Int64)
			w.DurationDays = &d
		}
		w.AllocatedBy = allocatedBy.String
		w.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		result = append(result, w)
	}
	return result, rows.Err()
}

// ListMaterial returns material allocations whose effective day is in p.
func (s *Store) ListMaterial(ctx context.Context, p allocation.Period) ([]allocation.MaterialAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := periodClause(p)
	query := `
		SELECT id, batch_id, batch_number, material_name, quantity, unit, cost_per_unit,
		       supplier, allocated_by, created_at
		FROM material_allocations` + where + `
		ORDER BY effective_day ASC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query material allocations: %w", err)
	}
	defer rows.Close()

	result := []allocation.MaterialAllocation{}
	for rows.Next() {
		var (
			m                                  allocation.MaterialAllocation
			unit, createdAt                    string
			batchNumber, supplier, allocatedBy sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.BatchID, &batchNumber, &m.MaterialName, &m.Quantity, &unit,
			&m.CostPerUnit, &supplier, &allocatedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan material allocation: %w", err)
		}
		m.BatchNumber = batchNumber.String
		m.Unit = allocation.Unit(unit)
		m.Supplier = supplier.String
		m.AllocatedBy = allocatedBy.String
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		result = append(result, m)
	}
	return result, rows.Err()
}

// =============================================================================
// REPORT ARCHIVE
// =============================================================================

// SaveReport archives a generated report.
func (s *Store) SaveReport(ctx context.Context, r allocation.ArchivedReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (id, generated_at, period_start, period_end, source, payload_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.GeneratedAt.UTC().Format(time.RFC3339Nano),
		nullString(r.Period.Start), nullString(r.Period.End), r.Trigger, string(r.Payload),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return allocation.ErrDuplicateID
		}
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// ListReports returns archived reports newest first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]allocation.ArchivedReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, generated_at, period_start, period_end, source, payload_json
		FROM reports
		ORDER BY generated_at DESC, rowid DESC
		LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := []allocation.ArchivedReport{}
	for rows.Next() {
		var (
			r                      allocation.ArchivedReport
			generatedAt            string
			payload                string
			periodStart, periodEnd sql.NullString
		)
		if err := rows.Scan(&r.ID, &generatedAt, &periodStart, &periodEnd, &r.Trigger, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		r.GeneratedAt, _ = time.Parse(time.RFC3339Nano, generatedAt)
		r.Period = allocation.Period{Start: periodStart.String, End: periodEnd.String}
		r.Payload = []byte(payload)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"workforce_allocations", "material_allocations", "reports", "users", "batches"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (allocation.Batch, error) {
	var (
		b                   allocation.Batch
		description, status sql.NullString
		createdAt           string
	)
	if err := row.Scan(&b.ID, &b.BatchCode, &description, &status, &createdAt); err != nil {
		return b, err
	}
	b.Description = description.String
	b.Status = status.String
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return b, nil
}

func scanUser(row scanner) (allocation.User, error) {
	var (
		u                         allocation.User
		firstName, lastName, role sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &firstName, &lastName, &role); err != nil {
		return u, err
	}
	u.FirstName = firstName.String
	u.LastName = lastName.String
	u.Role = role.String
	return u, nil
}

// periodClause turns an inclusive period into a WHERE clause over
// effective_day. Canonical days compare correctly as text.
func periodClause(p allocation.Period) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if p.Start != "" {
		conds = append(conds, "effective_day >= ?")
		args = append(args, p.Start)
	}
	if p.End != "" {
		conds = append(conds, "effective_day <= ?")
		args = append(args, p.End)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY"))
}

var (
	_ allocation.Store         = (*Store)(nil)
	_ allocation.ReportArchive = (*Store)(nil)
)
