/*
Package report builds allocation reports for a filter window and archives them.

PURPOSE:
  Bridges storage and the pure aggregations in package allocation. A report
  is generated on demand (HTTP) or on a schedule, and may be archived as a
  JSON snapshot in one or more ReportArchive backends.

FLOW:
  filter.State -> Window -> Store.ListWorkforce / ListMaterial
               -> UtilizationByRole, CostByMaterial, ProductivityByBatch, Summarize
               -> Report -> (optional) Archive

SEE ALSO:
  - allocation/stats.go: The aggregations
  - scheduler: Nightly generation
*/
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/textile-ops/allocation"
	"github.com/warp/textile-ops/filter"
)

// Triggers recorded on archived reports.
const (
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
)

// Report is a generated report. It is also the archived JSON payload.
type Report struct {
	ID            string                         `json:"id"`
	GeneratedAt   time.Time                      `json:"generated_at"`
	Period        allocation.Period              `json:"period"`
	Filter        filter.State                   `json:"filter"`
	ActiveFilters []filter.Badge                 `json:"active_filters"`
	Utilization   []allocation.RoleUtilization   `json:"utilization"`
	Costs         []allocation.MaterialCost      `json:"costs"`
	Productivity  []allocation.BatchProductivity `json:"productivity"`
	Summary       allocation.Summary             `json:"summary"`
}

// Service generates and archives reports.
type Service struct {
	store    allocation.Store
	archives []allocation.ReportArchive
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a report service. archives may be empty.
func NewService(store allocation.Store, logger *zap.Logger, archives ...allocation.ReportArchive) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, archives: archives, logger: logger, now: time.Now}
}

// WithClock sets the time source used for GeneratedAt and default windows.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Now returns the service's current time.
func (s *Service) Now() time.Time { return s.now() }

// Generate loads the allocations inside st's window and aggregates them.
func (s *Service) Generate(ctx context.Context, st filter.State) (*Report, error) {
	window := st.Window()

	workforce, err := s.store.ListWorkforce(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to load workforce allocations: %w", err)
	}
	material, err := s.store.ListMaterial(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to load material allocations: %w", err)
	}

	r := &Report{
		ID:            uuid.NewString(),
		GeneratedAt:   s.now().UTC(),
		Period:        window,
		Filter:        st,
		ActiveFilters: st.ActiveFilters(),
		Utilization:   allocation.UtilizationByRole(workforce),
		Costs:         allocation.CostByMaterial(material),
		Productivity:  allocation.ProductivityByBatch(allocation.Records(workforce, material)),
		Summary:       allocation.Summarize(workforce, material),
	}

	s.logger.Debug("report generated",
		zap.String("report_id", r.ID),
		zap.Stringer("period", window),
		zap.Int("workforce", len(workforce)),
		zap.Int("material", len(material)),
	)
	return r, nil
}

// GenerateRecent builds the report for the default window ending now.
func (s *Service) GenerateRecent(ctx context.Context) (*Report, error) {
	return s.Generate(ctx, filter.Defaults(s.now()))
}

// Archive writes r to every configured archive. A failing archive does not
// stop the others; all failures are returned joined.
func (s *Service) Archive(ctx context.Context, r *Report, trigger string) (allocation.ArchivedReport, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return allocation.ArchivedReport{}, fmt.Errorf("failed to encode report: %w", err)
	}

	archived := allocation.ArchivedReport{
		ID:          r.ID,
		GeneratedAt: r.GeneratedAt,
		Period:      r.Period,
		Trigger:     trigger,
		Payload:     payload,
	}

	var errs []error
	for _, a := range s.archives {
		if err := a.SaveReport(ctx, archived); err != nil {
			s.logger.Error("failed to archive report", zap.String("report_id", r.ID), zap.Error(err))
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return archived, err
	}

	s.logger.Info("report archived",
		zap.String("report_id", r.ID),
		zap.String("trigger", trigger),
		zap.Int("archives", len(s.archives)),
	)
	return archived, nil
}

// History lists archived reports from the first archive, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]allocation.ArchivedReport, error) {
	if len(s.archives) == 0 {
		return []allocation.ArchivedReport{}, nil
	}
	return s.archives[0].ListReports(ctx, limit)
}
