/*
scheduler.go - Scheduled report archiving and reference data sync

PURPOSE:
  Runs the service's periodic jobs on cron schedules:
  - Report job: generates the default-window report and archives it
  - Sync job: pulls batches and users from the upstream backend into the
    local store, so allocation forms can resolve references offline

CONFIGURATION:
  - REPORT_CRON: report job schedule (default: "0 20 * * *")
  - SYNC_CRON:   sync job schedule, only scheduled when an upstream is set
  - TIMEZONE:    location the schedules are evaluated in

USAGE:
  s := scheduler.New(cfg, reports, store, client, logger)
  if err := s.Start(); err != nil { ... }
  // ... later
  s.Stop()

SEE ALSO:
  - report/service.go: Report generation and archiving
  - backend/client.go: Upstream client
*/
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/warp/textile-ops/allocation"
	"github.com/warp/textile-ops/config"
	"github.com/warp/textile-ops/report"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 2 * time.Minute

// Source provides reference data from the upstream backend.
type Source interface {
	ListBatches(ctx context.Context, pageSize int) ([]allocation.Batch, error)
	ListUsers(ctx context.Context, pageSize int) ([]allocation.User, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron    *cron.Cron
	reports *report.Service
	store   allocation.Store
	source  Source
	cfg     config.Config
	logger  *zap.Logger
}

// New creates a scheduler. source may be nil, in which case the sync job is
// not scheduled.
func New(cfg config.Config, reports *report.Service, store allocation.Store, source Source, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := cfg.Location()
	if err != nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		reports: reports,
		store:   store,
		source:  source,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Reporting.CronSchedule, s.runReport); err != nil {
		return fmt.Errorf("schedule report job: %w", err)
	}
	if s.source != nil {
		if _, err := s.cron.AddFunc(s.cfg.Upstream.SyncCron, s.runSync); err != nil {
			return fmt.Errorf("schedule sync job: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("report_cron", s.cfg.Reporting.CronSchedule),
		zap.Bool("sync", s.source != nil),
		zap.Int("jobs", len(s.cron.Entries())))
	return nil
}

// Stop stops the cron runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runReport() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.ArchiveRecentReport(ctx); err != nil {
		s.logger.Error("scheduled report failed", zap.Error(err))
	}
}

func (s *Scheduler) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.SyncReferenceData(ctx); err != nil {
		s.logger.Error("reference data sync failed", zap.Error(err))
	}
}

// ArchiveRecentReport generates the default-window report and archives it.
func (s *Scheduler) ArchiveRecentReport(ctx context.Context) (allocation.ArchivedReport, error) {
	rep, err := s.reports.GenerateRecent(ctx)
	if err != nil {
		return allocation.ArchivedReport{}, fmt.Errorf("generate report: %w", err)
	}
	archived, err := s.reports.Archive(ctx, rep, report.TriggerSchedule)
	if err != nil {
		return archived, fmt.Errorf("archive report %s: %w", rep.ID, err)
	}

	s.logger.Info("scheduled report archived",
		zap.String("report_id", archived.ID),
		zap.Stringer("period", archived.Period),
		zap.String("total_cost", rep.Summary.TotalCost.String()))
	return archived, nil
}

// SyncResult counts the records copied by one sync run.
type SyncResult struct {
	Batches int
	Users   int
}

// SyncReferenceData copies batches and users from the source into the store.
// Records already copied are kept when a later page fails.
func (s *Scheduler) SyncReferenceData(ctx context.Context) (SyncResult, error) {
	var result SyncResult
	if s.source == nil {
		return result, nil
	}
	pageSize := s.cfg.Upstream.PageSize

	batches, err := s.source.ListBatches(ctx, pageSize)
	if err != nil {
		return result, fmt.Errorf("fetch batches: %w", err)
	}
	for _, b := range batches {
		if err := s.store.SaveBatch(ctx, b); err != nil {
			return result, fmt.Errorf("save batch %s: %w", b.ID, err)
		}
		result.Batches++
	}

	users, err := s.source.ListUsers(ctx, pageSize)
	if err != nil {
		return result, fmt.Errorf("fetch users: %w", err)
	}
	for _, u := range users {
		if err := s.store.SaveUser(ctx, u); err != nil {
			return result, fmt.Errorf("save user %s: %w", u.ID, err)
		}
		result.Users++
	}

	s.logger.Info("reference data synced",
		zap.Int("batches", result.Batches),
		zap.Int("users", result.Users))
	return result, nil
}
