package scheduler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warp/textile-ops/allocation"
	"github.com/warp/textile-ops/backend"
	"github.com/warp/textile-ops/config"
	"github.com/warp/textile-ops/report"
	"github.com/warp/textile-ops/store/memory"
)

var testNow = time.Date(2025, time.June, 10, 20, 0, 0, 0, time.UTC)

type fakeSource struct {
	batches  []allocation.Batch
	users    []allocation.User
	usersErr error
	pageSize int
}

func (f *fakeSource) ListBatches(_ context.Context, pageSize int) ([]allocation.Batch, error) {
	f.pageSize = pageSize
	return f.batches, nil
}

func (f *fakeSource) ListUsers(_ context.Context, _ int) ([]allocation.User, error) {
	return f.users, f.usersErr
}

func testConfig() config.Config {
	return config.Config{
		Upstream:  config.UpstreamConfig{PageSize: 50, SyncCron: "*/15 * * * *"},
		Reporting: config.ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "UTC"},
	}
}

func newScheduler(t *testing.T, source Source) (*Scheduler, *memory.Store) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := memory.New()
	reports := report.NewService(store, logger, store).WithClock(func() time.Time { return testNow })
	return New(testConfig(), reports, store, source, logger), store
}

func TestArchiveRecentReport(t *testing.T) {
	// GIVEN: One material allocation recorded a week ago
	// WHEN: The report job runs
	// THEN: A report over the last 30 days is archived with the schedule trigger

	s, store := newScheduler(t, nil)
	ctx := context.Background()
	require.NoError(t, store.AppendMaterial(ctx, allocation.MaterialAllocation{
		ID:           "m1",
		BatchNumber:  "WV-101",
		MaterialName: "Cotton yarn",
		Quantity:     decimal.NewNullDecimal(decimal.NewFromInt(10)),
		Unit:         allocation.UnitKg,
		CostPerUnit:  decimal.NewNullDecimal(decimal.RequireFromString("2.5")),
		CreatedAt:    testNow.AddDate(0, 0, -7),
	}))

	archived, err := s.ArchiveRecentReport(ctx)
	require.NoError(t, err)

	assert.Equal(t, report.TriggerSchedule, archived.Trigger)
	assert.Equal(t, allocation.Period{Start: "2025-05-11", End: "2025-06-10"}, archived.Period)
	assert.Contains(t, string(archived.Payload), `"total_cost":"25"`)

	history, err := store.ListReports(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, archived.ID, history[0].ID)
}

func TestSyncReferenceData(t *testing.T) {
	source := &fakeSource{
		batches: []allocation.Batch{{ID: "b1", BatchCode: "WV-101"}, {ID: "b2", BatchCode: "DY-201"}},
		users:   []allocation.User{{ID: "u1", Username: "ravi", Role: "technician"}},
	}
	s, store := newScheduler(t, source)
	ctx := context.Background()

	result, err := s.SyncReferenceData(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Batches: 2, Users: 1}, result)
	assert.Equal(t, 50, source.pageSize)

	b, err := store.GetBatch(ctx, "b2")
	require.NoError(t, err)
	assert.Equal(t, "DY-201", b.BatchCode)

	// Running again upserts rather than duplicating.
	_, err = s.SyncReferenceData(ctx)
	require.NoError(t, err)
	batches, err := store.ListBatches(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, batches, 2)
}

func TestSyncReferenceData_PartialFailure(t *testing.T) {
	source := &fakeSource{
		batches:  []allocation.Batch{{ID: "b1", BatchCode: "WV-101"}},
		usersErr: errors.New("upstream unavailable"),
	}
	s, store := newScheduler(t, source)
	ctx := context.Background()

	result, err := s.SyncReferenceData(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch users")
	assert.Equal(t, 1, result.Batches)

	_, err = store.GetBatch(ctx, "b1")
	assert.NoError(t, err)
}

func TestSyncReferenceData_NoSource(t *testing.T) {
	s, _ := newScheduler(t, nil)

	result, err := s.SyncReferenceData(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result)
}

func TestSyncReferenceData_FromUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/workflow/batches/":
			io.WriteString(w, `{"success":true,"data":{"count":1,"results":[{"id":3,"batch_code":"KN-302","status":"planned"}]}}`)
		case "/users/":
			io.WriteString(w, `[{"id":9,"username":"tara","role":"technician"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	client := backend.NewClient(config.UpstreamConfig{BaseURL: srv.URL})
	s, store := newScheduler(t, client)
	ctx := context.Background()

	result, err := s.SyncReferenceData(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Batches: 1, Users: 1}, result)

	u, err := store.GetUser(ctx, "9")
	require.NoError(t, err)
	assert.Equal(t, "tara", u.Username)
}

func TestStart_RegistersJobs(t *testing.T) {
	tests := []struct {
		name   string
		source Source
		want   int
	}{
		{"report only", nil, 1},
		{"report and sync", &fakeSource{}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newScheduler(t, tt.source)
			require.NoError(t, s.Start())
			defer s.Stop()

			assert.Len(t, s.cron.Entries(), tt.want)
		})
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	s, _ := newScheduler(t, nil)
	s.cfg.Reporting.CronSchedule = "every day"

	err := s.Start()
	assert.ErrorContains(t, err, "schedule report job")
}
