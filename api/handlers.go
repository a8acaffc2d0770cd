/*
handlers.go - HTTP API handlers for the allocation service

PURPOSE:
  Exposes batch allocation validation, persistence and reporting via REST.
  Handles HTTP request/response, JSON serialization, and delegates to the
  allocation, filter and report packages.

ENDPOINTS:
  Reference data:
    GET    /api/workflow/batches/       List batches (paginated envelope)
    POST   /api/workflow/batches/       Create batch
    GET    /api/users/                  List users (paginated envelope)
    POST   /api/users/                  Create user
    GET    /api/roles                   Assignable roles for a user

  Allocations:
    POST   /api/allocations/validate-dates  Validate a start/end pair
    POST   /api/allocations/workforce/      Create workforce allocation
    GET    /api/allocations/workforce/      List in filter window
    POST   /api/allocations/material/       Create material allocation
    GET    /api/allocations/material/       List in filter window

  Reports:
    GET    /api/reports/{utilization,costs,productivity,summary}
    POST   /api/reports/archive         Generate and archive
    GET    /api/reports/archive         Archived reports

  Filters:
    POST   /api/filters/normalize       Canonical state, query and badges
    POST   /api/filters/preset          Apply a date preset
    POST   /api/filters/toggle          Toggle a multi-select value

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Reference data and allocations
  - Reports: Report generation and archiving
  - Validator: Date and payload validation in the configured timezone
  - RoleFilter: Role selector narrowing with fallback diagnostics
  - upstream: Optional backend that prepared allocations are forwarded to

REQUEST FLOW:
  1. Parse HTTP request
  2. Resolve references (batch, user)
  3. Validate into an allocation or field errors
  4. Submit upstream, when configured
  5. Persist
  6. Serialize envelope

ERROR HANDLING:
  - 400: Field errors (errors map), invalid input
  - 404: Resource not found
  - 409: Duplicate id
  - 500: Internal errors
  - 502: Upstream failure other than field errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/textile-ops/allocation"
	"github.com/warp/textile-ops/backend"
	"github.com/warp/textile-ops/filter"
	"github.com/warp/textile-ops/report"
)

const defaultPageSize = 100

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Submitter forwards prepared allocations to the upstream backend.
type Submitter interface {
	CreateWorkforceAllocation(ctx context.Context, p backend.WorkforcePayload) (*backend.Envelope, error)
	CreateMaterialAllocation(ctx context.Context, p backend.MaterialPayload) (*backend.Envelope, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     allocation.Store
	Reports   *report.Service
	Validator *allocation.Validator
	Roles     *allocation.RoleFilter

	logger   *zap.Logger
	upstream Submitter

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(store allocation.Store, reports *report.Service, validator *allocation.Validator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:     store,
		Reports:   reports,
		Validator: validator,
		Roles:     allocation.NewRoleFilter(logger.Named("roles")),
		logger:    logger,
	}
}

// WithUpstream makes the create handlers submit each prepared allocation to
// the upstream before storing it locally.
func (h *Handler) WithUpstream(s Submitter) *Handler {
	h.upstream = s
	return h
}

// =============================================================================
// REFERENCE DATA HANDLERS
// =============================================================================

// ListBatches returns one page of batches.
// GET /api/workflow/batches/?page_size=N
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	size, err := pageSize(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid page_size", err)
		return
	}

	batches, err := h.Store.ListBatches(r.Context(), size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list batches", err)
		return
	}

	dtos := make([]backend.Batch, len(batches))
	for i, b := range batches {
		dtos[i] = backend.BatchFrom(b)
	}
	writeData(w, http.StatusOK, backend.Page[backend.Batch]{Count: len(dtos), Results: dtos})
}

// CreateBatch creates or replaces a batch.
// POST /api/workflow/batches/
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req backend.Batch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	req.BatchCode = strings.TrimSpace(req.BatchCode)
	if req.BatchCode == "" {
		writeFieldErrors(w, allocation.FieldErrors{"batch_code": {"This field is required."}})
		return
	}
	if req.ID == "" {
		req.ID = backend.ID(uuid.NewString())
	}

	batch := req.Domain()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = h.Reports.Now().UTC()
	}
	if err := h.Store.SaveBatch(r.Context(), batch); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save batch", err)
		return
	}

	writeData(w, http.StatusCreated, backend.BatchFrom(batch))
}

// ListUsers returns one page of users.
// GET /api/users/?page_size=N
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	size, err := pageSize(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid page_size", err)
		return
	}

	users, err := h.Store.ListUsers(r.Context(), size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]backend.User, len(users))
	for i, u := range users {
		dtos[i] = backend.UserFrom(u)
	}
	writeData(w, http.StatusOK, backend.Page[backend.User]{Count: len(dtos), Results: dtos})
}

// CreateUser creates or replaces a user.
// POST /api/users/
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req backend.User
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeFieldErrors(w, allocation.FieldErrors{"username": {"This field is required."}})
		return
	}
	if req.ID == "" {
		req.ID = backend.ID(uuid.NewString())
	}

	if err := h.Store.SaveUser(r.Context(), req.Domain()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save user", err)
		return
	}

	writeData(w, http.StatusCreated, req)
}

// ListRoles returns the roles assignable to a user. The base role comes
// from user_id when given, else from base_role; neither means no user is
// selected and every role is returned.
// GET /api/roles?user_id=&base_role=
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	baseRole := strings.TrimSpace(r.URL.Query().Get("base_role"))

	if userID := strings.TrimSpace(r.URL.Query().Get("user_id")); userID != "" {
		user, err := h.Store.GetUser(r.Context(), userID)
		if err != nil {
			writeError(w, statusFor(err), "Failed to load user", err)
			return
		}
		baseRole = user.Role
	}

	writeData(w, http.StatusOK, RolesDTO{
		BaseRole: baseRole,
		Roles:    h.Roles.Filter(allocation.DefaultRoleChoices(), baseRole),
	})
}

// =============================================================================
// ALLOCATION HANDLERS
// =============================================================================

// ValidateDates runs date validation without persisting anything. An
// invalid pair is still a successful request; see data.valid.
// POST /api/allocations/validate-dates
func (h *Handler) ValidateDates(w http.ResponseWriter, r *http.Request) {
	var req ValidateDatesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	writeData(w, http.StatusOK, h.Validator.ValidateDates(req.StartDate, req.EndDate))
}

// CreateWorkforceAllocation validates and stores a workforce allocation.
// POST /api/allocations/workforce/
func (h *Handler) CreateWorkforceAllocation(w http.ResponseWriter, r *http.Request) {
	var req backend.WorkforcePayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	ctx := r.Context()

	batch, err := h.lookupBatch(ctx, req.Batch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load batch", err)
		return
	}
	user, err := h.lookupUser(ctx, req.User)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load user", err)
		return
	}

	alloc, errs := h.Validator.PrepareWorkforce(req.Request(), batch, user)
	if errs != nil {
		writeFieldErrors(w, errs)
		return
	}

	if h.upstream != nil {
		if _, err := h.upstream.CreateWorkforceAllocation(ctx, backend.WorkforcePayloadFrom(alloc)); err != nil {
			h.writeUpstreamError(w, alloc.ID, err)
			return
		}
	}

	if err := h.Store.AppendWorkforce(ctx, alloc); err != nil {
		writeError(w, statusFor(err), "Failed to save allocation", err)
		return
	}

	h.logger.Info("workforce allocation created",
		zap.String("allocation_id", alloc.ID),
		zap.String("batch", alloc.BatchNumber),
		zap.String("role", string(alloc.RoleAssigned)),
	)
	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    toWorkforceDTO(alloc),
		Message: "Workforce allocation created",
	})
}

// ListWorkforceAllocations lists workforce allocations in the filter window.
// GET /api/allocations/workforce/?start_date=&end_date=
func (h *Handler) ListWorkforceAllocations(w http.ResponseWriter, r *http.Request) {
	allocs, err := h.Store.ListWorkforce(r.Context(), filter.FromQuery(r.URL.Query()).Window())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list allocations", err)
		return
	}

	dtos := make([]WorkforceAllocationDTO, len(allocs))
	for i, a := range allocs {
		dtos[i] = toWorkforceDTO(a)
	}
	writeData(w, http.StatusOK, dtos)
}

// CreateMaterialAllocation validates and stores a material allocation.
// POST /api/allocations/material/
func (h *Handler) CreateMaterialAllocation(w http.ResponseWriter, r *http.Request) {
	var req backend.MaterialPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	ctx := r.Context()

	batch, err := h.lookupBatch(ctx, req.Batch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load batch", err)
		return
	}

	alloc, errs := h.Validator.PrepareMaterial(req.Request(), batch)
	if errs != nil {
		writeFieldErrors(w, errs)
		return
	}

	if h.upstream != nil {
		if _, err := h.upstream.CreateMaterialAllocation(ctx, backend.MaterialPayloadFrom(alloc)); err != nil {
			h.writeUpstreamError(w, alloc.ID, err)
			return
		}
	}

	if err := h.Store.AppendMaterial(ctx, alloc); err != nil {
		writeError(w, statusFor(err), "Failed to save allocation", err)
		return
	}

	h.logger.Info("material allocation created",
		zap.String("allocation_id", alloc.ID),
		zap.String("batch", alloc.BatchNumber),
		zap.String("material", alloc.MaterialName),
	)
	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    toMaterialDTO(alloc),
		Message: "Material allocation created",
	})
}

// ListMaterialAllocations lists material allocations in the filter window.
// GET /api/allocations/material/?start_date=&end_date=
func (h *Handler) ListMaterialAllocations(w http.ResponseWriter, r *http.Request) {
	allocs, err := h.Store.ListMaterial(r.Context(), filter.FromQuery(r.URL.Query()).Window())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list allocations", err)
		return
	}

	dtos := make([]MaterialAllocationDTO, len(allocs))
	for i, a := range allocs {
		dtos[i] = toMaterialDTO(a)
	}
	writeData(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// reportFilter reads the filter from the query string. A query without any
// date information means the default window.
func (h *Handler) reportFilter(r *http.Request) filter.State {
	st := filter.FromQuery(r.URL.Query())
	dr := st.DateRange
	if dr.Start == "" && dr.End == "" {
		preset := dr.Preset
		if preset == "" || preset == filter.PresetCustom {
			preset = filter.DefaultPreset
		}
		st.ApplyPreset(preset, h.Reports.Now())
	}
	if st.Granularity == "" {
		st.Granularity = filter.DefaultGranularity
	}
	if st.ExportFormat == "" {
		st.ExportFormat = filter.DefaultExport
	}
	return st
}

// reportSection serves one part of the report for the filter window.
func (h *Handler) reportSection(section func(*report.Report) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := h.Reports.Generate(r.Context(), h.reportFilter(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to generate report", err)
			return
		}
		writeData(w, http.StatusOK, section(rep))
	}
}

// GetUtilization returns utilization by role.
// GET /api/reports/utilization
func (h *Handler) GetUtilization(w http.ResponseWriter, r *http.Request) {
	h.reportSection(func(rep *report.Report) any { return rep.Utilization })(w, r)
}

// GetCosts returns cost by material.
// GET /api/reports/costs
func (h *Handler) GetCosts(w http.ResponseWriter, r *http.Request) {
	h.reportSection(func(rep *report.Report) any { return rep.Costs })(w, r)
}

// GetProductivity returns productivity by batch.
// GET /api/reports/productivity
func (h *Handler) GetProductivity(w http.ResponseWriter, r *http.Request) {
	h.reportSection(func(rep *report.Report) any { return rep.Productivity })(w, r)
}

// GetSummary returns the whole report.
// GET /api/reports/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	h.reportSection(func(rep *report.Report) any { return rep })(w, r)
}

// ArchiveReport generates a report for the posted filter and archives it.
// An empty body archives the default window.
// POST /api/reports/archive
func (h *Handler) ArchiveReport(w http.ResponseWriter, r *http.Request) {
	var raw filter.Raw
	if err := decodeJSON(r, &raw); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	st := filter.Normalize(raw)
	if st.DateRange.Start == "" && st.DateRange.End == "" {
		st = filter.Defaults(h.Reports.Now())
	}

	rep, err := h.Reports.Generate(r.Context(), st)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate report", err)
		return
	}
	archived, err := h.Reports.Archive(r.Context(), rep, report.TriggerAPI)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to archive report", err)
		return
	}

	writeData(w, http.StatusCreated, toArchivedReportDTO(archived))
}

// ListArchivedReports lists archived reports, newest first.
// GET /api/reports/archive?limit=N
func (h *Handler) ListArchivedReports(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	reports, err := h.Reports.History(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reports", err)
		return
	}

	dtos := make([]ArchivedReportDTO, len(reports))
	for i, rep := range reports {
		dtos[i] = toArchivedReportDTO(rep)
	}
	writeData(w, http.StatusOK, dtos)
}

// =============================================================================
// FILTER HANDLERS
// =============================================================================

// NormalizeFilter fills absent filter fields and derives query and badges.
// POST /api/filters/normalize
func (h *Handler) NormalizeFilter(w http.ResponseWriter, r *http.Request) {
	var raw filter.Raw
	if err := decodeJSON(r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	writeData(w, http.StatusOK, toFilterDTO(filter.Normalize(raw)))
}

// ApplyFilterPreset selects a date preset.
// POST /api/filters/preset
func (h *Handler) ApplyFilterPreset(w http.ResponseWriter, r *http.Request) {
	var req PresetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	st := filter.Normalize(req.Filter)
	if !st.ApplyPreset(req.Preset, h.Reports.Now()) {
		writeFieldErrors(w, allocation.FieldErrors{"preset": {fmt.Sprintf("%q is not a valid choice.", req.Preset)}})
		return
	}

	writeData(w, http.StatusOK, toFilterDTO(st))
}

// ToggleFilterValue toggles one value of a multi-select dimension.
// POST /api/filters/toggle
func (h *Handler) ToggleFilterValue(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	errs := allocation.FieldErrors{}
	if strings.TrimSpace(req.Value) == "" {
		errs.Add("value", "This field is required.")
	}
	st := filter.Normalize(req.Filter)
	if !st.ToggleDimension(req.Dimension, strings.TrimSpace(req.Value)) {
		errs.Add("dimension", fmt.Sprintf("%q is not a valid choice.", req.Dimension))
	}
	if !errs.Empty() {
		writeFieldErrors(w, errs)
		return
	}

	writeData(w, http.StatusOK, toFilterDTO(st))
}

// =============================================================================
// HEALTH
// =============================================================================

type pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports liveness, and storage reachability when the store can ping.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Storage unavailable", err)
			return
		}
	}
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// lookupBatch resolves a batch reference; a blank or unknown id yields nil.
func (h *Handler) lookupBatch(ctx context.Context, id string) (*allocation.Batch, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	b, err := h.Store.GetBatch(ctx, id)
	if allocation.IsNotFound(err) {
		return nil, nil
	}
	return b, err
}

// lookupUser resolves a user reference; a blank or unknown id yields nil.
func (h *Handler) lookupUser(ctx context.Context, id string) (*allocation.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	u, err := h.Store.GetUser(ctx, id)
	if allocation.IsNotFound(err) {
		return nil, nil
	}
	return u, err
}

func pageSize(r *http.Request) (int, error) {
	v := r.URL.Query().Get("page_size")
	if v == "" {
		return defaultPageSize, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("page_size must be positive, got %d", n)
	}
	return n, nil
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func statusFor(err error) int {
	switch {
	case allocation.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, allocation.ErrDuplicateID):
		return http.StatusConflict
	case allocation.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

func writeFieldErrors(w http.ResponseWriter, errs allocation.FieldErrors) {
	writeJSON(w, http.StatusBadRequest, Response{
		Success: false,
		Errors:  errs,
		Message: errs.Flatten("; "),
	})
}

// writeUpstreamError reports field errors from the upstream as a 400 and any
// other failure as a 502.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, allocationID string, err error) {
	var fe allocation.FieldErrors
	if errors.As(err, &fe) && !fe.Empty() {
		h.logger.Info("upstream rejected allocation",
			zap.String("allocation_id", allocationID),
			zap.String("errors", fe.Flatten("; ")))
		writeFieldErrors(w, fe)
		return
	}

	h.logger.Error("upstream submit failed", zap.String("allocation_id", allocationID), zap.Error(err))
	writeError(w, http.StatusBadGateway, "Upstream rejected allocation", err)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := Response{Success: false, Message: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
