package steward

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/de-tools/workspace-steward/pkg/adapters"
	"github.com/de-tools/workspace-steward/pkg/models/api"
	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/de-tools/workspace-steward/pkg/services/discovery"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	actorHeader  = "X-Actor"
	defaultActor = "api"

	defaultPageSize = 20
	maxPageSize     = 200

	// Share of an idle workspace's spend assumed recoverable once
	// remediated.
	savingsFactor = 0.7
)

// WorkspaceReader serves the fleet and history views.
type WorkspaceReader interface {
	LatestSnapshots(ctx context.Context) ([]domain.WorkspaceSnapshot, error)
	SnapshotHistory(ctx context.Context, workspaceID string) ([]domain.WorkspaceSnapshot, error)
	LatestClassification(ctx context.Context, workspaceID string) (domain.Classification, bool, error)
}

// ActionReader serves the action queue views.
type ActionReader interface {
	ListActions(ctx context.Context, status domain.ActionStatus) ([]domain.Action, error)
}

// LedgerReader serves the audit trail view.
type LedgerReader interface {
	Query(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, int, error)
}

// EventReader serves the activity feed.
type EventReader interface {
	RecentEvents(ctx context.Context, limit int) ([]domain.Event, error)
}

// Approver applies operator decisions to actions.
type Approver interface {
	Approve(ctx context.Context, id, actor string) (domain.Action, error)
	Reject(ctx context.Context, id, actor string) (domain.Action, error)
	Cancel(ctx context.Context, id, actor string) (domain.Action, error)
	Retry(ctx context.Context, id, actor string) (domain.Action, error)
}

// Executor dispatches a single approved action.
type Executor interface {
	Execute(ctx context.Context, actionID string) (domain.AuditEntry, error)
}

// DiscoveryRunner triggers a full discovery pass.
type DiscoveryRunner interface {
	Run(ctx context.Context) (discovery.RunSummary, error)
}

type Handler struct {
	workspaces WorkspaceReader
	actions    ActionReader
	ledger     LedgerReader
	events     EventReader
	approver   Approver
	executor   Executor
	discovery  DiscoveryRunner
}

func NewHandler(
	workspaces WorkspaceReader,
	actions ActionReader,
	ledger LedgerReader,
	events EventReader,
	approver Approver,
	executor Executor,
	runner DiscoveryRunner,
) *Handler {
	return &Handler{
		workspaces: workspaces,
		actions:    actions,
		ledger:     ledger,
		events:     events,
		approver:   approver,
		executor:   executor,
		discovery:  runner,
	}
}

func (h *Handler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snapshots, err := h.workspaces.LatestSnapshots(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	response := make([]api.Workspace, 0, len(snapshots))
	for _, snap := range snapshots {
		ws := api.Workspace{Snapshot: adapters.MapSnapshotDomainToApi(snap)}
		c, ok, err := h.workspaces.LatestClassification(ctx, snap.WorkspaceID)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		if ok {
			mapped := adapters.MapClassificationDomainToApi(c)
			ws.Classification = &mapped
		}
		response = append(response, ws)
	}

	respondJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) GetSnapshotHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID := chi.URLParam(r, "id")

	history, err := h.workspaces.SnapshotHistory(ctx, workspaceID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	response := make([]api.Snapshot, 0, len(history))
	for _, snap := range history {
		response = append(response, adapters.MapSnapshotDomainToApi(snap))
	}
	respondJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := domain.ActionStatus(r.URL.Query().Get("status"))

	actions, err := h.actions.ListActions(ctx, status)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	response := make([]api.Action, 0, len(actions))
	for _, act := range actions {
		response = append(response, adapters.MapActionDomainToApi(act))
	}
	respondJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := domain.AuditQuery{
		WorkspaceID: r.URL.Query().Get("workspace"),
		Page:        queryInt(r, "page", 1),
		PageSize:    queryInt(r, "page_size", defaultPageSize),
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > maxPageSize {
		q.PageSize = defaultPageSize
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := parseTimestamp(raw)
		if err != nil {
			respondStatus(ctx, w, http.StatusBadRequest, "invalid 'from' timestamp")
			return
		}
		q.From = from
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := parseTimestamp(raw)
		if err != nil {
			respondStatus(ctx, w, http.StatusBadRequest, "invalid 'to' timestamp")
			return
		}
		q.To = to
	}

	entries, total, err := h.ledger.Query(ctx, q)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	page := api.AuditPage{
		Entries:  make([]api.AuditEntry, 0, len(entries)),
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	for _, entry := range entries {
		page.Entries = append(page.Entries, adapters.MapAuditEntryDomainToApi(entry))
	}
	respondJSON(ctx, w, http.StatusOK, page)
}

func (h *Handler) GetCostSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snapshots, err := h.workspaces.LatestSnapshots(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	summary := api.CostSummary{
		CostByResourceType: make(map[string]float64),
		Workspaces:         len(snapshots),
	}
	for _, snap := range snapshots {
		summary.TotalMonthlyCost += snap.MonthlyCost
		summary.CostByResourceType[string(snap.Type)] += snap.MonthlyCost
		if snap.Status == domain.WorkspaceStatusIdle || snap.Status == domain.WorkspaceStatusWarning {
			summary.IdleMonthlyCost += snap.MonthlyCost
		}
	}
	summary.PotentialSavings = summary.IdleMonthlyCost * savingsFactor

	respondJSON(ctx, w, http.StatusOK, summary)
}

func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := queryInt(r, "limit", 0)

	events, err := h.events.RecentEvents(ctx, limit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	response := make([]api.ActivityEvent, 0, len(events))
	for _, event := range events {
		response = append(response, adapters.MapEventDomainToApi(event))
	}
	respondJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) RunDiscovery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.discovery.Run(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, adapters.MapRunSummaryDomainToApi(summary))
}

func (h *Handler) ApproveAction(w http.ResponseWriter, r *http.Request) {
	h.applyCommand(w, r, h.approver.Approve)
}

func (h *Handler) RejectAction(w http.ResponseWriter, r *http.Request) {
	h.applyCommand(w, r, h.approver.Reject)
}

func (h *Handler) CancelAction(w http.ResponseWriter, r *http.Request) {
	h.applyCommand(w, r, h.approver.Cancel)
}

func (h *Handler) RetryAction(w http.ResponseWriter, r *http.Request) {
	h.applyCommand(w, r, h.approver.Retry)
}

func (h *Handler) ExecuteAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	entry, err := h.executor.Execute(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrExecutionFailure) {
		respondError(ctx, w, err)
		return
	}
	// A failed verification still yields a ledger entry; the outcome field
	// carries the result.
	respondJSON(ctx, w, http.StatusOK, adapters.MapAuditEntryDomainToApi(entry))
}

type commandFunc func(ctx context.Context, id, actor string) (domain.Action, error)

func (h *Handler) applyCommand(w http.ResponseWriter, r *http.Request, cmd commandFunc) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	actor := r.Header.Get(actorHeader)
	if actor == "" {
		actor = defaultActor
	}

	act, err := cmd(ctx, id, actor)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, adapters.MapActionDomainToApi(act))
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	logger := zerolog.Ctx(ctx)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

func respondStatus(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	respondJSON(ctx, w, status, api.Error{Error: msg})
}

func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := zerolog.Ctx(ctx)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrActionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrRetryExhausted),
		errors.Is(err, domain.ErrDuplicateAction):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrGuardrailViolation):
		status = http.StatusForbidden
	}
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	}
	respondJSON(ctx, w, status, api.Error{Error: err.Error()})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}
