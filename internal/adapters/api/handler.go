// Package api exposes the management surface: zone, recordset, record and
// pool CRUD plus operational endpoints. Authentication is handled by the
// fronting gateway, not here.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
	"github.com/poyrazK/zoneplane/internal/core/services"
	"github.com/poyrazK/zoneplane/internal/zonefile"
)

// Handler handles HTTP requests for zone and record management.
type Handler struct {
	svc     *services.Service
	storage ports.Storage
	logger  *slog.Logger
}

// NewHandler creates and returns a new Handler instance.
func NewHandler(svc *services.Service, storage ports.Storage, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, storage: storage, logger: logger}
}

// RegisterRoutes registers the API routes with the provided ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /v2/zones", h.CreateZone)
	mux.HandleFunc("GET /v2/zones", h.ListZones)
	mux.HandleFunc("GET /v2/zones/{id}", h.GetZone)
	mux.HandleFunc("PATCH /v2/zones/{id}", h.UpdateZone)
	mux.HandleFunc("DELETE /v2/zones/{id}", h.DeleteZone)
	mux.HandleFunc("POST /v2/zones/tasks/purge", h.PurgeZones)
	mux.HandleFunc("POST /v2/zones/tasks/imports", h.ImportZone)
	mux.HandleFunc("GET /v2/zones/{id}/tasks/export", h.ExportZone)

	mux.HandleFunc("POST /v2/zones/{id}/recordsets", h.CreateRecordSet)
	mux.HandleFunc("GET /v2/zones/{id}/recordsets", h.ListRecordSets)
	mux.HandleFunc("GET /v2/zones/{zone_id}/recordsets/{id}", h.GetRecordSet)
	mux.HandleFunc("PUT /v2/zones/{zone_id}/recordsets/{id}", h.UpdateRecordSet)
	mux.HandleFunc("DELETE /v2/zones/{zone_id}/recordsets/{id}", h.DeleteRecordSet)

	mux.HandleFunc("POST /v2/pools", h.CreatePool)
	mux.HandleFunc("GET /v2/pools/{id}", h.GetPool)

	mux.HandleFunc("POST /v2/zones/{id}/tasks/transfer_requests", h.CreateTransferRequest)
	mux.HandleFunc("POST /v2/zones/tasks/transfer_accepts", h.AcceptTransfer)
}

// HealthCheck reports liveness of the instance and its database.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "UP"
	details := map[string]string{"database": "OK"}
	code := http.StatusOK
	if err := h.storage.Ping(r.Context()); err != nil {
		status = "DEGRADED"
		details["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, map[string]any{"status": status, "details": details})
}

func (h *Handler) CreateZone(w http.ResponseWriter, r *http.Request) {
	var zone domain.Zone
	if err := json.NewDecoder(r.Body).Decode(&zone); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.svc.CreateZone(r.Context(), &zone)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetZone(w http.ResponseWriter, r *http.Request) {
	zone, err := h.svc.GetZone(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, zone)
}

func (h *Handler) ListZones(w http.ResponseWriter, r *http.Request) {
	c := domain.Criterion{}
	for _, key := range []string{"name", "type", "status", "action", "pool_id", "tenant_id"} {
		if v := r.URL.Query().Get(key); v != "" {
			c[key] = v
		}
	}
	zones, err := h.svc.FindZones(r.Context(), c, findOptions(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, zones)
}

func (h *Handler) UpdateZone(w http.ResponseWriter, r *http.Request) {
	zone, err := h.svc.GetZone(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(zone); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	updated, err := h.svc.UpdateZone(r.Context(), zone, incrementSerial(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteZone(w http.ResponseWriter, r *http.Request) {
	zone, err := h.svc.DeleteZone(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, zone)
}

// PurgeZones triggers an immediate purge sweep over the whole shard
// space, bypassing the periodic task's schedule and range.
func (h *Handler) PurgeZones(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Limit int `json:"limit"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	if body.Limit <= 0 {
		body.Limit = 100
	}
	count, err := h.svc.PurgeZones(r.Context(), domain.Criterion{"deleted": "!0"}, body.Limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	purged := 0
	if count != nil {
		purged = *count
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"purged": purged})
}

// ImportZone creates a zone from an RFC 1035 master file body
// (Content-Type text/dns). Tenant and pool come from query parameters.
func (h *Handler) ImportZone(w http.ResponseWriter, r *http.Request) {
	imp, err := zonefile.NewParser().Parse(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	zone, err := h.svc.ImportZone(r.Context(), r.URL.Query().Get("tenant_id"), r.URL.Query().Get("pool_id"), imp)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, zone)
}

// ExportZone renders the zone as a master file.
func (h *Handler) ExportZone(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/dns")
	if err := h.svc.ExportZone(r.Context(), r.PathValue("id"), w); err != nil {
		h.writeError(w, err)
	}
}

func (h *Handler) CreateRecordSet(w http.ResponseWriter, r *http.Request) {
	var rs domain.RecordSet
	if err := json.NewDecoder(r.Body).Decode(&rs); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rs.ZoneID = r.PathValue("id")
	created, err := h.svc.CreateRecordSet(r.Context(), &rs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListRecordSets(w http.ResponseWriter, r *http.Request) {
	c := domain.Criterion{"zone_id": r.PathValue("id")}
	for _, key := range []string{"name", "type"} {
		if v := r.URL.Query().Get(key); v != "" {
			c[key] = v
		}
	}
	sets, err := h.svc.FindRecordSets(r.Context(), c, findOptions(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sets)
}

func (h *Handler) GetRecordSet(w http.ResponseWriter, r *http.Request) {
	rs, err := h.svc.GetRecordSet(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if rs.ZoneID != r.PathValue("zone_id") {
		h.writeError(w, domain.ErrRecordSetNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, rs)
}

func (h *Handler) UpdateRecordSet(w http.ResponseWriter, r *http.Request) {
	rs, err := h.svc.GetRecordSet(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if rs.ZoneID != r.PathValue("zone_id") {
		h.writeError(w, domain.ErrRecordSetNotFound)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(rs); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	updated, err := h.svc.UpdateRecordSet(r.Context(), rs, incrementSerial(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteRecordSet(w http.ResponseWriter, r *http.Request) {
	rs, err := h.svc.GetRecordSet(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if rs.ZoneID != r.PathValue("zone_id") {
		h.writeError(w, domain.ErrRecordSetNotFound)
		return
	}
	if err := h.svc.DeleteRecordSet(r.Context(), rs.ID, incrementSerial(r)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreatePool(w http.ResponseWriter, r *http.Request) {
	var pool domain.Pool
	if err := json.NewDecoder(r.Body).Decode(&pool); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.svc.CreatePool(r.Context(), &pool)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetPool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.svc.GetPool(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pool)
}

func (h *Handler) CreateTransferRequest(w http.ResponseWriter, r *http.Request) {
	var req domain.ZoneTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.ZoneID = r.PathValue("id")
	created, err := h.svc.CreateZoneTransferRequest(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) AcceptTransfer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequestID string `json:"zone_transfer_request_id"`
		Key       string `json:"key"`
		TenantID  string `json:"tenant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	accept, err := h.svc.AcceptZoneTransfer(r.Context(), body.RequestID, body.Key, body.TenantID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, accept)
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrDuplicate):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidZoneName),
		errors.Is(err, domain.ErrInvalidRecordSet),
		errors.Is(err, domain.ErrCNAMEAtApex),
		errors.Is(err, domain.ErrCNAMEConflict),
		errors.Is(err, domain.ErrInvalidSortKey),
		errors.Is(err, domain.ErrInvalidMarker):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrImmutableRecordSet),
		errors.Is(err, domain.ErrZonePendingDeletion),
		errors.Is(err, domain.ErrTransferComplete):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrIncorrectTransferKey):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		h.logger.Error("request failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func findOptions(r *http.Request) ports.FindOptions {
	q := r.URL.Query()
	opts := ports.FindOptions{
		Marker:  q.Get("marker"),
		SortKey: q.Get("sort_key"),
		SortDir: q.Get("sort_dir"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}
	return opts
}

func incrementSerial(r *http.Request) bool {
	return r.URL.Query().Get("increment_serial") != "false"
}
