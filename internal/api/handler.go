package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/facets"
	"github.com/opensource-finance/kestrel/internal/pipeline"
	"github.com/opensource-finance/kestrel/internal/refdata"
	"github.com/opensource-finance/kestrel/internal/repository"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	facets    *facets.Service
	engineCfg domain.EngineConfig
	tableTTL  time.Duration
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, facetSvc *facets.Service, engineCfg domain.EngineConfig, version string) *Handler {
	return &Handler{
		repo:      repo,
		cache:     cache,
		bus:       bus,
		facets:    facetSvc,
		engineCfg: engineCfg,
		tableTTL:  time.Hour,
		version:   version,
	}
}

// IngestRequest is the request body for POST /datasets. The five input
// tables arrive as typed JSON rows; CSV uploads are converted by the
// client or the offline reporting tool.
type IngestRequest struct {
	Name         string                           `json:"name"`
	Transactions []domain.TransactionRow          `json:"transactions"`
	Products     []domain.ProductRef              `json:"products"`
	PeerMappings map[string][]domain.PeerGroupRow `json:"peerMappings"`
	Corridors    []domain.CorridorRow             `json:"corridors"`
	Areas        []domain.AreaRow                 `json:"areas,omitempty"`
}

// IngestResponse is the response for POST /datasets.
type IngestResponse struct {
	Dataset      *domain.Dataset `json:"dataset"`
	ResolvedRows int             `json:"resolvedRows"`
	DroppedRows  int             `json:"droppedRows"`
	Metadata     struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// IngestDataset handles POST /datasets: store the input tables, resolve
// the calc table and cache it.
func (h *Handler) IngestDataset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if len(req.Transactions) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "transactions are required",
		})
		return
	}
	if len(req.Products) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "products are required",
		})
		return
	}

	now := time.Now().UTC()
	ds := &domain.Dataset{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Name:      req.Name,
		RowCount:  len(req.Transactions),
		CreatedAt: now,
		UpdatedAt: now,
	}

	refs := &domain.ReferenceSet{
		Products:     req.Products,
		PeerMappings: req.PeerMappings,
		Corridors:    req.Corridors,
		Areas:        req.Areas,
	}
	if refs.PeerMappings == nil {
		refs.PeerMappings = map[string][]domain.PeerGroupRow{}
	}

	// Resolve before persisting so a broken configuration is rejected
	// without leaving a half-stored dataset behind.
	table, err := refdata.Resolve(ds.ID, req.Transactions, refs, h.engineCfg)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "failed to resolve dataset: " + err.Error(),
		})
		return
	}

	if err := h.repo.SaveDataset(ctx, tenantID, ds); err != nil {
		slog.Error("failed to save dataset", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save dataset",
		})
		return
	}
	if err := h.repo.SaveTransactions(ctx, tenantID, ds.ID, req.Transactions); err != nil {
		slog.Error("failed to save transactions", "dataset_id", ds.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save transactions",
		})
		return
	}
	if err := h.repo.SaveReferenceSet(ctx, tenantID, ds.ID, refs); err != nil {
		slog.Error("failed to save reference tables", "dataset_id", ds.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save reference tables",
		})
		return
	}

	if err := h.cache.SetCalcTable(ctx, tenantID, ds.ID, table, h.tableTTL); err != nil {
		slog.Error("failed to cache calc table", "dataset_id", ds.ID, "error", err)
	}

	if h.bus != nil {
		payload, _ := json.Marshal(map[string]string{
			"datasetId": ds.ID,
			"tenantId":  tenantID,
			"traceId":   traceID,
		})
		if err := h.bus.Publish(ctx, tenantID, domain.TopicDatasetIngested, payload); err != nil {
			slog.Error("failed to publish ingest event", "dataset_id", ds.ID, "error", err)
		}
	}

	slog.Info("dataset ingested",
		"dataset_id", ds.ID,
		"tenant_id", tenantID,
		"row_count", ds.RowCount,
		"resolved_rows", len(table.Rows),
	)

	resp := IngestResponse{
		Dataset:      ds,
		ResolvedRows: len(table.Rows),
		DroppedRows:  len(req.Transactions) - len(table.Rows),
	}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusCreated, resp)
}

// ListDatasets handles GET /datasets.
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	datasets, err := h.repo.ListDatasets(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list datasets", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list datasets",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"datasets": datasets,
		"count":    len(datasets),
	})
}

// GetDataset handles GET /datasets/{id}.
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	datasetID := chi.URLParam(r, "id")

	ds, err := h.repo.GetDataset(ctx, tenantID, datasetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "dataset not found",
			})
			return
		}
		slog.Error("failed to get dataset", "id", datasetID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get dataset",
		})
		return
	}

	writeJSON(w, http.StatusOK, ds)
}

// DeleteDataset handles DELETE /datasets/{id}.
func (h *Handler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	datasetID := chi.URLParam(r, "id")

	if err := h.repo.DeleteDataset(ctx, tenantID, datasetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "dataset not found",
			})
			return
		}
		slog.Error("failed to delete dataset", "id", datasetID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete dataset",
		})
		return
	}

	_ = h.cache.Delete(ctx, tenantID, "calc:"+datasetID)
	if h.facets != nil {
		_ = h.facets.Invalidate(ctx, tenantID, datasetID)
	}

	slog.Info("dataset deleted", "dataset_id", datasetID, "tenant_id", tenantID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "dataset deleted",
	})
}

// GetFacets handles GET /datasets/{id}/facets.
func (h *Handler) GetFacets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	datasetID := chi.URLParam(r, "id")

	if _, err := h.repo.GetDataset(ctx, tenantID, datasetID); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "dataset not found",
		})
		return
	}

	table, _, err := h.loadTable(r, tenantID, datasetID, h.engineCfg, true)
	if err != nil {
		slog.Error("failed to load calc table for facets", "dataset_id", datasetID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load dataset",
		})
		return
	}

	f, err := h.facets.Get(ctx, tenantID, datasetID, table)
	if err != nil {
		slog.Error("failed to compute facets", "dataset_id", datasetID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to compute facets",
		})
		return
	}

	writeJSON(w, http.StatusOK, f)
}

// RecomputeRequest is the request body for POST /datasets/{id}/recompute.
// Engine overrides trigger a fresh in-request resolve with the overridden
// configuration; the cached table is untouched.
type RecomputeRequest struct {
	Filter       pipeline.Filter      `json:"filter"`
	GroupingMode domain.GroupingMode  `json:"groupingMode,omitempty"`
	Engine       *domain.EngineConfig `json:"engine,omitempty"`
}

// RecomputeResponse is the response for POST /datasets/{id}/recompute.
type RecomputeResponse struct {
	DatasetID string           `json:"datasetId"`
	Result    *pipeline.Result `json:"result"`
	Metadata  struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// Recompute handles POST /datasets/{id}/recompute.
func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)
	datasetID := chi.URLParam(r, "id")

	var req RecomputeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid JSON request body",
			})
			return
		}
	}

	if _, err := h.repo.GetDataset(ctx, tenantID, datasetID); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "dataset not found",
		})
		return
	}

	engineCfg := h.engineCfg
	useCache := true
	if req.Engine != nil {
		engineCfg = *req.Engine
		useCache = false
	}

	table, refs, err := h.loadTable(r, tenantID, datasetID, engineCfg, useCache)
	if err != nil {
		slog.Error("failed to load calc table", "dataset_id", datasetID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load dataset",
		})
		return
	}

	p, err := pipeline.New(engineCfg, refdata.NewCorridorIndex(refs.Corridors))
	if err != nil {
		slog.Error("failed to build pipeline", "dataset_id", datasetID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to build pipeline",
		})
		return
	}

	result, err := p.Run(ctx, table, &pipeline.Request{
		Filter:       req.Filter,
		GroupingMode: req.GroupingMode,
	})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if h.bus != nil {
		payload, _ := json.Marshal(map[string]string{
			"datasetId": datasetID,
			"tenantId":  tenantID,
			"traceId":   traceID,
		})
		if err := h.bus.Publish(ctx, tenantID, domain.TopicRecomputeCompleted, payload); err != nil {
			slog.Error("failed to publish recompute event", "dataset_id", datasetID, "error", err)
		}
	}

	resp := RecomputeResponse{
		DatasetID: datasetID,
		Result:    result,
	}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// Reload handles POST /datasets/{id}/reload: publish a reload event so a
// worker rebuilds the calc table from the stored inputs.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)
	datasetID := chi.URLParam(r, "id")

	if _, err := h.repo.GetDataset(ctx, tenantID, datasetID); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "dataset not found",
		})
		return
	}

	if h.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "event bus not available",
		})
		return
	}

	if h.facets != nil {
		_ = h.facets.Invalidate(ctx, tenantID, datasetID)
	}

	payload, _ := json.Marshal(map[string]string{
		"datasetId": datasetID,
		"tenantId":  tenantID,
		"traceId":   traceID,
	})
	if err := h.bus.Publish(ctx, tenantID, domain.TopicRefdataReload, payload); err != nil {
		slog.Error("failed to publish reload event", "dataset_id", datasetID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to publish reload event",
		})
		return
	}

	slog.Info("reload requested", "dataset_id", datasetID, "tenant_id", tenantID)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message":   "reload scheduled",
		"datasetId": datasetID,
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// loadTable fetches the cached calc table, or resolves it from the stored
// inputs on a miss. The reference set is always loaded; the corridor index
// of the caller must come from the same reference tables.
func (h *Handler) loadTable(r *http.Request, tenantID, datasetID string, engineCfg domain.EngineConfig, useCache bool) (*domain.CalcTable, *domain.ReferenceSet, error) {
	ctx := r.Context()

	refs, err := h.repo.GetReferenceSet(ctx, tenantID, datasetID)
	if err != nil {
		return nil, nil, err
	}

	if useCache {
		if table, err := h.cache.GetCalcTable(ctx, tenantID, datasetID); err == nil && table != nil {
			return table, refs, nil
		}
	}

	txs, err := h.repo.GetTransactions(ctx, tenantID, datasetID)
	if err != nil {
		return nil, nil, err
	}

	table, err := refdata.Resolve(datasetID, txs, refs, engineCfg)
	if err != nil {
		return nil, nil, err
	}

	if useCache {
		if err := h.cache.SetCalcTable(ctx, tenantID, datasetID, table, h.tableTTL); err != nil {
			slog.Error("failed to cache calc table", "dataset_id", datasetID, "error", err)
		}
	}

	return table, refs, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
