package api

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/facets"
	"github.com/opensource-finance/kestrel/internal/pipeline"
	"github.com/opensource-finance/kestrel/internal/repository"
)

// createTestServer creates a server backed by a temp SQLite database, an
// in-memory cache and a channel bus.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "kestrel-api-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	lruCache := cache.NewLRUCache(100)
	t.Cleanup(func() { lruCache.Close() })

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	facetSvc := facets.NewService(repo, lruCache)

	return NewServer(cfg, repo, lruCache, eventBus, facetSvc, domain.DefaultEngineConfig(), "test-v1")
}

// testIngestRequest builds a small two-country dataset whose rows share one
// comparable product and one peer group.
func testIngestRequest() IngestRequest {
	return IngestRequest{
		Name: "api test",
		Transactions: []domain.TransactionRow{
			{Product: "SKU-1", Country: "Italy", Customer: "Acme Retail", Volume: 100, NetPrice: 10},
			{Product: "SKU-1", Country: "France", Customer: "Beta Markets", Volume: 50, NetPrice: 8},
		},
		Products: []domain.ProductRef{
			{Product: "SKU-1", Comparable: "COMP-A", Category: "Snacks"},
		},
		PeerMappings: map[string][]domain.PeerGroupRow{
			domain.DefaultMappingName: {
				{Customer: "Acme Retail", PeerGroup: "Alliance One"},
				{Customer: "Beta Markets", PeerGroup: "Alliance One"},
			},
		},
		Corridors: []domain.CorridorRow{
			{Country: "Italy", Category: "Snacks", Min: 0.9, Max: 1.1},
			{Country: "France", Category: "Snacks", Min: 0.8, Max: 1.2},
		},
	}
}

// ingestTestDataset posts the standard test dataset and returns its ID.
func ingestTestDataset(t *testing.T, server *Server, tenantID string) string {
	t.Helper()

	body, _ := json.Marshal(testIngestRequest())
	req := httptest.NewRequest(http.MethodPost, "/datasets", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID)

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("ingest failed with status %d: %s", rr.Code, rr.Body.String())
	}

	var resp IngestResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse ingest response: %v", err)
	}
	return resp.Dataset.ID
}

func TestIngestEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("SuccessfulIngest", func(t *testing.T) {
		body, _ := json.Marshal(testIngestRequest())
		req := httptest.NewRequest(http.MethodPost, "/datasets", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp IngestResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.Dataset == nil || resp.Dataset.ID == "" {
			t.Fatal("expected dataset with an ID in response")
		}
		if resp.Dataset.RowCount != 2 {
			t.Errorf("expected rowCount 2, got %d", resp.Dataset.RowCount)
		}
		if resp.ResolvedRows != 2 {
			t.Errorf("expected 2 resolved rows, got %d", resp.ResolvedRows)
		}
		if resp.DroppedRows != 0 {
			t.Errorf("expected 0 dropped rows, got %d", resp.DroppedRows)
		}
		if resp.Metadata.Version != "test-v1" {
			t.Errorf("expected version test-v1, got %s", resp.Metadata.Version)
		}
		if resp.Metadata.TraceID == "" {
			t.Error("expected traceId in metadata")
		}
	})

	t.Run("UnmappedCustomersDropped", func(t *testing.T) {
		ingest := testIngestRequest()
		ingest.Transactions = append(ingest.Transactions, domain.TransactionRow{
			Product: "SKU-1", Country: "Spain", Customer: "No Alliance", Volume: 10, NetPrice: 5,
		})

		body, _ := json.Marshal(ingest)
		req := httptest.NewRequest(http.MethodPost, "/datasets", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp IngestResponse
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp.ResolvedRows != 2 {
			t.Errorf("expected 2 resolved rows, got %d", resp.ResolvedRows)
		}
		if resp.DroppedRows != 1 {
			t.Errorf("expected 1 dropped row, got %d", resp.DroppedRows)
		}
	})

	t.Run("MissingTenantID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/datasets", bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		// No X-Tenant-ID header

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/datasets", bytes.NewBufferString("not-json"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("MissingTransactions", func(t *testing.T) {
		ingest := testIngestRequest()
		ingest.Transactions = nil

		body, _ := json.Marshal(ingest)
		req := httptest.NewRequest(http.MethodPost, "/datasets", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("MissingProducts", func(t *testing.T) {
		ingest := testIngestRequest()
		ingest.Products = nil

		body, _ := json.Marshal(ingest)
		req := httptest.NewRequest(http.MethodPost, "/datasets", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ResponseHeaders", func(t *testing.T) {
		body, _ := json.Marshal(testIngestRequest())
		req := httptest.NewRequest(http.MethodPost, "/datasets", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header in response")
		}
		if rr.Header().Get("X-Trace-ID") == "" {
			t.Error("expected X-Trace-ID header in response")
		}
		if rr.Header().Get("Content-Type") != "application/json" {
			t.Error("expected Content-Type: application/json")
		}
	})
}

func TestDatasetEndpoints(t *testing.T) {
	server := createTestServer(t)
	datasetID := ingestTestDataset(t, server, "tenant-001")

	t.Run("GetDataset", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/datasets/"+datasetID, nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var ds domain.Dataset
		if err := json.Unmarshal(rr.Body.Bytes(), &ds); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if ds.ID != datasetID {
			t.Errorf("expected dataset %s, got %s", datasetID, ds.ID)
		}
		if ds.Name != "api test" {
			t.Errorf("expected name 'api test', got %q", ds.Name)
		}
	})

	t.Run("GetDatasetNotFound", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/datasets/nonexistent", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/datasets/"+datasetID, nil)
		req.Header.Set("X-Tenant-ID", "tenant-other")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 for other tenant, got %d", rr.Code)
		}
	})

	t.Run("ListDatasets", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/datasets", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Datasets []domain.Dataset `json:"datasets"`
			Count    int              `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Count != 1 || len(resp.Datasets) != 1 {
			t.Errorf("expected 1 dataset, got %d", resp.Count)
		}
	})

	t.Run("DeleteDataset", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/datasets/"+datasetID, nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		// The dataset is gone afterwards.
		req = httptest.NewRequest(http.MethodGet, "/datasets/"+datasetID, nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr = httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 after delete, got %d", rr.Code)
		}
	})

	t.Run("DeleteDatasetNotFound", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/datasets/"+datasetID, nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestRecomputeEndpoint(t *testing.T) {
	server := createTestServer(t)
	datasetID := ingestTestDataset(t, server, "tenant-001")

	recompute := func(t *testing.T, body []byte) (*httptest.ResponseRecorder, *RecomputeResponse) {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/datasets/"+datasetID+"/recompute", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			return rr, nil
		}
		var resp RecomputeResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		return rr, &resp
	}

	t.Run("UnfilteredRun", func(t *testing.T) {
		rr, resp := recompute(t, []byte("{}"))
		if resp == nil {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		if len(resp.Result.Rows) != 2 {
			t.Fatalf("expected 2 risk rows, got %d", len(resp.Result.Rows))
		}
		if got := resp.Result.ByCountry.Total.NetSales; got != 1400 {
			t.Errorf("expected total net sales 1400, got %v", got)
		}
		// The Italian sale at 10 EUR/kg sits above the corridor around the
		// French group minimum at 8 EUR/kg.
		if resp.Result.ByCountry.Total.Risk <= 0 {
			t.Errorf("expected positive total risk, got %v", resp.Result.ByCountry.Total.Risk)
		}
		if resp.Metadata.Version != "test-v1" {
			t.Errorf("expected version test-v1, got %s", resp.Metadata.Version)
		}
	})

	t.Run("FilterRecomputesMinimum", func(t *testing.T) {
		body, _ := json.Marshal(RecomputeRequest{
			Filter: pipeline.Filter{Countries: []string{"Italy"}},
		})
		rr, resp := recompute(t, body)
		if resp == nil {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		if len(resp.Result.Rows) != 1 {
			t.Fatalf("expected 1 risk row, got %d", len(resp.Result.Rows))
		}
		// With France filtered out the group minimum is Italy's own price,
		// so the corridor check cannot flag anything.
		if got := resp.Result.Rows[0].Risk; got != 0 {
			t.Errorf("expected zero risk for self-minimum row, got %v", got)
		}
		if float64(resp.Result.Rows[0].MinPrice) != 10 {
			t.Errorf("expected recomputed min price 10, got %v", resp.Result.Rows[0].MinPrice)
		}
	})

	t.Run("ExpressionFilter", func(t *testing.T) {
		raw := []byte(`{"filter":{"expression":"net_price > 9.0"}}`)
		rr, resp := recompute(t, raw)
		if resp == nil {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if len(resp.Result.Rows) != 1 {
			t.Fatalf("expected 1 risk row, got %d", len(resp.Result.Rows))
		}
		if resp.Result.Rows[0].SufferingCountry != "Italy" {
			t.Errorf("expected Italy row, got %q", resp.Result.Rows[0].SufferingCountry)
		}
	})

	t.Run("InvalidExpression", func(t *testing.T) {
		raw := []byte(`{"filter":{"expression":"net_price >"}}`)
		rr, _ := recompute(t, raw)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidGroupingMode", func(t *testing.T) {
		raw := []byte(`{"groupingMode":"sideways"}`)
		rr, _ := recompute(t, raw)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("EngineOverride", func(t *testing.T) {
		// Keeping unmapped customers has no effect here since all
		// customers are mapped, but the override path must still work.
		raw := []byte(`{"engine":{"peerGroupStrategy":"mapping","corridorPolicy":"single","dropUnmappedPeerGroup":false}}`)
		rr, resp := recompute(t, raw)
		if resp == nil {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if len(resp.Result.Rows) != 2 {
			t.Errorf("expected 2 risk rows, got %d", len(resp.Result.Rows))
		}
	})

	t.Run("EmptyBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/datasets/"+datasetID+"/recompute", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200 for empty body, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("DatasetNotFound", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/datasets/nonexistent/recompute", bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("RiskRatioUndefinedSurvivesJSON", func(t *testing.T) {
		rr, resp := recompute(t, []byte(`{"filter":{"countries":["Atlantis"]}}`))
		if resp == nil {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if len(resp.Result.Rows) != 0 {
			t.Fatalf("expected no rows, got %d", len(resp.Result.Rows))
		}
		// Zero net sales means the total ratio is undefined, encoded as null.
		if !math.IsNaN(float64(resp.Result.ByCountry.Total.RiskRatio)) {
			t.Errorf("expected NaN total risk ratio, got %v", resp.Result.ByCountry.Total.RiskRatio)
		}
	})
}

func TestFacetsEndpoint(t *testing.T) {
	server := createTestServer(t)
	datasetID := ingestTestDataset(t, server, "tenant-001")

	t.Run("GetFacets", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/datasets/"+datasetID+"/facets", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var f facets.Facets
		if err := json.Unmarshal(rr.Body.Bytes(), &f); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if len(f.Countries) != 2 || f.Countries[0] != "France" || f.Countries[1] != "Italy" {
			t.Errorf("expected sorted [France Italy], got %v", f.Countries)
		}
		if len(f.Categories) != 1 || f.Categories[0] != "Snacks" {
			t.Errorf("expected [Snacks], got %v", f.Categories)
		}
		if len(f.PeerGroups) != 1 || f.PeerGroups[0] != "Alliance One" {
			t.Errorf("expected [Alliance One], got %v", f.PeerGroups)
		}
	})

	t.Run("FacetsNotFound", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/datasets/nonexistent/facets", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestReloadEndpoint(t *testing.T) {
	server := createTestServer(t)
	datasetID := ingestTestDataset(t, server, "tenant-001")

	t.Run("ReloadAccepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/datasets/"+datasetID+"/reload", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusAccepted {
			t.Errorf("expected status 202, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("ReloadNotFound", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/datasets/nonexistent/reload", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("HealthCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("ReadyCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("TenantMiddlewareExtractsID", func(t *testing.T) {
		var capturedTenantID string

		handler := TenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedTenantID = GetTenantID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "my-tenant-123")

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedTenantID != "my-tenant-123" {
			t.Errorf("expected tenant ID 'my-tenant-123', got '%s'", capturedTenantID)
		}
	})

	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v, ok := r.Context().Value(RequestIDKey).(string); ok {
				capturedRequestID = v
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		// Should not panic
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})
}
