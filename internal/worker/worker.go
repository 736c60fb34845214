// Package worker provides async dataset processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/refdata"
)

// Worker resolves datasets asynchronously from the EventBus. A reload
// message triggers a full re-resolve from the stored input tables; the
// cached calc table is replaced as a whole, never patched in place.
type Worker struct {
	bus       domain.EventBus
	repo      domain.Repository
	cache     domain.Cache
	engineCfg domain.EngineConfig
	tableTTL  time.Duration

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string

	// TableTTL is how long resolved tables stay cached.
	TableTTL time.Duration
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, cache domain.Cache, engineCfg domain.EngineConfig) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:       bus,
		repo:      repo,
		cache:     cache,
		engineCfg: engineCfg,
		tableTTL:  time.Hour,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins processing messages for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if cfg.TableTTL > 0 {
		w.tableTTL = cfg.TableTTL
	}

	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	// Subscribe using a special "global" tenant ID
	// In production, you'd want to subscribe with wildcards or JetStream
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicRefdataReload, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts workers for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	for _, topic := range []string{domain.TopicRefdataReload, domain.TopicDatasetIngested} {
		sub, err := w.bus.Subscribe(w.ctx, tenantID, topic, func(ctx context.Context, msg *domain.Message) error {
			return w.processReload(ctx, tenantID, msg)
		})
		if err != nil {
			return err
		}
		w.subscriptions = append(w.subscriptions, sub)

		slog.Info("tenant worker started",
			"tenant_id", tenantID,
			"topic", topic,
		)
	}

	return nil
}

// handleMessage handles messages from global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processReload(ctx, msg.TenantID, msg)
}

// ReloadMessage is the message payload for dataset reload processing.
type ReloadMessage struct {
	DatasetID string `json:"datasetId"`
	TenantID  string `json:"tenantId"`
	TraceID   string `json:"traceId,omitempty"`
}

// processReload re-resolves a dataset from its stored input tables and
// replaces the cached calc table.
func (w *Worker) processReload(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	// Parse message
	var reload ReloadMessage
	if err := json.Unmarshal(msg.Payload, &reload); err != nil {
		slog.Error("failed to parse reload message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if reload.TenantID != "" {
		tenantID = reload.TenantID
	}

	traceID := reload.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	slog.Debug("resolving dataset",
		"dataset_id", reload.DatasetID,
		"tenant_id", tenantID,
		"trace_id", traceID,
	)

	table, err := w.ResolveDataset(ctx, tenantID, reload.DatasetID)
	if err != nil {
		slog.Error("dataset resolution failed",
			"dataset_id", reload.DatasetID,
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}

	// Announce the fresh table
	resultPayload, _ := json.Marshal(ReloadMessage{
		DatasetID: reload.DatasetID,
		TenantID:  tenantID,
		TraceID:   traceID,
	})
	if err := w.bus.Publish(ctx, tenantID, domain.TopicDatasetResolved, resultPayload); err != nil {
		slog.Error("failed to publish resolution event",
			"dataset_id", reload.DatasetID,
			"error", err,
		)
	}

	slog.Info("dataset resolved",
		"dataset_id", reload.DatasetID,
		"tenant_id", tenantID,
		"row_count", len(table.Rows),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// ResolveDataset loads a dataset's inputs, resolves the calc table and
// swaps it into the cache. The previous entry stays readable until the
// swap completes.
func (w *Worker) ResolveDataset(ctx context.Context, tenantID, datasetID string) (*domain.CalcTable, error) {
	txs, err := w.repo.GetTransactions(ctx, tenantID, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	refs, err := w.repo.GetReferenceSet(ctx, tenantID, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference tables: %w", err)
	}

	table, err := refdata.Resolve(datasetID, txs, refs, w.engineCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dataset: %w", err)
	}

	if err := w.cache.SetCalcTable(ctx, tenantID, datasetID, table, w.tableTTL); err != nil {
		return nil, fmt.Errorf("failed to cache calc table: %w", err)
	}

	return table, nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
