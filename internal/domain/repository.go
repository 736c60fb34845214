package domain

import (
	"context"
	"time"
)

// Repository defines the interface for dataset persistence. Only input
// tables are stored; computed risk output is never persisted.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Dataset operations
	SaveDataset(ctx context.Context, tenantID string, ds *Dataset) error
	GetDataset(ctx context.Context, tenantID string, datasetID string) (*Dataset, error)
	ListDatasets(ctx context.Context, tenantID string) ([]*Dataset, error)
	DeleteDataset(ctx context.Context, tenantID string, datasetID string) error

	// Input table operations
	SaveTransactions(ctx context.Context, tenantID string, datasetID string, rows []TransactionRow) error
	GetTransactions(ctx context.Context, tenantID string, datasetID string) ([]TransactionRow, error)
	SaveReferenceSet(ctx context.Context, tenantID string, datasetID string, refs *ReferenceSet) error
	GetReferenceSet(ctx context.Context, tenantID string, datasetID string) (*ReferenceSet, error)

	// Distinct column values for the presentation layer's filter widgets.
	DistinctCountries(ctx context.Context, tenantID string, datasetID string) ([]string, error)
	DistinctCustomers(ctx context.Context, tenantID string, datasetID string) ([]string, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
