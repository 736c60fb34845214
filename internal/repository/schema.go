package repository

// Schema definitions for Kestrel's input store.
// Compatible with both SQLite and PostgreSQL. Only input tables are
// persisted; calc tables and risk output are always recomputed.

const schemaDatasets = `
CREATE TABLE IF NOT EXISTS datasets (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    row_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_datasets_tenant ON datasets(tenant_id);
`

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS dataset_transactions (
    tenant_id TEXT NOT NULL,
    dataset_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    product TEXT NOT NULL,
    country TEXT NOT NULL,
    customer TEXT NOT NULL,
    volume REAL NOT NULL,
    net_price REAL NOT NULL,
    PRIMARY KEY (tenant_id, dataset_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_tx_dataset ON dataset_transactions(tenant_id, dataset_id);
CREATE INDEX IF NOT EXISTS idx_tx_country ON dataset_transactions(tenant_id, dataset_id, country);
CREATE INDEX IF NOT EXISTS idx_tx_customer ON dataset_transactions(tenant_id, dataset_id, customer);
`

const schemaProducts = `
CREATE TABLE IF NOT EXISTS dataset_products (
    tenant_id TEXT NOT NULL,
    dataset_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    product TEXT NOT NULL,
    comparable TEXT NOT NULL,
    category TEXT NOT NULL,
    PRIMARY KEY (tenant_id, dataset_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_products_dataset ON dataset_products(tenant_id, dataset_id);
`

const schemaPeerGroups = `
CREATE TABLE IF NOT EXISTS dataset_peer_groups (
    tenant_id TEXT NOT NULL,
    dataset_id TEXT NOT NULL,
    mapping TEXT NOT NULL,
    seq INTEGER NOT NULL,
    customer TEXT NOT NULL,
    peer_group TEXT NOT NULL,
    PRIMARY KEY (tenant_id, dataset_id, mapping, seq)
);

CREATE INDEX IF NOT EXISTS idx_peer_groups_dataset ON dataset_peer_groups(tenant_id, dataset_id);
`

const schemaCorridors = `
CREATE TABLE IF NOT EXISTS dataset_corridors (
    tenant_id TEXT NOT NULL,
    dataset_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    country TEXT NOT NULL,
    category TEXT NOT NULL,
    corridor_min REAL NOT NULL,
    corridor_max REAL NOT NULL,
    PRIMARY KEY (tenant_id, dataset_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_corridors_dataset ON dataset_corridors(tenant_id, dataset_id);
`

const schemaAreas = `
CREATE TABLE IF NOT EXISTS dataset_areas (
    tenant_id TEXT NOT NULL,
    dataset_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    country TEXT NOT NULL,
    area TEXT NOT NULL,
    PRIMARY KEY (tenant_id, dataset_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_areas_dataset ON dataset_areas(tenant_id, dataset_id);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaDatasets,
		schemaTransactions,
		schemaProducts,
		schemaPeerGroups,
		schemaCorridors,
		schemaAreas,
	}
}
