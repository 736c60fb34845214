// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveDataset stores or updates a dataset header with tenant isolation.
func (r *SQLRepository) SaveDataset(ctx context.Context, tenantID string, ds *domain.Dataset) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if ds.ID == "" {
		return fmt.Errorf("%w: dataset ID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO datasets (id, tenant_id, name, row_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			name = excluded.name,
			row_count = excluded.row_count,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		ds.ID, tenantID, ds.Name, ds.RowCount, ds.CreatedAt, ds.UpdatedAt,
	)
	return err
}

// GetDataset retrieves a dataset header by ID with tenant isolation.
func (r *SQLRepository) GetDataset(ctx context.Context, tenantID string, datasetID string) (*domain.Dataset, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, row_count, created_at, updated_at
		FROM datasets
		WHERE tenant_id = ? AND id = ?
	`

	var ds domain.Dataset
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, datasetID).Scan(
		&ds.ID, &ds.TenantID, &ds.Name, &ds.RowCount, &ds.CreatedAt, &ds.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

// ListDatasets retrieves all datasets for a tenant, newest first.
func (r *SQLRepository) ListDatasets(ctx context.Context, tenantID string) ([]*domain.Dataset, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, row_count, created_at, updated_at
		FROM datasets
		WHERE tenant_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []*domain.Dataset
	for rows.Next() {
		var ds domain.Dataset
		if err := rows.Scan(
			&ds.ID, &ds.TenantID, &ds.Name, &ds.RowCount, &ds.CreatedAt, &ds.UpdatedAt,
		); err != nil {
			return nil, err
		}
		datasets = append(datasets, &ds)
	}
	return datasets, rows.Err()
}

// DeleteDataset removes a dataset and all of its input tables.
func (r *SQLRepository) DeleteDataset(ctx context.Context, tenantID string, datasetID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		r.rebind(`DELETE FROM datasets WHERE tenant_id = ? AND id = ?`),
		tenantID, datasetID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	for _, table := range []string{
		"dataset_transactions", "dataset_products", "dataset_peer_groups",
		"dataset_corridors", "dataset_areas",
	} {
		query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = ? AND dataset_id = ?`, table)
		if _, err := tx.ExecContext(ctx, r.rebind(query), tenantID, datasetID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveTransactions replaces the sales rows of a dataset. Row order is
// preserved through the seq column.
func (r *SQLRepository) SaveTransactions(ctx context.Context, tenantID string, datasetID string, rows []domain.TransactionRow) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		r.rebind(`DELETE FROM dataset_transactions WHERE tenant_id = ? AND dataset_id = ?`),
		tenantID, datasetID,
	); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, r.rebind(`
		INSERT INTO dataset_transactions (
			tenant_id, dataset_id, seq, product, country, customer, volume, net_price
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			tenantID, datasetID, i,
			row.Product, row.Country, row.Customer, row.Volume, row.NetPrice,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetTransactions retrieves the sales rows of a dataset in insertion order.
func (r *SQLRepository) GetTransactions(ctx context.Context, tenantID string, datasetID string) ([]domain.TransactionRow, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT product, country, customer, volume, net_price
		FROM dataset_transactions
		WHERE tenant_id = ? AND dataset_id = ?
		ORDER BY seq
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TransactionRow
	for rows.Next() {
		var row domain.TransactionRow
		if err := rows.Scan(&row.Product, &row.Country, &row.Customer, &row.Volume, &row.NetPrice); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SaveReferenceSet replaces all reference tables of a dataset atomically.
func (r *SQLRepository) SaveReferenceSet(ctx context.Context, tenantID string, datasetID string, refs *domain.ReferenceSet) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{
		"dataset_products", "dataset_peer_groups", "dataset_corridors", "dataset_areas",
	} {
		query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = ? AND dataset_id = ?`, table)
		if _, err := tx.ExecContext(ctx, r.rebind(query), tenantID, datasetID); err != nil {
			return err
		}
	}

	for i, p := range refs.Products {
		if _, err := tx.ExecContext(ctx, r.rebind(`
			INSERT INTO dataset_products (tenant_id, dataset_id, seq, product, comparable, category)
			VALUES (?, ?, ?, ?, ?, ?)
		`), tenantID, datasetID, i, p.Product, p.Comparable, p.Category); err != nil {
			return err
		}
	}

	for mapping, rows := range refs.PeerMappings {
		for i, row := range rows {
			if _, err := tx.ExecContext(ctx, r.rebind(`
				INSERT INTO dataset_peer_groups (tenant_id, dataset_id, mapping, seq, customer, peer_group)
				VALUES (?, ?, ?, ?, ?, ?)
			`), tenantID, datasetID, mapping, i, row.Customer, row.PeerGroup); err != nil {
				return err
			}
		}
	}

	for i, c := range refs.Corridors {
		if _, err := tx.ExecContext(ctx, r.rebind(`
			INSERT INTO dataset_corridors (tenant_id, dataset_id, seq, country, category, corridor_min, corridor_max)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`), tenantID, datasetID, i, c.Country, c.Category, c.Min, c.Max); err != nil {
			return err
		}
	}

	for i, a := range refs.Areas {
		if _, err := tx.ExecContext(ctx, r.rebind(`
			INSERT INTO dataset_areas (tenant_id, dataset_id, seq, country, area)
			VALUES (?, ?, ?, ?, ?)
		`), tenantID, datasetID, i, a.Country, a.Area); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetReferenceSet retrieves all reference tables of a dataset. A dataset
// with no reference rows yields an empty set, not ErrNotFound.
func (r *SQLRepository) GetReferenceSet(ctx context.Context, tenantID string, datasetID string) (*domain.ReferenceSet, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	refs := &domain.ReferenceSet{
		PeerMappings: make(map[string][]domain.PeerGroupRow),
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT product, comparable, category
		FROM dataset_products
		WHERE tenant_id = ? AND dataset_id = ?
		ORDER BY seq
	`), tenantID, datasetID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var p domain.ProductRef
		if err := rows.Scan(&p.Product, &p.Comparable, &p.Category); err != nil {
			rows.Close()
			return nil, err
		}
		refs.Products = append(refs.Products, p)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx, r.rebind(`
		SELECT mapping, customer, peer_group
		FROM dataset_peer_groups
		WHERE tenant_id = ? AND dataset_id = ?
		ORDER BY mapping, seq
	`), tenantID, datasetID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var mapping string
		var row domain.PeerGroupRow
		if err := rows.Scan(&mapping, &row.Customer, &row.PeerGroup); err != nil {
			rows.Close()
			return nil, err
		}
		refs.PeerMappings[mapping] = append(refs.PeerMappings[mapping], row)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx, r.rebind(`
		SELECT country, category, corridor_min, corridor_max
		FROM dataset_corridors
		WHERE tenant_id = ? AND dataset_id = ?
		ORDER BY seq
	`), tenantID, datasetID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var c domain.CorridorRow
		if err := rows.Scan(&c.Country, &c.Category, &c.Min, &c.Max); err != nil {
			rows.Close()
			return nil, err
		}
		refs.Corridors = append(refs.Corridors, c)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx, r.rebind(`
		SELECT country, area
		FROM dataset_areas
		WHERE tenant_id = ? AND dataset_id = ?
		ORDER BY seq
	`), tenantID, datasetID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var a domain.AreaRow
		if err := rows.Scan(&a.Country, &a.Area); err != nil {
			rows.Close()
			return nil, err
		}
		refs.Areas = append(refs.Areas, a)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	return refs, nil
}

// DistinctCountries returns the sorted set of countries in a dataset.
func (r *SQLRepository) DistinctCountries(ctx context.Context, tenantID string, datasetID string) ([]string, error) {
	return r.distinctColumn(ctx, tenantID, datasetID, "country")
}

// DistinctCustomers returns the sorted set of customers in a dataset.
func (r *SQLRepository) DistinctCustomers(ctx context.Context, tenantID string, datasetID string) ([]string, error) {
	return r.distinctColumn(ctx, tenantID, datasetID, "customer")
}

func (r *SQLRepository) distinctColumn(ctx context.Context, tenantID, datasetID, column string) ([]string, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT %s
		FROM dataset_transactions
		WHERE tenant_id = ? AND dataset_id = ?
	`, column)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Strings(values)
	return values, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
