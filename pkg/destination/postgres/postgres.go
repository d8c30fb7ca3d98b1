// Package postgres implements the destination store directly against
// the destination application's database, for deployments where the
// engine runs embedded next to it. Each record kind maps to a table
// holding the record body as jsonb.
package postgres

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sluice-dev/sluice/pkg/config"
	"github.com/sluice-dev/sluice/pkg/destination"
	"github.com/sluice-dev/sluice/pkg/errors"
	"github.com/sluice-dev/sluice/pkg/logger"
)

const tableDDL = `CREATE TABLE IF NOT EXISTS %s (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL DEFAULT '',
	shopify_id TEXT NOT NULL DEFAULT '',
	body       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertIndexDDL = `CREATE UNIQUE INDEX IF NOT EXISTS %s_account_shopify_idx ON %s (account_id, shopify_id)`

// Store persists records in per-kind tables.
type Store struct {
	pool   *pgxpool.Pool
	upsert bool
	logger *zap.Logger
}

// New connects the pool, verifies the database is reachable, and
// prepares the schema.
func New(ctx context.Context, cfg config.DestinationConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "parse postgres dsn")
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnectivity, "create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnectivity, "destination database unreachable")
	}

	s := &Store{
		pool:   pool,
		upsert: cfg.Upsert,
		logger: logger.Get().With(zap.String("component", "postgres_store")),
	}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s.logger.Info("connected to destination database",
		zap.Int32("max_connections", poolConfig.MaxConns),
		zap.Bool("upsert", s.upsert))
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// CreateRecord inserts one record. With upsert enabled, creates are
// keyed on (account_id, shopify_id) and replace the stored body.
func (s *Store) CreateRecord(ctx context.Context, kind string, record interface{}) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	fields, err := destination.FieldsOf(record)
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypePersist, "encode %s record", kind)
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypePersist, "encode %s record", kind)
	}

	id, _ := fields["id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	account, _ := fields["account_id"].(string)
	shopifyID, _ := fields["shopify_id"].(string)

	// Sync job rows are keyed by their own id, never merged.
	upsert := s.upsert && kind != destination.KindSyncJobs
	if _, err := s.pool.Exec(ctx, insertSQL(table, upsert), id, account, shopifyID, string(body)); err != nil {
		return errors.Wrapf(err, errors.ErrorTypePersist, "insert %s record", kind)
	}
	return nil
}

// PatchRecord merges the patch into the stored body.
func (s *Store) PatchRecord(ctx context.Context, kind, id string, fields map[string]interface{}) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	patch, err := json.Marshal(fields)
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypePersist, "encode %s patch", kind)
	}

	sql := fmt.Sprintf(`UPDATE %s SET body = body || $2::jsonb, updated_at = now() WHERE id = $1`, table)
	tag, err := s.pool.Exec(ctx, sql, id, string(patch))
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypePersist, "patch %s record", kind)
	}
	if tag.RowsAffected() == 0 {
		return errors.Newf(errors.ErrorTypePersist, "no %s record %q", kind, id)
	}
	return nil
}

// ListRecords returns records whose body contains every filter value,
// in insertion order. A limit of 0 lists everything.
func (s *Store) ListRecords(ctx context.Context, kind string, filter destination.Filter, limit int) ([]destination.Stored, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	if filter == nil {
		filter = destination.Filter{}
	}
	match, err := json.Marshal(filter)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeBulkLoad, "encode %s filter", kind)
	}

	sql := fmt.Sprintf(`SELECT id, body FROM %s WHERE body @> $1::jsonb ORDER BY created_at LIMIT NULLIF($2, 0)`, table)
	rows, err := s.pool.Query(ctx, sql, string(match), limit)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeBulkLoad, "query %s records", kind)
	}
	defer rows.Close()

	var out []destination.Stored
	for rows.Next() {
		var (
			id   string
			body []byte
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeBulkLoad, "scan %s record", kind)
		}
		var fields map[string]interface{}
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeBulkLoad, "decode %s record", kind)
		}
		out = append(out, destination.Stored{ID: id, Kind: kind, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeBulkLoad, "read %s records", kind)
	}
	return out, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, table := range []string{
		destination.KindCustomers,
		destination.KindInteractions,
		destination.KindProducts,
		destination.KindSyncJobs,
	} {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf(tableDDL, table)); err != nil {
			return errors.Wrapf(err, errors.ErrorTypeInternal, "create %s table", table)
		}
		if s.upsert && table != destination.KindSyncJobs {
			if _, err := s.pool.Exec(ctx, fmt.Sprintf(upsertIndexDDL, table, table)); err != nil {
				return errors.Wrapf(err, errors.ErrorTypeInternal, "create %s upsert index", table)
			}
		}
	}
	return nil
}

// tableFor guards the table name against injection: only known kinds
// map to tables.
func tableFor(kind string) (string, error) {
	switch kind {
	case destination.KindCustomers, destination.KindInteractions,
		destination.KindProducts, destination.KindSyncJobs:
		return kind, nil
	}
	return "", errors.Newf(errors.ErrorTypeInternal, "unknown record kind %q", kind)
}

func insertSQL(table string, upsert bool) string {
	sql := fmt.Sprintf(`INSERT INTO %s (id, account_id, shopify_id, body) VALUES ($1, $2, $3, $4)`, table)
	if upsert {
		sql += ` ON CONFLICT (account_id, shopify_id) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`
	}
	return sql
}
