// Package pgstore provides a durable PostgreSQL mirror of the Reaction
// Store, built on the connection-pool and migration machinery in
// internal/infrastructure/database/postgres. It is an optional write-behind
// tier: internal/reaction.Store remains the single in-memory source of
// truth; pgstore.Mirror only persists a durable copy so a long-running
// expansion loop survives a process restart without re-fetching or
// re-extracting anything.
package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/config"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/database/postgres"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/logging"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/reaction"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// createTableSQL is the inline fallback schema, used only when no
// migrations directory is configured.
const createTableSQL = `
CREATE TABLE IF NOT EXISTS reactions (
	idx        TEXT PRIMARY KEY,
	material   TEXT NOT NULL,
	reactants  TEXT[] NOT NULL,
	products   TEXT[] NOT NULL,
	conditions TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS reactions_material_idx ON reactions (material);
`

// Mirror durably persists reaction rows for one target material, backed by
// a pgxpool.Pool built from postgres.NewConnectionPool.
type Mirror struct {
	pool     *pgxpool.Pool
	material string
	log      logging.Logger
}

// Open connects to PostgreSQL per cfg and ensures the reactions table
// exists. When cfg.MigrationPath is set, schema setup runs through
// golang-migrate against that directory instead of the inline DDL below —
// a single reactions table doesn't warrant a migrations directory unless
// the deployment actually supplies one. Callers should defer Close.
func Open(ctx context.Context, cfg config.DatabaseConfig, material string, log logging.Logger) (*Mirror, error) {
	if log == nil {
		log = logging.Default()
	}
	pool, err := postgres.NewConnectionPool(cfg, log)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "open reaction store postgres mirror")
	}
	if cfg.MigrationPath != "" {
		if err := postgres.RunMigrations(postgres.ConnString(cfg), cfg.MigrationPath); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, errors.CodeInternal, "run reaction store migrations")
		}
	} else if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.CodeInternal, "ensure reactions table")
	}
	return &Mirror{pool: pool, material: material, log: log}, nil
}

// Close releases the underlying connection pool.
func (m *Mirror) Close() { postgres.Close(m.pool) }

// Persist upserts every reaction currently in rs for this Mirror's
// material. Persist is called once per merged batch from
// internal/pipeline, inside a single transaction so a crash mid-write
// never leaves a partial batch visible.
func (m *Mirror) Persist(ctx context.Context, rs *reaction.Store) error {
	reactions := rs.Iterate()
	return postgres.WithTransaction(ctx, m.pool, func(tx pgx.Tx) error {
		for _, r := range reactions {
			_, err := tx.Exec(ctx, `
				INSERT INTO reactions (idx, material, reactants, products, conditions, source)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (idx) DO UPDATE SET
					material = EXCLUDED.material,
					reactants = EXCLUDED.reactants,
					products = EXCLUDED.products,
					conditions = EXCLUDED.conditions,
					source = EXCLUDED.source
			`, r.ID, m.material, r.Reactants, r.Products, r.Conditions, r.Source)
			if err != nil {
				return errors.Wrap(err, errors.CodeInternal, "persist reaction").WithDetail("idx=" + r.ID)
			}
		}
		return nil
	})
}

// Load reads back every persisted reaction for this Mirror's material,
// for resuming a pipeline run against a previously-populated store
// without re-running extraction.
func (m *Mirror) Load(ctx context.Context) ([]reaction.Reaction, error) {
	rows, err := m.pool.Query(ctx, `
		SELECT idx, reactants, products, conditions, source
		FROM reactions WHERE material = $1
	`, m.material)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "load reactions")
	}
	defer rows.Close()

	var out []reaction.Reaction
	for rows.Next() {
		var id, conditions, source string
		var reactants, products []string
		if err := rows.Scan(&id, &reactants, &products, &conditions, &source); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "scan reaction row")
		}
		out = append(out, reaction.New(id, reactants, products, conditions, source))
	}
	return out, rows.Err()
}
