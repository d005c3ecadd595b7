package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/latticeform/statepath"
)

// PostgresPersister stores snapshots as JSONB rows, one per instance id,
// keyed by instance_id with upsert-on-save. Grounded on the pool-setup
// and connect-time ping shape of the teacher's db package (adapted here
// since comalice-statechartx itself has no database persister).
type PostgresPersister struct {
	pool *pgxpool.Pool
}

// NewPostgresPersister connects to dsn, pings it, and ensures the backing
// table exists.
func NewPostgresPersister(ctx context.Context, dsn string) (*PostgresPersister, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("persist: create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("persist: ping database: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS statepath_instances (
		instance_id TEXT PRIMARY KEY,
		snapshot    JSONB NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("persist: ensure table: %w", err)
	}

	return &PostgresPersister{pool: pool}, nil
}

func (p *PostgresPersister) Save(instanceID string, snapshot statepath.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("persist: marshal %s: %w", instanceID, err)
	}
	const q = `INSERT INTO statepath_instances (instance_id, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (instance_id) DO UPDATE SET snapshot = $2, updated_at = now()`
	if _, err := p.pool.Exec(context.Background(), q, instanceID, data); err != nil {
		return fmt.Errorf("persist: upsert %s: %w", instanceID, err)
	}
	return nil
}

func (p *PostgresPersister) Load(instanceID string) (statepath.Snapshot, error) {
	const q = `SELECT snapshot FROM statepath_instances WHERE instance_id = $1`
	var data []byte
	if err := p.pool.QueryRow(context.Background(), q, instanceID).Scan(&data); err != nil {
		return statepath.Snapshot{}, fmt.Errorf("persist: load %s: %w", instanceID, err)
	}
	var snap statepath.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return statepath.Snapshot{}, fmt.Errorf("persist: unmarshal %s: %w", instanceID, err)
	}
	return snap, nil
}

func (p *PostgresPersister) Close() {
	p.pool.Close()
}
