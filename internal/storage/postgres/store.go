package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dexEngine/internal/model"
)

// Schema creates the tables used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS dex_events (
	seq         BIGINT      NOT NULL,
	idx         INTEGER     NOT NULL,
	ts          BIGINT      NOT NULL,
	event_name  TEXT        NOT NULL,
	asset0      BIGINT      NOT NULL,
	asset1      BIGINT      NOT NULL,
	pool_token  BIGINT      NOT NULL,
	decoded     JSONB       NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (seq, idx)
);

CREATE TABLE IF NOT EXISTS dex_pools (
	pool_token  BIGINT      PRIMARY KEY,
	asset0      BIGINT      NOT NULL,
	asset1      BIGINT      NOT NULL,
	account     TEXT        NOT NULL,
	reserve0    NUMERIC     NOT NULL,
	reserve1    NUMERIC     NOT NULL,
	supply      NUMERIC     NOT NULL,
	price       NUMERIC     NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dex_pool_window_metrics (
	pool_token          BIGINT      NOT NULL,
	asset0              BIGINT      NOT NULL,
	asset1              BIGINT      NOT NULL,
	window_size_seconds BIGINT      NOT NULL,
	window_start_ts     TIMESTAMPTZ NOT NULL,
	window_end_ts       TIMESTAMPTZ NOT NULL,
	swap_count          BIGINT      NOT NULL,
	deposit_count       BIGINT      NOT NULL,
	withdraw_count      BIGINT      NOT NULL,
	volume0             NUMERIC     NOT NULL,
	volume1             NUMERIC     NOT NULL,
	fee0                NUMERIC     NOT NULL,
	fee1                NUMERIC     NOT NULL,
	reserve0            NUMERIC,
	reserve1            NUMERIC,
	fee_rate0           NUMERIC,
	fee_rate1           NUMERIC,
	apr                 NUMERIC,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (pool_token, window_size_seconds, window_start_ts)
);

CREATE TABLE IF NOT EXISTS dex_state (
	name              TEXT        PRIMARY KEY,
	last_processed_ts BIGINT      NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for events, pools and metrics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InsertEvents stores event records. Records already present are skipped so
// a replayed batch is harmless.
func (s *Store) InsertEvents(ctx context.Context, records []model.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		decoded, err := json.Marshal(rec.Decoded)
		if err != nil {
			return fmt.Errorf("marshal event %d/%d: %w", rec.Seq, rec.Index, err)
		}
		batch.Queue(`
			INSERT INTO dex_events (
				seq, idx, ts, event_name, asset0, asset1, pool_token, decoded
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (seq, idx) DO NOTHING
		`,
			int64(rec.Seq),
			int32(rec.Index),
			int64(rec.Timestamp),
			rec.EventName,
			int64(rec.PoolMeta.Asset0),
			int64(rec.PoolMeta.Asset1),
			int64(rec.PoolMeta.PoolToken),
			string(decoded),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// EventSink adapts the store to the engine's synchronous event sink.
func (s *Store) EventSink(ctx context.Context) *EventSink {
	return &EventSink{ctx: ctx, store: s}
}

type EventSink struct {
	ctx   context.Context
	store *Store
}

func (e *EventSink) PutEventBatch(records []model.EventRecord) error {
	return e.store.InsertEvents(e.ctx, records)
}

// UpsertPools inserts or updates pool snapshots.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO dex_pools (
				pool_token, asset0, asset1, account, reserve0, reserve1, supply, price, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			ON CONFLICT (pool_token)
			DO UPDATE SET
				reserve0 = EXCLUDED.reserve0,
				reserve1 = EXCLUDED.reserve1,
				supply = EXCLUDED.supply,
				price = EXCLUDED.price,
				updated_at = now()
		`,
			int64(pool.PoolToken),
			int64(pool.Asset0),
			int64(pool.Asset1),
			pool.Account,
			pool.Reserve0,
			pool.Reserve1,
			pool.Supply,
			pool.Price,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO dex_pool_window_metrics (
				pool_token, asset0, asset1, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, deposit_count, withdraw_count, volume0, volume1, fee0, fee1,
				reserve0, reserve1, fee_rate0, fee_rate1, apr, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,now(),now())
			ON CONFLICT (pool_token, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				deposit_count = EXCLUDED.deposit_count,
				withdraw_count = EXCLUDED.withdraw_count,
				volume0 = EXCLUDED.volume0,
				volume1 = EXCLUDED.volume1,
				fee0 = EXCLUDED.fee0,
				fee1 = EXCLUDED.fee1,
				reserve0 = EXCLUDED.reserve0,
				reserve1 = EXCLUDED.reserve1,
				fee_rate0 = EXCLUDED.fee_rate0,
				fee_rate1 = EXCLUDED.fee_rate1,
				apr = EXCLUDED.apr,
				updated_at = now()
		`,
			int64(m.PoolToken),
			int64(m.Asset0),
			int64(m.Asset1),
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			int64(m.DepositCount),
			int64(m.WithdrawCount),
			m.Volume0,
			m.Volume1,
			m.Fee0,
			m.Fee1,
			m.Reserve0,
			m.Reserve1,
			m.FeeRate0,
			m.FeeRate1,
			m.APR,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM dex_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dex_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, int64(ts))
	return err
}
