package postgresql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Migrations struct {
	pool *pgxpool.Pool
}

func NewMigrations(pool *pgxpool.Pool) *Migrations {
	return &Migrations{pool: pool}
}

func (m *Migrations) Setup(ctx context.Context) error {
	if err := m.setupRateSampleTable(ctx); err != nil {
		return fmt.Errorf("setup rate_sample: %w", err)
	}
	return nil
}

func (m *Migrations) setupRateSampleTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
create table if not exists rate_sample (
  id         bigserial primary key,
  pair       varchar(7) not null check (pair in ('EUR/BTC', 'EUR/ETH', 'EUR/LTC')),
  rate       numeric(20, 10) not null check (rate > 0),
  timestamp  timestamptz not null,
  created_at timestamptz not null default now()
);

create index if not exists idx_rate_sample_pair_timestamp
  on rate_sample (pair, timestamp desc);

create index if not exists idx_rate_sample_timestamp
  on rate_sample (timestamp desc);
`)
	if err != nil {
		return fmt.Errorf("ensure table rate_sample: %w", err)
	}
	return nil
}
