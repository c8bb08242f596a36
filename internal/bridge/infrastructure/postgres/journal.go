// Package postgres keeps an audit journal of payout copy runs so operators
// can reconcile later without re-querying either API.
package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbridge/payout-bridge/internal/bridge/domain"
)

type Journal struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewJournal(log *slog.Logger, pool *pgxpool.Pool) *Journal {
	return &Journal{log: log, pool: pool}
}

// Migrate creates the journal tables. The tool runs against operator-owned
// databases, so schema setup stays self-contained.
func (j *Journal) Migrate(ctx context.Context) error {
	_, err := j.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS copy_runs (
			id            UUID PRIMARY KEY,
			payout_id     BIGINT NOT NULL,
			payout_date   TEXT NOT NULL,
			payout_amount TEXT NOT NULL,
			total_fees    NUMERIC NOT NULL,
			started_at    TIMESTAMPTZ NOT NULL,
			finished_at   TIMESTAMPTZ NOT NULL,
			error         TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS copy_run_orders (
			run_id         UUID NOT NULL REFERENCES copy_runs(id),
			order_id       BIGINT NOT NULL,
			order_number   INT NOT NULL,
			invoice_number TEXT NOT NULL,
			outcome        TEXT NOT NULL,
			PRIMARY KEY (run_id, order_id)
		);
	`)
	return err
}

func (j *Journal) RecordRun(ctx context.Context, rec domain.RunRecord) error {
	tx, err := j.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO copy_runs (id, payout_id, payout_date, payout_amount, total_fees, started_at, finished_at, error)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.PayoutID, rec.PayoutDate, rec.PayoutAmount, rec.TotalFees, rec.StartedAt, rec.FinishedAt, rec.Error)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, o := range rec.Orders {
		batch.Queue(`INSERT INTO copy_run_orders (run_id, order_id, order_number, invoice_number, outcome)
			VALUES ($1,$2,$3,$4,$5)`,
			rec.ID, o.OrderID, o.OrderNumber, o.InvoiceNumber, o.Outcome)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	j.log.Info("copy run recorded", "run_id", rec.ID, "payout_id", rec.PayoutID, "orders", len(rec.Orders))
	return nil
}

// Runs returns the most recent copy runs, newest first.
func (j *Journal) Runs(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	rows, err := j.pool.Query(ctx, `SELECT id, payout_id, payout_date, payout_amount, total_fees, started_at, finished_at, error
		FROM copy_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RunRecord
	for rows.Next() {
		var rec domain.RunRecord
		if err := rows.Scan(&rec.ID, &rec.PayoutID, &rec.PayoutDate, &rec.PayoutAmount, &rec.TotalFees, &rec.StartedAt, &rec.FinishedAt, &rec.Error); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
