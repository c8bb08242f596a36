package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbridge/payout-bridge/internal/bridge/domain"
	"github.com/finbridge/payout-bridge/pkg/logging"
	"github.com/finbridge/payout-bridge/test/integration"
)

func TestJournalRecordRun(t *testing.T) {
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION to run container-backed tests")
	}

	ctx := context.Background()
	env, err := integration.Setup(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { env.Teardown(ctx) })

	pool, err := pgxpool.New(ctx, env.PGURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	j := NewJournal(logging.New(), pool)
	require.NoError(t, j.Migrate(ctx))

	started := time.Now().UTC().Truncate(time.Millisecond)
	rec := domain.RunRecord{
		ID:           uuid.New(),
		PayoutID:     854,
		PayoutDate:   "2020-11-18",
		PayoutAmount: "118.81",
		TotalFees:    decimal.RequireFromString("3.49"),
		StartedAt:    started,
		FinishedAt:   started.Add(2 * time.Second),
		Orders: []domain.OrderResult{
			{OrderID: 9001, OrderNumber: 1001, InvoiceNumber: "INV-SHOPIFY-1001", Outcome: domain.OutcomeCreated},
			{OrderID: 9002, OrderNumber: 1002, InvoiceNumber: "INV-SHOPIFY-1002", Outcome: domain.OutcomeSkipped},
		},
	}
	require.NoError(t, j.RecordRun(ctx, rec))

	runs, err := j.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, rec.ID, runs[0].ID)
	assert.Equal(t, "118.81", runs[0].PayoutAmount)
	assert.True(t, runs[0].TotalFees.Equal(rec.TotalFees))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM copy_run_orders WHERE run_id=$1`, rec.ID).Scan(&count))
	assert.Equal(t, 2, count)
}
