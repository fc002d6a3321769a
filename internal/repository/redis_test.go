package repository

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/ayo6706/custodial-ledger/internal/domain"
	"github.com/ayo6706/custodial-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)

	ctx := context.Background()
	require.NoError(t, client.Del(ctx, redisCustomersKey, redisFundKey, redisAuditKey).Err())
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func TestRedisStore_Contract(t *testing.T) {
	store := newTestRedisStore(t)
	require.NoError(t, store.Ping(context.Background()))
	runStoreContract(t, store)

	trail, err := store.AuditTrail(context.Background(), 10)
	require.NoError(t, err)
	assert.NotEmpty(t, trail)
}

func TestRedisStore_ConcurrentFundUpdatesSerialize(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.RunInTx(ctx, func(tx Tx) error {
		return tx.SetFund(ctx, models.Fund{Amount: decimal.NewFromInt(100), Initial: decimal.NewFromInt(100)})
	}))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				err := store.RunInTx(ctx, func(tx Tx) error {
					f, _, err := tx.Fund(ctx)
					if err != nil {
						return err
					}
					f.Amount = f.Amount.Sub(decimal.NewFromInt(1))
					if err := tx.SetFund(ctx, f); err != nil {
						return err
					}
					return tx.AppendAudit(ctx, models.AuditEntry{CustomerID: uuid.New(), Action: domain.AuditActionWithdraw})
				})
				if err != ErrTxConflict {
					assert.NoError(t, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	require.NoError(t, store.RunInTx(ctx, func(tx Tx) error {
		f, _, err := tx.Fund(ctx)
		assert.Equal(t, "96", f.Amount.String())
		return err
	}))
}
