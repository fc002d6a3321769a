package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ayo6706/custodial-ledger/internal/domain"
	"github.com/ayo6706/custodial-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisCustomersKey = "ledger:customers"
	redisFundKey      = "ledger:fund"
	redisAuditKey     = "ledger:audit"

	redisTxRetries = 5
)

// RedisStore keeps the registry in a Redis hash. Transactions WATCH the
// registry and fund keys and retry when a concurrent writer wins.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 0; attempt < redisTxRetries; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			tx := &redisTx{rtx: rtx, staged: make(map[uuid.UUID]domain.Customer)}
			if err := fn(tx); err != nil {
				return err
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				return tx.flush(ctx, pipe)
			})
			return err
		}, redisCustomersKey, redisFundKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrTxConflict
}

func (s *RedisStore) ListCustomers(ctx context.Context) ([]models.CustomerRecord, error) {
	raw, err := s.client.HGetAll(ctx, redisCustomersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	out := make([]models.CustomerRecord, 0, len(raw))
	for _, payload := range raw {
		var rec models.CustomerRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode customer: %w", err)
		}
		out = append(out, models.NewCustomerRecord(rec.ID, rec.Customer()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// AuditTrail returns up to limit of the most recent audit entries, oldest first.
func (s *RedisStore) AuditTrail(ctx context.Context, limit int64) ([]models.AuditEntry, error) {
	raw, err := s.client.LRange(ctx, redisAuditKey, -limit, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	out := make([]models.AuditEntry, 0, len(raw))
	for _, payload := range raw {
		var e models.AuditEntry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisTx struct {
	rtx    *redis.Tx
	staged map[uuid.UUID]domain.Customer
	fund   *models.Fund
	audit  []models.AuditEntry
}

func (t *redisTx) Customer(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	if c, ok := t.staged[id]; ok {
		return clone(c), nil
	}
	payload, err := t.rtx.HGet(ctx, redisCustomersKey, id.String()).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Customer{}, domain.ErrUnknownIdentity
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	var rec models.CustomerRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return domain.Customer{}, fmt.Errorf("decode customer: %w", err)
	}
	return rec.Customer(), nil
}

func (t *redisTx) InsertCustomer(ctx context.Context, id uuid.UUID, c domain.Customer) error {
	if _, ok := t.staged[id]; ok {
		return ErrAlreadyExists
	}
	exists, err := t.rtx.HExists(ctx, redisCustomersKey, id.String()).Result()
	if err != nil {
		return fmt.Errorf("check customer: %w", err)
	}
	if exists {
		return ErrAlreadyExists
	}
	t.staged[id] = clone(c)
	return nil
}

func (t *redisTx) ReplaceCustomer(ctx context.Context, id uuid.UUID, c domain.Customer) error {
	if _, ok := t.staged[id]; !ok {
		exists, err := t.rtx.HExists(ctx, redisCustomersKey, id.String()).Result()
		if err != nil {
			return fmt.Errorf("check customer: %w", err)
		}
		if !exists {
			return domain.ErrUnknownIdentity
		}
	}
	t.staged[id] = clone(c)
	return nil
}

func (t *redisTx) Fund(ctx context.Context) (models.Fund, bool, error) {
	if t.fund != nil {
		return *t.fund, true, nil
	}
	payload, err := t.rtx.Get(ctx, redisFundKey).Result()
	if errors.Is(err, redis.Nil) {
		return models.Fund{}, false, nil
	}
	if err != nil {
		return models.Fund{}, false, fmt.Errorf("get pooled fund: %w", err)
	}
	var f models.Fund
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		return models.Fund{}, false, fmt.Errorf("decode pooled fund: %w", err)
	}
	return f, true, nil
}

func (t *redisTx) SetFund(_ context.Context, f models.Fund) error {
	t.fund = &f
	return nil
}

func (t *redisTx) AppendAudit(_ context.Context, entry models.AuditEntry) error {
	t.audit = append(t.audit, entry)
	return nil
}

func (t *redisTx) flush(ctx context.Context, pipe redis.Pipeliner) error {
	for id, c := range t.staged {
		payload, err := json.Marshal(models.NewCustomerRecord(id, c))
		if err != nil {
			return fmt.Errorf("encode customer: %w", err)
		}
		pipe.HSet(ctx, redisCustomersKey, id.String(), payload)
	}
	if t.fund != nil {
		payload, err := json.Marshal(t.fund)
		if err != nil {
			return fmt.Errorf("encode pooled fund: %w", err)
		}
		pipe.Set(ctx, redisFundKey, payload, 0)
	}
	for _, e := range t.audit {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode audit entry: %w", err)
		}
		pipe.RPush(ctx, redisAuditKey, payload)
	}
	return nil
}
