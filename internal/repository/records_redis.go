package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aimorme/dateplan-back/internal/domain"
)

const (
	recordKeyPrefix = "dateplan:record:"
	activeKeyPrefix = "dateplan:active:"

	// expiredTTL is how long an expired record sticks around so reads can
	// still distinguish it from a record that never existed.
	expiredTTL = 24 * time.Hour

	updateAttempts = 8
)

type RedisStoreConfig struct {
	Addr      string
	Password  string
	DB        int
	Retention time.Duration
}

// RedisRecordStore persists job records as JSON values with optimistic
// WATCH-based read-modify-write per id. The single-flight slot is a SETNX
// key per client, released when the record turns terminal.
type RedisRecordStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisRecordStore(ctx context.Context, cfg RedisStoreConfig) (*RedisRecordStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetentionWindow
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisRecordStore{client: client, retention: cfg.Retention}, nil
}

func (s *RedisRecordStore) Close() error {
	return s.client.Close()
}

func (s *RedisRecordStore) CreateIfIdle(ctx context.Context, record *domain.JobRecord) error {
	// The active key guards check-and-create atomically. Its TTL is a safety
	// net only; the terminal Update releases the slot explicitly.
	lockTTL := time.Until(record.TimeoutDeadline) + time.Minute
	if lockTTL < time.Minute {
		lockTTL = time.Minute
	}

	acquired, err := s.client.SetNX(ctx, activeKeyPrefix+record.ClientKey, record.ID, lockTTL).Result()
	if err != nil {
		return fmt.Errorf("acquire single-flight slot: %w", err)
	}
	if !acquired {
		return ErrClientBusy
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		s.client.Del(ctx, activeKeyPrefix+record.ClientKey)
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.client.Set(ctx, recordKeyPrefix+record.ID, encoded, s.recordTTL()).Err(); err != nil {
		s.client.Del(ctx, activeKeyPrefix+record.ClientKey)
		return fmt.Errorf("store record: %w", err)
	}
	return nil
}

func (s *RedisRecordStore) Get(ctx context.Context, id string) (*domain.JobRecord, error) {
	payload, err := s.client.Get(ctx, recordKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}

	var record domain.JobRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if record.Status == domain.JobStatusExpired {
		return nil, ErrExpired
	}
	return &record, nil
}

func (s *RedisRecordStore) Update(
	ctx context.Context,
	id string,
	mutate func(*domain.JobRecord) error,
) (*domain.JobRecord, error) {
	key := recordKeyPrefix + id
	var updated *domain.JobRecord

	transaction := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		record := &domain.JobRecord{}
		if err := json.Unmarshal(payload, record); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		if err := mutate(record); err != nil {
			return err
		}

		encoded, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.recordTTL())
			if record.Terminal() {
				pipe.Del(ctx, activeKeyPrefix+record.ClientKey)
			}
			return nil
		})
		if err != nil {
			return err
		}
		updated = record
		return nil
	}

	for attempt := 0; attempt < updateAttempts; attempt++ {
		err := s.client.Watch(ctx, transaction, key)
		if err == nil {
			return updated, nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("update record %s: too many concurrent modifications", id)
}

func (s *RedisRecordStore) MarkExpired(ctx context.Context, id string) error {
	_, err := s.Update(ctx, id, func(record *domain.JobRecord) error {
		record.Status = domain.JobStatusExpired
		return nil
	})
	if err != nil {
		return err
	}
	return s.client.Expire(ctx, recordKeyPrefix+id, expiredTTL).Err()
}

func (s *RedisRecordStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired := 0
	iter := s.client.Scan(ctx, 0, recordKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		payload, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return expired, fmt.Errorf("load record during sweep: %w", err)
		}

		var record domain.JobRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			continue
		}
		if record.Status != domain.JobStatusComplete && record.Status != domain.JobStatusError {
			continue
		}
		if record.CompletedAt == nil || now.Before(record.CompletedAt.Add(s.retention)) {
			continue
		}

		if err := s.MarkExpired(ctx, record.ID); err != nil && err != ErrNotFound {
			return expired, err
		}
		expired++
	}
	if err := iter.Err(); err != nil {
		return expired, fmt.Errorf("scan records: %w", err)
	}
	return expired, nil
}

func (s *RedisRecordStore) recordTTL() time.Duration {
	// Records live for the retention window plus headroom so the reaper can
	// transition them to expired before Redis drops the key.
	return s.retention + expiredTTL
}
