// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zintix-labs/minelab/errs"
)

const (
	KeyRound        = "minelab:round:"
	DefaultRoundTTL = 7 * 24 * time.Hour
	maxTxRetries    = 8
)

// RedisStore 以 JSON 存放 round，key 為 KeyRound+id。
// NextNonce/Reveal 使用 WATCH + MULTI 的樂觀鎖，衝突時重試。
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore ttl <= 0 時使用 DefaultRoundTTL。
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultRoundTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Ping 啟動時檢查連線。
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errs.Wrap(err, "redis ping failed")
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(id string) string {
	return KeyRound + id
}

func (s *RedisStore) Create(ctx context.Context, r Round) error {
	if r.ID == "" {
		return errs.NewWarn("round id required")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return errs.Wrap(err, "marshal round")
	}
	ok, err := s.client.SetNX(ctx, s.key(r.ID), data, s.ttl).Result()
	if err != nil {
		return errs.Wrap(err, "redis create round")
	}
	if !ok {
		return errs.Warnf("round %s already exists", r.ID)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Round, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Round{}, notFound(id)
	}
	if err != nil {
		return Round{}, errs.Wrap(err, "redis get round")
	}
	var r Round
	if err := json.Unmarshal(raw, &r); err != nil {
		return Round{}, errs.Wrap(err, "unmarshal round")
	}
	return r.Public(), nil
}

func (s *RedisStore) NextNonce(ctx context.Context, id string) (Round, error) {
	r, err := s.update(ctx, id, func(r *Round) error {
		if r.Revealed {
			return sealed(id)
		}
		r.Nonce++
		return nil
	})
	if err != nil {
		return Round{}, err
	}
	return r.Public(), nil
}

func (s *RedisStore) Reveal(ctx context.Context, id string) (Round, error) {
	return s.update(ctx, id, func(r *Round) error {
		r.Revealed = true
		return nil
	})
}

// update 讀取、修改、寫回，保留原 TTL。
func (s *RedisStore) update(ctx context.Context, id string, fn func(*Round) error) (Round, error) {
	key := s.key(id)
	var out Round
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return notFound(id)
		}
		if err != nil {
			return err
		}
		var r Round
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		if err := fn(&r); err != nil {
			return err
		}
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		if err == nil {
			out = r
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if _, ok := errs.AsErr(err); ok {
			return Round{}, err
		}
		return Round{}, errs.Wrap(err, "redis update round")
	}
	return Round{}, errs.Fatalf("redis update round %s: too many conflicts", id)
}
