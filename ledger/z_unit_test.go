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
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/fair"
)

func TestNewRound(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r, err := NewRound("poppy", "", now)
	require.NoError(t, err)
	assert.Len(t, r.ServerSeed, 64)
	assert.True(t, fair.VerifyCommitment(r.ServerSeed, r.Commitment))
	assert.NotEmpty(t, r.ClientSeed)
	assert.NotEmpty(t, r.ID)
	assert.Zero(t, r.Nonce)
	assert.Equal(t, now, r.CreatedAt)
	assert.Empty(t, r.Public().ServerSeed)

	r2, err := NewRound("poppy", "my seed", now)
	require.NoError(t, err)
	assert.Equal(t, "my seed", r2.ClientSeed)
	assert.NotEqual(t, r.ServerSeed, r2.ServerSeed)

	for _, cs := range []string{"  mine  ", "mine\n", "\tmine", " "} {
		_, err = NewRound("poppy", cs, now)
		assert.ErrorIs(t, err, errs.ErrInvalidInput, "%q", cs)
	}
}

// storeContract 所有 Store 實作共用的行為檢查。
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()
	r, err := NewRound("poppy", "xyz", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, r))
	assert.Error(t, s.Create(ctx, r), "duplicate id")

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ServerSeed, "seed must stay hidden before reveal")
	assert.Equal(t, r.Commitment, got.Commitment)

	next, err := s.NextNonce(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), next.Nonce)
	assert.Empty(t, next.ServerSeed)

	rev, err := s.Reveal(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, rev.Revealed)
	assert.Equal(t, r.ServerSeed, rev.ServerSeed)
	assert.Equal(t, uint64(1), rev.Nonce)

	_, err = s.NextNonce(ctx, r.ID)
	assert.ErrorIs(t, err, ErrSealed)

	got, err = s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ServerSeed, got.ServerSeed)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Reveal(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore(0))
}

func TestMemoryStoreTTL(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	r, _ := NewRound("poppy", "", now)
	require.NoError(t, s.Create(context.Background(), r))
	_, err := s.Get(context.Background(), r.ID)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(context.Background(), r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSweepsOnCreate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)
	now := time.Now()
	s.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		r, err := NewRound("poppy", "", now)
		require.NoError(t, err)
		require.NoError(t, s.Create(ctx, r))
	}
	assert.Equal(t, 5, s.Len())

	// 未過期：新增不影響既有局
	now = now.Add(30 * time.Minute)
	fresh, err := NewRound("poppy", "", now)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, fresh))
	assert.Equal(t, 6, s.Len())

	// 前 5 局過期，沒有任何 Get 也會在下一次 Create 時被清掉
	now = now.Add(45 * time.Minute)
	late, err := NewRound("poppy", "", now)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, late))
	assert.Equal(t, 2, s.Len())

	_, err = s.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestMemoryStoreConcurrentNonce(t *testing.T) {
	s := NewMemoryStore(0)
	r, _ := NewRound("poppy", "", time.Now())
	require.NoError(t, s.Create(context.Background(), r))

	wg := sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.NextNonce(context.Background(), r.ID)
		}()
	}
	wg.Wait()
	got, _ := s.Get(context.Background(), r.ID)
	assert.Equal(t, uint64(50), got.Nonce)
}

// 需要本機 redis；MINELAB_TEST_REDIS 可指定位址，連不上就跳過。
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("MINELAB_TEST_REDIS")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	s := NewRedisStore(client, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		t.Skipf("redis not available: %v", err)
	}
	defer s.Close()
	storeContract(t, s)
}
