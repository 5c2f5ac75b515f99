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
	"sync"
	"time"

	"github.com/zintix-labs/minelab/errs"
)

// maxSweepEvery 兩次過期清掃的最長間隔；ttl 更短時以 ttl 為準。
const maxSweepEvery = time.Minute

// MemoryStore 單機用。ttl > 0 時，超過 CreatedAt+ttl 的局視為不存在：
// 讀取時個別清除，Create 時依間隔整批清掃，未再被讀取的局也不會常駐。
type MemoryStore struct {
	mu        sync.Mutex
	rounds    map[string]Round
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{rounds: make(map[string]Round, 64), ttl: ttl, now: time.Now}
}

// Len 目前保留的局數（含尚未清掃的過期局）。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rounds)
}

func (s *MemoryStore) Create(ctx context.Context, r Round) error {
	if r.ID == "" {
		return errs.NewWarn("round id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	if _, ok := s.rounds[r.ID]; ok {
		return errs.Warnf("round %s already exists", r.ID)
	}
	s.rounds[r.ID] = r
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.load(id)
	if !ok {
		return Round{}, notFound(id)
	}
	return r.Public(), nil
}

func (s *MemoryStore) NextNonce(ctx context.Context, id string) (Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.load(id)
	if !ok {
		return Round{}, notFound(id)
	}
	if r.Revealed {
		return Round{}, sealed(id)
	}
	r.Nonce++
	s.rounds[id] = r
	return r.Public(), nil
}

func (s *MemoryStore) Reveal(ctx context.Context, id string) (Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.load(id)
	if !ok {
		return Round{}, notFound(id)
	}
	r.Revealed = true
	s.rounds[id] = r
	return r, nil
}

// sweep 呼叫端需持有鎖。
func (s *MemoryStore) sweep() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	if now.Sub(s.lastSweep) < min(s.ttl, maxSweepEvery) {
		return
	}
	s.lastSweep = now
	for id, r := range s.rounds {
		if s.expired(r, now) {
			delete(s.rounds, id)
		}
	}
}

func (s *MemoryStore) expired(r Round, now time.Time) bool {
	return s.ttl > 0 && now.After(r.CreatedAt.Add(s.ttl))
}

// load 呼叫端需持有鎖。
func (s *MemoryStore) load(id string) (Round, bool) {
	r, ok := s.rounds[id]
	if !ok {
		return Round{}, false
	}
	if s.expired(r, s.now()) {
		delete(s.rounds, id)
		return Round{}, false
	}
	return r, true
}
