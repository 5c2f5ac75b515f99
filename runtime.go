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

package minelab

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zintix-labs/minelab/catalog"
	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/estimate"
	"github.com/zintix-labs/minelab/stats"
)

// Runtime 對外服務用：每個 profile 一個 EstimatorPool。
type Runtime struct {
	// build-time 來源（只讀引用）
	lab *Minelab

	// data-plane：每個 profile 一個 pool
	pools map[string]*EstimatorPool
	names []string // 固定順序，用於觀測/列舉

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string

	poolSize int // 每個 profile 的池大小
}

// Lab 回傳建立此 runtime 的組裝器。
func (rt *Runtime) Lab() *Minelab {
	return rt.lab
}

// Estimate 以 profile 對應的池執行估算。
func (rt *Runtime) Estimate(ctx context.Context, profile string, req estimate.Request, workers int) (*stats.SafetyReport, time.Duration, error) {
	select {
	case <-ctx.Done():
		return nil, 0, errs.WrapWarn(ctx.Err(), "estimate canceled/timeout")
	case <-rt.done:
		rt.closed.Store(true)
		return nil, 0, errs.NewFatal("runtime closed: " + rt.ClosedReason())
	default:
	}

	ep, ok := rt.Pool(profile)
	if !ok {
		return nil, 0, errs.WrapWarn(catalog.ErrNotFound, "profile "+profile)
	}
	// pool 自己會處理 done / close / rebuild / metrics
	return ep.Estimate(ctx, req, workers)
}

// Pool 依 profile 名稱（不分大小寫）取得池。
func (rt *Runtime) Pool(profile string) (*EstimatorPool, bool) {
	p, err := rt.lab.Profile(profile)
	if err != nil {
		return nil, false
	}
	ep, ok := rt.pools[p.Name]
	return ep, ok
}

// Metrics 依 profile 名稱排序回傳所有池的快照。
func (rt *Runtime) Metrics() []PoolMetrics {
	out := make([]PoolMetrics, 0, len(rt.names))
	for _, n := range rt.names {
		out = append(out, rt.pools[n].Metrics())
	}
	return out
}

// Close 進入關閉狀態並關閉所有池；可重複呼叫。
func (rt *Runtime) Close() {
	rt.closeWithReason("closed")
}

func (rt *Runtime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)
		rt.closed.Store(true)
		close(rt.done)
		for _, n := range rt.names {
			rt.pools[n].closeWithReason("runtime_" + reason)
		}
	})
}

func (rt *Runtime) Closed() bool {
	return rt.closed.Load()
}

func (rt *Runtime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
