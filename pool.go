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
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/estimate"
	"github.com/zintix-labs/minelab/sdk/core"
	"github.com/zintix-labs/minelab/setting"
	"github.com/zintix-labs/minelab/stats"
)

// runFunc 在借出的 estimator 上執行一次估算；測試可替換以注入 panic/fatal。
type runFunc func(ctx context.Context, e *Estimator, req estimate.Request, workers int) (*stats.SafetyReport, time.Duration, error)

func defaultRun(ctx context.Context, e *Estimator, req estimate.Request, workers int) (*stats.SafetyReport, time.Duration, error) {
	return e.EstimateMP(ctx, req, workers, false)
}

// EstimatorPool 專門管理「某一個 profile」的所有 estimator 實例。
// 它透過兩個通道管理 estimator 生命週期：
//  1. pool：健康且可用的 estimator，供 Estimate() 借出 / 歸還。
//  2. broken：在運作過程中發生 panic 或 fatal error 的 estimator，送往此通道以便後續檢查或丟棄。
//
// 壞掉的 estimator 會立即以新種子補上一台，以維持容量。
type EstimatorPool struct {
	profile       *setting.Profile
	cf            core.PRNGFactory
	initSeed      int64
	seedMaker     *seedMaker
	run           runFunc
	pool          chan *Estimator // 可用 estimator
	broken        chan *Estimator // 壞掉的 estimator
	done          chan struct{}   // 關閉訊號：關閉後不再允許借出/歸還/補機
	closeOnce     sync.Once
	poolsize      int
	rebuild       atomic.Int32 // 補機次數
	inflight      atomic.Int32 // 使用中
	served        atomic.Int64 // 成功完成的估算次數
	panics        atomic.Int32
	fatals        atomic.Int32 // estimator 狀態不可信
	closeReason   atomic.Value // string
	closeInflight atomic.Int32 // 關閉當下 inflight（快照）
	closeAvail    atomic.Int32 // 關閉當下 len(pool)（快照）
	closeBroken   atomic.Int32 // 關閉當下 len(broken)（快照）
}

// newEstimatorPool 建立指定 profile 的 estimator 池，n 至少為 1。
func newEstimatorPool(n int, p *setting.Profile, cf core.PRNGFactory, seed int64) (*EstimatorPool, error) {
	n = max(1, n)
	ep := &EstimatorPool{
		profile:   p,
		cf:        cf,
		initSeed:  seed,
		seedMaker: newSeedMaker(seed),
		run:       defaultRun,
		pool:      make(chan *Estimator, n),
		broken:    make(chan *Estimator, 100),
		done:      make(chan struct{}),
		poolsize:  n,
	}

	ep.closeReason.Store("")
	ep.closeInflight.Store(-1)
	ep.closeAvail.Store(-1)
	ep.closeBroken.Store(-1)

	for i := 0; i < n; i++ {
		e, err := newEstimatorWithSeed(p.Clone(), cf, ep.seedMaker.next())
		if err != nil {
			return nil, err
		}
		ep.pool <- e
	}
	return ep, nil
}

func (p *EstimatorPool) Close() {
	p.closeWithReason("closed")
}

// Closed 回報池是否已進入關閉狀態。
func (p *EstimatorPool) Closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// closeWithReason 進入關閉狀態並記錄原因（只會寫入一次）。
func (p *EstimatorPool) closeWithReason(reason string) {
	p.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		p.closeReason.Store(reason)
		p.closeInflight.Store(p.inflight.Load())
		p.closeAvail.Store(int32(len(p.pool)))
		p.closeBroken.Store(int32(len(p.broken)))
		close(p.done)
	})
}

// isFatalErr 只有明確宣告 Fatal 的 *errs.E 才代表 estimator 狀態不可信。
// 請求類錯誤（InvalidInput、ctx 取消）不淘汰 estimator。
func isFatalErr(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := errs.AsErr(err); ok && e.ErrLv == errs.Fatal {
		return true
	}
	return false
}

// Estimate 借出一個 estimator 執行 EstimateMP，結束後歸還或補機。
func (p *EstimatorPool) Estimate(ctx context.Context, req estimate.Request, workers int) (rep *stats.SafetyReport, used time.Duration, err error) {
	var e *Estimator
	borrowed := false
	select {
	case <-p.done:
		return nil, 0, errs.NewFatal("estimator pool closed: " + p.ClosedReason())
	case <-ctx.Done():
		return nil, 0, errs.WrapWarn(ctx.Err(), "estimate canceled/timeout")
	case e = <-p.pool:
		borrowed = true
		p.inflight.Add(1)
	}

	if e == nil {
		return nil, 0, errs.NewFatal("estimator pool got nil estimator")
	}

	var isPanic bool

	defer func() {
		if borrowed {
			p.inflight.Add(-1)
		}
		if r := recover(); r != nil {
			isPanic = true
			p.panics.Add(1)
			rep = nil
			err = errs.NewFatal(fmt.Sprintf("estimator %s panic : %v", p.profile.Name, r))
		}

		if p.Closed() {
			return
		}

		if isPanic || isFatalErr(err) {
			if !isPanic {
				p.fatals.Add(1)
			}
			select {
			case p.broken <- e:
			default:
				// broken 滿代表連續故障，進入關閉狀態讓上層接管
				p.closeWithReason("overwhelmed_by_failures")
				if err == nil {
					err = errs.NewFatal("estimator pool overwhelmed by failures")
				}
				return
			}

			fresh, buildErr := newEstimatorWithSeed(p.profile.Clone(), p.cf, p.seedMaker.next())
			p.rebuild.Add(1)
			if buildErr != nil {
				err = errs.NewFatal(fmt.Sprintf("estimator %s can not build", p.profile.Name))
				p.closeWithReason("rebuild_failed")
				return
			}
			select {
			case <-p.done:
			case p.pool <- fresh:
			}
			return
		}

		if err == nil {
			p.served.Add(1)
		}
		select {
		case <-p.done:
		case p.pool <- e:
		}
	}()

	return p.run(ctx, e, req, workers)
}

// Drain 清空 broken backlog，回傳丟棄數量。
func (p *EstimatorPool) Drain() int {
	n := 0
	for {
		select {
		case <-p.broken:
			n++
		default:
			return n
		}
	}
}

func (p *EstimatorPool) PoolSize() int {
	return p.poolsize
}

func (p *EstimatorPool) Inflight() int {
	return int(p.inflight.Load())
}

func (p *EstimatorPool) ReBuild() int {
	return int(p.rebuild.Load())
}

func (p *EstimatorPool) ClosedReason() string {
	if v := p.closeReason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Available 當下可借出的 estimator 數（len(pool)），高併發下為近似值。
func (p *EstimatorPool) Available() int {
	return len(p.pool)
}

// PoolMetrics 拉取式（pull）觀測快照，不綁任何 metrics SDK，由上層決定輸出方式。
//
// Close* 欄位只在關閉瞬間寫入一次，-1 表示尚未關閉。
type PoolMetrics struct {
	Profile string `json:"profile"`

	PoolSize      int    `json:"pool_size"`
	Available     int    `json:"available"`
	Inflight      int    `json:"inflight"`
	Served        int64  `json:"served"`
	BrokenBacklog int    `json:"broken_backlog"`
	Rebuild       int    `json:"rebuild"`
	Panics        int    `json:"panics"`
	Fatals        int    `json:"fatals"`
	Closed        bool   `json:"closed"`
	CloseReason   string `json:"close_reason"`

	CloseInflight int `json:"close_inflight"`
	CloseAvail    int `json:"close_avail"`
	CloseBroken   int `json:"close_broken"`
}

func (p *EstimatorPool) Metrics() PoolMetrics {
	return PoolMetrics{
		Profile:       p.profile.Name,
		PoolSize:      p.poolsize,
		Available:     len(p.pool),
		Inflight:      int(p.inflight.Load()),
		Served:        p.served.Load(),
		BrokenBacklog: len(p.broken),
		Rebuild:       int(p.rebuild.Load()),
		Panics:        int(p.panics.Load()),
		Fatals:        int(p.fatals.Load()),
		Closed:        p.Closed(),
		CloseReason:   p.ClosedReason(),
		CloseInflight: int(p.closeInflight.Load()),
		CloseAvail:    int(p.closeAvail.Load()),
		CloseBroken:   int(p.closeBroken.Load()),
	}
}
