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
	"crypto/rand"
	"io"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/estimate"
	"github.com/zintix-labs/minelab/recorder"
	"github.com/zintix-labs/minelab/sdk/core"
	"github.com/zintix-labs/minelab/setting"
	"github.com/zintix-labs/minelab/stats"
)

const (
	capPrepare int = 16
	// batchTrials 每批試驗數；批與批之間檢查 ctx 並更新進度條
	batchTrials int = 4096
	// MaxWorkers 單次估算允許的最大並行數
	MaxWorkers int = 256
)

// Estimator 以蒙地卡羅法估算每格安全機率，可建立多個 PRNG 核心平行取樣。
//
// 同一個 seed、同一組 workers，從新建的 Estimator 開始會得到完全相同的 SafetyVector。
// Estimator 非併發安全：同一時間只能有一個 Estimate/EstimateMP 在跑（池化時由 EstimatorPool 保證）。
type Estimator struct {
	Profile   *setting.Profile        // 盤面與預設參數
	cf        core.PRNGFactory        // 亂數生成器
	initSeed  int64                   // 初始下的種子
	seedmaker *seedMaker              // 種子生成器
	cBuf      []*core.Core            // 併發取樣核心
	rBuf      []*recorder.HitRecorder // 併發紀錄員
}

func newEstimator(p *setting.Profile, cf core.PRNGFactory) (*Estimator, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return nil, err
	}
	return newEstimatorWithSeed(p, cf, seed.Int64())
}

func newEstimatorWithSeed(p *setting.Profile, cf core.PRNGFactory, seed int64) (*Estimator, error) {
	if p == nil {
		return nil, errs.NewFatal("profile required")
	}
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	e := &Estimator{
		Profile:   p,
		cf:        cf,
		initSeed:  seed,
		seedmaker: newSeedMaker(seed),
		cBuf:      make([]*core.Core, 1, capPrepare),
		rBuf:      make([]*recorder.HitRecorder, 0, capPrepare),
	}
	e.cBuf[0] = core.New(cf.New(seed))
	return e, nil
}

// Seed 回傳建立時的初始種子，用於追溯/重現。
func (e *Estimator) Seed() int64 {
	return e.initSeed
}

// Request 以 profile 預設值補齊參數後建立 estimate.Request，見 NewRequest。
func (e *Estimator) Request(mineCount int, revealed []int, trials int, sampling *estimate.Sampling) (estimate.Request, error) {
	return NewRequest(e.Profile, mineCount, revealed, trials, sampling)
}

// NewRequest 以 profile 預設值補齊參數後建立 estimate.Request。
//
// mineCount/trials 為 0 時使用 profile 預設；sampling 為 nil 時使用 profile 預設。
func NewRequest(p *setting.Profile, mineCount int, revealed []int, trials int, sampling *estimate.Sampling) (estimate.Request, error) {
	if p == nil {
		return estimate.Request{}, errs.NewFatal("profile required")
	}
	if mineCount == 0 {
		mineCount = p.MineCount
	}
	if trials == 0 {
		trials = p.Trials
	}
	s := p.SamplingMode()
	if sampling != nil {
		s = *sampling
	}
	return estimate.NewRequest(p.Grid().TileCount(), mineCount, revealed, trials, s)
}

// Estimate 單線估算：以一個核心連續跑 req.Trials 次並回傳統計結果與用時
func (e *Estimator) Estimate(ctx context.Context, req estimate.Request, showpb bool) (*stats.SafetyReport, time.Duration, error) {
	return e.EstimateMP(ctx, req, 1, showpb)
}

// EstimateMP 平行執行多個核心，總計 req.Trials 次試驗，合併統計結果後回傳統計結果與用時。
//
// 分片大小是決定性的：每片 trials/workers，前 trials%workers 片各多 1 次。
// workers 超過 trials 時以 trials 為上限。ctx 取消時，已開始的批次會跑完但不再開新批次。
func (e *Estimator) EstimateMP(ctx context.Context, req estimate.Request, workers int, showpb bool) (*stats.SafetyReport, time.Duration, error) {
	defer e.reset()
	if workers <= 0 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if workers > MaxWorkers {
		return nil, 0, errs.Warnf("workers must <= %d", MaxWorkers)
	}
	if err := req.Valid(); err != nil {
		return nil, 0, err
	}
	if tc := e.Profile.Grid().TileCount(); req.TileCount != tc {
		return nil, 0, errs.InvalidInputf("request tile count %d does not match profile %s (%d)", req.TileCount, e.Profile.Name, tc)
	}
	workers = min(workers, req.Trials)

	// 核心在 goroutine 啟動前就依序配好種子，確保可重現
	for len(e.cBuf) < workers {
		e.cBuf = append(e.cBuf, core.New(e.cf.New(e.seedmaker.next())))
	}
	for len(e.rBuf) < workers {
		r, err := estimate.NewRecorder(req)
		if err != nil {
			return nil, 0, err
		}
		r.Profile = e.Profile.Name
		r.Confidence = e.Profile.Confidence
		e.rBuf = append(e.rBuf, r)
	}

	bar := pb.New(req.Trials)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	bar.Start()

	var canceled atomic.Bool
	wg := new(sync.WaitGroup)
	wg.Add(workers)
	base, extra := req.Trials/workers, req.Trials%workers
	for i := 0; i < workers; i++ {
		n := base
		if i < extra {
			n++
		}
		go func(i int, n int) {
			defer wg.Done()
			s, err := estimate.NewSampler(req)
			if err != nil {
				canceled.Store(true)
				return
			}
			c, r := e.cBuf[i], e.rBuf[i]
			for n > 0 {
				if ctx.Err() != nil {
					canceled.Store(true)
					return
				}
				k := min(batchTrials, n)
				s.RunN(c, k, r)
				bar.Add(k)
				n -= k
			}
		}(i, n)
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()

	if canceled.Load() {
		if err := ctx.Err(); err != nil {
			return nil, used, errs.WrapWarn(err, "estimate canceled")
		}
		return nil, used, errs.NewFatal("estimate sampler init failed")
	}

	st, err := recorder.MergeHitRecorder(e.rBuf[:workers])
	if err != nil {
		return nil, used, err
	}
	return st.Done(), used, nil
}

func (e *Estimator) reset() {
	e.rBuf = e.rBuf[:0]
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// next state 走全週期（不重複），再用可逆 mix63 打散
//
// 可能被多 goroutines 同時呼叫（例如池化補機），所以以 CAS 迴圈推進 state。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()                                            // always masked
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63 // 乘奇數 ⇒ mod 2^63 可逆
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
