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

// Package estimate 以蒙地卡羅法估計每格安全機率，並提供封閉解作為對照。
//
// 每次試驗以 partial Fisher-Yates 從母體不放回地均勻抽出 mineCount 個位置；
// 安全次數由 recorder.HitRecorder 累積，已揭露格恆為 0。
package estimate

import (
	"strings"

	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/grid"
	"github.com/zintix-labs/minelab/recorder"
	"github.com/zintix-labs/minelab/sdk/core"
)

// Sampling 決定已揭露格在取樣時的處理方式。
type Sampling uint8

const (
	// MaskRevealed 雷從整個盤面抽樣，已揭露格只在計數時遮罩。
	MaskRevealed Sampling = iota
	// ConditionRevealed 雷只從未揭露格抽樣（以已揭露為安全作為條件）。
	ConditionRevealed
)

func (s Sampling) String() string {
	switch s {
	case MaskRevealed:
		return "mask"
	case ConditionRevealed:
		return "condition"
	default:
		return "unknown"
	}
}

// ParseSampling 空字串視為 mask。
func ParseSampling(s string) (Sampling, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mask", "mask_revealed":
		return MaskRevealed, nil
	case "condition", "condition_revealed":
		return ConditionRevealed, nil
	default:
		return 0, errs.InvalidInputf("unknown sampling %q", s)
	}
}

// Request 一次估算的輸入。
type Request struct {
	TileCount int
	MineCount int
	Revealed  grid.RevealedSet
	Trials    int
	Sampling  Sampling
}

// NewRequest 建立並檢查 Request；revealed 會去重並檢查範圍。
func NewRequest(tileCount int, mineCount int, revealed []int, trials int, sampling Sampling) (Request, error) {
	if tileCount <= 0 {
		return Request{}, errs.InvalidInputf("tile count must > 0, got %d", tileCount)
	}
	rs, err := grid.NewRevealedSet(tileCount, revealed)
	if err != nil {
		return Request{}, err
	}
	req := Request{TileCount: tileCount, MineCount: mineCount, Revealed: rs, Trials: trials, Sampling: sampling}
	return req, req.Valid()
}

// validBoard 檢查試驗次數以外的盤面條件；零值 Revealed 視為沒有揭露。
func (r Request) validBoard() error {
	if r.TileCount <= 0 {
		return errs.InvalidInputf("tile count must > 0, got %d", r.TileCount)
	}
	if r.Revealed.Len() > 0 && r.Revealed.TileCount() != r.TileCount {
		return errs.InvalidInputf("revealed set sized %d, want %d", r.Revealed.TileCount(), r.TileCount)
	}
	if r.MineCount <= 0 {
		return errs.InvalidInputf("mine count must > 0, got %d", r.MineCount)
	}
	if free := r.TileCount - r.Revealed.Len(); r.MineCount >= free {
		return errs.InvalidInputf("mine count %d must < unrevealed tiles %d", r.MineCount, free)
	}
	switch r.Sampling {
	case MaskRevealed, ConditionRevealed:
	default:
		return errs.InvalidInputf("unknown sampling %d", r.Sampling)
	}
	return nil
}

func (r Request) Valid() error {
	if err := r.validBoard(); err != nil {
		return err
	}
	if r.Trials <= 0 {
		return errs.InvalidInputf("trials must > 0, got %d", r.Trials)
	}
	return nil
}

// WithTrials 回傳只改試驗次數的副本，供分片使用。
func (r Request) WithTrials(n int) Request {
	r.Trials = n
	return r
}

// NewRecorder 依 Request 建立空的 HitRecorder，並附上封閉解。
func NewRecorder(req Request) (*recorder.HitRecorder, error) {
	if err := req.validBoard(); err != nil {
		return nil, err
	}
	rec, err := recorder.NewHitRecorder(req.TileCount, req.MineCount, req.Revealed, req.Sampling.String())
	if err != nil {
		return nil, err
	}
	rec.Exact = exact(req)
	return rec, nil
}

// Sampler 持有可重複使用的母體緩衝，避免熱路徑配置。非併發安全。
type Sampler struct {
	req Request
	pop []int
}

func NewSampler(req Request) (*Sampler, error) {
	if err := req.validBoard(); err != nil {
		return nil, err
	}
	return &Sampler{req: req, pop: population(req)}, nil
}

// RunN 執行 n 次試驗並寫入 rec。
func (s *Sampler) RunN(c *core.Core, n int, rec *recorder.HitRecorder) {
	m := s.req.MineCount
	for range n {
		rec.Record(c.SampleK(s.pop, m))
	}
}

// Run 單一分片：執行 req.Trials 次試驗並寫入 rec。
func Run(c *core.Core, req Request, rec *recorder.HitRecorder) error {
	if err := req.Valid(); err != nil {
		return err
	}
	s, err := NewSampler(req)
	if err != nil {
		return err
	}
	s.RunN(c, req.Trials, rec)
	return nil
}

// Estimate 單執行緒估算，回傳 SafetyVector。
func Estimate(c *core.Core, req Request) (grid.SafetyVector, error) {
	if err := req.Valid(); err != nil {
		return nil, err
	}
	rec, err := NewRecorder(req)
	if err != nil {
		return nil, err
	}
	if err := Run(c, req, rec); err != nil {
		return nil, err
	}
	return rec.Done().Vector(), nil
}

// Exact 封閉解：mask 模式未揭露格為 (T-M)/T，condition 模式為 (T-R-M)/(T-R)，已揭露格為 0。
// 試驗次數不影響結果，因此不檢查 Trials。
func Exact(req Request) (grid.SafetyVector, error) {
	if err := req.validBoard(); err != nil {
		return nil, err
	}
	return exact(req), nil
}

func exact(req Request) grid.SafetyVector {
	t := req.TileCount
	if req.Sampling == ConditionRevealed {
		t -= req.Revealed.Len()
	}
	p := float64(t-req.MineCount) / float64(t)
	v := make(grid.SafetyVector, req.TileCount)
	for i := range v {
		if !req.Revealed.Has(i) {
			v[i] = p
		}
	}
	return v
}

func population(req Request) []int {
	if req.Sampling == ConditionRevealed {
		pop := make([]int, 0, req.TileCount-req.Revealed.Len())
		for i := 0; i < req.TileCount; i++ {
			if !req.Revealed.Has(i) {
				pop = append(pop, i)
			}
		}
		return pop
	}
	pop := make([]int, req.TileCount)
	for i := range pop {
		pop[i] = i
	}
	return pop
}
