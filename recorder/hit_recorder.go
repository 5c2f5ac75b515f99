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

package recorder

import (
	"slices"

	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/grid"
	"github.com/zintix-labs/minelab/stats"
)

// HitRecorder 取樣紀錄員
//
// HitRecorder 只累積每格被抽中為雷的次數與試驗次數，並透過 Done 輸出統計報表。
// 安全次數在 Done 時推導：未揭露格為 Trials - MineHits，已揭露格恆為 0。
type HitRecorder struct {
	Profile    string
	TileCount  int
	MineCount  int
	Revealed   grid.RevealedSet
	Sampling   string
	Confidence float64
	Exact      grid.SafetyVector // 可為 nil
	Trials     int
	MineHits   []int
}

func NewHitRecorder(tileCount int, mineCount int, revealed grid.RevealedSet, sampling string) (*HitRecorder, error) {
	h := new(HitRecorder)
	if tileCount <= 0 {
		return h, errs.InvalidInputf("tile count must > 0, got %d", tileCount)
	}
	if mineCount <= 0 || mineCount >= tileCount {
		return h, errs.InvalidInputf("mine count %d out of range (0,%d)", mineCount, tileCount)
	}
	if revealed.Len() > 0 && revealed.TileCount() != tileCount {
		return h, errs.InvalidInputf("revealed set sized %d, want %d", revealed.TileCount(), tileCount)
	}
	// 通過valid
	h.TileCount = tileCount
	h.MineCount = mineCount
	h.Revealed = revealed
	h.Sampling = sampling
	h.MineHits = make([]int, tileCount)
	return h, nil
}

// Record 紀錄一次試驗抽出的雷位置。呼叫端保證 index 在範圍內。
func (h *HitRecorder) Record(mines []int) {
	for _, i := range mines {
		h.MineHits[i]++
	}
	h.Trials++
}

// Reset 清空計數，保留設定，供池化的 estimator 重複使用。
func (h *HitRecorder) Reset() {
	clear(h.MineHits)
	h.Trials = 0
}

// SafeHits 推導每格安全次數
func (h *HitRecorder) SafeHits() []int {
	out := make([]int, h.TileCount)
	for i, m := range h.MineHits {
		if h.Revealed.Has(i) {
			continue
		}
		out[i] = h.Trials - m
	}
	return out
}

// Merge 把 o 的計數累加進 h。設定不一致時回傳 Fatal。
func (h *HitRecorder) Merge(o *HitRecorder) error {
	if o == nil {
		return nil
	}
	if o.TileCount != h.TileCount {
		return errs.NewFatal("merge hit record err : different tile count")
	}
	if o.MineCount != h.MineCount {
		return errs.NewFatal("merge hit record err : different mine count")
	}
	if o.Sampling != h.Sampling {
		return errs.NewFatal("merge hit record err : different sampling")
	}
	if !o.Revealed.Equal(h.Revealed) {
		return errs.NewFatal("merge hit record err : different revealed set")
	}
	for i, m := range o.MineHits {
		h.MineHits[i] += m
	}
	h.Trials += o.Trials
	return nil
}

// MergeHitRecorder 以 r[0] 的設定建立新的紀錄員並依序合併，不修改輸入。
func MergeHitRecorder(r []*HitRecorder) (*HitRecorder, error) {
	if len(r) == 0 {
		return nil, errs.NewFatal("merge hit record err : empty input")
	}
	r0 := r[0]
	s, err := NewHitRecorder(r0.TileCount, r0.MineCount, r0.Revealed, r0.Sampling)
	if err != nil {
		return s, err
	}
	s.Profile = r0.Profile
	s.Confidence = r0.Confidence
	s.Exact = r0.Exact
	for _, v := range r {
		if err := s.Merge(v); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Done 產出統計報表（已完成 Done 計算）。
func (h *HitRecorder) Done() *stats.SafetyReport {
	report := &stats.SafetyReport{
		Profile:    h.Profile,
		TileCount:  h.TileCount,
		MineCount:  h.MineCount,
		Revealed:   h.Revealed.Indices(),
		Sampling:   h.Sampling,
		Trials:     h.Trials,
		Confidence: h.Confidence,
		SafeHits:   h.SafeHits(),
	}
	if len(h.Exact) == h.TileCount {
		report.Exact = slices.Clone(h.Exact)
	}
	report.Done()
	return report
}
