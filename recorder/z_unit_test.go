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

package recorder_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/grid"
	"github.com/zintix-labs/minelab/recorder"
)

func mustRevealed(t *testing.T, n int, idx ...int) grid.RevealedSet {
	t.Helper()
	r, err := grid.NewRevealedSet(n, idx)
	if err != nil {
		t.Fatalf("revealed set err: %v", err)
	}
	return r
}

func TestHitRecorderSafeHits(t *testing.T) {
	rev := mustRevealed(t, 4, 2)
	h, err := recorder.NewHitRecorder(4, 1, rev, "mask")
	if err != nil {
		t.Fatalf("new err: %v", err)
	}
	h.Record([]int{0})
	h.Record([]int{2}) // 雷落在已揭露格仍計入 Trials
	h.Record([]int{1})
	if got := h.SafeHits(); !slices.Equal(got, []int{2, 2, 0, 3}) {
		t.Fatalf("safe hits = %v", got)
	}
	rep := h.Done()
	if rep.Trials != 3 || rep.Safety[2] != 0 || rep.Safety[3] != 1 {
		t.Fatalf("report mismatch: %+v", rep)
	}
	h.Reset()
	if h.Trials != 0 || slices.Max(h.MineHits) != 0 {
		t.Fatalf("reset should clear counters")
	}
}

func TestHitRecorderValidation(t *testing.T) {
	none := grid.RevealedSet{}
	for _, c := range []struct{ tiles, mines int }{{0, 1}, {4, 0}, {4, 4}} {
		if _, err := recorder.NewHitRecorder(c.tiles, c.mines, none, "mask"); !errors.Is(err, errs.ErrInvalidInput) {
			t.Fatalf("%v should be invalid, got %v", c, err)
		}
	}
	if _, err := recorder.NewHitRecorder(9, 1, mustRevealed(t, 4, 1), "mask"); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("revealed size mismatch should be invalid")
	}
}

func TestMergeHitRecorder(t *testing.T) {
	rev := mustRevealed(t, 9, 4)
	a, _ := recorder.NewHitRecorder(9, 2, rev, "mask")
	b, _ := recorder.NewHitRecorder(9, 2, rev, "mask")
	a.Record([]int{0, 1})
	b.Record([]int{1, 8})
	b.Record([]int{3, 4})

	m, err := recorder.MergeHitRecorder([]*recorder.HitRecorder{a, b})
	if err != nil {
		t.Fatalf("merge err: %v", err)
	}
	if m.Trials != 3 || !slices.Equal(m.MineHits, []int{1, 2, 0, 1, 1, 0, 0, 0, 1}) {
		t.Fatalf("merged = %d %v", m.Trials, m.MineHits)
	}
	// 合併順序不影響結果
	m2, _ := recorder.MergeHitRecorder([]*recorder.HitRecorder{b, a})
	if !slices.Equal(m.MineHits, m2.MineHits) || m.Trials != m2.Trials {
		t.Fatalf("merge should be commutative")
	}
	if a.Trials != 1 {
		t.Fatalf("inputs must not be mutated")
	}

	other, _ := recorder.NewHitRecorder(9, 2, mustRevealed(t, 9, 5), "mask")
	if err := m.Merge(other); err == nil {
		t.Fatalf("different revealed set should fail")
	}
	cond, _ := recorder.NewHitRecorder(9, 2, rev, "condition")
	if err := m.Merge(cond); err == nil {
		t.Fatalf("different sampling should fail")
	}
	if _, err := recorder.MergeHitRecorder(nil); err == nil {
		t.Fatalf("empty merge should fail")
	}
}
