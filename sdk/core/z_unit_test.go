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

package core

import (
	"slices"
	"testing"
)

func TestCoreDeterminism(t *testing.T) {
	c1 := New(Default().New(7))
	c2 := New(Default().New(7))
	for i := 0; i < 5; i++ {
		if c1.Uint64() != c2.Uint64() {
			t.Fatalf("Uint64 mismatch at %d", i)
		}
	}
	if c1.IntN(10) != c2.IntN(10) {
		t.Fatalf("IntN mismatch")
	}
	if c1.IntN(0) != -1 || c1.IntN(-3) != -1 {
		t.Fatalf("zero bound contract broken")
	}
}

func TestSampleKUniqueAndDeterministic(t *testing.T) {
	pop := func() []int {
		p := make([]int, 25)
		for i := range p {
			p[i] = i
		}
		return p
	}
	c1 := New(Default().New(42))
	c2 := New(Default().New(42))
	p1, p2 := pop(), pop()
	for round := 0; round < 200; round++ {
		a := c1.SampleK(p1, 5)
		b := c2.SampleK(p2, 5)
		if !slices.Equal(a, b) {
			t.Fatalf("round %d: %v vs %v", round, a, b)
		}
		seen := map[int]bool{}
		for _, v := range a {
			if v < 0 || v >= 25 || seen[v] {
				t.Fatalf("round %d: bad sample %v", round, a)
			}
			seen[v] = true
		}
	}
	if got := c1.SampleK(pop(), 0); len(got) != 0 {
		t.Fatalf("k=0 should be empty")
	}
	if got := c1.SampleK(pop()[:3], 10); len(got) != 3 {
		t.Fatalf("k > n should clamp, got %d", len(got))
	}
}

// 每個 index 被抽中的頻率應接近 k/n，確認不偏向低 index。
func TestSampleKUniform(t *testing.T) {
	const n, k, rounds = 10, 3, 200000
	c := New(Default().New(2025))
	pop := make([]int, n)
	for i := range pop {
		pop[i] = i
	}
	hits := make([]int, n)
	for r := 0; r < rounds; r++ {
		for _, v := range c.SampleK(pop, k) {
			hits[v]++
		}
	}
	want := float64(rounds) * k / n
	for i, h := range hits {
		if d := float64(h) - want; d > want*0.02 || d < -want*0.02 {
			t.Fatalf("index %d hit %d times, want about %.0f", i, h, want)
		}
	}
}

// 不同 seed 的序列不應相同；splitmix 展開避免相鄰 seed 產生相關序列。
func TestSeedsDiverge(t *testing.T) {
	a, b := Default().New(1), Default().New(2)
	same := 0
	for i := 0; i < 64; i++ {
		if a.Uint64() == b.Uint64() {
			same++
		}
	}
	if same != 0 {
		t.Fatalf("adjacent seeds produced %d equal outputs", same)
	}
}

// 2 的冪次走遮罩路徑，其餘走乘法拒絕路徑，兩者都需落在範圍內。
func TestIntNRange(t *testing.T) {
	c := New(Default().New(5))
	for _, n := range []int{1, 2, 7, 16, 25, 1 << 20, 1<<30 + 11} {
		for i := 0; i < 1000; i++ {
			if v := c.IntN(n); v < 0 || v >= n {
				t.Fatalf("IntN(%d) = %d", n, v)
			}
		}
	}
}
