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

// PRNG 估算器所需的亂數來源。
//
// bounded 取樣交由實作自己處理，32-bit 與 64-bit 原生輸出的產生器各走最合適的無偏路徑。
type PRNG interface {
	// Uint64 回傳均勻分布的 uint64。
	Uint64() uint64
	// IntN 回傳 [0,max) 的無偏 int，max <= 0 回傳 -1。
	IntN(int) int
}

type PRNGFactory interface {
	// New 以指定 seed 建立新的 PRNG。
	//
	// 合約：同一實作、同一版本下，New(seed) 必須是決定性的，
	// 相同 seed 產生相同的初始狀態與輸出序列。
	// 估算器的可重現性（固定 seed 得到相同 SafetyVector）完全建立在這個合約上。
	New(int64) PRNG
}

// DefaultPRNG 預設的 PRNGFactory（PCG64）。
type DefaultPRNG struct{}

// New 滿足合約
func (d *DefaultPRNG) New(seed int64) PRNG {
	return newPCG64WithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// Core 封裝 PRNG，並提供常用取樣與工具方法。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// SampleK 以 partial Fisher-Yates 從 pop 中不放回地均勻抽出 k 個元素，
// 結果就地放在 pop[:k] 並回傳該切片（與 pop 共用底層陣列）。
//
//   - 每個 k-子集合出現機率相同，不偏向低 index。
//   - pop 可跨多次呼叫重複使用：對任意排列做 partial Fisher-Yates 仍是均勻抽樣，
//     所以熱路徑不需要每次重置 pop。
//   - k <= 0 回傳空切片；k > len(pop) 時視為 len(pop)。
//   - 只消耗 k 次 IntN，時間 O(k)、零配置。
func (c *Core) SampleK(pop []int, k int) []int {
	n := len(pop)
	if k <= 0 {
		return pop[:0]
	}
	k = min(k, n)
	for i := 0; i < k; i++ {
		j := i + c.IntN(n-i)
		pop[i], pop[j] = pop[j], pop[i]
	}
	return pop[:k]
}
