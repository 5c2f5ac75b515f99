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

// Package grid 定義盤面共用的值物件：GridSpec、MineSet、RevealedSet、SafetyVector。
//
// 所有型別都是「每次請求新建」的值，沒有跨請求身分，也沒有全域可變狀態。
// tile index 一律為 row-major：index = row*side + col，範圍 [0, side*side)。
package grid

import (
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/minelab/errs"
)

// Spec 盤面規格（正方形），TileCount = Side²。
type Spec struct {
	Side int `yaml:"side" json:"side"`
}

// New 建立並檢查盤面規格。
func New(side int) (Spec, error) {
	s := Spec{Side: side}
	if err := s.Valid(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

func (s Spec) Valid() error {
	if s.Side <= 0 {
		return errs.InvalidInputf("grid side must > 0, got %d", s.Side)
	}
	// 避免 side² 溢位；實務上盤面遠小於此
	if s.Side > 1<<15 {
		return errs.InvalidInputf("grid side too large: %d", s.Side)
	}
	return nil
}

func (s Spec) TileCount() int {
	return s.Side * s.Side
}

// Contains 回報 i 是否為合法 tile index。
func (s Spec) Contains(i int) bool {
	return i >= 0 && i < s.TileCount()
}

// RowCol 將 index 轉為 (row, col)。
func (s Spec) RowCol(i int) (int, int) {
	return i / s.Side, i % s.Side
}

// MineSet 依推導順序（first-found-first）排列的不重複地雷 index。
type MineSet []int

func (m MineSet) Contains(i int) bool {
	return slices.Contains(m, i)
}

// Sorted 回傳依空間順序排序的副本，不改變原推導順序。
func (m MineSet) Sorted() []int {
	out := slices.Clone([]int(m))
	slices.Sort(out)
	return out
}

// Bitmap 以 index 為位置的布林盤面（true = 該格成立）。
type Bitmap []bool

// Count 回傳為 true 的格數。
func (b Bitmap) Count() int {
	n := 0
	for _, v := range b {
		if v {
			n++
		}
	}
	return n
}

// Indices 回傳為 true 的 index（遞增）。
func (b Bitmap) Indices() []int {
	out := make([]int, 0, b.Count())
	for i, v := range b {
		if v {
			out = append(out, i)
		}
	}
	return out
}

// RevealedSet 呼叫端宣告為安全的格子集合。
//
// 引擎不假設它與 MineSet 互斥，只把它當成取樣時的排除/遮罩集合。
type RevealedSet struct {
	idx  []int
	bits Bitmap
}

// NewRevealedSet 去重、排序並檢查範圍。重複 index 視為同一格。
func NewRevealedSet(tileCount int, idx []int) (RevealedSet, error) {
	if tileCount <= 0 {
		return RevealedSet{}, errs.InvalidInputf("tile count must > 0, got %d", tileCount)
	}
	bits := make(Bitmap, tileCount)
	for _, i := range idx {
		if i < 0 || i >= tileCount {
			return RevealedSet{}, errs.InvalidInputf("revealed index %d out of range [0,%d)", i, tileCount)
		}
		bits[i] = true
	}
	return RevealedSet{idx: bits.Indices(), bits: bits}, nil
}

// RevealedFromBitmap 由 bitmap 建立 RevealedSet（bitmap 長度即 tileCount）。
func RevealedFromBitmap(b Bitmap) RevealedSet {
	bits := slices.Clone(b)
	return RevealedSet{idx: bits.Indices(), bits: bits}
}

func (r RevealedSet) Len() int {
	return len(r.idx)
}

// TileCount 建立時的盤面大小；零值集合回傳 0。
func (r RevealedSet) TileCount() int {
	return len(r.bits)
}

// Has 回報 i 是否已揭露；超出範圍一律 false。
func (r RevealedSet) Has(i int) bool {
	return i >= 0 && i < len(r.bits) && r.bits[i]
}

// Indices 回傳遞增排序的副本。
func (r RevealedSet) Indices() []int {
	return slices.Clone(r.idx)
}

// Bitmap 回傳副本，長度等於 tileCount。
func (r RevealedSet) Bitmap() Bitmap {
	return slices.Clone(r.bits)
}

// Equal 比較兩個集合內容（含 tileCount）。
func (r RevealedSet) Equal(o RevealedSet) bool {
	return len(r.bits) == len(o.bits) && slices.Equal(r.idx, o.idx)
}

// SafetyVector 每格為安全的機率，長度為 tileCount，值域 [0,1]。
type SafetyVector []float64

// Mean 全盤平均。
func (v SafetyVector) Mean() float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range v {
		sum += p
	}
	return sum / float64(len(v))
}

// Overlay 把 MineSet 轉成布林盤面，供呈現層疊圖。
func Overlay(s Spec, mines MineSet) Bitmap {
	b := make(Bitmap, s.TileCount())
	for _, i := range mines {
		if s.Contains(i) {
			b[i] = true
		}
	}
	return b
}

// Format 以 cell(i) 產生每格字串，依顯示寬度對齊後輸出 side 行。
func Format(s Spec, cell func(i int) string) string {
	n := s.TileCount()
	cells := make([]string, n)
	w := 0
	for i := 0; i < n; i++ {
		cells[i] = cell(i)
		w = max(w, runewidth.StringWidth(cells[i]))
	}
	var sb strings.Builder
	for r := 0; r < s.Side; r++ {
		for c := 0; c < s.Side; c++ {
			str := cells[r*s.Side+c]
			if c > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(runewidth.FillLeft(str, w))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
