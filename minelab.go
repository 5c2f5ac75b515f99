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

// Package minelab 提供地雷盤面「可證明公平（provably fair）」推導與安全機率估算的組裝入口。
//
// Minelab 把兩個地基組裝在一起：
//  1. Catalog：profile 目錄，定義有哪些盤面設定（盤面大小、推導模式、雜湊、預設雷數等）。
//  2. PRNGFactory：亂數核心工廠，讓估算結果可重現（同 seed 同 workers 得到相同向量）。
//
// 推導（Verify）是純函式，不需要亂數；估算（Estimator / Runtime）才會用到 PRNGFactory。
//
// 典型使用情境：
//
//	lab, _ := minelab.New(core.Default(), profiles.FS)
//	v, _ := lab.Verify(minelab.VerifyInput{Profile: "poppy", ServerSeed: "abc", ClientSeed: "xyz", Nonce: 1})
//	est, _ := lab.NewEstimator("poppy")
//	req, _ := est.Request(3, []int{0, 1}, 0, nil)
//	rep, used, _ := est.EstimateMP(ctx, req, 4, true)
package minelab

import (
	"crypto/rand"
	"fmt"
	"io/fs"
	"math"
	"math/big"

	"github.com/zintix-labs/minelab/catalog"
	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/fair"
	"github.com/zintix-labs/minelab/grid"
	"github.com/zintix-labs/minelab/sdk/core"
	"github.com/zintix-labs/minelab/setting"
)

// Minelab 組裝器。建立後 catalog 即凍結，之後只讀，可被多個 goroutine 共用。
type Minelab struct {
	cat *catalog.Catalog
	cf  core.PRNGFactory
	sum []catalog.Summary
}

// New 掃描所有 profile 來源、註冊並凍結 catalog。
//
// cf 不能為 nil；cfgs 至少一個。任何一個設定檔解析失敗都直接回傳 error。
func New(cf core.PRNGFactory, cfgs ...fs.FS) (*Minelab, error) {
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("profile sources required")
	}
	cat, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	if err := cat.Discover(); err != nil {
		return nil, err
	}
	if len(cat.Names()) == 0 {
		return nil, errs.NewFatal("no profiles found")
	}
	cat.Freeze()
	return &Minelab{cat: cat, cf: cf, sum: cat.Summary()}, nil
}

// Profile 回傳 profile 副本；找不到時 errors.Is(err, catalog.ErrNotFound)。
func (m *Minelab) Profile(name string) (*setting.Profile, error) {
	return m.cat.ProfileByName(name)
}

func (m *Minelab) Names() []string {
	return m.cat.Names()
}

func (m *Minelab) Summary() []catalog.Summary {
	return m.sum
}

// VerifyInput 一次驗證所需的輸入。
//
// MineCount、Side 為 0 時使用 profile 預設；Commitment 非空時一併比對承諾值。
type VerifyInput struct {
	Profile    string
	ServerSeed string
	ClientSeed string
	Nonce      uint64
	MineCount  int
	Side       int
	Commitment string
}

// Verification 驗證結果：推導出的地雷、疊圖、被走訪的 digest 以及承諾值比對。
type Verification struct {
	Profile      string      `json:"profile"`
	Side         int         `json:"side"`
	Mode         string      `json:"mode"`
	Hash         string      `json:"hash"`
	ChunkWidth   int         `json:"chunk_width"`
	Blocks       int         `json:"blocks"`
	MineCount    int         `json:"mine_count"`
	Message      string      `json:"message"`
	Digest       string      `json:"digest"`
	Mines        []int       `json:"mines"`
	Overlay      grid.Bitmap `json:"overlay"`
	Board        string      `json:"board"`
	Commitment   string      `json:"commitment"`
	CommitmentOK *bool       `json:"commitment_ok,omitempty"`
}

// Verify 以 profile 的推導參數重算一局的地雷位置。
//
// 錯誤：
//   - profile 不存在：catalog.ErrNotFound
//   - seed 為空、雷數或盤面不合法：errs.ErrInvalidInput
//   - digest 不足以選出足夠的雷：errs.ErrInsufficientEntropy
func (m *Minelab) Verify(in VerifyInput) (*Verification, error) {
	p, err := m.Profile(in.Profile)
	if err != nil {
		return nil, err
	}
	g := p.Grid()
	if in.Side != 0 {
		g = grid.Spec{Side: in.Side}
	}
	mat := fair.Material{
		ServerSeed: in.ServerSeed,
		ClientSeed: in.ClientSeed,
		Nonce:      in.Nonce,
		MineCount:  in.MineCount,
	}
	if mat.MineCount == 0 {
		mat.MineCount = p.MineCount
	}
	params := p.Params()
	mines, err := fair.Derive(mat, g, params)
	if err != nil {
		return nil, err
	}
	digest, err := fair.Digest(mat, params)
	if err != nil {
		return nil, err
	}
	overlay := grid.Overlay(g, mines)
	v := &Verification{
		Profile:    p.Name,
		Side:       g.Side,
		Mode:       params.Mode.String(),
		Hash:       params.Hash.String(),
		ChunkWidth: params.ChunkWidth,
		Blocks:     max(1, params.Blocks),
		MineCount:  mat.MineCount,
		Message:    mat.Message(0),
		Digest:     digest,
		Mines:      []int(mines),
		Overlay:    overlay,
		Board: grid.Format(g, func(i int) string {
			if overlay[i] {
				return "X"
			}
			return "."
		}),
		Commitment: fair.Commit(in.ServerSeed),
	}
	if in.Commitment != "" {
		ok := fair.VerifyCommitment(in.ServerSeed, in.Commitment)
		v.CommitmentOK = &ok
	}
	return v, nil
}

// NewEstimator 建立指定 profile 的 Estimator，種子由 crypto/rand 產生。
func (m *Minelab) NewEstimator(name string) (*Estimator, error) {
	p, err := m.Profile(name)
	if err != nil {
		return nil, err
	}
	return newEstimator(p, m.cf)
}

// NewEstimatorWithSeed 與 NewEstimator 相同，但由呼叫端指定初始 seed，用於重現。
func (m *Minelab) NewEstimatorWithSeed(name string, seed int64) (*Estimator, error) {
	p, err := m.Profile(name)
	if err != nil {
		return nil, err
	}
	return newEstimatorWithSeed(p, m.cf, seed)
}

// BuildRuntime 為每個 profile 建立一個 EstimatorPool（fail-fast，任一失敗即回傳）。
func (m *Minelab) BuildRuntime(poolSize int) (*Runtime, error) {
	names := m.cat.Names()
	if len(names) == 0 {
		return nil, errs.NewFatal("no profiles registered")
	}
	rt := &Runtime{
		lab:      m,
		pools:    make(map[string]*EstimatorPool, len(names)),
		names:    names,
		done:     make(chan struct{}),
		poolSize: max(1, poolSize),
	}
	rt.reason.Store("")

	for _, name := range names {
		p, err := m.Profile(name)
		if err != nil {
			return nil, err
		}
		seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			return nil, errs.Wrap(err, "runtime seed")
		}
		ep, err := newEstimatorPool(rt.poolSize, p, m.cf, seed.Int64())
		if err != nil {
			return nil, errs.Wrap(err, fmt.Sprintf("build pool %s", name))
		}
		rt.pools[name] = ep
	}
	return rt, nil
}
