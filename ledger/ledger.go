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

// Package ledger 保存 commit/reveal 局：先公開 server seed 的承諾值，結束後才揭露 seed。
//
// 一局建立後可多次推進 nonce（每個 nonce 一盤），揭露之後即封存，不可再推進。
package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/fair"
)

var (
	ErrNotFound = errs.NewWarn("round not found")
	ErrSealed   = errs.NewWarn("round already revealed")
)

// Round 一局的種子材料。未揭露前 ServerSeed 只存在 store 內，對外一律隱藏。
type Round struct {
	ID         string    `json:"id"`
	ServerSeed string    `json:"server_seed,omitempty"`
	Commitment string    `json:"commitment"`
	ClientSeed string    `json:"client_seed"`
	Nonce      uint64    `json:"nonce"`
	Profile    string    `json:"profile"`
	CreatedAt  time.Time `json:"created_at"`
	Revealed   bool      `json:"revealed"`
}

// NewRound 產生新局：uuid、32 bytes server seed 與其承諾值。clientSeed 為空時使用 uuid。
// clientSeed 原樣保存；前後帶空白視為 InvalidInput，不代為修剪，否則玩家自行驗證時會對不上。
func NewRound(profile string, clientSeed string, now time.Time) (Round, error) {
	if strings.TrimSpace(clientSeed) != clientSeed {
		return Round{}, errs.InvalidInputf("client seed must not have leading or trailing whitespace")
	}
	if clientSeed == "" {
		clientSeed = fair.NewClientSeed()
	}
	seed, err := fair.NewServerSeed()
	if err != nil {
		return Round{}, err
	}
	return Round{
		ID:         uuid.NewString(),
		ServerSeed: seed,
		Commitment: fair.Commit(seed),
		ClientSeed: clientSeed,
		Nonce:      0,
		Profile:    profile,
		CreatedAt:  now.UTC(),
	}, nil
}

// Public 對外視圖：未揭露時抹掉 ServerSeed。
func (r Round) Public() Round {
	if !r.Revealed {
		r.ServerSeed = ""
	}
	return r
}

// Store round 存取介面。
//
//   - Get 回傳 Public 視圖
//   - NextNonce 對已揭露的局回傳 ErrSealed
//   - Reveal 可重複呼叫，回傳含 ServerSeed 的完整局
type Store interface {
	Create(ctx context.Context, r Round) error
	Get(ctx context.Context, id string) (Round, error)
	NextNonce(ctx context.Context, id string) (Round, error)
	Reveal(ctx context.Context, id string) (Round, error)
}

func notFound(id string) error {
	return errs.WrapWarn(ErrNotFound, "round "+id)
}

func sealed(id string) error {
	return errs.WrapWarn(ErrSealed, "round "+id)
}
