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

// Package fair 實作 provably-fair 的地雷推導：由 (server seed, client seed, nonce)
// 決定性地展開出一組不重複的 tile index。
//
// 推導流程（所有模式共用）：
//  1. message = clientSeed + ":" + nonce（nonce 以十進位表示）
//  2. HMACKeyed：HMAC(key=serverSeed, message)；PlainKeyedMessage：H(serverSeed + ":" + message)
//  3. digest 轉為小寫 hex
//  4. 由頭開始以 ChunkWidth 個 hex 字元為一塊（不重疊），解析為 16 進位整數後 mod tileCount
//  5. 第一次出現者保留，重複者略過（不重抽）
//  6. 湊滿 mineCount 個即停止；hex 用盡仍不足則回傳 ErrInsufficientEntropy
//
// Blocks > 1 時，第 k 塊（k >= 1）的 message 會再接上 ":" + k，各塊 hex 依序串接後一起走訪。
// Blocks == 1 時與上述流程完全一致。
//
// 本包只做整數運算，不涉及浮點、locale 或 map 迭代順序，保證跨平台逐位元一致。
package fair

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"strconv"
	"strings"

	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/grid"
	"golang.org/x/crypto/blake2b"
)

// Sep 是 message 各欄位的固定分隔字元。
const Sep = ":"

const (
	MinChunkWidth = 1
	MaxChunkWidth = 15 // 15 個 hex = 60 bits，保證放得進 uint64
	MaxBlocks     = 1024
)

// Mode 推導模式。
type Mode uint8

const (
	HMACKeyed         Mode = iota // HMAC(serverSeed, clientSeed:nonce)
	PlainKeyedMessage             // H(serverSeed:clientSeed:nonce)
)

var modeNames = map[Mode]string{
	HMACKeyed:         "hmac",
	PlainKeyedMessage: "plain",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseMode 接受 hmac / hmac_keyed / plain / plain_keyed_message（不分大小寫）。
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hmac", "hmac_keyed":
		return HMACKeyed, nil
	case "plain", "plain_keyed_message":
		return PlainKeyedMessage, nil
	default:
		return 0, errs.InvalidInputf("unknown derivation mode %q", s)
	}
}

// Hash 摘要演算法。
type Hash uint8

const (
	SHA256 Hash = iota
	SHA512
	BLAKE2b256
)

var hashNames = map[Hash]string{
	SHA256:     "sha256",
	SHA512:     "sha512",
	BLAKE2b256: "blake2b256",
}

func (h Hash) String() string {
	if s, ok := hashNames[h]; ok {
		return s
	}
	return "unknown"
}

// ParseHash 空字串視為 sha256。
func ParseHash(s string) (Hash, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sha256", "sha-256":
		return SHA256, nil
	case "sha512", "sha-512":
		return SHA512, nil
	case "blake2b", "blake2b256", "blake2b-256":
		return BLAKE2b256, nil
	default:
		return 0, errs.InvalidInputf("unknown hash %q", s)
	}
}

// New 回傳對應的 hash 建構函數，可直接交給 hmac.New。
func (h Hash) New() hash.Hash {
	switch h {
	case SHA512:
		return sha512.New()
	case BLAKE2b256:
		// 無 key 時 New256 不會失敗
		b, _ := blake2b.New256(nil)
		return b
	default:
		return sha256.New()
	}
}

// Params 推導參數。
type Params struct {
	Mode       Mode
	Hash       Hash
	ChunkWidth int // 每塊 hex 字元數
	Blocks     int // digest 區塊數，0 視為 1
}

// DefaultParams 與原始驗證器一致：HMAC-SHA256、每塊 5 個 hex、單一區塊。
func DefaultParams() Params {
	return Params{Mode: HMACKeyed, Hash: SHA256, ChunkWidth: 5, Blocks: 1}
}

func (p Params) Valid() error {
	if _, ok := modeNames[p.Mode]; !ok {
		return errs.InvalidInputf("unknown derivation mode %d", p.Mode)
	}
	if _, ok := hashNames[p.Hash]; !ok {
		return errs.InvalidInputf("unknown hash %d", p.Hash)
	}
	if p.ChunkWidth < MinChunkWidth || p.ChunkWidth > MaxChunkWidth {
		return errs.InvalidInputf("chunk width must in [%d,%d], got %d", MinChunkWidth, MaxChunkWidth, p.ChunkWidth)
	}
	if p.Blocks < 0 || p.Blocks > MaxBlocks {
		return errs.InvalidInputf("blocks must in [1,%d], got %d", MaxBlocks, p.Blocks)
	}
	return nil
}

func (p Params) blocks() int {
	return max(1, p.Blocks)
}

// Material 一局的種子材料。
type Material struct {
	ServerSeed string
	ClientSeed string
	Nonce      uint64
	MineCount  int
}

// Valid 檢查 seed 非空與 0 < MineCount < tileCount。
func (m Material) Valid(g grid.Spec) error {
	if err := g.Valid(); err != nil {
		return err
	}
	if m.ServerSeed == "" {
		return errs.InvalidInputf("server seed is empty")
	}
	if m.ClientSeed == "" {
		return errs.InvalidInputf("client seed is empty")
	}
	if tc := g.TileCount(); m.MineCount <= 0 || m.MineCount >= tc {
		return errs.InvalidInputf("mine count must in (0,%d), got %d", tc, m.MineCount)
	}
	return nil
}

// Message 回傳第 k 塊的 digest 輸入（不含 PlainKeyedMessage 的 serverSeed 前綴）。
func (m Material) Message(k int) string {
	msg := m.ClientSeed + Sep + strconv.FormatUint(m.Nonce, 10)
	if k > 0 {
		msg += Sep + strconv.Itoa(k)
	}
	return msg
}

// Derive 依參數把種子材料展開為 MineSet。
func Derive(m Material, g grid.Spec, p Params) (grid.MineSet, error) {
	if err := m.Valid(g); err != nil {
		return nil, err
	}
	if err := p.Valid(); err != nil {
		return nil, err
	}
	return pick(digestHex(m, p), g.TileCount(), m.MineCount, p.ChunkWidth)
}

// Digest 回傳實際被走訪的完整 hex 字串（各區塊串接），供驗證端顯示。
func Digest(m Material, p Params) (string, error) {
	if m.ServerSeed == "" || m.ClientSeed == "" {
		return "", errs.InvalidInputf("seeds must not be empty")
	}
	if err := p.Valid(); err != nil {
		return "", err
	}
	return digestHex(m, p), nil
}

func digestHex(m Material, p Params) string {
	n := p.blocks()
	var sb strings.Builder
	sb.Grow(n * p.Hash.New().Size() * 2)
	for k := 0; k < n; k++ {
		sb.WriteString(hex.EncodeToString(digestBlock(m, p, k)))
	}
	return sb.String()
}

func digestBlock(m Material, p Params, k int) []byte {
	msg := m.Message(k)
	switch p.Mode {
	case PlainKeyedMessage:
		h := p.Hash.New()
		h.Write([]byte(m.ServerSeed + Sep + msg))
		return h.Sum(nil)
	default:
		mac := hmac.New(p.Hash.New, []byte(m.ServerSeed))
		mac.Write([]byte(msg))
		return mac.Sum(nil)
	}
}

// pick 以不重疊的 width 寬度走訪 hex，只使用完整的塊；結尾不足 width 的殘塊忽略。
func pick(hexs string, tileCount int, mineCount int, width int) (grid.MineSet, error) {
	mines := make(grid.MineSet, 0, mineCount)
	seen := make([]bool, tileCount)
	tc := uint64(tileCount)
	for i := 0; i+width <= len(hexs) && len(mines) < mineCount; i += width {
		v, err := strconv.ParseUint(hexs[i:i+width], 16, 64)
		if err != nil {
			return nil, errs.Wrap(err, "digest is not hex")
		}
		idx := int(v % tc)
		if seen[idx] {
			continue
		}
		seen[idx] = true
		mines = append(mines, idx)
	}
	if len(mines) < mineCount {
		return nil, errs.InsufficientEntropyf("digest exhausted with %d unique indices, need %d (chunk width %d, %d hex)", len(mines), mineCount, width, len(hexs))
	}
	return mines, nil
}
