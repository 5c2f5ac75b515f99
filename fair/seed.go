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

package fair

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/zintix-labs/minelab/errs"
)

const serverSeedBytes = 32

// Commit 回傳 server seed 的承諾值：hex(sha256(serverSeed))。
// 局開始前公開 Commit，局結束後揭露 serverSeed，任何人都能比對。
func Commit(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// VerifyCommitment 以常數時間比較揭露的 seed 與先前公開的承諾值（承諾值不分大小寫）。
func VerifyCommitment(serverSeed string, commitment string) bool {
	want := strings.ToLower(strings.TrimSpace(commitment))
	got := Commit(serverSeed)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// NewServerSeed 產生 32 bytes 的密碼學亂數並以 hex 表示。
func NewServerSeed() (string, error) {
	b := make([]byte, serverSeedBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errs.Wrap(err, "generate server seed failed")
	}
	return hex.EncodeToString(b), nil
}

// NewClientSeed 預設的玩家 seed（uuid v4）。玩家可自行覆蓋。
func NewClientSeed() string {
	return uuid.NewString()
}

// ParseNonce 解析非負十進位整數；不接受正負號、空字串與其他進位。
//
// nonce 以整數處理："01" 會被正規化為 1，推導訊息一律以 strconv.FormatUint 重新輸出（"xyz:1"）。
// 以原字串直接組訊息的驗證器會把 "01" 算成 "xyz:01"，兩者 digest 不同；
// 帶前導零的 nonce 只有在對方同樣正規化時才會得到相同的地雷位置。
func ParseNonce(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errs.InvalidInputf("nonce is empty")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errs.InvalidInputf("nonce must be a non-negative integer, got %q", s)
	}
	return n, nil
}
