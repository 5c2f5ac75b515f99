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

package dto

import (
	"bytes"
	"encoding/json"

	"github.com/zintix-labs/minelab/errs"
)

// Seeds 剪貼簿格式：{"serverSeed":"...","clientSeed":"...","nonce":123}
//
// 三個欄位都可省略；省略的欄位不覆蓋呼叫端現有值。未知欄位忽略。
type Seeds struct {
	ServerSeed string `json:"serverSeed,omitempty"`
	ClientSeed string `json:"clientSeed,omitempty"`
	Nonce      *Nonce `json:"nonce,omitempty"`
}

// ImportSeeds 解析剪貼簿 JSON。
func ImportSeeds(raw []byte) (Seeds, error) {
	var s Seeds
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return s, errs.InvalidInputf("import: empty input")
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		if e, ok := errs.AsErr(err); ok {
			return Seeds{}, e
		}
		return Seeds{}, errs.InvalidInputf("import: invalid json: %v", err)
	}
	return s, nil
}

// Apply 把有值的欄位覆蓋到呼叫端變數。
func (s Seeds) Apply(serverSeed *string, clientSeed *string, nonce *uint64) {
	if s.ServerSeed != "" {
		*serverSeed = s.ServerSeed
	}
	if s.ClientSeed != "" {
		*clientSeed = s.ClientSeed
	}
	if s.Nonce != nil {
		*nonce = uint64(*s.Nonce)
	}
}
