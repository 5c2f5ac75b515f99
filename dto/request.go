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
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/fair"
)

const (
	// MaxBody POST body 上限（1MiB）
	MaxBody = 1 << 20
	// MaxTrials 單次 HTTP 估算允許的最大試驗次數
	MaxTrials = 10_000_000
)

// validate 套件層級單例。
var validate = validator.New(validator.WithRequiredStructEnabled())

// Nonce 十進位非負整數；JSON 可以是數字或數字字串。
// "01" 視為 1，推導訊息使用正規化後的 "1"（見 fair.ParseNonce）。
type Nonce uint64

func (n *Nonce) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return errs.InvalidInputf("nonce: %v", err)
		}
	}
	v, err := fair.ParseNonce(s)
	if err != nil {
		return err
	}
	*n = Nonce(v)
	return nil
}

func (n Nonce) MarshalJSON() ([]byte, error) {
	return strconv.AppendUint(nil, uint64(n), 10), nil
}

// JSONSchema 數字或十進位字串。
func (Nonce) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "integer", Minimum: json.Number("0")},
			{Type: "string", Pattern: `^\s*[0-9]+\s*$`},
		},
		Description: "non-negative decimal nonce, number or string",
	}
}

// VerifyRequest 重算一局的地雷位置。mine_count/side 省略時使用 profile 預設。
type VerifyRequest struct {
	Profile    string `json:"profile" validate:"required,max=64"`
	ServerSeed string `json:"server_seed" validate:"required,max=1024"`
	ClientSeed string `json:"client_seed" validate:"required,max=1024"`
	Nonce      Nonce  `json:"nonce"`
	MineCount  int    `json:"mine_count,omitempty" validate:"gte=0"`
	Side       int    `json:"side,omitempty" validate:"gte=0,lte=1024"`
	Commitment string `json:"commitment,omitempty" validate:"omitempty,hexadecimal,len=64"`
}

// EstimateRequest 蒙地卡羅估算。
//
// seed 有值時以新建的 Estimator 執行（可重現），否則借用 runtime 池。
type EstimateRequest struct {
	Profile   string `json:"profile" validate:"required,max=64"`
	MineCount int    `json:"mine_count,omitempty" validate:"gte=0"`
	Revealed  []int  `json:"revealed,omitempty" validate:"dive,gte=0"`
	Trials    int    `json:"trials,omitempty" validate:"gte=0,lte=10000000"`
	Workers   int    `json:"workers,omitempty" validate:"gte=0,lte=256"`
	Sampling  string `json:"sampling,omitempty" validate:"omitempty,oneof=mask condition"`
	Seed      *int64 `json:"seed,omitempty" validate:"omitempty,gte=0"`
}

// PredictRequest 以指定方法預測安全機率；method 省略時使用伺服器預設。
type PredictRequest struct {
	Profile   string `json:"profile" validate:"required,max=64"`
	MineCount int    `json:"mine_count,omitempty" validate:"gte=0"`
	Revealed  []int  `json:"revealed,omitempty" validate:"dive,gte=0"`
	Method    string `json:"method,omitempty" validate:"omitempty,oneof=montecarlo exact remote"`
}

// RoundRequest 建立 commit/reveal 局；client_seed 省略時由伺服器產生。
type RoundRequest struct {
	Profile    string `json:"profile" validate:"required,max=64"`
	ClientSeed string `json:"client_seed,omitempty" validate:"max=1024"`
}

// RoundIDRequest 推進 nonce 或揭露時使用。
type RoundIDRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

// Decode 把 POST JSON body 解碼成 T 並執行 tag 驗證。
//
//   - body 上限 MaxBody
//   - DisallowUnknownFields：未知欄位直接拒絕，避免靜默丟資料
//   - 所有解碼/驗證錯誤都是 errs.ErrInvalidInput
func Decode[T any](r *http.Request) (*T, error) {
	if r == nil || r.Body == nil {
		return nil, errs.InvalidInputf("empty request")
	}
	if r.Method != http.MethodPost {
		return nil, errs.InvalidInputf("method %s not allowed", r.Method)
	}
	return DecodeBytes[T](io.LimitReader(r.Body, MaxBody))
}

// DecodeBytes 與 Decode 相同，但來源為任意 reader。
func DecodeBytes[T any](src io.Reader) (*T, error) {
	v := new(T)
	dec := json.NewDecoder(src)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var e *errs.E
		if errors.As(err, &e) {
			return nil, e
		}
		return nil, errs.InvalidInputf("invalid json: %v", err)
	}
	if err := validate.Struct(v); err != nil {
		return nil, errs.InvalidInputf("validation failed: %v", err)
	}
	return v, nil
}
