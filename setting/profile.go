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

package setting

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/estimate"
	"github.com/zintix-labs/minelab/fair"
	"github.com/zintix-labs/minelab/grid"
)

// validate 套件層級單例，重複建立 validator 的成本高。
var validate = validator.New(validator.WithRequiredStructEnabled())

// Profile 一組盤面與推導參數，以及估算時的預設值。
//
// 一個 Profile 對應一個 YAML/JSON 檔；檔名需唯一，Name 需唯一（不分大小寫）。
type Profile struct {
	Name        string  `yaml:"name"        json:"name"        validate:"required,max=64"`
	Description string  `yaml:"description" json:"description,omitempty"`
	Side        int     `yaml:"side"        json:"side"        validate:"gte=1,lte=32768"`
	Mode        string  `yaml:"mode"        json:"mode"        validate:"required"`
	Hash        string  `yaml:"hash"        json:"hash"`
	ChunkWidth  int     `yaml:"chunk_width" json:"chunk_width" validate:"gte=1,lte=15"`
	Blocks      int     `yaml:"blocks"      json:"blocks"      validate:"gte=0,lte=1024"`
	MineCount   int     `yaml:"mine_count"  json:"mine_count"  validate:"gte=1"`
	Trials      int     `yaml:"trials"      json:"trials"      validate:"gte=1"`
	Workers     int     `yaml:"workers"     json:"workers"     validate:"gte=0,lte=1024"`
	Sampling    string  `yaml:"sampling"    json:"sampling"`
	Confidence  float64 `yaml:"confidence"  json:"confidence"  validate:"gt=0,lt=1"`

	params   fair.Params
	sampling estimate.Sampling
}

// init 正規化名稱、解析列舉字串並執行檢查。
func (p *Profile) init() error {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	if err := validate.Struct(p); err != nil {
		return errs.Wrap(err, fmt.Sprintf("profile %q: field validation failed", p.Name))
	}
	mode, err := fair.ParseMode(p.Mode)
	if err != nil {
		return errs.Fatalf("profile %q: %v", p.Name, err)
	}
	h, err := fair.ParseHash(p.Hash)
	if err != nil {
		return errs.Fatalf("profile %q: %v", p.Name, err)
	}
	s, err := estimate.ParseSampling(p.Sampling)
	if err != nil {
		return errs.Fatalf("profile %q: %v", p.Name, err)
	}
	p.params = fair.Params{Mode: mode, Hash: h, ChunkWidth: p.ChunkWidth, Blocks: p.Blocks}
	p.sampling = s
	return p.valid()
}

// valid 跨欄位檢查，tag 無法表達的條件放這裡。
func (p *Profile) valid() error {
	if err := p.params.Valid(); err != nil {
		return errs.Fatalf("profile %q: %v", p.Name, err)
	}
	if err := p.Grid().Valid(); err != nil {
		return errs.Fatalf("profile %q: %v", p.Name, err)
	}
	if tc := p.Grid().TileCount(); p.MineCount >= tc {
		return errs.Fatalf("profile %q: mine_count %d must < tile count %d", p.Name, p.MineCount, tc)
	}
	return nil
}

// Params 推導參數（已解析）。
func (p *Profile) Params() fair.Params {
	return p.params
}

// SamplingMode 估算取樣模式（已解析）。
func (p *Profile) SamplingMode() estimate.Sampling {
	return p.sampling
}

func (p *Profile) Grid() grid.Spec {
	return grid.Spec{Side: p.Side}
}

// Clone 回傳副本，呼叫端可安全修改。
func (p *Profile) Clone() *Profile {
	cp := *p
	return &cp
}
