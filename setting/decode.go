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
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/minelab/errs"
	"gopkg.in/yaml.v3"
)

// ProfileByYAML
// 嚴格解析 YAML（多寫/拼錯欄位就報錯），初始化後執行檢查再回傳。
func ProfileByYAML(data []byte) (*Profile, error) {
	p := &Profile{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshall yaml")
	}
	if err := p.init(); err != nil {
		return nil, errs.Wrap(err, "profile initialized err")
	}
	return p, nil
}

// ProfileByJSON
// 嚴格解析 Json，初始化後執行檢查再回傳。
func ProfileByJSON(data []byte) (*Profile, error) {
	p := &Profile{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, errs.Wrap(err, "can not unmarshall json byte")
	}
	if err := p.init(); err != nil {
		return nil, errs.Wrap(err, "profile initialized err")
	}
	return p, nil
}

// ProfileByExt 依副檔名選擇解析器。
func ProfileByExt(filename string, raw []byte) (*Profile, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return ProfileByYAML(raw)
	case ".json":
		return ProfileByJSON(raw)
	default:
		return nil, errs.NewFatal(fmt.Sprintf("unsupported profile format: %q", filename))
	}
}
