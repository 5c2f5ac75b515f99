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
	"encoding/json"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/zintix-labs/minelab/errs"
)

// schemas 可查詢 JSON schema 的請求型別。
var schemas = map[string]func() any{
	"verify":   func() any { return &VerifyRequest{} },
	"estimate": func() any { return &EstimateRequest{} },
	"predict":  func() any { return &PredictRequest{} },
	"round":    func() any { return &RoundRequest{} },
	"round_id": func() any { return &RoundIDRequest{} },
	"import":   func() any { return &Seeds{} },
}

// SchemaNames 依字母排序。
func SchemaNames() []string {
	names := make([]string, 0, len(schemas))
	for n := range schemas {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Schema 回傳指定請求型別的 JSON schema（Draft 2020-12，struct 展開）。
func Schema(name string) ([]byte, error) {
	fn, ok := schemas[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errs.InvalidInputf("unknown schema %q, want one of %v", name, SchemaNames())
	}
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	s := reflector.Reflect(fn())
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errs.Wrap(err, "marshal schema")
	}
	return b, nil
}
