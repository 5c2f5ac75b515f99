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

package stats

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// SafetyReportRender 定義輸出行為
type SafetyReportRender interface {
	Write(w io.Writer, r *SafetyReport) error
}

// Json渲染
type JsonSafetyReportRender struct{}

func (jr *JsonSafetyReportRender) Write(w io.Writer, r *SafetyReport) error {
	return json.NewEncoder(w).Encode(r)
}

// YAML渲染
type YAMLSafetyReportRender struct{}

func (yr *YAMLSafetyReportRender) Write(w io.Writer, r *SafetyReport) error {
	// 只有「最內層的一維陣列」輸出成 flow style：[..., ...]，外層維度維持展開
	return forceReadableList(w, r)
}

// RenderFor 依名稱取得渲染器（json / yaml），未知名稱回傳 nil。
func RenderFor(name string) SafetyReportRender {
	switch name {
	case "json":
		return &JsonSafetyReportRender{}
	case "yaml", "yml":
		return &YAMLSafetyReportRender{}
	default:
		return nil
	}
}

// YAML 內層方法
func forceReadableList[T any](w io.Writer, t *T) error {
	var node yaml.Node
	if err := node.Encode(t); err != nil {
		return err
	}
	styleReadableSequences(&node)

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(&node)
}

func styleReadableSequences(n *yaml.Node) {
	if n == nil {
		return
	}

	switch n.Kind {
	case yaml.DocumentNode, yaml.MappingNode:
		for _, c := range n.Content {
			styleReadableSequences(c)
		}

	case yaml.SequenceNode:
		// 是否包含子 sequence 或 mapping（代表外層維度，例如 []CI）
		nested := false
		for _, c := range n.Content {
			if c != nil && (c.Kind == yaml.SequenceNode || c.Kind == yaml.MappingNode) {
				nested = true
			}
			styleReadableSequences(c)
		}
		if !nested {
			n.Style = yaml.FlowStyle
		}
	}
}
