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
	"time"

	"github.com/zintix-labs/minelab"
	"github.com/zintix-labs/minelab/ledger"
	"github.com/zintix-labs/minelab/stats"
)

type EstimateResult struct {
	Report    *stats.SafetyReport `json:"report"`
	Heatmap   string              `json:"heatmap,omitempty"`
	Workers   int                 `json:"workers"`
	ElapsedMs int64               `json:"elapsed_ms"`
	Seed      *int64              `json:"seed,omitempty"` // 只有指定 seed 時回傳，可重現
}

func NewEstimateResult(rep *stats.SafetyReport, workers int, used time.Duration, seed *int64) EstimateResult {
	return EstimateResult{
		Report:    rep,
		Heatmap:   rep.Heatmap(),
		Workers:   workers,
		ElapsedMs: used.Milliseconds(),
		Seed:      seed,
	}
}

type PredictResult struct {
	Profile string    `json:"profile"`
	Method  string    `json:"method"`
	Safety  []float64 `json:"safety"`
}

// RoundResult 對外的局資訊；未揭露前不含 server_seed。
type RoundResult struct {
	Round ledger.Round `json:"round"`
}

// RevealResult 揭露後的完整局與當前 nonce 的推導結果。
type RevealResult struct {
	Round        ledger.Round          `json:"round"`
	Verification *minelab.Verification `json:"verification"`
}

type ErrorResult struct {
	Error string `json:"error"`
	Level string `json:"level,omitempty"`
}
