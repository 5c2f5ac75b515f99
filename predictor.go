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

package minelab

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/estimate"
	"github.com/zintix-labs/minelab/grid"
	"github.com/zintix-labs/minelab/setting"
)

// Predictor 給定已揭露盤面，回傳每格安全機率。
//
// 學習型近似器（外部模型）只透過這個介面被使用；引擎不負責訓練。
type Predictor interface {
	Predict(ctx context.Context, revealed grid.Bitmap) (grid.SafetyVector, error)
}

// ValidateVector 檢查長度等於 tileCount 且每個值落在 [0,1]（NaN 視為不合法）。
func ValidateVector(v grid.SafetyVector, tileCount int) error {
	if len(v) != tileCount {
		return errs.InvalidInputf("safety vector length %d, want %d", len(v), tileCount)
	}
	for i, p := range v {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return errs.InvalidInputf("safety[%d]=%v out of [0,1]", i, p)
		}
	}
	return nil
}

// MonteCarloPredictor 透過 Runtime 的池做蒙地卡羅估算。MineCount/Trials/Workers 為 0 時使用 profile 預設。
type MonteCarloPredictor struct {
	Runtime   *Runtime
	Profile   string
	MineCount int
	Trials    int
	Workers   int
}

func (p *MonteCarloPredictor) Predict(ctx context.Context, revealed grid.Bitmap) (grid.SafetyVector, error) {
	prof, err := p.Runtime.Lab().Profile(p.Profile)
	if err != nil {
		return nil, err
	}
	req, err := requestFor(prof, revealed, p.MineCount, p.Trials)
	if err != nil {
		return nil, err
	}
	workers := p.Workers
	if workers == 0 {
		workers = max(1, prof.Workers)
	}
	rep, _, err := p.Runtime.Estimate(ctx, prof.Name, req, workers)
	if err != nil {
		return nil, err
	}
	v := rep.Vector()
	return v, ValidateVector(v, req.TileCount)
}

// ExactPredictor 封閉解，不需要亂數。
type ExactPredictor struct {
	Profile   *setting.Profile
	MineCount int
}

func (p *ExactPredictor) Predict(ctx context.Context, revealed grid.Bitmap) (grid.SafetyVector, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.WrapWarn(err, "predict canceled")
	}
	req, err := requestFor(p.Profile, revealed, p.MineCount, 1)
	if err != nil {
		return nil, err
	}
	return estimate.Exact(req)
}

func requestFor(prof *setting.Profile, revealed grid.Bitmap, mineCount int, trials int) (estimate.Request, error) {
	if tc := prof.Grid().TileCount(); len(revealed) != tc {
		return estimate.Request{}, errs.InvalidInputf("revealed bitmap length %d, want %d", len(revealed), tc)
	}
	return NewRequest(prof, mineCount, revealed.Indices(), trials, nil)
}

// RemotePredictor 呼叫外部模型服務。
//
//	POST {URL}  {"revealed":[0,1,...]}  ->  {"safety":[...]}
//
// 回應必須通過 ValidateVector，否則視為 Fatal（模型服務不可信）。
type RemotePredictor struct {
	URL       string
	TileCount int
	Client    *http.Client
}

const remoteMaxBody = 1 << 20

type remoteRequest struct {
	Revealed []int `json:"revealed"`
}

type remoteResponse struct {
	Safety []float64 `json:"safety"`
}

// NewRemotePredictor timeout <= 0 時使用 5 秒。
func NewRemotePredictor(url string, tileCount int, timeout time.Duration) *RemotePredictor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemotePredictor{URL: url, TileCount: tileCount, Client: &http.Client{Timeout: timeout}}
}

func (p *RemotePredictor) Predict(ctx context.Context, revealed grid.Bitmap) (grid.SafetyVector, error) {
	if len(revealed) != p.TileCount {
		return nil, errs.InvalidInputf("revealed bitmap length %d, want %d", len(revealed), p.TileCount)
	}
	idx := revealed.Indices()
	if idx == nil {
		idx = []int{}
	}
	body, err := json.Marshal(remoteRequest{Revealed: idx})
	if err != nil {
		return nil, errs.Wrap(err, "encode predict request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(err, "build predict request")
	}
	req.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.WrapWarn(ctx.Err(), "predict canceled")
		}
		return nil, errs.Wrap(err, "predictor unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.Fatalf("predictor status %d", resp.StatusCode)
	}
	var out remoteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, remoteMaxBody)).Decode(&out); err != nil {
		return nil, errs.Wrap(err, "decode predict response")
	}
	v := grid.SafetyVector(out.Safety)
	if err := ValidateVector(v, p.TileCount); err != nil {
		return nil, errs.Fatalf("predictor %s returned invalid vector: %v", p.URL, err)
	}
	return v, nil
}
