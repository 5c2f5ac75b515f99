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

package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/zintix-labs/minelab"
	"github.com/zintix-labs/minelab/dto"
	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/estimate"
	"github.com/zintix-labs/minelab/grid"
	"github.com/zintix-labs/minelab/setting"
	"github.com/zintix-labs/minelab/stats"
)

// Estimate POST /v1/estimate
//
// 以 ReqTimeout 包住 ctx；逾時回 504，client 斷線回 408。
// 指定 seed 時改用獨立 Estimator，結果可重現且不佔用池。
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.EstimateRequest](r)
	if err != nil {
		h.fail(w, "estimate decode", err)
		return
	}
	prof, err := h.lab.Profile(req.Profile)
	if err != nil {
		h.fail(w, "estimate", err)
		return
	}
	var sampling *estimate.Sampling
	if req.Sampling != "" {
		s, err := estimate.ParseSampling(req.Sampling)
		if err != nil {
			h.fail(w, "estimate", err)
			return
		}
		sampling = &s
	}
	er, err := minelab.NewRequest(prof, req.MineCount, req.Revealed, req.Trials, sampling)
	if err != nil {
		h.fail(w, "estimate", err)
		return
	}
	workers := workersFor(prof, req.Workers)

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.ReqTimeout)
	defer cancel()

	var (
		rep  *stats.SafetyReport
		used time.Duration
	)
	if req.Seed != nil {
		var est *minelab.Estimator
		if est, err = h.lab.NewEstimatorWithSeed(prof.Name, *req.Seed); err != nil {
			h.fail(w, "estimate", err)
			return
		}
		rep, used, err = est.EstimateMP(ctx, er, workers, false)
	} else {
		rep, used, err = h.rt.Estimate(ctx, prof.Name, er, workers)
	}
	if err != nil {
		h.fail(w, "estimate", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewEstimateResult(rep, min(workers, er.Trials), used, req.Seed))
}

// Predict POST /v1/predict
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.PredictRequest](r)
	if err != nil {
		h.fail(w, "predict decode", err)
		return
	}
	prof, err := h.lab.Profile(req.Profile)
	if err != nil {
		h.fail(w, "predict", err)
		return
	}
	tc := prof.Grid().TileCount()
	rs, err := grid.NewRevealedSet(tc, req.Revealed)
	if err != nil {
		h.fail(w, "predict", err)
		return
	}
	method := req.Method
	if method == "" {
		method = h.cfg.DefaultMethod
	}
	p, err := h.predictor(method, prof, req.MineCount)
	if err != nil {
		h.fail(w, "predict", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.ReqTimeout)
	defer cancel()

	v, err := p.Predict(ctx, rs.Bitmap())
	if err != nil {
		h.fail(w, "predict", err)
		return
	}
	if err := minelab.ValidateVector(v, tc); err != nil {
		h.fail(w, "predict", errs.Fatalf("predictor %s output: %v", method, err))
		return
	}
	writeJSON(w, http.StatusOK, dto.PredictResult{Profile: prof.Name, Method: method, Safety: v})
}

func (h *Handler) predictor(method string, prof *setting.Profile, mineCount int) (minelab.Predictor, error) {
	switch method {
	case "montecarlo":
		return &minelab.MonteCarloPredictor{
			Runtime:   h.rt,
			Profile:   prof.Name,
			MineCount: mineCount,
			Workers:   workersFor(prof, 0),
		}, nil
	case "exact":
		return &minelab.ExactPredictor{Profile: prof, MineCount: mineCount}, nil
	case "remote":
		if h.cfg.Remote == nil {
			return nil, errs.NewWarn("remote predictor not configured")
		}
		if rp, ok := h.cfg.Remote.(*minelab.RemotePredictor); ok && rp.TileCount != prof.Grid().TileCount() {
			return nil, errs.Warnf("remote predictor serves %d tiles, profile %q has %d", rp.TileCount, prof.Name, prof.Grid().TileCount())
		}
		return h.cfg.Remote, nil
	}
	return nil, errs.Warnf("unknown predict method %q", method)
}

func workersFor(prof *setting.Profile, n int) int {
	if n > 0 {
		return n
	}
	return max(1, prof.Workers)
}
