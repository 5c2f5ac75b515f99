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
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/zintix-labs/minelab"
	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/ledger"
	"github.com/zintix-labs/minelab/server/httperr"
	"github.com/zintix-labs/minelab/server/svrcfg"
)

// ============================================================
// ** Handler **
// ============================================================

// Handler v1 API 的所有 endpoint，共用同一個 Runtime 與 round store。
type Handler struct {
	cfg   *svrcfg.SvrCfg
	lab   *minelab.Minelab
	rt    *minelab.Runtime
	store ledger.Store
	log   *slog.Logger
	now   func() time.Time
}

// NewHandler 建立 runtime（每個 profile 一個 estimator 池）。sCfg 需先通過 Vaild()。
func NewHandler(sCfg *svrcfg.SvrCfg) (*Handler, error) {
	if sCfg == nil || sCfg.Lab == nil {
		return nil, errs.NewFatal("server config with minelab is required")
	}
	rt, err := sCfg.Lab.BuildRuntime(sCfg.PoolSize)
	if err != nil {
		return nil, errs.Wrap(err, "build v1 handler error")
	}
	return &Handler{
		cfg:   sCfg,
		lab:   sCfg.Lab,
		rt:    rt,
		store: sCfg.Store,
		log:   sCfg.Log,
		now:   time.Now,
	}, nil
}

// Runtime 供 server 關閉時釋放池。
func (h *Handler) Runtime() *minelab.Runtime {
	return h.rt
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	httperr.Log(h.log, msg, err)
	httperr.Errs(w, err)
}

// writeJSON 先寫入記憶體再送出：保證不會寫到一半才 encode 失敗。
func writeJSON(w http.ResponseWriter, status int, v any) {
	var b bytes.Buffer
	if err := json.NewEncoder(&b).Encode(v); err != nil {
		httperr.Errs(w, errs.Wrap(err, "encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b.Bytes())
}
