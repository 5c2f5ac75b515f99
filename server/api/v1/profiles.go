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
	"net/http"

	"github.com/zintix-labs/minelab"
	"github.com/zintix-labs/minelab/dto"
	"github.com/zintix-labs/minelab/server/logger"
)

// Profiles GET /v1/profiles
func (h *Handler) Profiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.lab.Summary())
}

// Schema GET /v1/schema?name=verify；未帶 name 時列出可用名稱。
func (h *Handler) Schema(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSON(w, http.StatusOK, map[string][]string{"names": dto.SchemaNames()})
		return
	}
	b, err := dto.Schema(name)
	if err != nil {
		h.fail(w, "schema", err)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	_, _ = w.Write(b)
}

type metricsResult struct {
	Pools         []minelab.PoolMetrics `json:"pools"`
	RuntimeClosed bool                  `json:"runtime_closed"`
	LogDropped    uint64                `json:"log_dropped"`
}

// Metrics GET /v1/metrics：池快照與非同步 log 丟棄數。
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	res := metricsResult{
		Pools:         h.rt.Metrics(),
		RuntimeClosed: h.rt.Closed(),
	}
	if h.log != nil {
		if ah, ok := h.log.Handler().(*logger.AsyncHandler); ok {
			res.LogDropped = ah.Dropped()
		}
	}
	writeJSON(w, http.StatusOK, res)
}
