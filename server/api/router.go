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

package api

import (
	"log/slog"

	v1 "github.com/zintix-labs/minelab/server/api/v1"
	"github.com/zintix-labs/minelab/server/httperr"
	"github.com/zintix-labs/minelab/server/netsvr"
	"github.com/zintix-labs/minelab/server/netsvr/middleware"
	"github.com/zintix-labs/minelab/server/svrcfg"
)

// RegisterRoutes 註冊全部路由，回傳 v1 handler 供呼叫端在關閉時釋放 runtime。
// sCfg 需先通過 Vaild()。
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) (*v1.Handler, error) {
	h, err := v1.NewHandler(sCfg)
	if err != nil {
		return nil, err
	}
	registerMiddleware(svr, sCfg.Log) // 1. 註冊 middleware
	registerFallback(svr)             // 2. 404/405 JSON，需在子路由建立前設定
	registerIndex(svr, sCfg)          // 3. 註冊主頁
	registerV1API(svr, h)             // 4. 註冊 v1 api
	return h, nil
}

// 註冊 middleware：RequestID 必須在 AccessLog 之前；
// Recover 在 Compression 之內，panic 的 500 回應經由同一個壓縮串流寫出。
func registerMiddleware(svr netsvr.NetSvr, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Compression)
	svr.Use(middleware.Recover(log))
}

func registerFallback(svr netsvr.NetSvr) {
	svr.NotFound(httperr.NotFound)
	svr.MethodNotAllowed(httperr.MethodNotAllowed)
}

// 註冊主頁
func registerIndex(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) {
	svr.Get("/", indexHandler(sCfg.Lab.Names()))
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetSvr, h *v1.Handler) {
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/profiles", h.Profiles)
		vOne.Get("/schema", h.Schema)
		vOne.Get("/metrics", h.Metrics)
		vOne.Get("/rounds", h.GetRound)

		vOne.Post("/verify", h.Verify)
		vOne.Post("/estimate", h.Estimate)
		vOne.Post("/predict", h.Predict)
		vOne.Post("/rounds", h.CreateRound)
		vOne.Post("/rounds/next", h.NextRound)
		vOne.Post("/rounds/reveal", h.RevealRound)
	})
}
