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

package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/server/api"
	"github.com/zintix-labs/minelab/server/app"
	"github.com/zintix-labs/minelab/server/netsvr"
	"github.com/zintix-labs/minelab/server/svrcfg"
)

// Run 是 server 套件的組裝器與啟動入口。
//
// 它負責：
//  1. 驗證 SvrCfg（含 logger、Minelab、round store 預設值）。
//  2. 建立預設 HTTP server（addr 為空時使用 netsvr.DefaultAddr）。
//  3. 註冊路由與 middleware。
//  4. 啟動 app.Run()，結束時關閉估算池與 round store。
//
// Run 不讀取檔案或環境變數；所有依賴都應透過 SvrCfg 注入。
func Run(sCfg *svrcfg.SvrCfg, addr string) {
	if err := sCfg.Vaild(); err != nil {
		// 防止外層傳入的logger不可用
		fmt.Fprintln(os.Stderr, err)
		return
	}
	svr := netsvr.NewChiServer(addr)
	sCfg.Log.Info("[minelab] listening on http://localhost" + svr.Address())
	run(sCfg, svr)
}

// RunWithSvr 與 Run 相同，但由呼叫端注入 NetSvr（自訂 listener、TLS、timeout 等）。
//
//   - svr 必須非 nil；ChiAdapter 需 Ready()。
//   - 這一層只負責註冊 routes 與啟動 app.Run()。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) {
	if err := sCfg.Vaild(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if svr == nil {
		sCfg.Log.Error(errs.NewFatal("svr is required").Error())
		return
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		sCfg.Log.Error(errs.NewFatal("default server is not ready").Error())
		return
	}
	sCfg.Log.Info("[minelab] listening", slog.String("addr", svr.Address()))
	run(sCfg, svr)
}

func run(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) {
	h, err := api.RegisterRoutes(svr, sCfg)
	if err != nil {
		sCfg.Log.Error("register routes failed", slog.Any("err", err))
		return
	}

	// server 先停止接收請求，再關閉池與 store
	a := app.NewWith(svr, app.OnShutdown(func(ctx context.Context) error {
		h.Runtime().Close()
		if c, ok := sCfg.Store.(io.Closer); ok {
			return c.Close()
		}
		return nil
	})).WithLogger(sCfg.Log)

	if err := a.Run(); err != nil {
		sCfg.Log.Error("app stopped:", slog.Any("err", err))
	}
}
