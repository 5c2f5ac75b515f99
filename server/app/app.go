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

// Package app 管理長期運行元件的啟動與關閉（HTTP server、估算池、round store 連線）。
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// DefaultGrace 優雅關閉的預設期限。
const DefaultGrace = 5 * time.Second

// App 啟動所有 Component；收到 SIGINT/SIGTERM 或任一 Component 的 Run 返回時，依註冊順序關閉全部。
type App struct {
	comps []Component
	grace time.Duration
	log   *slog.Logger
	sig   <-chan os.Signal // 測試可注入
}

func New() *App { return &App{grace: DefaultGrace} }

// NewWith 建立並註冊多個 Component。
func NewWith(comps ...Component) *App {
	app := New()
	for _, c := range comps {
		app.Register(c)
	}
	return app
}

func (a *App) Register(c Component) {
	a.comps = append(a.comps, c)
}

// WithGrace 設定關閉期限；<= 0 時維持預設。
func (a *App) WithGrace(d time.Duration) *App {
	if d > 0 {
		a.grace = d
	}
	return a
}

// WithLogger 關閉錯誤寫入 log；未設定時丟棄。
func (a *App) WithLogger(log *slog.Logger) *App {
	a.log = log
	return a
}

// Run 阻塞直到收到終止信號（回傳 nil）或任一 Component 的 Run 返回（回傳其錯誤）。
func (a *App) Run() error {
	errCh := make(chan error, len(a.comps))
	for _, c := range a.comps {
		go func(c Component) {
			errCh <- c.Run()
		}(c)
	}

	quit := a.sig
	if quit == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(ch)
		quit = ch
	}

	select {
	case <-quit:
		a.gracefulShutdown()
		return nil
	case err := <-errCh:
		a.gracefulShutdown()
		return err
	}
}

// gracefulShutdown 依序呼叫 Shutdown，全部共用同一個期限。
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.grace)
	defer cancel()
	for _, c := range a.comps {
		if err := c.Shutdown(ctx); err != nil && a.log != nil {
			a.log.Warn("shutdown error", slog.Any("err", err))
		}
	}
}
