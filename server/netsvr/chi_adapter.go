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
package netsvr

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
)

const DefaultAddr string = ":5808"

// Timeouts http.Server 的逾時設定。Write 需大於 handler 內估算的 ReqTimeout。
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

var DefaultTimeouts = Timeouts{
	Read:  10 * time.Second,
	Write: 65 * time.Second,
	Idle:  120 * time.Second,
}

// ChiAdapter 以 chi 實作 NetSvr；handler 與 middleware 都是標準 net/http 介面。
type ChiAdapter struct {
	router chi.Router
	server *http.Server
	addr   string
}

// NewChiServer addr 為空時使用 DefaultAddr。
func NewChiServer(addr string) *ChiAdapter {
	return NewChiServerWith(addr, DefaultTimeouts)
}

// NewChiServerWith 自訂逾時；為 0 的欄位沿用 DefaultTimeouts。
func NewChiServerWith(addr string, to Timeouts) *ChiAdapter {
	if addr == "" {
		addr = DefaultAddr
	}
	if to.Read <= 0 {
		to.Read = DefaultTimeouts.Read
	}
	if to.Write <= 0 {
		to.Write = DefaultTimeouts.Write
	}
	if to.Idle <= 0 {
		to.Idle = DefaultTimeouts.Idle
	}
	cr := chi.NewRouter()
	// "/v1/verify/" 與 "//v1/verify" 視同 "/v1/verify"
	cr.Use(chimid.CleanPath, chimid.StripSlashes)
	return &ChiAdapter{
		router: cr,
		server: &http.Server{
			Addr:              addr,
			Handler:           cr,
			ReadTimeout:       to.Read,
			ReadHeaderTimeout: to.Read,
			WriteTimeout:      to.Write,
			IdleTimeout:       to.Idle,
		},
		addr: addr,
	}
}

func (c *ChiAdapter) Ready() bool {
	return (c != nil) && (c.router != nil) && (c.server != nil) &&
		(c.addr != "") && strings.Contains(c.addr, ":") &&
		(c.server.Handler != nil) && (c.server.Handler == c.router)
}

// ============================================================
// ** app.Component **
// ============================================================

func (c *ChiAdapter) Run() error {
	err := c.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (c *ChiAdapter) Shutdown(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}

// ============================================================
// ** NetRouter **
// ============================================================

func (c *ChiAdapter) Use(mw func(http.Handler) http.Handler) {
	c.router.Use(mw)
}

func (c *ChiAdapter) Get(path string, h http.HandlerFunc) {
	c.router.Get(path, h)
}

func (c *ChiAdapter) Post(path string, h http.HandlerFunc) {
	c.router.Post(path, h)
}

func (c *ChiAdapter) Group(path string, fn func(subRouter NetRouter)) {
	c.router.Route(path, func(r chi.Router) {
		fn(&ChiAdapter{router: r})
	})
}

func (c *ChiAdapter) NotFound(h http.HandlerFunc) {
	c.router.NotFound(h)
}

func (c *ChiAdapter) MethodNotAllowed(h http.HandlerFunc) {
	c.router.MethodNotAllowed(h)
}

func (c *ChiAdapter) Address() string {
	return c.addr
}

// Handler 已註冊路由的 http.Handler（httptest 直接掛載）。
func (c *ChiAdapter) Handler() http.Handler {
	return c.router
}
