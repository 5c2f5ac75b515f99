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

package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// accessWriter 記下狀態碼與回應大小；未呼叫 WriteHeader 視為 200。
type accessWriter struct {
	http.ResponseWriter
	status int
	size   int
	sent   bool
}

func (a *accessWriter) WriteHeader(code int) {
	if !a.sent {
		a.status, a.sent = code, true
	}
	a.ResponseWriter.WriteHeader(code)
}

func (a *accessWriter) Write(b []byte) (int, error) {
	a.sent = true
	n, err := a.ResponseWriter.Write(b)
	a.size += n
	return n, err
}

func (a *accessWriter) Flush() {
	if f, ok := a.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap 供 http.ResponseController 找到底層 writer。
func (a *accessWriter) Unwrap() http.ResponseWriter { return a.ResponseWriter }

// AccessLog 每個請求一筆 "http.access"。
//
// route 取 chi 的路由樣板（未命中時為空），方便依端點彙總；path 保留實際路徑。
func AccessLog(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			aw := &accessWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(aw, r)

			attrs := []slog.Attr{
				slog.String("req_id", GetReqId(r)),
				slog.Int("status", aw.status),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			}
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					attrs = append(attrs, slog.String("route", p))
				}
			}
			attrs = append(attrs,
				slog.String("remote", r.RemoteAddr),
				slog.Int("bytes", aw.size),
				slog.Duration("latency", time.Since(start)),
			)
			log.LogAttrs(r.Context(), accessLevel(aw.status), "http.access", attrs...)
		})
	}
}

// 404 多半是掃描流量，記 Info 避免淹沒 Warn。
func accessLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status == http.StatusNotFound:
		return slog.LevelInfo
	case status >= 400:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
