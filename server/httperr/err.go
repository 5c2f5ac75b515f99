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

package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/minelab/catalog"
	"github.com/zintix-labs/minelab/dto"
	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/ledger"
)

// 路由層錯誤：未命中路徑或方法不符。
var (
	ErrRouteNotFound    = errs.NewWarn("route not found")
	ErrMethodNotAllowed = errs.NewWarn("method not allowed")
)

// StatusCode 將錯誤映射成 HTTP status code。
//
// 規則（邊界層最小映射、可預期）：
//   - ctx timeout/cancel          → 504/408（請求生命週期問題）
//   - profile / round / 路由不存在  → 404
//   - 方法不符                     → 405
//   - round 已揭露仍要推進 nonce    → 409
//   - errs.Warn                   → 400（請求/參數問題，含 InvalidInput、InsufficientEntropy）
//   - errs.Fatal                  → 500（系統/不可恢復問題）
//
// 本函數屬於 HTTP 邊界層，因此放在 server/*（而不是 core errs）。
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, catalog.ErrNotFound), errors.Is(err, ErrRouteNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ledger.ErrSealed):
		return http.StatusConflict
	}

	if e, ok := errs.AsErr(err); ok {
		switch e.ErrLv {
		case errs.Warn:
			return http.StatusBadRequest
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// Errs 寫回 JSON 錯誤：{"error":"...","level":"warn"}。
func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	status := StatusCode(err)
	body := dto.ErrorResult{Error: err.Error()}
	if e, ok := errs.AsErr(err); ok {
		body.Level = errs.ErrLv(e.ErrLv)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// NotFound / MethodNotAllowed 讓路由未命中時也回 JSON 錯誤。
func NotFound(w http.ResponseWriter, r *http.Request) {
	Errs(w, errs.WrapWarn(ErrRouteNotFound, r.Method+" "+r.URL.Path))
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Errs(w, errs.WrapWarn(ErrMethodNotAllowed, r.Method+" "+r.URL.Path))
}

// Log 只記錄值得注意的錯誤：408/409/429 記 Warn，5xx 記 Error；一般 4xx 交給 access log。
func Log(log *slog.Logger, msg string, err error) {
	if err == nil || log == nil {
		return
	}
	status := StatusCode(err)
	if (status == 408) || (status == 409) || (status == 429) {
		log.Warn(msg, slog.Int("status", status), slog.Any("err", err))
	} else if (status >= 500) && (status < 600) {
		log.Error(msg, slog.Int("status", status), slog.Any("err", err))
	}
}
