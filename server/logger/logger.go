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

// Package logger 組裝 server 用的 slog.Logger：依模式選擇 text/JSON 輸出，可再包一層非阻塞的 AsyncHandler。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/zintix-labs/minelab/errs"
)

type LogMode uint8

const (
	ModeDev     LogMode = iota // text → stderr，debug 以上
	ModeProd                   // JSON → stdout，info 以上
	ModeSilence                // 全部丟棄
)

var logModeNames = map[LogMode]string{
	ModeDev:     "dev",
	ModeProd:    "prod",
	ModeSilence: "silence",
}

func (m LogMode) String() string {
	if s, ok := logModeNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseLogMode 解析環境變數/旗標（不分大小寫）；空字串視為 dev。
func ParseLogMode(s string) (LogMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeDev, nil
	}
	for m, name := range logModeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeDev, errs.Warnf("unknown log mode %q (dev|prod|silence)", s)
}

// ParseLevel debug|info|warn|error；空字串回傳 ok=false，交給模式預設。
func ParseLevel(s string) (slog.Level, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(s)); err != nil {
		return 0, false, errs.Warnf("unknown log level %q", s)
	}
	return lv, true, nil
}

// Config server 日誌設定。
type Config struct {
	Mode    LogMode
	Level   string    // 覆寫模式預設等級
	Buffer  int       // > 0 時使用 AsyncHandler
	Service string    // 非空時每筆附 service 欄位
	Out     io.Writer // nil 時依模式使用 stderr/stdout
}

// New 依 Config 建立 logger；Buffer > 0 時一併回傳 AsyncHandler 供關閉時 drain。
func New(cfg Config) (*slog.Logger, *AsyncHandler, error) {
	lv, set, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	h := buildHandler(cfg.Mode, cfg.Out, lv, set)
	if cfg.Service != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	}
	var ah *AsyncHandler
	if cfg.Buffer > 0 {
		ah = NewAsyncHandler(h, cfg.Buffer)
		h = ah
	}
	return slog.New(h), ah, nil
}

// NewDefaultLogger 同步 logger，模式預設值。
func NewDefaultLogger(mode LogMode) *slog.Logger {
	return slog.New(buildHandler(mode, nil, 0, false))
}

// NewAsync 模式預設值 + AsyncHandler。
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(buildHandler(mode, nil, 0, false), buf)
	return slog.New(ah), ah
}

func buildHandler(mode LogMode, out io.Writer, lv slog.Level, lvSet bool) slog.Handler {
	switch mode {
	case ModeSilence:
		return slog.NewTextHandler(io.Discard, nil)
	case ModeProd:
		if out == nil {
			out = os.Stdout
		}
		if !lvSet {
			lv = slog.LevelInfo
		}
		return slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lv})
	default:
		if out == nil {
			out = os.Stderr
		}
		if !lvSet {
			lv = slog.LevelDebug
		}
		return slog.NewTextHandler(out, &slog.HandlerOptions{Level: lv})
	}
}
