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

package svrcfg

import (
	"log/slog"
	"time"

	"github.com/zintix-labs/minelab"
	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/ledger"
	"github.com/zintix-labs/minelab/server/logger"
)

const (
	MaxPoolSize       = 16
	DefaultReqTimeout = 30 * time.Second
)

// SvrCfg server 所需的全部依賴，由最外層（cmd/svr）明確注入。
type SvrCfg struct {
	Log      *slog.Logger
	PoolSize int // 每個 profile 的 estimator 池大小
	Lab      *minelab.Minelab
	Store    ledger.Store // nil 時使用 MemoryStore

	// Remote 外部模型服務；nil 時 method=remote 回 400
	Remote        minelab.Predictor
	DefaultMethod string        // predict 預設方法：montecarlo / exact / remote
	ReqTimeout    time.Duration // 估算類請求的逾時
}

func (sc *SvrCfg) Vaild() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		// 保持安靜、合法
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}

	// 1 <= PoolSize <= MaxPoolSize，for 資源管理
	sc.PoolSize = max(1, sc.PoolSize)
	sc.PoolSize = min(MaxPoolSize, sc.PoolSize)
	if sc.Lab == nil {
		return errs.NewFatal("minelab is required")
	}
	if sc.Store == nil {
		sc.Store = ledger.NewMemoryStore(ledger.DefaultRoundTTL)
	}
	switch sc.DefaultMethod {
	case "":
		sc.DefaultMethod = "montecarlo"
	case "montecarlo", "exact":
	case "remote":
		if sc.Remote == nil {
			return errs.NewFatal("default predict method is remote but no remote predictor configured")
		}
	default:
		return errs.Fatalf("unknown predict method %q", sc.DefaultMethod)
	}
	if sc.ReqTimeout <= 0 {
		sc.ReqTimeout = DefaultReqTimeout
	}
	return nil
}
