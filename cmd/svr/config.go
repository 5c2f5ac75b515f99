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
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/zintix-labs/minelab"
	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/ledger"
	"github.com/zintix-labs/minelab/profiles"
	"github.com/zintix-labs/minelab/sdk/core"
	"github.com/zintix-labs/minelab/server/logger"
	"github.com/zintix-labs/minelab/server/netsvr"
	"github.com/zintix-labs/minelab/server/svrcfg"
)

// config 來源優先序：旗標 > 環境變數 > .env > 預設值。
type config struct {
	Addr       string        `env:"ADDR" envDefault:":5808"`
	LogMode    string        `env:"LOG_MODE" envDefault:"dev"`
	LogLevel   string        `env:"LOG_LEVEL"`
	PoolSize   int           `env:"POOL_SIZE" envDefault:"3"`
	ReqTimeout time.Duration `env:"REQ_TIMEOUT" envDefault:"30s"`
	ProfileDir string        `env:"PROFILE_DIR"`

	RedisAddr string        `env:"REDIS_ADDR"`
	RedisDB   int           `env:"REDIS_DB" envDefault:"0"`
	RoundTTL  time.Duration `env:"ROUND_TTL" envDefault:"168h"`

	PredictMethod    string        `env:"PREDICT_METHOD"`
	PredictorURL     string        `env:"PREDICTOR_URL"`
	PredictorTiles   int           `env:"PREDICTOR_TILES" envDefault:"25"`
	PredictorTimeout time.Duration `env:"PREDICTOR_TIMEOUT" envDefault:"5s"`
}

const envPrefix = "MINELAB_"

// loadDotEnv 載入 .env；檔案不存在不算錯誤，已存在的環境變數不會被覆寫。
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errs.Wrap(err, "load "+path)
	}
	return nil
}

// parseConfig environ 為 nil 時讀取行程環境變數。
func parseConfig(args []string, environ map[string]string) (*config, error) {
	cfg := new(config)
	opts := env.Options{Prefix: envPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, errs.Wrap(err, "parse env")
	}

	fset := flag.NewFlagSet("svr", flag.ContinueOnError)
	fset.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fset.StringVar(&cfg.LogMode, "log-mode", cfg.LogMode, "log mode: dev|prod|silence")
	fset.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug|info|warn|error")
	fset.IntVar(&cfg.PoolSize, "pool", cfg.PoolSize, "estimators per profile")
	fset.StringVar(&cfg.ProfileDir, "profiles", cfg.ProfileDir, "extra profile directory")
	fset.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "redis address for rounds (empty: in-memory)")
	fset.StringVar(&cfg.PredictorURL, "predictor", cfg.PredictorURL, "remote predictor url")
	fset.StringVar(&cfg.PredictMethod, "method", cfg.PredictMethod, "default predict method: montecarlo|exact|remote")
	if err := fset.Parse(args); err != nil {
		return nil, errs.WrapWarn(err, "parse flags")
	}
	return cfg, nil
}

// build 組出 SvrCfg；回傳的 cleanup 在 server 結束後呼叫（flush log）。
func (c *config) build(ctx context.Context) (*svrcfg.SvrCfg, *netsvr.ChiAdapter, func(), error) {
	mode, err := logger.ParseLogMode(c.LogMode)
	if err != nil {
		return nil, nil, nil, err
	}
	log, ah, err := logger.New(logger.Config{Mode: mode, Level: c.LogLevel, Buffer: 4096, Service: "minelab"})
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() { ah.Close() }

	srcs := []fs.FS{profiles.FS}
	if c.ProfileDir != "" {
		srcs = append(srcs, os.DirFS(c.ProfileDir))
	}
	lab, err := minelab.New(core.Default(), srcs...)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	sCfg := &svrcfg.SvrCfg{
		Log:           log,
		PoolSize:      c.PoolSize,
		Lab:           lab,
		DefaultMethod: c.PredictMethod,
		ReqTimeout:    c.ReqTimeout,
	}

	if c.RedisAddr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{c.RedisAddr},
			DB:    c.RedisDB,
		})
		store := ledger.NewRedisStore(client, c.RoundTTL)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := store.Ping(pctx); err != nil {
			_ = store.Close()
			cleanup()
			return nil, nil, nil, err
		}
		sCfg.Store = store
		log.Info("[minelab] rounds stored in redis", slog.String("addr", c.RedisAddr), slog.Int("db", c.RedisDB))
	} else {
		sCfg.Store = ledger.NewMemoryStore(c.RoundTTL)
	}

	if c.PredictorURL != "" {
		sCfg.Remote = minelab.NewRemotePredictor(c.PredictorURL, c.PredictorTiles, c.PredictorTimeout)
	}
	return sCfg, netsvr.NewChiServer(c.Addr), cleanup, nil
}
