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
// Command svr 啟動 minelab HTTP server。
//
//	MINELAB_ADDR=:5808 MINELAB_REDIS_ADDR=localhost:6379 go run ./cmd/svr -log-mode prod
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/zintix-labs/minelab/server"
)

func main() {
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := parseConfig(os.Args[1:], nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	sCfg, svr, cleanup, err := cfg.build(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()
	sCfg.Log.Info("[minelab] listening on http://localhost" + svr.Address())
	server.RunWithSvr(sCfg, svr)
}
