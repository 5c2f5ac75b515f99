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
// Package perf 以 runtime/pprof 包裝一次性執行（CLI 估算），輸出 cpu/heap/allocs 快照。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"slices"

	"github.com/zintix-labs/minelab/errs"
)

// DefaultDir pprof 檔案寫入路徑
const DefaultDir = "build/profiling"

// Modes 支援的模式；空字串代表不剖析。
var Modes = []string{"", "cpu", "heap", "allocs"}

// Run 依 mode 執行 exe 並寫出 <dir>/<mode>.pprof，回傳 exe 的錯誤（優先）或寫檔錯誤。
func Run(mode string, dir string, exe func() error) error {
	if !slices.Contains(Modes, mode) {
		return errs.Warnf("unknown pprof mode %q (cpu|heap|allocs)", mode)
	}
	if mode == "" {
		return exe()
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(err, "create pprof dir")
	}
	f, err := os.Create(filepath.Join(dir, mode+".pprof"))
	if err != nil {
		return errs.Wrap(err, "create pprof file")
	}
	defer f.Close()

	if mode == "cpu" {
		if err := pprof.StartCPUProfile(f); err != nil {
			return errs.Wrap(err, "start cpu profile")
		}
		err := exe()
		pprof.StopCPUProfile()
		return err
	}

	// heap/allocs：先執行再拍快照
	runErr := exe()
	var werr error
	if mode == "heap" {
		runtime.GC()
		werr = pprof.WriteHeapProfile(f)
	} else if prof := pprof.Lookup("allocs"); prof != nil {
		werr = prof.WriteTo(f, 0)
	}
	if runErr != nil {
		return runErr
	}
	if werr != nil {
		return errs.Wrap(werr, "write "+mode+" profile")
	}
	return nil
}
