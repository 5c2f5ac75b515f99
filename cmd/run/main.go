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
// Command run 是 minelab 的命令列工具。
//
//	run [-p cpu|heap|allocs] <verify|estimate|exact|commit|seed> [flags]
//
// 範例：
//
//	run verify -profile poppy -server abc -client xyz -nonce 1
//	run -p cpu estimate -profile blake -trials 10000000 -workers 8
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/zintix-labs/minelab/sdk/perf"
)

func main() {
	fset := flag.NewFlagSet("run", flag.ExitOnError)
	pmode := fset.String("p", "", "pprof: '', cpu, heap, allocs")
	pdir := fset.String("pdir", perf.DefaultDir, "pprof output dir")
	fset.Usage = func() { usage(fset) }
	_ = fset.Parse(os.Args[1:])

	args := fset.Args()
	if len(args) == 0 {
		usage(fset)
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage(fset)
		os.Exit(2)
	}
	err := perf.Run(*pmode, *pdir, func() error {
		return cmd.run(args[1:], os.Stdout)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage(fset *flag.FlagSet) {
	fmt.Fprintln(os.Stderr, "usage: run [-p mode] <command> [flags]")
	fset.PrintDefaults()
	fmt.Fprintln(os.Stderr, "commands:")
	for _, name := range commandNames() {
		fmt.Fprintf(os.Stderr, "  %-9s %s\n", name, commands[name].summary)
	}
}
