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
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/zintix-labs/minelab"
	"github.com/zintix-labs/minelab/dto"
	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/estimate"
	"github.com/zintix-labs/minelab/fair"
	"github.com/zintix-labs/minelab/grid"
	"github.com/zintix-labs/minelab/profiles"
	"github.com/zintix-labs/minelab/sdk/core"
	"github.com/zintix-labs/minelab/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type command struct {
	summary string
	run     func(args []string, out io.Writer) error
}

var commands = map[string]command{
	"verify":   {"derive mine positions from seeds and check a commitment", runVerify},
	"estimate": {"monte carlo safety estimate with progress bar", runEstimate},
	"exact":    {"closed-form safety vector", runExact},
	"commit":   {"commitment (sha256) of a server seed; generates one if empty", runCommit},
	"seed":     {"new random server seed and client seed", runSeed},
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

const (
	green = "\033[1;32m"
	reset = "\033[0m"
)

func newLab() (*minelab.Minelab, error) {
	return minelab.New(core.Default(), profiles.FS)
}

// intList "0,1, 7" → [0 1 7]
type intList []int

func (l *intList) String() string {
	s := make([]string, len(*l))
	for i, v := range *l {
		s[i] = strconv.Itoa(v)
	}
	return strings.Join(s, ",")
}

func (l *intList) Set(v string) error {
	*l = (*l)[:0]
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return errs.InvalidInputf("index %q: %v", part, err)
		}
		*l = append(*l, n)
	}
	return nil
}

// nonceFlag 與 HTTP 相同的十進位規則（允許前導零、拒絕負數）。
type nonceFlag struct{ p *uint64 }

func (f nonceFlag) String() string {
	if f.p == nil {
		return "0"
	}
	return strconv.FormatUint(*f.p, 10)
}

func (f nonceFlag) Set(s string) error {
	v, err := fair.ParseNonce(s)
	if err != nil {
		return err
	}
	*f.p = v
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	fset := flag.NewFlagSet(name, flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	return fset
}

func parse(fset *flag.FlagSet, args []string) error {
	if err := fset.Parse(args); err != nil {
		return errs.InvalidInputf("%s: %v", fset.Name(), err)
	}
	return nil
}

// ============================================================
// ** verify **
// ============================================================

func runVerify(args []string, out io.Writer) error {
	var (
		in     minelab.VerifyInput
		imp    string
		asJSON bool
	)
	fset := newFlagSet("verify")
	fset.StringVar(&in.Profile, "profile", "poppy", "profile name")
	fset.StringVar(&in.ServerSeed, "server", "", "server seed")
	fset.StringVar(&in.ClientSeed, "client", "", "client seed")
	fset.Var(nonceFlag{&in.Nonce}, "nonce", "nonce (decimal)")
	fset.IntVar(&in.MineCount, "mines", 0, "mine count (0: profile default)")
	fset.IntVar(&in.Side, "side", 0, "board side (0: profile default)")
	fset.StringVar(&in.Commitment, "commit", "", "published commitment to check")
	fset.StringVar(&imp, "import", "", `seed json file: {"serverSeed","clientSeed","nonce"}`)
	fset.BoolVar(&asJSON, "json", false, "json output")
	if err := parse(fset, args); err != nil {
		return err
	}
	if imp != "" {
		raw, err := os.ReadFile(imp)
		if err != nil {
			return errs.Wrap(err, "read import file")
		}
		seeds, err := dto.ImportSeeds(raw)
		if err != nil {
			return err
		}
		seeds.Apply(&in.ServerSeed, &in.ClientSeed, &in.Nonce)
	}

	lab, err := newLab()
	if err != nil {
		return err
	}
	v, err := lab.Verify(in)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Fprintf(out, "%s[PROFILE:%s] [MODE:%s/%s] [SIDE:%d] [MINES:%d]%s\n", green, v.Profile, v.Mode, v.Hash, v.Side, v.MineCount, reset)
	fmt.Fprintf(out, "message    : %s\n", v.Message)
	fmt.Fprintf(out, "digest     : %s\n", v.Digest)
	fmt.Fprintf(out, "commitment : %s\n", v.Commitment)
	if v.CommitmentOK != nil {
		fmt.Fprintf(out, "commit ok  : %v\n", *v.CommitmentOK)
	}
	fmt.Fprintf(out, "mines      : %v\n", v.Mines)
	fmt.Fprint(out, v.Board)
	return nil
}

// ============================================================
// ** estimate / exact **
// ============================================================

type boardFlags struct {
	profile  string
	mines    int
	revealed intList
	sampling string
}

func (b *boardFlags) bind(fset *flag.FlagSet) {
	fset.StringVar(&b.profile, "profile", "poppy", "profile name")
	fset.IntVar(&b.mines, "mines", 0, "mine count (0: profile default)")
	fset.Var(&b.revealed, "revealed", "revealed tile indices, e.g. 0,1,7")
	fset.StringVar(&b.sampling, "sampling", "", "mask|condition (empty: profile default)")
}

func (b *boardFlags) request(lab *minelab.Minelab, trials int) (estimate.Request, error) {
	prof, err := lab.Profile(b.profile)
	if err != nil {
		return estimate.Request{}, err
	}
	var sp *estimate.Sampling
	if b.sampling != "" {
		s, err := estimate.ParseSampling(b.sampling)
		if err != nil {
			return estimate.Request{}, err
		}
		sp = &s
	}
	return minelab.NewRequest(prof, b.mines, b.revealed, trials, sp)
}

func runEstimate(args []string, out io.Writer) error {
	var (
		bf      boardFlags
		trials  int
		workers int
		seed    int64
		format  string
		quiet   bool
	)
	fset := newFlagSet("estimate")
	bf.bind(fset)
	fset.IntVar(&trials, "trials", 0, "trials (0: profile default)")
	fset.IntVar(&workers, "workers", 0, "workers (0: profile default)")
	fset.Int64Var(&seed, "seed", -1, "int64 seed (< 0: random)")
	fset.StringVar(&format, "format", "text", "text|json|yaml")
	fset.BoolVar(&quiet, "q", false, "hide progress bar")
	if err := parse(fset, args); err != nil {
		return err
	}
	var render stats.SafetyReportRender
	if format != "text" {
		if render = stats.RenderFor(format); render == nil {
			return errs.InvalidInputf("unknown format %q", format)
		}
	}

	lab, err := newLab()
	if err != nil {
		return err
	}
	req, err := bf.request(lab, trials)
	if err != nil {
		return err
	}
	var est *minelab.Estimator
	if seed >= 0 {
		est, err = lab.NewEstimatorWithSeed(bf.profile, seed)
	} else {
		est, err = lab.NewEstimator(bf.profile)
	}
	if err != nil {
		return err
	}
	if workers <= 0 {
		workers = max(1, est.Profile.Workers)
	}

	if render == nil {
		p := message.NewPrinter(language.English)
		p.Fprintf(out, "%s[WORKERS:%d] [PROFILE:%s] [MINES:%d] [TRIALS:%d] [SEED:%d]%s\n", green, workers, est.Profile.Name, req.MineCount, req.Trials, est.Seed(), reset)
	}
	ctx, stop := cmdContext()
	defer stop()
	rep, used, err := est.EstimateMP(ctx, req, workers, !quiet && render == nil)
	if err != nil {
		return err
	}
	if render != nil {
		return rep.WriteWith(out, render)
	}
	rep.Fprint(out, used)
	return nil
}

func runExact(args []string, out io.Writer) error {
	var bf boardFlags
	fset := newFlagSet("exact")
	bf.bind(fset)
	if err := parse(fset, args); err != nil {
		return err
	}
	lab, err := newLab()
	if err != nil {
		return err
	}
	req, err := bf.request(lab, 1)
	if err != nil {
		return err
	}
	v, err := estimate.Exact(req)
	if err != nil {
		return err
	}
	prof, _ := lab.Profile(bf.profile)
	p := message.NewPrinter(language.English)
	fmt.Fprintln(out, grid.Format(prof.Grid(), func(i int) string {
		if req.Revealed.Has(i) {
			return "-"
		}
		return p.Sprintf("%.2f%%", 100*v[i])
	}))
	return nil
}

// ============================================================
// ** commit / seed **
// ============================================================

func runCommit(args []string, out io.Writer) error {
	var server string
	fset := newFlagSet("commit")
	fset.StringVar(&server, "server", "", "server seed (empty: generate)")
	if err := parse(fset, args); err != nil {
		return err
	}
	if server == "" {
		s, err := fair.NewServerSeed()
		if err != nil {
			return err
		}
		server = s
		fmt.Fprintf(out, "server seed : %s\n", server)
	}
	fmt.Fprintf(out, "commitment  : %s\n", fair.Commit(server))
	return nil
}

func runSeed(args []string, out io.Writer) error {
	fset := newFlagSet("seed")
	if err := parse(fset, args); err != nil {
		return err
	}
	server, err := fair.NewServerSeed()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "server seed : %s\n", server)
	fmt.Fprintf(out, "commitment  : %s\n", fair.Commit(server))
	fmt.Fprintf(out, "client seed : %s\n", fair.NewClientSeed())
	return nil
}
