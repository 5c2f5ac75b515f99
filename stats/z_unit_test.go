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

package stats_test

import (
	"bytes"
	"encoding/json"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/zintix-labs/minelab/stats"
)

// buildReport 2x2 盤面、1 顆雷、揭露 index 3。
func buildReport() *stats.SafetyReport {
	rep := &stats.SafetyReport{
		Profile:    "tiny",
		TileCount:  4,
		MineCount:  1,
		Revealed:   []int{3},
		Sampling:   "mask",
		Trials:     1000,
		Confidence: 0.95,
		SafeHits:   []int{760, 740, 700, 999},
		Exact:      []float64{0.75, 0.75, 0.75, 0},
	}
	rep.Done()
	return rep
}

func TestSafetyReportDone(t *testing.T) {
	rep := buildReport()
	want := []float64{0.76, 0.74, 0.70, 0}
	for i, w := range want {
		if math.Abs(rep.Safety[i]-w) > 1e-12 {
			t.Fatalf("safety[%d] got %.6f want %.6f", i, rep.Safety[i], w)
		}
	}
	// 已揭露格固定為 0，即使計數被污染
	if rep.Safety[3] != 0 || rep.CI[3] != (stats.CI{}) || rep.StdErr[3] != 0 {
		t.Fatalf("revealed tile must stay zero: %v %v %v", rep.Safety[3], rep.CI[3], rep.StdErr[3])
	}
	for i := 0; i < 3; i++ {
		if rep.CI[i].Lo > rep.Safety[i] || rep.CI[i].Hi < rep.Safety[i] {
			t.Fatalf("ci[%d] %v does not cover %.3f", i, rep.CI[i], rep.Safety[i])
		}
	}
	wantSE := math.Sqrt(0.76 * 0.24 / 1000)
	if math.Abs(rep.StdErr[0]-wantSE) > 1e-12 {
		t.Fatalf("stderr got %.8f want %.8f", rep.StdErr[0], wantSE)
	}
	if math.Abs(rep.MaxDeviation-0.05) > 1e-12 {
		t.Fatalf("max deviation got %.6f", rep.MaxDeviation)
	}
	if math.Abs(rep.MeanSafety-(0.76+0.74+0.70)/4) > 1e-12 {
		t.Fatalf("mean got %.6f", rep.MeanSafety)
	}
	if !slices.Equal(rep.Safest, []int{0, 1, 2}) {
		t.Fatalf("safest = %v", rep.Safest)
	}

	rep.Done() // idempotent
	if rep.Safety[0] != 0.76 {
		t.Fatalf("safety changed after second Done")
	}
}

func TestProportionCIBounds(t *testing.T) {
	p, ci := stats.ProportionCI(0, 100, 0.95)
	if p != 0 || ci.Lo != 0 || ci.Hi <= 0 || ci.Hi >= 0.1 {
		t.Fatalf("k=0: %v %v", p, ci)
	}
	p, ci = stats.ProportionCI(100, 100, 0)
	if p != 1 || ci.Hi != 1 || ci.Lo >= 1 || ci.Lo < 0.9 {
		t.Fatalf("k=n: %v %v", p, ci)
	}
	_, ci = stats.ProportionCI(0, 0, 0.95)
	if ci != (stats.CI{Lo: 0, Hi: 1}) {
		t.Fatalf("n=0 should be [0,1], got %v", ci)
	}
	// 信心水準越高區間越寬
	_, c90 := stats.ProportionCI(500, 1000, 0.90)
	_, c99 := stats.ProportionCI(500, 1000, 0.99)
	if c99.Hi-c99.Lo <= c90.Hi-c90.Lo {
		t.Fatalf("99%% interval should be wider than 90%%")
	}
}

func TestSafetyReportRender(t *testing.T) {
	rep := buildReport()

	var jb bytes.Buffer
	if err := rep.WriteWith(&jb, stats.RenderFor("json")); err != nil {
		t.Fatalf("json render err: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(jb.Bytes(), &back); err != nil {
		t.Fatalf("json decode err: %v", err)
	}
	if back["Profile"] != "tiny" {
		t.Fatalf("json profile = %v", back["Profile"])
	}

	var yb bytes.Buffer
	if err := rep.WriteWith(&yb, stats.RenderFor("yaml")); err != nil {
		t.Fatalf("yaml render err: %v", err)
	}
	if !strings.Contains(yb.String(), "safe_hits: [760, 740, 700, 999]") {
		t.Fatalf("innermost list should be flow style:\n%s", yb.String())
	}
	if stats.RenderFor("xml") != nil {
		t.Fatalf("unknown render should be nil")
	}
}

func TestSafetyReportConsole(t *testing.T) {
	rep := buildReport()
	var b bytes.Buffer
	rep.Fprint(&b, 2*time.Second)
	out := b.String()
	for _, want := range []string{"used: 2.00 seconds", "tps : 500 trials/sec", "tiny", "Mean Safety", "Safest"} {
		if !strings.Contains(out, want) {
			t.Fatalf("console output missing %q:\n%s", want, out)
		}
	}
	hm := rep.Heatmap()
	if hm != "76.0% 74.0%\n70.0%     -\n" {
		t.Fatalf("heatmap =\n%q", hm)
	}
	rep2 := &stats.SafetyReport{TileCount: 3, SafeHits: []int{1, 1, 1}, Trials: 2}
	if rep2.Heatmap() != "" {
		t.Fatalf("non-square board should not render heatmap")
	}
}
