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

package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/minelab/grid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// SafestTop 報表列出的最安全格數上限
const SafestTop = 5

// SafetyReport 安全機率估算報告
//
// 紀錄時只累積 int 計數，Done() 一次性換算成機率、信賴區間與誤差。
type SafetyReport struct {
	Profile    string  `json:"Profile,omitempty" yaml:"profile,omitempty"`
	TileCount  int     `json:"TileCount" yaml:"tile_count"`
	MineCount  int     `json:"MineCount" yaml:"mine_count"`
	Revealed   []int   `json:"Revealed" yaml:"revealed"`
	Sampling   string  `json:"Sampling" yaml:"sampling"`
	Trials     int     `json:"Trials" yaml:"trials"`
	Confidence float64 `json:"Confidence" yaml:"confidence"`

	SafeHits []int     `json:"SafeHits" yaml:"safe_hits"`
	Safety   []float64 `json:"Safety" yaml:"safety"`
	CI       []CI      `json:"CI" yaml:"ci"`
	StdErr   []float64 `json:"StdErr" yaml:"std_err"`
	Exact    []float64 `json:"Exact,omitempty" yaml:"exact,omitempty"`

	MaxDeviation float64 `json:"MaxDeviation" yaml:"max_deviation"` // max |Safety - Exact|
	MeanSafety   float64 `json:"MeanSafety" yaml:"mean_safety"`
	Safest       []int   `json:"Safest" yaml:"safest"`

	isDone bool
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記，可重複呼叫。
func (s *SafetyReport) Done() {
	if s.isDone {
		return
	}
	n := len(s.SafeHits)
	s.Safety = make([]float64, n)
	s.CI = make([]CI, n)
	s.StdErr = make([]float64, n)
	revealed := make([]bool, n)
	for _, i := range s.Revealed {
		if i >= 0 && i < n {
			revealed[i] = true
		}
	}
	for i, k := range s.SafeHits {
		if revealed[i] {
			continue
		}
		p, ci := ProportionCI(k, s.Trials, s.Confidence)
		s.Safety[i] = p
		s.CI[i] = ci
		s.StdErr[i] = stdErr(p, s.Trials)
	}
	s.MeanSafety = grid.SafetyVector(s.Safety).Mean()
	s.MaxDeviation = maxDeviation(s.Safety, s.Exact)
	s.Safest = rankSafest(s.Safety, revealed, SafestTop)
	s.isDone = true
}

// Vector 回傳安全向量（會先確保 Done）。
func (s *SafetyReport) Vector() grid.SafetyVector {
	s.Done()
	return grid.SafetyVector(slices.Clone(s.Safety))
}

func (s *SafetyReport) WriteWith(w io.Writer, rep SafetyReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

// StdOut 輸出耗時、摘要表與盤面熱圖。
func (s *SafetyReport) StdOut(ut time.Duration) {
	s.Fprint(os.Stdout, ut)
}

func (s *SafetyReport) Fprint(w io.Writer, ut time.Duration) {
	s.Done()
	fmt.Fprint(w, formatDuration(ut, s.Trials))
	sk, sm := s.fmtBasic()
	fmt.Fprintln(w, fmtTable(s.title(), sk, sm))
	if hm := s.Heatmap(); hm != "" {
		fmt.Fprintln(w, hm)
	}
}

// Heatmap 以百分比顯示每格安全機率；已揭露格顯示為 "-"。
// TileCount 不是完全平方數時回傳空字串。
func (s *SafetyReport) Heatmap() string {
	side := isqrt(s.TileCount)
	if side == 0 || side*side != s.TileCount || len(s.Safety) != s.TileCount {
		return ""
	}
	revealed := make(map[int]bool, len(s.Revealed))
	for _, i := range s.Revealed {
		revealed[i] = true
	}
	p := message.NewPrinter(lang)
	return grid.Format(grid.Spec{Side: side}, func(i int) string {
		if revealed[i] {
			return "-"
		}
		return p.Sprintf("%.1f%%", 100*s.Safety[i])
	})
}

// ============================================================
// ** 內部方法 **
// ============================================================

func (s *SafetyReport) title() string {
	if s.Profile == "" {
		return "Safety Estimate"
	}
	return s.Profile
}

func (s *SafetyReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	conf := s.Confidence
	if conf <= 0 || conf >= 1 {
		conf = DefaultConfidence
	}
	safest := make([]string, len(s.Safest))
	for i, idx := range s.Safest {
		safest[i] = fmt.Sprintf("%d", idx)
	}
	basic := map[string]string{
		"Tiles":         p.Sprintf("%d", s.TileCount),
		"Mines":         p.Sprintf("%d", s.MineCount),
		"Revealed":      p.Sprintf("%d", len(s.Revealed)),
		"Sampling":      s.Sampling,
		"Trials":        p.Sprintf("%d", s.Trials),
		"Mean Safety":   p.Sprintf("%.4f %%", 100.0*s.MeanSafety),
		"Max Deviation": p.Sprintf("%.5f", s.MaxDeviation),
		"Confidence":    p.Sprintf("%.1f %%", 100.0*conf),
		"Safest":        strings.Join(safest, ","),
	}
	keys := []string{"Tiles", "Mines", "Revealed", "Sampling", "Trials", "Mean Safety", "Max Deviation", "Confidence", "Safest"}
	if len(s.Exact) == 0 {
		keys = slices.DeleteFunc(keys, func(k string) bool { return k == "Max Deviation" })
		delete(basic, "Max Deviation")
	}
	return keys, basic
}

func formatDuration(d time.Duration, trials int) string {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	tps := int(float64(trials) / sec)
	if sec < 60.0 {
		return p.Sprintf("used: %.2f seconds\ntps : %d trials/sec\n", sec, tps)
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		return p.Sprintf("used: %dm %ds\ntps : %d trials/sec\n", m, s, tps)
	}
	return p.Sprintf("used: %dh:%dm:%ds\ntps : %d trials/sec\n", h, m, s, tps)
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)
	if titleW > totalInner {
		maxValLen += titleW - totalInner
		totalInner = titleW
	}

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", totalInner) + "+\n"

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var sb strings.Builder
	sb.WriteString(top)
	sb.WriteString("|" + blank(left) + title + blank(right) + "|\n")
	sb.WriteString(divider)
	for _, k := range keys {
		v := msg[k]
		sb.WriteString("| " + k + blank(maxKeyLen-2-runewidth.StringWidth(k)) + " | " + v + blank(maxValLen-2-runewidth.StringWidth(v)) + " |\n")
	}
	sb.WriteString(divider)
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}

func maxDeviation(got, exact []float64) float64 {
	if len(exact) != len(got) {
		return 0
	}
	d := 0.0
	for i := range got {
		d = max(d, math.Abs(got[i]-exact[i]))
	}
	return d
}

// rankSafest 依安全機率遞減排序（同分取較小 index），略過已揭露格。
func rankSafest(safety []float64, revealed []bool, top int) []int {
	idx := make([]int, 0, len(safety))
	for i := range safety {
		if !revealed[i] {
			idx = append(idx, i)
		}
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case safety[a] > safety[b]:
			return -1
		case safety[a] < safety[b]:
			return 1
		default:
			return a - b
		}
	})
	if len(idx) > top {
		idx = idx[:top]
	}
	return idx
}

func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}
