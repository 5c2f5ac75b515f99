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
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultConfidence 未指定信心水準時使用。
const DefaultConfidence = 0.95

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo" yaml:"lo"`
	Hi float64 `json:"Hi" yaml:"hi"`
}

// ProportionCI Clopper–Pearson exact CI for binomial proportion (k successes out of n)
//
// confidence 不在 (0,1) 時改用 DefaultConfidence。
func ProportionCI(k int, n int, confidence float64) (pHat float64, ci CI) {
	if confidence <= 0 || confidence >= 1 {
		confidence = DefaultConfidence
	}
	return proportionCICP(k, n, confidence)
}

func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// stdErr 二項比例的標準誤 sqrt(p(1-p)/n)
func stdErr(p float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	v := p * (1 - p) / float64(n)
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}
