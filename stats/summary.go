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
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// 信賴區間
type CI struct {
	Lo float64 `json:"lo" yaml:"lo"`
	Hi float64 `json:"hi" yaml:"hi"`
}

// Summary 一組重複量測的摘要
type Summary struct {
	N        int     `json:"n" yaml:"n"`
	Mean     float64 `json:"mean" yaml:"mean"`
	Std      float64 `json:"std" yaml:"std"`
	Median   float64 `json:"median" yaml:"median"`
	MedianCI CI      `json:"median_ci" yaml:"median_ci"` // 95%
	Min      float64 `json:"min" yaml:"min"`
	Max      float64 `json:"max" yaml:"max"`
}

// Summarize 計算平均、樣本標準差、中位數與其 95% 信賴區間。
//
// 少於兩筆時標準差為 0。
func Summarize(data []float64) Summary {
	n := len(data)
	if n == 0 {
		return Summary{}
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)

	s := Summary{N: n, Min: cp[0], Max: cp[n-1]}
	if n == 1 {
		s.Mean = cp[0]
		s.Median = cp[0]
		s.MedianCI = CI{Lo: cp[0], Hi: cp[0]}
		return s
	}
	s.Mean, s.Std = stat.MeanStdDev(cp, nil)
	s.Median = quantilePoint(cp, 0.5)
	s.MedianCI.Lo, s.MedianCI.Hi = quantileCI(cp, 0.5, 0.95)
	return s
}

// quantileCI 以順序統計量的 Clopper-Pearson 反推分位數的信賴區間，sorted 須已排序。
func quantileCI(sorted []float64, q, confidence float64) (float64, float64) {
	n := len(sorted)
	alpha := 1 - confidence
	k := int(q * float64(n))
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := clampIdx(int(pLo*float64(n)), n)
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui--
	}
	return sorted[li], sorted[clampIdx(ui, n)]
}

// quantilePoint 最近秩法，sorted 須已排序。
func quantilePoint(sorted []float64, q float64) float64 {
	n := len(sorted)
	return sorted[clampIdx(int(q*float64(n)), n)]
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
