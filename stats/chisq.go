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

// Package stats 提供抽樣結果的分佈驗證與重複量測的摘要統計。
package stats

import (
	"github.com/zintix-labs/dynsampler/errs"
	"gonum.org/v1/gonum/stat/distuv"
)

// ChiSquareResult Pearson 卡方適合度檢定結果
type ChiSquareResult struct {
	Stat     float64 `json:"stat" yaml:"stat"`
	DoF      int     `json:"dof" yaml:"dof"`
	PValue   float64 `json:"p_value" yaml:"p_value"`
	Samples  uint64  `json:"samples" yaml:"samples"`
	ZeroHits uint64  `json:"zero_hits" yaml:"zero_hits"` // 落在權重 0 類別的樣本數，正確的抽樣器必為 0
}

// Counts 統計每個類別被抽中的次數，範圍外的值 (例如 -1) 忽略。
func Counts(samples []int, k int) []uint64 {
	out := make([]uint64, k)
	for _, s := range samples {
		if s >= 0 && s < k {
			out[s]++
		}
	}
	return out
}

// Frequencies 把次數轉成比例，總數為 0 時全部為 0。
func Frequencies(counts []uint64) []float64 {
	total := uint64(0)
	for _, c := range counts {
		total += c
	}
	out := make([]float64, len(counts))
	if total == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = float64(c) / float64(total)
	}
	return out
}

// ChiSquare 以 weights 為期望分佈，對 counts 做卡方適合度檢定。
//
// 自由度只計算權重為正的類別；權重為 0 的類別不進入統計量，
// 而是另外回報 ZeroHits。只有一個正權重類別時自由度為 0，p 值定為 1。
func ChiSquare(counts []uint64, weights []uint64) (ChiSquareResult, error) {
	res := ChiSquareResult{}
	if len(counts) != len(weights) {
		return res, errs.Coded(errs.Warn, errs.CodeInvalidArg, "chi-square: %d counts vs %d weights", len(counts), len(weights))
	}
	totalW := 0.0
	positive := 0
	for i, w := range weights {
		res.Samples += counts[i]
		if w == 0 {
			res.ZeroHits += counts[i]
			continue
		}
		totalW += float64(w)
		positive++
	}
	if positive == 0 {
		return res, errs.Coded(errs.Warn, errs.CodeInvalidArg, "chi-square: no positive weight")
	}
	if res.Samples == 0 {
		return res, errs.Coded(errs.Warn, errs.CodeInvalidArg, "chi-square: no samples")
	}

	n := float64(res.Samples)
	for i, w := range weights {
		if w == 0 {
			continue
		}
		exp := n * float64(w) / totalW
		d := float64(counts[i]) - exp
		res.Stat += d * d / exp
	}
	res.DoF = positive - 1
	if res.DoF == 0 {
		res.PValue = 1
		return res, nil
	}
	res.PValue = distuv.ChiSquared{K: float64(res.DoF)}.Survival(res.Stat)
	return res, nil
}
