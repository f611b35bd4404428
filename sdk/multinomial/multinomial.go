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

// Package multinomial 產生多項分佈的計數向量：n 次試驗、k 個類別、機率向量 dist。
//
// 所有方法的輸出分佈相同，差別只在成本：
//
//	FullUniform           O(n + k)
//	FullUniformBinSearch  O(n + k log n)
//	ReverseBinSearch      O(n log k)
//	Relles                O(k log n)
//	RellesEnhanced        O(k log log n)
//	Binomial              O(k)
//
// 每個方法都保證 sum(out) == n，且機率為 0 的類別計數必為 0。
package multinomial

import (
	"math"
	"strings"

	"github.com/zintix-labs/dynsampler/errs"
	"github.com/zintix-labs/dynsampler/sdk/core"
)

// Tolerance dist 總和與 1 的容許誤差
const Tolerance = 1e-9

// Func 多項分佈產生器的共同簽名
type Func func(c *core.Core, n int, dist []float64) ([]uint64, error)

// Method 產生器名稱
type Method string

const (
	MethodFullUniform          Method = "full_uniform"
	MethodFullUniformBinSearch Method = "full_uniform_bin_search"
	MethodReverseBinSearch     Method = "reverse_bin_search"
	MethodRelles               Method = "relles"
	MethodRellesEnhanced       Method = "relles_enhanced"
	MethodBinomial             Method = "binomial"
)

var methods = map[Method]Func{
	MethodFullUniform:          FullUniform,
	MethodFullUniformBinSearch: FullUniformBinSearch,
	MethodReverseBinSearch:     ReverseBinSearch,
	MethodRelles:               Relles,
	MethodRellesEnhanced:       RellesEnhanced,
	MethodBinomial:             Binomial,
}

// Methods 全部方法，順序固定
func Methods() []Method {
	return []Method{
		MethodFullUniform,
		MethodFullUniformBinSearch,
		MethodReverseBinSearch,
		MethodRelles,
		MethodRellesEnhanced,
		MethodBinomial,
	}
}

// ParseMethod 不分大小寫解析方法名稱
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := methods[m]; !ok {
		return "", errs.Coded(errs.Warn, errs.CodeInvalidArg, "unknown multinomial method %q", s)
	}
	return m, nil
}

// Sample 依方法名稱抽樣
func Sample(m Method, c *core.Core, n int, dist []float64) ([]uint64, error) {
	f, ok := methods[m]
	if !ok {
		return nil, errs.Coded(errs.Warn, errs.CodeInvalidArg, "unknown multinomial method %q", m)
	}
	return f(c, n, dist)
}

// checkDist 驗證輸入並回傳最後一個機率為正的類別。
//
// 浮點累加可能讓累積值停在 1 附近的任一側，剩餘的試驗一律歸給最後一個正機率類別，
// 避免計數落到尾端機率為 0 的類別。
func checkDist(n int, dist []float64) (int, error) {
	if n < 0 {
		return 0, errs.Coded(errs.Warn, errs.CodeInvalidArg, "multinomial: n must be >= 0, got %d", n)
	}
	if len(dist) == 0 {
		return 0, errs.Coded(errs.Warn, errs.CodeInvalidArg, "multinomial: dist must not be empty")
	}
	sum := 0.0
	last := -1
	for i, p := range dist {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return 0, errs.Coded(errs.Warn, errs.CodeInvalidArg, "multinomial: dist[%d] = %v is not a probability", i, p)
		}
		if p > 0 {
			last = i
		}
		sum += p
	}
	if math.Abs(sum-1) > Tolerance {
		return 0, errs.Coded(errs.Warn, errs.CodeInvalidArg, "multinomial: dist sums to %v, want 1", sum)
	}
	return last, nil
}
