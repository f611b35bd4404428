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

package multinomial

import (
	"sort"

	"github.com/zintix-labs/dynsampler/sdk/core"
	"gonum.org/v1/gonum/stat/distuv"
)

// sortedUniforms 以正規化的指數間距產生 n 個已排序的 U(0,1)，O(n)。
//
// E_0..E_n 獨立 Exp(1)，U_(j) = (E_0+...+E_(j-1)) / (E_0+...+E_n)。
func sortedUniforms(c *core.Core, n int) []float64 {
	out := make([]float64, n)
	cum := 0.0
	for i := range out {
		cum += c.ExpFloat64()
		out[i] = cum
	}
	total := cum + c.ExpFloat64()
	for i := range out {
		out[i] /= total
	}
	return out
}

// FullUniform 產生 n 個已排序的均勻變數，再與累積機率一起線性走一遍。
func FullUniform(c *core.Core, n int, dist []float64) ([]uint64, error) {
	last, err := checkDist(n, dist)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(dist))
	di := 0
	cum := dist[0]
	for _, u := range sortedUniforms(c, n) {
		for u >= cum && di < last {
			di++
			cum += dist[di]
		}
		out[di]++
	}
	return out, nil
}

// FullUniformBinSearch 同樣的已排序均勻變數，每個類別以二分搜尋找出落點數量。
func FullUniformBinSearch(c *core.Core, n int, dist []float64) ([]uint64, error) {
	last, err := checkDist(n, dist)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(dist))
	unifs := sortedUniforms(c, n)
	cum := 0.0
	taken := 0
	for i := 0; i < last; i++ {
		cum += dist[i]
		loc := sort.SearchFloat64s(unifs[taken:], cum)
		out[i] = uint64(loc)
		taken += loc
	}
	out[last] = uint64(n - taken)
	return out, nil
}

// ReverseBinSearch 每次試驗各自抽一個均勻變數，在累積機率上二分搜尋。
func ReverseBinSearch(c *core.Core, n int, dist []float64) ([]uint64, error) {
	last, err := checkDist(n, dist)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(dist))
	ends := make([]float64, last+1)
	cum := 0.0
	for i := range ends {
		cum += dist[i]
		ends[i] = cum
	}
	for j := 0; j < n; j++ {
		u := c.Float64()
		// 第一個累積值嚴格大於 u 的類別；機率為 0 的類別累積值不增加，不會被選中
		idx := sort.Search(len(ends), func(i int) bool { return ends[i] > u })
		if idx > last {
			idx = last
		}
		out[idx]++
	}
	return out, nil
}

// Binomial 條件二項分解：類別 i 的計數 ~ Bin(剩餘試驗, p_i / 剩餘機率)。
func Binomial(c *core.Core, n int, dist []float64) ([]uint64, error) {
	last, err := checkDist(n, dist)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(dist))
	remaining := n
	rest := 1.0
	for i := 0; i < last && remaining > 0; i++ {
		p := dist[i]
		if p == 0 {
			continue
		}
		q := p / rest
		rest -= p
		x := remaining
		if q < 1 {
			x = int(distuv.Binomial{N: float64(remaining), P: q, Src: c}.Rand())
		}
		out[i] = uint64(x)
		remaining -= x
	}
	out[last] += uint64(remaining)
	return out, nil
}
