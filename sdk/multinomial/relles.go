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

// 本檔案 (relles.go) 實作 Relles 的延遲順序統計量方法與其內插搜尋版本。
//
// 把 n 次試驗看成 n 個已排序的 U(0,1)：U_(1) <= ... <= U_(n)，並加上哨兵 U_(0)=0、U_(n+1)=1。
// 類別 i 的計數就是落在 [C_(i-1), C_i) 的順序統計量個數。
//
// 不需要真的產生 n 個值：已知 U_(lo)=a、U_(hi)=b 且兩者之間沒有其他已產生的點時，
//
//	U_(m) = a + (b-a) * Beta(m-lo, hi-m),  lo < m < hi
//
// 只在搜尋路徑上產生需要的點。

package multinomial

import (
	"math"

	"github.com/zintix-labs/dynsampler/sdk/core"
	"gonum.org/v1/gonum/stat/distuv"
)

// orderStat 在已知相鄰兩點之間產生位置 m 的順序統計量
func orderStat(c *core.Core, lo int, loVal float64, hi int, hiVal float64, m int) float64 {
	b := distuv.Beta{Alpha: float64(m - lo), Beta: float64(hi - m), Src: c}.Rand()
	return loVal + (hiVal-loVal)*b
}

// Relles 每個類別在順序統計量上做一次二分搜尋，產生的點記在 memo 中重複使用。
//
// 每次搜尋都從 [0, n+1] 開始且中點固定，產生過的點構成一棵區間二元樹：
// 搜尋到的區間 (lo, hi) 內若有已產生的點，必定就是它的中點，條件分佈因此成立。
func Relles(c *core.Core, n int, dist []float64) ([]uint64, error) {
	last, err := checkDist(n, dist)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(dist))
	memo := map[int]float64{0: 0, n + 1: 1}

	// locate 回傳最大的位置 j (0 <= j <= n) 使 U_(j) < value
	locate := func(value float64) int {
		lo, hi := 0, n+1
		for hi-lo > 1 {
			mid := lo + (hi-lo)/2
			v, ok := memo[mid]
			if !ok {
				v = orderStat(c, lo, memo[lo], hi, memo[hi], mid)
				memo[mid] = v
			}
			if v < value {
				lo = mid
			} else {
				hi = mid
			}
		}
		return lo
	}

	cum := 0.0
	taken := 0
	for i := 0; i < last; i++ {
		if dist[i] == 0 {
			continue
		}
		cum += dist[i]
		loc := n
		if cum < 1 {
			loc = locate(cum)
		}
		out[i] = uint64(loc - taken)
		taken = loc
	}
	out[last] = uint64(n - taken)
	return out, nil
}

type point struct {
	pos int
	val float64
}

// RellesEnhanced 以內插搜尋取代二分搜尋。
//
// 累積機率單調遞增，所以左端點 lo 只會往右移；右側已產生的點以堆疊保存 (頂端位置最小)，
// 頂端即為 lo 右邊最近的已產生點，(lo, 頂端) 之間沒有其他已產生的點。
func RellesEnhanced(c *core.Core, n int, dist []float64) ([]uint64, error) {
	last, err := checkDist(n, dist)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(dist))
	lo := point{pos: 0, val: 0}
	right := []point{{pos: n + 1, val: 1}}

	locate := func(value float64) int {
		for right[len(right)-1].val < value {
			lo = right[len(right)-1]
			right = right[:len(right)-1]
		}
		hi := right[len(right)-1]
		for hi.pos-lo.pos > 1 {
			// 內插落點限制在 (lo, hi) 之內
			span := hi.pos - lo.pos - 2
			frac := (value - lo.val) / (hi.val - lo.val)
			m := lo.pos + 1 + int(math.Round(frac*float64(span)))
			v := orderStat(c, lo.pos, lo.val, hi.pos, hi.val, m)
			if v < value {
				lo = point{pos: m, val: v}
			} else {
				hi = point{pos: m, val: v}
				right = append(right, hi)
			}
		}
		return lo.pos
	}

	cum := 0.0
	taken := 0
	for i := 0; i < last; i++ {
		if dist[i] == 0 {
			continue
		}
		cum += dist[i]
		loc := n
		if cum < 1 {
			loc = locate(cum)
		}
		out[i] = uint64(loc - taken)
		taken = loc
	}
	out[last] = uint64(n - taken)
	return out, nil
}
