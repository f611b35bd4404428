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

package sampler

import (
	"github.com/zintix-labs/dynsampler/errs"
	"github.com/zintix-labs/dynsampler/sdk/core"
)

// SumTree 是 Wong-Easton 的平衡樹抽樣器，以完全二元樹的陣列表示。
//
// tree[1] 為根，節點 i 的左右子節點為 2i 與 2i+1，葉節點從 tree[width] 開始；
// 每個內部節點存放子樹的權重總和。抽樣與更新皆為 O(log n)。
type SumTree struct {
	n     int
	width int // 葉節點數，n 向上取到 2 的冪次
	tree  []uint64
}

// BuildSumTree 以權重建立 SumTree，錯誤條件與 NewBucketIndex 相同。
func BuildSumTree(weights []uint64) (*SumTree, error) {
	if _, err := totalOf(weights); err != nil {
		return nil, errs.Wrap(err, "sum tree: build")
	}
	width := 1
	for width < len(weights) {
		width <<= 1
	}
	st := &SumTree{
		n:     len(weights),
		width: width,
		tree:  make([]uint64, 2*width),
	}
	copy(st.tree[width:], weights)
	for i := width - 1; i > 0; i-- {
		st.tree[i] = st.tree[2*i] + st.tree[2*i+1]
	}
	return st, nil
}

// Pick 從根往下走：targ 小於左子樹總和就往左，否則扣掉左子樹往右。
// 權重總和為 0 時回傳 -1。
func (st *SumTree) Pick(c *core.Core) int {
	if st.tree[1] == 0 {
		return -1
	}
	targ := c.Uint64N(st.tree[1])
	i := 1
	for i < st.width {
		l := 2 * i
		if targ < st.tree[l] {
			i = l
		} else {
			targ -= st.tree[l]
			i = l + 1
		}
	}
	return i - st.width
}

func (st *SumTree) Update(idx int, w uint64) error {
	if err := checkIndex(idx, st.n); err != nil {
		return errs.Wrap(err, "sum tree: update")
	}
	i := st.width + idx
	if _, err := retotal(st.tree[1], st.tree[i], w); err != nil {
		return errs.Wrap(err, "sum tree: update")
	}
	st.tree[i] = w
	for p := i / 2; p > 0; p /= 2 {
		st.tree[p] = st.tree[2*p] + st.tree[2*p+1]
	}
	return nil
}

func (st *SumTree) DeltaUpdate(idx int, delta int64) error {
	if err := checkIndex(idx, st.n); err != nil {
		return errs.Wrap(err, "sum tree: delta update")
	}
	w, err := applyDelta(st.tree[st.width+idx], delta)
	if err != nil {
		return errs.Wrap(err, "sum tree: delta update")
	}
	return st.Update(idx, w)
}

func (st *SumTree) Weight(idx int) uint64 {
	if idx < 0 || idx >= st.n {
		return 0
	}
	return st.tree[st.width+idx]
}

func (st *SumTree) Total() uint64 { return st.tree[1] }

func (st *SumTree) Len() int { return st.n }
