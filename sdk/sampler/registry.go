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

// 本檔案 (registry.go) 定義 BucketIndex 的節點與兩個登記表：
//   - nodeRegistry：(level, exponent) -> bucket handle 的稀疏對照。
//   - rootRegistry：每一層的 root exponent 位元遮罩與 root 權重總和。

package sampler

import "math/bits"

// handle 是節點在 arena 中的位置。葉節點的 handle 等於類別編號。
type handle int32

const nilHandle handle = -1

// node 同時表示葉節點 (level 0) 與 bucket (level >= 1)。
//
// filed 是目前計入 parent.sum 的量，parent 的 exponent 永遠等於 bitLen(filed)；
// 傳播時拿它跟最新的 sum 比較，就是「本批次更新前」的快照。
// rootSum 同理，是目前計入 rootRegistry 的量。
type node struct {
	sum      uint64
	filed    uint64
	rootSum  uint64
	queued   uint64 // 最後一次入列時的 generation
	children []handle
	parent   handle
	pos      int32 // 在 parent.children 中的位置
	level    int32
	exp      uint8 // bucket 的 exponent：所有 child 的 sum 都落在 [2^(exp-1), 2^exp)
	isRoot   bool
}

func (nd *node) isLeaf() bool { return nd.level == 0 }

// bitLen 回傳 v 的位元長度，bitLen(0) = 0。
func bitLen(v uint64) uint8 {
	return uint8(bits.Len64(v))
}

// packKey 把 (level, exponent) 壓成單一 map key。exponent 最多 63，佔低 8 位。
func packKey(level int, exp uint8) uint64 {
	return uint64(level)<<8 | uint64(exp)
}

// nodeRegistry 稀疏登記表，bucket 第一次被需要時才建立，之後不會刪除。
type nodeRegistry map[uint64]handle

func (r nodeRegistry) lookup(level int, exp uint8) (handle, bool) {
	h, ok := r[packKey(level, exp)]
	return h, ok
}

// rootRegistry 以 level 為索引 (index 0 不使用)。
type rootRegistry struct {
	mask   []uint64
	weight []uint64
}

func (r *rootRegistry) grow(level int) {
	for len(r.mask) <= level {
		r.mask = append(r.mask, 0)
		r.weight = append(r.weight, 0)
	}
}

func (r *rootRegistry) add(level int, exp uint8, w uint64) {
	r.mask[level] |= 1 << exp
	r.weight[level] += w
}

func (r *rootRegistry) remove(level int, exp uint8, w uint64) {
	r.mask[level] &^= 1 << exp
	r.weight[level] -= w
}

// sum 所有層 root 權重總和
func (r *rootRegistry) sum() uint64 {
	s := uint64(0)
	for _, w := range r.weight {
		s += w
	}
	return s
}
