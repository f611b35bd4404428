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

// 本檔案 (bucketindex.go) 實作可動態更新權重的階層式 bucket 索引
// (Matias, Vitter, Ni: "Dynamic Generation of Discrete Random Variables")。
//
// 結構：
//   - 第 0 層是葉節點，一個類別一個。
//   - 第 L+1 層的 bucket (L+1, e) 收納所有 sum 的 bit-length 為 e 的第 L 層節點，
//     因此 bucket 內任一 child 的 sum 都落在 [2^(e-1), 2^e)。
//   - child 數 >= 2 的 bucket 繼續往上歸檔；只有 1 個 child 的 bucket 成為該層的 root；
//     沒有 child 的 bucket 保留但不參與任何登記。
//
// 特性：
//   - 抽樣：先依 root 權重選層、再選 root、最後拒絕抽樣往下走。
//     每一層接受機率 >= 1/2，期望重試次數 O(1)。
//   - 更新：只改一個葉節點，再由 worklist 逐層往上修正，期望成本與層數同階。
//   - 類別數量固定；非執行緒安全，並行使用需由外部加鎖。

package sampler

import (
	"math/bits"

	"github.com/zintix-labs/dynsampler/errs"
	"github.com/zintix-labs/dynsampler/sdk/core"
)

// BucketIndex 階層式 bucket 動態抽樣索引
type BucketIndex struct {
	nodes  []node // arena：[0,n) 為葉節點，之後是 bucket
	n      int
	reg    nodeRegistry
	roots  rootRegistry
	levels int
	total  uint64
	gen    uint64
	queue  []handle // worklist，重複使用避免配置
}

// NewBucketIndex 根據權重建立索引。
//
// weights 長度至少為 1，可以含 0，總和不可超過 MaxTotalWeight。
// 全部為 0 是合法的狀態，但此時 Pick 只會回傳 -1。
func NewBucketIndex(weights []uint64) (*BucketIndex, error) {
	total, err := totalOf(weights)
	if err != nil {
		return nil, errs.Wrap(err, "bucket index: build")
	}
	n := len(weights)
	b := &BucketIndex{
		nodes: make([]node, n, n+n/2+8),
		n:     n,
		reg:   make(nodeRegistry),
		total: total,
		queue: make([]handle, 0, n),
	}
	b.roots.grow(1)

	// 所有葉節點一次入列，從 (1, bitLen(w)) 開始逐層往上歸檔
	b.gen++
	for i, w := range weights {
		b.nodes[i] = node{sum: w, parent: nilHandle}
		b.enqueue(handle(i))
	}
	b.propagate()
	return b, nil
}

// ============================================================
// ** 查詢 **
// ============================================================

// Len 類別數量
func (b *BucketIndex) Len() int { return b.n }

// Total 目前權重總和
func (b *BucketIndex) Total() uint64 { return b.total }

// Levels 目前最高的 bucket 層數
func (b *BucketIndex) Levels() int { return b.levels }

// Buckets 已建立的 bucket 數量（含空 bucket）
func (b *BucketIndex) Buckets() int { return len(b.nodes) - b.n }

// Weight 回傳類別 idx 目前的權重，idx 越界回傳 0。
func (b *BucketIndex) Weight(idx int) uint64 {
	if idx < 0 || idx >= b.n {
		return 0
	}
	return b.nodes[idx].sum
}

// ============================================================
// ** 抽樣 **
// ============================================================

// Pick 依目前權重抽出一個類別。權重總和為 0 時回傳 -1（熱路徑只用哨兵值）。
func (b *BucketIndex) Pick(c *core.Core) int {
	idx, _ := b.pick(c)
	return idx
}

// pick 另外回傳下降階段總共抽了幾次 (child, rem)，供測試觀察拒絕次數。
func (b *BucketIndex) pick(c *core.Core) (int, int) {
	if b.total == 0 {
		return -1, 0
	}
	targ := c.Uint64N(b.total)

	// 1. 選層：依序扣掉每層 root 權重，第一個會超過 targ 的層
	level := 0
	for l := 1; l <= b.levels; l++ {
		w := b.roots.weight[l]
		if targ < w {
			level = l
			break
		}
		targ -= w
	}
	if level == 0 {
		panic("bucket index: root weights out of sync with total")
	}

	// 2. 選 root：從最高 exponent 往下掃
	h := nilHandle
	mask := b.roots.mask[level]
	for mask != 0 {
		exp := uint8(bits.Len64(mask) - 1)
		mask &^= 1 << exp
		r, _ := b.reg.lookup(level, exp)
		s := b.nodes[r].sum
		if targ < s {
			h = r
			break
		}
		targ -= s
	}
	if h == nilHandle {
		panic("bucket index: root mask out of sync with root weight")
	}

	// 3. 拒絕抽樣下降：均勻選 child，rem < child.sum 才接受
	trials := 0
	for {
		nd := &b.nodes[h]
		if nd.isLeaf() {
			return int(h), trials
		}
		ch := nd.children[c.IntN(len(nd.children))]
		rem := c.Uint64N(uint64(1) << nd.exp)
		trials++
		if rem < b.nodes[ch].sum {
			h = ch
		}
	}
}

// ============================================================
// ** 更新 **
// ============================================================

// Update 把類別 idx 的權重設為 w。
//
// 錯誤（皆為 Warn，索引維持原狀）：
//   - idx 越界
//   - 更新後總和超過 MaxTotalWeight
func (b *BucketIndex) Update(idx int, w uint64) error {
	if err := checkIndex(idx, b.n); err != nil {
		return errs.Wrap(err, "bucket index: update")
	}
	leaf := &b.nodes[idx]
	if leaf.sum == w {
		return nil
	}
	total, err := retotal(b.total, leaf.sum, w)
	if err != nil {
		return errs.Wrap(err, "bucket index: update")
	}
	b.total = total
	leaf.sum = w

	b.gen++
	b.enqueue(handle(idx))
	b.propagate()
	return nil
}

// DeltaUpdate 等同 Update(idx, Weight(idx)+delta)，結果為負時回傳錯誤且不修改索引。
func (b *BucketIndex) DeltaUpdate(idx int, delta int64) error {
	if err := checkIndex(idx, b.n); err != nil {
		return errs.Wrap(err, "bucket index: delta update")
	}
	w, err := applyDelta(b.nodes[idx].sum, delta)
	if err != nil {
		return errs.Wrap(err, "bucket index: delta update")
	}
	return b.Update(idx, w)
}

// enqueue 同一個 generation 內每個節點只入列一次
func (b *BucketIndex) enqueue(h handle) {
	nd := &b.nodes[h]
	if nd.queued == b.gen {
		return
	}
	nd.queued = b.gen
	b.queue = append(b.queue, h)
}

// propagate 依 FIFO 處理 worklist。
//
// 第 L 層的節點只會把第 L+1 層的 bucket 入列，因此 FIFO 保證一個 bucket 被處理時，
// 它所有 child 本批次的變動都已經套用完畢。
func (b *BucketIndex) propagate() {
	for head := 0; head < len(b.queue); head++ {
		b.settle(b.queue[head])
	}
	b.queue = b.queue[:0]
}

// settle 讓節點 h 的歸檔狀態與目前的 sum / child 數一致。
func (b *BucketIndex) settle(h handle) {
	nd := &b.nodes[h]
	level := int(nd.level)
	sum := nd.sum
	promote := nd.isLeaf() || len(nd.children) >= 2
	root := !nd.isLeaf() && len(nd.children) == 1

	if nd.isRoot {
		b.roots.remove(level, nd.exp, nd.rootSum)
		nd.isRoot = false
	}
	if root {
		b.roots.add(level, nd.exp, sum)
		nd.isRoot = true
		nd.rootSum = sum
	}

	exp := bitLen(sum)
	if nd.parent != nilHandle {
		p := &b.nodes[nd.parent]
		if promote && p.exp == exp {
			// exponent 沒變，原地修正 parent
			if nd.filed != sum {
				p.sum = p.sum - nd.filed + sum
				nd.filed = sum
				b.enqueue(nd.parent)
			}
			return
		}
		b.detach(h)
	}
	if promote {
		b.attach(h, b.bucket(level+1, exp))
	}
}

// detach 將 h 從 parent 的 children 移除 (swap-with-last)
func (b *BucketIndex) detach(h handle) {
	nd := &b.nodes[h]
	ph := nd.parent
	p := &b.nodes[ph]
	p.sum -= nd.filed

	last := len(p.children) - 1
	moved := p.children[last]
	p.children[nd.pos] = moved
	b.nodes[moved].pos = nd.pos
	p.children = p.children[:last]

	nd.parent = nilHandle
	nd.filed = 0
	nd.pos = 0
	b.enqueue(ph)
}

// attach 將 h 加入 bucket ph
func (b *BucketIndex) attach(h, ph handle) {
	nd := &b.nodes[h]
	p := &b.nodes[ph]
	p.sum += nd.sum
	p.children = append(p.children, h)

	nd.parent = ph
	nd.pos = int32(len(p.children) - 1)
	nd.filed = nd.sum
	b.enqueue(ph)
}

// bucket 取得 (level, exp) 的 bucket，不存在就建立。
// 建立時 arena 可能重新配置，呼叫端不可持有舊的 *node。
func (b *BucketIndex) bucket(level int, exp uint8) handle {
	if h, ok := b.reg.lookup(level, exp); ok {
		return h
	}
	h := handle(len(b.nodes))
	b.nodes = append(b.nodes, node{parent: nilHandle, level: int32(level), exp: exp})
	b.reg[packKey(level, exp)] = h
	if level > b.levels {
		b.levels = level
		b.roots.grow(level)
	}
	return h
}

// ============================================================
// ** 一致性檢查 **
// ============================================================

// Validate 完整檢查索引的守恆與結構不變量，發現問題回傳 Fatal 錯誤。
//
// 成本 O(節點數)，用於測試與除錯端點，不應放在熱路徑。
func (b *BucketIndex) Validate() error {
	corrupt := func(format string, a ...any) error {
		return errs.Coded(errs.Fatal, errs.CodeCorrupt, "bucket index: "+format, a...)
	}

	leafTotal := uint64(0)
	for i := 0; i < b.n; i++ {
		leafTotal += b.nodes[i].sum
	}
	if leafTotal != b.total {
		return corrupt("total %d != sum of weights %d", b.total, leafTotal)
	}

	rootWeight := make([]uint64, b.levels+1)
	rootMask := make([]uint64, b.levels+1)
	maxLevel := 0
	for hi := range b.nodes {
		h := handle(hi)
		nd := &b.nodes[h]
		level := int(nd.level)

		if !nd.isLeaf() {
			if level > b.levels {
				return corrupt("bucket (%d,%d) above levels %d", level, nd.exp, b.levels)
			}
			maxLevel = max(maxLevel, level)
			if r, ok := b.reg.lookup(level, nd.exp); !ok || r != h {
				return corrupt("bucket (%d,%d) missing from registry", level, nd.exp)
			}
			s := uint64(0)
			for pos, ch := range nd.children {
				c := &b.nodes[ch]
				if c.parent != h || int(c.pos) != pos {
					return corrupt("bucket (%d,%d) child link broken at %d", level, nd.exp, pos)
				}
				s += c.sum
			}
			if s != nd.sum {
				return corrupt("bucket (%d,%d) sum %d != children %d", level, nd.exp, nd.sum, s)
			}
		}

		wantParent := nd.isLeaf() || len(nd.children) >= 2
		wantRoot := !nd.isLeaf() && len(nd.children) == 1
		if wantParent != (nd.parent != nilHandle) {
			return corrupt("node %d at level %d: parent link mismatch", h, level)
		}
		if nd.parent != nilHandle {
			p := &b.nodes[nd.parent]
			if int(p.level) != level+1 || p.exp != bitLen(nd.sum) || nd.filed != nd.sum {
				return corrupt("node %d at level %d filed under wrong bucket", h, level)
			}
		}
		if wantRoot != nd.isRoot {
			return corrupt("node %d at level %d: root flag mismatch", h, level)
		}
		if nd.isRoot {
			if nd.rootSum != nd.sum {
				return corrupt("root (%d,%d) stale root sum", level, nd.exp)
			}
			rootWeight[level] += nd.sum
			rootMask[level] |= 1 << nd.exp
		}
	}
	if maxLevel != b.levels {
		return corrupt("levels %d != highest bucket level %d", b.levels, maxLevel)
	}
	for l := 1; l <= b.levels; l++ {
		if rootWeight[l] != b.roots.weight[l] || rootMask[l] != b.roots.mask[l] {
			return corrupt("root registry out of sync at level %d", l)
		}
	}
	if b.roots.sum() != b.total {
		return corrupt("root weights %d != total %d", b.roots.sum(), b.total)
	}
	return nil
}
