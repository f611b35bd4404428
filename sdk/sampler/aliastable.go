// 本檔案 (aliastable.go) 實作了 Vose's Alias Method 加權抽樣演算法 (整數優化版)，
// 作為 BucketIndex 的靜態對照組。
//
// 演算法原理：
//   - 將任意離散分佈轉換為均勻分佈的組合。
//   - 每個槽位只存放「自己」和「別名 (Alias)」兩個選項。
//   - 抽樣時先選槽位，再根據機率決定是自己還是別名。
//
// 特性：
//   - 建表時間：O(N)。
//   - 抽樣時間：O(1)，固定 2 次亂數。
//   - 更新：只標記表格過期，下一次 Pick 時整張重建 (O(N))。
//     頻繁交錯「更新 / 抽樣」的工作負載 (例如 Polya urn) 會退化成 O(N)。
//
// 實作細節：
//   - 採用全整數運算 (Integer Scaling)，避免浮點數精度誤差 (0.999... != 1.0)。
//   - 內建溢位檢查：total * n 必須放得進 uint64。

package sampler

import (
	"math/bits"

	"github.com/zintix-labs/dynsampler/errs"
	"github.com/zintix-labs/dynsampler/sdk/core"
)

// AliasTable 是 Vose Alias Method 的整數版本。
//
// 結構欄位說明：
// - weights: 原始權重，更新直接寫在這裡。
// - prob: 每個槽位「調整後機率」，經過 scaling (w * n)。
// - aliases: 別名索引，指向補足機率的元素。
// - total: 權重總和，用於 scaling 與抽樣判斷。
// - stale: 權重已變動、表格尚未重建。
type AliasTable struct {
	weights []uint64
	prob    []uint64
	aliases []int
	total   uint64
	stale   bool

	small []int
	large []int
}

// BuildAliasTable 根據輸入的權重建立 AliasTable。
//
// 錯誤：
// - weights 為空、總和超過 MaxTotalWeight。
// - total * len(weights) 溢位 uint64（整數 scaling 放不下）。
func BuildAliasTable(weights []uint64) (*AliasTable, error) {
	total, err := totalOf(weights)
	if err != nil {
		return nil, errs.Wrap(err, "alias table: build")
	}
	n := len(weights)
	if !isSafeMultiply(total, uint64(n)) {
		return nil, errs.Coded(errs.Warn, errs.CodeOverflow, "alias table: total %d * n %d overflows", total, n)
	}
	at := &AliasTable{
		weights: append([]uint64(nil), weights...),
		prob:    make([]uint64, n),
		aliases: make([]int, n),
		total:   total,
		small:   make([]int, 0, n),
		large:   make([]int, 0, n),
	}
	at.rebuild()
	return at, nil
}

// rebuild 重建整張表
//
// 1) 將每個權重 w 乘以 n 做整數 scaling，得到 prob。
// 2) 依 prob[i] 與 total 比較分到 small 或 large。
// 3) 從 small 和 large 各取一個 s, l，將 l 指派為 s 的 alias，並調整 l 的 prob。
// 4) 重複直到 small 或 large 空。整數運算下 sum(prob) = total * n 嚴格成立，
// 剩下的槽位 prob 必定等於 total。
func (at *AliasTable) rebuild() {
	at.stale = false
	if at.total == 0 {
		return
	}
	n := uint64(len(at.weights))
	small := at.small[:0]
	large := at.large[:0]

	for i, w := range at.weights {
		at.prob[i] = w * n
		at.aliases[i] = i
		if at.prob[i] < at.total {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		at.aliases[s] = l
		at.prob[l] = at.prob[l] + at.prob[s] - at.total // 維持 sum(prob) = total * n

		if at.prob[l] < at.total {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}
	at.small, at.large = small, large
}

// isSafeMultiply 使用 bits.Mul64 檢查 a*b 是否放得進 uint64。
func isSafeMultiply(a, b uint64) bool {
	hi, _ := bits.Mul64(a, b)
	return hi == 0
}

// Pick 從 AliasTable 中抽取一個索引，權重總和為 0 時回傳 -1。
//
// 1) c.IntN(n) 選槽位 idx。
// 2) c.Uint64N(total) < prob[idx] 時回傳 idx，否則回傳 alias。
//
// 表格過期時會先重建。
func (at *AliasTable) Pick(c *core.Core) int {
	if at.total == 0 {
		return -1
	}
	if at.stale {
		at.rebuild()
	}
	idx := c.IntN(len(at.weights))
	if c.Uint64N(at.total) < at.prob[idx] {
		return idx
	}
	return at.aliases[idx]
}

// Update 設定權重並標記表格過期
func (at *AliasTable) Update(idx int, w uint64) error {
	if err := checkIndex(idx, len(at.weights)); err != nil {
		return errs.Wrap(err, "alias table: update")
	}
	total, err := retotal(at.total, at.weights[idx], w)
	if err != nil {
		return errs.Wrap(err, "alias table: update")
	}
	if !isSafeMultiply(total, uint64(len(at.weights))) {
		return errs.Coded(errs.Warn, errs.CodeOverflow, "alias table: total %d * n %d overflows", total, len(at.weights))
	}
	if at.weights[idx] == w {
		return nil
	}
	at.weights[idx] = w
	at.total = total
	at.stale = true
	return nil
}

// DeltaUpdate 等同 Update(idx, Weight(idx)+delta)
func (at *AliasTable) DeltaUpdate(idx int, delta int64) error {
	if err := checkIndex(idx, len(at.weights)); err != nil {
		return errs.Wrap(err, "alias table: delta update")
	}
	w, err := applyDelta(at.weights[idx], delta)
	if err != nil {
		return errs.Wrap(err, "alias table: delta update")
	}
	return at.Update(idx, w)
}

func (at *AliasTable) Weight(idx int) uint64 {
	if idx < 0 || idx >= len(at.weights) {
		return 0
	}
	return at.weights[idx]
}

func (at *AliasTable) Total() uint64 { return at.total }

func (at *AliasTable) Len() int { return len(at.weights) }
