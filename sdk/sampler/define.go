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

// Package sampler 提供可動態更新權重的離散分佈抽樣器。
//
// 本檔案 (define.go) 定義了 sampler 套件中通用的泛型約束與權重前處理。
//
// 權重一律以 uint64 儲存，且總和不得超過 math.MaxInt64：
//   - 任何節點總和的 bit-length 最多 63，exponent 位元遮罩可以放進一個 uint64。
//   - 2^exponent 永遠可以用 uint64 表示，拒絕抽樣的上界不會溢位。

package sampler

import (
	"math"

	"github.com/zintix-labs/dynsampler/errs"
)

// MaxTotalWeight 所有抽樣器允許的權重總和上限
const MaxTotalWeight uint64 = math.MaxInt64

// Integers 定義所有底層實現為整數型別的集合
type Integers interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Weights 將任意整數權重轉成 uint64，遇到負值回傳錯誤。
func Weights[T Integers](src []T) ([]uint64, error) {
	out := make([]uint64, len(src))
	for i, v := range src {
		if v < 0 {
			return nil, errs.Coded(errs.Warn, errs.CodeNegativeWeight, "weight[%d] is negative", i)
		}
		out[i] = uint64(v)
	}
	return out, nil
}

// totalOf 累加權重並檢查上限
func totalOf(weights []uint64) (uint64, error) {
	if len(weights) == 0 {
		return 0, errs.Coded(errs.Warn, errs.CodeInvalidArg, "weights must not be empty")
	}
	total := uint64(0)
	for i, w := range weights {
		if w > MaxTotalWeight-total {
			return 0, errs.Coded(errs.Warn, errs.CodeOverflow, "total weight exceeds %d at weight[%d]", MaxTotalWeight, i)
		}
		total += w
	}
	return total, nil
}

func checkIndex(idx, n int) error {
	if idx < 0 || idx >= n {
		return errs.Coded(errs.Warn, errs.CodeOutOfRange, "category %d out of range [0,%d)", idx, n)
	}
	return nil
}

// retotal 回傳把 old 換成 w 之後的新總和，超過上限回傳錯誤。
func retotal(total, old, w uint64) (uint64, error) {
	rest := total - old
	if w > MaxTotalWeight-rest {
		return 0, errs.Coded(errs.Warn, errs.CodeOverflow, "total weight exceeds %d", MaxTotalWeight)
	}
	return rest + w, nil
}

// applyDelta 計算 old+delta，結果為負回傳錯誤。
func applyDelta(old uint64, delta int64) (uint64, error) {
	if delta >= 0 {
		return old + uint64(delta), nil
	}
	dec := uint64(-(delta + 1)) + 1 // delta == MinInt64 也不會溢位
	if dec > old {
		return 0, errs.Coded(errs.Warn, errs.CodeNegativeWeight, "weight %d with delta %d would be negative", old, delta)
	}
	return old - dec, nil
}
