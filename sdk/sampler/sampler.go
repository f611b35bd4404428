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
	"strings"

	"github.com/zintix-labs/dynsampler/errs"
	"github.com/zintix-labs/dynsampler/sdk/core"
)

// Dynamic 是所有可更新抽樣器的共同合約：以權重建立、抽樣、更新單一權重。
//
// 類別數量在建立後固定。實作皆非執行緒安全。
type Dynamic interface {
	// Pick 依目前權重抽出類別，總和為 0 時回傳 -1。
	Pick(c *core.Core) int
	// Update 設定類別 idx 的權重。
	Update(idx int, w uint64) error
	// DeltaUpdate 將類別 idx 的權重加上 delta，結果為負時回傳錯誤。
	DeltaUpdate(idx int, delta int64) error
	Weight(idx int) uint64
	Total() uint64
	Len() int
}

var (
	_ Dynamic = (*BucketIndex)(nil)
	_ Dynamic = (*AliasTable)(nil)
	_ Dynamic = (*SumTree)(nil)
)

// Kind 抽樣器種類
type Kind uint8

const (
	KindBucket Kind = iota
	KindAlias
	KindSumTree
)

var kindNames = map[Kind]string{
	KindBucket:  "bucket",
	KindAlias:   "alias",
	KindSumTree: "sumtree",
}

// Kinds 回傳所有種類，順序固定
func Kinds() []Kind {
	return []Kind{KindBucket, KindAlias, KindSumTree}
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind 不分大小寫解析種類名稱
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, errs.Coded(errs.Warn, errs.CodeInvalidArg, "unknown sampler kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// New 依種類建立抽樣器
//
// 錯誤時回傳的 Dynamic 為 nil interface（不會是包著 nil 指標的 interface）。
func New(kind Kind, weights []uint64) (Dynamic, error) {
	var (
		d   Dynamic
		err error
	)
	switch kind {
	case KindBucket:
		var b *BucketIndex
		b, err = NewBucketIndex(weights)
		d = b
	case KindAlias:
		var a *AliasTable
		a, err = BuildAliasTable(weights)
		d = a
	case KindSumTree:
		var s *SumTree
		s, err = BuildSumTree(weights)
		d = s
	default:
		return nil, errs.Coded(errs.Warn, errs.CodeInvalidArg, "unknown sampler kind %d", kind)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}
