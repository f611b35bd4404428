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

// Package core 提供所有抽樣器共用、可注入的亂數來源。
//
// 抽樣器本身不持有亂數產生器：呼叫端在 Pick 時傳入 *Core，
// 因此同一個 seed 可以完整重現一段抽樣序列（測試、基準、回放）。
package core

import (
	"crypto/rand"
	"math"
	"math/big"
)

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
//
// 除了 Uint64 之外還要求 bounded 方法，讓每個 PRNG 用最合適的無偏策略實作；
// Uint64N 是抽樣器的主要需求：權重總和與 2^exponent 都是 uint64。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// Uint64N 回傳 [0,max) 的 uint64 亂數，若 max == 0 回傳 0。
	Uint64N(uint64) uint64
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

type PRNGFactory interface {
	// New 以指定 seed 建立新的 PRNG。
	//
	// 合約：在同一個實作與同一個版本下，New(seed) 必須是決定性的，
	// 相同的 seed 產生相同的輸出序列。
	New(int64) PRNG
}

// DefaultPRNG 實作預設的 PRNGFactory (PCG64)
type DefaultPRNG struct{}

// New 滿足合約
func (d *DefaultPRNG) New(seed int64) PRNG {
	return newPCG64WithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// Core 封裝 PRNG，並提供常用取樣與工具方法。
//
// Core 具備 Uint64() 方法，因此可以直接當作 math/rand/v2 的 Source，
// 例如 distuv.Beta{Src: c}。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// NewSeeded 以預設 PCG64 與指定 seed 建立 Core。
func NewSeeded(seed int64) *Core {
	return New(Default().New(seed))
}

// RandomSeed 由加密亂數產生一個正的 int64 seed。
func RandomSeed() int64 {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil || seed.Int64() == 0 {
		return 1
	}
	return seed.Int64()
}

// Bernoulli 以機率 p 回傳 true。p <= 0 永遠 false，p >= 1 永遠 true。
func (c *Core) Bernoulli(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return c.Float64() < p
}

// ExpFloat64 回傳參數為 1 的指數分佈亂數，值域 (0, +Inf)。
func (c *Core) ExpFloat64() float64 {
	for {
		u := c.Float64()
		if u > 0 {
			return -math.Log(u)
		}
	}
}

// ShuffleInts 使用 Fisher-Yates 演算法對 []int 進行就地隨機重排。
func (c *Core) ShuffleInts(src []int) {
	if len(src) <= 1 {
		return
	}

	for i := len(src) - 1; i > 0; i-- {
		j := c.IntN(i + 1)
		src[i], src[j] = src[j], src[i]
	}
}
