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

package core

import (
	r2 "math/rand/v2"
)

// PCG64 以 math/rand/v2 的 PCG (128-bit state, DXSM 輸出) 作為來源，
// 有界取樣交給 rand.Rand 的無偏實作。
type PCG64 struct {
	src *r2.PCG
	r   *r2.Rand
}

// newPCG64WithSeed 把 64-bit seed 以 splitmix64 展開成 128-bit 狀態，
// 相鄰的 seed 也會得到互不相關的序列。
func newPCG64WithSeed(seed int64) *PCG64 {
	x := uint64(seed) ^ 0x6a09e667f3bcc909
	src := r2.NewPCG(splitmix64(x), splitmix64(^x))
	return &PCG64{src: src, r: r2.New(src)}
}

func (p *PCG64) Uint64() uint64 { return p.src.Uint64() }

// Uint64N [0,max)，max == 0 時回傳 0
func (p *PCG64) Uint64N(max uint64) uint64 {
	if max == 0 {
		return 0
	}
	return p.r.Uint64N(max)
}

// IntN [0,max)，max <= 0 時回傳 -1
func (p *PCG64) IntN(max int) int {
	if max <= 0 {
		return -1
	}
	return p.r.IntN(max)
}

// Float64 [0,1)，53 bits 精度
func (p *PCG64) Float64() float64 { return p.r.Float64() }

// Snapshot 序列化 PCG 狀態；rand.Rand 本身無狀態
func (p *PCG64) Snapshot() ([]byte, error) { return p.src.MarshalBinary() }

// Restore 還原 Snapshot 的狀態
func (p *PCG64) Restore(data []byte) error { return p.src.UnmarshalBinary(data) }

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
