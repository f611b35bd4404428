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

// Package dynsampler 組裝具名的動態抽樣索引，供服務與工具共用。
//
// 抽樣器本身非執行緒安全；Registry 以自己的鎖保護名稱表，
// 每個索引再各自持有一把鎖，不同索引之間的操作可以並行。
package dynsampler

import (
	"regexp"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zintix-labs/dynsampler/errs"
	"github.com/zintix-labs/dynsampler/sdk/core"
	"github.com/zintix-labs/dynsampler/sdk/multinomial"
	"github.com/zintix-labs/dynsampler/sdk/sampler"
)

const (
	// DefaultMaxIndexes 預設最多同時存在的索引數
	DefaultMaxIndexes = 1024
	// MaxSamplesPerCall 單次抽樣上限
	MaxSamplesPerCall = 1_000_000
	// MaxCategories 單一索引的類別數上限
	MaxCategories = 1 << 24
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// Registry 具名索引表
type Registry struct {
	mu      sync.RWMutex
	cf      core.PRNGFactory
	max     int
	entries map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	name    string
	kind    sampler.Kind
	d       sampler.Dynamic
	c       *core.Core
	seed    int64
	created time.Time
	picks   atomic.Uint64
	updates atomic.Uint64
}

// Info 索引的狀態快照
type Info struct {
	Name    string    `json:"name"`
	Kind    string    `json:"kind"`
	Len     int       `json:"len"`
	Total   uint64    `json:"total"`
	Levels  int       `json:"levels,omitempty"`
	Buckets int       `json:"buckets,omitempty"`
	Seed    int64     `json:"seed"`
	Picks   uint64    `json:"picks"`
	Updates uint64    `json:"updates"`
	Created time.Time `json:"created"`
	Valid   bool      `json:"valid"`
	Invalid string    `json:"invalid,omitempty"`
}

// NewRegistry 建立索引表。cf 為 nil 時使用 core.Default()，maxIndexes <= 0 時使用 DefaultMaxIndexes。
func NewRegistry(cf core.PRNGFactory, maxIndexes int) *Registry {
	if cf == nil {
		cf = core.Default()
	}
	if maxIndexes <= 0 {
		maxIndexes = DefaultMaxIndexes
	}
	return &Registry{
		cf:      cf,
		max:     maxIndexes,
		entries: make(map[string]*entry),
	}
}

// Create 建立索引。seed 為 nil 時隨機產生，實際使用的種子記錄在 Info.Seed。
//
// 錯誤：名稱不合法、類別數超過 MaxCategories、權重不合法 (Warn)；
// 名稱重複、索引數已滿 (CodeConflict)。
func (r *Registry) Create(name string, kind sampler.Kind, weights []uint64, seed *int64) (Info, error) {
	if !namePattern.MatchString(name) {
		return Info{}, errs.Coded(errs.Warn, errs.CodeInvalidArg, "invalid index name %q", name)
	}
	if len(weights) > MaxCategories {
		return Info{}, errs.Coded(errs.Warn, errs.CodeInvalidArg, "too many categories: %d > %d", len(weights), MaxCategories)
	}
	d, err := sampler.New(kind, weights)
	if err != nil {
		return Info{}, errs.Wrap(err, "create index "+name)
	}
	s := core.RandomSeed()
	if seed != nil {
		s = *seed
	}
	e := &entry{
		name:    name,
		kind:    kind,
		d:       d,
		c:       core.New(r.cf.New(s)),
		seed:    s,
		created: time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return Info{}, errs.Coded(errs.Warn, errs.CodeConflict, "index %q already exists", name)
	}
	if len(r.entries) >= r.max {
		return Info{}, errs.Coded(errs.Warn, errs.CodeConflict, "index limit %d reached", r.max)
	}
	r.entries[name] = e
	return e.info(false), nil
}

func (r *Registry) get(name string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.Coded(errs.Warn, errs.CodeNotFound, "index %q not found", name)
	}
	return e, nil
}

// Info 回傳索引狀態；validate 為 true 時對 BucketIndex 做完整的一致性檢查。
func (r *Registry) Info(name string, validate bool) (Info, error) {
	e, err := r.get(name)
	if err != nil {
		return Info{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info(validate), nil
}

// Names 依字典序回傳所有索引名稱
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Len 目前索引數
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sample 從索引抽 n 次
func (r *Registry) Sample(name string, n int) ([]int, error) {
	var out []int
	err := r.draw(name, n, func(d sampler.Dynamic, c *core.Core) {
		out = make([]int, n)
		for i := range out {
			out[i] = d.Pick(c)
		}
	})
	return out, err
}

// SampleCounts 抽 n 次並回傳每個類別的次數，抽樣與類別數讀取在同一把鎖內完成。
func (r *Registry) SampleCounts(name string, n int) ([]uint64, error) {
	var counts []uint64
	err := r.draw(name, n, func(d sampler.Dynamic, c *core.Core) {
		counts = make([]uint64, d.Len())
		for range n {
			counts[d.Pick(c)]++
		}
	})
	return counts, err
}

func (r *Registry) draw(name string, n int, fn func(sampler.Dynamic, *core.Core)) error {
	if n < 1 || n > MaxSamplesPerCall {
		return errs.Coded(errs.Warn, errs.CodeInvalidArg, "n must be between 1 and %d", MaxSamplesPerCall)
	}
	e, err := r.get(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.d.Total() == 0 {
		return errs.Coded(errs.Warn, errs.CodeInvalidArg, "index %q has zero total weight", name)
	}
	fn(e.d, e.c)
	e.picks.Add(uint64(n))
	return nil
}

// Update 設定單一類別的權重，回傳更新後的狀態
func (r *Registry) Update(name string, idx int, w uint64) (Info, error) {
	return r.mutate(name, func(d sampler.Dynamic) error { return d.Update(idx, w) })
}

// DeltaUpdate 調整單一類別的權重，結果為負時回傳錯誤且索引不變
func (r *Registry) DeltaUpdate(name string, idx int, delta int64) (Info, error) {
	return r.mutate(name, func(d sampler.Dynamic) error { return d.DeltaUpdate(idx, delta) })
}

func (r *Registry) mutate(name string, op func(sampler.Dynamic) error) (Info, error) {
	e, err := r.get(name)
	if err != nil {
		return Info{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := op(e.d); err != nil {
		return Info{}, errs.Wrap(err, "index "+name)
	}
	e.updates.Add(1)
	return e.info(false), nil
}

// Weights 回傳索引目前的權重向量
func (r *Registry) Weights(name string) ([]uint64, error) {
	e, err := r.get(name)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]uint64, e.d.Len())
	for i := range out {
		out[i] = e.d.Weight(i)
	}
	return out, nil
}

// Delete 移除索引
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		return errs.Coded(errs.Warn, errs.CodeNotFound, "index %q not found", name)
	}
	delete(r.entries, name)
	return nil
}

// Multinomial 以獨立的亂數源產生多項分佈計數，回傳實際使用的種子
func (r *Registry) Multinomial(m multinomial.Method, n int, dist []float64, seed *int64) ([]uint64, int64, error) {
	if n > MaxSamplesPerCall {
		switch m {
		case multinomial.MethodRelles, multinomial.MethodRellesEnhanced, multinomial.MethodBinomial:
			// 成本與 n 無關
		default:
			return nil, 0, errs.Coded(errs.Warn, errs.CodeInvalidArg, "method %s is O(n); n must be <= %d", m, MaxSamplesPerCall)
		}
	}
	s := core.RandomSeed()
	if seed != nil {
		s = *seed
	}
	out, err := multinomial.Sample(m, core.New(r.cf.New(s)), n, dist)
	if err != nil {
		return nil, 0, err
	}
	return out, s, nil
}

// info 呼叫端須持有 e.mu
func (e *entry) info(validate bool) Info {
	in := Info{
		Name:    e.name,
		Kind:    e.kind.String(),
		Len:     e.d.Len(),
		Total:   e.d.Total(),
		Seed:    e.seed,
		Picks:   e.picks.Load(),
		Updates: e.updates.Load(),
		Created: e.created,
		Valid:   true,
	}
	if b, ok := e.d.(*sampler.BucketIndex); ok {
		in.Levels = b.Levels()
		in.Buckets = b.Buckets()
		if validate {
			if err := b.Validate(); err != nil {
				in.Valid = false
				in.Invalid = err.Error()
			}
		}
	}
	return in
}
