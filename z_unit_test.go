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

package dynsampler

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/zintix-labs/dynsampler/errs"
	"github.com/zintix-labs/dynsampler/sdk/multinomial"
	"github.com/zintix-labs/dynsampler/sdk/sampler"
)

func seedPtr(v int64) *int64 { return &v }

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry(nil, 0)
	info, err := reg.Create("urn", sampler.KindBucket, []uint64{1, 1, 1, 1}, seedPtr(7))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := Info{Name: "urn", Kind: "bucket", Len: 4, Total: 4, Levels: 2, Buckets: 2, Seed: 7, Valid: true}
	if diff := cmp.Diff(want, info, cmpopts.IgnoreFields(Info{}, "Created")); diff != "" {
		t.Fatalf("info (-want +got):\n%s", diff)
	}

	if _, err := reg.Update("urn", 0, 10000); err != nil {
		t.Fatalf("update: %v", err)
	}
	samples, err := reg.Sample("urn", 10000)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	zero := 0
	for _, s := range samples {
		if s == 0 {
			zero++
		}
	}
	if float64(zero)/10000 <= 0.99 {
		t.Fatalf("category 0 frequency %.4f", float64(zero)/10000)
	}

	info, err = reg.DeltaUpdate("urn", 1, -1)
	if err != nil {
		t.Fatalf("delta: %v", err)
	}
	if info.Total != 10002 || info.Updates != 2 || info.Picks != 10000 {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := reg.DeltaUpdate("urn", 1, -1); !errors.Is(err, errs.ErrNegativeWeight) {
		t.Fatalf("expected negative weight error, got %v", err)
	}
	weights, _ := reg.Weights("urn")
	if diff := cmp.Diff([]uint64{10000, 0, 1, 1}, weights); diff != "" {
		t.Fatalf("weights (-want +got):\n%s", diff)
	}
	if info, _ := reg.Info("urn", true); !info.Valid {
		t.Fatalf("index failed validation: %s", info.Invalid)
	}

	if err := reg.Delete("urn"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := reg.Info("urn", false); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := reg.Delete("urn"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRegistrySameSeedSameSamples(t *testing.T) {
	reg := NewRegistry(nil, 0)
	for _, name := range []string{"a", "b"} {
		if _, err := reg.Create(name, sampler.KindAlias, []uint64{5, 1, 9, 3}, seedPtr(42)); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	a, _ := reg.Sample("a", 500)
	b, _ := reg.Sample("b", 500)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed diverged:\n%s", diff)
	}
}

func TestRegistrySampleCounts(t *testing.T) {
	reg := NewRegistry(nil, 0)
	if _, err := reg.Create("c", sampler.KindSumTree, []uint64{0, 3, 1}, seedPtr(9)); err != nil {
		t.Fatalf("create: %v", err)
	}
	counts, err := reg.SampleCounts("c", 4000)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if len(counts) != 3 || counts[0] != 0 || counts[1]+counts[2] != 4000 || counts[1] < counts[2] {
		t.Fatalf("counts %v", counts)
	}
	if info, _ := reg.Info("c", false); info.Picks != 4000 {
		t.Fatalf("picks = %d", info.Picks)
	}
	if _, err := reg.SampleCounts("c", 0); !errors.Is(err, errs.ErrInvalidArg) {
		t.Fatalf("expected invalid arg, got %v", err)
	}

	// 與 Delete 並行時只會得到完整的次數或 NotFound
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 200 {
			counts, err := reg.SampleCounts("c", 10)
			if err != nil {
				if !errors.Is(err, errs.ErrNotFound) {
					t.Errorf("unexpected error %v", err)
				}
				return
			}
			if len(counts) != 3 || counts[1]+counts[2] != 10 {
				t.Errorf("partial counts %v", counts)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		_ = reg.Delete("c")
	}()
	wg.Wait()
}

func TestRegistryErrors(t *testing.T) {
	reg := NewRegistry(nil, 2)
	cases := map[string]struct {
		name    string
		weights []uint64
		code    error
	}{
		"bad name":    {"has space", []uint64{1}, errs.ErrInvalidArg},
		"empty name":  {"", []uint64{1}, errs.ErrInvalidArg},
		"no weights":  {"x", nil, errs.ErrInvalidArg},
		"overflow":    {"x", []uint64{1 << 63, 1}, errs.ErrOverflow},
		"path escape": {"../x", []uint64{1}, errs.ErrInvalidArg},
	}
	for label, tc := range cases {
		if _, err := reg.Create(tc.name, sampler.KindBucket, tc.weights, nil); !errors.Is(err, tc.code) {
			t.Errorf("[%s] got %v", label, err)
		}
	}

	if _, err := reg.Create("one", sampler.KindSumTree, []uint64{0, 0}, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := reg.Create("one", sampler.KindBucket, []uint64{1}, nil); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("duplicate: got %v", err)
	}
	if _, err := reg.Create("two", sampler.KindBucket, []uint64{1}, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := reg.Create("three", sampler.KindBucket, []uint64{1}, nil); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("limit: got %v", err)
	}
	if _, err := reg.Sample("one", 1); !errors.Is(err, errs.ErrInvalidArg) {
		t.Fatalf("zero total: got %v", err)
	}
	if _, err := reg.Sample("two", 0); !errors.Is(err, errs.ErrInvalidArg) {
		t.Fatalf("n=0: got %v", err)
	}
	if _, err := reg.Sample("missing", 1); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("missing: got %v", err)
	}
	if _, err := reg.Update("two", 5, 1); !errors.Is(err, errs.ErrOutOfRange) {
		t.Fatalf("out of range: got %v", err)
	}
	if diff := cmp.Diff([]string{"one", "two"}, reg.Names()); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
}

// TestRegistryConcurrent 多個 goroutine 同時更新與抽樣同一索引，最後結構仍一致
func TestRegistryConcurrent(t *testing.T) {
	reg := NewRegistry(nil, 0)
	weights := make([]uint64, 64)
	for i := range weights {
		weights[i] = uint64(i + 1)
	}
	if _, err := reg.Create("shared", sampler.KindBucket, weights, seedPtr(1)); err != nil {
		t.Fatalf("create: %v", err)
	}
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if _, err := reg.DeltaUpdate("shared", (g*31+i)%64, 1); err != nil {
					t.Errorf("delta: %v", err)
					return
				}
				if _, err := reg.Sample("shared", 10); err != nil {
					t.Errorf("sample: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	info, err := reg.Info("shared", true)
	if err != nil || !info.Valid {
		t.Fatalf("after concurrent use: %+v, %v", info, err)
	}
	if info.Total != 64*65/2+8*200 || info.Picks != 8*200*10 {
		t.Fatalf("unexpected totals %+v", info)
	}
}

func TestRegistryMultinomial(t *testing.T) {
	reg := NewRegistry(nil, 0)
	out, seed, err := reg.Multinomial(multinomial.MethodRelles, 1000, []float64{0.5, 0.5}, seedPtr(3))
	if err != nil || seed != 3 {
		t.Fatalf("multinomial: %v seed=%d", err, seed)
	}
	if out[0]+out[1] != 1000 {
		t.Fatalf("counts %v", out)
	}
	again, _, _ := reg.Multinomial(multinomial.MethodRelles, 1000, []float64{0.5, 0.5}, seedPtr(3))
	if diff := cmp.Diff(out, again); diff != "" {
		t.Fatalf("same seed diverged:\n%s", diff)
	}
	if _, _, err := reg.Multinomial(multinomial.MethodFullUniform, MaxSamplesPerCall+1, []float64{1}, nil); !errors.Is(err, errs.ErrInvalidArg) {
		t.Fatalf("O(n) method with huge n: got %v", err)
	}
	if _, _, err := reg.Multinomial(multinomial.MethodBinomial, 1<<40, []float64{1}, nil); err != nil {
		t.Fatalf("binomial with huge n: %v", err)
	}
}
