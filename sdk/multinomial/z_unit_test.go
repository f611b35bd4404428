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

package multinomial

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zintix-labs/dynsampler/errs"
	"github.com/zintix-labs/dynsampler/sdk/core"
	"github.com/zintix-labs/dynsampler/stats"
)

func sumOf(v []uint64) uint64 {
	s := uint64(0)
	for _, x := range v {
		s += x
	}
	return s
}

// TestConservation 每個方法輸出總和都等於 n，機率 0 的類別計數為 0
func TestConservation(t *testing.T) {
	dists := map[string][]float64{
		"single":        {1},
		"uniform":       {0.25, 0.25, 0.25, 0.25},
		"leading zero":  {0, 0.5, 0.5},
		"trailing zero": {0.3, 0.7, 0, 0},
		"inner zero":    {0.1, 0, 0.2, 0, 0.7},
		"tenths":        {0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1},
	}
	c := core.NewSeeded(1)
	for _, m := range Methods() {
		for name, dist := range dists {
			for _, n := range []int{0, 1, 7, 1000, 100000} {
				out, err := Sample(m, c, n, dist)
				if err != nil {
					t.Fatalf("[%s/%s] n=%d: %v", m, name, n, err)
				}
				if len(out) != len(dist) {
					t.Fatalf("[%s/%s] got %d categories", m, name, len(out))
				}
				if got := sumOf(out); got != uint64(n) {
					t.Fatalf("[%s/%s] sum %d != n %d: %v", m, name, got, n, out)
				}
				for i, p := range dist {
					if p == 0 && out[i] != 0 {
						t.Fatalf("[%s/%s] zero-probability category %d got %d", m, name, i, out[i])
					}
				}
			}
		}
	}
}

// TestDistribution 多次重複後的總計數通過卡方檢定
func TestDistribution(t *testing.T) {
	dist := []float64{0.1, 0.2, 0, 0.3, 0.4}
	weights := []uint64{1, 2, 0, 3, 4}
	for _, m := range Methods() {
		c := core.NewSeeded(7)
		agg := make([]uint64, len(dist))
		for rep := 0; rep < 200; rep++ {
			out, err := Sample(m, c, 500, dist)
			if err != nil {
				t.Fatalf("[%s] %v", m, err)
			}
			for i, x := range out {
				agg[i] += x
			}
		}
		res, err := stats.ChiSquare(agg, weights)
		if err != nil {
			t.Fatalf("[%s] chi-square: %v", m, err)
		}
		if res.ZeroHits != 0 || res.PValue < 1e-4 {
			t.Errorf("[%s] distribution mismatch: %+v counts=%v", m, res, agg)
		}
	}
}

// TestVarianceMatchesBinomial 單一類別計數的變異數接近 n p (1-p)
// 只看總和會漏掉「平均正確但相關結構錯誤」的實作
func TestVarianceMatchesBinomial(t *testing.T) {
	const (
		n    = 2000
		reps = 1000
		p    = 0.3
	)
	dist := []float64{0.5, p, 0.2}
	want := n * p * (1 - p)
	for _, m := range Methods() {
		c := core.NewSeeded(11)
		sum, sq := 0.0, 0.0
		for rep := 0; rep < reps; rep++ {
			out, err := Sample(m, c, n, dist)
			if err != nil {
				t.Fatalf("[%s] %v", m, err)
			}
			x := float64(out[1])
			sum += x
			sq += x * x
		}
		mean := sum / reps
		variance := (sq - sum*sum/reps) / (reps - 1)
		if math.Abs(mean-n*p) > 3 {
			t.Errorf("[%s] mean %.2f want %.2f", m, mean, n*p)
		}
		if math.Abs(variance-want)/want > 0.15 {
			t.Errorf("[%s] variance %.2f want %.2f", m, variance, want)
		}
	}
}

// TestDeterministic 相同種子相同輸出
func TestDeterministic(t *testing.T) {
	dist := []float64{0.05, 0.15, 0.3, 0.5}
	for _, m := range Methods() {
		a, _ := Sample(m, core.NewSeeded(99), 12345, dist)
		b, _ := Sample(m, core.NewSeeded(99), 12345, dist)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("[%s] same seed diverged:\n%s", m, diff)
		}
	}
}

func TestInvalidInput(t *testing.T) {
	cases := map[string]struct {
		n    int
		dist []float64
	}{
		"empty":      {10, nil},
		"negative":   {10, []float64{1.5, -0.5}},
		"nan":        {10, []float64{math.NaN(), 1}},
		"inf":        {10, []float64{math.Inf(1)}},
		"short sum":  {10, []float64{0.5, 0.4}},
		"long sum":   {10, []float64{0.5, 0.6}},
		"negative n": {-1, []float64{1}},
	}
	c := core.NewSeeded(1)
	for _, m := range Methods() {
		for name, tc := range cases {
			out, err := Sample(m, c, tc.n, tc.dist)
			if !errors.Is(err, errs.ErrInvalidArg) || out != nil {
				t.Errorf("[%s/%s] expected invalid argument, got %v, %v", m, name, out, err)
			}
		}
	}
	if _, err := checkDist(1, []float64{0.5, 0.5 + 1e-10}); err != nil {
		t.Fatalf("sum within tolerance must be accepted: %v", err)
	}
}

func TestParseMethod(t *testing.T) {
	for _, m := range Methods() {
		got, err := ParseMethod(" " + string(m))
		if err != nil || got != m {
			t.Fatalf("ParseMethod(%s) = %v, %v", m, got, err)
		}
	}
	if _, err := ParseMethod("btpe"); !errors.Is(err, errs.ErrInvalidArg) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if _, err := Sample("btpe", core.NewSeeded(1), 1, []float64{1}); err == nil {
		t.Fatalf("unknown method must fail")
	}
}

// TestRellesLargeN 大 n 時只產生少量順序統計量
func TestRellesLargeN(t *testing.T) {
	dist := []float64{0.2, 0.3, 0.5}
	c := core.NewSeeded(5)
	for _, f := range []Func{Relles, RellesEnhanced, Binomial} {
		out, err := f(c, 1<<40, dist)
		if err != nil {
			t.Fatalf("%v", err)
		}
		if sumOf(out) != 1<<40 {
			t.Fatalf("sum %d", sumOf(out))
		}
		for i, p := range dist {
			got := float64(out[i]) / float64(1<<40)
			if math.Abs(got-p) > 1e-4 {
				t.Fatalf("category %d share %.6f want %.2f", i, got, p)
			}
		}
	}
}
