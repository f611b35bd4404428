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

package bench

import (
	"github.com/zintix-labs/dynsampler/sdk/core"
	"github.com/zintix-labs/dynsampler/sdk/multinomial"
	"github.com/zintix-labs/dynsampler/sdk/sampler"
)

// categorical 執行一次情境：建構抽樣器再做 picks 次操作，建構時間計入
func categorical(c *core.Core, kind sampler.Kind, sc ScenarioConfig, picks, m int) error {
	switch sc.Name {
	case ScenarioStatic:
		return staticRun(c, kind, picks, m)
	case ScenarioPolya:
		return polyaRun(c, kind, picks, m)
	case ScenarioWithoutReplacement:
		return withoutReplacementRun(c, kind, picks, m)
	default:
		return randomRun(c, kind, picks, m, sc.UpdateProb)
	}
}

// staticRun 權重為 [0,m) 的隨機整數，只抽樣
func staticRun(c *core.Core, kind sampler.Kind, picks, m int) error {
	w := make([]uint64, m)
	for i := range w {
		w[i] = uint64(c.IntN(m))
	}
	w[0]++ // 總和至少為 1
	d, err := sampler.New(kind, w)
	if err != nil {
		return err
	}
	for range picks {
		d.Pick(c)
	}
	return nil
}

// polyaRun 全 1 起始，抽到的類別權重 +1
func polyaRun(c *core.Core, kind sampler.Kind, picks, m int) error {
	d, err := sampler.New(kind, ones(m))
	if err != nil {
		return err
	}
	for range picks {
		if err := d.DeltaUpdate(d.Pick(c), 1); err != nil {
			return err
		}
	}
	return nil
}

// withoutReplacementRun 每類別 picks/m 顆球，抽到的類別權重 -1，最後剛好抽完
func withoutReplacementRun(c *core.Core, kind sampler.Kind, picks, m int) error {
	w := make([]uint64, m)
	for i := range w {
		w[i] = uint64(picks / m)
	}
	d, err := sampler.New(kind, w)
	if err != nil {
		return err
	}
	for range picks {
		if err := d.DeltaUpdate(d.Pick(c), -1); err != nil {
			return err
		}
	}
	return nil
}

// randomRun 以機率 p 把隨機類別設成 [0,m) 的隨機權重，否則抽樣
func randomRun(c *core.Core, kind sampler.Kind, picks, m int, p float64) error {
	d, err := sampler.New(kind, ones(m))
	if err != nil {
		return err
	}
	for range picks {
		if c.Bernoulli(p) {
			if err := d.Update(c.IntN(m), uint64(c.IntN(m))); err != nil {
				return err
			}
			continue
		}
		if d.Total() > 0 {
			d.Pick(c)
		}
	}
	return nil
}

func ones(m int) []uint64 {
	w := make([]uint64, m)
	for i := range w {
		w[i] = 1
	}
	return w
}

// randomDist k 個 U(0,1) 正規化後的機率向量
func randomDist(c *core.Core, k int) []float64 {
	dist := make([]float64, k)
	total := 0.0
	for i := range dist {
		dist[i] = c.Float64()
		total += dist[i]
	}
	if total == 0 {
		dist[0], total = 1, 1
	}
	for i := range dist {
		dist[i] /= total
	}
	return dist
}

// linear O(n) 的多項分佈方法
func linear(m multinomial.Method) bool {
	switch m {
	case multinomial.MethodRelles, multinomial.MethodRellesEnhanced, multinomial.MethodBinomial:
		return false
	default:
		return true
	}
}
