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

// Package bench 量測各抽樣器在不同情境下的耗時。
//
// 類別抽樣器跑四種情境 (static / polya / without_replacement / random)，
// 多項分佈跑 k 與 n 的格點。每個格子重複 Repetitions 次，
// 以牆鐘時間記錄每次耗時，再交給 stats.Summarize 做摘要。
package bench

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/dynsampler/errs"
	"github.com/zintix-labs/dynsampler/sdk/core"
	"github.com/zintix-labs/dynsampler/sdk/multinomial"
	"github.com/zintix-labs/dynsampler/sdk/sampler"
	"github.com/zintix-labs/dynsampler/stats"
)

const (
	BatteryCategorical = "categorical"
	BatteryMultinomial = "multinomial"
)

// job 一個待量測的格子
type job struct {
	cell Cell
	run  func(c *core.Core) error
}

// Run 依 cfg 執行所有格子。
//
// 每次重複之間檢查 ctx；取消時回傳已完成格子的報表與錯誤。
// 每個格子使用 seed+格子序號 的獨立亂數源，同一份設定與種子可重現相同的抽樣序列。
func Run(ctx context.Context, cfg *Config, log *slog.Logger) (*Report, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = core.RandomSeed()
	}
	jobs := plan(cfg, log)
	rep := &Report{
		Seed:        seed,
		Repetitions: cfg.Repetitions,
		Started:     time.Now().UTC(),
		Cells:       make([]Cell, 0, len(jobs)),
	}
	log.Info("bench start", "seed", seed, "cells", len(jobs), "repetitions", cfg.Repetitions)

	bar := pb.StartNew(len(jobs) * cfg.Repetitions)
	if !cfg.Progress {
		bar.SetWriter(io.Discard)
	}
	defer bar.Finish()

	for i, j := range jobs {
		c := core.NewSeeded(seed + int64(i))
		secs := make([]float64, 0, cfg.Repetitions)
		for r := 0; r < cfg.Repetitions; r++ {
			if err := ctx.Err(); err != nil {
				rep.Elapsed = time.Since(rep.Started)
				return rep, errs.Wrap(err, "bench interrupted")
			}
			begin := time.Now()
			if err := j.run(c); err != nil {
				return rep, errs.Wrap(err, j.cell.label())
			}
			secs = append(secs, time.Since(begin).Seconds())
			bar.Increment()
		}
		cell := j.cell
		cell.Seconds = secs
		cell.Summary = stats.Summarize(secs)
		if cell.N > 0 {
			cell.NsPerOp = cell.Summary.Mean * 1e9 / float64(cell.N)
		}
		rep.Cells = append(rep.Cells, cell)
		log.Debug("bench cell", "cell", cell.label(), "mean", cell.Summary.Mean, "std", cell.Summary.Std)
	}
	rep.Elapsed = time.Since(rep.Started)
	log.Info("bench done", "elapsed", rep.Elapsed.String())
	return rep, nil
}

// plan 展開設定成格子清單，順序即報表順序
func plan(cfg *Config, log *slog.Logger) []job {
	var jobs []job
	cc := cfg.Categorical
	for _, sc := range cc.Scenarios {
		for _, m := range sc.Sizes {
			for _, kind := range cc.Kinds {
				jobs = append(jobs, job{
					cell: Cell{Battery: BatteryCategorical, Scenario: string(sc.Name), Impl: kind.String(), Size: m, N: cc.Picks},
					run: func(c *core.Core) error {
						return categorical(c, kind, sc, cc.Picks, m)
					},
				})
			}
		}
	}

	mc := cfg.Multinomial
	for _, k := range mc.Ks {
		for _, n := range mc.Ns {
			for _, m := range mc.Methods {
				if linear(m) && mc.LinearLimit > 0 && n > mc.LinearLimit {
					log.Debug("bench skip linear method", "method", m, "k", k, "n", n)
					continue
				}
				jobs = append(jobs, job{
					cell: Cell{Battery: BatteryMultinomial, Scenario: "random_dist", Impl: string(m), Size: k, N: n},
					run: func(c *core.Core) error {
						_, err := multinomial.Sample(m, c, n, randomDist(c, k))
						return err
					},
				})
			}
		}
	}
	return jobs
}

// Kinds 方便 cmd 顯示可用的抽樣器
func Kinds() []string {
	out := make([]string, 0, len(sampler.Kinds()))
	for _, k := range sampler.Kinds() {
		out = append(out, k.String())
	}
	return out
}
