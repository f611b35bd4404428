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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zintix-labs/dynsampler/errs"
	"github.com/zintix-labs/dynsampler/sdk/core"
	"github.com/zintix-labs/dynsampler/sdk/multinomial"
	"github.com/zintix-labs/dynsampler/sdk/sampler"
	"github.com/zintix-labs/dynsampler/server/logger"
	"github.com/zintix-labs/dynsampler/stats"
	"gopkg.in/yaml.v3"
)

const smallYAML = `
seed: 17
repetitions: 3
progress: false
categorical:
  kinds: [bucket, sumtree]
  picks: 600
  scenarios:
    - name: static
      sizes: [10]
    - name: polya
      sizes: [10]
    - name: without_replacement
      sizes: [6, 60]
    - name: random
      sizes: [5]
      update_prob: 0.3
multinomial:
  methods: [binomial, full_uniform]
  ks: [4]
  ns: [100, 100000]
  linear_limit: 1000
`

func smallConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := ParseConfig([]byte(smallYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Repetitions != 5 || cfg.Seed != 0 || !cfg.Progress {
		t.Fatalf("unexpected default %+v", cfg)
	}
	if diff := cmp.Diff([]sampler.Kind{sampler.KindBucket, sampler.KindAlias, sampler.KindSumTree}, cfg.Categorical.Kinds); diff != "" {
		t.Fatalf("kinds (-want +got):\n%s", diff)
	}
	if len(cfg.Categorical.Scenarios) != 4 || cfg.Multinomial.LinearLimit != 10_000_000 {
		t.Fatalf("unexpected default %+v", cfg)
	}
	loaded, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Fatalf("LoadConfig(\"\") differs:\n%s", diff)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	if err := os.WriteFile(path, []byte(smallYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Seed != 17 || cfg.Categorical.Picks != 600 || cfg.Categorical.Scenarios[3].UpdateProb != 0.3 {
		t.Fatalf("unexpected %+v", cfg)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing file must fail")
	}
}

func TestConfigErrors(t *testing.T) {
	cases := map[string]string{
		"no reps":        "repetitions: 0",
		"bad kind":       "repetitions: 1\ncategorical: {kinds: [vose], picks: 1, scenarios: [{name: static, sizes: [1]}]}",
		"bad scenario":   "repetitions: 1\ncategorical: {kinds: [bucket], picks: 1, scenarios: [{name: urn, sizes: [1]}]}",
		"indivisible":    "repetitions: 1\ncategorical: {kinds: [bucket], picks: 10, scenarios: [{name: without_replacement, sizes: [3]}]}",
		"bad prob":       "repetitions: 1\ncategorical: {kinds: [bucket], picks: 1, scenarios: [{name: random, sizes: [1], update_prob: 2}]}",
		"zero size":      "repetitions: 1\ncategorical: {kinds: [bucket], picks: 1, scenarios: [{name: static, sizes: [0]}]}",
		"no picks":       "repetitions: 1\ncategorical: {kinds: [bucket], scenarios: [{name: static, sizes: [1]}]}",
		"bad method":     "repetitions: 1\nmultinomial: {methods: [btpe]}",
		"bad k":          "repetitions: 1\nmultinomial: {methods: [binomial], ks: [0]}",
		"negative limit": "repetitions: 1\nmultinomial: {linear_limit: -1}",
		"not yaml":       "repetitions: [",
	}
	for name, src := range cases {
		if _, err := ParseConfig([]byte(src)); err == nil {
			t.Errorf("[%s] expected error", name)
		}
	}
	if _, err := ParseConfig([]byte(cases["indivisible"])); !errors.Is(err, errs.ErrInvalidArg) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

// TestScenarios 每個情境在每種抽樣器上都能跑完，不會因權重歸零或負值而出錯
func TestScenarios(t *testing.T) {
	c := core.NewSeeded(3)
	scs := []ScenarioConfig{
		{Name: ScenarioStatic},
		{Name: ScenarioPolya},
		{Name: ScenarioWithoutReplacement},
		{Name: ScenarioRandom, UpdateProb: 0.5},
		{Name: ScenarioRandom, UpdateProb: 1},
	}
	for _, kind := range sampler.Kinds() {
		for _, sc := range scs {
			for _, m := range []int{1, 2, 50} {
				if err := categorical(c, kind, sc, 1000, m); err != nil {
					t.Fatalf("[%s/%s/m=%d] %v", kind, sc.Name, m, err)
				}
			}
		}
	}
}

func TestRandomDist(t *testing.T) {
	c := core.NewSeeded(1)
	for _, k := range []int{1, 10, 100000} {
		dist := randomDist(c, k)
		sum := 0.0
		for _, p := range dist {
			sum += p
		}
		if math.Abs(sum-1) > multinomial.Tolerance {
			t.Fatalf("k=%d sum %.12f", k, sum)
		}
	}
}

func TestRun(t *testing.T) {
	cfg := smallConfig(t)
	rep, err := Run(context.Background(), cfg, logger.NewDefaultLogger(logger.ModeSilence))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// categorical: (1+1+2+1) sizes x 2 kinds = 10
	// multinomial: binomial x 2 n + full_uniform x 1 n (100000 > linear_limit) = 3
	if len(rep.Cells) != 13 {
		t.Fatalf("got %d cells", len(rep.Cells))
	}
	if rep.Seed != 17 || rep.Repetitions != 3 || rep.Elapsed <= 0 {
		t.Fatalf("unexpected report header %+v", rep)
	}
	for _, c := range rep.Cells {
		if len(c.Seconds) != 3 || c.Summary.N != 3 || c.Summary.Mean < 0 || c.NsPerOp < 0 {
			t.Fatalf("bad cell %+v", c)
		}
		if c.Impl == string(multinomial.MethodFullUniform) && c.N > 1000 {
			t.Fatalf("linear method above limit was run: %+v", c)
		}
	}
	first, last := rep.Cells[0], rep.Cells[len(rep.Cells)-1]
	if first.Battery != BatteryCategorical || first.Scenario != "static" || first.Impl != "bucket" {
		t.Fatalf("unexpected first cell %+v", first)
	}
	if last.Battery != BatteryMultinomial || last.Size != 4 || last.N != 100000 {
		t.Fatalf("unexpected last cell %+v", last)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := Run(ctx, smallConfig(t), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if rep == nil || len(rep.Cells) != 0 {
		t.Fatalf("expected empty partial report, got %+v", rep)
	}
}

func TestReportFormats(t *testing.T) {
	rep, err := Run(context.Background(), smallConfig(t), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var table bytes.Buffer
	if err := rep.Write(&table, stats.FormatTable); err != nil {
		t.Fatal(err)
	}
	out := table.String()
	for _, want := range []string{"seed: 17", BatteryCategorical, BatteryMultinomial, "without_replacement", "100,000"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}

	var js bytes.Buffer
	if err := rep.Write(&js, stats.FormatJSON); err != nil {
		t.Fatal(err)
	}
	var back Report
	if err := json.Unmarshal(js.Bytes(), &back); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(back.Cells) != len(rep.Cells) || back.Cells[0].Summary.N != 3 {
		t.Fatalf("json round trip lost cells")
	}

	var ym bytes.Buffer
	if err := rep.Write(&ym, stats.FormatYAML); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ym.String(), "seconds: [") {
		t.Fatalf("seconds not in flow style:\n%s", ym.String())
	}
	var node map[string]any
	if err := yaml.Unmarshal(ym.Bytes(), &node); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if cells, ok := node["cells"].([]any); !ok || len(cells) != len(rep.Cells) {
		t.Fatalf("yaml cells %T", node["cells"])
	}

	if err := rep.Write(&table, "csv"); !errors.Is(err, errs.ErrInvalidArg) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
