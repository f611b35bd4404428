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
	_ "embed"
	"os"

	"github.com/zintix-labs/dynsampler/errs"
	"github.com/zintix-labs/dynsampler/sdk/multinomial"
	"github.com/zintix-labs/dynsampler/sdk/sampler"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Scenario 類別抽樣器的情境
type Scenario string

const (
	ScenarioStatic             Scenario = "static"
	ScenarioPolya              Scenario = "polya"
	ScenarioWithoutReplacement Scenario = "without_replacement"
	ScenarioRandom             Scenario = "random"
)

// Config 一次基準執行的完整設定
type Config struct {
	Seed        int64             `yaml:"seed"`
	Repetitions int               `yaml:"repetitions"`
	Progress    bool              `yaml:"progress"`
	Categorical CategoricalConfig `yaml:"categorical"`
	Multinomial MultinomialConfig `yaml:"multinomial"`
}

type CategoricalConfig struct {
	Kinds     []sampler.Kind   `yaml:"kinds"`
	Picks     int              `yaml:"picks"`
	Scenarios []ScenarioConfig `yaml:"scenarios"`
}

type ScenarioConfig struct {
	Name       Scenario `yaml:"name"`
	Sizes      []int    `yaml:"sizes"`
	UpdateProb float64  `yaml:"update_prob,omitempty"`
}

type MultinomialConfig struct {
	Methods     []multinomial.Method `yaml:"methods"`
	Ks          []int                `yaml:"ks"`
	Ns          []int                `yaml:"ns"`
	LinearLimit int                  `yaml:"linear_limit"`
}

// DefaultConfig 回傳內嵌的預設設定
func DefaultConfig() *Config {
	cfg, err := ParseConfig(defaultYAML)
	if err != nil {
		// 內嵌檔案由測試保證正確
		panic(err)
	}
	return cfg
}

// LoadConfig 讀取 YAML 設定檔；path 為空字串時使用內嵌預設
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, "read bench config")
	}
	return ParseConfig(data)
}

// ParseConfig 解析並檢查 YAML 設定
func ParseConfig(data []byte) (*Config, error) {
	cfg := new(Config)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshal bench config")
	}
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Valid 檢查設定，所有錯誤都是 Warn 級
func (cfg *Config) Valid() error {
	if cfg.Repetitions < 1 {
		return errs.Coded(errs.Warn, errs.CodeInvalidArg, "repetitions must be >= 1")
	}
	cc := &cfg.Categorical
	if len(cc.Scenarios) > 0 {
		if len(cc.Kinds) == 0 {
			return errs.Coded(errs.Warn, errs.CodeInvalidArg, "categorical: kinds must not be empty")
		}
		if cc.Picks < 1 {
			return errs.Coded(errs.Warn, errs.CodeInvalidArg, "categorical: picks must be >= 1")
		}
	}
	for _, sc := range cc.Scenarios {
		switch sc.Name {
		case ScenarioStatic, ScenarioPolya:
		case ScenarioWithoutReplacement:
			for _, m := range sc.Sizes {
				if m > 0 && cc.Picks%m != 0 {
					return errs.Coded(errs.Warn, errs.CodeInvalidArg, "%s: picks %d not divisible by size %d", sc.Name, cc.Picks, m)
				}
			}
		case ScenarioRandom:
			if sc.UpdateProb < 0 || sc.UpdateProb > 1 {
				return errs.Coded(errs.Warn, errs.CodeInvalidArg, "%s: update_prob must be in [0,1]", sc.Name)
			}
		default:
			return errs.Coded(errs.Warn, errs.CodeInvalidArg, "unknown scenario %q", sc.Name)
		}
		for _, m := range sc.Sizes {
			if m < 1 {
				return errs.Coded(errs.Warn, errs.CodeInvalidArg, "%s: size must be >= 1", sc.Name)
			}
		}
	}

	mc := &cfg.Multinomial
	for i, m := range mc.Methods {
		v, err := multinomial.ParseMethod(string(m))
		if err != nil {
			return errs.Wrap(err, "multinomial")
		}
		mc.Methods[i] = v
	}
	for _, k := range mc.Ks {
		if k < 1 {
			return errs.Coded(errs.Warn, errs.CodeInvalidArg, "multinomial: k must be >= 1")
		}
	}
	for _, n := range mc.Ns {
		if n < 0 {
			return errs.Coded(errs.Warn, errs.CodeInvalidArg, "multinomial: n must be >= 0")
		}
	}
	if mc.LinearLimit < 0 {
		return errs.Coded(errs.Warn, errs.CodeInvalidArg, "multinomial: linear_limit must be >= 0")
	}
	return nil
}
