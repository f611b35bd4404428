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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/zintix-labs/dynsampler"
	"github.com/zintix-labs/dynsampler/sdk/core"
	"github.com/zintix-labs/dynsampler/server"
	"github.com/zintix-labs/dynsampler/server/logger"
	"github.com/zintix-labs/dynsampler/server/svrcfg"
)

// 抽樣服務入口。-dev 會額外開放 /dev 端點 (探測、meta)，正式環境不要開。
func main() {
	sCfg, closeLog, err := loadConfigFromFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	err = server.Run(sCfg)
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

type config struct {
	Addr       string
	LogMode    string
	MaxIndexes int
	Dev        bool
}

func loadConfigFromFlags() (*svrcfg.SvrCfg, func(), error) {
	cfg := new(config)
	flag.StringVar(&cfg.Addr, "addr", ":5808", "listen address")
	flag.StringVar(&cfg.LogMode, "log-mode", "ModeProd", "log mode: ModeDev|ModeProd|ModeSilence")
	flag.IntVar(&cfg.MaxIndexes, "max-indexes", dynsampler.DefaultMaxIndexes, "maximum number of live indexes")
	flag.BoolVar(&cfg.Dev, "dev", false, "enable developer endpoints")
	flag.Parse()

	mode, ok := logger.ParseMode(cfg.LogMode)
	if !ok {
		return nil, nil, fmt.Errorf("unknown log mode %q", cfg.LogMode)
	}
	if cfg.MaxIndexes < 1 {
		return nil, nil, fmt.Errorf("max-indexes must be >= 1")
	}
	log, ah := logger.NewAsync(4096, mode)

	sCfg := &svrcfg.SvrCfg{
		Log:      log,
		Addr:     cfg.Addr,
		Mode:     svrcfg.ModeProd,
		Registry: dynsampler.NewRegistry(core.Default(), cfg.MaxIndexes),
	}
	if cfg.Dev {
		sCfg.Mode = svrcfg.ModeDev
	}
	return sCfg, ah.Close, nil
}
