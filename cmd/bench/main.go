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
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/zintix-labs/dynsampler/bench"
	"github.com/zintix-labs/dynsampler/sdk/perf"
	"github.com/zintix-labs/dynsampler/server/logger"
	"github.com/zintix-labs/dynsampler/stats"
)

var cfg = new(config)

type config struct {
	path      string
	format    string
	out       string
	seed      int64
	reps      int
	quiet     bool
	logMode   string
	pprofmode string
}

func bindVar() {
	flag.StringVar(&cfg.path, "config", "", "bench config yaml (default: embedded)")
	flag.StringVar(&cfg.format, "format", "table", "output format: table|json|yaml")
	flag.StringVar(&cfg.out, "out", "", "output file (default: stdout)")
	flag.Int64Var(&cfg.seed, "seed", 0, "override seed; 0 keeps the config value")
	flag.IntVar(&cfg.reps, "reps", 0, "override repetitions; 0 keeps the config value")
	flag.BoolVar(&cfg.quiet, "q", false, "hide progress bar")
	flag.StringVar(&cfg.logMode, "log-mode", "ModeDev", "log mode: ModeDev|ModeProd|ModeSilence")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: bench [flags]\n\nsampler kinds: %s\n\n", strings.Join(bench.Kinds(), ", "))
		flag.PrintDefaults()
	}
	flag.Parse()
}

func main() {
	bindVar()
	perf.RunPProf(execute, cfg.pprofmode)
}

func execute() {
	mode, ok := logger.ParseMode(cfg.logMode)
	if !ok {
		log.Fatalf("unknown log mode %q", cfg.logMode)
	}
	lg, ah := logger.NewAsync(4096, mode)
	defer ah.Close()

	bc, err := bench.LoadConfig(cfg.path)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.seed != 0 {
		bc.Seed = cfg.seed
	}
	if cfg.reps > 0 {
		bc.Repetitions = cfg.reps
	}
	if cfg.quiet {
		bc.Progress = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, runErr := bench.Run(ctx, bc, lg)
	if rep == nil {
		ah.Close()
		log.Fatal(runErr)
	}
	if runErr != nil {
		lg.Warn("bench stopped early, writing partial report", "err", runErr)
	}

	var w io.Writer = os.Stdout
	if cfg.out != "" {
		f, err := os.Create(cfg.out)
		if err != nil {
			ah.Close()
			log.Fatal(err)
		}
		defer f.Close()
		w = f
	}
	if err := rep.Write(w, stats.Format(strings.ToLower(cfg.format))); err != nil {
		ah.Close()
		log.Fatal(err)
	}
}
