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
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zintix-labs/dynsampler/errs"
	"github.com/zintix-labs/dynsampler/stats"
)

// Report 一次基準執行的結果
type Report struct {
	Seed        int64         `json:"seed" yaml:"seed"`
	Repetitions int           `json:"repetitions" yaml:"repetitions"`
	Started     time.Time     `json:"started" yaml:"started"`
	Elapsed     time.Duration `json:"elapsed_ns" yaml:"elapsed_ns"`
	Cells       []Cell        `json:"cells" yaml:"cells"`
}

// Cell 單一格子的量測。Size 對類別抽樣器是類別數 m，對多項分佈是 k；
// N 是抽樣次數 (類別) 或試驗數 (多項分佈)。
type Cell struct {
	Battery  string        `json:"battery" yaml:"battery"`
	Scenario string        `json:"scenario" yaml:"scenario"`
	Impl     string        `json:"impl" yaml:"impl"`
	Size     int           `json:"size" yaml:"size"`
	N        int           `json:"n" yaml:"n"`
	Seconds  []float64     `json:"seconds" yaml:"seconds"`
	Summary  stats.Summary `json:"summary" yaml:"summary"`
	NsPerOp  float64       `json:"ns_per_op" yaml:"ns_per_op"`
}

func (c Cell) label() string {
	return fmt.Sprintf("%s/%s/%s/size=%d/n=%d", c.Battery, c.Scenario, c.Impl, c.Size, c.N)
}

// Write 依格式輸出報表
func (r *Report) Write(w io.Writer, f stats.Format) error {
	switch f {
	case stats.FormatTable, "":
		_, err := io.WriteString(w, r.Table())
		return err
	case stats.FormatJSON:
		return (&stats.JsonRender{Indent: true}).Write(w, r)
	case stats.FormatYAML:
		return (&stats.YAMLRender{}).Write(w, r)
	default:
		return errs.Coded(errs.Warn, errs.CodeInvalidArg, "unknown format %q", f)
	}
}

// Table 每個 battery 一張表，數字千分位
func (r *Report) Table() string {
	p := stats.Printer()
	sb := new(strings.Builder)
	sb.WriteString(p.Sprintf("seed: %d | repetitions: %d | %s\n", r.Seed, r.Repetitions, stats.FormatDuration(r.Elapsed, r.ops())))

	header := []string{"scenario", "impl", "size", "n", "mean (s)", "std (s)", "median (s)", "ns/op"}
	for _, battery := range []string{BatteryCategorical, BatteryMultinomial} {
		var rows [][]string
		for _, c := range r.Cells {
			if c.Battery != battery {
				continue
			}
			rows = append(rows, []string{
				c.Scenario,
				c.Impl,
				p.Sprintf("%d", c.Size),
				p.Sprintf("%d", c.N),
				p.Sprintf("%.6f", c.Summary.Mean),
				p.Sprintf("%.6f", c.Summary.Std),
				p.Sprintf("%.6f", c.Summary.Median),
				p.Sprintf("%.1f", c.NsPerOp),
			})
		}
		if len(rows) == 0 {
			continue
		}
		sb.WriteString(stats.FmtGrid(battery, header, rows))
	}
	return sb.String()
}

// ops 所有格子的總操作數，用於 ops/sec
func (r *Report) ops() int {
	total := 0
	for _, c := range r.Cells {
		total += c.N * len(c.Seconds)
	}
	return total
}
