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

package stats

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// Printer 回傳帶千分位的 printer，所有表格數字都經過它
func Printer() *message.Printer {
	return message.NewPrinter(lang)
}

// FormatDuration 耗時與吞吐量，例如 "used: 1.23 seconds | 812,345 ops/sec"
func FormatDuration(d time.Duration, ops int) string {
	p := Printer()
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	rate := int(float64(ops) / sec)
	if sec < 60.0 {
		return p.Sprintf("used: %.2f seconds | %d ops/sec", sec, rate)
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		return p.Sprintf("used: %dm %ds | %d ops/sec", m, s, rate)
	}
	return p.Sprintf("used: %dh:%dm:%ds | %d ops/sec", h, m, s, rate)
}

// FmtTable 兩欄 key / value 表格
func FmtTable(title string, keys []string, msg map[string]string) string {
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, msg[k]})
	}
	return FmtGrid(title, nil, rows)
}

// FmtGrid 多欄表格。header 可為 nil；欄寬以 runewidth 計算，支援全形字。
func FmtGrid(title string, header []string, rows [][]string) string {
	cols := len(header)
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return ""
	}
	widths := make([]int, cols)
	measure := func(r []string) {
		for i, cell := range r {
			widths[i] = max(widths[i], runewidth.StringWidth(cell)+2)
		}
	}
	measure(header)
	for _, r := range rows {
		measure(r)
	}

	totalInner := cols - 1
	for _, w := range widths {
		totalInner += w
	}
	titleW := runewidth.StringWidth(title)
	if titleW+2 > totalInner {
		widths[cols-1] += titleW + 2 - totalInner
		totalInner = titleW + 2
	}

	var sb strings.Builder
	divider := "+"
	for _, w := range widths {
		divider += strings.Repeat("-", w) + "+"
	}
	divider += "\n"
	line := func(r []string) {
		sb.WriteString("|")
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(r) {
				cell = r[i]
			}
			sb.WriteString(" " + cell + blank(widths[i]-2-runewidth.StringWidth(cell)) + " |")
		}
		sb.WriteString("\n")
	}

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left
	sb.WriteString("+" + strings.Repeat("-", totalInner) + "+\n")
	sb.WriteString("|" + blank(left) + title + blank(right) + "|\n")
	sb.WriteString(divider)
	if len(header) > 0 {
		line(header)
		sb.WriteString(divider)
	}
	for _, r := range rows {
		line(r)
	}
	sb.WriteString(divider)
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
