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

// Package perf 包裝 runtime/pprof，讓 cmd/bench 可以用一個 flag 取得 profile。
//
// 產出的 cpu.pprof 也可以直接當 PGO 的輸入 (default.pgo)。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/dynsampler/errs"
)

// Dir profile 寫入的目錄
var Dir = "build/profiling"

// Mode profile 種類
type Mode string

const (
	ModeNone   Mode = ""
	ModeCPU    Mode = "cpu"
	ModeHeap   Mode = "heap"
	ModeAllocs Mode = "allocs"
)

// RunPProf 依 mode 包住 exe 執行；未知或空的 mode 直接執行 exe。
// profile 寫檔失敗時 panic，與 cmd 的 log.Fatal 風格一致。
func RunPProf(exe func(), mode string) {
	if err := Profile(exe, Mode(mode)); err != nil {
		panic(err)
	}
}

// Profile 與 RunPProf 相同，但回傳錯誤
func Profile(exe func(), mode Mode) error {
	switch mode {
	case ModeCPU:
		return cpu(exe)
	case ModeHeap:
		exe()
		runtime.GC() // 讓快照只剩存活物件
		return snapshot("heap")
	case ModeAllocs:
		exe()
		return snapshot("allocs")
	default:
		exe()
		return nil
	}
}

func create(name string) (*os.File, error) {
	if err := os.MkdirAll(Dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "create profiling dir")
	}
	f, err := os.Create(filepath.Join(Dir, name+".pprof"))
	if err != nil {
		return nil, errs.Wrap(err, "create "+name+".pprof")
	}
	return f, nil
}

func cpu(exe func()) error {
	f, err := create("cpu")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "start cpu profile")
	}
	defer pprof.StopCPUProfile()
	exe()
	return nil
}

// snapshot 寫出 heap 或 allocs。allocs 是累積配置，要用 -sample_index=alloc_space 查看。
func snapshot(name string) error {
	prof := pprof.Lookup(name)
	if prof == nil {
		return errs.NewFatal("unknown profile " + name)
	}
	f, err := create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := prof.WriteTo(f, 0); err != nil {
		return errs.Wrap(err, "write "+name+" profile")
	}
	return nil
}
