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

// 開發用任務：go run ./scripts <task>
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

type task struct {
	name string
	help string
	run  func() error
}

var tasks = []task{
	{"test", "go test ./... (只顯示 ok/FAIL)", func() error { return goTest(false) }},
	{"test-detail", "go test ./... -v", func() error { return goTest(true) }},
	{"bench", "執行預設基準並輸出表格", func() error { return passthrough("go", "run", "./cmd/bench", "-log-mode", "ModeSilence") }},
	{"pgo", "以 cpu profile 跑基準，複製成 cmd/bench/default.pgo", pgo},
	{"svr", "啟動開發模式服務 (含 /dev 端點)", func() error { return passthrough("go", "run", "./cmd/svr", "-dev", "-log-mode", "ModeDev") }},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	i := slices.IndexFunc(tasks, func(t task) bool { return t.name == os.Args[1] })
	if i < 0 {
		PrintYellow("unknown task: " + os.Args[1])
		usage()
		os.Exit(1)
	}
	PrintGreen("running " + tasks[i].name)
	if err := tasks[i].run(); err != nil {
		PrintRed(fmt.Sprintf("%s failed: %v", tasks[i].name, err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: go run ./scripts <task>")
	for _, t := range tasks {
		fmt.Printf("  %-12s %s\n", t.name, t.help)
	}
}

func passthrough(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout, cmd.Stderr, cmd.Stdin = os.Stdout, os.Stderr, os.Stdin
	return cmd.Run()
}

// goTest 先清 test cache；verbose 為 false 時只保留 ok / FAIL 與建置錯誤
func goTest(verbose bool) error {
	if err := passthrough("go", "clean", "-testcache"); err != nil {
		return err
	}
	args := []string{"test", "./...", "-count=1"}
	if verbose {
		args = append(args, "-v")
	} else {
		args = append(args, "-cover")
	}
	cmd := exec.Command("go", args...)
	pr, pw := io.Pipe()
	cmd.Stdout, cmd.Stderr = pw, pw
	if err := cmd.Start(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		done <- err
	}()

	sc := bufio.NewScanner(pr)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.Contains(line, "[no test files]"):
		case strings.HasPrefix(line, "ok"):
			PrintGreen(line)
		case strings.HasPrefix(line, "FAIL"), strings.Contains(line, "build failed"), strings.Contains(line, "setup failed"):
			PrintRed(line)
		case verbose:
			fmt.Println(line)
		}
	}
	return <-done
}

func pgo() error {
	if err := passthrough("go", "run", "./cmd/bench", "-p", "cpu", "-q", "-log-mode", "ModeSilence", "-out", os.DevNull); err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join("build", "profiling", "cpu.pprof"))
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join("cmd", "bench", "default.pgo"), data, 0o644)
}
