package perf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProfileWritesFiles(t *testing.T) {
	old := Dir
	Dir = t.TempDir()
	defer func() { Dir = old }()

	for _, m := range []Mode{ModeCPU, ModeHeap, ModeAllocs} {
		ran := false
		if err := Profile(func() { ran = true }, m); err != nil {
			t.Fatalf("[%s] %v", m, err)
		}
		if !ran {
			t.Fatalf("[%s] exe not called", m)
		}
		st, err := os.Stat(filepath.Join(Dir, string(m)+".pprof"))
		if err != nil || st.Size() == 0 {
			t.Fatalf("[%s] profile missing: %v", m, err)
		}
	}
}

func TestProfileNoneRunsOnly(t *testing.T) {
	old := Dir
	Dir = filepath.Join(t.TempDir(), "unused")
	defer func() { Dir = old }()

	calls := 0
	RunPProf(func() { calls++ }, "")
	RunPProf(func() { calls++ }, "block")
	if calls != 2 {
		t.Fatalf("calls = %d", calls)
	}
	if _, err := os.Stat(Dir); !os.IsNotExist(err) {
		t.Fatalf("no profile mode must not create %s", Dir)
	}
}
