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

package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// blocker Run 阻塞到 Shutdown 被呼叫
type blocker struct {
	name  string
	stop  chan struct{}
	once  sync.Once
	order *[]string
	mu    *sync.Mutex
}

func newBlocker(name string, order *[]string, mu *sync.Mutex) *blocker {
	return &blocker{name: name, stop: make(chan struct{}), order: order, mu: mu}
}

func (b *blocker) Run() error {
	<-b.stop
	return nil
}

func (b *blocker) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	*b.order = append(*b.order, b.name)
	b.mu.Unlock()
	b.once.Do(func() { close(b.stop) })
	return nil
}

func TestRunContextCancelShutsDownInReverse(t *testing.T) {
	var (
		order []string
		mu    sync.Mutex
	)
	a := NewWith(newBlocker("http", &order, &mu), nil, newBlocker("worker", &order, &mu))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunContext(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("RunContext did not return")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "worker" || order[1] != "http" {
		t.Fatalf("shutdown order %v", order)
	}
}

func TestRunContextComponentError(t *testing.T) {
	boom := errors.New("listen failed")
	shutErr := errors.New("flush failed")
	stop := make(chan struct{})
	a := NewWith(
		Func{RunFn: func() error { return boom }},
		Func{
			RunFn: func() error { <-stop; return nil },
			ShutdownFn: func(context.Context) error {
				close(stop)
				return shutErr
			},
		},
	).WithGrace(100 * time.Millisecond)
	err := a.RunContext(context.Background())
	if !errors.Is(err, boom) || !errors.Is(err, shutErr) {
		t.Fatalf("expected both errors joined, got %v", err)
	}
}

func TestRunContextEmpty(t *testing.T) {
	if err := New().WithLogger(nil).WithGrace(0).RunContext(context.Background()); err != nil {
		t.Fatalf("empty app: %v", err)
	}
}
