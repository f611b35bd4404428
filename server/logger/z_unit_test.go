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

package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// lockedBuffer 背景 worker 與測試同時讀寫
type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func TestAsyncHandlerDrainsOnClose(t *testing.T) {
	buf := new(lockedBuffer)
	ah := NewAsyncHandler(slog.NewTextHandler(buf, nil), 64)
	log := slog.New(ah).With("index", "urn")
	for i := 0; i < 10; i++ {
		log.Info("picked", "i", i)
	}
	ah.Close()
	out := buf.String()
	if got := strings.Count(out, "msg=picked"); got != 10 {
		t.Fatalf("expected 10 records, got %d:\n%s", got, out)
	}
	if !strings.Contains(out, "index=urn") {
		t.Fatalf("WithAttrs lost:\n%s", out)
	}

	log.Info("after close")
	if ah.Dropped() != 1 {
		t.Fatalf("record after close must be dropped, dropped=%d", ah.Dropped())
	}
	ah.Close() // 重複關閉不應 panic
}

// blockingHandler 卡住 worker，讓 channel 塞滿
type blockingHandler struct {
	slog.Handler
	release chan struct{}
}

func (b *blockingHandler) Handle(ctx context.Context, r slog.Record) error {
	<-b.release
	return nil
}

func TestAsyncHandlerDropsWhenFull(t *testing.T) {
	bh := &blockingHandler{Handler: slog.NewTextHandler(new(bytes.Buffer), nil), release: make(chan struct{})}
	ah := NewAsyncHandler(bh, 2)
	log := slog.New(ah)
	// worker 最多持有 1 筆，channel 2 筆，其餘丟棄
	for i := 0; i < 20; i++ {
		log.Info("x")
	}
	if d := ah.Dropped(); d < 17 {
		t.Fatalf("expected at least 17 dropped, got %d", d)
	}
	close(bh.release)
	ah.Close()
}

func TestParseMode(t *testing.T) {
	cases := map[string]LogMode{
		"ModeDev":     ModeDev,
		"dev":         ModeDev,
		"ModeProd":    ModeProd,
		" PROD ":      ModeProd,
		"ModeSilence": ModeSilence,
		"silent":      ModeSilence,
	}
	for in, want := range cases {
		got, ok := ParseMode(in)
		if !ok || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, ok)
		}
	}
	if got, ok := ParseMode("verbose"); ok || got != ModeDev {
		t.Fatalf("unknown mode: %v, %v", got, ok)
	}
	if ModeProd.String() != "ModeProd" {
		t.Fatalf("String() = %s", ModeProd.String())
	}
	var nilAsync *AsyncHandler
	if nilAsync.Ready() || nilAsync.Dropped() != 0 {
		t.Fatalf("nil handler must not be ready")
	}
}
