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

// Package logger 組裝 server 與 bench 使用的 *slog.Logger。
//
// 兩種注入方式：
//   - NewDefaultLogger(mode)：依 LogMode 選擇輸出格式與等級。
//   - NewLogger(h)：呼叫端自行組好 slog.Handler (ReplaceAttr、LevelVar 等)。
//
// AsyncHandler 可以包住任何 slog.Handler，讓請求路徑上的日誌只做一次 channel 送出。
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// LogMode 預設輸出組合
type LogMode uint8

const (
	ModeDev     LogMode = iota // text, stderr, debug
	ModeProd                   // json, stdout, info
	ModeSilence                // 全部丟棄
)

var modeNames = map[LogMode]string{
	ModeDev:     "ModeDev",
	ModeProd:    "ModeProd",
	ModeSilence: "ModeSilence",
}

func (m LogMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "ModeDev"
}

// ParseMode 解析 flag 字串，大小寫不敏感，接受 "dev" 這類短名；無法辨識時回傳 ModeDev 與 false。
func ParseMode(s string) (LogMode, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "mode")
	switch s {
	case "dev":
		return ModeDev, true
	case "prod":
		return ModeProd, true
	case "silence", "silent":
		return ModeSilence, true
	default:
		return ModeDev, false
	}
}

func NewDefaultLogger(mode LogMode) *slog.Logger {
	return slog.New(buildHandler(mode))
}

// NewDefaultAsyncLogger 同 NewDefaultLogger，外面再包一層 8192 筆的 AsyncHandler。
// 拿不到 *AsyncHandler 就無法 Close，程式結束前未寫出的日誌會遺失；需要 drain 時改用 NewAsync。
func NewDefaultAsyncLogger(mode LogMode) *slog.Logger {
	return slog.New(NewAsyncHandler(buildHandler(mode), 8192))
}

// NewLogger h 為 nil 時使用 ModeDev
func NewLogger(h slog.Handler) *slog.Logger {
	if h == nil {
		h = buildHandler(ModeDev)
	}
	return slog.New(h)
}

// NewAsync 依 LogMode 建立非同步 logger，同時回傳 handler 供 Close / Dropped 使用。
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(buildHandler(mode), buf)
	return slog.New(ah), ah
}

func buildHandler(mode LogMode) slog.Handler {
	switch mode {
	case ModeProd:
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilence:
		return slog.NewTextHandler(io.Discard, nil)
	default:
		return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// -----------------------------------------------------------------------------
//  AsyncHandler
// -----------------------------------------------------------------------------

// AsyncHandler 把 Record 複製後送進有界 channel，由單一背景 goroutine 交給下游 handler。
//
// channel 滿或已 Close 時直接丟棄並計數 (Dropped)，不會阻塞呼叫端。
// WithAttrs / WithGroup 產生的 handler 共用同一個 dispatcher 與計數。
// slog.Logger 會忽略 Handle 的錯誤，下游的 I/O 錯誤同樣被忽略。
type AsyncHandler struct {
	next slog.Handler
	d    *dispatcher
}

type dispatcher struct {
	queue   chan queued
	stop    chan struct{}
	once    sync.Once
	done    sync.WaitGroup
	dropped atomic.Uint64
}

type queued struct {
	ctx context.Context
	rec slog.Record
	to  slog.Handler
}

// NewAsyncHandler buf <= 0 時使用 1024
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = buildHandler(ModeDev)
	}
	if buf <= 0 {
		buf = 1024
	}
	d := &dispatcher{
		queue: make(chan queued, buf),
		stop:  make(chan struct{}),
	}
	d.done.Add(1)
	go d.loop()
	return &AsyncHandler{next: next, d: d}
}

func (d *dispatcher) loop() {
	defer d.done.Done()
	for {
		select {
		case q := <-d.queue:
			_ = q.to.Handle(q.ctx, q.rec)
		case <-d.stop:
			// 寫完已排隊的再離開
			for {
				select {
				case q := <-d.queue:
					_ = q.to.Handle(q.ctx, q.rec)
				default:
					return
				}
			}
		}
	}
}

func (h *AsyncHandler) Ready() bool {
	return h != nil && h.d != nil
}

// Dropped 因佇列已滿或已關閉而丟棄的筆數
func (h *AsyncHandler) Dropped() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.d.dropped.Load()
}

// Close 停止接收並等待佇列寫完，可重複呼叫
func (h *AsyncHandler) Close() {
	if !h.Ready() {
		return
	}
	h.d.once.Do(func() { close(h.d.stop) })
	h.d.done.Wait()
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Ready() {
		return nil
	}
	select {
	case <-h.d.stop:
		h.d.dropped.Add(1)
		return nil
	default:
	}
	// Record 內的 attr 切片可能被呼叫端重用，跨 goroutine 前先 Clone
	select {
	case h.d.queue <- queued{ctx: ctx, rec: r.Clone(), to: h.next}:
	default:
		h.d.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), d: h.d}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), d: h.d}
}
