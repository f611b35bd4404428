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

// Package app 管理長期運行元件的啟動與優雅關閉。
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

// DefaultGrace 關閉時等待所有元件的上限
const DefaultGrace = 5 * time.Second

// App 並行啟動所有 Component，任一元件結束、收到 SIGINT/SIGTERM 或 ctx 取消時，
// 依註冊的反向順序呼叫 Shutdown。
type App struct {
	comps []Component
	log   *slog.Logger
	grace time.Duration
}

// New 建立空的 App
func New() *App {
	return &App{
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		grace: DefaultGrace,
	}
}

// NewWith 建立 App 並依序註冊元件
func NewWith(comps ...Component) *App {
	a := New()
	for _, c := range comps {
		a.Register(c)
	}
	return a
}

// Register 註冊元件，nil 忽略
func (a *App) Register(c Component) {
	if c == nil {
		return
	}
	a.comps = append(a.comps, c)
}

// WithLogger 關閉過程的錯誤寫到 log
func (a *App) WithLogger(log *slog.Logger) *App {
	if log != nil {
		a.log = log
	}
	return a
}

// WithGrace 設定關閉期限，<= 0 時沿用 DefaultGrace
func (a *App) WithGrace(d time.Duration) *App {
	if d > 0 {
		a.grace = d
	}
	return a
}

// Run 等同 RunContext(context.Background())，並監聽 SIGINT/SIGTERM。
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext 阻塞直到 ctx 結束或任一元件的 Run 返回。
//
// ctx 結束視為正常關閉，回傳 Shutdown 的錯誤 (通常為 nil)；
// 元件先返回時回傳該元件的錯誤與 Shutdown 錯誤的合併。
func (a *App) RunContext(ctx context.Context) error {
	if len(a.comps) == 0 {
		return nil
	}
	errCh := make(chan error, len(a.comps))
	for _, c := range a.comps {
		go func() { errCh <- c.Run() }()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("app stopping", "reason", context.Cause(ctx))
	case runErr = <-errCh:
		a.log.Warn("component stopped, shutting down", "err", runErr)
	}
	return errors.Join(runErr, a.shutdown())
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.grace)
	defer cancel()
	var all []error
	for i := len(a.comps) - 1; i >= 0; i-- {
		if err := a.comps[i].Shutdown(ctx); err != nil {
			a.log.Error("shutdown failed", "err", err)
			all = append(all, err)
		}
	}
	return errors.Join(all...)
}
