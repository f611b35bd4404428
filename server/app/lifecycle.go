package app

import "context"

// Component 可啟動、可關閉的長生命週期元件，例如 HTTP server。
//   - Run 阻塞到元件停止。
//   - Shutdown 要求元件在 ctx 期限內停止，Run 隨後返回。
type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}

// Func 以兩個函數組成 Component，方便包裝背景工作
type Func struct {
	RunFn      func() error
	ShutdownFn func(ctx context.Context) error
}

func (f Func) Run() error {
	if f.RunFn == nil {
		return nil
	}
	return f.RunFn()
}

func (f Func) Shutdown(ctx context.Context) error {
	if f.ShutdownFn == nil {
		return nil
	}
	return f.ShutdownFn(ctx)
}
