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

// Package errs 提供 dynsampler 統一的錯誤型別。
//
// 錯誤同時帶有兩個維度：
//   - ErrLevel：嚴重程度，讓最上層（CLI / HTTP 邊界）決定如何處理。
//   - Code：錯誤類別，讓呼叫端可以用 errors.Is 比對（例如 ErrNegativeWeight）。
package errs

import (
	"errors"
	"fmt"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
)

var errLvMap = map[ErrLevel]string{
	None:  "",
	Fatal: "fatal",
	Warn:  "warn",
}

func ErrLv(errlv ErrLevel) string {
	if str, ok := errLvMap[errlv]; ok {
		return str
	}
	return ""
}

// Code 錯誤類別。零值 CodeUnknown 代表未分類。
type Code uint8

const (
	CodeUnknown Code = iota
	CodeInvalidArg
	CodeOutOfRange
	CodeNegativeWeight
	CodeOverflow
	CodeCorrupt
	CodeNotFound
	CodeConflict
)

var codeMap = map[Code]string{
	CodeUnknown:        "",
	CodeInvalidArg:     "invalid_argument",
	CodeOutOfRange:     "out_of_range",
	CodeNegativeWeight: "negative_weight",
	CodeOverflow:       "overflow",
	CodeCorrupt:        "corrupt",
	CodeNotFound:       "not_found",
	CodeConflict:       "conflict",
}

func (c Code) String() string {
	return codeMap[c]
}

// 哨兵錯誤：只用來給 errors.Is 比對類別，不直接回傳給呼叫端。
var (
	ErrInvalidArg     = &E{Code: CodeInvalidArg}
	ErrOutOfRange     = &E{Code: CodeOutOfRange}
	ErrNegativeWeight = &E{Code: CodeNegativeWeight}
	ErrOverflow       = &E{Code: CodeOverflow}
	ErrCorrupt        = &E{Code: CodeCorrupt}
	ErrNotFound       = &E{Code: CodeNotFound}
	ErrConflict       = &E{Code: CodeConflict}
)

// E 是統一的錯誤型別。
// Message 為主訊息；Extra 為呼叫端可追加的額外上下文；
// Cause 可串接下層錯誤（wrap）；ErrLv 為嚴重程度；Code 為錯誤類別。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
	Code    Code
}

// Error 實作 error 介面並回傳格式化後的錯誤訊息。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s %s", ErrLv(e.ErrLv), e.Message)
	if e.Code != CodeUnknown {
		base = fmt.Sprintf("errlv=%s code=%s %s", ErrLv(e.ErrLv), e.Code, e.Message)
	}
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// Is 以 Code 比對。target 必須是帶 Code 的 *E（通常是上面的哨兵）。
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok || t.Code == CodeUnknown {
		return false
	}
	return e.Code == t.Code
}

// New 依錯誤等級與訊息建立錯誤
func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

// Coded 建立帶有類別的錯誤。呼叫端錯誤（參數、索引、權重）一律用 Warn。
func Coded(errLv ErrLevel, code Code, format string, a ...any) *E {
	return &E{Message: fmt.Sprintf(format, a...), ErrLv: errLv, Code: code}
}

// Wrap 使用給定的訊息包裝底層錯誤，建立一個 *E。
//
// ErrLevel / Code 規則：
//   - 若 cause 已經是 *E，則沿用其 ErrLv 與 Code。
//   - 若 cause 不是本包定義的 *E（多半是標準庫或三方依賴錯誤），則 ErrLv 一律視為 Fatal。
func Wrap(cause error, msg string) *E {
	errLv, code := Fatal, CodeUnknown
	if e, ok := AsErr(cause); ok {
		errLv, code = e.ErrLv, e.Code
	}
	r := New(errLv, msg)
	r.Code = code
	r.Cause = cause
	return r
}

// WrapWithExtra 與 Wrap 相同，但附帶額外上下文。
func WrapWithExtra(cause error, msg string, extra string) *E {
	r := Wrap(cause, msg)
	r.Extra = extra
	return r
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}
