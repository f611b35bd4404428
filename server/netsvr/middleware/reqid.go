package middleware

import (
	"net/http"

	chimid "github.com/go-chi/chi/v5/middleware"
)

// RequestIDHeader 回應中回傳的請求編號
const RequestIDHeader = "X-Request-Id"

// RequestID 沿用 chi 的編號產生器 (或客戶端帶來的 X-Request-Id)，並回寫到回應標頭，
// 讓客戶端可以用同一個編號對照伺服器日誌。
func RequestID(next http.Handler) http.Handler {
	return chimid.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := GetReqId(r); id != "" {
			w.Header().Set(RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	}))
}

func GetReqId(r *http.Request) string {
	return chimid.GetReqID(r.Context())
}
