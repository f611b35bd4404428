package middleware

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CompressConfig 壓縮等級，只在建立新的 writer 時讀取
type CompressConfig struct {
	GzipLevel int
	ZstdLevel zstd.EncoderLevel
}

var DefaultCompressConfig = CompressConfig{
	GzipLevel: gzip.DefaultCompression,
	ZstdLevel: zstd.SpeedFastest,
}

// streamEncoder gzip.Writer 與 zstd.Encoder 共同的方法
type streamEncoder interface {
	io.WriteCloser
	Flush() error
	Reset(w io.Writer)
}

type codec struct {
	name string
	pool sync.Pool
	make func(w io.Writer) streamEncoder
}

func (c *codec) get(w io.Writer) streamEncoder {
	if v := c.pool.Get(); v != nil {
		enc := v.(streamEncoder)
		enc.Reset(w)
		return enc
	}
	return c.make(w)
}

// put 結束壓縮流；discard 為 true 時 footer 寫進 io.Discard
func (c *codec) put(enc streamEncoder, discard bool) {
	if discard {
		enc.Reset(io.Discard)
	}
	_ = enc.Close()
	c.pool.Put(enc)
}

// codecs 依伺服器偏好排序
var codecs = []*codec{
	{
		name: "zstd",
		make: func(w io.Writer) streamEncoder {
			zw, err := zstd.NewWriter(w,
				zstd.WithEncoderLevel(DefaultCompressConfig.ZstdLevel),
				zstd.WithEncoderConcurrency(1),
			)
			if err != nil {
				panic(err)
			}
			return zw
		},
	},
	{
		name: "gzip",
		make: func(w io.Writer) streamEncoder {
			gw, err := gzip.NewWriterLevel(w, DefaultCompressConfig.GzipLevel)
			if err != nil {
				gw = gzip.NewWriter(w)
			}
			return gw
		},
	},
}

// negotiate 從 Accept-Encoding 挑出第一個伺服器支援的編碼，q=0 視為拒絕
func negotiate(accept string) *codec {
	if accept == "" {
		return nil
	}
	offered := make(map[string]bool)
	for _, part := range strings.Split(accept, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		q := strings.ReplaceAll(strings.TrimSpace(params), " ", "")
		if q == "q=0" || q == "q=0.0" || q == "q=0.00" || q == "q=0.000" {
			continue
		}
		offered[name] = true
	}
	for _, c := range codecs {
		if offered[c.name] || offered["*"] {
			return c
		}
	}
	return nil
}

func noBody(code int) bool {
	return (code >= 100 && code < 200) || code == http.StatusNoContent || code == http.StatusNotModified
}

func isUpgrade(r *http.Request) bool {
	return r.Header.Get("Upgrade") != "" ||
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// compressWriter 把 body 導到壓縮器；遇到無 body 的狀態碼時改回原樣輸出
type compressWriter struct {
	http.ResponseWriter
	enc     streamEncoder
	skipped bool
}

func (cw *compressWriter) WriteHeader(code int) {
	cw.Header().Del("Content-Length")
	if noBody(code) {
		cw.skipped = true
		cw.Header().Del("Content-Encoding")
		cw.Header().Del("Vary")
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressWriter) Write(b []byte) (int, error) {
	if cw.skipped {
		return cw.ResponseWriter.Write(b)
	}
	h := cw.Header()
	h.Del("Content-Length")
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", http.DetectContentType(b))
	}
	return cw.enc.Write(b)
}

func (cw *compressWriter) Flush() {
	if !cw.skipped {
		_ = cw.enc.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := cw.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, errors.New("underlying response writer does not support Hijacker")
}

// Compression 依 Accept-Encoding 以 zstd 或 gzip 壓縮回應。
// HEAD、協議升級、上游已設定 Content-Encoding 的回應不處理。
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || isUpgrade(r) || w.Header().Get("Content-Encoding") != "" {
			next.ServeHTTP(w, r)
			return
		}
		c := negotiate(r.Header.Get("Accept-Encoding"))
		if c == nil {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Encoding", c.name)
		w.Header().Add("Vary", "Accept-Encoding")

		cw := &compressWriter{ResponseWriter: w, enc: c.get(w)}
		defer func() { c.put(cw.enc, cw.skipped) }()
		next.ServeHTTP(cw, r)
	})
}
