package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func TestNegotiate(t *testing.T) {
	cases := map[string]string{
		"":                       "",
		"identity":               "",
		"gzip":                   "gzip",
		"GZIP, deflate":          "gzip",
		"gzip, zstd":             "zstd",
		"zstd;q=0, gzip;q=0.5":   "gzip",
		"zstd; q=0":              "",
		"br, *":                  "zstd",
		"deflate, gzip;q=1.0, *": "zstd",
	}
	for accept, want := range cases {
		got := ""
		if c := negotiate(accept); c != nil {
			got = c.name
		}
		if got != want {
			t.Errorf("negotiate(%q) = %q, want %q", accept, got, want)
		}
	}
}

func decompress(t *testing.T, enc string, body []byte) string {
	t.Helper()
	var rd io.Reader
	switch enc {
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			t.Fatalf("gzip: %v", err)
		}
		rd = zr
	case "zstd":
		zr, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			t.Fatalf("zstd: %v", err)
		}
		defer zr.Close()
		rd = zr
	default:
		return string(body)
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		t.Fatalf("read %s: %v", enc, err)
	}
	return string(b)
}

func TestCompressionRoundTrip(t *testing.T) {
	payload := strings.Repeat(`{"idx":3,"weight":12}`, 200)
	h := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, payload)
	}))
	// 重複兩次，第二次會用到池裡的 writer
	for range 2 {
		for _, enc := range []string{"gzip", "zstd", ""} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept-Encoding", enc)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if got := rec.Header().Get("Content-Encoding"); got != enc {
				t.Fatalf("content-encoding %q want %q", got, enc)
			}
			if enc != "" && rec.Body.Len() >= len(payload) {
				t.Fatalf("[%s] body not compressed: %d bytes", enc, rec.Body.Len())
			}
			if got := decompress(t, enc, rec.Body.Bytes()); got != payload {
				t.Fatalf("[%s] payload mismatch", enc)
			}
		}
	}
}

func TestCompressionSkipsHeadAndNoBody(t *testing.T) {
	h := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set("Accept-Encoding", "zstd")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Body.Len() != 0 || rec.Header().Get("Content-Encoding") != "" {
		t.Fatalf("204 polluted: len=%d enc=%q", rec.Body.Len(), rec.Header().Get("Content-Encoding"))
	}

	req = httptest.NewRequest(http.MethodHead, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Content-Encoding") != "" {
		t.Fatalf("HEAD must not be compressed")
	}
}

func TestRequestIDAndAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	r := chi.NewRouter()
	r.Use(RequestID, AccessLog(log), Recover(log))
	r.Get("/v1/index/{name}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	r.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("bucket corrupted")
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/index/urn", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("request id not echoed: %q", rec.Header().Get(RequestIDHeader))
	}
	out := buf.String()
	for _, want := range []string{`"msg":"http.access"`, `"req_id":"abc-123"`, `"route":"/v1/index/{name}"`, `"status":200`, `"bytes":2`} {
		if !strings.Contains(out, want) {
			t.Fatalf("access log missing %s:\n%s", want, out)
		}
	}

	buf.Reset()
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "internal server error") {
		t.Fatalf("panic not recovered: %d %s", rec.Code, rec.Body.String())
	}
	out = buf.String()
	if !strings.Contains(out, `"msg":"http.panic"`) || !strings.Contains(out, "bucket corrupted") || !strings.Contains(out, `"level":"ERROR","msg":"http.access"`) {
		t.Fatalf("panic logs:\n%s", out)
	}
}
