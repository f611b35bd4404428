package index

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/dynsampler/sdk/multinomial"
	"github.com/zintix-labs/dynsampler/sdk/sampler"
)

type route struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

var routes = []route{
	{"GET", "/v1/index"},
	{"POST", "/v1/index"},
	{"GET", "/v1/index/{name}"},
	{"GET", "/v1/index/{name}/sample"},
	{"PUT", "/v1/index/{name}/weight"},
	{"POST", "/v1/index/{name}/delta"},
	{"DELETE", "/v1/index/{name}"},
	{"POST", "/v1/multinomial"},
	{"POST", "/v1/stat"},
}

// IndexHandlerFn 首頁：列出可用的抽樣器、多項分佈方法與路由
func IndexHandlerFn(w http.ResponseWriter, r *http.Request) {
	kinds := make([]string, 0, len(sampler.Kinds()))
	for _, k := range sampler.Kinds() {
		kinds = append(kinds, k.String())
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"service": "dynsampler",
		"kinds":   kinds,
		"methods": multinomial.Methods(),
		"routes":  routes,
	})
}
