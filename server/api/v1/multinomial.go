package v1

import (
	"net/http"

	"github.com/zintix-labs/dynsampler"
	"github.com/zintix-labs/dynsampler/sdk/multinomial"
	"github.com/zintix-labs/dynsampler/server/httperr"
)

type MultinomialHandler struct {
	Registry *dynsampler.Registry
}

// Sample POST /v1/multinomial
func (h *MultinomialHandler) Sample(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type multiRequest struct {
		Method string    `json:"method"`
		N      int       `json:"n"`
		Dist   []float64 `json:"dist"`
		Seed   *int64    `json:"seed,omitempty"`
	}
	type multiResponse struct {
		Method string   `json:"method"`
		N      int      `json:"n"`
		Seed   int64    `json:"seed"`
		Counts []uint64 `json:"counts"`
	}
	req := new(multiRequest)
	if err := decode(w, r, req); err != nil {
		httperr.Errs(w, err)
		return
	}
	m := multinomial.MethodBinomial
	if req.Method != "" {
		v, err := multinomial.ParseMethod(req.Method)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		m = v
	}
	counts, seed, err := h.Registry.Multinomial(m, req.N, req.Dist, req.Seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, multiResponse{Method: string(m), N: req.N, Seed: seed, Counts: counts})
}
