package v1

import (
	"net/http"

	"github.com/zintix-labs/dynsampler/server/httperr"
	"github.com/zintix-labs/dynsampler/stats"
)

type statRequest struct {
	Counts  []uint64 `json:"counts"`
	Weights []uint64 `json:"weights"`
}

// Stat POST /v1/stat：對外部帶來的抽樣次數做卡方適合度檢定
func Stat(w http.ResponseWriter, r *http.Request) {
	req := new(statRequest)
	if err := decode(w, r, req); err != nil {
		httperr.Errs(w, err)
		return
	}
	res, err := stats.ChiSquare(req.Counts, req.Weights)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
