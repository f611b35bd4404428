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

package v1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/zintix-labs/dynsampler"
	"github.com/zintix-labs/dynsampler/errs"
	"github.com/zintix-labs/dynsampler/sdk/sampler"
	"github.com/zintix-labs/dynsampler/server/httperr"
)

// maxBodyBytes 請求 body 上限，足夠放 MaxCategories 個權重
const maxBodyBytes = 512 << 20

type IndexHandler struct {
	Registry *dynsampler.Registry
}

func NewIndexHandler(reg *dynsampler.Registry) (*IndexHandler, error) {
	if reg == nil {
		return nil, errs.NewFatal("registry is required")
	}
	return &IndexHandler{Registry: reg}, nil
}

// Create POST /v1/index
func (h *IndexHandler) Create(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type createRequest struct {
		Name    string   `json:"name"`
		Kind    string   `json:"kind"`
		Weights []uint64 `json:"weights"`
		Seed    *int64   `json:"seed,omitempty"`
	}
	req := new(createRequest)
	if err := decode(w, r, req); err != nil {
		httperr.Errs(w, err)
		return
	}
	kind := sampler.KindBucket
	if req.Kind != "" {
		k, err := sampler.ParseKind(req.Kind)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		kind = k
	}
	info, err := h.Registry.Create(req.Name, kind, req.Weights, req.Seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// List GET /v1/index
func (h *IndexHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"indexes": h.Registry.Names()})
}

// Get GET /v1/index/{name}?weights=true
func (h *IndexHandler) Get(w http.ResponseWriter, r *http.Request) {
	type getResponse struct {
		dynsampler.Info
		Weights []uint64 `json:"weights,omitempty"`
	}
	name := chi.URLParam(r, "name")
	info, err := h.Registry.Info(name, true)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	resp := getResponse{Info: info}
	if withWeights, _ := strconv.ParseBool(r.URL.Query().Get("weights")); withWeights {
		if resp.Weights, err = h.Registry.Weights(name); err != nil {
			httperr.Errs(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Sample GET /v1/index/{name}/sample?n=&counts=true
//
// counts=true 時回傳每個類別的次數而不是抽樣序列。
func (h *IndexHandler) Sample(w http.ResponseWriter, r *http.Request) {
	type sampleResponse struct {
		Name    string   `json:"name"`
		N       int      `json:"n"`
		Samples []int    `json:"samples,omitempty"`
		Counts  []uint64 `json:"counts,omitempty"`
	}
	name := chi.URLParam(r, "name")
	n := 1
	if s := r.URL.Query().Get("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			httperr.Errs(w, errs.NewWarn("n must be integer"))
			return
		}
		n = v
	}
	resp := sampleResponse{Name: name, N: n}
	var err error
	if asCounts, _ := strconv.ParseBool(r.URL.Query().Get("counts")); asCounts {
		resp.Counts, err = h.Registry.SampleCounts(name, n)
	} else {
		resp.Samples, err = h.Registry.Sample(name, n)
	}
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetWeight PUT /v1/index/{name}/weight
func (h *IndexHandler) SetWeight(w http.ResponseWriter, r *http.Request) {
	type weightRequest struct {
		Idx    *int    `json:"idx"`
		Weight *uint64 `json:"weight"`
	}
	req := new(weightRequest)
	if err := decode(w, r, req); err != nil {
		httperr.Errs(w, err)
		return
	}
	if req.Idx == nil || req.Weight == nil {
		httperr.Errs(w, errs.NewWarn("idx and weight are required"))
		return
	}
	info, err := h.Registry.Update(chi.URLParam(r, "name"), *req.Idx, *req.Weight)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Delta POST /v1/index/{name}/delta
func (h *IndexHandler) Delta(w http.ResponseWriter, r *http.Request) {
	type deltaRequest struct {
		Idx   *int   `json:"idx"`
		Delta *int64 `json:"delta"`
	}
	req := new(deltaRequest)
	if err := decode(w, r, req); err != nil {
		httperr.Errs(w, err)
		return
	}
	if req.Idx == nil || req.Delta == nil {
		httperr.Errs(w, errs.NewWarn("idx and delta are required"))
		return
	}
	info, err := h.Registry.DeltaUpdate(chi.URLParam(r, "name"), *req.Idx, *req.Delta)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Delete DELETE /v1/index/{name}
func (h *IndexHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Registry.Delete(chi.URLParam(r, "name")); err != nil {
		httperr.Errs(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ------------------------------------------------------------

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return errs.NewWarn("invalid json: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
