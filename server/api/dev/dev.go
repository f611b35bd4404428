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

// Package dev 開發者端點，只在 svrcfg.ModeDev 註冊。
package dev

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/zintix-labs/dynsampler"
	"github.com/zintix-labs/dynsampler/errs"
	"github.com/zintix-labs/dynsampler/server/httperr"
	"github.com/zintix-labs/dynsampler/server/netsvr"
	"github.com/zintix-labs/dynsampler/server/svrcfg"
	"github.com/zintix-labs/dynsampler/stats"
)

const defaultProbe = 100_000

func Register(svr netsvr.NetRouter, cfg *svrcfg.SvrCfg) {
	svr.Get("/dev/meta", devMeta(cfg))
	svr.Get("/dev/index/{name}/probe", devProbe(cfg))
}

func devMeta(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"indexes":    cfg.Registry.Len(),
			"names":      cfg.Registry.Names(),
			"go":         runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		})
	}
}

// devProbe 抽 n 次 (預設 100,000) 並對目前權重做卡方檢定，同時執行一致性檢查。
//
// 權重快照與抽樣不在同一把鎖內，探測期間若有其他請求更新同一索引，結果會失真。
func devProbe(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	type probeResponse struct {
		Info      dynsampler.Info       `json:"info"`
		ChiSquare stats.ChiSquareResult `json:"chi_square"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		n := defaultProbe
		if s := r.URL.Query().Get("n"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("n must be integer"))
				return
			}
			n = v
		}
		weights, err := cfg.Registry.Weights(name)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		samples, err := cfg.Registry.Sample(name, n)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		res, err := stats.ChiSquare(stats.Counts(samples, len(weights)), weights)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		info, err := cfg.Registry.Info(name, true)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		if !info.Valid {
			cfg.Log.Error("index failed validation", "name", name, "reason", info.Invalid)
		}
		writeJSON(w, probeResponse{Info: info, ChiSquare: res})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
