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

package api

import (
	"log/slog"

	"github.com/zintix-labs/dynsampler/server/api/dev"
	"github.com/zintix-labs/dynsampler/server/api/index"
	v1 "github.com/zintix-labs/dynsampler/server/api/v1"
	"github.com/zintix-labs/dynsampler/server/netsvr"
	"github.com/zintix-labs/dynsampler/server/netsvr/middleware"
	"github.com/zintix-labs/dynsampler/server/svrcfg"
)

// RegisterRoutes 註冊
func RegisterRoutes(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg.Log) // 1. 註冊 middleware
	registerIndex(svr)                // 2. 註冊主頁
	if sCfg.Mode == svrcfg.ModeDev {
		dev.Register(svr, sCfg) // 3. 開發者工具
	}
	return registerV1API(svr, sCfg) // 4. 註冊 v1 api
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetRouter, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover(log))
	svr.Use(middleware.Compression)
}

// 註冊主頁
func registerIndex(svr netsvr.NetRouter) {
	svr.Get("/", index.IndexHandlerFn)
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) error {
	ih, err := v1.NewIndexHandler(sCfg.Registry)
	if err != nil {
		return err
	}
	mh := &v1.MultinomialHandler{Registry: sCfg.Registry}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/index", ih.List)
		vOne.Post("/index", ih.Create)
		vOne.Get("/index/{name}", ih.Get)
		vOne.Get("/index/{name}/sample", ih.Sample)
		vOne.Put("/index/{name}/weight", ih.SetWeight)
		vOne.Post("/index/{name}/delta", ih.Delta)
		vOne.Delete("/index/{name}", ih.Delete)

		vOne.Post("/multinomial", mh.Sample)
		vOne.Post("/stat", v1.Stat)
	})
	return nil
}
