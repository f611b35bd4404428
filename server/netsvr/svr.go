package netsvr

import (
	"net/http"

	"github.com/zintix-labs/dynsampler/server/app"
)

// NetSvr 路由加上啟停。只有組裝 server 的最外層拿得到，
// 同時是 app.Component，可以直接交給 app.App 管理生命週期。
type NetSvr interface {
	NetRouter
	app.Component
}

// NetRouter 純路由介面。handler 與子模組只拿到這個，不能控制 server 啟停；
// 換成其他 net/http 相容框架時，實作這兩個介面即可。
type NetRouter interface {
	Use(middleware func(http.Handler) http.Handler)

	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)
	Put(path string, h http.HandlerFunc)
	Delete(path string, h http.HandlerFunc)

	Group(path string, fn func(NetRouter))
}
