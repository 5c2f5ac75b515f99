package netsvr

import (
	"net/http"

	"github.com/zintix-labs/minelab/server/app"
)

// NetSvr 可掛路由、可由 app.App 管理啟停的 HTTP server。
type NetSvr interface {
	NetRouter
	app.Component

	// NotFound / MethodNotAllowed 覆寫路由未命中時的回應（API 一律回 JSON）。
	NotFound(h http.HandlerFunc)
	MethodNotAllowed(h http.HandlerFunc)

	Address() string
	Handler() http.Handler
}

// NetRouter 只有路由行為；Group 回呼拿不到 Run/Shutdown。
type NetRouter interface {
	Use(middleware func(http.Handler) http.Handler)

	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)

	Group(path string, fn func(NetRouter))
}
