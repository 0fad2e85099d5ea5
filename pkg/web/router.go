// Copyright 2025 EGDesk Authors.
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

package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/egdesk/fsmcpd/pkg/log"
	"github.com/egdesk/fsmcpd/pkg/mcp"
	"github.com/egdesk/fsmcpd/pkg/web/controller"
	"github.com/egdesk/fsmcpd/pkg/web/model"
)

// Options configures the router.
type Options struct {
	AccessToken       string
	ServerName        string
	ServerVersion     string
	HeartbeatInterval time.Duration
}

// NewRouter builds a Gin engine with all fsmcpd routes. The dispatcher
// is shared; the two JSON-RPC endpoints and the SSE stream are thin
// framing layers around it.
func NewRouter(dispatcher *mcp.Dispatcher, opts Options) *gin.Engine {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 30 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logMiddleware(), corsMiddleware(), accessTokenMiddleware(opts.AccessToken))

	withMCP := func(fn func(*controller.MCPController)) gin.HandlerFunc {
		return func(ctx *gin.Context) {
			fn(controller.NewMCPController(ctx, dispatcher))
		}
	}
	withServer := func(fn func(*controller.ServerController)) gin.HandlerFunc {
		return func(ctx *gin.Context) {
			fn(controller.NewServerController(ctx, dispatcher, opts.ServerName, opts.ServerVersion))
		}
	}

	r.POST("/mcp", withMCP(func(c *controller.MCPController) { c.HandleStream() }))
	r.POST("/message", withMCP(func(c *controller.MCPController) { c.HandleMessage() }))
	r.GET("/sse", func(ctx *gin.Context) {
		controller.NewSSEController(ctx, opts.HeartbeatInterval).HandleSSE()
	})

	r.GET("/health", withServer(func(c *controller.ServerController) { c.Health() }))
	r.GET("/", withServer(func(c *controller.ServerController) { c.Info() }))

	metric := r.Group("/metrics")
	{
		metric.GET("", withMetric(func(c *controller.MetricController) { c.GetMetrics() }))
		metric.GET("/watch", withMetric(func(c *controller.MetricController) { c.WatchMetrics() }))
	}

	r.NoRoute(withServer(func(c *controller.ServerController) { c.NotFound() }))

	return r
}

func withMetric(fn func(*controller.MetricController)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		fn(controller.NewMetricController(ctx))
	}
}

// corsMiddleware applies permissive CORS headers to every response and
// short-circuits preflight requests.
func corsMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.Writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type, "+model.ApiAccessTokenHeader)

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusOK)
			return
		}

		ctx.Next()
	}
}

func accessTokenMiddleware(token string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if token == "" {
			ctx.Next()
			return
		}

		requestedToken := ctx.GetHeader(model.ApiAccessTokenHeader)
		if requestedToken == "" || requestedToken != token {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, map[string]any{
				"error": "Unauthorized: invalid or missing header " + model.ApiAccessTokenHeader,
			})
			return
		}

		ctx.Next()
	}
}

func logMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		log.Info("Requested: %v - %v", ctx.Request.Method, ctx.Request.URL.String())
		ctx.Next()
	}
}
