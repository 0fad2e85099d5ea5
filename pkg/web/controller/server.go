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

package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/egdesk/fsmcpd/pkg/mcp"
	"github.com/egdesk/fsmcpd/pkg/web/model"
)

// knownEndpoints documents the HTTP surface for GET / and 404 replies.
var knownEndpoints = map[string]string{
	"POST /mcp":          "JSON-RPC over a single HTTP request/response",
	"GET /sse":           "SSE event stream (announces the /message endpoint)",
	"POST /message":      "JSON-RPC companion endpoint for SSE clients",
	"GET /health":        "health status",
	"GET /":              "server metadata",
	"GET /metrics":       "system metrics snapshot",
	"GET /metrics/watch": "system metrics SSE stream",
}

// ServerController serves the shell endpoints: health, metadata, 404.
type ServerController struct {
	*basicController
	dispatcher *mcp.Dispatcher
	name       string
	version    string
}

func NewServerController(ctx *gin.Context, dispatcher *mcp.Dispatcher, name, version string) *ServerController {
	return &ServerController{
		basicController: newBasicController(ctx),
		dispatcher:      dispatcher,
		name:            name,
		version:         version,
	}
}

// Health reports liveness plus the active sandbox configuration.
func (c *ServerController) Health() {
	c.RespondSuccess(model.HealthResponse{
		Status:             "healthy",
		Server:             c.name,
		Version:            c.version,
		AllowedDirectories: c.dispatcher.Engine().ListAllowedDirectories(),
	})
}

// Info returns server and tool metadata.
func (c *ServerController) Info() {
	c.RespondSuccess(model.InfoResponse{
		Name:      c.name,
		Version:   c.version,
		Protocol:  mcp.ProtocolVersion,
		Endpoints: knownEndpoints,
		Tools:     c.dispatcher.ToolNames(),
	})
}

// NotFound lists the available endpoints for unmatched routes.
func (c *ServerController) NotFound() {
	c.ctx.JSON(http.StatusNotFound, gin.H{
		"error":     "not found",
		"endpoints": knownEndpoints,
	})
}
