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
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/egdesk/fsmcpd/pkg/mcp"
	"github.com/egdesk/fsmcpd/pkg/web/model"
)

// MCPController frames JSON-RPC requests for the shared dispatcher. It
// serves both the HTTP-Stream endpoint (/mcp) and the SSE companion
// message endpoint (/message); the framing is identical, one request
// per POST with a synchronous response.
type MCPController struct {
	*basicController
	dispatcher *mcp.Dispatcher
}

func NewMCPController(ctx *gin.Context, dispatcher *mcp.Dispatcher) *MCPController {
	return &MCPController{
		basicController: newBasicController(ctx),
		dispatcher:      dispatcher,
	}
}

// HandleStream serves one JSON-RPC call over POST /mcp.
func (c *MCPController) HandleStream() {
	c.dispatch()
}

// HandleMessage serves one JSON-RPC call over POST /message, the
// companion endpoint announced on the SSE stream.
func (c *MCPController) HandleMessage() {
	c.dispatch()
}

func (c *MCPController) dispatch() {
	body, err := io.ReadAll(c.ctx.Request.Body)
	if err != nil {
		c.RespondError(
			http.StatusBadRequest,
			model.ErrorCodeInvalidRequest,
			"error reading request body: "+err.Error(),
		)
		return
	}

	resp := c.dispatcher.Dispatch(body)
	if resp == nil {
		// Notification: acknowledged, nothing to send back.
		c.ctx.Status(http.StatusAccepted)
		return
	}

	// Application errors still complete the request/response cycle;
	// only unparseable bodies are flagged at the HTTP layer.
	status := http.StatusOK
	if resp.Error != nil && resp.Error.Code == mcp.CodeParseError {
		status = http.StatusBadRequest
	}
	c.ctx.JSON(status, resp)
}
