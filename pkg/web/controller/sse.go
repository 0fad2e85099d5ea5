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
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/egdesk/fsmcpd/pkg/log"
	"github.com/egdesk/fsmcpd/pkg/util/safego"
	"github.com/egdesk/fsmcpd/pkg/web/model"
)

// MessageEndpoint is the companion JSON-RPC POST path announced on every
// SSE stream.
const MessageEndpoint = "/message"

var sseHeaders = map[string]string{
	"Content-Type":      "text/event-stream",
	"Cache-Control":     "no-cache",
	"Connection":        "keep-alive",
	"X-Accel-Buffering": "no",
}

func (c *basicController) setupSSEResponse() {
	for key, value := range sseHeaders {
		c.ctx.Writer.Header().Set(key, value)
	}
	if flusher, ok := c.ctx.Writer.(http.Flusher); ok {
		flusher.Flush()
	}
}

// SSEController serves the legacy SSE transport: a long-lived
// server-to-client event stream paired with the /message POST endpoint.
// The stream itself only carries the endpoint announcement and
// keepalive heartbeats; RPC responses travel on the POST side.
type SSEController struct {
	*basicController
	heartbeatInterval time.Duration

	chunkWriter sync.Mutex
}

func NewSSEController(ctx *gin.Context, heartbeatInterval time.Duration) *SSEController {
	return &SSEController{
		basicController:   newBasicController(ctx),
		heartbeatInterval: heartbeatInterval,
	}
}

// HandleSSE opens the event stream, announces the companion endpoint,
// and keeps the connection alive until the client disconnects.
func (c *SSEController) HandleSSE() {
	c.setupSSEResponse()

	sessionID := uuid.NewString()
	event := model.EndpointEvent{
		Endpoint:  MessageEndpoint,
		SessionID: sessionID,
	}
	c.writeEvent("endpoint", event.ToJSON())
	log.Info("SSE session %s connected", sessionID)

	ctx := c.ctx.Request.Context()
	safego.Go(func() { c.heartbeat(sessionID) })

	<-ctx.Done()
	log.Info("SSE session %s disconnected", sessionID)
}

// heartbeat periodically emits a comment-only line so intermediaries
// keep the stream open. It stops when the request context is torn down.
func (c *SSEController) heartbeat(sessionID string) {
	ctx := c.ctx.Request.Context()
	wait.Until(func() {
		if c.ctx.Writer == nil {
			return
		}
		c.writeRaw(": heartbeat\n\n")
		log.Debug("SSE session %s heartbeat", sessionID)
	}, c.heartbeatInterval, ctx.Done())
}

// writeEvent serializes one named SSE frame.
func (c *SSEController) writeEvent(event string, data []byte) {
	c.writeRaw(fmt.Sprintf("event: %s\ndata: %s\n\n", event, string(data)))
}

func (c *SSEController) writeRaw(payload string) {
	if c == nil || c.ctx == nil || c.ctx.Writer == nil {
		return
	}

	select {
	case <-c.ctx.Request.Context().Done():
		return
	default:
	}

	c.chunkWriter.Lock()
	defer c.chunkWriter.Unlock()
	defer func() {
		if flusher, ok := c.ctx.Writer.(http.Flusher); ok {
			flusher.Flush()
		}
	}()

	n, err := io.WriteString(c.ctx.Writer, payload)
	if err == nil && n != len(payload) {
		err = io.ErrShortWrite
	}
	if err != nil {
		log.Error("SSE write error: %v", err)
	}
}
