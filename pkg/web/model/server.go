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

package model

import "encoding/json"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status             string   `json:"status"`
	Server             string   `json:"server"`
	Version            string   `json:"version"`
	AllowedDirectories []string `json:"allowedDirectories"`
}

// InfoResponse is the body of GET /.
type InfoResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Protocol  string            `json:"protocol"`
	Endpoints map[string]string `json:"endpoints"`
	Tools     []string          `json:"tools"`
}

// EndpointEvent is the first SSE event on /sse, naming the companion
// JSON-RPC POST endpoint for this stream.
type EndpointEvent struct {
	Endpoint  string `json:"endpoint"`
	SessionID string `json:"sessionId"`
}

// ToJSON serializes the event for streaming.
func (e EndpointEvent) ToJSON() []byte {
	bytes, _ := json.Marshal(e)
	return bytes
}
