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

package flag

import "time"

var (
	// ServerPort controls the HTTP listener port.
	ServerPort int

	// ServerLogLevel controls the server log verbosity.
	ServerLogLevel int

	// ServerAccessToken guards API entrypoints when set.
	ServerAccessToken string

	// AllowedDirectories lists the directories the filesystem tools may
	// touch. Empty means unrestricted; callers are expected to set it.
	AllowedDirectories []string

	// AdditionalBlockedPaths extends the security policy's path blocklist.
	AdditionalBlockedPaths []string

	// AdditionalBlockedExtensions extends the security policy's extension
	// blocklist.
	AdditionalBlockedExtensions []string

	// SSEHeartbeatInterval is the cadence of comment-only keepalive lines
	// on /sse streams.
	SSEHeartbeatInterval time.Duration

	// ApiGracefulShutdownTimeout waits before tearing down SSE streams.
	ApiGracefulShutdownTimeout time.Duration
)
