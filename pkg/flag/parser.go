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

import (
	"flag"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/egdesk/fsmcpd/pkg/log"
)

const (
	allowedDirsEnv             = "FSMCPD_ALLOWED_DIRS"
	accessTokenEnv             = "FSMCPD_ACCESS_TOKEN"
	gracefulShutdownTimeoutEnv = "FSMCPD_API_GRACE_SHUTDOWN"
)

// InitFlags registers CLI flags and env overrides.
func InitFlags() {
	// Set default values
	ServerPort = 8787
	ServerLogLevel = 6
	ServerAccessToken = ""
	SSEHeartbeatInterval = 30 * time.Second
	ApiGracefulShutdownTimeout = time.Second * 1

	// First, set default values from environment variables
	var allowedDirs string
	if dirsFromEnv := os.Getenv(allowedDirsEnv); dirsFromEnv != "" {
		allowedDirs = dirsFromEnv
	}

	if tokenFromEnv := os.Getenv(accessTokenEnv); tokenFromEnv != "" {
		ServerAccessToken = tokenFromEnv
	}

	// Then define flags with current values as defaults
	var blockedPaths, blockedExts string
	flag.IntVar(&ServerPort, "port", ServerPort, "Server listening port (default: 8787)")
	flag.IntVar(&ServerLogLevel, "log-level", ServerLogLevel, "Server log level (0=LevelEmergency, 1=LevelAlert, 2=LevelCritical, 3=LevelError, 4=LevelWarning, 5=LevelNotice, 6=LevelInformational, 7=LevelDebug, default: 6)")
	flag.StringVar(&ServerAccessToken, "access-token", ServerAccessToken, "Server access token for API authentication")
	flag.StringVar(&allowedDirs, "allowed-dir", allowedDirs, "Comma-separated list of directories the filesystem tools may access (default: current working directory)")
	flag.StringVar(&blockedPaths, "blocked-path", "", "Comma-separated list of additional blocked path prefixes")
	flag.StringVar(&blockedExts, "blocked-ext", "", "Comma-separated list of additional blocked file extensions")
	flag.DurationVar(&SSEHeartbeatInterval, "heartbeat-interval", SSEHeartbeatInterval, "SSE keepalive heartbeat interval (default: 30s)")

	if graceShutdownTimeout := os.Getenv(gracefulShutdownTimeoutEnv); graceShutdownTimeout != "" {
		duration, err := time.ParseDuration(graceShutdownTimeout)
		if err != nil {
			stdlog.Panicf("Failed to parse graceful shutdown timeout from env: %v", err)
		}
		ApiGracefulShutdownTimeout = duration
	}

	flag.DurationVar(&ApiGracefulShutdownTimeout, "graceful-shutdown-timeout", ApiGracefulShutdownTimeout, "API graceful shutdown timeout duration (default: 1s)")

	// Parse flags - these will override environment variables if provided
	flag.Parse()

	AllowedDirectories = splitList(allowedDirs)
	AdditionalBlockedPaths = splitList(blockedPaths)
	AdditionalBlockedExtensions = splitList(blockedExts)

	if len(AllowedDirectories) == 0 {
		// Fall back to the working directory so a bare start is still
		// sandboxed instead of wide open.
		if cwd, err := os.Getwd(); err == nil {
			AllowedDirectories = []string{cwd}
		}
	}

	// Log final values
	log.Info("Allowed directories are: %v", AllowedDirectories)
	log.Info("SSE heartbeat interval is: %s", SSEHeartbeatInterval)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
