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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/egdesk/fsmcpd/pkg/flag"
	"github.com/egdesk/fsmcpd/pkg/fsops"
	"github.com/egdesk/fsmcpd/pkg/log"
	"github.com/egdesk/fsmcpd/pkg/mcp"
	"github.com/egdesk/fsmcpd/pkg/security"
	"github.com/egdesk/fsmcpd/pkg/util/safego"
	"github.com/egdesk/fsmcpd/pkg/web"
)

const (
	serverName    = "egdesk-filesystem-mcp"
	serverVersion = "1.0.0"
)

// main initializes and starts the fsmcpd server.
func main() {
	flag.InitFlags()
	safego.InitPanicLogger(context.Background())

	log.SetLevel(flag.ServerLogLevel)

	secCfg := security.DefaultConfig()
	secCfg.AdditionalBlockedPaths = flag.AdditionalBlockedPaths
	secCfg.AdditionalBlockedExtensions = flag.AdditionalBlockedExtensions

	engine := fsops.NewEngine(flag.AllowedDirectories, secCfg)
	dispatcher := mcp.NewDispatcher(engine, serverName, serverVersion)

	router := web.NewRouter(dispatcher, web.Options{
		AccessToken:       flag.ServerAccessToken,
		ServerName:        serverName,
		ServerVersion:     serverVersion,
		HeartbeatInterval: flag.SSEHeartbeatInterval,
	})

	addr := fmt.Sprintf(":%d", flag.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop

		log.Info("shutting down, draining for %s", flag.ApiGracefulShutdownTimeout)
		ctx, cancel := context.WithTimeout(context.Background(), flag.ApiGracefulShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warning("graceful shutdown incomplete: %v", err)
		}
	}()

	log.Info("fsmcpd listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("failed to start fsmcpd server: %v", err)
	}
	log.Sync()
}
