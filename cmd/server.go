/*
Copyright 2024 PipLine Treasury Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/pipline/treasury/api"
	"github.com/pipline/treasury/config"
	"github.com/pipline/treasury/internal/traces"
	"github.com/spf13/cobra"
)

func initializeRouter(app *treasuryInstance) *gin.Engine {
	return api.NewAPI(app.treasury, app.cnf).Router()
}

func initializeTracing(ctx context.Context, cfg *config.Configuration) (traces.ShutdownFunc, error) {
	shutdown, err := traces.SetupOTelSDK(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("error setting up OTel SDK: %v", err)
	}
	return shutdown, nil
}

func startServer(router *gin.Engine, cfg config.ServerConfig) error {
	log.Printf("Starting server on http://localhost:%s", cfg.Port)
	return router.Run(":" + cfg.Port)
}

// serverCommands returns the command that serves the HTTP API.
func serverCommands(app *treasuryInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start treasury server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			shutdown, err := initializeTracing(ctx, app.cnf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()
			defer func() {
				if err := app.treasury.Close(); err != nil {
					log.Printf("Error closing treasury: %v", err)
				}
			}()

			router := initializeRouter(app)
			if err := startServer(router, app.cnf.Server); err != nil {
				log.Fatal(err)
			}
		},
	}

	return cmd
}
