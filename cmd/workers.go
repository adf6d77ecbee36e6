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
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/pipline/treasury"
	"github.com/pipline/treasury/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func initializeWorkerServer(conf *config.Configuration) (*asynq.Server, error) {
	redisOption, err := treasury.RedisClientOpt(conf)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis URL: %v", err)
	}

	srv := asynq.NewServer(redisOption, asynq.Config{
		Concurrency: conf.Queue.Concurrency,
		Queues: map[string]int{
			conf.Queue.RecomputeQueue: 1,
		},
		Logger: logrus.StandardLogger(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logrus.WithFields(logrus.Fields{
				"task":    task.Type(),
				"payload": string(task.Payload()),
			}).Errorf("recompute task failed: %v", err)
		}),
	})
	return srv, nil
}

func initializeTaskHandlers(app *treasuryInstance, mux *asynq.ServeMux) {
	mux.HandleFunc(app.cnf.Queue.RecomputeQueue, app.treasury.ProcessRecomputeTask)
}

func startMonitoring(conf *config.Configuration) error {
	redisOption, err := treasury.RedisClientOpt(conf)
	if err != nil {
		return err
	}
	h := asynqmon.New(asynqmon.Options{
		RootPath:     "/monitoring",
		RedisConnOpt: redisOption,
	})

	go func() {
		monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
		log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
		if err := http.ListenAndServe(monitoringAddr, h); err != nil {
			log.Fatalf("could not start asynqmon server: %v", err)
		}
	}()
	return nil
}

// workerCommands returns the command that drains the recompute queue.
func workerCommands(app *treasuryInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start treasury recompute workers",
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

			srv, err := initializeWorkerServer(app.cnf)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(app, mux)

			if err := startMonitoring(app.cnf); err != nil {
				log.Fatal(err)
			}

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
