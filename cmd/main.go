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
	"fmt"
	"log"
	"os"

	"github.com/pipline/treasury"
	"github.com/pipline/treasury/config"
	"github.com/pipline/treasury/database"
	"github.com/pipline/treasury/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CLI wraps the root cobra command.
type CLI struct {
	cmd *cobra.Command
}

// treasuryInstance carries the engine and its configuration into subcommands.
type treasuryInstance struct {
	treasury *treasury.Treasury
	cnf      *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and builds the engine before any subcommand runs.
func preRun(app *treasuryInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			logrus.Fatalf("error loading config: %v", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		t, err := setupTreasury(cnf)
		if err != nil {
			notification.NotifyError(err)
			logrus.Fatal(err)
		}

		app.treasury = t
		app.cnf = cnf
		return nil
	}
}

func setupTreasury(cfg *config.Configuration) (*treasury.Treasury, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	t, err := treasury.NewTreasury(db)
	if err != nil {
		return nil, fmt.Errorf("error creating treasury: %v", err)
	}
	return t, nil
}

// NewCLI builds the root command and registers every subcommand.
func NewCLI() *CLI {
	var configFile string
	app := &treasuryInstance{}

	rootCmd := &cobra.Command{
		Use:   "treasury",
		Short: "Daily PSP reconciliation and commission engine",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./treasury.json", "Configuration file for the treasury service")
	rootCmd.PersistentPreRunE = preRun(app, &configFile)

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(migrateCommands(app))
	rootCmd.AddCommand(recomputeCommands(app))
	rootCmd.AddCommand(exportCommands(app))
	rootCmd.AddCommand(configCommands(app))

	return &CLI{cmd: rootCmd}
}

func (c CLI) executeCLI() {
	if err := c.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()
	log.SetOutput(logrus.StandardLogger().Writer())

	cli := NewCLI()
	cli.executeCLI()
}
