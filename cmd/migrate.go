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
	"time"

	"github.com/pipline/treasury"
	"github.com/pipline/treasury/config"
	"github.com/pipline/treasury/database"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
)

// migrateCommands groups the schema migration subcommands.
func migrateCommands(app *treasuryInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "run treasury schema migrations",
	}

	cmd.AddCommand(migrateDirectionCommand(app, "up", migrate.Up))
	cmd.AddCommand(migrateDirectionCommand(app, "down", migrate.Down))

	return cmd
}

func migrateDirectionCommand(app *treasuryInstance, use string, direction migrate.MigrationDirection) *cobra.Command {
	return &cobra.Command{
		Use: use,
		Run: func(cmd *cobra.Command, args []string) {
			n, err := runMigrations(app.cnf, direction)
			if err != nil {
				log.Printf("Error migrating %s: %v", use, err)
				return
			}
			if direction == migrate.Up {
				fmt.Printf("Applied %d migrations!\n", n)
			} else {
				fmt.Printf("Rolled back %d migrations!\n", n)
			}
		},
	}
}

func runMigrations(cnf *config.Configuration, direction migrate.MigrationDirection) (int, error) {
	migrations := migrate.EmbedFileSystemMigrationSource{
		FileSystem: treasury.SQLFiles,
		Root:       "sql",
	}

	db, err := database.ConnectDB(cnf.DataSource.Dns, time.Duration(cnf.DataSource.ConnectTimeoutSec)*time.Second)
	if err != nil {
		return 0, fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	migrate.SetSchema("treasury")
	return migrate.Exec(db, "postgres", migrations, direction)
}
