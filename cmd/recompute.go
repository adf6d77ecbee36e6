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
	"sort"

	"github.com/pipline/treasury"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// recomputeCommands rebuilds stored daily balances from the source records.
func recomputeCommands(app *treasuryInstance) *cobra.Command {
	var psp, from string

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "rebuild daily balances for one PSP or all of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			defer func() {
				if err := app.treasury.Close(); err != nil {
					logrus.Warnf("error closing treasury: %v", err)
				}
			}()

			var scopes []treasury.Scope
			if psp != "" {
				scopes = append(scopes, treasury.Scope{PSP: psp, From: from})
			} else if from != "" {
				return fmt.Errorf("--from requires --psp")
			}

			results, err := app.treasury.RecomputeAll(ctx, scopes)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(results))
			for name := range results {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d daily balances\n", name, len(results[name]))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&psp, "psp", "", "PSP to recompute (defaults to every PSP)")
	cmd.Flags().StringVar(&from, "from", "", "first date to rebuild, YYYY-MM-DD")
	return cmd
}
