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
	"io"
	"os"

	"github.com/pipline/treasury/internal/export"
	"github.com/pipline/treasury/model"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// exportCommands writes daily balances to a CSV or XLSX file.
func exportCommands(app *treasuryInstance) *cobra.Command {
	var filter model.BalanceFilter
	var formatName, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "export daily balances as csv or xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer func() {
				if err := app.treasury.Close(); err != nil {
					logrus.Warnf("error closing treasury: %v", err)
				}
			}()

			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("error creating %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			return app.treasury.ExportBalances(context.Background(), w, filter, format)
		},
	}

	cmd.Flags().StringVar(&filter.PSP, "psp", "", "restrict to one PSP")
	cmd.Flags().StringVar(&filter.From, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&filter.To, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVar(&formatName, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "output file (defaults to stdout)")
	return cmd
}
