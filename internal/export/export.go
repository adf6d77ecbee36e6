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

// Package export renders daily balances as CSV or XLSX reports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pipline/treasury/model"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const sheetName = "Balances"

// Columns is the header row shared by every format.
var Columns = []string{
	"Date", "PSP", "Opening Balance", "Inflow", "Outflow", "Commission",
	"Net", "Allocation", "Rollover", "Closing Balance", "Transaction Count", "Reconciled",
}

// ParseFormat accepts a format name case-insensitively. Empty means CSV.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", model.NewValidationError("format", fmt.Sprintf("unsupported export format %q", value))
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

func (f Format) Filename(base string) string {
	return fmt.Sprintf("%s.%s", base, f)
}

func reconciled(ok bool) string {
	if ok {
		return "Yes"
	}
	return "No"
}

func money(d decimal.Decimal) string {
	return d.StringFixed(model.MoneyPlaces)
}

// Row renders one balance with money fixed to two places.
func Row(b model.DailyBalance) []string {
	return []string{
		b.Date,
		b.PSP,
		money(b.OpeningBalance),
		money(b.TotalInflow),
		money(b.TotalOutflow),
		money(b.CommissionTotal),
		money(b.NetAmount),
		money(b.AllocationAmount),
		money(b.RolloverAmount),
		money(b.ClosingBalance),
		strconv.Itoa(b.TransactionCount),
		reconciled(b.Reconciled),
	}
}

func WriteCSV(w io.Writer, balances []model.DailyBalance) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, b := range balances {
		if err := cw.Write(Row(b)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook. Money columns are numeric cells
// with a two-decimal number format.
func WriteXLSX(w io.Writer, balances []model.DailyBalance) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	for i, b := range balances {
		row := []interface{}{
			b.Date,
			b.PSP,
			b.OpeningBalance.InexactFloat64(),
			b.TotalInflow.InexactFloat64(),
			b.TotalOutflow.InexactFloat64(),
			b.CommissionTotal.InexactFloat64(),
			b.NetAmount.InexactFloat64(),
			b.AllocationAmount.InexactFloat64(),
			b.RolloverAmount.InexactFloat64(),
			b.ClosingBalance.InexactFloat64(),
			b.TransactionCount,
			reconciled(b.Reconciled),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}

	style, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return err
	}
	if err := f.SetColStyle(sheetName, "C:J", style); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "A", "L", 16); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

func Write(w io.Writer, format Format, balances []model.DailyBalance) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, balances)
	case FormatXLSX:
		return WriteXLSX(w, balances)
	}
	return model.NewValidationError("format", fmt.Sprintf("unsupported export format %q", format))
}
