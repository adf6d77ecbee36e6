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

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pipline/treasury/internal/apierror"
	"github.com/pipline/treasury/model"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const balanceColumns = `date::text, psp, opening_balance, total_inflow, total_outflow, commission_total, net_amount,
		allocation_amount, rollover_amount, closing_balance, transaction_count, currency_breakdown, reconciled`

func scanBalance(row rowScanner) (model.DailyBalance, error) {
	var b model.DailyBalance
	var breakdown []byte
	err := row.Scan(&b.Date, &b.PSP, &b.OpeningBalance, &b.TotalInflow, &b.TotalOutflow, &b.CommissionTotal, &b.NetAmount,
		&b.AllocationAmount, &b.RolloverAmount, &b.ClosingBalance, &b.TransactionCount, &breakdown, &b.Reconciled)
	if err != nil {
		return model.DailyBalance{}, err
	}
	b.CurrencyBreakdown = map[string]model.CurrencyAmount{}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &b.CurrencyBreakdown); err != nil {
			return model.DailyBalance{}, err
		}
	}
	return b, nil
}

// ReplaceDailyBalances deletes every balance of psp dated on or after from
// (all of them when from is empty) and inserts balances in one transaction.
func (d Datasource) ReplaceDailyBalances(ctx context.Context, psp, from string, balances []model.DailyBalance) error {
	ctx, span := tracer.Start(ctx, "ReplaceDailyBalances")
	defer span.End()
	span.SetAttributes(attribute.String("psp", psp), attribute.String("from", from), attribute.Int("balances", len(balances)))

	err := withTx(ctx, d.Conn, func(tx *sql.Tx) error {
		var err error
		if from == "" {
			_, err = tx.ExecContext(ctx, `DELETE FROM treasury.daily_balances WHERE psp = $1`, psp)
		} else {
			_, err = tx.ExecContext(ctx, `DELETE FROM treasury.daily_balances WHERE psp = $1 AND date >= $2`, psp, from)
		}
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to clear daily balances", err)
		}

		for _, b := range balances {
			if b.PSP != psp || (from != "" && b.Date < from) {
				return apierror.NewAPIError(apierror.ErrInternalServer, fmt.Sprintf("balance %s is outside the replaced range", b.Key()), nil)
			}
			breakdown, err := json.Marshal(b.CurrencyBreakdown)
			if err != nil {
				return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal currency breakdown", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO treasury.daily_balances (date, psp, opening_balance, total_inflow, total_outflow, commission_total,
					net_amount, allocation_amount, rollover_amount, closing_balance, transaction_count, currency_breakdown, reconciled)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			`, b.Date, b.PSP, b.OpeningBalance, b.TotalInflow, b.TotalOutflow, b.CommissionTotal, b.NetAmount,
				b.AllocationAmount, b.RolloverAmount, b.ClosingBalance, b.TransactionCount, breakdown, b.Reconciled)
			if err != nil {
				return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save daily balance", err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.AddEvent("Daily balances replaced", trace.WithAttributes(attribute.String("psp", psp)))
	return nil
}

func (d Datasource) GetDailyBalances(ctx context.Context, filter model.BalanceFilter) ([]model.DailyBalance, error) {
	ctx, span := tracer.Start(ctx, "GetDailyBalances")
	defer span.End()

	where, args := whereFilter(filter, 1)
	rows, err := d.Conn.QueryContext(ctx, `SELECT `+balanceColumns+` FROM treasury.daily_balances`+where+` ORDER BY date, psp`, args...)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve daily balances", err)
	}
	defer rows.Close()

	var balances []model.DailyBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan daily balance", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve daily balances", err)
	}
	return balances, nil
}

func (d Datasource) GetLatestBalanceBefore(ctx context.Context, psp, date string) (*model.DailyBalance, error) {
	ctx, span := tracer.Start(ctx, "GetLatestBalanceBefore")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+balanceColumns+`
		FROM treasury.daily_balances
		WHERE psp = $1 AND date < $2
		ORDER BY date DESC
		LIMIT 1
	`, psp, date)
	b, err := scanBalance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("No balance for %s before %s", psp, date), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve daily balance", err)
	}
	return &b, nil
}
