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
	"fmt"

	"github.com/pipline/treasury/internal/apierror"
	"github.com/pipline/treasury/model"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const transactionColumns = `transaction_id, date::text, client_name, category, amount, base_currency, exchange_rate, psp,
		payment_method, notes, status, commission_rate, commission, net_amount, settlement_amount, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var txn model.Transaction
	var paymentMethod sql.NullString
	var notes sql.NullString
	err := row.Scan(&txn.TransactionID, &txn.Date, &txn.ClientName, &txn.Category, &txn.Amount, &txn.BaseCurrency,
		&txn.ExchangeRate, &txn.PSP, &paymentMethod, &notes, &txn.Status, &txn.CommissionRate, &txn.Commission,
		&txn.NetAmount, &txn.SettlementAmount, &txn.CreatedAt)
	if err != nil {
		return model.Transaction{}, err
	}
	txn.PaymentMethod = paymentMethod.String
	if notes.Valid {
		txn.Notes = &notes.String
	}
	return txn, nil
}

func (d Datasource) RecordTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "RecordTransaction")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO treasury.transactions (transaction_id, date, client_name, category, amount, base_currency, exchange_rate, psp,
			payment_method, notes, status, commission_rate, commission, net_amount, settlement_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, txn.TransactionID, txn.Date, txn.ClientName, txn.Category, txn.Amount, txn.BaseCurrency, txn.ExchangeRate, txn.PSP,
		txn.PaymentMethod, txn.Notes, txn.Status, txn.CommissionRate, txn.Commission, txn.NetAmount, txn.SettlementAmount, txn.CreatedAt)
	if err != nil {
		span.RecordError(err)
		if isUniqueViolation(err) {
			return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Transaction '%s' already exists", txn.TransactionID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record transaction", err)
	}
	span.AddEvent("Transaction recorded", trace.WithAttributes(attribute.String("transaction.id", txn.TransactionID)))
	return txn, nil
}

func (d Datasource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "GetTransaction")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM treasury.transactions WHERE transaction_id = $1`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with ID '%s' not found", id), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transaction", err)
	}
	return &txn, nil
}

func (d Datasource) DeleteTransaction(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "DeleteTransaction")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `DELETE FROM treasury.transactions WHERE transaction_id = $1`, id)
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete transaction", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete transaction", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with ID '%s' not found", id), nil)
	}
	return nil
}

func (d Datasource) GetTransactions(ctx context.Context, filter model.BalanceFilter) ([]model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "GetTransactions")
	defer span.End()

	where, args := whereFilter(filter, 1)
	rows, err := d.Conn.QueryContext(ctx, `SELECT `+transactionColumns+` FROM treasury.transactions`+where+` ORDER BY date, psp, created_at, id`, args...)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transactions", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan transaction", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transactions", err)
	}
	return transactions, nil
}
