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

package treasury

import (
	"context"

	"github.com/pipline/treasury/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Error(msg, err)
	return err
}

// RecordTransaction validates input against the active PSPs, freezes its
// settlement amount and commission, stores it and rebuilds the PSP's
// balances from the transaction date.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - input model.TransactionInput: The raw transaction.
//
// Returns:
// - *model.Transaction: The stored transaction.
// - error: A validation, rate, PSP or storage error.
func (t *Treasury) RecordTransaction(ctx context.Context, input model.TransactionInput) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Recording transaction")
	defer span.End()

	psps, err := t.pspDirectory(ctx)
	if err != nil {
		return nil, logAndRecordError(span, "loading psps: ", err)
	}

	txn, err := model.NewTransaction(input, psps, t.normalizer, t.now().UTC())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("transaction.id", txn.TransactionID), attribute.String("psp", txn.PSP))

	stored, err := t.datasource.RecordTransaction(ctx, &txn)
	if err != nil {
		return nil, logAndRecordError(span, "persisting transaction: ", err)
	}

	if err := t.afterMutation(ctx, Scope{PSP: stored.PSP, From: stored.Date}); err != nil {
		return stored, logAndRecordError(span, "recomputing after transaction: ", err)
	}
	return stored, nil
}

func (t *Treasury) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	return t.datasource.GetTransaction(ctx, id)
}

// GetTransactions lists transactions matching filter in (date, psp, creation) order.
func (t *Treasury) GetTransactions(ctx context.Context, filter model.BalanceFilter) ([]model.Transaction, error) {
	return t.datasource.GetTransactions(ctx, filter)
}

// DeleteTransaction removes a transaction and rebuilds every balance of its
// PSP from the transaction date onward.
func (t *Treasury) DeleteTransaction(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Deleting transaction")
	defer span.End()

	txn, err := t.datasource.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if err := t.datasource.DeleteTransaction(ctx, id); err != nil {
		return logAndRecordError(span, "deleting transaction: ", err)
	}
	logrus.WithFields(logrus.Fields{"transaction_id": id, "psp": txn.PSP, "date": txn.Date}).Info("transaction deleted")
	return t.afterMutation(ctx, Scope{PSP: txn.PSP, From: txn.Date})
}
