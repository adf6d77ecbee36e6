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
	"fmt"
	"io"

	"github.com/pipline/treasury/internal/export"
	"github.com/pipline/treasury/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

func validateFilter(filter model.BalanceFilter) error {
	for _, date := range []string{filter.From, filter.To} {
		if date == "" {
			continue
		}
		if _, err := model.ParseDate(date); err != nil {
			return err
		}
	}
	if filter.From != "" && filter.To != "" && filter.From > filter.To {
		return model.NewValidationError("to", "must not be before from")
	}
	return nil
}

// cached serves key from the balance cache, filling it with load on a miss.
// Cache failures fall through to load.
func cached[T any](ctx context.Context, t *Treasury, key string, load func() (T, error)) (T, error) {
	var value T
	cacheKey, err := t.cache.Key(ctx, balancesNamespace, key)
	if err == nil {
		found, err := t.cache.Get(ctx, cacheKey, &value)
		if err == nil && found {
			return value, nil
		}
		if err != nil {
			logrus.Warnf("reading cache %s: %v", cacheKey, err)
		}
	} else {
		logrus.Warnf("resolving cache key %s: %v", key, err)
	}

	value, err = load()
	if err != nil {
		return value, err
	}
	if cacheKey != "" {
		if err := t.cache.Set(ctx, cacheKey, value, t.conf.Cache.TTL()); err != nil {
			logrus.Warnf("writing cache %s: %v", cacheKey, err)
		}
	}
	return value, nil
}

func filterKey(kind string, filter model.BalanceFilter) string {
	return fmt.Sprintf("%s:%s:%s:%s", kind, filter.PSP, filter.From, filter.To)
}

// GetDailyBalances returns stored balances matching filter ordered by (date, psp).
func (t *Treasury) GetDailyBalances(ctx context.Context, filter model.BalanceFilter) ([]model.DailyBalance, error) {
	ctx, span := tracer.Start(ctx, "GetDailyBalances")
	defer span.End()
	span.SetAttributes(attribute.String("psp", filter.PSP), attribute.String("from", filter.From), attribute.String("to", filter.To))

	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return cached(ctx, t, filterKey("daily", filter), func() ([]model.DailyBalance, error) {
		return t.datasource.GetDailyBalances(ctx, filter)
	})
}

// GetLedgerEntries expands the balances and transactions matching filter into
// general ledger entries in the settlement currency.
func (t *Treasury) GetLedgerEntries(ctx context.Context, filter model.BalanceFilter) ([]model.LedgerEntry, error) {
	ctx, span := tracer.Start(ctx, "GetLedgerEntries")
	defer span.End()

	balances, err := t.GetDailyBalances(ctx, filter)
	if err != nil {
		return nil, err
	}
	transactions, err := t.datasource.GetTransactions(ctx, filter)
	if err != nil {
		return nil, err
	}
	entries, err := GenerateEntries(transactions, balances, LedgerOptions{
		Currency: t.normalizer.SettlementCurrency(),
		Now:      t.now,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return entries, nil
}

// GetSummaries aggregates the balances matching filter into one summary per
// date. A date is a discrepancy when a balance breaks its identities or its
// opening does not match the previous closing.
func (t *Treasury) GetSummaries(ctx context.Context, filter model.BalanceFilter) ([]model.DailySummary, error) {
	ctx, span := tracer.Start(ctx, "GetSummaries")
	defer span.End()

	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return cached(ctx, t, filterKey("summary", filter), func() ([]model.DailySummary, error) {
		balances, err := t.datasource.GetDailyBalances(ctx, filter)
		if err != nil {
			return nil, err
		}
		return Aggregate(balances, InvariantCheck, NewChainCheck(balances)), nil
	})
}

// ExportBalances writes the balances matching filter to w in format.
func (t *Treasury) ExportBalances(ctx context.Context, w io.Writer, filter model.BalanceFilter, format export.Format) error {
	ctx, span := tracer.Start(ctx, "ExportBalances")
	defer span.End()
	span.SetAttributes(attribute.String("format", string(format)))

	balances, err := t.GetDailyBalances(ctx, filter)
	if err != nil {
		return err
	}
	return export.Write(w, format, balances)
}
