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
	"fmt"
	"sort"
	"time"

	"github.com/pipline/treasury/model"
	"github.com/shopspring/decimal"
)

// LedgerOptions controls entry numbering and audit fields.
type LedgerOptions struct {
	// StartSequence is the number of the first entry. Zero means 1.
	StartSequence int
	CreatedBy     string
	Currency      string
	Now           func() time.Time
}

type ledgerWriter struct {
	opts    LedgerOptions
	seq     int
	at      time.Time
	entries []model.LedgerEntry
	running decimal.Decimal
}

func (w *ledgerWriter) post(key model.BalanceKey, typ model.EntryType, description, reference string, debit, credit decimal.Decimal, source string, rate decimal.Decimal) {
	w.running = w.running.Add(credit).Sub(debit)
	w.entries = append(w.entries, model.LedgerEntry{
		EntryID:        fmt.Sprintf("LE-%04d", w.seq),
		Date:           key.Date,
		Type:           typ,
		Description:    description,
		Reference:      reference,
		Debit:          debit,
		Credit:         credit,
		RunningBalance: w.running,
		PSP:            key.PSP,
		Currency:       w.opts.Currency,
		SourceCurrency: source,
		ExchangeRate:   rate,
		CreatedBy:      w.opts.CreatedBy,
		CreatedAt:      w.at,
	})
	w.seq++
}

// GenerateEntries expands each (date, psp) into an opening entry, one entry
// per transaction, a commission entry per commissioned deposit and an
// allocation entry, threading the running balance so the last entry of a
// group equals that day's closing balance. Every group needs a computed
// balance; a transaction without one fails with an OrderingError.
func GenerateEntries(transactions []model.Transaction, balances []model.DailyBalance, opts LedgerOptions) ([]model.LedgerEntry, error) {
	if opts.StartSequence <= 0 {
		opts.StartSequence = 1
	}
	if opts.Currency == "" {
		opts.Currency = model.SettlementCurrency
	}
	if opts.CreatedBy == "" {
		opts.CreatedBy = "system"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	byKey := make(map[model.BalanceKey]model.DailyBalance, len(balances))
	for _, b := range balances {
		byKey[b.Key()] = b
	}

	grouped := make(map[model.BalanceKey][]model.Transaction)
	for _, txn := range transactions {
		key := model.BalanceKey{Date: txn.Date, PSP: txn.PSP}
		if _, ok := byKey[key]; !ok {
			return nil, &model.OrderingError{Date: txn.Date, PSP: txn.PSP}
		}
		grouped[key] = append(grouped[key], txn)
	}

	keys := make([]model.BalanceKey, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	w := &ledgerWriter{opts: opts, seq: opts.StartSequence, at: opts.Now()}
	one := decimal.NewFromInt(1)
	for _, key := range keys {
		balance := byKey[key]
		txns := grouped[key]
		sort.SliceStable(txns, func(i, j int) bool { return txns[i].CreatedAt.Before(txns[j].CreatedAt) })

		w.running = decimal.Zero
		opening := balance.OpeningBalance
		if opening.IsNegative() {
			w.post(key, model.EntryOpening, fmt.Sprintf("Opening balance for %s", key.PSP), openingReference(key), opening.Neg(), decimal.Zero, "", one)
		} else {
			w.post(key, model.EntryOpening, fmt.Sprintf("Opening balance for %s", key.PSP), openingReference(key), decimal.Zero, opening, "", one)
		}

		for _, txn := range txns {
			switch txn.Category {
			case model.CategoryDeposit:
				w.post(key, model.EntryDeposit, fmt.Sprintf("Deposit from %s via %s", txn.ClientName, txn.PSP), txn.TransactionID,
					decimal.Zero, txn.SettlementAmount, txn.BaseCurrency, txn.ExchangeRate)
			case model.CategoryWithdrawal:
				w.post(key, model.EntryWithdrawal, fmt.Sprintf("Withdrawal to %s via %s", txn.ClientName, txn.PSP), txn.TransactionID,
					txn.SettlementAmount, decimal.Zero, txn.BaseCurrency, txn.ExchangeRate)
			}
			if txn.Commission.IsPositive() {
				w.post(key, model.EntryCommission, fmt.Sprintf("%s commission (%s%%) on %s", txn.PSP, txn.CommissionRate.Shift(2).String(), txn.TransactionID), txn.TransactionID,
					txn.Commission, decimal.Zero, "", one)
			}
		}

		if balance.AllocationAmount.IsPositive() {
			w.post(key, model.EntryAllocation, fmt.Sprintf("Allocation for %s", key.PSP), allocationReference(key),
				balance.AllocationAmount, decimal.Zero, "", one)
		}
	}
	return w.entries, nil
}

func openingReference(key model.BalanceKey) string {
	return fmt.Sprintf("OPEN-%s-%s", key.Date, key.PSP)
}

func allocationReference(key model.BalanceKey) string {
	return fmt.Sprintf("ALLOC-%s-%s", key.Date, key.PSP)
}

// LastRunningBalances returns the final running balance of every (date, psp) group.
func LastRunningBalances(entries []model.LedgerEntry) map[model.BalanceKey]decimal.Decimal {
	last := make(map[model.BalanceKey]decimal.Decimal)
	for _, e := range entries {
		last[model.BalanceKey{Date: e.Date, PSP: e.PSP}] = e.RunningBalance
	}
	return last
}
