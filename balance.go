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

	"github.com/pipline/treasury/model"
	"github.com/shopspring/decimal"
)

// PriorBalances is the lookup the balance engine uses to seed a PSP's
// opening balance when the current pass has no earlier date for it.
// Recorded balances should predate the pass; once a PSP has a date in the
// pass, later dates chain from the pass and recorded ones are ignored.
type PriorBalances interface {
	// ClosingBefore returns the latest recorded balance for psp strictly before date.
	ClosingBefore(psp, date string) (model.DailyBalance, bool)
	// Seed returns the configured opening position for a PSP with no history.
	Seed(psp string) decimal.Decimal
}

// StaticPriors is an in-memory PriorBalances built from stored balances.
type StaticPriors struct {
	byPSP map[string][]model.DailyBalance
	seeds map[string]decimal.Decimal
}

func NewStaticPriors(balances []model.DailyBalance, seeds map[string]decimal.Decimal) *StaticPriors {
	byPSP := make(map[string][]model.DailyBalance)
	for _, b := range balances {
		byPSP[b.PSP] = append(byPSP[b.PSP], b)
	}
	for _, list := range byPSP {
		sort.Slice(list, func(i, j int) bool { return list[i].Date < list[j].Date })
	}
	if seeds == nil {
		seeds = map[string]decimal.Decimal{}
	}
	return &StaticPriors{byPSP: byPSP, seeds: seeds}
}

func (p *StaticPriors) ClosingBefore(psp, date string) (model.DailyBalance, bool) {
	list := p.byPSP[psp]
	i := sort.Search(len(list), func(i int) bool { return list[i].Date >= date })
	if i == 0 {
		return model.DailyBalance{}, false
	}
	return list[i-1], true
}

func (p *StaticPriors) Seed(psp string) decimal.Decimal {
	return p.seeds[psp]
}

// EffectiveAllocation reports whether an allocation takes part in balance computation.
func EffectiveAllocation(a model.Allocation) bool {
	return a.IsActive && a.ApprovalStatus == model.ApprovalApproved
}

type balanceGroup struct {
	key          model.BalanceKey
	transactions []model.Transaction
}

// ComputeDailyBalances groups transactions by (date, psp) and rolls each
// PSP's balance forward date by date. It is pure: the same transactions,
// allocations and priors always produce the same balances, sorted by date
// then PSP.
func ComputeDailyBalances(transactions []model.Transaction, allocations []model.Allocation, prior PriorBalances) ([]model.DailyBalance, error) {
	groups := make(map[model.BalanceKey]*balanceGroup)
	group := func(key model.BalanceKey) *balanceGroup {
		g, ok := groups[key]
		if !ok {
			g = &balanceGroup{key: key}
			groups[key] = g
		}
		return g
	}

	for _, txn := range transactions {
		if err := txn.ValidateRecord(); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", txn.TransactionID, err)
		}
		g := group(model.BalanceKey{Date: txn.Date, PSP: txn.PSP})
		g.transactions = append(g.transactions, txn)
	}

	allocated, err := indexAllocations(allocations)
	if err != nil {
		return nil, err
	}
	for key := range allocated {
		group(key)
	}

	keys := make([]model.BalanceKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	computed := make(map[string]model.DailyBalance)
	balances := make([]model.DailyBalance, 0, len(keys))
	for _, key := range keys {
		opening := resolveOpening(key, computed, prior)
		balance := buildBalance(groups[key], opening, allocated[key].AllocationAmount)
		computed[key.PSP] = balance
		balances = append(balances, balance)
	}
	return balances, nil
}

func indexAllocations(allocations []model.Allocation) (map[model.BalanceKey]model.Allocation, error) {
	index := make(map[model.BalanceKey]model.Allocation)
	for _, a := range allocations {
		if !EffectiveAllocation(a) {
			continue
		}
		if _, err := model.ParseDate(a.Date); err != nil {
			return nil, err
		}
		key := model.BalanceKey{Date: a.Date, PSP: a.PSP}
		if _, dup := index[key]; dup {
			return nil, model.NewValidationError("allocation", fmt.Sprintf("more than one active allocation for %s", key))
		}
		index[key] = a
	}
	return index, nil
}

// resolveOpening chains from the PSP's previous date in this pass. Without
// one it takes the latest recorded closing before key.Date, then the seed.
func resolveOpening(key model.BalanceKey, computed map[string]model.DailyBalance, prior PriorBalances) decimal.Decimal {
	if last, inPass := computed[key.PSP]; inPass {
		return last.ClosingBalance
	}
	if prior == nil {
		return decimal.Zero
	}
	if stored, ok := prior.ClosingBefore(key.PSP, key.Date); ok {
		return stored.ClosingBalance
	}
	return prior.Seed(key.PSP)
}

func buildBalance(g *balanceGroup, opening, allocation decimal.Decimal) model.DailyBalance {
	b := model.DailyBalance{
		Date:              g.key.Date,
		PSP:               g.key.PSP,
		OpeningBalance:    opening,
		TotalInflow:       decimal.Zero,
		TotalOutflow:      decimal.Zero,
		CommissionTotal:   decimal.Zero,
		AllocationAmount:  allocation,
		TransactionCount:  len(g.transactions),
		CurrencyBreakdown: make(map[string]model.CurrencyAmount),
		Reconciled:        true,
	}

	for _, txn := range g.transactions {
		switch txn.Category {
		case model.CategoryDeposit:
			b.TotalInflow = b.TotalInflow.Add(txn.SettlementAmount)
		case model.CategoryWithdrawal:
			b.TotalOutflow = b.TotalOutflow.Add(txn.SettlementAmount)
		}
		b.CommissionTotal = b.CommissionTotal.Add(txn.Commission)
		if txn.Status != model.StatusCompleted {
			b.Reconciled = false
		}

		line, seen := b.CurrencyBreakdown[txn.BaseCurrency]
		if !seen {
			line = model.CurrencyAmount{Amount: decimal.Zero, ExchangeRate: txn.ExchangeRate, SettlementAmount: decimal.Zero}
		}
		line.Amount = line.Amount.Add(txn.Amount)
		line.SettlementAmount = line.SettlementAmount.Add(txn.SettlementAmount)
		b.CurrencyBreakdown[txn.BaseCurrency] = line
	}

	b.NetAmount = b.TotalInflow.Sub(b.TotalOutflow).Sub(b.CommissionTotal)
	b.RolloverAmount = b.NetAmount.Sub(b.AllocationAmount)
	b.ClosingBalance = b.OpeningBalance.Add(b.RolloverAmount)
	return b
}
