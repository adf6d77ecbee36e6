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
	"sort"

	"github.com/pipline/treasury/model"
	"github.com/shopspring/decimal"
)

// DiscrepancyCheck inspects the balances of one date and reports whether
// they fail a cross-check.
type DiscrepancyCheck func(date string, balances []model.DailyBalance) bool

// InvariantCheck flags a date where any balance breaks the net, rollover or
// closing identities.
func InvariantCheck(_ string, balances []model.DailyBalance) bool {
	for _, b := range balances {
		if BalanceInvariantViolation(b) != "" {
			return true
		}
	}
	return false
}

// BalanceInvariantViolation names the first identity b breaks, or "".
func BalanceInvariantViolation(b model.DailyBalance) string {
	switch {
	case !b.NetAmount.Equal(b.TotalInflow.Sub(b.TotalOutflow).Sub(b.CommissionTotal)):
		return "net_amount"
	case !b.RolloverAmount.Equal(b.NetAmount.Sub(b.AllocationAmount)):
		return "rollover_amount"
	case !b.ClosingBalance.Equal(b.OpeningBalance.Add(b.RolloverAmount)):
		return "closing_balance"
	}
	return ""
}

// Aggregate rolls balances up into one summary per date, ordered by date.
func Aggregate(balances []model.DailyBalance, checks ...DiscrepancyCheck) []model.DailySummary {
	byDate := make(map[string][]model.DailyBalance)
	for _, b := range balances {
		byDate[b.Date] = append(byDate[b.Date], b)
	}
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	summaries := make([]model.DailySummary, 0, len(dates))
	for _, date := range dates {
		summaries = append(summaries, summarize(date, byDate[date], checks))
	}
	return summaries
}

func summarize(date string, balances []model.DailyBalance, checks []DiscrepancyCheck) model.DailySummary {
	s := model.DailySummary{
		Date:                 date,
		TotalOpeningBalance:  decimal.Zero,
		TotalInflow:          decimal.Zero,
		TotalOutflow:         decimal.Zero,
		TotalCommission:      decimal.Zero,
		TotalNetAmount:       decimal.Zero,
		TotalAllocations:     decimal.Zero,
		TotalRollovers:       decimal.Zero,
		TotalClosingBalance:  decimal.Zero,
		ReconciliationStatus: model.ReconciliationComplete,
	}

	psps := make(map[string]struct{})
	for _, b := range balances {
		psps[b.PSP] = struct{}{}
		s.TotalOpeningBalance = s.TotalOpeningBalance.Add(b.OpeningBalance)
		s.TotalInflow = s.TotalInflow.Add(b.TotalInflow)
		s.TotalOutflow = s.TotalOutflow.Add(b.TotalOutflow)
		s.TotalCommission = s.TotalCommission.Add(b.CommissionTotal)
		s.TotalNetAmount = s.TotalNetAmount.Add(b.NetAmount)
		s.TotalAllocations = s.TotalAllocations.Add(b.AllocationAmount)
		s.TotalRollovers = s.TotalRollovers.Add(b.RolloverAmount)
		s.TotalClosingBalance = s.TotalClosingBalance.Add(b.ClosingBalance)
		if !b.Reconciled {
			s.ReconciliationStatus = model.ReconciliationPending
		}
	}
	s.TotalPSPs = len(psps)

	for _, check := range checks {
		if check(date, balances) {
			s.ReconciliationStatus = model.ReconciliationDiscrepancy
			break
		}
	}
	return s
}

// NewChainCheck flags a date where a PSP's opening balance differs from its
// closing balance on the previous date present in history.
func NewChainCheck(history []model.DailyBalance) DiscrepancyCheck {
	byPSP := make(map[string][]model.DailyBalance)
	for _, b := range history {
		byPSP[b.PSP] = append(byPSP[b.PSP], b)
	}
	expected := make(map[model.BalanceKey]decimal.Decimal)
	for _, balances := range byPSP {
		sort.Slice(balances, func(i, j int) bool { return balances[i].Date < balances[j].Date })
		for i := 1; i < len(balances); i++ {
			expected[balances[i].Key()] = balances[i-1].ClosingBalance
		}
	}
	return func(_ string, balances []model.DailyBalance) bool {
		for _, b := range balances {
			if want, ok := expected[b.Key()]; ok && !want.Equal(b.OpeningBalance) {
				return true
			}
		}
		return false
	}
}
