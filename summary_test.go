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
	"testing"

	"github.com/pipline/treasury/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	txns := []model.Transaction{
		mustTxn(t, "2024-01-15", "Iyzico", "DEP", "1000", "TRY", "1", 0),
		mustTxn(t, "2024-01-15", "PayPal", "WD", "200", "TRY", "1", 0),
		mustTxn(t, "2024-01-16", "PayPal", "DEP", "100", "TRY", "1", 0),
	}
	balances, err := ComputeDailyBalances(txns, []model.Allocation{approved("2024-01-15", "Iyzico", "20")}, nil)
	require.NoError(t, err)

	summaries := Aggregate(balances, InvariantCheck, NewChainCheck(balances))
	require.Len(t, summaries, 2)

	first := summaries[0]
	assert.Equal(t, "2024-01-15", first.Date)
	assert.Equal(t, 2, first.TotalPSPs)
	assert.True(t, d("1000").Equal(first.TotalInflow))
	assert.True(t, d("200").Equal(first.TotalOutflow))
	assert.True(t, d("80").Equal(first.TotalCommission))
	assert.True(t, d("720").Equal(first.TotalNetAmount))
	assert.True(t, d("20").Equal(first.TotalAllocations))
	assert.True(t, d("700").Equal(first.TotalRollovers))
	assert.True(t, d("700").Equal(first.TotalClosingBalance))
	assert.Equal(t, model.ReconciliationComplete, first.ReconciliationStatus)

	assert.Equal(t, 1, summaries[1].TotalPSPs)
	assert.True(t, d("-103").Equal(summaries[1].TotalClosingBalance))
}

func TestAggregateStatuses(t *testing.T) {
	pending := mustTxn(t, "2024-01-15", "Iyzico", "DEP", "1000", "TRY", "1", 0)
	pending.Status = model.StatusPending
	balances, err := ComputeDailyBalances([]model.Transaction{pending}, nil, nil)
	require.NoError(t, err)

	t.Run("pending", func(t *testing.T) {
		summaries := Aggregate(balances, InvariantCheck)
		assert.Equal(t, model.ReconciliationPending, summaries[0].ReconciliationStatus)
	})

	t.Run("broken identity", func(t *testing.T) {
		broken := append([]model.DailyBalance(nil), balances...)
		broken[0].ClosingBalance = broken[0].ClosingBalance.Add(d("1"))
		assert.Equal(t, "closing_balance", BalanceInvariantViolation(broken[0]))
		summaries := Aggregate(broken, InvariantCheck)
		assert.Equal(t, model.ReconciliationDiscrepancy, summaries[0].ReconciliationStatus)
	})

	t.Run("broken chain", func(t *testing.T) {
		chain := []model.DailyBalance{
			{Date: "2024-01-15", PSP: "PayPal", OpeningBalance: d("0"), ClosingBalance: d("10"), Reconciled: true},
			{Date: "2024-01-16", PSP: "PayPal", OpeningBalance: d("11"), ClosingBalance: d("11"), Reconciled: true},
		}
		summaries := Aggregate(chain, NewChainCheck(chain))
		assert.Equal(t, model.ReconciliationComplete, summaries[0].ReconciliationStatus)
		assert.Equal(t, model.ReconciliationDiscrepancy, summaries[1].ReconciliationStatus)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, Aggregate(nil))
	})
}
