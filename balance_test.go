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
	"time"

	"github.com/pipline/treasury/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var d = decimal.RequireFromString

var baseTime = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func testPSPs() *model.PSPDirectory {
	return model.NewPSPDirectory([]model.PSPConfig{
		{Name: "Iyzico", CommissionRate: d("0.08"), IsActive: true},
		{Name: "PayPal", CommissionRate: d("0.03"), IsActive: true},
	})
}

// mustTxn builds a transaction through the same path RecordTransaction uses.
func mustTxn(t *testing.T, date, psp, category, amount, currency, rate string, offset time.Duration) model.Transaction {
	t.Helper()
	txn, err := model.NewTransaction(model.TransactionInput{
		Date:          date,
		ClientName:    "Ahmet Yilmaz",
		Category:      category,
		Amount:        d(amount),
		BaseCurrency:  currency,
		ExchangeRate:  d(rate),
		PSP:           psp,
		PaymentMethod: "bank_transfer",
	}, testPSPs(), model.NewNormalizer(model.SettlementCurrency, model.DefaultRateBands()), baseTime.Add(offset))
	require.NoError(t, err)
	return txn
}

func approved(date, psp, amount string) model.Allocation {
	return model.Allocation{
		AllocationID:     model.GenerateUUIDWithSuffix("alloc"),
		Date:             date,
		PSP:              psp,
		AllocationAmount: d(amount),
		ApprovalStatus:   model.ApprovalApproved,
		IsActive:         true,
	}
}

func TestComputeDailyBalancesDepositWithSeed(t *testing.T) {
	txns := []model.Transaction{mustTxn(t, "2024-01-15", "Iyzico", "DEP", "850000", "TRY", "1", 0)}
	priors := NewStaticPriors(nil, map[string]decimal.Decimal{"Iyzico": d("3200000")})

	balances, err := ComputeDailyBalances(txns, nil, priors)
	require.NoError(t, err)
	require.Len(t, balances, 1)

	b := balances[0]
	assert.True(t, d("3200000").Equal(b.OpeningBalance))
	assert.True(t, d("850000").Equal(b.TotalInflow))
	assert.True(t, d("68000").Equal(b.CommissionTotal))
	assert.True(t, d("782000").Equal(b.NetAmount))
	assert.True(t, d("782000").Equal(b.RolloverAmount))
	assert.True(t, d("3982000").Equal(b.ClosingBalance), b.ClosingBalance.String())
	assert.Equal(t, 1, b.TransactionCount)
	assert.True(t, b.Reconciled)
}

func TestComputeDailyBalancesForeignWithdrawal(t *testing.T) {
	txns := []model.Transaction{mustTxn(t, "2024-01-15", "Iyzico", "WD", "75000", "EUR", "37.48", 0)}

	balances, err := ComputeDailyBalances(txns, nil, NewStaticPriors(nil, nil))
	require.NoError(t, err)
	require.Len(t, balances, 1)

	b := balances[0]
	assert.True(t, d("2811000").Equal(b.TotalOutflow))
	assert.True(t, b.CommissionTotal.IsZero())
	assert.True(t, d("-2811000").Equal(b.NetAmount))
	line := b.CurrencyBreakdown["EUR"]
	assert.True(t, d("75000").Equal(line.Amount))
	assert.True(t, d("37.48").Equal(line.ExchangeRate))
	assert.True(t, d("2811000").Equal(line.SettlementAmount))
}

func TestComputeDailyBalancesChainsOpeningToPriorClosing(t *testing.T) {
	txns := []model.Transaction{
		mustTxn(t, "2024-01-14", "Iyzico", "DEP", "100000", "TRY", "1", 0),
		mustTxn(t, "2024-01-15", "Iyzico", "WD", "20000", "TRY", "1", time.Minute),
		mustTxn(t, "2024-01-16", "Iyzico", "DEP", "1000", "USD", "32.5", 2*time.Minute),
		mustTxn(t, "2024-01-15", "PayPal", "DEP", "5000", "TRY", "1", 3*time.Minute),
	}
	allocations := []model.Allocation{approved("2024-01-15", "Iyzico", "10000")}

	balances, err := ComputeDailyBalances(txns, allocations, NewStaticPriors(nil, nil))
	require.NoError(t, err)
	require.Len(t, balances, 4)

	var iyzico []model.DailyBalance
	for _, b := range balances {
		assert.Empty(t, BalanceInvariantViolation(b), b.Key().String())
		if b.PSP == "Iyzico" {
			iyzico = append(iyzico, b)
		}
	}
	require.Len(t, iyzico, 3)
	for i := 1; i < len(iyzico); i++ {
		assert.True(t, iyzico[i-1].ClosingBalance.Equal(iyzico[i].OpeningBalance), iyzico[i].Date)
	}
	assert.True(t, d("92000").Equal(iyzico[0].ClosingBalance))
	assert.True(t, d("62000").Equal(iyzico[1].ClosingBalance))
	assert.True(t, d("10000").Equal(iyzico[1].AllocationAmount))

	// sorted by date, then PSP
	assert.Equal(t, model.BalanceKey{Date: "2024-01-15", PSP: "Iyzico"}, balances[1].Key())
	assert.Equal(t, model.BalanceKey{Date: "2024-01-15", PSP: "PayPal"}, balances[2].Key())
}

func TestComputeDailyBalancesUsesStoredPrior(t *testing.T) {
	stored := []model.DailyBalance{
		{Date: "2024-01-10", PSP: "Iyzico", ClosingBalance: d("500")},
		{Date: "2024-01-12", PSP: "Iyzico", ClosingBalance: d("750")},
	}
	txns := []model.Transaction{mustTxn(t, "2024-01-15", "Iyzico", "WD", "50", "TRY", "1", 0)}

	balances, err := ComputeDailyBalances(txns, nil, NewStaticPriors(stored, map[string]decimal.Decimal{"Iyzico": d("99")}))
	require.NoError(t, err)
	assert.True(t, d("750").Equal(balances[0].OpeningBalance))
	assert.True(t, d("700").Equal(balances[0].ClosingBalance))
}

func TestComputeDailyBalancesPrefersPassOverLaterStoredBalance(t *testing.T) {
	// 2024-01-16 lost its transactions; its stored row is stale
	stored := []model.DailyBalance{
		{Date: "2024-01-12", PSP: "Iyzico", ClosingBalance: d("750")},
		{Date: "2024-01-16", PSP: "Iyzico", ClosingBalance: d("5000")},
	}
	txns := []model.Transaction{
		mustTxn(t, "2024-01-15", "Iyzico", "WD", "50", "TRY", "1", 0),
		mustTxn(t, "2024-01-17", "Iyzico", "WD", "50", "TRY", "1", time.Minute),
	}

	balances, err := ComputeDailyBalances(txns, nil, NewStaticPriors(stored, nil))
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.True(t, d("700").Equal(balances[0].ClosingBalance))
	assert.True(t, balances[0].ClosingBalance.Equal(balances[1].OpeningBalance))
	assert.True(t, d("650").Equal(balances[1].ClosingBalance))
}

func TestComputeDailyBalancesIsIdempotent(t *testing.T) {
	txns := []model.Transaction{
		mustTxn(t, "2024-01-14", "Iyzico", "DEP", "1234.56", "USD", "32.1", 0),
		mustTxn(t, "2024-01-14", "PayPal", "WD", "99.99", "EUR", "35", time.Second),
		mustTxn(t, "2024-01-15", "Iyzico", "DEP", "10", "TRY", "1", 2*time.Second),
	}
	allocations := []model.Allocation{approved("2024-01-14", "Iyzico", "100")}
	priors := NewStaticPriors(nil, map[string]decimal.Decimal{"PayPal": d("5000")})

	first, err := ComputeDailyBalances(txns, allocations, priors)
	require.NoError(t, err)
	second, err := ComputeDailyBalances(txns, allocations, priors)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeDailyBalancesAllocationRules(t *testing.T) {
	pending := approved("2024-01-15", "Iyzico", "300")
	pending.ApprovalStatus = model.ApprovalPending
	inactive := approved("2024-01-15", "Iyzico", "400")
	inactive.IsActive = false

	t.Run("only active approved allocations count", func(t *testing.T) {
		txns := []model.Transaction{mustTxn(t, "2024-01-15", "Iyzico", "WD", "1000", "TRY", "1", 0)}
		balances, err := ComputeDailyBalances(txns, []model.Allocation{pending, inactive}, nil)
		require.NoError(t, err)
		assert.True(t, balances[0].AllocationAmount.IsZero())
	})

	t.Run("allocation without transactions produces a balance", func(t *testing.T) {
		balances, err := ComputeDailyBalances(nil, []model.Allocation{approved("2024-01-15", "PayPal", "250")}, nil)
		require.NoError(t, err)
		require.Len(t, balances, 1)
		assert.True(t, d("-250").Equal(balances[0].ClosingBalance))
		assert.Equal(t, 0, balances[0].TransactionCount)
	})

	t.Run("duplicate active allocations are rejected", func(t *testing.T) {
		_, err := ComputeDailyBalances(nil, []model.Allocation{
			approved("2024-01-15", "PayPal", "1"),
			approved("2024-01-15", "PayPal", "2"),
		}, nil)
		assert.ErrorIs(t, err, model.ErrValidation)
	})
}

func TestComputeDailyBalancesPendingTransactionIsNotReconciled(t *testing.T) {
	txn := mustTxn(t, "2024-01-15", "Iyzico", "DEP", "100", "TRY", "1", 0)
	txn.Status = model.StatusPending

	balances, err := ComputeDailyBalances([]model.Transaction{txn}, nil, nil)
	require.NoError(t, err)
	assert.False(t, balances[0].Reconciled)
}

func TestComputeDailyBalancesRejectsInvalidRecord(t *testing.T) {
	txn := mustTxn(t, "2024-01-15", "Iyzico", "DEP", "100", "TRY", "1", 0)
	txn.Date = "15/01/2024"

	_, err := ComputeDailyBalances([]model.Transaction{txn}, nil, nil)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestStaticPriorsClosingBefore(t *testing.T) {
	priors := NewStaticPriors([]model.DailyBalance{
		{Date: "2024-01-12", PSP: "Iyzico", ClosingBalance: d("2")},
		{Date: "2024-01-10", PSP: "Iyzico", ClosingBalance: d("1")},
	}, nil)

	_, ok := priors.ClosingBefore("Iyzico", "2024-01-10")
	assert.False(t, ok)

	b, ok := priors.ClosingBefore("Iyzico", "2024-01-12")
	require.True(t, ok)
	assert.Equal(t, "2024-01-10", b.Date)

	b, ok = priors.ClosingBefore("Iyzico", "2024-02-01")
	require.True(t, ok)
	assert.Equal(t, "2024-01-12", b.Date)

	assert.True(t, priors.Seed("PayPal").IsZero())
}
