package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 9, 3, 10, 0, 0, 0, time.UTC)

func depositInput() TransactionInput {
	return TransactionInput{
		Date:          "2025-09-03",
		ClientName:    "Ahmet Yilmaz",
		Category:      "DEP",
		Amount:        d("850000"),
		BaseCurrency:  "TL",
		ExchangeRate:  d("1"),
		PSP:           "Iyzico",
		PaymentMethod: "Bank Transfer",
	}
}

func TestNewTransaction_Deposit(t *testing.T) {
	txn, err := NewTransaction(depositInput(), testDirectory(), NewNormalizer("", nil), testNow)
	require.NoError(t, err)

	assert.Contains(t, txn.TransactionID, "txn_")
	assert.Equal(t, CategoryDeposit, txn.Category)
	assert.Equal(t, "TRY", txn.BaseCurrency)
	assert.Equal(t, StatusCompleted, txn.Status)
	assert.True(t, d("0.08").Equal(txn.CommissionRate))
	assert.True(t, d("68000").Equal(txn.Commission))
	assert.True(t, d("782000").Equal(txn.NetAmount))
	assert.True(t, d("850000").Equal(txn.SettlementAmount))
	assert.True(t, d("850000").Equal(txn.Signed()))
	assert.Equal(t, testNow, txn.CreatedAt)
}

func TestNewTransaction_ForeignWithdrawal(t *testing.T) {
	input := TransactionInput{
		TransactionID: "TX-2",
		Date:          "2025-09-03",
		ClientName:    "Acme Ltd",
		Category:      "WD",
		Amount:        d("75000"),
		BaseCurrency:  "EUR",
		ExchangeRate:  d("37.48"),
		PSP:           "Papara",
	}
	txn, err := NewTransaction(input, testDirectory(), NewNormalizer("", nil), testNow)
	require.NoError(t, err)

	assert.Equal(t, "TX-2", txn.TransactionID)
	assert.Equal(t, CategoryWithdrawal, txn.Category)
	assert.True(t, txn.Commission.IsZero())
	assert.True(t, d("2811000").Equal(txn.SettlementAmount))
	assert.True(t, d("-2811000").Equal(txn.Signed()))
	assert.True(t, d("75000").Equal(txn.Amount))
}

func TestNewTransaction_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *TransactionInput)
		wantErr error
	}{
		{"missing client", func(in *TransactionInput) { in.ClientName = "" }, ErrValidation},
		{"bad date", func(in *TransactionInput) { in.Date = "2025/09/03" }, ErrValidation},
		{"bad category", func(in *TransactionInput) { in.Category = "Transfer" }, ErrValidation},
		{"zero amount", func(in *TransactionInput) { in.Amount = d("0") }, ErrValidation},
		{"bad status", func(in *TransactionInput) { in.Status = "settled" }, ErrValidation},
		{"sub-cent amount", func(in *TransactionInput) { in.Amount = d("0.004") }, ErrValidation},
		{"amount beyond cents", func(in *TransactionInput) {
			in.BaseCurrency = "USD"
			in.ExchangeRate = d("30")
			in.Amount = d("10.005")
		}, ErrValidation},
		{"rate beyond six places", func(in *TransactionInput) {
			in.BaseCurrency = "USD"
			in.ExchangeRate = d("30.0000001")
		}, ErrValidation},
		{"inactive psp", func(in *TransactionInput) { in.PSP = "Paytr" }, ErrUnknownPSP},
		{"unknown psp", func(in *TransactionInput) { in.PSP = "Nowhere" }, ErrUnknownPSP},
		{"implausible rate", func(in *TransactionInput) {
			in.BaseCurrency = "USD"
			in.ExchangeRate = d("3.2")
		}, ErrInvalidRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := depositInput()
			tt.mutate(&in)
			_, err := NewTransaction(in, testDirectory(), NewNormalizer("", nil), testNow)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewTransaction_TrailingZerosAccepted(t *testing.T) {
	in := depositInput()
	in.BaseCurrency = "USD"
	in.ExchangeRate = d("30.500000")
	in.Amount = d("10.500")
	txn, err := NewTransaction(in, testDirectory(), NewNormalizer("", nil), testNow)
	require.NoError(t, err)
	assert.True(t, txn.SettlementAmount.Equal(d("320.25")))
	assert.True(t, txn.SettlementAmount.Equal(RoundMoney(txn.Amount.Mul(txn.ExchangeRate))))
}

func TestParseCategory(t *testing.T) {
	for _, v := range []string{"Deposit", "deposit", "DEP"} {
		c, err := ParseCategory(v)
		require.NoError(t, err)
		assert.Equal(t, CategoryDeposit, c)
	}
	for _, v := range []string{"Withdrawal", "WD", "withdraw"} {
		c, err := ParseCategory(v)
		require.NoError(t, err)
		assert.Equal(t, CategoryWithdrawal, c)
	}
}

func TestTransaction_ValidateRecord(t *testing.T) {
	txn := Transaction{TransactionID: "T1", PSP: "Papara", Date: "2025-09-03", Category: CategoryDeposit, SettlementAmount: d("10")}
	assert.NoError(t, txn.ValidateRecord())

	txn.SettlementAmount = d("0")
	assert.ErrorIs(t, txn.ValidateRecord(), ErrValidation)
}
