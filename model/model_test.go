package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGenerateUUIDWithSuffix(t *testing.T) {
	module := "txn"
	id := GenerateUUIDWithSuffix(module)
	assert.Contains(t, id, module+"_")
}

func TestParseDate(t *testing.T) {
	_, err := ParseDate("2025-09-03")
	assert.NoError(t, err)

	_, err = ParseDate("03/09/2025")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBalanceKey_Less(t *testing.T) {
	a := BalanceKey{Date: "2025-09-03", PSP: "Papara"}
	b := BalanceKey{Date: "2025-09-03", PSP: "iyzico"}
	c := BalanceKey{Date: "2025-09-04", PSP: "Akbank"}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
	assert.Equal(t, "2025-09-03/Papara", a.String())
}

func TestBalanceFilter_Contains(t *testing.T) {
	f := BalanceFilter{PSP: "Papara", From: "2025-09-02", To: "2025-09-04"}

	assert.True(t, f.Contains("2025-09-03", "Papara"))
	assert.True(t, f.Contains("2025-09-02", "Papara"))
	assert.False(t, f.Contains("2025-09-01", "Papara"))
	assert.False(t, f.Contains("2025-09-05", "Papara"))
	assert.False(t, f.Contains("2025-09-03", "Iyzico"))
	assert.True(t, BalanceFilter{}.Contains("1999-01-01", "anything"))
}

func TestAssessRolloverRisk(t *testing.T) {
	tests := []struct {
		name     string
		rollover string
		net      string
		want     RiskLevel
	}{
		{"fully allocated", "0", "1000", RiskNormal},
		{"ten percent", "100", "1000", RiskNormal},
		{"medium", "150", "1000", RiskMedium},
		{"high", "250", "1000", RiskHigh},
		{"critical", "301", "1000", RiskCritical},
		{"negative net", "-500", "-1000", RiskNormal},
		{"zero net", "0", "0", RiskNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessRolloverRisk(d(tt.rollover), d(tt.net)))
		})
	}
}

func TestRiskLevel_AtLeast(t *testing.T) {
	assert.True(t, RiskCritical.AtLeast(RiskHigh))
	assert.True(t, RiskHigh.AtLeast(RiskHigh))
	assert.False(t, RiskMedium.AtLeast(RiskCritical))
	assert.True(t, RiskNormal.AtLeast(RiskNormal))
}
