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

package model

import "github.com/shopspring/decimal"

// RiskLevel grades how much of a day's net movement was rolled over
// instead of being allocated.
type RiskLevel string

const (
	RiskNormal   RiskLevel = "Normal"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

var (
	criticalRatio = decimal.RequireFromString("0.3")
	highRatio     = decimal.RequireFromString("0.2")
	mediumRatio   = decimal.RequireFromString("0.1")
)

// AssessRolloverRisk grades rollover/net. A non-positive net is always Normal.
func AssessRolloverRisk(rollover, net decimal.Decimal) RiskLevel {
	if !net.IsPositive() {
		return RiskNormal
	}
	ratio := rollover.Div(net)
	switch {
	case ratio.GreaterThan(criticalRatio):
		return RiskCritical
	case ratio.GreaterThan(highRatio):
		return RiskHigh
	case ratio.GreaterThan(mediumRatio):
		return RiskMedium
	}
	return RiskNormal
}

// RolloverRisk grades a computed daily balance.
func (b DailyBalance) RolloverRisk() RiskLevel {
	return AssessRolloverRisk(b.RolloverAmount, b.NetAmount)
}

var riskRank = map[RiskLevel]int{RiskNormal: 0, RiskMedium: 1, RiskHigh: 2, RiskCritical: 3}

// AtLeast reports whether r is as severe as threshold or more.
func (r RiskLevel) AtLeast(threshold RiskLevel) bool {
	return riskRank[r] >= riskRank[threshold]
}
