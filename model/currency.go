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

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// SettlementCurrency is the currency every balance is computed in.
	SettlementCurrency = "TRY"

	// MoneyPlaces is the number of decimal places stored for money values.
	MoneyPlaces = 2
	// RatePlaces is the number of decimal places stored for exchange rates.
	RatePlaces = 6
)

var currencyAliases = map[string]string{
	"TL": "TRY",
	"₺":  "TRY",
	"$":  "USD",
	"€":  "EUR",
}

// RateBand is the plausible range of a currency's rate against the
// settlement currency. It guards against fat-finger input.
type RateBand struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

func (b RateBand) contains(rate decimal.Decimal) bool {
	return rate.GreaterThanOrEqual(b.Min) && rate.LessThanOrEqual(b.Max)
}

// DefaultRateBands returns the bands used when configuration supplies none.
func DefaultRateBands() map[string]RateBand {
	return map[string]RateBand{
		"USD": {Min: decimal.NewFromInt(20), Max: decimal.NewFromInt(50)},
		"EUR": {Min: decimal.NewFromInt(25), Max: decimal.NewFromInt(55)},
	}
}

// Normalizer converts transaction amounts into the settlement currency.
type Normalizer struct {
	settlement string
	bands      map[string]RateBand
}

func NewNormalizer(settlement string, bands map[string]RateBand) *Normalizer {
	if settlement == "" {
		settlement = SettlementCurrency
	}
	if len(bands) == 0 {
		bands = DefaultRateBands()
	}
	normalized := make(map[string]RateBand, len(bands))
	for code, band := range bands {
		normalized[CanonicalCurrency(code)] = band
	}
	return &Normalizer{settlement: CanonicalCurrency(settlement), bands: normalized}
}

// CanonicalCurrency upper-cases a currency code and resolves local aliases (TL -> TRY).
func CanonicalCurrency(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if alias, ok := currencyAliases[c]; ok {
		return alias
	}
	return c
}

func (n *Normalizer) SettlementCurrency() string {
	return n.settlement
}

// Supported lists the accepted currency codes, settlement currency first.
func (n *Normalizer) Supported() []string {
	codes := make([]string, 0, len(n.bands))
	for code := range n.bands {
		if code != n.settlement {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return append([]string{n.settlement}, codes...)
}

func (n *Normalizer) IsSupported(currency string) bool {
	c := CanonicalCurrency(currency)
	if c == n.settlement {
		return true
	}
	_, ok := n.bands[c]
	return ok
}

// Normalize returns amount × exchangeRate in the settlement currency, rounded
// to MoneyPlaces. The settlement currency only accepts a rate of exactly 1.
func (n *Normalizer) Normalize(amount decimal.Decimal, currency string, exchangeRate decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, NewValidationError("amount", "must be greater than zero")
	}
	if !exchangeRate.IsPositive() {
		return decimal.Zero, NewValidationError("exchange_rate", "must be greater than zero")
	}

	c := CanonicalCurrency(currency)
	if c == n.settlement {
		if !exchangeRate.Equal(decimal.NewFromInt(1)) {
			one := decimal.NewFromInt(1)
			return decimal.Zero, &InvalidRateError{Currency: c, Rate: exchangeRate, Min: one, Max: one}
		}
		return RoundMoney(amount), nil
	}

	band, ok := n.bands[c]
	if !ok {
		return decimal.Zero, NewValidationError("currency", fmt.Sprintf("%q is not supported (supported: %s)", currency, strings.Join(n.Supported(), ", ")))
	}
	if !band.contains(exchangeRate) {
		return decimal.Zero, &InvalidRateError{Currency: c, Rate: exchangeRate, Min: band.Min, Max: band.Max}
	}
	return RoundMoney(amount.Mul(exchangeRate)), nil
}

// RoundMoney rounds half away from zero to MoneyPlaces.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}
