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
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// ComputeCommission returns the commission owed on a transaction amount.
// Withdrawals never carry commission, whatever the PSP rate is.
func ComputeCommission(amount decimal.Decimal, category Category, pspCommissionRate decimal.Decimal) decimal.Decimal {
	if category != CategoryDeposit {
		return decimal.Zero
	}
	return RoundMoney(amount.Mul(pspCommissionRate))
}

// NetOfCommission returns amount − commission.
func NetOfCommission(amount, commission decimal.Decimal) decimal.Decimal {
	return amount.Sub(commission)
}

// PSPDirectory is a read-only snapshot of PSP configurations keyed by name.
type PSPDirectory struct {
	psps map[string]PSPConfig
}

func NewPSPDirectory(configs []PSPConfig) *PSPDirectory {
	psps := make(map[string]PSPConfig, len(configs))
	for _, c := range configs {
		psps[c.Name] = c
	}
	return &PSPDirectory{psps: psps}
}

// Resolve returns the active configuration for name.
func (d *PSPDirectory) Resolve(name string) (PSPConfig, error) {
	psp, ok := d.psps[name]
	if ok && psp.IsActive {
		return psp, nil
	}
	return PSPConfig{}, &UnknownPSPError{Name: name, Suggestion: d.closestActive(name)}
}

// Active returns the active configurations sorted by name.
func (d *PSPDirectory) Active() []PSPConfig {
	active := make([]PSPConfig, 0, len(d.psps))
	for _, p := range d.psps {
		if p.IsActive {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Name < active[j].Name })
	return active
}

// closestActive finds the active PSP whose name is nearest to name, allowing
// roughly one edit per three characters.
func (d *PSPDirectory) closestActive(name string) string {
	target := strings.ToLower(strings.TrimSpace(name))
	if target == "" {
		return ""
	}
	best, bestDistance := "", -1
	for _, p := range d.Active() {
		distance := levenshtein.DistanceForStrings([]rune(target), []rune(strings.ToLower(p.Name)), levenshtein.DefaultOptions)
		if bestDistance == -1 || distance < bestDistance {
			best, bestDistance = p.Name, distance
		}
	}
	maxDistance := max(len(target)/3, 1)
	if bestDistance == -1 || bestDistance > maxDistance {
		return ""
	}
	return best
}
