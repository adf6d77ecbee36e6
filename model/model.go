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
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage layout of every business date.
const DateLayout = "2006-01-02"

type Category string

const (
	CategoryDeposit    Category = "Deposit"
	CategoryWithdrawal Category = "Withdrawal"
)

type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "completed"
	StatusPending   TransactionStatus = "pending"
	StatusFailed    TransactionStatus = "failed"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type EntryType string

const (
	EntryOpening    EntryType = "opening"
	EntryDeposit    EntryType = "deposit"
	EntryWithdrawal EntryType = "withdrawal"
	EntryCommission EntryType = "commission"
	EntryAllocation EntryType = "allocation"
	EntryRollover   EntryType = "rollover"
	EntryClosing    EntryType = "closing"
)

type ReconciliationStatus string

const (
	ReconciliationComplete    ReconciliationStatus = "complete"
	ReconciliationPending     ReconciliationStatus = "pending"
	ReconciliationDiscrepancy ReconciliationStatus = "discrepancy"
)

// Transaction is an immutable financial event. Commission, NetAmount and
// SettlementAmount are derived once by NewTransaction and never re-derived.
type Transaction struct {
	TransactionID    string            `json:"transaction_id"`
	Date             string            `json:"date"`
	ClientName       string            `json:"client_name"`
	Category         Category          `json:"category"`
	Amount           decimal.Decimal   `json:"amount"`
	BaseCurrency     string            `json:"base_currency"`
	ExchangeRate     decimal.Decimal   `json:"exchange_rate"`
	PSP              string            `json:"psp"`
	PaymentMethod    string            `json:"payment_method"`
	Notes            *string           `json:"notes,omitempty"`
	Status           TransactionStatus `json:"status"`
	CommissionRate   decimal.Decimal   `json:"commission_rate"`
	Commission       decimal.Decimal   `json:"commission"`
	NetAmount        decimal.Decimal   `json:"net_amount"`
	SettlementAmount decimal.Decimal   `json:"settlement_amount"`
	CreatedAt        time.Time         `json:"created_at"`
}

type PSPConfig struct {
	Name           string          `json:"name"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type Allocation struct {
	AllocationID     string          `json:"allocation_id"`
	Date             string          `json:"date"`
	PSP              string          `json:"psp"`
	AllocationAmount decimal.Decimal `json:"allocation_amount"`
	MaxAllocation    decimal.Decimal `json:"max_allocation"`
	Reason           string          `json:"reason"`
	CreatedBy        string          `json:"created_by"`
	UpdatedBy        string          `json:"updated_by"`
	ApprovalStatus   ApprovalStatus  `json:"approval_status"`
	IsActive         bool            `json:"is_active"`
	ReviewedBy       string          `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time      `json:"reviewed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CurrencyAmount is one line of a DailyBalance currency breakdown. ExchangeRate
// is the rate of the first transaction seen in that currency for the day.
type CurrencyAmount struct {
	Amount           decimal.Decimal `json:"amount"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
	SettlementAmount decimal.Decimal `json:"settlement_amount"`
}

type DailyBalance struct {
	Date              string                    `json:"date"`
	PSP               string                    `json:"psp"`
	OpeningBalance    decimal.Decimal           `json:"opening_balance"`
	TotalInflow       decimal.Decimal           `json:"total_inflow"`
	TotalOutflow      decimal.Decimal           `json:"total_outflow"`
	CommissionTotal   decimal.Decimal           `json:"commission_total"`
	NetAmount         decimal.Decimal           `json:"net_amount"`
	AllocationAmount  decimal.Decimal           `json:"allocation_amount"`
	RolloverAmount    decimal.Decimal           `json:"rollover_amount"`
	ClosingBalance    decimal.Decimal           `json:"closing_balance"`
	TransactionCount  int                       `json:"transaction_count"`
	CurrencyBreakdown map[string]CurrencyAmount `json:"currency_breakdown"`
	Reconciled        bool                      `json:"reconciled"`
}

// Key returns the (date, psp) identity of the balance.
func (b DailyBalance) Key() BalanceKey {
	return BalanceKey{Date: b.Date, PSP: b.PSP}
}

type LedgerEntry struct {
	EntryID        string          `json:"entry_id"`
	Date           string          `json:"date"`
	Type           EntryType       `json:"type"`
	Description    string          `json:"description"`
	Reference      string          `json:"reference"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
	PSP            string          `json:"psp,omitempty"`
	Currency       string          `json:"currency"`
	SourceCurrency string          `json:"source_currency,omitempty"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	CreatedBy      string          `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

type DailySummary struct {
	Date                 string               `json:"date"`
	TotalPSPs            int                  `json:"total_psps"`
	TotalOpeningBalance  decimal.Decimal      `json:"total_opening_balance"`
	TotalInflow          decimal.Decimal      `json:"total_inflow"`
	TotalOutflow         decimal.Decimal      `json:"total_outflow"`
	TotalCommission      decimal.Decimal      `json:"total_commission"`
	TotalNetAmount       decimal.Decimal      `json:"total_net_amount"`
	TotalAllocations     decimal.Decimal      `json:"total_allocations"`
	TotalRollovers       decimal.Decimal      `json:"total_rollovers"`
	TotalClosingBalance  decimal.Decimal      `json:"total_closing_balance"`
	ReconciliationStatus ReconciliationStatus `json:"reconciliation_status"`
}

// BalanceKey identifies one PSP on one date.
type BalanceKey struct {
	Date string
	PSP  string
}

func (k BalanceKey) String() string {
	return fmt.Sprintf("%s/%s", k.Date, k.PSP)
}

// Less orders keys by date, then PSP name.
func (k BalanceKey) Less(other BalanceKey) bool {
	if k.Date != other.Date {
		return k.Date < other.Date
	}
	return k.PSP < other.PSP
}

// BalanceFilter narrows balance, ledger and summary queries. Empty fields match everything.
type BalanceFilter struct {
	PSP  string `json:"psp"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Contains reports whether the (date, psp) pair falls inside the filter.
func (f BalanceFilter) Contains(date, psp string) bool {
	if f.PSP != "" && f.PSP != psp {
		return false
	}
	if f.From != "" && date < f.From {
		return false
	}
	if f.To != "" && date > f.To {
		return false
	}
	return true
}

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
func GenerateUUIDWithSuffix(module string) string {
	return fmt.Sprintf("%s_%s", module, uuid.New().String())
}

// ParseDate validates a YYYY-MM-DD business date.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, NewValidationError("date", fmt.Sprintf("%q is not a YYYY-MM-DD date", value))
	}
	return d, nil
}
