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
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// TransactionInput is the raw, user-supplied form of a transaction.
type TransactionInput struct {
	TransactionID string          `json:"transaction_id"`
	Date          string          `json:"date"`
	ClientName    string          `json:"client_name"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	BaseCurrency  string          `json:"base_currency"`
	ExchangeRate  decimal.Decimal `json:"exchange_rate"`
	PSP           string          `json:"psp"`
	PaymentMethod string          `json:"payment_method"`
	Notes         *string         `json:"notes,omitempty"`
	Status        string          `json:"status"`
}

// ParseCategory accepts the long names and the DEP/WD shorthands used by imports.
func ParseCategory(value string) (Category, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEPOSIT", "DEP":
		return CategoryDeposit, nil
	case "WITHDRAWAL", "WITHDRAW", "WD":
		return CategoryWithdrawal, nil
	}
	return "", NewValidationError("category", "must be Deposit or Withdrawal")
}

func positive(value interface{}) error {
	d, ok := value.(decimal.Decimal)
	if !ok || !d.IsPositive() {
		return errors.New("must be greater than zero")
	}
	return nil
}

// maxPlaces rejects decimals carrying more fractional digits than places.
func maxPlaces(places int32) validation.RuleFunc {
	return func(value interface{}) error {
		d, ok := value.(decimal.Decimal)
		if !ok || !d.Equal(d.Truncate(places)) {
			return fmt.Errorf("must have at most %d decimal places", places)
		}
		return nil
	}
}

func (t *TransactionInput) Validate() error {
	err := validation.ValidateStruct(t,
		validation.Field(&t.Date, validation.Required, validation.Date(DateLayout)),
		validation.Field(&t.ClientName, validation.Required, validation.Length(1, 255)),
		validation.Field(&t.Category, validation.Required),
		validation.Field(&t.Amount, validation.By(positive), validation.By(maxPlaces(MoneyPlaces))),
		validation.Field(&t.BaseCurrency, validation.Required),
		validation.Field(&t.ExchangeRate, validation.By(positive), validation.By(maxPlaces(RatePlaces))),
		validation.Field(&t.PSP, validation.Required, validation.Length(1, 255)),
		validation.Field(&t.Status, validation.In(string(StatusCompleted), string(StatusPending), string(StatusFailed))),
	)
	if err != nil {
		return NewValidationError("", err.Error())
	}
	return nil
}

// NewTransaction validates input and derives the frozen fields: settlement
// amount, the PSP commission rate at this moment, commission and net amount.
func NewTransaction(input TransactionInput, psps *PSPDirectory, normalizer *Normalizer, now time.Time) (Transaction, error) {
	if err := input.Validate(); err != nil {
		return Transaction{}, err
	}
	category, err := ParseCategory(input.Category)
	if err != nil {
		return Transaction{}, err
	}
	psp, err := psps.Resolve(input.PSP)
	if err != nil {
		return Transaction{}, err
	}
	settlement, err := normalizer.Normalize(input.Amount, input.BaseCurrency, input.ExchangeRate)
	if err != nil {
		return Transaction{}, err
	}
	if !settlement.IsPositive() {
		return Transaction{}, NewValidationError("amount", "settlement amount rounds to zero")
	}

	commission := ComputeCommission(settlement, category, psp.CommissionRate)
	status := TransactionStatus(input.Status)
	if status == "" {
		status = StatusCompleted
	}
	id := input.TransactionID
	if id == "" {
		id = GenerateUUIDWithSuffix("txn")
	}

	return Transaction{
		TransactionID:    id,
		Date:             input.Date,
		ClientName:       strings.TrimSpace(input.ClientName),
		Category:         category,
		Amount:           input.Amount,
		BaseCurrency:     CanonicalCurrency(input.BaseCurrency),
		ExchangeRate:     input.ExchangeRate,
		PSP:              psp.Name,
		PaymentMethod:    input.PaymentMethod,
		Notes:            input.Notes,
		Status:           status,
		CommissionRate:   psp.CommissionRate,
		Commission:       commission,
		NetAmount:        NetOfCommission(settlement, commission),
		SettlementAmount: settlement,
		CreatedAt:        now,
	}, nil
}

// Signed returns the settlement amount with withdrawals negated.
func (t Transaction) Signed() decimal.Decimal {
	if t.Category == CategoryWithdrawal {
		return t.SettlementAmount.Neg()
	}
	return t.SettlementAmount
}

// ValidateRecord checks the fields the balance engine keys and sums on.
func (t Transaction) ValidateRecord() error {
	if t.TransactionID == "" {
		return NewValidationError("transaction_id", "is required")
	}
	if t.PSP == "" {
		return NewValidationError("psp", "is required")
	}
	if _, err := ParseDate(t.Date); err != nil {
		return err
	}
	if t.Category != CategoryDeposit && t.Category != CategoryWithdrawal {
		return NewValidationError("category", "must be Deposit or Withdrawal")
	}
	if !t.SettlementAmount.IsPositive() {
		return NewValidationError("settlement_amount", "must be greater than zero")
	}
	return nil
}
