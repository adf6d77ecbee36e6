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

	"github.com/shopspring/decimal"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrInvalidRate = errors.New("exchange rate outside plausibility band")
	ErrUnknownPSP  = errors.New("unknown psp")
	ErrOrdering    = errors.New("no resolvable opening balance")
)

// ValidationError rejects malformed input before any computation runs.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type InvalidRateError struct {
	Currency string
	Rate     decimal.Decimal
	Min      decimal.Decimal
	Max      decimal.Decimal
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("exchange rate %s for %s is outside [%s, %s]", e.Rate, e.Currency, e.Min, e.Max)
}

func (e *InvalidRateError) Is(target error) bool { return target == ErrInvalidRate }

// UnknownPSPError is returned when a PSP name does not resolve to an active
// configuration. Suggestion holds the closest active name, if any.
type UnknownPSPError struct {
	Name       string
	Suggestion string
}

func (e *UnknownPSPError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("psp %q does not resolve to an active configuration (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("psp %q does not resolve to an active configuration", e.Name)
}

func (e *UnknownPSPError) Is(target error) bool { return target == ErrUnknownPSP }

// OrderingError means ledger entries were requested for a (date, psp) whose
// opening balance has not been computed or seeded yet.
type OrderingError struct {
	Date string
	PSP  string
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("no opening balance for %s on %s: compute daily balances first", e.PSP, e.Date)
}

func (e *OrderingError) Is(target error) bool { return target == ErrOrdering }
