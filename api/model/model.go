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

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pipline/treasury"
	"github.com/pipline/treasury/model"
	"github.com/shopspring/decimal"
)

type CreatePSP struct {
	Name           string          `json:"name"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
}

type UpdatePSP struct {
	CommissionRate *decimal.Decimal `json:"commission_rate"`
	IsActive       *bool            `json:"is_active"`
}

type RecordTransaction struct {
	TransactionID string          `json:"transaction_id"`
	Date          string          `json:"date"`
	ClientName    string          `json:"client_name"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	ExchangeRate  decimal.Decimal `json:"exchange_rate"`
	PSP           string          `json:"psp"`
	PaymentMethod string          `json:"payment_method"`
	Notes         *string         `json:"notes"`
	Status        string          `json:"status"`
}

type SetAllocation struct {
	Date           string               `json:"date"`
	PSP            string               `json:"psp"`
	Amount         decimal.Decimal      `json:"amount"`
	MaxAllocation  *decimal.Decimal     `json:"max_allocation"`
	Reason         string               `json:"reason"`
	Actor          string               `json:"actor"`
	ApprovalStatus model.ApprovalStatus `json:"approval_status"`
}

type ReviewAllocation struct {
	Date   string               `json:"date"`
	PSP    string               `json:"psp"`
	Status model.ApprovalStatus `json:"status"`
	Actor  string               `json:"actor"`
}

type Recompute struct {
	Scopes []treasury.Scope `json:"scopes"`
}

// BalanceQuery is bound from the query string of the read endpoints.
type BalanceQuery struct {
	PSP    string `form:"psp"`
	From   string `form:"from"`
	To     string `form:"to"`
	Format string `form:"format"`
}

func (p *CreatePSP) ValidateCreatePSP() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 64)),
	)
}

func (p *UpdatePSP) ValidateUpdatePSP() error {
	if p.CommissionRate == nil && p.IsActive == nil {
		return errors.New("commission_rate or is_active is required")
	}
	return nil
}

func (t *RecordTransaction) ValidateRecordTransaction() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Date, validation.Required, validation.Date(model.DateLayout)),
		validation.Field(&t.ClientName, validation.Required),
		validation.Field(&t.Category, validation.Required),
		validation.Field(&t.Currency, validation.Required),
		validation.Field(&t.PSP, validation.Required),
	)
}

func (a *SetAllocation) ValidateSetAllocation() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Date, validation.Required, validation.Date(model.DateLayout)),
		validation.Field(&a.PSP, validation.Required),
		validation.Field(&a.Actor, validation.Required),
	)
}

func (r *ReviewAllocation) ValidateReviewAllocation() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Date, validation.Required, validation.Date(model.DateLayout)),
		validation.Field(&r.PSP, validation.Required),
		validation.Field(&r.Status, validation.Required, validation.In(model.ApprovalApproved, model.ApprovalRejected)),
		validation.Field(&r.Actor, validation.Required),
	)
}

func (q *BalanceQuery) ValidateBalanceQuery() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.From, validation.Date(model.DateLayout)),
		validation.Field(&q.To, validation.Date(model.DateLayout)),
	)
}

func (t *RecordTransaction) ToTransactionInput() model.TransactionInput {
	return model.TransactionInput{
		TransactionID: t.TransactionID,
		Date:          t.Date,
		ClientName:    t.ClientName,
		Category:      t.Category,
		Amount:        t.Amount,
		BaseCurrency:  t.Currency,
		ExchangeRate:  t.ExchangeRate,
		PSP:           t.PSP,
		PaymentMethod: t.PaymentMethod,
		Notes:         t.Notes,
		Status:        t.Status,
	}
}

func (a *SetAllocation) ToAllocationRequest() treasury.AllocationRequest {
	return treasury.AllocationRequest{
		Date:           a.Date,
		PSP:            a.PSP,
		Amount:         a.Amount,
		MaxAllocation:  a.MaxAllocation,
		Reason:         a.Reason,
		Actor:          a.Actor,
		ApprovalStatus: a.ApprovalStatus,
	}
}

func (u *UpdatePSP) ToPSPUpdate() treasury.PSPUpdate {
	return treasury.PSPUpdate{CommissionRate: u.CommissionRate, IsActive: u.IsActive}
}

func (q *BalanceQuery) ToFilter() model.BalanceFilter {
	return model.BalanceFilter{PSP: q.PSP, From: q.From, To: q.To}
}
