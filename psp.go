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
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pipline/treasury/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PSPUpdate carries the optional changes to a PSP. Nil fields are left as they are.
type PSPUpdate struct {
	CommissionRate *decimal.Decimal `json:"commission_rate"`
	IsActive       *bool            `json:"is_active"`
}

func commissionRate(value interface{}) error {
	rate, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal")
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.New("must be in [0, 1)")
	}
	return nil
}

func validatePSP(psp *model.PSPConfig) error {
	err := validation.ValidateStruct(psp,
		validation.Field(&psp.Name, validation.Required, validation.Length(1, 64)),
		validation.Field(&psp.CommissionRate, validation.By(commissionRate)),
	)
	if err != nil {
		return model.NewValidationError("psp", err.Error())
	}
	return nil
}

// RegisterPSP adds an active PSP with the given commission rate.
func (t *Treasury) RegisterPSP(ctx context.Context, name string, rate decimal.Decimal) (model.PSPConfig, error) {
	ctx, span := tracer.Start(ctx, "RegisterPSP")
	defer span.End()

	now := t.now().UTC()
	psp := model.PSPConfig{
		Name:           strings.TrimSpace(name),
		CommissionRate: rate,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := validatePSP(&psp); err != nil {
		return model.PSPConfig{}, err
	}
	created, err := t.datasource.CreatePSP(ctx, psp)
	if err != nil {
		span.RecordError(err)
		return model.PSPConfig{}, err
	}
	logrus.WithFields(logrus.Fields{"psp": created.Name, "rate": created.CommissionRate}).Info("psp registered")
	return created, nil
}

// UpdatePSP changes a PSP's rate or active flag. A new rate applies only to
// transactions recorded afterwards; existing ones keep the rate they were created with.
func (t *Treasury) UpdatePSP(ctx context.Context, name string, update PSPUpdate) (*model.PSPConfig, error) {
	ctx, span := tracer.Start(ctx, "UpdatePSP")
	defer span.End()

	psp, err := t.datasource.GetPSP(ctx, name)
	if err != nil {
		return nil, err
	}
	if update.CommissionRate != nil {
		psp.CommissionRate = *update.CommissionRate
	}
	if update.IsActive != nil {
		psp.IsActive = *update.IsActive
	}
	if err := validatePSP(psp); err != nil {
		return nil, err
	}
	psp.UpdatedAt = t.now().UTC()
	if err := t.datasource.UpdatePSP(ctx, *psp); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return psp, nil
}

// DeactivatePSP stops a PSP from accepting new transactions. Its history and
// balances are kept.
func (t *Treasury) DeactivatePSP(ctx context.Context, name string) error {
	inactive := false
	_, err := t.UpdatePSP(ctx, name, PSPUpdate{IsActive: &inactive})
	return err
}

func (t *Treasury) GetPSPs(ctx context.Context) ([]model.PSPConfig, error) {
	return t.datasource.GetPSPs(ctx)
}

func (t *Treasury) pspDirectory(ctx context.Context) (*model.PSPDirectory, error) {
	psps, err := t.datasource.GetPSPs(ctx)
	if err != nil {
		return nil, err
	}
	return model.NewPSPDirectory(psps), nil
}
