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

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pipline/treasury/internal/apierror"
	"github.com/pipline/treasury/model"
	"github.com/pkg/errors"
)

func (d Datasource) CreatePSP(ctx context.Context, psp model.PSPConfig) (model.PSPConfig, error) {
	ctx, span := tracer.Start(ctx, "CreatePSP")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO treasury.psps (name, commission_rate, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, psp.Name, psp.CommissionRate, psp.IsActive, psp.CreatedAt, psp.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.PSPConfig{}, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("PSP '%s' already exists", psp.Name), err)
		}
		span.RecordError(err)
		return model.PSPConfig{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create PSP", err)
	}
	return psp, nil
}

func (d Datasource) UpdatePSP(ctx context.Context, psp model.PSPConfig) error {
	ctx, span := tracer.Start(ctx, "UpdatePSP")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE treasury.psps
		SET commission_rate = $2, is_active = $3, updated_at = $4
		WHERE name = $1
	`, psp.Name, psp.CommissionRate, psp.IsActive, psp.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update PSP", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update PSP", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("PSP '%s' not found", psp.Name), nil)
	}
	return nil
}

func (d Datasource) GetPSP(ctx context.Context, name string) (*model.PSPConfig, error) {
	ctx, span := tracer.Start(ctx, "GetPSP")
	defer span.End()

	psp := &model.PSPConfig{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT name, commission_rate, is_active, created_at, updated_at
		FROM treasury.psps
		WHERE name = $1
	`, name).Scan(&psp.Name, &psp.CommissionRate, &psp.IsActive, &psp.CreatedAt, &psp.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("PSP '%s' not found", name), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve PSP", err)
	}
	return psp, nil
}

func (d Datasource) GetPSPs(ctx context.Context) ([]model.PSPConfig, error) {
	ctx, span := tracer.Start(ctx, "GetPSPs")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT name, commission_rate, is_active, created_at, updated_at
		FROM treasury.psps
		ORDER BY name
	`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve PSPs", err)
	}
	defer rows.Close()

	var psps []model.PSPConfig
	for rows.Next() {
		var psp model.PSPConfig
		if err := rows.Scan(&psp.Name, &psp.CommissionRate, &psp.IsActive, &psp.CreatedAt, &psp.UpdatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan PSP", err)
		}
		psps = append(psps, psp)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve PSPs", err)
	}
	return psps, nil
}
