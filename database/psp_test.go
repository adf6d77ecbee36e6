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
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pipline/treasury/internal/apierror"
	"github.com/pipline/treasury/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pspColumns = []string{"name", "commission_rate", "is_active", "created_at", "updated_at"}

func TestCreatePSP(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	psp := model.PSPConfig{Name: "Iyzico", CommissionRate: decimal.RequireFromString("0.08"), IsActive: true, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO treasury.psps")).
		WithArgs("Iyzico", psp.CommissionRate, true, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := ds.CreatePSP(context.Background(), psp)
	require.NoError(t, err)
	assert.Equal(t, psp, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePSP_Duplicate(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO treasury.psps")).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := ds.CreatePSP(context.Background(), model.PSPConfig{Name: "Iyzico"})
	var apiErr apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
}

func TestUpdatePSP_NotFound(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE treasury.psps")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := ds.UpdatePSP(context.Background(), model.PSPConfig{Name: "Ghost"})
	var apiErr apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestGetPSP(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM treasury.psps")).
		WithArgs("PayPal").
		WillReturnRows(sqlmock.NewRows(pspColumns).AddRow("PayPal", "0.03", true, now, now))

	psp, err := ds.GetPSP(context.Background(), "PayPal")
	require.NoError(t, err)
	assert.Equal(t, "PayPal", psp.Name)
	assert.True(t, psp.CommissionRate.Equal(decimal.RequireFromString("0.03")))
	assert.True(t, psp.IsActive)
}

func TestGetPSP_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code apierror.ErrorCode
	}{
		{name: "no rows", err: sql.ErrNoRows, code: apierror.ErrNotFound},
		{name: "driver failure", err: errors.New("connection reset"), code: apierror.ErrInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, mock := newMockDatasource(t)
			mock.ExpectQuery(regexp.QuoteMeta("FROM treasury.psps")).WillReturnError(tt.err)

			_, err := ds.GetPSP(context.Background(), "Ghost")
			var apiErr apierror.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestGetPSPs(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY name")).
		WillReturnRows(sqlmock.NewRows(pspColumns).
			AddRow("Iyzico", "0.08", true, now, now).
			AddRow("PayPal", "0.03", false, now, now))

	psps, err := ds.GetPSPs(context.Background())
	require.NoError(t, err)
	require.Len(t, psps, 2)
	assert.Equal(t, "Iyzico", psps[0].Name)
	assert.False(t, psps[1].IsActive)
}
