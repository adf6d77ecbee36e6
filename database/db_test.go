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
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pipline/treasury/internal/apierror"
	"github.com/pipline/treasury/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDatasource(t *testing.T) (*Datasource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Datasource{Conn: db}, mock
}

func TestWhereFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter model.BalanceFilter
		start  int
		where  string
		args   []interface{}
	}{
		{name: "empty", filter: model.BalanceFilter{}, start: 1, where: "", args: nil},
		{name: "psp only", filter: model.BalanceFilter{PSP: "Iyzico"}, start: 1, where: " WHERE psp = $1", args: []interface{}{"Iyzico"}},
		{
			name:   "full range",
			filter: model.BalanceFilter{PSP: "Iyzico", From: "2024-01-01", To: "2024-01-31"},
			start:  1,
			where:  " WHERE psp = $1 AND date >= $2 AND date <= $3",
			args:   []interface{}{"Iyzico", "2024-01-01", "2024-01-31"},
		},
		{name: "offset placeholders", filter: model.BalanceFilter{From: "2024-01-01"}, start: 3, where: " WHERE date >= $3", args: []interface{}{"2024-01-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := whereFilter(tt.filter, tt.start)
			assert.Equal(t, tt.where, where)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestWithTx(t *testing.T) {
	ds, mock := newMockDatasource(t)

	t.Run("commits on success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit()
		err := withTx(context.Background(), ds.Conn, func(_ *sql.Tx) error { return nil })
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()
		want := apierror.NewAPIError(apierror.ErrConflict, "clash", nil)
		err := withTx(context.Background(), ds.Conn, func(_ *sql.Tx) error { return want })
		assert.Equal(t, want, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure is internal", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(errors.New("no connection"))
		err := withTx(context.Background(), ds.Conn, func(_ *sql.Tx) error { return nil })
		var apiErr apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, apierror.ErrInternalServer, apiErr.Code)
	})
}
