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

package mocks

import (
	"context"

	"github.com/pipline/treasury/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// PSP methods

func (m *MockDataSource) CreatePSP(ctx context.Context, psp model.PSPConfig) (model.PSPConfig, error) {
	args := m.Called(ctx, psp)
	return args.Get(0).(model.PSPConfig), args.Error(1)
}

func (m *MockDataSource) UpdatePSP(ctx context.Context, psp model.PSPConfig) error {
	args := m.Called(ctx, psp)
	return args.Error(0)
}

func (m *MockDataSource) GetPSP(ctx context.Context, name string) (*model.PSPConfig, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PSPConfig), args.Error(1)
}

func (m *MockDataSource) GetPSPs(ctx context.Context) ([]model.PSPConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.PSPConfig), args.Error(1)
}

// Transaction methods

func (m *MockDataSource) RecordTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockDataSource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockDataSource) DeleteTransaction(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDataSource) GetTransactions(ctx context.Context, filter model.BalanceFilter) ([]model.Transaction, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.Transaction), args.Error(1)
}

// Allocation methods

func (m *MockDataSource) SaveAllocations(ctx context.Context, allocations []model.Allocation) error {
	args := m.Called(ctx, allocations)
	return args.Error(0)
}

func (m *MockDataSource) GetAllocations(ctx context.Context, filter model.BalanceFilter, activeOnly bool) ([]model.Allocation, error) {
	args := m.Called(ctx, filter, activeOnly)
	return args.Get(0).([]model.Allocation), args.Error(1)
}

// Daily balance methods

func (m *MockDataSource) ReplaceDailyBalances(ctx context.Context, psp, from string, balances []model.DailyBalance) error {
	args := m.Called(ctx, psp, from, balances)
	return args.Error(0)
}

func (m *MockDataSource) GetDailyBalances(ctx context.Context, filter model.BalanceFilter) ([]model.DailyBalance, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.DailyBalance), args.Error(1)
}

func (m *MockDataSource) GetLatestBalanceBefore(ctx context.Context, psp, date string) (*model.DailyBalance, error) {
	args := m.Called(ctx, psp, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyBalance), args.Error(1)
}
