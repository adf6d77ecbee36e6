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

	"github.com/pipline/treasury/model"
)

// IDataSource groups the storage operations the treasury service needs.
type IDataSource interface {
	psp          // PSP configurations
	transaction  // Immutable transactions
	allocation   // Allocation directives and their history
	dailyBalance // Computed daily balances
}

type psp interface {
	CreatePSP(ctx context.Context, psp model.PSPConfig) (model.PSPConfig, error) // Registers a new PSP
	UpdatePSP(ctx context.Context, psp model.PSPConfig) error                    // Updates rate and active flag
	GetPSP(ctx context.Context, name string) (*model.PSPConfig, error)           // Retrieves a PSP by name
	GetPSPs(ctx context.Context) ([]model.PSPConfig, error)                      // Retrieves all PSPs, active or not
}

type transaction interface {
	RecordTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)    // Stores a new transaction
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)                   // Retrieves a transaction by ID
	DeleteTransaction(ctx context.Context, id string) error                                      // Removes a transaction
	GetTransactions(ctx context.Context, filter model.BalanceFilter) ([]model.Transaction, error) // Lists transactions in (date, psp, creation) order
}

type allocation interface {
	SaveAllocations(ctx context.Context, allocations []model.Allocation) error                                  // Upserts allocations, deactivations first
	GetAllocations(ctx context.Context, filter model.BalanceFilter, activeOnly bool) ([]model.Allocation, error) // Lists allocations by (date, psp)
}

type dailyBalance interface {
	ReplaceDailyBalances(ctx context.Context, psp, from string, balances []model.DailyBalance) error // Replaces a PSP's balances from a date onward
	GetDailyBalances(ctx context.Context, filter model.BalanceFilter) ([]model.DailyBalance, error)  // Lists balances by (date, psp)
	GetLatestBalanceBefore(ctx context.Context, psp, date string) (*model.DailyBalance, error)       // Latest balance strictly before date
}
