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
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/pipline/treasury/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEnqueueRecompute(t *testing.T) {
	mr := miniredis.RunT(t)
	conf := testConfig(mr.Addr())

	q, err := NewQueue(conf)
	require.NoError(t, err)
	defer q.Close()

	require.NoError(t, q.EnqueueRecompute(context.Background(), Scope{PSP: "Iyzico", From: "2024-01-15"}))

	tasks, err := q.Inspector.ListPendingTasks(conf.Queue.RecomputeQueue)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, conf.Queue.RecomputeQueue, tasks[0].Type)
	assert.Equal(t, 1, tasks[0].MaxRetry)

	scope, err := ParseRecomputeTask(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	require.NoError(t, err)
	assert.Equal(t, Scope{PSP: "Iyzico", From: "2024-01-15"}, scope)
}

func TestEnqueueRecomputeDedupesWaitingScope(t *testing.T) {
	mr := miniredis.RunT(t)
	conf := testConfig(mr.Addr())

	q, err := NewQueue(conf)
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	scope := Scope{PSP: "Iyzico", From: "2024-01-15"}
	require.NoError(t, q.EnqueueRecompute(ctx, scope))
	require.NoError(t, q.EnqueueRecompute(ctx, scope))

	tasks, err := q.Inspector.ListPendingTasks(conf.Queue.RecomputeQueue)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, recomputeTaskID(conf.Queue.RecomputeQueue, scope), tasks[0].ID)

	require.NoError(t, q.EnqueueRecompute(ctx, Scope{PSP: "Iyzico", From: "2024-01-16"}))
	tasks, err = q.Inspector.ListPendingTasks(conf.Queue.RecomputeQueue)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestEnqueueRecomputeRequeuesFinishedScope(t *testing.T) {
	mr := miniredis.RunT(t)
	conf := testConfig(mr.Addr())

	q, err := NewQueue(conf)
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	scope := Scope{PSP: "PayPal"}
	require.NoError(t, q.EnqueueRecompute(ctx, scope))
	require.NoError(t, q.Inspector.ArchiveTask(conf.Queue.RecomputeQueue, recomputeTaskID(conf.Queue.RecomputeQueue, scope)))

	require.NoError(t, q.EnqueueRecompute(ctx, scope))

	tasks, err := q.Inspector.ListPendingTasks(conf.Queue.RecomputeQueue)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.NotEqual(t, recomputeTaskID(conf.Queue.RecomputeQueue, scope), tasks[0].ID)
}

func TestParseRecomputeTaskRejectsBadPayload(t *testing.T) {
	_, err := ParseRecomputeTask(asynq.NewTask("recompute", []byte("{")))
	assert.Error(t, err)

	_, err = ParseRecomputeTask(asynq.NewTask("recompute", []byte(`{"psp":"","from":"2024-01-15"}`)))
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestProcessRecomputeTask(t *testing.T) {
	tr, ds, _ := newTestTreasury(t)
	ds.On("GetTransactions", mock.Anything, model.BalanceFilter{PSP: "PayPal", From: "2024-01-15"}).Return([]model.Transaction{}, nil)
	ds.On("GetAllocations", mock.Anything, model.BalanceFilter{PSP: "PayPal", From: "2024-01-15"}, true).Return([]model.Allocation{}, nil)
	ds.On("GetLatestBalanceBefore", mock.Anything, "PayPal", "2024-01-15").Return(nil, notFound())
	ds.On("ReplaceDailyBalances", mock.Anything, "PayPal", "2024-01-15", mock.Anything).Return(nil)

	task, err := NewRecomputeTask("recompute", Scope{PSP: "PayPal", From: "2024-01-15"})
	require.NoError(t, err)
	require.NoError(t, tr.ProcessRecomputeTask(context.Background(), task))
	ds.AssertExpectations(t)

	err = tr.ProcessRecomputeTask(context.Background(), asynq.NewTask("recompute", []byte("nope")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestAsyncMutationIsQueued(t *testing.T) {
	tr, ds, mr := newTestTreasury(t)
	tr.conf.Queue.Async = true
	q, err := NewQueue(testConfig(mr.Addr()))
	require.NoError(t, err)
	defer q.Close()
	tr.queue = q

	deleted := mustTxn(t, "2024-01-14", "Iyzico", "DEP", "1000", "TRY", "1", 0)
	ds.On("GetTransaction", mock.Anything, deleted.TransactionID).Return(&deleted, nil)
	ds.On("DeleteTransaction", mock.Anything, deleted.TransactionID).Return(nil)

	require.NoError(t, tr.DeleteTransaction(context.Background(), deleted.TransactionID))

	tasks, err := q.Inspector.ListPendingTasks(tr.conf.Queue.RecomputeQueue)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	ds.AssertNotCalled(t, "ReplaceDailyBalances", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
