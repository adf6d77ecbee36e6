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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/pipline/treasury/config"
	redis_db "github.com/pipline/treasury/internal/redis-db"
	"github.com/sirupsen/logrus"
)

// Queue hands recompute work to the asynq workers.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
	name      string
	maxRetry  int
}

// RedisClientOpt converts the configured Redis DNS into asynq connection options.
func RedisClientOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parsing redis url: %w", err)
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

// NewQueue initializes a Queue on the configured Redis instance.
//
// Parameters:
// - conf *config.Configuration: The configuration for the queue.
//
// Returns:
// - *Queue: A pointer to the newly created Queue instance.
// - error: An error if the Redis URL could not be parsed.
func NewQueue(conf *config.Configuration) (*Queue, error) {
	queueOptions, err := RedisClientOpt(conf)
	if err != nil {
		return nil, err
	}
	return &Queue{
		Client:    asynq.NewClient(queueOptions),
		Inspector: asynq.NewInspector(queueOptions),
		name:      conf.Queue.RecomputeQueue,
		maxRetry:  conf.Queue.MaxRetry,
	}, nil
}

// NewRecomputeTask builds the task that recomputes scope on a worker.
func NewRecomputeTask(queue string, scope Scope) (*asynq.Task, error) {
	payload, err := json.Marshal(scope)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(queue, payload, asynq.Queue(queue)), nil
}

// ParseRecomputeTask decodes and validates a recompute task payload.
func ParseRecomputeTask(task *asynq.Task) (Scope, error) {
	var scope Scope
	if err := json.Unmarshal(task.Payload(), &scope); err != nil {
		return Scope{}, fmt.Errorf("decoding recompute payload: %w", err)
	}
	if err := scope.Validate(); err != nil {
		return Scope{}, err
	}
	return scope, nil
}

func recomputeTaskID(queue string, scope Scope) string {
	return fmt.Sprintf("%s:%s:%s", queue, scope.PSP, scope.From)
}

// EnqueueRecompute schedules a forward recompute of scope. A scope already
// waiting on the queue is not enqueued twice. Once that task is running or
// has finished, a new task is enqueued so it sees the latest writes.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - scope Scope: The PSP and start date to recompute.
//
// Returns:
// - error: An error if the task could not be enqueued.
func (q *Queue) EnqueueRecompute(ctx context.Context, scope Scope) error {
	ctx, span := tracer.Start(ctx, "Enqueue Recompute")
	defer span.End()

	task, err := NewRecomputeTask(q.name, scope)
	if err != nil {
		return err
	}
	id := recomputeTaskID(q.name, scope)
	info, err := q.Client.EnqueueContext(ctx, task, asynq.MaxRetry(q.maxRetry), asynq.TaskID(id))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		waiting, lookupErr := q.isWaiting(id)
		if lookupErr != nil {
			return fmt.Errorf("inspecting recompute %s: %w", id, lookupErr)
		}
		if waiting {
			logrus.WithFields(logrus.Fields{"psp": scope.PSP, "from": scope.From}).Debug("recompute already queued")
			return nil
		}
		info, err = q.Client.EnqueueContext(ctx, task, asynq.MaxRetry(q.maxRetry), asynq.TaskID(id+":"+uuid.NewString()))
	}
	if err != nil {
		return fmt.Errorf("enqueueing recompute for %s: %w", scope.PSP, err)
	}
	logrus.WithFields(logrus.Fields{
		"psp":     scope.PSP,
		"from":    scope.From,
		"task_id": info.ID,
	}).Info("recompute enqueued")
	return nil
}

// isWaiting reports whether task id has not started running yet.
func (q *Queue) isWaiting(id string) (bool, error) {
	info, err := q.Inspector.GetTaskInfo(q.name, id)
	if errors.Is(err, asynq.ErrTaskNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch info.State {
	case asynq.TaskStatePending, asynq.TaskStateScheduled, asynq.TaskStateRetry:
		return true, nil
	}
	return false, nil
}

// Pending reports how many recompute tasks are waiting on the queue.
func (q *Queue) Pending() (int, error) {
	info, err := q.Inspector.GetQueueInfo(q.name)
	if err != nil {
		return 0, err
	}
	return info.Pending + info.Retry + info.Scheduled, nil
}

func (q *Queue) Close() error {
	if err := q.Inspector.Close(); err != nil {
		return err
	}
	return q.Client.Close()
}

// ProcessRecomputeTask is the asynq handler for recompute tasks.
func (t *Treasury) ProcessRecomputeTask(ctx context.Context, task *asynq.Task) error {
	scope, err := ParseRecomputeTask(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	_, err = t.Recompute(ctx, scope)
	return err
}
