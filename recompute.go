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
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/pipline/treasury/internal/apierror"
	redlock "github.com/pipline/treasury/internal/lock"
	"github.com/pipline/treasury/internal/notification"
	"github.com/pipline/treasury/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// balancesNamespace scopes every cached read model derived from daily balances.
const balancesNamespace = "balances"

// Scope names a PSP and the first date whose balances must be rebuilt.
// An empty From rebuilds the PSP's whole history.
type Scope struct {
	PSP  string `json:"psp"`
	From string `json:"from,omitempty"`
}

func (s Scope) Validate() error {
	err := validation.ValidateStruct(&s,
		validation.Field(&s.PSP, validation.Required),
		validation.Field(&s.From, validation.Date(model.DateLayout)),
	)
	if err != nil {
		return model.NewValidationError("scope", err.Error())
	}
	return nil
}

func recomputeLockKey(psp string) string {
	return fmt.Sprintf("recompute:psp:%s", psp)
}

func isNotFound(err error) bool {
	var apiErr apierror.APIError
	return errors.As(err, &apiErr) && apiErr.Code == apierror.ErrNotFound
}

// Recompute rebuilds the daily balances of scope.PSP from scope.From onward
// and replaces the stored ones. Later dates chain from the day before From,
// so a change on any date flows into every balance after it.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - scope Scope: The PSP and first date to rebuild.
//
// Returns:
// - []model.DailyBalance: The rebuilt balances in date order.
// - error: An error if the lock, the computation or the write failed.
func (t *Treasury) Recompute(ctx context.Context, scope Scope) ([]model.DailyBalance, error) {
	ctx, span := tracer.Start(ctx, "Recompute")
	defer span.End()
	span.SetAttributes(attribute.String("psp", scope.PSP), attribute.String("from", scope.From))

	if err := scope.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	locker := redlock.NewLocker(t.redis, recomputeLockKey(scope.PSP), uuid.NewString())
	if err := locker.WaitLock(ctx, t.conf.Lock.Timeout(), t.conf.Lock.Wait()); err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Errorf("releasing %s: %v", locker.Key(), err)
		}
	}()

	balances, err := t.rebuild(ctx, scope)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := t.datasource.ReplaceDailyBalances(ctx, scope.PSP, scope.From, balances); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := t.cache.Invalidate(ctx, balancesNamespace); err != nil {
		logrus.Errorf("invalidating balance cache: %v", err)
	}

	t.alertRollovers(balances)
	logrus.WithFields(logrus.Fields{
		"psp":      scope.PSP,
		"from":     scope.From,
		"balances": len(balances),
	}).Info("balances recomputed")
	span.AddEvent("Balances recomputed")
	return balances, nil
}

func (t *Treasury) rebuild(ctx context.Context, scope Scope) ([]model.DailyBalance, error) {
	filter := model.BalanceFilter{PSP: scope.PSP, From: scope.From}
	transactions, err := t.datasource.GetTransactions(ctx, filter)
	if err != nil {
		return nil, err
	}
	allocations, err := t.datasource.GetAllocations(ctx, filter, true)
	if err != nil {
		return nil, err
	}

	var stored []model.DailyBalance
	if scope.From != "" {
		prior, err := t.datasource.GetLatestBalanceBefore(ctx, scope.PSP, scope.From)
		switch {
		case err == nil:
			stored = append(stored, *prior)
		case !isNotFound(err):
			return nil, err
		}
	}

	priors := NewStaticPriors(stored, t.conf.Settlement.OpeningPositions)
	return ComputeDailyBalances(transactions, allocations, priors)
}

func (t *Treasury) alertRollovers(balances []model.DailyBalance) {
	threshold := t.conf.Notification.RolloverAlertLevel
	for _, b := range balances {
		if level := b.RolloverRisk(); level.AtLeast(threshold) {
			notification.NotifyRolloverRisk(b, level)
		}
	}
}

// mergeScopes keeps one scope per PSP, starting at its earliest date.
func mergeScopes(scopes []Scope) []Scope {
	earliest := make(map[string]string)
	for _, s := range scopes {
		from, seen := earliest[s.PSP]
		if !seen || s.From == "" || (from != "" && s.From < from) {
			earliest[s.PSP] = s.From
		}
	}
	merged := make([]Scope, 0, len(earliest))
	for psp, from := range earliest {
		merged = append(merged, Scope{PSP: psp, From: from})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].PSP < merged[j].PSP })
	return merged
}

// RecomputeAll recomputes several PSPs in parallel. Scopes for the same PSP
// are merged into one starting at the earliest date. With no scopes every
// registered PSP is rebuilt from the beginning.
func (t *Treasury) RecomputeAll(ctx context.Context, scopes []Scope) (map[string][]model.DailyBalance, error) {
	ctx, span := tracer.Start(ctx, "RecomputeAll")
	defer span.End()

	if len(scopes) == 0 {
		psps, err := t.datasource.GetPSPs(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range psps {
			scopes = append(scopes, Scope{PSP: p.Name})
		}
	}

	merged := mergeScopes(scopes)
	results := make([][]model.DailyBalance, len(merged))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.recomputeConcurrency())
	for i, scope := range merged {
		g.Go(func() error {
			balances, err := t.Recompute(gctx, scope)
			if err != nil {
				return fmt.Errorf("recomputing %s: %w", scope.PSP, err)
			}
			results[i] = balances
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := make(map[string][]model.DailyBalance, len(merged))
	for i, scope := range merged {
		out[scope.PSP] = results[i]
	}
	return out, nil
}

func (t *Treasury) recomputeConcurrency() int {
	if t.conf.Queue.Concurrency > 0 {
		return t.conf.Queue.Concurrency
	}
	return 1
}

// afterMutation brings balances up to date after a write touching scope.
// With an async queue the recompute is handed to the workers; inline
// recomputes that fail fall back to the queue when one is available.
func (t *Treasury) afterMutation(ctx context.Context, scope Scope) error {
	if t.queue != nil && t.conf.Queue.Async {
		return t.queue.EnqueueRecompute(ctx, scope)
	}
	_, err := t.Recompute(ctx, scope)
	if err == nil {
		return nil
	}
	if t.queue == nil {
		return err
	}
	logrus.Warnf("inline recompute of %s failed, queueing: %v", scope.PSP, err)
	if qErr := t.queue.EnqueueRecompute(ctx, scope); qErr != nil {
		notification.NotifyError(qErr)
		return err
	}
	return nil
}
