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
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	redlock "github.com/pipline/treasury/internal/lock"
	"github.com/pipline/treasury/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"
)

// AllocationRequest asks for part of a PSP's net funds on a date to be set aside.
type AllocationRequest struct {
	Date           string               `json:"date"`
	PSP            string               `json:"psp"`
	Amount         decimal.Decimal      `json:"amount"`
	MaxAllocation  *decimal.Decimal     `json:"max_allocation,omitempty"`
	Reason         string               `json:"reason"`
	Actor          string               `json:"actor"`
	ApprovalStatus model.ApprovalStatus `json:"approval_status,omitempty"`
}

func nonNegative(value interface{}) error {
	d, ok := value.(decimal.Decimal)
	if !ok || d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func (r *AllocationRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Date, validation.Required, validation.Date(model.DateLayout)),
		validation.Field(&r.PSP, validation.Required),
		validation.Field(&r.Amount, validation.By(nonNegative)),
		validation.Field(&r.Actor, validation.Required),
		validation.Field(&r.ApprovalStatus, validation.In(model.ApprovalPending, model.ApprovalApproved)),
	)
	if err != nil {
		return model.NewValidationError("", err.Error())
	}
	if r.MaxAllocation != nil && r.Amount.GreaterThan(*r.MaxAllocation) {
		return model.NewValidationError("amount", fmt.Sprintf("%s exceeds max allocation %s", r.Amount, *r.MaxAllocation))
	}
	return nil
}

// AllocationLedger holds at most one active allocation per (date, psp).
// Superseded and rejected allocations are kept as inactive history.
type AllocationLedger struct {
	mu      sync.RWMutex
	active  map[model.BalanceKey]model.Allocation
	history []model.Allocation
	now     func() time.Time
}

// NewAllocationLedger loads existing allocations. When more than one active
// allocation exists for a key, the most recently updated one wins.
func NewAllocationLedger(existing []model.Allocation) *AllocationLedger {
	l := &AllocationLedger{
		active: make(map[model.BalanceKey]model.Allocation),
		now:    time.Now,
	}
	for _, a := range existing {
		if !a.IsActive {
			l.history = append(l.history, a)
			continue
		}
		key := model.BalanceKey{Date: a.Date, PSP: a.PSP}
		if current, ok := l.active[key]; ok {
			if current.UpdatedAt.After(a.UpdatedAt) {
				a.IsActive = false
				l.history = append(l.history, a)
				continue
			}
			current.IsActive = false
			l.history = append(l.history, current)
		}
		l.active[key] = a
	}
	return l
}

// SetAllocation replaces the active allocation for the request's key. The
// caller must recompute balances for the PSP from the request date.
func (l *AllocationLedger) SetAllocation(req AllocationRequest) (model.Allocation, error) {
	if err := req.Validate(); err != nil {
		return model.Allocation{}, err
	}

	maxAllocation := req.Amount.Mul(decimal.NewFromInt(2))
	if req.MaxAllocation != nil {
		maxAllocation = *req.MaxAllocation
	}
	status := req.ApprovalStatus
	if status == "" {
		status = model.ApprovalApproved
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := model.BalanceKey{Date: req.Date, PSP: req.PSP}
	if previous, ok := l.active[key]; ok {
		previous.IsActive = false
		previous.UpdatedBy = req.Actor
		previous.UpdatedAt = now
		l.history = append(l.history, previous)
	}

	allocation := model.Allocation{
		AllocationID:     model.GenerateUUIDWithSuffix("alloc"),
		Date:             req.Date,
		PSP:              req.PSP,
		AllocationAmount: model.RoundMoney(req.Amount),
		MaxAllocation:    model.RoundMoney(maxAllocation),
		Reason:           req.Reason,
		CreatedBy:        req.Actor,
		UpdatedBy:        req.Actor,
		ApprovalStatus:   status,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	l.active[key] = allocation
	return allocation, nil
}

// ActiveAllocation returns the active allocation for (date, psp), if any.
func (l *AllocationLedger) ActiveAllocation(date, psp string) (model.Allocation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.active[model.BalanceKey{Date: date, PSP: psp}]
	return a, ok
}

// Review approves or rejects the active allocation for (date, psp).
// A rejected allocation is deactivated.
func (l *AllocationLedger) Review(date, psp string, status model.ApprovalStatus, actor string) (model.Allocation, error) {
	if status != model.ApprovalApproved && status != model.ApprovalRejected {
		return model.Allocation{}, model.NewValidationError("approval_status", "must be approved or rejected")
	}
	if actor == "" {
		return model.Allocation{}, model.NewValidationError("actor", "is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := model.BalanceKey{Date: date, PSP: psp}
	a, ok := l.active[key]
	if !ok {
		return model.Allocation{}, model.NewValidationError("allocation", fmt.Sprintf("no active allocation for %s", key))
	}

	now := l.now()
	a.ApprovalStatus = status
	a.ReviewedBy = actor
	a.ReviewedAt = ptr.Time(now)
	a.UpdatedBy = actor
	a.UpdatedAt = now
	if status == model.ApprovalRejected {
		a.IsActive = false
		delete(l.active, key)
		l.history = append(l.history, a)
		return a, nil
	}
	l.active[key] = a
	return a, nil
}

// Active returns a snapshot of the active allocations sorted by (date, psp).
func (l *AllocationLedger) Active() []model.Allocation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Allocation, 0, len(l.active))
	for _, a := range l.active {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return model.BalanceKey{Date: out[i].Date, PSP: out[i].PSP}.Less(model.BalanceKey{Date: out[j].Date, PSP: out[j].PSP})
	})
	return out
}

// Superseded returns the inactive allocations in the order they were retired.
func (l *AllocationLedger) Superseded() []model.Allocation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Allocation(nil), l.history...)
}

func allocationLockKey(date, psp string) string {
	return fmt.Sprintf("allocation:%s:%s", psp, date)
}

// withAllocationLedger loads the allocations stored for (date, psp) into a
// ledger under a lock, applies fn and writes back every allocation it touched.
func (t *Treasury) withAllocationLedger(ctx context.Context, date, psp string, fn func(l *AllocationLedger) (model.Allocation, error)) (model.Allocation, error) {
	locker := redlock.NewLocker(t.redis, allocationLockKey(date, psp), uuid.NewString())
	if err := locker.WaitLock(ctx, t.conf.Lock.Timeout(), t.conf.Lock.Wait()); err != nil {
		return model.Allocation{}, err
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Errorf("releasing %s: %v", locker.Key(), err)
		}
	}()

	existing, err := t.datasource.GetAllocations(ctx, model.BalanceFilter{PSP: psp, From: date, To: date}, true)
	if err != nil {
		return model.Allocation{}, err
	}
	ledger := NewAllocationLedger(existing)
	ledger.now = func() time.Time { return t.now().UTC() }

	allocation, err := fn(ledger)
	if err != nil {
		return model.Allocation{}, err
	}
	if err := t.datasource.SaveAllocations(ctx, append(ledger.Superseded(), ledger.Active()...)); err != nil {
		return model.Allocation{}, err
	}
	return allocation, nil
}

// SetAllocation replaces the allocation of an active PSP on a date and
// rebuilds the PSP's balances from that date.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - req AllocationRequest: The new allocation.
//
// Returns:
// - model.Allocation: The new active allocation.
// - error: A validation, PSP or storage error.
func (t *Treasury) SetAllocation(ctx context.Context, req AllocationRequest) (model.Allocation, error) {
	ctx, span := tracer.Start(ctx, "SetAllocation")
	defer span.End()

	if err := req.Validate(); err != nil {
		return model.Allocation{}, err
	}
	psps, err := t.pspDirectory(ctx)
	if err != nil {
		return model.Allocation{}, err
	}
	if _, err := psps.Resolve(req.PSP); err != nil {
		return model.Allocation{}, err
	}

	allocation, err := t.withAllocationLedger(ctx, req.Date, req.PSP, func(l *AllocationLedger) (model.Allocation, error) {
		return l.SetAllocation(req)
	})
	if err != nil {
		return model.Allocation{}, logAndRecordError(span, "setting allocation: ", err)
	}
	logrus.WithFields(logrus.Fields{
		"psp":    allocation.PSP,
		"date":   allocation.Date,
		"amount": allocation.AllocationAmount,
		"status": allocation.ApprovalStatus,
	}).Info("allocation set")

	return allocation, t.afterMutation(ctx, Scope{PSP: allocation.PSP, From: allocation.Date})
}

// ReviewAllocation approves or rejects the active allocation for (date, psp)
// and rebuilds the PSP's balances from that date.
func (t *Treasury) ReviewAllocation(ctx context.Context, date, psp string, status model.ApprovalStatus, actor string) (model.Allocation, error) {
	ctx, span := tracer.Start(ctx, "ReviewAllocation")
	defer span.End()

	if _, err := model.ParseDate(date); err != nil {
		return model.Allocation{}, err
	}
	allocation, err := t.withAllocationLedger(ctx, date, psp, func(l *AllocationLedger) (model.Allocation, error) {
		return l.Review(date, psp, status, actor)
	})
	if err != nil {
		return model.Allocation{}, logAndRecordError(span, "reviewing allocation: ", err)
	}
	return allocation, t.afterMutation(ctx, Scope{PSP: psp, From: date})
}

// GetAllocations lists allocations matching filter, including superseded ones
// unless activeOnly is set.
func (t *Treasury) GetAllocations(ctx context.Context, filter model.BalanceFilter, activeOnly bool) ([]model.Allocation, error) {
	return t.datasource.GetAllocations(ctx, filter, activeOnly)
}
