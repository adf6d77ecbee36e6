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
	"sort"

	"github.com/pipline/treasury/internal/apierror"
	"github.com/pipline/treasury/model"
)

// SaveAllocations upserts allocations in one transaction. Inactive rows are
// written first so the unique index on active (date, psp) never sees two
// active rows at once.
func (d Datasource) SaveAllocations(ctx context.Context, allocations []model.Allocation) error {
	ctx, span := tracer.Start(ctx, "SaveAllocations")
	defer span.End()

	ordered := append([]model.Allocation(nil), allocations...)
	sort.SliceStable(ordered, func(i, j int) bool { return !ordered[i].IsActive && ordered[j].IsActive })

	err := withTx(ctx, d.Conn, func(tx *sql.Tx) error {
		for _, a := range ordered {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO treasury.allocations (allocation_id, date, psp, allocation_amount, max_allocation, reason, created_by,
					updated_by, approval_status, is_active, reviewed_by, reviewed_at, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
				ON CONFLICT (allocation_id) DO UPDATE SET
					updated_by = EXCLUDED.updated_by,
					approval_status = EXCLUDED.approval_status,
					is_active = EXCLUDED.is_active,
					reviewed_by = EXCLUDED.reviewed_by,
					reviewed_at = EXCLUDED.reviewed_at,
					updated_at = EXCLUDED.updated_at
			`, a.AllocationID, a.Date, a.PSP, a.AllocationAmount, a.MaxAllocation, a.Reason, a.CreatedBy,
				a.UpdatedBy, a.ApprovalStatus, a.IsActive, a.ReviewedBy, a.ReviewedAt, a.CreatedAt, a.UpdatedAt)
			if err != nil {
				if isUniqueViolation(err) {
					return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("An active allocation already exists for %s on %s", a.PSP, a.Date), err)
				}
				return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save allocation", err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (d Datasource) GetAllocations(ctx context.Context, filter model.BalanceFilter, activeOnly bool) ([]model.Allocation, error) {
	ctx, span := tracer.Start(ctx, "GetAllocations")
	defer span.End()

	where, args := whereFilter(filter, 1)
	if activeOnly {
		if where == "" {
			where = " WHERE is_active"
		} else {
			where += " AND is_active"
		}
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT allocation_id, date::text, psp, allocation_amount, max_allocation, reason, created_by, updated_by,
			approval_status, is_active, reviewed_by, reviewed_at, created_at, updated_at
		FROM treasury.allocations`+where+`
		ORDER BY date, psp, created_at`, args...)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve allocations", err)
	}
	defer rows.Close()

	var allocations []model.Allocation
	for rows.Next() {
		var a model.Allocation
		var reason, reviewedBy sql.NullString
		var reviewedAt sql.NullTime
		err := rows.Scan(&a.AllocationID, &a.Date, &a.PSP, &a.AllocationAmount, &a.MaxAllocation, &reason, &a.CreatedBy,
			&a.UpdatedBy, &a.ApprovalStatus, &a.IsActive, &reviewedBy, &reviewedAt, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan allocation", err)
		}
		a.Reason = reason.String
		a.ReviewedBy = reviewedBy.String
		if reviewedAt.Valid {
			at := reviewedAt.Time
			a.ReviewedAt = &at
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve allocations", err)
	}
	return allocations, nil
}
