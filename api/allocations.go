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

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	model2 "github.com/pipline/treasury/api/model"
)

func (a Api) SetAllocation(c *gin.Context) {
	var req model2.SetAllocation
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}
	if err := req.ValidateSetAllocation(); err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.treasury.SetAllocation(c.Request.Context(), req.ToAllocationRequest())
	if err != nil && resp.AllocationID == "" {
		respondWithError(c, err)
		return
	}
	if err != nil {
		c.JSON(http.StatusAccepted, gin.H{"allocation": resp, "warning": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) ReviewAllocation(c *gin.Context) {
	var req model2.ReviewAllocation
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}
	if err := req.ValidateReviewAllocation(); err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.treasury.ReviewAllocation(c.Request.Context(), req.Date, req.PSP, req.Status, req.Actor)
	if err != nil && resp.AllocationID == "" {
		respondWithError(c, err)
		return
	}
	if err != nil {
		c.JSON(http.StatusAccepted, gin.H{"allocation": resp, "warning": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetAllocations(c *gin.Context) {
	query, ok := bindBalanceQuery(c)
	if !ok {
		return
	}
	activeOnly, err := strconv.ParseBool(c.DefaultQuery("active", "false"))
	if err != nil {
		invalidInput(c, fmt.Errorf("active must be true or false: %w", err))
		return
	}

	resp, err := a.treasury.GetAllocations(c.Request.Context(), query.ToFilter(), activeOnly)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
