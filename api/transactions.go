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
	"net/http"

	"github.com/gin-gonic/gin"
	model2 "github.com/pipline/treasury/api/model"
)

func (a Api) RecordTransaction(c *gin.Context) {
	var newTransaction model2.RecordTransaction
	if err := c.ShouldBindJSON(&newTransaction); err != nil {
		invalidInput(c, err)
		return
	}
	if err := newTransaction.ValidateRecordTransaction(); err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.treasury.RecordTransaction(c.Request.Context(), newTransaction.ToTransactionInput())
	if err != nil {
		if resp != nil {
			// stored, but balances could not be brought up to date
			c.JSON(http.StatusAccepted, gin.H{"transaction": resp, "warning": err.Error()})
			return
		}
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetTransaction(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.treasury.GetTransaction(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetTransactions(c *gin.Context) {
	var query model2.BalanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidInput(c, err)
		return
	}
	if err := query.ValidateBalanceQuery(); err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.treasury.GetTransactions(c.Request.Context(), query.ToFilter())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) DeleteTransaction(c *gin.Context) {
	id := c.Param("id")
	if err := a.treasury.DeleteTransaction(c.Request.Context(), id); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction deleted", "transaction_id": id})
}
