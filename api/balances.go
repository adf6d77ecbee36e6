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
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	model2 "github.com/pipline/treasury/api/model"
	"github.com/pipline/treasury/internal/export"
)

func bindBalanceQuery(c *gin.Context) (model2.BalanceQuery, bool) {
	var query model2.BalanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidInput(c, err)
		return query, false
	}
	if err := query.ValidateBalanceQuery(); err != nil {
		invalidInput(c, err)
		return query, false
	}
	return query, true
}

func (a Api) Recompute(c *gin.Context) {
	var req model2.Recompute
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.treasury.RecomputeAll(c.Request.Context(), req.Scopes)
	if err != nil {
		respondWithError(c, err)
		return
	}
	counts := make(map[string]int, len(resp))
	for psp, balances := range resp {
		counts[psp] = len(balances)
	}
	c.JSON(http.StatusOK, gin.H{"recomputed": counts})
}

func (a Api) PendingRecomputes(c *gin.Context) {
	pending, err := a.treasury.PendingRecomputes()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

func (a Api) GetDailyBalances(c *gin.Context) {
	query, ok := bindBalanceQuery(c)
	if !ok {
		return
	}
	resp, err := a.treasury.GetDailyBalances(c.Request.Context(), query.ToFilter())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetLedgerEntries(c *gin.Context) {
	query, ok := bindBalanceQuery(c)
	if !ok {
		return
	}
	resp, err := a.treasury.GetLedgerEntries(c.Request.Context(), query.ToFilter())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetSummaries(c *gin.Context) {
	query, ok := bindBalanceQuery(c)
	if !ok {
		return
	}
	resp, err := a.treasury.GetSummaries(c.Request.Context(), query.ToFilter())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) ExportBalances(c *gin.Context) {
	query, ok := bindBalanceQuery(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := a.treasury.ExportBalances(c.Request.Context(), &buf, query.ToFilter(), format); err != nil {
		respondWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", format.Filename("balances")))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
