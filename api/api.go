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
	"github.com/pipline/treasury"
	"github.com/pipline/treasury/api/middleware"
	"github.com/pipline/treasury/config"
	"github.com/pipline/treasury/internal/apierror"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Api struct {
	treasury *treasury.Treasury
	router   *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/psps", a.RegisterPSP)
	router.GET("/psps", a.GetPSPs)
	router.PUT("/psps/:name", a.UpdatePSP)
	router.DELETE("/psps/:name", a.DeactivatePSP)

	router.POST("/transactions", a.RecordTransaction)
	router.GET("/transactions", a.GetTransactions)
	router.GET("/transactions/:id", a.GetTransaction)
	router.DELETE("/transactions/:id", a.DeleteTransaction)

	router.PUT("/allocations", a.SetAllocation)
	router.PUT("/allocations/review", a.ReviewAllocation)
	router.GET("/allocations", a.GetAllocations)

	router.POST("/recompute", a.Recompute)
	router.GET("/recompute/pending", a.PendingRecomputes)

	router.GET("/balances", a.GetDailyBalances)
	router.GET("/ledger-entries", a.GetLedgerEntries)
	router.GET("/summaries", a.GetSummaries)
	router.GET("/export/balances", a.ExportBalances)
	return a.router
}

func NewAPI(t *treasury.Treasury, conf *config.Configuration) *Api {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), gin.Logger())
	if conf.Telemetry.Enabled {
		r.Use(otelgin.Middleware(conf.Telemetry.ServiceName))
	}
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	if conf.Server.SecretKey != "" {
		r.Use(middleware.SecretKeyAuthMiddleware(conf.Server.SecretKey))
	}
	return &Api{treasury: t, router: r}
}

// respondWithError maps err to its HTTP status. Details of internal errors
// are logged, not returned.
func respondWithError(c *gin.Context, err error) {
	apiErr := apierror.FromError(err)
	if apiErr.Code == apierror.ErrInternalServer {
		apiErr.Details = nil
	}
	c.JSON(apierror.MapErrorToHTTPStatus(apiErr), gin.H{
		"error":   apiErr.Message,
		"code":    apiErr.Code,
		"details": apiErr.Details,
	})
}

func invalidInput(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apierror.ErrInvalidInput})
}
