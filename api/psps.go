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

func (a Api) RegisterPSP(c *gin.Context) {
	var newPSP model2.CreatePSP
	if err := c.ShouldBindJSON(&newPSP); err != nil {
		invalidInput(c, err)
		return
	}
	if err := newPSP.ValidateCreatePSP(); err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.treasury.RegisterPSP(c.Request.Context(), newPSP.Name, newPSP.CommissionRate)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetPSPs(c *gin.Context) {
	resp, err := a.treasury.GetPSPs(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) UpdatePSP(c *gin.Context) {
	var update model2.UpdatePSP
	if err := c.ShouldBindJSON(&update); err != nil {
		invalidInput(c, err)
		return
	}
	if err := update.ValidateUpdatePSP(); err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.treasury.UpdatePSP(c.Request.Context(), c.Param("name"), update.ToPSPUpdate())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) DeactivatePSP(c *gin.Context) {
	if err := a.treasury.DeactivatePSP(c.Request.Context(), c.Param("name")); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "psp deactivated"})
}
