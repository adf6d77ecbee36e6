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

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pipline/treasury/config"
	"github.com/stretchr/testify/assert"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func serve(r *gin.Engine, header string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if header != "" {
		req.Header.Set(KeyHeader, header)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp.Code
}

func TestSecretKeyAuthMiddleware(t *testing.T) {
	r := newRouter(SecretKeyAuthMiddleware("s3cret"))

	assert.Equal(t, http.StatusUnauthorized, serve(r, ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "wrong"))
	assert.Equal(t, http.StatusOK, serve(r, "s3cret"))

	unconfigured := newRouter(SecretKeyAuthMiddleware(""))
	assert.Equal(t, http.StatusInternalServerError, serve(unconfigured, "anything"))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		r := newRouter(RateLimitMiddleware(&config.Configuration{}))
		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusOK, serve(r, ""))
		}
	})

	t.Run("enabled", func(t *testing.T) {
		rps, burst := 1.0, 1
		r := newRouter(RateLimitMiddleware(&config.Configuration{
			RateLimit: config.RateLimitConfig{RequestsPerSecond: &rps, Burst: &burst},
		}))
		assert.Equal(t, http.StatusOK, serve(r, ""))
		assert.Equal(t, http.StatusTooManyRequests, serve(r, ""))
	})
}
