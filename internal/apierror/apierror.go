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

package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/pipline/treasury/model"
	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrInvalidRate    ErrorCode = "INVALID_RATE"
	ErrUnknownPSP     ErrorCode = "UNKNOWN_PSP"
	ErrOrdering       ErrorCode = "ORDERING"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if details != nil {
		logrus.WithField("code", code).Error(details)
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// FromError converts engine errors into API errors. Errors that are already
// APIErrors pass through; anything unrecognised becomes an internal error.
func FromError(err error) APIError {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var pspErr *model.UnknownPSPError
	switch {
	case errors.As(err, &pspErr):
		return APIError{Code: ErrUnknownPSP, Message: err.Error(), Details: map[string]string{"suggestion": pspErr.Suggestion}}
	case errors.Is(err, model.ErrValidation):
		return APIError{Code: ErrInvalidInput, Message: err.Error()}
	case errors.Is(err, model.ErrInvalidRate):
		return APIError{Code: ErrInvalidRate, Message: err.Error()}
	case errors.Is(err, model.ErrOrdering):
		return APIError{Code: ErrOrdering, Message: err.Error()}
	}
	return NewAPIError(ErrInternalServer, "internal server error", err.Error())
}

func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		apiErr = FromError(err)
	}
	switch apiErr.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict, ErrOrdering:
		return http.StatusConflict
	case ErrBadRequest, ErrInvalidInput, ErrInvalidRate, ErrUnknownPSP:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
