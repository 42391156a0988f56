/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/icon-project/btp2/common/errors"
	"github.com/labstack/echo/v4"

	"github.com/icon-project/abi-codec/abi"
	"github.com/icon-project/abi-codec/contract"
)

type ErrorResponse struct {
	Code    errors.Code     `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("code:%d, message:%s", e.Code, e.Message)
}

func (e *ErrorResponse) ErrorCode() errors.Code {
	return e.Code
}

func (e *ErrorResponse) MarshalData(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e.Data = b
	return nil
}

func (e *ErrorResponse) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// UndecodableError is the data of the ErrorResponse for
// contract.UndecodableError, the message of the cause keyed by signature.
type UndecodableError struct {
	Selector string            `json:"selector"`
	Causes   map[string]string `json:"causes"`
}

func NewErrorResponse(err error) *ErrorResponse {
	er := &ErrorResponse{
		Code:    errors.CodeOf(err),
		Message: err.Error(),
	}
	var ue contract.UndecodableError
	if errors.As(err, &ue) {
		data := &UndecodableError{
			Selector: ue.Selector(),
			Causes:   make(map[string]string),
		}
		for sig, cause := range ue.Causes() {
			data.Causes[sig] = cause.Error()
		}
		if err = er.MarshalData(data); err != nil {
			er.Data = nil
		}
	}
	return er
}

func StatusOf(err error) int {
	switch errors.CodeOf(err) {
	case contract.ErrorCodeNotFoundMethod, contract.ErrorCodeNotFoundTransaction,
		contract.ErrorCodeNotFoundNetwork:
		return http.StatusNotFound
	case contract.ErrorCodeAmbiguousMethod, contract.ErrorCodeInvalidSpec,
		contract.ErrorCodeInvalidOption, contract.ErrorCodeUndecodable:
		return http.StatusBadRequest
	}
	if abi.IsCodecError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func HttpErrorHandler(err error, c echo.Context) {
	code := StatusOf(err)
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if e, ok := he.Message.(error); ok {
			err = e
		} else if he.Internal != nil {
			err = he.Internal
		}
	}
	er := NewErrorResponse(err)
	if !c.Response().Committed {
		if err = c.JSON(code, er); err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}
