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

package contract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/icon-project/btp2/common/errors"
)

const (
	ErrorCodeNotFoundMethod errors.Code = errors.CodeGeneral + 600 + iota
	ErrorCodeAmbiguousMethod
	ErrorCodeInvalidSpec
	ErrorCodeInvalidOption
	ErrorCodeNotFoundTransaction
	ErrorCodeNotFoundNetwork
	ErrorCodeUndecodable
	ErrorCodeIncompatible
)

var (
	errUndecodable = errors.NewBase(ErrorCodeUndecodable, "UndecodableError")
)

// UndecodableError is returned when every method matching the selector
// fails to decode the calldata.
type UndecodableError interface {
	errors.ErrorCoder
	Selector() string
	Causes() map[string]error
}

type undecodableError struct {
	errors.ErrorCoder
	selector string
	causes   map[string]error
}

func (e *undecodableError) Selector() string {
	return e.selector
}

func (e *undecodableError) Causes() map[string]error {
	return e.causes
}

func (e *undecodableError) Error() string {
	sigs := make([]string, 0, len(e.causes))
	for sig := range e.causes {
		sigs = append(sigs, sig)
	}
	sort.Strings(sigs)
	msgs := make([]string, len(sigs))
	for i, sig := range sigs {
		msgs[i] = fmt.Sprintf("%s: %s", sig, e.causes[sig].Error())
	}
	return fmt.Sprintf("UndecodableError(selector:%s) %s", e.selector, strings.Join(msgs, ", "))
}

func NewUndecodableError(selector string, causes map[string]error) UndecodableError {
	return &undecodableError{
		ErrorCoder: errUndecodable,
		selector:   selector,
		causes:     causes,
	}
}
