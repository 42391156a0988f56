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

package abi

import "github.com/icon-project/btp2/common/errors"

const (
	ErrorCodeUnrecognizedType errors.Code = errors.CodeGeneral + 500 + iota
	ErrorCodeMissingComponents
	ErrorCodeInvalidArrayLength
	ErrorCodeValueOutOfRange
	ErrorCodePartialByte
	ErrorCodeByteLengthExceeded
	ErrorCodeArrayLengthMismatch
	ErrorCodeIncompleteTuple
	ErrorCodeUnknownField
	ErrorCodeInvalidValue
	ErrorCodeMalformedBoolean
	ErrorCodeSelectorMismatch
	ErrorCodeTruncatedCalldata
	ErrorCodeMalformedCalldata
	ErrorCodeDuplicateBinding
	ErrorCodeUnresolvedPointer
)

var codeNames = map[errors.Code]string{
	ErrorCodeUnrecognizedType:    "UnrecognizedType",
	ErrorCodeMissingComponents:   "MissingComponents",
	ErrorCodeInvalidArrayLength:  "InvalidArrayLength",
	ErrorCodeValueOutOfRange:     "ValueOutOfRange",
	ErrorCodePartialByte:         "PartialByte",
	ErrorCodeByteLengthExceeded:  "ByteLengthExceeded",
	ErrorCodeArrayLengthMismatch: "ArrayLengthMismatch",
	ErrorCodeIncompleteTuple:     "IncompleteTuple",
	ErrorCodeUnknownField:        "UnknownField",
	ErrorCodeInvalidValue:        "InvalidValue",
	ErrorCodeMalformedBoolean:    "MalformedBoolean",
	ErrorCodeSelectorMismatch:    "SelectorMismatch",
	ErrorCodeTruncatedCalldata:   "TruncatedCalldata",
	ErrorCodeMalformedCalldata:   "MalformedCalldata",
	ErrorCodeDuplicateBinding:    "DuplicateBinding",
	ErrorCodeUnresolvedPointer:   "UnresolvedPointer",
}

// CodeName returns the symbolic name of a codec error code, or empty string
// if the code does not belong to the codec.
func CodeName(c errors.Code) string {
	return codeNames[c]
}

// IsCodecError reports whether err carries one of the codec error codes.
func IsCodecError(err error) bool {
	if err == nil {
		return false
	}
	_, ok := codeNames[errors.CodeOf(err)]
	return ok
}

func pathError(code errors.Code, path, format string, args ...interface{}) error {
	if len(path) > 0 {
		format = "%s: " + format
		args = append([]interface{}{path}, args...)
	}
	return code.Errorf(format, args...)
}
