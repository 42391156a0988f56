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

import (
	"math/big"
)

const (
	selectorSize = 4
	// decodeBudgetFactor bounds the words visited per decode as a multiple
	// of the calldata length in words.
	decodeBudgetFactor = 8
)

// RawCalldata is a read cursor over encoded calldata. Offsets exclude the
// selector. A stack of scopes keeps the base offset that pointer words of
// the current aggregate are relative to.
type RawCalldata struct {
	selector []byte
	data     []byte
	offset   int
	scopes   []int
	budget   int
}

func NewRawCalldata(b []byte, hasSelector bool) (*RawCalldata, error) {
	r := &RawCalldata{data: b}
	if hasSelector {
		if len(b) < selectorSize {
			return nil, ErrorCodeTruncatedCalldata.Errorf("calldata shorter than selector len:%d", len(b))
		}
		r.selector, r.data = b[:selectorSize], b[selectorSize:]
	}
	r.budget = decodeBudgetFactor * (len(r.data)/wordSize + 1)
	return r, nil
}

// ParseRawCalldata decodes a hex string with or without 0x prefix.
func ParseRawCalldata(s string, hasSelector bool) (*RawCalldata, error) {
	b, err := bytesOfHex("", s)
	if err != nil {
		return nil, ErrorCodeMalformedCalldata.Wrapf(err, "invalid calldata hex err:%s", err.Error())
	}
	return NewRawCalldata(b, hasSelector)
}

func (r *RawCalldata) Selector() []byte {
	return r.selector
}

func (r *RawCalldata) Len() int {
	return len(r.data)
}

func (r *RawCalldata) Offset() int {
	return r.offset
}

func (r *RawCalldata) Remaining() int {
	return len(r.data) - r.offset
}

func (r *RawCalldata) SetOffset(offset int) error {
	if offset < 0 || offset > len(r.data) {
		return ErrorCodeUnresolvedPointer.Errorf("offset:%d out of range len:%d", offset, len(r.data))
	}
	r.offset = offset
	return nil
}

func (r *RawCalldata) PopWord() ([]byte, error) {
	return r.PopWords(1)
}

func (r *RawCalldata) PopWords(n int) ([]byte, error) {
	size := n * wordSize
	if n < 0 || size > r.Remaining() {
		return nil, ErrorCodeTruncatedCalldata.Errorf(
			"need %d words at offset:%d remaining:%d", n, r.offset, r.Remaining())
	}
	if n > r.budget {
		return nil, ErrorCodeMalformedCalldata.Errorf(
			"decode budget exceeded at offset:%d", r.offset)
	}
	r.budget -= n
	b := r.data[r.offset : r.offset+size]
	r.offset += size
	return b, nil
}

// popSize reads a word holding a length or an offset. A value that cannot
// fit in the buffer is returned as -1.
func (r *RawCalldata) popSize() (int, error) {
	w, err := r.PopWord()
	if err != nil {
		return 0, err
	}
	v := new(big.Int).SetBytes(w)
	if !v.IsInt64() || v.Int64() > int64(len(r.data)) {
		return -1, nil
	}
	return int(v.Int64()), nil
}

// StartScope makes the current offset the base of following pointer words.
func (r *RawCalldata) StartScope() {
	r.scopes = append(r.scopes, r.offset)
}

func (r *RawCalldata) EndScope() {
	if len(r.scopes) > 0 {
		r.scopes = r.scopes[:len(r.scopes)-1]
	}
}

func (r *RawCalldata) ScopeDepth() int {
	return len(r.scopes)
}

// ToAbsoluteOffset translates a pointer word read in the current scope.
func (r *RawCalldata) ToAbsoluteOffset(relative int) int {
	if len(r.scopes) == 0 {
		return relative
	}
	return r.scopes[len(r.scopes)-1] + relative
}
