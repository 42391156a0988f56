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
	"sort"
	"strconv"
	"strings"
)

var (
	bigOne      = big.NewInt(1)
	wordModulus = new(big.Int).Lsh(bigOne, maxIntSize)
)

// integerBounds returns the inclusive range of an integer of the given width.
func integerBounds(signed bool, size int) (min, max *big.Int) {
	if signed {
		max = new(big.Int).Lsh(bigOne, uint(size-1))
		min = new(big.Int).Neg(max)
		max.Sub(max, bigOne)
		return
	}
	max = new(big.Int).Lsh(bigOne, uint(size))
	max.Sub(max, bigOne)
	return new(big.Int), max
}

// encodeInteger returns the word of v. Negative values take the two's
// complement of the whole word, 2^256 + v.
func encodeInteger(path string, signed bool, size int, v *big.Int) ([]byte, error) {
	min, max := integerBounds(signed, size)
	if v.Cmp(min) < 0 || v.Cmp(max) > 0 {
		return nil, pathError(ErrorCodeValueOutOfRange, path, "value:%s out of range [%s, %s]", v, min, max)
	}
	if v.Sign() < 0 {
		v = new(big.Int).Add(wordModulus, v)
	}
	return v.FillBytes(make([]byte, wordSize)), nil
}

func newPayloadBlock(t *DataType, path string, v interface{}) (*PayloadBlock, error) {
	switch t.kind {
	case KindAddress:
		b, err := addressOf(path, v)
		if err != nil {
			return nil, err
		}
		return NewPayloadBlock(path, nil, leftPad(b)), nil
	case KindBool:
		b, err := boolOf(path, v)
		if err != nil {
			return nil, err
		}
		w := make([]byte, wordSize)
		if b {
			w[wordSize-1] = 1
		}
		return NewPayloadBlock(path, nil, w), nil
	case KindInt, KindUint:
		i, err := bigIntOf(path, v)
		if err != nil {
			return nil, err
		}
		w, err := encodeInteger(path, t.kind == KindInt, t.size, i)
		if err != nil {
			return nil, err
		}
		return NewPayloadBlock(path, nil, w), nil
	case KindFixedBytes:
		b, err := bytesOf(path, v)
		if err != nil {
			return nil, err
		}
		if len(b) > t.size {
			return nil, pathError(ErrorCodeByteLengthExceeded, path, "%d bytes exceeds bytes%d", len(b), t.size)
		}
		w := make([]byte, wordSize)
		copy(w, b)
		return NewPayloadBlock(path, nil, w), nil
	case KindBytes:
		b, err := bytesOf(path, v)
		if err != nil {
			return nil, err
		}
		return NewPayloadBlock(path, uintWord(uint64(len(b))), rightPad(b)), nil
	case KindString:
		s, err := stringOf(path, v)
		if err != nil {
			return nil, err
		}
		return NewPayloadBlock(path, uintWord(uint64(len(s))), rightPad([]byte(s))), nil
	default:
		return nil, pathError(ErrorCodeUnrecognizedType, path, "not a scalar kind:%s", t.kind)
	}
}

// newBlock builds the block of t for value v. parent is the aggregate whose
// data region pointer words are relative to.
func newBlock(t *DataType, path string, v interface{}, parent *MemberBlock) (Block, error) {
	switch t.kind {
	case KindPointer:
		dep, err := newBlock(t.inner, path, v, nil)
		if err != nil {
			return nil, err
		}
		return NewPointerBlock(path, dep, parent), nil
	case KindTuple:
		return newTupleBlock(t, path, v)
	case KindArray:
		return newArrayBlock(t, path, v)
	default:
		return newPayloadBlock(t, path, v)
	}
}

func newTupleBlock(t *DataType, path string, v interface{}) (*MemberBlock, error) {
	values, err := tupleValues(t, path, v)
	if err != nil {
		return nil, err
	}
	m := NewMemberBlock(path, nil)
	for i, f := range t.fields {
		b, err := newBlock(f, joinPath(path, t.keys[i]), values[i], m)
		if err != nil {
			return nil, err
		}
		m.append(b)
	}
	return m, nil
}

// tupleValues orders v by the tuple fields. v is either a list of values in
// declaration order or a mapping keyed by field names.
func tupleValues(t *DataType, path string, v interface{}) ([]interface{}, error) {
	if l, ok := v.([]interface{}); ok {
		if len(l) != len(t.fields) {
			return nil, pathError(ErrorCodeIncompleteTuple, path,
				"expected %d values, got %d", len(t.fields), len(l))
		}
		return l, nil
	}
	if m, ok := fieldsOf(v); ok {
		values := make([]interface{}, len(t.keys))
		for i, k := range t.keys {
			fv, found := m[k]
			if !found {
				return nil, pathError(ErrorCodeIncompleteTuple, path, "missing field:%s", k)
			}
			values[i] = fv
		}
		if len(m) != len(t.keys) {
			return nil, pathError(ErrorCodeUnknownField, path, "unknown fields:%s",
				strings.Join(unknownKeys(t.keys, m), ","))
		}
		return values, nil
	}
	if l, ok := listOf(v); ok {
		return tupleValues(t, path, l)
	}
	return nil, invalidValue(path, v, "tuple")
}

func unknownKeys(keys []string, m map[string]interface{}) []string {
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
	}
	var l []string
	for k := range m {
		if !known[k] {
			l = append(l, k)
		}
	}
	sort.Strings(l)
	return l
}

func newArrayBlock(t *DataType, path string, v interface{}) (*MemberBlock, error) {
	l, ok := listOf(v)
	if !ok {
		return nil, invalidValue(path, v, t.sig)
	}
	var header []byte
	if t.length < 0 {
		header = uintWord(uint64(len(l)))
	} else if len(l) != t.length {
		return nil, pathError(ErrorCodeArrayLengthMismatch, path,
			"expected %d elements, got %d", t.length, len(l))
	}
	m := NewMemberBlock(path, header)
	for i, e := range l {
		b, err := newBlock(t.elem, path+"["+strconv.Itoa(i)+"]", e, m)
		if err != nil {
			return nil, err
		}
		m.append(b)
	}
	return m, nil
}

// encodeRoot lays out v as a calldata with the given selector. root is the
// tuple of the top level parameters.
func encodeRoot(root *DataType, selector []byte, v interface{}) (*Calldata, error) {
	m, err := newTupleBlock(root, "", v)
	if err != nil {
		return nil, err
	}
	c := NewCalldata(selector)
	if err = c.SetRoot(m); err != nil {
		return nil, err
	}
	return c, nil
}
