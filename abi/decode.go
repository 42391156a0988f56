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
	"bytes"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/errors"
)

// decodeInteger reads the low size bits of the word. Bits above the declared
// width must be a plain sign or zero extension.
func decodeInteger(path string, signed bool, size int, w []byte) (*big.Int, error) {
	v := new(big.Int).SetBytes(w)
	if size < maxIntSize {
		mask := new(big.Int).Lsh(bigOne, uint(size))
		mask.Sub(mask, bigOne)
		high := new(big.Int).Rsh(v, uint(size))
		v.And(v, mask)
		negative := signed && v.Bit(size-1) == 1
		expected := new(big.Int)
		if negative {
			expected.Lsh(bigOne, uint(maxIntSize-size))
			expected.Sub(expected, bigOne)
		}
		if high.Cmp(expected) != 0 {
			return nil, pathError(ErrorCodeValueOutOfRange, path,
				"word:%s does not fit %s", hexutil.Encode(w), integerType(signed, size))
		}
	}
	if signed && v.Bit(size-1) == 1 {
		v.Sub(v, new(big.Int).Lsh(bigOne, uint(size)))
	}
	return v, nil
}

func integerType(signed bool, size int) string {
	if signed {
		return "int" + strconv.Itoa(size)
	}
	return "uint" + strconv.Itoa(size)
}

func decodeValue(t *DataType, path string, r *RawCalldata) (interface{}, error) {
	switch t.kind {
	case KindPointer:
		return decodePointer(t, path, r)
	case KindTuple:
		values, err := decodeTuple(t, path, r)
		if err != nil {
			return nil, err
		}
		return tupleMap(t, values), nil
	case KindArray:
		return decodeArray(t, path, r)
	case KindBytes, KindString:
		b, err := decodeDynamicBytes(path, r)
		if err != nil {
			return nil, err
		}
		if t.kind == KindString {
			return string(b), nil
		}
		return hexutil.Encode(b), nil
	}
	w, err := r.PopWord()
	if err != nil {
		return nil, wrapPath(err, path)
	}
	switch t.kind {
	case KindAddress:
		return hexutil.Encode(w[wordSize-addressSize:]), nil
	case KindBool:
		if !bytes.Equal(w[:wordSize-1], zeroWord[:wordSize-1]) || w[wordSize-1] > 1 {
			return nil, pathError(ErrorCodeMalformedBoolean, path, "invalid boolean word:%s", hexutil.Encode(w))
		}
		return w[wordSize-1] == 1, nil
	case KindInt, KindUint:
		return decodeInteger(path, t.kind == KindInt, t.size, w)
	case KindFixedBytes:
		if !bytes.Equal(w[t.size:], zeroWord[t.size:]) {
			return nil, pathError(ErrorCodeInvalidValue, path, "non-zero padding of bytes%d word:%s",
				t.size, hexutil.Encode(w))
		}
		return hexutil.Encode(w[:t.size]), nil
	default:
		return nil, pathError(ErrorCodeUnrecognizedType, path, "unknown kind:%s", t.kind)
	}
}

var zeroWord = make([]byte, wordSize)

// decodePointer follows the offset word and decodes the referenced value,
// then restores the cursor past the word.
func decodePointer(t *DataType, path string, r *RawCalldata) (interface{}, error) {
	rel, err := r.popSize()
	if err != nil {
		return nil, wrapPath(err, path)
	}
	if rel < 0 {
		return nil, pathError(ErrorCodeUnresolvedPointer, path, "offset out of range")
	}
	abs := r.ToAbsoluteOffset(rel)
	saved := r.Offset()
	if err = r.SetOffset(abs); err != nil {
		return nil, wrapPath(err, path)
	}
	v, err := decodeValue(t.inner, path, r)
	if err != nil {
		return nil, err
	}
	if err = r.SetOffset(saved); err != nil {
		return nil, wrapPath(err, path)
	}
	return v, nil
}

func decodeTuple(t *DataType, path string, r *RawCalldata) ([]interface{}, error) {
	r.StartScope()
	defer r.EndScope()
	values := make([]interface{}, len(t.fields))
	for i, f := range t.fields {
		v, err := decodeValue(f, joinPath(path, t.keys[i]), r)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func tupleMap(t *DataType, values []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(values))
	for i, v := range values {
		m[t.keys[i]] = v
	}
	return m
}

func decodeArray(t *DataType, path string, r *RawCalldata) ([]interface{}, error) {
	n := t.length
	if n < 0 {
		var err error
		if n, err = r.popSize(); err != nil {
			return nil, wrapPath(err, path)
		}
	}
	h := t.elem.HeadSize()
	if h <= 0 {
		return nil, pathError(ErrorCodeInvalidArrayLength, path, "invalid element head size:%d", h)
	}
	if n < 0 || n > r.Remaining()/h {
		return nil, pathError(ErrorCodeTruncatedCalldata, path,
			"array length:%d exceeds remaining:%d", n, r.Remaining())
	}
	r.StartScope()
	defer r.EndScope()
	l := make([]interface{}, n)
	for i := range l {
		v, err := decodeValue(t.elem, path+"["+strconv.Itoa(i)+"]", r)
		if err != nil {
			return nil, err
		}
		l[i] = v
	}
	return l, nil
}

func decodeDynamicBytes(path string, r *RawCalldata) ([]byte, error) {
	n, err := r.popSize()
	if err != nil {
		return nil, wrapPath(err, path)
	}
	if n < 0 {
		return nil, pathError(ErrorCodeTruncatedCalldata, path, "length exceeds calldata")
	}
	b, err := r.PopWords((n + wordSize - 1) / wordSize)
	if err != nil {
		return nil, wrapPath(err, path)
	}
	return b[:n], nil
}

func wrapPath(err error, path string) error {
	if len(path) == 0 {
		return err
	}
	return errors.CodeOf(err).Wrapf(err, "%s: %s", path, err.Error())
}
