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
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/icon-project/btp2/common/errors"
	"github.com/stretchr/testify/assert"
)

func hexOf(selector string, words ...string) string {
	return "0x" + selector + strings.Join(words, "")
}

func word(s string) string {
	return strings.Repeat("0", 64-len(s)) + s
}

func rword(s string) string {
	return s + strings.Repeat("0", 64-len(s))
}

// normalize replaces integers by their decimal strings so that values can be
// compared regardless of the internal representation of big.Int.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case *big.Int:
		return t.String()
	case []interface{}:
		l := make([]interface{}, len(t))
		for i, e := range t {
			l[i] = normalize(e)
		}
		return l
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[k] = normalize(e)
		}
		return m
	default:
		return v
	}
}

func params(types ...string) []TypeDescriptor {
	l := make([]TypeDescriptor, len(types))
	for i, t := range types {
		l[i] = TypeDescriptor{Name: string(rune('a' + i)), Type: t}
	}
	return l
}

func Test_EncodeScalar(t *testing.T) {
	tests := []struct {
		typ      string
		value    interface{}
		expected string
	}{
		{"uint256", 1, word("1")},
		{"uint8", 255, word("ff")},
		{"uint8", "0xff", word("ff")},
		{"uint64", uint64(1 << 63), word("8000000000000000")},
		{"uint256", "1000", word("3e8")},
		{"uint256", float64(16), word("10")},
		{"int8", -1, strings.Repeat("f", 64)},
		{"int8", -128, strings.Repeat("f", 62) + "80"},
		{"int8", 127, word("7f")},
		{"int256", "-0x2", strings.Repeat("f", 63) + "e"},
		{"int16", big.NewInt(-300), strings.Repeat("f", 61) + "ed4"},
		{"bool", true, word("1")},
		{"bool", "false", word("0")},
		{"address", "0x1111111111111111111111111111111111111111", word(strings.Repeat("11", 20))},
		{"address", common.HexToAddress("0x2222222222222222222222222222222222222222"), word(strings.Repeat("22", 20))},
		{"bytes3", "0x616263", rword("616263")},
		{"bytes3", []byte{0x61}, rword("61")},
		{"bytes32", common.Hash{1}, rword("01")},
		{"bytes", "0xdead", word("20") + word("2") + rword("dead")},
		{"bytes", []byte{}, word("20") + word("0")},
		{"string", "dave", word("20") + word("4") + rword("64617665")},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			m := MustNewMethod(MethodDescriptor{Name: "f", Inputs: params(tt.typ)})
			s, err := m.Encode(tt.value)
			if assert.NoError(t, err) {
				assert.Equal(t, hexOf(m.SelectorHex()[2:], tt.expected), s)
			}
		})
	}
}

func Test_EncodeValueError(t *testing.T) {
	tests := []struct {
		name  string
		typ   string
		value interface{}
		code  errors.Code
	}{
		{"uint8 overflow", "uint8", 256, ErrorCodeValueOutOfRange},
		{"uint8 negative", "uint8", -1, ErrorCodeValueOutOfRange},
		{"int8 underflow", "int8", -129, ErrorCodeValueOutOfRange},
		{"int8 overflow", "int8", 128, ErrorCodeValueOutOfRange},
		{"uint256 overflow", "uint256", new(big.Int).Lsh(big.NewInt(1), 256), ErrorCodeValueOutOfRange},
		{"int fraction", "uint256", 1.5, ErrorCodeInvalidValue},
		{"int garbage", "uint256", "12ab", ErrorCodeInvalidValue},
		{"int double sign", "int256", "--5", ErrorCodeInvalidValue},
		{"int sign after prefix", "int256", "0x-5", ErrorCodeInvalidValue},
		{"int plus sign", "int256", "+5", ErrorCodeInvalidValue},
		{"int sign only", "int256", "-", ErrorCodeInvalidValue},
		{"int prefix only", "int256", "-0x", ErrorCodeInvalidValue},
		{"bool string", "bool", "yes", ErrorCodeInvalidValue},
		{"bool int", "bool", 1, ErrorCodeInvalidValue},
		{"bytes odd", "bytes", "0xabc", ErrorCodePartialByte},
		{"bytes2 odd", "bytes2", "0xabc", ErrorCodePartialByte},
		{"bytes2 exceed", "bytes2", "0xaabbcc", ErrorCodeByteLengthExceeded},
		{"address length", "address", "0x1234", ErrorCodeInvalidValue},
		{"string int", "string", 1, ErrorCodeInvalidValue},
		{"fixed array", "uint256[2]", []int{1, 2, 3}, ErrorCodeArrayLengthMismatch},
		{"array scalar", "uint256[]", 1, ErrorCodeInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MustNewMethod(MethodDescriptor{Name: "f", Inputs: params(tt.typ)})
			_, err := m.Encode(tt.value)
			assert.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err), "%+v", err)
			assert.True(t, IsCodecError(err))
		})
	}
}

func Test_EncodeTuple(t *testing.T) {
	m := MustNewMethod(MethodDescriptor{
		Name: "f",
		Inputs: []TypeDescriptor{{Name: "p", Type: "tuple", Components: []TypeDescriptor{
			{Name: "x", Type: "uint256"},
			{Name: "y", Type: "bool"},
		}}},
	})
	expected := hexOf(m.SelectorHex()[2:], word("5"), word("1"))

	type point struct {
		X int  `json:"x"`
		Y bool `json:"y"`
	}
	for _, v := range []interface{}{
		[]interface{}{5, true},
		map[string]interface{}{"y": true, "x": 5},
		point{X: 5, Y: true},
		&point{X: 5, Y: true},
	} {
		s, err := m.Encode(v)
		assert.NoError(t, err)
		assert.Equal(t, expected, s)
	}

	_, err := m.Encode([]interface{}{5})
	assert.Equal(t, ErrorCodeIncompleteTuple, errors.CodeOf(err))
	_, err = m.Encode(map[string]interface{}{"x": 5})
	assert.Equal(t, ErrorCodeIncompleteTuple, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "p: missing field:y")
	_, err = m.Encode(map[string]interface{}{"x": 5, "y": true, "z": 1})
	assert.Equal(t, ErrorCodeUnknownField, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "z")
	_, err = m.Encode(5)
	assert.Equal(t, ErrorCodeInvalidValue, errors.CodeOf(err))

	_, err = m.Encode()
	assert.Equal(t, ErrorCodeIncompleteTuple, errors.CodeOf(err))
	_, err = m.Encode(map[string]interface{}{"x": 1, "y": true}, 1)
	assert.Equal(t, ErrorCodeIncompleteTuple, errors.CodeOf(err))
}

func Test_EncodeErrorPath(t *testing.T) {
	m := MustNewMethod(MethodDescriptor{
		Name: "f",
		Inputs: []TypeDescriptor{{Name: "orders", Type: "tuple[]", Components: []TypeDescriptor{
			{Name: "amount", Type: "uint8"},
		}}},
	})
	_, err := m.Encode([]interface{}{
		map[string]interface{}{"amount": 1},
		map[string]interface{}{"amount": 300},
	})
	assert.Equal(t, ErrorCodeValueOutOfRange, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "orders[1].amount")
}

func Test_DecodeScalar(t *testing.T) {
	tests := []struct {
		typ      string
		data     string
		expected interface{}
	}{
		{"uint8", word("ff"), big.NewInt(255)},
		{"uint256", strings.Repeat("f", 64), new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))},
		{"int8", strings.Repeat("f", 64), big.NewInt(-1)},
		{"int8", strings.Repeat("f", 62) + "80", big.NewInt(-128)},
		{"int16", strings.Repeat("f", 61) + "ed4", big.NewInt(-300)},
		{"int256", strings.Repeat("f", 63) + "e", big.NewInt(-2)},
		{"int24", word("7fffff"), big.NewInt(0x7fffff)},
		{"bool", word("1"), true},
		{"bool", word("0"), false},
		{"address", word(strings.Repeat("ab", 20)), "0x" + strings.Repeat("ab", 20)},
		{"bytes2", rword("abcd"), "0xabcd"},
		{"bytes", word("20") + word("3") + rword("010203"), "0x010203"},
		{"bytes", word("20") + word("0"), "0x"},
		{"string", word("20") + word("d") + rword("48656c6c6f2c20776f726c6421"), "Hello, world!"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			m := MustNewMethod(MethodDescriptor{Name: "f", Inputs: params(tt.typ)})
			values, err := m.Decode(hexOf(m.SelectorHex()[2:], tt.data))
			if assert.NoError(t, err) {
				assert.Equal(t, normalize([]interface{}{tt.expected}), normalize(values))
			}
		})
	}
}

func Test_DecodeError(t *testing.T) {
	tests := []struct {
		name string
		typ  string
		data string
		code errors.Code
	}{
		{"bool two", "bool", word("2"), ErrorCodeMalformedBoolean},
		{"bool high bit", "bool", "01" + strings.Repeat("0", 62), ErrorCodeMalformedBoolean},
		{"uint8 dirty", "uint8", word("100"), ErrorCodeValueOutOfRange},
		{"int8 dirty", "int8", word("ff"), ErrorCodeValueOutOfRange},
		{"int8 bad extension", "int8", strings.Repeat("f", 62) + "7f", ErrorCodeValueOutOfRange},
		{"truncated word", "uint256", "00", ErrorCodeTruncatedCalldata},
		{"empty", "uint256", "", ErrorCodeTruncatedCalldata},
		{"truncated bytes", "bytes", word("20") + word("40") + rword("01"), ErrorCodeTruncatedCalldata},
		{"huge length", "bytes", word("20") + strings.Repeat("f", 64), ErrorCodeTruncatedCalldata},
		{"pointer out of range", "bytes", word("1000"), ErrorCodeUnresolvedPointer},
		{"huge pointer", "string", strings.Repeat("f", 64), ErrorCodeUnresolvedPointer},
		{"array too long", "uint256[]", word("20") + word("5") + word("1"), ErrorCodeTruncatedCalldata},
		{"odd hex", "uint256", "0", ErrorCodeMalformedCalldata},
		{"bytes2 dirty padding", "bytes2", rword("abcd01"), ErrorCodeInvalidValue},
		{"huge fixed array", "bytes[576460752303423488]", word("20"), ErrorCodeTruncatedCalldata},
		{"huge static element", "uint256[1048576][]", word("20") + word("1"), ErrorCodeTruncatedCalldata},
		{"aliased inner arrays", "uint256[][]", aliasedArrays(64), ErrorCodeMalformedCalldata},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MustNewMethod(MethodDescriptor{Name: "f", Inputs: params(tt.typ)})
			_, err := m.Decode(hexOf(m.SelectorHex()[2:], tt.data))
			assert.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err), "%+v", err)
		})
	}
}

// aliasedArrays encodes an outer array of n pointers that all refer to the
// same inner array of n words.
func aliasedArrays(n int) string {
	ptr := fmt.Sprintf("%x", n*wordSize)
	s := word("20") + word(fmt.Sprintf("%x", n))
	for i := 0; i < n; i++ {
		s += word(ptr)
	}
	s += word(fmt.Sprintf("%x", n))
	for i := 0; i < n; i++ {
		s += word(fmt.Sprintf("%x", i))
	}
	return s
}

func Test_DecodeAliasedArraysWithinBudget(t *testing.T) {
	m := MustNewMethod(MethodDescriptor{Name: "f", Inputs: params("uint256[][]")})
	args, err := m.Decode(hexOf(m.SelectorHex()[2:], aliasedArrays(2)))
	assert.NoError(t, err)
	assert.Len(t, args, 1)
}

func Test_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		inputs []TypeDescriptor
		args   []interface{}
	}{
		{
			"scalars",
			params("uint8", "int32", "address", "bool", "bytes4", "bytes", "string"),
			[]interface{}{big.NewInt(255), big.NewInt(-2147483648), "0x" + strings.Repeat("0a", 20),
				true, "0x01020304", "0x" + strings.Repeat("ff", 33), "héllo"},
		},
		{
			"nested arrays",
			params("uint256[][]", "string[2]", "bool[3]"),
			[]interface{}{
				[]interface{}{[]interface{}{big.NewInt(1), big.NewInt(2)}, []interface{}{}, []interface{}{big.NewInt(3)}},
				[]interface{}{"a", ""},
				[]interface{}{true, false, true},
			},
		},
		{
			"tuples",
			[]TypeDescriptor{
				{Name: "order", Type: "tuple", Components: []TypeDescriptor{
					{Name: "maker", Type: "address"},
					{Name: "assets", Type: "bytes[]"},
					{Name: "fee", Type: "tuple", Components: []TypeDescriptor{
						{Name: "amount", Type: "uint128"},
						{Name: "memo", Type: "string"},
					}},
				}},
				{Name: "pairs", Type: "tuple[2]", Components: []TypeDescriptor{
					{Name: "k", Type: "int64"},
					{Name: "v", Type: "bytes32"},
				}},
			},
			[]interface{}{
				map[string]interface{}{
					"maker":  "0x" + strings.Repeat("cd", 20),
					"assets": []interface{}{"0xdead", "0x", "0xbeef"},
					"fee": map[string]interface{}{
						"amount": big.NewInt(100),
						"memo":   "fee",
					},
				},
				[]interface{}{
					map[string]interface{}{"k": big.NewInt(-7), "v": "0x" + strings.Repeat("11", 32)},
					map[string]interface{}{"k": big.NewInt(7), "v": "0x" + strings.Repeat("22", 32)},
				},
			},
		},
		{"no params", nil, []interface{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMethod(MethodDescriptor{Name: "roundTrip", Inputs: tt.inputs})
			if !assert.NoError(t, err) {
				return
			}
			s, err := m.Encode(tt.args...)
			if !assert.NoError(t, err) {
				return
			}
			values, err := m.Decode(s)
			if assert.NoError(t, err) {
				assert.Equal(t, normalize(tt.args), normalize(values))
			}
		})
	}
}
