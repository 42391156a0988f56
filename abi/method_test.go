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
	"encoding/json"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/icon-project/btp2/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Selector(t *testing.T) {
	assert.Equal(t, "0xa9059cbb", SelectorHex("transfer(address,uint256)"))
	assert.Equal(t, "0x70a08231", SelectorHex("balanceOf(address)"))

	a := MustNewMethod(MethodDescriptor{Name: "transfer", Inputs: []TypeDescriptor{
		{Name: "to", Type: "address"}, {Name: "amount", Type: "uint"},
	}})
	b := MustNewMethod(MethodDescriptor{Name: "transfer", Inputs: []TypeDescriptor{
		{Name: "recipient", Type: "address"}, {Name: "value", Type: "uint256"},
	}})
	assert.Equal(t, "transfer(address,uint256)", a.Signature())
	assert.Equal(t, a.Signature(), b.Signature())
	assert.Equal(t, a.Selector(), b.Selector())
	assert.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, a.Selector())
}

func Test_MethodSignature(t *testing.T) {
	m := MustNewMethod(MethodDescriptor{Name: "submit", Inputs: []TypeDescriptor{
		{Name: "orders", Type: "tuple[]", Components: []TypeDescriptor{
			{Name: "maker", Type: "address"},
			{Name: "amount", Type: "uint256"},
			{Name: "data", Type: "bytes"},
		}},
		{Name: "sig", Type: "tuple", Components: []TypeDescriptor{
			{Name: "v", Type: "uint8"},
			{Name: "r", Type: "bytes32"},
			{Name: "s", Type: "bytes32"},
		}},
		{Name: "memo", Type: "string"},
	}})
	assert.Equal(t, "submit((address,uint256,bytes)[],(uint8,bytes32,bytes32),string)", m.Signature())
	assert.Equal(t, "0x841487b8", m.SelectorHex())
}

// Test_EncodeFoo encodes foo(uint256,bytes) with (1, 0xdead).
func Test_EncodeFoo(t *testing.T) {
	m := MustNewMethod(MethodDescriptor{Name: "foo", Inputs: []TypeDescriptor{
		{Name: "id", Type: "uint256"},
		{Name: "payload", Type: "bytes"},
	}})
	expected := hexOf("e334f6ab", word("1"), word("40"), word("2"), rword("dead"))
	s, err := m.Encode(1, "0xdead")
	require.NoError(t, err)
	assert.Equal(t, expected, s)

	values, err := m.Decode(s)
	require.NoError(t, err)
	assert.Equal(t, "1", values[0].(*big.Int).String())
	assert.Equal(t, "0xdead", values[1])

	p, err := m.DecodeParams(s)
	require.NoError(t, err)
	assert.Equal(t, "0xdead", p["payload"])
	assert.Equal(t, 0, big.NewInt(1).Cmp(p["id"].(*big.Int)))

	s2, err := m.EncodeParams(map[string]interface{}{"payload": []byte{0xde, 0xad}, "id": big.NewInt(1)})
	require.NoError(t, err)
	assert.Equal(t, expected, s2)
}

func Test_EncodeSolidityExamples(t *testing.T) {
	tests := []struct {
		name     string
		inputs   []string
		args     []interface{}
		expected string
	}{
		{
			"baz", []string{"uint32", "bool"}, []interface{}{69, true},
			hexOf("cdcd77c0", word("45"), word("1")),
		},
		{
			"bar", []string{"bytes3[2]"}, []interface{}{[]string{"0x616263", "0x646566"}},
			hexOf("fce353f6", rword("616263"), rword("646566")),
		},
		{
			"sam", []string{"bytes", "bool", "uint256[]"},
			[]interface{}{[]byte("dave"), true, []int{1, 2, 3}},
			hexOf("a5643bf2",
				word("60"), word("1"), word("a0"),
				word("4"), rword("64617665"),
				word("3"), word("1"), word("2"), word("3")),
		},
		{
			"f", []string{"uint256", "uint32[]", "bytes10", "bytes"},
			[]interface{}{0x123, []int{0x456, 0x789}, []byte("1234567890"), []byte("Hello, world!")},
			hexOf("8be65246",
				word("123"), word("80"), rword("31323334353637383930"), word("e0"),
				word("2"), word("456"), word("789"),
				word("d"), rword("48656c6c6f2c20776f726c6421")),
		},
		{
			"g", []string{"uint256[][]", "string[]"},
			[]interface{}{[][]int{{1, 2}, {3}}, []string{"one", "two", "three"}},
			hexOf("2289b18c",
				word("40"), word("140"),
				word("2"), word("40"), word("a0"),
				word("2"), word("1"), word("2"),
				word("1"), word("3"),
				word("3"), word("60"), word("a0"), word("e0"),
				word("3"), rword("6f6e65"),
				word("3"), rword("74776f"),
				word("5"), rword("7468726565")),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputs := make([]TypeDescriptor, len(tt.inputs))
			for i, typ := range tt.inputs {
				inputs[i] = TypeDescriptor{Type: typ}
			}
			m := MustNewMethod(MethodDescriptor{Name: tt.name, Inputs: inputs})
			s, err := m.Encode(tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s)

			_, err = m.Decode(s)
			assert.NoError(t, err)
		})
	}
}

func Test_EncodeNestedTuples(t *testing.T) {
	m := MustNewMethod(MethodDescriptor{Name: "submit", Inputs: []TypeDescriptor{
		{Name: "orders", Type: "tuple[]", Components: []TypeDescriptor{
			{Name: "maker", Type: "address"},
			{Name: "amount", Type: "uint256"},
			{Name: "data", Type: "bytes"},
		}},
		{Name: "sig", Type: "tuple", Components: []TypeDescriptor{
			{Name: "v", Type: "uint8"},
			{Name: "r", Type: "bytes32"},
			{Name: "s", Type: "bytes32"},
		}},
		{Name: "memo", Type: "string"},
	}})
	orders := []interface{}{
		map[string]interface{}{"maker": "0x" + strings.Repeat("11", 20), "amount": 5, "data": "0xcafe"},
		map[string]interface{}{"maker": "0x" + strings.Repeat("22", 20), "amount": 7, "data": "0x"},
	}
	sig := []interface{}{27, "0x" + strings.Repeat("01", 32), "0x" + strings.Repeat("02", 32)}
	expected := hexOf("841487b8",
		word("a0"),
		word("1b"), strings.Repeat("01", 32), strings.Repeat("02", 32),
		word("220"),
		word("2"), word("40"), word("e0"),
		word(strings.Repeat("11", 20)), word("5"), word("60"), word("2"), rword("cafe"),
		word(strings.Repeat("22", 20)), word("7"), word("60"), word("0"),
		word("2"), rword("6869"))

	s, err := m.Encode(orders, sig, "hi")
	require.NoError(t, err)
	assert.Equal(t, expected, s)

	p, err := m.DecodeParams(s)
	require.NoError(t, err)
	decoded := p["orders"].([]interface{})
	assert.Len(t, decoded, 2)
	assert.Equal(t, "0xcafe", decoded[0].(map[string]interface{})["data"])
	assert.Equal(t, "0x"+strings.Repeat("22", 20), decoded[1].(map[string]interface{})["maker"])
	assert.Equal(t, "0x", decoded[1].(map[string]interface{})["data"])
	assert.Equal(t, "27", p["sig"].(map[string]interface{})["v"].(*big.Int).String())
	assert.Equal(t, "hi", p["memo"])
}

func Test_SignedIntegers(t *testing.T) {
	m := MustNewMethod(MethodDescriptor{Name: "neg", Inputs: params("int8", "int256", "int16[2]")})
	assert.Equal(t, "0x38bcb33c", m.SelectorHex())
	s, err := m.Encode(-1, -2, []int{-300, 300})
	require.NoError(t, err)
	assert.Equal(t, hexOf("38bcb33c",
		strings.Repeat("f", 64),
		strings.Repeat("f", 63)+"e",
		strings.Repeat("f", 61)+"ed4",
		word("12c")), s)
	values, err := m.Decode(s)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"-1", "-2", []interface{}{"-300", "300"}}, normalize(values))
}

func Test_IntegerBounds(t *testing.T) {
	m := MustNewMethod(MethodDescriptor{Name: "f", Inputs: params("uint8")})
	_, err := m.Encode(256)
	assert.Equal(t, ErrorCodeValueOutOfRange, errors.CodeOf(err))

	s, err := m.Encode(255)
	require.NoError(t, err)
	values, err := m.Decode(s)
	require.NoError(t, err)
	assert.Equal(t, "255", values[0].(*big.Int).String())

	m = MustNewMethod(MethodDescriptor{Name: "f", Inputs: params("int8")})
	_, err = m.Encode(-129)
	assert.Equal(t, ErrorCodeValueOutOfRange, errors.CodeOf(err))
	_, err = m.Encode(-128)
	assert.NoError(t, err)
}

func Test_FixedArrayLengthMismatch(t *testing.T) {
	m := MustNewMethod(MethodDescriptor{Name: "f", Inputs: params("uint256[2]")})
	_, err := m.Encode([]int{1, 2})
	assert.NoError(t, err)
	_, err = m.Encode([]int{1, 2, 3})
	assert.Equal(t, ErrorCodeArrayLengthMismatch, errors.CodeOf(err))
}

func Test_SelectorMismatch(t *testing.T) {
	m := MustNewMethod(MethodDescriptor{Name: "foo", Inputs: params("uint256")})
	_, err := m.Decode(hexOf("deadbeef", word("1")))
	assert.Equal(t, ErrorCodeSelectorMismatch, errors.CodeOf(err))
	_, err = m.Decode("0x1234")
	assert.Equal(t, ErrorCodeTruncatedCalldata, errors.CodeOf(err))
	_, err = m.DecodeBytes([]byte{0xe3, 0x34, 0xf6, 0xab})
	assert.Equal(t, ErrorCodeSelectorMismatch, errors.CodeOf(err))
}

func Test_ReturnValues(t *testing.T) {
	m := MustNewMethod(MethodDescriptor{
		Name:    "getOrder",
		Inputs:  params("uint256"),
		Outputs: []TypeDescriptor{{Name: "maker", Type: "address"}, {Name: "note", Type: "string"}},
	})
	s, err := m.EncodeReturnValues("0x"+strings.Repeat("ab", 20), "ok")
	require.NoError(t, err)
	assert.Equal(t, hexOf("", word(strings.Repeat("ab", 20)), word("40"), word("2"), rword("6f6b")), s)
	values, err := m.DecodeReturnValues(s)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"0x" + strings.Repeat("ab", 20), "ok"}, values)
}

func Test_MethodDescriptorJSON(t *testing.T) {
	b := []byte(`{"type":"function","name":"transfer","inputs":[
		{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
		"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"}`)
	var d MethodDescriptor
	require.NoError(t, json.Unmarshal(b, &d))
	m, err := NewMethod(d)
	require.NoError(t, err)
	assert.Equal(t, "0xa9059cbb", m.SelectorHex())

	var num interface{}
	dec := json.NewDecoder(strings.NewReader(`{"to":"0x0000000000000000000000000000000000000001","amount":1000000000000000000000}`))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&num))
	s, err := m.EncodeParams(num.(map[string]interface{}))
	require.NoError(t, err)
	assert.Equal(t, hexOf("a9059cbb", word("1"), word("3635c9adc5dea00000")), s)
}

func Test_ConcurrentUse(t *testing.T) {
	m := MustNewMethod(MethodDescriptor{Name: "f", Inputs: params("uint256[]", "string")})
	expected, err := m.Encode([]int{1, 2, 3}, "x")
	require.NoError(t, err)
	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s, err := m.Encode([]int{1, 2, 3}, "x")
				assert.NoError(t, err)
				assert.Equal(t, expected, s)
				_, err = m.Decode(s)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}
