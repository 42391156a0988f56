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

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/log"
	"golang.org/x/crypto/sha3"
)

var (
	codecLogger = log.New()
)

// MethodDescriptor is a function entry of a contract ABI document.
type MethodDescriptor struct {
	Type            string           `json:"type,omitempty" yaml:"type,omitempty"`
	Name            string           `json:"name" yaml:"name"`
	Inputs          []TypeDescriptor `json:"inputs" yaml:"inputs"`
	Outputs         []TypeDescriptor `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	StateMutability string           `json:"stateMutability,omitempty" yaml:"stateMutability,omitempty"`
}

// Method encodes and decodes calldata of one function. Type trees are
// built once in NewMethod and shared by every call.
type Method struct {
	desc      MethodDescriptor
	inputs    *DataType
	outputs   *DataType
	signature string
	selector  []byte
}

func NewMethod(d MethodDescriptor) (*Method, error) {
	if len(d.Name) == 0 {
		return nil, ErrorCodeInvalidValue.Errorf("method without name")
	}
	inputs, err := newParamsType(d.Inputs)
	if err != nil {
		return nil, err
	}
	outputs, err := newParamsType(d.Outputs)
	if err != nil {
		return nil, err
	}
	sig := d.Name + inputs.sig
	m := &Method{
		desc:      d,
		inputs:    inputs,
		outputs:   outputs,
		signature: sig,
		selector:  Selector(sig),
	}
	codecLogger.Tracef("NewMethod signature:%s selector:%s", m.signature, m.SelectorHex())
	return m, nil
}

func MustNewMethod(d MethodDescriptor) *Method {
	m, err := NewMethod(d)
	if err != nil {
		codecLogger.Panicf("fail to NewMethod err:%+v", err)
	}
	return m
}

func (m *Method) Name() string {
	return m.desc.Name
}

func (m *Method) Descriptor() MethodDescriptor {
	return m.desc
}

func (m *Method) Signature() string {
	return m.signature
}

func (m *Method) Selector() []byte {
	return append([]byte(nil), m.selector...)
}

func (m *Method) SelectorHex() string {
	return hexutil.Encode(m.selector)
}

// Inputs returns the tuple of the input parameters.
func (m *Method) Inputs() *DataType {
	return m.inputs
}

// Outputs returns the tuple of the return values.
func (m *Method) Outputs() *DataType {
	return m.outputs
}

// EncodeToCalldata lays out args without serializing, so that the caller can
// inspect the layout.
func (m *Method) EncodeToCalldata(args ...interface{}) (*Calldata, error) {
	return encodeRoot(m.inputs, m.selector, args)
}

func (m *Method) Encode(args ...interface{}) (string, error) {
	c, err := m.EncodeToCalldata(args...)
	if err != nil {
		return "", err
	}
	return m.hexValue(c)
}

func (m *Method) EncodeParamsToCalldata(params map[string]interface{}) (*Calldata, error) {
	return encodeRoot(m.inputs, m.selector, params)
}

// EncodeParams encodes input parameters given by name.
func (m *Method) EncodeParams(params map[string]interface{}) (string, error) {
	c, err := m.EncodeParamsToCalldata(params)
	if err != nil {
		return "", err
	}
	return m.hexValue(c)
}

func (m *Method) hexValue(c *Calldata) (string, error) {
	s, err := c.HexValue()
	if err != nil {
		return "", err
	}
	codecLogger.Tracef("Encode method:%s data:%s", m.signature, s)
	return s, nil
}

func (m *Method) EncodeReturnValues(values ...interface{}) (string, error) {
	c, err := encodeRoot(m.outputs, nil, values)
	if err != nil {
		return "", err
	}
	return c.HexValue()
}

// Decode returns input parameters in declaration order. Tuples are
// returned as maps keyed by component names.
func (m *Method) Decode(data string) ([]interface{}, error) {
	r, err := ParseRawCalldata(data, true)
	if err != nil {
		return nil, err
	}
	return m.decode(r)
}

func (m *Method) DecodeBytes(data []byte) ([]interface{}, error) {
	r, err := NewRawCalldata(data, true)
	if err != nil {
		return nil, err
	}
	return m.decode(r)
}

// DecodeParams returns input parameters keyed by name, the index is used for
// unnamed parameters.
func (m *Method) DecodeParams(data string) (map[string]interface{}, error) {
	values, err := m.Decode(data)
	if err != nil {
		return nil, err
	}
	return tupleMap(m.inputs, values), nil
}

// ParamsOf keys decoded input values by parameter name.
func (m *Method) ParamsOf(values []interface{}) map[string]interface{} {
	return tupleMap(m.inputs, values)
}

func (m *Method) decode(r *RawCalldata) ([]interface{}, error) {
	if !bytes.Equal(r.Selector(), m.selector) {
		return nil, ErrorCodeSelectorMismatch.Errorf("selector mismatch expected:%s actual:%s method:%s",
			m.SelectorHex(), hexutil.Encode(r.Selector()), m.signature)
	}
	values, err := decodeTuple(m.inputs, "", r)
	if err != nil {
		codecLogger.Tracef("fail to Decode method:%s err:%+v", m.signature, err)
		return nil, err
	}
	return values, nil
}

func (m *Method) DecodeReturnValues(data string) ([]interface{}, error) {
	r, err := ParseRawCalldata(data, false)
	if err != nil {
		return nil, err
	}
	return decodeTuple(m.outputs, "", r)
}

// Selector returns the first 4 bytes of the Keccak-256 hash of signature.
func Selector(signature string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return h.Sum(nil)[:selectorSize]
}

func SelectorHex(signature string) string {
	return hexutil.Encode(Selector(signature))
}
