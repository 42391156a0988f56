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

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/icon-project/btp2/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icon-project/abi-codec/abi"
	"github.com/icon-project/abi-codec/contract"
)

func Test_ArgOf(t *testing.T) {
	assert.Equal(t, "0x01", ArgOf("0x01"))
	assert.Equal(t, "[1,", ArgOf("[1,"))
	assert.Equal(t, []interface{}{json.Number("1"), "a"}, ArgOf(`[1,"a"]`))
	assert.Equal(t, map[string]interface{}{"x": json.Number("100000000000000000000")},
		ArgOf(` {"x":100000000000000000000}`))
	assert.Equal(t, []interface{}{"a", []interface{}{json.Number("2")}}, ArgsOf([]string{"a", "[2]"}))
}

func Test_ReadJsonOrFile(t *testing.T) {
	d := &abi.MethodDescriptor{}
	require.NoError(t, ReadJsonOrFile(`{"name":"f","inputs":[{"type":"uint256"}]}`, d))
	assert.Equal(t, "f", d.Name)

	f := filepath.Join(t.TempDir(), "method.json")
	require.NoError(t, os.WriteFile(f, []byte(`{"name":"g","inputs":[]}`), 0644))
	d = &abi.MethodDescriptor{}
	require.NoError(t, ReadJsonOrFile(f, d))
	assert.Equal(t, "g", d.Name)

	assert.Error(t, ReadJsonOrFile(filepath.Join(t.TempDir(), "none.json"), d))
}

func Test_PrintDecodeResults(t *testing.T) {
	color.NoColor = true
	m := abi.MustNewMethod(abi.MethodDescriptor{
		Name:   "f",
		Inputs: []abi.TypeDescriptor{{Name: "x", Type: "uint8"}},
	})
	data, err := m.Encode(7)
	require.NoError(t, err)
	d, err := contract.Decode(singleMethod{m}, data)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, PrintDecodeResults(buf, []contract.DecodeResult{
		{Data: data, Decoded: d},
		{Data: "0x00", Error: errors.New("broken")},
	}))
	out := buf.String()
	assert.Contains(t, out, "f(uint8)")
	assert.Contains(t, out, "broken")
	assert.Contains(t, out, "FAIL")
}

type singleMethod struct {
	m *abi.Method
}

func (s singleMethod) MethodsBySelector(selector string) ([]*abi.Method, error) {
	if selector == s.m.SelectorHex() {
		return []*abi.Method{s.m}, nil
	}
	return nil, nil
}
