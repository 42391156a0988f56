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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icon-project/abi-codec/abi"
	"github.com/icon-project/abi-codec/contract"
	"github.com/icon-project/abi-codec/database"
)

const (
	testNetwork     = "testnet"
	testAddress     = "0x00000000000000000000000000000000000000aa"
	testTokenFile   = "../contract/testdata/token.json"
	testTransferSig = "transfer(address,uint256)"
)

type testSource struct {
	inputs map[string]*contract.TxInput
}

func (s *testSource) NetworkType() string {
	return "test"
}

func (s *testSource) TxInput(_ context.Context, id contract.TxID) (*contract.TxInput, error) {
	if ti, ok := s.inputs[fmt.Sprint(id)]; ok {
		return ti, nil
	}
	return nil, contract.ErrorCodeNotFoundTransaction.Errorf("not found tx:%v", id)
}

func word(s string) string {
	return strings.Repeat("0", 64-len(s)) + s
}

func transferData(amount string) string {
	return "0xa9059cbb" + word(testAddress[2:]) + word(amount)
}

var approve = &abi.MethodDescriptor{
	Name: "approve",
	Inputs: []abi.TypeDescriptor{
		{Name: "spender", Type: "address"},
		{Name: "value", Type: "uint256"},
	},
}

func newTestServer(t *testing.T) (*Server, *Client) {
	db, err := database.OpenDatabase(database.Config{
		Driver: database.DriverSQLite,
		DBName: ":memory:",
	}, log.GlobalLogger())
	require.NoError(t, err)
	r, err := contract.NewRegistry(db, 0, log.GlobalLogger())
	require.NoError(t, err)
	s := NewServer("", r, log.DebugLevel, log.GlobalLogger())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, NewClient(ts.URL, log.DebugLevel, log.GlobalLogger())
}

func registerToken(t *testing.T, c *Client) MethodInfos {
	b, err := os.ReadFile(testTokenFile)
	require.NoError(t, err)
	infos, err := c.Register(b)
	require.NoError(t, err)
	return infos
}

func Test_ServerMethods(t *testing.T) {
	_, c := newTestServer(t)
	infos := registerToken(t, c)
	assert.Len(t, infos, 4)

	p, err := c.Methods(&PageRequest{Size: 3, Sort: "signature asc"})
	require.NoError(t, err)
	assert.Equal(t, 4, p.TotalElements)
	assert.Equal(t, 2, p.TotalPages)
	require.Len(t, p.Content, 3)
	assert.Equal(t, "balanceOf(address)", p.Content[0].Signature)

	p, err = c.Methods(&PageRequest{Page: 1, Size: 3, Sort: "signature asc"})
	require.NoError(t, err)
	require.Len(t, p.Content, 1)
	assert.Equal(t, testTransferSig, p.Content[0].Signature)

	_, err = c.Methods(&PageRequest{Sort: "abi; drop table method"})
	assert.Error(t, err)

	infos, err = c.MethodsBySelector("0xA9059CBB")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "transfer", infos[0].Name)
	assert.Equal(t, "0xa9059cbb", infos[0].Selector)
	assert.Len(t, infos[0].Inputs, 2)

	_, err = c.MethodsBySelector("0x12345678")
	assert.Equal(t, contract.ErrorCodeNotFoundMethod, errors.CodeOf(err))

	_, err = c.MethodsBySelector("0x1234")
	assert.Error(t, err)

	_, err = c.Register([]byte(`[{"type":"function","name":"bad","inputs":[{"name":"x","type":"fixed128x18"}]}]`))
	assert.Equal(t, contract.ErrorCodeInvalidSpec, errors.CodeOf(err))
}

func Test_ServerEncode(t *testing.T) {
	_, c := newTestServer(t)
	registerToken(t, c)

	r, err := c.Encode(&EncodeRequest{
		Signature: testTransferSig,
		Args:      []interface{}{testAddress, 1000},
	})
	require.NoError(t, err)
	assert.Equal(t, testTransferSig, r.Signature)
	assert.Equal(t, "0xa9059cbb", r.Selector)
	assert.Equal(t, transferData("3e8"), r.Data)
	assert.Empty(t, r.Annotated)

	r, err = c.Encode(&EncodeRequest{
		Signature: testTransferSig,
		Params:    map[string]interface{}{"to": testAddress, "amount": "1000"},
		Annotate:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, transferData("3e8"), r.Data)
	assert.Contains(t, r.Annotated, "selector")
	assert.Contains(t, r.Annotated, "amount")

	r, err = c.Encode(&EncodeRequest{
		Signature: testTransferSig,
		Args:      []interface{}{testAddress, json.Number("1000000000000000000000")},
	})
	require.NoError(t, err)
	assert.Equal(t, transferData("3635c9adc5dea00000"), r.Data)

	r, err = c.Encode(&EncodeRequest{
		Method: approve,
		Args:   []interface{}{testAddress, "0x10"},
	})
	require.NoError(t, err)
	assert.Equal(t, "approve(address,uint256)", r.Signature)
	assert.Equal(t, "0x095ea7b3", r.Selector)

	_, err = c.Encode(&EncodeRequest{Signature: "approve(address,uint256)"})
	assert.Equal(t, contract.ErrorCodeNotFoundMethod, errors.CodeOf(err))

	_, err = c.Encode(&EncodeRequest{Args: []interface{}{testAddress, 1}})
	assert.Error(t, err)

	_, err = c.Encode(&EncodeRequest{
		Signature: testTransferSig,
		Args:      []interface{}{testAddress, 1},
		Params:    map[string]interface{}{"to": testAddress, "amount": 1},
	})
	assert.Error(t, err)

	_, err = c.Encode(&EncodeRequest{
		Signature: testTransferSig,
		Args:      []interface{}{testAddress, -1},
	})
	assert.Equal(t, abi.ErrorCodeValueOutOfRange, errors.CodeOf(err))
}

func Test_ServerDecode(t *testing.T) {
	_, c := newTestServer(t)
	registerToken(t, c)

	d, err := c.Decode(&DecodeRequest{Data: transferData("3e8")})
	require.NoError(t, err)
	assert.Equal(t, testTransferSig, d.Signature)
	assert.Equal(t, "0xa9059cbb", d.Selector)
	assert.Equal(t, []interface{}{testAddress, "0x3e8"}, d.Args)
	assert.Equal(t, testAddress, d.Params["to"])
	assert.Equal(t, "0x3e8", d.Params["amount"])

	d, err = c.Decode(&DecodeRequest{
		Method: approve,
		Data:   "0x095ea7b3" + word(testAddress[2:]) + word("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "0x10", d.Params["value"])

	_, err = c.Decode(&DecodeRequest{Method: approve, Data: transferData("3e8")})
	assert.Equal(t, abi.ErrorCodeSelectorMismatch, errors.CodeOf(err))

	_, err = c.Decode(&DecodeRequest{Data: "0x12345678"})
	assert.Equal(t, contract.ErrorCodeNotFoundMethod, errors.CodeOf(err))

	_, err = c.Decode(&DecodeRequest{Data: "0x123"})
	assert.Error(t, err)

	_, err = c.Decode(&DecodeRequest{Data: "0xa9059cbb" + word(testAddress[2:])})
	require.Equal(t, contract.ErrorCodeUndecodable, errors.CodeOf(err))
	er, ok := err.(*ErrorResponse)
	require.True(t, ok)
	ue := &UndecodableError{}
	require.NoError(t, er.UnmarshalData(ue))
	assert.Equal(t, "0xa9059cbb", ue.Selector)
	assert.Contains(t, ue.Causes, testTransferSig)
}

func Test_ServerTxDecode(t *testing.T) {
	s, c := newTestServer(t)
	registerToken(t, c)
	s.AddSource(testNetwork, &testSource{
		inputs: map[string]*contract.TxInput{
			"0x01": {TxID: "0x01", Data: transferData("3e8")},
			"0x02": {TxID: "0x02", Data: "0x"},
		},
	})

	r, err := c.TxDecode(testNetwork, "0x01")
	require.NoError(t, err)
	assert.Equal(t, "0x01", r.Tx.TxID)
	require.NotNil(t, r.Decoded)
	assert.Equal(t, testTransferSig, r.Decoded.Signature)
	assert.Nil(t, r.Error)

	r, err = c.TxDecode(testNetwork, "0x02")
	require.NoError(t, err)
	assert.Nil(t, r.Decoded)
	require.NotNil(t, r.Error)
	assert.Equal(t, abi.ErrorCodeTruncatedCalldata, r.Error.Code)

	_, err = c.TxDecode(testNetwork, "0x03")
	assert.Equal(t, contract.ErrorCodeNotFoundTransaction, errors.CodeOf(err))

	_, err = c.TxDecode("unknown", "0x01")
	assert.Equal(t, contract.ErrorCodeNotFoundNetwork, errors.CodeOf(err))
}

func Test_ServerDecodeStream(t *testing.T) {
	_, c := newTestServer(t)
	registerToken(t, c)

	l := []string{transferData("3e8"), "0x12345678", "0x123"}
	results := make(map[string]*DecodeStreamResult)
	err := c.DecodeStream(context.Background(), nil, l, func(data string, r *DecodeStreamResult) error {
		results[data] = r
		return nil
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.NotNil(t, results[l[0]].Decoded)
	assert.Equal(t, testTransferSig, results[l[0]].Decoded.Signature)
	require.NotNil(t, results[l[1]].Error)
	assert.Equal(t, contract.ErrorCodeNotFoundMethod, results[l[1]].Error.Code)
	require.NotNil(t, results[l[2]].Error)
	assert.Equal(t, errors.IllegalArgumentError, results[l[2]].Error.Code)

	err = c.DecodeStream(context.Background(), approve, l[:1], func(data string, r *DecodeStreamResult) error {
		require.NotNil(t, r.Error)
		assert.Equal(t, abi.ErrorCodeSelectorMismatch, r.Error.Code)
		return nil
	})
	require.NoError(t, err)

	bad := &abi.MethodDescriptor{Name: "bad", Inputs: []abi.TypeDescriptor{{Type: "fixed128x18"}}}
	err = c.DecodeStream(context.Background(), bad, l, func(string, *DecodeStreamResult) error {
		return nil
	})
	assert.Equal(t, abi.ErrorCodeUnrecognizedType, errors.CodeOf(err))
}

func Test_ServerApiDocs(t *testing.T) {
	s, c := newTestServer(t)
	registerToken(t, c)
	s.AddSource(testNetwork, &testSource{})

	doc, err := c.ApiDocs()
	require.NoError(t, err)
	assert.Contains(t, doc.Paths, GroupUrlApi+UrlMethods)
	assert.Contains(t, doc.Paths, "/api/{network}/tx/{txID}")
	assert.Contains(t, doc.Paths, GroupUrlMonitor+UrlMonitorDecode)

	ref, ok := doc.Components.Schemas["transfer_a9059cbb"]
	require.True(t, ok)
	assert.Equal(t, testTransferSig, ref.Value.Title)
	assert.Contains(t, ref.Value.Properties, "to")
	assert.Contains(t, ref.Value.Properties, "amount")
	assert.ElementsMatch(t, []string{"to", "amount"}, ref.Value.Required)

	np, ok := doc.Components.Parameters[ParamNetwork]
	require.True(t, ok)
	assert.Contains(t, np.Value.Schema.Value.Enum, testNetwork)
}

func Test_HttpErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusOf(contract.ErrorCodeNotFoundMethod.New("not found")))
	assert.Equal(t, http.StatusBadRequest, StatusOf(abi.ErrorCodeValueOutOfRange.New("overflow")))
	assert.Equal(t, http.StatusBadRequest, StatusOf(contract.NewUndecodableError("0x12345678", nil)))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("unknown")))
}

func Test_Validator(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(&PageRequest{Size: 10, Sort: "signature desc,id"}))
	assert.Error(t, v.Validate(&PageRequest{Size: 1001}))
	assert.Error(t, v.Validate(&PageRequest{Sort: "abi"}))
	assert.NoError(t, v.Validate(&DecodeRequest{Data: "0x"}))
	assert.Error(t, v.Validate(&DecodeRequest{Data: "0xabc"}))
	assert.Error(t, v.Validate(&DecodeRequest{}))
	assert.NoError(t, v.Validate(&SelectorRequest{Selector: "0xa9059cbb"}))
	assert.Error(t, v.Validate(&SelectorRequest{Selector: "a9059cbb"}))
	assert.Error(t, v.Validate(&EncodeRequest{}))
	assert.NoError(t, v.Validate(&EncodeRequest{Signature: testTransferSig}))
}
