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

package eth

import (
	"bytes"
	"reflect"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/abi-codec/abi"
	"github.com/icon-project/abi-codec/contract"
)

var (
	compatLogger = log.New()
)

func argumentMarshalingsOf(l []abi.TypeDescriptor) []gethabi.ArgumentMarshaling {
	if len(l) == 0 {
		return nil
	}
	ret := make([]gethabi.ArgumentMarshaling, len(l))
	for i, d := range l {
		ret[i] = gethabi.ArgumentMarshaling{
			Name:         d.Name,
			Type:         d.Type,
			InternalType: d.InternalType,
			Components:   argumentMarshalingsOf(d.Components),
		}
	}
	return ret
}

// ArgumentsOf converts descriptors into go-ethereum arguments.
func ArgumentsOf(l []abi.TypeDescriptor) (gethabi.Arguments, error) {
	args := make(gethabi.Arguments, len(l))
	for i, d := range l {
		t, err := gethabi.NewType(d.Type, d.InternalType, argumentMarshalingsOf(d.Components))
		if err != nil {
			return nil, contract.ErrorCodeIncompatible.Wrapf(err, "fail to NewType type:%s err:%s", d.Type, err.Error())
		}
		args[i] = gethabi.Argument{Name: d.Name, Type: t}
	}
	return args, nil
}

func MethodOf(m *abi.Method) (*gethabi.Method, error) {
	d := m.Descriptor()
	inputs, err := ArgumentsOf(d.Inputs)
	if err != nil {
		return nil, err
	}
	outputs, err := ArgumentsOf(d.Outputs)
	if err != nil {
		return nil, err
	}
	gm := gethabi.NewMethod(d.Name, d.Name, gethabi.Function, d.StateMutability, false, false, inputs, outputs)
	return &gm, nil
}

// valueOf converts a value unpacked by go-ethereum into the form accepted
// by abi.Method.
func valueOf(t gethabi.Type, v reflect.Value) interface{} {
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	switch t.T {
	case gethabi.TupleTy:
		ret := make(map[string]interface{}, len(t.TupleElems))
		for i, e := range t.TupleElems {
			ret[t.TupleRawNames[i]] = valueOf(*e, v.Field(i))
		}
		return ret
	case gethabi.ArrayTy, gethabi.SliceTy:
		ret := make([]interface{}, v.Len())
		for i := 0; i < v.Len(); i++ {
			ret[i] = valueOf(*t.Elem, v.Index(i))
		}
		return ret
	case gethabi.AddressTy:
		return v.Interface().(common.Address).Bytes()
	case gethabi.FixedBytesTy:
		b := make([]byte, v.Len())
		reflect.Copy(reflect.ValueOf(b), v)
		return b
	default:
		return v.Interface()
	}
}

// Verify checks that go-ethereum and abi.Method agree on data, the
// calldata of m with selector. Both decode data and encode it back, the
// results must be the same.
func Verify(m *abi.Method, data []byte) error {
	gm, err := MethodOf(m)
	if err != nil {
		return err
	}
	if !bytes.Equal(gm.ID, m.Selector()) {
		return contract.ErrorCodeIncompatible.Errorf("selector mismatch geth:%s codec:%s",
			hexutil.Encode(gm.ID), m.SelectorHex())
	}
	values, err := m.DecodeBytes(data)
	if err != nil {
		return err
	}
	encoded, err := m.Encode(values...)
	if err != nil {
		return err
	}
	unpacked, err := gm.Inputs.UnpackValues(data[len(gm.ID):])
	if err != nil {
		return contract.ErrorCodeIncompatible.Wrapf(err, "fail to UnpackValues err:%s", err.Error())
	}
	packed, err := gm.Inputs.Pack(unpacked...)
	if err != nil {
		return contract.ErrorCodeIncompatible.Wrapf(err, "fail to Pack err:%s", err.Error())
	}
	if expected := hexutil.Encode(append(m.Selector(), packed...)); expected != encoded {
		compatLogger.Debugf("Verify mismatch method:%s geth:%s codec:%s", m.Signature(), expected, encoded)
		return contract.ErrorCodeIncompatible.Errorf("encoding mismatch method:%s", m.Signature())
	}
	args := make([]interface{}, len(unpacked))
	for i, v := range unpacked {
		args[i] = valueOf(gm.Inputs[i].Type, reflect.ValueOf(v))
	}
	if reencoded, err := m.Encode(args...); err != nil {
		return contract.ErrorCodeIncompatible.Wrapf(err, "fail to Encode values of geth err:%s", err.Error())
	} else if reencoded != encoded {
		return contract.ErrorCodeIncompatible.Errorf("values mismatch method:%s", m.Signature())
	}
	return nil
}
