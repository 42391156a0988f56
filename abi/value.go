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
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// BytesOfHex decodes a hex string with or without 0x prefix.
// Odd number of hex digits is reported as PartialByte.
func BytesOfHex(s string) ([]byte, error) {
	return bytesOfHex("", s)
}

func bytesOfHex(path, s string) ([]byte, error) {
	if !has0xPrefix(s) {
		s = "0x" + s
	} else if s[1] == 'X' {
		s = "0x" + s[2:]
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		if err == hexutil.ErrOddLength {
			return nil, pathError(ErrorCodePartialByte, path, "odd number of hex digits:%q", s)
		}
		return nil, pathError(ErrorCodeInvalidValue, path, "invalid hex:%q err:%s", s, err.Error())
	}
	return b, nil
}

func invalidValue(path string, v interface{}, expected string) error {
	return pathError(ErrorCodeInvalidValue, path, "invalid type %T for %s", v, expected)
}

func bigIntOf(path string, value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, invalidValue(path, value, "integer")
		}
		return v, nil
	case big.Int:
		return &v, nil
	case json.Number:
		return bigIntOfString(path, string(v))
	case string:
		return bigIntOfString(path, v)
	case float64:
		return bigIntOfFloat(path, v)
	case float32:
		return bigIntOfFloat(path, float64(v))
	}
	rv := reflect.ValueOf(value)
	switch {
	case rv.CanInt():
		return big.NewInt(rv.Int()), nil
	case rv.CanUint():
		return new(big.Int).SetUint64(rv.Uint()), nil
	case rv.Kind() == reflect.String:
		return bigIntOfString(path, rv.String())
	case rv.Kind() == reflect.Ptr && !rv.IsNil():
		return bigIntOf(path, rv.Elem().Interface())
	}
	return nil, invalidValue(path, value, "integer")
}

func bigIntOfString(path, s string) (*big.Int, error) {
	str, neg := s, false
	if strings.HasPrefix(str, "-") {
		str, neg = str[1:], true
	}
	base := 10
	if has0xPrefix(str) {
		str, base = str[2:], 16
	}
	if len(str) == 0 || str[0] == '-' || str[0] == '+' {
		return nil, pathError(ErrorCodeInvalidValue, path, "invalid integer:%q", s)
	}
	v, ok := new(big.Int).SetString(str, base)
	if !ok {
		return nil, pathError(ErrorCodeInvalidValue, path, "invalid integer:%q", s)
	}
	if neg {
		v.Neg(v)
	}
	return v, nil
}

func bigIntOfFloat(path string, f float64) (*big.Int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, pathError(ErrorCodeInvalidValue, path, "not an integral number:%v", f)
	}
	v, _ := new(big.Float).SetFloat64(f).Int(nil)
	return v, nil
}

func boolOf(path string, value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch v {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return false, pathError(ErrorCodeInvalidValue, path, "invalid boolean:%q", v)
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Bool {
		return rv.Bool(), nil
	}
	return false, invalidValue(path, value, "bool")
}

var byteType = reflect.TypeOf(byte(0))

// bytesOf accepts hex strings, byte slices and byte arrays
// such as common.Address or common.Hash.
func bytesOf(path string, value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return bytesOfHex(path, v)
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return bytesOfHex(path, rv.String())
	case reflect.Slice:
		if rv.Type().Elem() == byteType {
			return rv.Bytes(), nil
		}
	case reflect.Array:
		if rv.Type().Elem() == byteType {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return b, nil
		}
	case reflect.Ptr:
		if !rv.IsNil() {
			return bytesOf(path, rv.Elem().Interface())
		}
	}
	return nil, invalidValue(path, value, "bytes")
}

func addressOf(path string, value interface{}) ([]byte, error) {
	b, err := bytesOf(path, value)
	if err != nil {
		return nil, err
	}
	if len(b) != addressSize {
		return nil, pathError(ErrorCodeInvalidValue, path, "invalid address length:%d", len(b))
	}
	return b, nil
}

func stringOf(path string, value interface{}) (string, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return "", invalidValue(path, value, "string")
}

// listOf returns elements of a slice or an array.
func listOf(value interface{}) ([]interface{}, bool) {
	if l, ok := value.([]interface{}); ok {
		return l, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		l := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			l[i] = rv.Index(i).Interface()
		}
		return l, true
	default:
		return nil, false
	}
}

// fieldsOf returns key value pairs of a map with string keys, or of a struct
// keyed by json tag names.
func fieldsOf(value interface{}) (map[string]interface{}, bool) {
	if m, ok := value.(map[string]interface{}); ok {
		return m, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		m := make(map[string]interface{}, rv.Len())
		for _, k := range rv.MapKeys() {
			m[k.String()] = rv.MapIndex(k).Interface()
		}
		return m, true
	case reflect.Struct:
		rt := rv.Type()
		m := make(map[string]interface{}, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			f := rt.Field(i)
			if !f.IsExported() {
				continue
			}
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				continue
			}
			if name == "" {
				name = f.Name
			}
			m[name] = rv.Field(i).Interface()
		}
		return m, true
	default:
		return nil, false
	}
}
