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

package contract

import (
	"math/big"
	"reflect"
	"strings"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/intconv"
	"github.com/icon-project/btp2/common/log"
)

// Integer is the JSON form of decoded integers, a hex string with 0x or
// -0x prefix.
type Integer string

func (i Integer) AsBigInt() (*big.Int, error) {
	s, neg := string(i), false
	if strings.HasPrefix(s, "-") {
		s, neg = s[1:], true
	}
	if !strings.HasPrefix(s, "0x") {
		return nil, errors.Errorf("invalid integer:%s", string(i))
	}
	r, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		return nil, errors.Errorf("fail to convert big.Int integer:%s", string(i))
	}
	if neg {
		r.Neg(r)
	}
	return r, nil
}

func (i Integer) AsInt64() (int64, error) {
	r, err := i.AsBigInt()
	if err != nil {
		return 0, err
	}
	if !r.IsInt64() {
		return 0, errors.Errorf("out of int64 range integer:%s", string(i))
	}
	return r.Int64(), nil
}

func FromBigInt(i *big.Int) Integer {
	return Integer(intconv.FormatBigInt(i))
}

func FromInt64(i int64) Integer {
	return FromBigInt(big.NewInt(i))
}

func MustValueOf(value interface{}) interface{} {
	ret, err := ValueOf(value)
	if err != nil {
		log.Panicf("fail to ValueOf err:%v", err)
	}
	return ret
}

// ValueOf converts a decoded value into its JSON form. Integers become
// Integer, tuples become Params and arrays become []interface{}.
func ValueOf(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, errors.New("nil value")
	case Integer, string, bool:
		return v, nil
	case *big.Int:
		return FromBigInt(v), nil
	case big.Int:
		return FromBigInt(&v), nil
	case []interface{}:
		return ArgsOf(v)
	case map[string]interface{}:
		return ParamsOf(v)
	case Params:
		return ParamsOf(v)
	default:
		rv := reflect.ValueOf(value)
		switch {
		case rv.CanInt():
			return FromInt64(rv.Int()), nil
		case rv.CanUint():
			return FromBigInt(new(big.Int).SetUint64(rv.Uint())), nil
		}
		return nil, errors.Errorf("not supported type %T", v)
	}
}

func ArgsOf(values []interface{}) ([]interface{}, error) {
	ret := make([]interface{}, len(values))
	for i, e := range values {
		p, err := ValueOf(e)
		if err != nil {
			return nil, err
		}
		ret[i] = p
	}
	return ret, nil
}

func ParamsOf(values map[string]interface{}) (Params, error) {
	ret := make(Params, len(values))
	for k, e := range values {
		p, err := ValueOf(e)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid param name:%s err:%s", k, err.Error())
		}
		ret[k] = p
	}
	return ret, nil
}
