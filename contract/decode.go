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
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/errors"
	"golang.org/x/sync/errgroup"

	"github.com/icon-project/abi-codec/abi"
)

const (
	DefaultDecodeParallelism = 8
)

type MethodFinder interface {
	MethodsBySelector(selector string) ([]*abi.Method, error)
}

type Decoded struct {
	Signature string        `json:"signature"`
	Selector  string        `json:"selector"`
	Args      []interface{} `json:"args"`
	Params    Params        `json:"params"`
}

func NewDecoded(m *abi.Method, values []interface{}) (*Decoded, error) {
	args, err := ArgsOf(values)
	if err != nil {
		return nil, err
	}
	params, err := ParamsOf(m.ParamsOf(values))
	if err != nil {
		return nil, err
	}
	return &Decoded{
		Signature: m.Signature(),
		Selector:  m.SelectorHex(),
		Args:      args,
		Params:    params,
	}, nil
}

// Decode resolves the method by the selector of data, and returns the
// result of the first candidate which decodes data.
func Decode(f MethodFinder, data string) (*Decoded, error) {
	b, err := abi.BytesOfHex(data)
	if err != nil {
		return nil, abi.ErrorCodeMalformedCalldata.Wrapf(err, "invalid calldata err:%s", err.Error())
	}
	return DecodeBytes(f, b)
}

func DecodeBytes(f MethodFinder, data []byte) (*Decoded, error) {
	r, err := abi.NewRawCalldata(data, true)
	if err != nil {
		return nil, err
	}
	selector := hexutil.Encode(r.Selector())
	l, err := f.MethodsBySelector(selector)
	if err != nil {
		return nil, err
	}
	if len(l) == 0 {
		return nil, ErrorCodeNotFoundMethod.Errorf("not found method selector:%s", selector)
	}
	causes := make(map[string]error)
	for _, m := range l {
		values, err := m.DecodeBytes(data)
		if err != nil {
			causes[m.Signature()] = err
			continue
		}
		return NewDecoded(m, values)
	}
	return nil, NewUndecodableError(selector, causes)
}

type DecodeResult struct {
	Data    string   `json:"data"`
	Decoded *Decoded `json:"decoded,omitempty"`
	Error   error    `json:"-"`
}

// DecodeBatch decodes each of l with at most parallelism goroutines.
// Failures are kept in each result, only cancellation of ctx fails the
// whole batch.
func DecodeBatch(ctx context.Context, f MethodFinder, l []string, parallelism int) ([]DecodeResult, error) {
	if parallelism < 1 {
		parallelism = DefaultDecodeParallelism
	}
	results := make([]DecodeResult, len(l))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelism)
	for i, data := range l {
		i, data := i, data
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := Decode(f, data)
			results[i] = DecodeResult{Data: data, Decoded: d, Error: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.Wrapf(err, "fail to DecodeBatch err:%s", err.Error())
	}
	return results, nil
}
