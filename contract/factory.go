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
	"encoding/json"
	"sort"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
)

type Params map[string]interface{}
type TxID interface{}

// TxInput is the calldata of a transaction fetched from a network.
type TxInput struct {
	TxID    string `json:"tx_id"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Data    string `json:"data"`
	Pending bool   `json:"pending,omitempty"`
}

// Source fetches transaction inputs from a network.
type Source interface {
	NetworkType() string
	TxInput(ctx context.Context, id TxID) (*TxInput, error)
}

type Options map[string]interface{}
type SourceFactory func(networkType string, endpoint string, opt Options, l log.Logger) (Source, error)

var (
	sfMap = make(map[string]SourceFactory)
)

func RegisterSourceFactory(sf SourceFactory, networkTypes ...string) {
	for _, networkType := range networkTypes {
		if _, ok := sfMap[networkType]; ok {
			log.Panicln("already registered networkType:" + networkType)
		}
		sfMap[networkType] = sf
	}
}

func NetworkTypes() []string {
	l := make([]string, 0, len(sfMap))
	for networkType := range sfMap {
		l = append(l, networkType)
	}
	sort.Strings(l)
	return l
}

func NewSource(networkType string, endpoint string, opt Options, l log.Logger) (Source, error) {
	if sf, ok := sfMap[networkType]; ok {
		l = l.WithFields(log.Fields{log.FieldKeyChain: networkType, log.FieldKeyModule: "contract"})
		return sf(networkType, endpoint, opt, l)
	}
	return nil, ErrorCodeNotFoundNetwork.Errorf("not supported networkType:%s", networkType)
}

func EncodeOptions(v interface{}) (Options, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, ErrorCodeInvalidOption.Wrapf(err, "fail to EncodeOptions, err:%s", err.Error())
	}
	options := make(Options)
	if err = json.Unmarshal(b, &options); err != nil {
		return nil, ErrorCodeInvalidOption.Wrapf(err, "fail to EncodeOptions, err:%s", err.Error())
	}
	return options, nil
}

func DecodeOptions(options Options, v interface{}) error {
	b, err := json.Marshal(options)
	if err != nil {
		return ErrorCodeInvalidOption.Wrapf(err, "fail to DecodeOptions err:%s", err.Error())
	}
	if err = json.Unmarshal(b, v); err != nil {
		return ErrorCodeInvalidOption.Wrapf(err, "fail to DecodeOptions err:%s", err.Error())
	}
	return nil
}

type LogLevel log.Level

func (l LogLevel) Level() log.Level {
	return log.Level(l)
}

func (l LogLevel) MarshalJSON() ([]byte, error) {
	ll := log.Level(l)
	if ll > log.TraceLevel || ll < log.PanicLevel {
		return nil, errors.New("out of range log.Level")
	}
	return json.Marshal(ll.String())
}

func (l *LogLevel) UnmarshalJSON(input []byte) error {
	var str string
	err := json.Unmarshal(input, &str)
	if err != nil {
		return err
	}
	v, err := log.ParseLevel(str)
	if err != nil {
		return err
	}
	*l = LogLevel(v)
	return nil
}
