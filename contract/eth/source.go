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
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	ethLog "github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/abi-codec/contract"
)

const (
	NetworkTypeEth = "eth"
	NetworkTypeBSC = "bsc"
)

var (
	NetworkTypes = []string{
		NetworkTypeEth,
		NetworkTypeBSC,
	}
)

func init() {
	contract.RegisterSourceFactory(NewSource, NetworkTypes...)
}

type Source struct {
	*ethclient.Client
	networkType string
	opt         SourceOption
	l           log.Logger
}

type SourceOption struct {
	TransportLogLevel contract.LogLevel `json:"transport_log_level,omitempty"`
}

func NewSource(networkType string, endpoint string, options contract.Options, l log.Logger) (contract.Source, error) {
	opt := &SourceOption{}
	if err := contract.DecodeOptions(options, &opt); err != nil {
		return nil, err
	}
	opt.TransportLogLevel = contract.LogLevel(contract.EnsureTransportLogLevel(opt.TransportLogLevel.Level()))
	ethLog.Root().SetHandler(ethLog.FuncHandler(func(r *ethLog.Record) error {
		l.Log(log.Level(r.Lvl+1), r.Msg)
		return nil
	}))
	rc, err := rpc.DialOptions(
		context.Background(),
		endpoint,
		rpc.WithHTTPClient(contract.NewHttpClient(opt.TransportLogLevel.Level(), l)))
	if err != nil {
		return nil, errors.Wrapf(err, "fail to DialOptions err:%s", err.Error())
	}
	return &Source{
		Client:      ethclient.NewClient(rc),
		networkType: networkType,
		opt:         *opt,
		l:           l,
	}, nil
}

func (s *Source) NetworkType() string {
	return s.networkType
}

func hashOf(id contract.TxID) (common.Hash, error) {
	var b []byte
	switch v := id.(type) {
	case common.Hash:
		return v, nil
	case []byte:
		b = v
	case string:
		var err error
		if b, err = hexutil.Decode(v); err != nil {
			return common.Hash{}, errors.Wrapf(err, "invalid txID:%s err:%s", v, err.Error())
		}
	default:
		return common.Hash{}, errors.Errorf("invalid txID type %T", id)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, errors.Errorf("invalid txID length:%d", len(b))
	}
	return common.BytesToHash(b), nil
}

func (s *Source) TxInput(ctx context.Context, id contract.TxID) (*contract.TxInput, error) {
	h, err := hashOf(id)
	if err != nil {
		return nil, err
	}
	tx, pending, err := s.TransactionByHash(ctx, h)
	if err != nil {
		if err == ethereum.NotFound {
			return nil, contract.ErrorCodeNotFoundTransaction.Wrapf(err, "not found txID:%s", h.Hex())
		}
		return nil, errors.Wrapf(err, "fail to TransactionByHash err:%s", err.Error())
	}
	ti := &contract.TxInput{
		TxID:    h.Hex(),
		Data:    hexutil.Encode(tx.Data()),
		Pending: pending,
	}
	if tx.To() != nil {
		ti.To = tx.To().Hex()
	}
	if from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx); err != nil {
		s.l.Debugf("fail to Sender txID:%s err:%s", h.Hex(), err.Error())
	} else {
		ti.From = from.Hex()
	}
	return ti, nil
}
