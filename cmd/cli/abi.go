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
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icon-project/abi-codec/abi"
	"github.com/icon-project/abi-codec/api"
	"github.com/icon-project/abi-codec/contract"
	"github.com/icon-project/abi-codec/contract/eth"
)

type SignatureInfo struct {
	Signature string `json:"signature"`
	Selector  string `json:"selector"`
}

type EncodeResult struct {
	Signature string `json:"signature"`
	Selector  string `json:"selector"`
	Data      string `json:"data"`
}

func NewAbiCommand(parentCmd *cobra.Command, parentVc *viper.Viper) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "abi", "Offline ABI codec")
	var (
		spec *contract.Spec
	)
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := cli.ValidateFlagsWithViper(rootVc, cmd.Flags()); err != nil {
			return err
		}
		l := log.GlobalLogger()
		if lv, err := log.ParseLevel(rootVc.GetString("log_level")); err != nil {
			return errors.Wrapf(err, "fail to parseLevel log_level err:%s", err.Error())
		} else {
			l.SetLevel(lv)
		}
		if f := rootVc.GetString("abi"); len(f) > 0 {
			var err error
			if spec, err = contract.NewSpecFromFile(f); err != nil {
				return err
			}
		}
		return nil
	}
	rootPFlags := rootCmd.PersistentFlags()
	rootPFlags.String("abi", "", "ABI document file (json,yaml)")
	rootPFlags.String("log_level", "info", "Global log level (trace,debug,info,warn,error,fatal,panic)")
	cli.BindPFlags(rootVc, rootPFlags)
	requireSpec := func() error {
		if spec == nil {
			return errors.New("require abi")
		}
		return nil
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "selector SIGNATURE",
		Short: "Print selector of signature",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println(abi.SelectorHex(args[0]))
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "signature NAME",
		Short: "Print signatures of methods by name",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSpec(); err != nil {
				return err
			}
			ms := spec.MethodsByName(args[0])
			if len(ms) == 0 {
				return contract.ErrorCodeNotFoundMethod.Errorf("not found method name:%s", args[0])
			}
			l := make([]SignatureInfo, len(ms))
			for i, m := range ms {
				l[i] = SignatureInfo{Signature: m.Signature(), Selector: m.SelectorHex()}
			}
			return cli.JsonPrettyPrintln(os.Stdout, l)
		},
	})

	methodsCmd := &cobra.Command{
		Use:   "methods",
		Short: "Print methods of ABI document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSpec(); err != nil {
				return err
			}
			l := api.NewMethodInfos(spec.Methods())
			if cmd.Flag("format").Value.String() == FormatTable {
				return PrintMethods(cmd.OutOrStdout(), l)
			}
			return cli.JsonPrettyPrintln(os.Stdout, l)
		},
	}
	rootCmd.AddCommand(methodsCmd)
	methodsCmd.Flags().String("format", FormatTable, "output format (json,table)")

	encodeCmd := &cobra.Command{
		Use:   "encode [ARG...]",
		Short: "Encode calldata",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSpec(); err != nil {
				return err
			}
			fs := cmd.Flags()
			m, err := spec.FindMethod(cmd.Flag("method").Value.String())
			if err != nil {
				return err
			}
			params, err := GetStringToInterface(fs, "param")
			if err != nil {
				return err
			}
			var c *abi.Calldata
			if len(params) > 0 {
				if len(args) > 0 {
					return errors.New("args and params are exclusive")
				}
				c, err = m.EncodeParamsToCalldata(params)
			} else {
				c, err = m.EncodeToCalldata(ArgsOf(args)...)
			}
			if err != nil {
				return err
			}
			if annotate, err := fs.GetBool("annotate"); err != nil {
				return err
			} else if annotate {
				s, err := c.Annotated()
				if err != nil {
					return err
				}
				cmd.Println(bold(m.Signature()))
				cmd.Print(s)
				return nil
			}
			data, err := c.HexValue()
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, &EncodeResult{
				Signature: m.Signature(),
				Selector:  m.SelectorHex(),
				Data:      data,
			})
		},
	}
	rootCmd.AddCommand(encodeCmd)
	encodeFlags := encodeCmd.Flags()
	encodeFlags.String("method", "", "method name or signature")
	encodeFlags.StringToString("param", nil, "parameter by name ('name'='value',...)")
	encodeFlags.Bool("annotate", false, "print layout of calldata word by word")
	cli.MarkAnnotationRequired(encodeFlags, "method")

	decodeCmd := &cobra.Command{
		Use:   "decode HEX...",
		Short: "Decode calldata",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSpec(); err != nil {
				return err
			}
			parallel, err := cmd.Flags().GetInt("parallel")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			cli.OnInterrupt(cancel)
			l, err := contract.DecodeBatch(ctx, spec, args, parallel)
			if err != nil {
				return err
			}
			if cmd.Flag("format").Value.String() == FormatTable {
				return PrintDecodeResults(cmd.OutOrStdout(), l)
			}
			for _, r := range l {
				if r.Error != nil {
					return r.Error
				}
			}
			return cli.JsonPrettyPrintln(os.Stdout, l)
		},
	}
	rootCmd.AddCommand(decodeCmd)
	decodeFlags := decodeCmd.Flags()
	decodeFlags.String("format", FormatJson, "output format (json,table)")
	decodeFlags.Int("parallel", contract.DefaultDecodeParallelism, "number of concurrent decoding")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "verify HEX",
		Short: "Verify codec against go-ethereum",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSpec(); err != nil {
				return err
			}
			b, err := abi.BytesOfHex(args[0])
			if err != nil {
				return err
			}
			if len(b) < 4 {
				return abi.ErrorCodeTruncatedCalldata.Errorf("calldata shorter than selector len:%d", len(b))
			}
			selector := hexutil.Encode(b[:4])
			ms, _ := spec.MethodsBySelector(selector)
			if len(ms) == 0 {
				return contract.ErrorCodeNotFoundMethod.Errorf("not found method selector:%s", selector)
			}
			results := make(map[string]error)
			for _, m := range ms {
				results[m.Signature()] = eth.Verify(m, b)
			}
			return PrintVerifyResults(cmd.OutOrStdout(), results)
		},
	})

	decodeTxCmd := &cobra.Command{
		Use:   "decode-tx TXHASH",
		Short: "Fetch transaction and decode its calldata",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSpec(); err != nil {
				return err
			}
			src, err := contract.NewSource(
				cmd.Flag("network_type").Value.String(),
				cmd.Flag("endpoint").Value.String(),
				nil,
				log.GlobalLogger())
			if err != nil {
				return err
			}
			ti, err := src.TxInput(context.Background(), args[0])
			if err != nil {
				return err
			}
			d, err := contract.Decode(spec, ti.Data)
			if err != nil {
				return errors.Wrapf(err, "fail to Decode tx:%s err:%s", ti.TxID, err.Error())
			}
			return cli.JsonPrettyPrintln(os.Stdout, map[string]interface{}{
				"tx":      ti,
				"decoded": d,
			})
		},
	}
	rootCmd.AddCommand(decodeTxCmd)
	decodeTxFlags := decodeTxCmd.Flags()
	decodeTxFlags.String("endpoint", "http://localhost:8545", "JSON-RPC endpoint")
	decodeTxFlags.String("network_type", eth.NetworkTypeEth, fmt.Sprintf("network type %v", contract.NetworkTypes()))
	return rootCmd, rootVc
}
