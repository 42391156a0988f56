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
	"strings"

	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/icon-project/abi-codec/abi"
	"github.com/icon-project/abi-codec/api"
	"github.com/icon-project/abi-codec/contract"
)

func GetStringToInterface(fs *pflag.FlagSet, name string) (map[string]interface{}, error) {
	m, err := fs.GetStringToString(name)
	if err != nil {
		return nil, err
	}
	r := make(map[string]interface{})
	for k, v := range m {
		r[k] = ArgOf(v)
	}
	return r, nil
}

// ArgOf returns the decoded value for a json array or object, the string
// itself otherwise. Numbers are kept as json.Number.
func ArgOf(s string) interface{} {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "[") || strings.HasPrefix(t, "{") {
		var v interface{}
		dec := json.NewDecoder(strings.NewReader(t))
		dec.UseNumber()
		if err := dec.Decode(&v); err == nil {
			return v
		}
	}
	return s
}

func ArgsOf(l []string) []interface{} {
	r := make([]interface{}, len(l))
	for i, s := range l {
		r[i] = ArgOf(s)
	}
	return r
}

func ReadAndUnmarshal(file string, v interface{}) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}

// ReadJsonOrFile unmarshals s if it is a json string, otherwise s is the
// path of a json file.
func ReadJsonOrFile(s string, v interface{}) error {
	if t := strings.TrimSpace(s); strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
		dec := json.NewDecoder(strings.NewReader(t))
		dec.UseNumber()
		return dec.Decode(v)
	}
	return ReadAndUnmarshal(s, v)
}

func ClientPersistentPreRunE(vc *viper.Viper, c *api.Client) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := cli.ValidateFlagsWithViper(vc, cmd.Flags()); err != nil {
			return err
		}
		l := log.GlobalLogger()
		if lv, err := log.ParseLevel(vc.GetString("log_level")); err != nil {
			return errors.Wrapf(err, "fail to parseLevel log_level err:%s", err.Error())
		} else {
			l.SetLevel(lv)
		}
		if lv, err := log.ParseLevel(vc.GetString("console_level")); err != nil {
			return errors.Wrapf(err, "fail to parseLevel console_level err:%s", err.Error())
		} else {
			l.SetConsoleLevel(lv)
		}
		dumpLogLevel, err := log.ParseLevel(vc.GetString("dump_log_level"))
		if err != nil {
			return errors.Wrapf(err, "fail to parseLevel dump_log_level err:%s", err.Error())
		} else {
			dumpLogLevel = contract.EnsureTransportLogLevel(dumpLogLevel)
		}
		*c = *api.NewClient(vc.GetString("url"), dumpLogLevel, l)
		return nil
	}
}

func AddClientRequiredFlags(c *cobra.Command) {
	pFlags := c.PersistentFlags()
	pFlags.String("url", "http://localhost:8080", "server address")
	pFlags.String("log_level", "debug", "Global log level (trace,debug,info,warn,error,fatal,panic)")
	pFlags.String("console_level", "trace", "Console log level (trace,debug,info,warn,error,fatal,panic)")
	pFlags.String("dump_log_level", "trace", "client dump log level (trace,debug,info)")
}

// readMethodFlag returns the descriptor given by --method, a json string
// or a json file. It returns nil if the flag is empty.
func readMethodFlag(cmd *cobra.Command) (*abi.MethodDescriptor, error) {
	s := cmd.Flag("method").Value.String()
	if len(s) == 0 {
		return nil, nil
	}
	d := &abi.MethodDescriptor{}
	if err := ReadJsonOrFile(s, d); err != nil {
		return nil, errors.Wrapf(err, "fail to read method err:%s", err.Error())
	}
	return d, nil
}

func NewApiCommand(parentCmd *cobra.Command, parentVc *viper.Viper) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "api", "API cli")
	var (
		c api.Client
	)
	rootCmd.PersistentPreRunE = ClientPersistentPreRunE(rootVc, &c)
	AddClientRequiredFlags(rootCmd)
	cli.BindPFlags(rootVc, rootCmd.PersistentFlags())

	methodsCmd := &cobra.Command{
		Use:   "methods",
		Short: "Get page of registered methods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			page, err := fs.GetUint("page")
			if err != nil {
				return err
			}
			size, err := fs.GetUint("size")
			if err != nil {
				return err
			}
			r, err := c.Methods(&api.PageRequest{
				Page: page,
				Size: size,
				Sort: cmd.Flag("sort").Value.String(),
			})
			if err != nil {
				return err
			}
			if cmd.Flag("format").Value.String() == FormatTable {
				return PrintMethods(cmd.OutOrStdout(), r.Content)
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	rootCmd.AddCommand(methodsCmd)
	methodsFlags := methodsCmd.Flags()
	methodsFlags.Uint("page", 0, "page number, starts from zero")
	methodsFlags.Uint("size", api.DefaultPageSize, "page size")
	methodsFlags.String("sort", "", "sort order, 'property[,asc|desc]'")
	methodsFlags.String("format", FormatJson, "output format (json,table)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "register FILE",
		Short: "Register methods of ABI document",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := contract.NewSpecFromFile(args[0])
			if err != nil {
				return err
			}
			b, err := json.Marshal(spec.Descriptors())
			if err != nil {
				return err
			}
			r, err := c.Register(b)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "lookup SELECTOR",
		Short: "Get methods by selector",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.MethodsBySelector(args[0])
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})

	encodeCmd := &cobra.Command{
		Use:   "encode [ARG...]",
		Short: "Encode calldata",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			req := &api.EncodeRequest{
				Signature: cmd.Flag("signature").Value.String(),
			}
			var err error
			if req.Method, err = readMethodFlag(cmd); err != nil {
				return err
			}
			if req.Annotate, err = fs.GetBool("annotate"); err != nil {
				return err
			}
			if req.Params, err = GetStringToInterface(fs, "param"); err != nil {
				return err
			}
			if len(req.Params) == 0 {
				req.Params = nil
				req.Args = ArgsOf(args)
			} else if len(args) > 0 {
				return errors.New("args and params are exclusive")
			}
			r, err := c.Encode(req)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	rootCmd.AddCommand(encodeCmd)
	encodeFlags := encodeCmd.Flags()
	encodeFlags.String("signature", "", "signature of registered method")
	encodeFlags.String("method", "", "method descriptor, raw json file or json string")
	encodeFlags.StringToString("param", nil, "parameter by name ('name'='value',...)")
	encodeFlags.Bool("annotate", false, "annotate layout of calldata")
	cli.MarkAnnotationCustom(encodeFlags, "signature", "method")

	decodeCmd := &cobra.Command{
		Use:   "decode HEX",
		Short: "Decode calldata",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &api.DecodeRequest{Data: args[0]}
			var err error
			if req.Method, err = readMethodFlag(cmd); err != nil {
				return err
			}
			r, err := c.Decode(req)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().String("method", "", "method descriptor, raw json file or json string")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "tx NETWORK TXID",
		Short: "Decode calldata of transaction",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.TxDecode(args[0], args[1])
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})

	docsCmd := &cobra.Command{
		Use:   "docs",
		Short: "Get OpenAPI document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.ApiDocs()
			if err != nil {
				return err
			}
			if f := cmd.Flag("output").Value.String(); len(f) > 0 {
				return cli.JsonPrettySaveFile(f, 0644, r)
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	rootCmd.AddCommand(docsCmd)
	docsCmd.Flags().String("output", "", "file to save")
	return rootCmd, rootVc
}
