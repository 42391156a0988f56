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
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icon-project/abi-codec/api"
)

func NewMonitorCommand(parentCmd *cobra.Command, parentVc *viper.Viper) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "monitor", "Monitor cli")
	var (
		c api.Client
	)
	rootCmd.PersistentPreRunE = ClientPersistentPreRunE(rootVc, &c)
	AddClientRequiredFlags(rootCmd)
	cli.BindPFlags(rootVc, rootCmd.PersistentFlags())

	decodeCmd := &cobra.Command{
		Use:   "decode [HEX...]",
		Short: "Decode calldata over websocket, reads stdin without args",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := readMethodFlag(cmd)
			if err != nil {
				return err
			}
			l := args
			if len(l) == 0 {
				s := bufio.NewScanner(os.Stdin)
				for s.Scan() {
					if line := strings.TrimSpace(s.Text()); len(line) > 0 {
						l = append(l, line)
					}
				}
				if err = s.Err(); err != nil {
					return err
				}
			}
			if len(l) == 0 {
				return errors.New("require calldata at least one")
			}
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			cli.OnInterrupt(cancel)
			return c.DecodeStream(ctx, m, l, func(data string, r *api.DecodeStreamResult) error {
				return cli.JsonPrettyPrintln(os.Stdout, r)
			})
		},
	}
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().String("method", "", "method descriptor, raw json file or json string")
	return rootCmd, rootVc
}
