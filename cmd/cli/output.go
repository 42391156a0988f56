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
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/icon-project/abi-codec/api"
	"github.com/icon-project/abi-codec/contract"
)

const (
	FormatJson  = "json"
	FormatTable = "table"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	header = color.New(color.FgCyan, color.Underline).SprintfFunc()
)

func newTable(w io.Writer, columns ...interface{}) table.Table {
	return table.New(columns...).
		WithHeaderFormatter(header).
		WithWriter(w)
}

func PrintMethods(w io.Writer, l api.MethodInfos) error {
	tbl := newTable(w, "Selector", "Signature", "Outputs")
	for _, m := range l {
		outputs := make([]string, len(m.Outputs))
		for i, o := range m.Outputs {
			outputs[i] = o.Type
		}
		tbl.AddRow(m.Selector, m.Signature, strings.Join(outputs, ","))
	}
	tbl.Print()
	return nil
}

// PrintDecodeResults prints one row per decoded parameter, failures are
// printed with the error in place of the parameters.
func PrintDecodeResults(w io.Writer, l []contract.DecodeResult) error {
	tbl := newTable(w, "#", "Signature", "Param", "Value")
	for i, r := range l {
		if r.Error != nil {
			tbl.AddRow(i, red("FAIL"), "", r.Error.Error())
			continue
		}
		keys := make([]string, 0, len(r.Decoded.Params))
		for k := range r.Decoded.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) == 0 {
			tbl.AddRow(i, green(r.Decoded.Signature), "", "")
		}
		for j, k := range keys {
			sig := ""
			if j == 0 {
				sig = green(r.Decoded.Signature)
			}
			tbl.AddRow(i, sig, k, fmt.Sprint(r.Decoded.Params[k]))
		}
	}
	tbl.Print()
	return nil
}

func PrintVerifyResults(w io.Writer, l map[string]error) error {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tbl := newTable(w, "Signature", "Result")
	for _, k := range keys {
		if err := l[k]; err != nil {
			tbl.AddRow(k, red(err.Error()))
		} else {
			tbl.AddRow(k, green("OK"))
		}
	}
	tbl.Print()
	return nil
}
