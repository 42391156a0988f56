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
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	wordSize     = 32
	addressSize  = 20
	maxIntSize   = 256
	maxBytesSize = 32
	// maxHeadSize bounds the head of a static aggregate.
	maxHeadSize = math.MaxInt32
)

var (
	arrayPattern      = regexp.MustCompile(`^(.+)\[([0-9]*)\]$`)
	intPattern        = regexp.MustCompile(`^(u?)int(` + alternation(8, maxIntSize, 8) + `)?$`)
	fixedBytesPattern = regexp.MustCompile(`^(byte|bytes(` + alternation(1, maxBytesSize, 1) + `))$`)
)

func alternation(from, to, step int) string {
	l := make([]string, 0, (to-from)/step+1)
	for i := from; i <= to; i += step {
		l = append(l, strconv.Itoa(i))
	}
	return strings.Join(l, "|")
}

// NewDataType parses the type grammar of d and builds the type tree.
// Array suffixes are matched before element types so that an array of
// tuples is never taken for a bare tuple.
func NewDataType(d TypeDescriptor) (*DataType, error) {
	return newDataType(d, d.Name)
}

func MustNewDataType(d TypeDescriptor) *DataType {
	t, err := NewDataType(d)
	if err != nil {
		codecLogger.Panicf("fail to NewDataType err:%+v", err)
	}
	return t
}

func newDataType(d TypeDescriptor, path string) (*DataType, error) {
	if m := arrayPattern.FindStringSubmatch(d.Type); m != nil {
		return newArrayType(d, path, m[1], m[2])
	}
	switch d.Type {
	case "address":
		return &DataType{name: path, kind: KindAddress, static: true, sig: d.Type}, nil
	case "bool":
		return &DataType{name: path, kind: KindBool, static: true, sig: d.Type}, nil
	case "bytes":
		return &DataType{name: path, kind: KindBytes, sig: d.Type}, nil
	case "string":
		return &DataType{name: path, kind: KindString, sig: d.Type}, nil
	case "tuple":
		return newTupleType(d, path)
	}
	if m := intPattern.FindStringSubmatch(d.Type); m != nil {
		t := &DataType{name: path, kind: KindInt, size: maxIntSize, static: true}
		if m[1] == "u" {
			t.kind = KindUint
		}
		if len(m[2]) > 0 {
			t.size, _ = strconv.Atoi(m[2])
		}
		t.sig = m[1] + "int" + strconv.Itoa(t.size)
		return t, nil
	}
	if m := fixedBytesPattern.FindStringSubmatch(d.Type); m != nil {
		t := &DataType{name: path, kind: KindFixedBytes, size: 1, static: true}
		if len(m[2]) > 0 {
			t.size, _ = strconv.Atoi(m[2])
		}
		t.sig = "bytes" + strconv.Itoa(t.size)
		return t, nil
	}
	return nil, pathError(ErrorCodeUnrecognizedType, path, "unrecognized type:%q", d.Type)
}

func newArrayType(d TypeDescriptor, path, elemType, length string) (*DataType, error) {
	ed := TypeDescriptor{
		Name:       d.Name,
		Type:       elemType,
		Components: d.Components,
	}
	elem, err := newDataType(ed, path)
	if err != nil {
		return nil, err
	}
	t := &DataType{
		name:   path,
		kind:   KindArray,
		length: -1,
		elem:   member(elem),
	}
	if len(length) == 0 {
		t.sig = elem.sig + "[]"
		return t, nil
	}
	n, err := strconv.Atoi(length)
	if err != nil || n < 1 {
		return nil, pathError(ErrorCodeInvalidArrayLength, path, "invalid array length:%q", length)
	}
	if elem.static && n > maxHeadSize/elem.HeadSize() {
		return nil, pathError(ErrorCodeInvalidArrayLength, path,
			"array length:%d exceeds head size limit:%d", n, maxHeadSize)
	}
	t.length = n
	t.static = elem.static
	t.sig = elem.sig + "[" + strconv.Itoa(n) + "]"
	return t, nil
}

func newTupleType(d TypeDescriptor, path string) (*DataType, error) {
	if len(d.Components) == 0 {
		return nil, pathError(ErrorCodeMissingComponents, path, "tuple without components")
	}
	return newTupleOf(d.Components, path)
}

// newParamsType builds the tuple of method parameters, which may be empty.
func newParamsType(params []TypeDescriptor) (*DataType, error) {
	return newTupleOf(params, "")
}

func newTupleOf(components []TypeDescriptor, path string) (*DataType, error) {
	t := &DataType{
		name:   path,
		kind:   KindTuple,
		fields: make([]*DataType, len(components)),
		keys:   make([]string, len(components)),
		static: true,
	}
	for i, c := range components {
		key := c.Name
		if len(key) == 0 {
			key = strconv.Itoa(i)
		}
		ct, err := newDataType(c, joinPath(path, key))
		if err != nil {
			return nil, err
		}
		t.static = t.static && ct.static
		t.fields[i] = member(ct)
		t.keys[i] = key
	}
	if t.static && t.HeadSize() > maxHeadSize {
		return nil, pathError(ErrorCodeInvalidArrayLength, path,
			"head size:%d exceeds limit:%d", t.HeadSize(), maxHeadSize)
	}
	t.sig = tupleSignature(t.fields)
	return t, nil
}

func joinPath(parent, name string) string {
	if len(parent) == 0 {
		return name
	}
	return parent + "." + name
}
