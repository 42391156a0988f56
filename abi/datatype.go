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
	"strconv"
	"strings"
)

type Kind int

const (
	KindAddress Kind = iota
	KindBool
	KindInt
	KindUint
	KindFixedBytes
	KindBytes
	KindString
	KindTuple
	KindArray
	KindPointer
)

var kindNames = []string{
	"address", "bool", "int", "uint", "fixedBytes",
	"bytes", "string", "tuple", "array", "pointer",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// TypeDescriptor describes one parameter of a method as it appears in a
// contract ABI document.
type TypeDescriptor struct {
	Name         string           `json:"name" yaml:"name"`
	Type         string           `json:"type" yaml:"type"`
	InternalType string           `json:"internalType,omitempty" yaml:"internalType,omitempty"`
	Components   []TypeDescriptor `json:"components,omitempty" yaml:"components,omitempty"`
}

// DataType is a node of the type tree built from a TypeDescriptor.
// It holds no per-call state, so a tree may be shared between goroutines.
type DataType struct {
	name   string
	kind   Kind
	size   int
	length int
	elem   *DataType
	inner  *DataType
	fields []*DataType
	keys   []string
	static bool
	sig    string
}

// Name returns the dotted path of the node.
func (t *DataType) Name() string {
	return t.name
}

func (t *DataType) Kind() Kind {
	return t.kind
}

// Size returns bit width of integers or byte width of fixed bytes.
func (t *DataType) Size() int {
	return t.size
}

// Length returns the declared length of an array, -1 for variable length.
func (t *DataType) Length() int {
	return t.length
}

// Elem returns the element node of an array. A dynamic element is wrapped
// in a pointer node.
func (t *DataType) Elem() *DataType {
	return t.elem
}

// Inner returns the node referenced by a pointer node.
func (t *DataType) Inner() *DataType {
	return t.inner
}

// Fields returns the children of a tuple in declaration order. Dynamic
// children are wrapped in pointer nodes.
func (t *DataType) Fields() []*DataType {
	return t.fields
}

// Keys returns the mapping keys of tuple children, the component name or its
// index when the component is unnamed.
func (t *DataType) Keys() []string {
	return t.keys
}

func (t *DataType) IsStatic() bool {
	return t.static
}

func (t *DataType) IsVariableLength() bool {
	return t.kind == KindArray && t.length < 0
}

// HeadSize returns the number of bytes the node occupies in the head of its
// enclosing aggregate.
func (t *DataType) HeadSize() int {
	if !t.static {
		return wordSize
	}
	switch t.kind {
	case KindTuple:
		size := 0
		for _, f := range t.fields {
			size += f.HeadSize()
		}
		return size
	case KindArray:
		return t.length * t.elem.HeadSize()
	default:
		return wordSize
	}
}

// Signature returns the canonical type string used for selector hashing.
func (t *DataType) Signature() string {
	return t.sig
}

func (t *DataType) String() string {
	return t.name + ":" + t.sig
}

// Unwrap returns the node itself, or the referenced node for a pointer.
func (t *DataType) Unwrap() *DataType {
	if t.kind == KindPointer {
		return t.inner
	}
	return t
}

func pointerTo(t *DataType) *DataType {
	return &DataType{
		name:   t.name,
		kind:   KindPointer,
		inner:  t,
		static: false,
		sig:    t.sig,
	}
}

// member returns the node to be placed in the head of an aggregate.
func member(t *DataType) *DataType {
	if t.static {
		return t
	}
	return pointerTo(t)
}

func tupleSignature(fields []*DataType) string {
	sigs := make([]string, len(fields))
	for i, f := range fields {
		sigs[i] = f.sig
	}
	return "(" + strings.Join(sigs, ",") + ")"
}
