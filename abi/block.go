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
	"math/big"
)

// Block is a contiguous piece of calldata generated for one node of the type
// tree and one value. HeaderSize()+BodySize() is the number of bytes the
// block and its inline members occupy.
type Block interface {
	Name() string
	HeaderSize() int
	BodySize() int
	Size() int
	// Offset returns the absolute offset recorded at binding, -1 if not bound.
	Offset() int
	setOffset(offset int)
	// own returns the bytes the block writes at its own offset. Members of a
	// MemberBlock are bound separately.
	own() ([]byte, error)
	ownSize() int
}

type blockBase struct {
	name   string
	offset int
}

func (b *blockBase) Name() string {
	return b.name
}

func (b *blockBase) Offset() int {
	return b.offset
}

func (b *blockBase) setOffset(offset int) {
	b.offset = offset
}

// PayloadBlock holds encoded bytes of a scalar. Dynamic bytes and string have
// the length word as header.
type PayloadBlock struct {
	blockBase
	header []byte
	body   []byte
}

func NewPayloadBlock(name string, header, body []byte) *PayloadBlock {
	return &PayloadBlock{
		blockBase: blockBase{name: name, offset: -1},
		header:    header,
		body:      body,
	}
}

func (b *PayloadBlock) HeaderSize() int {
	return len(b.header)
}

func (b *PayloadBlock) BodySize() int {
	return len(b.body)
}

func (b *PayloadBlock) Size() int {
	return len(b.header) + len(b.body)
}

func (b *PayloadBlock) own() ([]byte, error) {
	r := make([]byte, 0, b.Size())
	r = append(r, b.header...)
	return append(r, b.body...), nil
}

func (b *PayloadBlock) ownSize() int {
	return b.Size()
}

// PointerBlock is the head slot of a dynamic value. Its word is the offset of
// the dependency relative to the data region of the parent.
type PointerBlock struct {
	blockBase
	dependency Block
	parent     *MemberBlock
}

func NewPointerBlock(name string, dependency Block, parent *MemberBlock) *PointerBlock {
	return &PointerBlock{
		blockBase:  blockBase{name: name, offset: -1},
		dependency: dependency,
		parent:     parent,
	}
}

func (b *PointerBlock) Dependency() Block {
	return b.dependency
}

func (b *PointerBlock) Parent() *MemberBlock {
	return b.parent
}

func (b *PointerBlock) HeaderSize() int {
	return 0
}

func (b *PointerBlock) BodySize() int {
	return wordSize
}

func (b *PointerBlock) Size() int {
	return wordSize
}

// RelativeOffset returns the value of the pointer word.
func (b *PointerBlock) RelativeOffset() (int, error) {
	if b.dependency.Offset() < 0 {
		return 0, pathError(ErrorCodeUnresolvedPointer, b.name, "dependency is not bound")
	}
	base := 0
	if b.parent != nil {
		if b.parent.Offset() < 0 {
			return 0, pathError(ErrorCodeUnresolvedPointer, b.name, "parent is not bound")
		}
		base = b.parent.Offset() + b.parent.HeaderSize()
	}
	rel := b.dependency.Offset() - base
	if rel < 0 {
		return 0, pathError(ErrorCodeUnresolvedPointer, b.name, "dependency precedes parent rel:%d", rel)
	}
	return rel, nil
}

func (b *PointerBlock) own() ([]byte, error) {
	rel, err := b.RelativeOffset()
	if err != nil {
		return nil, err
	}
	return uintWord(uint64(rel)), nil
}

func (b *PointerBlock) ownSize() int {
	return wordSize
}

// MemberBlock is a tuple or an array. Variable length arrays have the length
// word as header.
type MemberBlock struct {
	blockBase
	header  []byte
	members []Block
}

func NewMemberBlock(name string, header []byte) *MemberBlock {
	return &MemberBlock{
		blockBase: blockBase{name: name, offset: -1},
		header:    header,
	}
}

func (b *MemberBlock) Members() []Block {
	return b.members
}

func (b *MemberBlock) append(m Block) {
	b.members = append(b.members, m)
}

func (b *MemberBlock) HeaderSize() int {
	return len(b.header)
}

func (b *MemberBlock) BodySize() int {
	size := 0
	for _, m := range b.members {
		size += m.Size()
	}
	return size
}

func (b *MemberBlock) Size() int {
	return b.HeaderSize() + b.BodySize()
}

func (b *MemberBlock) own() ([]byte, error) {
	return b.header, nil
}

func (b *MemberBlock) ownSize() int {
	return len(b.header)
}

func uintWord(v uint64) []byte {
	return new(big.Int).SetUint64(v).FillBytes(make([]byte, wordSize))
}

func leftPad(b []byte) []byte {
	w := make([]byte, wordSize)
	copy(w[wordSize-len(b):], b)
	return w
}

// rightPad pads b with zeros up to the next multiple of the word size.
func rightPad(b []byte) []byte {
	n := (len(b) + wordSize - 1) / wordSize * wordSize
	w := make([]byte, n)
	copy(w, b)
	return w
}
