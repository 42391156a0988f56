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
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type Section int

const (
	SectionParams Section = iota
	SectionData
)

func (s Section) String() string {
	switch s {
	case SectionParams:
		return "params"
	case SectionData:
		return "data"
	default:
		return fmt.Sprintf("Section(%d)", int(s))
	}
}

// Calldata lays out a block tree in two sections. The params section holds
// the heads of the top level parameters, the data section holds everything
// referenced by pointers. Blocks are serialized in bind order.
type Calldata struct {
	selector   []byte
	params     []Block
	data       []Block
	paramsSize int
	dataSize   int
	bound      map[Block]Section
	root       *MemberBlock
}

func NewCalldata(selector []byte) *Calldata {
	return &Calldata{
		selector: selector,
		bound:    make(map[Block]Section),
	}
}

func (c *Calldata) Selector() []byte {
	return c.selector
}

func (c *Calldata) Root() *MemberBlock {
	return c.root
}

// Bind appends b to the section and records its absolute offset, which
// excludes the selector.
func (c *Calldata) Bind(b Block, s Section) error {
	if prev, ok := c.bound[b]; ok {
		return pathError(ErrorCodeDuplicateBinding, b.Name(), "already bound to %s section", prev)
	}
	switch s {
	case SectionParams:
		if len(c.data) > 0 {
			return pathError(ErrorCodeMalformedCalldata, b.Name(), "params section is sealed")
		}
		b.setOffset(c.paramsSize)
		c.params = append(c.params, b)
		c.paramsSize += b.ownSize()
	case SectionData:
		b.setOffset(c.paramsSize + c.dataSize)
		c.data = append(c.data, b)
		c.dataSize += b.ownSize()
	default:
		return pathError(ErrorCodeMalformedCalldata, b.Name(), "unknown section:%d", int(s))
	}
	c.bound[b] = s
	return nil
}

// SetRoot binds the whole block tree. Inline members of the root go to the
// params section, then every pointer dependency goes to the data section
// depth first, each one followed by its own dependencies.
func (c *Calldata) SetRoot(root *MemberBlock) error {
	if c.root != nil {
		return pathError(ErrorCodeDuplicateBinding, root.Name(), "root is already set")
	}
	c.root = root
	return c.bindMember(root, SectionParams)
}

func (c *Calldata) bindMember(m *MemberBlock, s Section) error {
	if err := c.Bind(m, s); err != nil {
		return err
	}
	for _, b := range m.members {
		if err := c.bindInline(b, s); err != nil {
			return err
		}
	}
	for _, b := range m.members {
		if err := c.bindDependencies(b); err != nil {
			return err
		}
	}
	return nil
}

func (c *Calldata) bindInline(b Block, s Section) error {
	if m, ok := b.(*MemberBlock); ok {
		if err := c.Bind(m, s); err != nil {
			return err
		}
		for _, mb := range m.members {
			if err := c.bindInline(mb, s); err != nil {
				return err
			}
		}
		return nil
	}
	return c.Bind(b, s)
}

func (c *Calldata) bindDependencies(b Block) error {
	switch t := b.(type) {
	case *PointerBlock:
		if m, ok := t.dependency.(*MemberBlock); ok {
			return c.bindMember(m, SectionData)
		}
		return c.Bind(t.dependency, SectionData)
	case *MemberBlock:
		for _, mb := range t.members {
			if err := c.bindDependencies(mb); err != nil {
				return err
			}
		}
	}
	return nil
}

// Size returns the number of bytes excluding the selector.
func (c *Calldata) Size() int {
	return c.paramsSize + c.dataSize
}

func (c *Calldata) Bytes() ([]byte, error) {
	buf := make([]byte, 0, len(c.selector)+c.Size())
	buf = append(buf, c.selector...)
	for _, l := range [][]Block{c.params, c.data} {
		for _, b := range l {
			bs, err := b.own()
			if err != nil {
				return nil, err
			}
			buf = append(buf, bs...)
		}
	}
	return buf, nil
}

func (c *Calldata) HexValue() (string, error) {
	b, err := c.Bytes()
	if err != nil {
		return "", err
	}
	return hexutil.Encode(b), nil
}

// Annotated returns the layout word by word with offsets and the names of
// the blocks writing them.
func (c *Calldata) Annotated() (string, error) {
	sb := &strings.Builder{}
	if len(c.selector) > 0 {
		fmt.Fprintf(sb, "%-8s %x\n", "selector", c.selector)
	}
	for _, l := range [][]Block{c.params, c.data} {
		for _, b := range l {
			bs, err := b.own()
			if err != nil {
				return "", err
			}
			for i := 0; i < len(bs); i += wordSize {
				fmt.Fprintf(sb, "0x%06x %x %s\n", b.Offset()+i, bs[i:i+wordSize], annotation(b, i))
			}
		}
	}
	return sb.String(), nil
}

func annotation(b Block, i int) string {
	name := b.Name()
	if len(name) == 0 {
		name = "()"
	}
	switch t := b.(type) {
	case *PointerBlock:
		return fmt.Sprintf("%s (offset to 0x%x)", name, t.dependency.Offset())
	default:
		if i < b.HeaderSize() {
			return name + " (length)"
		}
		return name
	}
}
