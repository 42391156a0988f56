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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"gopkg.in/yaml.v3"

	"github.com/icon-project/abi-codec/abi"
)

const (
	EntryTypeFunction = "function"
)

var (
	specLogger = log.New()
)

// Document is the layout of an ABI document given as an object, like build
// artifacts that carry the contract name next to the entries.
type Document struct {
	ContractName string                 `json:"contractName,omitempty" yaml:"contractName,omitempty"`
	ABI          []abi.MethodDescriptor `json:"abi" yaml:"abi"`
}

// Spec is the set of functions of a contract ABI document. Entries other
// than functions are ignored.
type Spec struct {
	Name string

	methods     []*abi.Method
	bySignature map[string]*abi.Method
	bySelector  map[string][]*abi.Method
}

// NewSpec parses a JSON ABI document, either an array of entries or an
// object with the abi field.
func NewSpec(b []byte) (*Spec, error) {
	doc := &Document{}
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		if err := json.Unmarshal(b, &doc.ABI); err != nil {
			return nil, ErrorCodeInvalidSpec.Wrapf(err, "fail to Unmarshal err:%s", err.Error())
		}
	} else if err := json.Unmarshal(b, doc); err != nil {
		return nil, ErrorCodeInvalidSpec.Wrapf(err, "fail to Unmarshal err:%s", err.Error())
	}
	return NewSpecFromDocument(doc)
}

// NewSpecFromYAML parses the YAML form of an ABI document.
func NewSpecFromYAML(b []byte) (*Spec, error) {
	n := &yaml.Node{}
	if err := yaml.Unmarshal(b, n); err != nil {
		return nil, ErrorCodeInvalidSpec.Wrapf(err, "fail to Unmarshal err:%s", err.Error())
	}
	doc := &Document{}
	if len(n.Content) > 0 && n.Content[0].Kind == yaml.SequenceNode {
		if err := n.Content[0].Decode(&doc.ABI); err != nil {
			return nil, ErrorCodeInvalidSpec.Wrapf(err, "fail to Decode err:%s", err.Error())
		}
	} else if err := n.Decode(doc); err != nil {
		return nil, ErrorCodeInvalidSpec.Wrapf(err, "fail to Decode err:%s", err.Error())
	}
	return NewSpecFromDocument(doc)
}

// NewSpecFromFile reads a document, files with .yaml or .yml extension are
// parsed as YAML.
func NewSpecFromFile(name string) (*Spec, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to ReadFile err:%s", err.Error())
	}
	var s *Spec
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		s, err = NewSpecFromYAML(b)
	default:
		s, err = NewSpec(b)
	}
	if err != nil {
		return nil, err
	}
	if len(s.Name) == 0 {
		s.Name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	return s, nil
}

func NewSpecFromDocument(doc *Document) (*Spec, error) {
	s := &Spec{
		Name:        doc.ContractName,
		bySignature: make(map[string]*abi.Method),
		bySelector:  make(map[string][]*abi.Method),
	}
	for _, d := range doc.ABI {
		if len(d.Type) > 0 && d.Type != EntryTypeFunction {
			specLogger.Tracef("skip entry type:%s name:%s", d.Type, d.Name)
			continue
		}
		m, err := abi.NewMethod(d)
		if err != nil {
			return nil, ErrorCodeInvalidSpec.Wrapf(err, "invalid method name:%s err:%s", d.Name, err.Error())
		}
		if _, ok := s.bySignature[m.Signature()]; ok {
			return nil, ErrorCodeInvalidSpec.Errorf("duplicated method signature:%s", m.Signature())
		}
		s.methods = append(s.methods, m)
		s.bySignature[m.Signature()] = m
		s.bySelector[m.SelectorHex()] = append(s.bySelector[m.SelectorHex()], m)
	}
	return s, nil
}

func MustNewSpec(b []byte) *Spec {
	s, err := NewSpec(b)
	if err != nil {
		log.Panicf("fail to NewSpec err:%v", err)
	}
	return s
}

// Methods returns functions in declaration order.
func (s *Spec) Methods() []*abi.Method {
	return s.methods
}

// Descriptors returns the function entries in document order.
func (s *Spec) Descriptors() []abi.MethodDescriptor {
	l := make([]abi.MethodDescriptor, len(s.methods))
	for i, m := range s.methods {
		l[i] = m.Descriptor()
	}
	return l
}

func (s *Spec) Method(signature string) (*abi.Method, error) {
	if m, ok := s.bySignature[signature]; ok {
		return m, nil
	}
	return nil, ErrorCodeNotFoundMethod.Errorf("not found method signature:%s", signature)
}

func (s *Spec) MethodsByName(name string) []*abi.Method {
	var l []*abi.Method
	for _, m := range s.methods {
		if m.Name() == name {
			l = append(l, m)
		}
	}
	return l
}

// FindMethod looks up by signature when nameOrSignature has parentheses,
// otherwise by name which must not be overloaded.
func (s *Spec) FindMethod(nameOrSignature string) (*abi.Method, error) {
	if strings.Contains(nameOrSignature, "(") {
		return s.Method(nameOrSignature)
	}
	l := s.MethodsByName(nameOrSignature)
	switch len(l) {
	case 0:
		return nil, ErrorCodeNotFoundMethod.Errorf("not found method name:%s", nameOrSignature)
	case 1:
		return l[0], nil
	default:
		sigs := make([]string, len(l))
		for i, m := range l {
			sigs[i] = m.Signature()
		}
		return nil, ErrorCodeAmbiguousMethod.Errorf("ambiguous method name:%s candidates:%s",
			nameOrSignature, strings.Join(sigs, ","))
	}
}

func (s *Spec) MethodsBySelector(selector string) ([]*abi.Method, error) {
	if l, ok := s.bySelector[strings.ToLower(selector)]; ok {
		return l, nil
	}
	return nil, nil
}

func (s *Spec) MethodBySelector(selector string) (*abi.Method, error) {
	l, _ := s.MethodsBySelector(selector)
	if len(l) == 0 {
		return nil, ErrorCodeNotFoundMethod.Errorf("not found method selector:%s", selector)
	}
	return l[0], nil
}
