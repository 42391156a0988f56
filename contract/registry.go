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
	"encoding/json"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"gorm.io/gorm"

	"github.com/icon-project/abi-codec/abi"
	"github.com/icon-project/abi-codec/database"
)

const (
	MethodRecordTable      = "method"
	DefaultMethodCacheSize = 1024
	methodRecordOrderByID  = "id asc"
)

type MethodRecord struct {
	database.Model
	Selector  string `json:"selector" gorm:"index;size:10"`
	Signature string `json:"signature" gorm:"uniqueIndex;size:512"`
	Name      string `json:"name"`
	ABI       string `json:"abi"`
}

func (r *MethodRecord) Descriptor() (abi.MethodDescriptor, error) {
	d := abi.MethodDescriptor{}
	if err := json.Unmarshal([]byte(r.ABI), &d); err != nil {
		return d, errors.Wrapf(err, "fail to Unmarshal signature:%s err:%s", r.Signature, err.Error())
	}
	return d, nil
}

// methodRepository holds the queries on method records. Selectors are
// stored lowercase.
type methodRepository struct {
	database.Repository[MethodRecord]
}

func (r methodRepository) bySignature(signature string) (*MethodRecord, error) {
	return r.FindOne(&MethodRecord{Signature: signature})
}

// bySelector returns records in registration order.
func (r methodRepository) bySelector(selector string) ([]MethodRecord, error) {
	return r.FindWithOrder(methodRecordOrderByID, &MethodRecord{Selector: strings.ToLower(selector)})
}

func (r methodRepository) deleteBySignature(signature string) error {
	return r.Delete(&MethodRecord{}, "signature = ?", signature)
}

// Registry keeps method descriptors in the database, built methods are
// cached by signature.
type Registry struct {
	r     methodRepository
	cache *lru.Cache
	mtx   sync.Mutex
	l     log.Logger
}

func NewRegistry(db *gorm.DB, cacheSize int, l log.Logger) (*Registry, error) {
	r, err := database.NewDefaultRepository[MethodRecord](db, MethodRecordTable)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to NewDefaultRepository err:%s", err.Error())
	}
	if cacheSize < 1 {
		cacheSize = DefaultMethodCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to lru.New err:%s", err.Error())
	}
	return &Registry{
		r:     methodRepository{r},
		cache: cache,
		l:     l.WithFields(log.Fields{log.FieldKeyModule: "registry"}),
	}, nil
}

// Register saves d if no method with the same signature exists.
// It returns the stored record and whether it was newly saved.
func (r *Registry) Register(d abi.MethodDescriptor) (*MethodRecord, bool, error) {
	m, err := abi.NewMethod(d)
	if err != nil {
		return nil, false, err
	}
	return r.register(m)
}

func (r *Registry) register(m *abi.Method) (*MethodRecord, bool, error) {
	b, err := json.Marshal(m.Descriptor())
	if err != nil {
		return nil, false, errors.Wrapf(err, "fail to Marshal err:%s", err.Error())
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	var (
		ret   *MethodRecord
		saved bool
	)
	err = r.r.Transaction(func(tx database.Repository[MethodRecord]) error {
		found, err := methodRepository{tx}.bySignature(m.Signature())
		if err != nil {
			return err
		}
		if found != nil {
			ret = found
			return nil
		}
		ret = &MethodRecord{
			Selector:  m.SelectorHex(),
			Signature: m.Signature(),
			Name:      m.Name(),
			ABI:       string(b),
		}
		saved = true
		return tx.Save(ret)
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "fail to Register signature:%s err:%s", m.Signature(), err.Error())
	}
	if saved {
		r.l.Debugf("Register signature:%s selector:%s", ret.Signature, ret.Selector)
		r.cache.Add(m.Signature(), m)
	}
	return ret, saved, nil
}

func (r *Registry) RegisterSpec(s *Spec) ([]MethodRecord, error) {
	l := make([]MethodRecord, 0, len(s.Methods()))
	for _, m := range s.Methods() {
		rec, _, err := r.register(m)
		if err != nil {
			return nil, err
		}
		l = append(l, *rec)
	}
	return l, nil
}

func (r *Registry) Unregister(signature string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if err := r.r.deleteBySignature(signature); err != nil {
		return errors.Wrapf(err, "fail to Delete signature:%s err:%s", signature, err.Error())
	}
	r.cache.Remove(signature)
	return nil
}

func (r *Registry) method(rec *MethodRecord) (*abi.Method, error) {
	if v, ok := r.cache.Get(rec.Signature); ok {
		return v.(*abi.Method), nil
	}
	d, err := rec.Descriptor()
	if err != nil {
		return nil, err
	}
	m, err := abi.NewMethod(d)
	if err != nil {
		return nil, err
	}
	r.cache.Add(rec.Signature, m)
	return m, nil
}

func (r *Registry) MethodBySignature(signature string) (*abi.Method, error) {
	if v, ok := r.cache.Get(signature); ok {
		return v.(*abi.Method), nil
	}
	rec, err := r.r.bySignature(signature)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrorCodeNotFoundMethod.Errorf("not found method signature:%s", signature)
	}
	return r.method(rec)
}

// MethodsBySelector returns methods in registration order, distinct
// signatures may collide on a selector.
func (r *Registry) MethodsBySelector(selector string) ([]*abi.Method, error) {
	recs, err := r.r.bySelector(selector)
	if err != nil {
		return nil, err
	}
	l := make([]*abi.Method, 0, len(recs))
	for i := range recs {
		m, err := r.method(&recs[i])
		if err != nil {
			return nil, err
		}
		l = append(l, m)
	}
	return l, nil
}

func (r *Registry) Page(p database.Pageable) (*database.Page[MethodRecord], error) {
	return r.r.Page(p, nil)
}

func (r *Registry) Count() (int64, error) {
	return r.r.Count(nil)
}

func (r *Registry) Decode(data string) (*Decoded, error) {
	return Decode(r, data)
}
