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

package database

import (
	"database/sql"
	"time"

	"github.com/icon-project/btp2/common/errors"
	"gorm.io/gorm"
)

const (
	orderByPrimaryKey = "id asc"
)

type Model struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Pageable struct {
	// Page 0-indexed
	Page uint `json:"page"`
	// Size zero for unlimited
	Size uint `json:"size"`
	// Sort for example "FIELD desc,FIELD", insertion order if empty
	Sort string `json:"sort,omitempty"`
}

func (p Pageable) offset() int {
	return int(p.Page * p.Size)
}

func (p Pageable) order() string {
	if len(p.Sort) == 0 {
		return orderByPrimaryKey
	}
	return p.Sort
}

// TotalPages returns the number of pages for count elements.
func (p Pageable) TotalPages(count int64) int {
	switch {
	case count <= 0:
		return 0
	case p.Size == 0:
		return 1
	default:
		return int((count + int64(p.Size) - 1) / int64(p.Size))
	}
}

type Page[T any] struct {
	Content       []T      `json:"content"`
	TotalElements int      `json:"total_elements"`
	TotalPages    int      `json:"total_pages"`
	Pageable      Pageable `json:"pageable"`
}

type Repository[T any] interface {
	Save(v *T) error
	Delete(query interface{}, conds ...interface{}) error
	Count(query interface{}, conds ...interface{}) (int64, error)
	// FindOne returns nil without error if nothing matches.
	FindOne(query interface{}, conds ...interface{}) (*T, error)
	FindWithOrder(order string, query interface{}, conds ...interface{}) ([]T, error)
	Page(p Pageable, query interface{}, conds ...interface{}) (*Page[T], error)
	Transaction(fc func(tx Repository[T]) error, opts ...*sql.TxOptions) error
}

// DefaultRepository stores T in the table of the name.
type DefaultRepository[T any] struct {
	db   *gorm.DB
	name string
}

func NewDefaultRepository[T any](db *gorm.DB, name string) (*DefaultRepository[T], error) {
	if len(name) == 0 {
		return nil, errors.IllegalArgumentError.New("table name required")
	}
	if err := db.Table(name).AutoMigrate(new(T)); err != nil {
		return nil, errors.Wrapf(err, "fail to AutoMigrate table:%s err:%s", name, err.Error())
	}
	return &DefaultRepository[T]{
		db:   db,
		name: name,
	}, nil
}

func (r *DefaultRepository[T]) query(query interface{}, conds ...interface{}) *gorm.DB {
	db := r.db.Table(r.name)
	if query == nil {
		return db
	}
	return db.Where(query, conds...)
}

func (r *DefaultRepository[T]) wrap(err error, op string) error {
	return errors.Wrapf(err, "fail to %s table:%s err:%s", op, r.name, err.Error())
}

func (r *DefaultRepository[T]) Save(v *T) error {
	if err := r.db.Table(r.name).Save(v).Error; err != nil {
		return r.wrap(err, "Save")
	}
	return nil
}

func (r *DefaultRepository[T]) Delete(query interface{}, conds ...interface{}) error {
	if err := r.db.Table(r.name).Delete(query, conds...).Error; err != nil {
		return r.wrap(err, "Delete")
	}
	return nil
}

func (r *DefaultRepository[T]) Count(query interface{}, conds ...interface{}) (int64, error) {
	var n int64
	if err := r.query(query, conds...).Count(&n).Error; err != nil {
		return -1, r.wrap(err, "Count")
	}
	return n, nil
}

// FindOne takes the first row by primary key. Limit and Find are used in
// place of First, which reports a missing row as an error.
func (r *DefaultRepository[T]) FindOne(query interface{}, conds ...interface{}) (*T, error) {
	var l []T
	tx := r.query(query, conds...).Order(orderByPrimaryKey).Limit(1).Find(&l)
	if tx.Error != nil {
		return nil, r.wrap(tx.Error, "FindOne")
	}
	if len(l) == 0 {
		return nil, nil
	}
	return &l[0], nil
}

func (r *DefaultRepository[T]) FindWithOrder(order string, query interface{}, conds ...interface{}) ([]T, error) {
	var l []T
	if err := r.query(query, conds...).Order(order).Find(&l).Error; err != nil {
		return nil, r.wrap(err, "FindWithOrder")
	}
	return l, nil
}

// Page counts and fetches on separate sessions of the same condition, rows
// are ordered by primary key unless p sorts them.
func (r *DefaultRepository[T]) Page(p Pageable, query interface{}, conds ...interface{}) (*Page[T], error) {
	q := r.query(query, conds...).Session(&gorm.Session{})
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, r.wrap(err, "Page")
	}
	fq := q.Order(p.order())
	if p.Size > 0 {
		fq = fq.Offset(p.offset()).Limit(int(p.Size))
	}
	l := make([]T, 0)
	if err := fq.Find(&l).Error; err != nil {
		return nil, r.wrap(err, "Page")
	}
	return &Page[T]{
		Content:       l,
		TotalElements: int(count),
		TotalPages:    p.TotalPages(count),
		Pageable:      p,
	}, nil
}

func (r *DefaultRepository[T]) Transaction(fc func(tx Repository[T]) error, opts ...*sql.TxOptions) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fc(&DefaultRepository[T]{db: tx, name: r.name})
	}, opts...)
}
