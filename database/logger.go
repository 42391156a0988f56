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
	"context"
	"errors"
	"time"

	"github.com/icon-project/btp2/common/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DefaultSlowQueryMillis = 200
)

// queryLogger writes statements at the dump level, slow statements as
// warnings and failures other than a missing record as errors.
type queryLogger struct {
	l      log.Logger
	dumpLv log.Level
	slow   time.Duration
	silent bool
}

func newQueryLogger(l log.Logger, dumpLv log.Level, slow time.Duration) *queryLogger {
	if slow <= 0 {
		slow = DefaultSlowQueryMillis * time.Millisecond
	}
	return &queryLogger{
		l:      l.WithFields(log.Fields{log.FieldKeyModule: "database"}),
		dumpLv: dumpLv,
		slow:   slow,
	}
}

// LogMode returns a copy, so silencing one gorm session leaves others intact.
func (q *queryLogger) LogMode(level logger.LogLevel) logger.Interface {
	c := *q
	c.silent = level == logger.Silent
	return &c
}

func (q *queryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if !q.silent {
		q.l.Infof(msg, data...)
	}
}

func (q *queryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if !q.silent {
		q.l.Warnf(msg, data...)
	}
}

func (q *queryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if !q.silent {
		q.l.Errorf(msg, data...)
	}
}

func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.silent {
		return
	}
	elapsed := time.Since(begin)
	ms := float64(elapsed.Nanoseconds()) / 1e6
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		q.l.Errorf("fail to query err:%s [%.3fms] [rows:%d] %s", err, ms, rows, sql)
	case elapsed > q.slow:
		sql, rows := fc()
		q.l.Warnf("slow query >= %v [%.3fms] [rows:%d] %s", q.slow, ms, rows, sql)
	case q.l.GetLevel() >= q.dumpLv:
		sql, rows := fc()
		q.l.Logf(q.dumpLv, "[%.3fms] [rows:%d] %s", ms, rows, sql)
	}
}
