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
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DriverMysql    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver          string `json:"driver"`
	User            string `json:"user,omitempty"`
	Password        string `json:"password,omitempty"`
	Host            string `json:"host,omitempty"`
	Port            uint   `json:"port,omitempty"`
	DBName          string `json:"dbname"`
	// LogLevel is the level statements are dumped at, trace if empty.
	LogLevel        string `json:"log_level,omitempty"`
	// SlowQueryMillis is the threshold of slow query warnings.
	SlowQueryMillis uint   `json:"slow_query_ms,omitempty"`
}

const (
	memoryDBName = ":memory:"
)

var zeroDefaultDatetimePrecision = 0

func OpenDatabase(cfg Config, l log.Logger) (*gorm.DB, error) {
	dumpLv := log.TraceLevel
	if len(cfg.LogLevel) > 0 {
		lv, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid log_level:%s err:%s", cfg.LogLevel, err.Error())
		}
		dumpLv = lv
	}
	gcfg := &gorm.Config{
		Logger: newQueryLogger(l, dumpLv, time.Duration(cfg.SlowQueryMillis)*time.Millisecond),
	}
	switch cfg.Driver {
	case DriverMysql:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		return gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DefaultDatetimePrecision:  &zeroDefaultDatetimePrecision,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), gcfg)
	case DriverPostgres:
		dsn := fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s sslmode=disable",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		return gorm.Open(postgres.Open(dsn), gcfg)
	case DriverSQLite:
		return openSQLite(cfg, gcfg)
	default:
		return nil, errors.Errorf("not support db type:%s", cfg.Driver)
	}
}

// openSQLite opens a file or an in-memory database. Every connection of an
// in-memory database is a distinct database, so the pool keeps only one.
func openSQLite(cfg Config, gcfg *gorm.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s", cfg.DBName)
	if len(cfg.User) > 0 {
		auth := fmt.Sprintf("_auth&_auth_user=%s&_auth_pass=%s",
			cfg.User, cfg.Password)
		if !strings.Contains(dsn, "?") {
			auth = "?" + auth
		}
		dsn = dsn + auth
	}
	db, err := gorm.Open(sqlite.Open(dsn), gcfg)
	if err != nil {
		return nil, err
	}
	if cfg.DBName == memoryDBName {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
