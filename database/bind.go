/*
 * Copyright 2025 tomoncle.
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
	"database/sql"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

// Bind owns one engine and produces the sessions derived from it. The
// engine is shared read-only by every session; the bind itself is
// immutable after creation and disposed exactly once by its manager.
type Bind interface {
	// Name returns the bind name it was registered under.
	Name() string

	// DB returns the Bun engine backing the bind.
	DB() *bun.DB

	// IsAsync reports whether the bind releases leaked sessions through
	// background tasks instead of synchronously.
	IsAsync() bool

	// RegisterModels registers mapped model types with the bind so their
	// schema metadata can be exposed for migration tooling.
	RegisterModels(models ...interface{})

	// Tables returns the schema metadata of every registered model.
	Tables() []*schema.Table
}

// internalBind is the session-opening surface used by session handlers.
type internalBind interface {
	Bind
	openSession(ctx context.Context) (*Session, error)
	dispose() error
}

type baseBind struct {
	name      string
	db        *bun.DB
	txOptions *sql.TxOptions
	tasks     *TaskRegistry // nil for blocking binds
	logger    Logger

	mu          sync.RWMutex
	modelTypes  []reflect.Type
	disposeOnce sync.Once
}

type syncBind struct{ baseBind }

type asyncBind struct{ baseBind }

func (b *syncBind) IsAsync() bool  { return false }
func (b *asyncBind) IsAsync() bool { return true }

// newBind builds a bind from a validated configuration. Async binds are
// handed the manager's task registry for deferred session release.
func newBind(name string, config BindConfig, tasks *TaskRegistry, logger Logger) (internalBind, error) {
	config = config.withDefaults()
	if err := config.validate(name); err != nil {
		return nil, err
	}

	db, err := openEngine(config)
	if err != nil {
		return nil, err
	}

	txOptions, err := config.txOptions()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if config.Async {
		bind := &asyncBind{}
		bind.name = name
		bind.db = db
		bind.txOptions = txOptions
		bind.logger = logger
		bind.tasks = tasks
		return bind, nil
	}
	bind := &syncBind{}
	bind.name = name
	bind.db = db
	bind.txOptions = txOptions
	bind.logger = logger
	return bind, nil
}

// openEngine creates the Bun engine for the configured URL scheme.
func openEngine(config BindConfig) (*bun.DB, error) {
	u, err := url.Parse(config.EngineURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var sqlDB *sql.DB
	var db *bun.DB
	switch u.Scheme {
	case "mysql":
		sqlDB, err = sql.Open("mysql", mysqlDSN(u, config.EngineOptions))
		if err != nil {
			return nil, err
		}
		db = bun.NewDB(sqlDB, mysqldialect.New())
	case "postgres", "postgresql":
		sqlDB, err = sql.Open("postgres", config.EngineURL)
		if err != nil {
			return nil, err
		}
		db = bun.NewDB(sqlDB, pgdialect.New())
	case "sqlite", "sqlite3", "file":
		sqlDB, err = sql.Open(sqliteshim.ShimName, sqliteDSN(config.EngineURL))
		if err != nil {
			return nil, err
		}
		db = bun.NewDB(sqlDB, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("%w: unsupported engine scheme %q", ErrInvalidConfig, u.Scheme)
	}

	opts := config.EngineOptions
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	if opts.Echo {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	return db, nil
}

func mysqlDSN(u *url.URL, opts *EngineOptions) string {
	password, _ := u.User.Password()
	host := u.Host
	if u.Port() == "" {
		host = fmt.Sprintf("%s:3306", u.Hostname())
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s)%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%s",
		u.User.Username(),
		password,
		host,
		u.Path,
		opts.ConnectTimeout,
	)
	if u.RawQuery != "" {
		dsn += "&" + u.RawQuery
	}
	return dsn
}

func sqliteDSN(engineURL string) string {
	// file: URLs are understood by the driver as-is, e.g.
	// file::memory:?cache=shared. The sqlite:// scheme wraps a plain path.
	if strings.HasPrefix(engineURL, "file:") {
		return engineURL
	}
	path := strings.TrimPrefix(engineURL, "sqlite3://")
	path = strings.TrimPrefix(path, "sqlite://")
	return path
}

func (b *baseBind) Name() string { return b.name }

func (b *baseBind) DB() *bun.DB { return b.db }

func (b *baseBind) RegisterModels(models ...interface{}) {
	b.db.RegisterModel(models...)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, model := range models {
		typ := reflect.TypeOf(model)
		for typ.Kind() == reflect.Ptr {
			typ = typ.Elem()
		}
		b.modelTypes = append(b.modelTypes, typ)
	}
}

func (b *baseBind) Tables() []*schema.Table {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tables := make([]*schema.Table, 0, len(b.modelTypes))
	for _, typ := range b.modelTypes {
		tables = append(tables, b.db.Table(typ))
	}
	return tables
}

// openSession begins a transaction on the bind's engine. The returned
// session carries a finalizer safety net; explicit Close remains the
// primary release path.
func (b *baseBind) openSession(ctx context.Context) (*Session, error) {
	tx, err := b.db.BeginTx(ctx, b.txOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to begin session on bind %q: %w", b.name, err)
	}
	return newSession(tx, b.tasks, b.logger), nil
}

func (b *baseBind) dispose() error {
	var err error
	b.disposeOnce.Do(func() {
		err = b.db.Close()
		if b.logger != nil {
			if err != nil {
				b.logger.Error("Failed to dispose bind engine", "bind", b.name, "error", err)
			} else {
				b.logger.Info("Bind engine disposed", "bind", b.name)
			}
		}
	})
	return err
}
