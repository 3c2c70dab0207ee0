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

package sqlbind

import (
	"context"
	"fmt"
	"sync"

	"github.com/uptrace/bun"

	"github.com/tomoncle/sqlbind/database"
	"github.com/tomoncle/sqlbind/repository"
)

// UnitOfWork coordinates several repositories over one bind so their
// operations share a single transaction. Repositories are registered by
// name up front; their operations only work inside Transaction, where the
// shared session is carried in the context.
type UnitOfWork struct {
	provider database.SessionProvider
	txOnly   database.SessionProvider

	mu           sync.RWMutex
	repositories map[string]interface{}
}

// NewUnitOfWork builds a unit of work on a bind, selecting the session
// handler variant matching the bind variant.
func NewUnitOfWork(bind database.Bind) (*UnitOfWork, error) {
	provider, err := database.NewHandler(bind)
	if err != nil {
		return nil, err
	}
	return &UnitOfWork{
		provider:     provider,
		txOnly:       &transactionalProvider{inner: provider},
		repositories: make(map[string]interface{}),
	}, nil
}

// Transaction runs fn inside one session. Every registered repository
// operation called with the inner context joins that session; the whole
// group commits on normal exit (unless readOnly) and rolls back when fn
// returns an error.
func (u *UnitOfWork) Transaction(ctx context.Context, readOnly bool, fn func(ctx context.Context) error) error {
	return u.provider.Run(ctx, readOnly, func(ctx context.Context, _ *database.Session) error {
		return fn(ctx)
	})
}

// Repository returns the registered repository by name. Callers that know
// the entity type should prefer RepositoryOf.
func (u *UnitOfWork) Repository(name string) (interface{}, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	repo, ok := u.repositories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", database.ErrRepositoryNotFound, name)
	}
	return repo, nil
}

// RegisterRepository builds a repository for T under name. Registering an
// already-used name replaces the previous repository. The repository
// refuses to run outside Transaction.
func RegisterRepository[T any](u *UnitOfWork, name string) error {
	repo, err := repository.NewWithProvider[T](u.txOnly)
	if err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.repositories[name] = repo
	return nil
}

// RepositoryOf returns the registered repository by name, typed for T.
func RepositoryOf[T any](u *UnitOfWork, name string) (repository.Repository[T], error) {
	raw, err := u.Repository(name)
	if err != nil {
		return nil, err
	}
	repo, ok := raw.(repository.Repository[T])
	if !ok {
		return nil, fmt.Errorf("%w: %q holds a different entity type", database.ErrRepositoryNotFound, name)
	}
	return repo, nil
}

// transactionalProvider refuses to open sessions on its own. It only
// forwards operations that already run inside a session opened by the
// unit of work, so no repository can silently escape the shared
// transaction.
type transactionalProvider struct {
	inner database.SessionProvider
}

func (p *transactionalProvider) DB() *bun.DB { return p.inner.DB() }

func (p *transactionalProvider) Current(ctx context.Context) (*database.Session, bool) {
	return p.inner.Current(ctx)
}

func (p *transactionalProvider) Run(ctx context.Context, readOnly bool, fn func(ctx context.Context, session *database.Session) error) error {
	if _, ok := p.inner.Current(ctx); !ok {
		return fmt.Errorf("%w: repository used outside Transaction", database.ErrNoActiveTransaction)
	}
	return p.inner.Run(ctx, readOnly, fn)
}
