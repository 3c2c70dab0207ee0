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

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/sqlbind/database"
	"github.com/tomoncle/sqlbind/types"
)

// sqlRepository is the Bun-backed Repository implementation. Each operation
// acquires its session through the provider, so repositories built on the
// same provider and context share one transaction.
type sqlRepository[T any] struct {
	provider database.SessionProvider
	table    *schema.Table
	pk       *schema.Field
	logger   database.Logger
}

// New builds a repository on a bind, selecting the session handler variant
// matching the bind variant.
func New[T any](bind database.Bind) (Repository[T], error) {
	provider, err := database.NewHandler(bind)
	if err != nil {
		return nil, err
	}
	return NewWithProvider[T](provider)
}

// NewWithProvider builds a repository on an existing session provider.
// The entity type must be a mapped struct with a single primary key.
func NewWithProvider[T any](provider database.SessionProvider) (Repository[T], error) {
	table, err := resolveTable[T](provider)
	if err != nil {
		return nil, err
	}
	pk, err := resolvePrimaryKey(table)
	if err != nil {
		return nil, err
	}
	repo := &sqlRepository[T]{
		provider: provider,
		table:    table,
		pk:       pk,
		logger:   database.GetLogger(),
	}
	repo.logger.Debug("Repository initialized", "model", table.TypeName, "pk", pk.Name)
	return repo, nil
}

// PrimaryKey returns the entity's primary key column name.
func (r *sqlRepository[T]) PrimaryKey() string { return r.pk.Name }

func (r *sqlRepository[T]) Get(ctx context.Context, id interface{}) (*T, error) {
	model := new(T)
	err := r.provider.Run(ctx, true, func(ctx context.Context, session *database.Session) error {
		err := session.DB().NewSelect().
			Model(model).
			Where("? = ?", bun.Ident(r.pk.Name), id).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s with %s=%v", database.ErrModelNotFound, r.table.TypeName, r.pk.Name, id)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return model, nil
}

func (r *sqlRepository[T]) GetMany(ctx context.Context, ids []interface{}) ([]*T, error) {
	models := make([]*T, 0, len(ids))
	if len(ids) == 0 {
		return models, nil
	}
	err := r.provider.Run(ctx, true, func(ctx context.Context, session *database.Session) error {
		return session.DB().NewSelect().
			Model(&models).
			Where("? IN (?)", bun.Ident(r.pk.Name), bun.In(ids)).
			Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return models, nil
}

func (r *sqlRepository[T]) Save(ctx context.Context, instance *T) (*T, error) {
	if instance == nil {
		return nil, fmt.Errorf("%w: nil instance", database.ErrInvalidModel)
	}
	err := r.provider.Run(ctx, false, func(ctx context.Context, session *database.Session) error {
		_, err := session.DB().NewInsert().Model(instance).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// SaveMany persists the instances in one session. A failure on any row
// rolls back the whole group.
func (r *sqlRepository[T]) SaveMany(ctx context.Context, instances []*T) ([]*T, error) {
	if len(instances) == 0 {
		return instances, nil
	}
	for _, instance := range instances {
		if instance == nil {
			return nil, fmt.Errorf("%w: nil instance", database.ErrInvalidModel)
		}
	}
	err := r.provider.Run(ctx, false, func(ctx context.Context, session *database.Session) error {
		_, err := session.DB().NewInsert().Model(&instances).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return instances, nil
}

func (r *sqlRepository[T]) Update(ctx context.Context, instance *T) error {
	if instance == nil {
		return fmt.Errorf("%w: nil instance", database.ErrInvalidModel)
	}
	return r.provider.Run(ctx, false, func(ctx context.Context, session *database.Session) error {
		_, err := session.DB().NewUpdate().Model(instance).WherePK().Exec(ctx)
		return err
	})
}

func (r *sqlRepository[T]) Delete(ctx context.Context, instance *T) error {
	if instance == nil {
		return fmt.Errorf("%w: nil instance", database.ErrInvalidModel)
	}
	return r.provider.Run(ctx, false, func(ctx context.Context, session *database.Session) error {
		_, err := session.DB().NewDelete().Model(instance).WherePK().Exec(ctx)
		return err
	})
}

// DeleteMany removes the instances in one session. A failure on any row
// rolls back the whole group.
func (r *sqlRepository[T]) DeleteMany(ctx context.Context, instances []*T) error {
	if len(instances) == 0 {
		return nil
	}
	return r.provider.Run(ctx, false, func(ctx context.Context, session *database.Session) error {
		for _, instance := range instances {
			if instance == nil {
				return fmt.Errorf("%w: nil instance", database.ErrInvalidModel)
			}
			if _, err := session.DB().NewDelete().Model(instance).WherePK().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *sqlRepository[T]) Find(ctx context.Context, search types.SearchParams, orderBy ...types.OrderBy) ([]*T, error) {
	if err := r.validateSearch(search); err != nil {
		return nil, err
	}
	if err := r.validateOrdering(orderBy); err != nil {
		return nil, err
	}

	models := make([]*T, 0)
	err := r.provider.Run(ctx, true, func(ctx context.Context, session *database.Session) error {
		q := r.applyFilters(session.DB().NewSelect().Model(&models), search)
		q = r.applyOrdering(q, orderBy)
		return q.Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return models, nil
}

// PaginatedFind returns one offset-based page. The total always comes from
// a dedicated count query over the filtered set, so page metadata stays
// correct even when the requested page is past the end.
func (r *sqlRepository[T]) PaginatedFind(ctx context.Context, page int, itemsPerPage int, search types.SearchParams, orderBy ...types.OrderBy) (*types.PaginatedResult[T], error) {
	if err := r.validateSearch(search); err != nil {
		return nil, err
	}
	if err := r.validateOrdering(orderBy); err != nil {
		return nil, err
	}

	limit := types.ClampLimit(itemsPerPage, types.MaxQueryLimit)
	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}

	models := make([]*T, 0, limit)
	var total int
	err := r.provider.Run(ctx, true, func(ctx context.Context, session *database.Session) error {
		var err error
		total, err = r.countQuery(session.DB(), search).Count(ctx)
		if err != nil {
			return err
		}
		if limit == 0 {
			return nil
		}
		q := r.applyFilters(session.DB().NewSelect().Model(&models), search)
		q = r.applyOrdering(q, orderBy)
		q = q.Limit(limit)
		if offset > 0 {
			q = q.Offset(offset)
		}
		return q.Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return types.BuildPaginatedResult(models, total, page, limit), nil
}

// CursorPaginatedFind returns one cursor window. The main query fetches one
// row past the window to detect a further page in the travel direction; a
// separate existence probe at or beyond the cursor detects the opposite
// direction, so the flag is correct even when the window itself is empty.
func (r *sqlRepository[T]) CursorPaginatedFind(ctx context.Context, itemsPerPage int, cursorReference *types.CursorReference, isBeforeCursor bool, search types.SearchParams) (*types.CursorPaginatedResult[T], error) {
	if err := r.validateSearch(search); err != nil {
		return nil, err
	}

	field := r.pk
	if cursorReference == nil {
		// No cursor starts from the beginning; "before nothing" is empty
		// either way, so the direction collapses to forward.
		isBeforeCursor = false
	} else {
		var err error
		field, err = r.lookupField(cursorReference.Column)
		if err != nil {
			return nil, err
		}
		if err := validateCursorValue(field, cursorReference.Value); err != nil {
			return nil, err
		}
	}
	column := field.Name

	limit := types.ClampLimit(itemsPerPage, types.MaxQueryLimit)
	models := make([]*T, 0, limit+1)
	var total int
	var hasRowAtCursor bool
	err := r.provider.Run(ctx, true, func(ctx context.Context, session *database.Session) error {
		var err error
		total, err = r.countQuery(session.DB(), search).Count(ctx)
		if err != nil {
			return err
		}

		q := r.applyFilters(session.DB().NewSelect().Model(&models), search)
		if cursorReference == nil {
			q = q.OrderExpr("? ASC", bun.Ident(column))
		} else if isBeforeCursor {
			q = q.Where("? < ?", bun.Ident(column), cursorReference.Value).
				OrderExpr("? DESC", bun.Ident(column))
		} else {
			q = q.Where("? > ?", bun.Ident(column), cursorReference.Value).
				OrderExpr("? ASC", bun.Ident(column))
		}
		if err := q.Limit(limit + 1).Scan(ctx); err != nil {
			return err
		}

		if cursorReference != nil {
			probe := r.countQuery(session.DB(), search)
			if isBeforeCursor {
				probe = probe.Where("? >= ?", bun.Ident(column), cursorReference.Value)
			} else {
				probe = probe.Where("? <= ?", bun.Ident(column), cursorReference.Value)
			}
			hasRowAtCursor, err = probe.Exists(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return types.BuildCursorPaginatedResult(models, total, limit, cursorReference, isBeforeCursor, hasRowAtCursor, column,
		func(m *T) interface{} { return fieldValue(field, m) }), nil
}
