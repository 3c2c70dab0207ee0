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

	"github.com/tomoncle/sqlbind/types"
)

// CrudRepository defines the write and primary-key operations for a
// generic entity type. Every operation runs in its own committed session
// unless the repository is bound to an externally managed one.
type CrudRepository[T any] interface {
	// Get returns the entity with the given primary key, or
	// database.ErrModelNotFound when no row matches.
	Get(ctx context.Context, id interface{}) (*T, error)

	// GetMany returns the entities matching the given primary keys. Keys
	// without a row are skipped silently; the order is unspecified.
	GetMany(ctx context.Context, ids []interface{}) ([]*T, error)

	// Save persists a new entity and returns it, carrying any generated
	// primary key.
	Save(ctx context.Context, instance *T) (*T, error)

	// SaveMany persists the entities atomically as one group.
	SaveMany(ctx context.Context, instances []*T) ([]*T, error)

	// Update writes the entity's current column values by primary key.
	Update(ctx context.Context, instance *T) error

	// Delete removes the entity in one committed transaction.
	Delete(ctx context.Context, instance *T) error

	// DeleteMany removes the entities atomically as one group.
	DeleteMany(ctx context.Context, instances []*T) error
}

// FindRepository defines filtered and paginated querying.
type FindRepository[T any] interface {
	// Find returns the entities matching the exact-match search params,
	// ordered by the given columns.
	Find(ctx context.Context, search types.SearchParams, orderBy ...types.OrderBy) ([]*T, error)

	// PaginatedFind returns one offset-based page together with page
	// metadata. page is 1-based; itemsPerPage is clamped to
	// [0, types.MaxQueryLimit].
	PaginatedFind(ctx context.Context, page int, itemsPerPage int, search types.SearchParams, orderBy ...types.OrderBy) (*types.PaginatedResult[T], error)

	// CursorPaginatedFind returns one cursor window together with cursor
	// metadata. A nil cursorReference starts from the beginning, ascending
	// by primary key; isBeforeCursor selects the window strictly before
	// the cursor instead of strictly after it. The row equal to the cursor
	// value is never part of the window.
	CursorPaginatedFind(ctx context.Context, itemsPerPage int, cursorReference *types.CursorReference, isBeforeCursor bool, search types.SearchParams) (*types.CursorPaginatedResult[T], error)
}

// Repository combines CRUD and querying for one mapped entity type.
type Repository[T any] interface {
	CrudRepository[T]
	FindRepository[T]

	// PrimaryKey returns the entity's single primary key column name.
	PrimaryKey() string
}
