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

import "errors"

var (
	// ErrNotInitializedBind is returned when the requested bind name was
	// never configured in the bind manager.
	ErrNotInitializedBind = errors.New("bind not initialized")

	// ErrUnsupportedBind is returned when a component requiring one bind
	// variant (blocking or async) receives the other. The check happens
	// once, at construction.
	ErrUnsupportedBind = errors.New("unsupported bind")

	// ErrInvalidConfig is returned when a bind configuration cannot be
	// recognized: empty engine URL, unknown engine scheme, or an unknown
	// isolation level.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrModelNotFound is returned by Get when no row matches the given
	// primary key.
	ErrModelNotFound = errors.New("model not found")

	// ErrInvalidModel is returned when a repository is built for a type
	// that is not a mapped struct or has no usable primary key.
	ErrInvalidModel = errors.New("invalid model")

	// ErrCompositePrimaryKey is returned when a mapped type declares more
	// than one primary key column. Composite keys are not supported and
	// the repository never silently picks one column.
	ErrCompositePrimaryKey = errors.New("composite primary keys are not supported")

	// ErrUnmappedProperty is returned when a filter or ordering key is not
	// a mapped column of the repository's model.
	ErrUnmappedProperty = errors.New("unmapped property")

	// ErrCursorTypeMismatch is returned when a cursor value's runtime type
	// differs from the type of the column it is compared against.
	ErrCursorTypeMismatch = errors.New("cursor type mismatch")

	// ErrRepositoryNotFound is returned by unit-of-work lookups for names
	// that were never registered.
	ErrRepositoryNotFound = errors.New("repository not registered in this unit of work")

	// ErrNoActiveTransaction is returned when a repository bound to a unit
	// of work is invoked outside an open transaction block. Transaction
	// boundaries are always explicit for unit-of-work repositories.
	ErrNoActiveTransaction = errors.New("no active transaction")
)
