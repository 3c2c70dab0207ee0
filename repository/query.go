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
	"fmt"
	"sort"

	"github.com/uptrace/bun"

	"github.com/tomoncle/sqlbind/database"
	"github.com/tomoncle/sqlbind/types"
)

// validateSearch checks every search key against the mapped columns, so a
// typo fails the operation before any query runs.
func (r *sqlRepository[T]) validateSearch(search types.SearchParams) error {
	for column := range search {
		if _, err := r.lookupField(column); err != nil {
			return err
		}
	}
	return nil
}

// validateOrdering checks order columns and directions before any query runs.
func (r *sqlRepository[T]) validateOrdering(orderBy []types.OrderBy) error {
	for _, order := range orderBy {
		if _, err := r.lookupField(order.Column); err != nil {
			return err
		}
		if !order.Direction.Valid() {
			return fmt.Errorf("%w: invalid sort direction %q for column %q",
				database.ErrUnmappedProperty, order.Direction, order.Column)
		}
	}
	return nil
}

// applyFilters adds exact-match WHERE clauses for the search params. Keys
// are applied in sorted order so generated SQL is deterministic.
func (r *sqlRepository[T]) applyFilters(q *bun.SelectQuery, search types.SearchParams) *bun.SelectQuery {
	columns := make([]string, 0, len(search))
	for column := range search {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	for _, column := range columns {
		q = q.Where("? = ?", bun.Ident(column), search[column])
	}
	return q
}

// applyOrdering adds ORDER BY clauses in the given column order.
func (r *sqlRepository[T]) applyOrdering(q *bun.SelectQuery, orderBy []types.OrderBy) *bun.SelectQuery {
	for _, order := range orderBy {
		if order.Direction == types.SortDESC {
			q = q.OrderExpr("? DESC", bun.Ident(order.Column))
		} else {
			q = q.OrderExpr("? ASC", bun.Ident(order.Column))
		}
	}
	return q
}

// countQuery builds the total-count query. It carries the search filters
// but never ordering or window bounds, so the total is the size of the
// whole filtered set.
func (r *sqlRepository[T]) countQuery(db bun.IDB, search types.SearchParams) *bun.SelectQuery {
	return r.applyFilters(db.NewSelect().Model((*T)(nil)), search)
}
