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

package types

import (
	"math"

	"github.com/samber/lo"
)

// BuildPaginatedResult turns a fetched page of rows plus a total count into
// a PaginatedResult. It performs no I/O.
//
// itemsPerPage must already be clamped by the caller; it is reported as-is.
// A page request beyond the last page yields an empty item list and reports
// page 0, the same as an empty result set.
func BuildPaginatedResult[T any](items []*T, totalItems int, page int, itemsPerPage int) *PaginatedResult[T] {
	totalPages := 0
	if totalItems > 0 && itemsPerPage > 0 {
		totalPages = int(math.Ceil(float64(totalItems) / float64(itemsPerPage)))
	}

	effectivePage := 0
	if len(items) > 0 {
		effectivePage = min(page, totalPages)
	}

	if items == nil {
		items = make([]*T, 0)
	}
	return &PaginatedResult[T]{
		Items: items,
		PageInfo: PageInfo{
			Page:            effectivePage,
			ItemsPerPage:    itemsPerPage,
			TotalPages:      totalPages,
			TotalItems:      totalItems,
			HasNextPage:     effectivePage != 0 && effectivePage < totalPages,
			HasPreviousPage: effectivePage != 0 && effectivePage > 1,
		},
	}
}

// BuildCursorPaginatedResult turns an over-fetched row window into a
// CursorPaginatedResult. It performs no I/O.
//
// items must contain up to itemsPerPage+1 rows fetched strictly beyond the
// cursor, ordered in the direction of the fetch (ascending for "after" and
// for the first page, descending for "before"). The extra row, when
// present, signals more data in the fetch direction and is trimmed off.
// hasRowAtCursor is the result of a separate existence check for rows
// at-or-before (resp. at-or-after) the cursor; it drives the
// opposite-direction flag. column and valueOf describe the ordering column
// used to build the start/end cursors of the returned window.
func BuildCursorPaginatedResult[T any](
	items []*T,
	totalItems int,
	itemsPerPage int,
	cursorReference *CursorReference,
	isBeforeCursor bool,
	hasRowAtCursor bool,
	column string,
	valueOf func(*T) interface{},
) *CursorPaginatedResult[T] {
	result := &CursorPaginatedResult[T]{
		Items: make([]*T, 0),
		PageInfo: CursorPageInfo{
			ItemsPerPage: itemsPerPage,
			TotalItems:   totalItems,
		},
	}

	hasMore := len(items) > itemsPerPage
	if hasMore {
		items = items[:itemsPerPage]
	}

	if cursorReference == nil {
		// First page: nothing can precede it.
		result.PageInfo.HasNextPage = hasMore
		result.PageInfo.HasPreviousPage = false
	} else if isBeforeCursor {
		result.PageInfo.HasPreviousPage = hasMore
		result.PageInfo.HasNextPage = hasRowAtCursor
		items = lo.Reverse(items)
	} else {
		result.PageInfo.HasNextPage = hasMore
		result.PageInfo.HasPreviousPage = hasRowAtCursor
	}

	if len(items) == 0 {
		return result
	}

	result.Items = items
	result.PageInfo.StartCursor = &CursorReference{
		Column: column,
		Value:  valueOf(items[0]),
	}
	result.PageInfo.EndCursor = &CursorReference{
		Column: column,
		Value:  valueOf(items[len(items)-1]),
	}
	return result
}
