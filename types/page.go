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

// MaxQueryLimit is the hard upper bound applied to every page size.
// Requested values outside [0, MaxQueryLimit] are clamped before use and
// the clamped value is the one reported back in page metadata.
const MaxQueryLimit = 50

// ClampLimit normalizes a requested page size into the [0, max] range.
func ClampLimit(limit int, max int) int {
	if limit > max {
		return max
	}
	if limit < 0 {
		return 0
	}
	return limit
}

// SearchParams maps column names to exact-match filter values. All entries
// are combined with AND.
type SearchParams map[string]interface{}

// SortDirection defines the sort direction for an ordering column.
type SortDirection string

const (
	SortASC  SortDirection = "ASC"
	SortDESC SortDirection = "DESC"
)

func (d SortDirection) Valid() bool {
	return d == SortASC || d == SortDESC
}

// OrderBy pairs an ordering column with its direction.
type OrderBy struct {
	Column    string
	Direction SortDirection
}

// Asc orders by the given column ascending.
func Asc(column string) OrderBy {
	return OrderBy{Column: column, Direction: SortASC}
}

// Desc orders by the given column descending.
func Desc(column string) OrderBy {
	return OrderBy{Column: column, Direction: SortDESC}
}

// PageInfo holds offset pagination metadata.
//
// Page is 0 when the result set is empty, otherwise it is the requested
// page capped at the last existing page.
type PageInfo struct {
	Page            int  `json:"page"`
	ItemsPerPage    int  `json:"items_per_page"`
	TotalPages      int  `json:"total_pages"`
	TotalItems      int  `json:"total_items"`
	HasNextPage     bool `json:"has_next_page"`
	HasPreviousPage bool `json:"has_previous_page"`
}

// PaginatedResult holds one page of items along with pagination metadata.
type PaginatedResult[T any] struct {
	Items    []*T     `json:"items"`
	PageInfo PageInfo `json:"page_info"`
}
