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

// CursorReference marks a position in a specific ordering: the value of
// Column on the row the window starts after (or ends before).
//
// Value must carry the same runtime type as the column it is compared
// against. Numeric cursors against string columns (and vice versa) are
// rejected rather than coerced, since "9" > "10" while 9 < 10.
type CursorReference struct {
	Column string      `json:"column"`
	Value  interface{} `json:"value"`
}

// CursorPageInfo holds cursor pagination metadata. StartCursor and
// EndCursor are nil when the page is empty.
type CursorPageInfo struct {
	ItemsPerPage    int              `json:"items_per_page"`
	TotalItems      int              `json:"total_items"`
	HasNextPage     bool             `json:"has_next_page"`
	HasPreviousPage bool             `json:"has_previous_page"`
	StartCursor     *CursorReference `json:"start_cursor,omitempty"`
	EndCursor       *CursorReference `json:"end_cursor,omitempty"`
}

// CursorPaginatedResult holds one cursor window of items along with
// cursor pagination metadata. Items are always in ascending order of the
// cursor column, regardless of the direction the window was requested in.
type CursorPaginatedResult[T any] struct {
	Items    []*T           `json:"items"`
	PageInfo CursorPageInfo `json:"page_info"`
}
