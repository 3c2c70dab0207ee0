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
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/tomoncle/sqlbind/database"
	"github.com/tomoncle/sqlbind/types"
)

type book struct {
	bun.BaseModel `bun:"table:books"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Title string `bun:"title,notnull"`
	Genre string `bun:"genre,notnull,default:''"`
	ISBN  string `bun:"isbn,unique,nullzero"`
	Pages int    `bun:"pages,notnull,default:0"`
}

var memDBCounter atomic.Int64

// openBind creates a bind on a process-unique shared-cache in-memory
// database with the books table ready.
func openBind(t *testing.T) database.Bind {
	t.Helper()
	engineURL := fmt.Sprintf("file:repotest%d?mode=memory&cache=shared", memDBCounter.Add(1))
	manager, err := database.NewDefaultBindManager(database.BindConfig{EngineURL: engineURL})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close(context.Background()) })

	bind, err := manager.GetDefaultBind()
	require.NoError(t, err)

	_, err = bind.DB().NewCreateTable().Model((*book)(nil)).Exec(context.Background())
	require.NoError(t, err)
	return bind
}

func openRepository(t *testing.T) Repository[book] {
	t.Helper()
	repo, err := New[book](openBind(t))
	require.NoError(t, err)
	return repo
}

func seedBooks(t *testing.T, repo Repository[book], books ...*book) []*book {
	t.Helper()
	saved, err := repo.SaveMany(context.Background(), books)
	require.NoError(t, err)
	return saved
}

func TestRepositoryPrimaryKey(t *testing.T) {
	repo := openRepository(t)
	assert.Equal(t, "id", repo.PrimaryKey())
}

func TestRepositorySaveAndGet(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, &book{Title: "Dune", Genre: "scifi"})
	require.NoError(t, err)
	require.NotZero(t, saved.ID)

	loaded, err := repo.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", loaded.Title)
	assert.Equal(t, "scifi", loaded.Genre)
}

func TestRepositoryGetNotFound(t *testing.T) {
	repo := openRepository(t)

	_, err := repo.Get(context.Background(), int64(12345))
	require.ErrorIs(t, err, database.ErrModelNotFound)
}

func TestRepositoryGetMany(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()
	saved := seedBooks(t, repo,
		&book{Title: "A"},
		&book{Title: "B"},
		&book{Title: "C"},
	)

	t.Run("missing ids are skipped", func(t *testing.T) {
		loaded, err := repo.GetMany(ctx, []interface{}{saved[0].ID, saved[2].ID, int64(999)})
		require.NoError(t, err)
		assert.Len(t, loaded, 2)
	})

	t.Run("no ids means no query", func(t *testing.T) {
		loaded, err := repo.GetMany(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, loaded)
	})
}

func TestRepositorySaveManyIsAtomic(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()

	_, err := repo.Save(ctx, &book{Title: "First", ISBN: "isbn-1"})
	require.NoError(t, err)

	// The duplicate ISBN fails the whole group, so the fresh title must
	// not survive either.
	_, err = repo.SaveMany(ctx, []*book{
		{Title: "Fresh", ISBN: "isbn-2"},
		{Title: "Duplicate", ISBN: "isbn-1"},
	})
	require.Error(t, err)

	all, err := repo.Find(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepositorySaveNilInstance(t *testing.T) {
	repo := openRepository(t)

	_, err := repo.Save(context.Background(), nil)
	require.ErrorIs(t, err, database.ErrInvalidModel)

	_, err = repo.SaveMany(context.Background(), []*book{{Title: "ok"}, nil})
	require.ErrorIs(t, err, database.ErrInvalidModel)
}

func TestRepositoryUpdate(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, &book{Title: "Draft"})
	require.NoError(t, err)

	saved.Title = "Final"
	require.NoError(t, repo.Update(ctx, saved))

	loaded, err := repo.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", loaded.Title)
}

func TestRepositoryDelete(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()
	saved := seedBooks(t, repo, &book{Title: "A"}, &book{Title: "B"}, &book{Title: "C"})

	require.NoError(t, repo.Delete(ctx, saved[0]))
	_, err := repo.Get(ctx, saved[0].ID)
	require.ErrorIs(t, err, database.ErrModelNotFound)

	require.NoError(t, repo.DeleteMany(ctx, saved[1:]))
	all, err := repo.Find(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRepositoryFind(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()
	seedBooks(t, repo,
		&book{Title: "Dune", Genre: "scifi", Pages: 400},
		&book{Title: "Neuromancer", Genre: "scifi", Pages: 300},
		&book{Title: "Emma", Genre: "classic", Pages: 500},
	)

	t.Run("filters combine with AND", func(t *testing.T) {
		found, err := repo.Find(ctx, types.SearchParams{"genre": "scifi", "pages": 300})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Neuromancer", found[0].Title)
	})

	t.Run("ordering", func(t *testing.T) {
		found, err := repo.Find(ctx, types.SearchParams{"genre": "scifi"}, types.Desc("pages"))
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "Dune", found[0].Title)
		assert.Equal(t, "Neuromancer", found[1].Title)
	})

	t.Run("no match yields empty slice", func(t *testing.T) {
		found, err := repo.Find(ctx, types.SearchParams{"genre": "horror"})
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Empty(t, found)
	})

	t.Run("unmapped filter column", func(t *testing.T) {
		_, err := repo.Find(ctx, types.SearchParams{"publisher": "x"})
		require.ErrorIs(t, err, database.ErrUnmappedProperty)
	})

	t.Run("unmapped order column", func(t *testing.T) {
		_, err := repo.Find(ctx, nil, types.Asc("publisher"))
		require.ErrorIs(t, err, database.ErrUnmappedProperty)
	})

	t.Run("invalid sort direction", func(t *testing.T) {
		_, err := repo.Find(ctx, nil, types.OrderBy{Column: "pages", Direction: "SIDEWAYS"})
		require.Error(t, err)
	})
}

func TestRepositoryPaginatedFind(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()
	seedBooks(t, repo,
		&book{Title: "A"}, &book{Title: "B"}, &book{Title: "C"},
		&book{Title: "D"}, &book{Title: "E"},
	)

	t.Run("first page", func(t *testing.T) {
		result, err := repo.PaginatedFind(ctx, 1, 2, nil, types.Asc("id"))
		require.NoError(t, err)
		assert.Len(t, result.Items, 2)
		assert.Equal(t, types.PageInfo{
			Page: 1, ItemsPerPage: 2, TotalPages: 3, TotalItems: 5, HasNextPage: true,
		}, result.PageInfo)
	})

	t.Run("last partial page", func(t *testing.T) {
		result, err := repo.PaginatedFind(ctx, 3, 2, nil, types.Asc("id"))
		require.NoError(t, err)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, "E", result.Items[0].Title)
		assert.True(t, result.PageInfo.HasPreviousPage)
		assert.False(t, result.PageInfo.HasNextPage)
	})

	t.Run("page past the end", func(t *testing.T) {
		result, err := repo.PaginatedFind(ctx, 9, 2, nil)
		require.NoError(t, err)
		assert.Empty(t, result.Items)
		assert.Equal(t, 0, result.PageInfo.Page)
		assert.Equal(t, 3, result.PageInfo.TotalPages)
		assert.Equal(t, 5, result.PageInfo.TotalItems)
	})

	t.Run("oversized page size is clamped", func(t *testing.T) {
		result, err := repo.PaginatedFind(ctx, 1, 100000, nil)
		require.NoError(t, err)
		assert.Len(t, result.Items, 5)
		assert.Equal(t, types.MaxQueryLimit, result.PageInfo.ItemsPerPage)
	})

	t.Run("zero page size still counts", func(t *testing.T) {
		result, err := repo.PaginatedFind(ctx, 1, 0, nil)
		require.NoError(t, err)
		assert.Empty(t, result.Items)
		assert.Equal(t, 5, result.PageInfo.TotalItems)
		assert.Equal(t, 0, result.PageInfo.TotalPages)
	})

	t.Run("filters restrict the count", func(t *testing.T) {
		result, err := repo.PaginatedFind(ctx, 1, 2, types.SearchParams{"title": "A"})
		require.NoError(t, err)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 1, result.PageInfo.TotalItems)
	})
}

func TestRepositoryCursorPaginatedFind(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()
	saved := seedBooks(t, repo,
		&book{Title: "A"}, &book{Title: "B"}, &book{Title: "C"}, &book{Title: "D"},
	)
	id := func(i int) int64 { return saved[i].ID }

	t.Run("no cursor starts ascending from the beginning", func(t *testing.T) {
		result, err := repo.CursorPaginatedFind(ctx, 2, nil, false, nil)
		require.NoError(t, err)
		require.Len(t, result.Items, 2)
		assert.Equal(t, "A", result.Items[0].Title)
		assert.Equal(t, "B", result.Items[1].Title)
		assert.True(t, result.PageInfo.HasNextPage)
		assert.False(t, result.PageInfo.HasPreviousPage)
		require.NotNil(t, result.PageInfo.StartCursor)
		assert.Equal(t, "id", result.PageInfo.StartCursor.Column)
		assert.EqualValues(t, id(0), result.PageInfo.StartCursor.Value)
		assert.EqualValues(t, id(1), result.PageInfo.EndCursor.Value)
		assert.Equal(t, 4, result.PageInfo.TotalItems)
	})

	t.Run("after cursor excludes the cursor row", func(t *testing.T) {
		cursor := &types.CursorReference{Column: "id", Value: id(1)}
		result, err := repo.CursorPaginatedFind(ctx, 2, cursor, false, nil)
		require.NoError(t, err)
		require.Len(t, result.Items, 2)
		assert.Equal(t, "C", result.Items[0].Title)
		assert.Equal(t, "D", result.Items[1].Title)
		assert.False(t, result.PageInfo.HasNextPage)
		assert.True(t, result.PageInfo.HasPreviousPage)
	})

	t.Run("before cursor returns ascending items", func(t *testing.T) {
		cursor := &types.CursorReference{Column: "id", Value: id(2)}
		result, err := repo.CursorPaginatedFind(ctx, 2, cursor, true, nil)
		require.NoError(t, err)
		require.Len(t, result.Items, 2)
		assert.Equal(t, "A", result.Items[0].Title)
		assert.Equal(t, "B", result.Items[1].Title)
		assert.True(t, result.PageInfo.HasNextPage)
		assert.False(t, result.PageInfo.HasPreviousPage)
	})

	t.Run("after the last row yields empty window with previous flag", func(t *testing.T) {
		cursor := &types.CursorReference{Column: "id", Value: id(3)}
		result, err := repo.CursorPaginatedFind(ctx, 2, cursor, false, nil)
		require.NoError(t, err)
		assert.Empty(t, result.Items)
		assert.False(t, result.PageInfo.HasNextPage)
		assert.True(t, result.PageInfo.HasPreviousPage)
		assert.Nil(t, result.PageInfo.StartCursor)
		assert.Equal(t, 4, result.PageInfo.TotalItems)
	})

	t.Run("before the first row yields empty window with next flag", func(t *testing.T) {
		cursor := &types.CursorReference{Column: "id", Value: id(0)}
		result, err := repo.CursorPaginatedFind(ctx, 2, cursor, true, nil)
		require.NoError(t, err)
		assert.Empty(t, result.Items)
		assert.True(t, result.PageInfo.HasNextPage)
		assert.False(t, result.PageInfo.HasPreviousPage)
	})

	t.Run("window smaller than remainder sets the forward flag", func(t *testing.T) {
		cursor := &types.CursorReference{Column: "id", Value: id(0)}
		result, err := repo.CursorPaginatedFind(ctx, 2, cursor, false, nil)
		require.NoError(t, err)
		require.Len(t, result.Items, 2)
		assert.True(t, result.PageInfo.HasNextPage)
		assert.True(t, result.PageInfo.HasPreviousPage)
	})

	t.Run("cursor on a non-key column", func(t *testing.T) {
		cursor := &types.CursorReference{Column: "title", Value: "B"}
		result, err := repo.CursorPaginatedFind(ctx, 10, cursor, false, nil)
		require.NoError(t, err)
		require.Len(t, result.Items, 2)
		assert.Equal(t, "C", result.Items[0].Title)
		assert.Equal(t, "D", result.Items[1].Title)
	})

	t.Run("search filters shape the window and the total", func(t *testing.T) {
		result, err := repo.CursorPaginatedFind(ctx, 10, nil, false, types.SearchParams{"title": "C"})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, 1, result.PageInfo.TotalItems)
	})

	t.Run("unmapped cursor column", func(t *testing.T) {
		cursor := &types.CursorReference{Column: "publisher", Value: "x"}
		_, err := repo.CursorPaginatedFind(ctx, 2, cursor, false, nil)
		require.ErrorIs(t, err, database.ErrUnmappedProperty)
	})

	t.Run("string cursor against numeric column is rejected", func(t *testing.T) {
		cursor := &types.CursorReference{Column: "id", Value: "2"}
		_, err := repo.CursorPaginatedFind(ctx, 2, cursor, false, nil)
		require.ErrorIs(t, err, database.ErrCursorTypeMismatch)
	})

	t.Run("numeric cursor against string column is rejected", func(t *testing.T) {
		cursor := &types.CursorReference{Column: "title", Value: 42}
		_, err := repo.CursorPaginatedFind(ctx, 2, cursor, false, nil)
		require.ErrorIs(t, err, database.ErrCursorTypeMismatch)
	})

	t.Run("nil cursor value is rejected", func(t *testing.T) {
		cursor := &types.CursorReference{Column: "id", Value: nil}
		_, err := repo.CursorPaginatedFind(ctx, 2, cursor, false, nil)
		require.ErrorIs(t, err, database.ErrCursorTypeMismatch)
	})
}

func TestRepositoriesReturnDistinctInstances(t *testing.T) {
	bind := openBind(t)
	first, err := New[book](bind)
	require.NoError(t, err)
	second, err := New[book](bind)
	require.NoError(t, err)

	ctx := context.Background()
	saved, err := first.Save(ctx, &book{Title: "Dune", Genre: "scifi"})
	require.NoError(t, err)

	fromFirst, err := first.Get(ctx, saved.ID)
	require.NoError(t, err)
	fromSecond, err := second.Get(ctx, saved.ID)
	require.NoError(t, err)

	// Same row, independent sessions: equal values, distinct instances.
	assert.NotSame(t, fromFirst, fromSecond)
	assert.Equal(t, *fromFirst, *fromSecond)
}

type compositeKeyModel struct {
	bun.BaseModel `bun:"table:composite_keys"`

	TenantID int64 `bun:"tenant_id,pk"`
	UserID   int64 `bun:"user_id,pk"`
}

type keylessModel struct {
	bun.BaseModel `bun:"table:keyless"`

	Name string `bun:"name"`
}

func TestRepositoryModelValidation(t *testing.T) {
	bind := openBind(t)

	t.Run("composite primary key", func(t *testing.T) {
		_, err := New[compositeKeyModel](bind)
		require.ErrorIs(t, err, database.ErrCompositePrimaryKey)
	})

	t.Run("missing primary key", func(t *testing.T) {
		_, err := New[keylessModel](bind)
		require.ErrorIs(t, err, database.ErrInvalidModel)
	})

	t.Run("non-struct entity type", func(t *testing.T) {
		_, err := New[int](bind)
		require.ErrorIs(t, err, database.ErrInvalidModel)
	})
}
