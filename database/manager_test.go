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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type appSetting struct {
	bun.BaseModel `bun:"table:app_settings"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Name  string `bun:"name,notnull"`
	Value string `bun:"value"`
}

func sqliteConfig(t *testing.T) BindConfig {
	t.Helper()
	return BindConfig{EngineURL: "sqlite://" + filepath.Join(t.TempDir(), "test.db")}
}

func TestNewBindManagerRejectsEmptyConfig(t *testing.T) {
	_, err := NewBindManager(nil)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewBindManager(&Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewBindManagerRejectsAnyInvalidBind(t *testing.T) {
	config := &Config{Binds: map[string]BindConfig{
		"good": sqliteConfig(t),
		"bad":  {EngineURL: "oracle://host/db"},
	}}
	_, err := NewBindManager(config)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBindManagerLookup(t *testing.T) {
	manager, err := NewDefaultBindManager(sqliteConfig(t))
	require.NoError(t, err)
	defer func() { _ = manager.Close(context.Background()) }()

	bind, err := manager.GetDefaultBind()
	require.NoError(t, err)
	assert.Equal(t, DefaultBindName, bind.Name())
	assert.False(t, bind.IsAsync())
	assert.NotNil(t, bind.DB())

	_, err = manager.GetBind("missing")
	require.ErrorIs(t, err, ErrNotInitializedBind)

	assert.Len(t, manager.GetBinds(), 1)
	assert.NotNil(t, manager.TaskRegistry())
}

func TestBindManagerMultipleBinds(t *testing.T) {
	config := &Config{Binds: map[string]BindConfig{
		"primary":   sqliteConfig(t),
		"reporting": {EngineURL: "sqlite://" + filepath.Join(t.TempDir(), "reports.db"), Async: true},
	}}
	manager, err := NewBindManager(config)
	require.NoError(t, err)
	defer func() { _ = manager.Close(context.Background()) }()

	primary, err := manager.GetBind("primary")
	require.NoError(t, err)
	assert.False(t, primary.IsAsync())

	reporting, err := manager.GetBind("reporting")
	require.NoError(t, err)
	assert.True(t, reporting.IsAsync())
}

func TestBindManagerMappersMetadata(t *testing.T) {
	manager, err := NewDefaultBindManager(sqliteConfig(t))
	require.NoError(t, err)
	defer func() { _ = manager.Close(context.Background()) }()

	bind, err := manager.GetDefaultBind()
	require.NoError(t, err)
	bind.RegisterModels((*appSetting)(nil))

	metadata := manager.GetBindMappersMetadata()
	require.Len(t, metadata[DefaultBindName], 1)
	assert.Equal(t, "app_settings", metadata[DefaultBindName][0].Name)
}

func TestBindManagerCloseIsIdempotent(t *testing.T) {
	manager, err := NewDefaultBindManager(sqliteConfig(t))
	require.NoError(t, err)

	require.NoError(t, manager.Close(context.Background()))
	require.NoError(t, manager.Close(context.Background()))
}
