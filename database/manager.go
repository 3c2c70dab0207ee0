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
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/uptrace/bun/schema"
)

// BindManager is the registry of named binds. It is built once at startup
// from configuration, owns every bind's engine exclusively, and disposes
// them exactly once on Close.
type BindManager struct {
	binds     map[string]internalBind
	tasks     *TaskRegistry
	logger    Logger
	closeOnce sync.Once
}

// NewBindManager builds one bind per named configuration entry. Every
// configuration is validated before any engine is created, so a manager is
// never left half-initialized by a bad entry.
func NewBindManager(config *Config) (*BindManager, error) {
	if config == nil || len(config.Binds) == 0 {
		return nil, fmt.Errorf("%w: no bind configurations supplied", ErrInvalidConfig)
	}

	logger := GetLogger()
	manager := &BindManager{
		binds:  make(map[string]internalBind, len(config.Binds)),
		tasks:  NewTaskRegistry(logger),
		logger: logger,
	}

	names := make([]string, 0, len(config.Binds))
	for name := range config.Binds {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := config.Binds[name].withDefaults().validate(name); err != nil {
			return nil, err
		}
	}
	for _, name := range names {
		bind, err := newBind(name, config.Binds[name], manager.tasks, logger)
		if err != nil {
			_ = manager.Close(context.Background())
			return nil, err
		}
		manager.binds[name] = bind
		logger.Info("Bind initialized", "bind", name, "async", bind.IsAsync())
	}
	return manager, nil
}

// NewDefaultBindManager builds a manager holding a single bind registered
// under DefaultBindName.
func NewDefaultBindManager(config BindConfig) (*BindManager, error) {
	return NewBindManager(&Config{Binds: map[string]BindConfig{DefaultBindName: config}})
}

// GetBind returns the bind registered under name.
func (m *BindManager) GetBind(name string) (Bind, error) {
	bind, ok := m.binds[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotInitializedBind, name)
	}
	return bind, nil
}

// GetDefaultBind returns the bind registered under DefaultBindName.
func (m *BindManager) GetDefaultBind() (Bind, error) {
	return m.GetBind(DefaultBindName)
}

// GetBinds returns every registered bind keyed by name.
func (m *BindManager) GetBinds() map[string]Bind {
	binds := make(map[string]Bind, len(m.binds))
	for name, bind := range m.binds {
		binds[name] = bind
	}
	return binds
}

// GetBindMappersMetadata exposes the schema metadata of each bind's
// registered models, keyed by bind name, for external migration tooling.
func (m *BindManager) GetBindMappersMetadata() map[string][]*schema.Table {
	metadata := make(map[string][]*schema.Table, len(m.binds))
	for name, bind := range m.binds {
		metadata[name] = bind.Tables()
	}
	return metadata
}

// TaskRegistry returns the registry tracking background release tasks for
// the manager's async binds.
func (m *BindManager) TaskRegistry() *TaskRegistry {
	return m.tasks
}

// Close disposes every bind's engine exactly once. Outstanding background
// release tasks are drained first so no session release is lost, which
// also makes async-bind disposal safe from any caller.
func (m *BindManager) Close(ctx context.Context) error {
	var errs []error
	m.closeOnce.Do(func() {
		if err := m.tasks.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		for _, bind := range m.binds {
			if err := bind.dispose(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
