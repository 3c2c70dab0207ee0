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
	"fmt"
	"sync"
)

// TaskRegistry tracks fire-and-forget release tasks for async binds. It is
// owned by the bind manager's lifecycle: tasks submitted while the
// registry is live run in background goroutines and are held in a tracked
// set until completion; after Shutdown, submissions run synchronously in
// the caller so nothing is ever dropped.
type TaskRegistry struct {
	logger Logger

	mu      sync.Mutex
	wg      sync.WaitGroup
	pending map[uint64]string
	nextID  uint64
	closed  bool
}

// NewTaskRegistry returns a live registry.
func NewTaskRegistry(logger Logger) *TaskRegistry {
	return &TaskRegistry{
		logger:  logger,
		pending: make(map[uint64]string),
	}
}

// Submit schedules fn as a tracked background task. Once the registry has
// shut down fn runs synchronously instead. Task failures are logged, never
// raised: submission happens on release paths that must not fail.
func (r *TaskRegistry) Submit(name string, fn func() error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.runTask(name, fn)
		return
	}
	id := r.nextID
	r.nextID++
	r.pending[id] = name
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.pending, id)
			r.mu.Unlock()
			r.wg.Done()
		}()
		r.runTask(name, fn)
	}()
}

func (r *TaskRegistry) runTask(name string, fn func() error) {
	if err := fn(); err != nil && r.logger != nil {
		r.logger.Error("Background task failed", "task", name, "error", err)
	}
}

// Pending returns the number of tracked tasks still running.
func (r *TaskRegistry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Shutdown stops accepting background tasks and waits for the outstanding
// ones to finish, bounded by ctx.
func (r *TaskRegistry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("task registry shutdown interrupted with %d pending tasks: %w", r.Pending(), ctx.Err())
	}
}
