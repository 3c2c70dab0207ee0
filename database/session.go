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
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/uptrace/bun"
)

type sessionState int

const (
	sessionActive sessionState = iota
	sessionCommitted
	sessionRolledBack
	sessionClosed
)

// Session is a unit-of-work-scoped handle to one database conversation.
// It begins when acquired and ends exactly once, with a commit or a
// rollback, when the owning scope exits. Sessions are not safe for
// concurrent use; the scoping in SessionHandler guarantees one session per
// logical execution context.
type Session struct {
	mu     sync.Mutex
	tx     bun.Tx
	state  sessionState
	tasks  *TaskRegistry // non-nil only for sessions of async binds
	logger Logger
}

func newSession(tx bun.Tx, tasks *TaskRegistry, logger Logger) *Session {
	s := &Session{
		tx:     tx,
		state:  sessionActive,
		tasks:  tasks,
		logger: logger,
	}
	// Safety net for sessions that escape their scope without Close.
	runtime.SetFinalizer(s, (*Session).finalize)
	return s
}

// DB exposes the transactional query surface of the session.
func (s *Session) DB() bun.IDB { return s.tx }

// Commit ends the session successfully. On commit failure the session is
// rolled back and the original commit error is returned; a rollback
// failure is joined in rather than replacing it.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != sessionActive {
		return fmt.Errorf("cannot commit session in state %d", s.state)
	}
	if err := s.tx.Commit(); err != nil {
		s.state = sessionRolledBack
		if rbErr := s.tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	s.state = sessionCommitted
	return nil
}

// Rollback discards the session's pending changes. Rolling back an
// already-ended session is a no-op.
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollbackLocked()
}

func (s *Session) rollbackLocked() error {
	if s.state != sessionActive {
		return nil
	}
	s.state = sessionRolledBack
	return s.tx.Rollback()
}

// Close releases the session on every exit path. A still-active session
// is rolled back. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == sessionClosed {
		return nil
	}
	err := s.rollbackLocked()
	s.state = sessionClosed
	runtime.SetFinalizer(s, nil)
	return err
}

// finalize is the garbage-collection safety net. Sessions of async binds
// hand their release to the task registry, which runs it in a tracked
// background task while the registry is live and synchronously once it has
// shut down. Blocking-bind sessions release inline. Failures are logged
// and suppressed; a finalizer must never panic.
func (s *Session) finalize() {
	s.mu.Lock()
	if s.state == sessionClosed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Warn("Session was garbage collected without being closed")
	}
	if s.tasks != nil {
		s.tasks.Submit("session-release", s.discard)
		return
	}
	if err := s.discard(); err != nil && s.logger != nil {
		s.logger.Error("Failed to release leaked session", "error", err)
	}
}

func (s *Session) discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.rollbackLocked()
	s.state = sessionClosed
	return err
}
