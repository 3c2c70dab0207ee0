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

	"github.com/uptrace/bun"
)

// SessionProvider hands out transactional sessions scoped to an operation.
// It is implemented by SessionHandler and AsyncSessionHandler; the variant
// is selected once, at construction, against the bind variant.
type SessionProvider interface {
	// DB returns the engine the provider's sessions derive from.
	DB() *bun.DB

	// Run acquires a session for the duration of fn. The session is
	// committed on normal exit unless readOnly, rolled back when fn
	// returns an error (the original error is returned unchanged), and
	// always closed. When the incoming context already carries a session
	// of this provider, fn runs inside it and the outer scope keeps
	// ownership of commit and release.
	Run(ctx context.Context, readOnly bool, fn func(ctx context.Context, session *Session) error) error

	// Current returns the session carried by ctx for this provider, if any.
	Current(ctx context.Context) (*Session, bool)
}

// sessionScope implements the shared scoping discipline: one session per
// logical execution context, carried in the context chain. Concurrent
// goroutines with independent contexts never share a session; nested calls
// under the same context reuse it.
type sessionScope struct {
	bind   internalBind
	logger Logger
}

type sessionScopeKey struct{ scope *sessionScope }

func (s *sessionScope) DB() *bun.DB { return s.bind.DB() }

func (s *sessionScope) Current(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionScopeKey{scope: s}).(*Session)
	return session, ok
}

func (s *sessionScope) Run(ctx context.Context, readOnly bool, fn func(ctx context.Context, session *Session) error) error {
	if session, ok := s.Current(ctx); ok {
		return fn(ctx, session)
	}

	session, err := s.bind.openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil && s.logger != nil {
			s.logger.Warn("Failed to close session", "error", closeErr)
		}
	}()

	ctx = context.WithValue(ctx, sessionScopeKey{scope: s}, session)
	if err := fn(ctx, session); err != nil {
		if rbErr := session.Rollback(); rbErr != nil && s.logger != nil {
			s.logger.Error("Rollback failed after operation error", "error", rbErr)
		}
		return err
	}

	if readOnly {
		return nil
	}
	return s.Commit(session)
}

// Commit commits the session; on failure it rolls back and returns the
// original commit error (with any rollback failure joined in).
func (s *sessionScope) Commit(session *Session) error {
	return session.Commit()
}

// SessionHandler provides sessions for blocking binds. Session release is
// always synchronous.
type SessionHandler struct {
	sessionScope
}

// NewSessionHandler builds a handler for a blocking bind. Handing it an
// async bind is an ErrUnsupportedBind.
func NewSessionHandler(bind Bind) (*SessionHandler, error) {
	internal, ok := bind.(internalBind)
	if !ok || bind.IsAsync() {
		return nil, errUnsupportedBind(bind, "blocking")
	}
	return &SessionHandler{sessionScope{bind: internal, logger: GetLogger()}}, nil
}

// AsyncSessionHandler provides sessions for async binds. Leaked sessions
// are released through the bind's task registry rather than synchronously.
type AsyncSessionHandler struct {
	sessionScope
}

// NewAsyncSessionHandler builds a handler for an async bind. Handing it a
// blocking bind is an ErrUnsupportedBind.
func NewAsyncSessionHandler(bind Bind) (*AsyncSessionHandler, error) {
	internal, ok := bind.(internalBind)
	if !ok || !bind.IsAsync() {
		return nil, errUnsupportedBind(bind, "async")
	}
	return &AsyncSessionHandler{sessionScope{bind: internal, logger: GetLogger()}}, nil
}

// NewHandler selects the session handler variant matching the bind
// variant, so the choice is made exactly once.
func NewHandler(bind Bind) (SessionProvider, error) {
	if bind.IsAsync() {
		return NewAsyncSessionHandler(bind)
	}
	return NewSessionHandler(bind)
}

func errUnsupportedBind(bind Bind, want string) error {
	name := "<nil>"
	if bind != nil {
		name = bind.Name()
	}
	return fmt.Errorf("%w: bind %q is not a %s bind", ErrUnsupportedBind, name, want)
}
