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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionCommitEndsSession(t *testing.T) {
	bind, mock := mockedBind(t, false)
	mock.ExpectBegin()
	mock.ExpectCommit()

	session, err := bind.openSession(context.Background())
	require.NoError(t, err)

	require.NoError(t, session.Commit())
	require.Error(t, session.Commit())
	require.NoError(t, session.Rollback())
	require.NoError(t, session.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionCommitFailureEndsSession(t *testing.T) {
	bind, mock := mockedBind(t, false)
	commitErr := errors.New("commit refused")
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(commitErr)

	session, err := bind.openSession(context.Background())
	require.NoError(t, err)

	err = session.Commit()
	require.ErrorIs(t, err, commitErr)

	// database/sql finishes the transaction on Commit regardless of the
	// driver result, so no rollback statement ever reaches the driver and
	// the session cannot be committed again.
	require.Error(t, session.Commit())
	require.NoError(t, session.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionCloseRollsBackActiveSession(t *testing.T) {
	bind, mock := mockedBind(t, false)
	mock.ExpectBegin()
	mock.ExpectRollback()

	session, err := bind.openSession(context.Background())
	require.NoError(t, err)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionDiscardReleasesActiveSession(t *testing.T) {
	bind, mock := mockedBind(t, false)
	mock.ExpectBegin()
	mock.ExpectRollback()

	session, err := bind.openSession(context.Background())
	require.NoError(t, err)

	require.NoError(t, session.discard())
	require.NoError(t, session.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}
