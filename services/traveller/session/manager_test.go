// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/traveller/services/traveller/command"
	"github.com/AleutianAI/traveller/services/traveller/storage/badger"
)

func openStore(t *testing.T) *badger.Store {
	t.Helper()
	store, err := badger.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func heroVillainCommands() []command.Command {
	return []command.Command{
		command.Roads(
			command.RoadParams{From: "A", To: "B"},
			command.RoadParams{From: "B", To: "C"},
		),
		command.Place("Hero", "A"),
		command.Place("Villain", "B"),
	}
}

func mustExec(t *testing.T, m *Manager, id string, cmds ...command.Command) {
	t.Helper()
	for _, cmd := range cmds {
		resp, err := m.Exec(context.Background(), id, cmd)
		require.NoError(t, err)
		require.True(t, resp.OK, "command %s failed: %s", cmd.Command, resp.Error)
	}
}

func TestManager_Create(t *testing.T) {
	m := NewManager(nil)

	s, err := m.Create(context.Background(), "  alice ")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, "alice", s.Username())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Create(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidUsername)
}

func TestManager_MaxSessions(t *testing.T) {
	m := NewManager(nil, WithMaxSessions(1))

	_, err := m.Create(context.Background(), "alice")
	require.NoError(t, err)

	_, err = m.Create(context.Background(), "bob")
	assert.ErrorIs(t, err, ErrTooManySessions)
	assert.Equal(t, 1, m.Len())
}

func TestManager_Get_Unknown(t *testing.T) {
	m := NewManager(nil)
	_, err := m.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.Exec(context.Background(), "nope", command.Place("Hero", "A"))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_Exec(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)
	s, err := m.Create(ctx, "alice")
	require.NoError(t, err)

	mustExec(t, m, s.ID(), heroVillainCommands()...)

	t.Run("blocked passage", func(t *testing.T) {
		resp, err := m.Exec(ctx, s.ID(), command.PassageSafe("Hero", "C"))
		require.NoError(t, err)
		require.NotNil(t, resp.Safe)
		assert.False(t, *resp.Safe)
	})

	t.Run("occupied destination is reachable", func(t *testing.T) {
		resp, err := m.Exec(ctx, s.ID(), command.PassageSafe("Hero", "B"))
		require.NoError(t, err)
		require.NotNil(t, resp.Safe)
		assert.True(t, *resp.Safe)
		assert.Equal(t, []string{"A", "B"}, resp.Route)
	})

	t.Run("protocol error is returned", func(t *testing.T) {
		_, err := m.Exec(ctx, s.ID(), command.Roads(command.RoadParams{From: "X", To: "Y"}))
		assert.ErrorIs(t, err, command.ErrNetworkExists)
	})

	t.Run("domain failure is a response", func(t *testing.T) {
		resp, err := m.Exec(ctx, s.ID(), command.Place("Ghost", "Nowhere"))
		require.NoError(t, err)
		assert.False(t, resp.OK)
		assert.Equal(t, command.CodeNotFound, resp.Code)
	})

	sum := s.Summary()
	assert.Equal(t, uint64(6), sum.Commands, "accepted commands only")
	assert.Equal(t, 3, sum.Towns)
	assert.Equal(t, 2, sum.Roads)
	assert.Equal(t, 2, sum.Characters)
}

func TestManager_RateLimit(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil, WithRateLimit(0.001, 2))
	s, err := m.Create(ctx, "alice")
	require.NoError(t, err)

	cmds := heroVillainCommands()
	_, err = m.Exec(ctx, s.ID(), cmds[0])
	require.NoError(t, err)
	_, err = m.Exec(ctx, s.ID(), cmds[1])
	require.NoError(t, err)

	_, err = m.Exec(ctx, s.ID(), cmds[2])
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, uint64(2), s.Summary().Commands)
}

func TestManager_List(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(nil, WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))

	first, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	second, err := m.Create(ctx, "bob")
	require.NoError(t, err)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID(), list[0].ID)
	assert.Equal(t, second.ID(), list[1].ID)
	assert.Equal(t, "bob", list[1].Username)
}

func TestManager_Delete(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	m := NewManager(store)

	s, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	mustExec(t, m, s.ID(), heroVillainCommands()...)

	require.NoError(t, m.Delete(ctx, s.ID()))
	assert.ErrorIs(t, m.Delete(ctx, s.ID()), ErrSessionNotFound)

	_, err = m.Exec(ctx, s.ID(), command.PassageSafe("Hero", "B"))
	assert.ErrorIs(t, err, ErrSessionNotFound)

	records, err := store.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestManager_Restore(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	before := NewManager(store)
	s, err := before.Create(ctx, "alice")
	require.NoError(t, err)
	mustExec(t, before, s.ID(), heroVillainCommands()...)

	// Rejected commands are not journaled.
	_, err = before.Exec(ctx, s.ID(), command.Roads(command.RoadParams{From: "X", To: "Y"}))
	require.Error(t, err)

	after := NewManager(store)
	n, err := after.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	restored, err := after.Get(s.ID())
	require.NoError(t, err)
	assert.Equal(t, "alice", restored.Username())
	assert.Equal(t, s.CreatedAt().UnixMilli(), restored.CreatedAt().UnixMilli())
	assert.Equal(t, uint64(3), restored.Summary().Commands)

	resp, err := after.Exec(ctx, s.ID(), command.PassageSafe("Hero", "C"))
	require.NoError(t, err)
	require.NotNil(t, resp.Safe)
	assert.False(t, *resp.Safe)

	// New commands continue the sequence and survive a second restore.
	mustExec(t, after, s.ID(), command.Place("Hero", "C"))
	commands, err := store.Commands(ctx, s.ID())
	require.NoError(t, err)
	assert.Len(t, commands, 5)

	n, err = after.Restore(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "live sessions are not restored twice")
}

func TestManager_Restore_NoJournal(t *testing.T) {
	n, err := NewManager(nil).Restore(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

type failingJournal struct {
	*badger.Store
}

func (failingJournal) AppendCommand(context.Context, string, uint64, []byte) error {
	return errors.New("disk full")
}

func TestManager_JournalFailure(t *testing.T) {
	ctx := context.Background()
	m := NewManager(failingJournal{openStore(t)})

	s, err := m.Create(ctx, "alice")
	require.NoError(t, err)

	_, err = m.Exec(ctx, s.ID(), heroVillainCommands()[0])
	assert.ErrorIs(t, err, ErrJournal)
}

// flakyJournal fails AppendCommand while fail is set.
type flakyJournal struct {
	*badger.Store
	fail atomic.Bool
}

func (j *flakyJournal) AppendCommand(ctx context.Context, id string, seq uint64, data []byte) error {
	if j.fail.Load() {
		return errors.New("disk full")
	}
	return j.Store.AppendCommand(ctx, id, seq, data)
}

func TestManager_JournalFailureRollsBack(t *testing.T) {
	ctx := context.Background()

	t.Run("roads can be retried", func(t *testing.T) {
		journal := &flakyJournal{Store: openStore(t)}
		m := NewManager(journal)
		s, err := m.Create(ctx, "alice")
		require.NoError(t, err)

		journal.fail.Store(true)
		_, err = m.Exec(ctx, s.ID(), heroVillainCommands()[0])
		require.ErrorIs(t, err, ErrJournal)

		sum := s.Summary()
		assert.Zero(t, sum.Commands)
		assert.Zero(t, sum.Towns)

		journal.fail.Store(false)
		resp, err := m.Exec(ctx, s.ID(), heroVillainCommands()[0])
		require.NoError(t, err)
		assert.True(t, resp.OK)

		sum = s.Summary()
		assert.Equal(t, uint64(1), sum.Commands)
		assert.Equal(t, 3, sum.Towns)
		assert.Equal(t, 2, sum.Roads)
	})

	t.Run("failed place leaves town empty", func(t *testing.T) {
		journal := &flakyJournal{Store: openStore(t)}
		m := NewManager(journal)
		s, err := m.Create(ctx, "alice")
		require.NoError(t, err)

		cmds := heroVillainCommands()
		mustExec(t, m, s.ID(), cmds[0], cmds[1])

		journal.fail.Store(true)
		_, err = m.Exec(ctx, s.ID(), cmds[2])
		require.ErrorIs(t, err, ErrJournal)
		journal.fail.Store(false)

		resp, err := m.Exec(ctx, s.ID(), command.PassageSafe("Hero", "C"))
		require.NoError(t, err)
		assert.True(t, *resp.Safe)
		assert.Equal(t, 1, s.Summary().Characters)

		mustExec(t, m, s.ID(), cmds[2])
		resp, err = m.Exec(ctx, s.ID(), command.PassageSafe("Hero", "C"))
		require.NoError(t, err)
		assert.False(t, *resp.Safe)

		live := s.Summary()
		commands, err := journal.Commands(ctx, s.ID())
		require.NoError(t, err)
		assert.Len(t, commands, int(live.Commands))

		restored := NewManager(journal.Store)
		n, err := restored.Restore(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		rs, err := restored.Get(s.ID())
		require.NoError(t, err)
		replayed := rs.Summary()
		assert.Equal(t, live.Commands, replayed.Commands)
		assert.Equal(t, live.Characters, replayed.Characters)
	})
}

func TestManager_ConcurrentExec(t *testing.T) {
	ctx := context.Background()
	m := NewManager(openStore(t))

	s, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	mustExec(t, m, s.ID(), heroVillainCommands()...)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := m.Exec(ctx, s.ID(), command.PassageSafe("Hero", "B"))
			if assert.NoError(t, err) {
				assert.True(t, *resp.Safe)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(19), s.Summary().Commands)
	commands, err := store(t, m).Commands(ctx, s.ID())
	require.NoError(t, err)
	assert.Len(t, commands, 19)
}

func store(t *testing.T, m *Manager) *badger.Store {
	t.Helper()
	st, ok := m.journal.(*badger.Store)
	require.True(t, ok)
	return st
}
