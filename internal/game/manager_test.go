package game

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(testOptions(), log.New(io.Discard), quartz.NewMock(t), nil, nil)
	m.SetSeed(func() int64 { return 1 })
	t.Cleanup(m.CloseAll)
	return m
}

func TestManagerGetOrCreateReusesRoom(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	a := m.GetOrCreate("lobby")
	b := m.GetOrCreate("lobby")
	require.Same(t, a, b)
	require.Same(t, a, m.Get("lobby"))
	require.Nil(t, m.Get("other"))
}

func TestManagerListSummarizesRooms(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	room := m.GetOrCreate("lobby")
	_, err := room.Join("alice", "alice")
	require.NoError(t, err)

	infos := m.List()
	require.Len(t, infos, 1)
	require.Equal(t, "lobby", infos[0].ID)
	require.Equal(t, 1, infos[0].Players)
	require.Equal(t, "waiting", infos[0].Round)
	require.Equal(t, "1/2", infos[0].Blinds)
}

func TestManagerRemovesRoomWhenLastHumanLeaves(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	room := m.GetOrCreate("lobby")
	_, err := room.Join("alice", "alice")
	require.NoError(t, err)
	require.NoError(t, room.AddBot())

	require.NoError(t, room.Leave("alice"))

	// Bots alone do not keep a room alive.
	require.Eventually(t, func() bool {
		return m.Get("lobby") == nil
	}, 2*time.Second, 10*time.Millisecond)
}
