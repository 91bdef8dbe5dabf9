package game

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		SmallBlind:    1,
		BigBlind:      2,
		StartingStack: 200,
		MaxPlayers:    4,
		BotDelay:      100 * time.Millisecond,
		GraceTimeout:  5 * time.Second,
		SettleDelay:   3 * time.Second,
	}
}

func newTestRoom(t *testing.T, opts Options) (*Room, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	room := NewRoom("test", opts, Deps{
		Logger: log.New(io.Discard),
		Clock:  clock,
		Rng:    rand.New(rand.NewSource(1)),
	})
	t.Cleanup(room.Close)
	return room, clock
}

func chipTotal(snap Snapshot) int {
	total := snap.Pot
	for _, s := range snap.Seats {
		total += s.Stack
	}
	return total
}

func TestJoinAssignsSeats(t *testing.T) {
	t.Parallel()

	room, _ := newTestRoom(t, testOptions())

	seat, err := room.Join("alice", "alice")
	require.NoError(t, err)
	require.Equal(t, 0, seat)

	seat, err = room.Join("bob", "bob")
	require.NoError(t, err)
	require.Equal(t, 1, seat)

	_, err = room.Join("alice", "alice")
	require.ErrorIs(t, err, ErrSeatTaken)
}

func TestJoinRoomFull(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.MaxPlayers = 2
	room, _ := newTestRoom(t, opts)

	_, err := room.Join("alice", "alice")
	require.NoError(t, err)
	_, err = room.Join("bob", "bob")
	require.NoError(t, err)
	_, err = room.Join("carol", "carol")
	require.ErrorIs(t, err, ErrRoomFull)
}

func TestHandStartsWhenTwoReady(t *testing.T) {
	t.Parallel()

	room, _ := newTestRoom(t, testOptions())
	_, _ = room.Join("alice", "alice")
	_, _ = room.Join("bob", "bob")

	require.NoError(t, room.Ready("alice"))
	require.Equal(t, "waiting", room.Snapshot().Round)

	require.NoError(t, room.Ready("bob"))
	snap := room.Snapshot()
	require.Equal(t, "preflop", snap.Round)
	require.Equal(t, 3, snap.Pot, "blinds should be posted")
	require.Equal(t, 2, snap.CurrentBet)
	require.Equal(t, 0, snap.Dealer)
	// Heads-up the dealer posts the small blind and acts first.
	require.Equal(t, 0, snap.Acting)
	for _, s := range snap.Seats {
		require.Len(t, s.Hole, 2, "every in-hand seat gets two hole cards")
	}
	require.Equal(t, 400, chipTotal(snap))
}

func TestWrongTurnRejected(t *testing.T) {
	t.Parallel()

	room, _ := newTestRoom(t, testOptions())
	_, _ = room.Join("alice", "alice")
	_, _ = room.Join("bob", "bob")
	require.NoError(t, room.Ready("alice"))
	require.NoError(t, room.Ready("bob"))

	before := room.Snapshot()
	err := room.Action("bob", Call, 0)
	require.ErrorIs(t, err, ErrIllegalAction)

	after := room.Snapshot()
	require.Equal(t, before.Pot, after.Pot)
	require.Equal(t, before.Acting, after.Acting)
	require.Equal(t, before.Seats, after.Seats)
}

func TestHeadsUpCheckdownToShowdown(t *testing.T) {
	t.Parallel()

	room, _ := newTestRoom(t, testOptions())
	_, _ = room.Join("alice", "alice")
	_, _ = room.Join("bob", "bob")
	require.NoError(t, room.Ready("alice"))
	require.NoError(t, room.Ready("bob"))

	// Preflop: dealer completes the small blind, big blind checks.
	require.NoError(t, room.Action("alice", Call, 0))
	require.NoError(t, room.Action("bob", Check, 0))

	snap := room.Snapshot()
	require.Equal(t, "flop", snap.Round)
	require.Len(t, snap.Board, 3)
	require.Equal(t, 4, snap.Pot)
	require.Equal(t, 1, snap.Acting, "big blind acts first postflop")

	// Check down the turn and river: 3-1-1 board dealing.
	for _, wantBoard := range []int{4, 5} {
		require.NoError(t, room.Action("bob", Check, 0))
		require.NoError(t, room.Action("alice", Check, 0))
		snap = room.Snapshot()
		require.Len(t, snap.Board, wantBoard)
	}
	require.NoError(t, room.Action("bob", Check, 0))
	require.NoError(t, room.Action("alice", Check, 0))

	snap = room.Snapshot()
	require.Equal(t, "showdown", snap.Round)
	require.NotNil(t, snap.LastResult)
	require.Equal(t, 4, snap.LastResult.Pot)

	won := 0
	for _, w := range snap.LastResult.Winnings {
		won += w.Amount
		require.NotEmpty(t, w.HandName)
	}
	require.Equal(t, 4, won, "entire pot is distributed")
	require.Equal(t, 400, chipTotal(snap), "chips are conserved")

	// Live hands are revealed at showdown.
	for _, s := range snap.Seats {
		if s.InHand && !s.Folded {
			require.True(t, s.Revealed)
		}
	}
}

func TestSettleDelayCyclesToNextHand(t *testing.T) {
	t.Parallel()

	room, clock := newTestRoom(t, testOptions())
	_, _ = room.Join("alice", "alice")
	_, _ = room.Join("bob", "bob")
	require.NoError(t, room.Ready("alice"))
	require.NoError(t, room.Ready("bob"))

	require.NoError(t, room.Action("alice", Fold, 0))
	require.Equal(t, "showdown", room.Snapshot().Round)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clock.Advance(testOptions().SettleDelay).MustWait(ctx)

	// Ready is sticky, so the next hand deals itself after the display
	// delay, with the button passed on.
	require.Eventually(t, func() bool {
		snap := room.Snapshot()
		return snap.Round == "preflop" && snap.Dealer == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUncontestedFoldAwardsPotWithoutShowdown(t *testing.T) {
	t.Parallel()

	room, _ := newTestRoom(t, testOptions())
	_, _ = room.Join("alice", "alice")
	_, _ = room.Join("bob", "bob")
	require.NoError(t, room.Ready("alice"))
	require.NoError(t, room.Ready("bob"))

	require.NoError(t, room.Action("alice", Fold, 0))

	snap := room.Snapshot()
	require.Equal(t, "showdown", snap.Round)
	require.NotNil(t, snap.LastResult)
	require.True(t, snap.LastResult.Uncontested)
	require.Equal(t, 3, snap.LastResult.Pot)
	require.Equal(t, "bob", snap.LastResult.Winnings[0].Name)
	require.Equal(t, 400, chipTotal(snap))

	// No cards are revealed on an uncontested win.
	for _, s := range snap.Seats {
		require.False(t, s.Revealed)
	}
}

func TestDisconnectGraceAutoFolds(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	room, clock := newTestRoom(t, opts)
	_, _ = room.Join("alice", "alice")
	_, _ = room.Join("bob", "bob")
	require.NoError(t, room.Ready("alice"))
	require.NoError(t, room.Ready("bob"))

	// Alice is acting and drops. Facing the big blind she cannot check,
	// so the grace timeout folds her.
	require.NoError(t, room.SetConnected("alice", false))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clock.Advance(opts.GraceTimeout).MustWait(ctx)

	require.Eventually(t, func() bool {
		snap := room.Snapshot()
		return snap.LastResult != nil && snap.LastResult.Uncontested &&
			snap.LastResult.Winnings[0].Name == "bob"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReconnectCancelsGraceTimer(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	room, clock := newTestRoom(t, opts)
	_, _ = room.Join("alice", "alice")
	_, _ = room.Join("bob", "bob")
	require.NoError(t, room.Ready("alice"))
	require.NoError(t, room.Ready("bob"))

	require.NoError(t, room.SetConnected("alice", false))
	_, err := room.Join("alice", "alice")
	require.NoError(t, err, "rejoining reclaims the seat")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clock.Advance(opts.GraceTimeout).MustWait(ctx)

	// The cancelled timer must not fold her; she can still act.
	require.NoError(t, room.Action("alice", Call, 0))
}

func TestBotActsThroughValidation(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	room, clock := newTestRoom(t, opts)
	_, _ = room.Join("alice", "alice")
	require.NoError(t, room.AddBot())
	require.NoError(t, room.Ready("alice"))

	snap := room.Snapshot()
	require.Equal(t, "preflop", snap.Round)
	require.Equal(t, 0, snap.Acting)

	require.NoError(t, room.Action("alice", Call, 0))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clock.Advance(opts.BotDelay).MustWait(ctx)

	// The bot either checks its option (dealing the flop) or raises
	// (returning the action); both go through the normal action path.
	require.Eventually(t, func() bool {
		snap := room.Snapshot()
		return snap.Round != "preflop" || snap.Acting == 0
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 400, chipTotal(room.Snapshot()))
}

func TestLeaveMidHandFoldsSeat(t *testing.T) {
	t.Parallel()

	room, _ := newTestRoom(t, testOptions())
	_, _ = room.Join("alice", "alice")
	_, _ = room.Join("bob", "bob")
	require.NoError(t, room.Ready("alice"))
	require.NoError(t, room.Ready("bob"))

	require.NoError(t, room.Leave("alice"))

	snap := room.Snapshot()
	require.NotNil(t, snap.LastResult)
	require.True(t, snap.LastResult.Uncontested)
	require.Equal(t, "bob", snap.LastResult.Winnings[0].Name)
}

func TestChatAppendsAndRecords(t *testing.T) {
	t.Parallel()

	recorder := &stubRecorder{}
	clock := quartz.NewMock(t)
	room := NewRoom("test", testOptions(), Deps{
		Logger:   log.New(io.Discard),
		Clock:    clock,
		Rng:      rand.New(rand.NewSource(1)),
		Recorder: recorder,
	})
	t.Cleanup(room.Close)

	_, _ = room.Join("alice", "alice")
	require.NoError(t, room.Chat("alice", "hello"))
	require.ErrorIs(t, room.Chat("ghost", "boo"), ErrUnknownSeat)

	snap := room.Snapshot()
	require.Len(t, snap.Chat, 1)
	require.Equal(t, "hello", snap.Chat[0].Text)

	// Records are handed off asynchronously.
	require.Eventually(t, func() bool {
		return recorder.chatCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

type stubRecorder struct {
	mu    sync.Mutex
	hands int
	chats int
}

func (r *stubRecorder) RecordHand(string, *Settlement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hands++
}

func (r *stubRecorder) RecordChat(string, ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats++
}

func (r *stubRecorder) chatCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chats
}

func (r *stubRecorder) handCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hands
}

func TestSettlementHandedToRecorder(t *testing.T) {
	t.Parallel()

	recorder := &stubRecorder{}
	clock := quartz.NewMock(t)
	room := NewRoom("test", testOptions(), Deps{
		Logger:   log.New(io.Discard),
		Clock:    clock,
		Rng:      rand.New(rand.NewSource(1)),
		Recorder: recorder,
	})
	t.Cleanup(room.Close)

	_, _ = room.Join("alice", "alice")
	_, _ = room.Join("bob", "bob")
	require.NoError(t, room.Ready("alice"))
	require.NoError(t, room.Ready("bob"))
	require.NoError(t, room.Action("alice", Fold, 0))

	require.Eventually(t, func() bool {
		return recorder.handCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLeaveDuringSettleDisplayKeepsResult(t *testing.T) {
	t.Parallel()

	recorder := &stubRecorder{}
	clock := quartz.NewMock(t)
	room := NewRoom("test", testOptions(), Deps{
		Logger:   log.New(io.Discard),
		Clock:    clock,
		Rng:      rand.New(rand.NewSource(1)),
		Recorder: recorder,
	})
	t.Cleanup(room.Close)

	_, _ = room.Join("alice", "alice")
	_, _ = room.Join("bob", "bob")
	require.NoError(t, room.Ready("alice"))
	require.NoError(t, room.Ready("bob"))
	require.NoError(t, room.Action("alice", Fold, 0))
	require.Eventually(t, func() bool {
		return recorder.handCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Leaving during the settle display must not re-enter settlement.
	require.NoError(t, room.Leave("alice"))

	snap := room.Snapshot()
	require.Equal(t, "showdown", snap.Round)
	require.NotNil(t, snap.LastResult)
	require.Equal(t, 3, snap.LastResult.Pot)
	require.True(t, snap.LastResult.Uncontested)
	require.Equal(t, "bob", snap.LastResult.Winnings[0].Name)
	require.Never(t, func() bool {
		return recorder.handCount() != 1
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestAllInRunsOutBoard(t *testing.T) {
	t.Parallel()

	room, _ := newTestRoom(t, testOptions())
	_, _ = room.Join("alice", "alice")
	_, _ = room.Join("bob", "bob")
	require.NoError(t, room.do(func() error {
		room.seats[0].Stack = 50
		return nil
	}))
	require.NoError(t, room.Ready("alice"))
	require.NoError(t, room.Ready("bob"))

	// Alice shoves, Bob covers her. With only one seat still able to
	// bet there is no more betting; the board runs out to showdown.
	require.NoError(t, room.Action("alice", Raise, 50))
	require.NoError(t, room.Action("bob", Call, 0))

	snap := room.Snapshot()
	require.Equal(t, "showdown", snap.Round)
	require.Len(t, snap.Board, 5)
	require.Equal(t, -1, snap.Acting)
	require.NotNil(t, snap.LastResult)
	require.Equal(t, 100, snap.LastResult.Pot)
	require.Equal(t, 250, chipTotal(snap))
}
