// Package game implements the poker table engine: cards and betting,
// pot settlement, and the per-room serialized state machine that drives
// the hand lifecycle.
package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroomlabs/cardroom/internal/deck"
)

const chatLogLimit = 100

// Options configures a room
type Options struct {
	SmallBlind    int
	BigBlind      int
	StartingStack int
	MaxPlayers    int
	MinReady      int
	BotDelay      time.Duration
	GraceTimeout  time.Duration
	SettleDelay   time.Duration
}

func (o Options) withDefaults() Options {
	if o.SmallBlind == 0 {
		o.SmallBlind = 1
	}
	if o.BigBlind == 0 {
		o.BigBlind = o.SmallBlind * 2
	}
	if o.StartingStack == 0 {
		o.StartingStack = o.BigBlind * 100
	}
	if o.MaxPlayers == 0 {
		o.MaxPlayers = 6
	}
	if o.MinReady < 2 {
		o.MinReady = 2
	}
	if o.BotDelay == 0 {
		o.BotDelay = time.Second
	}
	if o.GraceTimeout == 0 {
		o.GraceTimeout = 15 * time.Second
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = 4 * time.Second
	}
	return o
}

// Recorder is the persistence boundary: settlement records and chat are
// handed off for storage; the engine holds no durable state.
type Recorder interface {
	RecordHand(roomID string, s *Settlement)
	RecordChat(roomID string, m ChatMessage)
}

// Deps are the room's collaborators
type Deps struct {
	Logger   *log.Logger
	Clock    quartz.Clock
	Rng      *rand.Rand
	Notify   func(Snapshot) // called with a fresh snapshot after every mutation
	Recorder Recorder       // optional
	OnEmpty  func(roomID string)
}

type command struct {
	fn     func() error
	reply  chan error
	silent bool
}

// Room is a poker table. All mutations are funneled through a single
// ordered command queue processed by one goroutine, so at most one
// mutation is in flight at a time and effects apply in submission order.
type Room struct {
	ID string

	opts     Options
	logger   *log.Logger
	clock    quartz.Clock
	rng      *rand.Rand
	notify   func(Snapshot)
	recorder Recorder
	onEmpty  func(string)

	cmds      chan command
	records   chan func()
	done      chan struct{}
	closeOnce sync.Once

	// The fields below are owned by the run loop.
	seats      []*Player // fixed seat positions, nil = empty seat
	round      Round
	deck       *deck.Deck
	board      []deck.Card
	betting    *BettingRound
	dealer     int
	acting     int // -1 when nobody acts
	chat       []ChatMessage
	lastResult *Settlement
	handChips  int // stack total at hand start, for the conservation check
	actGen     int // invalidates pending bot and grace timers
	timer      *quartz.Timer
	botSeq     int
}

// NewRoom creates a room and starts its serialization loop
func NewRoom(id string, opts Options, deps Deps) *Room {
	opts = opts.withDefaults()
	r := &Room{
		ID:       id,
		opts:     opts,
		logger:   deps.Logger.WithPrefix("room").With("room", id),
		clock:    deps.Clock,
		rng:      deps.Rng,
		notify:   deps.Notify,
		recorder: deps.Recorder,
		onEmpty:  deps.OnEmpty,
		cmds:     make(chan command),
		done:     make(chan struct{}),
		seats:    make([]*Player, opts.MaxPlayers),
		dealer:   -1,
		acting:   -1,
	}
	if r.recorder != nil {
		r.records = make(chan func(), 64)
		go r.recordLoop()
	}
	go r.run()
	return r
}

// Close stops the room's loop. Pending commands fail with ErrRoomClosed.
func (r *Room) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

func (r *Room) run() {
	for {
		select {
		case cmd := <-r.cmds:
			err := cmd.fn()
			if cmd.reply != nil {
				cmd.reply <- err
			}
			// Rejected actions have no broadcast side effect.
			if err == nil && !cmd.silent && r.notify != nil {
				r.notify(r.snapshot())
			}
		case <-r.done:
			r.cancelTimer()
			return
		}
	}
}

// do runs fn on the room loop and waits for its result
func (r *Room) do(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case r.cmds <- command{fn: fn, reply: reply}:
		return <-reply
	case <-r.done:
		return ErrRoomClosed
	}
}

// record hands fn to the persistence goroutine. Storage latency must
// never stall the room loop, so writes queue here; a full queue drops
// the record rather than block.
func (r *Room) record(fn func()) {
	if r.recorder == nil {
		return
	}
	select {
	case r.records <- fn:
	default:
		r.logger.Warn("record queue full, dropping record")
	}
}

func (r *Room) recordLoop() {
	for {
		select {
		case fn := <-r.records:
			fn()
		case <-r.done:
			return
		}
	}
}

// enqueue schedules fn on the room loop without waiting. Timer callbacks
// re-enter the queue this way instead of mutating state directly.
func (r *Room) enqueue(fn func() error) {
	go func() {
		select {
		case r.cmds <- command{fn: fn}:
		case <-r.done:
		}
	}()
}

// Join seats a player, or reattaches a disconnected player with the same
// id to their existing seat.
func (r *Room) Join(playerID, name string) (int, error) {
	seat := -1
	err := r.do(func() error {
		var err error
		seat, err = r.join(playerID, name, false)
		return err
	})
	return seat, err
}

// AddBot seats a house bot
func (r *Room) AddBot() error {
	return r.do(func() error {
		r.botSeq++
		id := fmt.Sprintf("bot-%d", r.botSeq)
		_, err := r.join(id, fmt.Sprintf("Bot %d", r.botSeq), true)
		return err
	})
}

// Leave removes a player. Mid-hand the seat is folded immediately and
// freed at the end of the hand so committed chips stay in the pot.
func (r *Room) Leave(playerID string) error {
	return r.do(func() error { return r.leave(playerID) })
}

// Ready marks a player ready for the next hand and starts one when
// enough seats are ready.
func (r *Room) Ready(playerID string) error {
	return r.do(func() error {
		p, _ := r.seatByID(playerID)
		if p == nil {
			return ErrUnknownSeat
		}
		p.Ready = true
		r.maybeStart()
		return nil
	})
}

// Action applies a betting action for the player
func (r *Room) Action(playerID string, kind ActionKind, amount int) error {
	return r.do(func() error { return r.applyAction(playerID, kind, amount) })
}

// Chat appends a chat line
func (r *Room) Chat(playerID, text string) error {
	return r.do(func() error {
		p, _ := r.seatByID(playerID)
		if p == nil {
			return ErrUnknownSeat
		}
		m := ChatMessage{Seat: p.Seat, Name: p.Name, Text: text, At: r.clock.Now()}
		r.chat = append(r.chat, m)
		if len(r.chat) > chatLogLimit {
			r.chat = r.chat[len(r.chat)-chatLogLimit:]
		}
		r.record(func() { r.recorder.RecordChat(r.ID, m) })
		return nil
	})
}

// SetConnected flags a seat as connected or disconnected. Disconnection
// is not an error: the seat auto-checks or folds when its grace timer
// fires, and is removed at the next waiting transition.
func (r *Room) SetConnected(playerID string, connected bool) error {
	return r.do(func() error {
		p, seat := r.seatByID(playerID)
		if p == nil {
			return ErrUnknownSeat
		}
		p.Connected = connected
		if !connected && r.round == Waiting {
			r.removeSeat(seat)
			return nil
		}
		// Re-arm (or cancel) the turn timer for the new state.
		if seat == r.acting {
			r.setActing(seat)
		}
		return nil
	})
}

// Snapshot returns a copy of the current table state
func (r *Room) Snapshot() Snapshot {
	var snap Snapshot
	reply := make(chan error, 1)
	select {
	case r.cmds <- command{fn: func() error { snap = r.snapshot(); return nil }, reply: reply, silent: true}:
		<-reply
	case <-r.done:
	}
	return snap
}

func (r *Room) join(playerID, name string, bot bool) (int, error) {
	if p, seat := r.seatByID(playerID); p != nil {
		if p.Connected {
			return 0, fmt.Errorf("%w: %s already seated", ErrSeatTaken, name)
		}
		p.Connected = true
		if seat == r.acting {
			r.setActing(seat) // cancels the pending grace timer
		}
		return seat, nil
	}

	seat := -1
	for i, p := range r.seats {
		if p == nil {
			seat = i
			break
		}
	}
	if seat == -1 {
		return 0, ErrRoomFull
	}

	r.seats[seat] = &Player{
		ID:        playerID,
		Name:      name,
		Seat:      seat,
		Stack:     r.opts.StartingStack,
		IsBot:     bot,
		Connected: true,
		Ready:     bot, // bots are always ready
	}
	r.logger.Info("player joined", "player", name, "seat", seat, "bot", bot)
	r.maybeStart()
	return seat, nil
}

func (r *Room) leave(playerID string) error {
	p, seat := r.seatByID(playerID)
	if p == nil {
		return ErrUnknownSeat
	}
	if r.inBettingRound() && p.InHand && !p.Folded {
		r.forceAct(seat, true)
	}
	p.Connected = false
	p.Ready = false
	if r.round == Waiting {
		r.removeSeat(seat)
	}
	return nil
}

func (r *Room) removeSeat(seat int) {
	p := r.seats[seat]
	if p == nil {
		return
	}
	r.logger.Info("seat freed", "player", p.Name, "seat", seat)
	r.seats[seat] = nil
	if !r.hasHumans() {
		r.closeWhenEmpty()
	}
}

func (r *Room) hasHumans() bool {
	for _, p := range r.seats {
		if p != nil && !p.IsBot {
			return true
		}
	}
	return false
}

func (r *Room) closeWhenEmpty() {
	r.logger.Info("room empty, closing")
	r.cancelTimer()
	if r.onEmpty != nil {
		r.onEmpty(r.ID)
	}
}

func (r *Room) seatByID(playerID string) (*Player, int) {
	for i, p := range r.seats {
		if p != nil && p.ID == playerID {
			return p, i
		}
	}
	return nil, -1
}

func (r *Room) maybeStart() {
	if r.round != Waiting {
		return
	}
	ready := 0
	for _, p := range r.seats {
		if p != nil && p.Ready && p.Connected && p.Stack > 0 {
			ready++
		}
	}
	if ready >= r.opts.MinReady {
		r.startHand()
	}
}

func (r *Room) startHand() {
	r.lastResult = nil
	r.handChips = r.stackTotal()

	for _, p := range r.seats {
		if p == nil {
			continue
		}
		p.Hole = nil
		p.Bet = 0
		p.TotalBet = 0
		p.AllIn = false
		p.InHand = p.Ready && p.Connected && p.Stack > 0
		p.Folded = false
	}

	r.dealer = r.nextInHand(r.dealer + 1)

	var sb, bb int
	if r.countInHand() == 2 {
		// Heads-up the dealer posts the small blind and acts first preflop.
		sb = r.dealer
		bb = r.nextInHand(sb + 1)
	} else {
		sb = r.nextInHand(r.dealer + 1)
		bb = r.nextInHand(sb + 1)
	}

	r.betting = NewBettingRound(len(r.seats), r.opts.BigBlind, bb)
	r.postBlind(sb, r.opts.SmallBlind)
	r.postBlind(bb, r.opts.BigBlind)
	r.betting.CurrentBet = r.opts.BigBlind

	r.deck = deck.New(r.rng)
	r.deck.Shuffle()
	for _, p := range r.seats {
		if p != nil && p.InHand {
			p.Hole = r.deck.DealN(2)
		}
	}
	r.board = nil
	r.round = Preflop
	r.logger.Info("hand started", "dealer", r.dealer, "players", r.countInHand())

	r.setActing(NextToAct(r.seats, bb+1))
	if r.acting == -1 {
		// Blinds put everyone all-in; run the board out.
		r.advanceStreet()
	}
}

func (r *Room) postBlind(seat, amount int) {
	p := r.seats[seat]
	pay := min(amount, p.Stack)
	p.Stack -= pay
	p.Bet = pay
	p.TotalBet = pay
	if p.Stack == 0 {
		p.AllIn = true
	}
}

func (r *Room) applyAction(playerID string, kind ActionKind, amount int) error {
	p, seat := r.seatByID(playerID)
	if p == nil {
		return ErrUnknownSeat
	}
	if !r.inBettingRound() {
		return illegalf("no betting round in progress")
	}
	if seat != r.acting {
		return illegalf("not %s's turn", p.Name)
	}
	if err := r.betting.Apply(r.seats, seat, kind, amount); err != nil {
		return err
	}
	r.logger.Debug("action", "player", p.Name, "kind", kind, "amount", amount)
	r.afterAction(seat)
	return nil
}

// afterAction advances the turn pointer or the street after a legal action
func (r *Room) afterAction(seat int) {
	if r.countLive() == 1 {
		r.finishHand()
		return
	}
	if r.betting.Complete(r.seats) {
		r.advanceStreet()
		return
	}
	r.setActing(NextToAct(r.seats, seat+1))
}

func (r *Room) advanceStreet() {
	r.betting.ResetForStreet()
	for _, p := range r.seats {
		if p != nil {
			p.Bet = 0
		}
	}

	switch r.round {
	case Preflop:
		r.round = Flop
		r.board = append(r.board, r.deck.DealN(3)...)
	case Flop:
		r.round = Turn
		r.board = append(r.board, r.deck.DealN(1)...)
	case Turn:
		r.round = River
		r.board = append(r.board, r.deck.DealN(1)...)
	case River:
		r.finishHand()
		return
	default:
		return
	}
	r.logger.Debug("street dealt", "round", r.round, "board", r.board)

	if r.countCanAct() < 2 {
		// With at most one seat able to bet nobody can call, so the
		// board runs out without further betting.
		r.setActing(-1)
		r.advanceStreet()
		return
	}
	r.setActing(NextToAct(r.seats, r.dealer+1))
}

func (r *Room) finishHand() {
	r.round = ShowdownRound
	r.setActing(-1)

	// Stacks plus committed chips must equal the hand's starting total
	// before settlement moves the pot.
	if got := r.stackTotal(); got != r.handChips {
		r.logger.Error("chip conservation violated, aborting hand",
			"expected", r.handChips, "got", got)
		r.resetToWaiting()
		return
	}

	settlement, err := Settle(r.seats, r.board, r.dealer)
	if err != nil {
		r.logger.Error("settlement failed, aborting hand", "error", err)
		r.resetToWaiting()
		return
	}

	for _, p := range r.seats {
		if p != nil {
			p.Bet = 0
			p.TotalBet = 0
		}
	}
	// After distribution the whole pot lives in the winners' stacks.
	if got := r.stackTotal(); got != r.handChips {
		r.logger.Error("settlement lost chips, aborting hand",
			"expected", r.handChips, "got", got)
		r.resetToWaiting()
		return
	}
	r.lastResult = settlement

	for _, w := range settlement.Winnings {
		r.logger.Info("pot awarded", "player", w.Name, "amount", w.Amount, "hand", w.HandName)
	}
	r.record(func() { r.recorder.RecordHand(r.ID, settlement) })

	// Leave the showdown on display, then clear for the next hand.
	r.timer = r.clock.AfterFunc(r.opts.SettleDelay, func() {
		r.enqueue(func() error {
			if r.round == ShowdownRound {
				r.resetToWaiting()
			}
			return nil
		})
	})
}

func (r *Room) resetToWaiting() {
	r.round = Waiting
	r.board = nil
	r.deck = nil
	r.betting = nil
	r.setActing(-1)

	for seat, p := range r.seats {
		if p == nil {
			continue
		}
		p.Hole = nil
		p.Bet = 0
		p.TotalBet = 0
		p.InHand = false
		p.Folded = false
		p.AllIn = false
		if p.Stack == 0 {
			r.logger.Info("player busted", "player", p.Name)
			r.removeSeat(seat)
		} else if !p.Connected {
			r.removeSeat(seat)
		}
	}
	r.maybeStart()
}

// setActing moves the turn pointer and re-arms the seat's timer: the bot
// decision delay for bots, the grace timeout for disconnected humans.
// Bumping actGen invalidates any previously scheduled timer callback.
func (r *Room) setActing(seat int) {
	r.actGen++
	r.cancelTimer()
	r.acting = seat
	if seat == -1 {
		return
	}

	p := r.seats[seat]
	gen := r.actGen
	switch {
	case p.IsBot:
		r.timer = r.clock.AfterFunc(r.opts.BotDelay, func() {
			r.enqueue(func() error {
				if gen != r.actGen || r.acting != seat {
					return nil // superseded before firing
				}
				r.botAct(seat)
				return nil
			})
		})
	case !p.Connected:
		r.timer = r.clock.AfterFunc(r.opts.GraceTimeout, func() {
			r.enqueue(func() error {
				if gen != r.actGen || r.acting != seat {
					return nil
				}
				r.forceAct(seat, false)
				return nil
			})
		})
	}
}

func (r *Room) botAct(seat int) {
	p := r.seats[seat]
	kind, amount := botDecide(r.rng, r.betting, p)
	if err := r.betting.Apply(r.seats, seat, kind, amount); err != nil {
		// The policy produced something illegal; fall back to a forced action.
		r.logger.Warn("bot action rejected", "player", p.Name, "kind", kind, "error", err)
		r.forceAct(seat, false)
		return
	}
	r.logger.Debug("bot action", "player", p.Name, "kind", kind, "amount", amount)
	r.afterAction(seat)
}

// forceAct checks for the seat when legal, otherwise folds it. foldOnly
// skips the check (used when a player leaves mid-hand). Outside a betting
// round there is nothing to act on; folding a seat during the settle
// display would re-enter settlement over an already-distributed pot.
func (r *Room) forceAct(seat int, foldOnly bool) {
	if !r.inBettingRound() {
		return
	}
	p := r.seats[seat]
	if p == nil || !p.CanAct() {
		return
	}
	if !foldOnly && r.acting == seat && p.Bet == r.betting.CurrentBet {
		if err := r.betting.Apply(r.seats, seat, Check, 0); err == nil {
			r.logger.Info("auto-check", "player", p.Name)
			r.afterAction(seat)
			return
		}
	}
	p.Folded = true
	r.betting.MarkActed(seat)
	r.logger.Info("auto-fold", "player", p.Name)
	if r.betting.LastAggressor == seat {
		r.betting.LastAggressor = -1
	}
	if r.acting == seat {
		r.afterAction(seat)
	} else if r.countLive() == 1 {
		r.finishHand()
	} else if r.betting.Complete(r.seats) {
		r.advanceStreet()
	}
}

func (r *Room) cancelTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Room) countInHand() int {
	n := 0
	for _, p := range r.seats {
		if p != nil && p.InHand {
			n++
		}
	}
	return n
}

func (r *Room) inBettingRound() bool {
	return r.round >= Preflop && r.round <= River
}

func (r *Room) countCanAct() int {
	n := 0
	for _, p := range r.seats {
		if p.CanAct() {
			n++
		}
	}
	return n
}

func (r *Room) countLive() int {
	n := 0
	for _, p := range r.seats {
		if p.Live() {
			n++
		}
	}
	return n
}

func (r *Room) nextInHand(from int) int {
	n := len(r.seats)
	for i := 0; i < n; i++ {
		seat := (from + i + n) % n
		if p := r.seats[seat]; p != nil && p.InHand {
			return seat
		}
	}
	return -1
}

func (r *Room) stackTotal() int {
	total := 0
	for _, p := range r.seats {
		if p != nil {
			total += p.Stack + p.TotalBet
		}
	}
	return total
}

func (r *Room) snapshot() Snapshot {
	snap := Snapshot{
		RoomID:     r.ID,
		Round:      r.round.String(),
		Board:      append([]deck.Card(nil), r.board...),
		Pot:        r.potTotal(),
		Dealer:     r.dealer,
		Acting:     r.acting,
		SmallBlind: r.opts.SmallBlind,
		BigBlind:   r.opts.BigBlind,
		Chat:       append([]ChatMessage(nil), r.chat...),
		LastResult: r.lastResult,
	}
	if r.betting != nil {
		snap.CurrentBet = r.betting.CurrentBet
		snap.MinRaise = r.betting.MinRaise
	}
	showdown := r.round == ShowdownRound && r.lastResult != nil && !r.lastResult.Uncontested
	for _, p := range r.seats {
		if p == nil {
			continue
		}
		snap.Seats = append(snap.Seats, SeatView{
			ID:        p.ID,
			Name:      p.Name,
			Seat:      p.Seat,
			Stack:     p.Stack,
			Bet:       p.Bet,
			Hole:      append([]deck.Card(nil), p.Hole...),
			Revealed:  showdown && p.Live(),
			IsBot:     p.IsBot,
			Connected: p.Connected,
			Ready:     p.Ready,
			InHand:    p.InHand,
			Folded:    p.Folded,
			AllIn:     p.AllIn,
		})
	}
	return snap
}

func (r *Room) potTotal() int {
	total := 0
	for _, p := range r.seats {
		if p != nil {
			total += p.TotalBet
		}
	}
	return total
}
