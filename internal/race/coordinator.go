package race

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vovakirdan/racehub/internal/protocol"
)

// ErrCoordinatorStopped is returned by calls made after Stop.
var ErrCoordinatorStopped = errors.New("race: coordinator stopped")

// CoordinatorConfig holds the session rules.
type CoordinatorConfig struct {
	MinParticipants int // Active participants needed to start
	DefaultRounds   int
	MinRounds       int
	MaxRounds       int

	// StrictSpawn rejects a start when there are more participants than
	// spawn points instead of stacking the overflow on slot 0.
	StrictSpawn bool

	SpawnPoints []SpawnPoint
	EventBuffer int // Inbound event queue size
}

// DefaultCoordinatorConfig returns the stock two-car grid.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		MinParticipants: 1,
		DefaultRounds:   3,
		MinRounds:       1,
		MaxRounds:       10,
		SpawnPoints: []SpawnPoint{
			{X: 296, Y: 32, Rotation: math.Pi / 2},
			{X: 296, Y: 96, Rotation: math.Pi / 2},
		},
		EventBuffer: 256,
	}
}

type event interface {
	coordinatorEvent()
}

type connectEvent struct {
	handle SessionHandle
	reply  chan ParticipantID
}

type messageEvent struct {
	id  ParticipantID
	msg protocol.Inbound
}

type disconnectEvent struct {
	id ParticipantID
}

type snapshotEvent struct {
	reply chan Snapshot
}

func (connectEvent) coordinatorEvent()    {}
func (messageEvent) coordinatorEvent()    {}
func (disconnectEvent) coordinatorEvent() {}
func (snapshotEvent) coordinatorEvent()   {}

// Coordinator owns the session state. Every mutation happens on the goroutine
// started by Start, one event at a time, so no locks guard the state.
type Coordinator struct {
	config      CoordinatorConfig
	clock       clockwork.Clock
	logger      *log.Logger
	recorders   []ResultRecorder
	newRaceID   func() string
	transitions TransitionTable

	registry  *Registry
	spawns    *SpawnAllocator
	lifecycle *Lifecycle
	router    *Router

	phase       Phase
	host        *ParticipantID
	settings    Settings
	lastResults []Result

	events   chan event
	done     chan struct{}
	stopOnce sync.Once
}

// NewCoordinator creates a coordinator in the WAITING phase.
func NewCoordinator(cfg CoordinatorConfig, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.EventBuffer < 1 {
		cfg.EventBuffer = 256
	}
	if cfg.MinParticipants < 1 {
		cfg.MinParticipants = 1
	}

	registry := NewRegistry()
	c := &Coordinator{
		config:      cfg,
		clock:       clockwork.NewRealClock(),
		logger:      logger,
		newRaceID:   uuid.NewString,
		transitions: defaultTransitions(),
		registry:    registry,
		spawns:      NewSpawnAllocator(cfg.SpawnPoints),
		lifecycle:   NewLifecycle(),
		router:      NewRouter(registry, logger),
		phase:       PhaseWaiting,
		settings:    Settings{Rounds: cfg.DefaultRounds},
		events:      make(chan event, cfg.EventBuffer),
		done:        make(chan struct{}),
	}
	return c
}

// SetClock replaces the clock used for start and finish times.
// Must be called before Start.
func (c *Coordinator) SetClock(clock clockwork.Clock) {
	c.clock = clock
}

// AddRecorder registers a sink for completed races. Must be called before Start.
func (c *Coordinator) AddRecorder(r ResultRecorder) {
	if r != nil {
		c.recorders = append(c.recorders, r)
	}
}

// Start begins processing events until ctx is cancelled or Stop is called.
func (c *Coordinator) Start(ctx context.Context) {
	go c.run(ctx)
}

// Stop shuts the coordinator down. Safe to call multiple times.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

func (c *Coordinator) run(ctx context.Context) {
	c.logger.Info("coordinator started", "spawn_points", c.spawns.Size(), "min_participants", c.config.MinParticipants)
	for {
		select {
		case evt := <-c.events:
			c.handleEvent(evt)
		case <-ctx.Done():
			c.Stop()
			c.logger.Info("coordinator stopped")
			return
		case <-c.done:
			c.logger.Info("coordinator stopped")
			return
		}
	}
}

func (c *Coordinator) enqueue(ctx context.Context, evt event) error {
	select {
	case c.events <- evt:
		return nil
	case <-c.done:
		return ErrCoordinatorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect registers a new participant and returns its identity. The handle
// receives lobbyInfo before Connect returns to the transport.
func (c *Coordinator) Connect(ctx context.Context, handle SessionHandle) (ParticipantID, error) {
	reply := make(chan ParticipantID, 1)
	if err := c.enqueue(ctx, connectEvent{handle: handle, reply: reply}); err != nil {
		return 0, err
	}
	select {
	case id := <-reply:
		return id, nil
	case <-c.done:
		return 0, ErrCoordinatorStopped
	case <-ctx.Done():
		// The connect is already queued; undo it once it lands.
		go func() {
			select {
			case id := <-reply:
				c.Disconnect(id)
			case <-c.done:
			}
		}()
		return 0, ctx.Err()
	}
}

// Submit queues an inbound message from id.
func (c *Coordinator) Submit(id ParticipantID, msg protocol.Inbound) {
	_ = c.enqueue(context.Background(), messageEvent{id: id, msg: msg})
}

// Disconnect queues the removal of id.
func (c *Coordinator) Disconnect(id ParticipantID) {
	_ = c.enqueue(context.Background(), disconnectEvent{id: id})
}

// Snapshot returns a copy of the session state. Because events are processed
// in order, the snapshot reflects every event queued before the call.
func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := c.enqueue(ctx, snapshotEvent{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-c.done:
		return Snapshot{}, ErrCoordinatorStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (c *Coordinator) handleEvent(evt event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("recovered panic while handling event", "event", fmt.Sprintf("%T", evt), "panic", r)
		}
	}()

	switch e := evt.(type) {
	case connectEvent:
		e.reply <- c.handleConnect(e.handle)
	case messageEvent:
		c.handleMessage(e.id, e.msg)
	case disconnectEvent:
		c.handleDisconnect(e.id)
	case snapshotEvent:
		e.reply <- c.snapshot()
	}
}

func (c *Coordinator) handleConnect(handle SessionHandle) ParticipantID {
	p := c.registry.Register(handle)
	c.reelect()

	c.router.SendTo(p.ID, c.lobbyInfo(p.ID))
	c.router.BroadcastExcept(protocol.NewPlayerJoined(protocol.Participant{ID: p.ID, Name: p.Name}), p.ID)

	c.logger.Info("participant connected", "participant", p.ID, "phase", c.phase, "active", c.registry.Count())
	return p.ID
}

func (c *Coordinator) handleDisconnect(id ParticipantID) {
	c.spawns.Release(id)
	removal, ok := c.registry.Unregister(id, c.host)
	if !ok {
		return
	}

	c.router.BroadcastAll(protocol.NewPlayerDisconnected(id))
	c.reelect()

	c.logger.Info("participant disconnected",
		"participant", id,
		"was_host", removal.WasHost,
		"had_slot", removal.HadSlot,
		"active", c.registry.Count(),
	)

	if c.registry.Count() == 0 {
		c.reset()
		return
	}
	c.checkSessionEnd()
}

func (c *Coordinator) handleMessage(id ParticipantID, msg protocol.Inbound) {
	p, ok := c.registry.Get(id)
	if !ok {
		c.logger.Debug("message from unknown participant ignored", "participant", id)
		return
	}

	tr, ok := c.transitions[transitionKey{c.phase, msg.MessageType()}]
	if !ok {
		c.logger.Debug("message not valid in phase", "participant", id, "type", msg.MessageType(), "phase", c.phase)
		return
	}
	if !c.authorized(p, tr.role) {
		c.logger.Debug("message ignored: role required", "participant", id, "type", msg.MessageType(), "role", tr.role)
		return
	}
	tr.effect(c, p, msg)
}

func (c *Coordinator) authorized(p *Participant, role Role) bool {
	switch role {
	case RoleAny:
		return true
	case RoleHost:
		return c.host != nil && *c.host == p.ID
	case RoleRacer:
		return c.lifecycle.OfRecord(p.ID)
	default:
		return false
	}
}

// reelect recomputes the host and announces a change when the previous host
// has left.
func (c *Coordinator) reelect() {
	prev := c.host
	next, ok := ElectHost(c.registry.IDs())
	if ok {
		c.host = &next
	} else {
		c.host = nil
	}

	prevActive := false
	if prev != nil {
		_, prevActive = c.registry.Get(*prev)
	}
	if hostChange(prev, prevActive, c.host) {
		c.router.BroadcastAll(protocol.NewNewHost(next))
		c.logger.Info("host changed", "from", *prev, "to", next)
	}
}

func (c *Coordinator) setRounds(sender *Participant, msg protocol.Inbound) {
	m, ok := msg.(protocol.SetRounds)
	if !ok {
		return
	}
	if !m.Numeric || m.Rounds < c.config.MinRounds || m.Rounds > c.config.MaxRounds {
		c.logger.Debug("rounds rejected", "participant", sender.ID, "rounds", m.Rounds, "numeric", m.Numeric)
		return
	}

	c.settings.Rounds = m.Rounds
	c.router.BroadcastAll(protocol.NewUpdateLobbySettings(c.settings))
	c.logger.Info("settings updated", "rounds", m.Rounds)
}

func (c *Coordinator) startRace(sender *Participant, _ protocol.Inbound) {
	active := c.registry.Active()
	if len(active) < c.config.MinParticipants {
		c.rejectStart(sender, fmt.Sprintf("need at least %d participants to start", c.config.MinParticipants))
		return
	}
	if c.config.StrictSpawn && len(active) > c.spawns.Size() {
		c.rejectStart(sender, fmt.Sprintf("only %d starting positions for %d participants", c.spawns.Size(), len(active)))
		return
	}

	now := c.clock.Now()
	raceID := c.newRaceID()

	c.spawns.Reset()
	spawns := make(map[ParticipantID]protocol.SpawnInfo, len(active))
	for _, p := range active {
		slot, degraded := c.spawns.Acquire(p.ID)
		if degraded {
			c.logger.Warn("spawn pool exhausted, reusing slot 0", "participant", p.ID, "pool", c.spawns.Size())
		}
		p.Slot = &slot
		p.FinishedAt = nil

		pt := c.spawns.Point(slot)
		spawns[p.ID] = protocol.SpawnInfo{
			Name:     p.Name,
			Slot:     slot,
			X:        pt.X,
			Y:        pt.Y,
			Rotation: pt.Rotation,
		}
	}

	c.lifecycle.Begin(raceID, now, c.settings.Rounds, active)
	c.phase = PhaseRacing

	c.router.BroadcastAll(protocol.NewStartGame(raceID, spawns, c.settings, now.UnixMilli()))
	c.logger.Info("race started", "race", raceID, "racers", len(active), "rounds", c.settings.Rounds)
}

func (c *Coordinator) rejectStartInProgress(sender *Participant, _ protocol.Inbound) {
	if c.phase == PhaseResults {
		c.rejectStart(sender, "return to the lobby before starting a new race")
		return
	}
	c.rejectStart(sender, "race already in progress")
}

func (c *Coordinator) rejectStart(host *Participant, reason string) {
	c.router.SendTo(host.ID, protocol.NewStartGameError(reason))
	c.logger.Debug("start rejected", "participant", host.ID, "reason", reason)
}

func (c *Coordinator) relayUpdate(sender *Participant, msg protocol.Inbound) {
	u, ok := msg.(protocol.PlayerUpdate)
	if !ok {
		return
	}
	c.router.BroadcastExcept(protocol.NewPlayerUpdateRelay(sender.ID, u), sender.ID)
}

// recordFinish trusts the client's report; lap progress is not verified.
func (c *Coordinator) recordFinish(sender *Participant, _ protocol.Inbound) {
	now := c.clock.Now()
	if !c.lifecycle.RecordFinish(sender.ID, now) {
		c.logger.Debug("duplicate finish ignored", "participant", sender.ID)
		return
	}
	sender.FinishedAt = &now

	c.logger.Info("racer finished",
		"participant", sender.ID,
		"elapsed", now.Sub(c.lifecycle.StartedAt()),
		"finished", c.lifecycle.FinishedCount(),
	)
	c.checkSessionEnd()
}

func (c *Coordinator) checkSessionEnd() {
	if c.phase != PhaseRacing {
		return
	}
	connected := func(id ParticipantID) bool {
		_, ok := c.registry.Get(id)
		return ok
	}
	if c.lifecycle.Complete(connected) {
		c.finishRace()
	}
}

func (c *Coordinator) finishRace() {
	results := c.lifecycle.Results()
	c.phase = PhaseResults
	c.lastResults = results

	entries := make([]protocol.ResultEntry, len(results))
	for i, r := range results {
		entries[i] = r.Entry()
	}
	c.router.BroadcastAll(protocol.NewShowResults(c.lifecycle.RaceID(), entries))
	c.logger.Info("race finished", "race", c.lifecycle.RaceID(), "results", len(results))

	c.record(RaceRecord{
		RaceID:     c.lifecycle.RaceID(),
		Rounds:     c.lifecycle.Rounds(),
		StartedAt:  c.lifecycle.StartedAt(),
		FinishedAt: c.clock.Now(),
		Results:    append([]Result(nil), results...),
	})
}

// record hands rec to every recorder without blocking the event loop.
func (c *Coordinator) record(rec RaceRecord) {
	for _, r := range c.recorders {
		go func(r ResultRecorder) {
			if err := r.RecordRace(rec); err != nil {
				c.logger.Error("failed to record race", "race", rec.RaceID, "error", err)
			}
		}(r)
	}
}

func (c *Coordinator) returnToLobby(sender *Participant, _ protocol.Inbound) {
	from := c.phase
	c.phase = PhaseWaiting
	c.spawns.Reset()
	c.lifecycle.Reset()

	active := c.registry.Active()
	for _, p := range active {
		p.Slot = nil
		p.FinishedAt = nil
	}
	for _, p := range active {
		c.router.SendTo(p.ID, c.lobbyInfo(p.ID))
	}
	c.logger.Info("returned to lobby", "participant", sender.ID, "from", from)
}

// reset restores defaults once the last participant has left.
func (c *Coordinator) reset() {
	c.phase = PhaseWaiting
	c.host = nil
	c.settings = Settings{Rounds: c.config.DefaultRounds}
	c.spawns.Reset()
	c.lifecycle.Reset()
	c.logger.Info("session reset")
}

func (c *Coordinator) lobbyInfo(id ParticipantID) protocol.LobbyInfo {
	var host *ParticipantID
	if c.host != nil {
		h := *c.host
		host = &h
	}
	return protocol.NewLobbyInfo(id, host, c.phase, c.registry.ListActive(), c.settings)
}

func (c *Coordinator) snapshot() Snapshot {
	snap := Snapshot{
		Phase:    c.phase,
		Settings: c.settings,
		RaceID:   c.lifecycle.RaceID(),
		Roster:   []ParticipantView{},
	}
	if c.host != nil {
		h := *c.host
		snap.HostID = &h
	}
	if c.lifecycle.Started() {
		at := c.lifecycle.StartedAt()
		snap.StartedAt = &at
	}

	for _, p := range c.registry.Active() {
		v := ParticipantView{
			ID:     p.ID,
			Name:   p.Name,
			IsHost: c.host != nil && *c.host == p.ID,
		}
		if p.Slot != nil {
			slot := *p.Slot
			v.Slot = &slot
		}
		if at, ok := c.lifecycle.FinishedAt(p.ID); ok {
			elapsed := at.Sub(c.lifecycle.StartedAt()).Round(time.Millisecond)
			ms := elapsed.Milliseconds()
			v.Finished = true
			v.Elapsed = &elapsed
			v.TimeMs = &ms
		}
		snap.Roster = append(snap.Roster, v)
	}

	for _, r := range c.lastResults {
		snap.LastResults = append(snap.LastResults, r.Entry())
	}
	return snap
}
