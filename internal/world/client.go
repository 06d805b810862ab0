package world

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/crystaldolphin/blockhand/internal/bus"
)

// Options configures a Client.
type Options struct {
	URL         string
	Token       string
	AgentName   string
	ChatChannel string
	Reconnect   time.Duration

	// Bus receives world chat and supplies the lines the agent wants said.
	// Optional.
	Bus bus.Bus
	// OnSpawn runs after every WELCOME.
	OnSpawn func(ctx context.Context)
	Logger  *zap.Logger
}

type waitResult struct {
	taskID string
	err    error
}

type waiter struct {
	awaitDone bool
	taskID    string
	done      chan waitResult
}

func newWaiter(awaitDone bool) *waiter {
	return &waiter{awaitDone: awaitDone, done: make(chan waitResult, 1)}
}

func (w *waiter) settle(r waitResult) {
	select {
	case w.done <- r:
	default:
	}
}

// Client is the World implementation backed by a voxel world gateway.
type Client struct {
	opts   Options
	log    *zap.Logger
	dialer *websocket.Dialer

	writeMu sync.Mutex

	mu         sync.Mutex
	conn       *websocket.Conn
	agentID    string
	tick       uint64
	self       Vec3
	inventory  []ItemStack
	mainHand   string
	entities   []EntityObs
	palette    []string
	paletteIdx map[string]uint16
	paletteBuf []string
	window     Window
	inflight   map[string]string // task id -> kind, as of the latest OBS
	pending    map[string]*waiter
	tasks      map[string]*waiter
	followWho  string
	followTask string

	hooks sync.WaitGroup
}

var _ World = (*Client)(nil)

func NewClient(opts Options) *Client {
	if opts.Reconnect <= 0 {
		opts.Reconnect = 5 * time.Second
	}
	if opts.ChatChannel == "" {
		opts.ChatChannel = "LOCAL"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		opts:       opts,
		log:        log,
		dialer:     websocket.DefaultDialer,
		paletteIdx: map[string]uint16{},
		inflight:   map[string]string{},
		pending:    map[string]*waiter{},
		tasks:      map[string]*waiter{},
	}
}

// Start keeps a session open until ctx ends, reconnecting after failures,
// and says every outbound bus message in publish order.
func (c *Client) Start(ctx context.Context) error {
	c.log.Info("world: connecting", zap.String("url", c.opts.URL))

	var pump sync.WaitGroup
	if c.opts.Bus != nil {
		pump.Add(1)
		go func() {
			defer pump.Done()
			c.pumpOutbound(ctx)
		}()
	}
	defer func() {
		pump.Wait()
		c.hooks.Wait()
	}()

	for {
		if err := c.connectOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("world: connection lost, reconnecting",
				zap.Error(err), zap.Duration("backoff", c.opts.Reconnect))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.opts.Reconnect):
		}
	}
}

// Connected reports whether a session is live.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.agentID != ""
}

// AgentID returns the id assigned by the last WELCOME.
func (c *Client) AgentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agentID
}

func (c *Client) connectOnce(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer c.teardown(conn)

	hello := HelloMsg{
		Type:            TypeHello,
		ProtocolVersion: ProtocolVersion,
		AgentName:       c.opts.AgentName,
		Capabilities:    HelloCapabilities{DeltaVoxels: true, MaxQueue: 8},
	}
	if c.opts.Token != "" {
		hello.Auth = &HelloAuth{Token: c.opts.Token}
	}
	if err := c.writeJSON(conn, hello); err != nil {
		return fmt.Errorf("send HELLO: %w", err)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				c.log.Warn("world: session closed by server",
					zap.Int("code", ce.Code), zap.String("reason", ce.Text))
			}
			return err
		}
		c.handle(ctx, raw)
	}
}

func (c *Client) teardown(conn *websocket.Conn) {
	conn.Close()

	c.mu.Lock()
	waiters := make([]*waiter, 0, len(c.pending)+len(c.tasks))
	for _, w := range c.pending {
		waiters = append(waiters, w)
	}
	for _, w := range c.tasks {
		waiters = append(waiters, w)
	}
	c.conn = nil
	c.agentID = ""
	c.pending = map[string]*waiter{}
	c.tasks = map[string]*waiter{}
	c.inflight = map[string]string{}
	c.followWho, c.followTask = "", ""
	c.window = Window{}
	c.mu.Unlock()

	for _, w := range waiters {
		w.settle(waitResult{err: ErrNotConnected})
	}
}

func (c *Client) handle(ctx context.Context, raw []byte) {
	base, err := DecodeBase(raw)
	if err != nil {
		c.log.Debug("world: undecodable message", zap.Error(err))
		return
	}
	switch base.Type {
	case TypeWelcome:
		var w WelcomeMsg
		if err := json.Unmarshal(raw, &w); err != nil {
			c.log.Warn("world: bad WELCOME", zap.Error(err))
			return
		}
		c.mu.Lock()
		c.agentID = w.AgentID
		c.mu.Unlock()
		c.log.Info("world: spawned",
			zap.String("agent_id", w.AgentID),
			zap.Int("tick_rate", w.WorldParams.TickRateHz),
			zap.Int("obs_radius", w.WorldParams.ObsRadius))
		if c.opts.OnSpawn != nil {
			c.hooks.Add(1)
			go func() {
				defer c.hooks.Done()
				c.opts.OnSpawn(ctx)
			}()
		}

	case TypeCatalog:
		var m CatalogMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			c.log.Warn("world: bad CATALOG", zap.Error(err))
			return
		}
		if m.Name == CatalogBlockPalette {
			c.applyPalette(m)
		}

	case TypeObs:
		var obs ObsMsg
		if err := json.Unmarshal(raw, &obs); err != nil {
			c.log.Warn("world: bad OBS", zap.Error(err))
			return
		}
		c.applyObs(&obs)
	}
}

func (c *Client) applyPalette(m CatalogMsg) {
	var names []string
	if err := json.Unmarshal(m.Data, &names); err != nil {
		c.log.Warn("world: bad block palette", zap.Error(err))
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.Part <= 1 {
		c.paletteBuf = nil
	}
	c.paletteBuf = append(c.paletteBuf, names...)
	if m.TotalParts > 0 && m.Part < m.TotalParts {
		return
	}
	c.palette = c.paletteBuf
	c.paletteBuf = nil
	c.paletteIdx = make(map[string]uint16, len(c.palette))
	for i, n := range c.palette {
		c.paletteIdx[strings.ToLower(n)] = uint16(i)
	}
	c.log.Debug("world: block palette loaded", zap.Int("blocks", len(c.palette)))
}

func (c *Client) applyObs(obs *ObsMsg) {
	var heard []bus.InboundMessage

	c.mu.Lock()
	c.tick = obs.Tick
	if obs.AgentID != "" {
		c.agentID = obs.AgentID
	}
	c.self = VecFrom(obs.Self.Pos)
	c.inventory = obs.Inventory
	c.mainHand = obs.Equipment.MainHand
	c.entities = obs.Entities
	if err := c.window.Apply(obs.Voxels); err != nil {
		c.log.Warn("world: voxel window rejected", zap.Error(err))
	}
	c.inflight = make(map[string]string, len(obs.Tasks))
	for _, t := range obs.Tasks {
		c.inflight[t.TaskID] = t.Kind
	}

	for _, ev := range obs.Events {
		switch ev.Type() {
		case EventChat:
			from, text := ev.str("from"), ev.str("text")
			if c.isSelf(from) || strings.TrimSpace(text) == "" {
				continue
			}
			msg := bus.NewInboundMessage(bus.ChannelWorld, from, ev.str("channel"), text)
			msg.SetMetadata(map[string]any{"tick": obs.Tick})
			heard = append(heard, msg)

		case EventActionResult:
			w, ok := c.pending[ev.str("ref")]
			if !ok {
				continue
			}
			delete(c.pending, ev.str("ref"))
			taskID := ev.str("task_id")
			switch {
			case !ev.ok():
				w.settle(waitResult{err: &TaskError{Code: ev.str("code"), Message: ev.str("message")}})
			case w.awaitDone && taskID != "":
				w.taskID = taskID
				c.tasks[taskID] = w
			default:
				w.settle(waitResult{taskID: taskID})
			}

		case EventTaskDone:
			taskID := ev.str("task_id")
			if taskID == c.followTask {
				c.followWho, c.followTask = "", ""
			}
			if w, ok := c.tasks[taskID]; ok {
				delete(c.tasks, taskID)
				w.settle(waitResult{taskID: taskID})
			}

		case EventTaskFail:
			taskID := ev.str("task_id")
			if taskID == c.followTask {
				c.followWho, c.followTask = "", ""
			}
			if w, ok := c.tasks[taskID]; ok {
				delete(c.tasks, taskID)
				w.settle(waitResult{taskID: taskID, err: &TaskError{Code: ev.str("code"), Message: ev.str("message")}})
			}
		}
	}
	c.mu.Unlock()

	if c.opts.Bus == nil {
		return
	}
	for _, m := range heard {
		c.log.Info("world: chat", zap.String("from", m.SenderId()), zap.String("text", m.Preview()))
		c.opts.Bus.PublishInbound(m)
	}
}

// isSelf must be called with c.mu held.
func (c *Client) isSelf(from string) bool {
	return from != "" && (from == c.agentID || strings.EqualFold(from, c.opts.AgentName))
}

// findEntity must be called with c.mu held.
func (c *Client) findEntity(name string) (EntityObs, bool) {
	for _, e := range c.entities {
		if e.Type != "AGENT" {
			continue
		}
		if strings.EqualFold(e.ID, name) {
			return e, true
		}
		for _, tag := range e.Tags {
			if strings.EqualFold(tag, "name:"+name) {
				return e, true
			}
		}
	}
	return EntityObs{}, false
}

func (c *Client) writeJSON(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (c *Client) send(act ActMsg) error {
	c.mu.Lock()
	conn := c.conn
	act.Type = TypeAct
	act.ProtocolVersion = ProtocolVersion
	act.Tick = c.tick
	act.AgentID = c.agentID
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return c.writeJSON(conn, act)
}

// request sends act, whose single instant or task carries id, and waits for
// the ACTION_RESULT. With awaitDone it keeps waiting for TASK_DONE or
// TASK_FAIL. Cancelling ctx cancels the server-side task.
func (c *Client) request(ctx context.Context, id string, act ActMsg, awaitDone bool) (string, error) {
	w := newWaiter(awaitDone)
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return "", ErrNotConnected
	}
	c.pending[id] = w
	c.mu.Unlock()

	if err := c.send(act); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return "", err
	}

	select {
	case r := <-w.done:
		return r.taskID, r.err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		taskID := w.taskID
		if taskID != "" {
			delete(c.tasks, taskID)
		}
		c.mu.Unlock()
		if taskID != "" {
			if err := c.send(ActMsg{Cancel: []string{taskID}}); err != nil {
				c.log.Debug("world: cancel failed", zap.String("task_id", taskID), zap.Error(err))
			}
		}
		return "", ctx.Err()
	}
}

func newID(prefix string) string { return prefix + "_" + uuid.NewString() }

func (c *Client) ResolvePlayer(_ context.Context, name string) (Vec3, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return Vec3{}, false, ErrNotConnected
	}
	e, ok := c.findEntity(name)
	if !ok {
		return Vec3{}, false, nil
	}
	return VecFrom(e.Pos), true, nil
}

func (c *Client) NavigateTo(ctx context.Context, goal Goal) error {
	switch goal.Kind {
	case GoalFollow:
		return c.follow(ctx, goal)
	case GoalBlock:
		id := newID("K_move")
		act := ActMsg{Tasks: []TaskReq{{ID: id, Type: TaskMoveTo, Target: goal.Pos.Array(), Tolerance: goal.Range}}}
		_, err := c.request(ctx, id, act, true)
		return err
	default:
		return fmt.Errorf("world: unsupported goal kind %d", goal.Kind)
	}
}

func (c *Client) follow(ctx context.Context, goal Goal) error {
	c.mu.Lock()
	e, ok := c.findEntity(goal.Entity)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("world: player %s not in view", goal.Entity)
	}
	if c.followWho == e.ID && c.followTask != "" {
		if _, running := c.inflight[c.followTask]; running {
			c.mu.Unlock()
			return nil
		}
	}
	var cancel []string
	if c.followTask != "" {
		cancel = []string{c.followTask}
	}
	c.mu.Unlock()

	id := newID("K_follow")
	act := ActMsg{
		Tasks:  []TaskReq{{ID: id, Type: TaskFollow, TargetID: e.ID, Distance: goal.Range}},
		Cancel: cancel,
	}
	taskID, err := c.request(ctx, id, act, false)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.followWho, c.followTask = e.ID, taskID
	c.inflight[taskID] = TaskFollow
	c.mu.Unlock()
	return nil
}

func (c *Client) StopNavigation(_ context.Context) error {
	c.mu.Lock()
	ids := map[string]struct{}{}
	for id := range c.inflight {
		ids[id] = struct{}{}
	}
	if c.followTask != "" {
		ids[c.followTask] = struct{}{}
	}
	waiters := make([]*waiter, 0, len(c.tasks))
	for id, w := range c.tasks {
		ids[id] = struct{}{}
		waiters = append(waiters, w)
	}
	c.tasks = map[string]*waiter{}
	c.followWho, c.followTask = "", ""
	c.mu.Unlock()

	for _, w := range waiters {
		w.settle(waitResult{err: &TaskError{Code: "E_CANCELED", Message: "stopped"}})
	}
	if len(ids) == 0 {
		return nil
	}
	cancel := make([]string, 0, len(ids))
	for id := range ids {
		cancel = append(cancel, id)
	}
	return c.send(ActMsg{Cancel: cancel})
}

func (c *Client) BlockType(name string) (BlockType, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(name))
	id, ok := c.paletteIdx[key]
	if !ok {
		return BlockType{}, false
	}
	return BlockType{ID: id, Name: key}, true
}

func (c *Client) FindNearby(_ context.Context, bt BlockType, radius, count int) ([]Vec3, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.window.Find(bt.ID, c.self, radius, count), nil
}

func (c *Client) BlockAt(_ context.Context, pos Vec3) (Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.window.At(pos)
	if !ok {
		return Block{}, fmt.Errorf("%w: %s", ErrUnknownBlock, pos)
	}
	bt := BlockType{ID: id}
	if int(id) < len(c.palette) {
		bt.Name = strings.ToLower(c.palette[id])
	}
	return Block{Pos: pos, Type: bt}, nil
}

func (c *Client) SelectToolFor(ctx context.Context, b Block) error {
	c.mu.Lock()
	item, ok := pickTool(toolKindFor(b.Type.Name), c.inventory)
	equipped := strings.EqualFold(c.mainHand, item)
	c.mu.Unlock()
	if !ok || equipped {
		return nil
	}
	id := newID("I_equip")
	_, err := c.request(ctx, id, ActMsg{Instants: []InstantReq{{ID: id, Type: InstantEquip, ItemID: item}}}, false)
	return err
}

func (c *Client) Extract(ctx context.Context, b Block) error {
	id := newID("K_mine")
	act := ActMsg{Tasks: []TaskReq{{ID: id, Type: TaskMine, BlockPos: b.Pos.Array()}}}
	_, err := c.request(ctx, id, act, true)
	return err
}

func (c *Client) Chat(_ context.Context, text string) error {
	return c.say(c.opts.ChatChannel, text)
}

func (c *Client) say(channel, text string) error {
	if channel == "" {
		channel = c.opts.ChatChannel
	}
	return c.send(ActMsg{Instants: []InstantReq{{ID: newID("I_say"), Type: InstantSay, Channel: channel, Text: text}}})
}

func (c *Client) pumpOutbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.opts.Bus.OutboundChan():
			if err := c.say(msg.ChatId(), msg.Content()); err != nil {
				c.log.Warn("world: chat line dropped", zap.String("text", msg.Content()), zap.Error(err))
			}
		}
	}
}
