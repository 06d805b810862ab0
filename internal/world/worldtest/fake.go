// Package worldtest provides an in-memory World for tests.
package worldtest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/crystaldolphin/blockhand/internal/world"
)

// Fake is a scripted world. Blocks disappear when extracted, players can be
// added and removed at any time, and every call is recorded.
type Fake struct {
	mu        sync.Mutex
	self      world.Vec3
	players   map[string]world.Vec3
	catalog   map[string]world.BlockType
	blocks    map[world.Vec3]world.BlockType
	navErr    error
	chats     []string
	goals     []world.Goal
	extracted []world.Vec3
	equipped  []world.Block
	stops     int

	// NavigateHook, when set, replaces the default navigation result.
	NavigateHook func(ctx context.Context, goal world.Goal) error
	// ExtractHook, when set, runs before a block is removed. A non-nil error
	// leaves the block in place.
	ExtractHook func(ctx context.Context, b world.Block) error
}

var _ world.World = (*Fake)(nil)

// New returns a Fake whose catalog knows stone, dirt and oak_log.
func New() *Fake {
	f := &Fake{
		players: map[string]world.Vec3{},
		catalog: map[string]world.BlockType{},
		blocks:  map[world.Vec3]world.BlockType{},
	}
	for i, n := range []string{"air", "stone", "dirt", "oak_log"} {
		f.catalog[n] = world.BlockType{ID: uint16(i), Name: n}
	}
	return f
}

func (f *Fake) AddPlayer(name string, pos world.Vec3) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players[name] = pos
}

func (f *Fake) RemovePlayer(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.players, name)
}

// AddBlock places a block of a catalog type. It panics on unknown names.
func (f *Fake) AddBlock(name string, pos world.Vec3) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bt, ok := f.catalog[name]
	if !ok {
		panic("worldtest: unknown block " + name)
	}
	f.blocks[pos] = bt
}

func (f *Fake) SetNavigateErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navErr = err
}

func (f *Fake) Chats() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.chats...)
}

func (f *Fake) Goals() []world.Goal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]world.Goal(nil), f.goals...)
}

func (f *Fake) Extracted() []world.Vec3 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]world.Vec3(nil), f.extracted...)
}

func (f *Fake) Equipped() []world.Block {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]world.Block(nil), f.equipped...)
}

func (f *Fake) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *Fake) ResolvePlayer(_ context.Context, name string) (world.Vec3, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, ok := f.players[name]
	return pos, ok, nil
}

func (f *Fake) NavigateTo(ctx context.Context, goal world.Goal) error {
	f.mu.Lock()
	f.goals = append(f.goals, goal)
	err, hook := f.navErr, f.NavigateHook
	f.mu.Unlock()
	if hook != nil {
		return hook(ctx, goal)
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (f *Fake) StopNavigation(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *Fake) BlockType(name string) (world.BlockType, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bt, ok := f.catalog[strings.ToLower(name)]
	return bt, ok
}

func (f *Fake) FindNearby(_ context.Context, bt world.BlockType, radius, count int) ([]world.Vec3, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []world.Vec3
	for pos, b := range f.blocks {
		if b.ID == bt.ID && pos.DistanceTo(f.self) <= float64(radius) {
			out = append(out, pos)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].DistanceTo(f.self), out[j].DistanceTo(f.self)
		if di != dj {
			return di < dj
		}
		return out[i].String() < out[j].String()
	})
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

func (f *Fake) BlockAt(_ context.Context, pos world.Vec3) (world.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bt, ok := f.blocks[pos]
	if !ok {
		return world.Block{Pos: pos, Type: f.catalog["air"]}, nil
	}
	return world.Block{Pos: pos, Type: bt}, nil
}

func (f *Fake) SelectToolFor(_ context.Context, b world.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.equipped = append(f.equipped, b)
	return nil
}

func (f *Fake) Extract(ctx context.Context, b world.Block) error {
	f.mu.Lock()
	hook := f.ExtractHook
	f.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, b); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blocks, b.Pos)
	f.extracted = append(f.extracted, b.Pos)
	return nil
}

func (f *Fake) Chat(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, text)
	return nil
}
