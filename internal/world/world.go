// Package world is the agent's view of the simulated world: who is nearby,
// which blocks surround it, and the movement and work primitives it can ask
// the world to perform.
package world

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotConnected is returned while the client has no live session.
	ErrNotConnected = errors.New("world: not connected")
	// ErrUnknownBlock is returned for positions outside the observed window.
	ErrUnknownBlock = errors.New("world: block not observed")
)

// Vec3 is an integer block position.
type Vec3 struct {
	X, Y, Z int
}

func (v Vec3) String() string { return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z) }

// Array returns v in wire form.
func (v Vec3) Array() [3]int { return [3]int{v.X, v.Y, v.Z} }

// DistanceTo returns the euclidean distance between two positions.
func (v Vec3) DistanceTo(o Vec3) float64 {
	dx, dy, dz := float64(v.X-o.X), float64(v.Y-o.Y), float64(v.Z-o.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// VecFrom converts a wire position.
func VecFrom(a [3]int) Vec3 { return Vec3{X: a[0], Y: a[1], Z: a[2]} }

// BlockType is one entry of the world's block catalog.
type BlockType struct {
	ID   uint16
	Name string
}

// Block is a concrete block at a position.
type Block struct {
	Pos  Vec3
	Type BlockType
}

// GoalKind selects how NavigateTo interprets a Goal.
type GoalKind int

const (
	// GoalFollow keeps within Range of the entity named by Entity.
	GoalFollow GoalKind = iota + 1
	// GoalBlock walks to within Range of Pos.
	GoalBlock
)

// Goal is a movement directive.
type Goal struct {
	Kind   GoalKind
	Entity string
	Pos    Vec3
	Range  float64
}

// FollowGoal builds a pursuit goal that keeps distance units from entity.
func FollowGoal(entity string, distance float64) Goal {
	return Goal{Kind: GoalFollow, Entity: entity, Range: distance}
}

// BlockGoal builds a goal that reaches pos.
func BlockGoal(pos Vec3) Goal {
	return Goal{Kind: GoalBlock, Pos: pos, Range: 1.2}
}

// TaskError reports a world-side rejection or failure of a request.
type TaskError struct {
	Code    string
	Message string
}

func (e *TaskError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// World is the capability set the agent core calls into. Every call may
// block and may fail; callers own the error policy.
type World interface {
	// ResolvePlayer returns the live position of a player, or false if the
	// player is not currently present.
	ResolvePlayer(ctx context.Context, name string) (Vec3, bool, error)
	// NavigateTo moves toward goal.
	NavigateTo(ctx context.Context, goal Goal) error
	// StopNavigation cancels movement and any in-flight work.
	StopNavigation(ctx context.Context) error
	// BlockType resolves a block name against the world's catalog.
	BlockType(name string) (BlockType, bool)
	// FindNearby returns up to count positions of blocks of type bt within
	// radius of the agent, nearest first.
	FindNearby(ctx context.Context, bt BlockType, radius, count int) ([]Vec3, error)
	// BlockAt returns the block at pos.
	BlockAt(ctx context.Context, pos Vec3) (Block, error)
	// SelectToolFor equips the best available implement for b.
	SelectToolFor(ctx context.Context, b Block) error
	// Extract breaks b.
	Extract(ctx context.Context, b Block) error
	// Chat posts text to the shared world chat.
	Chat(ctx context.Context, text string) error
}
