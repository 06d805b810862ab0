package world

import (
	"fmt"
	"sort"
)

// Window is the cube of blocks the agent currently observes, centered on the
// agent and stored in dy, dz, dx order with x varying fastest.
type Window struct {
	center Vec3
	radius int
	ids    []uint16
}

func (w *Window) dim() int { return 2*w.radius + 1 }

// Apply updates the window from an observation. A DELTA frame is only valid
// on top of a full frame with the same center and radius.
func (w *Window) Apply(v VoxelsObs) error {
	switch v.Encoding {
	case "RLE", "":
		ids, err := DecodeRLE(v.Data)
		if err != nil {
			return err
		}
		dim := 2*v.Radius + 1
		if len(ids) != dim*dim*dim {
			return fmt.Errorf("voxel window: expected %d ids, got %d", dim*dim*dim, len(ids))
		}
		w.center = VecFrom(v.Center)
		w.radius = v.Radius
		w.ids = ids
		return nil
	case "DELTA":
		if w.ids == nil || w.radius != v.Radius || w.center != VecFrom(v.Center) {
			return fmt.Errorf("voxel window: delta without matching base frame")
		}
		for _, op := range v.Ops {
			i, ok := w.index(op.D[0], op.D[1], op.D[2])
			if !ok {
				return fmt.Errorf("voxel window: delta %v out of range", op.D)
			}
			w.ids[i] = op.B
		}
		return nil
	default:
		return fmt.Errorf("voxel window: unknown encoding %q", v.Encoding)
	}
}

func (w *Window) index(dx, dy, dz int) (int, bool) {
	r := w.radius
	if dx < -r || dx > r || dy < -r || dy > r || dz < -r || dz > r {
		return 0, false
	}
	d := w.dim()
	return (dy+r)*d*d + (dz+r)*d + (dx + r), true
}

// At returns the palette id at an absolute position.
func (w *Window) At(p Vec3) (uint16, bool) {
	if w.ids == nil {
		return 0, false
	}
	i, ok := w.index(p.X-w.center.X, p.Y-w.center.Y, p.Z-w.center.Z)
	if !ok {
		return 0, false
	}
	return w.ids[i], true
}

// Find returns up to count positions holding id within radius of from,
// nearest first. Ties keep scan order.
func (w *Window) Find(id uint16, from Vec3, radius, count int) []Vec3 {
	if w.ids == nil || count <= 0 {
		return nil
	}
	type hit struct {
		pos  Vec3
		dist float64
	}
	var hits []hit
	r, d := w.radius, w.dim()
	for i, b := range w.ids {
		if b != id {
			continue
		}
		dx := i%d - r
		dz := (i/d)%d - r
		dy := i/(d*d) - r
		p := Vec3{X: w.center.X + dx, Y: w.center.Y + dy, Z: w.center.Z + dz}
		dist := p.DistanceTo(from)
		if dist > float64(radius) {
			continue
		}
		hits = append(hits, hit{pos: p, dist: dist})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].dist < hits[b].dist })
	if len(hits) > count {
		hits = hits[:count]
	}
	out := make([]Vec3, len(hits))
	for i, h := range hits {
		out[i] = h.pos
	}
	return out
}
