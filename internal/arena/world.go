package arena

// Rect is an axis-aligned rectangle in world units, used for both the world
// bounds and static obstacles.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether p lies inside the rect, inclusive of the edges.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// PenetrationNormal returns the outward normal and depth of the shortest
// push needed to move p (assumed inside the rect) across the nearest edge,
// used both for a player circle fully inside an obstacle and for a
// projectile's point-in-rect bounce normal.
func (r Rect) PenetrationNormal(p Vec2) (normal Vec2, depth float64) {
	left := p.X - r.X
	right := (r.X + r.W) - p.X
	top := p.Y - r.Y
	bottom := (r.Y + r.H) - p.Y

	depth = left
	normal = Vec2{X: -1, Y: 0}
	if right < depth {
		depth = right
		normal = Vec2{X: 1, Y: 0}
	}
	if top < depth {
		depth = top
		normal = Vec2{X: 0, Y: -1}
	}
	if bottom < depth {
		depth = bottom
		normal = Vec2{X: 0, Y: 1}
	}
	return normal, depth
}

// ClosestPoint returns the closest point on/in the rect to p.
func (r Rect) ClosestPoint(p Vec2) Vec2 {
	x := p.X
	if x < r.X {
		x = r.X
	} else if x > r.X+r.W {
		x = r.X + r.W
	}
	y := p.Y
	if y < r.Y {
		y = r.Y
	} else if y > r.Y+r.H {
		y = r.Y + r.H
	}
	return Vec2{x, y}
}

// Obstacle is a static rectangular collider loaded at map initialization.
type Obstacle struct {
	Rect
}

// PickupKind selects the buff a pickup grants on collection.
type PickupKind string

const (
	PickupHeal   PickupKind = "heal"
	PickupHaste  PickupKind = "haste"
	PickupShield PickupKind = "shield"
)

// Pickup is a collectible entity owned by the World.
type Pickup struct {
	ID   string
	Pos  Vec2
	Kind PickupKind
}

// World owns the authoritative mapping from entity id to player, projectile
// and pickup, plus the bounds rectangle and static obstacle list. It holds
// no business logic; other components mutate it.
type World struct {
	Bounds    Rect
	Obstacles []Obstacle

	Players     map[string]*Player
	Projectiles map[string]*Projectile
	Pickups     map[string]*Pickup
}

// NewWorld constructs an empty world with the given bounds and obstacles.
func NewWorld(bounds Rect, obstacles []Obstacle) *World {
	return &World{
		Bounds:      bounds,
		Obstacles:   obstacles,
		Players:     make(map[string]*Player),
		Projectiles: make(map[string]*Projectile),
		Pickups:     make(map[string]*Pickup),
	}
}

// InnerBounds returns the spawnable rectangle after applying margins.
func (w *World) InnerBounds(marginL, marginR, marginT, marginB float64) Rect {
	return Rect{
		X: w.Bounds.X + marginL,
		Y: w.Bounds.Y + marginT,
		W: w.Bounds.W - marginL - marginR,
		H: w.Bounds.H - marginT - marginB,
	}
}

// Clamp restricts p to the world bounds.
func (w *World) Clamp(p Vec2) Vec2 {
	x := p.X
	if x < w.Bounds.X {
		x = w.Bounds.X
	} else if x > w.Bounds.X+w.Bounds.W {
		x = w.Bounds.X + w.Bounds.W
	}
	y := p.Y
	if y < w.Bounds.Y {
		y = w.Bounds.Y
	} else if y > w.Bounds.Y+w.Bounds.H {
		y = w.Bounds.Y + w.Bounds.H
	}
	return Vec2{x, y}
}

// InBounds reports whether p lies within the world rectangle.
func (w *World) InBounds(p Vec2) bool {
	return w.Bounds.Contains(p)
}

// LivePlayers returns every non-dead player. Iteration order over maps is
// not stable; callers that need deterministic order must sort.
func (w *World) LivePlayers() []*Player {
	out := make([]*Player, 0, len(w.Players))
	for _, p := range w.Players {
		if !p.IsDead {
			out = append(out, p)
		}
	}
	return out
}

// ObstacleRects returns the obstacle rectangles for collision checks.
func (w *World) ObstacleRects() []Rect {
	out := make([]Rect, len(w.Obstacles))
	for i, o := range w.Obstacles {
		out[i] = o.Rect
	}
	return out
}
