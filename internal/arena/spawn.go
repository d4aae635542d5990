package arena

import (
	"math"
	"math/rand"

	"go.uber.org/zap"
)

// SpawnConfig configures the rejection-sampling spawn search.
type SpawnConfig struct {
	MarginL, MarginR, MarginT, MarginB float64
	MinDistanceFromPlayers             float64
	MaxAttempts                        int
}

// DefaultSpawnConfig insets each side by a tenth of the world dimension
// and keeps fresh spawns a comfortable distance from live players.
func DefaultSpawnConfig(w *World) SpawnConfig {
	return SpawnConfig{
		MarginL:                w.Bounds.W * 0.1,
		MarginR:                w.Bounds.W * 0.1,
		MarginT:                w.Bounds.H * 0.1,
		MarginB:                w.Bounds.H * 0.1,
		MinDistanceFromPlayers: 150,
		MaxAttempts:            32,
	}
}

// SpawnManager finds safe spawn positions respecting margins, obstacle
// rects and minimum distance from live players.
type SpawnManager struct {
	world *World
	cfg   SpawnConfig
	rng   *rand.Rand
	log   *zap.Logger
}

// NewSpawnManager wires a spawn manager to a world and its own RNG source
// (kept separate from any other RNG use so spawn search is deterministic
// given a seed, without coupling to simulation timing).
func NewSpawnManager(world *World, cfg SpawnConfig, seed int64) *SpawnManager {
	return &SpawnManager{world: world, cfg: cfg, rng: rand.New(rand.NewSource(seed)), log: zap.NewNop()}
}

// SetLogger binds the logger used for the emergency-fallback warning.
// Optional: defaults to a no-op logger so tests don't need to wire one.
func (s *SpawnManager) SetLogger(log *zap.Logger) {
	if log != nil {
		s.log = log
	}
}

// IsWithinSpawnBounds reports whether p lies inside the inner rectangle.
func (s *SpawnManager) IsWithinSpawnBounds(p Vec2) bool {
	return s.innerRect().Contains(p)
}

func (s *SpawnManager) innerRect() Rect {
	return s.world.InnerBounds(s.cfg.MarginL, s.cfg.MarginR, s.cfg.MarginT, s.cfg.MarginB)
}

// GetRandomSafePosition draws uniformly from the inner rectangle without
// checking obstacles or player distance.
func (s *SpawnManager) GetRandomSafePosition() Vec2 {
	r := s.innerRect()
	return Vec2{
		X: r.X + s.rng.Float64()*r.W,
		Y: r.Y + s.rng.Float64()*r.H,
	}
}

// IsPositionBlocked reports whether p falls inside any obstacle rect.
func (s *SpawnManager) IsPositionBlocked(p Vec2) bool {
	for _, o := range s.world.Obstacles {
		if o.Contains(p) {
			return true
		}
	}
	return false
}

func (s *SpawnManager) minDistanceToLivePlayers(p Vec2) float64 {
	min := math.MaxFloat64
	for _, pl := range s.world.Players {
		if pl.IsDead {
			continue
		}
		if d := p.DistanceTo(pl.Pos); d < min {
			min = d
		}
	}
	return min
}

// FindSafeSpawnPosition implements the rejection-sampling search: up to
// MaxAttempts uniform candidates are tried; each must be in
// bounds, unblocked, and at least MinDistanceFromPlayers from every live
// player. Failing that, 16 more unblocked samples are taken and the one
// farthest from any live player is used. As a last resort, the world
// center is tried, then four corner-inset points, and finally the center
// again even if blocked (logged as a warning by emergencyPosition).
func (s *SpawnManager) FindSafeSpawnPosition() Vec2 {
	for i := 0; i < s.cfg.MaxAttempts; i++ {
		p := s.GetRandomSafePosition()
		if s.IsPositionBlocked(p) {
			continue
		}
		if s.minDistanceToLivePlayers(p) >= s.cfg.MinDistanceFromPlayers {
			return p
		}
	}

	var best Vec2
	bestDist := -1.0
	found := false
	for i := 0; i < 16; i++ {
		p := s.GetRandomSafePosition()
		if s.IsPositionBlocked(p) {
			continue
		}
		if d := s.minDistanceToLivePlayers(p); d > bestDist {
			bestDist = d
			best = p
			found = true
		}
	}
	if found {
		return best
	}

	return s.emergencyPosition()
}

// emergencyPosition tries the world center, then four corner-inset points,
// and finally the center again even if blocked.
func (s *SpawnManager) emergencyPosition() Vec2 {
	r := s.innerRect()
	center := Vec2{X: r.X + r.W/2, Y: r.Y + r.H/2}
	if !s.IsPositionBlocked(center) {
		return center
	}

	inset := math.Min(r.W, r.H) * 0.1
	corners := []Vec2{
		{X: r.X + inset, Y: r.Y + inset},
		{X: r.X + r.W - inset, Y: r.Y + inset},
		{X: r.X + inset, Y: r.Y + r.H - inset},
		{X: r.X + r.W - inset, Y: r.Y + r.H - inset},
	}
	for _, c := range corners {
		if !s.IsPositionBlocked(c) {
			return c
		}
	}

	s.log.Warn("spawn manager exhausted every fallback, placing at blocked center",
		zap.Float64("x", center.X), zap.Float64("y", center.Y))
	return center
}

// AdjustSpawnPointsToMargins clamps each point in list into the inner
// rectangle, used when loading externally-provided spawn points.
func (s *SpawnManager) AdjustSpawnPointsToMargins(list []Vec2) []Vec2 {
	r := s.innerRect()
	out := make([]Vec2, len(list))
	for i, p := range list {
		x := math.Max(r.X, math.Min(r.X+r.W, p.X))
		y := math.Max(r.Y, math.Min(r.Y+r.H, p.Y))
		out[i] = Vec2{X: x, Y: y}
	}
	return out
}
