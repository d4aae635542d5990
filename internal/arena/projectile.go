package arena

// ProjectileKind selects the physics and damage curve for a projectile.
type ProjectileKind string

const (
	KindBullet ProjectileKind = "bullet"
	KindPellet ProjectileKind = "pellet"
	KindRocket ProjectileKind = "rocket"
)

// Projectile is a moving attack entity owned by the World. Damage is
// mutable: each successful bounce scales it by DamageDropoff.
type Projectile struct {
	ID      string
	OwnerID string
	Kind    ProjectileKind

	Pos Vec2
	Vel Vec2

	HitRadius float64
	Damage    float64

	LifetimeMs int64
	SpawnTime  int64

	BounceCount       int
	MaxBounces        int
	DamageDropoff     float64
	VelocityRetention float64
}

// Age returns how long (ms) the projectile has existed.
func (pr *Projectile) Age(now int64) int64 {
	return now - pr.SpawnTime
}

// Expired reports whether the projectile has outlived its lifetime.
func (pr *Projectile) Expired(now int64) bool {
	return pr.Age(now) >= pr.LifetimeMs
}

// Bounce reflects velocity across normal, applies velocity retention and
// damage dropoff, and increments the bounce counter. The caller is
// responsible for despawning the projectile if BounceCount > MaxBounces
// after calling Bounce.
func (pr *Projectile) Bounce(normal Vec2) {
	pr.Vel = pr.Vel.Reflect(normal).Scale(pr.VelocityRetention)
	pr.Damage *= pr.DamageDropoff
	pr.BounceCount++
}

// CurrentDamage returns the damage to deal on the next hit, rounded to the
// nearest whole point for the outbound damage:applied event.
func (pr *Projectile) CurrentDamage() int {
	return int(pr.Damage + 0.5)
}
