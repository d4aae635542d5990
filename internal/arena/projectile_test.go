package arena

import (
	"math"
	"testing"
)

func TestBounceAppliesDropoffAndRetention(t *testing.T) {
	pr := &Projectile{
		Kind:              KindPellet,
		Vel:               Vec2{X: 600, Y: 0},
		Damage:            17,
		MaxBounces:        2,
		DamageDropoff:     0.7,
		VelocityRetention: 0.85,
	}

	pr.Bounce(Vec2{X: -1, Y: 0})
	if pr.BounceCount != 1 {
		t.Fatalf("got bounce count %d, want 1", pr.BounceCount)
	}
	if pr.Vel.X >= 0 {
		t.Fatalf("got velocity %+v, want reflected X", pr.Vel)
	}
	if math.Abs(pr.Vel.X) != 600*0.85 {
		t.Fatalf("got speed %f, want %f after retention", math.Abs(pr.Vel.X), 600*0.85)
	}

	pr.Bounce(Vec2{X: 1, Y: 0})
	// 17 * 0.7 * 0.7 = 8.33, rounded to the nearest whole point.
	if got := pr.CurrentDamage(); got != 8 {
		t.Fatalf("got damage %d after two bounces, want 8", got)
	}
}

func TestExpiredUsesLifetime(t *testing.T) {
	pr := &Projectile{SpawnTime: 1000, LifetimeMs: 2000}
	if pr.Expired(2999) {
		t.Fatal("projectile should still be alive just before its lifetime")
	}
	if !pr.Expired(3000) {
		t.Fatal("projectile should be expired at exactly its lifetime")
	}
}

func TestReflectAcrossNormal(t *testing.T) {
	v := Vec2{X: 3, Y: 4}
	r := v.Reflect(Vec2{X: 0, Y: -1})
	if r.X != 3 || r.Y != -4 {
		t.Fatalf("got %+v, want {3 -4}", r)
	}
}
