package config

import "testing"

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	cfg := Default()
	cfg.World.Width = 0
	cfg.World.Height = -10
	cfg.Player.HP = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	msg := err.Error()
	for _, want := range []string{"world.width", "world.height", "player.hp"} {
		if !contains(msg, want) {
			t.Errorf("expected error to mention %q, got: %s", want, msg)
		}
	}
}

func TestValidateRejectsOutOfRangeDropoff(t *testing.T) {
	cfg := Default()
	cfg.Projectiles.Bullet.DamageDropoff = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for damageDropoff out of [0,1]")
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
