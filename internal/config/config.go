// Package config is the single source of truth for simulation tuning:
// world, player, projectile, combat and transport settings, with
// environment overrides applied on top of defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// WorldConfig describes the arena rectangle.
type WorldConfig struct {
	Width  float64
	Height float64
}

// PlayerConfig describes per-player movement and collision parameters.
type PlayerConfig struct {
	HP        int
	Speed     float64
	Radius    float64
	TurnSpeed float64 // rad/s
}

// ProjectileKindConfig holds the tunables shared by bullet/pellet/rocket.
type ProjectileKindConfig struct {
	Damage            float64
	Lifetime          int64 // ms
	MaxBounces        int
	DamageDropoff     float64
	VelocityRetention float64
	Speed             float64 // rocket overrides base speed; 0 means use ProjectilesConfig.BaseSpeed
	HitRadius         float64 // rocket overrides base hit radius; 0 means use ProjectilesConfig.HitRadius

	// Pellet-only fan-out.
	Count  int
	Spread float64 // radians, total spread is +/-Spread
}

// ProjectilesConfig groups the shared and per-kind projectile settings.
type ProjectilesConfig struct {
	HitRadius float64
	BaseSpeed float64
	Bullet    ProjectileKindConfig
	Pellet    ProjectileKindConfig
	Rocket    ProjectileKindConfig
}

// ExplosionsConfig describes rocket splash damage.
type ExplosionsConfig struct {
	Radius         float64
	Damage         int
	KnockbackPower float64
}

// CooldownsConfig holds the per-skill cooldown in ms.
type CooldownsConfig struct {
	ShootMs   int64
	ShotgunMs int64
	RocketMs  int64
	DashMs    int64
}

// BuffsConfig holds pickup buff tunables.
type BuffsConfig struct {
	HasteMultiplier       float64
	ShieldReduction       float64
	HasteDefaultDuration  int64 // ms
	ShieldDefaultDuration int64 // ms
}

// CombatConfig holds the movement/combat thresholds.
type CombatConfig struct {
	KnockbackDuration int64 // ms
	AssistTimeWindow  int64 // ms
	HeartbeatInterval int64 // ms
	MovementThreshold float64
}

// TransportConfig bounds the websocket adapter's DoS protections.
type TransportConfig struct {
	MaxConnectionsTotal int
	MaxConnectionsPerIP int
	RateLimitPerSecond  float64
	RateLimitBurst      int
	CORSOrigins         []string
}

// JournalConfig groups the journal subsystem's environment-driven options.
type JournalConfig struct {
	Disabled        bool
	Debug           bool
	JournalsDir     string
	ArtifactsDir    string
	StreamThreshold int
}

// Config is the complete application configuration.
type Config struct {
	Port int

	World       WorldConfig
	Player      PlayerConfig
	Projectiles ProjectilesConfig
	Explosions  ExplosionsConfig
	Cooldowns   CooldownsConfig
	Buffs       BuffsConfig
	Combat      CombatConfig
	Journal     JournalConfig
	Transport   TransportConfig

	TickHz int
}

// Default returns the built-in defaults before environment overrides.
func Default() Config {
	return Config{
		Port: 3000,
		World: WorldConfig{
			Width:  2000,
			Height: 1200,
		},
		Player: PlayerConfig{
			HP:        100,
			Speed:     220,
			Radius:    28,
			TurnSpeed: 6.0,
		},
		Projectiles: ProjectilesConfig{
			HitRadius: 10,
			BaseSpeed: 600,
			Bullet: ProjectileKindConfig{
				Damage:            25,
				Lifetime:          2000,
				MaxBounces:        3,
				DamageDropoff:     0.8,
				VelocityRetention: 0.9,
			},
			Pellet: ProjectileKindConfig{
				Damage:            17,
				Lifetime:          600,
				MaxBounces:        2,
				DamageDropoff:     0.7,
				VelocityRetention: 0.85,
				Count:             8,
				Spread:            0.35,
			},
			Rocket: ProjectileKindConfig{
				Damage:            60,
				Lifetime:          3000,
				MaxBounces:        0,
				DamageDropoff:     1.0,
				VelocityRetention: 1.0,
				Speed:             420,
				HitRadius:         16,
			},
		},
		Explosions: ExplosionsConfig{
			Radius:         180,
			Damage:         60,
			KnockbackPower: 6.0,
		},
		Cooldowns: CooldownsConfig{
			ShootMs:   250,
			ShotgunMs: 900,
			RocketMs:  1800,
			DashMs:    1500,
		},
		Buffs: BuffsConfig{
			HasteMultiplier:       1.6,
			ShieldReduction:       0.5,
			HasteDefaultDuration:  5000,
			ShieldDefaultDuration: 5000,
		},
		Combat: CombatConfig{
			KnockbackDuration: 200,
			AssistTimeWindow:  5000,
			HeartbeatInterval: 300,
			MovementThreshold: 0.5,
		},
		Journal: JournalConfig{
			JournalsDir:     "journals",
			StreamThreshold: 10000,
		},
		Transport: TransportConfig{
			MaxConnectionsTotal: 500,
			MaxConnectionsPerIP: 10,
			RateLimitPerSecond:  10,
			RateLimitBurst:      20,
			CORSOrigins:         []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		TickHz: 30,
	}
}

// Load returns Default() with environment overrides applied.
func Load() Config {
	cfg := Default()

	cfg.Port = getEnvInt("PORT", cfg.Port)
	cfg.TickHz = getEnvInt("ARENA_TICK_HZ", cfg.TickHz)

	cfg.World.Width = getEnvFloat("ARENA_WORLD_WIDTH", cfg.World.Width)
	cfg.World.Height = getEnvFloat("ARENA_WORLD_HEIGHT", cfg.World.Height)

	cfg.Journal.Disabled = getEnvBool("DISABLE_JOURNAL", cfg.Journal.Disabled)
	cfg.Journal.Debug = getEnvBool("DEBUG_JOURNAL", cfg.Journal.Debug)
	cfg.Journal.JournalsDir = getEnvString("JOURNALS_DIR", cfg.Journal.JournalsDir)
	cfg.Journal.ArtifactsDir = getEnvString("EVENT_ARENA_ARTIFACTS_DIR", cfg.Journal.ArtifactsDir)
	cfg.Journal.StreamThreshold = getEnvInt("JOURNAL_STREAM_THRESHOLD", cfg.Journal.StreamThreshold)

	cfg.Transport.MaxConnectionsTotal = getEnvInt("ARENA_MAX_CONNECTIONS_TOTAL", cfg.Transport.MaxConnectionsTotal)
	cfg.Transport.MaxConnectionsPerIP = getEnvInt("ARENA_MAX_CONNECTIONS_PER_IP", cfg.Transport.MaxConnectionsPerIP)

	return cfg
}

// Validate fails fast, listing every violated constraint in one
// human-readable error.
func (c Config) Validate() error {
	var problems []string

	check := func(cond bool, msg string) {
		if !cond {
			problems = append(problems, msg)
		}
	}

	check(c.World.Width > 0, "world.width must be positive")
	check(c.World.Height > 0, "world.height must be positive")
	check(c.Player.HP > 0, "player.hp must be positive")
	check(c.Player.Speed > 0, "player.speed must be positive")
	check(c.Player.Radius > 0, "player.radius must be positive")
	check(c.Player.TurnSpeed > 0, "player.turnSpeed must be positive")

	check(c.Projectiles.HitRadius > 0, "projectiles.hitRadius must be positive")
	check(c.Projectiles.BaseSpeed > 0, "projectiles.baseSpeed must be positive")
	for name, k := range map[string]ProjectileKindConfig{
		"bullet": c.Projectiles.Bullet,
		"pellet": c.Projectiles.Pellet,
		"rocket": c.Projectiles.Rocket,
	} {
		check(k.Damage >= 0, fmt.Sprintf("projectiles.%s.damage must be non-negative", name))
		check(k.Lifetime > 0, fmt.Sprintf("projectiles.%s.lifetime must be positive", name))
		check(k.MaxBounces >= 0, fmt.Sprintf("projectiles.%s.maxBounces must be non-negative", name))
		check(k.DamageDropoff >= 0 && k.DamageDropoff <= 1, fmt.Sprintf("projectiles.%s.damageDropoff must be in [0,1]", name))
		check(k.VelocityRetention >= 0 && k.VelocityRetention <= 1, fmt.Sprintf("projectiles.%s.velocityRetention must be in [0,1]", name))
	}
	check(c.Projectiles.Pellet.Count > 0, "projectiles.pellet.count must be positive")

	check(c.Explosions.Radius > 0, "explosions.radius must be positive")
	check(c.Explosions.Damage >= 0, "explosions.damage must be non-negative")
	check(c.Explosions.KnockbackPower >= 0, "explosions.knockbackPower must be non-negative")

	check(c.Cooldowns.ShootMs > 0, "cooldowns.shoot must be positive")
	check(c.Cooldowns.ShotgunMs > 0, "cooldowns.shotgun must be positive")
	check(c.Cooldowns.RocketMs > 0, "cooldowns.rocket must be positive")
	check(c.Cooldowns.DashMs > 0, "cooldowns.dash must be positive")

	check(c.Buffs.HasteMultiplier > 0, "buffs.hasteMultiplier must be positive")
	check(c.Buffs.ShieldReduction >= 0 && c.Buffs.ShieldReduction <= 1, "buffs.shieldReduction must be in [0,1]")

	check(c.Combat.KnockbackDuration >= 0, "combat.knockbackDuration must be non-negative")
	check(c.Combat.AssistTimeWindow >= 0, "combat.assistTimeWindow must be non-negative")
	check(c.Combat.HeartbeatInterval > 0, "combat.heartbeatInterval must be positive")
	check(c.Combat.MovementThreshold >= 0, "combat.movementThreshold must be non-negative")

	check(c.TickHz > 0, "tick rate must be positive")
	check(c.Port > 0 && c.Port < 65536, "port must be in (0,65536)")

	check(c.Transport.MaxConnectionsTotal > 0, "transport.maxConnectionsTotal must be positive")
	check(c.Transport.MaxConnectionsPerIP > 0, "transport.maxConnectionsPerIP must be positive")
	check(c.Transport.RateLimitPerSecond > 0, "transport.rateLimitPerSecond must be positive")
	check(c.Transport.RateLimitBurst > 0, "transport.rateLimitBurst must be positive")

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return defaultVal
}
