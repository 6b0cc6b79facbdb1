// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Log       LogConfig       `mapstructure:"log"`
	Economy   EconomyConfig   `mapstructure:"economy"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	Games     GamesConfig     `mapstructure:"games"`
	Raid      RaidConfig      `mapstructure:"raid"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// BotConfig holds Discord gateway configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
	AppID string `mapstructure:"app_id"`
	// DevGuildID registers slash commands on one guild only, which applies instantly.
	DevGuildID string `mapstructure:"dev_guild_id"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds guild whitelist configuration.
type WhitelistConfig struct {
	Guilds []int64 `mapstructure:"guilds"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// EconomyConfig holds daily reward configuration.
type EconomyConfig struct {
	DailyMin      int64         `mapstructure:"daily_min"`
	DailyMax      int64         `mapstructure:"daily_max"`
	DailyCooldown time.Duration `mapstructure:"daily_cooldown"`
}

// SessionsConfig holds multiplayer session lifecycle configuration.
type SessionsConfig struct {
	LobbyTimeout    time.Duration `mapstructure:"lobby_timeout"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	ClosedCacheSize int           `mapstructure:"closed_cache_size"`
}

// GamesConfig holds game-specific configuration.
type GamesConfig struct {
	Blackjack TableConfig     `mapstructure:"blackjack"`
	Poker     TableConfig     `mapstructure:"poker"`
	CoinFlip  TableConfig     `mapstructure:"coinflip"`
	TaiXiu    TableConfig     `mapstructure:"taixiu"`
	HorseRace HorseRaceConfig `mapstructure:"horserace"`
	Slot      SoloConfig      `mapstructure:"slot"`
	Coin      SoloConfig      `mapstructure:"coin"`
}

// TableConfig holds the inactivity window of a session game.
type TableConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// HorseRaceConfig holds horse race configuration.
type HorseRaceConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	Horses      int           `mapstructure:"horses"`
	TrackLength int           `mapstructure:"track_length"`
}

// SoloConfig holds configuration for single player games.
type SoloConfig struct {
	MaxBet          int64 `mapstructure:"max_bet"`
	CooldownSeconds int   `mapstructure:"cooldown_seconds"`
}

// RaidConfig holds boss raid configuration.
type RaidConfig struct {
	AttackCooldown      time.Duration `mapstructure:"attack_cooldown"`
	MVPBonusPercent     int64         `mapstructure:"mvp_bonus_percent"`
	LastHitBonusPercent int64         `mapstructure:"last_hit_bonus_percent"`
	DropChance          float64       `mapstructure:"drop_chance"`
	EncounterTTL        time.Duration `mapstructure:"encounter_ttl"`
}

// CacheConfig holds bounded cache sizes.
type CacheConfig struct {
	PresenceSize int `mapstructure:"presence_size"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_HOST, RAID_ATTACK_COOLDOWN
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional, env vars can provide everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values that would make a game unplayable.
func (c *Config) Validate() error {
	if c.Economy.DailyMin > c.Economy.DailyMax {
		return fmt.Errorf("invalid config: economy.daily_min %d exceeds daily_max %d", c.Economy.DailyMin, c.Economy.DailyMax)
	}
	if c.Games.HorseRace.Horses < 2 {
		return fmt.Errorf("invalid config: games.horserace.horses must be at least 2")
	}
	if c.Raid.DropChance < 0 || c.Raid.DropChance > 1 {
		return fmt.Errorf("invalid config: raid.drop_chance must be within [0,1]")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Empty defaults register the keys so AutomaticEnv can fill them on Unmarshal.
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.app_id", "")
	v.SetDefault("bot.dev_guild_id", "")
	v.SetDefault("database.password", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "communitybot")
	v.SetDefault("database.name", "communitybot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("log.level", "info")

	v.SetDefault("economy.daily_min", 500)
	v.SetDefault("economy.daily_max", 1500)
	v.SetDefault("economy.daily_cooldown", "23h55m")

	v.SetDefault("sessions.lobby_timeout", "120s")
	v.SetDefault("sessions.sweep_interval", "15s")
	v.SetDefault("sessions.closed_cache_size", 1024)

	v.SetDefault("games.blackjack.timeout", "300s")
	v.SetDefault("games.poker.timeout", "300s")
	v.SetDefault("games.coinflip.timeout", "60s")
	v.SetDefault("games.taixiu.timeout", "60s")
	v.SetDefault("games.horserace.timeout", "120s")
	v.SetDefault("games.horserace.horses", 6)
	v.SetDefault("games.horserace.track_length", 20)
	v.SetDefault("games.slot.max_bet", 100000)
	v.SetDefault("games.slot.cooldown_seconds", 5)
	v.SetDefault("games.coin.max_bet", 50000)
	v.SetDefault("games.coin.cooldown_seconds", 3)

	v.SetDefault("raid.attack_cooldown", "10s")
	v.SetDefault("raid.mvp_bonus_percent", 10)
	v.SetDefault("raid.last_hit_bonus_percent", 5)
	v.SetDefault("raid.drop_chance", 0.20)
	v.SetDefault("raid.encounter_ttl", "0s")

	v.SetDefault("cache.presence_size", 4096)
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsGuildAllowed checks if a guild ID is in the whitelist.
func (c *Config) IsGuildAllowed(guildID int64) bool {
	// Empty whitelist means all guilds are allowed
	if len(c.Whitelist.Guilds) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Guilds {
		if id == guildID {
			return true
		}
	}
	return false
}
