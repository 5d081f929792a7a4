package config

import (
	game_constants "Conspiracy/constants/game"
	"Conspiracy/models"
	"Conspiracy/services/cleanup"
	"Conspiracy/services/rooms"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the typed view of the environment
type Config struct {
	Port        string
	Prod        bool
	UseHTTPS    bool
	TLSCertFile string
	TLSKeyFile  string

	FrontendURL    string
	FrontendDevURL string
	SessionKey     string
	AdminJWTSecret string

	RoomStore string // "postgres" or "redis"
	Postgres  PostgresConfig
	RedisURL  string
	RedisDB   int

	LogLevel string
	Policy   rooms.Policy
	Cleanup  cleanup.Config
}

type PostgresConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Database string
	SSLMode  string
	Verbose  bool
	Migrate  bool
}

// DSN is the lib/pq connection URL
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// AllowedOrigins lists the configured frontends, empty meaning any origin
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range []string{c.FrontendURL, c.FrontendDevURL} {
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// Load reads the .env file, if any, and then the environment
func Load() (*Config, error) {
	godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the environment only
func FromEnv() (*Config, error) {
	p := &envParser{}

	cfg := &Config{
		Prod:           p.bool("PROD", false),
		UseHTTPS:       p.bool("USE_HTTPS", false),
		TLSCertFile:    os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:     os.Getenv("TLS_KEY_FILE"),
		FrontendURL:    os.Getenv("FRONTEND_URL"),
		FrontendDevURL: os.Getenv("FRONTEND_DEV_URL"),
		SessionKey:     getenv("SESSION_KEY", "conspiracy-session"),
		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),
		RoomStore:      strings.ToLower(getenv("ROOM_STORE", "postgres")),
		Postgres: PostgresConfig{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Host:     getenv("POSTGRES_HOST", "localhost"),
			Port:     getenv("POSTGRES_PORT", "5432"),
			Database: os.Getenv("POSTGRES_DATABASE"),
			SSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
			Verbose:  p.bool("VERBOSE_POSTGRES", false),
			Migrate:  p.bool("MIGRATE_POSTGRES", false),
		},
		RedisURL: getenv("REDIS_URL", "localhost:6379"),
		RedisDB:  p.int("REDIS_DB", 0),
		LogLevel: getenv("LOG_LEVEL", "info"),
	}

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		if cfg.UseHTTPS {
			cfg.Port = "443"
		} else {
			cfg.Port = "8080"
		}
	}

	cfg.Policy = rooms.Policy{
		DefaultSettings: models.Settings{
			MaxPlayers: p.int("DEFAULT_MAX_PLAYERS", game_constants.DEFAULT_MAX_PLAYERS),
			RoundTime:  p.int("DEFAULT_ROUND_TIME", game_constants.DEFAULT_ROUND_TIME),
			Rounds:     p.int("DEFAULT_ROUNDS", game_constants.DEFAULT_ROUNDS),
		},
		MinPlayersToStart: p.int("MIN_PLAYERS_TO_START", game_constants.MIN_PLAYERS_TO_START),
		IdleLobbyDelay:    p.duration("LOBBY_IDLE_TIMEOUT", game_constants.LOBBY_IDLE_TIMEOUT),
		EmptyRoomDelay:    p.duration("EMPTY_ROOM_DELAY", game_constants.EMPTY_ROOM_DELAY),
		PostGameDelay:     p.duration("POST_GAME_DELAY", game_constants.POST_GAME_DELAY),
		GameBuffer:        p.duration("GAME_DURATION_BUFFER", game_constants.GAME_DURATION_BUFFER),
		MaxCodeAttempts:   p.int("CODE_MAX_ATTEMPTS", game_constants.CODE_MAX_ATTEMPTS),
	}

	cfg.Cleanup = cleanup.DefaultConfig()
	cfg.Cleanup.MaxRooms = p.int("MAX_ROOMS", game_constants.MAX_ROOMS)
	// The idle threshold of the sweep and the idle timer of the registry are the same knob
	cfg.Cleanup.LobbyIdleTimeout = cfg.Policy.IdleLobbyDelay
	cfg.Cleanup.FinishedRoomTimeout = p.duration("FINISHED_ROOM_TIMEOUT", game_constants.FINISHED_ROOM_TIMEOUT)
	cfg.Cleanup.SweepInterval = p.duration("CLEANUP_INTERVAL", game_constants.CLEANUP_INTERVAL)

	if p.err != nil {
		return nil, p.err
	}
	if cfg.RoomStore != "postgres" && cfg.RoomStore != "redis" {
		return nil, fmt.Errorf("invalid ROOM_STORE %q: expected postgres or redis", cfg.RoomStore)
	}
	if cfg.UseHTTPS && (cfg.TLSCertFile == "" || cfg.TLSKeyFile == "") {
		return nil, fmt.Errorf("USE_HTTPS requires TLS_CERT_FILE and TLS_KEY_FILE")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// envParser keeps the first parse error so Load can report it once
type envParser struct {
	err error
}

func (p *envParser) int(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return value
}

func (p *envParser) bool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return value
}

func (p *envParser) duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	if value <= 0 {
		p.fail(key, raw, fmt.Errorf("must be positive"))
		return fallback
	}
	return value
}

func (p *envParser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, raw, err)
	}
}
