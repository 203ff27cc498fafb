package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/notifyhub/role-manager-bot/internal/domain"
)

// defaultRoleDestinations is the reference deployment's table: each
// purchasable plugin role points at its documentation post.
const defaultRoleDestinations = "380725404262072320:1200047665442979860," +
	"393044988411379742:1195736480950276196," +
	"380725142608674816:1195734262792605846," +
	"380724874236395520:1195452480687964344"

// Config holds all runtime configuration loaded from environment variables.
// DISCORD_TOKEN and GUILD_ID are required; every other field has a default.
type Config struct {
	// Discord
	DiscordToken          string
	GuildID               string
	JoinRoleID            string
	VerificationChannelID string
	StartupChannelID      string
	ExcludedMemberIDs     map[string]struct{}
	RoleDestinations      domain.DestinationTable

	// Coalescing and self-deletion
	SettleDelay      time.Duration
	MessageRetention time.Duration
	SweepInterval    time.Duration

	// Join role re-applied to every cached member this often
	ReconcileInterval time.Duration

	// REST rate limiting: requests per second per route class
	RESTRateLimit int

	// Ticket store; empty DatabaseURL selects the in-memory store
	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrationsPath string

	// Ops HTTP server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	LogLevel string
}

func Load() (*Config, error) {
	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is required")
	}
	guildID := os.Getenv("GUILD_ID")
	if guildID == "" {
		return nil, fmt.Errorf("GUILD_ID is required")
	}

	destinations, err := domain.ParseDestinationTable(getEnv("ROLE_DESTINATIONS", defaultRoleDestinations))
	if err != nil {
		return nil, fmt.Errorf("ROLE_DESTINATIONS: %w", err)
	}

	// A zero bucket makes every REST call fail in the limiter.
	restRateLimit := getInt("REST_RATE_LIMIT", 5)
	if restRateLimit <= 0 {
		return nil, fmt.Errorf("REST_RATE_LIMIT must be positive, got %d", restRateLimit)
	}

	return &Config{
		DiscordToken:          token,
		GuildID:               guildID,
		JoinRoleID:            getEnv("JOIN_ROLE_ID", "372378135557308427"),
		VerificationChannelID: getEnv("VERIFICATION_CHANNEL_ID", "1200460467622137936"),
		StartupChannelID:      getEnv("STARTUP_CHANNEL_ID", "1094604434195107921"),
		ExcludedMemberIDs:     getSet("EXCLUDED_MEMBER_IDS", "1200196215481041018,1086954578764902481,189771862610411524"),
		RoleDestinations:      destinations,

		SettleDelay:      getDuration("SETTLE_DELAY", 5*time.Second),
		MessageRetention: getDuration("MESSAGE_RETENTION", 24*time.Hour),
		SweepInterval:    getDuration("SWEEP_INTERVAL", 10*time.Minute),

		ReconcileInterval: getDuration("RECONCILE_INTERVAL", 12*time.Hour),

		RESTRateLimit: restRateLimit,

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxConns:     int32(getInt("DB_MAX_CONNS", 5)),
		DBMinConns:     int32(getInt("DB_MIN_CONNS", 1)),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),

		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// getSet parses a comma-separated list of ids.
func getSet(key, defaultVal string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, id := range strings.Split(getEnv(key, defaultVal), ",") {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}
