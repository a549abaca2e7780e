package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	DatabasePath string // path to the SQLite database file
	SeedFile     string // path to the lists.yaml seed file (optional, empty = no seeding)
	AuthSecret   string // HMAC secret verifying bearer tokens

	// Stream settings
	StreamPollInterval time.Duration // fixed tick reading the channel log (default: 3s)
	StreamGrace        time.Duration // admit events written just before connect (default: 5s)
	ChannelLogDepth    int64         // capped length of each change channel (default: 10)

	ActivityLimit int           // default activity page size on the unified read
	ProbeTimeout  time.Duration // timeout for URL health probes

	// Per-IP budget for clicks/comments (anonymous-reachable writes)
	ClickRateBurst  int
	ClickRateRefill int

	// Activity retention
	RetentionInterval time.Duration // sweep cadence (default: 24h)
	RetentionMaxAge   time.Duration // records older than this become prunable (default: 2160h = 90d)
	RetentionKeep     int           // always keep this many recent records per list

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedCIDRS []string // optional, restrict healthz/readyz to specific IPs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("LINKBOARD_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("LINKBOARD_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("LINKBOARD_LOG_LEVEL", "info"),
		PrettyLog: mustBool("LINKBOARD_PRETTY_LOG", true),

		// Storage & auth
		DatabasePath: getenv("LINKBOARD_DB_PATH", "/app/data/linkboard.db"),
		SeedFile:     getenv("LINKBOARD_SEED_FILE", ""), // Optional, empty = no seeding
		AuthSecret:   requireEnv("LINKBOARD_AUTH_SECRET"),

		// Stream settings
		StreamPollInterval: mustDuration("LINKBOARD_STREAM_POLL_INTERVAL", 3*time.Second),
		StreamGrace:        mustDuration("LINKBOARD_STREAM_GRACE", 5*time.Second),
		ChannelLogDepth:    int64(getenvInt("LINKBOARD_CHANNEL_LOG_DEPTH", 10)),

		ActivityLimit: getenvInt("LINKBOARD_ACTIVITY_LIMIT", 20),
		ProbeTimeout:  mustDuration("LINKBOARD_PROBE_TIMEOUT", 2*time.Second),

		ClickRateBurst:  getenvInt("LINKBOARD_CLICK_RATE_BURST", 60),
		ClickRateRefill: getenvInt("LINKBOARD_CLICK_RATE_REFILL", 120),

		// Retention
		RetentionInterval: mustDuration("LINKBOARD_RETENTION_INTERVAL", 24*time.Hour),
		RetentionMaxAge:   mustDuration("LINKBOARD_RETENTION_MAX_AGE", 2160*time.Hour),
		RetentionKeep:     getenvInt("LINKBOARD_RETENTION_KEEP", 50),

		// Redis settings
		RedisAddr:             requireEnv("LINKBOARD_REDIS_ADDR"),
		RedisUser:             getenv("LINKBOARD_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("LINKBOARD_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("LINKBOARD_REDIS_PASSWORD", ""),
		RedisDB:               requireEnvInt("LINKBOARD_REDIS_DB"),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedCIDRS: parseAllowedIPs(getenv("LINKBOARD_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("LINKBOARD_TRUST_PROXY", true),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: LINKBOARD_REDIS_PASSWORD is required when LINKBOARD_REDIS_PASSWORD_REQUIRED=true")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.AuthSecret = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
