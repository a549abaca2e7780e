package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linkboard/linkboard/internal/gateway"
	"github.com/linkboard/linkboard/internal/identity"
	"github.com/linkboard/linkboard/internal/ledger"
	"github.com/linkboard/linkboard/internal/lists"
	"github.com/linkboard/linkboard/internal/logger"
	"github.com/linkboard/linkboard/internal/store/sqlite"
	"github.com/linkboard/linkboard/internal/updates"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	AllowedCIDRS []string // IPs allowed to access healthz/readyz endpoints
	TrustProxy   bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)

	RedisClient *redis.Client // Redis client connection (nil in handler tests)
	DB          *sqlite.Store // durable list/entry/activity store

	Identity *identity.Provider // bearer token verification
	Lists    *lists.Service     // mutation operations
	Updates  *updates.Service   // unified consistency read
	Ledger   *ledger.Ledger     // durable activity trail

	EventLog      gateway.LogReader // channel log read side for streams
	StreamPoll    time.Duration     // gateway poll interval
	StreamGrace   time.Duration     // gateway admission grace window
	ActivityLimit int               // default activity page size

	ClickRateBurst  int // per-IP burst for anonymous-reachable writes
	ClickRateRefill int // per-IP refill per minute
}
