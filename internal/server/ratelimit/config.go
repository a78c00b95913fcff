package ratelimit

import (
	"strconv"
	"strings"
	"time"
)

// EndpointConfig limits one route. A Path ending in "/" matches by prefix.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int           // requests per Window
	Window time.Duration
	Burst  int // defaults to Limit
}

// LoadConfig reads RATE_LIMIT_* variables through getenv.
func LoadConfig(getenv func(string) string) *Config {
	env := envReader(getenv)
	if !env.boolean("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    env.integer("RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   env.duration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: env.duration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPList(getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the per-route limits of the API.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Upstream-heavy operations. Skill refresh is the only POST under /users/.
		{Path: "/users/", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/roadmap/generate", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/openings", Method: "GET", Limit: 30, Window: time.Minute, Burst: 5},

		// Pure computation.
		{Path: "/match", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/match/gaps", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
	}
}

type envReader func(string) string

func (e envReader) integer(key string, def int) int {
	if v, err := strconv.Atoi(e(key)); err == nil {
		return v
	}
	return def
}

func (e envReader) boolean(key string, def bool) bool {
	if v, err := strconv.ParseBool(e(key)); err == nil {
		return v
	}
	return def
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(e(key)); err == nil {
		return v
	}
	return def
}

func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
