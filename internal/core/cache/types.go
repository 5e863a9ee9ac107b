package cache

// Type represents the type of cache.
type Type string

const (
	// TypeRedis represents a Redis cache.
	TypeRedis Type = "redis"
)

// Key prefixes used by the gateway.
const (
	PrefixSecrets    = "secrets:"
	PrefixConnection = "connection:"
)
