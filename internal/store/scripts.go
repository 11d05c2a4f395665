package store

import "github.com/redis/go-redis/v9"

// The two owner-guarded compare-and-swap scripts. Scripts are the sole
// means of owner-guarded mutation; a script failure is surfaced to the
// caller, never silently swallowed.
var (
	refreshIfOwnerScript = redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("EXPIRE", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)

	deleteIfOwnerScript = redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`)
)
