package redis

import "github.com/redis/go-redis/v9"

// slidingWindowScript runs the sliding window check atomically.
// Entries older than the window are trimmed, the remainder counted, and the
// request recorded only when the count is under the limit.
// Returns 0 when allowed and 1 when the limit is reached.
var slidingWindowScript = redis.NewScript(`
    local key = KEYS[1]
    local now = tonumber(ARGV[1])
    local window = tonumber(ARGV[2])
    local limit = tonumber(ARGV[3])
    local clearBefore = now - window

    redis.call("ZREMRANGEBYSCORE", key, 0, clearBefore)

    local currentCount = redis.call("ZCARD", key)

    if currentCount < limit then
        redis.call("ZADD", key, now, ARGV[4])
        redis.call("PEXPIRE", key, window)
        return 0
    end
    return 1
`)
