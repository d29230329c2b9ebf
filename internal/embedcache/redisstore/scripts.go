package redisstore

// Lua scripts keep each cache operation atomic when several processes share
// one Redis. Timestamps are unix milliseconds so Lua numbers compare exactly.

const (
	// touchScript bumps access bookkeeping of an existing entry.
	//
	// Keys:
	//   KEYS[1] - entry hash key
	//
	// Args:
	//   ARGV[1] - access time (unix ms)
	//
	// Returns:
	//   HGETALL of the entry, or nil when the entry does not exist
	touchScript = `
local key = KEYS[1]
if redis.call('EXISTS', key) == 0 then
    return false
end

redis.call('HINCRBY', key, 'access_count', 1)

local last = tonumber(redis.call('HGET', key, 'last_accessed') or '0')
local now = tonumber(ARGV[1])
if now > last then
    redis.call('HSET', key, 'last_accessed', ARGV[1])
end

return redis.call('HGETALL', key)
`

	// upsertScript writes an entry, preserving access_count of an existing row.
	//
	// Keys:
	//   KEYS[1] - entry hash key
	//   KEYS[2] - entry counter key
	//
	// Args:
	//   ARGV[1] - text hash
	//   ARGV[2] - text preview
	//   ARGV[3] - embedding (JSON array)
	//   ARGV[4] - model
	//   ARGV[5] - initial access count
	//   ARGV[6] - last accessed (unix ms)
	//
	// Returns:
	//   HGETALL of the stored entry
	upsertScript = `
local key = KEYS[1]
local count_key = KEYS[2]
local created = redis.call('EXISTS', key) == 0

redis.call('HSET', key,
    'text_hash', ARGV[1],
    'text_preview', ARGV[2],
    'embedding', ARGV[3],
    'model', ARGV[4])

if created then
    redis.call('HSET', key, 'access_count', ARGV[5], 'last_accessed', ARGV[6])
    redis.call('INCR', count_key)
else
    local last = tonumber(redis.call('HGET', key, 'last_accessed') or '0')
    if tonumber(ARGV[6]) > last then
        redis.call('HSET', key, 'last_accessed', ARGV[6])
    end
end

return redis.call('HGETALL', key)
`
)
