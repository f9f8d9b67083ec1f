// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package redisauth

import "github.com/go-redis/redis/v8"

// Script results.
const (
	resultRejected    = 0
	resultAccepted    = 1
	resultUnknown     = -1
	resultWrongCaller = -2
)

// completeScript verifies the elapsed time and settles the session once.
//
// KEYS: session, profile, study log, badges
// ARGV: user, now (ms), tolerance (ms), day, minutes per coin
var completeScript = redis.NewScript(`
local s = redis.call('HMGET', KEYS[1], 'user', 'minutes', 'started_at', 'completed')
if not s[1] then return -1 end
if s[1] ~= ARGV[1] then return -2 end
if s[4] == '1' then return 1 end

local minutes = tonumber(s[2])
local elapsed = tonumber(ARGV[2]) - tonumber(s[3])
if elapsed + tonumber(ARGV[3]) < minutes * 60000 then return 0 end

redis.call('HSET', KEYS[1], 'completed', '1', 'day', ARGV[4])
redis.call('SADD', KEYS[3], ARGV[4])

local coins = math.floor(minutes / tonumber(ARGV[5]))
if coins > 0 then
  redis.call('HINCRBY', KEYS[2], 'coins', coins)
end

local n = redis.call('HINCRBY', KEYS[2], 'sessions_completed', 1)
if n == 1 then redis.call('SADD', KEYS[4], 'first_session') end
return 1
`)

// purchaseThemeScript debits the cost and grants the item unless already owned.
//
// KEYS: profile, inventory
// ARGV: item id, cost
var purchaseThemeScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[2], ARGV[1]) == 1 then return 0 end
local coins = tonumber(redis.call('HGET', KEYS[1], 'coins') or '0')
if coins < tonumber(ARGV[2]) then return 0 end
redis.call('HINCRBY', KEYS[1], 'coins', '-' .. ARGV[2])
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

// activateBoostScript debits the cost and extends the boost from max(now, current expiry).
//
// KEYS: profile
// ARGV: cost, now (unix s), duration (s)
var activateBoostScript = redis.NewScript(`
local coins = tonumber(redis.call('HGET', KEYS[1], 'coins') or '0')
if coins < tonumber(ARGV[1]) then return 0 end
local base = tonumber(ARGV[2])
local current = tonumber(redis.call('HGET', KEYS[1], 'xp_boost_expires_at') or '0')
if current > base then base = current end
redis.call('HINCRBY', KEYS[1], 'coins', '-' .. ARGV[1])
redis.call('HSET', KEYS[1], 'xp_boost_expires_at', base + tonumber(ARGV[3]))
return 1
`)
