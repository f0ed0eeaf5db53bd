package session

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rotateStatusNotFound int64 = 0
	rotateStatusExpired  int64 = 1
	rotateStatusReused   int64 = 2
	rotateStatusRevoked  int64 = 3
)

const rotateScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local vals = redis.call("HMGET", key, "acct", "id", "expires", "revoked")
if not vals[1] then
  return {0, ""}
end
local acct = vals[1]
local expires = tonumber(vals[3] or "0")
local revoked = tonumber(vals[4] or "0")
if expires <= now then
  redis.call("DEL", key)
  redis.call("DEL", ARGV[2] .. vals[2])
  redis.call("ZREM", ARGV[3] .. acct, ARGV[4])
  return {1, acct}
end
if revoked ~= 0 then
  return {2, acct}
end
redis.call("HSET", key, "revoked", now)
return {3, acct}
`

const revokeAllScript = `
local idx = KEYS[1]
local now = tonumber(ARGV[1])
local rt = ARGV[2]
local members = redis.call("ZRANGE", idx, 0, -1)
local n = 0
for _, h in ipairs(members) do
  local key = rt .. h
  local vals = redis.call("HMGET", key, "expires", "revoked")
  if not vals[1] then
    redis.call("ZREM", idx, h)
  else
    local expires = tonumber(vals[1] or "0")
    local revoked = tonumber(vals[2] or "0")
    if revoked == 0 and expires > now then
      redis.call("HSET", key, "revoked", now)
      n = n + 1
    end
  end
end
return n
`

const revokeOneScript = `
local hash = redis.call("GET", KEYS[1])
if not hash then
  return 0
end
local key = ARGV[2] .. hash
local vals = redis.call("HMGET", key, "acct", "expires", "revoked")
if not vals[1] then
  return 0
end
if vals[1] ~= ARGV[3] then
  return 0
end
local now = tonumber(ARGV[1])
if tonumber(vals[2] or "0") <= now then
  return 0
end
if tonumber(vals[3] or "0") ~= 0 then
  return 0
end
redis.call("HSET", key, "revoked", now)
return 1
`

const evictScript = `
local idx = KEYS[1]
local now = tonumber(ARGV[1])
local rt = ARGV[2]
local rid = ARGV[3]
local cap = tonumber(ARGV[4])
local members = redis.call("ZRANGE", idx, 0, -1)
local live = {}
for _, h in ipairs(members) do
  local key = rt .. h
  local vals = redis.call("HMGET", key, "id", "expires", "revoked")
  if not vals[1] then
    redis.call("ZREM", idx, h)
  elseif tonumber(vals[2] or "0") > now and tonumber(vals[3] or "0") == 0 then
    live[#live + 1] = { h, vals[1] }
  end
end
local excess = #live - cap
if excess <= 0 then
  return 0
end
for i = 1, excess do
  local h = live[i][1]
  redis.call("DEL", rt .. h)
  redis.call("DEL", rid .. live[i][2])
  redis.call("ZREM", idx, h)
end
return excess
`

var (
	rotateLua    = redis.NewScript(rotateScript)
	revokeAllLua = redis.NewScript(revokeAllScript)
	revokeOneLua = redis.NewScript(revokeOneScript)
	evictLua     = redis.NewScript(evictScript)
)

// RedisStore is the Redis-backed [Store]. Records are hashes keyed by token
// hash and expire with the refresh token itself; a per-account sorted set
// (scored by creation time) provides the bulk operations.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a [RedisStore] under the given key prefix
// ("ac" when empty).
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ac"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) recordKeyPrefix() string { return s.prefix + ":rt:" }
func (s *RedisStore) idKeyPrefix() string     { return s.prefix + ":rid:" }
func (s *RedisStore) indexKeyPrefix() string  { return s.prefix + ":acct:" }

func (s *RedisStore) recordKey(hexHash string) string { return s.recordKeyPrefix() + hexHash }
func (s *RedisStore) idKey(recordID string) string    { return s.idKeyPrefix() + recordID }
func (s *RedisStore) indexKey(accountID string) string {
	return s.indexKeyPrefix() + accountID
}

// Save persists the record. The record key and the id mapping carry a TTL to
// the record's expiry; revoked records therefore linger until the token they
// belong to would have expired anyway, which is what makes reuse detection
// possible.
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	hexHash := hex.EncodeToString(rec.TokenHash[:])
	expireAt := time.UnixMilli(rec.ExpiresAt)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		key := s.recordKey(hexHash)
		pipe.HSet(ctx, key, map[string]interface{}{
			"id":      rec.ID,
			"acct":    rec.AccountID,
			"created": rec.CreatedAt,
			"expires": rec.ExpiresAt,
			"revoked": rec.RevokedAt,
			"ua":      rec.UserAgent,
			"ip":      rec.IPAddress,
		})
		pipe.ExpireAt(ctx, key, expireAt)
		pipe.Set(ctx, s.idKey(rec.ID), hexHash, time.Until(expireAt))
		pipe.ZAdd(ctx, s.indexKey(rec.AccountID), redis.Z{
			Score:  float64(rec.CreatedAt),
			Member: hexHash,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RevokeForRotation runs the rotation CAS as a single Lua script.
func (s *RedisStore) RevokeForRotation(ctx context.Context, tokenHash [32]byte, now int64) (RotateStatus, string, error) {
	hexHash := hex.EncodeToString(tokenHash[:])

	result, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{s.recordKey(hexHash)},
		now,
		s.idKeyPrefix(),
		s.indexKeyPrefix(),
		hexHash,
	).Result()
	if err != nil {
		return RotateNotFound, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) < 2 {
		return RotateNotFound, "", fmt.Errorf("%w: invalid rotate script response", ErrUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return RotateNotFound, "", fmt.Errorf("%w: invalid rotate script status", ErrUnavailable)
	}
	accountID, _ := parts[1].(string)

	switch code {
	case rotateStatusNotFound:
		return RotateNotFound, "", nil
	case rotateStatusExpired:
		return RotateExpired, accountID, nil
	case rotateStatusReused:
		return RotateReused, accountID, nil
	case rotateStatusRevoked:
		return RotateRevoked, accountID, nil
	default:
		return RotateNotFound, "", fmt.Errorf("%w: unknown rotate script status", ErrUnavailable)
	}
}

// Revoke marks one live record revoked after checking ownership.
func (s *RedisStore) Revoke(ctx context.Context, accountID, recordID string, now int64) (bool, error) {
	result, err := revokeOneLua.Run(
		ctx,
		s.redis,
		[]string{s.idKey(recordID)},
		now,
		s.recordKeyPrefix(),
		accountID,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result == 1, nil
}

// RevokeAllForAccount marks every live record of the account revoked.
func (s *RedisStore) RevokeAllForAccount(ctx context.Context, accountID string, now int64) (int, error) {
	result, err := revokeAllLua.Run(
		ctx,
		s.redis,
		[]string{s.indexKey(accountID)},
		now,
		s.recordKeyPrefix(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(result), nil
}

// ListActive returns the account's live records, oldest first. Index entries
// whose record already expired are pruned along the way.
func (s *RedisStore) ListActive(ctx context.Context, accountID string, now int64) ([]*Record, error) {
	members, err := s.redis.ZRange(ctx, s.indexKey(accountID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(members) == 0 {
		return []*Record{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(members))
	for i, m := range members {
		cmds[i] = pipe.HGetAll(ctx, s.recordKey(m))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	records := make([]*Record, 0, len(members))
	var stale []interface{}
	for i, cmd := range cmds {
		fields, cmdErr := cmd.Result()
		if cmdErr != nil || len(fields) == 0 {
			stale = append(stale, members[i])
			continue
		}
		rec, decErr := decodeFields(members[i], fields)
		if decErr != nil {
			stale = append(stale, members[i])
			continue
		}
		if rec.Live(now) {
			records = append(records, rec)
		}
	}
	if len(stale) > 0 {
		_ = s.redis.ZRem(ctx, s.indexKey(accountID), stale...).Err()
	}

	return records, nil
}

// EvictOverCap deletes the oldest live records beyond cap.
func (s *RedisStore) EvictOverCap(ctx context.Context, accountID string, cap int, now int64) (int, error) {
	if cap <= 0 {
		return 0, nil
	}
	result, err := evictLua.Run(
		ctx,
		s.redis,
		[]string{s.indexKey(accountID)},
		now,
		s.recordKeyPrefix(),
		s.idKeyPrefix(),
		cap,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(result), nil
}

// DeleteExpired is a no-op: record keys expire through Redis TTLs.
func (s *RedisStore) DeleteExpired(ctx context.Context, now int64) (int, error) {
	return 0, nil
}

func decodeFields(hexHash string, fields map[string]string) (*Record, error) {
	raw, err := hex.DecodeString(hexHash)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("session: invalid token hash key")
	}

	rec := &Record{
		ID:        fields["id"],
		AccountID: fields["acct"],
		UserAgent: fields["ua"],
		IPAddress: fields["ip"],
	}
	copy(rec.TokenHash[:], raw)

	if rec.CreatedAt, err = parseInt(fields["created"]); err != nil {
		return nil, err
	}
	if rec.ExpiresAt, err = parseInt(fields["expires"]); err != nil {
		return nil, err
	}
	if rec.RevokedAt, err = parseInt(fields["revoked"]); err != nil {
		return nil, err
	}
	return rec, nil
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("session: invalid numeric field %q", s)
	}
	return n, nil
}
