package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

const (
	sessionKeyPrefix   = "rpm:sess:"
	userIndexKeyPrefix = "rpm:user-sess:"
	sweepScanCount     = 200
)

// Hash fields of a session record.
const (
	fieldUserID     = "user_id"
	fieldUsername   = "username"
	fieldRole       = "role"
	fieldClinicName = "clinic_name"
	fieldExpires    = "expires"
	fieldLastAccess = "last_access"
)

// touchScript refreshes a live session without ever recreating one. The
// owner's index is extended alongside it so it outlives every member.
// KEYS[1] session key; ARGV[1] last access (unix ms); ARGV[2] new expiry (unix ms);
// ARGV[3] user index key prefix.
var touchScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
local exp = tonumber(redis.call('HGET', KEYS[1], 'expires'))
if exp == nil or exp <= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'last_access', ARGV[1], 'expires', ARGV[2])
redis.call('PEXPIREAT', KEYS[1], ARGV[2])
local uid = redis.call('HGET', KEYS[1], 'user_id')
if uid then
	redis.call('PEXPIREAT', ARGV[3] .. uid, ARGV[2])
end
return 1
`)

// deleteScript removes one session and its entry in the owner's index.
// KEYS[1] session key; ARGV[1] user index key prefix; ARGV[2] session id.
var deleteScript = redis.NewScript(`
local uid = redis.call('HGET', KEYS[1], 'user_id')
if uid then
	redis.call('SREM', ARGV[1] .. uid, ARGV[2])
end
return redis.call('DEL', KEYS[1])
`)

// deleteUserScript removes every session indexed under a user, then the index.
// A session id whose hash now names another user is left alone.
// KEYS[1] user index key; ARGV[1] session key prefix; ARGV[2] user id.
var deleteUserScript = redis.NewScript(`
local n = 0
for _, id in ipairs(redis.call('SMEMBERS', KEYS[1])) do
	local key = ARGV[1] .. id
	if redis.call('HGET', key, 'user_id') == ARGV[2] then
		n = n + redis.call('DEL', key)
	end
end
redis.call('DEL', KEYS[1])
return n
`)

// SessionStore implements ports.SessionStore on Redis hashes.
// Key format: rpm:sess:<session_id>, indexed per owner in the set
// rpm:user-sess:<user_id>.
type SessionStore struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewSessionStore creates a SessionStore wrapping the given Redis client.
func NewSessionStore(client redis.Cmdable) *SessionStore {
	return &SessionStore{client: client, now: time.Now}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.SessionRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, unavailable("get", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	rec, err := decodeRecord(id, fields)
	if err != nil {
		// A malformed hash cannot identify anyone; treat it as gone.
		_ = s.client.Del(ctx, s.key(id)).Err()
		return nil, domain.ErrSessionNotFound
	}
	if rec.Expired(s.now()) {
		return nil, domain.ErrSessionNotFound
	}
	return rec, nil
}

func (s *SessionStore) Set(ctx context.Context, id string, attrs domain.SessionAttributes, expiresAt time.Time) error {
	if err := attrs.Validate(); err != nil {
		return err
	}
	key := s.key(id)
	index := s.userKey(attrs.UserID)
	now := s.now()

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldUserID, attrs.UserID,
			fieldUsername, attrs.Username,
			fieldRole, string(attrs.Role),
			fieldClinicName, attrs.ClinicName,
			fieldExpires, expiresAt.UnixMilli(),
			fieldLastAccess, now.UnixMilli(),
		)
		pipe.PExpireAt(ctx, key, expiresAt)
		pipe.SAdd(ctx, index, id)
		pipe.PExpireAt(ctx, index, expiresAt)
		return nil
	})
	if err != nil {
		return unavailable("set", err)
	}
	return nil
}

func (s *SessionStore) Touch(ctx context.Context, id string, lastAccess, expiresAt time.Time) error {
	n, err := touchScript.Run(ctx, s.client, []string{s.key(id)},
		lastAccess.UnixMilli(), expiresAt.UnixMilli(), userIndexKeyPrefix).Int()
	if err != nil {
		return unavailable("touch", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := deleteScript.Run(ctx, s.client, []string{s.key(id)}, userIndexKeyPrefix, id).Err(); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

// DeleteByUser removes every live session belonging to userID.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	n, err := deleteUserScript.Run(ctx, s.client, []string{s.userKey(userID)},
		sessionKeyPrefix, strconv.FormatInt(userID, 10)).Int64()
	if err != nil {
		return 0, unavailable("delete by user", err)
	}
	return n, nil
}

// SweepExpired scans all session keys and removes those whose recorded expiry
// has passed. Redis key expiry normally gets there first; this catches keys
// whose TTL was lost (e.g. restored from a snapshot).
func (s *SessionStore) SweepExpired(ctx context.Context) (int64, error) {
	nowMs := s.now().UnixMilli()
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionKeyPrefix+"*", sweepScanCount).Result()
		if err != nil {
			return removed, unavailable("sweep", err)
		}
		for _, key := range keys {
			raw, err := s.client.HGet(ctx, key, fieldExpires).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return removed, unavailable("sweep", err)
			}
			exp, err := strconv.ParseInt(raw, 10, 64)
			if err == nil && exp > nowMs {
				continue
			}
			n, err := s.client.Del(ctx, key).Result()
			if err != nil {
				return removed, unavailable("sweep", err)
			}
			removed += n
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func (s *SessionStore) key(id string) string {
	return sessionKeyPrefix + id
}

func (s *SessionStore) userKey(userID int64) string {
	return userIndexKeyPrefix + strconv.FormatInt(userID, 10)
}

func decodeRecord(id string, fields map[string]string) (*domain.SessionRecord, error) {
	userID, err := strconv.ParseInt(fields[fieldUserID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldUserID, err)
	}
	expires, err := strconv.ParseInt(fields[fieldExpires], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldExpires, err)
	}
	lastAccess, err := strconv.ParseInt(fields[fieldLastAccess], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldLastAccess, err)
	}

	attrs := domain.SessionAttributes{
		UserID:     userID,
		Username:   fields[fieldUsername],
		Role:       domain.Role(fields[fieldRole]),
		ClinicName: fields[fieldClinicName],
	}
	if err := attrs.Validate(); err != nil {
		return nil, err
	}

	return &domain.SessionRecord{
		ID:         id,
		Attributes: attrs,
		ExpiresAt:  time.UnixMilli(expires),
		LastAccess: time.UnixMilli(lastAccess),
	}, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("redis session %s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
