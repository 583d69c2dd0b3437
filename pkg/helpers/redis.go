package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient initializes a redis client
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// SessionKey is the hash holding the live session of a user.
func SessionKey(userID string) string {
	return "user:session:" + userID
}

// RecoveryCooldownKey throttles recovery mails per address.
func RecoveryCooldownKey(email string) string {
	return "user:recovery:" + strings.ToLower(strings.TrimSpace(email))
}

// SearchCacheKey caches user search results for a query/size pair.
func SearchCacheKey(q string, size int) string {
	return "search:users:" + strings.ToLower(strings.TrimSpace(q)) + ":" + strconv.Itoa(size)
}

// Session is the live sign-in of a user. A token is honoured only while
// its sid matches SID.
type Session struct {
	UserID    string
	Email     string
	Username  string
	SID       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var ErrNoSession = errors.New("no live session")

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

// SaveSession replaces the session of s.UserID; it expires after ttl.
func SaveSession(ctx context.Context, rdb *redis.Client, s Session, ttl time.Duration) error {
	key := SessionKey(s.UserID)
	fields := map[string]any{
		"user_id":    s.UserID,
		"email":      s.Email,
		"username":   s.Username,
		"sid":        s.SID,
		"logged_in":  true,
		"created_at": stamp(s.CreatedAt),
	}
	pipe := rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// LoadSession returns the live session of userID or ErrNoSession.
func LoadSession(ctx context.Context, rdb *redis.Client, userID string) (*Session, error) {
	data, err := rdb.HGetAll(ctx, SessionKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || data["sid"] == "" {
		return nil, ErrNoSession
	}
	s := &Session{UserID: userID, Email: data["email"], Username: data["username"], SID: data["sid"]}
	// updated_at appears only once the session has been touched
	for field, dst := range map[string]*time.Time{"created_at": &s.CreatedAt, "updated_at": &s.UpdatedAt} {
		if data[field] == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, data[field])
		if err != nil {
			return nil, fmt.Errorf("session %s: %s: %w", userID, field, err)
		}
		*dst = t
	}
	return s, nil
}

// TouchSession stamps updated_at without extending the session.
func TouchSession(ctx context.Context, rdb *redis.Client, userID string) error {
	key := SessionKey(userID)
	ttl, err := rdb.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		return err
	}
	pipe := rdb.TxPipeline()
	pipe.HSet(ctx, key, "updated_at", stamp(time.Now()))
	pipe.Expire(ctx, key, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// DropSession signs userID out everywhere.
func DropSession(ctx context.Context, rdb *redis.Client, userID string) error {
	return rdb.Del(ctx, SessionKey(userID)).Err()
}

// CacheJSON stores value under key for ttl.
func CacheJSON(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, b, ttl).Err()
}

// CachedJSON decodes key into dest; false means a miss.
func CachedJSON[T any](ctx context.Context, rdb *redis.Client, key string, dest *T) (bool, error) {
	res, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(res, dest); err != nil {
		return false, err
	}
	return true, nil
}
